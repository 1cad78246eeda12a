package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/chida-tennis/chida-crawler/internal/crawler"
	"github.com/chida-tennis/chida-crawler/internal/inserter"
	"github.com/chida-tennis/chida-crawler/internal/snapshot"
	"github.com/chida-tennis/chida-crawler/internal/tournament"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// WriteTournaments writes a crawl in the specified format. JSON output has the
// snapshot shape so it can be fed back to "import -".
func WriteTournaments(w io.Writer, snap *snapshot.Snapshot, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return snapshot.Write(w, snap)
	case FormatText:
		return writeTournamentsText(w, snap.Tournaments, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteBatchReport writes the outcome of an import.
func WriteBatchReport(w io.Writer, report *inserter.BatchReport, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatText:
		return writeBatchText(w, report)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteRunReport writes the outcome of a full crawl.
func WriteRunReport(w io.Writer, report *crawler.RunReport, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatText:
		fmt.Fprintf(w, "Found %d tournaments in %s\n",
			report.Found, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
		if report.SnapshotPath != "" {
			fmt.Fprintf(w, "Snapshot: %s\n", report.SnapshotPath)
		}
		if report.Batch == nil {
			return nil
		}
		if verbose {
			return writeBatchText(w, report.Batch)
		}
		writeBatchTotals(w, report.Batch)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs v as indented JSON
func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// writeTournamentsText groups tournaments by region. Tournaments keep their
// relative order within a region.
func writeTournamentsText(w io.Writer, ts []*tournament.CrawledTournament, verbose bool) error {
	if len(ts) == 0 {
		fmt.Fprintln(w, "No tournaments found.")
		return nil
	}

	byRegion := make(map[string][]*tournament.CrawledTournament)
	for _, t := range ts {
		byRegion[t.LocationCity] = append(byRegion[t.LocationCity], t)
	}
	regions := make([]string, 0, len(byRegion))
	for region := range byRegion {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	for _, region := range regions {
		group := byRegion[region]
		fmt.Fprintf(w, "\n%s (%d):\n", region, len(group))
		for _, t := range group {
			fmt.Fprintf(w, "  %s  %s [%s]\n", t.EarliestDate(), t.Title, t.Status)
			if !verbose {
				continue
			}
			if t.LocationDetail != "" {
				fmt.Fprintf(w, "       Venue: %s\n", t.LocationDetail)
			}
			if !t.RegistrationStart.IsZero() || !t.RegistrationEnd.IsZero() {
				fmt.Fprintf(w, "       Registration: %s ~ %s\n", t.RegistrationStart, t.RegistrationEnd)
			}
			if fee := t.RepresentativeFee(); fee > 0 {
				fmt.Fprintf(w, "       Fee: %d원\n", fee)
			}
			for _, d := range t.Divisions {
				fmt.Fprintf(w, "       - %s %s", d.Name, d.DateStart)
				if d.TimeStart != "" {
					fmt.Fprintf(w, " %s", d.TimeStart)
				}
				fmt.Fprintf(w, " (%d teams)\n", d.CapacityOrDefault())
			}
			fmt.Fprintf(w, "       URL: %s\n", t.CrawledURL)
		}
	}
	fmt.Fprintf(w, "\nTotal: %d tournaments across %d regions\n", len(ts), len(regions))
	return nil
}

func writeBatchText(w io.Writer, report *inserter.BatchReport) error {
	for _, res := range report.Results {
		switch {
		case res.Success:
			fmt.Fprintf(w, "  OK    %s (%d divisions)\n", res.Title, res.Divisions)
		case res.Duplicate:
			fmt.Fprintf(w, "  SKIP  %s\n", res.Title)
		default:
			fmt.Fprintf(w, "  FAIL  %s: %s\n", res.Title, res.Message)
		}
	}
	writeBatchTotals(w, report)
	return nil
}

func writeBatchTotals(w io.Writer, report *inserter.BatchReport) {
	fmt.Fprintf(w, "Imported: %d, skipped: %d, failed: %d (of %d)\n",
		report.Success, report.Skipped, report.Failed, report.Total)
}
