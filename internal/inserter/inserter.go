// Package inserter validates crawled tournaments and writes them to the
// store as one parent row plus its division rows.
//
// Imported tournaments are stored with status draft until an admin reviews
// them. A tournament whose title and earliest division date are already
// stored is skipped as a duplicate. Title matching is exact, so trivially
// different titles are not recognized as the same tournament.
package inserter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chida-tennis/chida-crawler/internal/logger"
	"github.com/chida-tennis/chida-crawler/internal/store"
	"github.com/chida-tennis/chida-crawler/internal/tournament"
)

// DuplicateMarker appears in the message of every duplicate Result.
const DuplicateMarker = "duplicate"

// ValidationResult lists every problem found in a tournament.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Result is the outcome of inserting one tournament.
type Result struct {
	Title     string    `json:"title"`
	Success   bool      `json:"success"`
	Duplicate bool      `json:"duplicate,omitempty"`
	Message   string    `json:"message"`
	ID        uuid.UUID `json:"id,omitzero"`
	Divisions int       `json:"divisions,omitempty"`
}

// BatchReport tallies the outcomes of InsertBatch.
type BatchReport struct {
	Total   int      `json:"total"`
	Success int      `json:"success"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Results []Result `json:"results"`
}

// Failures returns the results that failed for a reason other than being a
// duplicate.
func (r *BatchReport) Failures() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Success && !res.Duplicate {
			failed = append(failed, res)
		}
	}
	return failed
}

// Inserter writes crawled tournaments to a store.
type Inserter struct {
	store store.Store
}

// New creates an Inserter backed by s.
func New(s store.Store) *Inserter {
	return &Inserter{store: s}
}

// Validate checks the fields required for persistence. It never rejects a
// tournament for a missing fee or capacity, since those have defaults.
func Validate(t *tournament.CrawledTournament) ValidationResult {
	var errs []string

	if strings.TrimSpace(t.Title) == "" {
		errs = append(errs, "title is empty")
	}
	if strings.TrimSpace(t.LocationCity) == "" {
		errs = append(errs, "location_city is empty")
	}
	if len(t.Divisions) == 0 {
		errs = append(errs, "divisions is empty")
	}
	for i, d := range t.Divisions {
		if strings.TrimSpace(d.Name) == "" {
			errs = append(errs, fmt.Sprintf("divisions[%d]: name is empty", i))
		}
		if d.DateStart.IsZero() {
			errs = append(errs, fmt.Sprintf("divisions[%d]: date_start is empty", i))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// IsDuplicate reports whether a tournament with this exact title and date is
// already stored. A failing lookup is logged and treated as not duplicate.
func (ins *Inserter) IsDuplicate(ctx context.Context, title string, date tournament.Date) bool {
	exists, err := ins.store.TournamentExists(ctx, title, date)
	if err != nil {
		logger.Error("Duplicate check failed", logger.Fields{
			"title": title,
			"date":  date.String(),
		}, err)
		return false
	}
	return exists
}

// Insert validates t and writes it with its divisions. It never returns an
// error; every outcome is described by the Result.
func (ins *Inserter) Insert(ctx context.Context, t *tournament.CrawledTournament) Result {
	if t == nil {
		return Result{Message: "validation failed: tournament is missing"}
	}
	res := Result{Title: t.Title}

	if v := Validate(t); !v.Valid {
		res.Message = "validation failed: " + strings.Join(v.Errors, ", ")
		return res
	}

	title := strings.TrimSpace(t.Title)
	earliest := t.EarliestDate()

	if ins.IsDuplicate(ctx, title, earliest) {
		res.Duplicate = true
		res.Message = fmt.Sprintf("%s: %q (%s) already exists", DuplicateMarker, title, earliest)
		return res
	}

	parent := &store.Tournament{
		Title:                 title,
		Date:                  earliest,
		Location:              strings.TrimSpace(t.LocationCity),
		LocationCity:          strings.TrimSpace(t.LocationCity),
		LocationDetail:        strings.TrimSpace(t.LocationDetail),
		Organizer:             t.OrganizerOrDefault(),
		ThumbnailURL:          t.ThumbnailURL,
		CrawledURL:            t.CrawledURL,
		RegistrationStartDate: t.RegistrationStart,
		RegistrationEndDate:   t.RegistrationEnd,
		Status:                tournament.StatusDraft,
		Description:           t.Description,
		Fee:                   t.RepresentativeFee(),
		ViewCount:             0,
	}

	var (
		id  uuid.UUID
		err error
	)
	if tx, ok := ins.store.(store.Transactor); ok {
		err = tx.WithinTx(ctx, func(s store.Store) error {
			var writeErr error
			id, writeErr = writeTournament(ctx, s, parent, t)
			return writeErr
		})
	} else {
		id, err = ins.insertWithCompensation(ctx, parent, t)
	}
	if err != nil {
		res.Message = err.Error()
		return res
	}

	res.Success = true
	res.ID = id
	res.Divisions = len(t.Divisions)
	res.Message = fmt.Sprintf("saved %q (%d divisions)", title, len(t.Divisions))
	return res
}

// errChildInsert marks a division insert failure after the parent row was
// written.
var errChildInsert = errors.New("saving divisions failed")

func writeTournament(ctx context.Context, s store.Store, parent *store.Tournament, t *tournament.CrawledTournament) (uuid.UUID, error) {
	id, err := s.InsertTournament(ctx, parent)
	if err != nil {
		return uuid.Nil, fmt.Errorf("saving tournament failed: %w", err)
	}
	if err := s.InsertDivisions(ctx, divisionRows(id, t)); err != nil {
		return id, fmt.Errorf("%w: %w", errChildInsert, err)
	}
	return id, nil
}

// insertWithCompensation writes the parent then the children, deleting the
// parent if the children cannot be written.
func (ins *Inserter) insertWithCompensation(ctx context.Context, parent *store.Tournament, t *tournament.CrawledTournament) (uuid.UUID, error) {
	id, err := writeTournament(ctx, ins.store, parent, t)
	if err != nil && errors.Is(err, errChildInsert) {
		if delErr := ins.store.DeleteTournament(ctx, id); delErr != nil {
			logger.Error("Rollback of tournament failed", logger.Fields{
				"id":    id.String(),
				"title": parent.Title,
			}, delErr)
		}
		return uuid.Nil, err
	}
	return id, err
}

func divisionRows(parentID uuid.UUID, t *tournament.CrawledTournament) []store.Division {
	rows := make([]store.Division, 0, len(t.Divisions))
	for _, d := range t.Divisions {
		rows = append(rows, store.Division{
			TournamentID:          parentID,
			Name:                  strings.TrimSpace(d.Name),
			DateStart:             d.DateStart,
			DateEnd:               d.EndDate(),
			TimeStart:             d.TimeStart,
			Capacity:              d.CapacityOrDefault(),
			CurrentParticipants:   0,
			Fee:                   d.Fee,
			RegistrationStartDate: t.RegistrationStart,
			RegistrationEndDate:   t.RegistrationEnd,
			Status:                d.StatusOrDefault(),
		})
	}
	return rows
}

// InsertBatch inserts tournaments one after another. A failing item never
// stops the batch.
func (ins *Inserter) InsertBatch(ctx context.Context, tournaments []*tournament.CrawledTournament) *BatchReport {
	start := time.Now()
	report := &BatchReport{
		Total:   len(tournaments),
		Results: make([]Result, 0, len(tournaments)),
	}

	logger.Info("Importing tournaments", logger.Fields{"count": len(tournaments)})

	for _, t := range tournaments {
		res := ins.Insert(ctx, t)
		report.Results = append(report.Results, res)

		fields := logger.Fields{"title": res.Title, "message": res.Message}
		switch {
		case res.Success:
			report.Success++
			logger.IncrCounter("insert.success")
			fields["id"] = res.ID.String()
			fields["divisions"] = res.Divisions
			logger.Info("Tournament imported", fields)
		case res.Duplicate:
			report.Skipped++
			logger.IncrCounter("insert.skipped")
			logger.Info("Tournament skipped", fields)
		default:
			report.Failed++
			logger.IncrCounter("insert.failed")
			logger.Warn("Tournament import failed", fields)
		}
	}

	logger.RecordTiming("insert.batch", time.Since(start))
	logger.Info("Import finished", logger.Fields{
		"total":   report.Total,
		"success": report.Success,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	})
	return report
}
