package cli

import (
	"sort"
	"strings"

	"github.com/chida-tennis/chida-crawler/internal/tournament"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate   SortOrder = "date"
	SortByRegion SortOrder = "region"
	SortByTitle  SortOrder = "title"
)

// Valid reports whether o is a known sort order.
func (o SortOrder) Valid() bool {
	switch o {
	case SortByDate, SortByRegion, SortByTitle:
		return true
	}
	return false
}

// sortTournaments sorts tournaments in place by the given order
func sortTournaments(ts []*tournament.CrawledTournament, order SortOrder) {
	switch order {
	case SortByDate:
		sort.SliceStable(ts, func(i, j int) bool {
			return compareByDate(ts[i], ts[j])
		})
	case SortByRegion:
		sort.SliceStable(ts, func(i, j int) bool {
			if ts[i].LocationCity != ts[j].LocationCity {
				return ts[i].LocationCity < ts[j].LocationCity
			}
			return compareByDate(ts[i], ts[j])
		})
	case SortByTitle:
		sort.SliceStable(ts, func(i, j int) bool {
			ti, tj := strings.ToLower(ts[i].Title), strings.ToLower(ts[j].Title)
			if ti != tj {
				return ti < tj
			}
			return compareByDate(ts[i], ts[j])
		})
	}
}

// compareByDate reports whether i is held before j. Undated tournaments go
// last, ordered by region then title.
func compareByDate(i, j *tournament.CrawledTournament) bool {
	dateI := i.EarliestDate()
	dateJ := j.EarliestDate()

	if !dateI.IsZero() && !dateJ.IsZero() {
		if dateI != dateJ {
			return dateI.Before(dateJ)
		}
		return strings.ToLower(i.Title) < strings.ToLower(j.Title)
	}

	if !dateI.IsZero() {
		return true
	}
	if !dateJ.IsZero() {
		return false
	}

	if i.LocationCity != j.LocationCity {
		return i.LocationCity < j.LocationCity
	}
	return strings.ToLower(i.Title) < strings.ToLower(j.Title)
}
