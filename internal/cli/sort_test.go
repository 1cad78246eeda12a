package cli

import (
	"testing"
	"time"

	"github.com/chida-tennis/chida-crawler/internal/tournament"
)

func crawled(title, region string, month time.Month, day int) *tournament.CrawledTournament {
	t := &tournament.CrawledTournament{Title: title, LocationCity: region}
	if month != 0 {
		d := tournament.NewDate(2026, month, day)
		t.Divisions = []tournament.Division{tournament.NewDefaultDivision(d, d, 0)}
	}
	return t
}

func titles(ts []*tournament.CrawledTournament) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Title
	}
	return out
}

func TestSortTournaments(t *testing.T) {
	input := func() []*tournament.CrawledTournament {
		return []*tournament.CrawledTournament{
			crawled("제주 오픈", "제주", time.April, 11),
			crawled("미정 대회", "미정", 0, 0),
			crawled("경북 오픈", "경북", time.March, 7),
			crawled("경북 챌린저", "경북", time.February, 21),
		}
	}

	tests := []struct {
		order SortOrder
		want  []string
	}{
		{SortByDate, []string{"경북 챌린저", "경북 오픈", "제주 오픈", "미정 대회"}},
		{SortByRegion, []string{"경북 챌린저", "경북 오픈", "미정 대회", "제주 오픈"}},
		{SortByTitle, []string{"경북 오픈", "경북 챌린저", "미정 대회", "제주 오픈"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			ts := input()
			sortTournaments(ts, tt.order)
			got := titles(ts)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("order = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestSortOrder_Valid(t *testing.T) {
	for _, o := range []SortOrder{SortByDate, SortByRegion, SortByTitle} {
		if !o.Valid() {
			t.Errorf("%q should be valid", o)
		}
	}
	if SortOrder("state").Valid() {
		t.Error("state should not be valid")
	}
}
