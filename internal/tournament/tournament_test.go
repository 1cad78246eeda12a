package tournament

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestCrawledTournament_EarliestDate(t *testing.T) {
	ct := &CrawledTournament{
		Divisions: []Division{
			{Name: "국화부", DateStart: NewDate(2026, time.March, 8)},
			{Name: "미정", DateStart: Date{}},
			{Name: "개나리부", DateStart: NewDate(2026, time.March, 7)},
		},
	}

	if got := ct.EarliestDate().String(); got != "2026-03-07" {
		t.Errorf("EarliestDate() = %q, want 2026-03-07", got)
	}

	empty := &CrawledTournament{}
	if !empty.EarliestDate().IsZero() {
		t.Error("EarliestDate() of no divisions should be zero")
	}
}

func TestCrawledTournament_RepresentativeFee(t *testing.T) {
	tests := []struct {
		name string
		fees []int
		want int
	}{
		{"lowest positive", []int{54000, 40000, 60000}, 40000},
		{"zeros ignored", []int{0, 54000, 0}, 54000},
		{"all unspecified", []int{0, 0}, 0},
		{"no divisions", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := &CrawledTournament{}
			for _, fee := range tt.fees {
				ct.Divisions = append(ct.Divisions, Division{Name: "부", Fee: fee})
			}
			if got := ct.RepresentativeFee(); got != tt.want {
				t.Errorf("RepresentativeFee() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDivision_Defaults(t *testing.T) {
	d := Division{Name: "개나리부", DateStart: NewDate(2026, time.March, 7)}

	if d.EndDate() != d.DateStart {
		t.Errorf("EndDate() = %v, want %v", d.EndDate(), d.DateStart)
	}
	if d.CapacityOrDefault() != DefaultCapacity {
		t.Errorf("CapacityOrDefault() = %d, want %d", d.CapacityOrDefault(), DefaultCapacity)
	}
	if d.StatusOrDefault() != StatusRecruiting {
		t.Errorf("StatusOrDefault() = %q, want recruiting", d.StatusOrDefault())
	}

	d.DateEnd = NewDate(2026, time.March, 8)
	d.Capacity = 16
	d.Status = StatusClosed
	if d.EndDate() != d.DateEnd || d.CapacityOrDefault() != 16 || d.StatusOrDefault() != StatusClosed {
		t.Errorf("explicit values not kept: %+v", d)
	}
}

func TestNewDefaultDivision(t *testing.T) {
	start := NewDate(2026, time.March, 7)
	d := NewDefaultDivision(start, start.AddDays(1), 30000)

	if d.Name != DefaultDivisionName || d.Capacity != DefaultCapacity || d.Status != StatusRecruiting {
		t.Errorf("NewDefaultDivision() = %+v", d)
	}
	if d.Fee != 30000 || d.DateStart != start {
		t.Errorf("NewDefaultDivision() = %+v", d)
	}
}

func TestCrawledTournament_JSON(t *testing.T) {
	ct := CrawledTournament{
		Title:        "2026 경북 오픈",
		Location:     "경북",
		LocationCity: "경북",
		Organizer:    DefaultOrganizer,
		CrawledURL:   "https://kato.kr/openGame/1",
		Status:       StatusRecruiting,
		Divisions: []Division{
			{Name: "개나리부", DateStart: NewDate(2026, time.March, 7), Fee: 54000, Capacity: 32, Status: StatusRecruiting},
		},
	}

	data, err := json.Marshal(ct)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"date_start":"2026-03-07"`) {
		t.Errorf("JSON missing date_start: %s", s)
	}
	if strings.Contains(s, "registration_start_date") || strings.Contains(s, `"date_end"`) {
		t.Errorf("JSON should omit absent dates: %s", s)
	}

	var back CrawledTournament
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if back.Divisions[0].DateStart != ct.Divisions[0].DateStart || back.Title != ct.Title {
		t.Errorf("Unmarshal() = %+v", back)
	}
}

func TestOrganizerOrDefault(t *testing.T) {
	ct := &CrawledTournament{}
	if got := ct.OrganizerOrDefault(); got != DefaultOrganizer {
		t.Errorf("OrganizerOrDefault() = %q, want %q", got, DefaultOrganizer)
	}
	ct.Organizer = "대한테니스협회"
	if got := ct.OrganizerOrDefault(); got != "대한테니스협회" {
		t.Errorf("OrganizerOrDefault() = %q", got)
	}
}
