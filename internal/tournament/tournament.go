package tournament

const (
	// DefaultOrganizer is recorded when the source does not name one.
	DefaultOrganizer = "KATO"
	// DefaultDivisionName labels divisions whose name cell is blank.
	DefaultDivisionName = "일반부"
	// DefaultCapacity is the team capacity assumed when none is given.
	DefaultCapacity = 32
)

// Division is one scheduled bracket within a tournament.
type Division struct {
	Name      string `json:"name"`
	DateStart Date   `json:"date_start"`
	DateEnd   Date   `json:"date_end,omitzero"`
	TimeStart string `json:"time_start,omitempty"`
	Fee       int    `json:"fee"`
	Capacity  int    `json:"capacity,omitempty"`
	Status    Status `json:"status,omitempty"`
}

// EndDate returns DateEnd, defaulting to DateStart.
func (d Division) EndDate() Date {
	if d.DateEnd.IsZero() {
		return d.DateStart
	}
	return d.DateEnd
}

// CapacityOrDefault returns Capacity, or DefaultCapacity when unset.
func (d Division) CapacityOrDefault() int {
	if d.Capacity == 0 {
		return DefaultCapacity
	}
	return d.Capacity
}

// StatusOrDefault returns Status, or recruiting when unset.
func (d Division) StatusOrDefault() Status {
	if d.Status == "" {
		return StatusRecruiting
	}
	return d.Status
}

// NewDefaultDivision builds the single division synthesized for a
// tournament whose schedule could not be read.
func NewDefaultDivision(start, end Date, fee int) Division {
	return Division{
		Name:      DefaultDivisionName,
		DateStart: start,
		DateEnd:   end,
		Fee:       fee,
		Capacity:  DefaultCapacity,
		Status:    StatusRecruiting,
	}
}

// CrawledTournament is a tournament as scraped from a listing site, before
// it is persisted. It is built once per scrape and not modified afterwards.
type CrawledTournament struct {
	Title             string     `json:"title"`
	Location          string     `json:"location"`
	LocationCity      string     `json:"location_city"`
	LocationDetail    string     `json:"location_detail,omitempty"`
	Organizer         string     `json:"organizer"`
	ThumbnailURL      string     `json:"thumbnail_url,omitempty"`
	CrawledURL        string     `json:"crawled_url"`
	RegistrationStart Date       `json:"registration_start_date,omitzero"`
	RegistrationEnd   Date       `json:"registration_end_date,omitzero"`
	Status            Status     `json:"status"`
	Description       string     `json:"description,omitempty"`
	Divisions         []Division `json:"divisions"`
}

// EarliestDate returns the minimum DateStart over all divisions, ignoring
// zero dates. Returns the zero Date when there are no dated divisions.
func (t *CrawledTournament) EarliestDate() Date {
	var earliest Date
	for _, d := range t.Divisions {
		if d.DateStart.IsZero() {
			continue
		}
		if earliest.IsZero() || d.DateStart.Before(earliest) {
			earliest = d.DateStart
		}
	}
	return earliest
}

// RepresentativeFee returns the lowest positive division fee, or 0 when no
// division states a fee.
func (t *CrawledTournament) RepresentativeFee() int {
	lowest := 0
	for _, d := range t.Divisions {
		if d.Fee <= 0 {
			continue
		}
		if lowest == 0 || d.Fee < lowest {
			lowest = d.Fee
		}
	}
	return lowest
}

// OrganizerOrDefault returns Organizer, or DefaultOrganizer when blank.
func (t *CrawledTournament) OrganizerOrDefault() string {
	if t.Organizer == "" {
		return DefaultOrganizer
	}
	return t.Organizer
}
