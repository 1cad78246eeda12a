package tournament

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ISODateLayout is the layout used for dates in JSON and in the store.
const ISODateLayout = "2006-01-02"

// rolloverWindow is how far in the past a year-less schedule date may fall
// before it is moved to the following year.
const rolloverWindow = 180 * 24 * time.Hour

var (
	fullDatePattern  = regexp.MustCompile(`(\d{4})[.\-/](\d{1,2})[.\-/](\d{1,2})`)
	rangeEndPattern  = regexp.MustCompile(`~\s*(\d{4})[.\-/](\d{1,2})[.\-/](\d{1,2})`)
	monthDayPattern  = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})`)
	timeOfDayPattern = regexp.MustCompile(`\d{2}:\d{2}`)
)

// Date is a calendar day without time-of-day or zone. The zero value means
// "no date".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the normalized date for year, month and day. Out-of-range
// values roll over the way time.Date does (Feb 30 becomes Mar 2).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Time returns midnight UTC of d, or the zero time for the zero date.
func (d Date) Time() time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats d as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(ISODateLayout)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after other.
func (d Date) Compare(other Date) int {
	return d.Time().Compare(other.Time())
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// MarshalJSON encodes d as "YYYY-MM-DD", or null for the zero date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD", "YYYY.MM.DD", "" and null.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding date: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed := ParseDate(s)
	if parsed.IsZero() {
		return fmt.Errorf("invalid date %q", s)
	}
	*d = parsed
	return nil
}

// Value stores d as "YYYY-MM-DD", or NULL for the zero date.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan reads a DATE column. Drivers hand dates back either as time.Time or
// as text.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
	case time.Time:
		*d = DateOf(v)
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}

func (d *Date) scanText(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed := ParseDate(s)
	if parsed.IsZero() {
		return fmt.Errorf("invalid date %q", s)
	}
	*d = parsed
	return nil
}

// ParseDate returns the first full date (YYYY.MM.DD, YYYY-MM-DD or
// YYYY/MM/DD) found in text. Returns the zero Date if none is found or the
// month/day are out of range.
func ParseDate(text string) Date {
	m := fullDatePattern.FindStringSubmatch(text)
	if m == nil {
		return Date{}
	}
	return dateFromParts(m[1], m[2], m[3])
}

// ParseDateRange parses texts like "2026.03.07 ~ 2026.03.08". When no range
// separator follows the start date, end equals start.
func ParseDateRange(text string) (start, end Date) {
	start = ParseDate(text)
	if start.IsZero() {
		return Date{}, Date{}
	}
	end = start
	if m := rangeEndPattern.FindStringSubmatch(text); m != nil {
		if parsed := dateFromParts(m[1], m[2], m[3]); !parsed.IsZero() {
			end = parsed
		}
	}
	return start, end
}

// ParseMonthDay extracts the month and day from schedule cells like
// "03.07(토)". ok is false when the text holds no valid month/day.
func ParseMonthDay(text string) (month time.Month, day int, ok bool) {
	m := monthDayPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	mo, _ := strconv.Atoi(m[1])
	dd, _ := strconv.Atoi(m[2])
	if mo < 1 || mo > 12 || dd < 1 || dd > 31 {
		return 0, 0, false
	}
	return time.Month(mo), dd, true
}

// ResolveYear places a year-less month/day on the calendar relative to an
// anchor: eventStart when known, otherwise today. The anchor's year is
// used, moving to the next year when the result would lie more than half a
// year before the anchor (the January rows of an event starting in
// December, or a December scrape of a January event).
func ResolveYear(month time.Month, day int, eventStart, today Date) Date {
	anchor := eventStart
	if anchor.IsZero() {
		anchor = today
	}
	candidate := NewDate(anchor.Year, month, day)
	if anchor.Time().Sub(candidate.Time()) > rolloverWindow {
		candidate = NewDate(anchor.Year+1, month, day)
	}
	return candidate
}

// ParseTimeOfDay returns the first HH:MM found in text, or "".
func ParseTimeOfDay(text string) string {
	return timeOfDayPattern.FindString(text)
}

func dateFromParts(year, month, day string) Date {
	y, err := strconv.Atoi(year)
	if err != nil {
		return Date{}
	}
	mo, err := strconv.Atoi(month)
	if err != nil || mo < 1 || mo > 12 {
		return Date{}
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return Date{}
	}
	parsed := NewDate(y, time.Month(mo), d)
	// Reject days that overflow into the next month (2026.02.30).
	if parsed.Month != time.Month(mo) {
		return Date{}
	}
	return parsed
}
