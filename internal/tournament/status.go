package tournament

// Status is the recruitment state of a tournament or division.
type Status string

const (
	StatusRecruiting Status = "recruiting"
	StatusUpcoming   Status = "upcoming"
	StatusClosed     Status = "closed"

	// StatusDraft is the persisted status of imported tournaments until an
	// admin reviews them. InferStatus never returns it.
	StatusDraft Status = "draft"
)

// Valid reports whether s is one of the inferred recruitment states.
func (s Status) Valid() bool {
	switch s {
	case StatusRecruiting, StatusUpcoming, StatusClosed:
		return true
	}
	return false
}

// InferStatus derives the recruitment status. Zero dates are treated as
// absent. The rules apply in order:
//  1. registration end before today: closed
//  2. registration start after today: upcoming
//  3. event date before today: closed
//  4. otherwise: recruiting
func InferStatus(regStart, regEnd, eventDate, today Date) Status {
	if !regEnd.IsZero() && today.After(regEnd) {
		return StatusClosed
	}
	if !regStart.IsZero() && today.Before(regStart) {
		return StatusUpcoming
	}
	if !eventDate.IsZero() && today.After(eventDate) {
		return StatusClosed
	}
	return StatusRecruiting
}
