package bimester

import "time"

// Status is the lifecycle stage of a bimester, and of the classes held in it.
type Status string

const (
	StatusOpen      Status = "open"
	StatusActive    Status = "active"
	StatusGrading   Status = "grading"
	StatusCompleted Status = "completed"
)

var Statuses = []Status{StatusOpen, StatusActive, StatusGrading, StatusCompleted}

func (s Status) IsValid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// ResolveStatus returns the stage b is in at now. Every interval is closed on the left and open on the right:
//
//	now < start               -> open
//	start <= now < end        -> active
//	end <= now < deadline     -> grading
//	now >= deadline           -> completed
//
// A nil bimester (dangling reference) is open.
func ResolveStatus(now time.Time, b *Bimester) Status {
	switch {
	case b == nil:
		return StatusOpen
	case now.Before(b.StartDate):
		return StatusOpen
	case now.Before(b.EndDate):
		return StatusActive
	case now.Before(b.GradeDeadline):
		return StatusGrading
	default:
		return StatusCompleted
	}
}
