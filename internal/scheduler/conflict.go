package scheduler

import (
	"time"

	"github.com/example/floral-staffing/internal/timeslot"
)

// Booking represents a confirmed engagement of a single resource on one event.
type Booking struct {
	EventID    string
	EventTitle string
	Date       time.Time
	Start      string
	End        string
}

// Result describes the outcome of a conflict scan. An empty Conflicting list
// means the candidate booking is free of overlaps.
type Result struct {
	HasConflict bool
	Conflicting []Booking
}

// DetectConflicts reports which existing bookings overlap the candidate on the
// same calendar date. The check is advisory: it never fails, and bookings that
// cannot be placed on the clock (no start time) are ignored.
func DetectConflicts(existing []Booking, candidate Booking) Result {
	candidateRange, ok := rangeOf(candidate)
	if !ok {
		return Result{}
	}

	conflicting := make([]Booking, 0)
	for _, booking := range existing {
		if booking.EventID == candidate.EventID {
			continue
		}
		if !sameDate(booking.Date, candidate.Date) {
			continue
		}
		bookingRange, ok := rangeOf(booking)
		if !ok {
			continue
		}
		if candidateRange.Overlaps(bookingRange) {
			conflicting = append(conflicting, booking)
		}
	}

	if len(conflicting) == 0 {
		return Result{}
	}

	return Result{HasConflict: true, Conflicting: conflicting}
}

func rangeOf(booking Booking) (timeslot.Range, bool) {
	if booking.Start == "" {
		return timeslot.Range{}, false
	}
	r, err := timeslot.RangeOf(booking.Start, booking.End)
	if err != nil {
		return timeslot.Range{}, false
	}
	return r, true
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
