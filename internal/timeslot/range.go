package timeslot

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultDurationMinutes is assumed for events that declare a start time but
// no end time.
const DefaultDurationMinutes = 120

// Range is a half-open [Start, End) interval expressed in minutes of day.
type Range struct {
	Start int
	End   int
}

// ParseClock converts a local "HH:MM" time-of-day string into minutes of day.
func ParseClock(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	parts := strings.Split(trimmed, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("timeslot: invalid clock value %q", value)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("timeslot: invalid clock value %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("timeslot: invalid clock value %q", value)
	}

	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("timeslot: clock value %q out of range", value)
	}

	return hours*60 + minutes, nil
}

// RangeOf builds the minute-of-day range covered by an engagement. When end
// is empty, the range spans DefaultDurationMinutes from start.
func RangeOf(start, end string) (Range, error) {
	startMinutes, err := ParseClock(start)
	if err != nil {
		return Range{}, err
	}

	if strings.TrimSpace(end) == "" {
		return Range{Start: startMinutes, End: startMinutes + DefaultDurationMinutes}, nil
	}

	endMinutes, err := ParseClock(end)
	if err != nil {
		return Range{}, err
	}

	return Range{Start: startMinutes, End: endMinutes}, nil
}

// Overlaps reports whether two half-open ranges share any minute. Ranges that
// merely touch at a boundary do not overlap.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// Duration returns the covered span in minutes.
func (r Range) Duration() int {
	return r.End - r.Start
}
