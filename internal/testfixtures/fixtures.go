package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/floral-staffing/internal/staffing"
)

var (
	eventCounter    uint64
	resourceCounter uint64
)

var referenceTime = time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Event fixtures -----------------------------

// EventOption configures the generated event fixture.
type EventOption func(*staffing.Event)

// NewEventFixture returns a deterministic event fixture with optional
// overrides. Each fixture lands on a distinct calendar day so conflict scans
// stay quiet unless a test arranges an overlap on purpose.
func NewEventFixture(opts ...EventOption) staffing.Event {
	idx := atomic.AddUint64(&eventCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	event := staffing.Event{
		ID:                    fmt.Sprintf("event-%03d", idx),
		Title:                 fmt.Sprintf("Event %03d", idx),
		Date:                  referenceTime.AddDate(0, 0, int(idx)),
		StartTime:             "14:00",
		EndTime:               "18:00",
		RequiredResourceCount: 2,
		CreatedAt:             created,
		UpdatedAt:             created,
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(e *staffing.Event) {
		e.ID = id
	}
}

// WithEventTitle overrides the generated title.
func WithEventTitle(title string) EventOption {
	return func(e *staffing.Event) {
		e.Title = title
	}
}

// WithEventDate sets the calendar date.
func WithEventDate(date time.Time) EventOption {
	return func(e *staffing.Event) {
		e.Date = date
	}
}

// WithEventTimes sets the clock window. Pass an empty end for the default
// duration, or two empty strings for an event with no clock position.
func WithEventTimes(start, end string) EventOption {
	return func(e *staffing.Event) {
		e.StartTime = start
		e.EndTime = end
	}
}

// WithRequiredResourceCount sets the confirmed quota.
func WithRequiredResourceCount(count int) EventOption {
	return func(e *staffing.Event) {
		e.RequiredResourceCount = count
	}
}

// WithAssignments sets the assignment list.
func WithAssignments(assignments ...staffing.Assignment) EventOption {
	return func(e *staffing.Event) {
		e.Assignments = assignments
	}
}

// --------------------------- Resource fixtures ----------------------------

// ResourceOption configures the generated resource fixture.
type ResourceOption func(*staffing.Resource)

// NewResourceFixture returns a deterministic staff member fixture with
// optional overrides.
func NewResourceFixture(opts ...ResourceOption) staffing.Resource {
	idx := atomic.AddUint64(&resourceCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	resource := staffing.Resource{
		ID:        fmt.Sprintf("resource-%03d", idx),
		Name:      fmt.Sprintf("Staff Member %03d", idx),
		Available: true,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&resource)
	}
	return resource
}

// WithResourceID overrides the generated resource ID.
func WithResourceID(id string) ResourceOption {
	return func(r *staffing.Resource) {
		r.ID = id
	}
}

// WithResourceName overrides the generated name.
func WithResourceName(name string) ResourceOption {
	return func(r *staffing.Resource) {
		r.Name = name
	}
}

// WithResourceAvailable sets the availability flag.
func WithResourceAvailable(available bool) ResourceOption {
	return func(r *staffing.Resource) {
		r.Available = available
	}
}

// --------------------------- Assignment fixtures --------------------------

// NewAssignment returns an assignment entry for the given resource in the
// given state, stamped with the reference time.
func NewAssignment(resource staffing.Resource, status staffing.Status) staffing.Assignment {
	return staffing.Assignment{
		ResourceID:   resource.ID,
		ResourceName: resource.Name,
		Status:       status,
		AssignedAt:   referenceTime,
	}
}
