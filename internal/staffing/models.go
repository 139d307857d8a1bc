package staffing

import "time"

// Status tracks one resource's position in the assignment workflow. It is the
// single source of truth; no parallel boolean flags are stored.
type Status string

const (
	// StatusPending marks a resource that was added but has not answered yet.
	StatusPending Status = "pending"
	// StatusConfirmed marks a resource that holds one of the quota slots.
	StatusConfirmed Status = "confirmed"
	// StatusRefused marks a resource that declined the event.
	StatusRefused Status = "refused"
	// StatusNotSelected marks a resource closed out by the auto-complete rule.
	StatusNotSelected Status = "not_selected"
)

// Valid reports whether the status is one of the workflow states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusRefused, StatusNotSelected:
		return true
	}
	return false
}

// Assignment is one resource's relationship to one event.
type Assignment struct {
	ResourceID       string
	ResourceName     string
	Status           Status
	AssignedAt       time.Time
	GeneratedMessage string
}

// Event is the scheduling unit owned by the assignment workflow. StartTime
// and EndTime are local "HH:MM" strings; an empty EndTime means the event
// runs for the default duration, an empty StartTime means the event has no
// clock position at all.
type Event struct {
	ID                    string
	Title                 string
	Date                  time.Time
	StartTime             string
	EndTime               string
	RequiredResourceCount int
	Assignments           []Assignment
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ConfirmedCount returns the number of assignments holding a quota slot.
func (e Event) ConfirmedCount() int {
	count := 0
	for _, a := range e.Assignments {
		if a.Status == StatusConfirmed {
			count++
		}
	}
	return count
}

// FindAssignment returns the index of the assignment for the given resource,
// or -1 when the resource is not assigned.
func (e Event) FindAssignment(resourceID string) int {
	for i, a := range e.Assignments {
		if a.ResourceID == resourceID {
			return i
		}
	}
	return -1
}

// Resource is a staff member as seen by the workflow: lookup only, the
// directory owns its lifecycle.
type Resource struct {
	ID        string
	Name      string
	Phone     string
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transition records a single status change applied to one assignment.
type Transition struct {
	ResourceID string
	From       Status
	To         Status
	Message    string
}

// MutationResult reports the outcome of one state-machine operation. Primary
// is the transition the caller asked for; SideEffects lists the batch
// auto-complete transitions that rode along in the same commit.
type MutationResult struct {
	Event          Event
	Applied        bool
	Primary        Transition
	SideEffects    []Transition
	Conflicts      *ConflictReport
	PersistenceErr error
}

// ConflictReport is the advisory result of a double-booking scan.
type ConflictReport struct {
	HasConflict bool
	Conflicting []ConflictingEvent
}

// ConflictingEvent identifies an event that overlaps the candidate booking.
type ConflictingEvent struct {
	EventID    string
	EventTitle string
	Date       time.Time
	StartTime  string
	EndTime    string
}

// AddResourceParams wraps the data required to add a resource to an event.
type AddResourceParams struct {
	EventID    string
	ResourceID string
	OriginID   string
}

// ConfirmParams wraps the data required to confirm a resource. Force
// acknowledges a previously reported conflict; it never bypasses the quota.
type ConfirmParams struct {
	EventID    string
	ResourceID string
	Force      bool
	OriginID   string
}

// RefuseParams wraps the data required to refuse a resource.
type RefuseParams struct {
	EventID    string
	ResourceID string
	OriginID   string
}

// RemoveParams wraps the data required to remove an assignment entirely.
type RemoveParams struct {
	EventID    string
	ResourceID string
	OriginID   string
}

// SetRequiredCountParams wraps the data required to change an event's quota.
type SetRequiredCountParams struct {
	EventID  string
	Required int
	OriginID string
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Title                 string
	Date                  time.Time
	StartTime             string
	EndTime               string
	RequiredResourceCount int
}

// ResourceInput captures caller provided resource fields.
type ResourceInput struct {
	Name      string
	Phone     string
	Available bool
}
