package persistence

import "time"

// Assignment is the stored relationship between one resource and one event.
// The status string is the single source of truth for the workflow state.
type Assignment struct {
	ResourceID       string    `json:"resourceId"`
	ResourceName     string    `json:"resourceName"`
	Status           string    `json:"status"`
	AssignedAt       time.Time `json:"assignedAt"`
	GeneratedMessage *string   `json:"generatedMessage,omitempty"`
}

// Event represents a floral event stored in persistence. StartTime and
// EndTime are local "HH:MM" strings; an empty EndTime means the event runs
// for the default duration.
type Event struct {
	ID                    string
	Title                 string
	Date                  time.Time
	StartTime             *string
	EndTime               *string
	RequiredResourceCount int
	Assignments           []Assignment
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// EventUpdate carries the partial fields written back after a mutation.
type EventUpdate struct {
	Assignments           []Assignment
	RequiredResourceCount *int
	UpdatedAt             time.Time
}

// Resource represents a staff member in the directory.
type Resource struct {
	ID        string
	Name      string
	Phone     *string
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
