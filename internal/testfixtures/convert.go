package testfixtures

import (
	"github.com/example/floral-staffing/internal/persistence"
	"github.com/example/floral-staffing/internal/staffing"
)

func toPersistenceEvent(event staffing.Event) persistence.Event {
	return persistence.Event{
		ID:                    event.ID,
		Title:                 event.Title,
		Date:                  event.Date,
		StartTime:             optionalString(event.StartTime),
		EndTime:               optionalString(event.EndTime),
		RequiredResourceCount: event.RequiredResourceCount,
		Assignments:           toPersistenceAssignments(event.Assignments),
		CreatedAt:             event.CreatedAt,
		UpdatedAt:             event.UpdatedAt,
	}
}

func toPersistenceAssignments(assignments []staffing.Assignment) []persistence.Assignment {
	if len(assignments) == 0 {
		return nil
	}
	converted := make([]persistence.Assignment, 0, len(assignments))
	for _, a := range assignments {
		converted = append(converted, persistence.Assignment{
			ResourceID:       a.ResourceID,
			ResourceName:     a.ResourceName,
			Status:           string(a.Status),
			AssignedAt:       a.AssignedAt,
			GeneratedMessage: optionalString(a.GeneratedMessage),
		})
	}
	return converted
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
