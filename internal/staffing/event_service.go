package staffing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/floral-staffing/internal/timeslot"
)

// EventStore captures the persistence interactions needed by event CRUD.
type EventStore interface {
	EventRepository
	CreateEvent(ctx context.Context, event Event) error
	DeleteEvent(ctx context.Context, id string) error
}

// EventService manages event records. Assignment lists on events are owned by
// the AssignmentService; this service only creates and removes the records
// they live on.
type EventService struct {
	events      EventStore
	idGenerator func() string
	now         func() time.Time
	changed     func()
	logger      *slog.Logger
}

// NewEventService wires dependencies for event operations.
func NewEventService(events EventStore, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, idGenerator, now, nil)
}

// NewEventServiceWithLogger wires dependencies together with a base logger.
func NewEventServiceWithLogger(events EventStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// OnChange registers a hook invoked after every successful event write, so
// collaborating services can drop derived state such as cached conflict
// reports that may reference a deleted event.
func (s *EventService) OnChange(fn func()) {
	if s == nil {
		return
	}
	s.changed = fn
}

func (s *EventService) notifyChanged() {
	if s != nil && s.changed != nil {
		s.changed()
	}
}

// CreateEvent validates the input before delegating to persistence. Events
// are always created with an empty assignment list.
func (s *EventService) CreateEvent(ctx context.Context, input EventInput) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}

	vErr := &ValidationError{}
	validateEventCore(input, vErr)
	if vErr.HasErrors() {
		return Event{}, vErr
	}

	createdAt := s.now()
	event := Event{
		ID:                    s.idGenerator(),
		Title:                 strings.TrimSpace(input.Title),
		Date:                  input.Date,
		StartTime:             strings.TrimSpace(input.StartTime),
		EndTime:               strings.TrimSpace(input.EndTime),
		RequiredResourceCount: input.RequiredResourceCount,
		CreatedAt:             createdAt,
		UpdatedAt:             createdAt,
	}

	if s.events == nil {
		return event, nil
	}

	if err := s.events.CreateEvent(ctx, event); err != nil {
		return Event{}, mapEventRepoError(err)
	}

	logger := serviceLogger(ctx, s.logger, "event", "create", "event_id", event.ID)
	logger.InfoContext(ctx, "event created", "date", event.Date.Format(time.DateOnly))
	s.notifyChanged()

	return event, nil
}

// GetEvent returns a single event with its assignment list.
func (s *EventService) GetEvent(ctx context.Context, id string) (Event, error) {
	if s == nil || s.events == nil {
		return Event{}, fmt.Errorf("event repository not configured")
	}
	event, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	return event, nil
}

// ListEvents enumerates events ordered by date, then identifier.
func (s *EventService) ListEvents(ctx context.Context) ([]Event, error) {
	if s == nil || s.events == nil {
		return nil, fmt.Errorf("event repository not configured")
	}

	events, err := s.events.ListEvents(ctx)
	if err != nil {
		return nil, mapEventRepoError(err)
	}

	ordered := make([]Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Date.Before(ordered[j].Date)
	})

	return ordered, nil
}

// DeleteEvent removes an event record.
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	if s == nil || s.events == nil {
		return fmt.Errorf("event repository not configured")
	}
	if err := s.events.DeleteEvent(ctx, id); err != nil {
		return mapEventRepoError(err)
	}
	s.notifyChanged()
	return nil
}

func validateEventCore(input EventInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}

	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	}

	if input.RequiredResourceCount < 1 {
		vErr.add("required_resource_count", "must be at least 1")
	}

	start := strings.TrimSpace(input.StartTime)
	end := strings.TrimSpace(input.EndTime)

	if start == "" && end != "" {
		vErr.add("start_time", "start time is required when an end time is set")
		return
	}
	if start == "" {
		return
	}

	slot, err := timeslot.RangeOf(start, end)
	if err != nil {
		vErr.add("time", "times must be HH:MM clock values")
		return
	}
	if slot.Duration() <= 0 {
		vErr.add("time", "start must be before end")
	}
}
