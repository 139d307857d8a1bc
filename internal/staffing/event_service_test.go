package staffing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/floral-staffing/internal/persistence"
)

type eventStoreStub struct {
	*eventRepoStub
	created   []Event
	createErr error
	deleteErr error
}

func newEventStoreStub(events ...Event) *eventStoreStub {
	return &eventStoreStub{eventRepoStub: newEventRepoStub(events...)}
}

func (s *eventStoreStub) CreateEvent(ctx context.Context, event Event) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, event)
	s.events[event.ID] = event
	return nil
}

func (s *eventStoreStub) DeleteEvent(ctx context.Context, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.events[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func newTestEventService(store *eventStoreStub) *EventService {
	counter := 0
	idGen := func() string {
		counter++
		return fmt.Sprintf("event-%d", counter)
	}
	return NewEventService(store, idGen, func() time.Time { return testNow })
}

func validEventInput() EventInput {
	return EventInput{
		Title:                 "Spring Gala",
		Date:                  time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
		StartTime:             "14:00",
		EndTime:               "18:00",
		RequiredResourceCount: 2,
	}
}

func TestCreateEventStartsWithEmptyAssignments(t *testing.T) {
	store := newEventStoreStub()
	svc := newTestEventService(store)

	event, err := svc.CreateEvent(context.Background(), validEventInput())
	if err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}

	if event.ID != "event-1" {
		t.Fatalf("expected generated id, got %q", event.ID)
	}
	if len(event.Assignments) != 0 {
		t.Fatalf("new events must have no assignments, got %d", len(event.Assignments))
	}
	if !event.CreatedAt.Equal(testNow) || !event.UpdatedAt.Equal(testNow) {
		t.Fatalf("unexpected timestamps: %v / %v", event.CreatedAt, event.UpdatedAt)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected 1 persisted event, got %d", len(store.created))
	}
}

func TestCreateEventValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*EventInput)
		field  string
	}{
		{name: "missing title", mutate: func(in *EventInput) { in.Title = "  " }, field: "title"},
		{name: "missing date", mutate: func(in *EventInput) { in.Date = time.Time{} }, field: "date"},
		{name: "zero quota", mutate: func(in *EventInput) { in.RequiredResourceCount = 0 }, field: "required_resource_count"},
		{name: "bad clock value", mutate: func(in *EventInput) { in.StartTime = "25:00" }, field: "time"},
		{name: "end before start", mutate: func(in *EventInput) { in.StartTime = "18:00"; in.EndTime = "14:00" }, field: "time"},
		{name: "end without start", mutate: func(in *EventInput) { in.StartTime = ""; in.EndTime = "18:00" }, field: "start_time"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validEventInput()
			tc.mutate(&input)

			_, err := newTestEventService(newEventStoreStub()).CreateEvent(context.Background(), input)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Fatalf("expected error on field %q, got %v", tc.field, vErr.FieldErrors)
			}
		})
	}
}

func TestCreateEventAllowsMissingTimes(t *testing.T) {
	input := validEventInput()
	input.StartTime = ""
	input.EndTime = ""

	if _, err := newTestEventService(newEventStoreStub()).CreateEvent(context.Background(), input); err != nil {
		t.Fatalf("events without a clock position must be allowed: %v", err)
	}
}

func TestCreateEventAllowsDefaultDuration(t *testing.T) {
	input := validEventInput()
	input.EndTime = ""

	if _, err := newTestEventService(newEventStoreStub()).CreateEvent(context.Background(), input); err != nil {
		t.Fatalf("events with only a start time must be allowed: %v", err)
	}
}

func TestListEventsOrdersByDate(t *testing.T) {
	later := testEvent(1)
	later.ID = "e-later"
	later.Date = time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC)
	earlier := testEvent(1)
	earlier.ID = "e-earlier"
	earlier.Date = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	svc := newTestEventService(newEventStoreStub(later, earlier))

	events, err := svc.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(events) != 2 || events[0].ID != "e-earlier" || events[1].ID != "e-later" {
		t.Fatalf("unexpected ordering: %+v", events)
	}
}

func TestGetEventNotFound(t *testing.T) {
	svc := newTestEventService(newEventStoreStub())

	if _, err := svc.GetEvent(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteEvent(t *testing.T) {
	store := newEventStoreStub(testEvent(1))
	svc := newTestEventService(store)

	if err := svc.DeleteEvent(context.Background(), "e1"); err != nil {
		t.Fatalf("DeleteEvent returned error: %v", err)
	}
	if err := svc.DeleteEvent(context.Background(), "e1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

// The change hook lets the assignment workflow drop cached conflict reports
// that could otherwise keep naming a deleted event until they expire.
func TestEventWritesRunChangeHook(t *testing.T) {
	store := newEventStoreStub(testEvent(1))
	svc := newTestEventService(store)

	notified := 0
	svc.OnChange(func() { notified++ })

	if _, err := svc.CreateEvent(context.Background(), validEventInput()); err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}
	if notified != 1 {
		t.Fatalf("expected one notification after create, got %d", notified)
	}

	if err := svc.DeleteEvent(context.Background(), "e1"); err != nil {
		t.Fatalf("DeleteEvent returned error: %v", err)
	}
	if notified != 2 {
		t.Fatalf("expected a notification after delete, got %d", notified)
	}

	store.deleteErr = errors.New("boom")
	if err := svc.DeleteEvent(context.Background(), "event-1"); err == nil {
		t.Fatal("expected delete failure")
	}
	if notified != 2 {
		t.Fatalf("failed writes must not notify, got %d", notified)
	}
}

// A deleted event must stop appearing in advisory reports once the cache is
// invalidated, not only after the entry expires.
func TestInvalidateConflictCacheForcesRescan(t *testing.T) {
	conflicting := Event{
		ID:                    "e2",
		Title:                 "Chateau Reception",
		Date:                  time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
		StartTime:             "15:00",
		EndTime:               "17:00",
		RequiredResourceCount: 1,
		Assignments: []Assignment{
			{ResourceID: "r-a", ResourceName: "Claire Dubois", Status: StatusConfirmed, AssignedAt: testNow},
		},
	}
	repo := newEventRepoStub(testEvent(2, pendingAssignment("r-a", "Claire Dubois")), conflicting)
	svc := newTestService(repo, nil)

	report, err := svc.CheckConflicts(context.Background(), "e1", "r-a")
	if err != nil {
		t.Fatalf("CheckConflicts returned error: %v", err)
	}
	if !report.HasConflict {
		t.Fatal("expected a conflict before the deletion")
	}

	delete(repo.events, "e2")

	report, err = svc.CheckConflicts(context.Background(), "e1", "r-a")
	if err != nil {
		t.Fatalf("CheckConflicts returned error: %v", err)
	}
	if !report.HasConflict {
		t.Fatal("expected the cached report to still name the deleted event")
	}

	svc.InvalidateConflictCache()

	report, err = svc.CheckConflicts(context.Background(), "e1", "r-a")
	if err != nil {
		t.Fatalf("CheckConflicts returned error: %v", err)
	}
	if report.HasConflict {
		t.Fatalf("expected no conflict after invalidation, got %+v", report.Conflicting)
	}
}
