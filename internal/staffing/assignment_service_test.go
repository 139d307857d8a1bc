package staffing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/floral-staffing/internal/persistence"
)

var testNow = time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)

type eventRepoStub struct {
	events    map[string]Event
	getErr    error
	listErr   error
	updateErr error
	updates   []EventUpdate
}

func newEventRepoStub(events ...Event) *eventRepoStub {
	stub := &eventRepoStub{events: make(map[string]Event)}
	for _, event := range events {
		stub.events[event.ID] = event
	}
	return stub
}

func (s *eventRepoStub) GetEvent(ctx context.Context, id string) (Event, error) {
	if s.getErr != nil {
		return Event{}, s.getErr
	}
	event, ok := s.events[id]
	if !ok {
		return Event{}, persistence.ErrNotFound
	}
	event.Assignments = cloneAssignments(event.Assignments)
	return event, nil
}

func (s *eventRepoStub) UpdateEvent(ctx context.Context, id string, update EventUpdate) error {
	s.updates = append(s.updates, update)
	if s.updateErr != nil {
		return s.updateErr
	}
	event, ok := s.events[id]
	if !ok {
		return persistence.ErrNotFound
	}
	event.Assignments = cloneAssignments(update.Assignments)
	if update.RequiredResourceCount != nil {
		event.RequiredResourceCount = *update.RequiredResourceCount
	}
	event.UpdatedAt = update.UpdatedAt
	s.events[id] = event
	return nil
}

func (s *eventRepoStub) ListEvents(ctx context.Context) ([]Event, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]Event, 0, len(s.events))
	for _, event := range s.events {
		event.Assignments = cloneAssignments(event.Assignments)
		out = append(out, event)
	}
	return out, nil
}

type directoryStub struct {
	resources map[string]Resource
	err       error
}

func newDirectoryStub(resources ...Resource) *directoryStub {
	stub := &directoryStub{resources: make(map[string]Resource)}
	for _, resource := range resources {
		stub.resources[resource.ID] = resource
	}
	return stub
}

func (s *directoryStub) GetResource(ctx context.Context, id string) (Resource, error) {
	if s.err != nil {
		return Resource{}, s.err
	}
	resource, ok := s.resources[id]
	if !ok {
		return Resource{}, persistence.ErrNotFound
	}
	return resource, nil
}

type publishRecord struct {
	eventID     string
	assignments []Assignment
	originID    string
}

type busStub struct {
	published []publishRecord
	latest    map[string][]Assignment
}

func newBusStub() *busStub {
	return &busStub{latest: make(map[string][]Assignment)}
}

func (b *busStub) Publish(eventID string, assignments []Assignment, originID string) {
	b.published = append(b.published, publishRecord{eventID: eventID, assignments: assignments, originID: originID})
	b.latest[eventID] = assignments
}

func (b *busStub) Latest(eventID string) ([]Assignment, bool) {
	snapshot, ok := b.latest[eventID]
	return snapshot, ok
}

func testResources() []Resource {
	return []Resource{
		{ID: "r-a", Name: "Claire Dubois", Available: true},
		{ID: "r-b", Name: "Marc Petit", Available: true},
		{ID: "r-c", Name: "Anne Laurent", Available: true},
	}
}

func testEvent(required int, assignments ...Assignment) Event {
	return Event{
		ID:                    "e1",
		Title:                 "Spring Gala",
		Date:                  time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
		StartTime:             "14:00",
		EndTime:               "18:00",
		RequiredResourceCount: required,
		Assignments:           assignments,
	}
}

func newTestService(repo *eventRepoStub, bus Broadcaster) *AssignmentService {
	return NewAssignmentService(repo, newDirectoryStub(testResources()...), bus, func() time.Time { return testNow })
}

func pendingAssignment(resourceID, name string) Assignment {
	return Assignment{ResourceID: resourceID, ResourceName: name, Status: StatusPending, AssignedAt: testNow}
}

func assertQuotaInvariant(t *testing.T, event Event) {
	t.Helper()
	// Tolerated exception: quota lowered below an existing confirmed count.
	if event.ConfirmedCount() > event.RequiredResourceCount {
		t.Fatalf("confirmed count %d exceeds quota %d", event.ConfirmedCount(), event.RequiredResourceCount)
	}
}

func assertNoDuplicateResources(t *testing.T, event Event) {
	t.Helper()
	seen := make(map[string]bool)
	for _, a := range event.Assignments {
		if seen[a.ResourceID] {
			t.Fatalf("resource %s assigned twice", a.ResourceID)
		}
		seen[a.ResourceID] = true
	}
}

func TestAddResourceCreatesPendingAssignment(t *testing.T) {
	repo := newEventRepoStub(testEvent(2))
	svc := newTestService(repo, nil)

	result, err := svc.AddResource(context.Background(), AddResourceParams{EventID: "e1", ResourceID: "r-a"})
	if err != nil {
		t.Fatalf("AddResource returned error: %v", err)
	}

	if !result.Applied {
		t.Fatal("expected mutation to be applied")
	}
	if result.Primary.To != StatusPending {
		t.Fatalf("expected transition to pending, got %q", result.Primary.To)
	}

	assignment := result.Event.Assignments[0]
	if assignment.ResourceName != "Claire Dubois" {
		t.Fatalf("expected denormalized name, got %q", assignment.ResourceName)
	}
	if !assignment.AssignedAt.Equal(testNow) {
		t.Fatalf("expected assignedAt %v, got %v", testNow, assignment.AssignedAt)
	}
	assertNoDuplicateResources(t, result.Event)
}

func TestAddResourceUnknownResource(t *testing.T) {
	repo := newEventRepoStub(testEvent(2))
	svc := newTestService(repo, nil)

	_, err := svc.AddResource(context.Background(), AddResourceParams{EventID: "e1", ResourceID: "r-ghost"})
	if !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("expected ErrUnknownResource, got %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatal("no write should happen for an unknown resource")
	}
}

func TestAddResourceRejectsDuplicate(t *testing.T) {
	repo := newEventRepoStub(testEvent(2, pendingAssignment("r-a", "Claire Dubois")))
	svc := newTestService(repo, nil)

	_, err := svc.AddResource(context.Background(), AddResourceParams{EventID: "e1", ResourceID: "r-a"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestAddResourceEventNotFound(t *testing.T) {
	svc := newTestService(newEventRepoStub(), nil)

	_, err := svc.AddResource(context.Background(), AddResourceParams{EventID: "missing", ResourceID: "r-a"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Scenario: both slots filled with nobody left pending, so no side effects.
func TestConfirmUpToQuotaWithoutPendingLeftovers(t *testing.T) {
	repo := newEventRepoStub(testEvent(2,
		pendingAssignment("r-a", "Claire Dubois"),
		pendingAssignment("r-b", "Marc Petit"),
	))
	svc := newTestService(repo, nil)

	first, err := svc.Confirm(context.Background(), ConfirmParams{EventID: "e1", ResourceID: "r-a"})
	if err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
	if len(first.SideEffects) != 0 {
		t.Fatalf("first confirm must not trigger side effects, got %d", len(first.SideEffects))
	}

	second, err := svc.Confirm(context.Background(), ConfirmParams{EventID: "e1", ResourceID: "r-b"})
	if err != nil {
		t.Fatalf("second confirm failed: %v", err)
	}
	if len(second.SideEffects) != 0 {
		t.Fatalf("no one was left pending, expected no side effects, got %+v", second.SideEffects)
	}

	if second.Event.ConfirmedCount() != 2 {
		t.Fatalf("expected 2 confirmed, got %d", second.Event.ConfirmedCount())
	}
	assertQuotaInvariant(t, second.Event)
}

// Scenario: reaching the quota auto-transitions the remaining pending
// assignment and generates its message.
func TestConfirmTriggersBatchAutoComplete(t *testing.T) {
	repo := newEventRepoStub(testEvent(2,
		pendingAssignment("r-a", "Claire Dubois"),
		pendingAssignment("r-b", "Marc Petit"),
		pendingAssignment("r-c", "Anne Laurent"),
	))
	svc := newTestService(repo, nil)

	if _, err := svc.Confirm(context.Background(), ConfirmParams{EventID: "e1", ResourceID: "r-a"}); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}

	result, err := svc.Confirm(context.Background(), ConfirmParams{EventID: "e1", ResourceID: "r-b"})
	if err != nil {
		t.Fatalf("second confirm failed: %v", err)
	}

	if result.Primary.To != StatusConfirmed {
		t.Fatalf("unexpected primary transition: %+v", result.Primary)
	}
	if len(result.SideEffects) != 1 {
		t.Fatalf("expected exactly 1 side effect, got %d", len(result.SideEffects))
	}

	side := result.SideEffects[0]
	if side.ResourceID != "r-c" || side.From != StatusPending || side.To != StatusNotSelected {
		t.Fatalf("unexpected side effect: %+v", side)
	}
	if !strings.Contains(side.Message, "Anne") || !strings.Contains(side.Message, "Spring Gala") {
		t.Fatalf("generated message missing first name or title: %q", side.Message)
	}

	// Zero pending immediately after the batch.
	for _, a := range result.Event.Assignments {
		if a.Status == StatusPending {
			t.Fatalf("assignment %s still pending after auto-complete", a.ResourceID)
		}
	}

	idx := result.Event.FindAssignment("r-c")
	if got := result.Event.Assignments[idx].GeneratedMessage; got != side.Message {
		t.Fatalf("stored message %q differs from reported message %q", got, side.Message)
	}
	assertQuotaInvariant(t, result.Event)
}

// Scenario: confirming past the quota fails and leaves the list untouched.
func TestConfirmQuotaExceeded(t *testing.T) {
	event := testEvent(2,
		Assignment{ResourceID: "r-a", ResourceName: "Claire Dubois", Status: StatusConfirmed, AssignedAt: testNow},
		Assignment{ResourceID: "r-b", ResourceName: "Marc Petit", Status: StatusConfirmed, AssignedAt: testNow},
		Assignment{ResourceID: "r-c", ResourceName: "Anne Laurent", Status: StatusNotSelected, AssignedAt: testNow},
	)
	repo := newEventRepoStub(event)
	svc := newTestService(repo, nil)

	_, err := svc.Confirm(context.Background(), ConfirmParams{EventID: "e1", ResourceID: "r-c"})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	stored, _ := repo.GetEvent(context.Background(), "e1")
	idx := stored.FindAssignment("r-c")
	if stored.Assignments[idx].Status != StatusNotSelected {
		t.Fatal("failed confirm must not mutate the assignment list")
	}
	if len(repo.updates) != 0 {
		t.Fatal("failed confirm must not write to the store")
	}
}

func TestForceConfirmStillEnforcesQuota(t *testing.T) {
	event := testEvent(1,
		Assignment{ResourceID: "r-a", ResourceName: "Claire Dubois", Status: StatusConfirmed, AssignedAt: testNow},
		pendingAssignment("r-b", "Marc Petit"),
	)
	svc := newTestService(newEventRepoStub(event), nil)

	_, err := svc.Confirm(context.Background(), ConfirmParams{EventID: "e1", ResourceID: "r-b", Force: true})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("force must not bypass the quota, got %v", err)
	}
}

// Scenario: a confirmed booking elsewhere on the same date holds the confirm
// until the caller forces it.
func TestConfirmHeldByConflictThenForced(t *testing.T) {
	e1 := Event{
		ID:                    "e1",
		Title:                 "Wedding Dubois",
		Date:                  time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
		StartTime:             "14:00",
		EndTime:               "16:00",
		RequiredResourceCount: 1,
		Assignments: []Assignment{
			{ResourceID: "r-a", ResourceName: "Claire Dubois", Status: StatusConfirmed, AssignedAt: testNow},
		},
	}
	e2 := Event{
		ID:                    "e2",
		Title:                 "Gala Rousseau",
		Date:                  time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
		StartTime:             "15:00",
		EndTime:               "17:00",
		RequiredResourceCount: 2,
		Assignments:           []Assignment{pendingAssignment("r-a", "Claire Dubois")},
	}
	repo := newEventRepoStub(e1, e2)
	svc := newTestService(repo, nil)

	held, err := svc.Confirm(context.Background(), ConfirmParams{EventID: "e2", ResourceID: "r-a"})
	if err != nil {
		t.Fatalf("held confirm returned error: %v", err)
	}
	if held.Applied {
		t.Fatal("conflicting confirm must be held, not applied")
	}
	if held.Conflicts == nil || !held.Conflicts.HasConflict {
		t.Fatal("expected a conflict report")
	}
	if len(held.Conflicts.Conflicting) != 1 || held.Conflicts.Conflicting[0].EventID != "e1" {
		t.Fatalf("expected conflict with e1, got %+v", held.Conflicts.Conflicting)
	}
	if len(repo.updates) != 0 {
		t.Fatal("held confirm must not write to the store")
	}

	forced, err := svc.Confirm(context.Background(), ConfirmParams{EventID: "e2", ResourceID: "r-a", Force: true})
	if err != nil {
		t.Fatalf("forced confirm failed: %v", err)
	}
	if !forced.Applied {
		t.Fatal("forced confirm must apply")
	}
	idx := forced.Event.FindAssignment("r-a")
	if forced.Event.Assignments[idx].Status != StatusConfirmed {
		t.Fatal("resource must be confirmed on e2 after force")
	}
}

func TestConfirmNoConflictOnTouchingBoundary(t *testing.T) {
	e1 := testEvent(1, Assignment{ResourceID: "r-a", ResourceName: "Claire Dubois", Status: StatusConfirmed, AssignedAt: testNow})
	e1.StartTime, e1.EndTime = "10:00", "11:00"
	e2 := testEvent(1, pendingAssignment("r-a", "Claire Dubois"))
	e2.ID = "e2"
	e2.StartTime, e2.EndTime = "11:00", "12:00"

	svc := newTestService(newEventRepoStub(e1, e2), nil)

	result, err := svc.Confirm(context.Background(), ConfirmParams{EventID: "e2", ResourceID: "r-a"})
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if !result.Applied {
		t.Fatalf("touching ranges must not hold the confirm: %+v", result.Conflicts)
	}
}

func TestRefuseAlwaysAllowed(t *testing.T) {
	event := testEvent(2,
		Assignment{ResourceID: "r-a", ResourceName: "Claire Dubois", Status: StatusConfirmed, AssignedAt: testNow},
	)
	svc := newTestService(newEventRepoStub(event), nil)

	result, err := svc.Refuse(context.Background(), RefuseParams{EventID: "e1", ResourceID: "r-a"})
	if err != nil {
		t.Fatalf("Refuse returned error: %v", err)
	}
	if result.Primary.From != StatusConfirmed || result.Primary.To != StatusRefused {
		t.Fatalf("unexpected transition: %+v", result.Primary)
	}
}

func TestRemoveDeletesAssignment(t *testing.T) {
	event := testEvent(2,
		pendingAssignment("r-a", "Claire Dubois"),
		pendingAssignment("r-b", "Marc Petit"),
	)
	svc := newTestService(newEventRepoStub(event), nil)

	result, err := svc.Remove(context.Background(), RemoveParams{EventID: "e1", ResourceID: "r-a"})
	if err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if len(result.Event.Assignments) != 1 || result.Event.Assignments[0].ResourceID != "r-b" {
		t.Fatalf("unexpected assignments after removal: %+v", result.Event.Assignments)
	}

	if _, err := svc.Remove(context.Background(), RemoveParams{EventID: "e1", ResourceID: "r-a"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("removing a missing assignment should report not found, got %v", err)
	}
}

// Stores interpret a nil assignment list as "leave unchanged", so removing
// the last assignment must write an empty list, never nil.
func TestRemoveLastAssignmentWritesEmptyList(t *testing.T) {
	repo := newEventRepoStub(testEvent(2, pendingAssignment("r-a", "Claire Dubois")))
	svc := newTestService(repo, nil)

	result, err := svc.Remove(context.Background(), RemoveParams{EventID: "e1", ResourceID: "r-a"})
	if err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if result.PersistenceErr != nil {
		t.Fatalf("unexpected persistence error: %v", result.PersistenceErr)
	}

	if len(repo.updates) != 1 {
		t.Fatalf("expected one store write, got %d", len(repo.updates))
	}
	if repo.updates[0].Assignments == nil {
		t.Fatal("expected an empty assignment list in the store write, got nil")
	}
	if len(repo.updates[0].Assignments) != 0 {
		t.Fatalf("expected no assignments in the store write, got %+v", repo.updates[0].Assignments)
	}
	if len(repo.events["e1"].Assignments) != 0 {
		t.Fatalf("store still holds assignments after removing the last one: %+v", repo.events["e1"].Assignments)
	}
}

// The auto-complete rule fires again when the quota is re-reached after a
// removal freed a slot.
func TestAutoCompleteFiresAgainAfterRemoval(t *testing.T) {
	repo := newEventRepoStub(testEvent(1,
		pendingAssignment("r-a", "Claire Dubois"),
		pendingAssignment("r-b", "Marc Petit"),
	))
	svc := newTestService(repo, nil)
	ctx := context.Background()

	first, err := svc.Confirm(ctx, ConfirmParams{EventID: "e1", ResourceID: "r-a"})
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if len(first.SideEffects) != 1 || first.SideEffects[0].ResourceID != "r-b" {
		t.Fatalf("expected r-b to be auto-closed, got %+v", first.SideEffects)
	}

	if _, err := svc.Remove(ctx, RemoveParams{EventID: "e1", ResourceID: "r-a"}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	// Re-add a fresh pending candidate, then re-reach the threshold.
	if _, err := svc.AddResource(ctx, AddResourceParams{EventID: "e1", ResourceID: "r-a"}); err != nil {
		t.Fatalf("re-add failed: %v", err)
	}
	if _, err := svc.AddResource(ctx, AddResourceParams{EventID: "e1", ResourceID: "r-c"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	second, err := svc.Confirm(ctx, ConfirmParams{EventID: "e1", ResourceID: "r-a"})
	if err != nil {
		t.Fatalf("second confirm failed: %v", err)
	}
	if len(second.SideEffects) != 1 || second.SideEffects[0].ResourceID != "r-c" {
		t.Fatalf("expected the batch to fire again for r-c, got %+v", second.SideEffects)
	}
}

func TestNotSelectedRequiresExplicitReconfirmation(t *testing.T) {
	event := testEvent(2,
		Assignment{ResourceID: "r-a", ResourceName: "Claire Dubois", Status: StatusNotSelected, AssignedAt: testNow},
	)
	svc := newTestService(newEventRepoStub(event), nil)

	result, err := svc.Confirm(context.Background(), ConfirmParams{EventID: "e1", ResourceID: "r-a"})
	if err != nil {
		t.Fatalf("explicit confirm from not_selected must be allowed: %v", err)
	}
	if result.Primary.From != StatusNotSelected || result.Primary.To != StatusConfirmed {
		t.Fatalf("unexpected transition: %+v", result.Primary)
	}
}

func TestSetRequiredCountDoesNotRerunAutoComplete(t *testing.T) {
	event := testEvent(3,
		Assignment{ResourceID: "r-a", ResourceName: "Claire Dubois", Status: StatusConfirmed, AssignedAt: testNow},
		pendingAssignment("r-b", "Marc Petit"),
	)
	repo := newEventRepoStub(event)
	svc := newTestService(repo, nil)
	ctx := context.Background()

	// Lowering the quota to the current confirmed count must not close the
	// pending assignment retroactively.
	result, err := svc.SetRequiredCount(ctx, SetRequiredCountParams{EventID: "e1", Required: 1})
	if err != nil {
		t.Fatalf("SetRequiredCount returned error: %v", err)
	}
	if len(result.SideEffects) != 0 {
		t.Fatalf("quota change must not trigger the batch, got %+v", result.SideEffects)
	}
	idx := result.Event.FindAssignment("r-b")
	if result.Event.Assignments[idx].Status != StatusPending {
		t.Fatal("pending assignment must survive a quota change")
	}

	// The new cap only takes effect on the next confirm.
	if _, err := svc.Confirm(ctx, ConfirmParams{EventID: "e1", ResourceID: "r-b"}); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded under the new cap, got %v", err)
	}
}

func TestSetRequiredCountToleratesOverQuota(t *testing.T) {
	event := testEvent(2,
		Assignment{ResourceID: "r-a", ResourceName: "Claire Dubois", Status: StatusConfirmed, AssignedAt: testNow},
		Assignment{ResourceID: "r-b", ResourceName: "Marc Petit", Status: StatusConfirmed, AssignedAt: testNow},
	)
	svc := newTestService(newEventRepoStub(event), nil)

	result, err := svc.SetRequiredCount(context.Background(), SetRequiredCountParams{EventID: "e1", Required: 1})
	if err != nil {
		t.Fatalf("SetRequiredCount returned error: %v", err)
	}

	// No automatic demotion: both stay confirmed even though the cap is 1.
	if result.Event.ConfirmedCount() != 2 {
		t.Fatalf("expected over-quota state to be tolerated, got %d confirmed", result.Event.ConfirmedCount())
	}
}

func TestSetRequiredCountValidation(t *testing.T) {
	svc := newTestService(newEventRepoStub(testEvent(2)), nil)

	_, err := svc.SetRequiredCount(context.Background(), SetRequiredCountParams{EventID: "e1", Required: 0})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestPersistenceFailureIsReportedNotRolledBack(t *testing.T) {
	repo := newEventRepoStub(testEvent(2, pendingAssignment("r-a", "Claire Dubois")))
	repo.updateErr = errors.New("disk full")
	bus := newBusStub()
	svc := newTestService(repo, bus)

	result, err := svc.Confirm(context.Background(), ConfirmParams{EventID: "e1", ResourceID: "r-a"})
	if err != nil {
		t.Fatalf("local mutation must succeed: %v", err)
	}
	if !result.Applied {
		t.Fatal("mutation must be applied locally")
	}

	var pErr *PersistenceError
	if !errors.As(result.PersistenceErr, &pErr) {
		t.Fatalf("expected PersistenceError, got %v", result.PersistenceErr)
	}
	if pErr.EventID != "e1" {
		t.Fatalf("unexpected event id on persistence error: %q", pErr.EventID)
	}

	// The broadcast happened before the failed write.
	if len(bus.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(bus.published))
	}
	if bus.published[0].assignments[0].Status != StatusConfirmed {
		t.Fatal("broadcast snapshot must carry the committed state")
	}
}

func TestMutationsPublishToBusWithOrigin(t *testing.T) {
	repo := newEventRepoStub(testEvent(2))
	bus := newBusStub()
	svc := newTestService(repo, bus)

	if _, err := svc.AddResource(context.Background(), AddResourceParams{EventID: "e1", ResourceID: "r-a", OriginID: "modal-1"}); err != nil {
		t.Fatalf("AddResource returned error: %v", err)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(bus.published))
	}
	if bus.published[0].originID != "modal-1" {
		t.Fatalf("expected origin modal-1, got %q", bus.published[0].originID)
	}
}

func TestMutationsReadLatestBusSnapshot(t *testing.T) {
	// The store still carries an outdated list; the bus has the committed one.
	repo := newEventRepoStub(testEvent(2))
	bus := newBusStub()
	bus.latest["e1"] = []Assignment{pendingAssignment("r-a", "Claire Dubois")}
	svc := newTestService(repo, bus)

	result, err := svc.Confirm(context.Background(), ConfirmParams{EventID: "e1", ResourceID: "r-a"})
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if result.Primary.From != StatusPending || result.Primary.To != StatusConfirmed {
		t.Fatalf("mutation did not observe the bus snapshot: %+v", result.Primary)
	}
}

func TestAssignmentsPrefersBusSnapshot(t *testing.T) {
	repo := newEventRepoStub(testEvent(2, pendingAssignment("r-a", "Claire Dubois")))
	bus := newBusStub()
	svc := newTestService(repo, bus)
	ctx := context.Background()

	// Before any publish, the store is authoritative.
	fromStore, err := svc.Assignments(ctx, "e1")
	if err != nil {
		t.Fatalf("Assignments returned error: %v", err)
	}
	if len(fromStore) != 1 || fromStore[0].Status != StatusPending {
		t.Fatalf("unexpected stored assignments: %+v", fromStore)
	}

	bus.latest["e1"] = []Assignment{
		{ResourceID: "r-a", ResourceName: "Claire Dubois", Status: StatusConfirmed, AssignedAt: testNow},
	}

	fromBus, err := svc.Assignments(ctx, "e1")
	if err != nil {
		t.Fatalf("Assignments returned error: %v", err)
	}
	if fromBus[0].Status != StatusConfirmed {
		t.Fatalf("expected the bus snapshot, got %+v", fromBus)
	}
}

func TestCheckConflictsIsIdempotent(t *testing.T) {
	e1 := testEvent(1, Assignment{ResourceID: "r-a", ResourceName: "Claire Dubois", Status: StatusConfirmed, AssignedAt: testNow})
	e2 := testEvent(1, pendingAssignment("r-a", "Claire Dubois"))
	e2.ID = "e2"
	e2.StartTime, e2.EndTime = "15:00", "19:00"
	svc := newTestService(newEventRepoStub(e1, e2), nil)
	ctx := context.Background()

	first, err := svc.CheckConflicts(ctx, "e2", "r-a")
	if err != nil {
		t.Fatalf("CheckConflicts returned error: %v", err)
	}
	second, err := svc.CheckConflicts(ctx, "e2", "r-a")
	if err != nil {
		t.Fatalf("CheckConflicts returned error: %v", err)
	}

	if first.HasConflict != second.HasConflict || len(first.Conflicting) != len(second.Conflicting) {
		t.Fatalf("repeated scans diverged: %+v vs %+v", first, second)
	}
	if !first.HasConflict {
		t.Fatal("expected a conflict between overlapping events")
	}
}

func TestConfirmAbortsWhenConflictScanFails(t *testing.T) {
	repo := newEventRepoStub(testEvent(2, pendingAssignment("r-a", "Claire Dubois")))
	repo.listErr = errors.New("store unavailable")
	svc := newTestService(repo, nil)

	_, err := svc.Confirm(context.Background(), ConfirmParams{EventID: "e1", ResourceID: "r-a"})
	if err == nil {
		t.Fatal("expected error when the advisory scan cannot run")
	}
	if len(repo.updates) != 0 {
		t.Fatal("no write should happen when the scan fails")
	}

	// Force skips the scan entirely and still succeeds.
	result, err := svc.Confirm(context.Background(), ConfirmParams{EventID: "e1", ResourceID: "r-a", Force: true})
	if err != nil {
		t.Fatalf("forced confirm must not depend on the scan: %v", err)
	}
	if !result.Applied {
		t.Fatal("forced confirm must apply")
	}
}

func TestCheckConflictsIgnoresNonConfirmedBookings(t *testing.T) {
	e1 := testEvent(1, pendingAssignment("r-a", "Claire Dubois"))
	e2 := testEvent(1, pendingAssignment("r-a", "Claire Dubois"))
	e2.ID = "e2"
	svc := newTestService(newEventRepoStub(e1, e2), nil)

	report, err := svc.CheckConflicts(context.Background(), "e2", "r-a")
	if err != nil {
		t.Fatalf("CheckConflicts returned error: %v", err)
	}
	if report.HasConflict {
		t.Fatalf("pending bookings must not count as conflicts: %+v", report)
	}
}
