package staffing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/floral-staffing/internal/notification"
	"github.com/example/floral-staffing/internal/persistence"
	"github.com/example/floral-staffing/internal/scheduler"
)

// EventRepository captures the aggregate-store interactions needed by the
// assignment workflow. The store is the record of truth; the workflow writes
// through it after every committed mutation.
type EventRepository interface {
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, id string, update EventUpdate) error
	ListEvents(ctx context.Context) ([]Event, error)
}

// EventUpdate carries the partial fields written back after a mutation.
type EventUpdate struct {
	Assignments           []Assignment
	RequiredResourceCount *int
	UpdatedAt             time.Time
}

// ResourceDirectory exposes resource lookup operations. The directory is
// read-only from the workflow's perspective.
type ResourceDirectory interface {
	GetResource(ctx context.Context, id string) (Resource, error)
}

// Broadcaster distributes the latest assignment snapshot for an event to
// every open surface and answers "latest known" queries.
type Broadcaster interface {
	Publish(eventID string, assignments []Assignment, originID string)
	Latest(eventID string) ([]Assignment, bool)
}

// AssignmentService is the single entry point for assignment mutations. All
// mutations are serialized, which is what makes the batch auto-complete rule
// fire exactly once per threshold crossing.
type AssignmentService struct {
	mu        sync.Mutex
	events    EventRepository
	resources ResourceDirectory
	bus       Broadcaster
	cache     *conflictCache
	now       func() time.Time
	logger    *slog.Logger
}

// NewAssignmentService wires dependencies for the assignment workflow.
func NewAssignmentService(events EventRepository, resources ResourceDirectory, bus Broadcaster, now func() time.Time) *AssignmentService {
	return NewAssignmentServiceWithLogger(events, resources, bus, now, nil)
}

// NewAssignmentServiceWithLogger wires dependencies together with a base logger.
func NewAssignmentServiceWithLogger(events EventRepository, resources ResourceDirectory, bus Broadcaster, now func() time.Time, logger *slog.Logger) *AssignmentService {
	if now == nil {
		now = time.Now
	}
	return &AssignmentService{
		events:    events,
		resources: resources,
		bus:       bus,
		cache:     newConflictCache(0, 0, now),
		now:       now,
		logger:    defaultLogger(logger),
	}
}

// SetConflictCacheTTL adjusts the advisory-check cache lifetime and drops any
// cached reports. Zero or negative keeps the default.
func (s *AssignmentService) SetConflictCacheTTL(ttl time.Duration) {
	s.cache.setTTL(ttl)
}

// InvalidateConflictCache drops every cached advisory report. Collaborators
// that change events outside this service, deleting one for instance, call it
// so conflict checks do not keep reporting records that no longer exist.
func (s *AssignmentService) InvalidateConflictCache() {
	s.cache.Invalidate()
}

// AddResource creates a pending assignment for the resource. There is no cap
// on pending assignments, only on confirmed ones.
func (s *AssignmentService) AddResource(ctx context.Context, params AddResourceParams) (MutationResult, error) {
	if s == nil {
		return MutationResult{}, fmt.Errorf("AssignmentService is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := serviceLogger(ctx, s.logger, "assignment", "add_resource", "event_id", params.EventID, "resource_id", params.ResourceID)

	resource, err := s.lookupResource(ctx, params.ResourceID)
	if err != nil {
		return MutationResult{}, err
	}

	event, err := s.loadEvent(ctx, params.EventID)
	if err != nil {
		return MutationResult{}, err
	}

	if event.FindAssignment(params.ResourceID) >= 0 {
		vErr := &ValidationError{}
		vErr.add("resource_id", "resource is already assigned to this event")
		return MutationResult{}, vErr
	}

	event.Assignments = append(event.Assignments, Assignment{
		ResourceID:   resource.ID,
		ResourceName: resource.Name,
		Status:       StatusPending,
		AssignedAt:   s.now(),
	})

	result := MutationResult{
		Applied: true,
		Primary: Transition{ResourceID: resource.ID, To: StatusPending},
	}
	s.commit(ctx, logger, &event, &result, params.OriginID, nil)
	return result, nil
}

// Confirm moves an assignment into a quota slot. Non-forced confirms run the
// advisory conflict scan first; when conflicts exist the mutation is held and
// returned for the caller to acknowledge with Force. Force never bypasses the
// quota rule.
func (s *AssignmentService) Confirm(ctx context.Context, params ConfirmParams) (MutationResult, error) {
	if s == nil {
		return MutationResult{}, fmt.Errorf("AssignmentService is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := serviceLogger(ctx, s.logger, "assignment", "confirm", "event_id", params.EventID, "resource_id", params.ResourceID)

	event, err := s.loadEvent(ctx, params.EventID)
	if err != nil {
		return MutationResult{}, err
	}

	idx := event.FindAssignment(params.ResourceID)
	if idx < 0 {
		return MutationResult{}, ErrNotFound
	}

	current := event.Assignments[idx].Status
	if current == StatusConfirmed {
		vErr := &ValidationError{}
		vErr.add("resource_id", "resource is already confirmed")
		return MutationResult{}, vErr
	}

	if event.ConfirmedCount() >= event.RequiredResourceCount {
		return MutationResult{}, ErrQuotaExceeded
	}

	if !params.Force {
		report, err := s.scanConflicts(ctx, event, params.ResourceID)
		if err != nil {
			return MutationResult{}, err
		}
		if report.HasConflict {
			logger.InfoContext(ctx, "confirm held by advisory conflict", "conflicts", len(report.Conflicting))
			return MutationResult{Event: event, Conflicts: &report}, nil
		}
	}

	event.Assignments[idx].Status = StatusConfirmed
	result := MutationResult{
		Applied: true,
		Primary: Transition{ResourceID: params.ResourceID, From: current, To: StatusConfirmed},
	}

	if event.ConfirmedCount() == event.RequiredResourceCount {
		result.SideEffects = s.autoComplete(&event)
	}

	s.commit(ctx, logger, &event, &result, params.OriginID, nil)
	return result, nil
}

// Refuse marks an assignment as refused. Allowed from any status.
func (s *AssignmentService) Refuse(ctx context.Context, params RefuseParams) (MutationResult, error) {
	if s == nil {
		return MutationResult{}, fmt.Errorf("AssignmentService is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := serviceLogger(ctx, s.logger, "assignment", "refuse", "event_id", params.EventID, "resource_id", params.ResourceID)

	event, err := s.loadEvent(ctx, params.EventID)
	if err != nil {
		return MutationResult{}, err
	}

	idx := event.FindAssignment(params.ResourceID)
	if idx < 0 {
		return MutationResult{}, ErrNotFound
	}

	current := event.Assignments[idx].Status
	event.Assignments[idx].Status = StatusRefused

	result := MutationResult{
		Applied: true,
		Primary: Transition{ResourceID: params.ResourceID, From: current, To: StatusRefused},
	}
	s.commit(ctx, logger, &event, &result, params.OriginID, nil)
	return result, nil
}

// Remove deletes the assignment entry entirely. Always allowed.
func (s *AssignmentService) Remove(ctx context.Context, params RemoveParams) (MutationResult, error) {
	if s == nil {
		return MutationResult{}, fmt.Errorf("AssignmentService is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := serviceLogger(ctx, s.logger, "assignment", "remove", "event_id", params.EventID, "resource_id", params.ResourceID)

	event, err := s.loadEvent(ctx, params.EventID)
	if err != nil {
		return MutationResult{}, err
	}

	idx := event.FindAssignment(params.ResourceID)
	if idx < 0 {
		return MutationResult{}, ErrNotFound
	}

	current := event.Assignments[idx].Status
	event.Assignments = append(event.Assignments[:idx], event.Assignments[idx+1:]...)

	result := MutationResult{
		Applied: true,
		Primary: Transition{ResourceID: params.ResourceID, From: current},
	}
	s.commit(ctx, logger, &event, &result, params.OriginID, nil)
	return result, nil
}

// SetRequiredCount changes an event's confirmed quota. The change never
// re-runs the auto-complete rule and never demotes confirmed assignments; an
// over-quota state is tolerated until the next confirm attempt observes it.
func (s *AssignmentService) SetRequiredCount(ctx context.Context, params SetRequiredCountParams) (MutationResult, error) {
	if s == nil {
		return MutationResult{}, fmt.Errorf("AssignmentService is nil")
	}
	if params.Required < 1 {
		vErr := &ValidationError{}
		vErr.add("required_resource_count", "must be at least 1")
		return MutationResult{}, vErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := serviceLogger(ctx, s.logger, "assignment", "set_required_count", "event_id", params.EventID, "required", params.Required)

	event, err := s.loadEvent(ctx, params.EventID)
	if err != nil {
		return MutationResult{}, err
	}

	event.RequiredResourceCount = params.Required
	result := MutationResult{Applied: true}
	s.commit(ctx, logger, &event, &result, params.OriginID, &params.Required)
	return result, nil
}

// Assignments returns the latest known assignment list for an event: the most
// recent bus snapshot when one exists, otherwise the stored state.
func (s *AssignmentService) Assignments(ctx context.Context, eventID string) ([]Assignment, error) {
	if s == nil {
		return nil, fmt.Errorf("AssignmentService is nil")
	}
	if s.bus != nil {
		if snapshot, ok := s.bus.Latest(eventID); ok {
			return cloneAssignments(snapshot), nil
		}
	}
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, mapEventRepoError(err)
	}
	return cloneAssignments(event.Assignments), nil
}

// CheckConflicts runs the advisory double-booking scan for a resource on an
// event without mutating anything.
func (s *AssignmentService) CheckConflicts(ctx context.Context, eventID, resourceID string) (ConflictReport, error) {
	if s == nil {
		return ConflictReport{}, fmt.Errorf("AssignmentService is nil")
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return ConflictReport{}, err
	}
	return s.scanConflicts(ctx, event, resourceID)
}

// autoComplete flips every pending assignment to not_selected and attaches a
// generated message. It runs inside the same commit as the confirm that
// reached the quota, so no other mutation can interleave.
func (s *AssignmentService) autoComplete(event *Event) []Transition {
	var sideEffects []Transition
	for i := range event.Assignments {
		if event.Assignments[i].Status != StatusPending {
			continue
		}
		firstName := notification.FirstName(event.Assignments[i].ResourceName)
		message := notification.NotSelected(firstName, event.Title, event.Date)
		event.Assignments[i].Status = StatusNotSelected
		event.Assignments[i].GeneratedMessage = message
		sideEffects = append(sideEffects, Transition{
			ResourceID: event.Assignments[i].ResourceID,
			From:       StatusPending,
			To:         StatusNotSelected,
			Message:    message,
		})
	}
	return sideEffects
}

// commit applies the two-phase write: local commit and broadcast first, then
// the aggregate-store write. A store failure is reported on the result
// instead of rolling back the local state.
func (s *AssignmentService) commit(ctx context.Context, logger *slog.Logger, event *Event, result *MutationResult, originID string, requiredCount *int) {
	event.UpdatedAt = s.now()
	result.Event = *event

	if s.bus != nil {
		s.bus.Publish(event.ID, cloneAssignments(event.Assignments), originID)
	}
	s.cache.Invalidate()

	// The stores treat nil assignments as "leave unchanged", so an empty
	// list must stay non-nil or removing the last assignment never lands.
	assignments := cloneAssignments(event.Assignments)
	if assignments == nil {
		assignments = make([]Assignment, 0)
	}
	update := EventUpdate{
		Assignments:           assignments,
		RequiredResourceCount: requiredCount,
		UpdatedAt:             event.UpdatedAt,
	}
	if err := s.events.UpdateEvent(ctx, event.ID, update); err != nil {
		pErr := &PersistenceError{EventID: event.ID, Err: err}
		logger.WarnContext(ctx, "event write failed after local commit",
			"error", err,
			"error_kind", ErrorKind(pErr),
		)
		result.PersistenceErr = pErr
		return
	}

	logger.InfoContext(ctx, "assignment mutation committed",
		"confirmed", event.ConfirmedCount(),
		"assignments", len(event.Assignments),
	)
}

// loadEvent reads the stored event and overlays the most recent bus snapshot
// so a surface always mutates the latest known assignment list, even when an
// earlier store write is still outstanding or has failed.
func (s *AssignmentService) loadEvent(ctx context.Context, eventID string) (Event, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return Event{}, mapEventRepoError(err)
	}
	if s.bus != nil {
		if snapshot, ok := s.bus.Latest(eventID); ok {
			event.Assignments = cloneAssignments(snapshot)
		}
	}
	return event, nil
}

func (s *AssignmentService) lookupResource(ctx context.Context, resourceID string) (Resource, error) {
	if s.resources == nil {
		return Resource{}, ErrUnknownResource
	}
	resource, err := s.resources.GetResource(ctx, resourceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return Resource{}, ErrUnknownResource
		}
		return Resource{}, err
	}
	return resource, nil
}

func (s *AssignmentService) scanConflicts(ctx context.Context, event Event, resourceID string) (ConflictReport, error) {
	key := conflictCacheKey(resourceID, event.ID, event.Date)
	if report, ok := s.cache.Get(key); ok {
		return report, nil
	}

	all, err := s.events.ListEvents(ctx)
	if err != nil {
		return ConflictReport{}, fmt.Errorf("staffing: conflict scan failed: %w", err)
	}

	existing := make([]scheduler.Booking, 0, len(all))
	for _, other := range all {
		if other.ID == event.ID {
			continue
		}
		idx := other.FindAssignment(resourceID)
		if idx < 0 || other.Assignments[idx].Status != StatusConfirmed {
			continue
		}
		existing = append(existing, toBooking(other))
	}

	result := scheduler.DetectConflicts(existing, toBooking(event))
	report := toConflictReport(result)
	s.cache.Store(key, report)
	return report, nil
}

func toBooking(event Event) scheduler.Booking {
	return scheduler.Booking{
		EventID:    event.ID,
		EventTitle: event.Title,
		Date:       event.Date,
		Start:      event.StartTime,
		End:        event.EndTime,
	}
}

func toConflictReport(result scheduler.Result) ConflictReport {
	if !result.HasConflict {
		return ConflictReport{}
	}
	conflicting := make([]ConflictingEvent, 0, len(result.Conflicting))
	for _, booking := range result.Conflicting {
		conflicting = append(conflicting, ConflictingEvent{
			EventID:    booking.EventID,
			EventTitle: booking.EventTitle,
			Date:       booking.Date,
			StartTime:  booking.Start,
			EndTime:    booking.End,
		})
	}
	return ConflictReport{HasConflict: true, Conflicting: conflicting}
}

func cloneAssignments(assignments []Assignment) []Assignment {
	if len(assignments) == 0 {
		return nil
	}
	out := make([]Assignment, len(assignments))
	copy(out, assignments)
	return out
}

func mapEventRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
