// Package memory provides a map-backed persistence layer used by tests and
// by deployments that do not need durable storage.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/example/floral-staffing/internal/persistence"
)

// Storage keeps events and resources in process memory. All returned values
// are deep copies so callers can never mutate stored state.
type Storage struct {
	mu        sync.RWMutex
	events    map[string]persistence.Event
	resources map[string]persistence.Resource
}

// Open returns a new empty Storage.
func Open() *Storage {
	return &Storage{
		events:    make(map[string]persistence.Event),
		resources: make(map[string]persistence.Resource),
	}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// Migrate initialises the storage. No-op for the in-memory implementation.
func (s *Storage) Migrate(context.Context) error {
	return nil
}

// --- EventRepository implementation ---

// CreateEvent stores a new event with its assignment list.
func (s *Storage) CreateEvent(ctx context.Context, event persistence.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; ok {
		return fmt.Errorf("memory: event %s: %w", event.ID, persistence.ErrDuplicate)
	}

	s.events[event.ID] = cloneEvent(event)
	return nil
}

// GetEvent retrieves an event by ID.
func (s *Storage) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return persistence.Event{}, persistence.ErrNotFound
	}

	return cloneEvent(event), nil
}

// UpdateEvent applies a partial update to an existing event.
func (s *Storage) UpdateEvent(ctx context.Context, id string, update persistence.EventUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok {
		return persistence.ErrNotFound
	}

	if update.Assignments != nil {
		event.Assignments = cloneAssignments(update.Assignments)
	}
	if update.RequiredResourceCount != nil {
		if *update.RequiredResourceCount < 1 {
			return fmt.Errorf("memory: requiredResourceCount %d: %w", *update.RequiredResourceCount, persistence.ErrConstraintViolation)
		}
		event.RequiredResourceCount = *update.RequiredResourceCount
	}
	if !update.UpdatedAt.IsZero() {
		event.UpdatedAt = update.UpdatedAt
	}

	s.events[id] = event
	return nil
}

// ListEvents returns all events ordered by date ascending.
func (s *Storage) ListEvents(ctx context.Context) ([]persistence.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]persistence.Event, 0, len(s.events))
	for _, event := range s.events {
		events = append(events, cloneEvent(event))
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Date.Equal(events[j].Date) {
			return events[i].ID < events[j].ID
		}
		return events[i].Date.Before(events[j].Date)
	})

	return events, nil
}

// DeleteEvent removes an event by ID.
func (s *Storage) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.events, id)
	return nil
}

// --- ResourceRepository implementation ---

// CreateResource stores a new staff member.
func (s *Storage) CreateResource(ctx context.Context, resource persistence.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[resource.ID]; ok {
		return fmt.Errorf("memory: resource %s: %w", resource.ID, persistence.ErrDuplicate)
	}

	if err := s.ensureUniqueNameLocked(resource.ID, resource.Name); err != nil {
		return err
	}

	s.resources[resource.ID] = cloneResource(resource)
	return nil
}

// UpdateResource updates an existing staff member.
func (s *Storage) UpdateResource(ctx context.Context, resource persistence.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[resource.ID]; !ok {
		return persistence.ErrNotFound
	}

	if err := s.ensureUniqueNameLocked(resource.ID, resource.Name); err != nil {
		return err
	}

	s.resources[resource.ID] = cloneResource(resource)
	return nil
}

// GetResource retrieves a staff member by ID.
func (s *Storage) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resource, ok := s.resources[id]
	if !ok {
		return persistence.Resource{}, persistence.ErrNotFound
	}

	return cloneResource(resource), nil
}

// ListResources returns all staff members ordered by name.
func (s *Storage) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resources := make([]persistence.Resource, 0, len(s.resources))
	for _, resource := range s.resources {
		resources = append(resources, cloneResource(resource))
	}

	sort.Slice(resources, func(i, j int) bool {
		if resources[i].Name == resources[j].Name {
			return resources[i].ID < resources[j].ID
		}
		return resources[i].Name < resources[j].Name
	})

	return resources, nil
}

// DeleteResource removes a staff member by ID. Assignments referencing the
// resource keep their denormalized name so event history stays readable.
func (s *Storage) DeleteResource(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.resources, id)
	return nil
}

func (s *Storage) ensureUniqueNameLocked(id, name string) error {
	lower := strings.ToLower(name)
	for existingID, resource := range s.resources {
		if existingID == id {
			continue
		}
		if strings.ToLower(resource.Name) == lower {
			return fmt.Errorf("memory: resource name %q: %w", name, persistence.ErrDuplicate)
		}
	}
	return nil
}

// --- Helpers ---

func cloneEvent(event persistence.Event) persistence.Event {
	return persistence.Event{
		ID:                    event.ID,
		Title:                 event.Title,
		Date:                  event.Date,
		StartTime:             cloneStringPtr(event.StartTime),
		EndTime:               cloneStringPtr(event.EndTime),
		RequiredResourceCount: event.RequiredResourceCount,
		Assignments:           cloneAssignments(event.Assignments),
		CreatedAt:             event.CreatedAt,
		UpdatedAt:             event.UpdatedAt,
	}
}

func cloneAssignments(assignments []persistence.Assignment) []persistence.Assignment {
	if assignments == nil {
		return nil
	}
	out := make([]persistence.Assignment, len(assignments))
	for i, assignment := range assignments {
		assignment.GeneratedMessage = cloneStringPtr(assignment.GeneratedMessage)
		out[i] = assignment
	}
	return out
}

func cloneResource(resource persistence.Resource) persistence.Resource {
	return persistence.Resource{
		ID:        resource.ID,
		Name:      resource.Name,
		Phone:     cloneStringPtr(resource.Phone),
		Available: resource.Available,
		CreatedAt: resource.CreatedAt,
		UpdatedAt: resource.UpdatedAt,
	}
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
