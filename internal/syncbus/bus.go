// Package syncbus keeps independent UI surfaces that observe the same event
// consistent within one process. It is a deliberately small publish/subscribe
// registry: publishes for one event are applied in call order, the latest
// snapshot always wins, and no merging between surfaces is attempted.
package syncbus

import (
	"sort"
	"sync"
	"time"

	"github.com/example/floral-staffing/internal/staffing"
)

// Update is delivered to every subscriber on each publish. Handlers filter by
// EventID (and, when they want to skip their own writes, by OriginID)
// themselves.
type Update struct {
	EventID     string
	Assignments []staffing.Assignment
	Timestamp   time.Time
	OriginID    string
}

// Handler receives updates for every event published on the bus.
type Handler func(Update)

// Bus is an injectable in-process snapshot registry. The zero value is not
// usable; construct instances with New and pass them to collaborators.
type Bus struct {
	mu       sync.RWMutex
	now      func() time.Time
	latest   map[string]Update
	handlers map[int]Handler
	nextID   int
}

// New constructs a Bus. A nil now falls back to time.Now.
func New(now func() time.Time) *Bus {
	if now == nil {
		now = time.Now
	}
	return &Bus{
		now:      now,
		latest:   make(map[string]Update),
		handlers: make(map[int]Handler),
	}
}

// Publish stores the assignments as the latest snapshot for the event and
// notifies every subscriber. Handlers run synchronously in subscription
// order, outside the registry lock so they may publish or query in turn.
func (b *Bus) Publish(eventID string, assignments []staffing.Assignment, originID string) {
	if b == nil || eventID == "" {
		return
	}

	update := Update{
		EventID:     eventID,
		Assignments: cloneAssignments(assignments),
		Timestamp:   b.now(),
		OriginID:    originID,
	}

	b.mu.Lock()
	b.latest[eventID] = update
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(Update{
			EventID:     update.EventID,
			Assignments: cloneAssignments(update.Assignments),
			Timestamp:   update.Timestamp,
			OriginID:    update.OriginID,
		})
	}
}

// Subscribe registers a handler for all future publishes and returns an
// unsubscribe function. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(handler Handler) func() {
	if b == nil || handler == nil {
		return func() {}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Latest returns the most recently published snapshot for the event, or
// false when nothing has been published yet (callers fall back to the
// aggregate store).
func (b *Bus) Latest(eventID string) ([]staffing.Assignment, bool) {
	if b == nil {
		return nil, false
	}
	b.mu.RLock()
	update, ok := b.latest[eventID]
	b.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return cloneAssignments(update.Assignments), true
}

// LatestUpdate returns the full snapshot record for the event, including its
// timestamp and originating surface.
func (b *Bus) LatestUpdate(eventID string) (Update, bool) {
	if b == nil {
		return Update{}, false
	}
	b.mu.RLock()
	update, ok := b.latest[eventID]
	b.mu.RUnlock()
	if !ok {
		return Update{}, false
	}
	update.Assignments = cloneAssignments(update.Assignments)
	return update, true
}

func cloneAssignments(assignments []staffing.Assignment) []staffing.Assignment {
	if len(assignments) == 0 {
		return nil
	}
	out := make([]staffing.Assignment, len(assignments))
	copy(out, assignments)
	return out
}
