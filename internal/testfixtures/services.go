package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/floral-staffing/internal/staffing"
)

// ServiceFactory builds staffing services with a deterministic clock and
// identifier sequence shared across everything it constructs, so a test can
// predict both timestamps and ids without threading them by hand.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a factory. Unset dependencies fall back to a
// clock at ReferenceTime and an "id-N" generator.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the factory clock.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the factory identifier sequence.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// AssignmentServiceDeps captures dependencies for constructing the assignment
// workflow service.
type AssignmentServiceDeps struct {
	Events    staffing.EventRepository
	Resources staffing.ResourceDirectory
	Bus       staffing.Broadcaster
	Now       func() time.Time
	Logger    *slog.Logger
}

// NewAssignmentService builds an assignment service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewAssignmentService(deps AssignmentServiceDeps) *staffing.AssignmentService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return staffing.NewAssignmentServiceWithLogger(
		deps.Events,
		deps.Resources,
		deps.Bus,
		now,
		deps.Logger,
	)
}

// EventServiceDeps captures dependencies for constructing an event service.
type EventServiceDeps struct {
	Events      staffing.EventStore
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewEventService builds an event service using the supplied dependencies.
func (f *ServiceFactory) NewEventService(deps EventServiceDeps) *staffing.EventService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return staffing.NewEventServiceWithLogger(
		deps.Events,
		idGen,
		now,
		deps.Logger,
	)
}

// ResourceServiceDeps captures dependencies for constructing a directory service.
type ResourceServiceDeps struct {
	Resources   staffing.ResourceStore
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewResourceService builds a resource service using the supplied dependencies.
func (f *ServiceFactory) NewResourceService(deps ResourceServiceDeps) *staffing.ResourceService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return staffing.NewResourceServiceWithLogger(
		deps.Resources,
		idGen,
		now,
		deps.Logger,
	)
}
