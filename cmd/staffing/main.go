package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/floral-staffing/internal/config"
	httptransport "github.com/example/floral-staffing/internal/http"
	"github.com/example/floral-staffing/internal/persistence"
	"github.com/example/floral-staffing/internal/persistence/memory"
	"github.com/example/floral-staffing/internal/persistence/sqlite"
	"github.com/example/floral-staffing/internal/staffing"
	"github.com/example/floral-staffing/internal/syncbus"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	eventRepo, resourceRepo, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Error("failed to open storage", "error", err, "driver", cfg.StorageDriver)
		os.Exit(1)
	}
	defer func() {
		if cerr := closeStorage(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	idGenerator := uuid.NewString
	now := time.Now

	events := newEventRepositoryAdapter(eventRepo)
	resources := newResourceRepositoryAdapter(resourceRepo)
	bus := syncbus.New(now)

	assignmentService := staffing.NewAssignmentServiceWithLogger(events, resources, bus, now, logger)
	assignmentService.SetConflictCacheTTL(cfg.ConflictCacheTTL)
	eventService := staffing.NewEventServiceWithLogger(events, idGenerator, now, logger)
	eventService.OnChange(assignmentService.InvalidateConflictCache)
	resourceService := staffing.NewResourceServiceWithLogger(resources, idGenerator, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Events:      httptransport.NewEventHandler(eventService, logger),
		Assignments: httptransport.NewAssignmentHandler(assignmentService, logger),
		Resources:   httptransport.NewResourceHandler(resourceService, logger),
		Middleware:  []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("staffing API listening", "addr", server.Addr, "driver", cfg.StorageDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func openStorage(ctx context.Context, cfg config.Config) (persistence.EventRepository, persistence.ResourceRepository, func() error, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		store := memory.Open()
		return store, store, store.Close, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			cerr := store.Close()
			return nil, nil, nil, errors.Join(err, cerr)
		}
		return store.Events, store.Resources, store.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

type eventRepositoryAdapter struct {
	repo persistence.EventRepository
}

func newEventRepositoryAdapter(repo persistence.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event staffing.Event) error {
	return a.repo.CreateEvent(ctx, toPersistenceEvent(event))
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (staffing.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return staffing.Event{}, err
	}
	return toStaffingEvent(stored), nil
}

func (a *eventRepositoryAdapter) UpdateEvent(ctx context.Context, id string, update staffing.EventUpdate) error {
	persisted := persistence.EventUpdate{
		RequiredResourceCount: update.RequiredResourceCount,
		UpdatedAt:             update.UpdatedAt,
	}
	if update.Assignments != nil {
		persisted.Assignments = toPersistenceAssignments(update.Assignments)
	}
	return a.repo.UpdateEvent(ctx, id, persisted)
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context) ([]staffing.Event, error) {
	models, err := a.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	events := make([]staffing.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toStaffingEvent(model))
	}
	return events, nil
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id string) error {
	return a.repo.DeleteEvent(ctx, id)
}

type resourceRepositoryAdapter struct {
	repo persistence.ResourceRepository
}

func newResourceRepositoryAdapter(repo persistence.ResourceRepository) *resourceRepositoryAdapter {
	return &resourceRepositoryAdapter{repo: repo}
}

func (a *resourceRepositoryAdapter) CreateResource(ctx context.Context, resource staffing.Resource) error {
	return a.repo.CreateResource(ctx, toPersistenceResource(resource))
}

func (a *resourceRepositoryAdapter) UpdateResource(ctx context.Context, resource staffing.Resource) error {
	return a.repo.UpdateResource(ctx, toPersistenceResource(resource))
}

func (a *resourceRepositoryAdapter) GetResource(ctx context.Context, id string) (staffing.Resource, error) {
	stored, err := a.repo.GetResource(ctx, id)
	if err != nil {
		return staffing.Resource{}, err
	}
	return toStaffingResource(stored), nil
}

func (a *resourceRepositoryAdapter) ListResources(ctx context.Context) ([]staffing.Resource, error) {
	models, err := a.repo.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	resources := make([]staffing.Resource, 0, len(models))
	for _, model := range models {
		resources = append(resources, toStaffingResource(model))
	}
	return resources, nil
}

func (a *resourceRepositoryAdapter) DeleteResource(ctx context.Context, id string) error {
	return a.repo.DeleteResource(ctx, id)
}

func toStaffingEvent(model persistence.Event) staffing.Event {
	return staffing.Event{
		ID:                    model.ID,
		Title:                 model.Title,
		Date:                  model.Date,
		StartTime:             stringValue(model.StartTime),
		EndTime:               stringValue(model.EndTime),
		RequiredResourceCount: model.RequiredResourceCount,
		Assignments:           toStaffingAssignments(model.Assignments),
		CreatedAt:             model.CreatedAt,
		UpdatedAt:             model.UpdatedAt,
	}
}

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

func toStaffingAssignments(models []persistence.Assignment) []staffing.Assignment {
	if len(models) == 0 {
		return nil
	}
	assignments := make([]staffing.Assignment, 0, len(models))
	for _, model := range models {
		assignments = append(assignments, staffing.Assignment{
			ResourceID:       model.ResourceID,
			ResourceName:     model.ResourceName,
			Status:           staffing.Status(model.Status),
			AssignedAt:       model.AssignedAt,
			GeneratedMessage: stringValue(model.GeneratedMessage),
		})
	}
	return assignments
}

func toPersistenceAssignments(assignments []staffing.Assignment) []persistence.Assignment {
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

func toStaffingResource(model persistence.Resource) staffing.Resource {
	return staffing.Resource{
		ID:        model.ID,
		Name:      model.Name,
		Phone:     stringValue(model.Phone),
		Available: model.Available,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceResource(resource staffing.Resource) persistence.Resource {
	return persistence.Resource{
		ID:        resource.ID,
		Name:      resource.Name,
		Phone:     optionalString(resource.Phone),
		Available: resource.Available,
		CreatedAt: resource.CreatedAt,
		UpdatedAt: resource.UpdatedAt,
	}
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	clone := value
	return &clone
}
