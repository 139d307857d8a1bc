package staffing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/floral-staffing/internal/persistence"
)

// ResourceStore captures the persistence interactions needed by the directory.
type ResourceStore interface {
	CreateResource(ctx context.Context, resource Resource) error
	UpdateResource(ctx context.Context, resource Resource) error
	GetResource(ctx context.Context, id string) (Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)
	DeleteResource(ctx context.Context, id string) error
}

// ResourceService manages the staff directory consumed by the assignment
// workflow.
type ResourceService struct {
	resources   ResourceStore
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewResourceService wires dependencies for directory operations.
func NewResourceService(resources ResourceStore, idGenerator func() string, now func() time.Time) *ResourceService {
	return NewResourceServiceWithLogger(resources, idGenerator, now, nil)
}

// NewResourceServiceWithLogger wires dependencies together with a base logger.
func NewResourceServiceWithLogger(resources ResourceStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ResourceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ResourceService{
		resources:   resources,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// CreateResource validates the input before delegating to persistence.
func (s *ResourceService) CreateResource(ctx context.Context, input ResourceInput) (Resource, error) {
	if s == nil {
		return Resource{}, fmt.Errorf("ResourceService is nil")
	}

	vErr := &ValidationError{}
	validateResourceCore(input, vErr)
	if vErr.HasErrors() {
		return Resource{}, vErr
	}

	createdAt := s.now()
	resource := Resource{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(input.Name),
		Phone:     strings.TrimSpace(input.Phone),
		Available: input.Available,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	if s.resources == nil {
		return resource, nil
	}

	if err := s.resources.CreateResource(ctx, resource); err != nil {
		return Resource{}, mapResourceRepoError(err)
	}

	logger := serviceLogger(ctx, s.logger, "resource", "create", "resource_id", resource.ID)
	logger.InfoContext(ctx, "resource created")

	return resource, nil
}

// UpdateResource applies validation before updating persistence state.
func (s *ResourceService) UpdateResource(ctx context.Context, id string, input ResourceInput) (Resource, error) {
	if s == nil || s.resources == nil {
		return Resource{}, fmt.Errorf("resource repository not configured")
	}

	existing, err := s.resources.GetResource(ctx, id)
	if err != nil {
		return Resource{}, mapResourceRepoError(err)
	}

	vErr := &ValidationError{}
	validateResourceCore(input, vErr)
	if vErr.HasErrors() {
		return Resource{}, vErr
	}

	existing.Name = strings.TrimSpace(input.Name)
	existing.Phone = strings.TrimSpace(input.Phone)
	existing.Available = input.Available
	existing.UpdatedAt = s.now()

	if err := s.resources.UpdateResource(ctx, existing); err != nil {
		return Resource{}, mapResourceRepoError(err)
	}

	return existing, nil
}

// GetResource returns a single directory entry.
func (s *ResourceService) GetResource(ctx context.Context, id string) (Resource, error) {
	if s == nil || s.resources == nil {
		return Resource{}, fmt.Errorf("resource repository not configured")
	}
	resource, err := s.resources.GetResource(ctx, id)
	if err != nil {
		return Resource{}, mapResourceRepoError(err)
	}
	return resource, nil
}

// ListResources enumerates the directory ordered by name, then identifier.
func (s *ResourceService) ListResources(ctx context.Context) ([]Resource, error) {
	if s == nil || s.resources == nil {
		return nil, fmt.Errorf("resource repository not configured")
	}

	resources, err := s.resources.ListResources(ctx)
	if err != nil {
		return nil, mapResourceRepoError(err)
	}

	ordered := make([]Resource, len(resources))
	copy(ordered, resources)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Name == ordered[j].Name {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Name < ordered[j].Name
	})

	return ordered, nil
}

// DeleteResource removes a directory entry. Assignments keep the denormalized
// resource name they captured at assignment time.
func (s *ResourceService) DeleteResource(ctx context.Context, id string) error {
	if s == nil || s.resources == nil {
		return fmt.Errorf("resource repository not configured")
	}
	if err := s.resources.DeleteResource(ctx, id); err != nil {
		return mapResourceRepoError(err)
	}
	return nil
}

func validateResourceCore(input ResourceInput, vErr *ValidationError) {
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
}

func mapResourceRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		vErr := &ValidationError{}
		vErr.add("id", "resource already exists")
		return vErr
	}
	return err
}
