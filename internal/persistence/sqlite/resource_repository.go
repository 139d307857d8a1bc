package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/floral-staffing/internal/persistence"
)

// ResourceRepository implements persistence.ResourceRepository using SQLite.
type ResourceRepository struct {
	pool *ConnectionPool
}

// NewResourceRepository creates a new SQLite resource repository.
func NewResourceRepository(pool *ConnectionPool) *ResourceRepository {
	return &ResourceRepository{pool: pool}
}

const resourceColumns = `id, name, phone, available, created_at, updated_at`

// CreateResource inserts a new staff member.
func (r *ResourceRepository) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" || resource.Name == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO resources (` + resourceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.pool.DB().ExecContext(ctx, query,
		resource.ID,
		resource.Name,
		nullableString(resource.Phone),
		boolToInt(resource.Available),
		resource.CreatedAt.UTC().Format(time.RFC3339),
		resource.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return mapError(err)
}

// UpdateResource updates an existing staff member.
func (r *ResourceRepository) UpdateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" {
		return persistence.ErrNotFound
	}
	if resource.Name == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE resources
		SET name = ?, phone = ?, available = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.pool.DB().ExecContext(ctx, query,
		resource.Name,
		nullableString(resource.Phone),
		boolToInt(resource.Available),
		resource.UpdatedAt.UTC().Format(time.RFC3339),
		resource.ID,
	)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

// GetResource retrieves a staff member by ID.
func (r *ResourceRepository) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	if id == "" {
		return persistence.Resource{}, persistence.ErrNotFound
	}

	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)
	return scanResource(row)
}

// ListResources returns all staff members ordered by name then ID.
func (r *ResourceRepository) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var resources []persistence.Resource
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return resources, nil
}

// DeleteResource removes a staff member by ID. Assignments keep their
// denormalized resource name, so no event rows are touched.
func (r *ResourceRepository) DeleteResource(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}

	return nil
}

func scanResource(row rowScanner) (persistence.Resource, error) {
	var (
		resource     persistence.Resource
		phone        sql.NullString
		available    int
		createdAtStr string
		updatedAtStr string
	)

	err := row.Scan(
		&resource.ID,
		&resource.Name,
		&phone,
		&available,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Resource{}, persistence.ErrNotFound
		}
		return persistence.Resource{}, mapError(err)
	}

	if phone.Valid {
		resource.Phone = &phone.String
	}
	resource.Available = available != 0
	if resource.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Resource{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if resource.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Resource{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}

	return resource, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
