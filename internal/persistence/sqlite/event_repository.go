package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/floral-staffing/internal/persistence"
)

// EventRepository implements persistence.EventRepository using SQLite.
type EventRepository struct {
	pool *ConnectionPool
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(pool *ConnectionPool) *EventRepository {
	return &EventRepository{pool: pool}
}

const eventColumns = `id, title, date, start_time, end_time, required_resource_count, assignments, created_at, updated_at`

// CreateEvent inserts a new event together with its assignment list.
func (r *EventRepository) CreateEvent(ctx context.Context, event persistence.Event) error {
	if event.ID == "" {
		return persistence.ErrConstraintViolation
	}

	assignments, err := encodeAssignments(event.Assignments)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.pool.DB().ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.Date.Format(time.DateOnly),
		nullableString(event.StartTime),
		nullableString(event.EndTime),
		event.RequiredResourceCount,
		assignments,
		event.CreatedAt.UTC().Format(time.RFC3339),
		event.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return mapError(err)
}

// GetEvent retrieves an event by ID.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (persistence.Event, error) {
	if id == "" {
		return persistence.Event{}, persistence.ErrNotFound
	}

	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// UpdateEvent applies a partial update to an existing event. The assignment
// list replaces the stored one wholesale when present.
func (r *EventRepository) UpdateEvent(ctx context.Context, id string, update persistence.EventUpdate) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRow(`SELECT assignments FROM events WHERE id = ?`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return persistence.ErrNotFound
		}
		if err != nil {
			return mapError(err)
		}

		assignments := current
		if update.Assignments != nil {
			assignments, err = encodeAssignments(update.Assignments)
			if err != nil {
				return err
			}
		}

		query := `UPDATE events SET assignments = ?, updated_at = ?`
		args := []any{assignments, update.UpdatedAt.UTC().Format(time.RFC3339)}
		if update.RequiredResourceCount != nil {
			query += `, required_resource_count = ?`
			args = append(args, *update.RequiredResourceCount)
		}
		query += ` WHERE id = ?`
		args = append(args, id)

		_, err = tx.Exec(query, args...)
		return mapError(err)
	})
}

// ListEvents returns all events ordered by date then ID.
func (r *EventRepository) ListEvents(ctx context.Context) ([]persistence.Event, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var events []persistence.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return events, nil
}

// DeleteEvent removes an event by ID.
func (r *EventRepository) DeleteEvent(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.pool.DB().ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		event        persistence.Event
		dateStr      string
		startTime    sql.NullString
		endTime      sql.NullString
		assignments  string
		createdAtStr string
		updatedAtStr string
	)

	err := row.Scan(
		&event.ID,
		&event.Title,
		&dateStr,
		&startTime,
		&endTime,
		&event.RequiredResourceCount,
		&assignments,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Event{}, persistence.ErrNotFound
		}
		return persistence.Event{}, mapError(err)
	}

	if event.Date, err = time.ParseInLocation(time.DateOnly, dateStr, time.UTC); err != nil {
		return persistence.Event{}, fmt.Errorf("sqlite: parse event date: %w", err)
	}
	if startTime.Valid {
		event.StartTime = &startTime.String
	}
	if endTime.Valid {
		event.EndTime = &endTime.String
	}
	if err := json.Unmarshal([]byte(assignments), &event.Assignments); err != nil {
		return persistence.Event{}, fmt.Errorf("sqlite: decode assignments: %w", err)
	}
	if event.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if event.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Event{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}

	return event, nil
}

func encodeAssignments(assignments []persistence.Assignment) (string, error) {
	if assignments == nil {
		assignments = []persistence.Assignment{}
	}
	data, err := json.Marshal(assignments)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode assignments: %w", err)
	}
	return string(data), nil
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
