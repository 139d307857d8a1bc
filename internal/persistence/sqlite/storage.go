// Package sqlite persists events and resources in a SQLite database using the
// pure-Go modernc.org driver. Assignment lists are stored as a JSON document
// on the event row so an event and its workflow state always read and write
// as one unit.
package sqlite

// Storage bundles the SQLite-backed repositories behind one handle.
type Storage struct {
	pool *ConnectionPool

	Events    *EventRepository
	Resources *ResourceRepository
}

// Open connects to the database at dsn. Call Migrate before first use.
func Open(dsn string) (*Storage, error) {
	pool, err := NewConnectionPool(dsn)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:      pool,
		Events:    NewEventRepository(pool),
		Resources: NewResourceRepository(pool),
	}, nil
}

// Close releases the database handle.
func (s *Storage) Close() error {
	return s.pool.Close()
}
