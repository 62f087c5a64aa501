package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
)

// Store persists build events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, buildID, eventType string, payload any, metadata map[string]string) error

	// GetByBuildID retrieves all events for a specific build.
	GetByBuildID(ctx context.Context, buildID string) ([]Event, error)

	// Recent retrieves the events of the newest limit builds, oldest first.
	Recent(ctx context.Context, limit int) ([]Event, error)

	// Close closes the store and releases resources.
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the store at dbPath. Use ":memory:" for an in-memory
// database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.HistoryError("could not open history database").
			WithCause(err).AtPath(dbPath).Build()
	}
	// An in-memory database exists once per connection.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.HistoryError("failed to initialize history schema").
			WithCause(err).AtPath(dbPath).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_build_id ON events(build_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append adds a new event. The payload is stored as JSON.
func (s *SQLiteStore) Append(ctx context.Context, buildID, eventType string, payload any, metadata map[string]string) error {
	data, err := marshalPayload(buildID, eventType, payload)
	if err != nil {
		return err
	}
	var metadataJSON []byte
	if metadata != nil {
		if metadataJSON, err = json.Marshal(metadata); err != nil {
			return errors.HistoryError("failed to marshal event metadata").WithCause(err).Build()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO events (build_id, event_type, timestamp, payload, metadata) VALUES (?, ?, ?, ?, ?)",
		buildID, eventType, s.now().UnixMilli(), data, metadataJSON,
	)
	if err != nil {
		return errors.HistoryError("failed to append event").
			WithCause(err).WithContext("build_id", buildID).Build()
	}
	return nil
}

// GetByBuildID retrieves all events for a specific build.
func (s *SQLiteStore) GetByBuildID(ctx context.Context, buildID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, event_type, timestamp, payload, metadata FROM events WHERE build_id = ? ORDER BY id",
		buildID,
	)
	if err != nil {
		return nil, errors.HistoryError("failed to query events").WithCause(err).Build()
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Recent retrieves every event of the newest limit builds.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, build_id, event_type, timestamp, payload, metadata FROM events
		WHERE build_id IN (
			SELECT build_id FROM events GROUP BY build_id ORDER BY MIN(id) DESC LIMIT ?
		)
		ORDER BY id`, limit)
	if err != nil {
		return nil, errors.HistoryError("failed to query events").WithCause(err).Build()
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var ts int64
		var metadataJSON []byte
		if err := rows.Scan(&e.ID, &e.BuildID, &e.Type, &ts, &e.Payload, &metadataJSON); err != nil {
			return nil, errors.HistoryError("failed to scan event rows").WithCause(err).Build()
		}
		e.Timestamp = time.UnixMilli(ts)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, errors.HistoryError("failed to unmarshal event metadata").WithCause(err).Build()
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.HistoryError("failed to iterate event rows").WithCause(err).Build()
	}
	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
