package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initializeSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Log(ctx context.Context, entry Entry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if len(entry.Detail) == 0 {
		entry.Detail = []byte(`{}`)
	}

	return s.insertEntry(ctx, entry)
}

func (s *SQLiteStore) GetAll(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, querySelectAll)
}

func (s *SQLiteStore) GetBySession(ctx context.Context, sessionID string) ([]Entry, error) {
	return s.query(ctx, querySelectBySession, sessionID)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initializeSchema() error {
	for _, stmt := range schemaStatements() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("execute schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) insertEntry(ctx context.Context, e Entry) error {
	const maxRetries = 3
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err = s.db.ExecContext(ctx, queryInsertEntry,
			e.Timestamp.Format(time.RFC3339Nano),
			e.SessionID,
			string(e.Event),
			e.Status,
			e.RetryCount,
			e.Score,
			string(e.Detail),
		)
		if err == nil {
			return nil
		}

		if !isLockError(err) {
			return fmt.Errorf("insert entry: %w", err)
		}

		backoff := time.Duration(attempt+1) * 10 * time.Millisecond
		log.Debug().Err(err).Dur("backoff", backoff).Msg("audit trail locked, retrying")
		time.Sleep(backoff)
	}

	return fmt.Errorf("insert entry after %d retries: %w", maxRetries, err)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func isLockError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// NopStore discards entries. Used when the trail is disabled.
type NopStore struct{}

func (NopStore) Log(context.Context, Entry) error                      { return nil }
func (NopStore) GetAll(context.Context) ([]Entry, error)               { return []Entry{}, nil }
func (NopStore) GetBySession(context.Context, string) ([]Entry, error) { return []Entry{}, nil }
func (NopStore) Close() error                                          { return nil }
