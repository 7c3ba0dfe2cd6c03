package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func collectEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		e, err := entryFromRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trail: %w", err)
	}
	if out == nil {
		out = []Entry{}
	}
	return out, nil
}

func entryFromRow(row rowScanner) (Entry, error) {
	var (
		e      Entry
		stamp  string
		detail sql.NullString
	)
	err := row.Scan(&e.ID, &stamp, &e.SessionID, &e.Event, &e.Status, &e.RetryCount, &e.Score, &detail)
	if err != nil {
		return Entry{}, fmt.Errorf("scan trail row %d: %w", e.ID, err)
	}

	if e.Timestamp, err = parseTimestamp(stamp); err != nil {
		return Entry{}, err
	}

	e.Detail = json.RawMessage(`{}`)
	if detail.Valid && detail.String != "" {
		e.Detail = json.RawMessage(detail.String)
	}
	return e, nil
}

func parseTimestamp(stamp string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return t, nil
}
