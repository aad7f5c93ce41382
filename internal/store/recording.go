package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RecordedRow is one exported recorder entry: an event serialized by the
// application (kind discriminant + payload) with its capture timestamp.
type RecordedRow struct {
	SessionID  string
	Index      int
	Kind       string
	Payload    []byte
	RecordedAt time.Time
}

// SessionInfo summarizes one recorded session.
type SessionInfo struct {
	ID      string
	Events  int
	FirstAt time.Time
	LastAt  time.Time
}

// AppendRecording writes one recorded event row. Rows within a session
// are keyed by index; re-appending an existing (session, index) pair is
// idempotent (ON CONFLICT DO NOTHING), so a session export can be
// safely re-run after a partial failure.
func (s *SQLite) AppendRecording(ctx context.Context, row RecordedRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recordings (session_id, idx, kind, payload, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, idx) DO NOTHING
	`,
		row.SessionID,
		row.Index,
		row.Kind,
		string(row.Payload),
		row.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append recording %s[%d]: %w", row.SessionID, row.Index, err)
	}
	return nil
}

// ReadRecording returns all rows of a session in capture order.
func (s *SQLite) ReadRecording(ctx context.Context, sessionID string) ([]RecordedRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, idx, kind, payload, recorded_at
		FROM recordings
		WHERE session_id = ?
		ORDER BY idx ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read recording %q: %w", sessionID, err)
	}
	defer rows.Close()

	var result []RecordedRow
	for rows.Next() {
		var (
			row        RecordedRow
			payload    string
			recordedAt string
		)
		if err := rows.Scan(&row.SessionID, &row.Index, &row.Kind, &payload, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan recording row: %w", err)
		}
		row.Payload = []byte(payload)
		row.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parse recorded_at: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recording rows: %w", err)
	}

	return result, nil
}

// ListSessions summarizes all recorded sessions, ordered by session id.
func (s *SQLite) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*), MIN(recorded_at), MAX(recorded_at)
		FROM recordings
		GROUP BY session_id
		ORDER BY session_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var (
			info    SessionInfo
			firstAt string
			lastAt  string
		)
		if err := rows.Scan(&info.ID, &info.Events, &firstAt, &lastAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if info.FirstAt, err = time.Parse(time.RFC3339Nano, firstAt); err != nil {
			return nil, fmt.Errorf("parse session first_at: %w", err)
		}
		if info.LastAt, err = time.Parse(time.RFC3339Nano, lastAt); err != nil {
			return nil, fmt.Errorf("parse session last_at: %w", err)
		}
		sessions = append(sessions, info)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
