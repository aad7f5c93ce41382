package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/uniflux/internal/state"
)

// SnapshotInfo describes a stored snapshot without decoding its payload.
type SnapshotInfo struct {
	Key       string
	Version   int
	Size      int
	UpdatedAt time.Time
}

// Put upserts the snapshot blob for key. The schema version is extracted
// from the envelope for the version column; an undecodable envelope
// stores version 0 (the payload is still written verbatim - tooling just
// loses the cheap version report).
func (s *SQLite) Put(ctx context.Context, key string, payload []byte) error {
	version, err := state.DecodeVersion(payload)
	if err != nil {
		version = 0
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, payload, version, updated_at)
		VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			version = excluded.version,
			updated_at = excluded.updated_at
	`, key, payload, version)
	if err != nil {
		return fmt.Errorf("put snapshot %q: %w", key, err)
	}

	return nil
}

// Get returns the snapshot blob for key, reporting presence.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM snapshots WHERE key = ?
	`, key).Scan(&payload)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get snapshot %q: %w", key, err)
	}
	return payload, true, nil
}

// Delete removes the snapshot for key. Missing keys are a no-op.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete snapshot %q: %w", key, err)
	}
	return nil
}

// Keys lists all persistence keys, ordered alphabetically.
func (s *SQLite) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM snapshots ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list snapshot keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan snapshot key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot keys: %w", err)
	}

	return keys, nil
}

// Info returns snapshot metadata for key without decoding the payload.
func (s *SQLite) Info(ctx context.Context, key string) (SnapshotInfo, bool, error) {
	var (
		info      SnapshotInfo
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT key, version, length(payload), updated_at
		FROM snapshots WHERE key = ?
	`, key).Scan(&info.Key, &info.Version, &info.Size, &updatedAt)
	if err != nil {
		if isNoRows(err) {
			return SnapshotInfo{}, false, nil
		}
		return SnapshotInfo{}, false, fmt.Errorf("snapshot info %q: %w", key, err)
	}

	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return SnapshotInfo{}, false, fmt.Errorf("snapshot info %q: parse updated_at: %w", key, err)
	}
	info.UpdatedAt = ts

	return info, true, nil
}
