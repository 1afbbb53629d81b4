package siteinfo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ziadkadry99/revlens/internal/db"
)

// Store caches siteinfo payloads per API endpoint.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Cached is a stored payload with its fetch time.
type Cached struct {
	Info      *Info
	FetchedAt time.Time
}

// Get returns the cached payload for api, or nil when there is none.
func (s *Store) Get(ctx context.Context, api string) (*Cached, error) {
	var payload, ts string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, fetched_at FROM siteinfo_cache WHERE api = ?", api,
	).Scan(&payload, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading siteinfo cache: %w", err)
	}

	var info Info
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return nil, fmt.Errorf("decoding cached siteinfo: %w", err)
	}
	return &Cached{Info: &info, FetchedAt: parseTime(ts)}, nil
}

// Save stores info for api, replacing any previous copy.
func (s *Store) Save(ctx context.Context, api string, info *Info, fetchedAt time.Time) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshalling siteinfo: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO siteinfo_cache (api, payload, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(api) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		api, string(payload), fetchedAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("saving siteinfo cache: %w", err)
	}
	return nil
}

// Delete drops the cached payload for api.
func (s *Store) Delete(ctx context.Context, api string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM siteinfo_cache WHERE api = ?", api); err != nil {
		return fmt.Errorf("deleting siteinfo cache: %w", err)
	}
	return nil
}

func parseTime(ts string) time.Time {
	for _, layout := range []string{time.DateTime, time.RFC3339Nano, "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}
