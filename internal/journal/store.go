package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/revlens/internal/db"
	"github.com/ziadkadry99/revlens/internal/session"
)

// timeLayout sorts lexically and keeps sub-second order.
const timeLayout = "2006-01-02 15:04:05.000000"

// Store provides persistence for journal entries.
type Store struct {
	db     *db.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: database, logger: logger}
}

// Log inserts a new entry. If entry.ID is empty a UUID is generated.
func (s *Store) Log(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	ref, err := json.Marshal(entry.Reference)
	if err != nil {
		return fmt.Errorf("marshalling reference: %w", err)
	}

	var anchorID sql.NullInt64
	if entry.AnchorID != NoAnchor {
		anchorID = sql.NullInt64{Int64: int64(entry.AnchorID), Valid: true}
	}
	var errText sql.NullString
	if entry.Error != "" {
		errText = sql.NullString{String: entry.Error, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO journal_entries (
			id, timestamp, session_id, event_type, anchor_id, reference, error, kind
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.UTC().Format(timeLayout),
		entry.SessionID,
		string(entry.Type),
		anchorID,
		string(ref),
		errText,
		entry.Kind,
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}
	return nil
}

// Emit implements session.EventSink. Storage failures are logged.
func (s *Store) Emit(ctx context.Context, ev session.Event) {
	if err := s.Log(ctx, FromEvent(ev)); err != nil {
		s.logger.Warn("journal entry dropped", "session", ev.SessionID, "type", ev.Type, "error", err)
	}
}

// GetByID retrieves a single entry.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, timestamp, session_id, event_type, anchor_id, reference, error, kind
		FROM journal_entries WHERE id = ?`, id)

	return scanInto(row)
}

// QueryFilter controls which entries are returned by Query.
type QueryFilter struct {
	SessionID string
	Type      session.EventType
	Kind      string
	Since     *time.Time
	Until     *time.Time
	// Ascending returns the oldest entries first.
	Ascending bool
	Limit     int
	Offset    int
}

// Query returns entries matching the filter, newest first unless
// Ascending is set.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Type != "" {
		clauses = append(clauses, "event_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	if filter.Until != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, filter.Until.UTC().Format(timeLayout))
	}

	query := "SELECT id, timestamp, session_id, event_type, anchor_id, reference, error, kind FROM journal_entries"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if filter.Ascending {
		query += " ORDER BY timestamp ASC, rowid ASC"
	} else {
		query += " ORDER BY timestamp DESC, rowid DESC"
	}

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Session returns the entries of one session in the order they happened.
func (s *Store) Session(ctx context.Context, sessionID string) ([]Entry, error) {
	return s.Query(ctx, QueryFilter{SessionID: sessionID, Ascending: true})
}

// DeleteBefore removes all entries older than the given time.
// Returns the number of deleted rows.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM journal_entries WHERE timestamp < ?",
		before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old journal entries: %w", err)
	}
	return res.RowsAffected()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e         Entry
		ts        string
		eventType string
		anchorID  sql.NullInt64
		refJSON   string
		errText   sql.NullString
	)

	err := sc.Scan(&e.ID, &ts, &e.SessionID, &eventType, &anchorID, &refJSON, &errText, &e.Kind)
	if err != nil {
		return nil, err
	}

	e.Type = session.EventType(eventType)
	e.Timestamp = parseTime(ts)
	e.AnchorID = NoAnchor
	if anchorID.Valid {
		e.AnchorID = int(anchorID.Int64)
	}
	if errText.Valid {
		e.Error = errText.String
	}
	if err := json.Unmarshal([]byte(refJSON), &e.Reference); err != nil {
		return nil, fmt.Errorf("decoding reference of %s: %w", e.ID, err)
	}

	return &e, nil
}

func parseTime(ts string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, time.DateTime} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}
