package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ziadkadry99/revlens/internal/db"
)

const timeLayout = "2006-01-02 15:04:05.000000"

// ListFilter controls which notifications are returned by List.
type ListFilter struct {
	Kind      Kind
	Severity  Severity
	SessionID string
	Delivered *bool
	Since     time.Time
	Until     time.Time
	Limit     int
	Offset    int
}

// Store provides CRUD operations for notifications.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a new notification. If n.ID is empty a UUID is generated;
// the stored notification is returned.
func (s *Store) Create(ctx context.Context, n Notification) (Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Severity == "" {
		n.Severity = n.Kind.Severity()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	ref, err := json.Marshal(n.Reference)
	if err != nil {
		return n, fmt.Errorf("marshalling reference: %w", err)
	}

	delivered := 0
	if n.Delivered {
		delivered = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, kind, severity, code, message, session_id, reference, delivered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, string(n.Kind), string(n.Severity), n.Code, n.Message, n.SessionID,
		string(ref), delivered, n.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return n, fmt.Errorf("inserting notification: %w", err)
	}
	return n, nil
}

// GetByID retrieves a single notification.
func (s *Store) GetByID(ctx context.Context, id string) (*Notification, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, severity, code, message, session_id, reference, delivered, created_at
		FROM notifications WHERE id = ?`, id)

	return scanInto(row)
}

// List returns notifications matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Notification, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Severity != "" {
		clauses = append(clauses, "severity = ?")
		args = append(args, string(filter.Severity))
	}
	if filter.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.Delivered != nil {
		v := 0
		if *filter.Delivered {
			v = 1
		}
		clauses = append(clauses, "delivered = ?")
		args = append(args, v)
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	if !filter.Until.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, filter.Until.UTC().Format(timeLayout))
	}

	query := "SELECT id, kind, severity, code, message, session_id, reference, delivered, created_at FROM notifications"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

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
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

// MarkDelivered sets delivered=1 for the given notification.
func (s *Store) MarkDelivered(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET delivered = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("marking notification delivered: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("notification %s not found", id)
	}
	return nil
}

// GetPending returns all undelivered notifications.
func (s *Store) GetPending(ctx context.Context) ([]Notification, error) {
	delivered := false
	return s.List(ctx, ListFilter{Delivered: &delivered})
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Notification, error) {
	var (
		n              Notification
		kind, severity string
		refJSON        string
		delivered      int
		ts             string
	)

	err := sc.Scan(&n.ID, &kind, &severity, &n.Code, &n.Message, &n.SessionID,
		&refJSON, &delivered, &ts)
	if err != nil {
		return nil, err
	}

	n.Kind = Kind(kind)
	n.Severity = Severity(severity)
	n.Delivered = delivered != 0

	for _, layout := range []string{timeLayout, time.RFC3339Nano, time.DateTime} {
		if t, parseErr := time.Parse(layout, ts); parseErr == nil {
			n.CreatedAt = t
			break
		}
	}

	if err := json.Unmarshal([]byte(refJSON), &n.Reference); err != nil {
		return nil, fmt.Errorf("decoding reference of %s: %w", n.ID, err)
	}

	return &n, nil
}
