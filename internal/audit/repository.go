// Package audit records security-relevant events (validation runs,
// token issuance, rejected tokens) in the audit_events table.
//
// Entries describe credential activity but never contain raw secrets:
// callers pass masked values or counts only.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Well-known event actions.
const (
	ActionValidationRun = "validation_run"
	ActionTokenEncoded  = "token_encoded"
	ActionTokenRejected = "token_rejected"
	ActionConfigViewed  = "config_viewed"
)

// Event is a single audit trail entry.
type Event struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Service   string         `json:"service"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Filter controls which events to return.
type Filter struct {
	Action  string // optional: filter by action
	Service string // optional: filter by service name
	Limit   int    // default 50, max 200
	Offset  int    // pagination offset
}

// ListResult contains the paginated event results.
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Repository defines the interface for audit event operations.
type Repository interface {
	Record(ctx context.Context, event *Event) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores audit events in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new audit event repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts a new audit event. The ID and CreatedAt are generated
// if empty.
func (r *SQLiteRepository) Record(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = "evt-" + uuid.NewString()[:8]
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var detailJSON *string
	if event.Detail != nil {
		b, err := json.Marshal(event.Detail)
		if err != nil {
			return fmt.Errorf("marshalling event detail: %w", err)
		}
		s := string(b)
		detailJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, action, service, detail, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		event.ID, event.Action, event.Service, detailJSON,
		event.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}

	return nil
}

// List returns events matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for audit queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Service != "" {
		conditions = append(conditions, "service = ?")
		args = append(args, filter.Service)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// WHERE is assembled from parameterised conditions only.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM audit_events %s", where) //nolint:gosec // placeholders only
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit events: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // placeholders only
		"SELECT id, action, service, detail, created_at FROM audit_events %s ORDER BY created_at DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var detailJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&event.ID, &event.Action, &event.Service, &detailJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit event: %w", err)
		}

		if detailJSON.Valid && detailJSON.String != "" {
			var detail map[string]any
			if json.Unmarshal([]byte(detailJSON.String), &detail) == nil {
				event.Detail = detail
			}
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing audit event timestamp %q: %w", createdAt, err)
		}
		event.CreatedAt = t

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}

	if events == nil {
		events = []Event{}
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}
