// Package history stores the log of ecosystem commands the bridge handled.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLimit = 50
	maxLimit     = 200

	// timeLayout is fixed width so created_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Entry is one handled command.
type Entry struct {
	ID               string         `json:"id"`
	Platform         string         `json:"platform"`
	PlatformDeviceID string         `json:"platform_device_id"`
	CloudDeviceID    string         `json:"cloud_device_id,omitempty"`
	Command          string         `json:"command"`
	Action           string         `json:"action,omitempty"`
	Params           map[string]any `json:"params,omitempty"`
	Success          bool           `json:"success"`
	Error            string         `json:"error,omitempty"`
	Source           string         `json:"source,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Filter selects entries for List.
type Filter struct {
	Platform      string // optional
	CloudDeviceID string // optional
	OnlyFailed    bool
	Limit         int // default 50, max 200
	Offset        int
}

// ListResult is a page of entries, newest first.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository persists command log entries.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, f Filter) (*ListResult, error)
}

// SQLiteRepository stores entries in the command_log table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a repository backed by db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append inserts e, filling ID and CreatedAt when empty.
func (r *SQLiteRepository) Append(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "cmd-" + uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	params := "{}"
	if len(e.Params) > 0 {
		b, err := json.Marshal(e.Params)
		if err != nil {
			return fmt.Errorf("encoding command params: %w", err)
		}
		params = string(b)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO command_log
		   (id, platform, platform_device_id, cloud_device_id, command, action, params, success, error, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Platform, e.PlatformDeviceID, e.CloudDeviceID, e.Command, e.Action,
		params, e.Success, e.Error, e.Source, e.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting command log entry: %w", err)
	}
	return nil
}

// List returns entries matching f, newest first.
func (r *SQLiteRepository) List(ctx context.Context, f Filter) (*ListResult, error) {
	switch {
	case f.Limit <= 0:
		f.Limit = defaultLimit
	case f.Limit > maxLimit:
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var conds []string
	var args []any
	if f.Platform != "" {
		conds = append(conds, "platform = ?")
		args = append(args, f.Platform)
	}
	if f.CloudDeviceID != "" {
		conds = append(conds, "cloud_device_id = ?")
		args = append(args, f.CloudDeviceID)
	}
	if f.OnlyFailed {
		conds = append(conds, "success = 0")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	//nolint:gosec // where holds only fixed conditions with placeholders
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM command_log"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting command log: %w", err)
	}

	//nolint:gosec // where holds only fixed conditions with placeholders
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, platform, platform_device_id, cloud_device_id, command, action, params, success, error, source, created_at
		 FROM command_log`+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying command log: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var params, createdAt string
		if err := rows.Scan(&e.ID, &e.Platform, &e.PlatformDeviceID, &e.CloudDeviceID, &e.Command,
			&e.Action, &params, &e.Success, &e.Error, &e.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning command log entry: %w", err)
		}
		if params != "" && params != "{}" {
			_ = json.Unmarshal([]byte(params), &e.Params) //nolint:errcheck // written by Append
		}
		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parsing command log timestamp %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command log: %w", err)
	}

	return &ListResult{Entries: entries, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}
