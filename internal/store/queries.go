// Copyright (c) 2025-2026 AI Hub Portal
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/aihubjp/eventhub/internal/model"
)

// DBTX is the minimal database interface the query layer needs, satisfied by
// both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds prepared access to the eventhub tables.
type Queries struct {
	db DBTX
}

// New creates a Queries instance over the given database handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const eventColumns = `id, external_id, source, slug, title, description, category, type,
	event_date, event_time, location, organizer, organizer_id,
	registration_url, video_url, is_featured, is_active, last_synced_at,
	metadata, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID,
		&e.ExternalID,
		&e.Source,
		&e.Slug,
		&e.Title,
		&e.Description,
		&e.Category,
		&e.Type,
		&e.EventDate,
		&e.EventTime,
		&e.Location,
		&e.Organizer,
		&e.OrganizerID,
		&e.RegistrationURL,
		&e.VideoURL,
		&e.IsFeatured,
		&e.IsActive,
		&e.LastSyncedAt,
		&e.Metadata,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

// GetEventByID returns a single event by its numeric identifier.
func (q *Queries) GetEventByID(ctx context.Context, id int64) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// GetEventBySlug returns a single event by its slug.
func (q *Queries) GetEventBySlug(ctx context.Context, slug string) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = ?`, slug)
	return scanEvent(row)
}

// GetEventByExternalID returns the event matching an (external_id, source) pair.
func (q *Queries) GetEventByExternalID(ctx context.Context, externalID, source string) (model.Event, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE external_id = ? AND source = ?`,
		externalID, source)
	return scanEvent(row)
}

// CreateEventParams holds the fields for inserting a new event.
type CreateEventParams struct {
	ExternalID      sql.NullString
	Source          string
	Slug            sql.NullString
	Title           string
	Description     string
	Category        string
	Type            string
	EventDate       string
	EventTime       string
	Location        string
	Organizer       string
	OrganizerID     sql.NullInt64
	RegistrationURL string
	VideoURL        string
	IsFeatured      bool
	IsActive        bool
	LastSyncedAt    sql.NullTime
	Metadata        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateEvent inserts a new event and returns its ID.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (int64, error) {
	if arg.Metadata == "" {
		arg.Metadata = "{}"
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO events (
			external_id, source, slug, title, description, category, type,
			event_date, event_time, location, organizer, organizer_id,
			registration_url, video_url, is_featured, is_active,
			last_synced_at, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.ExternalID, arg.Source, arg.Slug, arg.Title, arg.Description,
		arg.Category, arg.Type, arg.EventDate, arg.EventTime, arg.Location,
		arg.Organizer, arg.OrganizerID, arg.RegistrationURL, arg.VideoURL,
		arg.IsFeatured, arg.IsActive, arg.LastSyncedAt, arg.Metadata,
		arg.CreatedAt, arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DeleteEvent removes an event row.
func (q *Queries) DeleteEvent(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return err
}

// SetEventActiveParams holds the fields for toggling event visibility.
type SetEventActiveParams struct {
	IsActive  bool
	UpdatedAt time.Time
	ID        int64
}

// SetEventActive toggles the is_active visibility flag.
func (q *Queries) SetEventActive(ctx context.Context, arg SetEventActiveParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE events SET is_active = ?, updated_at = ? WHERE id = ?`,
		arg.IsActive, arg.UpdatedAt, arg.ID)
	return err
}

// CountEventsBySlug returns how many events carry the given slug.
func (q *Queries) CountEventsBySlug(ctx context.Context, slug string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE slug = ?`, slug).Scan(&count)
	return count, err
}

// ListEventSources returns the distinct sources present in the store.
func (q *Queries) ListEventSources(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT DISTINCT source FROM events ORDER BY source`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sources []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// SourceLastSync pairs a source with its most recent merge time.
type SourceLastSync struct {
	Source       string
	LastSyncedAt sql.NullTime
}

// ListLastSyncBySource returns the most recent last_synced_at per external source.
func (q *Queries) ListLastSyncBySource(ctx context.Context) ([]SourceLastSync, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT source, MAX(last_synced_at)
		FROM events
		WHERE last_synced_at IS NOT NULL
		GROUP BY source
		ORDER BY source`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []SourceLastSync
	for rows.Next() {
		var ls SourceLastSync
		if err := rows.Scan(&ls.Source, &ls.LastSyncedAt); err != nil {
			return nil, err
		}
		result = append(result, ls)
	}
	return result, rows.Err()
}

// CreateAuditEntryParams holds the fields for inserting an audit log row.
type CreateAuditEntryParams struct {
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}

// CreateAuditEntry inserts a row into the audit log.
func (q *Queries) CreateAuditEntry(ctx context.Context, arg CreateAuditEntryParams) (int64, error) {
	if arg.Metadata == "" {
		arg.Metadata = "{}"
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO audit_log (level, category, message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.Metadata, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// DeleteOldAuditEntries removes audit rows created before the cutoff.
func (q *Queries) DeleteOldAuditEntries(ctx context.Context, cutoff time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM audit_log WHERE created_at < ?`, cutoff)
	return err
}

// GetAPIKeyByHash returns an API key row by its SHA-256 hash.
func (q *Queries) GetAPIKeyByHash(ctx context.Context, keyHash string) (model.APIKey, error) {
	var k model.APIKey
	err := q.db.QueryRowContext(ctx, `
		SELECT id, name, key_hash, key_prefix, permissions, last_used_at,
			expires_at, is_active, created_at, updated_at
		FROM api_keys WHERE key_hash = ?`, keyHash).Scan(
		&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Permissions,
		&k.LastUsedAt, &k.ExpiresAt, &k.IsActive, &k.CreatedAt, &k.UpdatedAt,
	)
	return k, err
}

// CreateAPIKeyParams holds the fields for inserting an API key.
type CreateAPIKeyParams struct {
	Name        string
	KeyHash     string
	KeyPrefix   string
	Permissions string
	ExpiresAt   sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateAPIKey inserts a new API key and returns its ID.
func (q *Queries) CreateAPIKey(ctx context.Context, arg CreateAPIKeyParams) (int64, error) {
	if arg.Permissions == "" {
		arg.Permissions = "[]"
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO api_keys (name, key_hash, key_prefix, permissions, expires_at, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
		arg.Name, arg.KeyHash, arg.KeyPrefix, arg.Permissions,
		arg.ExpiresAt, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateAPIKeyLastUsedParams holds the fields for touching an API key.
type UpdateAPIKeyLastUsedParams struct {
	LastUsedAt sql.NullTime
	ID         int64
}

// UpdateAPIKeyLastUsed records when an API key was last seen.
func (q *Queries) UpdateAPIKeyLastUsed(ctx context.Context, arg UpdateAPIKeyLastUsedParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = ? WHERE id = ?`,
		arg.LastUsedAt, arg.ID)
	return err
}
