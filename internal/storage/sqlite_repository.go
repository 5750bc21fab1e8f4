package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sandeepkv93/phantom/internal/model"
	"github.com/sandeepkv93/phantom/internal/planner"
	"github.com/sandeepkv93/phantom/internal/scheduler"
)

// sqliteTimeLayout is fixed width so stored instants sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const eventColumns = `id, owner_id, title, description, category, start_at, end_at, flexible, completed, created_at, updated_at`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// OpenSQLite opens path, applies migrations and seeds the default categories.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps PRAGMA foreign_keys in effect for every statement.
	db.SetMaxOpenConns(1)
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := repo.SeedCategories(ctx, model.DefaultCategoryInfos()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLiteRepository) SeedCategories(ctx context.Context, infos []model.CategoryInfo) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for _, info := range infos {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name, priority, color, description)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET priority = excluded.priority, color = excluded.color, description = excluded.description`,
			string(info.Name), info.Priority, info.Color, info.Description,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("seed category %s: %w", info.Name, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]model.CategoryInfo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, priority, color, description FROM categories ORDER BY priority DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.CategoryInfo, 0)
	for rows.Next() {
		var info model.CategoryInfo
		var name string
		if err := rows.Scan(&name, &info.Priority, &info.Color, &info.Description); err != nil {
			return nil, err
		}
		info.Name = model.Category(name)
		out = append(out, info)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertUser(ctx context.Context, in User) error {
	if in.Timezone == "" {
		in.Timezone = planner.DefaultTimezone
	}
	if _, err := time.LoadLocation(in.Timezone); err != nil {
		return fmt.Errorf("storage: invalid timezone %q: %w", in.Timezone, err)
	}
	if in.DefaultDurationMinutes <= 0 {
		in.DefaultDurationMinutes = 60
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, timezone, default_event_duration, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, timezone = excluded.timezone, default_event_duration = excluded.default_event_duration`,
		in.ID, in.Name, in.Timezone, in.DefaultDurationMinutes, mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (User, error) {
	var out User
	var created string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, timezone, default_event_duration, created_at
		FROM users WHERE id = ?`, id).Scan(&out.ID, &out.Name, &out.Timezone, &out.DefaultDurationMinutes, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	out.CreatedAt, err = parseRequiredTime(created)
	if err != nil {
		return User{}, err
	}
	return out, nil
}

// Settings returns zero settings for unknown owners so the planner applies
// its own defaults.
func (r *SQLiteRepository) Settings(ctx context.Context, owner string) (planner.Settings, error) {
	u, err := r.GetUser(ctx, owner)
	if errors.Is(err, ErrNotFound) {
		return planner.Settings{}, nil
	}
	if err != nil {
		return planner.Settings{}, err
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return planner.Settings{}, fmt.Errorf("storage: user %s timezone: %w", owner, err)
	}
	return planner.Settings{Location: loc, DefaultDuration: time.Duration(u.DefaultDurationMinutes) * time.Minute}, nil
}

// location is the owner's timezone, or UTC when the owner is unknown.
func (r *SQLiteRepository) location(ctx context.Context, owner string) (*time.Location, error) {
	s, err := r.Settings(ctx, owner)
	if err != nil {
		return nil, err
	}
	if s.Location == nil {
		return time.UTC, nil
	}
	return s.Location, nil
}

func (r *SQLiteRepository) GetEvent(ctx context.Context, owner, id string) (model.Event, error) {
	loc, err := r.location(ctx, owner)
	if err != nil {
		return model.Event{}, err
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ? AND owner_id = ?`, id, owner)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, err
	}
	return ev.In(loc), nil
}

func (r *SQLiteRepository) ListEvents(ctx context.Context, owner string, from, to time.Time) ([]model.Event, error) {
	return r.queryEvents(ctx, owner, `
		SELECT `+eventColumns+` FROM events
		WHERE owner_id = ? AND start_at < ? AND end_at > ?
		ORDER BY start_at ASC, id ASC`,
		owner, mustTime(to), mustTime(from),
	)
}

func (r *SQLiteRepository) RecentEvents(ctx context.Context, owner string, limit int) ([]model.Event, error) {
	args := []any{owner}
	query := `SELECT ` + eventColumns + ` FROM events WHERE owner_id = ? ORDER BY start_at DESC, id ASC`
	query += applyPagination(&args, limit, 0)
	return r.queryEvents(ctx, owner, query, args...)
}

func (r *SQLiteRepository) queryEvents(ctx context.Context, owner, query string, args ...any) ([]model.Event, error) {
	loc, err := r.location(ctx, owner)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Event, 0)
	for rows.Next() {
		ev, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, ev.In(loc))
	}
	return out, rows.Err()
}

// Apply writes the whole batch in one transaction. Any failure rolls back
// every statement of the batch.
func (r *SQLiteRepository) Apply(ctx context.Context, owner string, b planner.Batch) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	at := b.At
	if at.IsZero() {
		at = time.Now()
	}
	for _, ev := range b.Created {
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if err = checkOwner(owner, ev); err != nil {
			return err
		}
		if err = insertEvent(ctx, tx, owner, ev, at); err != nil {
			return fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
	}
	for _, ev := range b.Updated {
		if err = checkOwner(owner, ev); err != nil {
			return err
		}
		if err = updateEvent(ctx, tx, owner, ev, at); err != nil {
			return fmt.Errorf("update event %s: %w", ev.ID, err)
		}
	}
	for _, ev := range b.Deleted {
		if err = deleteEvent(ctx, tx, owner, ev.ID); err != nil {
			return fmt.Errorf("delete event %s: %w", ev.ID, err)
		}
	}
	for _, a := range b.Audit {
		if err = insertAudit(ctx, tx, owner, a, at); err != nil {
			return fmt.Errorf("insert audit: %w", err)
		}
	}
	return tx.Commit()
}

func checkOwner(owner string, ev model.Event) error {
	if ev.OwnerID != "" && ev.OwnerID != owner {
		return fmt.Errorf("event %s: %w", ev.ID, model.ErrOwnerMismatch)
	}
	return nil
}

func insertEvent(ctx context.Context, db execer, owner string, ev model.Event, at time.Time) error {
	created := ev.CreatedAt
	if created.IsZero() {
		created = at
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, owner, ev.Title, ev.Description, string(ev.Category), mustTime(ev.Start), mustTime(ev.End),
		boolInt(ev.Flexible), boolInt(ev.Completed), mustTime(created), mustTime(at),
	)
	return err
}

func updateEvent(ctx context.Context, db execer, owner string, ev model.Event, at time.Time) error {
	res, err := db.ExecContext(ctx, `
		UPDATE events
		SET title = ?, description = ?, category = ?, start_at = ?, end_at = ?, flexible = ?, completed = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		ev.Title, ev.Description, string(ev.Category), mustTime(ev.Start), mustTime(ev.End),
		boolInt(ev.Flexible), boolInt(ev.Completed), mustTime(at), ev.ID, owner,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func deleteEvent(ctx context.Context, db execer, owner, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM events WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func insertAudit(ctx context.Context, db execer, owner string, a scheduler.AuditEntry, at time.Time) error {
	before, err := eventJSON(a.Before)
	if err != nil {
		return err
	}
	after, err := eventJSON(a.After)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO audit_log (id, owner_id, actor, action, event_id, before_json, after_json, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), owner, a.Actor, a.Action, a.EventID, before, after, a.Reason, mustTime(at),
	)
	return err
}

func eventJSON(ev *model.Event) (any, error) {
	if ev == nil {
		return nil, nil
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (r *SQLiteRepository) ListAudit(ctx context.Context, filter AuditListFilter) ([]AuditRecord, error) {
	query := `SELECT id, owner_id, actor, action, event_id, before_json, after_json, reason, created_at FROM audit_log`
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filter.OwnerID != "" {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.EventID != "" {
		clauses = append(clauses, "event_id = ?")
		args = append(args, filter.EventID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at ASC, rowid ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]AuditRecord, 0)
	for rows.Next() {
		var rec AuditRecord
		var before, after sql.NullString
		var created string
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.Actor, &rec.Action, &rec.EventID, &before, &after, &rec.Reason, &created); err != nil {
			return nil, err
		}
		rec.Before, rec.After = before.String, after.String
		if rec.CreatedAt, err = parseRequiredTime(created); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AppendConversation(ctx context.Context, owner, message, response, kind string, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, owner_id, message, response, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), owner, message, response, kind, mustTime(at),
	)
	return err
}

// ListConversations returns the newest turns first.
func (r *SQLiteRepository) ListConversations(ctx context.Context, filter ConversationListFilter) ([]ConversationTurn, error) {
	query := `SELECT id, owner_id, message, response, kind, created_at FROM conversations`
	args := make([]any, 0, 3)
	if filter.OwnerID != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ConversationTurn, 0)
	for rows.Next() {
		var turn ConversationTurn
		var created string
		if err := rows.Scan(&turn.ID, &turn.OwnerID, &turn.Message, &turn.Response, &turn.Kind, &created); err != nil {
			return nil, err
		}
		if turn.CreatedAt, err = parseRequiredTime(created); err != nil {
			return nil, err
		}
		out = append(out, turn)
	}
	return out, rows.Err()
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			sql += " LIMIT -1"
		}
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (model.Event, error) {
	var out model.Event
	var category, start, end, created, updated string
	var flexible, completed int
	if err := s.Scan(&out.ID, &out.OwnerID, &out.Title, &out.Description, &category, &start, &end, &flexible, &completed, &created, &updated); err != nil {
		return model.Event{}, err
	}
	var err error
	if out.Start, err = parseRequiredTime(start); err != nil {
		return model.Event{}, err
	}
	if out.End, err = parseRequiredTime(end); err != nil {
		return model.Event{}, err
	}
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return model.Event{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return model.Event{}, err
	}
	out.Category = model.Category(category)
	out.Flexible = flexible == 1
	out.Completed = completed == 1
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
