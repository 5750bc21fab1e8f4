package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/phantom/internal/model"
	"github.com/sandeepkv93/phantom/internal/planner"
	"github.com/sandeepkv93/phantom/internal/scheduler"
)

const owner = "user-1"

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "phantom-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	if err := repo.SeedCategories(t.Context(), model.DefaultCategoryInfos()); err != nil {
		t.Fatalf("seed categories: %v", err)
	}
	return repo
}

func parseRFC3339(t *testing.T, value string) time.Time {
	t.Helper()
	out, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return out
}

func event(id, title string, cat model.Category, start time.Time, d time.Duration) model.Event {
	return model.Event{ID: id, OwnerID: owner, Title: title, Category: cat, Start: start, End: start.Add(d), Flexible: true}
}

func TestEventBatchLifecycle(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	if err := repo.UpsertUser(ctx, User{ID: owner, Name: "Ada", Timezone: "Asia/Dhaka"}); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	at := parseRFC3339(t, "2026-02-09T12:00:00Z")
	gym := event("ev-1", "Gym", model.CategoryGym, parseRFC3339(t, "2026-02-10T12:00:00Z"), time.Hour)
	study := event("ev-2", "Study", model.CategoryStudy, parseRFC3339(t, "2026-02-10T14:00:00Z"), 2*time.Hour)

	if err := repo.Apply(ctx, owner, planner.Batch{At: at, Created: []model.Event{study, gym}}); err != nil {
		t.Fatalf("apply create: %v", err)
	}

	listed, err := repo.ListEvents(ctx, owner, parseRFC3339(t, "2026-02-10T00:00:00Z"), parseRFC3339(t, "2026-02-11T00:00:00Z"))
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != "ev-1" || listed[1].ID != "ev-2" {
		t.Fatalf("unexpected list order: %#v", listed)
	}
	if got := listed[0].Start.Location().String(); got != "Asia/Dhaka" {
		t.Fatalf("expected events in owner timezone, got %s", got)
	}
	if got := listed[0].Start.Format("15:04"); got != "18:00" {
		t.Fatalf("expected 18:00 local, got %s", got)
	}
	if !listed[0].CreatedAt.Equal(at) || !listed[0].Flexible {
		t.Fatalf("unexpected stored fields: %#v", listed[0])
	}

	// Touching the window edge does not count as overlap.
	edge, err := repo.ListEvents(ctx, owner, parseRFC3339(t, "2026-02-10T13:00:00Z"), parseRFC3339(t, "2026-02-10T14:00:00Z"))
	if err != nil {
		t.Fatalf("list edge: %v", err)
	}
	if len(edge) != 0 {
		t.Fatalf("expected no events in touching window, got %#v", edge)
	}

	moved := gym.Shift(parseRFC3339(t, "2026-02-11T12:00:00Z"))
	if err := repo.Apply(ctx, owner, planner.Batch{At: at, Updated: []model.Event{moved}, Deleted: []model.Event{{ID: "ev-2"}}}); err != nil {
		t.Fatalf("apply update: %v", err)
	}
	got, err := repo.GetEvent(ctx, owner, "ev-1")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if !got.Start.Equal(moved.Start) || got.Duration() != time.Hour {
		t.Fatalf("unexpected moved event: %#v", got)
	}
	if _, err := repo.GetEvent(ctx, owner, "ev-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted event to be gone, got %v", err)
	}
	if _, err := repo.GetEvent(ctx, "someone-else", "ev-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other owners not to see the event, got %v", err)
	}
}

func TestApplyRollsBackWholeBatch(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	start := parseRFC3339(t, "2026-02-10T12:00:00Z")
	keep := event("keep", "Keep", model.CategoryGym, start, time.Hour)
	if err := repo.Apply(ctx, owner, planner.Batch{Created: []model.Event{keep}}); err != nil {
		t.Fatalf("seed event: %v", err)
	}

	cases := map[string]planner.Batch{
		"missing update": {
			Created: []model.Event{event("new-1", "New", model.CategorySocial, start.Add(3*time.Hour), time.Hour)},
			Deleted: []model.Event{{ID: "keep"}},
			Updated: []model.Event{event("missing", "Missing", model.CategoryGym, start, time.Hour)},
		},
		"unknown category": {
			Deleted: []model.Event{{ID: "keep"}},
			Created: []model.Event{
				event("new-2", "Ok", model.CategorySocial, start.Add(5*time.Hour), time.Hour),
				event("new-3", "Chess", model.Category("Chess"), start.Add(7*time.Hour), time.Hour),
			},
		},
		"inverted interval": {
			Created: []model.Event{
				event("new-4", "Ok", model.CategorySocial, start.Add(5*time.Hour), time.Hour),
				event("new-5", "Backwards", model.CategoryGym, start.Add(9*time.Hour), -time.Hour),
			},
		},
	}
	for name, batch := range cases {
		batch.Audit = []scheduler.AuditEntry{{Actor: "test", Action: scheduler.ActionCreate, EventID: "x"}}
		if err := repo.Apply(ctx, owner, batch); err == nil {
			t.Fatalf("%s: expected apply to fail", name)
		}
		events, err := repo.RecentEvents(ctx, owner, 0)
		if err != nil {
			t.Fatalf("%s: recent: %v", name, err)
		}
		if len(events) != 1 || events[0].ID != "keep" {
			t.Fatalf("%s: batch was partially applied: %#v", name, events)
		}
		audit, err := repo.ListAudit(ctx, AuditListFilter{OwnerID: owner})
		if err != nil {
			t.Fatalf("%s: list audit: %v", name, err)
		}
		if len(audit) != 0 {
			t.Fatalf("%s: audit rows survived rollback: %#v", name, audit)
		}
	}
}

func TestApplyRejectsForeignEvents(t *testing.T) {
	repo := setupRepo(t)
	ev := event("ev-1", "Gym", model.CategoryGym, parseRFC3339(t, "2026-02-10T12:00:00Z"), time.Hour)
	ev.OwnerID = "intruder"
	err := repo.Apply(t.Context(), owner, planner.Batch{Created: []model.Event{ev}})
	if !errors.Is(err, model.ErrOwnerMismatch) {
		t.Fatalf("expected owner mismatch, got %v", err)
	}
}

func TestApplyAssignsIDs(t *testing.T) {
	repo := setupRepo(t)
	ev := event("", "Gym", model.CategoryGym, parseRFC3339(t, "2026-02-10T12:00:00Z"), time.Hour)
	if err := repo.Apply(t.Context(), owner, planner.Batch{Created: []model.Event{ev}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, err := repo.RecentEvents(t.Context(), owner, 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || len(got[0].ID) != 36 {
		t.Fatalf("expected a generated uuid, got %#v", got)
	}
}

func TestRecentEventsSortsSubSecondStarts(t *testing.T) {
	repo := setupRepo(t)
	base := parseRFC3339(t, "2026-02-10T10:00:00Z")
	batch := planner.Batch{Created: []model.Event{
		event("a", "A", model.CategoryGym, base, time.Minute),
		event("b", "B", model.CategoryGym, base.Add(500*time.Millisecond), time.Minute),
		event("c", "C", model.CategoryGym, base.Add(-time.Second), time.Minute),
	}}
	if err := repo.Apply(t.Context(), owner, batch); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, err := repo.RecentEvents(t.Context(), owner, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("unexpected order: %#v", got)
	}
}

func TestSettingsAndUsers(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	s, err := repo.Settings(ctx, "nobody")
	if err != nil {
		t.Fatalf("settings for unknown owner: %v", err)
	}
	if s.Location != nil || s.DefaultDuration != 0 {
		t.Fatalf("expected zero settings, got %#v", s)
	}

	if err := repo.UpsertUser(ctx, User{ID: owner, Timezone: "Mars/Olympus"}); err == nil {
		t.Fatalf("expected invalid timezone to be rejected")
	}
	if err := repo.UpsertUser(ctx, User{ID: owner, Name: "Ada"}); err != nil {
		t.Fatalf("upsert default user: %v", err)
	}
	if err := repo.UpsertUser(ctx, User{ID: owner, Name: "Ada L", Timezone: "Europe/London", DefaultDurationMinutes: 45}); err != nil {
		t.Fatalf("upsert user again: %v", err)
	}
	u, err := repo.GetUser(ctx, owner)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Name != "Ada L" || u.Timezone != "Europe/London" {
		t.Fatalf("unexpected user: %#v", u)
	}
	s, err = repo.Settings(ctx, owner)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.Location.String() != "Europe/London" || s.DefaultDuration != 45*time.Minute {
		t.Fatalf("unexpected settings: %#v", s)
	}
}

func TestCategoriesSeedIsIdempotent(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	infos := model.DefaultCategoryInfos()
	infos[0].Color = "#AA0000"
	if err := repo.SeedCategories(ctx, infos); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	got, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(got) != 5 || got[0].Name != model.CategoryExam || got[0].Color != "#AA0000" || got[4].Name != model.CategoryGaming {
		t.Fatalf("unexpected categories: %#v", got)
	}
}

func TestAuditAndConversationHistory(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	at := parseRFC3339(t, "2026-02-09T12:00:00Z")
	before := event("ev-1", "Gym", model.CategoryGym, parseRFC3339(t, "2026-02-10T12:00:00Z"), time.Hour)
	after := before.Shift(before.Start.Add(24 * time.Hour))

	batch := planner.Batch{
		At:      at,
		Created: []model.Event{before},
		Audit: []scheduler.AuditEntry{
			{Actor: "user", Action: scheduler.ActionCreate, EventID: "ev-1", After: &before},
			{Actor: "optimizer", Action: scheduler.ActionReschedule, EventID: "ev-1", Before: &before, After: &after, Reason: "conflicts with Study"},
		},
	}
	if err := repo.Apply(ctx, owner, batch); err != nil {
		t.Fatalf("apply: %v", err)
	}
	audit, err := repo.ListAudit(ctx, AuditListFilter{OwnerID: owner, EventID: "ev-1"})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(audit) != 2 || audit[0].Action != "create" || audit[0].Before != "" {
		t.Fatalf("unexpected audit: %#v", audit)
	}
	if !strings.Contains(audit[1].After, `"title":"Gym"`) || audit[1].Reason != "conflicts with Study" {
		t.Fatalf("unexpected reschedule audit: %#v", audit[1])
	}

	for i, msg := range []string{"gym tomorrow", "delete gym"} {
		if err := repo.AppendConversation(ctx, owner, msg, "ok", "created", at.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("append conversation: %v", err)
		}
	}
	turns, err := repo.ListConversations(ctx, ConversationListFilter{OwnerID: owner, Limit: 1})
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(turns) != 1 || turns[0].Message != "delete gym" {
		t.Fatalf("expected newest turn first, got %#v", turns)
	}
}

func TestOpenSQLiteMigratesAndSeeds(t *testing.T) {
	repo, err := OpenSQLite(t.Context(), filepath.Join(t.TempDir(), "open.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()
	cats, err := repo.ListCategories(t.Context())
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) != 5 {
		t.Fatalf("expected seeded categories, got %d", len(cats))
	}
}
