package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/phantom/internal/model"
	"github.com/sandeepkv93/phantom/internal/planner"
)

func TestMigrateRoundTripCompatibility(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate-roundtrip.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first migrate up failed: %v", err)
	}
	if err := MigrateDown(db); err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Fatalf("second migrate up failed: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	if err := repo.SeedCategories(t.Context(), model.DefaultCategoryInfos()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	start := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	ev := model.Event{ID: "ev-rt-1", OwnerID: "u", Title: "Roundtrip", Category: model.CategoryStudy, Start: start, End: start.Add(time.Hour)}
	if err := repo.Apply(t.Context(), "u", planner.Batch{Created: []model.Event{ev}}); err != nil {
		t.Fatalf("insert after roundtrip failed: %v", err)
	}

	got, err := repo.GetEvent(t.Context(), "u", "ev-rt-1")
	if err != nil {
		t.Fatalf("get after roundtrip failed: %v", err)
	}
	if got.Title != "Roundtrip" {
		t.Fatalf("unexpected title after roundtrip: %q", got.Title)
	}
}
