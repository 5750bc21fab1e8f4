package planner

import (
	"context"
	"time"

	"github.com/sandeepkv93/phantom/internal/model"
	"github.com/sandeepkv93/phantom/internal/scheduler"
)

// Settings are the per-owner preferences the planner needs. A zero Location
// or DefaultDuration falls back to the planner's defaults.
type Settings struct {
	Location        *time.Location
	DefaultDuration time.Duration
}

// Batch is every mutation produced by one request. Stores apply it
// atomically: all of it or none of it.
type Batch struct {
	At      time.Time
	Created []model.Event
	Updated []model.Event
	Deleted []model.Event
	Audit   []scheduler.AuditEntry
}

func (b Batch) Empty() bool {
	return len(b.Created) == 0 && len(b.Updated) == 0 && len(b.Deleted) == 0
}

type Store interface {
	// ListEvents returns the owner's events overlapping [from, to).
	ListEvents(ctx context.Context, owner string, from, to time.Time) ([]model.Event, error)
	// RecentEvents returns up to limit events, newest start first.
	RecentEvents(ctx context.Context, owner string, limit int) ([]model.Event, error)
	Apply(ctx context.Context, owner string, b Batch) error
	Settings(ctx context.Context, owner string) (Settings, error)
}

// History is implemented by stores that keep a conversation log.
type History interface {
	AppendConversation(ctx context.Context, owner, message, response, kind string, at time.Time) error
}
