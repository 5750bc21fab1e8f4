package storage

import (
	"context"
	"errors"

	"github.com/sandeepkv93/phantom/internal/model"
	"github.com/sandeepkv93/phantom/internal/planner"
)

var ErrNotFound = errors.New("storage: not found")

// Repository is the full persistence surface. It is a superset of the
// planner's Store and History.
type Repository interface {
	planner.Store
	planner.History

	SeedCategories(ctx context.Context, infos []model.CategoryInfo) error
	ListCategories(ctx context.Context) ([]model.CategoryInfo, error)

	UpsertUser(ctx context.Context, in User) error
	GetUser(ctx context.Context, id string) (User, error)

	GetEvent(ctx context.Context, owner, id string) (model.Event, error)

	ListAudit(ctx context.Context, filter AuditListFilter) ([]AuditRecord, error)
	ListConversations(ctx context.Context, filter ConversationListFilter) ([]ConversationTurn, error)
}

var _ Repository = (*SQLiteRepository)(nil)
