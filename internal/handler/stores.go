package handler

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sweetshop/api/internal/model"
	"github.com/sweetshop/api/internal/queue"
	"github.com/sweetshop/api/internal/repository"
)

// The handlers depend on these narrow store interfaces rather than the
// MongoDB repositories directly, so tests can swap in in-memory fakes. The
// concrete implementations live in internal/repository.

// UserStore persists customer principals.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	AppendRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
	RemoveRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
	ClearRefreshTokens(ctx context.Context, id primitive.ObjectID) error
}

// AdminStore persists staff principals.
type AdminStore interface {
	Create(ctx context.Context, a *model.Admin) error
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	GetByID(ctx context.Context, id string) (*model.Admin, error)
	List(ctx context.Context, q repository.AdminListQuery) ([]model.Admin, int64, error)
	UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	SetLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) (*model.Admin, error)
	AppendRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
	RemoveRefreshToken(ctx context.Context, id primitive.ObjectID, token string) error
	ClearRefreshTokens(ctx context.Context, id primitive.ObjectID) error
}

// SweetStore persists catalog entries.
type SweetStore interface {
	List(ctx context.Context, q repository.ListQuery) ([]model.Sweet, int64, error)
	Search(ctx context.Context, q repository.SearchQuery) ([]model.Sweet, int64, error)
	ByCategory(ctx context.Context, category, sortBy, sortOrder string, page, limit int) ([]model.Sweet, int64, error)
	Featured(ctx context.Context, limit int) ([]model.Sweet, error)
	Discounted(ctx context.Context, page, limit int) ([]model.Sweet, int64, error)
	GetByID(ctx context.Context, id string) (*model.Sweet, error)
	SetViews(ctx context.Context, id primitive.ObjectID, views int64) error
	Insert(ctx context.Context, s *model.Sweet) error
	Replace(ctx context.Context, s *model.Sweet) error
	Delete(ctx context.Context, id string) error
	Categories(ctx context.Context) ([]repository.CategoryCount, error)
	Stats(ctx context.Context) (repository.StatsOverview, []repository.CategoryStats, error)
}

// EventPublisher pushes catalog domain events to the message broker.
// A nil publisher disables events entirely.
type EventPublisher interface {
	PublishSweetCreated(ctx context.Context, ev queue.SweetCreatedEvent) error
	PublishReviewAdded(ctx context.Context, ev queue.ReviewAddedEvent) error
}
