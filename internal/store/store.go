package store

import (
	"context"
	"errors"

	"github.com/user/movie-bot-go/internal/model"
)

var (
	// ErrDuplicateID is returned when an item ID is already taken
	ErrDuplicateID = errors.New("item id already exists")
	// ErrUnknownRelation is returned for an unsupported relation kind
	ErrUnknownRelation = errors.New("unknown relation kind")
)

// Store defines the interface for data persistence operations.
// Lookups of absent records return nil, nil.
type Store interface {
	// User operations
	UpsertUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUser(ctx context.Context, userID int64) (*model.User, error)
	UpdateLanguage(ctx context.Context, userID int64, lang model.Language) error
	UpdateSubscription(ctx context.Context, userID int64, subscribed bool) error
	UpdatePhone(ctx context.Context, userID int64, phone string) error
	ListUsers(ctx context.Context, limit int) ([]*model.User, error)
	CountUsers(ctx context.Context) (int64, error)

	// Item operations
	CreateItem(ctx context.Context, item *model.Item) error
	GetItem(ctx context.Context, itemID string) (*model.Item, error)
	ListItems(ctx context.Context, limit int) ([]*model.Item, error)
	SearchItems(ctx context.Context, query string, limit int) ([]*model.Item, error)
	CountItems(ctx context.Context) (int64, error)
	DeleteItem(ctx context.Context, itemID string) (bool, error)

	// Relation operations
	AddWatchLater(ctx context.Context, userID int64, itemID string) (bool, error)
	RemoveWatchLater(ctx context.Context, userID int64, itemID string) (bool, error)
	MarkWatched(ctx context.Context, userID int64, itemID string) (bool, error)
	ListRelated(ctx context.Context, userID int64, kind model.RelationKind, limit int) ([]*model.Item, error)
	CountRelated(ctx context.Context, userID int64, kind model.RelationKind) (int64, error)

	// Health check
	Ping(ctx context.Context) error
	Close() error
}
