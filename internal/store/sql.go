package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/user/movie-bot-go/internal/config"
	"github.com/user/movie-bot-go/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLStore implements Store on a relational database through gorm
type SQLStore struct {
	db *gorm.DB
}

// New opens the store selected by cfg.Driver
func New(cfg *config.DBConfig) (Store, error) {
	if cfg.Driver == config.DriverMemory {
		return NewMemoryStore(), nil
	}
	return NewSQLStore(cfg)
}

// NewSQLStore creates a new MySQL or PostgreSQL store instance
func NewSQLStore(cfg *config.DBConfig) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.DSN())
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Auto migrate tables
	if err := db.AutoMigrate(&model.User{}, &model.Item{}, &model.WatchLater{}, &model.Watched{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// UpsertUser creates the user on first contact and refreshes display
// attributes afterwards. Language, phone and subscription are kept.
func (s *SQLStore) UpsertUser(ctx context.Context, user *model.User) (*model.User, error) {
	if user.Language == "" {
		user.Language = model.DefaultLanguage
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "updated_at"}),
	}).Create(user)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", result.Error)
	}

	return s.GetUser(ctx, user.ID)
}

// GetUser retrieves a user by Telegram ID
func (s *SQLStore) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	var user model.User
	result := s.db.WithContext(ctx).Where("id = ?", userID).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", result.Error)
	}
	return &user, nil
}

// UpdateLanguage sets a user's interface language
func (s *SQLStore) UpdateLanguage(ctx context.Context, userID int64, lang model.Language) error {
	result := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("language", lang)
	if result.Error != nil {
		return fmt.Errorf("failed to update language: %w", result.Error)
	}
	return nil
}

// UpdateSubscription stores the last known subscription status
func (s *SQLStore) UpdateSubscription(ctx context.Context, userID int64, subscribed bool) error {
	result := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("is_subscribed", subscribed)
	if result.Error != nil {
		return fmt.Errorf("failed to update subscription status: %w", result.Error)
	}
	return nil
}

// UpdatePhone stores a phone number shared by the user
func (s *SQLStore) UpdatePhone(ctx context.Context, userID int64, phone string) error {
	result := s.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Update("phone_number", phone)
	if result.Error != nil {
		return fmt.Errorf("failed to update phone number: %w", result.Error)
	}
	return nil
}

// ListUsers retrieves the most recently created users
func (s *SQLStore) ListUsers(ctx context.Context, limit int) ([]*model.User, error) {
	var users []*model.User
	result := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&users)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list users: %w", result.Error)
	}
	return users, nil
}

// CountUsers returns the total count of users
func (s *SQLStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&model.User{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count users: %w", result.Error)
	}
	return count, nil
}

// CreateItem saves a new catalog item.
// Returns ErrDuplicateID if the identifier is already taken.
func (s *SQLStore) CreateItem(ctx context.Context, item *model.Item) error {
	item.Views = 0

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(item)

	if result.Error != nil {
		return fmt.Errorf("failed to save item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateID
	}

	return nil
}

// GetItem retrieves an item by its identifier
func (s *SQLStore) GetItem(ctx context.Context, itemID string) (*model.Item, error) {
	var item model.Item
	result := s.db.WithContext(ctx).Where("id = ?", itemID).First(&item)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item: %w", result.Error)
	}
	return &item, nil
}

// ListItems retrieves the newest items
// Ordered by created_at DESC
func (s *SQLStore) ListItems(ctx context.Context, limit int) ([]*model.Item, error) {
	var items []*model.Item
	result := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&items)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list items: %w", result.Error)
	}
	return items, nil
}

// SearchItems finds items whose title, description or genre contains
// query, ignoring case. An empty query matches nothing.
func (s *SQLStore) SearchItems(ctx context.Context, query string, limit int) ([]*model.Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var items []*model.Item
	searchPattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	result := s.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(genre) LIKE ?",
			searchPattern, searchPattern, searchPattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&items)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to search items: %w", result.Error)
	}
	return items, nil
}

// CountItems returns the total count of items
func (s *SQLStore) CountItems(ctx context.Context) (int64, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&model.Item{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count items: %w", result.Error)
	}
	return count, nil
}

// DeleteItem removes an item together with its relation rows.
// Returns false if no such item existed.
func (s *SQLStore) DeleteItem(ctx context.Context, itemID string) (bool, error) {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", itemID).Delete(&model.WatchLater{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", itemID).Delete(&model.Watched{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", itemID).Delete(&model.Item{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete item: %w", err)
	}
	return deleted, nil
}

// AddWatchLater bookmarks an item for a user.
// Returns false if the bookmark already existed.
func (s *SQLStore) AddWatchLater(ctx context.Context, userID int64, itemID string) (bool, error) {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&model.WatchLater{UserID: userID, ItemID: itemID})
	if result.Error != nil {
		return false, fmt.Errorf("failed to add watch later: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RemoveWatchLater deletes a bookmark.
// Returns false if there was nothing to remove.
func (s *SQLStore) RemoveWatchLater(ctx context.Context, userID int64, itemID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		Delete(&model.WatchLater{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to remove watch later: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkWatched records that a user watched an item. The first record for
// a pair increments the item's view counter in the same transaction; the
// unique index on (user_id, item_id) makes concurrent first watches
// collapse into one insert. Returns true only for the first watch.
func (s *SQLStore) MarkWatched(ctx context.Context, userID int64, itemID string) (bool, error) {
	var first bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.Watched{UserID: userID, ItemID: itemID})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		first = true
		return tx.Model(&model.Item{}).
			Where("id = ?", itemID).
			UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark watched: %w", err)
	}
	return first, nil
}

// ListRelated retrieves a user's items for a relation kind
// Ordered by relation created_at DESC
func (s *SQLStore) ListRelated(ctx context.Context, userID int64, kind model.RelationKind, limit int) ([]*model.Item, error) {
	table, ok := model.TableFor(kind)
	if !ok {
		return nil, ErrUnknownRelation
	}

	var items []*model.Item
	result := s.db.WithContext(ctx).
		Model(&model.Item{}).
		Select("items.*").
		Joins(fmt.Sprintf("JOIN %s r ON r.item_id = items.id", table)).
		Where("r.user_id = ?", userID).
		Order("r.created_at DESC").
		Limit(limit).
		Find(&items)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list %s items: %w", kind, result.Error)
	}
	return items, nil
}

// CountRelated returns how many items a user has for a relation kind
func (s *SQLStore) CountRelated(ctx context.Context, userID int64, kind model.RelationKind) (int64, error) {
	table, ok := model.TableFor(kind)
	if !ok {
		return 0, ErrUnknownRelation
	}

	var count int64
	result := s.db.WithContext(ctx).Table(table).Where("user_id = ?", userID).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count %s items: %w", kind, result.Error)
	}
	return count, nil
}

// Ping checks database connectivity
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying db: %w", err)
	}
	return sqlDB.Close()
}

// DB returns the underlying gorm.DB instance (for testing purposes)
func (s *SQLStore) DB() *gorm.DB {
	return s.db
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes LIKE wildcards in user input match literally
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
