// Package catalog serves catalog queries, per-user relations and the
// admin add/delete operations on top of a store.
package catalog

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/rs/zerolog"
	"github.com/user/movie-bot-go/internal/access"
	"github.com/user/movie-bot-go/internal/model"
	"github.com/user/movie-bot-go/internal/store"
)

// MaxResults bounds how many items any single query returns
const MaxResults = 10

// maxIDAttempts bounds identifier draws when adding an item
const maxIDAttempts = 5

var (
	// ErrNotAdmin is returned when a non-administrator mutates the catalog
	ErrNotAdmin = errors.New("user is not an administrator")
	// ErrInvalidDraft is returned for an incomplete item draft
	ErrInvalidDraft = errors.New("invalid item draft")
	// ErrIDExhausted is returned when no free identifier was drawn
	ErrIDExhausted = errors.New("failed to generate a unique item id")
)

// Outcome is the result of a relation mutation
type Outcome int

const (
	// Applied means the relation changed
	Applied Outcome = iota
	// Unchanged means the relation already had the requested shape
	Unchanged
	// Failed means the mutation was rejected or the store failed
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Unchanged:
		return "unchanged"
	default:
		return "failed"
	}
}

// Draft holds the fields an administrator supplies for a new item
type Draft struct {
	Title       string
	Description string
	Genre       string
	Year        int
	MediaRef    string
	MediaKind   model.MediaKind
}

// Validate checks the required fields of a draft
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrInvalidDraft)
	}
	if d.MediaRef == "" {
		return fmt.Errorf("%w: missing media", ErrInvalidDraft)
	}
	if d.MediaKind != model.MediaVideo && d.MediaKind != model.MediaDocument {
		return fmt.Errorf("%w: unsupported media kind %q", ErrInvalidDraft, d.MediaKind)
	}
	return nil
}

// IDGenerator draws a candidate item identifier
type IDGenerator func() (string, error)

// RandomID draws an identifier uniformly from the item alphabet
func RandomID() (string, error) {
	alphabet := model.ItemIDAlphabet
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, model.ItemIDLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Service is the catalog query and mutation service
type Service struct {
	store  store.Store
	policy access.Policy
	newID  IDGenerator
}

// NewService creates a new catalog service
func NewService(s store.Store, policy access.Policy) *Service {
	return &Service{
		store:  s,
		policy: policy,
		newID:  RandomID,
	}
}

// SetIDGenerator replaces the identifier source
func (s *Service) SetIDGenerator(gen IDGenerator) {
	s.newID = gen
}

// ListAll returns the newest items
func (s *Service) ListAll(ctx context.Context) ([]*model.Item, error) {
	items, err := s.store.ListItems(ctx, MaxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// Get looks an item up by a typed token.
// Tokens that cannot be identifiers return nil, nil.
func (s *Service) Get(ctx context.Context, token string) (*model.Item, error) {
	id := strings.ToUpper(strings.TrimSpace(token))
	if !model.IsValidItemID(id) {
		return nil, nil
	}
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", id, err)
	}
	return item, nil
}

// Search matches title, description and genre case-insensitively.
// An empty query matches nothing.
func (s *Service) Search(ctx context.Context, query string) ([]*model.Item, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	items, err := s.store.SearchItems(ctx, query, MaxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	return items, nil
}

// ListForUser returns a user's related items, most recent relation first
func (s *Service) ListForUser(ctx context.Context, userID int64, kind model.RelationKind) ([]*model.Item, error) {
	items, err := s.store.ListRelated(ctx, userID, kind, MaxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s for user %d: %w", kind, userID, err)
	}
	return items, nil
}

// AddRelation records a relation. Repeats are Unchanged; a first watch
// also counts one view.
func (s *Service) AddRelation(ctx context.Context, userID int64, itemID string, kind model.RelationKind) Outcome {
	logger := zerolog.Ctx(ctx)

	var (
		created bool
		err     error
	)
	switch kind {
	case model.RelationWatchLater:
		created, err = s.store.AddWatchLater(ctx, userID, itemID)
	case model.RelationWatched:
		created, err = s.store.MarkWatched(ctx, userID, itemID)
	default:
		err = store.ErrUnknownRelation
	}

	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Str("itemID", itemID).Str("relation", string(kind)).Msg("Failed to add relation")
		return Failed
	}
	if !created {
		return Unchanged
	}
	return Applied
}

// RemoveRelation deletes a watch-later relation. Watched history is
// append-only and cannot be removed.
func (s *Service) RemoveRelation(ctx context.Context, userID int64, itemID string, kind model.RelationKind) Outcome {
	logger := zerolog.Ctx(ctx)

	if kind != model.RelationWatchLater {
		logger.Warn().Int64("userID", userID).Str("itemID", itemID).Str("relation", string(kind)).Msg("Rejected removal of append-only relation")
		return Failed
	}

	removed, err := s.store.RemoveWatchLater(ctx, userID, itemID)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Str("itemID", itemID).Msg("Failed to remove relation")
		return Failed
	}
	if !removed {
		return Unchanged
	}
	return Applied
}

// AddItem stores a new item under a fresh identifier
func (s *Service) AddItem(ctx context.Context, adminID int64, draft Draft) (*model.Item, error) {
	if !s.policy.IsAdmin(adminID) {
		return nil, ErrNotAdmin
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	logger := zerolog.Ctx(ctx)
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return nil, err
		}

		item := &model.Item{
			ID:          id,
			Title:       strings.TrimSpace(draft.Title),
			Description: strings.TrimSpace(draft.Description),
			Genre:       strings.TrimSpace(draft.Genre),
			Year:        draft.Year,
			MediaRef:    draft.MediaRef,
			MediaKind:   draft.MediaKind,
			AddedBy:     adminID,
		}

		err = s.store.CreateItem(ctx, item)
		if errors.Is(err, store.ErrDuplicateID) {
			logger.Warn().Str("itemID", id).Int("attempt", attempt).Msg("Item ID collision, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create item: %w", err)
		}

		logger.Info().Str("itemID", id).Int64("adminID", adminID).Str("title", item.Title).Msg("Item added")
		return item, nil
	}
	return nil, ErrIDExhausted
}

// DeleteItem removes an item and every relation pointing at it.
// It reports whether the item existed.
func (s *Service) DeleteItem(ctx context.Context, adminID int64, token string) (bool, error) {
	if !s.policy.IsAdmin(adminID) {
		return false, ErrNotAdmin
	}
	id := strings.ToUpper(strings.TrimSpace(token))
	if !model.IsValidItemID(id) {
		return false, nil
	}

	deleted, err := s.store.DeleteItem(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	if deleted {
		zerolog.Ctx(ctx).Info().Str("itemID", id).Int64("adminID", adminID).Msg("Item deleted")
	}
	return deleted, nil
}

// Totals returns the user and item counts
func (s *Service) Totals(ctx context.Context) (users, items int64, err error) {
	users, err = s.store.CountUsers(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count users: %w", err)
	}
	items, err = s.store.CountItems(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count items: %w", err)
	}
	return users, items, nil
}

// UserStats returns how many items a user watched and saved for later
func (s *Service) UserStats(ctx context.Context, userID int64) (watched, later int64, err error) {
	watched, err = s.store.CountRelated(ctx, userID, model.RelationWatched)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count watched: %w", err)
	}
	later, err = s.store.CountRelated(ctx, userID, model.RelationWatchLater)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count watch later: %w", err)
	}
	return watched, later, nil
}

// RecentUsers returns the most recently registered users
func (s *Service) RecentUsers(ctx context.Context, limit int) ([]*model.User, error) {
	users, err := s.store.ListUsers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}
