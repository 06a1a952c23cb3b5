package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/movie-bot-go/internal/model"
)

type relationKey struct {
	userID int64
	itemID string
}

type relationRecord struct {
	seq       uint64
	createdAt time.Time
}

type itemRecord struct {
	item model.Item
	seq  uint64
}

type userRecord struct {
	user model.User
	seq  uint64
}

// MemoryStore implements Store in process memory. Records are ordered by
// an insertion sequence, so ties in wall-clock time keep creation order.
// Contents are lost on restart.
type MemoryStore struct {
	mu         sync.RWMutex
	seq        uint64
	users      map[int64]*userRecord
	items      map[string]*itemRecord
	watchLater map[relationKey]relationRecord
	watched    map[relationKey]relationRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[int64]*userRecord),
		items:      make(map[string]*itemRecord),
		watchLater: make(map[relationKey]relationRecord),
		watched:    make(map[relationKey]relationRecord),
	}
}

func (m *MemoryStore) next() uint64 {
	m.seq++
	return m.seq
}

func (m *MemoryStore) UpsertUser(ctx context.Context, user *model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if rec, ok := m.users[user.ID]; ok {
		rec.user.Username = user.Username
		rec.user.FirstName = user.FirstName
		rec.user.LastName = user.LastName
		rec.user.UpdatedAt = now
		u := rec.user
		return &u, nil
	}

	u := *user
	if u.Language == "" {
		u.Language = model.DefaultLanguage
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	m.users[u.ID] = &userRecord{user: u, seq: m.next()}
	return &u, nil
}

func (m *MemoryStore) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	u := rec.user
	return &u, nil
}

func (m *MemoryStore) updateUser(userID int64, fn func(u *model.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.users[userID]; ok {
		fn(&rec.user)
		rec.user.UpdatedAt = time.Now()
	}
}

func (m *MemoryStore) UpdateLanguage(ctx context.Context, userID int64, lang model.Language) error {
	m.updateUser(userID, func(u *model.User) { u.Language = lang })
	return nil
}

func (m *MemoryStore) UpdateSubscription(ctx context.Context, userID int64, subscribed bool) error {
	m.updateUser(userID, func(u *model.User) { u.IsSubscribed = subscribed })
	return nil
}

func (m *MemoryStore) UpdatePhone(ctx context.Context, userID int64, phone string) error {
	m.updateUser(userID, func(u *model.User) { u.PhoneNumber = phone })
	return nil
}

func (m *MemoryStore) ListUsers(ctx context.Context, limit int) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := make([]*userRecord, 0, len(m.users))
	for _, rec := range m.users {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })

	var users []*model.User
	for _, rec := range recs {
		if limit > 0 && len(users) >= limit {
			break
		}
		u := rec.user
		users = append(users, &u)
	}
	return users, nil
}

func (m *MemoryStore) CountUsers(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *MemoryStore) CreateItem(ctx context.Context, item *model.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[item.ID]; ok {
		return ErrDuplicateID
	}
	item.Views = 0
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	m.items[item.ID] = &itemRecord{item: *item, seq: m.next()}
	return nil
}

func (m *MemoryStore) GetItem(ctx context.Context, itemID string) (*model.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}
	it := rec.item
	return &it, nil
}

// sortedItems returns item records newest first; callers hold m.mu
func (m *MemoryStore) sortedItems() []*itemRecord {
	recs := make([]*itemRecord, 0, len(m.items))
	for _, rec := range m.items {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })
	return recs
}

func (m *MemoryStore) ListItems(ctx context.Context, limit int) ([]*model.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []*model.Item
	for _, rec := range m.sortedItems() {
		if limit > 0 && len(items) >= limit {
			break
		}
		it := rec.item
		items = append(items, &it)
	}
	return items, nil
}

func (m *MemoryStore) SearchItems(ctx context.Context, query string, limit int) ([]*model.Item, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []*model.Item
	for _, rec := range m.sortedItems() {
		if limit > 0 && len(items) >= limit {
			break
		}
		it := rec.item
		if containsIgnoreCase(it.Title, query) ||
			containsIgnoreCase(it.Description, query) ||
			containsIgnoreCase(it.Genre, query) {
			items = append(items, &it)
		}
	}
	return items, nil
}

func (m *MemoryStore) CountItems(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.items)), nil
}

func (m *MemoryStore) DeleteItem(ctx context.Context, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.watchLater {
		if key.itemID == itemID {
			delete(m.watchLater, key)
		}
	}
	for key := range m.watched {
		if key.itemID == itemID {
			delete(m.watched, key)
		}
	}
	if _, ok := m.items[itemID]; !ok {
		return false, nil
	}
	delete(m.items, itemID)
	return true, nil
}

func (m *MemoryStore) AddWatchLater(ctx context.Context, userID int64, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := relationKey{userID: userID, itemID: itemID}
	if _, ok := m.watchLater[key]; ok {
		return false, nil
	}
	m.watchLater[key] = relationRecord{seq: m.next(), createdAt: time.Now()}
	return true, nil
}

func (m *MemoryStore) RemoveWatchLater(ctx context.Context, userID int64, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := relationKey{userID: userID, itemID: itemID}
	if _, ok := m.watchLater[key]; !ok {
		return false, nil
	}
	delete(m.watchLater, key)
	return true, nil
}

func (m *MemoryStore) MarkWatched(ctx context.Context, userID int64, itemID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := relationKey{userID: userID, itemID: itemID}
	if _, ok := m.watched[key]; ok {
		return false, nil
	}
	m.watched[key] = relationRecord{seq: m.next(), createdAt: time.Now()}
	if rec, ok := m.items[itemID]; ok {
		rec.item.Views++
	}
	return true, nil
}

func (m *MemoryStore) relations(kind model.RelationKind) (map[relationKey]relationRecord, error) {
	switch kind {
	case model.RelationWatchLater:
		return m.watchLater, nil
	case model.RelationWatched:
		return m.watched, nil
	default:
		return nil, ErrUnknownRelation
	}
}

func (m *MemoryStore) ListRelated(ctx context.Context, userID int64, kind model.RelationKind, limit int) ([]*model.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rels, err := m.relations(kind)
	if err != nil {
		return nil, err
	}

	type related struct {
		item model.Item
		seq  uint64
	}
	var matches []related
	for key, rel := range rels {
		if key.userID != userID {
			continue
		}
		// Inner-join semantics: relations without an item are skipped.
		if rec, ok := m.items[key.itemID]; ok {
			matches = append(matches, related{item: rec.item, seq: rel.seq})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].seq > matches[j].seq })

	var items []*model.Item
	for _, r := range matches {
		if limit > 0 && len(items) >= limit {
			break
		}
		it := r.item
		items = append(items, &it)
	}
	return items, nil
}

func (m *MemoryStore) CountRelated(ctx context.Context, userID int64, kind model.RelationKind) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rels, err := m.relations(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	for key := range rels {
		if key.userID == userID {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// containsIgnoreCase checks if s contains substr (case-insensitive)
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
