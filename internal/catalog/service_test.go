package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/movie-bot-go/internal/access"
	"github.com/user/movie-bot-go/internal/model"
	"github.com/user/movie-bot-go/internal/store"
)

const adminID int64 = 1

func newTestService() (*Service, *store.MemoryStore) {
	s := store.NewMemoryStore()
	return NewService(s, access.NewPolicy([]int64{adminID}, "", time.Second)), s
}

func validDraft(title string) Draft {
	return Draft{
		Title:     title,
		Genre:     "Drama",
		Year:      2001,
		MediaRef:  "file-" + title,
		MediaKind: model.MediaVideo,
	}
}

// sequenceIDs returns a generator yielding ids in order, repeating the last
func sequenceIDs(ids ...string) IDGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		id := ids[i]
		if i < len(ids)-1 {
			i++
		}
		return id, nil
	}
}

// Feature: movie-bot-go, Property 3: Identifier Format
// Every generated identifier SHALL be 8 symbols from [A-Z0-9].
func TestProperty_RandomIDFormat(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("random ids are valid item ids", prop.ForAll(
		func(_ int) bool {
			id, err := RandomID()
			return err == nil && model.IsValidItemID(id)
		},
		gen.Int(),
	))

	properties.TestingRun(t)
}

// Feature: movie-bot-go, Property 4: Exactly-Once View Count
// N concurrent first watches of one item by one user SHALL count one view,
// and distinct users SHALL each count once.
func TestProperty_ExactlyOnceViews(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("views equal distinct watchers", prop.ForAll(
		func(users, repeats int) bool {
			svc, _ := newTestService()
			ctx := context.Background()
			item, err := svc.AddItem(ctx, adminID, validDraft("Concurrent"))
			if err != nil {
				return false
			}

			var wg sync.WaitGroup
			var mu sync.Mutex
			applied := 0
			for u := 0; u < users; u++ {
				for r := 0; r < repeats; r++ {
					wg.Add(1)
					go func(userID int64) {
						defer wg.Done()
						if svc.AddRelation(ctx, userID, item.ID, model.RelationWatched) == Applied {
							mu.Lock()
							applied++
							mu.Unlock()
						}
					}(int64(100 + u))
				}
			}
			wg.Wait()

			got, err := svc.Get(ctx, item.ID)
			return err == nil && got.Views == int64(users) && applied == users
		},
		gen.IntRange(1, 5),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}

func TestAddItem(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	item, err := svc.AddItem(ctx, adminID, Draft{
		Title:       "  The Matrix  ",
		Description: "A hacker learns the truth.",
		Genre:       "Sci-Fi",
		Year:        1999,
		MediaRef:    "file-1",
		MediaKind:   model.MediaDocument,
	})
	require.NoError(t, err)
	assert.True(t, model.IsValidItemID(item.ID))
	assert.Equal(t, "The Matrix", item.Title)
	assert.Equal(t, adminID, item.AddedBy)

	stored, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.MediaDocument, stored.MediaKind)
	assert.Zero(t, stored.Views)
}

func TestAddItem_NotAdmin(t *testing.T) {
	svc, s := newTestService()

	_, err := svc.AddItem(context.Background(), 99, validDraft("Nope"))
	assert.ErrorIs(t, err, ErrNotAdmin)

	count, err := s.CountItems(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAddItem_InvalidDraft(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, adminID, Draft{Title: " ", MediaRef: "f", MediaKind: model.MediaVideo})
	assert.ErrorIs(t, err, ErrInvalidDraft)

	_, err = svc.AddItem(ctx, adminID, Draft{Title: "t", MediaKind: model.MediaVideo})
	assert.ErrorIs(t, err, ErrInvalidDraft)

	_, err = svc.AddItem(ctx, adminID, Draft{Title: "t", MediaRef: "f", MediaKind: "audio"})
	assert.ErrorIs(t, err, ErrInvalidDraft)
}

func TestAddItem_RetriesOnCollision(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	svc.SetIDGenerator(sequenceIDs("AAAA0001"))
	first, err := svc.AddItem(ctx, adminID, validDraft("First"))
	require.NoError(t, err)
	require.Equal(t, "AAAA0001", first.ID)

	svc.SetIDGenerator(sequenceIDs("AAAA0001", "AAAA0001", "BBBB0002"))
	second, err := svc.AddItem(ctx, adminID, validDraft("Second"))
	require.NoError(t, err)
	assert.Equal(t, "BBBB0002", second.ID)

	// The original item is untouched
	got, err := svc.Get(ctx, "AAAA0001")
	require.NoError(t, err)
	assert.Equal(t, "First", got.Title)
}

func TestAddItem_GivesUpAfterMaxAttempts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	svc.SetIDGenerator(sequenceIDs("SAME0000"))
	_, err := svc.AddItem(ctx, adminID, validDraft("First"))
	require.NoError(t, err)

	calls := 0
	svc.SetIDGenerator(func() (string, error) {
		calls++
		return "SAME0000", nil
	})
	_, err = svc.AddItem(ctx, adminID, validDraft("Second"))
	assert.ErrorIs(t, err, ErrIDExhausted)
	assert.Equal(t, maxIDAttempts, calls)
}

func TestAddItem_GeneratorError(t *testing.T) {
	svc, _ := newTestService()
	boom := errors.New("entropy exhausted")
	svc.SetIDGenerator(func() (string, error) { return "", boom })

	_, err := svc.AddItem(context.Background(), adminID, validDraft("x"))
	assert.ErrorIs(t, err, boom)
}

func TestGet_NormalizesToken(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	svc.SetIDGenerator(sequenceIDs("AB12CD34"))
	_, err := svc.AddItem(ctx, adminID, validDraft("Lookup"))
	require.NoError(t, err)

	got, err := svc.Get(ctx, "  ab12cd34 ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Lookup", got.Title)

	for _, token := range []string{"", "AB12CD3", "AB12CD345", "AB12CD3%", "ZZZZZZZZ"} {
		got, err := svc.Get(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, got, token)
	}
}

func TestListAll_CapsResults(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < MaxResults+5; i++ {
		_, err := svc.AddItem(ctx, adminID, validDraft(fmt.Sprintf("Movie %d", i)))
		require.NoError(t, err)
	}

	items, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, items, MaxResults)
	assert.Equal(t, fmt.Sprintf("Movie %d", MaxResults+4), items[0].Title, "newest first")
}

func TestSearch(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for _, d := range []Draft{
		{Title: "The Matrix", Genre: "Sci-Fi", Year: 1999, MediaRef: "a", MediaKind: model.MediaVideo},
		{Title: "Amelie", Description: "A whimsical MATRIX of coincidences", Genre: "Comedy", MediaRef: "b", MediaKind: model.MediaVideo},
		{Title: "Heat", Genre: "Crime", Year: 1995, MediaRef: "c", MediaKind: model.MediaVideo},
	} {
		_, err := svc.AddItem(ctx, adminID, d)
		require.NoError(t, err)
	}

	items, err := svc.Search(ctx, "matrix")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = svc.Search(ctx, "crime")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Heat", items[0].Title)

	items, err = svc.Search(ctx, "1995")
	require.NoError(t, err)
	assert.Empty(t, items, "year is not searchable")

	items, err = svc.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRelations(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	item, err := svc.AddItem(ctx, adminID, validDraft("Rel"))
	require.NoError(t, err)
	const userID int64 = 500

	assert.Equal(t, Applied, svc.AddRelation(ctx, userID, item.ID, model.RelationWatchLater))
	assert.Equal(t, Unchanged, svc.AddRelation(ctx, userID, item.ID, model.RelationWatchLater))

	assert.Equal(t, Applied, svc.AddRelation(ctx, userID, item.ID, model.RelationWatched))
	assert.Equal(t, Unchanged, svc.AddRelation(ctx, userID, item.ID, model.RelationWatched))

	// Both relations coexist
	later, err := svc.ListForUser(ctx, userID, model.RelationWatchLater)
	require.NoError(t, err)
	assert.Len(t, later, 1)
	watched, err := svc.ListForUser(ctx, userID, model.RelationWatched)
	require.NoError(t, err)
	assert.Len(t, watched, 1)

	w, l, err := svc.UserStats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), w)
	assert.Equal(t, int64(1), l)

	assert.Equal(t, Failed, svc.RemoveRelation(ctx, userID, item.ID, model.RelationWatched))
	assert.Equal(t, Applied, svc.RemoveRelation(ctx, userID, item.ID, model.RelationWatchLater))
	assert.Equal(t, Unchanged, svc.RemoveRelation(ctx, userID, item.ID, model.RelationWatchLater))

	assert.Equal(t, Failed, svc.AddRelation(ctx, userID, item.ID, "favorite"))

	got, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Views)
}

func TestDeleteItem(t *testing.T) {
	svc, s := newTestService()
	ctx := context.Background()
	item, err := svc.AddItem(ctx, adminID, validDraft("Gone"))
	require.NoError(t, err)
	require.Equal(t, Applied, svc.AddRelation(ctx, 7, item.ID, model.RelationWatchLater))
	require.Equal(t, Applied, svc.AddRelation(ctx, 7, item.ID, model.RelationWatched))

	_, err = svc.DeleteItem(ctx, 7, item.ID)
	assert.ErrorIs(t, err, ErrNotAdmin)

	deleted, err := svc.DeleteItem(ctx, adminID, " "+item.ID+" ")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.DeleteItem(ctx, adminID, item.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = svc.DeleteItem(ctx, adminID, "bad")
	require.NoError(t, err)
	assert.False(t, deleted)

	for _, kind := range []model.RelationKind{model.RelationWatchLater, model.RelationWatched} {
		n, err := s.CountRelated(ctx, 7, kind)
		require.NoError(t, err)
		assert.Zero(t, n, "relations cascade with the item")
	}
}

func TestTotalsAndRecentUsers(t *testing.T) {
	svc, s := newTestService()
	ctx := context.Background()
	for id := int64(1); id <= 3; id++ {
		_, err := s.UpsertUser(ctx, &model.User{ID: id, Language: model.LangEnglish})
		require.NoError(t, err)
	}
	_, err := svc.AddItem(ctx, adminID, validDraft("One"))
	require.NoError(t, err)

	users, items, err := svc.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), users)
	assert.Equal(t, int64(1), items)

	recent, err := svc.RecentUsers(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "applied", Applied.String())
	assert.Equal(t, "unchanged", Unchanged.String())
	assert.Equal(t, "failed", Failed.String())
}
