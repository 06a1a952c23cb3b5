package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/user/movie-bot-go/internal/model"
)

var itemSeq atomic.Int64

// genItemID generates identifiers in the catalog format
func genItemID() gopter.Gen {
	return gen.RegexMatch(`[A-Z0-9]{8}`)
}

// newItem builds a test item with a given identifier
func newItem(id string) *model.Item {
	return &model.Item{
		ID:          id,
		Title:       "Test Movie " + id,
		Description: "A movie used in tests",
		Genre:       "Drama",
		Year:        2020,
		MediaRef:    "file-" + id,
		MediaKind:   model.MediaVideo,
		AddedBy:     1,
	}
}

// uniqueUser returns a user ID that no other test run has touched
func uniqueUser() int64 {
	return 1_000_000 + itemSeq.Add(1)
}

// The properties below are shared by every Store implementation.

// Feature: movie-bot-go, Property 2: Watch-Later Idempotence
// Adding the same watch-later pair any number of times SHALL leave exactly one
// relation, and removing an absent pair SHALL be a no-op.
func propWatchLaterIdempotence(s Store) gopter.Prop {
	return prop.ForAll(
		func(id string, times int) bool {
			ctx := context.Background()
			userID := uniqueUser()
			_, _ = s.DeleteItem(ctx, id)
			if err := s.CreateItem(ctx, newItem(id)); err != nil {
				return false
			}
			defer s.DeleteItem(ctx, id)

			created := 0
			for i := 0; i < times; i++ {
				ok, err := s.AddWatchLater(ctx, userID, id)
				if err != nil {
					return false
				}
				if ok {
					created++
				}
			}
			count, err := s.CountRelated(ctx, userID, model.RelationWatchLater)
			if err != nil || count != 1 || created != 1 {
				return false
			}

			removed, err := s.RemoveWatchLater(ctx, userID, id)
			if err != nil || !removed {
				return false
			}
			removed, err = s.RemoveWatchLater(ctx, userID, id)
			if err != nil || removed {
				return false
			}
			count, err = s.CountRelated(ctx, userID, model.RelationWatchLater)
			return err == nil && count == 0
		},
		genItemID(),
		gen.IntRange(1, 5),
	)
}

// Feature: movie-bot-go, Property 3: View-Count Exactness
// For N concurrent first watches of the same (user, item) pair the item's view
// counter SHALL increase by exactly one and exactly one watched row SHALL exist.
func propViewCountExactness(s Store) gopter.Prop {
	return prop.ForAll(
		func(id string, workers int) bool {
			ctx := context.Background()
			userID := uniqueUser()
			_, _ = s.DeleteItem(ctx, id)
			if err := s.CreateItem(ctx, newItem(id)); err != nil {
				return false
			}
			defer s.DeleteItem(ctx, id)

			var wg sync.WaitGroup
			var firsts atomic.Int32
			var failures atomic.Int32
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					first, err := s.MarkWatched(ctx, userID, id)
					if err != nil {
						failures.Add(1)
						return
					}
					if first {
						firsts.Add(1)
					}
				}()
			}
			wg.Wait()

			item, err := s.GetItem(ctx, id)
			if err != nil || item == nil {
				return false
			}
			count, err := s.CountRelated(ctx, userID, model.RelationWatched)
			if err != nil {
				return false
			}
			return failures.Load() == 0 && firsts.Load() == 1 && item.Views == 1 && count == 1
		},
		genItemID(),
		gen.IntRange(2, 8),
	)
}

// Feature: movie-bot-go, Property 4: Duplicate Item Rejection
// Creating an item whose identifier already exists SHALL fail with
// ErrDuplicateID and leave the original untouched.
func propDuplicateItemRejection(s Store) gopter.Prop {
	return prop.ForAll(
		func(id string) bool {
			ctx := context.Background()
			_, _ = s.DeleteItem(ctx, id)
			if err := s.CreateItem(ctx, newItem(id)); err != nil {
				return false
			}
			defer s.DeleteItem(ctx, id)

			dup := newItem(id)
			dup.Title = "Impostor"
			if err := s.CreateItem(ctx, dup); err != ErrDuplicateID {
				return false
			}
			got, err := s.GetItem(ctx, id)
			return err == nil && got != nil && got.Title == "Test Movie "+id
		},
		genItemID(),
	)
}

func runStoreProperties(t *testing.T, s Store) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("watch later add is idempotent and remove of absent is a no-op", propWatchLaterIdempotence(s))
	properties.Property("concurrent first watches increment views exactly once", propViewCountExactness(s))
	properties.Property("duplicate item ids are rejected", propDuplicateItemRejection(s))

	properties.TestingRun(t)
}

// runStoreExamples checks ordering, search and cascade behavior
func runStoreExamples(t *testing.T, s Store) {
	ctx := context.Background()
	prefix := fmt.Sprintf("%04d", itemSeq.Add(1)%10000)
	ids := []string{"SRCH" + prefix, "SRCI" + prefix[:3] + "X", "SRCJ" + prefix[:3] + "Y"}
	titles := []string{"Dune Part One", "The Dunes of Arrakis", "Heat"}
	for i, id := range ids {
		_, _ = s.DeleteItem(ctx, id)
		it := newItem(id)
		it.Title = titles[i]
		it.Genre = "Sci-Fi"
		if i == 2 {
			it.Genre = "Crime"
			it.Description = "100% pure_crime"
		}
		if err := s.CreateItem(ctx, it); err != nil {
			t.Fatalf("CreateItem(%s): %v", id, err)
		}
	}
	defer func() {
		for _, id := range ids {
			s.DeleteItem(ctx, id)
		}
	}()

	t.Run("empty search matches nothing", func(t *testing.T) {
		items, err := s.SearchItems(ctx, "   ", 10)
		if err != nil {
			t.Fatalf("SearchItems: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("SearchItems(\"\") returned %d items, want 0", len(items))
		}
	})

	t.Run("search is case-insensitive substring", func(t *testing.T) {
		items, err := s.SearchItems(ctx, "DUNE", 10)
		if err != nil {
			t.Fatalf("SearchItems: %v", err)
		}
		found := map[string]bool{}
		for _, it := range items {
			found[it.ID] = true
		}
		if !found[ids[0]] || !found[ids[1]] || found[ids[2]] {
			t.Errorf("SearchItems(DUNE) = %v, want %s and %s only", found, ids[0], ids[1])
		}
	})

	t.Run("search does not match year", func(t *testing.T) {
		items, err := s.SearchItems(ctx, "2020", 10)
		if err != nil {
			t.Fatalf("SearchItems: %v", err)
		}
		for _, it := range items {
			for _, id := range ids {
				if it.ID == id {
					t.Errorf("SearchItems(2020) matched %s by year", id)
				}
			}
		}
	})

	t.Run("like wildcards match literally", func(t *testing.T) {
		items, err := s.SearchItems(ctx, "0% pure_", 10)
		if err != nil {
			t.Fatalf("SearchItems: %v", err)
		}
		if len(items) != 1 || items[0].ID != ids[2] {
			t.Errorf("SearchItems(literal wildcards) = %d items, want only %s", len(items), ids[2])
		}
		items, err = s.SearchItems(ctx, "%", 10)
		if err != nil {
			t.Fatalf("SearchItems: %v", err)
		}
		for _, it := range items {
			if it.ID == ids[0] || it.ID == ids[1] {
				t.Errorf("SearchItems(%%) matched %s", it.ID)
			}
		}
	})

	t.Run("relations list newest first and cascade on delete", func(t *testing.T) {
		userID := uniqueUser()
		for _, id := range ids {
			if _, err := s.AddWatchLater(ctx, userID, id); err != nil {
				t.Fatalf("AddWatchLater: %v", err)
			}
			time.Sleep(10 * time.Millisecond) // distinct created_at values
		}
		if _, err := s.MarkWatched(ctx, userID, ids[0]); err != nil {
			t.Fatalf("MarkWatched: %v", err)
		}

		items, err := s.ListRelated(ctx, userID, model.RelationWatchLater, 10)
		if err != nil {
			t.Fatalf("ListRelated: %v", err)
		}
		if len(items) != 3 || items[0].ID != ids[2] || items[2].ID != ids[0] {
			t.Fatalf("ListRelated order = %v, want newest first", itemIDs(items))
		}

		deleted, err := s.DeleteItem(ctx, ids[0])
		if err != nil || !deleted {
			t.Fatalf("DeleteItem = %v, %v", deleted, err)
		}
		later, _ := s.CountRelated(ctx, userID, model.RelationWatchLater)
		watched, _ := s.CountRelated(ctx, userID, model.RelationWatched)
		if later != 2 || watched != 0 {
			t.Errorf("after delete: watch later = %d, watched = %d; want 2, 0", later, watched)
		}

		deleted, err = s.DeleteItem(ctx, ids[0])
		if err != nil || deleted {
			t.Errorf("second DeleteItem = %v, %v; want false, nil", deleted, err)
		}
	})

	t.Run("unknown relation kind", func(t *testing.T) {
		if _, err := s.ListRelated(ctx, 1, model.RelationKind("liked"), 10); err != ErrUnknownRelation {
			t.Errorf("ListRelated(liked) error = %v, want ErrUnknownRelation", err)
		}
	})

	t.Run("user upsert keeps language and subscription", func(t *testing.T) {
		userID := uniqueUser()
		u, err := s.UpsertUser(ctx, &model.User{ID: userID, Username: "first"})
		if err != nil || u == nil {
			t.Fatalf("UpsertUser: %v", err)
		}
		if u.Language != model.DefaultLanguage {
			t.Errorf("new user language = %q, want %q", u.Language, model.DefaultLanguage)
		}
		if err := s.UpdateLanguage(ctx, userID, model.LangUzbek); err != nil {
			t.Fatalf("UpdateLanguage: %v", err)
		}
		if err := s.UpdateSubscription(ctx, userID, true); err != nil {
			t.Fatalf("UpdateSubscription: %v", err)
		}
		u, err = s.UpsertUser(ctx, &model.User{ID: userID, Username: "second"})
		if err != nil {
			t.Fatalf("UpsertUser: %v", err)
		}
		if u.Username != "second" || u.Language != model.LangUzbek || !u.IsSubscribed {
			t.Errorf("UpsertUser = %+v, want username refreshed and language/subscription kept", u)
		}
	})
}

func itemIDs(items []*model.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
