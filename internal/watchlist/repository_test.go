package watchlist

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryRepository_AddAndList(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	items := []*Item{
		{UserID: "alice", MovieID: 1, Title: "First", AddedAt: time.Now().Add(-2 * time.Hour)},
		{UserID: "alice", MovieID: 2, Title: "Second", AddedAt: time.Now().Add(-1 * time.Hour)},
		{UserID: "alice", MovieID: 3, Title: "Third", AddedAt: time.Now()},
	}
	for _, item := range items {
		if err := repo.Add(ctx, item); err != nil {
			t.Fatalf("Add(%d): %v", item.MovieID, err)
		}
	}

	got, err := repo.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	// Most recently added first.
	wantOrder := []int64{3, 2, 1}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d items, want %d", len(got), len(wantOrder))
	}
	for i, want := range wantOrder {
		if got[i].MovieID != want {
			t.Errorf("position %d: got movie %d, want %d", i, got[i].MovieID, want)
		}
	}
}

func TestInMemoryRepository_AddDuplicate(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.Add(ctx, &Item{UserID: "alice", MovieID: 1, Title: "X"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := repo.Add(ctx, &Item{UserID: "alice", MovieID: 1, Title: "X"})
	if !errors.Is(err, ErrAlreadyListed) {
		t.Fatalf("got err=%v, want ErrAlreadyListed", err)
	}

	// Same movie for a different user is fine.
	if err := repo.Add(ctx, &Item{UserID: "bob", MovieID: 1, Title: "X"}); err != nil {
		t.Errorf("cross-user add: %v", err)
	}
}

func TestInMemoryRepository_RemoveIdempotent(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.Add(ctx, &Item{UserID: "alice", MovieID: 1, Title: "X"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := repo.Remove(ctx, "alice", 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	// Second removal of the same movie is not an error.
	if err := repo.Remove(ctx, "alice", 1); err != nil {
		t.Errorf("second Remove: %v", err)
	}
	// Removing for a user with no list is not an error.
	if err := repo.Remove(ctx, "carol", 1); err != nil {
		t.Errorf("Remove for unknown user: %v", err)
	}

	got, _ := repo.List(ctx, "alice")
	if len(got) != 0 {
		t.Errorf("item survived removal: %+v", got)
	}
}

func TestInMemoryRepository_ListReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.Add(ctx, &Item{UserID: "alice", MovieID: 1, Title: "Original"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, _ := repo.List(ctx, "alice")
	got[0].Title = "mutated"

	again, _ := repo.List(ctx, "alice")
	if again[0].Title == "mutated" {
		t.Error("repository returned a shared pointer")
	}
}
