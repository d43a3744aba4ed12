package cache

import (
	"context"
	"testing"
	"time"

	"creatorhub-api/internal/model"
)

func TestMemoryGuestSessionLifecycle(t *testing.T) {
	store := NewMemoryStore(RedisStoreConfig{StartingCredits: 40})
	ctx := context.Background()

	session, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session.Credits != 40 {
		t.Fatalf("expected 40 starting credits, got %d", session.Credits)
	}
	if session.SessionID == "" {
		t.Fatal("expected a session id")
	}

	session.Credits = 25
	session.Wishlist = append(session.Wishlist, model.WishlistItem{ID: "w1", Title: "Keyboard"})
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Credits != 25 || len(got.Wishlist) != 1 {
		t.Fatalf("unexpected session state: %+v", got)
	}

	// The returned session is a copy; mutating it must not leak into the
	// store.
	got.Credits = 999
	again, _ := store.Get(ctx, session.SessionID)
	if again.Credits != 25 {
		t.Fatalf("store leaked a shared session pointer, credits=%d", again.Credits)
	}

	if err := store.Delete(ctx, session.SessionID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	gone, err := store.Get(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("Get after delete: %v", err)
	}
	if gone != nil {
		t.Fatal("expected nil after delete")
	}
}

func TestMemoryGuestSessionExpiry(t *testing.T) {
	store := NewMemoryStore(RedisStoreConfig{GuestTTL: time.Millisecond})
	ctx := context.Background()

	session, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	got, err := store.Get(ctx, session.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatal("expected expired session to read as missing")
	}
}

func TestMemoryQueueOrdering(t *testing.T) {
	store := NewMemoryStore(RedisStoreConfig{})
	ctx := context.Background()
	base := time.Now()

	// Inserted out of order; Waiting must sort by JoinedAt.
	entries := []model.QueueEntry{
		{IdentityID: "c", JoinedAt: base.Add(3 * time.Second)},
		{IdentityID: "a", JoinedAt: base.Add(1 * time.Second)},
		{IdentityID: "b", JoinedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := store.Enqueue(ctx, "room", e); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	waiting, err := store.Waiting(ctx, "room")
	if err != nil {
		t.Fatalf("Waiting: %v", err)
	}
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if waiting[i].IdentityID != id {
			t.Fatalf("position %d: got %s, want %s", i, waiting[i].IdentityID, id)
		}
	}

	// Re-enqueueing keeps the original JoinedAt.
	if err := store.Enqueue(ctx, "room", model.QueueEntry{IdentityID: "a", JoinedAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	waiting, _ = store.Waiting(ctx, "room")
	if waiting[0].IdentityID != "a" {
		t.Fatalf("re-enqueue moved a to position %d", 0)
	}
	if !waiting[0].JoinedAt.Equal(base.Add(1 * time.Second)) {
		t.Fatal("re-enqueue replaced the original JoinedAt")
	}

	if err := store.Dequeue(ctx, "room", "b"); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	waiting, _ = store.Waiting(ctx, "room")
	if len(waiting) != 2 || waiting[1].IdentityID != "c" {
		t.Fatalf("unexpected queue after dequeue: %+v", waiting)
	}
}

func TestMemoryOccupancy(t *testing.T) {
	store := NewMemoryStore(RedisStoreConfig{})
	ctx := context.Background()

	occ, err := store.Occupant(ctx, "room")
	if err != nil {
		t.Fatalf("Occupant: %v", err)
	}
	if occ != nil {
		t.Fatal("expected open room")
	}

	want := model.Occupancy{IdentityID: "g1", ExpiresAt: time.Now().Add(5 * time.Minute)}
	if err := store.SetOccupant(ctx, "room", want); err != nil {
		t.Fatalf("SetOccupant: %v", err)
	}
	occ, _ = store.Occupant(ctx, "room")
	if occ == nil || occ.IdentityID != "g1" {
		t.Fatalf("unexpected occupant: %+v", occ)
	}

	if err := store.ClearOccupant(ctx, "room"); err != nil {
		t.Fatalf("ClearOccupant: %v", err)
	}
	occ, _ = store.Occupant(ctx, "room")
	if occ != nil {
		t.Fatal("expected cleared room")
	}
}
