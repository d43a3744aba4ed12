package service

import (
	"context"
	"log"
	"sync"

	"creatorhub-api/internal/cache"
	"creatorhub-api/internal/events"
	"creatorhub-api/internal/model"
)

// IdentityScoped is implemented by every store holding identity-scoped
// state. The registry clears them centrally on identity switches instead
// of prefix-matching storage keys.
type IdentityScoped interface {
	ClearIdentity(ctx context.Context, identity model.Identity) error
}

// IsolationRegistry coordinates the data isolation sweep: on login, logout
// or guest rotation every registered store is cleared before any new data
// is fetched, then a single isolation event is broadcast so independent
// subscribers can drop their own caches.
type IsolationRegistry struct {
	mu     sync.Mutex
	stores []IdentityScoped
	bus    *events.Bus
}

// NewIsolationRegistry creates the registry.
func NewIsolationRegistry(bus *events.Bus) *IsolationRegistry {
	return &IsolationRegistry{bus: bus}
}

// Register adds an identity-scoped store to the sweep.
func (r *IsolationRegistry) Register(store IdentityScoped) {
	r.mu.Lock()
	r.stores = append(r.stores, store)
	r.mu.Unlock()
}

// Isolate clears every registered store for the identity and broadcasts
// the isolation event. Individual clear failures are logged and do not
// stop the sweep.
func (r *IsolationRegistry) Isolate(ctx context.Context, identity model.Identity) {
	r.mu.Lock()
	stores := append([]IdentityScoped(nil), r.stores...)
	r.mu.Unlock()

	for _, store := range stores {
		if err := store.ClearIdentity(ctx, identity); err != nil {
			log.Printf("[IsolationRegistry] Clear failed for %s: %v", identity.Key(), err)
		}
	}

	r.bus.Publish(events.Event{
		Kind:    events.KindDataIsolation,
		Subject: identity.Key(),
	})
}

// GuestSessionScope ties the guest store into the isolation sweep:
// deleting the session blob removes every guest-scoped collection at once.
type GuestSessionScope struct {
	Guests cache.GuestStore
}

// ClearIdentity deletes the guest session blob. Account identities have no
// session blob and are a no-op here.
func (g GuestSessionScope) ClearIdentity(ctx context.Context, identity model.Identity) error {
	if identity.IsAccount() {
		return nil
	}
	return g.Guests.Delete(ctx, identity.ID)
}
