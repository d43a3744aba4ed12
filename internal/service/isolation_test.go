package service

import (
	"context"
	"testing"

	"creatorhub-api/internal/cache"
	"creatorhub-api/internal/events"
	"creatorhub-api/internal/model"

	"github.com/stretchr/testify/require"
)

type recordingScope struct {
	cleared []string
	err     error
}

func (r *recordingScope) ClearIdentity(ctx context.Context, identity model.Identity) error {
	r.cleared = append(r.cleared, identity.Key())
	return r.err
}

func TestIsolateClearsAllStoresAndBroadcasts(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	registry := NewIsolationRegistry(bus)

	a := &recordingScope{}
	b := &recordingScope{err: errStoreDown} // one failing store must not stop the sweep
	c := &recordingScope{}
	registry.Register(a)
	registry.Register(b)
	registry.Register(c)

	sub := bus.Subscribe()
	guest := model.GuestIdentity("g1")
	registry.Isolate(context.Background(), guest)

	for _, scope := range []*recordingScope{a, b, c} {
		require.Equal(t, []string{guest.Key()}, scope.cleared)
	}

	evt := <-sub
	require.Equal(t, events.KindDataIsolation, evt.Kind)
	require.Equal(t, guest.Key(), evt.Subject)
}

func TestGuestSessionScopeDeletesBlob(t *testing.T) {
	guests := cache.NewMemoryStore(cache.RedisStoreConfig{StartingCredits: 40})
	ctx := context.Background()

	session, err := guests.Create(ctx)
	require.NoError(t, err)

	scope := GuestSessionScope{Guests: guests}
	require.NoError(t, scope.ClearIdentity(ctx, model.GuestIdentity(session.SessionID)))

	gone, err := guests.Get(ctx, session.SessionID)
	require.NoError(t, err)
	require.Nil(t, gone)

	// Accounts have no session blob; clearing them is a no-op.
	require.NoError(t, scope.ClearIdentity(ctx, model.AccountIdentity("alice")))
}

func TestLedgerClearIdentityDropsCachedBalance(t *testing.T) {
	profiles := newFakeProfileRepo()
	profiles.seed("alice", 100)
	guests := cache.NewMemoryStore(cache.RedisStoreConfig{})
	bus := events.NewBus()
	defer bus.Close()
	ledger := NewLedger(profiles, guests, &fakeNotifRepo{}, bus)
	ctx := context.Background()
	alice := model.AccountIdentity("alice")

	_, err := ledger.Balance(ctx, alice)
	require.NoError(t, err)

	// The store changes underneath; a cleared cache must re-read.
	profiles.seed("alice", 7)
	require.NoError(t, ledger.ClearIdentity(ctx, alice))

	balance, err := ledger.Balance(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(7), balance)
}
