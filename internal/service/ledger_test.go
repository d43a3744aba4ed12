package service

import (
	"context"
	"testing"

	"creatorhub-api/internal/cache"
	"creatorhub-api/internal/events"
	"creatorhub-api/internal/model"

	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*Ledger, *fakeProfileRepo, *cache.MemoryStore, *events.Bus) {
	t.Helper()
	profiles := newFakeProfileRepo()
	guests := cache.NewMemoryStore(cache.RedisStoreConfig{StartingCredits: 40})
	bus := events.NewBus()
	t.Cleanup(bus.Close)
	return NewLedger(profiles, guests, &fakeNotifRepo{}, bus), profiles, guests, bus
}

func TestLedgerAddThenSubtract(t *testing.T) {
	ledger, profiles, _, _ := newTestLedger(t)
	profiles.seed("alice", 100)
	alice := model.AccountIdentity("alice")
	ctx := context.Background()

	balance, err := ledger.AddCredits(ctx, alice, 50, "gift")
	require.NoError(t, err)
	require.Equal(t, int64(150), balance)

	balance, err = ledger.SubtractCredits(ctx, alice, 30, "unlock")
	require.NoError(t, err)
	require.Equal(t, int64(120), balance)

	balance, err = ledger.Balance(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(120), balance)
}

func TestLedgerRejectsInvalidAmounts(t *testing.T) {
	ledger, profiles, _, _ := newTestLedger(t)
	profiles.seed("alice", 100)
	alice := model.AccountIdentity("alice")
	ctx := context.Background()

	for _, amount := range []int64{0, -5} {
		_, err := ledger.AddCredits(ctx, alice, amount, "")
		require.ErrorIs(t, err, ErrInvalidAmount)
		_, err = ledger.SubtractCredits(ctx, alice, amount, "")
		require.ErrorIs(t, err, ErrInvalidAmount)
	}

	balance, err := ledger.Balance(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(100), balance)
}

func TestLedgerUnderflowLeavesBalanceUnchanged(t *testing.T) {
	ledger, profiles, _, _ := newTestLedger(t)
	profiles.seed("alice", 50)
	alice := model.AccountIdentity("alice")
	ctx := context.Background()

	_, err := ledger.SubtractCredits(ctx, alice, 100, "too much")
	require.ErrorIs(t, err, ErrInsufficientCredits)

	balance, err := ledger.Balance(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(50), balance)

	stored, err := profiles.Credits(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, int64(50), stored)
}

func TestLedgerRollsBackOnPersistFailure(t *testing.T) {
	ledger, profiles, _, _ := newTestLedger(t)
	profiles.seed("alice", 100)
	alice := model.AccountIdentity("alice")
	ctx := context.Background()

	// Prime the cache, then make the store fail.
	_, err := ledger.Balance(ctx, alice)
	require.NoError(t, err)
	profiles.failAdd = errStoreDown

	_, err = ledger.AddCredits(ctx, alice, 25, "doomed")
	require.ErrorIs(t, err, errStoreDown)

	// The optimistic value must have been rolled back.
	profiles.failAdd = nil
	balance, err := ledger.Balance(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(100), balance)
}

func TestLedgerGuestBalance(t *testing.T) {
	ledger, _, guests, _ := newTestLedger(t)
	ctx := context.Background()

	session, err := guests.Create(ctx)
	require.NoError(t, err)
	guest := model.GuestIdentity(session.SessionID)

	balance, err := ledger.Balance(ctx, guest)
	require.NoError(t, err)
	require.Equal(t, int64(40), balance)

	balance, err = ledger.SubtractCredits(ctx, guest, 15, "unlock")
	require.NoError(t, err)
	require.Equal(t, int64(25), balance)

	// The deduction must be durable in the session blob, and the
	// notification must carry the reason for it.
	saved, err := guests.Get(ctx, session.SessionID)
	require.NoError(t, err)
	require.Equal(t, int64(25), saved.Credits)
	require.NotEmpty(t, saved.Notifications)
	last := saved.Notifications[len(saved.Notifications)-1]
	require.Equal(t, model.NotificationCreditsSubtracted, last.Type)
	require.Equal(t, "unlock", last.Message)
}

func TestLedgerStoredBalanceBypassesCache(t *testing.T) {
	ledger, profiles, _, _ := newTestLedger(t)
	profiles.seed("alice", 50)
	alice := model.AccountIdentity("alice")
	ctx := context.Background()

	_, err := ledger.Balance(ctx, alice)
	require.NoError(t, err)

	// The store changes out of band; Balance keeps serving the cache,
	// StoredBalance re-reads and replaces it.
	profiles.seed("alice", 150)

	cached, err := ledger.Balance(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(50), cached)

	stored, err := ledger.StoredBalance(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(150), stored)

	cached, err = ledger.Balance(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(150), cached)
}

func TestLedgerGuestMissingSession(t *testing.T) {
	ledger, _, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Balance(ctx, model.GuestIdentity("nope"))
	require.ErrorIs(t, err, ErrGuestNotFound)
}

func TestLedgerPublishesCreditsChanged(t *testing.T) {
	ledger, profiles, _, bus := newTestLedger(t)
	profiles.seed("alice", 10)
	alice := model.AccountIdentity("alice")
	sub := bus.Subscribe()

	_, err := ledger.AddCredits(context.Background(), alice, 5, "gift")
	require.NoError(t, err)

	evt := <-sub
	require.Equal(t, events.KindCreditsChanged, evt.Kind)
	require.Equal(t, alice.Key(), evt.Subject)
	require.Equal(t, int64(15), evt.Balance)
	require.False(t, evt.ForceRefresh)
}

func TestLedgerForceRefreshDropsCache(t *testing.T) {
	ledger, profiles, _, bus := newTestLedger(t)
	profiles.seed("alice", 10)
	alice := model.AccountIdentity("alice")
	ctx := context.Background()

	_, err := ledger.Balance(ctx, alice)
	require.NoError(t, err)

	// Out-of-band settlement changes the stored value.
	profiles.seed("alice", 999)
	sub := bus.Subscribe()
	ledger.ForceRefresh(alice)

	evt := <-sub
	require.True(t, evt.ForceRefresh)

	balance, err := ledger.Balance(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, int64(999), balance)
}

func TestLedgerGuestNotificationCap(t *testing.T) {
	session := &model.GuestSession{SessionID: "g"}
	for i := 0; i < model.GuestNotificationCap+10; i++ {
		appendGuestNotification(session, model.Notification{ID: string(rune('a' + i%26))})
	}
	if len(session.Notifications) != model.GuestNotificationCap {
		t.Fatalf("expected %d notifications, got %d", model.GuestNotificationCap, len(session.Notifications))
	}
}
