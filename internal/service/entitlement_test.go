package service

import (
	"context"
	"testing"
	"time"

	"creatorhub-api/internal/cache"
	"creatorhub-api/internal/events"
	"creatorhub-api/internal/model"

	"github.com/stretchr/testify/require"
)

type entitlementFixture struct {
	svc      *EntitlementService
	ledger   *Ledger
	profiles *fakeProfileRepo
	media    *fakeMediaRepo
	unlocks  *fakeUnlockRepo
	sales    *fakeSaleRepo
	bus      *events.Bus
	now      time.Time
}

func newEntitlementFixture(t *testing.T) *entitlementFixture {
	t.Helper()
	profiles := newFakeProfileRepo()
	guests := cache.NewMemoryStore(cache.RedisStoreConfig{})
	media := newFakeMediaRepo()
	unlocks := &fakeUnlockRepo{}
	sales := &fakeSaleRepo{}
	bus := events.NewBus()
	t.Cleanup(bus.Close)

	ledger := NewLedger(profiles, guests, &fakeNotifRepo{}, bus)
	svc := NewEntitlementService(media, unlocks, sales, ledger, bus)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &entitlementFixture{
		svc: svc, ledger: ledger, profiles: profiles,
		media: media, unlocks: unlocks, sales: sales, bus: bus, now: now,
	}
}

func (f *entitlementFixture) seedMedia(id, owner string, price int64) {
	f.media.Insert(context.Background(), &model.Media{
		ID: id, OwnerID: owner, Title: "Clip " + id, CreditPrice: price, Premium: true,
	})
}

func TestPurchaseDebitsBuyerCreditsSeller(t *testing.T) {
	f := newEntitlementFixture(t)
	ctx := context.Background()
	f.profiles.seed("buyer", 100)
	f.profiles.seed("seller", 0)
	f.seedMedia("m1", "seller", 100)

	unlock, err := f.svc.Purchase(ctx, model.AccountIdentity("buyer"), "m1")
	require.NoError(t, err)
	require.Equal(t, "buyer", unlock.UserID)
	require.Equal(t, int64(100), unlock.CreditsSpent)
	require.Equal(t, f.now.Add(model.UnlockDuration), unlock.ExpiresAt)

	buyerBalance, err := f.ledger.Balance(ctx, model.AccountIdentity("buyer"))
	require.NoError(t, err)
	require.Equal(t, int64(0), buyerBalance)

	sellerBalance, err := f.ledger.Balance(ctx, model.AccountIdentity("seller"))
	require.NoError(t, err)
	require.Equal(t, int64(70), sellerBalance)

	sales, err := f.sales.ListBySeller(ctx, "seller", 10)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	require.Equal(t, int64(70), sales[0].CreditsEarned)
}

func TestPurchaseInsufficientCredits(t *testing.T) {
	f := newEntitlementFixture(t)
	ctx := context.Background()
	f.profiles.seed("buyer", 50)
	f.profiles.seed("seller", 0)
	f.seedMedia("m1", "seller", 100)

	_, err := f.svc.Purchase(ctx, model.AccountIdentity("buyer"), "m1")
	require.ErrorIs(t, err, ErrInsufficientCredits)

	// Nothing moved, nothing was recorded.
	buyerBalance, _ := f.ledger.Balance(ctx, model.AccountIdentity("buyer"))
	require.Equal(t, int64(50), buyerBalance)
	sellerBalance, _ := f.ledger.Balance(ctx, model.AccountIdentity("seller"))
	require.Equal(t, int64(0), sellerBalance)

	unlocked, err := f.svc.IsUnlocked(ctx, model.AccountIdentity("buyer"), "m1")
	require.NoError(t, err)
	require.False(t, unlocked)
}

func TestPurchaseReReadsStoredBalance(t *testing.T) {
	f := newEntitlementFixture(t)
	ctx := context.Background()
	f.profiles.seed("buyer", 50)
	f.profiles.seed("seller", 0)
	f.seedMedia("m1", "seller", 100)
	buyer := model.AccountIdentity("buyer")

	// Warm the cache at 50, then settle credits out of band.
	balance, err := f.ledger.Balance(ctx, buyer)
	require.NoError(t, err)
	require.Equal(t, int64(50), balance)
	f.profiles.seed("buyer", 150)

	// The stored balance covers the price; the stale cache must not
	// reject the purchase.
	unlock, err := f.svc.Purchase(ctx, buyer, "m1")
	require.NoError(t, err)
	require.NotNil(t, unlock)

	balance, err = f.ledger.Balance(ctx, buyer)
	require.NoError(t, err)
	require.Equal(t, int64(50), balance)
}

func TestPurchaseStaleHighCacheCannotAuthorize(t *testing.T) {
	f := newEntitlementFixture(t)
	ctx := context.Background()
	f.profiles.seed("buyer", 150)
	f.profiles.seed("seller", 0)
	f.seedMedia("m1", "seller", 100)
	buyer := model.AccountIdentity("buyer")

	balance, err := f.ledger.Balance(ctx, buyer)
	require.NoError(t, err)
	require.Equal(t, int64(150), balance)
	f.profiles.seed("buyer", 50)

	_, err = f.svc.Purchase(ctx, buyer, "m1")
	require.ErrorIs(t, err, ErrInsufficientCredits)

	stored, err := f.profiles.Credits(ctx, "buyer")
	require.NoError(t, err)
	require.Equal(t, int64(50), stored)
}

func TestPurchaseRejectsGuestsAndOwners(t *testing.T) {
	f := newEntitlementFixture(t)
	ctx := context.Background()
	f.profiles.seed("seller", 100)
	f.seedMedia("m1", "seller", 10)

	_, err := f.svc.Purchase(ctx, model.GuestIdentity("g1"), "m1")
	require.ErrorIs(t, err, ErrAccountRequired)

	_, err = f.svc.Purchase(ctx, model.AccountIdentity("seller"), "m1")
	require.ErrorIs(t, err, ErrOwnPurchase)

	_, err = f.svc.Purchase(ctx, model.AccountIdentity("seller"), "missing")
	require.ErrorIs(t, err, ErrMediaNotFound)
}

func TestPurchaseSurvivesUnlockInsertFailure(t *testing.T) {
	f := newEntitlementFixture(t)
	ctx := context.Background()
	f.profiles.seed("buyer", 100)
	f.profiles.seed("seller", 0)
	f.seedMedia("m1", "seller", 100)
	f.unlocks.failInsert = errStoreDown

	// The debit is authoritative; the unlock is still returned so the
	// buyer gets what they paid for, and the failure is left to
	// reconciliation.
	unlock, err := f.svc.Purchase(ctx, model.AccountIdentity("buyer"), "m1")
	require.NoError(t, err)
	require.NotNil(t, unlock)

	buyerBalance, _ := f.ledger.Balance(ctx, model.AccountIdentity("buyer"))
	require.Equal(t, int64(0), buyerBalance)
	sellerBalance, _ := f.ledger.Balance(ctx, model.AccountIdentity("seller"))
	require.Equal(t, int64(70), sellerBalance)
}

func TestUnlockExpiryIsPassive(t *testing.T) {
	f := newEntitlementFixture(t)
	ctx := context.Background()
	f.profiles.seed("buyer", 100)
	f.profiles.seed("seller", 0)
	f.seedMedia("m1", "seller", 100)

	_, err := f.svc.Purchase(ctx, model.AccountIdentity("buyer"), "m1")
	require.NoError(t, err)

	unlocked, err := f.svc.IsUnlocked(ctx, model.AccountIdentity("buyer"), "m1")
	require.NoError(t, err)
	require.True(t, unlocked)

	// One second past the window the unlock is indistinguishable from none.
	f.svc.now = func() time.Time { return f.now.Add(model.UnlockDuration + time.Second) }

	unlocked, err = f.svc.IsUnlocked(ctx, model.AccountIdentity("buyer"), "m1")
	require.NoError(t, err)
	require.False(t, unlocked)

	list, err := f.svc.ListUnlocks(ctx, model.AccountIdentity("buyer"))
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestPurchasePublishesUnlockCreated(t *testing.T) {
	f := newEntitlementFixture(t)
	ctx := context.Background()
	f.profiles.seed("buyer", 100)
	f.profiles.seed("seller", 0)
	f.seedMedia("m1", "seller", 10)

	sub := f.bus.Subscribe()
	_, err := f.svc.Purchase(ctx, model.AccountIdentity("buyer"), "m1")
	require.NoError(t, err)

	// Publishes happen synchronously inside Purchase, so everything is
	// already buffered.
	var got *events.Event
drain:
	for {
		select {
		case evt := <-sub:
			if evt.Kind == events.KindUnlockCreated {
				e := evt
				got = &e
				break drain
			}
		default:
			break drain
		}
	}
	require.NotNil(t, got)
	require.Equal(t, "m1", got.MediaID)
	require.Equal(t, model.AccountIdentity("buyer").Key(), got.Subject)
}

func TestSellerShareRounding(t *testing.T) {
	cases := map[int64]int64{
		100: 70,
		99:  69,
		10:  7,
		1:   0,
		0:   0,
	}
	for price, want := range cases {
		if got := model.SellerShare(price); got != want {
			t.Fatalf("SellerShare(%d) = %d, want %d", price, got, want)
		}
	}
}
