package service

import (
	"context"
	"errors"
	"log"
	"time"

	"creatorhub-api/internal/events"
	"creatorhub-api/internal/model"
	"creatorhub-api/internal/repository"
	"creatorhub-api/pkg/uid"
)

// ErrMediaNotFound is returned when the purchased media does not exist.
var ErrMediaNotFound = errors.New("media not found")

// ErrOwnPurchase is returned when a creator tries to buy their own media.
var ErrOwnPurchase = errors.New("cannot purchase own media")

// EntitlementService handles unlock purchases and access checks. The
// buyer's debit is the authoritative step; crediting the seller and
// recording the unlock and sale are best-effort follow-ups that are
// logged on failure and never roll back the debit.
type EntitlementService struct {
	media   repository.MediaRepository
	unlocks repository.UnlockRepository
	sales   repository.SaleRepository
	ledger  *Ledger
	bus     *events.Bus
	now     func() time.Time
}

// NewEntitlementService creates the entitlement service.
func NewEntitlementService(
	media repository.MediaRepository,
	unlocks repository.UnlockRepository,
	sales repository.SaleRepository,
	ledger *Ledger,
	bus *events.Bus,
) *EntitlementService {
	return &EntitlementService{
		media:   media,
		unlocks: unlocks,
		sales:   sales,
		ledger:  ledger,
		bus:     bus,
		now:     time.Now,
	}
}

// Purchase unlocks a media item for the buyer. Guests cannot purchase.
// The stored balance is re-read immediately before committing so a stale
// cached value can never authorize a debit.
func (s *EntitlementService) Purchase(ctx context.Context, buyer model.Identity, mediaID string) (*model.Unlock, error) {
	if !buyer.IsAccount() {
		return nil, ErrAccountRequired
	}

	media, err := s.media.GetByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, err
	}
	if media.OwnerID == buyer.ID {
		return nil, ErrOwnPurchase
	}
	price := media.CreditPrice

	// Re-read the stored balance, never the cached value; the guarded
	// debit below still decides.
	balance, err := s.ledger.StoredBalance(ctx, buyer)
	if err != nil {
		return nil, err
	}
	if price > balance {
		return nil, ErrInsufficientCredits
	}

	if _, err := s.ledger.SubtractCredits(ctx, buyer, price, "Unlocked "+media.Title); err != nil {
		return nil, err
	}

	now := s.now()
	unlock := &model.Unlock{
		ID:           uid.New(),
		UserID:       buyer.ID,
		MediaID:      mediaID,
		UnlockType:   "purchase",
		CreditsSpent: price,
		UnlockedAt:   now,
		ExpiresAt:    now.Add(model.UnlockDuration),
	}

	// Best-effort follow-ups. The buyer has been charged; failures here
	// are logged for reconciliation, not rolled back.
	share := model.SellerShare(price)
	if share > 0 {
		if _, err := s.ledger.AddCredits(ctx, model.AccountIdentity(media.OwnerID), share,
			"Sale: "+media.Title); err != nil {
			log.Printf("[EntitlementService] Failed to credit seller %s for media %s: %v",
				media.OwnerID, mediaID, err)
		}
	}

	if err := s.unlocks.Insert(ctx, unlock); err != nil {
		log.Printf("[EntitlementService] Failed to record unlock for buyer %s media %s: %v",
			buyer.ID, mediaID, err)
	}

	sale := &model.Sale{
		ID:            uid.New(),
		SellerID:      media.OwnerID,
		BuyerID:       buyer.ID,
		MediaID:       mediaID,
		Price:         price,
		CreditsEarned: share,
		SoldAt:        now,
	}
	if err := s.sales.Insert(ctx, sale); err != nil {
		log.Printf("[EntitlementService] Failed to record sale for seller %s media %s: %v",
			media.OwnerID, mediaID, err)
	}

	s.bus.Publish(events.Event{
		Kind:    events.KindUnlockCreated,
		Subject: buyer.Key(),
		MediaID: mediaID,
	})
	return unlock, nil
}

// IsUnlocked reports whether the identity holds a live unlock for the
// media. An expired unlock is indistinguishable from none.
func (s *EntitlementService) IsUnlocked(ctx context.Context, identity model.Identity, mediaID string) (bool, error) {
	if !identity.IsAccount() {
		return false, nil
	}
	unlock, err := s.unlocks.Active(ctx, identity.ID, mediaID, s.now())
	if err != nil {
		return false, err
	}
	return unlock != nil, nil
}

// ListUnlocks returns the identity's live unlocks.
func (s *EntitlementService) ListUnlocks(ctx context.Context, identity model.Identity) ([]model.Unlock, error) {
	if !identity.IsAccount() {
		return nil, nil
	}
	return s.unlocks.ListActive(ctx, identity.ID, s.now())
}

// ListSales returns the creator's sale history.
func (s *EntitlementService) ListSales(ctx context.Context, sellerID string, limit int) ([]model.Sale, error) {
	return s.sales.ListBySeller(ctx, sellerID, limit)
}
