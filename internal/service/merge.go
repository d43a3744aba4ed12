package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"creatorhub-api/internal/cache"
	"creatorhub-api/internal/model"
	"creatorhub-api/internal/repository"
	"creatorhub-api/pkg/uid"
)

// MergeResult summarizes what a guest-to-account merge migrated.
type MergeResult struct {
	WishlistItems int   `json:"wishlist_items"`
	Credits       int64 `json:"credits"`
}

// Merged reports whether anything was migrated.
func (r *MergeResult) Merged() bool {
	return r.WishlistItems > 0 || r.Credits > 0
}

// MergeService migrates guest-scoped data into an account on first login.
// Each collection is guarded independently: one failure does not block the
// others. The guest copy of a collection is removed immediately after its
// successful migration, so a rerun finds nothing to merge. The guest
// identity is isolated only once every collection migrated; a partial
// merge leaves the session blob in place so nothing is lost.
type MergeService struct {
	guests    cache.GuestStore
	wishlist  repository.WishlistRepository
	notifs    repository.NotificationRepository
	ledger    *Ledger
	isolation *IsolationRegistry
}

// NewMergeService creates the guest merge service.
func NewMergeService(
	guests cache.GuestStore,
	wishlist repository.WishlistRepository,
	notifs repository.NotificationRepository,
	ledger *Ledger,
	isolation *IsolationRegistry,
) *MergeService {
	return &MergeService{
		guests:    guests,
		wishlist:  wishlist,
		notifs:    notifs,
		ledger:    ledger,
		isolation: isolation,
	}
}

// Merge migrates the guest session's wishlist and credit balance into the
// account. Returns a zero result and nil error when there is nothing to
// merge (missing or empty session).
func (s *MergeService) Merge(ctx context.Context, accountID, guestSessionID string) (*MergeResult, error) {
	result := &MergeResult{}
	if guestSessionID == "" {
		return result, nil
	}

	session, err := s.guests.Get(ctx, guestSessionID)
	if err != nil {
		return result, err
	}
	if session == nil {
		return result, nil
	}

	var failures []error

	if len(session.Wishlist) > 0 {
		migrated, err := s.mergeWishlist(ctx, accountID, session)
		if err != nil {
			// Guest copy stays in place; no data loss.
			log.Printf("[MergeService] Wishlist merge failed for account %s: %v", accountID, err)
			failures = append(failures, fmt.Errorf("wishlist merge: %w", err))
		} else {
			result.WishlistItems = migrated
		}
	}

	if session.Credits > 0 {
		amount := session.Credits
		// Server-side atomic increment; never read-modify-write against
		// a concurrent purchase.
		if _, err := s.ledger.AddCredits(ctx, model.AccountIdentity(accountID), amount, "Guest balance merged"); err != nil {
			log.Printf("[MergeService] Credit merge failed for account %s: %v", accountID, err)
			failures = append(failures, fmt.Errorf("credit merge: %w", err))
		} else {
			session.Credits = 0
			if err := s.guests.Save(ctx, session); err != nil {
				log.Printf("[MergeService] Failed to clear guest balance %s: %v", guestSessionID, err)
			}
			result.Credits = amount
		}
	}

	if len(failures) == 0 {
		if err := s.guests.Delete(ctx, guestSessionID); err != nil {
			log.Printf("[MergeService] Failed to delete guest session %s: %v", guestSessionID, err)
		}
		s.isolation.Isolate(ctx, model.GuestIdentity(guestSessionID))
	} else {
		// The blob keeps whatever did not migrate. Only the cached guest
		// balance is dropped so the surviving session re-reads fresh.
		s.ledger.ClearIdentity(ctx, model.GuestIdentity(guestSessionID))
	}

	if result.Merged() {
		s.recordMergeNotification(ctx, accountID, result)
	}
	return result, errors.Join(failures...)
}

// mergeWishlist re-keys each guest item and bulk-inserts them for the
// account. The guest copy is removed immediately after the batch lands.
func (s *MergeService) mergeWishlist(ctx context.Context, accountID string, session *model.GuestSession) (int, error) {
	items := make([]model.WishlistItem, len(session.Wishlist))
	for i, item := range session.Wishlist {
		item.ID = uid.New()
		item.OwnerID = accountID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = time.Now()
		}
		items[i] = item
	}

	if err := s.wishlist.BatchInsert(ctx, items); err != nil {
		return 0, err
	}

	session.Wishlist = nil
	if err := s.guests.Save(ctx, session); err != nil {
		// The items are durable; a rerun would still find an empty list
		// only if this save landed. Log loudly.
		log.Printf("[MergeService] Failed to clear guest wishlist %s: %v", session.SessionID, err)
	}
	return len(items), nil
}

func (s *MergeService) recordMergeNotification(ctx context.Context, accountID string, result *MergeResult) {
	n := &model.Notification{
		ID:      uid.New(),
		OwnerID: accountID,
		Type:    model.NotificationMergeCompleted,
		Title:   "Welcome back",
		Message: fmt.Sprintf("Migrated %d wishlist item(s) and %d credit(s) from your guest session",
			result.WishlistItems, result.Credits),
		CreditsAmount: int64Ptr(result.Credits),
		CreatedAt:     time.Now(),
	}
	if err := s.notifs.Insert(ctx, n); err != nil {
		log.Printf("[MergeService] Failed to record merge notification for %s: %v", accountID, err)
	}
}
