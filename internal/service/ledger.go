package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"creatorhub-api/internal/cache"
	"creatorhub-api/internal/events"
	"creatorhub-api/internal/model"
	"creatorhub-api/internal/repository"
	"creatorhub-api/pkg/uid"
)

var (
	// ErrInvalidAmount is returned for non-positive credit amounts.
	ErrInvalidAmount = errors.New("amount must be a positive integer")

	// ErrInsufficientCredits is returned when a subtract would underflow.
	// The pre-check fires before any persistence call.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrGuestNotFound is returned when a guest session is missing or expired.
	ErrGuestNotFound = errors.New("guest session not found")

	// ErrAccountRequired is returned for operations restricted to accounts.
	ErrAccountRequired = errors.New("authenticated account required")
)

// Ledger owns the per-identity credit balance: local session blobs for
// guests, the profile store for accounts. Mutations apply an optimistic
// cached update first and settle or roll it back on the store's answer.
type Ledger struct {
	profiles repository.ProfileRepository
	guests   cache.GuestStore
	notifs   repository.NotificationRepository
	bus      *events.Bus

	mu       sync.Mutex
	balances map[string]*balanceState
}

// NewLedger creates the credit ledger.
func NewLedger(
	profiles repository.ProfileRepository,
	guests cache.GuestStore,
	notifs repository.NotificationRepository,
	bus *events.Bus,
) *Ledger {
	return &Ledger{
		profiles: profiles,
		guests:   guests,
		notifs:   notifs,
		bus:      bus,
		balances: make(map[string]*balanceState),
	}
}

// Balance returns the identity's balance, serving the cached value when a
// prior mutation has settled it.
func (l *Ledger) Balance(ctx context.Context, identity model.Identity) (int64, error) {
	l.mu.Lock()
	if bs, ok := l.balances[identity.Key()]; ok && bs.settled() {
		value := bs.value
		l.mu.Unlock()
		return value, nil
	}
	l.mu.Unlock()

	value, err := l.loadBalance(ctx, identity)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	l.balances[identity.Key()] = &balanceState{state: stateCommitted, value: value, prev: value}
	l.mu.Unlock()
	return value, nil
}

// StoredBalance re-reads the identity's balance from the backing store,
// replacing any cached value. Callers that must not trust a possibly
// stale cache (the balance can change out of band on shared backends)
// use this instead of Balance.
func (l *Ledger) StoredBalance(ctx context.Context, identity model.Identity) (int64, error) {
	value, err := l.loadBalance(ctx, identity)
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	l.balances[identity.Key()] = &balanceState{state: stateCommitted, value: value, prev: value}
	l.mu.Unlock()
	return value, nil
}

func (l *Ledger) loadBalance(ctx context.Context, identity model.Identity) (int64, error) {
	if identity.IsAccount() {
		return l.profiles.Credits(ctx, identity.ID)
	}

	session, err := l.guests.Get(ctx, identity.ID)
	if err != nil {
		return 0, err
	}
	if session == nil {
		return 0, ErrGuestNotFound
	}
	return session.Credits, nil
}

// AddCredits validates and applies a positive credit grant, returning the
// new balance. The cached value is updated optimistically and rolled back
// if persistence fails.
func (l *Ledger) AddCredits(ctx context.Context, identity model.Identity, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	current, err := l.Balance(ctx, identity)
	if err != nil {
		return 0, err
	}

	bs := l.beginMutation(identity, current+amount)

	newBalance, err := l.persistAdd(ctx, identity, amount, reason)
	if err != nil {
		l.rollbackMutation(identity, bs)
		return 0, err
	}
	l.commitMutation(identity, bs, newBalance)

	if identity.IsAccount() {
		l.recordAccountNotification(ctx, identity.ID, model.NotificationCreditsAdded,
			"Credits added", reason, amount)
	}

	l.bus.Publish(events.Event{
		Kind:    events.KindCreditsChanged,
		Subject: identity.Key(),
		Balance: newBalance,
	})
	return newBalance, nil
}

// SubtractCredits validates and applies a deduction. Underflow fails fast
// with ErrInsufficientCredits before any persistence call; account debits
// are additionally guarded at the store.
func (l *Ledger) SubtractCredits(ctx context.Context, identity model.Identity, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	current, err := l.Balance(ctx, identity)
	if err != nil {
		return 0, err
	}
	if amount > current {
		return 0, ErrInsufficientCredits
	}

	bs := l.beginMutation(identity, current-amount)

	newBalance, err := l.persistSubtract(ctx, identity, amount, reason)
	if err != nil {
		l.rollbackMutation(identity, bs)
		if errors.Is(err, repository.ErrInsufficientCredits) {
			return 0, ErrInsufficientCredits
		}
		return 0, err
	}
	l.commitMutation(identity, bs, newBalance)

	if identity.IsAccount() {
		l.recordAccountNotification(ctx, identity.ID, model.NotificationCreditsSubtracted,
			"Credits spent", reason, -amount)
	}

	l.bus.Publish(events.Event{
		Kind:    events.KindCreditsChanged,
		Subject: identity.Key(),
		Balance: newBalance,
	})
	return newBalance, nil
}

func (l *Ledger) persistAdd(ctx context.Context, identity model.Identity, amount int64, reason string) (int64, error) {
	if identity.IsAccount() {
		return l.profiles.AddCredits(ctx, identity.ID, amount)
	}

	session, err := l.guests.Get(ctx, identity.ID)
	if err != nil {
		return 0, err
	}
	if session == nil {
		return 0, ErrGuestNotFound
	}

	session.Credits += amount
	appendGuestNotification(session, model.Notification{
		ID:            uid.New(),
		Type:          model.NotificationCreditsAdded,
		Title:         "Credits added",
		Message:       reason,
		CreditsAmount: int64Ptr(amount),
		CreatedAt:     time.Now(),
	})
	if err := l.guests.Save(ctx, session); err != nil {
		return 0, fmt.Errorf("failed to persist guest balance: %w", err)
	}
	return session.Credits, nil
}

func (l *Ledger) persistSubtract(ctx context.Context, identity model.Identity, amount int64, reason string) (int64, error) {
	if identity.IsAccount() {
		return l.profiles.SubtractCredits(ctx, identity.ID, amount)
	}

	session, err := l.guests.Get(ctx, identity.ID)
	if err != nil {
		return 0, err
	}
	if session == nil {
		return 0, ErrGuestNotFound
	}
	if session.Credits < amount {
		return 0, repository.ErrInsufficientCredits
	}

	session.Credits -= amount
	if session.Credits < 0 {
		// Unreachable through the public API; clamp anyway.
		session.Credits = 0
	}
	appendGuestNotification(session, model.Notification{
		ID:            uid.New(),
		Type:          model.NotificationCreditsSubtracted,
		Title:         "Credits spent",
		Message:       reason,
		CreditsAmount: int64Ptr(-amount),
		CreatedAt:     time.Now(),
	})
	if err := l.guests.Save(ctx, session); err != nil {
		return 0, fmt.Errorf("failed to persist guest balance: %w", err)
	}
	return session.Credits, nil
}

func (l *Ledger) beginMutation(identity model.Identity, next int64) *balanceState {
	l.mu.Lock()
	defer l.mu.Unlock()

	bs, ok := l.balances[identity.Key()]
	if !ok {
		bs = &balanceState{}
		l.balances[identity.Key()] = bs
	}
	bs.begin(next)
	return bs
}

func (l *Ledger) commitMutation(identity model.Identity, bs *balanceState, final int64) {
	l.mu.Lock()
	bs.commit(final)
	l.mu.Unlock()
}

func (l *Ledger) rollbackMutation(identity model.Identity, bs *balanceState) {
	l.mu.Lock()
	bs.rollback()
	l.mu.Unlock()
}

// ForceRefresh tells balance displays to re-read after an external
// settlement changed the stored balance out of band.
func (l *Ledger) ForceRefresh(identity model.Identity) {
	l.mu.Lock()
	delete(l.balances, identity.Key())
	l.mu.Unlock()

	l.bus.Publish(events.Event{
		Kind:         events.KindCreditsChanged,
		Subject:      identity.Key(),
		ForceRefresh: true,
	})
}

// ClearIdentity drops the identity's cached balance. Part of the
// identity-scoped store registry cleared on identity switches.
func (l *Ledger) ClearIdentity(ctx context.Context, identity model.Identity) error {
	l.mu.Lock()
	delete(l.balances, identity.Key())
	l.mu.Unlock()
	return nil
}

func (l *Ledger) recordAccountNotification(ctx context.Context, accountID, typ, title, message string, amount int64) {
	n := &model.Notification{
		ID:            uid.New(),
		OwnerID:       accountID,
		Type:          typ,
		Title:         title,
		Message:       message,
		CreditsAmount: int64Ptr(amount),
		CreatedAt:     time.Now(),
	}
	if err := l.notifs.Insert(ctx, n); err != nil {
		log.Printf("[Ledger] Failed to record notification for %s: %v", accountID, err)
	}
}

// appendGuestNotification appends and drops the oldest entries beyond the
// guest cap.
func appendGuestNotification(session *model.GuestSession, n model.Notification) {
	session.Notifications = append(session.Notifications, n)
	if over := len(session.Notifications) - model.GuestNotificationCap; over > 0 {
		session.Notifications = session.Notifications[over:]
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}
