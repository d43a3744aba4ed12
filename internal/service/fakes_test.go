package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"creatorhub-api/internal/model"
	"creatorhub-api/internal/repository"
)

// fakeProfileRepo is an in-memory ProfileRepository with the same guarded
// debit semantics as the SQL implementations.
type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile

	failAdd      error
	failSubtract error
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*model.Profile)}
}

func (f *fakeProfileRepo) seed(id string, credits int64) {
	f.mu.Lock()
	f.profiles[id] = &model.Profile{ID: id, Credits: credits}
	f.mu.Unlock()
}

func (f *fakeProfileRepo) Create(ctx context.Context, p *model.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[p.ID]; ok {
		return repository.ErrDuplicate
	}
	cp := *p
	f.profiles[p.ID] = &cp
	return nil
}

func (f *fakeProfileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfileRepo) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeProfileRepo) Credits(ctx context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return p.Credits, nil
}

func (f *fakeProfileRepo) AddCredits(ctx context.Context, id string, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAdd != nil {
		return 0, f.failAdd
	}
	p, ok := f.profiles[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	p.Credits += amount
	return p.Credits, nil
}

func (f *fakeProfileRepo) SubtractCredits(ctx context.Context, id string, amount int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSubtract != nil {
		return 0, f.failSubtract
	}
	p, ok := f.profiles[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if p.Credits < amount {
		return 0, repository.ErrInsufficientCredits
	}
	p.Credits -= amount
	return p.Credits, nil
}

func (f *fakeProfileRepo) Close() error { return nil }

type fakeNotifRepo struct {
	mu    sync.Mutex
	items []model.Notification
}

func (f *fakeNotifRepo) Insert(ctx context.Context, n *model.Notification) error {
	f.mu.Lock()
	f.items = append(f.items, *n)
	f.mu.Unlock()
	return nil
}

func (f *fakeNotifRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.items {
		if n.OwnerID == ownerID {
			out = append(out, n)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeNotifRepo) MarkRead(ctx context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].OwnerID == ownerID && f.items[i].ID == id {
			f.items[i].Read = true
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeWishlistRepo struct {
	mu        sync.Mutex
	items     []model.WishlistItem
	failBatch error
}

func (f *fakeWishlistRepo) Insert(ctx context.Context, item *model.WishlistItem) error {
	f.mu.Lock()
	f.items = append(f.items, *item)
	f.mu.Unlock()
	return nil
}

func (f *fakeWishlistRepo) BatchInsert(ctx context.Context, items []model.WishlistItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBatch != nil {
		return f.failBatch
	}
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeWishlistRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.WishlistItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.WishlistItem
	for _, item := range f.items {
		if item.OwnerID == ownerID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeWishlistRepo) Delete(ctx context.Context, ownerID, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, item := range f.items {
		if item.OwnerID == ownerID && item.ID == itemID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeMediaRepo struct {
	mu    sync.Mutex
	items map[string]*model.Media
}

func newFakeMediaRepo() *fakeMediaRepo {
	return &fakeMediaRepo{items: make(map[string]*model.Media)}
}

func (f *fakeMediaRepo) Insert(ctx context.Context, m *model.Media) error {
	f.mu.Lock()
	cp := *m
	f.items[m.ID] = &cp
	f.mu.Unlock()
	return nil
}

func (f *fakeMediaRepo) GetByID(ctx context.Context, id string) (*model.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMediaRepo) ListByOwner(ctx context.Context, ownerID string) ([]model.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Media
	for _, m := range f.items {
		if m.OwnerID == ownerID {
			out = append(out, *m)
		}
	}
	return out, nil
}

type fakeUnlockRepo struct {
	mu         sync.Mutex
	items      []model.Unlock
	failInsert error
}

func (f *fakeUnlockRepo) Insert(ctx context.Context, u *model.Unlock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert != nil {
		return f.failInsert
	}
	f.items = append(f.items, *u)
	return nil
}

func (f *fakeUnlockRepo) Active(ctx context.Context, userID, mediaID string, now time.Time) (*model.Unlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		u := f.items[i]
		if u.UserID == userID && u.MediaID == mediaID && u.Active(now) {
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUnlockRepo) ListActive(ctx context.Context, userID string, now time.Time) ([]model.Unlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Unlock
	for _, u := range f.items {
		if u.UserID == userID && u.Active(now) {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeSaleRepo struct {
	mu    sync.Mutex
	items []model.Sale
}

func (f *fakeSaleRepo) Insert(ctx context.Context, s *model.Sale) error {
	f.mu.Lock()
	f.items = append(f.items, *s)
	f.mu.Unlock()
	return nil
}

func (f *fakeSaleRepo) ListBySeller(ctx context.Context, sellerID string, limit int) ([]model.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Sale
	for _, s := range f.items {
		if s.SellerID == sellerID {
			out = append(out, s)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeSettingsRepo struct {
	mu       sync.Mutex
	settings map[string]*model.CreatorSettings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: make(map[string]*model.CreatorSettings)}
}

func (f *fakeSettingsRepo) Get(ctx context.Context, creatorID string) (*model.CreatorSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[creatorID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSettingsRepo) Put(ctx context.Context, s *model.CreatorSettings) error {
	f.mu.Lock()
	cp := *s
	f.settings[s.CreatorID] = &cp
	f.mu.Unlock()
	return nil
}

var errStoreDown = errors.New("store down")
