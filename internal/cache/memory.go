package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"creatorhub-api/internal/model"
	"creatorhub-api/pkg/uid"
)

// MemoryStore is an in-process implementation of GuestStore, PresenceStore
// and QueueStore. Used when Redis is unavailable and by tests. State does
// not survive a restart and is not shared across instances.
type MemoryStore struct {
	mu              sync.RWMutex
	guestTTL        time.Duration
	startingCredits int64
	presenceTTL     time.Duration

	guests    map[string]*model.GuestSession
	presence  map[string]map[string]model.PresenceEntry // room -> identity -> entry
	occupants map[string]model.Occupancy                // room -> occupancy
	waiting   map[string][]model.QueueEntry             // room -> entries (insertion order)
}

// NewMemoryStore creates an in-memory session/presence/queue store.
func NewMemoryStore(cfg RedisStoreConfig) *MemoryStore {
	if cfg.GuestTTL == 0 {
		cfg.GuestTTL = 24 * time.Hour
	}
	if cfg.PresenceTTL == 0 {
		cfg.PresenceTTL = 45 * time.Second
	}
	return &MemoryStore{
		guestTTL:        cfg.GuestTTL,
		startingCredits: cfg.StartingCredits,
		presenceTTL:     cfg.PresenceTTL,
		guests:          make(map[string]*model.GuestSession),
		presence:        make(map[string]map[string]model.PresenceEntry),
		occupants:       make(map[string]model.Occupancy),
		waiting:         make(map[string][]model.QueueEntry),
	}
}

func cloneSession(s *model.GuestSession) *model.GuestSession {
	out := *s
	out.Notifications = append([]model.Notification(nil), s.Notifications...)
	out.Wishlist = append([]model.WishlistItem(nil), s.Wishlist...)
	return &out
}

// Create issues a fresh guest session with the default starting balance.
func (m *MemoryStore) Create(ctx context.Context) (*model.GuestSession, error) {
	now := time.Now()
	session := &model.GuestSession{
		SessionID: uid.New(),
		Credits:   m.startingCredits,
		CreatedAt: now,
		ExpiresAt: now.Add(m.guestTTL),
	}

	m.mu.Lock()
	m.guests[session.SessionID] = cloneSession(session)
	m.mu.Unlock()
	return session, nil
}

// Get retrieves a live guest session, or nil if absent/expired.
func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*model.GuestSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.guests[sessionID]
	if !ok {
		return nil, nil
	}
	if session.Expired(time.Now()) {
		delete(m.guests, sessionID)
		return nil, nil
	}
	return cloneSession(session), nil
}

// Save persists a mutated session.
func (m *MemoryStore) Save(ctx context.Context, session *model.GuestSession) error {
	m.mu.Lock()
	m.guests[session.SessionID] = cloneSession(session)
	m.mu.Unlock()
	return nil
}

// Delete removes a guest session.
func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.guests, sessionID)
	m.mu.Unlock()
	return nil
}

// Join publishes a presence entry.
func (m *MemoryStore) Join(ctx context.Context, room string, entry model.PresenceEntry) error {
	if entry.OnlineAt.IsZero() {
		entry.OnlineAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.presence[room] == nil {
		m.presence[room] = make(map[string]model.PresenceEntry)
	}
	m.presence[room][entry.IdentityID] = entry
	return nil
}

// Heartbeat refreshes an entry's OnlineAt. Unknown entries are ignored.
func (m *MemoryStore) Heartbeat(ctx context.Context, room, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.presence[room][identityID]
	if !ok {
		return nil
	}
	entry.OnlineAt = time.Now()
	m.presence[room][identityID] = entry
	return nil
}

// Leave removes a presence entry.
func (m *MemoryStore) Leave(ctx context.Context, room, identityID string) error {
	m.mu.Lock()
	delete(m.presence[room], identityID)
	m.mu.Unlock()
	return nil
}

// Online lists live presence entries and prunes stale ones.
func (m *MemoryStore) Online(ctx context.Context, room string) ([]model.PresenceEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.presenceTTL)
	var online []model.PresenceEntry
	for id, entry := range m.presence[room] {
		if entry.OnlineAt.Before(cutoff) {
			delete(m.presence[room], id)
			continue
		}
		online = append(online, entry)
	}
	return online, nil
}

// Occupant returns the stored occupancy, or nil when the room is open.
func (m *MemoryStore) Occupant(ctx context.Context, room string) (*model.Occupancy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	occ, ok := m.occupants[room]
	if !ok {
		return nil, nil
	}
	out := occ
	return &out, nil
}

// SetOccupant records the current occupant.
func (m *MemoryStore) SetOccupant(ctx context.Context, room string, occ model.Occupancy) error {
	m.mu.Lock()
	m.occupants[room] = occ
	m.mu.Unlock()
	return nil
}

// ClearOccupant opens the room.
func (m *MemoryStore) ClearOccupant(ctx context.Context, room string) error {
	m.mu.Lock()
	delete(m.occupants, room)
	m.mu.Unlock()
	return nil
}

// Enqueue appends a waiting entry, keeping the original JoinedAt on
// re-enqueue.
func (m *MemoryStore) Enqueue(ctx context.Context, room string, entry model.QueueEntry) error {
	if entry.JoinedAt.IsZero() {
		entry.JoinedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.waiting[room] {
		if existing.IdentityID == entry.IdentityID {
			return nil
		}
	}
	m.waiting[room] = append(m.waiting[room], entry)
	return nil
}

// Dequeue removes a waiting entry.
func (m *MemoryStore) Dequeue(ctx context.Context, room, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.waiting[room]
	for i, e := range entries {
		if e.IdentityID == identityID {
			m.waiting[room] = append(entries[:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

// Waiting lists queue entries ordered by JoinedAt ascending, ties broken
// by insertion order.
func (m *MemoryStore) Waiting(ctx context.Context, room string) ([]model.QueueEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := append([]model.QueueEntry(nil), m.waiting[room]...)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].JoinedAt.Before(entries[j].JoinedAt)
	})
	return entries, nil
}

var _ GuestStore = (*MemoryStore)(nil)
var _ PresenceStore = (*MemoryStore)(nil)
var _ QueueStore = (*MemoryStore)(nil)
