package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"creatorhub-api/internal/model"
	"creatorhub-api/pkg/uid"

	"github.com/redis/go-redis/v9"
)

const (
	guestKeyPrefix    = "creatorhub:guest:"
	presenceKeyPrefix = "creatorhub:presence:"
	queueKeyPrefix    = "creatorhub:queue:"

	// presenceHashTTL bounds how long an abandoned presence hash can
	// linger in Redis after every member disconnected.
	presenceHashTTL = 10 * time.Minute
)

// RedisStore implements GuestStore, PresenceStore and QueueStore on a
// shared Redis client.
type RedisStore struct {
	client          *redis.Client
	guestTTL        time.Duration
	startingCredits int64
	presenceTTL     time.Duration
}

// RedisStoreConfig holds Redis store settings.
type RedisStoreConfig struct {
	GuestTTL        time.Duration
	StartingCredits int64
	PresenceTTL     time.Duration
}

// NewRedisStore creates a Redis-backed session/presence/queue store.
func NewRedisStore(client *redis.Client, cfg RedisStoreConfig) *RedisStore {
	if cfg.GuestTTL == 0 {
		cfg.GuestTTL = 24 * time.Hour
	}
	if cfg.PresenceTTL == 0 {
		cfg.PresenceTTL = 45 * time.Second
	}
	log.Printf("[RedisStore] Initialized - guest TTL:%v, starting credits:%d, presence TTL:%v",
		cfg.GuestTTL, cfg.StartingCredits, cfg.PresenceTTL)
	return &RedisStore{
		client:          client,
		guestTTL:        cfg.GuestTTL,
		startingCredits: cfg.StartingCredits,
		presenceTTL:     cfg.PresenceTTL,
	}
}

func guestKey(sessionID string) string {
	return guestKeyPrefix + sessionID
}

func presenceKey(room string) string {
	return presenceKeyPrefix + room
}

func occupantKey(room string) string {
	return queueKeyPrefix + room + ":occupant"
}

func waitingKey(room string) string {
	return queueKeyPrefix + room + ":waiting"
}

func waitingMetaKey(room string) string {
	return queueKeyPrefix + room + ":waiting:meta"
}

// Create issues a fresh guest session with the default starting balance.
func (s *RedisStore) Create(ctx context.Context) (*model.GuestSession, error) {
	now := time.Now()
	session := &model.GuestSession{
		SessionID: uid.New(),
		Credits:   s.startingCredits,
		CreatedAt: now,
		ExpiresAt: now.Add(s.guestTTL),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize guest session: %w", err)
	}
	if err := s.client.Set(ctx, guestKey(session.SessionID), data, s.guestTTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to store guest session: %w", err)
	}
	return session, nil
}

// Get retrieves a live guest session, or nil if absent/expired.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*model.GuestSession, error) {
	data, err := s.client.Get(ctx, guestKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest session: %w", err)
	}

	var session model.GuestSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse guest session: %w", err)
	}
	if session.Expired(time.Now()) {
		s.client.Del(ctx, guestKey(sessionID))
		return nil, nil
	}
	return &session, nil
}

// Save persists a mutated session, keeping the remaining TTL.
func (s *RedisStore) Save(ctx context.Context, session *model.GuestSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize guest session: %w", err)
	}
	return s.client.Set(ctx, guestKey(session.SessionID), data, redis.KeepTTL).Err()
}

// Delete removes a guest session.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, guestKey(sessionID)).Err()
}

// Join publishes a presence entry into the room's live hash.
func (s *RedisStore) Join(ctx context.Context, room string, entry model.PresenceEntry) error {
	if entry.OnlineAt.IsZero() {
		entry.OnlineAt = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, presenceKey(room), entry.IdentityID, data)
	pipe.Expire(ctx, presenceKey(room), presenceHashTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// Heartbeat refreshes an entry's OnlineAt. Unknown entries are ignored.
func (s *RedisStore) Heartbeat(ctx context.Context, room, identityID string) error {
	data, err := s.client.HGet(ctx, presenceKey(room), identityID).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	var entry model.PresenceEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return err
	}
	entry.OnlineAt = time.Now()
	return s.Join(ctx, room, entry)
}

// Leave removes a presence entry.
func (s *RedisStore) Leave(ctx context.Context, room, identityID string) error {
	return s.client.HDel(ctx, presenceKey(room), identityID).Err()
}

// Online lists live presence entries and prunes stale ones.
func (s *RedisStore) Online(ctx context.Context, room string) ([]model.PresenceEntry, error) {
	fields, err := s.client.HGetAll(ctx, presenceKey(room)).Result()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-s.presenceTTL)
	var online []model.PresenceEntry
	var stale []string

	for id, raw := range fields {
		var entry model.PresenceEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			stale = append(stale, id)
			continue
		}
		if entry.OnlineAt.Before(cutoff) {
			stale = append(stale, id)
			continue
		}
		online = append(online, entry)
	}

	if len(stale) > 0 {
		s.client.HDel(ctx, presenceKey(room), stale...)
	}
	return online, nil
}

// Occupant returns the stored occupancy, or nil when the room is open.
func (s *RedisStore) Occupant(ctx context.Context, room string) (*model.Occupancy, error) {
	data, err := s.client.Get(ctx, occupantKey(room)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var occ model.Occupancy
	if err := json.Unmarshal(data, &occ); err != nil {
		return nil, err
	}
	return &occ, nil
}

// SetOccupant records the current occupant. The key expires with the slot
// as a safety net; callers still check ExpiresAt against the clock.
func (s *RedisStore) SetOccupant(ctx context.Context, room string, occ model.Occupancy) error {
	data, err := json.Marshal(occ)
	if err != nil {
		return err
	}
	ttl := time.Until(occ.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("occupancy already expired")
	}
	return s.client.Set(ctx, occupantKey(room), data, ttl).Err()
}

// ClearOccupant opens the room.
func (s *RedisStore) ClearOccupant(ctx context.Context, room string) error {
	return s.client.Del(ctx, occupantKey(room)).Err()
}

// Enqueue appends a waiting entry, keeping the original JoinedAt on
// re-enqueue.
func (s *RedisStore) Enqueue(ctx context.Context, room string, entry model.QueueEntry) error {
	if entry.JoinedAt.IsZero() {
		entry.JoinedAt = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.ZAddNX(ctx, waitingKey(room), redis.Z{
		Score:  float64(entry.JoinedAt.UnixNano()),
		Member: entry.IdentityID,
	})
	pipe.HSetNX(ctx, waitingMetaKey(room), entry.IdentityID, data)
	_, err = pipe.Exec(ctx)
	return err
}

// Dequeue removes a waiting entry.
func (s *RedisStore) Dequeue(ctx context.Context, room, identityID string) error {
	pipe := s.client.Pipeline()
	pipe.ZRem(ctx, waitingKey(room), identityID)
	pipe.HDel(ctx, waitingMetaKey(room), identityID)
	_, err := pipe.Exec(ctx)
	return err
}

// Waiting lists queue entries ordered by JoinedAt ascending.
func (s *RedisStore) Waiting(ctx context.Context, room string) ([]model.QueueEntry, error) {
	members, err := s.client.ZRangeWithScores(ctx, waitingKey(room), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	entries := make([]model.QueueEntry, 0, len(members))
	for _, m := range members {
		id, _ := m.Member.(string)
		raw, err := s.client.HGet(ctx, waitingMetaKey(room), id).Bytes()
		if err == nil {
			var entry model.QueueEntry
			if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil {
				entries = append(entries, entry)
				continue
			}
		}
		// Meta lost; rebuild the entry from the score.
		entries = append(entries, model.QueueEntry{
			IdentityID: id,
			JoinedAt:   time.Unix(0, int64(m.Score)),
		})
	}
	return entries, nil
}

// Ping verifies the underlying Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ GuestStore = (*RedisStore)(nil)
var _ PresenceStore = (*RedisStore)(nil)
var _ QueueStore = (*RedisStore)(nil)
