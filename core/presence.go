package core

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"
)

// Presence 用の Redis キーと TTL のデフォルト値。
const (
	PresenceKeyPrefix = "auth:online:"
	// PresenceTTL はオンライン扱いを維持する期限。Keeper が定期更新する。
	PresenceTTL     = 45 * time.Second
	presenceRefresh = 15 * time.Second

	RecentEventsKey   = "auth:recent_events"
	recentEventsLimit = 100
)

// PresenceKey returns the Redis key for a given username.
func PresenceKey(username string) string {
	return PresenceKeyPrefix + username
}

// PresenceStore tracks which users are currently signed in, backed by
// Redis keys with a TTL, and keeps a capped list of recent auth events.
type PresenceStore struct {
	redis RedisClientRaw
}

func NewPresenceStore(client RedisClientRaw) *PresenceStore {
	return &PresenceStore{redis: client}
}

// MarkOnline flags username as signed in until the TTL lapses.
func (s *PresenceStore) MarkOnline(ctx context.Context, username string) error {
	return s.redis.Set(ctx, PresenceKey(username), time.Now().Format(time.RFC3339), PresenceTTL).Err()
}

// MarkOffline removes the presence flag immediately.
func (s *PresenceStore) MarkOffline(ctx context.Context, username string) error {
	return s.redis.Del(ctx, PresenceKey(username)).Err()
}

// Refresh extends the TTL for a signed-in user.
func (s *PresenceStore) Refresh(ctx context.Context, username string) error {
	return s.redis.Expire(ctx, PresenceKey(username), PresenceTTL).Err()
}

// Online returns every username with a live presence key.
func (s *PresenceStore) Online(ctx context.Context) ([]string, error) {
	iter := s.redis.Scan(ctx, 0, PresenceKeyPrefix+"*", 100).Iterator()
	var users []string
	for iter.Next(ctx) {
		users = append(users, strings.TrimPrefix(iter.Val(), PresenceKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// RecordedEvent is the JSON payload kept in the recent-event list.
type RecordedEvent struct {
	Username string    `json:"username"`
	Kind     string    `json:"kind"`
	At       time.Time `json:"at"`
}

// RecordEvent prepends an event to the capped recent-event list
// (LPUSH + LTRIM、最新 recentEventsLimit 件のみ保持).
func (s *PresenceStore) RecordEvent(ctx context.Context, ev RecordedEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := s.redis.LPush(ctx, RecentEventsKey, data).Err(); err != nil {
		return err
	}
	return s.redis.LTrim(ctx, RecentEventsKey, 0, recentEventsLimit-1).Err()
}

// RecentEvents returns up to n of the latest recorded events, newest
// first. Entries that fail to decode are skipped.
func (s *PresenceStore) RecentEvents(ctx context.Context, n int) ([]RecordedEvent, error) {
	if n <= 0 || n > recentEventsLimit {
		n = recentEventsLimit
	}
	vals, err := s.redis.LRange(ctx, RecentEventsKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	events := make([]RecordedEvent, 0, len(vals))
	for _, v := range vals {
		var ev RecordedEvent
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// PresenceKeeper はサインイン中のユーザーの presence TTL を定期更新する。
type PresenceKeeper struct {
	store  *PresenceStore
	ticker *time.Ticker

	mu   sync.Mutex
	user string
}

func NewPresenceKeeper(store *PresenceStore) *PresenceKeeper {
	return &PresenceKeeper{
		store:  store,
		ticker: time.NewTicker(presenceRefresh),
	}
}

// Start blocks until ctx is done, refreshing the current user's TTL.
func (k *PresenceKeeper) Start(ctx context.Context) {
	defer k.ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-k.ticker.C:
			k.refresh(ctx)
		}
	}
}

// Observer returns the callback that keeps the tracked user in sync
// with the auth state.
func (k *PresenceKeeper) Observer() AuthObserver {
	return func(snap AuthSnapshot) {
		k.mu.Lock()
		if snap.Authenticated {
			k.user = snap.Username
		} else {
			k.user = ""
		}
		k.mu.Unlock()
	}
}

func (k *PresenceKeeper) refresh(ctx context.Context) {
	k.mu.Lock()
	user := k.user
	k.mu.Unlock()
	if user == "" {
		return
	}
	if err := k.store.Refresh(ctx, user); err != nil {
		log.Printf("presence: refresh failed for %s: %v", user, err)
	}
}
