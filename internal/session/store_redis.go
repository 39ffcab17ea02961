package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultSnapshotTTL = 24 * time.Hour

// PersistedState is the slice of session state worth surviving a process
// restart: which game, which move, which speed. Cache contents are
// recomputed, never persisted.
type PersistedState struct {
	SessionID    string    `json:"session_id"`
	GameID       int64     `json:"game_id"`
	CurrentIndex int       `json:"current_index"`
	SpeedMs      int       `json:"speed_ms"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StateStore keeps session snapshots in Redis with a TTL so abandoned
// sessions age out on their own.
type StateStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStateStore(redisURL string) (*StateStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for session state store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &StateStore{rdb: rdb, ttl: defaultSnapshotTTL}, nil
}

func (s *StateStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *StateStore) key(id string) string {
	return "review:session:" + strings.TrimSpace(id)
}

func (s *StateStore) Save(ctx context.Context, state *PersistedState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(state.SessionID), raw, s.ttl).Err()
}

// Load returns nil, nil when no snapshot exists.
func (s *StateStore) Load(ctx context.Context, id string) (*PersistedState, error) {
	raw, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state PersistedState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *StateStore) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, s.key(id)).Err()
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
