package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daehyun-kim/chess-review/internal/domain"
	"github.com/daehyun-kim/chess-review/internal/gamestore"
	"github.com/daehyun-kim/chess-review/internal/replay"
)

var ErrSessionNotFound = errors.New("review session not found")

// Config carries the replay tuning knobs a session is built with.
type Config struct {
	CacheMaxSize  int
	CacheTTL      time.Duration
	PreloadWindow int
	SpeedMs       int
	SessionTTL    time.Duration
}

func (c Config) withDefaults() Config {
	if c.CacheMaxSize <= 0 {
		c.CacheMaxSize = replay.DefaultCacheSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = replay.DefaultCacheTTL
	}
	if c.PreloadWindow <= 0 {
		c.PreloadWindow = replay.DefaultPreloadWindow
	}
	if c.SpeedMs <= 0 {
		c.SpeedMs = replay.DefaultSpeedMs
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = time.Hour
	}
	return c
}

// Manager creates and tracks review sessions. Each session owns its own
// cache and controller; nothing replay-related is shared across sessions.
type Manager struct {
	games  gamestore.Repository
	store  *StateStore // optional; nil means no resume across restarts
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	sweepStop chan struct{}
	sweepOnce sync.Once
}

func NewManager(games gamestore.Repository, store *StateStore, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		games:     games,
		store:     store,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		sessions:  make(map[string]*Session),
		sweepStop: make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Create opens a review session for a recorded game.
func (m *Manager) Create(ctx context.Context, gameID int64) (*Session, error) {
	game, err := m.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return m.start(ctx, uuid.NewString(), game, replay.NoIndex, m.cfg.SpeedMs)
}

// Resume reopens a session by id. A live session is returned as-is; after
// a process restart the snapshot store restores the game and move index.
func (m *Manager) Resume(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	if m.store == nil {
		return nil, ErrSessionNotFound
	}
	persisted, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if persisted == nil {
		return nil, ErrSessionNotFound
	}
	game, err := m.games.GetGame(ctx, persisted.GameID)
	if err != nil {
		return nil, err
	}
	s, err := m.start(ctx, id, game, persisted.CurrentIndex, persisted.SpeedMs)
	if err != nil {
		return nil, err
	}
	m.logger.Info("session_resumed",
		zap.String("session_id", id),
		zap.Int64("game_id", persisted.GameID),
		zap.Int("index", persisted.CurrentIndex),
	)
	return s, nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Destroy closes a session and drops its persisted snapshot.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.Warn("session_snapshot_delete_failed", zap.String("session_id", id), zap.Error(err))
		}
	}
	m.logger.Info("session_destroyed", zap.String("session_id", id))
	return nil
}

// Close shuts down every session and the idle sweeper.
func (m *Manager) Close() {
	m.sweepOnce.Do(func() { close(m.sweepStop) })
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.closed = true
	m.mu.Unlock()
	for _, s := range sessions {
		s.close()
	}
}

func (m *Manager) start(ctx context.Context, id string, game *domain.GameRecord, index, speedMs int) (*Session, error) {
	initial := game.InitialPosition()
	engine := replay.NewEngine(m.logger)
	cache := replay.NewCache(engine, initial, m.logger,
		replay.WithMaxSize(m.cfg.CacheMaxSize),
		replay.WithTTL(m.cfg.CacheTTL),
	)

	s := &Session{
		ID:        id,
		game:      game,
		cache:     cache,
		logger:    m.logger,
		tasks:     make(chan func(), 16),
		quit:      make(chan struct{}),
		listeners: make(map[int]func(Event)),
	}
	s.lastActive.Store(time.Now().UnixNano())

	s.ctrl = replay.NewController(cache, game.Moves, s, m.logger,
		replay.WithPreloadWindow(m.cfg.PreloadWindow),
		replay.WithSpeed(speedMs),
		replay.OnIndexChange(func(i int) {
			s.emit(Event{Type: EventIndexChange, Index: i})
			m.persist(s, i, s.ctrl.State().SpeedMs)
		}),
		replay.OnPositionPreload(func(warmed []replay.Preloaded) {
			s.emit(Event{Type: EventPreload, Warmed: warmed})
		}),
	)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrSessionClosed
	}
	m.sessions[id] = s
	m.mu.Unlock()

	go s.loop()

	if index >= 0 {
		if _, err := s.Nav(NavJump, index); err != nil {
			return nil, err
		}
	}
	m.persist(s, index, speedMs)
	m.logger.Info("session_created",
		zap.String("session_id", id),
		zap.Int64("game_id", game.ID),
		zap.Int("total_moves", len(game.Moves)),
	)
	return s, nil
}

// persist snapshots navigation state off the session loop; losing a
// snapshot only costs resume fidelity, so failures are logged and dropped.
func (m *Manager) persist(s *Session, index, speedMs int) {
	if m.store == nil {
		return
	}
	state := PersistedState{
		SessionID:    s.ID,
		GameID:       s.game.ID,
		CurrentIndex: index,
		SpeedMs:      speedMs,
		UpdatedAt:    time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := m.store.Save(ctx, &state); err != nil {
			m.logger.Warn("session_snapshot_save_failed", zap.String("session_id", s.ID), zap.Error(err))
		}
	}()
}

func (m *Manager) sweepLoop() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-m.sweepStop:
			return
		case <-t.C:
			m.sweepIdle()
		}
	}
}

func (m *Manager) sweepIdle() {
	cutoff := time.Now().Add(-m.cfg.SessionTTL)
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()
	for _, s := range expired {
		s.close()
		m.logger.Info("session_expired", zap.String("session_id", s.ID))
	}
}
