package replay

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/daehyun-kim/chess-review/internal/domain"
)

const (
	DefaultCacheSize = 100
	DefaultCacheTTL  = 5 * time.Minute
)

type cacheEntry struct {
	index      int
	position   domain.Position
	computedAt time.Time
}

// Cache memoizes engine output keyed by move index. One instance belongs
// to one review session; it is not safe for concurrent use and relies on
// the session loop being the only caller.
type Cache struct {
	engine  *Engine
	initial domain.Position
	logger  *zap.Logger

	entries map[int]cacheEntry
	maxSize int
	ttl     time.Duration

	computations int
	now          func() time.Time
}

type CacheOption func(*Cache)

func WithMaxSize(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// withClock overrides the time source. Test hook.
func withClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func NewCache(engine *Engine, initial domain.Position, logger *zap.Logger, opts ...CacheOption) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		engine:  engine,
		initial: initial,
		logger:  logger,
		entries: make(map[int]cacheEntry),
		maxSize: DefaultCacheSize,
		ttl:     DefaultCacheTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetPositionAtMove returns the position after moves[0..index], serving a
// live cached entry when present and recomputing stale or missing ones.
func (c *Cache) GetPositionAtMove(index int, moves []domain.MoveRecord) domain.Position {
	if index < 0 {
		return c.initial
	}
	if e, ok := c.entries[index]; ok && c.live(e) {
		return e.position
	}
	pos := c.compute(index, moves)
	c.store(index, pos)
	return pos
}

// Preloaded reports one index warmed by PreloadPositions.
type Preloaded struct {
	Index    int
	Position domain.Position
}

// PreloadPositions warms every index in [start, end] that is not already
// cached live. Idempotent; returns only the newly computed entries.
func (c *Cache) PreloadPositions(start, end int, moves []domain.MoveRecord) []Preloaded {
	if start < 0 {
		start = 0
	}
	if end > len(moves)-1 {
		end = len(moves) - 1
	}
	var warmed []Preloaded
	for i := start; i <= end; i++ {
		if e, ok := c.entries[i]; ok && c.live(e) {
			continue
		}
		pos := c.compute(i, moves)
		c.store(i, pos)
		warmed = append(warmed, Preloaded{Index: i, Position: pos})
	}
	return warmed
}

// LastValidPosition scans backward from index-1 for the first position
// that validates, falling back to the initial position. Repair path for
// an unusable requested position.
func (c *Cache) LastValidPosition(index int, moves []domain.MoveRecord) domain.Position {
	for i := index - 1; i >= 0; i-- {
		if pos := c.GetPositionAtMove(i, moves); c.engine.Validate(pos) {
			return pos
		}
	}
	return c.initial
}

// Clear drops every entry. Called when the active game changes.
func (c *Cache) Clear() {
	c.entries = make(map[int]cacheEntry)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return len(c.entries) }

// Computations returns how many engine replays this cache has performed.
func (c *Cache) Computations() int { return c.computations }

func (c *Cache) live(e cacheEntry) bool {
	return c.now().Sub(e.computedAt) < c.ttl
}

func (c *Cache) compute(index int, moves []domain.MoveRecord) domain.Position {
	c.computations++
	return c.engine.ComputePosition(c.initial, moves, index)
}

func (c *Cache) store(index int, pos domain.Position) {
	if _, ok := c.entries[index]; !ok && len(c.entries) >= c.maxSize {
		c.evict()
	}
	c.entries[index] = cacheEntry{index: index, position: pos, computedAt: c.now()}
}

// evict drops stale entries first; if the cache is still at capacity it
// removes the oldest half by computedAt.
func (c *Cache) evict() {
	now := c.now()
	for idx, e := range c.entries {
		if now.Sub(e.computedAt) >= c.ttl {
			delete(c.entries, idx)
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}
	remaining := make([]cacheEntry, 0, len(c.entries))
	for _, e := range c.entries {
		remaining = append(remaining, e)
	}
	sort.Slice(remaining, func(i, j int) bool {
		return remaining[i].computedAt.Before(remaining[j].computedAt)
	})
	drop := len(remaining) / 2
	if drop < 1 {
		drop = 1
	}
	for i := 0; i < drop; i++ {
		delete(c.entries, remaining[i].index)
	}
	c.logger.Debug("position_cache_evict",
		zap.Int("dropped", drop),
		zap.Int("remaining", len(c.entries)),
	)
}
