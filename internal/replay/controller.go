package replay

import (
	"time"

	"go.uber.org/zap"

	"github.com/daehyun-kim/chess-review/internal/domain"
)

// NoIndex marks a session with no selected move (Idle).
const NoIndex = -1

const (
	DefaultPreloadWindow = 5
	DefaultSpeedMs       = 1000
	minSpeedMs           = 100
)

// NavigationState is the controller's externally visible state.
// CurrentIndex is NoIndex or within [0, TotalMoves).
type NavigationState struct {
	CurrentIndex int
	TotalMoves   int
	Playing      bool
	SpeedMs      int
}

// Scheduler decouples the controller from how deferred work and timers
// run. The session loop implements it so that preloads never block a
// navigation action and autoplay ticks re-enter on the same goroutine.
type Scheduler interface {
	// Defer queues fn to run when the owning loop is otherwise idle.
	Defer(fn func())
	// After runs fn once after d on the owning loop. The returned cancel
	// is a no-op once fn has started.
	After(d time.Duration, fn func()) (cancel func())
}

// Controller owns bounded traversal of a move log plus autoplay. It is
// single-writer: all methods must be called from the owning session loop.
type Controller struct {
	cache  *Cache
	moves  []domain.MoveRecord
	sched  Scheduler
	logger *zap.Logger

	state         NavigationState
	preloadWindow int
	cancelPlay    func()

	onIndexChange func(index int)
	onPreload     func(warmed []Preloaded)
}

type ControllerOption func(*Controller)

func WithPreloadWindow(n int) ControllerOption {
	return func(c *Controller) {
		if n >= 0 {
			c.preloadWindow = n
		}
	}
}

func WithSpeed(ms int) ControllerOption {
	return func(c *Controller) {
		if ms >= minSpeedMs {
			c.state.SpeedMs = ms
		}
	}
}

func OnIndexChange(fn func(index int)) ControllerOption {
	return func(c *Controller) { c.onIndexChange = fn }
}

func OnPositionPreload(fn func(warmed []Preloaded)) ControllerOption {
	return func(c *Controller) { c.onPreload = fn }
}

func NewController(cache *Cache, moves []domain.MoveRecord, sched Scheduler, logger *zap.Logger, opts ...ControllerOption) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		cache:  cache,
		moves:  moves,
		sched:  sched,
		logger: logger,
		state: NavigationState{
			CurrentIndex: NoIndex,
			TotalMoves:   len(moves),
			SpeedMs:      DefaultSpeedMs,
		},
		preloadWindow: DefaultPreloadWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the navigation state.
func (c *Controller) State() NavigationState { return c.state }

// CurrentPosition returns the position at the current index, or the
// initial position when Idle. An unusable position degrades to the last
// valid one upstream rather than surfacing an error.
func (c *Controller) CurrentPosition() domain.Position {
	pos := c.cache.GetPositionAtMove(c.state.CurrentIndex, c.moves)
	if pos.Valid() {
		return pos
	}
	c.logger.Warn("nav_position_invalid", zap.Int("index", c.state.CurrentIndex))
	return c.cache.LastValidPosition(c.state.CurrentIndex, c.moves)
}

func (c *Controller) First() {
	if c.state.TotalMoves == 0 {
		return
	}
	c.setIndex(0)
}

func (c *Controller) Previous() {
	if c.state.CurrentIndex <= 0 {
		return
	}
	c.setIndex(c.state.CurrentIndex - 1)
}

func (c *Controller) Next() {
	if c.state.TotalMoves == 0 {
		return
	}
	if c.state.CurrentIndex == NoIndex {
		c.setIndex(0)
		return
	}
	if c.state.CurrentIndex >= c.state.TotalMoves-1 {
		return
	}
	c.setIndex(c.state.CurrentIndex + 1)
}

func (c *Controller) Last() {
	if c.state.TotalMoves == 0 {
		return
	}
	c.setIndex(c.state.TotalMoves - 1)
}

// JumpToMove selects index k. Negative k clears the selection; k past the
// end is ignored.
func (c *Controller) JumpToMove(k int) {
	if k < 0 {
		c.clearIndex()
		return
	}
	if k >= c.state.TotalMoves {
		c.logger.Debug("nav_jump_out_of_range", zap.Int("index", k), zap.Int("total", c.state.TotalMoves))
		return
	}
	c.setIndex(k)
}

// TogglePlay flips autoplay. Starting at the last index (or with nothing
// to play) is a no-op that leaves Playing false.
func (c *Controller) TogglePlay() {
	if c.state.Playing {
		c.stopPlay()
		return
	}
	if c.state.TotalMoves == 0 || c.state.CurrentIndex >= c.state.TotalMoves-1 {
		return
	}
	c.state.Playing = true
	c.scheduleTick()
}

// SetSpeed updates the autoplay interval. An in-flight tick keeps its
// original wait; only subsequent ticks use the new speed.
func (c *Controller) SetSpeed(ms int) {
	if ms < minSpeedMs {
		return
	}
	c.state.SpeedMs = ms
}

// Stop cancels autoplay. Called when the owning session ends.
func (c *Controller) Stop() {
	c.stopPlay()
}

func (c *Controller) scheduleTick() {
	delay := time.Duration(c.state.SpeedMs) * time.Millisecond
	c.cancelPlay = c.sched.After(delay, c.tick)
}

func (c *Controller) tick() {
	c.cancelPlay = nil
	if !c.state.Playing {
		return
	}
	c.Next()
	if c.state.CurrentIndex >= c.state.TotalMoves-1 {
		c.state.Playing = false
		return
	}
	c.scheduleTick()
}

func (c *Controller) stopPlay() {
	c.state.Playing = false
	if c.cancelPlay != nil {
		c.cancelPlay()
		c.cancelPlay = nil
	}
}

func (c *Controller) setIndex(i int) {
	changed := c.state.CurrentIndex != i
	c.state.CurrentIndex = i
	c.schedulePreload(i)
	if changed && c.onIndexChange != nil {
		c.onIndexChange(i)
	}
}

func (c *Controller) clearIndex() {
	if c.state.CurrentIndex == NoIndex {
		return
	}
	c.stopPlay()
	c.state.CurrentIndex = NoIndex
	if c.onIndexChange != nil {
		c.onIndexChange(NoIndex)
	}
}

// schedulePreload warms [i-window, i+window] clamped to the move log as a
// deferred task, so the triggering navigation returns immediately.
func (c *Controller) schedulePreload(i int) {
	lo, hi := i-c.preloadWindow, i+c.preloadWindow
	c.sched.Defer(func() {
		warmed := c.cache.PreloadPositions(lo, hi, c.moves)
		if len(warmed) > 0 && c.onPreload != nil {
			c.onPreload(warmed)
		}
	})
}
