package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/daehyun-kim/chess-review/internal/domain"
	"github.com/daehyun-kim/chess-review/internal/replay"
)

var ErrSessionClosed = errors.New("review session closed")

// EventType identifies a session event pushed to consumers.
type EventType string

const (
	EventIndexChange EventType = "index_change"
	EventPreload     EventType = "preload"
)

// Event is delivered to subscribed listeners. Listeners run on the
// session loop and must not block.
type Event struct {
	Type   EventType
	Index  int
	Warmed []replay.Preloaded
}

// NavOp names a navigation operation requested over the API.
type NavOp string

const (
	NavFirst      NavOp = "first"
	NavPrevious   NavOp = "previous"
	NavNext       NavOp = "next"
	NavLast       NavOp = "last"
	NavJump       NavOp = "jump"
	NavTogglePlay NavOp = "toggle-play"
	NavSetSpeed   NavOp = "set-speed"
)

var ErrUnknownNavOp = errors.New("unknown navigation op")

// Snapshot is a consistent view of a session taken on its loop.
type Snapshot struct {
	SessionID string
	GameID    int64
	Nav       replay.NavigationState
	Position  domain.Position
}

// Session owns one game review: a cache, a controller, and the loop that
// serializes every cache lookup, replay, and state transition. Deferred
// preloads run only when the loop has no pending command, and autoplay
// ticks re-enter through the same loop, so the replay core sees exactly
// one writer.
type Session struct {
	ID   string
	game *domain.GameRecord

	ctrl   *replay.Controller
	cache  *replay.Cache
	logger *zap.Logger

	tasks    chan func()
	deferred []func() // loop-owned queue
	quit     chan struct{}
	stopOnce sync.Once

	lastActive atomic.Int64 // unix nano

	listenerMu sync.Mutex
	listeners  map[int]func(Event)
	nextSub    int
}

func (s *Session) loop() {
	for {
		if len(s.deferred) == 0 {
			select {
			case fn := <-s.tasks:
				fn()
			case <-s.quit:
				return
			}
			continue
		}
		// Pending commands win over deferred work; preloads are the
		// definition of "run when otherwise idle".
		select {
		case fn := <-s.tasks:
			fn()
		case <-s.quit:
			return
		default:
			fn := s.deferred[0]
			s.deferred = s.deferred[1:]
			fn()
		}
	}
}

// Defer implements replay.Scheduler. Called only from the loop goroutine.
func (s *Session) Defer(fn func()) {
	s.deferred = append(s.deferred, fn)
}

// After implements replay.Scheduler. The callback is posted back onto the
// session loop when the timer fires.
func (s *Session) After(d time.Duration, fn func()) (cancel func()) {
	t := time.AfterFunc(d, func() { s.post(fn) })
	return func() { t.Stop() }
}

// post enqueues fn from outside the loop (timers, shutdown).
func (s *Session) post(fn func()) {
	select {
	case s.tasks <- fn:
	case <-s.quit:
	}
}

// do runs fn on the session loop and waits for it.
func (s *Session) do(fn func()) error {
	s.lastActive.Store(time.Now().UnixNano())
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case s.tasks <- wrapped:
	case <-s.quit:
		return ErrSessionClosed
	}
	select {
	case <-done:
		return nil
	case <-s.quit:
		return ErrSessionClosed
	}
}

// Nav applies a navigation op. arg is the target index for NavJump and
// the interval for NavSetSpeed; other ops ignore it.
func (s *Session) Nav(op NavOp, arg int) (Snapshot, error) {
	var snap Snapshot
	var opErr error
	err := s.do(func() {
		switch op {
		case NavFirst:
			s.ctrl.First()
		case NavPrevious:
			s.ctrl.Previous()
		case NavNext:
			s.ctrl.Next()
		case NavLast:
			s.ctrl.Last()
		case NavJump:
			s.ctrl.JumpToMove(arg)
		case NavTogglePlay:
			s.ctrl.TogglePlay()
		case NavSetSpeed:
			s.ctrl.SetSpeed(arg)
		default:
			opErr = ErrUnknownNavOp
			return
		}
		snap = s.snapshotLocked()
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, opErr
}

// State returns the session snapshot without mutating anything.
func (s *Session) State() (Snapshot, error) {
	var snap Snapshot
	err := s.do(func() { snap = s.snapshotLocked() })
	return snap, err
}

// PositionAt returns the position at an arbitrary index, going through
// the cache so repeated dashboard fetches stay cheap.
func (s *Session) PositionAt(index int) (domain.Position, error) {
	var pos domain.Position
	err := s.do(func() {
		pos = s.cache.GetPositionAtMove(index, s.game.Moves)
		if !pos.Valid() {
			pos = s.cache.LastValidPosition(index, s.game.Moves)
		}
	})
	return pos, err
}

// GameID returns the id of the game under review.
func (s *Session) GameID() int64 { return s.game.ID }

// LastActive reports when a caller last touched the session.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Subscribe registers a listener for session events. The returned func
// unsubscribes.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.listeners[id] = fn
	return func() {
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) emit(ev Event) {
	s.listenerMu.Lock()
	listeners := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.listenerMu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// snapshotLocked must run on the session loop.
func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID: s.ID,
		GameID:    s.game.ID,
		Nav:       s.ctrl.State(),
		Position:  s.ctrl.CurrentPosition(),
	}
}

// close stops the loop and cancels autoplay. Manager-only.
func (s *Session) close() {
	s.stopOnce.Do(func() {
		// Best effort: cancel the autoplay timer on the loop before the
		// loop goroutine exits.
		select {
		case s.tasks <- func() { s.ctrl.Stop() }:
		default:
		}
		close(s.quit)
	})
}
