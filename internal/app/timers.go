package app

import (
	"context"
	"sync"
	"time"

	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/rs/zerolog/log"
)

// TickFunc runs on every firing of a game's timer.
type TickFunc func(ctx context.Context, game string, kind core.TimerKind)

type timerKey struct {
	game string
	kind core.TimerKind
}

type timerEntry struct {
	cancel   context.CancelFunc
	interval int
}

// TimerManager runs at most one periodic timer per (game, kind). A tick
// already running when its timer is cancelled may finish, but no further
// tick of that timer starts.
type TimerManager struct {
	ctx  context.Context
	unit time.Duration
	tick TickFunc

	mu     sync.Mutex
	timers map[timerKey]*timerEntry
	wg     sync.WaitGroup
}

// NewTimerManager scales intervals by unit (time.Second in production).
// Timers stop when ctx is done.
func NewTimerManager(ctx context.Context, unit time.Duration, tick TickFunc) *TimerManager {
	return &TimerManager{
		ctx:    ctx,
		unit:   unit,
		tick:   tick,
		timers: make(map[timerKey]*timerEntry),
	}
}

// Arm replaces any timer of (game, kind). A non-positive interval only
// cancels. It reports whether a timer is now running.
func (m *TimerManager) Arm(game string, kind core.TimerKind, interval int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelLocked(timerKey{game, kind})
	if interval <= 0 || m.ctx.Err() != nil {
		return false
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.timers[timerKey{game, kind}] = &timerEntry{cancel: cancel, interval: interval}
	m.wg.Add(1)
	go m.loop(ctx, game, kind, time.Duration(interval)*m.unit)
	log.Debug().Str("module", "app.timers").Str("game", game).Str("kind", string(kind)).Int("interval", interval).Msg("timer armed")
	return true
}

// Cancel reports whether a timer was running.
func (m *TimerManager) Cancel(game string, kind core.TimerKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelLocked(timerKey{game, kind})
}

func (m *TimerManager) cancelLocked(k timerKey) bool {
	e, ok := m.timers[k]
	if !ok {
		return false
	}
	e.cancel()
	delete(m.timers, k)
	log.Debug().Str("module", "app.timers").Str("game", k.game).Str("kind", string(k.kind)).Msg("timer cancelled")
	return true
}

// Interval returns the running timer's interval, or 0.
func (m *TimerManager) Interval(game string, kind core.TimerKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.timers[timerKey{game, kind}]; ok {
		return e.interval
	}
	return 0
}

func (m *TimerManager) Running(game string, kind core.TimerKind) bool {
	return m.Interval(game, kind) > 0
}

// Wait blocks until every timer goroutine has returned. Call it after the
// manager's context is done.
func (m *TimerManager) Wait() {
	m.wg.Wait()
}

func (m *TimerManager) loop(ctx context.Context, game string, kind core.TimerKind, every time.Duration) {
	defer m.wg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			// a tick and a cancel can be ready together
			if ctx.Err() != nil {
				return
			}
			// the tick may re-arm its own timer, so it runs on the manager context
			m.tick(m.ctx, game, kind)
		}
	}
}
