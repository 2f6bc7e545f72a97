package app

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/rs/zerolog/log"
)

// GameController is the slice of GameService the session timers drive.
type GameController interface {
	GameByName(ctx context.Context, name string) (*domain.Game, error)
	CallNumber(ctx context.Context, name string) (int, error)
	EndGame(ctx context.Context, name string, card *domain.CardID, winner *string) (*domain.Game, error)
	CreateGame(ctx context.Context, owner domain.UserID, name string, mode domain.Mode) (*domain.Game, error)
}

// Autopilot owns the per-game call, end and restart timers and announces
// every arm and cancel to the game's admin room.
type Autopilot struct {
	timers *TimerManager
	hub    Broadcaster
	games  GameController
}

// NewAutopilot builds the timer manager itself; unit scales the settings
// intervals. SetGames must be called before any timer fires.
func NewAutopilot(ctx context.Context, hub Broadcaster, unit time.Duration) *Autopilot {
	a := &Autopilot{hub: hub}
	a.timers = NewTimerManager(ctx, unit, a.tick)
	return a
}

func (a *Autopilot) SetGames(games GameController) { a.games = games }

func (a *Autopilot) Timers() *TimerManager { return a.timers }

// Rearm cancels every timer of the game and arms those its state and
// settings call for. Settings updates and resets always land here, even
// when nothing changed.
func (a *Autopilot) Rearm(ctx context.Context, name string) error {
	g, err := a.games.GameByName(ctx, name)
	if err != nil {
		return err
	}
	for _, kind := range core.TimerKinds {
		a.cancel(g.Name, kind)
	}
	a.armFor(g, false)
	return nil
}

// OnEnded stops calling and ending, and starts the restart countdown.
func (a *Autopilot) OnEnded(ctx context.Context, name string) error {
	g, err := a.games.GameByName(ctx, name)
	if err != nil {
		return err
	}
	a.cancel(g.Name, core.TimerCall)
	a.cancel(g.Name, core.TimerEnd)
	a.arm(g.Name, core.TimerRestart, g.Settings.AutoRestart)
	return nil
}

// EnsureArmed arms configured timers that are not running yet. Host views
// call it when they attach.
func (a *Autopilot) EnsureArmed(ctx context.Context, name string) error {
	g, err := a.games.GameByName(ctx, name)
	if err != nil {
		return err
	}
	a.armFor(g, true)
	return nil
}

// Stop cancels every timer of the game, as when it is deleted.
func (a *Autopilot) Stop(name string) {
	for _, kind := range core.TimerKinds {
		a.cancel(name, kind)
	}
}

func (a *Autopilot) armFor(g *domain.Game, onlyMissing bool) {
	kinds := []core.TimerKind{core.TimerCall, core.TimerEnd}
	if g.Ended {
		kinds = []core.TimerKind{core.TimerRestart}
	}
	for _, kind := range kinds {
		if onlyMissing && a.timers.Running(g.Name, kind) {
			continue
		}
		a.arm(g.Name, kind, kind.Interval(g.Settings))
	}
}

func (a *Autopilot) arm(game string, kind core.TimerKind, interval int) {
	wasRunning := a.timers.Running(game, kind)
	if a.timers.Arm(game, kind, interval) {
		a.hub.Broadcast(domain.AdminRoom(game), core.Timer(kind, true, interval))
		return
	}
	if wasRunning {
		a.hub.Broadcast(domain.AdminRoom(game), core.Timer(kind, false, 0))
	}
}

func (a *Autopilot) cancel(game string, kind core.TimerKind) {
	if a.timers.Cancel(game, kind) {
		a.hub.Broadcast(domain.AdminRoom(game), core.Timer(kind, false, 0))
	}
}

func (a *Autopilot) tick(ctx context.Context, name string, kind core.TimerKind) {
	if a.games == nil {
		return
	}
	var err error
	switch kind {
	case core.TimerCall:
		_, err = a.games.CallNumber(ctx, name)
		if errors.Is(err, domain.ErrTooSoon) || errors.Is(err, domain.ErrExhausted) || errors.Is(err, domain.ErrGameEnded) {
			log.Debug().Err(err).Str("module", "app.timers").Str("game", name).Msg("auto call skipped")
			return
		}
	case core.TimerEnd:
		var g *domain.Game
		if g, err = a.games.GameByName(ctx, name); err == nil && !g.Ended && len(g.Called) >= domain.MaxNumber {
			_, err = a.games.EndGame(ctx, name, nil, nil)
		}
	case core.TimerRestart:
		var g *domain.Game
		if g, err = a.games.GameByName(ctx, name); err == nil && g.Ended {
			_, err = a.games.CreateGame(ctx, g.OwnerID, g.Name, g.Mode)
		}
	}
	if errors.Is(err, domain.ErrNotFound) {
		a.Stop(name)
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("module", "app.timers").Str("game", name).Str("kind", string(kind)).Msg("timer tick failed")
	}
}
