package app

import (
	"context"

	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/rs/zerolog/log"
)

// Gateway turns state-change notifications into room broadcasts and timer
// updates. It also serves as the in-process core.Notifier.
type Gateway struct {
	hub   Broadcaster
	pilot *Autopilot
}

func NewGateway(hub Broadcaster, pilot *Autopilot) *Gateway {
	return &Gateway{hub: hub, pilot: pilot}
}

func (g *Gateway) Notify(ctx context.Context, n core.Notification) error {
	return g.Handle(ctx, n)
}

// Handle never waits on client sockets. Timer failures are logged; only a
// malformed notification is an error.
func (g *Gateway) Handle(ctx context.Context, n core.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	l := log.With().Str("module", "app.gateway").Str("action", string(n.Action)).Str("game", n.GameName).Logger()
	l.Debug().Msg("notification")

	var err error
	switch n.Action {
	case core.ActionResetGame:
		if n.GameID != nil {
			g.hub.Broadcast(domain.SessionRoom(n.GameName), core.GameOver(*n.GameID, nil))
		}
		g.hub.Broadcast(domain.AdminRoom(n.GameName), core.ResetGame())
		if g.pilot != nil {
			err = g.pilot.Rearm(ctx, n.GameName)
		}
	case core.ActionEndGame:
		g.hub.Broadcast(domain.SessionRoom(n.GameName), core.GameOver(*n.GameID, n.Winner))
		if g.pilot != nil {
			err = g.pilot.OnEnded(ctx, n.GameName)
		}
	case core.ActionCallNumber:
		g.hub.Broadcast(domain.AdminRoom(n.GameName), core.NumberCalled(n.Number))
	case core.ActionUpdateSettings:
		g.hub.Broadcast(domain.AdminRoom(n.GameName), core.GameSettings(*n.Settings))
		if g.pilot != nil {
			err = g.pilot.Rearm(ctx, n.GameName)
		}
	}
	if err != nil {
		l.Warn().Err(err).Msg("timer update failed")
	}
	return nil
}
