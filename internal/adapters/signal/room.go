package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/rs/zerolog/log"
)

type getGameRequest struct {
	Token string `json:"token"`
}

type getGameReply struct {
	Type     string          `json:"type"`
	Ack      *int            `json:"ack,omitempty"`
	Name     string          `json:"name"`
	Settings domain.Settings `json:"settings"`
	Called   []int           `json:"called"`
	Ended    bool            `json:"ended"`
	Winner   *string         `json:"winner"`
}

// handleGetGame attaches a host view (host page or overlay) to a game's
// viewer and admin rooms.
func (ctl *SignalWSController) handleGetGame(ctx context.Context, sess core.MemberSession, conn core.SignalConnection, env envelope, data []byte) {
	var p getGameRequest
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, env.Ack, "bad_payload")
		return
	}
	g, err := ctl.Games.GameByToken(ctx, p.Token)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("getgame")
		ctl.sendError(conn, env.Ack, errorCode(err))
		return
	}

	sess.Meta().Host = true
	for _, key := range []domain.RoomKey{domain.SessionRoom(g.Name), domain.AdminRoom(g.Name)} {
		if _, err := ctl.Hub.Join(sess.ID(), key); err != nil {
			ctl.sendError(conn, env.Ack, errorCode(err))
			return
		}
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Str("game", g.Name).Msg("host view attached")

	if ctl.Timers != nil {
		if err := ctl.Timers.EnsureArmed(ctx, g.Name); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("game", g.Name).Msg("arm timers")
		}
	}

	called := g.Called
	if called == nil {
		called = []int{}
	}
	ctl.sendJSON(conn, getGameReply{
		Type:     env.Type,
		Ack:      env.Ack,
		Name:     g.Name,
		Settings: g.Settings,
		Called:   called,
		Ended:    g.Ended,
		Winner:   g.WinnerName,
	})
}

type joinGameRequest struct {
	Game string `json:"game"`
}

// handleJoinGame adds a player socket to one more game's viewer room.
func (ctl *SignalWSController) handleJoinGame(ctx context.Context, sess core.MemberSession, conn core.SignalConnection, env envelope, data []byte) {
	if sess.Meta().User == nil {
		ctl.sendError(conn, env.Ack, "unauthorized")
		return
	}
	var p joinGameRequest
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, env.Ack, "bad_payload")
		return
	}
	g, err := ctl.existingGame(ctx, p.Game)
	if err != nil {
		ctl.sendError(conn, env.Ack, errorCode(err))
		return
	}
	if _, err := ctl.Hub.Join(sess.ID(), domain.SessionRoom(g.Name)); err != nil {
		ctl.sendError(conn, env.Ack, errorCode(err))
	}
}
