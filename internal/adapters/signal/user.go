package signal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/rs/zerolog/log"
)

type playGameRequest struct {
	Token string   `json:"token"`
	Games []string `json:"games"`
}

type playGameReply struct {
	Type string `json:"type"`
	Ack  *int   `json:"ack,omitempty"`
	OK   bool   `json:"ok"`
}

// handlePlayGame identifies a player socket by user token and joins it to
// the user's room plus the viewer room of every listed game that exists.
// Unknown names are dropped so no chat channel is joined without a game.
func (ctl *SignalWSController) handlePlayGame(ctx context.Context, sess core.MemberSession, conn core.SignalConnection, env envelope, data []byte) {
	var p playGameRequest
	if err := json.Unmarshal(data, &p); err != nil {
		ctl.sendError(conn, env.Ack, "bad_payload")
		return
	}
	u, err := ctl.Games.UserByToken(ctx, p.Token)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("playgame")
		ctl.sendError(conn, env.Ack, errorCode(err))
		return
	}
	sess.Meta().User = u

	keys := []domain.RoomKey{domain.UserRoom(u.ID)}
	for _, name := range p.Games {
		g, err := ctl.existingGame(ctx, name)
		if err != nil {
			log.Debug().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Str("game", name).Msg("playgame skips game")
			continue
		}
		keys = append(keys, domain.SessionRoom(g.Name))
	}
	for _, key := range keys {
		if _, err := ctl.Hub.Join(sess.ID(), key); err != nil {
			ctl.sendError(conn, env.Ack, errorCode(err))
			return
		}
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Str("user", u.Name).Int("games", len(keys)-1).Msg("player attached")
	ctl.sendJSON(conn, playGameReply{Type: env.Type, Ack: env.Ack, OK: true})
}

func (ctl *SignalWSController) existingGame(ctx context.Context, name string) (*domain.Game, error) {
	name = core.NormalizeName(name)
	if name == "" {
		return nil, fmt.Errorf("empty game name: %w", domain.ErrInvalidInput)
	}
	return ctl.Games.GameByName(ctx, name)
}
