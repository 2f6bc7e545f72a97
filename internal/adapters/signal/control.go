package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(conn core.SignalConnection) {
	ctl.sendJSON(conn, core.Event{Type: core.EventPong})
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("sendJSON")
	}
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, ack *int, msg string) {
	ctl.sendJSON(c, errorFrame{Type: core.EventError, Ack: ack, Error: msg})
}

type errorFrame struct {
	Type  core.EventType `json:"type"`
	Ack   *int           `json:"ack,omitempty"`
	Error string         `json:"error"`
}

// errorCode is the client-facing name of err's kind.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case domain.KindOf(err) == domain.KindInvalidInput:
		return "bad_payload"
	default:
		return "internal"
	}
}
