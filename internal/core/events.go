package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dkeye/StreamBingo/internal/domain"
)

type EventType string

// Server-pushed events.
const (
	EventNumberCalled EventType = "numbercalled"
	EventAddPlayer    EventType = "addplayer"
	EventNewCard      EventType = "newcard"
	EventGameOver     EventType = "gameover"
	EventResetGame    EventType = "resetgame"
	EventTimer        EventType = "timer"
	EventGameSettings EventType = "gamesettings"
	EventPong         EventType = "pong"
	EventError        EventType = "error"
)

type TimerKind string

const (
	TimerCall    TimerKind = "call"
	TimerEnd     TimerKind = "end"
	TimerRestart TimerKind = "restart"
)

var TimerKinds = []TimerKind{TimerCall, TimerEnd, TimerRestart}

// Interval returns the configured interval of kind in seconds.
func (k TimerKind) Interval(s domain.Settings) int {
	switch k {
	case TimerCall:
		return s.AutoCall
	case TimerEnd:
		return s.AutoEnd
	case TimerRestart:
		return s.AutoRestart
	}
	return 0
}

type NumberCalledPayload struct {
	Number int `json:"number"`
}

type NewCardPayload struct {
	GameID domain.GameID `json:"gameId"`
}

type GameOverPayload struct {
	GameID domain.GameID `json:"gameId"`
	Winner *string       `json:"winner"`
}

type TimerPayload struct {
	Kind    TimerKind `json:"kind"`
	Running bool      `json:"running"`
	Value   int       `json:"value"`
}

type GameSettingsPayload struct {
	Settings domain.Settings `json:"settings"`
}

// Event is framed as one flat JSON object: the payload's fields plus "type".
type Event struct {
	Type    EventType
	Payload any
}

func (e Event) MarshalJSON() ([]byte, error) {
	head, err := json.Marshal(struct {
		Type EventType `json:"type"`
	}{e.Type})
	if err != nil {
		return nil, err
	}
	if e.Payload == nil {
		return head, nil
	}
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("event %s: payload must encode to an object", e.Type)
	}
	inner := bytes.TrimSpace(body[1 : len(body)-1])
	if len(inner) == 0 {
		return head, nil
	}
	out := make([]byte, 0, len(head)+len(inner)+1)
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, inner...)
	out = append(out, '}')
	return out, nil
}

// Encode frames e. It only fails on programmer error.
func (e Event) Encode() (Frame, error) {
	b, err := json.Marshal(e)
	return Frame(b), err
}

func NumberCalled(n int) Event {
	return Event{Type: EventNumberCalled, Payload: NumberCalledPayload{Number: n}}
}

func AddPlayer() Event { return Event{Type: EventAddPlayer} }

func NewCard(game domain.GameID) Event {
	return Event{Type: EventNewCard, Payload: NewCardPayload{GameID: game}}
}

func GameOver(game domain.GameID, winner *string) Event {
	return Event{Type: EventGameOver, Payload: GameOverPayload{GameID: game, Winner: winner}}
}

func ResetGame() Event { return Event{Type: EventResetGame} }

func Timer(kind TimerKind, running bool, value int) Event {
	return Event{Type: EventTimer, Payload: TimerPayload{Kind: kind, Running: running, Value: value}}
}

func GameSettings(s domain.Settings) Event {
	return Event{Type: EventGameSettings, Payload: GameSettingsPayload{Settings: s}}
}
