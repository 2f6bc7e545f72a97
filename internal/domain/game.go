package domain

import (
	"fmt"
	"time"
)

type GameID int64

// Mode selects the win-pattern set and free-cell handling.
type Mode string

const (
	ModeFreeLine Mode = "FreeLine"
	ModeFreeFill Mode = "FreeFill"
	ModeBlackout Mode = "Blackout"
)

// MaxNumber is the highest callable number; the pool is 1..MaxNumber.
const MaxNumber = 75

// MaxInterval caps every settings interval, in seconds.
const MaxInterval = 3600

func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeFreeLine, ModeFreeFill, ModeBlackout:
		return m, nil
	case "":
		return ModeFreeLine, nil
	default:
		return "", fmt.Errorf("mode %q: %w", s, ErrInvalidMode)
	}
}

// Settings are host preferences. Intervals are seconds, zero disables.
type Settings struct {
	AutoCall    int    `json:"autoCall"`
	AutoRestart int    `json:"autoRestart"`
	AutoEnd     int    `json:"autoEnd"`
	TTS         bool   `json:"tts"`
	TTSVoice    string `json:"ttsVoice"`
	Background  string `json:"background"`
}

func (s Settings) Validate() error {
	for name, v := range map[string]int{"autoCall": s.AutoCall, "autoRestart": s.AutoRestart, "autoEnd": s.AutoEnd} {
		if v < 0 || v > MaxInterval {
			return fmt.Errorf("%s=%d: %w", name, v, ErrInvalidSettings)
		}
	}
	return nil
}

// Game is one bingo session. Name is unique; ID changes on every supersede.
type Game struct {
	ID           GameID    `json:"id"`
	Name         string    `json:"name"`
	OwnerID      UserID    `json:"ownerId"`
	Token        string    `json:"-"`
	Mode         Mode      `json:"mode"`
	Called       []int     `json:"called"`
	Ended        bool      `json:"ended"`
	WinnerCardID *CardID   `json:"winnerCardId,omitempty"`
	WinnerName   *string   `json:"winner,omitempty"`
	Settings     Settings  `json:"settings"`
	Updated      time.Time `json:"updated"`
}

// Winner returns the recorded winner name or "".
func (g *Game) Winner() string {
	if g.WinnerName == nil {
		return ""
	}
	return *g.WinnerName
}

// Clone returns a copy that shares no slices or pointers with g.
func (g *Game) Clone() *Game {
	cp := *g
	cp.Called = append([]int(nil), g.Called...)
	if g.WinnerCardID != nil {
		id := *g.WinnerCardID
		cp.WinnerCardID = &id
	}
	if g.WinnerName != nil {
		n := *g.WinnerName
		cp.WinnerName = &n
	}
	return &cp
}
