package core

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/google/uuid"
)

// CallCooldown is the minimum time between two calls on one game.
const CallCooldown = 5 * time.Second

// SessionEngine drives a game's lifecycle. It mutates the game it is given
// and leaves persistence to the caller.
type SessionEngine struct {
	now      func() time.Time
	intn     func(n int) int
	cooldown time.Duration
}

func NewSessionEngine() *SessionEngine {
	return &SessionEngine{now: time.Now, intn: rand.IntN, cooldown: CallCooldown}
}

// NewSessionEngineWith injects the clock and random source.
func NewSessionEngineWith(now func() time.Time, intn func(n int) int) *SessionEngine {
	return &SessionEngine{now: now, intn: intn, cooldown: CallCooldown}
}

func (e *SessionEngine) Now() time.Time { return e.now() }

// NormalizeName maps a game name to its canonical form, which is also the
// chat channel name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewGame returns a fresh active game. It is not persisted.
func (e *SessionEngine) NewGame(owner domain.UserID, name string, mode domain.Mode) (*domain.Game, error) {
	name = NormalizeName(name)
	if name == "" {
		return nil, fmt.Errorf("empty game name: %w", domain.ErrInvalidInput)
	}
	m, err := domain.ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	return &domain.Game{
		Name:    name,
		OwnerID: owner,
		Token:   uuid.NewString(),
		Mode:    m,
		Called:  []int{},
		Updated: e.now(),
	}, nil
}

// CallNumber draws uniformly from the numbers not yet called.
func (e *SessionEngine) CallNumber(g *domain.Game) (int, error) {
	if g.Ended {
		return 0, fmt.Errorf("game %s: %w", g.Name, domain.ErrGameEnded)
	}
	if len(g.Called) >= domain.MaxNumber {
		return 0, fmt.Errorf("game %s: %w", g.Name, domain.ErrExhausted)
	}
	now := e.now()
	if len(g.Called) > 0 && now.Sub(g.Updated) < e.cooldown {
		return 0, fmt.Errorf("game %s: %w", g.Name, domain.ErrTooSoon)
	}

	seen := make([]bool, domain.MaxNumber+1)
	for _, n := range g.Called {
		if n >= 1 && n <= domain.MaxNumber {
			seen[n] = true
		}
	}
	pool := make([]int, 0, domain.MaxNumber-len(g.Called))
	for n := 1; n <= domain.MaxNumber; n++ {
		if !seen[n] {
			pool = append(pool, n)
		}
	}
	if len(pool) == 0 {
		return 0, fmt.Errorf("game %s: %w", g.Name, domain.ErrExhausted)
	}

	n := pool[e.intn(len(pool))]
	g.Called = append(g.Called, n)
	g.Updated = now
	return n, nil
}

// End marks g ended. Both winner fields may be nil.
func (e *SessionEngine) End(g *domain.Game, card *domain.CardID, winner *string) {
	g.Ended = true
	g.WinnerCardID = card
	g.WinnerName = winner
	g.Updated = e.now()
}

// UpdateSettings replaces the settings wholesale. Calls and the cooldown
// clock are left alone.
func (e *SessionEngine) UpdateSettings(g *domain.Game, s domain.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	g.Settings = s
	return nil
}
