package core

import (
	"context"

	"github.com/dkeye/StreamBingo/internal/domain"
)

//go:generate mockgen -destination=mocks/collaborators_mock.go -package=mocks . ChatClient,Notifier

// GameStore persists games. Every write is last-write-wins per game name.
type GameStore interface {
	GameByName(ctx context.Context, name string) (*domain.Game, error)
	GameByToken(ctx context.Context, token string) (*domain.Game, error)
	SaveGame(ctx context.Context, g *domain.Game) error
	// ReplaceGame atomically deletes the game named g.Name, if any, and
	// inserts g with a fresh ID. It returns the deleted game's ID.
	ReplaceGame(ctx context.Context, g *domain.Game) (old *domain.GameID, err error)
}

type CardStore interface {
	CardFor(ctx context.Context, user domain.UserID, game domain.GameID) (*domain.Card, error)
	SaveCard(ctx context.Context, c *domain.Card) error
	// CreateCardIfMissing inserts c unless (c.UserID, c.GameID) already
	// has a card. The stored card is returned either way.
	CreateCardIfMissing(ctx context.Context, c *domain.Card) (stored *domain.Card, created bool, err error)
	CountCards(ctx context.Context, game domain.GameID) (int, error)
	UserCards(ctx context.Context, user domain.UserID) ([]*domain.Card, error)
}

type UserStore interface {
	UserByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	UserByTwitchID(ctx context.Context, twitchID int64) (*domain.User, error)
	UserByToken(ctx context.Context, token string) (*domain.User, error)
	// GetOrCreateTwitchUser refreshes the stored name when it changed.
	GetOrCreateTwitchUser(ctx context.Context, twitchID int64, name string) (*domain.User, error)
}

type StatStore interface {
	SaveStat(ctx context.Context, s *domain.StatRecord) error
}

// Store is the persistence boundary. Missing rows are reported as
// domain.ErrNotFound.
type Store interface {
	GameStore
	CardStore
	UserStore
	StatStore
}

// Notifier carries state-change notifications to the relay.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ChatClient is the upstream chat connection. Join and Part may block on
// network round trips.
type ChatClient interface {
	Join(ctx context.Context, channel string) error
	Part(ctx context.Context, channel string) error
	Say(ctx context.Context, channel, text string) error
}
