// Package memory is a process-local core.Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/google/uuid"
)

type cardKey struct {
	user domain.UserID
	game domain.GameID
}

// Store keeps everything in maps behind one mutex. Values are cloned on
// the way in and out so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	nextGame domain.GameID
	nextCard domain.CardID
	nextUser domain.UserID
	nextStat int64

	games map[string]*domain.Game
	cards map[cardKey]*domain.Card
	users map[domain.UserID]*domain.User
	stats []*domain.StatRecord
}

var _ core.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		games: make(map[string]*domain.Game),
		cards: make(map[cardKey]*domain.Card),
		users: make(map[domain.UserID]*domain.User),
	}
}

func notFound(what string, key any) error {
	return fmt.Errorf("%s %v: %w", what, key, domain.ErrNotFound)
}

func (s *Store) GameByName(_ context.Context, name string) (*domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[name]
	if !ok {
		return nil, notFound("game", name)
	}
	return g.Clone(), nil
}

func (s *Store) GameByToken(_ context.Context, token string) (*domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.games {
		if g.Token == token {
			return g.Clone(), nil
		}
	}
	return nil, notFound("game token", "***")
}

func (s *Store) SaveGame(_ context.Context, g *domain.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.games[g.Name]
	if !ok || cur.ID != g.ID {
		return notFound("game", g.ID)
	}
	s.games[g.Name] = g.Clone()
	return nil
}

func (s *Store) ReplaceGame(_ context.Context, g *domain.Game) (*domain.GameID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var old *domain.GameID
	if prev, ok := s.games[g.Name]; ok {
		id := prev.ID
		old = &id
		for k := range s.cards {
			if k.game == id {
				delete(s.cards, k)
			}
		}
	}
	s.nextGame++
	g.ID = s.nextGame
	if g.Token == "" {
		g.Token = uuid.NewString()
	}
	s.games[g.Name] = g.Clone()
	return old, nil
}

func (s *Store) CardFor(_ context.Context, user domain.UserID, game domain.GameID) (*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[cardKey{user, game}]
	if !ok {
		return nil, notFound("card", fmt.Sprintf("%d/%d", user, game))
	}
	return c.Clone(), nil
}

func (s *Store) SaveCard(_ context.Context, c *domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := cardKey{c.UserID, c.GameID}
	if _, ok := s.cards[k]; !ok {
		return notFound("card", c.ID)
	}
	s.cards[k] = c.Clone()
	return nil
}

func (s *Store) CreateCardIfMissing(_ context.Context, c *domain.Card) (*domain.Card, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := cardKey{c.UserID, c.GameID}
	if cur, ok := s.cards[k]; ok {
		return cur.Clone(), false, nil
	}
	s.nextCard++
	c.ID = s.nextCard
	s.cards[k] = c.Clone()
	return c.Clone(), true, nil
}

func (s *Store) CountCards(_ context.Context, game domain.GameID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.cards {
		if k.game == game {
			n++
		}
	}
	return n, nil
}

func (s *Store) UserCards(_ context.Context, user domain.UserID) ([]*domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*domain.Card{}
	for k, c := range s.cards {
		if k.user == user {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UserByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (s *Store) UserByTwitchID(_ context.Context, twitchID int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u := s.byTwitchLocked(twitchID); u != nil {
		cp := *u
		return &cp, nil
	}
	return nil, notFound("twitch user", twitchID)
}

func (s *Store) UserByToken(_ context.Context, token string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Token == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("user token", "***")
}

func (s *Store) GetOrCreateTwitchUser(_ context.Context, twitchID int64, name string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.byTwitchLocked(twitchID); u != nil {
		if name != "" && u.Name != name {
			if err := u.SetUsername(name); err != nil {
				return nil, err
			}
		}
		cp := *u
		return &cp, nil
	}
	u, err := domain.NewUser(twitchID, name)
	if err != nil {
		return nil, err
	}
	s.nextUser++
	u.ID = s.nextUser
	s.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (s *Store) byTwitchLocked(twitchID int64) *domain.User {
	for _, u := range s.users {
		if u.TwitchID == twitchID {
			return u
		}
	}
	return nil
}

func (s *Store) SaveStat(_ context.Context, st *domain.StatRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextStat++
	st.ID = s.nextStat
	cp := *st
	cp.Marked = append([]int(nil), st.Marked...)
	cp.Called = append([]int(nil), st.Called...)
	s.stats = append(s.stats, &cp)
	return nil
}

// Stats returns a copy of every recorded win, oldest first.
func (s *Store) Stats() []domain.StatRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StatRecord, 0, len(s.stats))
	for _, st := range s.stats {
		out = append(out, *st)
	}
	return out
}
