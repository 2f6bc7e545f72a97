package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/rs/zerolog/log"
)

// SubmitOutcome tells a win claim's three results apart.
type SubmitOutcome int

const (
	SubmitNoCard SubmitOutcome = iota
	SubmitNotWinning
	SubmitWon
)

func (o SubmitOutcome) String() string {
	switch o {
	case SubmitWon:
		return "won"
	case SubmitNotWinning:
		return "not_winning"
	default:
		return "no_card"
	}
}

type SubmitResult struct {
	Outcome SubmitOutcome
	GameID  domain.GameID
	User    *domain.User
}

type JoinResult struct {
	NewCard bool
	UserID  domain.UserID
	GameID  domain.GameID
	CardID  domain.CardID
	URL     string
}

// GameService is the command bridge between callers (chat, sockets, HTTP,
// timers) and the engines. Every mutation is persisted, then notified.
type GameService struct {
	store    core.Store
	notifier core.Notifier
	cards    *core.CardEngine
	sessions *core.SessionEngine
	baseURL  string

	locks sync.Map // game name -> *sync.Mutex
}

func NewGameService(store core.Store, notifier core.Notifier, cards *core.CardEngine, sessions *core.SessionEngine, baseURL string) *GameService {
	return &GameService{
		store:    store,
		notifier: notifier,
		cards:    cards,
		sessions: sessions,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// lock serializes read-modify-write cycles on one game within the process.
func (s *GameService) lock(name string) func() {
	v, _ := s.locks.LoadOrStore(name, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *GameService) notify(ctx context.Context, n core.Notification) error {
	if s.notifier == nil {
		return nil
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Error().Err(err).Str("module", "app.game").Str("game", n.GameName).Str("action", string(n.Action)).Msg("notification failed")
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			return err
		}
		return fmt.Errorf("notify %s: %w: %w", n.Action, domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (s *GameService) GameByName(ctx context.Context, name string) (*domain.Game, error) {
	return s.store.GameByName(ctx, core.NormalizeName(name))
}

func (s *GameService) GameByToken(ctx context.Context, token string) (*domain.Game, error) {
	if token == "" {
		return nil, fmt.Errorf("empty game token: %w", domain.ErrNotFound)
	}
	return s.store.GameByToken(ctx, token)
}

// GetOrCreateGame loads the host's game or starts a FreeLine one.
func (s *GameService) GetOrCreateGame(ctx context.Context, owner domain.UserID, name string) (*domain.Game, error) {
	g, err := s.GameByName(ctx, name)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.CreateGame(ctx, owner, name, domain.ModeFreeLine)
}

// CreateGame supersedes any game with the same name. Settings carry over;
// calls, cards and the winner do not.
func (s *GameService) CreateGame(ctx context.Context, owner domain.UserID, name string, mode domain.Mode) (*domain.Game, error) {
	g, err := s.sessions.NewGame(owner, name, mode)
	if err != nil {
		return nil, err
	}
	unlock := s.lock(g.Name)
	defer unlock()

	prev, err := s.store.GameByName(ctx, g.Name)
	switch {
	case err == nil:
		g.Settings = prev.Settings
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	old, err := s.store.ReplaceGame(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("replace game %s: %w", g.Name, err)
	}
	log.Info().Str("module", "app.game").Str("game", g.Name).Int64("id", int64(g.ID)).Str("mode", string(g.Mode)).Msg("game created")
	return g, s.notify(ctx, core.ResetGameNotification(g.Name, old))
}

// ResetGame supersedes the game behind token. An empty mode keeps the
// current one.
func (s *GameService) ResetGame(ctx context.Context, token string, mode domain.Mode) (*domain.Game, error) {
	g, err := s.GameByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = g.Mode
	}
	return s.CreateGame(ctx, g.OwnerID, g.Name, mode)
}

func (s *GameService) CallNumber(ctx context.Context, name string) (int, error) {
	name = core.NormalizeName(name)
	unlock := s.lock(name)
	defer unlock()

	g, err := s.store.GameByName(ctx, name)
	if err != nil {
		return 0, err
	}
	n, err := s.sessions.CallNumber(g)
	if err != nil {
		return 0, err
	}
	if err := s.store.SaveGame(ctx, g); err != nil {
		return 0, fmt.Errorf("save game %s: %w", name, err)
	}
	log.Info().Str("module", "app.game").Str("game", name).Int("number", n).Int("called", len(g.Called)).Msg("number called")
	return n, s.notify(ctx, core.CallNumberNotification(name, g.ID, n))
}

// EndGame may be repeated; each call notifies again.
func (s *GameService) EndGame(ctx context.Context, name string, card *domain.CardID, winner *string) (*domain.Game, error) {
	name = core.NormalizeName(name)
	unlock := s.lock(name)
	defer unlock()
	return s.endLocked(ctx, name, card, winner)
}

func (s *GameService) endLocked(ctx context.Context, name string, card *domain.CardID, winner *string) (*domain.Game, error) {
	g, err := s.store.GameByName(ctx, name)
	if err != nil {
		return nil, err
	}
	s.sessions.End(g, card, winner)
	if err := s.store.SaveGame(ctx, g); err != nil {
		return nil, fmt.Errorf("save game %s: %w", name, err)
	}
	log.Info().Str("module", "app.game").Str("game", name).Str("winner", g.Winner()).Msg("game ended")
	return g, s.notify(ctx, core.EndGameNotification(name, g.ID, winner))
}

func (s *GameService) UpdateSettings(ctx context.Context, name string, settings domain.Settings) (*domain.Game, error) {
	name = core.NormalizeName(name)
	unlock := s.lock(name)
	defer unlock()

	g, err := s.store.GameByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateSettings(g, settings); err != nil {
		return nil, err
	}
	if err := s.store.SaveGame(ctx, g); err != nil {
		return nil, fmt.Errorf("save game %s: %w", name, err)
	}
	return g, s.notify(ctx, core.SettingsNotification(name, g.Settings))
}

// OpenGame is the host entry point. It registers the host by chat id and
// loads the channel's game, starting a FreeLine one when none exists. A
// non-empty mode always starts a fresh game in that mode.
func (s *GameService) OpenGame(ctx context.Context, twitchID int64, hostName, channel string, mode domain.Mode) (*domain.Game, *domain.User, error) {
	name := core.NormalizeName(channel)
	if name == "" {
		return nil, nil, fmt.Errorf("empty channel: %w", domain.ErrInvalidInput)
	}
	if hostName == "" {
		hostName = channel
	}
	host, err := s.store.GetOrCreateTwitchUser(ctx, twitchID, hostName)
	if err != nil {
		return nil, nil, err
	}
	var g *domain.Game
	if mode == "" {
		g, err = s.GetOrCreateGame(ctx, host.ID, name)
	} else {
		g, err = s.CreateGame(ctx, host.ID, name, mode)
	}
	if err != nil && !errors.Is(err, domain.ErrUpstreamUnavailable) {
		return nil, nil, err
	}
	return g, host, err
}

func (s *GameService) UserByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return s.store.UserByID(ctx, id)
}

func (s *GameService) UserByTwitchID(ctx context.Context, twitchID int64) (*domain.User, error) {
	return s.store.UserByTwitchID(ctx, twitchID)
}

func (s *GameService) UserByToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, fmt.Errorf("empty user token: %w", domain.ErrNotFound)
	}
	return s.store.UserByToken(ctx, token)
}

func (s *GameService) UserCards(ctx context.Context, user domain.UserID) ([]*domain.Card, error) {
	return s.store.UserCards(ctx, user)
}

func (s *GameService) CardCount(ctx context.Context, game domain.GameID) (int, error) {
	return s.store.CountCards(ctx, game)
}

// PlayURL is where players open their cards.
func (s *GameService) PlayURL() string {
	return s.baseURL + "/play"
}

// JoinGame makes sure the chat user has a card in the game. An existing
// card is returned untouched.
func (s *GameService) JoinGame(ctx context.Context, twitchID int64, userName, gameName string) (JoinResult, error) {
	g, err := s.GameByName(ctx, gameName)
	if err != nil {
		return JoinResult{}, err
	}
	u, err := s.store.GetOrCreateTwitchUser(ctx, twitchID, userName)
	if err != nil {
		return JoinResult{}, err
	}

	now := s.sessions.Now()
	c := s.cards.Generate(g.Mode)
	c.UserID = u.ID
	c.GameID = g.ID
	c.GameName = g.Name
	c.Created = now
	c.Updated = now
	stored, created, err := s.store.CreateCardIfMissing(ctx, c)
	if err != nil {
		return JoinResult{}, fmt.Errorf("create card: %w", err)
	}
	if created {
		log.Info().Str("module", "app.game").Str("game", g.Name).Str("user", u.Name).Msg("card created")
	}
	return JoinResult{
		NewCard: created,
		UserID:  u.ID,
		GameID:  g.ID,
		CardID:  stored.ID,
		URL:     s.PlayURL(),
	}, nil
}

// SubmitCard checks the user's card. A win ends the game and records a
// statistics entry. A missing user, game or card is SubmitNoCard.
func (s *GameService) SubmitCard(ctx context.Context, twitchID int64, gameName string) (SubmitResult, error) {
	name := core.NormalizeName(gameName)
	u, err := s.store.UserByTwitchID(ctx, twitchID)
	if errors.Is(err, domain.ErrNotFound) {
		return SubmitResult{Outcome: SubmitNoCard}, nil
	}
	if err != nil {
		return SubmitResult{}, err
	}

	unlock := s.lock(name)
	defer unlock()

	g, err := s.store.GameByName(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return SubmitResult{Outcome: SubmitNoCard, User: u}, nil
	}
	if err != nil {
		return SubmitResult{}, err
	}
	res := SubmitResult{Outcome: SubmitNoCard, GameID: g.ID, User: u}
	c, err := s.store.CardFor(ctx, u.ID, g.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return res, nil
	}
	if err != nil {
		return SubmitResult{}, err
	}
	if g.Ended {
		return res, fmt.Errorf("game %s: %w", name, domain.ErrGameEnded)
	}
	if !s.cards.EvaluateMode(c, g.Called, g.Mode) {
		res.Outcome = SubmitNotWinning
		return res, nil
	}

	res.Outcome = SubmitWon
	winner := u.Name
	ended, endErr := s.endLocked(ctx, name, &c.ID, &winner)
	if endErr != nil && !errors.Is(endErr, domain.ErrUpstreamUnavailable) {
		return SubmitResult{}, endErr
	}
	players, err := s.store.CountCards(ctx, g.ID)
	if err != nil {
		return res, errors.Join(endErr, fmt.Errorf("count cards: %w", err))
	}
	stat := &domain.StatRecord{
		UserID:   u.ID,
		GameName: name,
		Players:  players,
		Grid:     c.Grid,
		Marked:   append([]int(nil), c.Marked...),
		Called:   append([]int(nil), ended.Called...),
		Created:  s.sessions.Now(),
	}
	if err := s.store.SaveStat(ctx, stat); err != nil {
		return res, errors.Join(endErr, fmt.Errorf("save stat: %w", err))
	}
	log.Info().Str("module", "app.game").Str("game", name).Str("user", u.Name).Int("players", players).Msg("card won")
	return res, endErr
}

// MarkCell sets one cell's marked state and returns the resulting state.
func (s *GameService) MarkCell(ctx context.Context, user domain.UserID, game domain.GameID, cell int, marked bool) (bool, error) {
	c, err := s.store.CardFor(ctx, user, game)
	if err != nil {
		return false, err
	}
	g, err := s.store.GameByName(ctx, c.GameName)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return false, fmt.Errorf("card %d: %w", c.ID, domain.ErrGameEnded)
	case err != nil:
		return false, err
	case g.ID != c.GameID || g.Ended:
		// superseded games count as ended
		return false, fmt.Errorf("game %s: %w", g.Name, domain.ErrGameEnded)
	}

	if cell == domain.FreeCell && g.Mode != domain.ModeBlackout {
		return true, nil
	}
	was, err := s.cards.IsMarked(c, cell)
	if err != nil {
		return false, err
	}
	if was == marked {
		return marked, nil
	}
	if marked {
		err = s.cards.Mark(c, cell)
	} else {
		err = s.cards.Unmark(c, cell)
	}
	if err != nil {
		return false, err
	}
	c.Updated = s.sessions.Now()
	if err := s.store.SaveCard(ctx, c); err != nil {
		return false, fmt.Errorf("save card: %w", err)
	}
	return s.cards.IsMarked(c, cell)
}
