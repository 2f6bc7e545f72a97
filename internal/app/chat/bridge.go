// Package chat connects the upstream chat to the game service: it reacts
// to viewer commands and keeps the chat subscriptions in step with the
// relay's viewer rooms.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/StreamBingo/internal/app"
	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/rs/zerolog/log"
)

// Games is the part of app.GameService the bridge calls.
type Games interface {
	JoinGame(ctx context.Context, twitchID int64, userName, gameName string) (app.JoinResult, error)
	SubmitCard(ctx context.Context, twitchID int64, gameName string) (app.SubmitResult, error)
}

// Message is one chat line.
type Message struct {
	Channel     string
	UserID      int64
	UserName    string
	DisplayName string
	Text        string
}

func (m Message) display() string {
	if m.DisplayName != "" {
		return m.DisplayName
	}
	return m.UserName
}

type Outcome int

const (
	Ignored Outcome = iota
	Throttled
	JoinedNew
	JoinedExisting
	Won
	NotWinning
	NoCard
	GameOver
	Failed
)

var outcomeNames = map[Outcome]string{
	Ignored:        "ignored",
	Throttled:      "throttled",
	JoinedNew:      "joined_new",
	JoinedExisting: "joined_existing",
	Won:            "won",
	NotWinning:     "not_winning",
	NoCard:         "no_card",
	GameOver:       "game_over",
	Failed:         "failed",
}

func (o Outcome) String() string { return outcomeNames[o] }

type Options struct {
	JoinKeywords  []string
	ClaimKeywords []string
	Cooldown      time.Duration
}

func DefaultOptions() Options {
	return Options{
		JoinKeywords:  []string{"!play"},
		ClaimKeywords: []string{"bingo", "!bingo"},
		Cooldown:      10 * time.Second,
	}
}

type subscription struct {
	join    bool
	channel string
}

// Bridge implements app.Upstream. Join and part requests are queued and
// run in order by Run, so the relay never waits on the chat service.
type Bridge struct {
	games    Games
	client   core.ChatClient
	hub      app.Broadcaster
	cooldown *Cooldown
	join     map[string]struct{}
	claim    map[string]struct{}

	mu    sync.Mutex
	queue []subscription
	wake  chan struct{}
}

var _ app.Upstream = (*Bridge)(nil)

func NewBridge(games Games, client core.ChatClient, hub app.Broadcaster, opts Options) *Bridge {
	return &Bridge{
		games:    games,
		client:   client,
		hub:      hub,
		cooldown: NewCooldown(1, opts.Cooldown),
		join:     keywordSet(opts.JoinKeywords),
		claim:    keywordSet(opts.ClaimKeywords),
		wake:     make(chan struct{}, 1),
	}
}

func keywordSet(words []string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out[w] = struct{}{}
		}
	}
	return out
}

func (b *Bridge) Subscribe(game string)   { b.enqueue(subscription{join: true, channel: game}) }
func (b *Bridge) Unsubscribe(game string) { b.enqueue(subscription{join: false, channel: game}) }

func (b *Bridge) enqueue(s subscription) {
	b.mu.Lock()
	b.queue = append(b.queue, s)
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Run performs queued joins and parts until ctx is done and prunes the
// command cooldown once a minute. Failed joins and parts are logged and
// never retried.
func (b *Bridge) Run(ctx context.Context) error {
	prune := time.NewTicker(time.Minute)
	defer prune.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-prune.C:
			b.cooldown.Prune()
			continue
		case <-b.wake:
		}
		b.mu.Lock()
		batch := b.queue
		b.queue = nil
		b.mu.Unlock()

		for _, s := range batch {
			var err error
			if s.join {
				err = b.client.Join(ctx, s.channel)
			} else {
				err = b.client.Part(ctx, s.channel)
			}
			l := log.With().Str("module", "app.chat").Str("channel", s.channel).Bool("join", s.join).Logger()
			if err != nil {
				l.Warn().Err(err).Msg("chat subscription failed")
				continue
			}
			l.Info().Msg("chat subscription updated")
		}
	}
}

// HandleMessage dispatches one chat line. The cooldown is checked before
// dispatch and counts every recognized command, whatever its outcome.
func (b *Bridge) HandleMessage(ctx context.Context, m Message) Outcome {
	text := strings.ToLower(strings.TrimSpace(m.Text))
	_, isJoin := b.join[text]
	_, isClaim := b.claim[text]
	if !isJoin && !isClaim {
		return Ignored
	}
	m.Channel = core.NormalizeName(strings.TrimPrefix(m.Channel, "#"))
	if !b.cooldown.Allow(m.UserID) {
		return Throttled
	}
	log.Info().Str("module", "app.chat").Str("channel", m.Channel).Str("user", m.UserName).Str("command", text).Msg("chat command")

	if isJoin {
		return b.handleJoin(ctx, m)
	}
	return b.handleClaim(ctx, m)
}

func (b *Bridge) handleJoin(ctx context.Context, m Message) Outcome {
	res, err := b.games.JoinGame(ctx, m.UserID, m.UserName, m.Channel)
	if err != nil {
		log.Warn().Err(err).Str("module", "app.chat").Str("channel", m.Channel).Str("user", m.UserName).Msg("join failed")
		return Failed
	}
	out := JoinedExisting
	if res.NewCard {
		out = JoinedNew
		b.hub.Broadcast(domain.UserRoom(res.UserID), core.NewCard(res.GameID))
		b.hub.Broadcast(domain.AdminRoom(m.Channel), core.AddPlayer())
	}
	b.say(ctx, m.Channel, fmt.Sprintf("@%s see your BINGO card at %s", m.display(), res.URL))
	return out
}

func (b *Bridge) handleClaim(ctx context.Context, m Message) Outcome {
	res, err := b.games.SubmitCard(ctx, m.UserID, m.Channel)
	if errors.Is(err, domain.ErrGameEnded) {
		b.say(ctx, m.Channel, fmt.Sprintf("@%s, this game is already over.", m.display()))
		return GameOver
	}
	if err != nil && !errors.Is(err, domain.ErrUpstreamUnavailable) {
		log.Warn().Err(err).Str("module", "app.chat").Str("channel", m.Channel).Str("user", m.UserName).Msg("claim failed")
		return Failed
	}
	switch res.Outcome {
	case app.SubmitWon:
		b.say(ctx, m.Channel, fmt.Sprintf("Congratulations @%s!", m.display()))
		return Won
	case app.SubmitNotWinning:
		b.say(ctx, m.Channel, fmt.Sprintf("@%s, your card does not meet the win conditions.", m.display()))
		return NotWinning
	default:
		b.say(ctx, m.Channel, fmt.Sprintf("@%s, you do not have a BINGO card.", m.display()))
		return NoCard
	}
}

func (b *Bridge) say(ctx context.Context, channel, text string) {
	if err := b.client.Say(ctx, channel, text); err != nil {
		log.Warn().Err(err).Str("module", "app.chat").Str("channel", channel).Msg("chat reply failed")
	}
}
