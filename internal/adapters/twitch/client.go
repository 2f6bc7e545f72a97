// Package twitch is the IRC chat upstream.
package twitch

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/dkeye/StreamBingo/internal/app/chat"
	"github.com/dkeye/StreamBingo/internal/core"
	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"github.com/rs/zerolog/log"
)

// MessageHandler receives every chat line of a joined channel.
type MessageHandler func(ctx context.Context, m chat.Message)

type Client struct {
	irc *twitchirc.Client
}

var _ core.ChatClient = (*Client)(nil)

// New authenticates as username. password is an "oauth:..." token.
func New(username, password string) *Client {
	return &Client{irc: twitchirc.NewClient(username, password)}
}

func (c *Client) Join(_ context.Context, channel string) error {
	c.irc.Join(channel)
	log.Info().Str("module", "twitch").Str("channel", channel).Msg("joined")
	return nil
}

func (c *Client) Part(_ context.Context, channel string) error {
	c.irc.Depart(channel)
	log.Info().Str("module", "twitch").Str("channel", channel).Msg("parted")
	return nil
}

func (c *Client) Say(_ context.Context, channel, text string) error {
	c.irc.Say(channel, text)
	return nil
}

// Run connects and feeds chat lines to handle until ctx is done.
func (c *Client) Run(ctx context.Context, handle MessageHandler) error {
	c.irc.OnConnect(func() {
		log.Info().Str("module", "twitch").Msg("connected")
	})
	c.irc.OnPrivateMessage(func(pm twitchirc.PrivateMessage) {
		m, ok := toMessage(pm)
		if !ok {
			log.Debug().Str("module", "twitch").Str("user_id", pm.User.ID).Msg("unparseable user id")
			return
		}
		handle(ctx, m)
	})

	go func() {
		<-ctx.Done()
		_ = c.irc.Disconnect()
	}()

	err := c.irc.Connect()
	if errors.Is(err, twitchirc.ErrClientDisconnected) || ctx.Err() != nil {
		return nil
	}
	return err
}

func toMessage(pm twitchirc.PrivateMessage) (chat.Message, bool) {
	id, err := strconv.ParseInt(pm.User.ID, 10, 64)
	if err != nil {
		return chat.Message{}, false
	}
	return chat.Message{
		Channel:     strings.TrimPrefix(pm.Channel, "#"),
		UserID:      id,
		UserName:    pm.User.Name,
		DisplayName: pm.User.DisplayName,
		Text:        pm.Message,
	}, true
}
