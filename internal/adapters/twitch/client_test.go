package twitch

import (
	"testing"

	"github.com/dkeye/StreamBingo/internal/app/chat"
	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"github.com/stretchr/testify/assert"
)

func TestToMessage(t *testing.T) {
	pm := twitchirc.PrivateMessage{
		User:    twitchirc.User{ID: "12345", Name: "viewer", DisplayName: "Viewer"},
		Channel: "somechannel",
		Message: "!play",
	}
	m, ok := toMessage(pm)
	assert.True(t, ok)
	assert.Equal(t, chat.Message{
		Channel:     "somechannel",
		UserID:      12345,
		UserName:    "viewer",
		DisplayName: "Viewer",
		Text:        "!play",
	}, m)
}

func TestToMessageRejectsBadUserID(t *testing.T) {
	_, ok := toMessage(twitchirc.PrivateMessage{User: twitchirc.User{ID: "abc"}})
	assert.False(t, ok)
}
