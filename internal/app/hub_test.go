package app

import (
	"fmt"
	"testing"

	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_JoinLeaveIdempotent(t *testing.T) {
	up := &fakeUpstream{}
	h := startHub(t, SimplePolicy{}, up)
	connect(t, h, "c1")

	added, err := h.Join("c1", domain.SessionRoom("alice"))
	require.NoError(t, err)
	assert.True(t, added)
	added, err = h.Join("c1", domain.SessionRoom("alice"))
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, h.MemberCount(domain.SessionRoom("alice")))

	removed, err := h.Leave("c1", domain.SessionRoom("alice"))
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = h.Leave("c1", domain.SessionRoom("alice"))
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Equal(t, []upstreamCall{{"join", "alice"}, {"part", "alice"}}, up.snapshot())
}

func TestHub_JoinUnknownClient(t *testing.T) {
	h := startHub(t, SimplePolicy{}, nil)
	added, err := h.Join("ghost", domain.AdminRoom("alice"))
	require.NoError(t, err)
	assert.False(t, added)
	assert.Empty(t, h.List())
}

func TestHub_UpstreamOnFirstAndLastViewer(t *testing.T) {
	up := &fakeUpstream{}
	h := startHub(t, SimplePolicy{}, up)
	connect(t, h, "a")
	connect(t, h, "b")
	connect(t, h, "c")

	_, _ = h.Join("a", domain.SessionRoom("alice"))
	_, _ = h.Join("b", domain.SessionRoom("alice"))
	// admin and user rooms never touch the upstream
	_, _ = h.Join("a", domain.AdminRoom("alice"))
	_, _ = h.Join("c", domain.UserRoom(7))

	require.NoError(t, h.Disconnect("a"))
	assert.Equal(t, []upstreamCall{{"join", "alice"}}, up.snapshot())

	require.NoError(t, h.Disconnect("b"))
	assert.Equal(t, []upstreamCall{{"join", "alice"}, {"part", "alice"}}, up.snapshot())

	connect(t, h, "d")
	_, _ = h.Join("d", domain.SessionRoom("alice"))
	assert.Equal(t, []upstreamCall{{"join", "alice"}, {"part", "alice"}, {"join", "alice"}}, up.snapshot())
}

func TestHub_DisconnectRemovesAllRooms(t *testing.T) {
	h := startHub(t, SimplePolicy{}, nil)
	connect(t, h, "a")
	_, _ = h.Join("a", domain.SessionRoom("alice"))
	_, _ = h.Join("a", domain.AdminRoom("alice"))
	_, _ = h.Join("a", domain.UserRoom(3))
	assert.Len(t, h.RoomsOf("a"), 3)

	require.NoError(t, h.Disconnect("a"))
	require.NoError(t, h.Disconnect("a"))
	assert.Empty(t, h.RoomsOf("a"))
	assert.Empty(t, h.List())
	assert.Zero(t, h.Registry.Count())
}

func TestHub_BroadcastOrderPerClient(t *testing.T) {
	h := startHub(t, SimplePolicy{}, nil)
	conn, _ := connect(t, h, "a")
	_, _ = h.Join("a", domain.AdminRoom("alice"))

	for n := 1; n <= 20; n++ {
		h.Broadcast(domain.AdminRoom("alice"), core.NumberCalled(n))
	}
	frames := conn.decoded(t)
	require.Len(t, frames, 20)
	for i, f := range frames {
		assert.Equal(t, float64(i+1), f["number"], fmt.Sprintf("frame %d", i))
	}
}

func TestHub_BroadcastOnlyToRoomMembers(t *testing.T) {
	h := startHub(t, SimplePolicy{}, nil)
	inRoom, _ := connect(t, h, "a")
	outside, _ := connect(t, h, "b")
	_, _ = h.Join("a", domain.SessionRoom("alice"))
	_, _ = h.Join("b", domain.SessionRoom("bob"))

	res := h.Broadcast(domain.SessionRoom("alice"), core.ResetGame())
	assert.Equal(t, 1, res.SendTo)
	assert.Equal(t, []string{"resetgame"}, inRoom.types(t))
	assert.Empty(t, outside.types(t))

	res = h.Broadcast(domain.SessionRoom("nobody"), core.ResetGame())
	assert.Zero(t, res.SendTo)
}

func TestHub_SlowClientKickedOthersServed(t *testing.T) {
	up := &fakeUpstream{}
	h := startHub(t, SimplePolicy{}, up)
	fast, _ := connect(t, h, "fast")
	slow, kicked := connect(t, h, "slow")
	slow.full = true
	_, _ = h.Join("fast", domain.SessionRoom("alice"))
	_, _ = h.Join("slow", domain.SessionRoom("alice"))

	res := h.Broadcast(domain.SessionRoom("alice"), core.GameOver(1, nil))
	assert.Equal(t, 1, res.SendTo)
	assert.Len(t, res.Dropped, 1)
	assert.True(t, *kicked)
	assert.Equal(t, []string{"gameover"}, fast.types(t))
	assert.Empty(t, h.RoomsOf("slow"))
	assert.Equal(t, 1, h.MemberCount(domain.SessionRoom("alice")))
}

func TestHub_TolerantPolicyKeepsSlowClient(t *testing.T) {
	h := startHub(t, TolerantPolicy{}, nil)
	slow, kicked := connect(t, h, "slow")
	slow.full = true
	_, _ = h.Join("slow", domain.AdminRoom("alice"))

	h.Broadcast(domain.AdminRoom("alice"), core.AddPlayer())
	assert.False(t, *kicked)
	assert.Equal(t, 1, h.MemberCount(domain.AdminRoom("alice")))
}
