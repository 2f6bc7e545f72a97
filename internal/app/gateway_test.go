package app

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dkeye/StreamBingo/internal/adapters/storage/memory"
	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relayFixture struct {
	hub   *Hub
	pilot *Autopilot
	gw    *Gateway
	svc   *GameService
	store *memory.Store
}

// newRelayFixture wires the relay in local mode. Timer intervals are
// milliseconds and every clock read is one cooldown later than the last.
func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	f := &relayFixture{hub: startHub(t, SimplePolicy{}, nil), store: memory.New()}
	f.pilot = NewAutopilot(ctx, f.hub, time.Millisecond)
	t.Cleanup(func() {
		cancel()
		f.pilot.Timers().Wait()
	})
	f.gw = NewGateway(f.hub, f.pilot)

	var reads atomic.Int64
	base := time.Unix(1_700_000_000, 0)
	now := func() time.Time { return base.Add(time.Duration(reads.Add(1)) * core.CallCooldown) }
	f.svc = NewGameService(f.store, f.gw, core.NewCardEngine(), core.NewSessionEngineWith(now, rand.IntN), "http://localhost")
	f.pilot.SetGames(f.svc)
	return f
}

func TestGateway_RoutesNotifications(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()
	g, err := f.svc.CreateGame(ctx, 1, "alice", "")
	require.NoError(t, err)

	host, _ := connect(t, f.hub, "host")
	player, _ := connect(t, f.hub, "player")
	_, _ = f.hub.Join("host", domain.SessionRoom("alice"))
	_, _ = f.hub.Join("host", domain.AdminRoom("alice"))
	_, _ = f.hub.Join("player", domain.SessionRoom("alice"))

	_, err = f.svc.CallNumber(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"numbercalled"}, host.types(t))
	assert.Empty(t, player.types(t))

	winner := "bob"
	_, err = f.svc.EndGame(ctx, "alice", nil, &winner)
	require.NoError(t, err)
	assert.Equal(t, []string{"numbercalled", "gameover"}, host.types(t))
	got := player.decoded(t)
	require.Len(t, got, 1)
	assert.Equal(t, "gameover", got[0]["type"])
	assert.Equal(t, float64(g.ID), got[0]["gameId"])
	assert.Equal(t, "bob", got[0]["winner"])

	_, err = f.svc.CreateGame(ctx, 1, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"numbercalled", "gameover", "gameover", "resetgame"}, host.types(t))
	got = player.decoded(t)
	require.Len(t, got, 2)
	assert.Equal(t, float64(g.ID), got[1]["gameId"], "old game id")
	assert.Nil(t, got[1]["winner"])

	_, err = f.svc.UpdateSettings(ctx, "alice", domain.Settings{Background: "green"})
	require.NoError(t, err)
	frames := host.decoded(t)
	last := frames[len(frames)-1]
	assert.Equal(t, "gamesettings", last["type"])
	assert.Equal(t, "green", last["settings"].(map[string]any)["background"])
}

func TestGateway_RejectsMalformed(t *testing.T) {
	f := newRelayFixture(t)
	err := f.gw.Handle(context.Background(), core.Notification{Action: "explode", GameName: "alice"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAutopilot_CallsAndAnnouncesTimers(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateGame(ctx, 1, "alice", "")
	require.NoError(t, err)
	host, _ := connect(t, f.hub, "host")
	_, _ = f.hub.Join("host", domain.AdminRoom("alice"))

	_, err = f.svc.UpdateSettings(ctx, "alice", domain.Settings{AutoCall: 5})
	require.NoError(t, err)
	assert.True(t, f.pilot.Timers().Running("alice", core.TimerCall))
	assert.False(t, f.pilot.Timers().Running("alice", core.TimerEnd))

	require.Eventually(t, func() bool {
		g, err := f.svc.GameByName(ctx, "alice")
		return err == nil && len(g.Called) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	_, err = f.svc.UpdateSettings(ctx, "alice", domain.Settings{})
	require.NoError(t, err)
	assert.False(t, f.pilot.Timers().Running("alice", core.TimerCall))

	frames := host.decoded(t)
	require.GreaterOrEqual(t, len(frames), 2)
	assert.Equal(t, "gamesettings", frames[0]["type"])
	assert.Equal(t, "timer", frames[1]["type"])
	assert.Equal(t, "call", frames[1]["kind"])
	assert.Equal(t, true, frames[1]["running"])
	assert.Equal(t, float64(5), frames[1]["value"])

	var stopped bool
	for _, fr := range frames[2:] {
		if fr["type"] == "timer" && fr["kind"] == "call" && fr["running"] == false {
			stopped = true
		}
	}
	assert.True(t, stopped, "cancel is announced")
}

func TestAutopilot_EndThenRestart(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()
	first, err := f.svc.CreateGame(ctx, 1, "alice", domain.ModeFreeFill)
	require.NoError(t, err)

	g, err := f.store.GameByName(ctx, "alice")
	require.NoError(t, err)
	for n := 1; n <= domain.MaxNumber; n++ {
		g.Called = append(g.Called, n)
	}
	require.NoError(t, f.store.SaveGame(ctx, g))

	_, err = f.svc.UpdateSettings(ctx, "alice", domain.Settings{AutoEnd: 2, AutoRestart: 20})
	require.NoError(t, err)
	assert.True(t, f.pilot.Timers().Running("alice", core.TimerEnd))
	assert.False(t, f.pilot.Timers().Running("alice", core.TimerRestart), "restart waits for the end")

	require.Eventually(t, func() bool {
		g, err := f.store.GameByName(ctx, "alice")
		return err == nil && g.ID != first.ID && !g.Ended
	}, 2*time.Second, 5*time.Millisecond)

	next, err := f.store.GameByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeFreeFill, next.Mode)
	assert.Equal(t, 20, next.Settings.AutoRestart)
	assert.Empty(t, next.Called)
}

func TestAutopilot_EnsureArmedSkipsRunning(t *testing.T) {
	f := newRelayFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateGame(ctx, 1, "alice", "")
	require.NoError(t, err)
	g, err := f.store.GameByName(ctx, "alice")
	require.NoError(t, err)
	g.Settings = domain.Settings{AutoCall: 1000}
	require.NoError(t, f.store.SaveGame(ctx, g))

	host, _ := connect(t, f.hub, "host")
	_, _ = f.hub.Join("host", domain.AdminRoom("alice"))

	require.NoError(t, f.pilot.EnsureArmed(ctx, "alice"))
	require.NoError(t, f.pilot.EnsureArmed(ctx, "alice"))
	assert.Equal(t, []string{"timer"}, host.types(t))

	f.pilot.Stop("alice")
	assert.Equal(t, []string{"timer", "timer"}, host.types(t))
	assert.False(t, f.pilot.Timers().Running("alice", core.TimerCall))
}
