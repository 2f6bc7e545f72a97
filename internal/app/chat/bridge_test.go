package chat

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/StreamBingo/internal/adapters/storage/memory"
	"github.com/dkeye/StreamBingo/internal/app"
	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/core/mocks"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type sent struct {
	room domain.RoomKey
	typ  core.EventType
}

type recordingHub struct {
	mu  sync.Mutex
	got []sent
}

func (h *recordingHub) Broadcast(key domain.RoomKey, ev core.Event) core.PublishResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.got = append(h.got, sent{key, ev.Type})
	return core.PublishResult{}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, core.Notification) error { return nil }

type bridgeFixture struct {
	bridge *Bridge
	chat   *mocks.MockChatClient
	hub    *recordingHub
	store  *memory.Store
	svc    *app.GameService
}

func newBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &bridgeFixture{
		chat:  mocks.NewMockChatClient(ctrl),
		hub:   &recordingHub{},
		store: memory.New(),
	}
	base := time.Unix(1_700_000_000, 0)
	f.svc = app.NewGameService(f.store, nopNotifier{}, core.NewCardEngine(),
		core.NewSessionEngineWith(func() time.Time { return base }, rand.IntN), "https://bingo.example")
	f.bridge = NewBridge(f.svc, f.chat, f.hub, DefaultOptions())
	_, err := f.svc.CreateGame(context.Background(), 1, "alice", domain.ModeFreeLine)
	require.NoError(t, err)
	return f
}

func msg(user int64, text string) Message {
	return Message{Channel: "#alice", UserID: user, UserName: "bob", DisplayName: "Bob", Text: text}
}

func TestBridge_IgnoresChatter(t *testing.T) {
	f := newBridgeFixture(t)
	ctx := context.Background()
	for _, text := range []string{"hello", "bingo!", "!playing", ""} {
		assert.Equal(t, Ignored, f.bridge.HandleMessage(ctx, msg(1, text)))
	}
}

func TestBridge_JoinCreatesCardOnce(t *testing.T) {
	f := newBridgeFixture(t)
	ctx := context.Background()
	f.chat.EXPECT().Say(gomock.Any(), "alice", "@Bob see your BINGO card at https://bingo.example/play").Return(nil).Times(2)

	assert.Equal(t, JoinedNew, f.bridge.HandleMessage(ctx, msg(555, "  !PLAY ")))
	f.bridge.cooldown.now = func() time.Time { return time.Now().Add(time.Minute) }
	assert.Equal(t, JoinedExisting, f.bridge.HandleMessage(ctx, msg(555, "!play")))

	u, err := f.store.UserByTwitchID(ctx, 555)
	require.NoError(t, err)
	g, err := f.store.GameByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []sent{
		{domain.UserRoom(u.ID), core.EventNewCard},
		{domain.AdminRoom("alice"), core.EventAddPlayer},
	}, f.hub.got)
	n, err := f.store.CountCards(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBridge_CooldownBeforeDispatch(t *testing.T) {
	f := newBridgeFixture(t)
	ctx := context.Background()
	f.chat.EXPECT().Say(gomock.Any(), "alice", "@Bob, you do not have a BINGO card.").Return(nil).Times(1)

	assert.Equal(t, NoCard, f.bridge.HandleMessage(ctx, msg(555, "bingo")))
	// a different command from the same user is still throttled
	assert.Equal(t, Throttled, f.bridge.HandleMessage(ctx, msg(555, "!play")))
	assert.Empty(t, f.hub.got)
}

func TestBridge_ClaimOutcomes(t *testing.T) {
	f := newBridgeFixture(t)
	ctx := context.Background()
	later := time.Now()
	f.bridge.cooldown.now = func() time.Time {
		later = later.Add(time.Minute)
		return later
	}

	f.chat.EXPECT().Say(gomock.Any(), "alice", gomock.Any()).Return(nil)
	require.Equal(t, JoinedNew, f.bridge.HandleMessage(ctx, msg(555, "!play")))

	f.chat.EXPECT().Say(gomock.Any(), "alice", "@Bob, your card does not meet the win conditions.").Return(nil)
	assert.Equal(t, NotWinning, f.bridge.HandleMessage(ctx, msg(555, "!bingo")))

	u, err := f.store.UserByTwitchID(ctx, 555)
	require.NoError(t, err)
	g, err := f.store.GameByName(ctx, "alice")
	require.NoError(t, err)
	c, err := f.store.CardFor(ctx, u.ID, g.ID)
	require.NoError(t, err)
	c.Marked = []int{0, 1, 2, 3, 4}
	require.NoError(t, f.store.SaveCard(ctx, c))
	g.Called = []int{c.Grid[0], c.Grid[1], c.Grid[2], c.Grid[3], c.Grid[4]}
	require.NoError(t, f.store.SaveGame(ctx, g))

	f.chat.EXPECT().Say(gomock.Any(), "alice", "Congratulations @Bob!").Return(nil)
	assert.Equal(t, Won, f.bridge.HandleMessage(ctx, msg(555, "BINGO")))
	assert.Len(t, f.store.Stats(), 1)
}

func TestBridge_ClaimOnEndedGameIsAnswered(t *testing.T) {
	f := newBridgeFixture(t)
	ctx := context.Background()
	later := time.Now()
	f.bridge.cooldown.now = func() time.Time {
		later = later.Add(time.Minute)
		return later
	}

	f.chat.EXPECT().Say(gomock.Any(), "alice", gomock.Any()).Return(nil)
	require.Equal(t, JoinedNew, f.bridge.HandleMessage(ctx, msg(555, "!play")))
	_, err := f.svc.EndGame(ctx, "alice", nil, nil)
	require.NoError(t, err)

	f.chat.EXPECT().Say(gomock.Any(), "alice", "@Bob, this game is already over.").Return(nil)
	assert.Equal(t, GameOver, f.bridge.HandleMessage(ctx, msg(555, "bingo")))
	assert.Empty(t, f.store.Stats())
}

func TestBridge_SubscriptionFollowsViewerRoom(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockChatClient(ctrl)
	bridge := NewBridge(nil, client, nil, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	hub := app.NewHub(app.NewRoomManager(), app.SimplePolicy{}, bridge)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = hub.Run(ctx) }()
	go func() { defer wg.Done(); _ = bridge.Run(ctx) }()
	defer func() {
		cancel()
		wg.Wait()
	}()

	done := make(chan struct{})
	gomock.InOrder(
		client.EXPECT().Join(gomock.Any(), "alice").Return(nil),
		client.EXPECT().Part(gomock.Any(), "alice").Return(nil),
		client.EXPECT().Join(gomock.Any(), "alice").DoAndReturn(func(context.Context, string) error {
			close(done)
			return nil
		}),
	)

	conn := &nopConn{}
	for _, id := range []core.ClientID{"a", "b", "c"} {
		require.NoError(t, hub.Connect(core.NewMemberSession(id, nil, conn), nil))
	}
	_, _ = hub.Join("a", domain.SessionRoom("alice"))
	_, _ = hub.Join("b", domain.SessionRoom("alice"))
	require.NoError(t, hub.Disconnect("a"))
	require.NoError(t, hub.Disconnect("b"))
	_, _ = hub.Join("c", domain.SessionRoom("alice"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second join never reached the chat client")
	}
}

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close()                   {}
