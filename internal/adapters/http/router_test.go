package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/StreamBingo/internal/adapters/signal"
	"github.com/dkeye/StreamBingo/internal/adapters/storage/memory"
	"github.com/dkeye/StreamBingo/internal/app"
	"github.com/dkeye/StreamBingo/internal/config"
	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	router *gin.Engine
	svc    *app.GameService
	game   *domain.Game
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	return newAPIFixtureWithSecret(t, "relay-secret")
}

func newAPIFixtureWithSecret(t *testing.T, secret string) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())

	hub := app.NewHub(app.NewRoomManager(), app.SimplePolicy{}, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()
	pilot := app.NewAutopilot(ctx, hub, time.Second)
	t.Cleanup(func() {
		cancel()
		pilot.Timers().Wait()
		<-done
	})
	gw := app.NewGateway(hub, pilot)
	svc := app.NewGameService(memory.New(), gw, core.NewCardEngine(), core.NewSessionEngine(), "http://localhost:8080")
	pilot.SetGames(svc)

	cfg := &config.Config{Mode: "test", Secret: "cookie-secret", NotifySecret: secret}
	r := SetupRouter(ctx, cfg, Deps{
		Hub:     hub,
		Games:   svc,
		Gateway: gw,
		Signal:  signal.NewSignalWSController(hub, svc, pilot, signal.Options{}),
	})

	g, err := svc.CreateGame(context.Background(), 1, "somechannel", domain.ModeFreeLine)
	require.NoError(t, err)
	return &apiFixture{router: r, svc: svc, game: g}
}

func (f *apiFixture) do(t *testing.T, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var out map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestHealthAndClientCookie(t *testing.T) {
	f := newAPIFixture(t)
	w, body := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, w.Header().Get("Set-Cookie"), "BingoSessions=")
}

func TestClientTokenSurvivesInSession(t *testing.T) {
	f := newAPIFixture(t)
	f.router.GET("/client-token", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("client_token"))
	})

	first := httptest.NewRecorder()
	f.router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/client-token", nil))
	require.Equal(t, http.StatusOK, first.Code)
	token := first.Body.String()
	require.NotEmpty(t, token)
	cookies := first.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/client-token", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	second := httptest.NewRecorder()
	f.router.ServeHTTP(second, req)
	assert.Equal(t, token, second.Body.String())
	assert.Empty(t, second.Header().Get("Set-Cookie"))

	other := httptest.NewRecorder()
	f.router.ServeHTTP(other, httptest.NewRequest(http.MethodGet, "/client-token", nil))
	assert.NotEqual(t, token, other.Body.String())
}

func TestNotifyEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	auth := map[string]string{"Authorization": "relay-secret"}

	w, _ := f.do(t, http.MethodPost, "/notify", `{"action":"callNumber","gameName":"somechannel","number":5}`, map[string]string{"Authorization": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = f.do(t, http.MethodPost, "/notify", `{"action":`, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, "/notify", `{"action":"dance","gameName":"somechannel"}`, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, "/notify", `{"action":"callNumber","gameName":"somechannel","number":5}`, auth)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNotifyRejectsEverythingWithoutConfiguredSecret(t *testing.T) {
	f := newAPIFixtureWithSecret(t, "")
	body := `{"action":"endGame","gameName":"somechannel","gameId":1,"winner":"mallory"}`

	w, _ := f.do(t, http.MethodPost, "/notify", body, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = f.do(t, http.MethodPost, "/notify", body, map[string]string{"Authorization": ""})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = f.do(t, http.MethodPost, "/api/games", `{"twitchId":1,"channel":"x"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOpenGameThenCallNumber(t *testing.T) {
	f := newAPIFixture(t)
	auth := map[string]string{"Authorization": "relay-secret"}

	w, _ := f.do(t, http.MethodPost, "/api/games", `{"twitchId":77,"channel":"newchannel"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = f.do(t, http.MethodPost, "/api/games", `{"channel":"newchannel"}`, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := f.do(t, http.MethodPost, "/api/games", `{"twitchId":77,"hostName":"NewChannel","channel":"NewChannel"}`, auth)
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "newchannel", body["game"].(map[string]any)["name"])
	assert.Equal(t, "FreeLine", body["game"].(map[string]any)["mode"])

	w, body = f.do(t, http.MethodPost, "/api/games", `{"twitchId":77,"hostName":"NewChannel","channel":"newchannel"}`, auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, token, body["token"])

	w, body = f.do(t, http.MethodPost, "/api/games/"+token+"/call", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	n := body["number"].(float64)
	assert.True(t, n >= 1 && n <= domain.MaxNumber)

	w, body = f.do(t, http.MethodGet, "/api/games/"+token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "NewChannel", body["owner"])
	assert.Len(t, body["called"], 1)

	w, _ = f.do(t, http.MethodPost, "/api/games", `{"twitchId":77,"channel":"newchannel","mode":"Zigzag"}`, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHostActions(t *testing.T) {
	f := newAPIFixture(t)
	base := "/api/games/" + f.game.Token

	w, _ := f.do(t, http.MethodPost, "/api/games/not-a-token/call", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := f.do(t, http.MethodPost, base+"/call", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	n := body["number"].(float64)
	assert.True(t, n >= 1 && n <= domain.MaxNumber)

	w, body = f.do(t, http.MethodPost, base+"/call", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(domain.KindConflict), body["kind"])

	w, _ = f.do(t, http.MethodPut, base+"/settings", `{"autoCall":-1}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = f.do(t, http.MethodPut, base+"/settings", `{"autoCall":0,"tts":true,"background":"#000"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["settings"].(map[string]any)["tts"])

	w, body = f.do(t, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "somechannel", body["name"])
	assert.EqualValues(t, 0, body["players"])
	assert.Equal(t, "http://localhost:8080/play", body["playUrl"])
	assert.NotContains(t, body, "token")

	w, body = f.do(t, http.MethodPost, base+"/end", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ended"])

	w, _ = f.do(t, http.MethodPost, base+"/reset", `{"mode":"Zigzag"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = f.do(t, http.MethodPost, base+"/reset", `{"mode":"Blackout"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Blackout", body["mode"])
	assert.Equal(t, false, body["ended"])
	assert.Equal(t, true, body["settings"].(map[string]any)["tts"])

	// the old token died with the superseded game
	w, _ = f.do(t, http.MethodPost, base+"/call", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlayerActions(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()
	res, err := f.svc.JoinGame(ctx, 99, "viewer", "somechannel")
	require.NoError(t, err)
	u, err := f.svc.UserByTwitchID(ctx, 99)
	require.NoError(t, err)
	base := "/api/players/" + u.Token

	w, _ := f.do(t, http.MethodGet, "/api/players/nobody/cards", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := f.do(t, http.MethodGet, base+"/cards", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["cards"], 1)

	cellPath := func(cell string) string {
		return base + "/cards/" + strconv.FormatInt(int64(res.GameID), 10) + "/cells/" + cell
	}

	w, body = f.do(t, http.MethodPost, cellPath("0"), `{"marked":true}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["marked"])

	w, body = f.do(t, http.MethodPost, cellPath("12"), `{"marked":false}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["marked"])

	w, _ = f.do(t, http.MethodPost, cellPath("25"), `{"marked":true}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, cellPath("x"), `{"marked":true}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, base+"/cards/4242/cells/0", `{"marked":true}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRooms(t *testing.T) {
	f := newAPIFixture(t)
	w, body := f.do(t, http.MethodGet, "/api/rooms", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "rooms")
}
