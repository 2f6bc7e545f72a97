package http

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dkeye/StreamBingo/internal/core"
	"github.com/dkeye/StreamBingo/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type handlers struct {
	deps Deps
	// serviceSecret guards the routes a trusted backend calls. Empty
	// rejects every request.
	serviceSecret string
}

// statusOf maps an error kind to the response status.
func statusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindExhausted:
		return http.StatusGone
	case domain.KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	status := statusOf(err)
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Int("status", status).Msg("request failed")
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "kind": string(domain.KindOf(err))})
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) requireSecret(c *gin.Context) {
	got := c.GetHeader("Authorization")
	if h.serviceSecret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.serviceSecret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad secret"})
		return
	}
	c.Next()
}

// notify accepts state changes from an engine running elsewhere.
func (h *handlers) notify(c *gin.Context) {
	var n core.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.deps.Gateway.Handle(c.Request.Context(), n); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.deps.Hub.List()})
}

type openGameRequest struct {
	TwitchID int64  `json:"twitchId"`
	HostName string `json:"hostName"`
	Channel  string `json:"channel"`
	Mode     string `json:"mode"`
}

// openGame loads or starts the channel's game and hands out its host token.
func (h *handlers) openGame(c *gin.Context) {
	var req openGameRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TwitchID == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	var mode domain.Mode
	if req.Mode != "" {
		m, err := domain.ParseMode(req.Mode)
		if err != nil {
			fail(c, err)
			return
		}
		mode = m
	}
	g, host, err := h.deps.Games.OpenGame(c.Request.Context(), req.TwitchID, req.HostName, req.Channel, mode)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": g.Token, "game": g, "host": host})
}

// requireGame resolves :token to a game for the host routes.
func (h *handlers) requireGame(c *gin.Context) {
	g, err := h.deps.Games.GameByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = fmt.Errorf("unknown token: %w", domain.ErrUnauthorized)
		}
		fail(c, err)
		return
	}
	c.Set("game", g)
	c.Next()
}

func gameOf(c *gin.Context) *domain.Game {
	return c.MustGet("game").(*domain.Game)
}

type gameView struct {
	*domain.Game
	Owner   string `json:"owner,omitempty"`
	Players int    `json:"players"`
	PlayURL string `json:"playUrl"`
}

func (h *handlers) getGame(c *gin.Context) {
	g := gameOf(c)
	players, err := h.deps.Games.CardCount(c.Request.Context(), g.ID)
	if err != nil {
		fail(c, err)
		return
	}
	view := gameView{Game: g, Players: players, PlayURL: h.deps.Games.PlayURL()}
	if owner, err := h.deps.Games.UserByID(c.Request.Context(), g.OwnerID); err == nil {
		view.Owner = owner.Name
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) callNumber(c *gin.Context) {
	n, err := h.deps.Games.CallNumber(c.Request.Context(), gameOf(c).Name)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"number": n})
}

func (h *handlers) resetGame(c *gin.Context) {
	var req struct {
		Mode string `json:"mode"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	var mode domain.Mode
	if req.Mode != "" {
		m, err := domain.ParseMode(req.Mode)
		if err != nil {
			fail(c, err)
			return
		}
		mode = m
	}
	g, err := h.deps.Games.ResetGame(c.Request.Context(), c.Param("token"), mode)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *handlers) endGame(c *gin.Context) {
	g, err := h.deps.Games.EndGame(c.Request.Context(), gameOf(c).Name, nil, nil)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *handlers) updateSettings(c *gin.Context) {
	var s domain.Settings
	if err := c.ShouldBindJSON(&s); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	g, err := h.deps.Games.UpdateSettings(c.Request.Context(), gameOf(c).Name, s)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": g.Settings})
}

// requirePlayer resolves :token to a user for the player routes.
func (h *handlers) requirePlayer(c *gin.Context) {
	u, err := h.deps.Games.UserByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = fmt.Errorf("unknown token: %w", domain.ErrUnauthorized)
		}
		fail(c, err)
		return
	}
	c.Set("user", u)
	c.Next()
}

func userOf(c *gin.Context) *domain.User {
	return c.MustGet("user").(*domain.User)
}

func (h *handlers) playerCards(c *gin.Context) {
	u := userOf(c)
	cards, err := h.deps.Games.UserCards(c.Request.Context(), u.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "cards": cards})
}

func (h *handlers) markCell(c *gin.Context) {
	gameID, err := strconv.ParseInt(c.Param("gameId"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
		return
	}
	cell, err := strconv.Atoi(c.Param("cell"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid cell"})
		return
	}
	var req struct {
		Marked bool `json:"marked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	marked, err := h.deps.Games.MarkCell(c.Request.Context(), userOf(c).ID, domain.GameID(gameID), cell, req.Marked)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cell": cell, "marked": marked})
}
