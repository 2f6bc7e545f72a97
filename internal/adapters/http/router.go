package http

import (
	"context"
	"time"

	"github.com/dkeye/StreamBingo/internal/adapters/signal"
	"github.com/dkeye/StreamBingo/internal/app"
	"github.com/dkeye/StreamBingo/internal/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Deps are the services the router exposes.
type Deps struct {
	Hub     *app.Hub
	Games   *app.GameService
	Gateway *app.Gateway
	Signal  *signal.SignalWSController
}

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware keeps a per-browser client token in the cookie
// session. Socket ids are derived from it.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get("client_token").(string)
		if token == "" {
			token = genClientToken()
			session.Set("client_token", token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	if len(cfg.CORS.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("BingoSessions", store))
	r.Use(ClientTokenMiddleware())

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &handlers{deps: deps, serviceSecret: cfg.NotifySecret}
	if cfg.NotifySecret == "" {
		log.Warn().Str("module", "adapters.http").Msg("notify_secret is empty, /notify and game creation are disabled")
	}

	r.GET("/health", h.health)
	r.POST("/notify", h.requireSecret, h.notify)
	r.GET("/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws endpoint hit")
		deps.Signal.HandleSignal(ctx, c)
	})

	api := r.Group("/api")
	api.GET("/rooms", h.listRooms)
	api.POST("/games", h.requireSecret, h.openGame)

	host := api.Group("/games/:token", h.requireGame)
	host.GET("", h.getGame)
	host.POST("/call", h.callNumber)
	host.POST("/reset", h.resetGame)
	host.POST("/end", h.endGame)
	host.PUT("/settings", h.updateSettings)

	player := api.Group("/players/:token", h.requirePlayer)
	player.GET("/cards", h.playerCards)
	player.POST("/cards/:gameId/cells/:cell", h.markCell)

	return r
}
