package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/StreamBingo/internal/adapters/http"
	"github.com/dkeye/StreamBingo/internal/adapters/notify"
	wssignal "github.com/dkeye/StreamBingo/internal/adapters/signal"
	"github.com/dkeye/StreamBingo/internal/adapters/storage/memory"
	"github.com/dkeye/StreamBingo/internal/adapters/storage/postgres"
	"github.com/dkeye/StreamBingo/internal/adapters/twitch"
	"github.com/dkeye/StreamBingo/internal/app"
	"github.com/dkeye/StreamBingo/internal/app/chat"
	"github.com/dkeye/StreamBingo/internal/config"
	"github.com/dkeye/StreamBingo/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}

func setupLogger(cfg *config.Config) {
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func openStore(cfg *config.Config) (core.Store, func(), error) {
	if cfg.Storage.Driver == "postgres" {
		s, err := postgres.Open(cfg.Storage.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	}
	log.Warn().Msg("using in-memory storage, state is lost on restart")
	return memory.New(), func() {}, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	g, ctx := errgroup.WithContext(ctx)

	hub := app.NewHub(app.NewRoomManager(), app.SimplePolicy{}, nil)
	pilot := app.NewAutopilot(ctx, hub, time.Second)
	gateway := app.NewGateway(hub, pilot)

	var notifier core.Notifier = gateway
	if cfg.Notifier.Mode == "http" {
		notifier = notify.NewHTTPNotifier(cfg.Notifier.URL, cfg.NotifySecret, cfg.Notifier.Timeout)
	}
	games := app.NewGameService(store, notifier, core.NewCardEngine(), core.NewSessionEngine(), cfg.BaseURL)
	pilot.SetGames(games)

	g.Go(func() error { return hub.Run(ctx) })

	if cfg.Chat.Enabled {
		irc := twitch.New(cfg.Chat.Username, cfg.Chat.Password)
		bridge := chat.NewBridge(games, irc, hub, chat.Options{
			JoinKeywords:  cfg.Chat.JoinKeywords,
			ClaimKeywords: cfg.Chat.ClaimKeywords,
			Cooldown:      cfg.Chat.Cooldown,
		})
		hub.Upstream = bridge
		g.Go(func() error { return bridge.Run(ctx) })
		g.Go(func() error {
			err := irc.Run(ctx, func(ctx context.Context, m chat.Message) {
				bridge.HandleMessage(ctx, m)
			})
			if err != nil {
				log.Error().Err(err).Str("module", "twitch").Msg("chat connection lost, relay keeps running")
			}
			return nil
		})
	}

	ws := wssignal.NewSignalWSController(hub, games, pilot, wssignal.Options{
		ReadLimit:    cfg.ReadLimit,
		PingPeriod:   cfg.PingPeriod,
		WriteTimeout: cfg.WriteTimeout,
		SendBuffer:   cfg.SendBuffer,
	})
	r := router.SetupRouter(ctx, cfg, router.Deps{
		Hub:     hub,
		Games:   games,
		Gateway: gateway,
		Signal:  ws,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("StreamBingo server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		pilot.Timers().Wait()
		return nil
	})

	return g.Wait()
}
