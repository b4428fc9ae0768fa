// main.go
//
// Entry point for the Lemon Party game server.
// Startup order:
//   - load .env and the environment (internal/config),
//   - configure zerolog,
//   - open the configured store and load level/quiz data,
//   - wire ledger, leaderboard, flavor text and the session manager,
//   - serve HTTP until SIGINT/SIGTERM, then drain.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/lemonparty/internal/config"
	"github.com/robalobadob/lemonparty/internal/economy"
	"github.com/robalobadob/lemonparty/internal/flavor"
	"github.com/robalobadob/lemonparty/internal/game"
	"github.com/robalobadob/lemonparty/internal/httpserver"
	"github.com/robalobadob/lemonparty/internal/leaderboard"
	"github.com/robalobadob/lemonparty/internal/level"
	"github.com/robalobadob/lemonparty/internal/quiz"
	"github.com/robalobadob/lemonparty/internal/store"
)

func main() {
	if err := config.LoadDotEnv(""); err != nil {
		log.Warn().Err(err).Msg("read .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("open store")
	}
	defer backend.Close()

	catalog, err := level.Load(cfg.LevelsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load levels")
	}
	bank, err := quiz.Load(cfg.QuizFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load quiz bank")
	}

	var (
		provider flavor.Provider = flavor.Static{}
		remote   quiz.Source
	)
	if cfg.FlavorURL != "" {
		provider = flavor.NewHTTPProvider(cfg.FlavorURL, cfg.FlavorTimeout)
		remote = quiz.NewHTTPSource(cfg.FlavorURL, cfg.FlavorTimeout)
	}

	ledger := economy.NewLedger(backend, economy.Options{})
	board := leaderboard.New(backend, nil)
	games := game.NewManager(game.Deps{
		Catalog: catalog,
		Ledger:  ledger,
		Board:   board,
		Teller:  flavor.NewTeller(provider, cfg.FlavorTimeout),
		TTL:     cfg.SessionTTL,
	})
	go games.Run(ctx)

	srv := httpserver.New(httpserver.Deps{
		Config:  cfg,
		Backend: backend,
		Catalog: catalog,
		Ledger:  ledger,
		Board:   board,
		Games:   games,
		Quiz:    quiz.NewService(bank, remote, cfg.DailySalt),
	})

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().
		Str("addr", cfg.Addr()).
		Str("store", cfg.StoreDriver).
		Int("levels", catalog.Len()).
		Msg("starting lemonparty server")
	if err := srv.Start(cfg.Addr()); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	games.CloseAll()
	log.Info().Msg("server stopped")
}

func setupLogging(cfg config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return store.OpenPostgres(ctx, cfg.DatabaseURL)
	case config.DriverMemory:
		return store.NewMemory(), nil
	default:
		return store.OpenSQLite(cfg.SQLitePath)
	}
}
