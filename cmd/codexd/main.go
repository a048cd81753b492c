package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/livingcodex/codex/internal/codex/config"
	"github.com/livingcodex/codex/internal/codex/logger"
	"github.com/livingcodex/codex/internal/codex/telemetry"
	"github.com/livingcodex/codex/internal/server/api"
	"github.com/livingcodex/codex/internal/server/persist"
	"github.com/livingcodex/codex/pkg/codex"
)

// saver snapshots the store and hands it to the persistence backend.
type saver struct {
	codex   *codex.Codex
	backend persist.Backend
	timeout time.Duration
	log     zerolog.Logger
}

func (s *saver) SaveNow(r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	return s.save(ctx)
}

func (s *saver) save(ctx context.Context) error {
	snap := s.codex.Snapshot()
	if err := s.backend.Save(ctx, snap); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	s.log.Info().Int("nodes", len(snap.Nodes)).Msg("snapshot saved")
	return nil
}

func main() {
	configPath := flag.String("config", "", "Config file path")
	addr := flag.String("addr", "", "HTTP service address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, JSONOutput: cfg.Log.JSON})

	storeLog := logger.WithComponent(log, "store")
	cx := codex.New(codex.Options{
		IndexKeys:        cfg.Index.Keys,
		MaxAncestorDepth: cfg.Traversal.MaxAncestorDepth,
		Logger:           &storeLog,
	})

	ctx := context.Background()
	backend, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("opening persistence backend")
	}

	var sv api.Saver
	if backend != nil {
		defer backend.Close(ctx)

		loadCtx, cancel := context.WithTimeout(ctx, cfg.Persist.Timeout)
		snap, err := backend.Load(loadCtx)
		cancel()
		switch {
		case errors.Is(err, persist.ErrNoSnapshot):
			log.Info().Msg("no stored snapshot, starting empty")
		case err != nil:
			log.Fatal().Err(err).Msg("loading snapshot")
		default:
			if err := cx.Restore(snap); err != nil {
				log.Fatal().Err(err).Msg("restoring snapshot")
			}
			log.Info().Int("nodes", len(snap.Nodes)).Msg("snapshot restored")
		}

		sv = &saver{
			codex:   cx,
			backend: backend,
			timeout: cfg.Persist.Timeout,
			log:     logger.WithComponent(log, "persist"),
		}
	}

	telemetry.Publish(cx.MetricsSnapshot())

	server := api.New(cx, sv, logger.WithComponent(log, "api"))

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("starting codexd")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	if backend != nil {
		saveCtx, cancel := context.WithTimeout(ctx, cfg.Persist.Timeout)
		defer cancel()
		snap := cx.Snapshot()
		if err := backend.Save(saveCtx, snap); err != nil {
			log.Error().Err(err).Msg("saving snapshot on shutdown")
		} else {
			log.Info().Int("nodes", len(snap.Nodes)).Msg("snapshot saved")
		}
	}

	log.Info().Msg("codexd exited")
}

// openBackend builds the configured persistence backend, wrapped in the
// retry policy. A "none" backend returns nil.
func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (persist.Backend, error) {
	switch cfg.Persist.Backend {
	case "", "none":
		return nil, nil
	case "bolt":
		b, err := persist.NewBoltBackend(cfg.Persist.Path)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.Persist.Path).Msg("using bolt backend")
		return persist.WithRetry(b, cfg.Persist.RetryAttempts, cfg.Persist.RetryDelay), nil
	case "neo4j":
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Persist.Timeout)
		defer cancel()
		b, err := persist.NewNeo4jBackend(connectCtx, persist.Neo4jConfig{
			URI:      cfg.Persist.URI,
			Username: cfg.Persist.Username,
			Password: cfg.Persist.Password,
			Database: cfg.Persist.Database,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("uri", cfg.Persist.URI).Msg("using neo4j backend")
		return persist.WithRetry(b, cfg.Persist.RetryAttempts, cfg.Persist.RetryDelay), nil
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", cfg.Persist.Backend)
	}
}
