// relayd hosts the broadcast relay that joins calcvault contexts
// running in separate processes into one network, plus the admin API
// over an engine attached as a local endpoint.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/calcvault/core/internal/admin"
	"github.com/calcvault/core/internal/config"
	"github.com/calcvault/core/internal/engine"
	"github.com/calcvault/core/internal/store"
	"github.com/calcvault/core/internal/transport/relay"
	"github.com/calcvault/core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("loading config")
	}
	logger.Init(cfg.Env)

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening store")
	}
	defer st.Close()

	relayServer := relay.NewServer(rate.Limit(cfg.RelayRate), cfg.RelayBurst)
	go relayServer.Run()
	defer relayServer.Close()

	// The daemon's own engine rides the relay as a local endpoint;
	// it has no chat identity and exists to serve the admin surface.
	adminEngine, err := engine.New(st, relayServer.LocalEndpoint(), engine.Options{
		FilterSystemBroadcasts: cfg.FilterSystemBroadcasts,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("building engine")
	}
	defer adminEngine.Close()

	r := mux.NewRouter()
	r.Handle("/ws", relayServer)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	admin.NewHandler(adminEngine, cfg.AdminCode, cfg.JWTSecret).Routes(r)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("relayd listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("relayd exited")
	}
	logger.Info().Msg("relayd stopped")
}
