package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"satellite-catalog/api"
	"satellite-catalog/api/middleware"
	"satellite-catalog/pkg/metrics"
	embeddednats "satellite-catalog/pkg/services/embedded-nats"
	"satellite-catalog/pkg/services/workers"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const defaultDevToken = "catalog-dev-token"

type serveOptions struct {
	addr     string
	natsPort int
	natsDir  string
	token    string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the embedded NATS ingest pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().IntVar(&opts.natsPort, "nats-port", 4222, "embedded NATS client port")
	cmd.Flags().StringVar(&opts.natsDir, "nats-dir", "", "JetStream storage directory (default <DOWNLOAD_DIR>/nats)")
	cmd.Flags().StringVar(&opts.token, "token", "", "API bearer token (default API_BEARER_TOKEN)")
	return cmd
}

func runServe(parent context.Context, root *rootOptions, opts *serveOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	log := newLogger(root.verbose)
	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	cat, s, err := root.openCatalog(log)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	natsCfg := embeddednats.DefaultConfig()
	natsCfg.Port = opts.natsPort
	natsCfg.DataDir = opts.natsDir
	if natsCfg.DataDir == "" {
		natsCfg.DataDir = filepath.Join(s.BaseDir, "nats")
	}
	natsCfg.Logger = log
	bus, err := embeddednats.New(natsCfg)
	if err != nil {
		return fmt.Errorf("failed to create embedded NATS: %w", err)
	}
	if err := bus.Start(); err != nil {
		return fmt.Errorf("failed to start embedded NATS: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := bus.Shutdown(shutdownCtx); err != nil {
			log.Warn("failed to shutdown NATS", "error", err)
		}
	}()
	if err := bus.CreateCatalogStreams(); err != nil {
		return fmt.Errorf("failed to create catalog streams: %w", err)
	}

	workerManager, err := workers.NewManager(bus, cat, log)
	if err != nil {
		return fmt.Errorf("failed to create worker manager: %w", err)
	}
	if err := workerManager.Start(); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	defer func() {
		if err := workerManager.Stop(); err != nil {
			log.Warn("failed to stop workers", "error", err)
		}
	}()

	token := opts.token
	if token == "" {
		token = os.Getenv("API_BEARER_TOKEN")
	}
	if token == "" {
		token = defaultDevToken
		log.Warn("API_BEARER_TOKEN not set, using development token")
	}

	mux := http.NewServeMux()
	api.NewHandlers(cat, bus, token, log).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         opts.addr,
		Handler:      middleware.CORS(middleware.RequestLogger(log, mux)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting catalog API server", "address", opts.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down server")
	case runErr = <-serveErr:
		if runErr != nil {
			runErr = fmt.Errorf("server failed: %w", runErr)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("failed to shutdown server gracefully", "error", err)
	}

	// Workers stop before NATS through the deferred calls above.
	log.Info("http server stopped")
	return runErr
}
