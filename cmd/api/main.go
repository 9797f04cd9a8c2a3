package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"interview-harvester/internal/config"
	"interview-harvester/internal/logger"
	"interview-harvester/internal/store"
)

const requestTimeout = 5 * time.Second

type server struct {
	store  store.StatusStore
	logger *zap.Logger
}

func newServer(store store.StatusStore, logger *zap.Logger) *server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &server{
		store:  store,
		logger: logger.With(zap.String("component", "api")),
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:           "api",
		Short:         "Serve crawl run status over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.New(), configFile)
			if err != nil {
				return err
			}
			log, closer, err := logger.New(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File})
			if err != nil {
				return err
			}
			defer closer.Close()
			defer func() { _ = log.Sync() }()
			return run(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "path to a YAML config file")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	redisOpts, err := cfg.Broker.RedisOptions()
	if err != nil {
		return err
	}
	statusStore := store.NewRedisStatusStore(redisOpts, store.DefaultStatusPrefix, cfg.Status.TTL)
	defer func() {
		if err := statusStore.Close(); err != nil {
			log.Warn("failed to close status store", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	httpServer := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           newServer(statusStore, log).routes(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("api listening", zap.String("addr", cfg.API.Addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

func (s *server) routes(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/runs/", s.handleRunStatus)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// handleRunStatus returns the status of a crawl run.
//
// Method: GET
// Path:   /runs/{runID}
// Example:
//
//	curl "http://localhost:8080/runs/5f0c8c1e-8f3e-4a51-9d7e-0d6a2a7c9b11"
func (s *server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/runs/"), "/")
	if runID == "" {
		http.Error(w, "missing run id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	status, ok, err := s.store.GetStatus(ctx, runID)
	if err != nil {
		s.logger.Error("status lookup failed", zap.String("run_id", runID), zap.Error(err))
		http.Error(w, "failed to load status", http.StatusBadGateway)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, status, http.StatusOK)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func writeJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
