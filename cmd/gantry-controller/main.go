package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/gantryhq/gantry/pkg/auth"
	"github.com/gantryhq/gantry/pkg/config"
	"github.com/gantryhq/gantry/pkg/controller"
	"github.com/gantryhq/gantry/pkg/driver"
	_ "github.com/gantryhq/gantry/pkg/driver/fake"
	"github.com/gantryhq/gantry/pkg/driver/pterodactyl"
	"github.com/gantryhq/gantry/pkg/notify"
	"github.com/gantryhq/gantry/pkg/rpc"
	"github.com/gantryhq/gantry/pkg/store"
	"github.com/gantryhq/gantry/pkg/version"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting gantry controller",
		slog.String("version", version.Version),
		slog.String("addr", cfg.Listener),
		slog.Any("drivers", driver.Drivers()),
	)

	st, err := store.Open(cfg.Store.Type, cfg.Store.Path, logger)
	if err != nil {
		logger.Error("failed to open store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	notifier, err := notify.Open(cfg.Events.Notify(), logger)
	if err != nil {
		logger.Error("failed to set up events", slog.String("error", err.Error()))
		st.Close()
		os.Exit(1)
	}

	metrics := controller.NewMetrics()
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		metrics,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promRegistry.MustRegister(pterodactyl.Collectors()...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := controller.NewRegistry(notifier, logger, controller.WithRegistryMetrics(metrics))
	if err := registry.BringAll(ctx, cfg.Nodes); err != nil {
		logger.Warn("some nodes were refused", slog.String("error", err.Error()))
	}
	logger.Info("nodes online",
		slog.Int("online", registry.Len()),
		slog.Int("configured", len(cfg.Nodes)),
	)

	provisioner := controller.NewProvisioner(registry, st, logger,
		controller.WithPolicy(cfg.Provisioning.Policy()),
		controller.WithMetrics(metrics),
		controller.WithNotifier(notifier),
	)

	var serviceOpts []controller.ServiceOption
	if len(cfg.Auth.Users) == 0 {
		logger.Warn("no users configured, authentication disabled")
		serviceOpts = append(serviceOpts, controller.WithAnonymous(auth.NewAdminUser("anonymous")))
	}
	svc := controller.NewService(registry, provisioner, st, logger, serviceOpts...)

	mux := newMux(svc, st, promRegistry, logger)

	var httpHandler http.Handler = mux
	if len(cfg.Auth.Users) > 0 {
		authenticator := auth.NewChainAuthenticator(auth.NewTokenAuthenticator(cfg.Auth.Tokens()))
		logger.Info("authentication enabled",
			slog.Any("methods", authenticator.Methods()),
			slog.Int("users", len(cfg.Auth.Users)),
		)
		middleware := auth.NewMiddleware(authenticator,
			auth.WithExcludedPaths("/healthz", "/readyz", "/metrics"),
			auth.WithLogger(logger),
		)
		httpHandler = middleware.Wrap(mux)
	}

	httpServer := &http.Server{
		Addr:              cfg.Listener,
		Handler:           h2c.NewHandler(httpHandler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			serverErrChan <- err
		}
	}()
	logger.Info("controller ready", slog.String("addr", cfg.Listener))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrChan:
		logger.Error("server error triggered shutdown", slog.String("error", err.Error()))
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
	}
	if err := notifier.Close(); err != nil {
		logger.Error("error closing notifier", slog.String("error", err.Error()))
	}
	if err := st.Close(); err != nil {
		logger.Error("error closing store", slog.String("error", err.Error()))
	}

	logger.Info("controller stopped")
}

func newMux(svc rpc.ControllerServiceHandler, st store.Store, gatherer prometheus.Gatherer, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	path, handler := rpc.NewControllerServiceHandler(svc)
	mux.Handle(path, handler)
	mux.HandleFunc("/healthz", healthzHandler)
	mux.HandleFunc("/readyz", readyzHandler(st, logger))
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func readyzHandler(st store.Store, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := st.ListServers(r.Context(), ""); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("store not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
