package app

import (
	"context"
	"flag"
	"fmt"
	"net/http"

	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/flagext"
	"github.com/grafana/dskit/middleware"
	"github.com/grafana/dskit/server"
	"github.com/grafana/dskit/services"
	"github.com/grafana/dskit/signals"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"gopkg.in/yaml.v2"

	"github.com/atropos-rl/coordinator/modules/coordinator"
	"github.com/atropos-rl/coordinator/pkg/util"
	"github.com/atropos-rl/coordinator/pkg/util/log"
)

const (
	metricsNamespace = "atropos"

	// DefaultHTTPPort is where the coordinator listens unless overridden by
	// flag, config file or the ATROPOS_PORT environment variable.
	DefaultHTTPPort = 8000
)

// Config is the root config for the coordinator process.
type Config struct {
	Server      server.Config      `yaml:"server,omitempty"`
	Coordinator coordinator.Config `yaml:"coordinator,omitempty"`
}

// RegisterFlagsAndApplyDefaults registers flags.
func (c *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	// Server settings
	flagext.DefaultValues(&c.Server)
	c.Server.MetricsNamespace = metricsNamespace
	c.Server.HTTPListenPort = DefaultHTTPPort
	c.Server.LogLevel.RegisterFlags(f)

	f.IntVar(&c.Server.HTTPListenPort, "server.http-listen-port", DefaultHTTPPort, "HTTP server listen port.")

	c.Coordinator.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "coordinator"), f)
}

// App is the root datastructure: the HTTP server plus the coordinator module.
type App struct {
	cfg Config

	Server      *server.Server
	coordinator *coordinator.Coordinator
}

// New makes a new app.
func New(cfg Config) (*App, error) {
	c, err := coordinator.New(cfg.Coordinator, log.Logger, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinator %w", err)
	}

	return &App{
		cfg:         cfg,
		coordinator: c,
	}, nil
}

// Run starts, and blocks until a signal is received.
func (t *App) Run() error {
	// The coordinator is typically fronted and polled from anywhere, so all
	// origins are allowed.
	t.cfg.Server.HTTPMiddleware = append(t.cfg.Server.HTTPMiddleware, middleware.Func(cors.AllowAll().Handler))
	t.cfg.Server.Log = log.Logger

	srv, err := server.New(t.cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to create server %w", err)
	}
	t.Server = srv
	defer srv.Shutdown()

	sm, err := services.NewManager(t.coordinator)
	if err != nil {
		return fmt.Errorf("failed to create service manager %w", err)
	}

	t.coordinator.RegisterRoutes(srv.HTTP)
	srv.HTTP.Path("/config").Handler(t.configHandler())
	srv.HTTP.Path("/ready").Handler(t.readyHandler(sm))

	healthy := func() { level.Info(log.Logger).Log("msg", "coordinator started") }
	stopped := func() { level.Info(log.Logger).Log("msg", "coordinator stopped") }
	serviceFailed := func(service services.Service) {
		sm.StopAsync()
		level.Error(log.Logger).Log("msg", "service failed", "err", service.FailureCase())
	}
	sm.AddListener(services.NewManagerListener(healthy, stopped, serviceFailed))

	// On signal, stop the services, which unblocks Run below via Shutdown.
	handler := signals.NewHandler(log.Logger)
	go func() {
		handler.Loop()
		sm.StopAsync()
		srv.Shutdown()
	}()

	if err := services.StartManagerAndAwaitHealthy(context.Background(), sm); err != nil {
		return fmt.Errorf("failed to start services %w", err)
	}
	defer func() {
		_ = services.StopManagerAndAwaitStopped(context.Background(), sm)
	}()

	level.Info(log.Logger).Log("msg", "serving", "http_port", t.cfg.Server.HTTPListenPort)
	return srv.Run()
}

func (t *App) configHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		out, err := yaml.Marshal(t.cfg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/yaml")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(out); err != nil {
			level.Error(log.Logger).Log("msg", "error writing response", "err", err)
		}
	}
}

func (t *App) readyHandler(sm *services.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if !sm.IsHealthy() {
			http.Error(w, "Some services are not Running", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "ready", http.StatusOK)
	}
}
