// Package app assembles the container, the framework providers and the HTTP
// server into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/km-arc/go-container/framework/config"
	"github.com/km-arc/go-container/framework/container"
	"github.com/km-arc/go-container/framework/logging"
	"github.com/km-arc/go-container/framework/metrics"
	"github.com/km-arc/go-container/framework/providers"
	"github.com/km-arc/go-container/framework/routing"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
const ShutdownTimeout = 10 * time.Second

// Application is the top-level application container.
// It embeds the Container and ProviderRegistry so user code can call
// container.Register(app.Container, ...) and app.Register(provider) directly.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	config *config.Config
	logger zerolog.Logger
}

// New loads configuration from envFiles (".env" when none are given),
// builds the logger and metrics collector, and registers the framework
// providers.
func New(envFiles ...string) (*Application, error) {
	cfg := config.Load(envFiles...)
	logger := logging.New(cfg.Log, os.Stderr).With().Str("app", cfg.App.Name).Logger()

	opts := []container.Option{container.WithLogger(logger)}
	var collector *metrics.Collector
	if cfg.Container.Metrics {
		collector = metrics.NewCollector()
		opts = append(opts, container.WithObserver(collector))
	}

	c := container.New(opts...)
	app := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c),
		config:    cfg,
		logger:    c.Logger(),
	}

	core := []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LoggingServiceProvider{Logger: logger},
		&providers.RoutingServiceProvider{},
	}
	if collector != nil {
		core = append(core, &providers.MetricsServiceProvider{Collector: collector})
	}
	if cfg.Container.Inspector {
		core = append(core, &providers.InspectorServiceProvider{})
	}
	for _, p := range core {
		if err := app.Register(p); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot validates the dependency graph (unless CONTAINER_VALIDATE=false)
// and runs the Boot phase of every provider.
func (a *Application) Boot() error {
	if a.Providers.Booted() {
		return nil
	}
	if a.config.Container.Validate {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("validate container: %w", err)
		}
	}
	if err := a.Providers.Boot(); err != nil {
		return fmt.Errorf("boot providers: %w", err)
	}
	a.logger.Info().
		Int("bindings", len(a.Bindings())).
		Int("providers", len(a.Providers.Providers())).
		Msg("application booted")
	return nil
}

// Config returns the loaded configuration.
func (a *Application) Config() *config.Config { return a.config }

// Log returns the application logger.
func (a *Application) Log() zerolog.Logger { return a.logger }

// Router resolves the HTTP router.
func (a *Application) Router() *routing.Router {
	return container.MustResolve[*routing.Router](a.Container)
}

// Run boots the application if needed and serves HTTP on APP_PORT until
// ctx is cancelled, then shuts the server down gracefully.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Boot(); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.config.Addr(),
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info().
			Str("addr", srv.Addr).
			Str("env", a.config.App.Env).
			Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		a.logger.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Environment returns the APP_ENV value.
func (a *Application) Environment() string { return a.config.App.Env }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
