// Package providers binds the framework's own services into a container.
package providers

import (
	"github.com/rs/zerolog"

	"github.com/km-arc/go-container/framework/config"
	"github.com/km-arc/go-container/framework/container"
	gohttp "github.com/km-arc/go-container/framework/http"
	"github.com/km-arc/go-container/framework/metrics"
	"github.com/km-arc/go-container/framework/routing"
)

// ConfigServiceProvider binds the loaded configuration.
//
// Bound services:
//   - *config.Config
//   - config.AppConfig
//   - config.MailConfig
type ConfigServiceProvider struct {
	container.BaseProvider
	Config *config.Config
}

func (p *ConfigServiceProvider) Register(c *container.Container) error {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Load()
	}
	if err := container.RegisterInstance(c, cfg); err != nil {
		return err
	}
	if err := container.RegisterInstance(c, cfg.App); err != nil {
		return err
	}
	return container.RegisterInstance(c, cfg.Mail)
}

// LoggingServiceProvider binds the application logger.
//
// Bound services:
//   - zerolog.Logger
type LoggingServiceProvider struct {
	container.BaseProvider
	Logger zerolog.Logger
}

func (p *LoggingServiceProvider) Register(c *container.Container) error {
	return container.RegisterInstance(c, p.Logger)
}

// RoutingServiceProvider registers the HTTP router.
//
// Bound services:
//   - *routing.Router
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(c *container.Container) error {
	return container.RegisterSingleton[*routing.Router](c, routing.New)
}

// MetricsServiceProvider binds a metrics collector and serves it on /metrics.
// The collector must already be observing the container.
//
// Bound services:
//   - *metrics.Collector
type MetricsServiceProvider struct {
	container.BaseProvider
	Collector *metrics.Collector
}

func (p *MetricsServiceProvider) Register(c *container.Container) error {
	return container.RegisterInstance(c, p.Collector)
}

func (p *MetricsServiceProvider) Boot(c *container.Container) error {
	router, err := container.Resolve[*routing.Router](c)
	if err != nil {
		return err
	}
	collector, err := container.Resolve[*metrics.Collector](c)
	if err != nil {
		return err
	}
	router.Mount("/metrics", collector.Handler())
	return nil
}

// InspectorServiceProvider mounts the container inspector routes.
//
// Bound services:
//   - *gohttp.Inspector
type InspectorServiceProvider struct {
	container.BaseProvider
}

func (p *InspectorServiceProvider) Register(c *container.Container) error {
	return container.RegisterSingleton[*gohttp.Inspector](c, gohttp.NewInspector)
}

func (p *InspectorServiceProvider) Boot(c *container.Container) error {
	router, err := container.Resolve[*routing.Router](c)
	if err != nil {
		return err
	}
	inspector, err := container.Resolve[*gohttp.Inspector](c)
	if err != nil {
		return err
	}
	inspector.Routes(router)
	return nil
}
