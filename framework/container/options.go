package container

import (
	"time"

	"github.com/rs/zerolog"
)

// ── Container options ─────────────────────────────────────────────────────────

// ResolveEvent describes one key resolution, nested ones included.
type ResolveEvent struct {
	Key      Key
	Lifetime Lifetime
	// Depth is the number of services being built above this one.
	Depth int
	// Cached is true when a singleton was served without constructing it.
	Cached   bool
	Duration time.Duration
	Err      error
}

// Observer receives an event for every resolution the container performs.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveResolve(ev ResolveEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev ResolveEvent)

func (f ObserverFunc) ObserveResolve(ev ResolveEvent) { f(ev) }

type config struct {
	logger    zerolog.Logger
	observers []Observer
	id        string
}

// Option configures a Container at construction.
type Option func(*config)

// WithLogger sets the logger used for registration and resolution
// diagnostics. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}

// WithObserver adds an Observer notified after every resolution.
func WithObserver(o Observer) Option {
	return func(cfg *config) {
		if o != nil {
			cfg.observers = append(cfg.observers, o)
		}
	}
}

// WithID overrides the generated container id.
func WithID(id string) Option {
	return func(cfg *config) {
		if id != "" {
			cfg.id = id
		}
	}
}

// ── Registration options ──────────────────────────────────────────────────────

type registerOptions struct {
	name      string
	singleton bool
}

// RegisterOption configures a single registration.
type RegisterOption func(*registerOptions)

// WithName registers the service under a named key.
func WithName(name string) RegisterOption {
	return func(o *registerOptions) {
		o.name = name
	}
}

// AsSingleton caches the result of a factory after its first resolution.
// It has no effect on RegisterSingleton and RegisterInstance, which are
// always singletons.
func AsSingleton() RegisterOption {
	return func(o *registerOptions) {
		o.singleton = true
	}
}

func applyRegisterOptions(opts []RegisterOption) registerOptions {
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
