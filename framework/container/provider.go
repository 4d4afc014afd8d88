package container

import (
	"fmt"
	"slices"
	"sync"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups the registrations of one part of an application.
//
// Register is called when the provider is added (or, for deferred
// providers, when one of its keys is first resolved). Boot is called after
// all eager providers are registered, so it may resolve anything.
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(c *container.Container) error {
//	    return container.RegisterSingleton[Logger](c, NewConsoleLogger)
//	}
//
//	func (p *AppServiceProvider) Boot(c *container.Container) error {
//	    logger, err := container.Resolve[Logger](c)
//	    if err != nil {
//	        return err
//	    }
//	    logger.Log("application booted")
//	    return nil
//	}
type ServiceProvider interface {
	// Register binds services into the container.
	// Do NOT resolve other bindings here; use Boot for that.
	Register(c *Container) error

	// Boot is called after all providers are registered.
	Boot(c *Container) error

	// Provides returns the keys this provider registers. Only consulted for
	// deferred providers.
	Provides() []Key

	// IsDeferred returns true if this provider should be registered lazily,
	// when one of its Provides keys is first resolved.
	IsDeferred() bool
}

// TaggingProvider is implemented by deferred providers whose services
// belong to tags. The tags are applied when the provider is added, so the
// group is visible (and resolving it loads the provider) before first use.
type TaggingProvider interface {
	ProvidesTags() map[string][]Key
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with no-op Boot, Provides and
// IsDeferred. Embed it and implement Register.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []Key         { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred ones. Providers are compared by identity, so use
// pointer receivers.
type ProviderRegistry struct {
	app *Container

	mu       sync.Mutex
	eager    []ServiceProvider
	deferred map[ServiceProvider]*deferredProvider
	seen     map[ServiceProvider]bool
	booted   bool
}

type deferredProvider struct {
	provider ServiceProvider
	once     sync.Once
	err      error
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:      app,
		deferred: make(map[ServiceProvider]*deferredProvider),
		seen:     make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register method, unless it is
// deferred. Adding the same provider twice is a no-op. A provider added
// after Boot is booted immediately.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	r.mu.Lock()
	if r.seen[provider] {
		r.mu.Unlock()
		return nil
	}
	r.seen[provider] = true

	if provider.IsDeferred() {
		d := &deferredProvider{provider: provider}
		r.deferred[provider] = d
		r.mu.Unlock()
		r.interceptDeferred(d)
		return nil
	}
	r.mu.Unlock()

	if err := provider.Register(r.app); err != nil {
		return fmt.Errorf("register provider %T: %w", provider, err)
	}
	r.app.logger.Debug().Str("provider", fmt.Sprintf("%T", provider)).Msg("provider registered")

	r.mu.Lock()
	r.eager = append(r.eager, provider)
	booted := r.booted
	r.mu.Unlock()

	if booted {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("boot provider %T: %w", provider, err)
		}
	}
	return nil
}

// interceptDeferred binds a placeholder for each deferred key. The first
// resolution of any of them registers (and, if the registry is booted,
// boots) the provider; resolution then continues with the real binding.
func (r *ProviderRegistry) interceptDeferred(d *deferredProvider) {
	if tp, ok := d.provider.(TaggingProvider); ok {
		tags := tp.ProvidesTags()
		for _, tag := range sortedTagNames(tags) {
			r.app.Tag(tag, tags[tag]...)
		}
	}
	for _, key := range d.provider.Provides() {
		r.app.register(key, &binding{
			kind:     KindFactory,
			lifetime: Transient,
			factory: func(Resolver) (any, error) {
				return nil, &UnregisteredServiceError{Key: key}
			},
			load: func() error { return r.load(d) },
		})
	}
}

func (r *ProviderRegistry) load(d *deferredProvider) error {
	d.once.Do(func() {
		if err := d.provider.Register(r.app); err != nil {
			d.err = fmt.Errorf("register deferred provider %T: %w", d.provider, err)
			return
		}
		r.app.logger.Debug().Str("provider", fmt.Sprintf("%T", d.provider)).Msg("deferred provider registered")

		r.mu.Lock()
		booted := r.booted
		r.mu.Unlock()
		if booted {
			if err := d.provider.Boot(r.app); err != nil {
				d.err = fmt.Errorf("boot deferred provider %T: %w", d.provider, err)
			}
		}
	})
	return d.err
}

// Boot calls Boot on all eager providers, in registration order, stopping
// at the first error. Only the first call has any effect.
func (r *ProviderRegistry) Boot() error {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return nil
	}
	r.booted = true
	providers := slices.Clone(r.eager)
	r.mu.Unlock()

	for _, provider := range providers {
		if err := provider.Boot(r.app); err != nil {
			return fmt.Errorf("boot provider %T: %w", provider, err)
		}
	}
	r.app.logger.Debug().Int("providers", len(providers)).Msg("providers booted")
	return nil
}

// Booted returns true if Boot has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.eager)
}

func sortedTagNames(tags map[string][]Key) []string {
	names := make([]string, 0, len(tags))
	for tag := range tags {
		names = append(names, tag)
	}
	slices.Sort(names)
	return names
}
