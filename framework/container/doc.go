// Package container provides a service container and Service Provider
// system for Go.
//
// # Overview
//
// The container maps a service key (a Go type, usually an interface, plus
// an optional name) to a registration that knows how to produce it, and
// builds instances on demand, resolving their dependencies recursively.
// There is no global container: create one at the composition root and pass
// it, or a Resolver, to whoever needs to resolve.
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Register providers: registry.Register(&MyProvider{})
//  3. Validate: c.Validate()      // reports missing deps and cycles
//  4. Boot: registry.Boot()        // safe to resolve everything after this
//
// # Registrations
//
//	// Constructor, transient: a new instance on every resolution
//	container.Register[NotificationService](c, NewEmailNotificationService)
//
//	// Constructor, singleton: built once, on first resolution
//	container.RegisterSingleton[Logger](c, NewConsoleLogger)
//
//	// Factory; AsSingleton caches the result
//	container.RegisterFactory(c, func(r container.Resolver) (*Mailer, error) {
//	    cfg, err := container.Resolve[*config.Config](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewMailer(cfg.Mail), nil
//	}, container.AsSingleton())
//
//	// Pre-built value
//	container.RegisterInstance(c, cfg)
//
// Constructors are checked when registered: they must be functions
// returning T or (T, error), and T must be assignable to the service type.
// Their parameters are the service's dependencies. Registering a key again
// replaces the previous registration and drops its cached singleton.
//
// # Resolving
//
//	logger, err := container.Resolve[Logger](c)
//	primary, err := container.ResolveNamed[*sql.DB](c, "primary")
//
// Resolution fails with *UnregisteredServiceError when a key (or one of its
// dependencies) has no registration, with *CircularDependencyError when a
// chain revisits a key already being built, and with *ConstructionError
// when a constructor returns an error or panics. Each matches its sentinel
// through errors.Is. A failed resolution leaves the container usable.
//
// Concrete types are never built implicitly: every dependency, leaf types
// included, needs a registration.
//
// # Contextual Binding
//
//	c.When(container.KeyOf[*PhotoController]()).
//	    Needs(container.KeyOf[Filesystem]()).
//	    Give(func(r container.Resolver) (any, error) { return &S3Filesystem{}, nil })
//
// # Tags
//
//	c.Tag("reports", container.KeyOf[*CPUReport](), container.KeyOf[*MemReport]())
//	reports, err := container.ResolveTagged[Report](c, "reports")
//
// # Extend / Decorate
//
//	container.Extend(c, func(l Logger, _ container.Resolver) (Logger, error) {
//	    return &TimestampLogger{Inner: l}, nil
//	})
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(c *container.Container) error {
//	    return container.RegisterSingleton[Logger](c, NewConsoleLogger)
//	}
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&AppServiceProvider{})
//	registry.Boot()
//
// # Deferred Providers
//
//	type HeavyProvider struct{ container.BaseProvider }
//
//	func (p *HeavyProvider) IsDeferred() bool   { return true }
//	func (p *HeavyProvider) Provides() []container.Key {
//	    return []container.Key{container.KeyOf[*Heavy]()}
//	}
//	func (p *HeavyProvider) Register(c *container.Container) error {
//	    // only called on first resolution of *Heavy
//	    return container.RegisterSingleton[*Heavy](c, newHeavy)
//	}
package container
