package container

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory builds an instance, resolving whatever it needs through r.
type Factory func(r Resolver) (any, error)

// Extender decorates an instance after it has been built.
type Extender func(instance any, r Resolver) (any, error)

// Kind tells how a registration produces its instance.
type Kind int

const (
	// KindType is a constructor function whose parameters are resolved by
	// type.
	KindType Kind = iota
	// KindFactory is a function receiving a Resolver.
	KindFactory
	// KindInstance is a pre-built value.
	KindInstance
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindFactory:
		return "factory"
	case KindInstance:
		return "instance"
	default:
		return "unknown"
	}
}

// binding holds a registered factory and its lifetime. deps is only known
// for KindType registrations. A non-nil load marks a placeholder for a
// deferred provider that must run before the key can be resolved.
type binding struct {
	kind     Kind
	lifetime Lifetime
	factory  Factory
	deps     []Key
	load     func() error
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the service container. It owns the registration table and
// the singleton cache, and is safe for concurrent use.
//
// It supports:
//   - Register / RegisterSingleton / RegisterFactory / RegisterInstance
//   - Resolve / ResolveNamed / MustResolve (generic)
//   - Tags (group several keys under one name)
//   - Extend (decorate resolved instances)
//   - Contextual binding (when A needs B, give it C)
//   - Resolved callbacks and observers
type Container struct {
	id        string
	logger    zerolog.Logger
	observers []Observer

	mu sync.RWMutex

	// key → binding
	bindings map[Key]*binding

	// key → extender funcs
	extenders map[Key][]Extender

	// tag → []key
	tags map[string][]Key

	// contextual: when[consumer][dependency] = factory
	contextual map[Key]map[Key]Factory

	// resolved callbacks: []func(key, instance)
	afterResolving []func(Key, any)

	cache *InstanceCache

	// goroutine id → resolution currently constructing on it
	activeMu sync.Mutex
	active   map[uint64]*resolution
	building atomic.Int32
}

// New creates an empty container. The container is registered under
// KeyOf[*Container] so constructors may depend on it.
func New(opts ...Option) *Container {
	cfg := config{
		logger: zerolog.Nop(),
		id:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Container{
		id:         cfg.id,
		logger:     cfg.logger.With().Str("container_id", cfg.id).Logger(),
		observers:  cfg.observers,
		bindings:   make(map[Key]*binding),
		extenders:  make(map[Key][]Extender),
		tags:       make(map[string][]Key),
		contextual: make(map[Key]map[Key]Factory),
		cache:      NewInstanceCache(),
		active:     make(map[uint64]*resolution),
	}
	_ = c.Instance(KeyOf[*Container](), c)
	return c
}

// ID returns the unique id of this container.
func (c *Container) ID() string { return c.id }

// Logger returns the container's logger, tagged with its id.
func (c *Container) Logger() zerolog.Logger { return c.logger }

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient factory under key.
//
//	c.Bind(container.KeyOf[Mailer](), func(r container.Resolver) (any, error) {
//	    cfg, err := container.Resolve[*config.Config](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return mail.NewSMTP(cfg.Mail), nil
//	})
func (c *Container) Bind(key Key, factory Factory) error {
	return c.bindFactory(key, factory, Transient)
}

// Singleton registers a factory whose result is cached after the first
// resolution.
func (c *Container) Singleton(key Key, factory Factory) error {
	return c.bindFactory(key, factory, Singleton)
}

// Instance registers a pre-built value as a singleton.
func (c *Container) Instance(key Key, instance any) error {
	if key.IsZero() {
		return fmt.Errorf("register instance: %w: empty key", ErrInvalidConstructor)
	}
	if err := checkAssignable(key, instance); err != nil {
		return fmt.Errorf("register instance %s: %w", key, err)
	}
	c.register(key, &binding{
		kind:     KindInstance,
		lifetime: Singleton,
		factory:  func(Resolver) (any, error) { return instance, nil },
	})
	return nil
}

func (c *Container) bindFactory(key Key, factory Factory, lifetime Lifetime) error {
	if key.IsZero() {
		return fmt.Errorf("register factory: %w: empty key", ErrInvalidConstructor)
	}
	if factory == nil {
		return fmt.Errorf("register factory %s: %w: nil factory", key, ErrInvalidConstructor)
	}
	c.register(key, &binding{kind: KindFactory, lifetime: lifetime, factory: factory})
	return nil
}

// register stores b under key, replacing any previous registration and
// dropping its cached singleton.
func (c *Container) register(key Key, b *binding) {
	c.mu.Lock()
	_, replaced := c.bindings[key]
	c.bindings[key] = b
	c.mu.Unlock()

	c.cache.Forget(key)

	c.logger.Debug().
		Str("service", key.String()).
		Stringer("kind", b.kind).
		Stringer("lifetime", b.lifetime).
		Bool("replaced", replaced).
		Msg("service registered")
}

// binding returns the registration for key.
func (c *Container) binding(key Key) (*binding, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bindings[key]
	return b, ok
}

// ── Contextual Binding ────────────────────────────────────────────────────────

// When starts a contextual binding chain.
//
//	c.When(container.KeyOf[*PhotoController]()).
//	    Needs(container.KeyOf[Filesystem]()).
//	    Give(func(r container.Resolver) (any, error) { return &S3{}, nil })
func (c *Container) When(consumer Key) *ContextualBuilder {
	return &ContextualBuilder{container: c, consumer: consumer}
}

// contextualFactory returns the contextual factory for (consumer, dep), or nil.
func (c *Container) contextualFactory(consumer, dep Key) Factory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contextual[consumer][dep]
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend decorates every instance resolved for key. If a singleton for key
// is already cached, the extender is applied to it immediately.
func (c *Container) Extend(key Key, ext Extender) error {
	if ext == nil {
		return fmt.Errorf("extend %s: nil extender", key)
	}

	c.mu.Lock()
	c.extenders[key] = append(c.extenders[key], ext)
	c.mu.Unlock()

	inst, ok := c.cache.Get(key)
	if !ok {
		return nil
	}

	r := &resolution{c: c, stack: []Key{key}}
	extended, err := r.callExtender(key, ext, inst)
	if err != nil {
		return err
	}
	c.cache.Put(key, extended)
	return nil
}

func (c *Container) extendersFor(key Key) []Extender {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.extenders[key]
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates keys with a named group.
//
//	c.Tag("reports", container.KeyOf[*CPUReport](), container.KeyOf[*MemReport]())
func (c *Container) Tag(tag string, keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[tag] = append(c.tags[tag], keys...)
}

// Tagged resolves every key registered under tag, in tagging order.
func (c *Container) Tagged(tag string) ([]any, error) {
	c.mu.RLock()
	keys := slices.Clone(c.tags[tag])
	c.mu.RUnlock()

	out := make([]any, 0, len(keys))
	for _, key := range keys {
		inst, err := c.ResolveKey(key)
		if err != nil {
			return nil, fmt.Errorf("tag %q: %w", tag, err)
		}
		out = append(out, inst)
	}
	return out, nil
}

// TaggedKeys returns the keys registered under tag.
func (c *Container) TaggedKeys(tag string) []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.tags[tag])
}

// Tags returns all tag names, sorted.
func (c *Container) Tags() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.tags))
	for tag := range c.tags {
		out = append(out, tag)
	}
	slices.Sort(out)
	return out
}

// missingDependency walks the declared dependencies of key and returns an
// UnregisteredServiceError for the first one that has no registration and
// no contextual binding. Cached singletons are not descended into.
func (c *Container) missingDependency(key Key) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.findMissing(key, map[Key]bool{key: true})
}

// findMissing must be called with mu held for reading.
func (c *Container) findMissing(key Key, seen map[Key]bool) error {
	b, ok := c.bindings[key]
	if !ok {
		return nil
	}
	for _, dep := range b.deps {
		if seen[dep] || c.contextual[key][dep] != nil {
			continue
		}
		seen[dep] = true
		if _, ok := c.bindings[dep]; !ok {
			return &UnregisteredServiceError{Key: dep, Requester: key}
		}
		if _, cached := c.cache.Get(dep); cached {
			continue
		}
		if err := c.findMissing(dep, seen); err != nil {
			return err
		}
	}
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Bound reports whether key has a registration.
func (c *Container) Bound(key Key) bool {
	_, ok := c.binding(key)
	return ok
}

// Resolved reports whether a singleton for key has been built and cached.
func (c *Container) Resolved(key Key) bool {
	_, ok := c.cache.Get(key)
	return ok
}

// BindingInfo describes one registration.
type BindingInfo struct {
	Key          Key
	Kind         Kind
	Lifetime     Lifetime
	Dependencies []Key
	Resolved     bool
}

// Bindings returns every registration, sorted by key.
func (c *Container) Bindings() []BindingInfo {
	c.mu.RLock()
	keys := sortedKeys(c.bindings)
	out := make([]BindingInfo, 0, len(keys))
	for _, k := range keys {
		b := c.bindings[k]
		out = append(out, BindingInfo{
			Key:          k,
			Kind:         b.kind,
			Lifetime:     b.lifetime,
			Dependencies: slices.Clone(b.deps),
		})
	}
	c.mu.RUnlock()

	for i := range out {
		out[i].Resolved = c.Resolved(out[i].Key)
	}
	return out
}

func sortedKeys[V any](m map[Key]V) []Key {
	keys := make([]Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b Key) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}

// checkAssignable reports whether instance may be stored under key.
func checkAssignable(key Key, instance any) error {
	if instance == nil {
		switch key.Type.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return nil
		}
		return fmt.Errorf("%w: nil is not %s", ErrNotAssignable, key.Type)
	}
	if t := reflect.TypeOf(instance); !t.AssignableTo(key.Type) {
		return fmt.Errorf("%w: %s is not %s", ErrNotAssignable, t, key.Type)
	}
	return nil
}

// ── Validation ────────────────────────────────────────────────────────────────

type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// Validate walks the dependency graph of every constructor registration and
// reports missing dependencies and cycles without building anything.
// Factories and instances are treated as leaves since their dependencies
// are only known when they run.
func (c *Container) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	states := make(map[Key]visitState)
	var errs []error
	for _, k := range sortedKeys(c.bindings) {
		c.validateKey(k, states, nil, &errs)
	}
	return errors.Join(errs...)
}

// validateKey must be called with mu held for reading.
func (c *Container) validateKey(key Key, states map[Key]visitState, stack []Key, errs *[]error) {
	switch states[key] {
	case visiting:
		*errs = append(*errs, &CircularDependencyError{Chain: cycleChain(stack, key)})
		return
	case visited:
		return
	}

	states[key] = visiting
	stack = append(stack, key)

	for _, dep := range c.bindings[key].deps {
		if c.contextual[key][dep] != nil {
			continue
		}
		if _, ok := c.bindings[dep]; !ok {
			*errs = append(*errs, &UnregisteredServiceError{Key: dep, Requester: key})
			continue
		}
		c.validateKey(dep, states, stack, errs)
	}

	states[key] = visited
}

// cycleChain cuts stack down to the part that loops back to key.
func cycleChain(stack []Key, key Key) []Key {
	start := slices.Index(stack, key)
	if start < 0 {
		start = 0
	}
	chain := make([]Key, 0, len(stack)-start+1)
	chain = append(chain, stack[start:]...)
	return append(chain, key)
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired after any instance is built.
// Cached singleton hits do not fire it.
func (c *Container) AfterResolving(cb func(key Key, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) fireAfterResolving(key Key, instance any) {
	c.mu.RLock()
	cbs := c.afterResolving
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(key, instance)
	}
}

func (c *Container) observe(ev ResolveEvent) {
	for _, o := range c.observers {
		o.ObserveResolve(ev)
	}
}
