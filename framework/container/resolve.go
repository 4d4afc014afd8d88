package container

import (
	"fmt"
	"slices"
	"time"
)

// Resolver produces instances for keys. *Container is a Resolver; so is the
// value handed to factories, which additionally tracks the chain of services
// being built so cycles and contextual bindings can be detected.
type Resolver interface {
	ResolveKey(key Key) (any, error)
}

// ResolveKey resolves key. Called from inside a constructor or factory,
// including one that captured the container, it continues the resolution
// already in progress on that goroutine, so cycles through the container
// are reported like any other.
func (c *Container) ResolveKey(key Key) (any, error) {
	if r := c.current(); r != nil {
		return r.resolve(key)
	}
	r := &resolution{c: c}
	return r.resolve(key)
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve returns the instance registered for T.
//
//	mailer, err := container.Resolve[Mailer](c)
func Resolve[T any](r Resolver) (T, error) {
	return resolveAs[T](r, KeyOf[T]())
}

// ResolveNamed returns the instance registered for T under name.
func ResolveNamed[T any](r Resolver, name string) (T, error) {
	return resolveAs[T](r, NamedKey[T](name))
}

// MustResolve is like Resolve but panics on error. Meant for composition
// roots where a missing service is a programming error.
func MustResolve[T any](r Resolver) T {
	out, err := Resolve[T](r)
	if err != nil {
		panic(fmt.Sprintf("container: MustResolve[%s]: %v", KeyOf[T](), err))
	}
	return out
}

// ResolveTagged resolves every service tagged with tag as T.
func ResolveTagged[T any](c *Container, tag string) ([]T, error) {
	keys := c.TaggedKeys(tag)
	out := make([]T, 0, len(keys))
	for _, key := range keys {
		v, err := resolveAs[T](c, key)
		if err != nil {
			return nil, fmt.Errorf("tag %q: %w", tag, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func resolveAs[T any](r Resolver, key Key) (T, error) {
	var zero T
	inst, err := r.ResolveKey(key)
	if err != nil {
		return zero, err
	}
	if inst == nil {
		return zero, nil
	}
	out, ok := inst.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s resolved to %T", ErrNotAssignable, key, inst)
	}
	return out, nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// resolution is the state of one top-level resolve call: the stack of keys
// currently being built. It is confined to the goroutine that started it.
type resolution struct {
	c     *Container
	stack []Key
	gid   uint64
}

func (r *resolution) ResolveKey(key Key) (any, error) {
	return r.resolve(key)
}

func (r *resolution) top() Key {
	if len(r.stack) == 0 {
		return Key{}
	}
	return r.stack[len(r.stack)-1]
}

func (r *resolution) resolve(key Key) (inst any, err error) {
	requester := r.top()
	if key.IsZero() {
		return nil, &UnregisteredServiceError{Key: key, Requester: requester}
	}
	if slices.Contains(r.stack, key) {
		return nil, &CircularDependencyError{Chain: cycleChain(r.stack, key)}
	}

	var (
		start    = time.Now()
		lifetime = Transient
		cached   bool
	)
	defer func() {
		r.c.observe(ResolveEvent{
			Key:      key,
			Lifetime: lifetime,
			Depth:    len(r.stack),
			Cached:   cached,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil && len(r.stack) == 0 {
			r.c.logger.Debug().Err(err).Str("service", key.String()).Msg("resolution failed")
		}
	}()

	if !requester.IsZero() {
		if f := r.c.contextualFactory(requester, key); f != nil {
			inst, err = r.invoke(key, f)
			if err != nil {
				return nil, err
			}
			r.c.fireAfterResolving(key, inst)
			return inst, nil
		}
	}

	b, ok := r.c.binding(key)
	if ok && b.load != nil {
		if err := b.load(); err != nil {
			return nil, &ConstructionError{Key: key, Cause: err}
		}
		if b, ok = r.c.binding(key); ok && b.load != nil {
			ok = false
		}
	}
	if !ok {
		return nil, &UnregisteredServiceError{Key: key, Requester: requester}
	}
	lifetime = b.lifetime

	if b.kind == KindType && !(b.lifetime == Singleton && r.c.Resolved(key)) {
		if err := r.c.missingDependency(key); err != nil {
			return nil, err
		}
	}

	if b.lifetime == Singleton {
		inst, cached, err = r.c.cache.GetOrCreate(key, func() (any, error) {
			return r.invoke(key, b.factory)
		})
	} else {
		inst, err = r.invoke(key, b.factory)
	}
	if err != nil {
		return nil, err
	}

	if !cached {
		r.c.fireAfterResolving(key, inst)
	}
	return inst, nil
}

// invoke runs f with key pushed on the stack, checks the result type and
// applies extenders.
func (r *resolution) invoke(key Key, f Factory) (any, error) {
	if len(r.stack) == 0 {
		r.c.enter(r)
		defer r.c.leave(r)
	}
	r.stack = append(r.stack, key)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	inst, err := r.call(key, f)
	if err != nil {
		return nil, err
	}
	if err := checkAssignable(key, inst); err != nil {
		return nil, &ConstructionError{Key: key, Cause: err}
	}

	for _, ext := range r.c.extendersFor(key) {
		inst, err = r.callExtender(key, ext, inst)
		if err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// call runs f, converting panics and foreign errors into ConstructionError.
// Errors that already describe a resolution failure pass through unchanged.
func (r *resolution) call(key Key, f Factory) (inst any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			inst, err = nil, &ConstructionError{Key: key, Cause: fmt.Errorf("panic recovered: %v", rec)}
		}
	}()

	inst, err = f(r)
	if err != nil && !isResolutionError(err) {
		return nil, &ConstructionError{Key: key, Cause: err}
	}
	return inst, err
}

func (r *resolution) callExtender(key Key, ext Extender, inst any) (out any, err error) {
	out, err = r.call(key, func(r Resolver) (any, error) { return ext(inst, r) })
	if err != nil {
		return nil, err
	}
	if err := checkAssignable(key, out); err != nil {
		return nil, &ConstructionError{Key: key, Cause: err}
	}
	return out, nil
}
