package container

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeFor[error]()

// ── Typed registration ────────────────────────────────────────────────────────

// Register maps service S to a constructor with transient lifetime. The
// constructor must have the form func(deps...) T or func(deps...) (T, error)
// with T assignable to S; each parameter is resolved from the container by
// its type.
//
//	container.Register[NotificationService](c, NewEmailNotificationService)
func Register[S any](c *Container, constructor any, opts ...RegisterOption) error {
	o := applyRegisterOptions(opts)
	lifetime := Transient
	if o.singleton {
		lifetime = Singleton
	}
	return registerConstructor[S](c, constructor, lifetime, o)
}

// RegisterSingleton is Register with singleton lifetime: the constructor
// runs on first resolution and the instance is reused afterwards.
//
//	container.RegisterSingleton[Logger](c, NewConsoleLogger)
func RegisterSingleton[S any](c *Container, constructor any, opts ...RegisterOption) error {
	return registerConstructor[S](c, constructor, Singleton, applyRegisterOptions(opts))
}

// RegisterFactory maps service S to a factory. It is transient unless
// AsSingleton is given.
//
//	container.RegisterFactory(c, func(r container.Resolver) (*sql.DB, error) {
//	    cfg, err := container.Resolve[*config.Config](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return sql.Open("mysql", cfg.DSN())
//	}, container.AsSingleton())
func RegisterFactory[S any](c *Container, factory func(r Resolver) (S, error), opts ...RegisterOption) error {
	o := applyRegisterOptions(opts)
	key := keyFromOptions[S](o)
	if factory == nil {
		return fmt.Errorf("register factory %s: %w: nil factory", key, ErrInvalidConstructor)
	}

	f := func(r Resolver) (any, error) {
		v, err := factory(r)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	if o.singleton {
		return c.Singleton(key, f)
	}
	return c.Bind(key, f)
}

// RegisterInstance stores a pre-built value as the singleton for S.
func RegisterInstance[S any](c *Container, instance S, opts ...RegisterOption) error {
	return c.Instance(keyFromOptions[S](applyRegisterOptions(opts)), instance)
}

// Extend is the typed form of Container.Extend.
//
//	container.Extend(c, func(l Logger, _ container.Resolver) (Logger, error) {
//	    return &TimestampLogger{Inner: l}, nil
//	})
func Extend[S any](c *Container, ext func(instance S, r Resolver) (S, error), opts ...RegisterOption) error {
	key := keyFromOptions[S](applyRegisterOptions(opts))
	if ext == nil {
		return fmt.Errorf("extend %s: nil extender", key)
	}
	return c.Extend(key, func(instance any, r Resolver) (any, error) {
		typed, _ := instance.(S)
		v, err := ext(typed, r)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

func registerConstructor[S any](c *Container, constructor any, lifetime Lifetime, o registerOptions) error {
	key := keyFromOptions[S](o)
	factory, deps, err := constructorFactory(key, constructor)
	if err != nil {
		return fmt.Errorf("register %s: %w", key, err)
	}
	c.register(key, &binding{
		kind:     KindType,
		lifetime: lifetime,
		factory:  factory,
		deps:     deps,
	})
	return nil
}

// ── Constructor reflection ────────────────────────────────────────────────────

// constructorFactory checks constructor against key once, at registration,
// and turns it into a Factory plus the list of keys it depends on.
func constructorFactory(key Key, constructor any) (Factory, []Key, error) {
	if constructor == nil {
		return nil, nil, fmt.Errorf("%w: nil", ErrInvalidConstructor)
	}

	fn := reflect.ValueOf(constructor)
	typ := fn.Type()

	if typ.Kind() != reflect.Func {
		return nil, nil, fmt.Errorf("%w: %s is not a function", ErrInvalidConstructor, typ)
	}
	if fn.IsNil() {
		return nil, nil, fmt.Errorf("%w: nil function", ErrInvalidConstructor)
	}
	if typ.IsVariadic() {
		return nil, nil, fmt.Errorf("%w: variadic constructors are not supported", ErrInvalidConstructor)
	}

	switch typ.NumOut() {
	case 1:
	case 2:
		if typ.Out(1) != errorType {
			return nil, nil, fmt.Errorf("%w: second return value must be error", ErrInvalidConstructor)
		}
	default:
		return nil, nil, fmt.Errorf("%w: must return (T) or (T, error)", ErrInvalidConstructor)
	}

	if out := typ.Out(0); !out.AssignableTo(key.Type) {
		return nil, nil, fmt.Errorf("%w: constructor returns %s, not %s", ErrNotAssignable, out, key.Type)
	}

	deps := make([]Key, typ.NumIn())
	for i := range deps {
		deps[i] = Key{Type: typ.In(i)}
	}

	factory := func(r Resolver) (any, error) {
		args := make([]reflect.Value, len(deps))
		for i, dep := range deps {
			inst, err := r.ResolveKey(dep)
			if err != nil {
				return nil, err
			}
			if inst == nil {
				args[i] = reflect.Zero(dep.Type)
				continue
			}
			args[i] = reflect.ValueOf(inst)
		}

		results := fn.Call(args)
		if len(results) == 2 && !results[1].IsNil() {
			return nil, results[1].Interface().(error)
		}
		return results[0].Interface(), nil
	}
	return factory, deps, nil
}
