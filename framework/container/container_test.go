package container_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/km-arc/go-container/framework/container"
)

// ── Keys ──────────────────────────────────────────────────────────────────────

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  container.Key
		want string
	}{
		{"interface", container.KeyOf[Logger](), "container_test.Logger"},
		{"pointer", container.KeyOf[*userService](), "*container_test.userService"},
		{"named", container.NamedKey[Logger]("audit"), "container_test.Logger[audit]"},
		{"zero", container.Key{}, "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("got %q want %q", got, tt.want)
			}
		})
	}
}

// ── Registration ──────────────────────────────────────────────────────────────

func TestRegister_LastWriteWins(t *testing.T) {
	c := container.New()
	must(t, container.RegisterSingleton[Logger](c, func() *consoleLogger { return &consoleLogger{prefix: "first"} }))

	first, err := container.Resolve[Logger](c)
	must(t, err)

	must(t, container.RegisterSingleton[Logger](c, func() *consoleLogger { return &consoleLogger{prefix: "second"} }))

	for range 2 {
		got, err := container.Resolve[Logger](c)
		must(t, err)
		if got == first {
			t.Fatal("re-registration should evict the cached singleton")
		}
		if p := got.(*consoleLogger).prefix; p != "second" {
			t.Errorf("prefix: got %q want second", p)
		}
	}
}

func TestRegister_ReplaceKind(t *testing.T) {
	c := container.New()
	must(t, container.Register[Logger](c, newConsoleLogger))
	must(t, container.RegisterInstance[Logger](c, &consoleLogger{prefix: "instance"}))

	l, err := container.Resolve[Logger](c)
	must(t, err)
	if p := l.(*consoleLogger).prefix; p != "instance" {
		t.Errorf("prefix: got %q want instance", p)
	}
}

func TestRegister_InvalidConstructors(t *testing.T) {
	tests := []struct {
		name        string
		constructor any
		want        error
	}{
		{"nil", nil, container.ErrInvalidConstructor},
		{"not a function", "logger", container.ErrInvalidConstructor},
		{"nil function", (func() *consoleLogger)(nil), container.ErrInvalidConstructor},
		{"no results", func() {}, container.ErrInvalidConstructor},
		{"three results", func() (*consoleLogger, int, error) { return nil, 0, nil }, container.ErrInvalidConstructor},
		{"second not error", func() (*consoleLogger, int) { return nil, 0 }, container.ErrInvalidConstructor},
		{"variadic", func(...int) *consoleLogger { return nil }, container.ErrInvalidConstructor},
		{"wrong type", func() *emailNotificationService { return nil }, container.ErrNotAssignable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := container.New()
			err := container.Register[Logger](c, tt.constructor)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v want %v", err, tt.want)
			}
			if c.Bound(container.KeyOf[Logger]()) {
				t.Error("failed registration must not bind the key")
			}
		})
	}
}

func TestInstance_NotAssignable(t *testing.T) {
	c := container.New()
	err := c.Instance(container.KeyOf[Logger](), 42)
	if !errors.Is(err, container.ErrNotAssignable) {
		t.Fatalf("expected ErrNotAssignable, got %v", err)
	}
}

func TestBind_NilFactory(t *testing.T) {
	c := container.New()
	if err := c.Bind(container.KeyOf[Logger](), nil); !errors.Is(err, container.ErrInvalidConstructor) {
		t.Errorf("expected ErrInvalidConstructor, got %v", err)
	}
	if err := c.Bind(container.Key{}, func(container.Resolver) (any, error) { return nil, nil }); err == nil {
		t.Error("expected an error for the empty key")
	}
}

func TestInstance_SameReferenceEveryTime(t *testing.T) {
	c := container.New()
	l := newConsoleLogger()
	must(t, container.RegisterInstance[Logger](c, l))

	for range 2 {
		got, err := container.Resolve[Logger](c)
		must(t, err)
		if got != l {
			t.Error("instance registration should return the registered value")
		}
	}
}

func TestRegisterFactory_AsSingleton(t *testing.T) {
	c := container.New()
	calls := 0
	must(t, container.RegisterFactory(c, func(container.Resolver) (Logger, error) {
		calls++
		return newConsoleLogger(), nil
	}, container.AsSingleton()))

	l1, _ := container.Resolve[Logger](c)
	l2, _ := container.Resolve[Logger](c)
	if l1 != l2 || calls != 1 {
		t.Errorf("factory singleton: same=%v calls=%d", l1 == l2, calls)
	}
}

func TestRegisterFactory_TransientByDefault(t *testing.T) {
	c := container.New()
	calls := 0
	must(t, container.RegisterFactory(c, func(container.Resolver) (Logger, error) {
		calls++
		return newConsoleLogger(), nil
	}))

	_, _ = container.Resolve[Logger](c)
	_, _ = container.Resolve[Logger](c)
	if calls != 2 {
		t.Errorf("calls: got %d want 2", calls)
	}
}

// ── Introspection ─────────────────────────────────────────────────────────────

func TestBound_Resolved(t *testing.T) {
	c := newAppContainer(t)
	key := container.KeyOf[Logger]()

	if !c.Bound(key) {
		t.Error("Logger should be bound")
	}
	if c.Resolved(key) {
		t.Error("Logger should not be resolved before first use")
	}
	_, err := container.Resolve[Logger](c)
	must(t, err)
	if !c.Resolved(key) {
		t.Error("Logger should be resolved after first use")
	}
	if c.Bound(container.KeyOf[*repoA]()) {
		t.Error("*repoA should not be bound")
	}
}

func TestBindings(t *testing.T) {
	c := newAppContainer(t)
	_, err := container.Resolve[Logger](c)
	must(t, err)

	infos := c.Bindings()
	byKey := make(map[string]container.BindingInfo, len(infos))
	for _, info := range infos {
		byKey[info.Key.String()] = info
	}

	logger := byKey["container_test.Logger"]
	if logger.Kind != container.KindType || logger.Lifetime != container.Singleton || !logger.Resolved {
		t.Errorf("Logger: got %+v", logger)
	}

	user := byKey["*container_test.userService"]
	if len(user.Dependencies) != 2 {
		t.Errorf("userService deps: got %v", user.Dependencies)
	}

	self := byKey["*container.Container"]
	if self.Kind != container.KindInstance {
		t.Errorf("container self binding: got %+v", self)
	}

	for i := 1; i < len(infos); i++ {
		if infos[i-1].Key.String() > infos[i].Key.String() {
			t.Fatalf("Bindings not sorted at %d", i)
		}
	}
}

func TestContainer_ID(t *testing.T) {
	a, b := container.New(), container.New()
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("ids should be unique and non-empty: %q %q", a.ID(), b.ID())
	}
	if got := container.New(container.WithID("fixed")).ID(); got != "fixed" {
		t.Errorf("WithID: got %q", got)
	}
}

func TestContainer_LogsRegistrations(t *testing.T) {
	var buf strings.Builder
	c := container.New(container.WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))
	must(t, container.RegisterSingleton[Logger](c, newConsoleLogger))

	out := buf.String()
	if !strings.Contains(out, `"service":"container_test.Logger"`) {
		t.Errorf("log should name the service: %s", out)
	}
	if !strings.Contains(out, `"container_id":"`+c.ID()+`"`) {
		t.Errorf("log should carry the container id: %s", out)
	}
}

// ── Validation ────────────────────────────────────────────────────────────────

func TestValidate_OK(t *testing.T) {
	c := newAppContainer(t)
	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate_MissingDependency(t *testing.T) {
	c := container.New()
	must(t, container.Register[*userService](c, newUserService))

	err := c.Validate()
	if !errors.Is(err, container.ErrUnregisteredService) {
		t.Fatalf("expected ErrUnregisteredService, got %v", err)
	}
	for _, name := range []string{"Logger", "NotificationService"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should mention %s: %v", name, err)
		}
	}
}

func TestValidate_Cycle(t *testing.T) {
	c := container.New()
	must(t, container.Register[*circA](c, newCircA))
	must(t, container.Register[*circB](c, newCircB))
	must(t, container.Register[*circC](c, newCircC))

	if err := c.Validate(); !errors.Is(err, container.ErrCircularDependency) {
		t.Fatalf("expected ErrCircularDependency, got %v", err)
	}
}

func TestValidate_ContextualCountsAsPresent(t *testing.T) {
	c := container.New()
	must(t, container.Register[*userService](c, newUserService))
	must(t, container.RegisterSingleton[Logger](c, newConsoleLogger))
	c.When(container.KeyOf[*userService]()).
		Needs(container.KeyOf[NotificationService]()).
		GiveValue(newEmailNotificationService())

	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

// ── Tags ──────────────────────────────────────────────────────────────────────

func TestTagged(t *testing.T) {
	c := container.New()
	must(t, container.RegisterSingleton[Logger](c, newConsoleLogger, container.WithName("a")))
	must(t, container.RegisterSingleton[Logger](c, newConsoleLogger, container.WithName("b")))
	c.Tag("loggers", container.NamedKey[Logger]("a"), container.NamedKey[Logger]("b"))

	all, err := c.Tagged("loggers")
	must(t, err)
	if len(all) != 2 {
		t.Fatalf("Tagged: got %d want 2", len(all))
	}

	typed, err := container.ResolveTagged[Logger](c, "loggers")
	must(t, err)
	if len(typed) != 2 || typed[0] == typed[1] {
		t.Errorf("ResolveTagged: got %v", typed)
	}

	if got := c.Tags(); len(got) != 1 || got[0] != "loggers" {
		t.Errorf("Tags: got %v", got)
	}
}

func TestTagged_MissingMember(t *testing.T) {
	c := container.New()
	c.Tag("reports", container.KeyOf[Logger]())

	_, err := c.Tagged("reports")
	if !errors.Is(err, container.ErrUnregisteredService) {
		t.Errorf("expected ErrUnregisteredService, got %v", err)
	}
}

// ── Extend ────────────────────────────────────────────────────────────────────

type prefixedLogger struct {
	inner Logger
}

func (p *prefixedLogger) Log(msg string) { p.inner.Log("[x] " + msg) }

func TestExtend_DecoratesNewInstances(t *testing.T) {
	c := container.New()
	must(t, container.Register[Logger](c, newConsoleLogger))
	must(t, container.Extend(c, func(l Logger, _ container.Resolver) (Logger, error) {
		return &prefixedLogger{inner: l}, nil
	}))

	l, err := container.Resolve[Logger](c)
	must(t, err)
	if _, ok := l.(*prefixedLogger); !ok {
		t.Errorf("got %T want *prefixedLogger", l)
	}
}

func TestExtend_AppliesToCachedSingleton(t *testing.T) {
	c := container.New()
	must(t, container.RegisterSingleton[Logger](c, newConsoleLogger))
	before, err := container.Resolve[Logger](c)
	must(t, err)

	must(t, container.Extend(c, func(l Logger, _ container.Resolver) (Logger, error) {
		return &prefixedLogger{inner: l}, nil
	}))

	after, err := container.Resolve[Logger](c)
	must(t, err)
	p, ok := after.(*prefixedLogger)
	if !ok {
		t.Fatalf("got %T want *prefixedLogger", after)
	}
	if p.inner != before {
		t.Error("extender should wrap the cached instance")
	}
}

func TestExtend_Error(t *testing.T) {
	c := container.New()
	must(t, container.Register[Logger](c, newConsoleLogger))
	must(t, container.Extend(c, func(Logger, container.Resolver) (Logger, error) {
		return nil, errBoom
	}))

	if _, err := container.Resolve[Logger](c); !errors.Is(err, errBoom) {
		t.Errorf("expected errBoom, got %v", err)
	}
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

func TestAfterResolving(t *testing.T) {
	c := newAppContainer(t)
	var seen []string
	c.AfterResolving(func(key container.Key, _ any) {
		seen = append(seen, key.String())
	})

	_, err := container.Resolve[Logger](c)
	must(t, err)
	_, err = container.Resolve[Logger](c)
	must(t, err)

	if len(seen) != 1 || seen[0] != "container_test.Logger" {
		t.Errorf("callbacks: got %v (cached hits should not fire)", seen)
	}
}
