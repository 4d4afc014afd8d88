package container

// ContextualBuilder implements the fluent contextual binding API.
//
//	c.When(container.KeyOf[*PhotoController]()).
//	    Needs(container.KeyOf[Filesystem]()).
//	    Give(func(r container.Resolver) (any, error) {
//	        return filesystem.NewS3(...), nil
//	    })
type ContextualBuilder struct {
	container *Container
	consumer  Key
	needs     Key
}

// Needs specifies which dependency of the consumer is being overridden.
func (b *ContextualBuilder) Needs(dep Key) *ContextualBuilder {
	b.needs = dep
	return b
}

// Give provides the factory used when the consumer resolves the dependency.
// The result is never cached, whatever the dependency's own lifetime.
func (b *ContextualBuilder) Give(factory Factory) {
	b.container.mu.Lock()
	defer b.container.mu.Unlock()

	if _, ok := b.container.contextual[b.consumer]; !ok {
		b.container.contextual[b.consumer] = make(map[Key]Factory)
	}
	b.container.contextual[b.consumer][b.needs] = factory
}

// GiveValue is a shorthand for Give when the value is already built.
//
//	c.When(container.KeyOf[*PhotoController]()).
//	    Needs(container.NamedKey[string]("storagePath")).
//	    GiveValue("/tmp/photos")
func (b *ContextualBuilder) GiveValue(value any) {
	b.Give(func(Resolver) (any, error) { return value, nil })
}
