package container

import (
	"fmt"
	"reflect"
)

// Key identifies a service in the container: a Go type, usually an
// interface, plus an optional name for keeping several implementations of
// the same type apart.
type Key struct {
	Type reflect.Type
	Name string
}

// KeyOf returns the unnamed key for T.
//
//	c.Bind(container.KeyOf[Mailer](), factory)
func KeyOf[T any]() Key {
	return Key{Type: reflect.TypeFor[T]()}
}

// NamedKey returns the key for T registered under name.
func NamedKey[T any](name string) Key {
	return Key{Type: reflect.TypeFor[T](), Name: name}
}

// IsZero reports whether k identifies nothing.
func (k Key) IsZero() bool { return k.Type == nil }

// String renders the key as "pkg.Type" or "pkg.Type[name]".
func (k Key) String() string {
	if k.Type == nil {
		return "<nil>"
	}
	if k.Name == "" {
		return k.Type.String()
	}
	return fmt.Sprintf("%s[%s]", k.Type, k.Name)
}

// keyFromOptions builds the key for S honouring WithName.
func keyFromOptions[S any](o registerOptions) Key {
	return Key{Type: reflect.TypeFor[S](), Name: o.name}
}
