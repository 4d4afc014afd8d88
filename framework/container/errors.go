package container

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnregisteredService is returned when no registration exists for the
	// requested key.
	ErrUnregisteredService = errors.New("service not registered")

	// ErrCircularDependency is returned when a resolution chain revisits a
	// key that is still being built.
	ErrCircularDependency = errors.New("circular dependency detected")

	// ErrConstruction is returned when a constructor or factory fails.
	ErrConstruction = errors.New("service construction failed")

	// ErrInvalidConstructor is returned when a value passed to Register is
	// not a usable constructor function.
	ErrInvalidConstructor = errors.New("invalid constructor")

	// ErrNotAssignable is returned when an implementation cannot be stored
	// under the requested service type.
	ErrNotAssignable = errors.New("implementation not assignable to service")
)

// UnregisteredServiceError names the missing key and, when the lookup
// happened while building another service, the service that needed it.
type UnregisteredServiceError struct {
	Key       Key
	Requester Key
}

func (e *UnregisteredServiceError) Error() string {
	if e.Requester.IsZero() {
		return fmt.Sprintf("%s: %s", ErrUnregisteredService, e.Key)
	}
	return fmt.Sprintf("%s: %s (required by %s)", ErrUnregisteredService, e.Key, e.Requester)
}

func (e *UnregisteredServiceError) Is(target error) bool {
	return target == ErrUnregisteredService
}

// CircularDependencyError carries the chain of keys that forms the cycle.
// The first and last elements are the same key.
type CircularDependencyError struct {
	Chain []Key
}

func (e *CircularDependencyError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, k := range e.Chain {
		parts[i] = k.String()
	}
	return fmt.Sprintf("%s: %s", ErrCircularDependency, strings.Join(parts, " -> "))
}

func (e *CircularDependencyError) Is(target error) bool {
	return target == ErrCircularDependency
}

// ConstructionError wraps the failure of a constructor, factory or
// extender together with the key being built.
type ConstructionError struct {
	Key   Key
	Cause error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrConstruction, e.Key, e.Cause)
}

func (e *ConstructionError) Is(target error) bool {
	return target == ErrConstruction
}

func (e *ConstructionError) Unwrap() error { return e.Cause }

// isResolutionError reports whether err already describes a resolution
// failure and should travel up the chain untouched.
func isResolutionError(err error) bool {
	var (
		unregistered *UnregisteredServiceError
		circular     *CircularDependencyError
		construction *ConstructionError
	)
	return errors.As(err, &unregistered) ||
		errors.As(err, &circular) ||
		errors.As(err, &construction)
}
