package container

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrDuplicateFactory matches every *DuplicateFactoryError.
	ErrDuplicateFactory = errors.New("container: duplicate factory")

	// ErrCyclicDependency matches every *CyclicDependencyError.
	ErrCyclicDependency = errors.New("container: cyclic dependency")

	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("container: entry not found")
)

// DuplicateFactoryError is returned by Build and Registry.Merge when two
// providers bind a factory to the same key.
type DuplicateFactoryError struct{ Key string }

func (e *DuplicateFactoryError) Error() string {
	// Example: container: duplicate factory for "db"
	return "container: duplicate factory for " + strconv.Quote(e.Key)
}

func (e *DuplicateFactoryError) Is(target error) bool { return target == ErrDuplicateFactory }

// CyclicDependencyError is returned when resolving a key would require the key
// itself. Path lists the keys in traversal order and repeats the first key at
// the end.
//
// Runtime is false when the cycle was found in declared dependencies before
// anything was built, and true when it was caught while factories were
// running.
type CyclicDependencyError struct {
	Path    []string
	Runtime bool
}

func (e *CyclicDependencyError) Error() string {
	kind := "declared"
	if e.Runtime {
		kind = "runtime"
	}
	// Example: container: cyclic dependency (declared): a -> b -> a
	return fmt.Sprintf("container: cyclic dependency (%s): %s", kind, strings.Join(e.Path, " -> "))
}

func (e *CyclicDependencyError) Is(target error) bool { return target == ErrCyclicDependency }

// NotFoundError is returned for keys that have neither a factory nor an
// extension.
type NotFoundError struct{ Key string }

func (e *NotFoundError) Error() string {
	return "container: no entry for " + strconv.Quote(e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// WrongTypeError is returned by ResolveAs when the resolved value does not
// have the requested type.
type WrongTypeError struct {
	Key  string
	Want string
	Got  string
}

func (e *WrongTypeError) Error() string {
	return "container: " + strconv.Quote(e.Key) + " resolved to " + e.Got + ", not " + e.Want
}

// PanicError is what concurrent waiters receive when the resolution they were
// waiting for panicked. The panicking goroutine itself re-panics.
type PanicError struct {
	Key   string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("container: resolving %q panicked: %v", e.Key, e.Value)
}
