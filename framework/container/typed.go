package container

import "fmt"

// ── Generics helpers ──────────────────────────────────────────────────────────

// ResolveAs resolves key and asserts the result to T. A value of another type
// yields a *WrongTypeError; resolution errors are returned unchanged.
//
//	db, err := container.ResolveAs[*sql.DB](c, "db")
func ResolveAs[T any](r Resolver, key string) (T, error) {
	var zero T
	v, err := r.Resolve(key)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, &WrongTypeError{
			Key:  key,
			Want: fmt.Sprintf("%T", &zero)[1:],
			Got:  fmt.Sprintf("%T", v),
		}
	}
	return typed, nil
}

// MustResolve is like ResolveAs but panics on any error. Meant for bootstrap
// code where a missing entry is a programming error.
func MustResolve[T any](r Resolver, key string) T {
	v, err := ResolveAs[T](r, key)
	if err != nil {
		panic(err)
	}
	return v
}
