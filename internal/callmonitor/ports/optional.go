package ports

// Optional is a tagged present/absent holder for optional collaborators.
// Call sites unwrap with Get, which forces absence handling; there are no
// nil-interface checks scattered through the core.
type Optional[T any] struct {
	value   T
	present bool
}

// Some wraps a present collaborator.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// None is an absent collaborator.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the collaborator and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// Present reports presence without unwrapping.
func (o Optional[T]) Present() bool {
	return o.present
}
