// Package state provides the explicit state-container contract the SDK's
// modules build on: read current state, apply an action through registered
// reducers, and subscribe to change notifications. Each module owns its own
// container (or a storage-backed one); there is no process-wide singleton.
package state

import (
	"reflect"
	"sync"
)

// Action is a request to transition container state. Reducers type-switch on
// concrete action types.
type Action interface {
	ActionType() string
}

// Reducer computes the next state for one key from the current state and an
// action. Reducers must be pure and must return the current value unchanged
// (same handle) when the action does not apply, so that change detection by
// identity works.
type Reducer func(current any, action Action) any

// initAction seeds a freshly registered reducer with its initial state.
type initAction struct{}

func (initAction) ActionType() string { return "state/init" }

// HydrateAction replays persisted bytes into the reducer that owns the given
// key. The owning reducer decides the concrete decoding; other reducers must
// ignore it.
type HydrateAction struct {
	Key  string
	Data []byte
}

func (HydrateAction) ActionType() string { return "state/hydrate" }

// Container is a keyed state container with reducer-driven transitions and
// synchronous change notification. An Apply issued from inside a listener
// (or from a reducer side effect) does not recursively re-enter listeners;
// it marks the container dirty and the outer notification loop runs the
// listeners again once, coalescing nested changes into the next pass.
type Container struct {
	mu        sync.Mutex
	reducers  map[string]Reducer
	state     map[string]any
	listeners []func()
	notifying bool
	dirty     bool
}

// NewContainer creates an empty container.
func NewContainer() *Container {
	return &Container{
		reducers: make(map[string]Reducer),
		state:    make(map[string]any),
	}
}

// RegisterReducer installs a reducer under a key and seeds its initial state.
func (c *Container) RegisterReducer(key string, r Reducer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reducers[key] = r
	c.state[key] = r(nil, initAction{})
}

// GetItem returns the current state for a key, or nil when unregistered.
func (c *Container) GetItem(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state[key]
}

// OnChange registers a listener invoked after any state change.
func (c *Container) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Apply runs the action through every registered reducer and notifies
// listeners when at least one key's state handle changed.
func (c *Container) Apply(action Action) {
	c.mu.Lock()
	changed := false
	for key, r := range c.reducers {
		next := r(c.state[key], action)
		if Identity(next) != Identity(c.state[key]) {
			c.state[key] = next
			changed = true
		}
	}
	if !changed {
		c.mu.Unlock()
		return
	}
	if c.notifying {
		c.dirty = true
		c.mu.Unlock()
		return
	}
	c.notifying = true
	c.mu.Unlock()

	for {
		c.mu.Lock()
		listeners := make([]func(), len(c.listeners))
		copy(listeners, c.listeners)
		c.mu.Unlock()

		for _, fn := range listeners {
			fn()
		}

		c.mu.Lock()
		if !c.dirty {
			c.notifying = false
			c.mu.Unlock()
			return
		}
		c.dirty = false
		c.mu.Unlock()
	}
}

// sliceIdentity is the comparable handle of a slice: backing array pointer
// plus length. Two reslices of the same backing array with the same length
// compare equal, which is the deliberate contract here.
type sliceIdentity struct {
	ptr uintptr
	len int
}

// Identity returns a comparable handle for change detection. Slices, maps,
// pointers, channels and funcs compare by handle; comparable values compare
// by value. This is the explicit rendering of the reference-equality gate
// the derivation pipeline and the reconciliation engine rely on.
func Identity(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		return sliceIdentity{ptr: rv.Pointer(), len: rv.Len()}
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return rv.Pointer()
	default:
		return v
	}
}

// SameIdentity reports whether two values share the same handle.
func SameIdentity(a, b any) bool {
	return Identity(a) == Identity(b)
}
