// Package memstore provides an in-memory Storage collaborator. It backs
// tests and deployments without a configured redis; persisted state lives
// only as long as the process.
package memstore

import (
	"callmonitor_sdk/internal/state"
)

// Store wraps a state container with the Storage collaborator surface.
// It is ready from construction.
type Store struct {
	container *state.Container
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{container: state.NewContainer()}
}

// RegisterReducer installs a reducer under a key.
func (s *Store) RegisterReducer(key string, r state.Reducer) {
	s.container.RegisterReducer(key, r)
}

// GetItem returns the current state for a key.
func (s *Store) GetItem(key string) any {
	return s.container.GetItem(key)
}

// Apply routes an action through the registered reducers.
func (s *Store) Apply(action state.Action) {
	s.container.Apply(action)
}

// OnChange registers a change listener.
func (s *Store) OnChange(fn func()) {
	s.container.OnChange(fn)
}

// Ready always reports true: there is no backing service to wait for.
func (s *Store) Ready() bool {
	return true
}
