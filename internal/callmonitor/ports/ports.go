// Package ports defines the collaborator interfaces the call monitor
// consumes. The monitor never talks to concrete transports or stores;
// adapters implement these interfaces and the composition root wires them.
package ports

import (
	"callmonitor_sdk/internal/callmonitor/domain"
	"callmonitor_sdk/internal/state"
)

// PresenceSource exposes the server-reported active-call feed.
// Mandatory dependency.
type PresenceSource interface {
	// Calls returns the current feed. Implementations must return the same
	// slice handle until the feed actually changes; the derivation pipeline
	// gates recomputation on handle identity.
	Calls() []domain.CallRecord
	Ready() bool
}

// SignalingStack exposes the local softphone/WebRTC session list.
// Optional dependency: when absent, no call matches a local session and
// every call is reported as active on another device.
type SignalingStack interface {
	Sessions() []*domain.SignalingSession
	// LastEndedSessions are sessions that were active locally and have just
	// ended; used to suppress misreporting a freshly hung-up call as
	// ringing elsewhere.
	LastEndedSessions() []*domain.SignalingSession
	Ready() bool
}

// AccountSource exposes the account context needed for normalization.
// Mandatory dependency.
type AccountSource interface {
	CountryCode() string
	Ready() bool
}

// Matcher is an external contact- or activity-lookup collaborator.
// Optional dependency.
type Matcher interface {
	// DataMapping returns lookup results keyed by query (phone number for
	// contact matchers, session ID for activity matchers). Same-handle
	// contract as PresenceSource.Calls.
	DataMapping() map[string][]domain.MatchCandidate
	Ready() bool
	// AddQuerySource registers the query provider driving this matcher.
	AddQuerySource(getQueries func() []string, readyCheck func() bool)
	// TriggerMatch asks the matcher to refresh results for its queries.
	// It is invoked from inside a reconciliation pass and must not call
	// the registered query source synchronously.
	TriggerMatch()
}

// Storage persists module state across reconciliation cycles.
// Mandatory dependency.
type Storage interface {
	RegisterReducer(key string, r state.Reducer)
	GetItem(key string) any
	Apply(action state.Action)
	Ready() bool
}

// CallModule exposes outstanding CRM entities awaiting pairing with live
// calls. Optional dependency.
type CallModule interface {
	ToNumberEntities() []domain.ToNumberEntity
	CleanToNumberEntities()
	Ready() bool
}
