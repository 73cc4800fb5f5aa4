// Package domain provides the call data model for the call-monitor
// bounded context.
package domain

import "sort"

// Direction indicates which party initiated a call.
type Direction string

const (
	DirectionInbound  Direction = "Inbound"
	DirectionOutbound Direction = "Outbound"
)

// TelephonyStatus is the server-reported state of a presence call.
type TelephonyStatus string

const (
	StatusRinging       TelephonyStatus = "Ringing"
	StatusCallConnected TelephonyStatus = "CallConnected"
	StatusNoCall        TelephonyStatus = "NoCall"
	StatusOnHold        TelephonyStatus = "OnHold"
	StatusParkedCall    TelephonyStatus = "ParkedCall"
)

// Endpoint describes one side of a call as reported by the presence feed.
type Endpoint struct {
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name,omitempty"`
}

// SIPData carries the signaling metadata attached to a presence call.
type SIPData struct {
	RemoteURI string `json:"remoteUri"`
}

// CallRecord is a raw active-call entry from the presence feed. SessionID is
// unique per call leg; the feed is assumed to already deduplicate on it.
// Timestamps are unix milliseconds, matching the wire format.
type CallRecord struct {
	SessionID       string          `json:"sessionId"`
	Direction       Direction       `json:"direction"`
	From            Endpoint        `json:"from"`
	To              Endpoint        `json:"to"`
	StartTime       int64           `json:"startTime"`
	TelephonyStatus TelephonyStatus `json:"telephonyStatus"`
	SIPData         *SIPData        `json:"sipData,omitempty"`
}

// IsRinging reports whether the presence feed considers this call ringing.
func (c CallRecord) IsRinging() bool {
	return c.TelephonyStatus == StatusRinging
}

// SessionState is the live state of a local signaling session.
type SessionState string

const (
	SessionStateRinging    SessionState = "ringing"
	SessionStateActive     SessionState = "active"
	SessionStateHeld       SessionState = "held"
	SessionStateTerminated SessionState = "terminated"
)

// SignalingSession is an opaque record from the softphone/WebRTC stack.
// The stack owns its lifetime; the monitor only holds lookup references.
// StartTime is zero until the call is answered.
type SignalingSession struct {
	ID           string       `json:"id"`
	Direction    Direction    `json:"direction"`
	From         string       `json:"from"`
	To           string       `json:"to"`
	CreationTime int64        `json:"creationTime"`
	StartTime    int64        `json:"startTime,omitempty"`
	State        SessionState `json:"state"`
}

// EffectiveStartTime is the session timestamp comparable against a presence
// call's start time. Inbound sessions exist from the INVITE, so creation
// time is the anchor; outbound sessions anchor on answer time when known.
func (s *SignalingSession) EffectiveStartTime() int64 {
	if s.Direction == DirectionOutbound && s.StartTime > 0 {
		return s.StartTime
	}
	return s.CreationTime
}

// IsRinging reports whether the session is still ringing locally.
func (s *SignalingSession) IsRinging() bool {
	return s.State == SessionStateRinging
}

// IsOnHold reports whether the session is held locally.
func (s *SignalingSession) IsOnHold() bool {
	return s.State == SessionStateHeld
}

// NormalizedCall is a CallRecord with canonical E.164 endpoint numbers, a
// start time preferring the matched session's answer time, and the matched
// local signaling session when one exists. Recomputed every derivation pass,
// never mutated in place.
type NormalizedCall struct {
	CallRecord
	Session *SignalingSession `json:"session,omitempty"`
}

// MatchCandidate is one contact- or activity-identity candidate produced by
// an external matcher.
type MatchCandidate struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// MatchedCall joins a NormalizedCall with its contact/activity candidates
// and the persisted CRM entity association for its session.
type MatchedCall struct {
	NormalizedCall
	FromMatches     []MatchCandidate `json:"fromMatches"`
	ToMatches       []MatchCandidate `json:"toMatches"`
	ActivityMatches []MatchCandidate `json:"activityMatches"`
	ToNumberEntity  string           `json:"toNumberEntity,omitempty"`
}

// ToNumberEntity is an outstanding CRM entity produced by the call module,
// awaiting pairing with a live call's contact matches.
type ToNumberEntity struct {
	EntityID  string `json:"entityId"`
	StartTime int64  `json:"startTime"`
}

// SortCallsByStartTime orders calls ascending by start time, in place.
// The sort is stable so feed order breaks ties.
func SortCallsByStartTime(calls []NormalizedCall) {
	sort.SliceStable(calls, func(i, j int) bool {
		return calls[i].StartTime < calls[j].StartTime
	})
}

// SortEntitiesByStartTime orders entities ascending by start time, in place.
func SortEntitiesByStartTime(entities []ToNumberEntity) {
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].StartTime < entities[j].StartTime
	})
}

// HasRingingCalls reports whether any call in the view is ringing.
func HasRingingCalls(calls []MatchedCall) bool {
	for _, c := range calls {
		if c.IsRinging() {
			return true
		}
	}
	return false
}
