// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"callmonitor_sdk/internal/callmonitor/domain"
	"callmonitor_sdk/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Call Monitor Lifecycle Events
// =============================================================================

// MonitorReady is published when the monitor's mandatory dependencies all
// report ready and the module starts reconciling.
type MonitorReady struct {
	BaseEvent
}

func (e MonitorReady) EventName() string { return "callmonitor.ready" }

// MonitorReset is published when a mandatory dependency stops reporting
// ready and the monitor drops its reconciliation baseline.
type MonitorReset struct {
	BaseEvent
}

func (e MonitorReset) EventName() string { return "callmonitor.reset" }

// =============================================================================
// Call Lifecycle Events
// =============================================================================

// CallPayload is the call snapshot carried by call lifecycle events.
type CallPayload struct {
	SessionID       string                 `json:"sessionId"`
	Direction       domain.Direction       `json:"direction"`
	From            string                 `json:"from"`
	To              string                 `json:"to"`
	TelephonyStatus domain.TelephonyStatus `json:"telephonyStatus"`
	OnAnotherDevice bool                   `json:"onAnotherDevice"`
}

// NewCallPayload builds the event payload for a reconciled call.
func NewCallPayload(call domain.MatchedCall) CallPayload {
	return CallPayload{
		SessionID:       call.SessionID,
		Direction:       call.Direction,
		From:            call.From.PhoneNumber,
		To:              call.To.PhoneNumber,
		TelephonyStatus: call.TelephonyStatus,
		OnAnotherDevice: call.Session == nil,
	}
}

// CallStarted is published when a call appears in the reconciled view.
type CallStarted struct {
	BaseEvent
	Call CallPayload `json:"call"`
}

func (e CallStarted) EventName() string { return "callmonitor.call.new" }

// CallRinging is published when a newly appeared call is ringing.
type CallRinging struct {
	BaseEvent
	Call CallPayload `json:"call"`
}

func (e CallRinging) EventName() string { return "callmonitor.call.ringing" }

// CallUpdated is published when an existing call's telephony status changes.
type CallUpdated struct {
	BaseEvent
	Call CallPayload `json:"call"`
}

func (e CallUpdated) EventName() string { return "callmonitor.call.updated" }

// CallEnded is published when a call drops out of the reconciled view.
type CallEnded struct {
	BaseEvent
	Call CallPayload `json:"call"`
}

func (e CallEnded) EventName() string { return "callmonitor.call.ended" }
