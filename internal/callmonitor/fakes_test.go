package callmonitor

import (
	"callmonitor_sdk/internal/callmonitor/domain"
)

// Collaborator fakes shared by the selector and monitor tests. Each returns
// stable handles until mutated, matching the collaborator contract.

type fakePresence struct {
	calls []domain.CallRecord
	ready bool
}

func (f *fakePresence) Calls() []domain.CallRecord { return f.calls }
func (f *fakePresence) Ready() bool                { return f.ready }

type fakeSignaling struct {
	sessions  []*domain.SignalingSession
	lastEnded []*domain.SignalingSession
	ready     bool
}

func (f *fakeSignaling) Sessions() []*domain.SignalingSession          { return f.sessions }
func (f *fakeSignaling) LastEndedSessions() []*domain.SignalingSession { return f.lastEnded }
func (f *fakeSignaling) Ready() bool                                   { return f.ready }

type fakeAccount struct {
	countryCode string
	ready       bool
}

func (f *fakeAccount) CountryCode() string { return f.countryCode }
func (f *fakeAccount) Ready() bool         { return f.ready }

type fakeMatcher struct {
	mapping    map[string][]domain.MatchCandidate
	ready      bool
	triggered  int
	getQueries func() []string
	readyCheck func() bool
}

func (f *fakeMatcher) DataMapping() map[string][]domain.MatchCandidate { return f.mapping }
func (f *fakeMatcher) Ready() bool                                     { return f.ready }
func (f *fakeMatcher) TriggerMatch()                                   { f.triggered++ }

func (f *fakeMatcher) AddQuerySource(getQueries func() []string, readyCheck func() bool) {
	f.getQueries = getQueries
	f.readyCheck = readyCheck
}

type fakeCallModule struct {
	entities []domain.ToNumberEntity
	ready    bool
	cleaned  int
}

func (f *fakeCallModule) ToNumberEntities() []domain.ToNumberEntity { return f.entities }
func (f *fakeCallModule) Ready() bool                               { return f.ready }

func (f *fakeCallModule) CleanToNumberEntities() {
	f.cleaned++
	f.entities = nil
}

// callRecorder captures callback firings in order.
type callRecorder struct {
	newCalls []string
	ringing  []string
	updated  []string
	ended    []string
}

func (r *callRecorder) callbacks() Callbacks {
	return Callbacks{
		OnNewCall: func(c domain.MatchedCall) {
			r.newCalls = append(r.newCalls, c.SessionID)
		},
		OnRinging: func(c domain.MatchedCall) {
			r.ringing = append(r.ringing, c.SessionID)
		},
		OnCallUpdated: func(c domain.MatchedCall) {
			r.updated = append(r.updated, c.SessionID)
		},
		OnCallEnded: func(c domain.MatchedCall) {
			r.ended = append(r.ended, c.SessionID)
		},
	}
}

func (r *callRecorder) reset() {
	r.newCalls = nil
	r.ringing = nil
	r.updated = nil
	r.ended = nil
}

func (r *callRecorder) total() int {
	return len(r.newCalls) + len(r.ringing) + len(r.updated) + len(r.ended)
}

func inboundPresenceCall(sessionID, from, to string, startTime int64, status domain.TelephonyStatus, remoteURI string) domain.CallRecord {
	c := domain.CallRecord{
		SessionID:       sessionID,
		Direction:       domain.DirectionInbound,
		From:            domain.Endpoint{PhoneNumber: from},
		To:              domain.Endpoint{PhoneNumber: to},
		StartTime:       startTime,
		TelephonyStatus: status,
	}
	if remoteURI != "" {
		c.SIPData = &domain.SIPData{RemoteURI: remoteURI}
	}
	return c
}
