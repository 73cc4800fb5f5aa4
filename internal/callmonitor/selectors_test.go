package callmonitor

import (
	"testing"

	"callmonitor_sdk/internal/adapters/memstore"
	"callmonitor_sdk/internal/callmonitor/domain"
	"callmonitor_sdk/internal/callmonitor/ports"
	"callmonitor_sdk/internal/state"
)

func newTestPipeline(presence *fakePresence, account *fakeAccount, signaling *fakeSignaling, contact *fakeMatcher) (*pipeline, *memstore.Store) {
	store := memstore.New()
	store.RegisterReducer(callMatchedKey, callMatchedReducer)

	sig := ports.None[ports.SignalingStack]()
	if signaling != nil {
		sig = ports.Some[ports.SignalingStack](signaling)
	}
	cm := ports.None[ports.Matcher]()
	if contact != nil {
		cm = ports.Some[ports.Matcher](contact)
	}

	return newPipeline(presence, account, store, sig, cm, ports.None[ports.Matcher]()), store
}

func TestNormalizedCallsKeepsHandleWithoutInputChange(t *testing.T) {
	presence := &fakePresence{
		calls: []domain.CallRecord{
			inboundPresenceCall("s1", "(555) 123-0000", "(555) 999-0000", 1000, domain.StatusRinging, ""),
		},
		ready: true,
	}
	account := &fakeAccount{countryCode: "US", ready: true}
	p, _ := newTestPipeline(presence, account, nil, nil)

	first := p.NormalizedCalls()
	second := p.NormalizedCalls()
	if !state.SameIdentity(first, second) {
		t.Fatalf("expected cached handle while inputs unchanged")
	}

	// Replacing the feed handle invalidates the node.
	presence.calls = append([]domain.CallRecord{}, presence.calls...)
	third := p.NormalizedCalls()
	if state.SameIdentity(first, third) {
		t.Fatalf("expected recomputation after input handle change")
	}
}

func TestNormalizedCallsCanonicalizesAndSorts(t *testing.T) {
	presence := &fakePresence{
		calls: []domain.CallRecord{
			inboundPresenceCall("late", "(555) 123-0001", "", 2000, domain.StatusRinging, ""),
			inboundPresenceCall("early", "(555) 123-0000", "", 1000, domain.StatusRinging, ""),
		},
		ready: true,
	}
	account := &fakeAccount{countryCode: "US", ready: true}
	p, _ := newTestPipeline(presence, account, nil, nil)

	calls := p.NormalizedCalls()
	if calls[0].SessionID != "early" || calls[1].SessionID != "late" {
		t.Fatalf("expected ascending start-time order, got %s, %s", calls[0].SessionID, calls[1].SessionID)
	}
	if calls[0].From.PhoneNumber != "+15551230000" {
		t.Fatalf("expected canonical from number, got %q", calls[0].From.PhoneNumber)
	}
}

func TestNormalizedCallsPrefersSessionStartTime(t *testing.T) {
	session := &domain.SignalingSession{
		ID:           "w1",
		Direction:    domain.DirectionInbound,
		From:         "+15551230000",
		CreationTime: 1000,
		StartTime:    4000,
		State:        domain.SessionStateActive,
	}
	presence := &fakePresence{
		calls: []domain.CallRecord{
			inboundPresenceCall("s1", "+15551230000", "", 2000, domain.StatusCallConnected, "sip:+15551230000@host"),
		},
		ready: true,
	}
	signaling := &fakeSignaling{sessions: []*domain.SignalingSession{session}, ready: true}
	p, _ := newTestPipeline(presence, &fakeAccount{countryCode: "US", ready: true}, signaling, nil)

	calls := p.NormalizedCalls()
	if calls[0].Session != session {
		t.Fatalf("expected matched session attached")
	}
	if calls[0].StartTime != 4000 {
		t.Fatalf("expected session answer time 4000, got %d", calls[0].StartTime)
	}
}

func TestCallsJoinsContactAndActivityMappings(t *testing.T) {
	presence := &fakePresence{
		calls: []domain.CallRecord{
			inboundPresenceCall("s1", "+15551230000", "+15559990000", 1000, domain.StatusRinging, ""),
		},
		ready: true,
	}
	contact := &fakeMatcher{
		mapping: map[string][]domain.MatchCandidate{
			"+15551230000": {{ID: "c1", Name: "Caller"}},
			"+15559990000": {{ID: "c2", Name: "Callee"}},
		},
		ready: true,
	}
	p, store := newTestPipeline(presence, &fakeAccount{countryCode: "US", ready: true}, nil, contact)

	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if len(calls[0].FromMatches) != 1 || calls[0].FromMatches[0].ID != "c1" {
		t.Fatalf("expected from match c1, got %v", calls[0].FromMatches)
	}
	if len(calls[0].ToMatches) != 1 || calls[0].ToMatches[0].ID != "c2" {
		t.Fatalf("expected to match c2, got %v", calls[0].ToMatches)
	}

	// A persisted association surfaces on the joined view.
	store.Apply(setCallMatchedAction{SessionID: "s1", EntityID: "e1"})
	joined := p.Calls()
	if joined[0].ToNumberEntity != "e1" {
		t.Fatalf("expected persisted entity e1, got %q", joined[0].ToNumberEntity)
	}
}

func TestPartitionsSplitOnSessionState(t *testing.T) {
	ringing := &domain.SignalingSession{
		ID: "w1", Direction: domain.DirectionInbound, From: "+15551110000",
		CreationTime: 1000, State: domain.SessionStateRinging,
	}
	held := &domain.SignalingSession{
		ID: "w2", Direction: domain.DirectionInbound, From: "+15552220000",
		CreationTime: 1000, State: domain.SessionStateHeld,
	}
	active := &domain.SignalingSession{
		ID: "w3", Direction: domain.DirectionInbound, From: "+15553330000",
		CreationTime: 1000, State: domain.SessionStateActive,
	}
	presence := &fakePresence{
		calls: []domain.CallRecord{
			inboundPresenceCall("r", "+15551110000", "", 1000, domain.StatusRinging, "sip:+15551110000@host"),
			inboundPresenceCall("h", "+15552220000", "", 1000, domain.StatusOnHold, "sip:+15552220000@host"),
			inboundPresenceCall("a", "+15553330000", "", 1000, domain.StatusCallConnected, "sip:+15553330000@host"),
			inboundPresenceCall("o", "+15554440000", "", 1000, domain.StatusCallConnected, "sip:+15554440000@host"),
		},
		ready: true,
	}
	signaling := &fakeSignaling{
		sessions: []*domain.SignalingSession{ringing, held, active},
		ready:    true,
	}
	p, _ := newTestPipeline(presence, &fakeAccount{countryCode: "US", ready: true}, signaling, nil)

	if got := p.ActiveRingCalls(); len(got) != 1 || got[0].SessionID != "r" {
		t.Fatalf("expected ring partition [r], got %v", sessionIDsOf(got))
	}
	if got := p.ActiveOnHoldCalls(); len(got) != 1 || got[0].SessionID != "h" {
		t.Fatalf("expected on-hold partition [h], got %v", sessionIDsOf(got))
	}
	if got := p.ActiveCurrentCalls(); len(got) != 1 || got[0].SessionID != "a" {
		t.Fatalf("expected current partition [a], got %v", sessionIDsOf(got))
	}
	if got := p.OtherDeviceCalls(); len(got) != 1 || got[0].SessionID != "o" {
		t.Fatalf("expected other-device partition [o], got %v", sessionIDsOf(got))
	}
}

func TestOtherDeviceCallsExcludesJustEndedLocalSessions(t *testing.T) {
	ended := &domain.SignalingSession{
		ID: "w1", Direction: domain.DirectionInbound, From: "+15551230000",
		CreationTime: 1000, State: domain.SessionStateTerminated,
	}
	presence := &fakePresence{
		calls: []domain.CallRecord{
			inboundPresenceCall("s1", "+15551230000", "", 1000, domain.StatusCallConnected, "sip:+15551230000@host"),
		},
		ready: true,
	}
	signaling := &fakeSignaling{
		lastEnded: []*domain.SignalingSession{ended},
		ready:     true,
	}
	p, _ := newTestPipeline(presence, &fakeAccount{countryCode: "US", ready: true}, signaling, nil)

	if got := p.OtherDeviceCalls(); len(got) != 0 {
		t.Fatalf("expected just-ended call excluded from other-device view, got %v", sessionIDsOf(got))
	}
}

func TestUniqueNumbersDedupesInOrder(t *testing.T) {
	presence := &fakePresence{
		calls: []domain.CallRecord{
			inboundPresenceCall("s1", "+15551230000", "+15559990000", 1000, domain.StatusRinging, ""),
			inboundPresenceCall("s2", "+15551230000", "+15558880000", 2000, domain.StatusRinging, ""),
		},
		ready: true,
	}
	p, _ := newTestPipeline(presence, &fakeAccount{countryCode: "US", ready: true}, nil, nil)

	got := p.UniqueNumbers()
	want := []string{"+15551230000", "+15559990000", "+15558880000"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSessionIDsFollowFeedOrder(t *testing.T) {
	presence := &fakePresence{
		calls: []domain.CallRecord{
			inboundPresenceCall("s2", "+15551230000", "", 2000, domain.StatusRinging, ""),
			inboundPresenceCall("s1", "+15559990000", "", 1000, domain.StatusRinging, ""),
		},
		ready: true,
	}
	p, _ := newTestPipeline(presence, &fakeAccount{countryCode: "US", ready: true}, nil, nil)

	got := p.SessionIDs()
	if len(got) != 2 || got[0] != "s2" || got[1] != "s1" {
		t.Fatalf("expected feed order [s2 s1], got %v", got)
	}
}

func sessionIDsOf(calls []domain.MatchedCall) []string {
	ids := make([]string, 0, len(calls))
	for _, c := range calls {
		ids = append(ids, c.SessionID)
	}
	return ids
}
