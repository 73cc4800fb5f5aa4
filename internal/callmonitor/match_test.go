package callmonitor

import (
	"testing"

	"callmonitor_sdk/internal/callmonitor/domain"
)

func inboundCall(remoteURI string, startTime int64) domain.CallRecord {
	return domain.CallRecord{
		SessionID: "s1",
		Direction: domain.DirectionInbound,
		StartTime: startTime,
		SIPData:   &domain.SIPData{RemoteURI: remoteURI},
	}
}

func TestMatchSessionRejectsWithoutSIPData(t *testing.T) {
	sessions := []*domain.SignalingSession{
		{Direction: domain.DirectionInbound, From: "+15551230000", CreationTime: 1000},
	}
	call := domain.CallRecord{Direction: domain.DirectionInbound, StartTime: 1000}
	if got := MatchSession(sessions, call); got != nil {
		t.Fatalf("expected no match without sipData, got %v", got)
	}
}

func TestMatchSessionRejectsEmptySessionList(t *testing.T) {
	call := inboundCall("sip:+15551230000@host", 1000)
	if got := MatchSession(nil, call); got != nil {
		t.Fatalf("expected no match with no sessions, got %v", got)
	}
}

func TestMatchSessionRejectsDirectionMismatch(t *testing.T) {
	sessions := []*domain.SignalingSession{
		{Direction: domain.DirectionOutbound, To: "+15551230000", CreationTime: 1000},
	}
	call := inboundCall("sip:+15551230000@host", 1000)
	if got := MatchSession(sessions, call); got != nil {
		t.Fatalf("expected no match across directions, got %v", got)
	}
}

func TestMatchSessionRequiresRemoteURISubstring(t *testing.T) {
	sessions := []*domain.SignalingSession{
		{Direction: domain.DirectionInbound, From: "+15559990000", CreationTime: 1000},
	}
	call := inboundCall("sip:+15551230000@host", 1000)
	if got := MatchSession(sessions, call); got != nil {
		t.Fatalf("expected no match when from address is absent from remoteUri, got %v", got)
	}
}

func TestMatchSessionOutboundChecksToAddress(t *testing.T) {
	session := &domain.SignalingSession{
		ID:           "w1",
		Direction:    domain.DirectionOutbound,
		To:           "+15551230000",
		CreationTime: 1000,
	}
	call := domain.CallRecord{
		Direction: domain.DirectionOutbound,
		StartTime: 2000,
		SIPData:   &domain.SIPData{RemoteURI: "sip:+15551230000@host"},
	}
	if got := MatchSession([]*domain.SignalingSession{session}, call); got != session {
		t.Fatalf("expected outbound match on to address, got %v", got)
	}
}

func TestMatchSessionToleranceBoundary(t *testing.T) {
	session := &domain.SignalingSession{
		ID:           "w1",
		Direction:    domain.DirectionInbound,
		From:         "+15551230000",
		CreationTime: 100000,
	}
	sessions := []*domain.SignalingSession{session}

	within := inboundCall("sip:+15551230000@host", 100000+15000)
	if got := MatchSession(sessions, within); got != session {
		t.Fatalf("expected match at 15000ms gap, got %v", got)
	}

	beyond := inboundCall("sip:+15551230000@host", 100000+16001)
	if got := MatchSession(sessions, beyond); got != nil {
		t.Fatalf("expected no match beyond 16000ms gap, got %v", got)
	}
}

func TestMatchSessionOutboundEffectiveStartPrefersAnswerTime(t *testing.T) {
	// Creation was long ago but the answer time lines up with the call.
	session := &domain.SignalingSession{
		ID:           "w1",
		Direction:    domain.DirectionOutbound,
		To:           "+15551230000",
		CreationTime: 10000,
		StartTime:    200000,
	}
	call := domain.CallRecord{
		Direction: domain.DirectionOutbound,
		StartTime: 205000,
		SIPData:   &domain.SIPData{RemoteURI: "sip:+15551230000@host"},
	}
	if got := MatchSession([]*domain.SignalingSession{session}, call); got != session {
		t.Fatalf("expected match against answer time, got %v", got)
	}
}

func TestMatchSessionFirstMatchWins(t *testing.T) {
	first := &domain.SignalingSession{
		ID:           "w1",
		Direction:    domain.DirectionInbound,
		From:         "+15551230000",
		CreationTime: 1000,
	}
	second := &domain.SignalingSession{
		ID:           "w2",
		Direction:    domain.DirectionInbound,
		From:         "+15551230000",
		CreationTime: 1000,
	}
	call := inboundCall("sip:+15551230000@host", 1000)
	if got := MatchSession([]*domain.SignalingSession{first, second}, call); got != first {
		t.Fatalf("expected first qualifying session, got %v", got)
	}
}
