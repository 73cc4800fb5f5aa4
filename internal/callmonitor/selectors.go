package callmonitor

import (
	"callmonitor_sdk/internal/callmonitor/domain"
	"callmonitor_sdk/internal/callmonitor/ports"
	"callmonitor_sdk/internal/state"
	"callmonitor_sdk/platform/phone"
)

// selector is one node of the derivation pipeline: a pure computation cached
// against the identities of its declared inputs. Evaluation is a topological
// pull: deps() may itself evaluate upstream nodes, whose cached outputs are
// stable handles, so an unchanged upstream short-circuits everything below
// it. Nodes are not safe for concurrent use; the monitor serializes access.
type selector struct {
	deps     func() []any
	compute  func() any
	lastDeps []any
	cached   any
	valid    bool
}

func newSelector(deps func() []any, compute func() any) *selector {
	return &selector{deps: deps, compute: compute}
}

func (s *selector) value() any {
	deps := s.deps()
	ids := make([]any, len(deps))
	for i, d := range deps {
		ids[i] = state.Identity(d)
	}
	if s.valid && equalIdentities(ids, s.lastDeps) {
		return s.cached
	}
	s.cached = s.compute()
	s.lastDeps = ids
	s.valid = true
	return s.cached
}

func equalIdentities(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// pipeline derives the reconciled call views from the collaborators' raw
// state. Cache keys per node:
//
//	normalizedCalls: presence calls handle, country code, sessions handle
//	calls:           normalizedCalls handle, both mapping handles,
//	                 callMatched map handle
//	partitions:      calls handle (plus lastEndedSessions handle for
//	                 otherDeviceCalls)
//	uniqueNumbers:   normalizedCalls handle
//	sessionIDs:      presence calls handle
type pipeline struct {
	presence  ports.PresenceSource
	account   ports.AccountSource
	storage   ports.Storage
	signaling ports.Optional[ports.SignalingStack]
	contact   ports.Optional[ports.Matcher]
	activity  ports.Optional[ports.Matcher]

	normalizedCalls *selector
	calls           *selector
	ringCalls       *selector
	onHoldCalls     *selector
	currentCalls    *selector
	otherDevice     *selector
	uniqueNumbers   *selector
	sessionIDs      *selector
}

func newPipeline(
	presence ports.PresenceSource,
	account ports.AccountSource,
	storage ports.Storage,
	signaling ports.Optional[ports.SignalingStack],
	contact ports.Optional[ports.Matcher],
	activity ports.Optional[ports.Matcher],
) *pipeline {
	p := &pipeline{
		presence:  presence,
		account:   account,
		storage:   storage,
		signaling: signaling,
		contact:   contact,
		activity:  activity,
	}

	p.normalizedCalls = newSelector(
		func() []any {
			return []any{p.presence.Calls(), p.account.CountryCode(), p.sessions()}
		},
		func() any { return p.computeNormalizedCalls() },
	)

	p.calls = newSelector(
		func() []any {
			return []any{
				p.normalizedCalls.value(),
				p.contactMapping(),
				p.activityMapping(),
				p.callMatched(),
			}
		},
		func() any { return p.computeCalls() },
	)

	p.ringCalls = newSelector(
		func() []any { return []any{p.calls.value()} },
		func() any {
			return filterCalls(p.Calls(), func(c domain.MatchedCall) bool {
				return c.Session != nil && c.Session.IsRinging()
			})
		},
	)

	p.onHoldCalls = newSelector(
		func() []any { return []any{p.calls.value()} },
		func() any {
			return filterCalls(p.Calls(), func(c domain.MatchedCall) bool {
				return c.Session != nil && c.Session.IsOnHold()
			})
		},
	)

	p.currentCalls = newSelector(
		func() []any { return []any{p.calls.value()} },
		func() any {
			return filterCalls(p.Calls(), func(c domain.MatchedCall) bool {
				return c.Session != nil && !c.Session.IsOnHold() && !c.Session.IsRinging()
			})
		},
	)

	p.otherDevice = newSelector(
		func() []any { return []any{p.calls.value(), p.lastEndedSessions()} },
		func() any { return p.computeOtherDeviceCalls() },
	)

	p.uniqueNumbers = newSelector(
		func() []any { return []any{p.normalizedCalls.value()} },
		func() any { return p.computeUniqueNumbers() },
	)

	p.sessionIDs = newSelector(
		func() []any { return []any{p.presence.Calls()} },
		func() any { return p.computeSessionIDs() },
	)

	return p
}

func (p *pipeline) sessions() []*domain.SignalingSession {
	stack, ok := p.signaling.Get()
	if !ok {
		return nil
	}
	return stack.Sessions()
}

func (p *pipeline) lastEndedSessions() []*domain.SignalingSession {
	stack, ok := p.signaling.Get()
	if !ok {
		return nil
	}
	return stack.LastEndedSessions()
}

func (p *pipeline) contactMapping() map[string][]domain.MatchCandidate {
	m, ok := p.contact.Get()
	if !ok {
		return nil
	}
	return m.DataMapping()
}

func (p *pipeline) activityMapping() map[string][]domain.MatchCandidate {
	m, ok := p.activity.Get()
	if !ok {
		return nil
	}
	return m.DataMapping()
}

func (p *pipeline) callMatched() map[string]string {
	matched, _ := p.storage.GetItem(callMatchedKey).(map[string]string)
	return matched
}

func (p *pipeline) computeNormalizedCalls() []domain.NormalizedCall {
	raw := p.presence.Calls()
	country := p.account.CountryCode()
	sessions := p.sessions()

	out := make([]domain.NormalizedCall, 0, len(raw))
	for _, item := range raw {
		nc := domain.NormalizedCall{CallRecord: item}
		nc.From.PhoneNumber = phone.NormalizeE164(item.From.PhoneNumber, country)
		nc.To.PhoneNumber = phone.NormalizeE164(item.To.PhoneNumber, country)
		nc.Session = MatchSession(sessions, item)
		if nc.Session != nil && nc.Session.StartTime > 0 {
			nc.StartTime = nc.Session.StartTime
		}
		out = append(out, nc)
	}
	domain.SortCallsByStartTime(out)
	return out
}

func (p *pipeline) computeCalls() []domain.MatchedCall {
	normalized := p.NormalizedCalls()
	contactMapping := p.contactMapping()
	activityMapping := p.activityMapping()
	matched := p.callMatched()

	out := make([]domain.MatchedCall, 0, len(normalized))
	for _, nc := range normalized {
		mc := domain.MatchedCall{NormalizedCall: nc}
		if nc.From.PhoneNumber != "" {
			mc.FromMatches = contactMapping[nc.From.PhoneNumber]
		}
		if nc.To.PhoneNumber != "" {
			mc.ToMatches = contactMapping[nc.To.PhoneNumber]
		}
		mc.ActivityMatches = activityMapping[nc.SessionID]
		mc.ToNumberEntity = matched[nc.SessionID]
		out = append(out, mc)
	}
	return out
}

func (p *pipeline) computeOtherDeviceCalls() []domain.MatchedCall {
	lastEnded := p.lastEndedSessions()
	return filterCalls(p.Calls(), func(c domain.MatchedCall) bool {
		if c.Session != nil {
			return false
		}
		if lastEnded == nil {
			return true
		}
		// A call we just hung up locally is ending, not ringing elsewhere.
		return MatchSession(lastEnded, c.CallRecord) == nil
	})
}

func (p *pipeline) computeUniqueNumbers() []string {
	normalized := p.NormalizedCalls()
	out := make([]string, 0, len(normalized)*2)
	seen := make(map[string]bool, len(normalized)*2)
	add := func(number string) {
		if number != "" && !seen[number] {
			out = append(out, number)
			seen[number] = true
		}
	}
	for _, c := range normalized {
		add(c.From.PhoneNumber)
		add(c.To.PhoneNumber)
	}
	return out
}

func (p *pipeline) computeSessionIDs() []string {
	raw := p.presence.Calls()
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		out = append(out, c.SessionID)
	}
	return out
}

func filterCalls(calls []domain.MatchedCall, keep func(domain.MatchedCall) bool) []domain.MatchedCall {
	out := make([]domain.MatchedCall, 0, len(calls))
	for _, c := range calls {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Typed accessors. Each pulls its node, which recomputes only when an input
// handle changed since the previous pull.

func (p *pipeline) NormalizedCalls() []domain.NormalizedCall {
	return p.normalizedCalls.value().([]domain.NormalizedCall)
}

func (p *pipeline) Calls() []domain.MatchedCall {
	return p.calls.value().([]domain.MatchedCall)
}

func (p *pipeline) ActiveRingCalls() []domain.MatchedCall {
	return p.ringCalls.value().([]domain.MatchedCall)
}

func (p *pipeline) ActiveOnHoldCalls() []domain.MatchedCall {
	return p.onHoldCalls.value().([]domain.MatchedCall)
}

func (p *pipeline) ActiveCurrentCalls() []domain.MatchedCall {
	return p.currentCalls.value().([]domain.MatchedCall)
}

func (p *pipeline) OtherDeviceCalls() []domain.MatchedCall {
	return p.otherDevice.value().([]domain.MatchedCall)
}

func (p *pipeline) UniqueNumbers() []string {
	return p.uniqueNumbers.value().([]string)
}

func (p *pipeline) SessionIDs() []string {
	return p.sessionIDs.value().([]string)
}
