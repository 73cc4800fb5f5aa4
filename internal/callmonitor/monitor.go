// Package callmonitor reconciles two independently refreshed views of the
// account's active calls: the server-reported presence feed and the local
// signaling-session list. It produces one deduplicated, ordered current-calls
// view and emits exactly one lifecycle notification per call-state
// transition.
package callmonitor

import (
	"context"
	"sync"

	"callmonitor_sdk/internal/callmonitor/domain"
	"callmonitor_sdk/internal/callmonitor/ports"
	"callmonitor_sdk/internal/events"
	"callmonitor_sdk/internal/state"
	"callmonitor_sdk/platform/apperr"
	"callmonitor_sdk/platform/logger"
)

const moduleName = "callMonitor"

// Callbacks are the per-transition hooks supplied at construction. Each
// fires at most once per call per reconciliation pass. Panics inside a
// callback are not isolated; they propagate to whoever triggered the pass.
type Callbacks struct {
	OnNewCall     func(domain.MatchedCall)
	OnRinging     func(domain.MatchedCall)
	OnCallUpdated func(domain.MatchedCall)
	OnCallEnded   func(domain.MatchedCall)
}

// Deps carries the monitor's collaborators. Presence, Account and Storage
// are mandatory; the rest may be nil. Bus and Logger are ambient
// infrastructure, not gating dependencies.
type Deps struct {
	Presence ports.PresenceSource
	Account  ports.AccountSource
	Storage  ports.Storage

	Signaling       ports.SignalingStack
	ContactMatcher  ports.Matcher
	ActivityMatcher ports.Matcher
	Call            ports.CallModule

	Bus       events.Bus
	Logger    *logger.Logger
	Callbacks Callbacks
}

// Monitor is the reconciliation engine plus its lifecycle controller. All
// derivation and diffing runs synchronously inside OnStateChange; passes
// are strictly sequential and never overlap.
type Monitor struct {
	presence ports.PresenceSource
	account  ports.AccountSource
	storage  ports.Storage

	signaling ports.Optional[ports.SignalingStack]
	contact   ports.Optional[ports.Matcher]
	activity  ports.Optional[ports.Matcher]
	call      ports.Optional[ports.CallModule]

	bus events.Bus
	log *logger.Logger
	cb  Callbacks

	lifecycle *Lifecycle
	pipeline  *pipeline

	// viewMu guards the pipeline caches and the last-processed snapshots.
	// It is released before callbacks fire so consumers may read views from
	// inside a callback.
	viewMu sync.Mutex

	// flagMu guards the pass coalescing flags. A notification arriving
	// while a pass is running marks rerun and returns; the running pass
	// picks it up before finishing.
	flagMu sync.Mutex
	inPass bool
	rerun  bool

	lastProcessedCalls   []domain.MatchedCall
	lastProcessedNumbers []string
	lastProcessedIDs     []string
}

// New wires a Monitor. It fails fast when a mandatory collaborator is
// absent, registers the association reducer with storage, and registers the
// monitor's derived queries with the optional matchers.
func New(deps Deps) (*Monitor, error) {
	if deps.Presence == nil {
		return nil, apperr.MissingDependency("presence").WithOp("callmonitor.New")
	}
	if deps.Account == nil {
		return nil, apperr.MissingDependency("account").WithOp("callmonitor.New")
	}
	if deps.Storage == nil {
		return nil, apperr.MissingDependency("storage").WithOp("callmonitor.New")
	}
	if deps.Logger == nil {
		return nil, apperr.MissingDependency("logger").WithOp("callmonitor.New")
	}

	m := &Monitor{
		presence:  deps.Presence,
		account:   deps.Account,
		storage:   deps.Storage,
		signaling: optional(deps.Signaling),
		contact:   optional(deps.ContactMatcher),
		activity:  optional(deps.ActivityMatcher),
		call:      optional(deps.Call),
		bus:       deps.Bus,
		log:       deps.Logger,
		cb:        deps.Callbacks,
	}

	m.lifecycle = NewLifecycle(func(from, to Status) {
		m.log.ModuleTransition(moduleName, string(from), string(to))
	})

	m.storage.RegisterReducer(callMatchedKey, callMatchedReducer)

	m.pipeline = newPipeline(
		m.presence, m.account, m.storage,
		m.signaling, m.contact, m.activity,
	)

	if cm, ok := m.contact.Get(); ok {
		cm.AddQuerySource(
			func() []string { return m.UniqueNumbers() },
			func() bool { return m.account.Ready() && m.presence.Ready() },
		)
	}
	if am, ok := m.activity.Get(); ok {
		am.AddQuerySource(
			func() []string { return m.SessionIDs() },
			func() bool { return m.presence.Ready() },
		)
	}

	return m, nil
}

// optional converts a possibly-nil collaborator into a tagged holder.
func optional[T comparable](v T) ports.Optional[T] {
	var zero T
	if v == zero {
		return ports.None[T]()
	}
	return ports.Some(v)
}

// OnStateChange is the single entry point for upstream change
// notifications. It evaluates the lifecycle gate and, when ready, runs one
// reconciliation pass. Notifications arriving mid-pass (including nested
// dispatches from the pass's own persistence writes) coalesce into a
// follow-up pass on the same goroutine.
func (m *Monitor) OnStateChange() {
	m.flagMu.Lock()
	if m.inPass {
		m.rerun = true
		m.flagMu.Unlock()
		return
	}
	m.inPass = true
	m.flagMu.Unlock()

	for {
		m.viewMu.Lock()
		fired := m.runPass()
		m.viewMu.Unlock()

		// Callbacks run outside viewMu, in diff order: new/updated first
		// (calls order), ended last.
		for _, f := range fired {
			f.fn(f.call)
		}

		m.flagMu.Lock()
		if !m.rerun {
			m.inPass = false
			m.flagMu.Unlock()
			return
		}
		m.rerun = false
		m.flagMu.Unlock()
	}
}

type firing struct {
	fn   func(domain.MatchedCall)
	call domain.MatchedCall
}

func (m *Monitor) runPass() []firing {
	switch m.lifecycle.Evaluate(m.depsReady()) {
	case TransitionInitialized:
		m.publish(events.MonitorReady{BaseEvent: events.NewBaseEvent()})
		// Freshly ready: the baseline is empty, so the pass below reports
		// every current call as new.
	case TransitionReset:
		m.lastProcessedCalls = nil
		m.lastProcessedNumbers = nil
		m.lastProcessedIDs = nil
		m.publish(events.MonitorReset{BaseEvent: events.NewBaseEvent()})
		return nil
	default:
		if !m.lifecycle.Ready() {
			return nil
		}
	}
	return m.process()
}

// depsReady gates the lifecycle on the mandatory collaborators only.
// Optional collaborators never block, whether absent or not ready; while a
// matcher is not ready its mapping is simply missing from the derived views.
func (m *Monitor) depsReady() bool {
	return m.account.Ready() && m.presence.Ready() && m.storage.Ready()
}

// process runs one diff-and-notify cycle against the freshly derived views.
// Every change gate below is handle identity: a derivation that returned
// its cached output is skipped for free.
func (m *Monitor) process() []firing {
	// A query change seen while its matcher is not ready is deferred, not
	// consumed: the handle stays pending and the trigger fires on the first
	// pass after the matcher recovers.
	uniqueNumbers := m.pipeline.UniqueNumbers()
	if !sameHandle(uniqueNumbers, m.lastProcessedNumbers) {
		if cm, ok := m.contact.Get(); ok {
			if cm.Ready() {
				m.lastProcessedNumbers = uniqueNumbers
				cm.TriggerMatch()
			}
		} else {
			m.lastProcessedNumbers = uniqueNumbers
		}
	}

	sessionIDs := m.pipeline.SessionIDs()
	if !sameHandle(sessionIDs, m.lastProcessedIDs) {
		if am, ok := m.activity.Get(); ok {
			if am.Ready() {
				m.lastProcessedIDs = sessionIDs
				am.TriggerMatch()
			}
		} else {
			m.lastProcessedIDs = sessionIDs
		}
	}

	calls := m.pipeline.Calls()
	if sameHandle(calls, m.lastProcessedCalls) {
		return nil
	}

	oldCalls := make([]domain.MatchedCall, len(m.lastProcessedCalls))
	copy(oldCalls, m.lastProcessedCalls)
	hadCalls := len(m.lastProcessedCalls) > 0
	m.lastProcessedCalls = calls

	callModule, hasCallModule := m.call.Get()

	if hasCallModule && hadCalls && len(calls) == 0 &&
		len(callModule.ToNumberEntities()) > 0 {
		// The only automatic eviction of persisted associations.
		callModule.CleanToNumberEntities()
		m.storage.Apply(cleanCallMatchedAction{})
	}

	var entities []domain.ToNumberEntity
	if hasCallModule {
		entities = append(entities, callModule.ToNumberEntities()...)
		domain.SortEntitiesByStartTime(entities)
	}

	var fired []firing
	for _, call := range calls {
		oldIndex := indexOfSession(oldCalls, call.SessionID)
		if oldIndex == -1 {
			if m.cb.OnNewCall != nil {
				fired = append(fired, firing{fn: m.cb.OnNewCall, call: call})
			}
			m.log.CallEvent("new", call.SessionID, string(call.TelephonyStatus))
			if m.cb.OnRinging != nil && call.IsRinging() {
				fired = append(fired, firing{fn: m.cb.OnRinging, call: call})
			}
		} else {
			oldCall := oldCalls[oldIndex]
			oldCalls = append(oldCalls[:oldIndex], oldCalls[oldIndex+1:]...)
			if call.TelephonyStatus != oldCall.TelephonyStatus {
				if m.cb.OnCallUpdated != nil {
					fired = append(fired, firing{fn: m.cb.OnCallUpdated, call: call})
				}
				m.log.CallEvent("updated", call.SessionID, string(call.TelephonyStatus))
			}
		}

		// Pair the call against the outstanding entity pool, start-time
		// order, first hit wins; the entity leaves the pool for the rest
		// of this pass. Injectivity across passes is not enforced here.
		for i, entity := range entities {
			if candidate, ok := findCandidate(call.ToMatches, entity.EntityID); ok {
				entities = append(entities[:i], entities[i+1:]...)
				m.storage.Apply(setCallMatchedAction{
					SessionID: call.SessionID,
					EntityID:  candidate.ID,
				})
				break
			}
		}
	}

	for _, call := range oldCalls {
		if m.cb.OnCallEnded != nil {
			fired = append(fired, firing{fn: m.cb.OnCallEnded, call: call})
		}
		m.log.CallEvent("ended", call.SessionID, string(call.TelephonyStatus))
	}

	return fired
}

func (m *Monitor) publish(event events.Event) {
	if m.bus != nil {
		m.bus.Publish(context.Background(), event)
	}
}

func indexOfSession(calls []domain.MatchedCall, sessionID string) int {
	for i, c := range calls {
		if c.SessionID == sessionID {
			return i
		}
	}
	return -1
}

func findCandidate(matches []domain.MatchCandidate, entityID string) (domain.MatchCandidate, bool) {
	for _, mc := range matches {
		if mc.ID == entityID {
			return mc, true
		}
	}
	return domain.MatchCandidate{}, false
}

// =============================================================================
// Exposed views
// =============================================================================

// Status returns the current lifecycle state.
func (m *Monitor) Status() Status {
	m.viewMu.Lock()
	defer m.viewMu.Unlock()
	return m.lifecycle.Status()
}

// Ready reports whether the reconciled views are currently valid.
func (m *Monitor) Ready() bool {
	m.viewMu.Lock()
	defer m.viewMu.Unlock()
	return m.lifecycle.Ready()
}

// Calls is the reconciled, deduplicated current-calls view, ascending by
// start time.
func (m *Monitor) Calls() []domain.MatchedCall {
	m.viewMu.Lock()
	defer m.viewMu.Unlock()
	return m.pipeline.Calls()
}

// ActiveRingCalls are calls whose local session is ringing.
func (m *Monitor) ActiveRingCalls() []domain.MatchedCall {
	m.viewMu.Lock()
	defer m.viewMu.Unlock()
	return m.pipeline.ActiveRingCalls()
}

// ActiveOnHoldCalls are calls whose local session is held.
func (m *Monitor) ActiveOnHoldCalls() []domain.MatchedCall {
	m.viewMu.Lock()
	defer m.viewMu.Unlock()
	return m.pipeline.ActiveOnHoldCalls()
}

// ActiveCurrentCalls are calls with a live local session that is neither
// ringing nor held.
func (m *Monitor) ActiveCurrentCalls() []domain.MatchedCall {
	m.viewMu.Lock()
	defer m.viewMu.Unlock()
	return m.pipeline.ActiveCurrentCalls()
}

// OtherDeviceCalls are presence calls with no local session, excluding
// calls matched to a just-ended local session.
func (m *Monitor) OtherDeviceCalls() []domain.MatchedCall {
	m.viewMu.Lock()
	defer m.viewMu.Unlock()
	return m.pipeline.OtherDeviceCalls()
}

// UniqueNumbers is the ordered, deduplicated endpoint number list driving
// the contact matcher.
func (m *Monitor) UniqueNumbers() []string {
	m.viewMu.Lock()
	defer m.viewMu.Unlock()
	return m.pipeline.UniqueNumbers()
}

// SessionIDs is the ordered current session-ID list driving the activity
// matcher.
func (m *Monitor) SessionIDs() []string {
	m.viewMu.Lock()
	defer m.viewMu.Unlock()
	return m.pipeline.SessionIDs()
}

// HasRingingCalls reports whether any reconciled call is ringing.
func (m *Monitor) HasRingingCalls() bool {
	m.viewMu.Lock()
	defer m.viewMu.Unlock()
	return domain.HasRingingCalls(m.pipeline.Calls())
}

func sameHandle(a, b any) bool {
	return state.SameIdentity(a, b)
}
