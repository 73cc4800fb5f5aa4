package callmonitor

// Status is the module lifecycle state. A module's derived views are only
// valid while it is ready.
type Status string

const (
	StatusPending      Status = "pending"
	StatusInitializing Status = "initializing"
	StatusReady        Status = "ready"
	StatusResetting    Status = "resetting"
)

// Transition is the outcome of one lifecycle evaluation.
type Transition int

const (
	// TransitionNone: the evaluation was a no-op (idempotent re-check).
	TransitionNone Transition = iota
	// TransitionInitialized: pending -> initializing -> ready.
	TransitionInitialized
	// TransitionReset: ready -> resetting -> pending.
	TransitionReset
)

// Lifecycle is the dependency-gated state machine controlling when the
// derivation pipeline and the reconciliation engine may run. Only two
// transition chains exist; evaluating while already in the target state is
// a no-op.
type Lifecycle struct {
	status       Status
	onTransition func(from, to Status)
}

// NewLifecycle creates a lifecycle in the pending state. onTransition is
// invoked for every hop, including the transient initializing/resetting
// states; it may be nil.
func NewLifecycle(onTransition func(from, to Status)) *Lifecycle {
	return &Lifecycle{
		status:       StatusPending,
		onTransition: onTransition,
	}
}

// Status returns the current state.
func (l *Lifecycle) Status() Status {
	return l.status
}

// Ready reports whether the module may derive and reconcile.
func (l *Lifecycle) Ready() bool {
	return l.status == StatusReady
}

// Pending reports whether the module is waiting on its dependencies.
func (l *Lifecycle) Pending() bool {
	return l.status == StatusPending
}

// Evaluate applies the transition rule for the current dependency readiness:
// enter ready iff pending and every mandatory dependency reports ready;
// enter resetting -> pending iff ready and any mandatory dependency stopped
// reporting ready.
func (l *Lifecycle) Evaluate(depsReady bool) Transition {
	switch {
	case depsReady && l.status == StatusPending:
		l.step(StatusInitializing)
		l.step(StatusReady)
		return TransitionInitialized
	case !depsReady && l.status == StatusReady:
		l.step(StatusResetting)
		l.step(StatusPending)
		return TransitionReset
	default:
		return TransitionNone
	}
}

func (l *Lifecycle) step(to Status) {
	from := l.status
	l.status = to
	if l.onTransition != nil {
		l.onTransition(from, to)
	}
}
