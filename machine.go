package ortho

import (
	"sync"

	"github.com/google/uuid"
)

// Machine is a running instance of a Definition. It owns the state store,
// the current-state vector, the deferred event queue and one nested
// Machine per submachine state.
//
// Dispatch is serialized: concurrent ProcessEvent calls on the same
// machine queue up behind an internal lock. Callbacks run without the
// state lock held and observe state through the event context; a callback
// must not call ProcessEvent on its own machine — defer follow-up events
// through the queue instead.
type Machine struct {
	id      string
	def     *Definition
	context any
	states  *StateStore
	queue   EventQueue
	inspect *inspectorSet
	subs    map[string]*Machine
	timers  *timerSet

	// ExecuteQueuePre drains the deferred queue at the start of every
	// ProcessEvent call.
	ExecuteQueuePre bool
	// ExecuteQueuePost drains the deferred queue at the end of every
	// ProcessEvent call and after Start.
	ExecuteQueuePost bool

	procMu sync.Mutex // serializes dispatch

	mu      sync.RWMutex // guards current and started
	current CurrentState
	started bool

	inErrorDispatch bool
}

// New instantiates a machine from a built definition and a shared
// context. The current-state vector starts at the initial-state tuple;
// entry handlers do not run until Start.
func New(def *Definition, context any) (*Machine, error) {
	if def == nil || len(def.regions) == 0 {
		return nil, NewConfigurationError("Machine", "definition is not built")
	}

	m := &Machine{
		id:              uuid.NewString(),
		def:             def,
		context:         context,
		states:          newStateStore(def, context),
		queue:           NewEventQueue(),
		inspect:         newInspectorSet(),
		subs:            make(map[string]*Machine),
		ExecuteQueuePre: true,
	}
	m.current = m.initialVector()

	for name, subDef := range def.submachines {
		subCtx := context
		if fn := def.subContexts[name]; fn != nil {
			subCtx = fn(context)
		}
		sub, err := New(subDef, subCtx)
		if err != nil {
			return nil, err
		}
		m.subs[name] = sub
	}

	m.timers = newTimerSet(def.timers, m.queue)
	return m, nil
}

// ID returns the unique instance id of this machine.
func (m *Machine) ID() string { return m.id }

// Definition returns the definition this machine runs.
func (m *Machine) Definition() *Definition { return m.def }

// Context returns the shared machine context.
func (m *Machine) Context() any { return m.context }

// States returns the machine's state store.
func (m *Machine) States() *StateStore { return m.states }

// Queue returns the deferred event queue.
func (m *Machine) Queue() EventQueue { return m.queue }

// SetQueue replaces the deferred event queue. Call before Start.
func (m *Machine) SetQueue(q EventQueue) {
	m.queue = q
	m.timers = newTimerSet(m.def.timers, m.queue)
}

// Submachine returns the nested machine behind a submachine state, or nil
// when the name does not denote one. Events addressed to the child are
// dispatched by calling ProcessEvent on the returned handle.
func (m *Machine) Submachine(name string) *Machine { return m.subs[name] }

// AddInspector registers an observer on this machine. Submachines carry
// their own inspectors; register on the child handle to observe it.
func (m *Machine) AddInspector(i Inspector) {
	m.inspect.add(i)
}

// CurrentState returns a copy of the current-state vector.
func (m *Machine) CurrentState() CurrentState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.clone()
}

func (m *Machine) initialVector() CurrentState {
	v := make(CurrentState, len(m.def.regions))
	for i, r := range m.def.regions {
		v[i] = r.Initial
	}
	return v
}

func (m *Machine) currentOf(region int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current[region]
}

func (m *Machine) setCurrent(region int, state string) {
	m.mu.Lock()
	m.current[region] = state
	m.mu.Unlock()
}

func (m *Machine) newEventContext(ev Event, region int) *EventContext {
	return &EventContext{
		Event:   ev,
		Context: m.context,
		Region:  region,
		current: m.CurrentState(),
		queue:   m.queue,
	}
}

// Start resets the current-state vector to the initial tuple, runs every
// region's initial entry (recursively starting submachine initials),
// dispatches NoEvent and closes over anonymous transitions until none
// matches. Initial-entry failures go through the error-state machinery
// when an error state is declared and surface otherwise.
func (m *Machine) Start() error {
	m.procMu.Lock()
	defer m.procMu.Unlock()

	m.mu.Lock()
	m.current = m.initialVector()
	m.started = true
	m.mu.Unlock()

	for _, region := range m.def.regions {
		ec := m.newEventContext(NoEvent{}, region.ID)
		st := m.states.Get(region.Initial)
		if err := st.OnEntry(ec); err != nil {
			handled, herr := m.redirectError(NewTransitionError(region.Initial, "entry", err))
			if !handled {
				return herr
			}
			continue
		}
		m.inspect.notifyStateEntry(TransitionIDStart, region.Initial, ec)
		m.timers.startFor(region.Initial)

		if sub := m.subs[region.Initial]; sub != nil {
			if err := sub.Start(); err != nil {
				handled, herr := m.redirectError(NewTransitionError(region.Initial, "entry", err))
				if !handled {
					return herr
				}
				continue
			}
			m.states.setSubStarted(region.Initial)
		}
	}

	// anonymous-transition closure
	for {
		if err := m.dispatch(NoEvent{}); err != nil {
			break
		}
	}

	if m.ExecuteQueuePost {
		m.drainLocked()
	}
	return nil
}

// Stop exits every region's current state, leaf first for submachines.
// Exit errors are ignored.
func (m *Machine) Stop() error {
	m.procMu.Lock()
	defer m.procMu.Unlock()

	m.mu.RLock()
	started := m.started
	m.mu.RUnlock()
	if !started {
		return NewMachineNotStartedError("Stop")
	}

	cs := m.CurrentState()
	for _, region := range m.def.regions {
		name := cs[region.ID]
		ec := m.newEventContext(NoEvent{}, region.ID)
		if sub := m.subs[name]; sub != nil {
			_ = sub.Stop()
		}
		_ = m.states.Get(name).OnExit(ec)
		m.inspect.notifyStateExit(TransitionIDStop, name, ec)
		m.timers.cancelFor(name)
	}

	m.mu.Lock()
	m.started = false
	m.mu.Unlock()
	return nil
}

// ProcessEvent dispatches one event. It returns nil when at least one
// region fired, a NoTransition dispatch error when no region matched, an
// Interrupted dispatch error when an interrupt entry masked the event,
// and a handler failure when a callback errored without a declared error
// state.
func (m *Machine) ProcessEvent(ev Event) error {
	m.procMu.Lock()
	defer m.procMu.Unlock()

	m.mu.RLock()
	started := m.started
	m.mu.RUnlock()
	if !started {
		return NewMachineNotStartedError("ProcessEvent")
	}

	if m.ExecuteQueuePre {
		m.drainLocked()
	}
	err := m.dispatch(ev)
	if m.ExecuteQueuePost {
		m.drainLocked()
	}
	return err
}

// ExecuteQueuedEvents drains the deferred queue, dispatching each event
// in FIFO order. Actions may enqueue more events, which extends the
// drain.
func (m *Machine) ExecuteQueuedEvents() QueueStatus {
	m.procMu.Lock()
	defer m.procMu.Unlock()
	m.drainLocked()
	if m.queue.Len() > 0 {
		return QueueMoreEvents
	}
	return QueueEmpty
}

// drainLocked pops and dispatches until the queue is empty. Dispatch
// outcomes of queued events are not surfaced; a NoTransition on a queued
// event is not an error of the draining call.
func (m *Machine) drainLocked() {
	for {
		ev, ok := m.queue.Dequeue()
		if !ok {
			return
		}
		_ = m.dispatch(ev)
	}
}

// dispatch runs the per-event algorithm: interrupt filter, per-region arm
// scan in declaration order with first-match-wins, and result
// reconciliation across regions. procMu must be held.
func (m *Machine) dispatch(ev Event) error {
	cs := m.CurrentState()
	m.inspect.notifyProcessEvent(cs, ev)

	interrupted := false
	whitelisted := false
	interruptedState := ""
	for _, region := range m.def.regions {
		for _, ie := range region.Interrupts {
			if cs[region.ID] != ie.State {
				continue
			}
			if containsEvent(ie.Resume, ev.EventName()) {
				whitelisted = true
			} else {
				interrupted = true
				interruptedState = ie.State
			}
		}
	}
	if interrupted && !whitelisted {
		return NewInterruptedError(interruptedState, ev.EventName())
	}

	results := make([]error, len(m.def.regions))
	for _, region := range m.def.regions {
		current := m.currentOf(region.ID)
		ec := m.newEventContext(ev, region.ID)

		fired := false
		for i := range region.Transitions {
			t := &region.Transitions[i]
			if t.Source != current || t.Event != ev.EventName() {
				continue
			}
			if t.Guard != nil && !t.Guard(ec, m.states) {
				continue
			}
			results[region.ID] = m.fire(t, ec, region.ID)
			fired = true
			break
		}
		if !fired {
			m.inspect.notifyNoTransition(current, ec)
			results[region.ID] = NewNoTransitionError(current, ev.EventName())
		}
	}

	allDeclined := true
	anyFired := false
	var firstErr error
	for _, res := range results {
		switch {
		case res == nil:
			anyFired = true
			allDeclined = false
		case IsNoTransition(res):
		default:
			allDeclined = false
			if firstErr == nil {
				firstErr = res
			}
		}
	}
	if allDeclined {
		return NewNoTransitionError(cs.String(), ev.EventName())
	}
	if anyFired {
		return nil
	}
	return firstErr
}

// fire executes one matched transition in the sanctioned order: inner
// exit for submachine sources, source exit, action, state write, target
// entry, submachine start or inner entry. Handler failures redirect to
// the error state when one is declared.
func (m *Machine) fire(t *TransitionDef, ec *EventContext, region int) error {
	if t.Kind == TransitionKindInternal {
		src := m.states.Get(t.Source)
		m.inspect.notifyAction(t.ID, t.Source, t.Source, ec)
		if t.Action != nil {
			if err := t.Action(ec, src, src); err != nil {
				return m.failHandler(t.Source, "action", err)
			}
		}
		return nil
	}

	source := m.states.Get(t.Source)
	target := m.states.Get(t.Target)

	m.inspect.notifyTransition(t.ID, t.Source, t.Target, ec)

	if sub := m.subs[t.Source]; sub != nil {
		inner := sub.CurrentState()
		for rid, name := range inner {
			if err := sub.callOnExit(name, rid); err != nil {
				return m.failHandler(t.Source, "exit", err)
			}
		}
	}

	if err := source.OnExit(ec); err != nil {
		return m.failHandler(t.Source, "exit", err)
	}
	m.inspect.notifyStateExit(t.ID, t.Source, ec)
	m.timers.cancelFor(t.Source)

	m.inspect.notifyAction(t.ID, t.Source, t.Target, ec)
	if t.Action != nil {
		if err := t.Action(ec, source, target); err != nil {
			return m.failHandler(t.Source, "action", err)
		}
	}

	m.setCurrent(region, t.Target)
	ec.current = m.CurrentState()

	if err := target.OnEntry(ec); err != nil {
		return m.failHandler(t.Target, "entry", err)
	}
	m.inspect.notifyStateEntry(t.ID, t.Target, ec)
	m.timers.startFor(t.Target)

	if sub := m.subs[t.Target]; sub != nil {
		preserve := !t.synthesized &&
			m.def.HasShallowHistory(t.Event, t.Target) &&
			m.states.SubStarted(t.Target)
		if preserve {
			inner := sub.CurrentState()
			for rid, name := range inner {
				if err := sub.callOnEntry(name, rid); err != nil {
					return m.failHandler(t.Target, "entry", err)
				}
			}
		} else {
			if err := sub.Start(); err != nil {
				return m.failHandler(t.Target, "entry", err)
			}
			m.states.setSubStarted(t.Target)
		}
	}

	return nil
}

// failHandler wraps a callback failure and redirects it to the error
// state when one is declared. A handled redirection makes the original
// dispatch succeed.
func (m *Machine) failHandler(state, phase string, err error) error {
	terr := NewTransitionError(state, phase, err)
	handled, herr := m.redirectError(terr)
	if handled {
		return nil
	}
	return herr
}

// redirectError re-enters dispatch with a synthesized ErrorEvent. The
// error state must not itself fail; if it does the machine is broken.
func (m *Machine) redirectError(terr *TransitionError) (bool, error) {
	if m.def.errorState == "" {
		return false, terr
	}
	if m.inErrorDispatch {
		return false, NewMachineBrokenError("dispatch", terr)
	}
	m.inErrorDispatch = true
	defer func() { m.inErrorDispatch = false }()

	if err := m.dispatch(ErrorEvent{Cause: terr}); err != nil {
		return false, NewMachineBrokenError("dispatch", terr)
	}
	return true, nil
}

// CallOnEntry invokes the entry handler and inspection hook for a state
// by name, outside any transition.
func (m *Machine) CallOnEntry(state string) error {
	region, ok := m.regionOf(state)
	if !ok {
		return NewStateNotFoundError(state)
	}
	return m.callOnEntry(state, region)
}

// CallOnExit invokes the exit handler and inspection hook for a state by
// name, outside any transition.
func (m *Machine) CallOnExit(state string) error {
	region, ok := m.regionOf(state)
	if !ok {
		return NewStateNotFoundError(state)
	}
	return m.callOnExit(state, region)
}

func (m *Machine) callOnEntry(state string, region int) error {
	st := m.states.Get(state)
	if st == nil {
		return NewStateNotFoundError(state)
	}
	ec := m.newEventContext(NoEvent{}, region)
	if err := st.OnEntry(ec); err != nil {
		return NewTransitionError(state, "entry", err)
	}
	m.inspect.notifyStateEntry(TransitionIDStart, state, ec)
	return nil
}

func (m *Machine) callOnExit(state string, region int) error {
	st := m.states.Get(state)
	if st == nil {
		return NewStateNotFoundError(state)
	}
	ec := m.newEventContext(NoEvent{}, region)
	if err := st.OnExit(ec); err != nil {
		return NewTransitionError(state, "exit", err)
	}
	m.inspect.notifyStateExit(TransitionIDStop, state, ec)
	return nil
}

func (m *Machine) regionOf(state string) (int, bool) {
	for _, r := range m.def.regions {
		for _, name := range r.States {
			if name == state {
				return r.ID, true
			}
		}
	}
	return 0, false
}

func containsEvent(events []string, name string) bool {
	for _, e := range events {
		if e == name {
			return true
		}
	}
	return false
}
