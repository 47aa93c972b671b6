// Package ortho compiles declarative finite-state-machine definitions into
// runnable machines. A definition declares states, events, transitions,
// guards, actions, orthogonal regions, submachines, shallow history,
// interrupts and an optional error state; building it partitions the state
// graph into regions and validates reachability, and the resulting machine
// dispatches events into guarded transitions with entry/exit/action
// callbacks, inspection hooks, a deferred event queue and error-event
// redirection.
package ortho

// State is a single state of a machine. One instance of every declared
// state lives in the machine's StateStore for the machine's lifetime, so
// states may carry mutable fields that survive across transitions.
type State interface {
	OnEntry(ec *EventContext) error
	OnExit(ec *EventContext) error
}

// BaseState provides no-op entry and exit handlers for embedding.
type BaseState struct{}

func (BaseState) OnEntry(*EventContext) error { return nil }
func (BaseState) OnExit(*EventContext) error  { return nil }

// StateFactory constructs a state instance from the machine context.
type StateFactory func(context any) State

// GuardFunc decides whether a transition may fire. Guards must be pure:
// they may read the event, the context and the state store, but must not
// mutate anything.
type GuardFunc func(ec *EventContext, states *StateStore) bool

// ActionFunc runs while a transition fires, between the source's exit and
// the target's entry. For self and internal transitions source and target
// are the same instance. A nil ActionFunc on a transition means no action.
type ActionFunc func(ec *EventContext, source, target State) error
