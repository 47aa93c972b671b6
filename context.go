package ortho

import "strings"

// CurrentState is the machine's current-state vector: one state name per
// region, indexed by region id. Single-region machines have one slot.
type CurrentState []string

// Leaf returns the current state of a single-region machine.
func (c CurrentState) Leaf() string {
	if len(c) == 0 {
		return ""
	}
	return c[0]
}

// Region returns the current state of the region with the given id.
func (c CurrentState) Region(id int) string {
	if id < 0 || id >= len(c) {
		return ""
	}
	return c[id]
}

// Equal reports whether two vectors hold the same states.
func (c CurrentState) Equal(other CurrentState) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

func (c CurrentState) String() string {
	if len(c) == 1 {
		return c[0]
	}
	return "(" + strings.Join(c, ", ") + ")"
}

func (c CurrentState) clone() CurrentState {
	out := make(CurrentState, len(c))
	copy(out, c)
	return out
}

// EventContext is handed to every guard, action, state handler and
// inspector during one dispatch. It snapshots the current-state vector at
// well-defined points so callbacks observe state without touching the
// machine's locks.
type EventContext struct {
	// Event is the event being dispatched.
	Event Event
	// Context is the shared machine context.
	Context any
	// Region is the id of the region being dispatched.
	Region int

	current CurrentState
	queue   EventQueue
}

// CurrentState returns the vector as of the last state write. Before the
// write it holds the pre-transition snapshot.
func (ec *EventContext) CurrentState() CurrentState {
	return ec.current
}

// Enqueue defers an event onto the machine's queue. The queue drains
// before or after dispatch depending on the machine's queue flags, or
// through ExecuteQueuedEvents.
func (ec *EventContext) Enqueue(ev Event) {
	ec.queue.Enqueue(ev)
}

// ErrorCause returns the failure carried by an ErrorEvent dispatch, or
// nil for any other event.
func (ec *EventContext) ErrorCause() error {
	if ev, ok := ec.Event.(ErrorEvent); ok {
		return ev.Cause
	}
	return nil
}
