package ortho

import (
	"sync"
	"testing"
)

// RecordingInspector captures every inspection hook for assertions.
type RecordingInspector struct {
	mutex         sync.Mutex
	Processed     []string
	Transitions   []TransitionRecord
	Entries       []string
	Exits         []string
	Actions       []TransitionRecord
	NoTransitions []string
}

type TransitionRecord struct {
	ID     int
	Source string
	Target string
}

// NewRecordingInspector creates a new recording inspector
func NewRecordingInspector() *RecordingInspector {
	return &RecordingInspector{}
}

func (r *RecordingInspector) OnProcessEvent(current CurrentState, ev Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Processed = append(r.Processed, ev.EventName())
}

func (r *RecordingInspector) OnTransition(id int, source, target string, _ *EventContext) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Transitions = append(r.Transitions, TransitionRecord{ID: id, Source: source, Target: target})
}

func (r *RecordingInspector) OnStateEntry(id int, state string, _ *EventContext) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Entries = append(r.Entries, state)
}

func (r *RecordingInspector) OnStateExit(id int, state string, _ *EventContext) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Exits = append(r.Exits, state)
}

func (r *RecordingInspector) OnAction(id int, source, target string, _ *EventContext) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Actions = append(r.Actions, TransitionRecord{ID: id, Source: source, Target: target})
}

func (r *RecordingInspector) OnNoTransition(current string, _ *EventContext) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.NoTransitions = append(r.NoTransitions, current)
}

// CountingState records its entry and exit invocations.
type CountingState struct {
	BaseState
	Entry int
	Exit  int
}

func (s *CountingState) OnEntry(*EventContext) error {
	s.Entry++
	return nil
}

func (s *CountingState) OnExit(*EventContext) error {
	s.Exit++
	return nil
}

func countingFactory() StateFactory {
	return func(any) State { return &CountingState{} }
}

// AssertCurrent fails the test unless the machine's vector matches.
func AssertCurrent(t *testing.T, m *Machine, expected ...string) {
	t.Helper()
	cs := m.CurrentState()
	if !cs.Equal(CurrentState(expected)) {
		t.Fatalf("expected current state %v, got %v", expected, cs)
	}
}

// AssertNoTransition fails the test unless err is the NoTransition outcome.
func AssertNoTransition(t *testing.T, err error) {
	t.Helper()
	if !IsNoTransition(err) {
		t.Fatalf("expected NoTransition, got %v", err)
	}
}

// AssertCounters fails the test unless the counting state saw the given
// entry and exit counts.
func AssertCounters(t *testing.T, m *Machine, state string, entry, exit int) {
	t.Helper()
	cs, ok := m.States().Get(state).(*CountingState)
	if !ok {
		t.Fatalf("state '%s' is not a CountingState", state)
	}
	if cs.Entry != entry || cs.Exit != exit {
		t.Fatalf("state '%s': expected entry=%d exit=%d, got entry=%d exit=%d",
			state, entry, exit, cs.Entry, cs.Exit)
	}
}

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

// Ev builds an ad-hoc named event for tests.
func Ev(name string) Event { return testEvent{name: name} }
