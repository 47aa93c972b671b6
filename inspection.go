package ortho

import "log"

// Transition ids reported to inspectors for lifecycle entries and exits
// that do not belong to a declared transition.
const (
	// TransitionIDStart marks initial-state entries performed by Start,
	// entries performed by CallOnEntry, and submachine inner entries made
	// under shallow history.
	TransitionIDStart = -1
	// TransitionIDStop marks exits performed by Stop, exits performed by
	// CallOnExit, and submachine inner exits when a submachine state is left.
	TransitionIDStop = -2
)

// Inspector observes machine execution. Hooks fire in dispatch order:
// OnProcessEvent, then per fired transition OnTransition, OnStateExit,
// OnAction, OnStateEntry; regions that decline an event report
// OnNoTransition. Inspectors never influence the dispatch outcome.
type Inspector interface {
	OnProcessEvent(current CurrentState, ev Event)
	OnTransition(transitionID int, source, target string, ec *EventContext)
	OnStateEntry(transitionID int, state string, ec *EventContext)
	OnStateExit(transitionID int, state string, ec *EventContext)
	OnAction(transitionID int, source, target string, ec *EventContext)
	OnNoTransition(current string, ec *EventContext)
}

// NullInspector is the default observer; every hook is a no-op.
type NullInspector struct{}

func (NullInspector) OnProcessEvent(CurrentState, Event)              {}
func (NullInspector) OnTransition(int, string, string, *EventContext) {}
func (NullInspector) OnStateEntry(int, string, *EventContext)         {}
func (NullInspector) OnStateExit(int, string, *EventContext)          {}
func (NullInspector) OnAction(int, string, string, *EventContext)     {}
func (NullInspector) OnNoTransition(string, *EventContext)            {}

// inspectorSet fans hooks out to every registered inspector.
type inspectorSet struct {
	inspectors []Inspector
}

func newInspectorSet() *inspectorSet {
	return &inspectorSet{}
}

func (s *inspectorSet) add(i Inspector) {
	s.inspectors = append(s.inspectors, i)
}

func (s *inspectorSet) notifyProcessEvent(current CurrentState, ev Event) {
	for _, i := range s.inspectors {
		i.OnProcessEvent(current, ev)
	}
}

func (s *inspectorSet) notifyTransition(id int, source, target string, ec *EventContext) {
	for _, i := range s.inspectors {
		i.OnTransition(id, source, target, ec)
	}
}

func (s *inspectorSet) notifyStateEntry(id int, state string, ec *EventContext) {
	for _, i := range s.inspectors {
		i.OnStateEntry(id, state, ec)
	}
}

func (s *inspectorSet) notifyStateExit(id int, state string, ec *EventContext) {
	for _, i := range s.inspectors {
		i.OnStateExit(id, state, ec)
	}
}

func (s *inspectorSet) notifyAction(id int, source, target string, ec *EventContext) {
	for _, i := range s.inspectors {
		i.OnAction(id, source, target, ec)
	}
}

func (s *inspectorSet) notifyNoTransition(current string, ec *EventContext) {
	for _, i := range s.inspectors {
		i.OnNoTransition(current, ec)
	}
}

// LogInspector traces machine execution through a standard logger.
type LogInspector struct {
	name   string
	logger *log.Logger
}

// NewLogInspector creates a logging inspector. A nil logger falls back to
// the default logger.
func NewLogInspector(name string, logger *log.Logger) *LogInspector {
	if logger == nil {
		logger = log.Default()
	}
	return &LogInspector{name: name, logger: logger}
}

func (l *LogInspector) OnProcessEvent(current CurrentState, ev Event) {
	l.logger.Printf("[%s] event %s in %s", l.name, ev.EventName(), current)
}

func (l *LogInspector) OnTransition(id int, source, target string, ec *EventContext) {
	l.logger.Printf("[%s] transition %d: %s -> %s on %s", l.name, id, source, target, ec.Event.EventName())
}

func (l *LogInspector) OnStateEntry(id int, state string, _ *EventContext) {
	l.logger.Printf("[%s] enter %s", l.name, state)
}

func (l *LogInspector) OnStateExit(id int, state string, _ *EventContext) {
	l.logger.Printf("[%s] exit %s", l.name, state)
}

func (l *LogInspector) OnAction(id int, source, target string, _ *EventContext) {
	l.logger.Printf("[%s] action %d: %s -> %s", l.name, id, source, target)
}

func (l *LogInspector) OnNoTransition(current string, ec *EventContext) {
	l.logger.Printf("[%s] no transition from %s on %s", l.name, current, ec.Event.EventName())
}
