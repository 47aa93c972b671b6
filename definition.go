package ortho

import (
	"fmt"
	"time"
)

// TransitionKind classifies how a transition treats the current state.
type TransitionKind int

const (
	// TransitionKindNormal moves from source to target with exit and entry.
	TransitionKindNormal TransitionKind = iota
	// TransitionKindInternal runs only the action; the current state is
	// untouched and neither exit nor entry fires.
	TransitionKindInternal
	// TransitionKindSelf exits and re-enters the same state.
	TransitionKindSelf
)

// TransitionDef is one arm of the dispatch table: a (source, event) match
// with an optional guard, an optional action and a target.
type TransitionDef struct {
	ID     int
	Source string
	Event  string
	Target string
	Kind   TransitionKind
	Guard  GuardFunc
	Action ActionFunc

	synthesized bool
}

// Synthesized reports whether the transition was woven in by the compiler
// (error-recovery edges) rather than declared.
func (t TransitionDef) Synthesized() bool { return t.synthesized }

// HistoryEntry declares shallow history: when a transition into Target
// fires on Event, the submachine's current inner state is preserved
// instead of restarting it.
type HistoryEntry struct {
	Event  string
	Target string
}

// InterruptEntry masks all events while the machine sits in State, except
// the listed resume events.
type InterruptEntry struct {
	State  string
	Resume []string
}

// TimerEntry arms a timeout when State is entered. On expiry the event is
// enqueued on the deferred queue; when CancelOnExit is set, leaving the
// state disarms the timer.
type TimerEntry struct {
	State        string
	After        time.Duration
	Event        Event
	CancelOnExit bool
}

// StateDef couples a declared state name with its instance factory.
type StateDef struct {
	Name    string
	Factory StateFactory
}

// Region is a concurrently-active slice of the machine with its own
// current state, computed by region inference from the declared initial
// states.
type Region struct {
	ID      int
	Initial string
	// States in discovery order: initial first, error state and
	// transition endpoints as first referenced.
	States []string
	// Transitions ordered for dispatch: the synthesized initial-to-error
	// edge, the declared transitions whose source lies in the region in
	// declaration order, then the synthesized per-state error edges.
	Transitions []TransitionDef
	Submachines []string
	Interrupts  []InterruptEntry
}

// Definition is the normalized description of one machine: the validated
// state graph partitioned into regions, ready to instantiate with New.
type Definition struct {
	name           string
	states         map[string]StateDef
	stateOrder     []string
	transitions    []TransitionDef
	initials       []string
	errorState     string
	submachines    map[string]*Definition
	subContexts    map[string]func(parent any) any
	history        []HistoryEntry
	interrupts     []InterruptEntry
	timers         []TimerEntry
	copyableEvents bool
	regions        []*Region
}

// Name returns the machine name.
func (d *Definition) Name() string { return d.name }

// Regions returns the inferred regions in declaration order.
func (d *Definition) Regions() []*Region { return d.regions }

// InitialStates returns the declared initial-state tuple, one per region.
func (d *Definition) InitialStates() []string { return d.initials }

// ErrorState returns the declared error state, or "" if none.
func (d *Definition) ErrorState() string { return d.errorState }

// States returns the declared state names in declaration order.
func (d *Definition) States() []string { return d.stateOrder }

// Transitions returns the declared transitions in declaration order,
// without the synthesized error-recovery edges.
func (d *Definition) Transitions() []TransitionDef { return d.transitions }

// IsSubmachine reports whether the named state nests a machine.
func (d *Definition) IsSubmachine(name string) bool {
	_, ok := d.submachines[name]
	return ok
}

// Submachine returns the nested definition for a submachine state.
func (d *Definition) Submachine(name string) *Definition { return d.submachines[name] }

// ShallowHistoryEntries returns the declared shallow-history entries.
func (d *Definition) ShallowHistoryEntries() []HistoryEntry { return d.history }

// HasShallowHistory reports whether entering target on event preserves
// the submachine's inner state.
func (d *Definition) HasShallowHistory(event, target string) bool {
	for _, h := range d.history {
		if h.Event == event && h.Target == target {
			return true
		}
	}
	return false
}

// InterruptEntries returns the declared interrupt entries.
func (d *Definition) InterruptEntries() []InterruptEntry { return d.interrupts }

// Timers returns the declared timeout timers.
func (d *Definition) Timers() []TimerEntry { return d.timers }

// CopyableEvents reports whether events were marked cheaply copyable.
func (d *Definition) CopyableEvents() bool { return d.copyableEvents }

// DefinitionBuilder assembles a Definition through the declaration
// surface. Declaration order is significant: transitions dispatch in the
// order they were declared, and the initial-state tuple numbers the
// regions.
type DefinitionBuilder struct {
	def  *Definition
	errs []error
}

// NewDefinition starts a machine declaration.
func NewDefinition(name string) *DefinitionBuilder {
	return &DefinitionBuilder{
		def: &Definition{
			name:        name,
			states:      make(map[string]StateDef),
			submachines: make(map[string]*Definition),
			subContexts: make(map[string]func(parent any) any),
		},
	}
}

// State declares a state and its instance factory.
func (b *DefinitionBuilder) State(name string, factory StateFactory) *DefinitionBuilder {
	if factory == nil {
		factory = func(any) State { return BaseState{} }
	}
	if _, exists := b.def.states[name]; !exists {
		b.def.stateOrder = append(b.def.stateOrder, name)
	}
	b.def.states[name] = StateDef{Name: name, Factory: factory}
	return b
}

// InitialState declares the single initial state of a one-region machine.
func (b *DefinitionBuilder) InitialState(name string) *DefinitionBuilder {
	return b.InitialStates(name)
}

// InitialStates declares the initial-state tuple. Each element roots one
// orthogonal region.
func (b *DefinitionBuilder) InitialStates(names ...string) *DefinitionBuilder {
	b.def.initials = append(b.def.initials, names...)
	return b
}

// ErrorState declares the state that receives ErrorEvent redirections.
func (b *DefinitionBuilder) ErrorState(name string) *DefinitionBuilder {
	b.def.errorState = name
	return b
}

// SubMachine declares a state that nests a full machine. The factory
// builds the parent-facing state instance; sub is the nested definition.
func (b *DefinitionBuilder) SubMachine(name string, factory StateFactory, sub *Definition) *DefinitionBuilder {
	if sub == nil {
		b.errs = append(b.errs, NewConfigurationError("SubMachine", fmt.Sprintf("submachine '%s' has no definition", name)))
		return b
	}
	b.State(name, factory)
	b.def.submachines[name] = sub
	return b
}

// SubMachineContext sets how the nested machine's context derives from
// the parent context. Without it the submachine shares the parent context.
func (b *DefinitionBuilder) SubMachineContext(name string, fn func(parent any) any) *DefinitionBuilder {
	b.def.subContexts[name] = fn
	return b
}

// ShallowHistory preserves the submachine target's inner state when the
// transition into it fires on the given event.
func (b *DefinitionBuilder) ShallowHistory(event, target string) *DefinitionBuilder {
	b.def.history = append(b.def.history, HistoryEntry{Event: event, Target: target})
	return b
}

// InterruptState masks every event while the machine is in state, except
// the listed resume events.
func (b *DefinitionBuilder) InterruptState(state string, resume ...string) *DefinitionBuilder {
	b.def.interrupts = append(b.def.interrupts, InterruptEntry{State: state, Resume: resume})
	return b
}

// CopyableEvents marks events as cheaply copyable for dispatch.
func (b *DefinitionBuilder) CopyableEvents() *DefinitionBuilder {
	b.def.copyableEvents = true
	return b
}

// Transition declares a normal external transition.
func (b *DefinitionBuilder) Transition(source, event, target string, action ActionFunc) *DefinitionBuilder {
	return b.addTransition(source, event, target, TransitionKindNormal, action, nil)
}

// TransitionGuard declares a guarded external transition.
func (b *DefinitionBuilder) TransitionGuard(source, event, target string, action ActionFunc, guard GuardFunc) *DefinitionBuilder {
	return b.addTransition(source, event, target, TransitionKindNormal, action, guard)
}

// TransitionSelf declares a self-loop that exits and re-enters the state.
func (b *DefinitionBuilder) TransitionSelf(state, event string, action ActionFunc) *DefinitionBuilder {
	return b.addTransition(state, event, state, TransitionKindSelf, action, nil)
}

// TransitionSelfGuard declares a guarded self-loop.
func (b *DefinitionBuilder) TransitionSelfGuard(state, event string, action ActionFunc, guard GuardFunc) *DefinitionBuilder {
	return b.addTransition(state, event, state, TransitionKindSelf, action, guard)
}

// TransitionInternal declares a transition that runs only its action,
// leaving the current state untouched with no exit or entry.
func (b *DefinitionBuilder) TransitionInternal(state, event string, action ActionFunc) *DefinitionBuilder {
	return b.addTransition(state, event, state, TransitionKindInternal, action, nil)
}

// TransitionInternalGuard declares a guarded internal transition.
func (b *DefinitionBuilder) TransitionInternalGuard(state, event string, action ActionFunc, guard GuardFunc) *DefinitionBuilder {
	return b.addTransition(state, event, state, TransitionKindInternal, action, guard)
}

// TransitionFrom declares the same transition from each listed source, in
// order. This is the tuple-of-sources form of the declaration surface.
func (b *DefinitionBuilder) TransitionFrom(sources []string, event, target string, action ActionFunc) *DefinitionBuilder {
	for _, src := range sources {
		b.addTransition(src, event, target, TransitionKindNormal, action, nil)
	}
	return b
}

// Timeout arms a timer whenever state is entered; on expiry the event is
// placed on the deferred queue. The timer is cancelled on state exit.
func (b *DefinitionBuilder) Timeout(state string, after time.Duration, ev Event) *DefinitionBuilder {
	b.def.timers = append(b.def.timers, TimerEntry{State: state, After: after, Event: ev, CancelOnExit: true})
	return b
}

func (b *DefinitionBuilder) addTransition(source, event, target string, kind TransitionKind, action ActionFunc, guard GuardFunc) *DefinitionBuilder {
	b.def.transitions = append(b.def.transitions, TransitionDef{
		ID:     len(b.def.transitions),
		Source: source,
		Event:  event,
		Target: target,
		Kind:   kind,
		Guard:  guard,
		Action: action,
	})
	return b
}

// Build validates the declaration, infers the regions and weaves the
// error-recovery edges. The returned Definition is immutable and can be
// instantiated any number of times.
func (b *DefinitionBuilder) Build() (*Definition, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	d := b.def

	if len(d.initials) == 0 {
		return nil, NewConfigurationError(d.name, "no initial state declared")
	}
	for _, init := range d.initials {
		if _, ok := d.states[init]; !ok {
			return nil, NewConfigurationError(d.name, fmt.Sprintf("initial state '%s' is not declared", init))
		}
	}
	if d.errorState != "" {
		if _, ok := d.states[d.errorState]; !ok {
			return nil, NewConfigurationError(d.name, fmt.Sprintf("error state '%s' is not declared", d.errorState))
		}
	}
	for _, t := range d.transitions {
		if _, ok := d.states[t.Source]; !ok {
			return nil, NewConfigurationError(d.name, fmt.Sprintf("transition %d references undeclared source '%s'", t.ID, t.Source))
		}
		if _, ok := d.states[t.Target]; !ok {
			return nil, NewConfigurationError(d.name, fmt.Sprintf("transition %d references undeclared target '%s'", t.ID, t.Target))
		}
		if t.Event == "" {
			return nil, NewConfigurationError(d.name, fmt.Sprintf("transition %d has an empty event", t.ID))
		}
	}
	for _, h := range d.history {
		if !d.IsSubmachine(h.Target) {
			return nil, NewConfigurationError(d.name, fmt.Sprintf("shallow history target '%s' is not a submachine", h.Target))
		}
	}
	for _, ie := range d.interrupts {
		if _, ok := d.states[ie.State]; !ok {
			return nil, NewConfigurationError(d.name, fmt.Sprintf("interrupt state '%s' is not declared", ie.State))
		}
	}
	for _, te := range d.timers {
		if _, ok := d.states[te.State]; !ok {
			return nil, NewConfigurationError(d.name, fmt.Sprintf("timer state '%s' is not declared", te.State))
		}
		if te.Event == nil {
			return nil, NewConfigurationError(d.name, fmt.Sprintf("timer on state '%s' has no event", te.State))
		}
	}

	regions, err := inferRegions(d)
	if err != nil {
		return nil, err
	}
	d.regions = regions
	return d, nil
}
