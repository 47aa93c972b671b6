package ortho

// StateStore holds exactly one instance of every declared state for the
// machine's lifetime, plus a started flag per submachine. Instances are
// built from the declared factories with the machine context.
type StateStore struct {
	states     map[string]State
	order      []string
	subStarted map[string]bool
}

func newStateStore(d *Definition, context any) *StateStore {
	s := &StateStore{
		states:     make(map[string]State, len(d.stateOrder)),
		subStarted: make(map[string]bool),
	}
	for _, name := range d.stateOrder {
		s.states[name] = d.states[name].Factory(context)
		s.order = append(s.order, name)
	}
	for name := range d.submachines {
		s.subStarted[name] = false
	}
	return s
}

// Get returns the stored instance for a state name, or nil when the name
// is not declared.
func (s *StateStore) Get(name string) State {
	return s.states[name]
}

// Names returns the stored state names in declaration order.
func (s *StateStore) Names() []string {
	return s.order
}

// SubStarted reports whether the named submachine has been started at
// least once without shallow history.
func (s *StateStore) SubStarted(name string) bool {
	return s.subStarted[name]
}

func (s *StateStore) setSubStarted(name string) {
	s.subStarted[name] = true
}

// Lookup returns the stored instance with the given concrete type. It is
// the typed counterpart of Get for declarations whose state names map
// one-to-one onto Go types.
func Lookup[T State](s *StateStore) (T, bool) {
	for _, name := range s.order {
		if t, ok := s.states[name].(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}
