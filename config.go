package ortho

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Registry resolves the names used in YAML definitions to Go values:
// state factories, guards, actions, event constructors and nested
// definitions for submachine states.
type Registry struct {
	states      map[string]StateFactory
	guards      map[string]GuardFunc
	actions     map[string]ActionFunc
	events      map[string]func() Event
	definitions map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		states:      make(map[string]StateFactory),
		guards:      make(map[string]GuardFunc),
		actions:     make(map[string]ActionFunc),
		events:      make(map[string]func() Event),
		definitions: make(map[string]*Definition),
	}
}

// RegisterState binds a state name to its instance factory. Unregistered
// states fall back to a stateless BaseState.
func (r *Registry) RegisterState(name string, factory StateFactory) *Registry {
	r.states[name] = factory
	return r
}

// RegisterGuard binds a guard name usable in transition declarations.
func (r *Registry) RegisterGuard(name string, guard GuardFunc) *Registry {
	r.guards[name] = guard
	return r
}

// RegisterAction binds an action name usable in transition declarations.
func (r *Registry) RegisterAction(name string, action ActionFunc) *Registry {
	r.actions[name] = action
	return r
}

// RegisterEvent binds an event name to a constructor, used by timer
// declarations.
func (r *Registry) RegisterEvent(name string, ctor func() Event) *Registry {
	r.events[name] = ctor
	return r
}

// RegisterDefinition binds a built definition so submachine states can
// reference it by name.
func (r *Registry) RegisterDefinition(name string, def *Definition) *Registry {
	r.definitions[name] = def
	return r
}

type yamlTransition struct {
	From   string   `yaml:"from"`
	Froms  []string `yaml:"from_any"`
	Event  string   `yaml:"event"`
	To     string   `yaml:"to"`
	Kind   string   `yaml:"kind"`
	Guard  string   `yaml:"guard"`
	Action string   `yaml:"action"`
}

type yamlState struct {
	Name string `yaml:"name"`
}

type yamlSubmachine struct {
	State      string `yaml:"state"`
	Definition string `yaml:"definition"`
}

type yamlHistory struct {
	Event  string `yaml:"event"`
	Target string `yaml:"target"`
}

type yamlInterrupt struct {
	State  string   `yaml:"state"`
	Resume []string `yaml:"resume"`
}

type yamlTimer struct {
	State string `yaml:"state"`
	After string `yaml:"after"`
	Event string `yaml:"event"`
}

type yamlDefinition struct {
	Name           string           `yaml:"name"`
	Initial        []string         `yaml:"initial"`
	ErrorState     string           `yaml:"error_state"`
	CopyableEvents bool             `yaml:"copyable_events"`
	States         []yamlState      `yaml:"states"`
	Submachines    []yamlSubmachine `yaml:"submachines"`
	ShallowHistory []yamlHistory    `yaml:"shallow_history"`
	Interrupts     []yamlInterrupt  `yaml:"interrupts"`
	Transitions    []yamlTransition `yaml:"transitions"`
	Timers         []yamlTimer      `yaml:"timers"`
}

// Loader builds definitions from YAML documents, resolving names through
// a registry.
type Loader struct {
	registry *Registry
}

// NewLoader creates a loader over the given registry.
func NewLoader(registry *Registry) *Loader {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Loader{registry: registry}
}

// Load parses a YAML definition document and builds it.
func (l *Loader) Load(data []byte) (*Definition, error) {
	var doc yamlDefinition
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewConfigurationError("Loader", fmt.Sprintf("invalid yaml: %v", err))
	}
	if doc.Name == "" {
		return nil, NewConfigurationError("Loader", "definition has no name")
	}

	b := NewDefinition(doc.Name)

	for _, st := range doc.States {
		b.State(st.Name, l.registry.states[st.Name])
	}
	for _, sub := range doc.Submachines {
		def, ok := l.registry.definitions[sub.Definition]
		if !ok {
			return nil, NewConfigurationError("Loader", fmt.Sprintf("submachine definition '%s' is not registered", sub.Definition))
		}
		b.SubMachine(sub.State, l.registry.states[sub.State], def)
	}

	b.InitialStates(doc.Initial...)
	if doc.ErrorState != "" {
		b.ErrorState(doc.ErrorState)
	}
	if doc.CopyableEvents {
		b.CopyableEvents()
	}
	for _, h := range doc.ShallowHistory {
		b.ShallowHistory(h.Event, h.Target)
	}
	for _, ie := range doc.Interrupts {
		b.InterruptState(ie.State, ie.Resume...)
	}

	for i, t := range doc.Transitions {
		var guard GuardFunc
		if t.Guard != "" {
			g, ok := l.registry.guards[t.Guard]
			if !ok {
				return nil, NewConfigurationError("Loader", fmt.Sprintf("guard '%s' is not registered", t.Guard))
			}
			guard = g
		}
		var action ActionFunc
		if t.Action != "" {
			a, ok := l.registry.actions[t.Action]
			if !ok {
				return nil, NewConfigurationError("Loader", fmt.Sprintf("action '%s' is not registered", t.Action))
			}
			action = a
		}

		switch t.Kind {
		case "", "normal":
			if len(t.Froms) > 0 {
				b.TransitionFrom(t.Froms, t.Event, t.To, action)
			} else if guard != nil {
				b.TransitionGuard(t.From, t.Event, t.To, action, guard)
			} else {
				b.Transition(t.From, t.Event, t.To, action)
			}
		case "self":
			if guard != nil {
				b.TransitionSelfGuard(t.From, t.Event, action, guard)
			} else {
				b.TransitionSelf(t.From, t.Event, action)
			}
		case "internal":
			if guard != nil {
				b.TransitionInternalGuard(t.From, t.Event, action, guard)
			} else {
				b.TransitionInternal(t.From, t.Event, action)
			}
		default:
			return nil, NewConfigurationError("Loader", fmt.Sprintf("transition %d has unknown kind '%s'", i, t.Kind))
		}
	}

	for _, te := range doc.Timers {
		after, err := time.ParseDuration(te.After)
		if err != nil {
			return nil, NewConfigurationError("Loader", fmt.Sprintf("timer on '%s' has invalid duration '%s'", te.State, te.After))
		}
		ctor, ok := l.registry.events[te.Event]
		if !ok {
			return nil, NewConfigurationError("Loader", fmt.Sprintf("timer event '%s' is not registered", te.Event))
		}
		b.Timeout(te.State, after, ctor())
	}

	return b.Build()
}

// LoadFile reads and builds a YAML definition from disk.
func (l *Loader) LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return l.Load(data)
}
