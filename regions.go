package ortho

import "fmt"

// Region inference partitions the declared state graph into orthogonal
// regions. Nodes are state names, edges are transitions with multiplicity
// ignored; each declared initial state seeds a depth-first traversal that
// colors every node it reaches with the region id. When an error state is
// declared, an edge from each initial state to the error state makes it
// reachable from every region, and recovery edges are woven from every
// other state afterwards.

const regionOrphan = -1

type stateGraph struct {
	color map[string]int
	order []string
	adj   map[string][]string
}

func newStateGraph() *stateGraph {
	return &stateGraph{
		color: make(map[string]int),
		adj:   make(map[string][]string),
	}
}

func (g *stateGraph) add(name string) {
	if _, ok := g.color[name]; ok {
		return
	}
	g.color[name] = regionOrphan
	g.order = append(g.order, name)
}

func (g *stateGraph) edge(from, to string) {
	g.adj[from] = append(g.adj[from], to)
}

// colorFrom colors every uncolored node reachable from root with id.
func (g *stateGraph) colorFrom(root string, id int) {
	stack := []string{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if g.color[n] != regionOrphan {
			continue
		}
		g.color[n] = id
		// push successors in reverse so discovery follows edge order
		next := g.adj[n]
		for i := len(next) - 1; i >= 0; i-- {
			if g.color[next[i]] == regionOrphan {
				stack = append(stack, next[i])
			}
		}
	}
}

func inferRegions(d *Definition) ([]*Region, error) {
	g := newStateGraph()

	for _, init := range d.initials {
		g.add(init)
		if d.errorState != "" {
			g.add(d.errorState)
			g.edge(init, d.errorState)
		}
	}
	for _, t := range d.transitions {
		g.add(t.Source)
		g.add(t.Target)
		g.edge(t.Source, t.Target)
	}

	for id, init := range d.initials {
		if g.color[init] != regionOrphan {
			return nil, NewConfigurationError(d.name, fmt.Sprintf(
				"initial state '%s' already belongs to region %d; regions may not overlap", init, g.color[init]))
		}
		g.colorFrom(init, id)
	}

	for _, name := range g.order {
		if g.color[name] == regionOrphan {
			return nil, NewUnreachableStateError(name)
		}
	}

	nextID := len(d.transitions)
	synth := func(source string) TransitionDef {
		t := TransitionDef{
			ID:          nextID,
			Source:      source,
			Event:       EventError,
			Target:      d.errorState,
			Kind:        TransitionKindNormal,
			synthesized: true,
		}
		nextID++
		return t
	}

	regions := make([]*Region, len(d.initials))
	for id, init := range d.initials {
		r := &Region{ID: id, Initial: init}
		if d.errorState != "" {
			r.Transitions = append(r.Transitions, synth(init))
		}
		regions[id] = r
	}

	for _, t := range d.transitions {
		src := g.color[t.Source]
		if tgt := g.color[t.Target]; tgt != src && t.Target != d.errorState {
			return nil, NewConfigurationError(d.name, fmt.Sprintf(
				"transition %d crosses regions: '%s' is in region %d, '%s' in region %d",
				t.ID, t.Source, src, t.Target, tgt))
		}
		regions[src].Transitions = append(regions[src].Transitions, t)
	}

	for _, name := range g.order {
		r := regions[g.color[name]]
		r.States = append(r.States, name)
		if d.IsSubmachine(name) {
			r.Submachines = append(r.Submachines, name)
		}
		for _, ie := range d.interrupts {
			if ie.State == name {
				r.Interrupts = append(r.Interrupts, ie)
			}
		}
		if d.errorState != "" && name != r.Initial && name != d.errorState {
			r.Transitions = append(r.Transitions, synth(name))
		}
	}

	return regions, nil
}
