package ortho

import "testing"

func TestRegions_SingleRegionColoring(t *testing.T) {
	def, err := NewDefinition("single").
		State("A", nil).
		State("B", nil).
		State("C", nil).
		InitialState("A").
		Transition("A", "Go", "B", nil).
		Transition("B", "Go", "C", nil).
		Transition("C", "Back", "A", nil).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	regions := def.Regions()
	if len(regions) != 1 {
		t.Fatalf("expected one region, got %d", len(regions))
	}
	if regions[0].Initial != "A" {
		t.Fatalf("expected initial A, got %s", regions[0].Initial)
	}
	if len(regions[0].States) != 3 {
		t.Fatalf("expected 3 states, got %v", regions[0].States)
	}
}

func TestRegions_CyclicGraphTerminates(t *testing.T) {
	def, err := NewDefinition("cycle").
		State("A", nil).
		State("B", nil).
		InitialState("A").
		Transition("A", "Go", "B", nil).
		Transition("B", "Go", "A", nil).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(def.Regions()) != 1 {
		t.Fatalf("expected one region, got %d", len(def.Regions()))
	}
}

func TestRegions_UnreachableStateFailsBuild(t *testing.T) {
	_, err := NewDefinition("orphaned").
		State("A", nil).
		State("B", nil).
		State("Island", nil).
		State("Island2", nil).
		InitialState("A").
		Transition("A", "Go", "B", nil).
		Transition("Island", "Go", "Island2", nil).
		Build()
	if err == nil {
		t.Fatal("expected unreachable state error")
	}
	if GetErrorCode(err) != ErrCodeUnreachableState {
		t.Fatalf("expected unreachable state code, got %v", err)
	}
}

func TestRegions_EveryStateExactlyOneRegion(t *testing.T) {
	def, err := NewDefinition("two").
		State("A1", nil).
		State("A2", nil).
		State("B1", nil).
		State("B2", nil).
		InitialStates("A1", "B1").
		Transition("A1", "Go", "A2", nil).
		Transition("A2", "Back", "A1", nil).
		Transition("B1", "Go", "B2", nil).
		Transition("B2", "Back", "B1", nil).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	regions := def.Regions()
	if len(regions) != 2 {
		t.Fatalf("expected two regions, got %d", len(regions))
	}

	seen := map[string]int{}
	for _, r := range regions {
		for _, s := range r.States {
			seen[s]++
		}
	}
	for s, n := range seen {
		if n != 1 {
			t.Fatalf("state %s belongs to %d regions", s, n)
		}
	}
}

func TestRegions_OverlappingInitialsFailBuild(t *testing.T) {
	_, err := NewDefinition("overlap").
		State("A", nil).
		State("B", nil).
		InitialStates("A", "B").
		Transition("A", "Go", "B", nil).
		Build()
	if err == nil {
		t.Fatal("expected overlap error")
	}
	if !IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRegions_CrossRegionTransitionFailsBuild(t *testing.T) {
	_, err := NewDefinition("cross").
		State("A1", nil).
		State("A2", nil).
		State("B1", nil).
		InitialStates("A1", "B1").
		Transition("A1", "Go", "A2", nil).
		Transition("B1", "Jump", "A2", nil).
		Build()
	// B1's edge makes A2 reachable from both initials; the first DFS
	// colors it into region 0 and the declared B1 transition crosses.
	if err == nil {
		t.Fatal("expected cross-region error")
	}
	if !IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRegions_ErrorEdgeWeaving(t *testing.T) {
	def, err := NewDefinition("weave").
		State("Init", nil).
		State("Work", nil).
		State("Done", nil).
		State("Err", nil).
		InitialState("Init").
		ErrorState("Err").
		Transition("Init", "Go", "Work", nil).
		Transition("Work", "Finish", "Done", nil).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	region := def.Regions()[0]

	// initial-to-error edge precedes the declared transitions
	first := region.Transitions[0]
	if !first.Synthesized() || first.Source != "Init" || first.Target != "Err" || first.Event != EventError {
		t.Fatalf("expected synthesized Init->Err first, got %+v", first)
	}

	// declared transitions in declaration order
	if region.Transitions[1].Source != "Init" || region.Transitions[2].Source != "Work" {
		t.Fatalf("declared transitions out of order: %+v", region.Transitions[1:3])
	}

	// every non-initial, non-error state gets an error edge after the
	// declared transitions
	sources := map[string]bool{}
	for _, tr := range region.Transitions[3:] {
		if !tr.Synthesized() {
			t.Fatalf("expected only synthesized edges at the tail, got %+v", tr)
		}
		if tr.Target != "Err" || tr.Event != EventError {
			t.Fatalf("unexpected synthesized edge: %+v", tr)
		}
		sources[tr.Source] = true
	}
	if !sources["Work"] || !sources["Done"] {
		t.Fatalf("missing error edges: %v", sources)
	}
	if sources["Init"] || sources["Err"] {
		t.Fatalf("initial or error state received a tail error edge: %v", sources)
	}
}

func TestRegions_MultiSourceExpansion(t *testing.T) {
	def, err := NewDefinition("multisource").
		State("A", nil).
		State("B", nil).
		State("C", nil).
		InitialState("A").
		Transition("A", "Start", "B", nil).
		Transition("B", "Go", "C", nil).
		TransitionFrom([]string{"A", "B", "C"}, "Restart", "A", nil).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	count := 0
	for _, tr := range def.Transitions() {
		if tr.Event == "Restart" {
			count++
		}
	}
	if count != 3 {
		t.Fatalf("expected 3 expanded transitions, got %d", count)
	}

	m, _ := New(def, nil)
	_ = m.Start()
	_ = m.ProcessEvent(Ev("Start"))
	_ = m.ProcessEvent(Ev("Go"))
	AssertCurrent(t, m, "C")
	if err := m.ProcessEvent(Ev("Restart")); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	AssertCurrent(t, m, "A")
}

func TestRegions_TransitionsKeepDeclarationOrderWithinRegion(t *testing.T) {
	def, err := NewDefinition("ordered").
		State("A", nil).
		State("B", nil).
		State("C", nil).
		InitialState("A").
		Transition("A", "E1", "B", nil).
		Transition("B", "E2", "C", nil).
		Transition("A", "E3", "C", nil).
		Transition("C", "E4", "A", nil).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	ids := []int{}
	for _, tr := range def.Regions()[0].Transitions {
		ids = append(ids, tr.ID)
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] < ids[i-1] {
			t.Fatalf("transition order not preserved: %v", ids)
		}
	}
}
