package ortho

import "testing"

func newDeferDefinition(t *testing.T) *Definition {
	t.Helper()
	def, err := NewDefinition("defer").
		State("S1", func(any) State { return &internalState{} }).
		InitialState("S1").
		TransitionInternal("S1", "Event3", func(ec *EventContext, _, _ State) error {
			ec.Enqueue(event2{})
			return nil
		}).
		TransitionInternal("S1", "Event2", func(ec *EventContext, source, _ State) error {
			source.(*internalState).InternalActions++
			return nil
		}).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return def
}

func TestQueue_FIFO(t *testing.T) {
	q := NewEventQueue()
	if _, ok := q.Dequeue(); ok {
		t.Fatal("expected empty queue")
	}

	q.Enqueue(event1{})
	q.Enqueue(event2{})
	if q.Len() != 2 {
		t.Fatalf("expected len 2, got %d", q.Len())
	}

	ev, ok := q.Dequeue()
	if !ok || ev.EventName() != "Event1" {
		t.Fatalf("expected Event1 first, got %v", ev)
	}
	ev, _ = q.Dequeue()
	if ev.EventName() != "Event2" {
		t.Fatalf("expected Event2 second, got %v", ev)
	}
}

func TestQueue_PostDrainRunsInSameCall(t *testing.T) {
	m, _ := New(newDeferDefinition(t), nil)
	m.ExecuteQueuePost = true
	_ = m.Start()

	mustProcess(t, m, event3{})

	s1 := m.States().Get("S1").(*internalState)
	if s1.InternalActions != 1 {
		t.Fatalf("expected post-drain to run the queued event, got %d", s1.InternalActions)
	}
	if m.Queue().Len() != 0 {
		t.Fatalf("expected empty queue, got %d", m.Queue().Len())
	}
}

func TestQueue_ExplicitDrainMatchesPostDrain(t *testing.T) {
	m, _ := New(newDeferDefinition(t), nil)
	m.ExecuteQueuePre = false
	_ = m.Start()

	mustProcess(t, m, event3{})
	s1 := m.States().Get("S1").(*internalState)
	if s1.InternalActions != 0 {
		t.Fatalf("queued event ran early: %d", s1.InternalActions)
	}

	if status := m.ExecuteQueuedEvents(); status != QueueEmpty {
		t.Fatalf("expected empty status, got %v", status)
	}
	if s1.InternalActions != 1 {
		t.Fatalf("expected drain to run the queued event, got %d", s1.InternalActions)
	}
}

func TestQueue_DrainExtendsWhileActionsEnqueue(t *testing.T) {
	count := 0
	def, err := NewDefinition("chained").
		State("S", nil).
		InitialState("S").
		TransitionInternal("S", "Tick", func(ec *EventContext, _, _ State) error {
			count++
			if count < 3 {
				ec.Enqueue(Ev("Tick"))
			}
			return nil
		}).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	m, _ := New(def, nil)
	m.ExecuteQueuePre = false
	_ = m.Start()

	m.Queue().Enqueue(Ev("Tick"))
	if status := m.ExecuteQueuedEvents(); status != QueueEmpty {
		t.Fatalf("expected queue to drain fully, got %v", status)
	}
	if count != 3 {
		t.Fatalf("expected chained drain to run 3 ticks, got %d", count)
	}
}

func TestQueue_CustomQueueImplementation(t *testing.T) {
	m, _ := New(newDeferDefinition(t), nil)
	custom := NewEventQueue()
	m.SetQueue(custom)
	_ = m.Start()

	mustProcess(t, m, event3{})
	if custom.Len() != 1 {
		t.Fatalf("expected the custom queue to receive the deferred event, got %d", custom.Len())
	}
}
