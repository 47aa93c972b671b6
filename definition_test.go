package ortho

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefinition_BuildRequiresInitialState(t *testing.T) {
	_, err := NewDefinition("empty").
		State("A", nil).
		Build()
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestDefinition_BuildRejectsUndeclaredStates(t *testing.T) {
	_, err := NewDefinition("bad").
		State("A", nil).
		InitialState("A").
		Transition("A", "Go", "Ghost", nil).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ghost")

	_, err = NewDefinition("bad2").
		State("A", nil).
		InitialState("Missing").
		Build()
	require.Error(t, err)

	_, err = NewDefinition("bad3").
		State("A", nil).
		InitialState("A").
		ErrorState("Missing").
		Build()
	require.Error(t, err)
}

func TestDefinition_BuildRejectsEmptyEvent(t *testing.T) {
	_, err := NewDefinition("noevent").
		State("A", nil).
		State("B", nil).
		InitialState("A").
		Transition("A", "", "B", nil).
		Build()
	require.Error(t, err)
}

func TestDefinition_HistoryTargetMustBeSubmachine(t *testing.T) {
	_, err := NewDefinition("badhistory").
		State("A", nil).
		State("B", nil).
		InitialState("A").
		ShallowHistory("Go", "B").
		Transition("A", "Go", "B", nil).
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "submachine")
}

func TestDefinition_InterruptStateMustBeDeclared(t *testing.T) {
	_, err := NewDefinition("badinterrupt").
		State("A", nil).
		InitialState("A").
		InterruptState("Ghost", "Resume").
		Build()
	require.Error(t, err)
}

func TestDefinition_TimerValidation(t *testing.T) {
	_, err := NewDefinition("badtimer").
		State("A", nil).
		InitialState("A").
		Timeout("Ghost", time.Second, timeoutEvent{}).
		Build()
	require.Error(t, err)

	_, err = NewDefinition("badtimer2").
		State("A", nil).
		InitialState("A").
		Timeout("A", time.Second, nil).
		Build()
	require.Error(t, err)
}

func TestDefinition_Accessors(t *testing.T) {
	sub, err := NewDefinition("inner").
		State("I", nil).
		InitialState("I").
		Build()
	require.NoError(t, err)

	def, err := NewDefinition("outer").
		State("A", nil).
		SubMachine("Sub", nil, sub).
		State("Err", nil).
		InitialState("A").
		ErrorState("Err").
		CopyableEvents().
		ShallowHistory("Resume", "Sub").
		InterruptState("Sub", "Wake").
		Transition("A", "Enter", "Sub", nil).
		Transition("Sub", "Leave", "A", nil).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "outer", def.Name())
	assert.Equal(t, []string{"A"}, def.InitialStates())
	assert.Equal(t, "Err", def.ErrorState())
	assert.True(t, def.CopyableEvents())
	assert.True(t, def.IsSubmachine("Sub"))
	assert.False(t, def.IsSubmachine("A"))
	assert.Same(t, sub, def.Submachine("Sub"))
	assert.True(t, def.HasShallowHistory("Resume", "Sub"))
	assert.False(t, def.HasShallowHistory("Other", "Sub"))
	assert.Len(t, def.InterruptEntries(), 1)
	assert.Equal(t, []string{"A", "Sub", "Err"}, def.States())
	assert.Len(t, def.Transitions(), 2)
}

func TestDefinition_SubmachineRequiresDefinition(t *testing.T) {
	_, err := NewDefinition("nosub").
		SubMachine("Sub", nil, nil).
		InitialState("Sub").
		Build()
	require.Error(t, err)
}

func TestDefinition_ReusableAcrossMachines(t *testing.T) {
	def := newBasicDefinition(t)

	m1, err := New(def, nil)
	require.NoError(t, err)
	m2, err := New(def, nil)
	require.NoError(t, err)

	require.NoError(t, m1.Start())
	require.NoError(t, m1.ProcessEvent(event1{}))

	// the second machine has its own store and vector
	AssertCurrent(t, m2, "Initial")
	AssertCounters(t, m2, "Initial", 0, 0)
	assert.NotEqual(t, m1.ID(), m2.ID())
}
