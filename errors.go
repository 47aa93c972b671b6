package ortho

import "fmt"

// ErrorCode represents specific error conditions in the state machine
type ErrorCode int

const (
	// No error occurred
	ErrCodeNone ErrorCode = iota
	// No transition arm matched the event in any region
	ErrCodeNoTransition
	// An interrupt entry masked the event
	ErrCodeInterrupted
	// State is not reachable from any initial state
	ErrCodeUnreachableState
	// State was not found in the definition
	ErrCodeStateNotFound
	// An entry, exit or action handler failed
	ErrCodeHandlerFailed
	// The error state itself failed; the machine is unusable
	ErrCodeMachineBroken
	// Machine is not in started state
	ErrCodeMachineNotStarted
	// Machine definition is invalid
	ErrCodeInvalidConfiguration
)

// DispatchError is the non-fatal outcome of ProcessEvent: either no arm
// matched the event, or an interrupt entry masked it.
type DispatchError struct {
	Code  ErrorCode
	State string
	Event string
}

func (e *DispatchError) Error() string {
	switch e.Code {
	case ErrCodeInterrupted:
		return fmt.Sprintf("event '%s' interrupted in state '%s'", e.Event, e.State)
	default:
		return fmt.Sprintf("no transition from state '%s' for event '%s'", e.State, e.Event)
	}
}

// NewNoTransitionError creates a new no transition found error
func NewNoTransitionError(state, event string) *DispatchError {
	return &DispatchError{Code: ErrCodeNoTransition, State: state, Event: event}
}

// NewInterruptedError creates a new interrupted dispatch error
func NewInterruptedError(state, event string) *DispatchError {
	return &DispatchError{Code: ErrCodeInterrupted, State: state, Event: event}
}

// IsNoTransition checks if an error is a NoTransition dispatch outcome
func IsNoTransition(err error) bool {
	e, ok := err.(*DispatchError)
	return ok && e.Code == ErrCodeNoTransition
}

// IsInterrupted checks if an error is an Interrupted dispatch outcome
func IsInterrupted(err error) bool {
	e, ok := err.(*DispatchError)
	return ok && e.Code == ErrCodeInterrupted
}

// TransitionError represents a failed entry, exit or action handler. When
// no error state is declared it surfaces from ProcessEvent; otherwise it
// travels inside the synthesized ErrorEvent.
type TransitionError struct {
	State string
	Phase string
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s handler failed in state '%s': %v", e.Phase, e.State, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// NewTransitionError creates a new transition handler error
func NewTransitionError(state, phase string, err error) *TransitionError {
	return &TransitionError{State: state, Phase: phase, Err: err}
}

// StateError represents state-related errors
type StateError struct {
	Code    ErrorCode
	StateID string
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state error [%s]: %s", e.StateID, e.Message)
}

// NewStateNotFoundError creates a new state not found error
func NewStateNotFoundError(stateID string) *StateError {
	return &StateError{
		Code:    ErrCodeStateNotFound,
		StateID: stateID,
		Message: fmt.Sprintf("state '%s' not found", stateID),
	}
}

// NewUnreachableStateError creates an error for a state no initial state reaches
func NewUnreachableStateError(stateID string) *StateError {
	return &StateError{
		Code:    ErrCodeUnreachableState,
		StateID: stateID,
		Message: fmt.Sprintf("state '%s' is not reachable from any initial state", stateID),
	}
}

// ConfigurationError represents machine definition issues
type ConfigurationError struct {
	Component string
	Issue     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Issue)
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(component, issue string) *ConfigurationError {
	return &ConfigurationError{Component: component, Issue: issue}
}

// MachineError represents state machine operation errors
type MachineError struct {
	Code      ErrorCode
	Operation string
	Message   string
	Err       error
}

func (e *MachineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("machine error during %s: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("machine error during %s: %s", e.Operation, e.Message)
}

func (e *MachineError) Unwrap() error {
	return e.Err
}

// NewMachineNotStartedError creates a new machine not started error
func NewMachineNotStartedError(operation string) *MachineError {
	return &MachineError{
		Code:      ErrCodeMachineNotStarted,
		Operation: operation,
		Message:   "state machine is not started",
	}
}

// NewMachineBrokenError creates the fatal error returned when the error
// state's own handlers fail.
func NewMachineBrokenError(operation string, err error) *MachineError {
	return &MachineError{
		Code:      ErrCodeMachineBroken,
		Operation: operation,
		Message:   "error state failed; machine is broken",
		Err:       err,
	}
}

// IsStateError checks if an error is a StateError
func IsStateError(err error) bool {
	_, ok := err.(*StateError)
	return ok
}

// IsTransitionError checks if an error is a TransitionError
func IsTransitionError(err error) bool {
	_, ok := err.(*TransitionError)
	return ok
}

// IsConfigurationError checks if an error is a ConfigurationError
func IsConfigurationError(err error) bool {
	_, ok := err.(*ConfigurationError)
	return ok
}

// IsMachineError checks if an error is a MachineError
func IsMachineError(err error) bool {
	_, ok := err.(*MachineError)
	return ok
}

// GetErrorCode returns the error code for known error types
func GetErrorCode(err error) ErrorCode {
	switch e := err.(type) {
	case *DispatchError:
		return e.Code
	case *StateError:
		return e.Code
	case *MachineError:
		return e.Code
	case *TransitionError:
		return ErrCodeHandlerFailed
	case *ConfigurationError:
		return ErrCodeInvalidConfiguration
	default:
		return ErrCodeNone
	}
}
