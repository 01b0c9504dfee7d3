package dynamo

import (
	"errors"
	"fmt"
)

// Configuration faults.
var (
	ErrUnknownCapability = errors.New("dynamo: unknown capability")
	ErrUnknownVariable   = errors.New("dynamo: unknown variable")
	ErrUnknownComponent  = errors.New("dynamo: unknown component")
	ErrDuplicateName     = errors.New("dynamo: duplicate component name")
	ErrUnknownMessage    = errors.New("dynamo: unknown message kind")
	ErrMalformedValue    = errors.New("dynamo: malformed value")
	ErrRegistryFrozen    = errors.New("dynamo: registry mutation after initialization")
	ErrNotInitialized    = errors.New("dynamo: core not initialized")
	ErrCyclicDependency  = errors.New("dynamo: cyclic component dependency")
	ErrInvalidDate       = errors.New("dynamo: invalid date")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")
)

// Integration faults.
var (
	// ErrRetryExhausted means the model kept requesting smaller steps.
	ErrRetryExhausted = errors.New("dynamo: carbon model retries exhausted")

	ErrChemistryDiverged = errors.New("dynamo: carbonate chemistry did not converge")

	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")
)

// Class groups errors by how the caller should treat them.
type Class int

const (
	ClassOther Class = iota
	ClassConfig
	ClassIntegration
)

func (c Class) String() string {
	switch c {
	case ClassConfig:
		return "configuration"
	case ClassIntegration:
		return "integration"
	default:
		return "other"
	}
}

var (
	configErrs = []error{
		ErrUnknownCapability, ErrUnknownVariable, ErrUnknownComponent, ErrDuplicateName,
		ErrUnknownMessage, ErrMalformedValue, ErrRegistryFrozen,
		ErrNotInitialized, ErrCyclicDependency, ErrInvalidDate,
		ErrParameterBounds,
	}
	integrationErrs = []error{
		ErrRetryExhausted, ErrChemistryDiverged, ErrInvalidState, ErrStepTooSmall,
	}
)

// Classify reports the class of err, looking through wrapping.
func Classify(err error) Class {
	if err == nil {
		return ClassOther
	}
	for _, target := range configErrs {
		if errors.Is(err, target) {
			return ClassConfig
		}
	}
	for _, target := range integrationErrs {
		if errors.Is(err, target) {
			return ClassIntegration
		}
	}
	return ClassOther
}

// VariableError decorates an error with the variable it concerns.
type VariableError struct {
	Component string
	Variable  string
	Wrapped   error
}

func (e *VariableError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("%s: %v", e.Variable, e.Wrapped)
	}
	return fmt.Sprintf("%s.%s: %v", e.Component, e.Variable, e.Wrapped)
}

func (e *VariableError) Unwrap() error {
	return e.Wrapped
}

// WithVariable wraps err in a VariableError unless it already carries one.
func WithVariable(component, variable string, err error) error {
	if err == nil {
		return nil
	}
	var ve *VariableError
	if errors.As(err, &ve) {
		return err
	}
	return &VariableError{Component: component, Variable: variable, Wrapped: err}
}

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("t=%.4f (step %d): %v", e.Time, e.Step, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
