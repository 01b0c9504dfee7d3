package core

import (
	"log/slog"

	"github.com/san-kum/boxclim/internal/unitval"
)

// Host is the view of the core a component gets during Init.
type Host interface {
	RegisterCapability(capability, owner string) error
	RegisterDependency(capability, dependent string) error
	RegisterInput(name, component string) error
	SendMessage(kind Kind, name string, msg Message) (unitval.Value, error)
}

// Component is a model unit advanced one year at a time by the core.
type Component interface {
	Name() string

	// Init registers capabilities, dependencies and inputs. log is owned by
	// the core and stays open until Shutdown.
	Init(host Host, log *slog.Logger) error

	SetData(variable string, msg Message) error
	GetData(variable string, msg Message) (unitval.Value, error)

	PrepareToRun() error
	Run(date float64) error

	// RunSpinup performs one spin-up step and reports convergence.
	RunSpinup(step int) (bool, error)

	// Reset rolls the component back to date. A date before the run start
	// restores the state from before spin-up.
	Reset(date float64) error

	Shutdown() error
}

// Dumper is implemented by components that accept DUMP messages.
type Dumper interface {
	Dump(variable string, msg Message) error
}

// Reporter lists the variables an observer should record for a component.
type Reporter interface {
	Outputs() []string
}

// Observer is visited once per year or spin-up step, after all components
// have advanced.
type Observer interface {
	ShouldVisit(inSpinup bool, date float64) bool
	Visit(c Component) error
}

// ResettableObserver forgets what it saw after date when the core resets.
type ResettableObserver interface {
	Observer
	Reset(date float64) error
}

// LogOpener hands out per-component loggers and closes them together.
type LogOpener interface {
	Open(name string) (*slog.Logger, error)
	Close() error
}
