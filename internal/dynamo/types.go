package dynamo

import (
	"fmt"
	"math"
)

// State is a pool vector. Its length is fixed for a run.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Sum() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// MaxAbsDiff returns the largest absolute elementwise difference.
func (s State) MaxAbsDiff(other State) float64 {
	m := 0.0
	for i, v := range s.Sub(other) {
		if i >= len(other) {
			break
		}
		m = math.Max(m, math.Abs(v))
	}
	return m
}

// Outcome is returned by a derivative evaluation.
type Outcome int

const (
	// OutcomeSuccess means the derivatives are valid.
	OutcomeSuccess Outcome = iota
	// OutcomeRetry means the attempted step is too large for the model; the
	// caller should bisect and try again. It is not an error.
	OutcomeRetry
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetry:
		return "retry"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Derivative evaluates dy/dt at (t, y).
type Derivative func(t float64, y State) (State, Outcome, error)
