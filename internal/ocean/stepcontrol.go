package ocean

import (
	"fmt"
	"math"

	"github.com/san-kum/boxclim/internal/dynamo"
)

// StepParams configures the flux-volatility timestep policy.
type StepParams struct {
	Ceiling float64 // largest allowed step, yr
	Min     float64 // smallest allowed step, yr
	Factor  float64 // shrink/grow factor
	Trigger float64 // flux-rate change that shrinks the step, Pg C/yr
	Timeout int     // trigger-free years before the step grows again
}

func DefaultStepParams() StepParams {
	return StepParams{Ceiling: 1.0, Min: 0.3, Factor: 2.0, Trigger: 0.9, Timeout: 2}
}

func (p StepParams) Validate() error {
	switch {
	case p.Ceiling <= 0 || p.Ceiling > 1:
		return fmt.Errorf("%w: step ceiling %g outside (0, 1]", dynamo.ErrParameterBounds, p.Ceiling)
	case p.Min <= 0 || p.Min > p.Ceiling:
		return fmt.Errorf("%w: step minimum %g outside (0, %g]", dynamo.ErrParameterBounds, p.Min, p.Ceiling)
	case p.Factor <= 1:
		return fmt.Errorf("%w: step factor %g must exceed 1", dynamo.ErrParameterBounds, p.Factor)
	case p.Trigger <= 0:
		return fmt.Errorf("%w: step trigger %g must be positive", dynamo.ErrParameterBounds, p.Trigger)
	case p.Timeout < 1:
		return fmt.Errorf("%w: step timeout %d must be at least 1", dynamo.ErrParameterBounds, p.Timeout)
	}
	return nil
}

// stepControl holds the current max step and its countdown. Only the
// sub-step counter is reset yearly.
type stepControl struct {
	StepParams

	max       float64
	timer     int
	triggered bool
	prevRate  float64
	hasPrev   bool
	substeps  int
}

func newStepControl(p StepParams) stepControl {
	return stepControl{StepParams: p, max: p.Ceiling}
}

// observe records the annualized flux rate of a stashed sub-interval and
// reports whether it tripped the trigger.
func (s *stepControl) observe(rate float64) bool {
	s.substeps++
	tripped := s.hasPrev && math.Abs(rate-s.prevRate) > s.Trigger
	s.prevRate, s.hasPrev = rate, true
	if !tripped {
		return false
	}
	s.max = math.Max(s.max/s.Factor, s.Min)
	s.timer = s.Timeout
	s.triggered = true
	return true
}

// yearEnd closes a calendar year. It reports whether the max step grew.
func (s *stepControl) yearEnd() bool {
	defer func() {
		s.triggered = false
		s.substeps = 0
	}()
	if s.timer == 0 || s.triggered {
		return false
	}
	s.timer--
	if s.timer > 0 || s.max >= s.Ceiling {
		return false
	}
	s.max = math.Min(s.Ceiling, s.max*s.Factor)
	if s.max < s.Ceiling {
		s.timer = s.Timeout
	}
	return true
}
