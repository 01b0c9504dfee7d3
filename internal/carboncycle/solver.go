// Package carboncycle advances a pluggable box model with an adaptive-step
// integrator.
//
// The solver owns only a transient copy of the pool vector. The model is
// authoritative: the solver reads the vector from it at the start of every
// sub-interval and hands the converged vector back through Stash.
package carboncycle

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/boxclim/internal/dynamo"
	"github.com/san-kum/boxclim/internal/integrators"
)

// Model is the contract a carbon box model satisfies.
type Model interface {
	// PoolNames names each element of the pool vector.
	PoolNames() []string

	// ExportPools returns the model's pool vector. The solver calls it at the
	// start of every sub-interval; t is that sub-interval's start.
	ExportPools(t float64) dynamo.State

	// Derivatives returns d(pools)/dt. OutcomeRetry asks the solver to bisect.
	Derivatives(t float64, pools dynamo.State) (dynamo.State, dynamo.Outcome, error)

	// UpdateSlowParameters runs once per Advance, before integration.
	UpdateSlowParameters(t float64, pools dynamo.State) error

	// Stash hands the converged vector at the end of a sub-interval back to
	// the model.
	Stash(t float64, pools dynamo.State) error
}

// StepLimiter is implemented by models that bound the length of one
// sub-interval. The solver never hands such a model a longer sub-interval, so
// bisection is left for genuine instability.
type StepLimiter interface {
	MaxStep() float64
}

type Config struct {
	AbsTol          float64
	RelTol          float64
	InitialStep     float64
	MaxRetries      int
	SpinupTolerance float64
}

func DefaultConfig() Config {
	return Config{
		AbsTol:          1e-6,
		RelTol:          1e-6,
		InitialStep:     0.1,
		MaxRetries:      3,
		SpinupTolerance: 0.001,
	}
}

func (c Config) Validate() error {
	if c.AbsTol <= 0 || c.RelTol < 0 {
		return fmt.Errorf("%w: tolerances must be positive", dynamo.ErrParameterBounds)
	}
	if c.InitialStep <= 0 {
		return fmt.Errorf("%w: initial step must be positive, got %g", dynamo.ErrParameterBounds, c.InitialStep)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be non-negative", dynamo.ErrParameterBounds)
	}
	if c.SpinupTolerance <= 0 {
		return fmt.Errorf("%w: spinup tolerance must be positive", dynamo.ErrParameterBounds)
	}
	return nil
}

// Solver advances a Model one or more whole years at a time.
type Solver struct {
	model   Model
	cfg     Config
	evolver *integrators.Evolver
	log     *slog.Logger

	t         float64
	startDate float64

	spunUp      bool
	spinupStart dynamo.State
	spinupPrev  dynamo.State
	residual    float64
	stashes     int
}

func New(model Model, cfg Config, logger *slog.Logger) *Solver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Solver{
		model:    model,
		cfg:      cfg,
		evolver:  integrators.NewEvolver(cfg.AbsTol, cfg.RelTol),
		log:      logger,
		residual: math.Inf(1),
	}
}

// SetConfig replaces the integration settings. Call before the first Advance.
func (s *Solver) SetConfig(cfg Config) {
	s.cfg = cfg
	s.evolver = integrators.NewEvolver(cfg.AbsTol, cfg.RelTol)
}

func (s *Solver) Config() Config { return s.cfg }

// Time is the last completed date.
func (s *Solver) Time() float64 { return s.t }

// SetTime moves the solver clock, for initialization and reset.
func (s *Solver) SetTime(t float64) { s.t = t }

// SetStartDate records the real run start used after spin-up converges.
func (s *Solver) SetStartDate(t float64) { s.startDate = t }

func (s *Solver) SpunUp() bool { return s.spunUp }

// Residual is the largest pool change of the last spin-up step.
func (s *Solver) Residual() float64 { return s.residual }

// Stashes counts sub-intervals handed to the model since the last Advance.
func (s *Solver) Stashes() int { return s.stashes }

// ResetSpinup forgets spin-up progress so it can run again.
func (s *Solver) ResetSpinup() {
	s.spunUp = false
	s.spinupStart = nil
	s.spinupPrev = nil
	s.residual = math.Inf(1)
}

// Advance integrates from the last completed date to target, which must lie a
// whole number of years ahead.
func (s *Solver) Advance(target float64) error {
	span := target - s.t
	if span <= 0 || math.Abs(span-math.Round(span)) > 1e-9 {
		return fmt.Errorf("%w: advance from %g to %g is not a whole number of years", dynamo.ErrInvalidDate, s.t, target)
	}
	target = s.t + math.Round(span)

	tStart := s.t
	y := s.model.ExportPools(tStart)
	if !y.IsValid() {
		return &dynamo.SimulationError{Time: tStart, State: y.Clone(), Wrapped: dynamo.ErrInvalidState}
	}
	if err := s.model.UpdateSlowParameters(tStart, y); err != nil {
		return err
	}

	s.evolver.Reset()
	s.stashes = 0
	t, t1 := tStart, s.subTarget(tStart, target)
	h := math.Min(s.cfg.InitialStep, t1-tStart)
	retries := 0

	for tStart < target {
		tNew, hNew, yNew, out, err := s.evolver.Apply(s.model.Derivatives, t, t1, h, y)
		if err != nil {
			return &dynamo.SimulationError{Step: s.evolver.Steps(), Time: t, State: y.Clone(), Wrapped: err}
		}

		if out == dynamo.OutcomeRetry {
			retries++
			if retries > s.cfg.MaxRetries {
				return &dynamo.SimulationError{
					Step:    s.evolver.Steps(),
					Time:    t,
					State:   y.Clone(),
					Wrapped: fmt.Errorf("%w: %d bisections of [%g, %g]", dynamo.ErrRetryExhausted, retries-1, tStart, target),
				}
			}
			t1 = tStart + (t1-tStart)/2
			s.log.Debug("model requested retry", "from", tStart, "bisect_to", t1, "retry", retries)
			s.evolver.Reset()
			h = math.Min(s.cfg.InitialStep, t1-tStart)
			t = tStart
			y = s.model.ExportPools(tStart)
			continue
		}

		t, h, y = tNew, hNew, yNew
		if t < t1 {
			continue
		}

		if err := s.model.Stash(t1, y); err != nil {
			return err
		}
		s.stashes++
		retries = 0
		tStart, t = t1, t1
		t1 = s.subTarget(tStart, target)
		if tStart < target {
			y = s.model.ExportPools(tStart)
			h = math.Min(h, t1-tStart)
		}
	}

	s.t = target
	return nil
}

// subTarget is the end of the sub-interval starting at tStart: target, or
// sooner if the model limits its step.
func (s *Solver) subTarget(tStart, target float64) float64 {
	l, ok := s.model.(StepLimiter)
	if !ok {
		return target
	}
	m := l.MaxStep()
	if m <= 0 || tStart+m >= target-1e-10 {
		return target
	}
	return tStart + m
}

// SpinupStep runs one spin-up iteration using step as a synthetic date and
// reports whether the pools have stopped changing. After the first
// convergence the clock moves to the real start date and later calls are
// no-ops.
func (s *Solver) SpinupStep(step int) (bool, error) {
	if s.spunUp {
		return true, nil
	}
	if s.spinupPrev == nil {
		s.t = float64(step - 1)
		s.spinupStart = s.model.ExportPools(s.t).Clone()
		s.spinupPrev = s.spinupStart.Clone()
	}

	s.t = float64(step - 1)
	if err := s.Advance(float64(step)); err != nil {
		return false, err
	}

	cur := s.model.ExportPools(s.t).Clone()
	s.residual = cur.MaxAbsDiff(s.spinupPrev)
	s.spinupPrev = cur

	if s.residual >= s.cfg.SpinupTolerance {
		return false, nil
	}

	s.spunUp = true
	s.log.Info("spinup converged",
		"steps", step,
		"residual", s.residual,
		"drift_from_start", cur.MaxAbsDiff(s.spinupStart))
	s.t = s.startDate
	return true, nil
}
