package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/boxclim/internal/dynamo"
)

// Dormand-Prince 5(4) tableau.
var (
	dpC = [7]float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1.0, 1.0}

	dpA = [7][6]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
		{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
		{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
		{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0},
	}

	// fifth-order weights; equal to the last row of dpA (FSAL)
	dpB = [7]float64{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0, 0}

	// difference between fifth- and fourth-order weights
	dpE = [7]float64{
		35.0/384.0 - 5179.0/57600.0,
		0,
		500.0/1113.0 - 7571.0/16695.0,
		125.0/192.0 - 393.0/640.0,
		-2187.0/6784.0 + 92097.0/339200.0,
		11.0/84.0 - 187.0/2100.0,
		-1.0 / 40.0,
	}
)

// RK45 performs single Dormand-Prince steps.
type RK45 struct {
	k       [7]dynamo.State
	scratch dynamo.State
}

func NewRK45() *RK45 {
	return &RK45{}
}

func (r *RK45) ensureScratch(n int) {
	if len(r.scratch) != n {
		for i := range r.k {
			r.k[i] = make(dynamo.State, n)
		}
		r.scratch = make(dynamo.State, n)
	}
}

// Step advances y by h and returns the fifth-order solution and the embedded
// error estimate. A retry outcome from f aborts the step.
func (r *RK45) Step(f dynamo.Derivative, t float64, y dynamo.State, h float64) (dynamo.State, dynamo.State, dynamo.Outcome, error) {
	n := len(y)
	r.ensureScratch(n)

	for s := 0; s < 7; s++ {
		for i := 0; i < n; i++ {
			acc := 0.0
			for j := 0; j < s; j++ {
				acc += dpA[s][j] * r.k[j][i]
			}
			r.scratch[i] = y[i] + h*acc
		}
		dydt, out, err := f(t+dpC[s]*h, r.scratch)
		if err != nil {
			return nil, nil, out, err
		}
		if out != dynamo.OutcomeSuccess {
			return nil, nil, out, nil
		}
		if len(dydt) != n {
			return nil, nil, out, fmt.Errorf("%w: derivative length %d, state length %d", dynamo.ErrInvalidState, len(dydt), n)
		}
		copy(r.k[s], dydt)
	}

	yNew := make(dynamo.State, n)
	errEst := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		acc, e := 0.0, 0.0
		for s := 0; s < 7; s++ {
			acc += dpB[s] * r.k[s][i]
			e += dpE[s] * r.k[s][i]
		}
		yNew[i] = y[i] + h*acc
		errEst[i] = h * e
	}

	return yNew, errEst, dynamo.OutcomeSuccess, nil
}

// Evolver drives RK45 with local error control against absolute and relative
// tolerances. Its controller remembers the previous accepted error norm.
type Evolver struct {
	stepper *RK45
	absTol  float64
	relTol  float64

	safety   float64
	minScale float64
	maxScale float64
	minStep  float64

	prevErr float64
	steps   int
	rejects int
}

func NewEvolver(absTol, relTol float64) *Evolver {
	return &Evolver{
		stepper:  NewRK45(),
		absTol:   absTol,
		relTol:   relTol,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 5.0,
		minStep:  1e-10,
		prevErr:  1.0,
	}
}

// Reset clears the error controller history and counters.
func (e *Evolver) Reset() {
	e.prevErr = 1.0
	e.steps = 0
	e.rejects = 0
}

func (e *Evolver) Steps() int   { return e.steps }
func (e *Evolver) Rejects() int { return e.rejects }

// Apply takes one accepted step from t toward t1 (never past it), starting
// with trial step h. It returns the new time, the suggested next step and the
// new state. A retry outcome is passed through untouched.
func (e *Evolver) Apply(f dynamo.Derivative, t, t1, h float64, y dynamo.State) (float64, float64, dynamo.State, dynamo.Outcome, error) {
	if t1 <= t {
		return t, h, y, dynamo.OutcomeSuccess, nil
	}
	if h <= 0 {
		h = t1 - t
	}

	for {
		last := false
		if h >= t1-t {
			h = t1 - t
			last = true
		}

		yNew, errEst, out, err := e.stepper.Step(f, t, y, h)
		if err != nil || out != dynamo.OutcomeSuccess {
			return t, h, y, out, err
		}
		if !yNew.IsValid() {
			return t, h, y, out, &dynamo.SimulationError{Step: e.steps, Time: t, State: y.Clone(), Wrapped: dynamo.ErrInvalidState}
		}

		errNorm := e.errorNorm(y, yNew, errEst)
		if errNorm <= 1.0 {
			e.steps++
			tNew := t + h
			if last {
				tNew = t1
			}
			hNext := h * e.growth(errNorm)
			e.prevErr = math.Max(errNorm, 1e-4)
			return tNew, hNext, yNew, dynamo.OutcomeSuccess, nil
		}

		e.rejects++
		h *= math.Max(e.minScale, e.safety*math.Pow(errNorm, -0.25))
		if h < e.minStep {
			return t, h, y, dynamo.OutcomeSuccess, &dynamo.SimulationError{Step: e.steps, Time: t, State: y.Clone(), Wrapped: dynamo.ErrStepTooSmall}
		}
	}
}

func (e *Evolver) errorNorm(y, yNew, errEst dynamo.State) float64 {
	m := 0.0
	for i := range y {
		scale := e.absTol + e.relTol*math.Max(math.Abs(y[i]), math.Abs(yNew[i]))
		m = math.Max(m, math.Abs(errEst[i])/scale)
	}
	return m
}

// growth is a PI step-size controller.
func (e *Evolver) growth(errNorm float64) float64 {
	if errNorm == 0 {
		return e.maxScale
	}
	scale := e.safety * math.Pow(errNorm, -0.7/5.0) * math.Pow(e.prevErr, 0.4/5.0)
	return math.Min(e.maxScale, math.Max(e.minScale, scale))
}
