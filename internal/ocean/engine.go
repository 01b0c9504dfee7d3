// Package ocean implements a four-box ocean carbon model: two surface boxes
// that exchange CO2 with the atmosphere through an equilibrium carbonate
// chemistry solve, an intermediate box and a deep box, linked by a
// thermohaline circulation.
package ocean

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/boxclim/internal/dynamo"
)

// Pool vector layout.
const (
	PoolAtmosphere = iota
	PoolHL
	PoolLL
	PoolIntermediate
	PoolDeep
	PoolEarth
	NumPools
)

var poolNames = []string{"atmos_c", "ocean_c_hl", "ocean_c_ll", "ocean_c_io", "ocean_c_do", "earth_c"}

func poolOf(box int) int { return PoolHL + box }

var surfaceBoxes = [...]int{BoxHL, BoxLL}

// Engine is the box model driven by carboncycle.Solver. It owns the
// authoritative pools; the solver only borrows them between ExportPools and
// Stash.
type Engine struct {
	params Params
	log    *slog.Logger

	boxes      []Box
	atmosphere float64
	earth      float64
	window     int

	emissions    float64 // Pg C/yr taken from the earth pool
	spinup       bool
	equilibrated bool

	consts [NumBoxes]Constants
	kw     [NumBoxes]float64

	odeStart   float64
	startPools dynamo.State

	step       stepControl
	annualFlux float64
}

func NewEngine(p Params, logger *slog.Logger) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	boxes, err := p.buildBoxes()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		params:     p,
		log:        logger,
		boxes:      boxes,
		atmosphere: p.Atmosphere,
		earth:      p.Earth,
		window:     maxWindow(boxes) - 1,
		step:       newStepControl(p.Step),
	}
	for i := range e.boxes {
		if e.boxes[i].Surface {
			e.boxes[i].AtmCO2 = e.atmosphere / PgPerPPM
		}
	}
	e.updateConstants()
	return e, nil
}

func (e *Engine) Params() Params { return e.params }

func (e *Engine) PoolNames() []string { return append([]string(nil), poolNames...) }

func (e *Engine) pools() dynamo.State {
	y := make(dynamo.State, NumPools)
	y[PoolAtmosphere] = e.atmosphere
	for i := range e.boxes {
		y[poolOf(i)] = e.boxes[i].Carbon
	}
	y[PoolEarth] = e.earth
	return y
}

// ExportPools marks t as the start of an integration sub-interval.
func (e *Engine) ExportPools(t float64) dynamo.State {
	e.odeStart = t
	e.startPools = e.pools()
	return e.startPools.Clone()
}

func (e *Engine) chemistryActive() bool {
	return e.equilibrated && (!e.spinup || e.params.SpinupChemistry)
}

func (e *Engine) updateConstants() {
	for _, i := range surfaceBoxes {
		b := &e.boxes[i]
		e.consts[i] = NewConstants(b.Temperature(), e.params.Salinity)
		e.kw[i] = TransferVelocity(e.params.Wind, b.Temperature())
	}
}

// surfaceFlux is the atmosphere-to-box flux in Pg C/yr with the box holding
// carbon and the atmosphere holding atmos, leaving the box itself untouched.
func (e *Engine) surfaceFlux(box int, carbon, atmos float64) (float64, error) {
	b := &e.boxes[box]
	dic := carbon / PgPerMol / (b.Volume * SeawaterDensity)
	c, err := Speciate(dic, b.ALK, e.consts[box])
	if err != nil {
		return 0, dynamo.WithVariable("ocean", b.Name, err)
	}
	return GasFlux(e.kw[box], e.consts[box].K0, b.Area, atmos/PgPerPPM, c.PCO2), nil
}

// Derivatives evaluates the surface chemistry dry; circulation waits for
// Stash. Steps past the current max step ask the solver to bisect.
func (e *Engine) Derivatives(t float64, y dynamo.State) (dynamo.State, dynamo.Outcome, error) {
	if t-e.odeStart > e.step.max+1e-9 {
		return nil, dynamo.OutcomeRetry, nil
	}

	d := make(dynamo.State, NumPools)
	d[PoolAtmosphere] = e.emissions
	d[PoolEarth] = -e.emissions
	if !e.chemistryActive() {
		return d, dynamo.OutcomeSuccess, nil
	}
	for _, i := range surfaceBoxes {
		f, err := e.surfaceFlux(i, y[poolOf(i)], y[PoolAtmosphere])
		if err != nil {
			return nil, dynamo.OutcomeSuccess, err
		}
		d[poolOf(i)] = f
		d[PoolAtmosphere] -= f
	}
	return d, dynamo.OutcomeSuccess, nil
}

// UpdateSlowParameters refreshes the temperature-dependent constants.
func (e *Engine) UpdateSlowParameters(t float64, y dynamo.State) error {
	e.updateConstants()
	return nil
}

// Stash runs circulation over the finished sub-interval and reconciles the
// solver's surface uptake with the chemistry flux of each surface box.
func (e *Engine) Stash(t float64, y dynamo.State) error {
	yf := t - e.odeStart
	if yf <= 0 {
		return fmt.Errorf("%w: stash at %g does not follow %g", dynamo.ErrInvalidDate, t, e.odeStart)
	}
	if !y.IsValid() {
		return &dynamo.SimulationError{Time: t, State: y.Clone(), Wrapped: dynamo.ErrInvalidState}
	}

	solverFlux := y[PoolHL] + y[PoolLL] - e.boxes[BoxHL].Carbon - e.boxes[BoxLL].Carbon

	var chem [NumBoxes]float64
	chemSum := 0.0
	if e.chemistryActive() {
		for _, i := range surfaceBoxes {
			f, err := e.surfaceFlux(i, e.boxes[i].Carbon, e.startPools[PoolAtmosphere])
			if err != nil {
				return err
			}
			chem[i] = f * yf
			chemSum += chem[i]
		}
	}
	// the discrepancy is shared evenly so the total matches the solver
	split := (solverFlux - chemSum) / float64(len(surfaceBoxes))

	Circulate(e.boxes, yf)
	for _, i := range surfaceBoxes {
		e.boxes[i].Carbon += chem[i] + split
	}
	e.atmosphere = y[PoolAtmosphere]
	e.earth = y[PoolEarth]
	e.annualFlux += solverFlux

	if e.step.observe(solverFlux / yf) {
		e.log.Debug("flux volatility reduced max step", "t", t, "max_step", e.step.max, "rate", solverFlux/yf)
	}

	if e.equilibrated {
		if err := e.speciateSurface(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) speciateSurface() error {
	for _, i := range surfaceBoxes {
		b := &e.boxes[i]
		c, err := Speciate(b.DIC(), b.ALK, e.consts[i])
		if err != nil {
			return dynamo.WithVariable("ocean", b.Name, err)
		}
		b.Chem = c
	}
	return nil
}

// NewYear closes the previous year and applies this year's sea surface
// temperature anomaly.
func (e *Engine) NewYear(sst float64) {
	if e.step.yearEnd() {
		e.log.Debug("max step relaxed", "max_step", e.step.max)
	}
	e.annualFlux = 0
	for i := range e.boxes {
		b := &e.boxes[i]
		b.recordYear(e.window)
		b.TempAnomaly = sst
		if b.Surface {
			b.AtmCO2 = e.atmosphere / PgPerPPM
		}
	}
	e.updateConstants()
}

// SetEmissions sets the fossil flux from the earth pool to the atmosphere.
func (e *Engine) SetEmissions(pgPerYear float64) { e.emissions = pgPerYear }

func (e *Engine) SetSpinup(on bool) { e.spinup = on }

func (e *Engine) Spinup() bool { return e.spinup }

// Equilibrate sets each surface box's alkalinity so its pCO2 matches the
// current atmosphere.
func (e *Engine) Equilibrate() error {
	e.updateConstants()
	pco2 := e.atmosphere / PgPerPPM
	for _, i := range surfaceBoxes {
		b := &e.boxes[i]
		alk, err := SolveAlkalinity(b.DIC(), pco2, e.consts[i])
		if err != nil {
			return dynamo.WithVariable("ocean", b.Name, err)
		}
		b.ALK = alk
		b.AtmCO2 = pco2
	}
	e.equilibrated = true
	if err := e.speciateSurface(); err != nil {
		return err
	}
	e.log.Info("surface chemistry equilibrated",
		"pco2", pco2,
		"alk_hl", e.boxes[BoxHL].ALK,
		"alk_ll", e.boxes[BoxLL].ALK)
	return nil
}

func (e *Engine) Equilibrated() bool { return e.equilibrated }

// Dump moves amount Pg C from the atmosphere straight into the deep ocean.
func (e *Engine) Dump(amount float64) error {
	if amount < 0 || amount > e.atmosphere {
		return fmt.Errorf("%w: cannot move %g Pg C out of an atmosphere holding %g", dynamo.ErrParameterBounds, amount, e.atmosphere)
	}
	e.atmosphere -= amount
	e.boxes[BoxDeep].Carbon += amount
	return nil
}

func (e *Engine) Atmosphere() float64 { return e.atmosphere }

// AtmosphereCO2 is the atmospheric concentration in ppmv.
func (e *Engine) AtmosphereCO2() float64 { return e.atmosphere / PgPerPPM }

func (e *Engine) Earth() float64 { return e.earth }

func (e *Engine) Box(i int) Box { return e.boxes[i].clone() }

func (e *Engine) OceanCarbon() float64 {
	sum := 0.0
	for i := range e.boxes {
		sum += e.boxes[i].Carbon
	}
	return sum
}

func (e *Engine) TotalCarbon() float64 {
	return e.atmosphere + e.OceanCarbon() + e.earth
}

// AnnualUptake is the ocean uptake accumulated since the last NewYear.
func (e *Engine) AnnualUptake() float64 { return e.annualFlux }

func (e *Engine) MaxStep() float64 { return e.step.max }

// Substeps counts stashed sub-intervals this year.
func (e *Engine) Substeps() int { return e.step.substeps }

// Snapshot is a deep copy of the engine's mutable state.
type Snapshot struct {
	boxes        []Box
	atmosphere   float64
	earth        float64
	emissions    float64
	spinup       bool
	equilibrated bool
	step         stepControl
	annualFlux   float64
}

func (e *Engine) Snapshot() *Snapshot {
	s := &Snapshot{
		boxes:        make([]Box, len(e.boxes)),
		atmosphere:   e.atmosphere,
		earth:        e.earth,
		emissions:    e.emissions,
		spinup:       e.spinup,
		equilibrated: e.equilibrated,
		step:         e.step,
		annualFlux:   e.annualFlux,
	}
	for i := range e.boxes {
		s.boxes[i] = e.boxes[i].clone()
	}
	return s
}

func (e *Engine) Restore(s *Snapshot) {
	e.boxes = make([]Box, len(s.boxes))
	for i := range s.boxes {
		e.boxes[i] = s.boxes[i].clone()
	}
	e.atmosphere = s.atmosphere
	e.earth = s.earth
	e.emissions = s.emissions
	e.spinup = s.spinup
	e.equilibrated = s.equilibrated
	e.step = s.step
	e.annualFlux = s.annualFlux
	e.updateConstants()
}
