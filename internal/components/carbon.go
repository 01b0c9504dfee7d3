package components

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/boxclim/internal/carboncycle"
	"github.com/san-kum/boxclim/internal/core"
	"github.com/san-kum/boxclim/internal/dynamo"
	"github.com/san-kum/boxclim/internal/ocean"
	"github.com/san-kum/boxclim/internal/tseries"
	"github.com/san-kum/boxclim/internal/unitval"
)

// CarbonCycle couples the four-box ocean engine with the adaptive solver.
// Parameters are fixed once PrepareToRun builds the engine.
type CarbonCycle struct {
	name      string
	startDate float64

	host core.Host
	log  *slog.Logger

	params    ocean.Params
	solverCfg carboncycle.Config

	engine *ocean.Engine
	solver *carboncycle.Solver

	date    float64
	initial *ocean.Snapshot // before spin-up
	start   *ocean.Snapshot // at the run start date
	yearly  map[int]*ocean.Snapshot
	history [numCCVars]*tseries.Series
}

func NewCarbonCycle(name string, startDate float64) *CarbonCycle {
	return &CarbonCycle{
		name:      name,
		startDate: startDate,
		params:    ocean.DefaultParams(),
		solverCfg: carboncycle.DefaultConfig(),
		yearly:    make(map[int]*ocean.Snapshot),
	}
}

func (c *CarbonCycle) Name() string { return c.name }

func (c *CarbonCycle) Outputs() []string { return CarbonOutputs() }

func (c *CarbonCycle) Init(host core.Host, log *slog.Logger) error {
	c.host = host
	c.log = log
	for _, info := range carbonVars {
		if !info.output {
			continue
		}
		if err := host.RegisterCapability(info.name, c.name); err != nil {
			return err
		}
	}
	for _, dep := range []string{CapFFIEmissions, CapSST} {
		if err := host.RegisterDependency(dep, c.name); err != nil {
			return err
		}
	}
	for _, info := range carbonVars {
		if !info.settable {
			continue
		}
		if err := host.RegisterInput(info.name, c.name); err != nil {
			return err
		}
	}
	return nil
}

func (c *CarbonCycle) SetData(variable string, msg core.Message) error {
	v, err := parseCarbonVar(variable)
	if err != nil {
		return err
	}
	info := carbonVars[v]
	if !info.settable {
		return fmt.Errorf("%w: %s is read-only", dynamo.ErrUnknownVariable, variable)
	}
	if c.engine != nil {
		return fmt.Errorf("%w: %s is fixed once the run is prepared", dynamo.ErrRegistryFrozen, variable)
	}
	x, err := valueIn(msg, info.unit)
	if err != nil {
		return err
	}

	p, s := &c.params, &c.solverCfg
	switch v {
	case varAtmosC:
		p.Atmosphere = x
	case varOceanCHL:
		p.CarbonHL = x
	case varOceanCLL:
		p.CarbonLL = x
	case varOceanCIO:
		p.CarbonIntermediate = x
	case varOceanCDO:
		p.CarbonDeep = x
	case varEarthC:
		p.Earth = x
	case varTT:
		p.TT = x
	case varTU:
		p.TU = x
	case varTWI:
		p.TWI = x
	case varTID:
		p.TID = x
	case varTempHL:
		p.RefTempHL = x
	case varTempLL:
		p.RefTempLL = x
	case varSalinity:
		p.Salinity = x
	case varWind:
		p.Wind = x
	case varHLFraction:
		p.HLFraction = x
	case varOceanArea:
		p.OceanArea = x
	case varWindow:
		p.Window = int(math.Round(x))
	case varSpinupChem:
		p.SpinupChemistry = x != 0
	case varAbsTol:
		s.AbsTol = x
	case varRelTol:
		s.RelTol = x
	case varSpinupTol:
		s.SpinupTolerance = x
	case varStepMax:
		p.Step.Ceiling = x
	case varStepMin:
		p.Step.Min = x
	case varStepFactor:
		p.Step.Factor = x
	case varStepTrigger:
		p.Step.Trigger = x
	case varStepTimeout:
		p.Step.Timeout = int(math.Round(x))
	}
	return nil
}

func (c *CarbonCycle) GetData(variable string, msg core.Message) (unitval.Value, error) {
	v, err := parseCarbonVar(variable)
	if err != nil {
		return unitval.Value{}, err
	}
	info := carbonVars[v]
	if !info.output {
		return unitval.New(c.param(v), info.unit), nil
	}
	if c.engine == nil {
		return unitval.Value{}, fmt.Errorf("%w: %s before the run is prepared", dynamo.ErrNotInitialized, variable)
	}
	if msg.Dated && msg.Date != c.date {
		h := c.history[v]
		if h == nil || h.Len() == 0 {
			return unitval.Value{}, fmt.Errorf("%w: no %s history", dynamo.ErrInvalidDate, variable)
		}
		if msg.Date > c.date {
			return unitval.Value{}, fmt.Errorf("%w: %s requested for %g, model is at %g", dynamo.ErrInvalidDate, variable, msg.Date, c.date)
		}
		x, err := h.At(msg.Date)
		return unitval.New(x, info.unit), err
	}
	return unitval.New(c.current(v), info.unit), nil
}

func (c *CarbonCycle) param(v ccVar) float64 {
	p, s := c.params, c.solverCfg
	switch v {
	case varTT:
		return p.TT
	case varTU:
		return p.TU
	case varTWI:
		return p.TWI
	case varTID:
		return p.TID
	case varTempHL:
		return p.RefTempHL
	case varTempLL:
		return p.RefTempLL
	case varSalinity:
		return p.Salinity
	case varWind:
		return p.Wind
	case varHLFraction:
		return p.HLFraction
	case varOceanArea:
		return p.OceanArea
	case varWindow:
		return float64(p.Window)
	case varSpinupChem:
		if p.SpinupChemistry {
			return 1
		}
		return 0
	case varAbsTol:
		return s.AbsTol
	case varRelTol:
		return s.RelTol
	case varSpinupTol:
		return s.SpinupTolerance
	case varStepMax:
		return p.Step.Ceiling
	case varStepMin:
		return p.Step.Min
	case varStepFactor:
		return p.Step.Factor
	case varStepTrigger:
		return p.Step.Trigger
	case varStepTimeout:
		return float64(p.Step.Timeout)
	}
	return math.NaN()
}

// current reads an output from the live engine.
func (c *CarbonCycle) current(v ccVar) float64 {
	e := c.engine
	hl, ll := e.Box(ocean.BoxHL), e.Box(ocean.BoxLL)
	switch v {
	case varAtmosCO2:
		return e.AtmosphereCO2()
	case varAtmosC:
		return e.Atmosphere()
	case varOceanC:
		return e.OceanCarbon()
	case varOceanCHL:
		return hl.Carbon
	case varOceanCLL:
		return ll.Carbon
	case varOceanCIO:
		return e.Box(ocean.BoxIntermediate).Carbon
	case varOceanCDO:
		return e.Box(ocean.BoxDeep).Carbon
	case varEarthC:
		return e.Earth()
	case varTotalC:
		return e.TotalCarbon()
	case varOceanUptake:
		return e.AnnualUptake()
	case varPHHL:
		return hl.Chem.PH
	case varPHLL:
		return ll.Chem.PH
	case varPCO2HL:
		return hl.Chem.PCO2
	case varPCO2LL:
		return ll.Chem.PCO2
	case varCO3HL:
		return hl.Chem.CO3
	case varCO3LL:
		return ll.Chem.CO3
	case varOmegaCaHL:
		return hl.Chem.OmegaCa
	case varOmegaCaLL:
		return ll.Chem.OmegaCa
	case varOmegaArHL:
		return hl.Chem.OmegaAr
	case varOmegaArLL:
		return ll.Chem.OmegaAr
	case varALKHL:
		return hl.ALK
	case varALKLL:
		return ll.ALK
	case varDICHL:
		return hl.DIC()
	case varDICLL:
		return ll.DIC()
	case varMaxTimestep:
		return e.MaxStep()
	case varSpinupResidual:
		if r := c.solver.Residual(); !math.IsInf(r, 1) {
			return r
		}
		return 0
	}
	return math.NaN()
}

// Dump moves carbon from the atmosphere into the deep ocean.
func (c *CarbonCycle) Dump(variable string, msg core.Message) error {
	if variable != CapDeepOcean {
		return fmt.Errorf("%w: DUMP into %s", dynamo.ErrUnknownMessage, variable)
	}
	if c.engine == nil {
		return fmt.Errorf("%w: dump before the run is prepared", dynamo.ErrNotInitialized)
	}
	x, err := valueIn(msg, unitval.PgC)
	if err != nil {
		return err
	}
	if err := c.engine.Dump(x); err != nil {
		return err
	}
	c.log.Info("carbon moved to deep ocean", "amount", x, "date", c.date)
	return nil
}

func (c *CarbonCycle) PrepareToRun() error {
	if err := c.solverCfg.Validate(); err != nil {
		return err
	}
	engine, err := ocean.NewEngine(c.params, c.log)
	if err != nil {
		return err
	}
	c.engine = engine
	c.solver = carboncycle.New(engine, c.solverCfg, c.log)
	c.solver.SetStartDate(c.startDate)
	c.solver.SetTime(c.startDate)
	c.date = c.startDate
	c.initial = engine.Snapshot()
	c.start = c.initial
	c.clearHistory()
	c.record(c.startDate)
	c.log.Info("carbon cycle prepared",
		"atmos_co2", engine.AtmosphereCO2(),
		"total_c", engine.TotalCarbon())
	return nil
}

func (c *CarbonCycle) RunSpinup(step int) (bool, error) {
	if c.solver.SpunUp() {
		return true, nil
	}
	e := c.engine
	e.SetSpinup(true)
	e.SetEmissions(0)
	e.NewYear(0)
	if c.params.SpinupChemistry && !e.Equilibrated() {
		if err := e.Equilibrate(); err != nil {
			return false, err
		}
	}

	done, err := c.solver.SpinupStep(step)
	if err != nil {
		return false, err
	}
	if !done {
		return false, nil
	}

	e.SetSpinup(false)
	if !c.params.SpinupChemistry {
		if err := e.Equilibrate(); err != nil {
			return false, err
		}
	}
	c.date = c.startDate
	c.clearHistory()
	c.record(c.startDate)
	c.start = e.Snapshot()
	c.log.Info("carbon cycle spun up", "steps", step, "atmos_co2", e.AtmosphereCO2())
	return true, nil
}

func (c *CarbonCycle) getInput(name string, date float64, unit unitval.Unit) (float64, error) {
	v, err := c.host.SendMessage(core.KindGet, name, core.At(date))
	if err != nil {
		return 0, err
	}
	if v.Unit != unitval.NoUnit {
		if err := v.Check(unit); err != nil {
			return 0, dynamo.WithVariable(c.name, name, err)
		}
	}
	return v.V, nil
}

func (c *CarbonCycle) Run(date float64) error {
	e := c.engine
	if !e.Equilibrated() {
		if err := e.Equilibrate(); err != nil {
			return err
		}
		c.record(c.date)
		c.start = e.Snapshot()
	}

	emissions, err := c.getInput(CapFFIEmissions, date, unitval.PgCPerYr)
	if err != nil {
		return err
	}
	sst, err := c.getInput(CapSST, date, unitval.DegC)
	if err != nil {
		return err
	}

	e.SetSpinup(false)
	e.NewYear(sst)
	e.SetEmissions(emissions)
	if err := c.solver.Advance(date); err != nil {
		return err
	}

	c.date = date
	c.record(date)
	c.yearly[int(date)] = e.Snapshot()
	c.log.Debug("year complete",
		"date", date,
		"atmos_co2", e.AtmosphereCO2(),
		"ocean_uptake", e.AnnualUptake(),
		"substeps", e.Substeps(),
		"max_step", e.MaxStep())
	return nil
}

func (c *CarbonCycle) record(date float64) {
	for i, info := range carbonVars {
		if !info.output {
			continue
		}
		if c.history[i] == nil {
			c.history[i] = tseries.New()
		}
		c.history[i].Set(date, c.current(ccVar(i)))
	}
}

func (c *CarbonCycle) clearHistory() {
	for i := range c.history {
		c.history[i] = nil
	}
	c.yearly = make(map[int]*ocean.Snapshot)
}

func (c *CarbonCycle) Reset(date float64) error {
	if c.engine == nil {
		return fmt.Errorf("%w: reset before the run is prepared", dynamo.ErrNotInitialized)
	}

	switch {
	case date < c.startDate:
		c.engine.Restore(c.initial)
		c.start = c.initial
		c.solver.ResetSpinup()
		c.clearHistory()
		c.record(c.startDate)

	case date == c.startDate:
		c.engine.Restore(c.start)
		c.truncate(date)

	default:
		snap, ok := c.yearly[int(date)]
		if !ok {
			return fmt.Errorf("%w: no carbon cycle state saved for %g", dynamo.ErrInvalidDate, date)
		}
		c.engine.Restore(snap)
		c.truncate(date)
	}

	c.date = math.Max(date, c.startDate)
	c.solver.SetTime(c.date)
	c.log.Info("carbon cycle reset", "date", date)
	return nil
}

func (c *CarbonCycle) truncate(date float64) {
	for _, h := range c.history {
		if h != nil {
			h.Truncate(date)
		}
	}
	for y := range c.yearly {
		if float64(y) > date {
			delete(c.yearly, y)
		}
	}
}

func (c *CarbonCycle) Shutdown() error {
	if c.engine != nil {
		c.log.Info("carbon cycle shut down", "date", c.date, "total_c", c.engine.TotalCarbon())
	}
	return nil
}

// Engine exposes the ocean engine for diagnostics.
func (c *CarbonCycle) Engine() *ocean.Engine { return c.engine }
