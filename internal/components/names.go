// Package components holds the model units the core drives: the carbon
// cycle (ocean engine plus solver) and prescribed time-series collaborators.
package components

import (
	"fmt"

	"github.com/san-kum/boxclim/internal/core"
	"github.com/san-kum/boxclim/internal/dynamo"
	"github.com/san-kum/boxclim/internal/unitval"
)

// Capabilities exchanged between components.
const (
	CapFFIEmissions = "ffi_emissions"
	CapSST          = "sst"
	CapAtmosCO2     = "atmos_co2"
	CapDeepOcean    = "ocean_c_do"
)

type ccVar int

const (
	// outputs
	varAtmosCO2 ccVar = iota
	varAtmosC
	varOceanC
	varOceanCHL
	varOceanCLL
	varOceanCIO
	varOceanCDO
	varEarthC
	varTotalC
	varOceanUptake
	varPHHL
	varPHLL
	varPCO2HL
	varPCO2LL
	varCO3HL
	varCO3LL
	varOmegaCaHL
	varOmegaCaLL
	varOmegaArHL
	varOmegaArLL
	varALKHL
	varALKLL
	varDICHL
	varDICLL
	varMaxTimestep
	varSpinupResidual

	// parameters
	varTT
	varTU
	varTWI
	varTID
	varTempHL
	varTempLL
	varSalinity
	varWind
	varHLFraction
	varOceanArea
	varWindow
	varSpinupChem
	varAbsTol
	varRelTol
	varSpinupTol
	varStepMax
	varStepMin
	varStepFactor
	varStepTrigger
	varStepTimeout

	numCCVars
)

type varInfo struct {
	name     string
	unit     unitval.Unit
	output   bool
	settable bool
}

var carbonVars = [numCCVars]varInfo{
	varAtmosCO2:       {"atmos_co2", unitval.PPMVCO2, true, false},
	varAtmosC:         {"atmos_c", unitval.PgC, true, true},
	varOceanC:         {"ocean_c", unitval.PgC, true, false},
	varOceanCHL:       {"ocean_c_hl", unitval.PgC, true, true},
	varOceanCLL:       {"ocean_c_ll", unitval.PgC, true, true},
	varOceanCIO:       {"ocean_c_io", unitval.PgC, true, true},
	varOceanCDO:       {"ocean_c_do", unitval.PgC, true, true},
	varEarthC:         {"earth_c", unitval.PgC, true, true},
	varTotalC:         {"total_c", unitval.PgC, true, false},
	varOceanUptake:    {"ocean_uptake", unitval.PgCPerYr, true, false},
	varPHHL:           {"ph_hl", unitval.PH, true, false},
	varPHLL:           {"ph_ll", unitval.PH, true, false},
	varPCO2HL:         {"pco2_hl", unitval.MicroAtm, true, false},
	varPCO2LL:         {"pco2_ll", unitval.MicroAtm, true, false},
	varCO3HL:          {"co3_hl", unitval.MolPerKg, true, false},
	varCO3LL:          {"co3_ll", unitval.MolPerKg, true, false},
	varOmegaCaHL:      {"omega_ca_hl", unitval.Unitless, true, false},
	varOmegaCaLL:      {"omega_ca_ll", unitval.Unitless, true, false},
	varOmegaArHL:      {"omega_ar_hl", unitval.Unitless, true, false},
	varOmegaArLL:      {"omega_ar_ll", unitval.Unitless, true, false},
	varALKHL:          {"alk_hl", unitval.MolPerKg, true, false},
	varALKLL:          {"alk_ll", unitval.MolPerKg, true, false},
	varDICHL:          {"dic_hl", unitval.MolPerKg, true, false},
	varDICLL:          {"dic_ll", unitval.MolPerKg, true, false},
	varMaxTimestep:    {"max_timestep", unitval.Years, true, false},
	varSpinupResidual: {"spinup_residual", unitval.PgC, true, false},

	varTT:          {"tt", unitval.M3PerSec, false, true},
	varTU:          {"tu", unitval.M3PerSec, false, true},
	varTWI:         {"twi", unitval.M3PerSec, false, true},
	varTID:         {"tid", unitval.M3PerSec, false, true},
	varTempHL:      {"temp_hl", unitval.DegC, false, true},
	varTempLL:      {"temp_ll", unitval.DegC, false, true},
	varSalinity:    {"salinity", unitval.PSU, false, true},
	varWind:        {"wind", unitval.MPerSec, false, true},
	varHLFraction:  {"hl_fraction", unitval.Unitless, false, true},
	varOceanArea:   {"ocean_area", unitval.SquareM, false, true},
	varWindow:      {"circ_window", unitval.Years, false, true},
	varSpinupChem:  {"spinup_chem", unitval.Unitless, false, true},
	varAbsTol:      {"abs_tol", unitval.PgC, false, true},
	varRelTol:      {"rel_tol", unitval.Unitless, false, true},
	varSpinupTol:   {"spinup_tol", unitval.PgC, false, true},
	varStepMax:     {"step_max", unitval.Years, false, true},
	varStepMin:     {"step_min", unitval.Years, false, true},
	varStepFactor:  {"step_factor", unitval.Unitless, false, true},
	varStepTrigger: {"step_trigger", unitval.PgCPerYr, false, true},
	varStepTimeout: {"step_timeout", unitval.Years, false, true},
}

var carbonVarByName = func() map[string]ccVar {
	m := make(map[string]ccVar, numCCVars)
	for i, info := range carbonVars {
		m[info.name] = ccVar(i)
	}
	return m
}()

func (v ccVar) String() string { return carbonVars[v].name }

func parseCarbonVar(name string) (ccVar, error) {
	v, ok := carbonVarByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", dynamo.ErrUnknownVariable, name)
	}
	return v, nil
}

// CarbonOutputs names every output of the carbon-cycle component.
func CarbonOutputs() []string {
	var out []string
	for _, info := range carbonVars {
		if info.output {
			out = append(out, info.name)
		}
	}
	return out
}

// CarbonParameters names every settable variable of the carbon-cycle
// component.
func CarbonParameters() []string {
	var out []string
	for _, info := range carbonVars {
		if info.settable {
			out = append(out, info.name)
		}
	}
	return out
}

// valueIn reads msg as a number in unit. An untagged value is taken as
// already being in unit.
func valueIn(msg core.Message, unit unitval.Unit) (float64, error) {
	if msg.Value.Unit == unitval.NoUnit {
		return msg.Value.V, nil
	}
	if err := msg.Value.Check(unit); err != nil {
		return 0, err
	}
	return msg.Value.V, nil
}
