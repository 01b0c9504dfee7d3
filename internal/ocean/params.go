package ocean

import (
	"fmt"

	"github.com/san-kum/boxclim/internal/dynamo"
)

// Params describes the four-box ocean and its initial pools.
type Params struct {
	OceanArea  float64 // m2
	HLFraction float64 // share of the surface area at high latitude

	SurfaceDepth      float64 // m
	IntermediateDepth float64 // m
	DeepDepth         float64 // m

	// Volume transports in m3/s: thermohaline, upwelling, warm-intermediate
	// exchange and intermediate-deep exchange.
	TT  float64
	TU  float64
	TWI float64
	TID float64

	Window int // circulation averaging window, yr

	CarbonHL           float64 // Pg C
	CarbonLL           float64
	CarbonIntermediate float64
	CarbonDeep         float64
	Atmosphere         float64 // Pg C
	Earth              float64 // Pg C

	RefTempHL float64 // degC
	RefTempLL float64
	Salinity  float64 // psu
	Wind      float64 // m/s

	SpinupChemistry bool

	Step StepParams
}

func DefaultParams() Params {
	return Params{
		OceanArea:          3.6e14,
		HLFraction:         0.15,
		SurfaceDepth:       100,
		IntermediateDepth:  1000,
		DeepDepth:          3000,
		TT:                 7.2e7,
		TU:                 4.9e7,
		TWI:                1.25e7,
		TID:                2.0e8,
		Window:             1,
		CarbonHL:           130,
		CarbonLL:           730,
		CarbonIntermediate: 8610,
		CarbonDeep:         25840,
		Atmosphere:         588.071,
		Earth:              5500,
		RefTempHL:          2.0,
		RefTempLL:          20.0,
		Salinity:           35.0,
		Wind:               6.7,
		Step:               DefaultStepParams(),
	}
}

func (p Params) Validate() error {
	if p.OceanArea <= 0 {
		return fmt.Errorf("%w: ocean area %g", dynamo.ErrParameterBounds, p.OceanArea)
	}
	if p.HLFraction <= 0 || p.HLFraction >= 1 {
		return fmt.Errorf("%w: high-latitude fraction %g outside (0, 1)", dynamo.ErrParameterBounds, p.HLFraction)
	}
	if p.SurfaceDepth <= 0 || p.IntermediateDepth <= 0 || p.DeepDepth <= 0 {
		return fmt.Errorf("%w: box depths must be positive", dynamo.ErrParameterBounds)
	}
	for name, v := range map[string]float64{"tt": p.TT, "tu": p.TU, "twi": p.TWI, "tid": p.TID} {
		if v < 0 {
			return fmt.Errorf("%w: circulation %s=%g is negative", dynamo.ErrParameterBounds, name, v)
		}
	}
	if p.Window < 1 {
		return fmt.Errorf("%w: averaging window %d", dynamo.ErrParameterBounds, p.Window)
	}
	for name, v := range map[string]float64{
		"hl": p.CarbonHL, "ll": p.CarbonLL, "io": p.CarbonIntermediate, "do": p.CarbonDeep,
		"atmos": p.Atmosphere,
	} {
		if v <= 0 {
			return fmt.Errorf("%w: initial carbon %s=%g must be positive", dynamo.ErrParameterBounds, name, v)
		}
	}
	if p.Earth < 0 {
		return fmt.Errorf("%w: earth carbon %g is negative", dynamo.ErrParameterBounds, p.Earth)
	}
	if p.Salinity <= 0 || p.Wind < 0 {
		return fmt.Errorf("%w: salinity %g, wind %g", dynamo.ErrParameterBounds, p.Salinity, p.Wind)
	}
	return p.Step.Validate()
}

// buildBoxes lays out the arena and wires the circulation.
func (p Params) buildBoxes() ([]Box, error) {
	hlArea := p.OceanArea * p.HLFraction
	llArea := p.OceanArea - hlArea

	boxes := make([]Box, NumBoxes)
	boxes[BoxHL] = Box{Name: boxNames[BoxHL], Carbon: p.CarbonHL, Area: hlArea, Volume: hlArea * p.SurfaceDepth, RefTemp: p.RefTempHL, Surface: true}
	boxes[BoxLL] = Box{Name: boxNames[BoxLL], Carbon: p.CarbonLL, Area: llArea, Volume: llArea * p.SurfaceDepth, RefTemp: p.RefTempLL, Surface: true}
	boxes[BoxIntermediate] = Box{Name: boxNames[BoxIntermediate], Carbon: p.CarbonIntermediate, Volume: p.OceanArea * p.IntermediateDepth}
	boxes[BoxDeep] = Box{Name: boxNames[BoxDeep], Carbon: p.CarbonDeep, Volume: p.OceanArea * p.DeepDepth}

	// volume transport (m3/s) to a fraction of the source box per year
	rate := func(src int, flow float64) float64 {
		return flow * SecondsPerYear / boxes[src].Volume
	}

	links := []struct {
		from, to int
		flow     float64
	}{
		{BoxLL, BoxHL, p.TT + p.TU},
		{BoxLL, BoxIntermediate, p.TWI},
		{BoxHL, BoxDeep, p.TT + p.TU},
		{BoxIntermediate, BoxLL, p.TT + p.TU + p.TWI},
		{BoxIntermediate, BoxDeep, p.TID},
		{BoxDeep, BoxIntermediate, p.TT + p.TU + p.TID},
	}
	for _, l := range links {
		if err := boxes[l.from].Connect(l.to, rate(l.from, l.flow), p.Window); err != nil {
			return nil, err
		}
	}
	return boxes, nil
}
