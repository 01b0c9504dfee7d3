package ocean

import (
	"fmt"

	"github.com/san-kum/boxclim/internal/dynamo"
)

// Box indices into the engine's box arena.
const (
	BoxHL = iota
	BoxLL
	BoxIntermediate
	BoxDeep
	NumBoxes
)

var boxNames = [NumBoxes]string{"hl", "ll", "io", "do"}

// Connection is an outgoing circulation link stored on its source box.
type Connection struct {
	Target int
	Rate   float64 // fraction of source carbon per year
	Window int     // years of source carbon history averaged
}

// Box is one well-mixed ocean reservoir.
type Box struct {
	Name    string
	Carbon  float64 // Pg C
	Volume  float64 // m3
	Area    float64 // m2, zero for boxes below the surface
	RefTemp float64 // degC
	Surface bool

	TempAnomaly float64
	AtmCO2      float64 // ppmv, surface boxes only

	Conns   []Connection
	history []float64

	// surface chemistry
	ALK  float64
	Chem Carbonate
}

// Connect adds a link to target. A zero rate is legal and moves nothing.
func (b *Box) Connect(target int, rate float64, window int) error {
	if rate < 0 {
		return fmt.Errorf("%w: %s circulation rate %g is negative", dynamo.ErrParameterBounds, b.Name, rate)
	}
	if window < 1 {
		return fmt.Errorf("%w: %s averaging window %d", dynamo.ErrParameterBounds, b.Name, window)
	}
	b.Conns = append(b.Conns, Connection{Target: target, Rate: rate, Window: window})
	return nil
}

func (b *Box) Temperature() float64 { return b.RefTemp + b.TempAnomaly }

// DIC converts the box carbon to mol/kg.
func (b *Box) DIC() float64 {
	return b.Carbon / PgPerMol / (b.Volume * SeawaterDensity)
}

func dicToCarbon(dic, volume float64) float64 {
	return dic * volume * SeawaterDensity * PgPerMol
}

// recordYear pushes the current carbon onto the averaging history, keeping
// at most keep entries.
func (b *Box) recordYear(keep int) {
	if keep <= 0 {
		b.history = b.history[:0]
		return
	}
	b.history = append(b.history, b.Carbon)
	if len(b.history) > keep {
		b.history = append(b.history[:0], b.history[len(b.history)-keep:]...)
	}
}

// windowCarbon averages the current carbon with up to window-1 recorded years.
func (b *Box) windowCarbon(window int) float64 {
	sum, n := b.Carbon, 1
	for i := len(b.history) - 1; i >= 0 && n < window; i-- {
		sum += b.history[i]
		n++
	}
	return sum / float64(n)
}

func (b *Box) clone() Box {
	c := *b
	c.Conns = append([]Connection(nil), b.Conns...)
	c.history = append([]float64(nil), b.history...)
	return c
}

// Circulate moves carbon along every connection for a year fraction yf. All
// fluxes are computed from the pre-step carbon before any box is updated.
func Circulate(boxes []Box, yf float64) {
	delta := make([]float64, len(boxes))
	for i := range boxes {
		for _, c := range boxes[i].Conns {
			f := c.Rate * boxes[i].windowCarbon(c.Window) * yf
			delta[i] -= f
			delta[c.Target] += f
		}
	}
	for i := range boxes {
		boxes[i].Carbon += delta[i]
	}
}

func maxWindow(boxes []Box) int {
	w := 0
	for i := range boxes {
		for _, c := range boxes[i].Conns {
			w = max(w, c.Window)
		}
	}
	return w
}
