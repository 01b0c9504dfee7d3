package metrics

import (
	"math"
	"slices"

	"github.com/san-kum/boxclim/internal/core"
)

const (
	varTotalCarbon    = "total_c"
	varSpinupResidual = "spinup_residual"
)

func providesVar(c core.Component, name string) bool {
	r, ok := c.(core.Reporter)
	return ok && slices.Contains(r.Outputs(), name)
}

// MassBalance tracks the departure of total carbon from its value in the
// first year visited.
type MassBalance struct {
	name   string
	date   float64
	dates  []float64
	totals []float64
}

func NewMassBalance() *MassBalance {
	return &MassBalance{name: "mass_drift"}
}

func (m *MassBalance) Name() string { return m.name }

func (m *MassBalance) ShouldVisit(inSpinup bool, date float64) bool {
	m.date = date
	return !inSpinup
}

func (m *MassBalance) Visit(c core.Component) error {
	if !providesVar(c, varTotalCarbon) {
		return nil
	}
	v, err := c.GetData(varTotalCarbon, core.Now())
	if err != nil {
		return err
	}
	m.dates = append(m.dates, m.date)
	m.totals = append(m.totals, v.V)
	return nil
}

// Value is the maximum absolute drift in Pg C.
func (m *MassBalance) Value() float64 {
	drift := 0.0
	for _, v := range m.totals {
		drift = math.Max(drift, math.Abs(v-m.totals[0]))
	}
	return drift
}

// Current is the latest drift in Pg C.
func (m *MassBalance) Current() float64 {
	if len(m.totals) == 0 {
		return 0
	}
	return m.totals[len(m.totals)-1] - m.totals[0]
}

func (m *MassBalance) Reset(date float64) error {
	i := 0
	for i < len(m.dates) && m.dates[i] <= date {
		i++
	}
	m.dates = m.dates[:i]
	m.totals = m.totals[:i]
	return nil
}

// SpinupMonitor records the spin-up residual after every spin-up step.
type SpinupMonitor struct {
	name      string
	residuals []float64
}

func NewSpinupMonitor() *SpinupMonitor {
	return &SpinupMonitor{name: "spinup_residual"}
}

func (s *SpinupMonitor) Name() string { return s.name }

// ShouldVisit starts a fresh sequence whenever spin-up begins again.
func (s *SpinupMonitor) ShouldVisit(inSpinup bool, step float64) bool {
	if inSpinup && step == 1 {
		s.residuals = s.residuals[:0]
	}
	return inSpinup
}

func (s *SpinupMonitor) Visit(c core.Component) error {
	if !providesVar(c, varSpinupResidual) {
		return nil
	}
	v, err := c.GetData(varSpinupResidual, core.Now())
	if err != nil {
		return err
	}
	s.residuals = append(s.residuals, v.V)
	return nil
}

func (s *SpinupMonitor) Residuals() []float64 { return slices.Clone(s.residuals) }

// Steps is the number of spin-up steps seen.
func (s *SpinupMonitor) Steps() int { return len(s.residuals) }

// Value is the last residual, or +Inf before any step.
func (s *SpinupMonitor) Value() float64 {
	if len(s.residuals) == 0 {
		return math.Inf(1)
	}
	return s.residuals[len(s.residuals)-1]
}

// NonIncreasingAfter reports whether the residuals never grow from step
// skip onwards.
func (s *SpinupMonitor) NonIncreasingAfter(skip int) bool {
	for i := max(skip, 1); i < len(s.residuals); i++ {
		if s.residuals[i] > s.residuals[i-1] {
			return false
		}
	}
	return true
}
