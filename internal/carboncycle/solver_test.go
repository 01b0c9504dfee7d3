package carboncycle

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/boxclim/internal/dynamo"
)

// twoPool moves carbon from pool 0 to pool 1 at rate k and refuses steps
// longer than maxStep.
type twoPool struct {
	k        float64
	maxStep  float64
	pools    dynamo.State
	odeStart float64
	stashes  []float64
	slow     int
}

func newTwoPool(a, b, k, maxStep float64) *twoPool {
	return &twoPool{k: k, maxStep: maxStep, pools: dynamo.State{a, b}}
}

func (m *twoPool) PoolNames() []string { return []string{"a", "b"} }

func (m *twoPool) ExportPools(t float64) dynamo.State {
	m.odeStart = t
	return m.pools.Clone()
}

func (m *twoPool) Derivatives(t float64, y dynamo.State) (dynamo.State, dynamo.Outcome, error) {
	if t-m.odeStart > m.maxStep+1e-9 {
		return nil, dynamo.OutcomeRetry, nil
	}
	f := m.k * (y[0] - y[1])
	return dynamo.State{-f, f}, dynamo.OutcomeSuccess, nil
}

func (m *twoPool) UpdateSlowParameters(t float64, y dynamo.State) error {
	m.slow++
	return nil
}

func (m *twoPool) Stash(t float64, y dynamo.State) error {
	m.stashes = append(m.stashes, t)
	m.pools = y.Clone()
	return nil
}

func TestSolverAdvanceOneYear(t *testing.T) {
	m := newTwoPool(100, 0, 0.5, 1.0)
	s := New(m, DefaultConfig(), nil)
	s.SetTime(1850)

	if err := s.Advance(1851); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if s.Time() != 1851 {
		t.Errorf("time = %v, want 1851", s.Time())
	}
	if len(m.stashes) != 1 || m.stashes[0] != 1851 {
		t.Errorf("stashes = %v, want [1851]", m.stashes)
	}
	if m.slow != 1 {
		t.Errorf("slow parameters evaluated %d times, want 1", m.slow)
	}

	// a-b relaxes as exp(-2kt)
	want := 50 + 50*math.Exp(-1.0)
	if math.Abs(m.pools[0]-want) > 1e-4 {
		t.Errorf("pool a = %.6f, want %.6f", m.pools[0], want)
	}
	if math.Abs(m.pools.Sum()-100) > 1e-9 {
		t.Errorf("mass not conserved: %v", m.pools.Sum())
	}
}

func TestSolverBisectsOnRetry(t *testing.T) {
	m := newTwoPool(100, 0, 0.1, 0.3)
	s := New(m, DefaultConfig(), nil)
	s.SetTime(0)

	if err := s.Advance(1); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	if len(m.stashes) < 2 {
		t.Fatalf("expected several sub-intervals, got %v", m.stashes)
	}
	for i := 1; i < len(m.stashes); i++ {
		if m.stashes[i]-m.stashes[i-1] > 0.3+1e-9 {
			t.Errorf("sub-interval %d longer than max step: %v", i, m.stashes)
		}
	}
	if last := m.stashes[len(m.stashes)-1]; last != 1 {
		t.Errorf("final stash at %v, want 1", last)
	}
	if m.stashes[0] != 0.25 {
		t.Errorf("first stash at %v, want 0.25", m.stashes[0])
	}
	if s.Stashes() != len(m.stashes) {
		t.Errorf("Stashes() = %d, want %d", s.Stashes(), len(m.stashes))
	}
}

func TestSolverRetryExhausted(t *testing.T) {
	m := newTwoPool(100, 0, 0.1, 0.05)
	s := New(m, DefaultConfig(), nil)
	s.SetTime(0)

	err := s.Advance(1)
	if !errors.Is(err, dynamo.ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}
	if dynamo.Classify(err) != dynamo.ClassIntegration {
		t.Errorf("retry exhaustion should be an integration fault")
	}
	if len(m.stashes) != 0 {
		t.Errorf("no sub-interval should have been stashed, got %v", m.stashes)
	}
}

// limitedPool reports its step bound so the solver can respect it up front.
type limitedPool struct{ *twoPool }

func (m limitedPool) MaxStep() float64 { return m.maxStep }

func TestSolverHonoursModelMaxStep(t *testing.T) {
	// 0.05 is below what three bisections of a year can reach
	m := newTwoPool(100, 0, 0.1, 0.05)
	s := New(limitedPool{m}, DefaultConfig(), nil)
	s.SetTime(0)

	if err := s.Advance(1); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if len(m.stashes) != 20 {
		t.Fatalf("expected 20 sub-intervals, got %d: %v", len(m.stashes), m.stashes)
	}
	prev := 0.0
	for i, st := range m.stashes {
		if st-prev > 0.05+1e-9 {
			t.Errorf("sub-interval %d spans %g", i, st-prev)
		}
		prev = st
	}
	if last := m.stashes[len(m.stashes)-1]; last != 1 {
		t.Errorf("final stash at %v, want 1", last)
	}
	if math.Abs(m.pools.Sum()-100) > 1e-9 {
		t.Errorf("mass not conserved: %v", m.pools.Sum())
	}
}

func TestSolverRejectsFractionalTarget(t *testing.T) {
	s := New(newTwoPool(1, 0, 0.1, 1), DefaultConfig(), nil)
	s.SetTime(1850)

	for _, target := range []float64{1850, 1849, 1850.5} {
		if err := s.Advance(target); !errors.Is(err, dynamo.ErrInvalidDate) {
			t.Errorf("Advance(%v): expected ErrInvalidDate, got %v", target, err)
		}
	}
}

func TestSolverMultiYearAdvance(t *testing.T) {
	m := newTwoPool(100, 0, 0.05, 10.0)
	s := New(m, DefaultConfig(), nil)
	s.SetTime(0)

	if err := s.Advance(3); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if len(m.stashes) != 1 || m.stashes[0] != 3 {
		t.Errorf("expected a single stash at 3, got %v", m.stashes)
	}
	want := 50 + 50*math.Exp(-0.3)
	if math.Abs(m.pools[0]-want) > 1e-4 {
		t.Errorf("pool a = %.6f, want %.6f", m.pools[0], want)
	}
}

func TestSolverSpinupConverges(t *testing.T) {
	m := newTwoPool(100, 0, 0.5, 1.0)
	s := New(m, DefaultConfig(), nil)
	s.SetStartDate(1745)

	var residuals []float64
	converged := false
	for step := 1; step <= 100 && !converged; step++ {
		var err error
		converged, err = s.SpinupStep(step)
		if err != nil {
			t.Fatalf("SpinupStep(%d): %v", step, err)
		}
		residuals = append(residuals, s.Residual())
	}

	if !converged {
		t.Fatalf("spinup did not converge, last residual %v", s.Residual())
	}
	for i := 1; i < len(residuals); i++ {
		if residuals[i] > residuals[i-1] {
			t.Errorf("residual increased at step %d: %v -> %v", i+1, residuals[i-1], residuals[i])
		}
	}
	if s.Time() != 1745 {
		t.Errorf("time after spinup = %v, want 1745", s.Time())
	}

	again, err := s.SpinupStep(len(residuals) + 1)
	if err != nil || !again {
		t.Errorf("converged solver should stay converged: %v %v", again, err)
	}
	if s.Time() != 1745 {
		t.Errorf("extra spinup call moved the clock to %v", s.Time())
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	bad := DefaultConfig()
	bad.SpinupTolerance = 0
	if err := bad.Validate(); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
}
