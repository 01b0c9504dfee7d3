// Package metrics holds the observers the core visits after every year or
// spin-up step.
package metrics

import (
	"fmt"
	"sort"

	"github.com/san-kum/boxclim/internal/core"
)

// Result is the yearly output of a run. Every series has one value per
// entry in Years.
type Result struct {
	Years   []float64            `json:"years"`
	Series  map[string][]float64 `json:"series"`
	Units   map[string]string    `json:"units"`
	Metrics map[string]float64   `json:"metrics,omitempty"`
}

func NewResult() *Result {
	return &Result{
		Series:  make(map[string][]float64),
		Units:   make(map[string]string),
		Metrics: make(map[string]float64),
	}
}

// Names lists the recorded series in sorted order.
func (r *Result) Names() []string {
	names := make([]string, 0, len(r.Series))
	for n := range r.Series {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *Result) Get(name string) ([]float64, error) {
	s, ok := r.Series[name]
	if !ok {
		return nil, fmt.Errorf("no series %q", name)
	}
	return s, nil
}

// Recorder collects the declared outputs of every visited component once per
// run year.
type Recorder struct {
	result  *Result
	date    float64
	pending bool
}

func NewRecorder() *Recorder {
	return &Recorder{result: NewResult()}
}

func (r *Recorder) ShouldVisit(inSpinup bool, date float64) bool {
	if inSpinup {
		return false
	}
	r.date = date
	r.pending = true
	return true
}

func (r *Recorder) Visit(c core.Component) error {
	rep, ok := c.(core.Reporter)
	if !ok {
		return nil
	}
	if r.pending {
		r.result.Years = append(r.result.Years, r.date)
		r.pending = false
	}
	n := len(r.result.Years)
	for _, name := range rep.Outputs() {
		v, err := c.GetData(name, core.Now())
		if err != nil {
			return fmt.Errorf("record %s.%s: %w", c.Name(), name, err)
		}
		s := r.result.Series[name]
		for len(s) < n-1 {
			s = append(s, 0)
		}
		r.result.Series[name] = append(s[:n-1], v.V)
		if v.Unit != "" {
			r.result.Units[name] = string(v.Unit)
		}
	}
	return nil
}

// Reset drops every year after date.
func (r *Recorder) Reset(date float64) error {
	i := sort.SearchFloat64s(r.result.Years, date+0.5)
	r.result.Years = r.result.Years[:i]
	for name, s := range r.result.Series {
		r.result.Series[name] = s[:min(i, len(s))]
	}
	r.pending = false
	return nil
}

func (r *Recorder) Result() *Result { return r.result }
