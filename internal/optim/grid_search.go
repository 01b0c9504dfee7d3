// Package optim searches carbon-cycle parameter grids for the setting that
// minimizes a run metric.
package optim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/san-kum/boxclim/internal/config"
	"github.com/san-kum/boxclim/internal/experiment"
	"github.com/san-kum/boxclim/internal/metrics"
)

// Param is one grid axis: a component variable and the values to try.
type Param struct {
	Component string
	Variable  string
	Unit      string
	Values    []float64
}

// ParseParam reads "component.variable=v1,v2,..." with an optional
// ":unit" suffix on the variable.
func ParseParam(s string) (Param, error) {
	key, vals, ok := strings.Cut(s, "=")
	if !ok {
		return Param{}, fmt.Errorf("param %q: want component.variable=v1,v2", s)
	}
	comp, variable, ok := strings.Cut(key, ".")
	if !ok {
		return Param{}, fmt.Errorf("param %q: want component.variable", key)
	}
	p := Param{Component: comp, Variable: variable}
	if v, unit, ok := strings.Cut(variable, ":"); ok {
		p.Variable, p.Unit = v, unit
	}
	for _, f := range strings.Split(vals, ",") {
		var v float64
		if _, err := fmt.Sscan(strings.TrimSpace(f), &v); err != nil {
			return Param{}, fmt.Errorf("param %q: bad value %q", s, f)
		}
		p.Values = append(p.Values, v)
	}
	return p, nil
}

func (p Param) key() string { return p.Component + "." + p.Variable }

// Point is one evaluated grid point.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Objective reduces a run result to the number being minimized.
type Objective func(*metrics.Result) (float64, error)

// MetricObjective minimizes a summary metric such as mass_drift.
func MetricObjective(name string) Objective {
	return func(r *metrics.Result) (float64, error) {
		v, ok := r.Metrics[name]
		if !ok {
			return 0, fmt.Errorf("no metric %q", name)
		}
		return v, nil
	}
}

// FinalValueObjective minimizes the distance of a series' last value from
// target.
func FinalValueObjective(series string, target float64) Objective {
	return func(r *metrics.Result) (float64, error) {
		s, err := r.Get(series)
		if err != nil {
			return 0, err
		}
		if len(s) == 0 {
			return 0, fmt.Errorf("series %q is empty", series)
		}
		return math.Abs(s[len(s)-1] - target), nil
	}
}

type GridSearch struct {
	base   *config.Config
	params []Param
	log    *slog.Logger
}

func NewGridSearch(base *config.Config, params []Param, logger *slog.Logger) *GridSearch {
	if logger == nil {
		logger = slog.Default()
	}
	return &GridSearch{base: base, params: params, log: logger}
}

// Search runs one experiment per grid point. Failed points are reported in
// the returned slice but never win.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (Point, []Point, error) {
	best := Point{Value: math.Inf(1)}
	var all []Point
	err := g.searchRecursive(ctx, 0, make(map[string]float64), objective, &best, &all)
	if err != nil {
		return best, all, err
	}
	if best.Params == nil {
		return best, all, fmt.Errorf("no grid point completed")
	}
	return best, all, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	objective Objective,
	best *Point,
	all *[]Point,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.params) {
		val, err := g.evaluate(ctx, current, objective)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p := Point{Params: current, Value: val, Err: err}
		*all = append(*all, p)
		if err != nil {
			g.log.Warn("grid point failed", "params", current, "err", err)
			return nil
		}
		if val < best.Value {
			*best = p
		}
		return nil
	}

	param := g.params[depth]
	for _, val := range param.Values {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[param.key()] = val
		if err := g.searchRecursive(ctx, depth+1, next, objective, best, all); err != nil {
			return err
		}
	}
	return nil
}

func (g *GridSearch) evaluate(ctx context.Context, point map[string]float64, objective Objective) (float64, error) {
	cfg := *g.base
	cfg.Settings = append([]config.Setting(nil), g.base.Settings...)
	for _, p := range g.params {
		cfg.Settings = append(cfg.Settings, config.Setting{
			Component: p.Component,
			Variable:  p.Variable,
			Value:     point[p.key()],
			Unit:      p.Unit,
		})
	}

	exp := experiment.New(&cfg, g.log, nil)
	defer exp.Close()
	if err := exp.Setup(); err != nil {
		return 0, err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	return objective(result)
}
