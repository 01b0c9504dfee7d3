// Package experiment assembles a core from a run configuration and drives it.
package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/boxclim/internal/config"
	"github.com/san-kum/boxclim/internal/core"
	"github.com/san-kum/boxclim/internal/metrics"
	"github.com/san-kum/boxclim/internal/unitval"
)

type Experiment struct {
	cfg      *config.Config
	registry *Registry
	log      *slog.Logger
	logs     core.LogOpener

	core      *core.Core
	recorder  *metrics.Recorder
	balance   *metrics.MassBalance
	spinup    *metrics.SpinupMonitor
	observers []core.Observer
}

// New prepares an experiment. logs may be nil, in which case components log
// through logger.
func New(cfg *config.Config, logger *slog.Logger, logs core.LogOpener) *Experiment {
	if logger == nil {
		logger = slog.Default()
	}
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		log:      logger,
		logs:     logs,
		recorder: metrics.NewRecorder(),
		balance:  metrics.NewMassBalance(),
		spinup:   metrics.NewSpinupMonitor(),
	}
}

func (e *Experiment) Registry() *Registry { return e.registry }

// AddObserver attaches an extra observer. Call before Setup.
func (e *Experiment) AddObserver(o core.Observer) {
	e.observers = append(e.observers, o)
}

// Setup builds and initializes the components and applies the settings.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	run := e.cfg.Run
	opts := core.Options{
		StartDate: run.StartDate,
		EndDate:   run.EndDate,
		DoSpinup:  run.DoSpinup,
		MaxSpinup: run.MaxSpinup,
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	c := core.New(opts, e.log, e.logs)
	for _, cc := range e.cfg.Components {
		comp, err := e.registry.Build(cc, run)
		if err != nil {
			return err
		}
		if _, err := c.AddComponent(comp); err != nil {
			return err
		}
	}
	c.AddObserver(e.recorder)
	c.AddObserver(e.balance)
	c.AddObserver(e.spinup)
	for _, o := range e.observers {
		c.AddObserver(o)
	}
	if err := c.Init(); err != nil {
		return err
	}

	for _, s := range e.cfg.Settings {
		msg := core.Value(unitval.New(s.Value, unitval.Unit(s.Unit)))
		if s.Date != nil {
			msg = core.ValueAt(*s.Date, msg.Value)
		}
		if err := c.SetData(s.Component, s.Variable, msg); err != nil {
			return fmt.Errorf("apply setting: %w", err)
		}
	}
	e.core = c
	e.log.Info("experiment ready",
		"name", run.Name,
		"components", len(e.cfg.Components),
		"settings", len(e.cfg.Settings))
	return nil
}

func (e *Experiment) Core() *core.Core { return e.core }

// Run advances to the configured end date.
func (e *Experiment) Run(ctx context.Context) (*metrics.Result, error) {
	return e.RunTo(ctx, e.cfg.Run.EndDate)
}

// RunTo advances a year at a time to date, stopping early if ctx is done.
// Dates past the configured end date stop at the end date.
func (e *Experiment) RunTo(ctx context.Context, date float64) (*metrics.Result, error) {
	if e.core == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	date = min(date, e.cfg.Run.EndDate)
	if err := e.core.PrepareToRun(); err != nil {
		return nil, err
	}
	for year := e.core.LastDate() + 1; year <= date; year++ {
		if err := ctx.Err(); err != nil {
			return e.Result(), err
		}
		if err := e.core.Run(year); err != nil {
			return e.Result(), err
		}
	}
	return e.Result(), nil
}

// Result returns the recorded outputs with summary metrics filled in.
func (e *Experiment) Result() *metrics.Result {
	res := e.recorder.Result()
	res.Metrics[e.balance.Name()] = e.balance.Value()
	if e.spinup.Steps() > 0 {
		res.Metrics["spinup_steps"] = float64(e.spinup.Steps())
		res.Metrics[e.spinup.Name()] = e.spinup.Value()
	}
	return res
}

func (e *Experiment) SpinupResiduals() []float64 { return e.spinup.Residuals() }

func (e *Experiment) Close() error {
	if e.core == nil {
		return nil
	}
	return e.core.Shutdown()
}
