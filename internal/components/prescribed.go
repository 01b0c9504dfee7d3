package components

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/san-kum/boxclim/internal/core"
	"github.com/san-kum/boxclim/internal/dynamo"
	"github.com/san-kum/boxclim/internal/tseries"
	"github.com/san-kum/boxclim/internal/unitval"
)

type forcing struct {
	unit       unitval.Unit
	series     *tseries.Series
	def        float64
	hasDefault bool
}

// Prescribed serves externally supplied time series, such as emissions or
// sea-surface temperature, as capabilities. Values between dated points are
// interpolated; an undated SET sets the value used when no series exists.
type Prescribed struct {
	name string
	host core.Host
	log  *slog.Logger

	vars map[string]*forcing
	date float64
}

// NewPrescribed provides every name in units. Names present in defaults
// start with that constant value.
func NewPrescribed(name string, units map[string]unitval.Unit, defaults map[string]float64) *Prescribed {
	p := &Prescribed{name: name, vars: make(map[string]*forcing, len(units))}
	for v, u := range units {
		f := &forcing{unit: u, series: tseries.New()}
		if d, ok := defaults[v]; ok {
			f.def, f.hasDefault = d, true
		}
		p.vars[v] = f
	}
	return p
}

func (p *Prescribed) Name() string { return p.name }

func (p *Prescribed) Outputs() []string {
	out := make([]string, 0, len(p.vars))
	for v := range p.vars {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (p *Prescribed) Init(host core.Host, log *slog.Logger) error {
	p.host = host
	p.log = log
	for _, v := range p.Outputs() {
		if err := host.RegisterCapability(v, p.name); err != nil {
			return err
		}
		if err := host.RegisterInput(v, p.name); err != nil {
			return err
		}
	}
	return nil
}

func (p *Prescribed) lookup(variable string) (*forcing, error) {
	f, ok := p.vars[variable]
	if !ok {
		return nil, fmt.Errorf("%w: %s does not provide %q", dynamo.ErrUnknownVariable, p.name, variable)
	}
	return f, nil
}

func (p *Prescribed) SetData(variable string, msg core.Message) error {
	f, err := p.lookup(variable)
	if err != nil {
		return err
	}
	x, err := valueIn(msg, f.unit)
	if err != nil {
		return err
	}
	if msg.Dated {
		f.series.Set(msg.Date, x)
		return nil
	}
	f.def, f.hasDefault = x, true
	return nil
}

// SetSeries replaces the dated values of variable.
func (p *Prescribed) SetSeries(variable string, dates, values []float64) error {
	f, err := p.lookup(variable)
	if err != nil {
		return err
	}
	if len(dates) != len(values) {
		return fmt.Errorf("%w: %d dates for %d values", dynamo.ErrMalformedValue, len(dates), len(values))
	}
	f.series = tseries.New()
	for i := range dates {
		f.series.Set(dates[i], values[i])
	}
	return nil
}

func (p *Prescribed) GetData(variable string, msg core.Message) (unitval.Value, error) {
	f, err := p.lookup(variable)
	if err != nil {
		return unitval.Value{}, err
	}
	date := p.date
	if msg.Dated {
		date = msg.Date
	}
	if f.series.Len() > 0 {
		x, err := f.series.At(date)
		return unitval.New(x, f.unit), err
	}
	if f.hasDefault {
		return unitval.New(f.def, f.unit), nil
	}
	return unitval.Value{}, fmt.Errorf("%w: no value for %s", dynamo.ErrUnknownVariable, variable)
}

func (p *Prescribed) PrepareToRun() error {
	for v, f := range p.vars {
		if f.series.Len() == 0 && !f.hasDefault {
			p.log.Warn("prescribed variable has no data", "variable", v)
		}
	}
	return nil
}

func (p *Prescribed) RunSpinup(int) (bool, error) { return true, nil }

func (p *Prescribed) Run(date float64) error {
	p.date = date
	return nil
}

func (p *Prescribed) Reset(date float64) error {
	p.date = date
	return nil
}

func (p *Prescribed) Shutdown() error { return nil }
