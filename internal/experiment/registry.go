package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/boxclim/internal/components"
	"github.com/san-kum/boxclim/internal/config"
	"github.com/san-kum/boxclim/internal/core"
	"github.com/san-kum/boxclim/internal/dynamo"
	"github.com/san-kum/boxclim/internal/unitval"
)

// Factory builds a component from its configuration entry.
type Factory func(cfg config.ComponentConfig, run config.RunConfig) (core.Component, error)

type Registry struct {
	kinds map[string]Factory
}

func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[string]Factory)}

	r.kinds[config.KindCarbonCycle] = func(cfg config.ComponentConfig, run config.RunConfig) (core.Component, error) {
		return components.NewCarbonCycle(cfg.Name, run.StartDate), nil
	}
	r.kinds[config.KindPrescribed] = func(cfg config.ComponentConfig, _ config.RunConfig) (core.Component, error) {
		if len(cfg.Provides) == 0 {
			return nil, fmt.Errorf("%w: prescribed component %s provides nothing", dynamo.ErrUnknownVariable, cfg.Name)
		}
		units := make(map[string]unitval.Unit, len(cfg.Provides))
		for _, name := range cfg.Provides {
			units[name] = unitval.Unit(cfg.Units[name])
		}
		return components.NewPrescribed(cfg.Name, units, cfg.Defaults), nil
	}

	return r
}

// Register adds or replaces a component kind.
func (r *Registry) Register(kind string, f Factory) {
	r.kinds[kind] = f
}

func (r *Registry) Build(cfg config.ComponentConfig, run config.RunConfig) (core.Component, error) {
	fn, ok := r.kinds[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q for %s", dynamo.ErrUnknownComponent, cfg.Kind, cfg.Name)
	}
	return fn(cfg, run)
}

func (r *Registry) ListKinds() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
