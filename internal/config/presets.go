package config

import "sort"

// Presets are named scenarios built on DefaultConfig.
var Presets = map[string]func() *Config{
	// Spin up and hold the pre-industrial steady state.
	"preindustrial": func() *Config {
		cfg := DefaultConfig()
		cfg.Run.Name = "preindustrial"
		cfg.Run.EndDate = 1850
		return cfg
	},
	"constant": func() *Config {
		cfg := DefaultConfig()
		cfg.Run.Name = "constant"
		cfg.Run.EndDate = 2100
		cfg.Settings = []Setting{
			Dated("forcing", "ffi_emissions", 1850, 0, "Pg C/yr"),
			Dated("forcing", "ffi_emissions", 1851, 10, "Pg C/yr"),
		}
		return cfg
	},
	"ramp": func() *Config {
		cfg := DefaultConfig()
		cfg.Run.Name = "ramp"
		cfg.Run.EndDate = 2100
		cfg.Settings = []Setting{
			Dated("forcing", "ffi_emissions", 1850, 0, "Pg C/yr"),
			Dated("forcing", "ffi_emissions", 2050, 20, "Pg C/yr"),
			Dated("forcing", "sst", 1850, 0, "degC"),
			Dated("forcing", "sst", 2100, 3, "degC"),
		}
		return cfg
	},
	// A single 100 Pg C release in 1900.
	"pulse": func() *Config {
		cfg := DefaultConfig()
		cfg.Run.Name = "pulse"
		cfg.Run.EndDate = 2200
		cfg.Settings = []Setting{
			Dated("forcing", "ffi_emissions", 1899, 0, "Pg C/yr"),
			Dated("forcing", "ffi_emissions", 1900, 100, "Pg C/yr"),
			Dated("forcing", "ffi_emissions", 1901, 0, "Pg C/yr"),
		}
		return cfg
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
