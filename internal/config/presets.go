package config

import (
	"slices"

	"github.com/san-kum/forcegraph/internal/physics"
)

// Presets are named force configurations layered over DefaultConfig.
var Presets = map[string]func(*Config){
	"default": func(*Config) {},
	// reach spreads large graphs: longer, stiffer springs and a stronger
	// magnet with a wider core.
	"reach": func(c *Config) {
		s := physics.SpringParams{Constant: 0.5, Damping: 0.2, RestLength: 30}
		c.Layout.ParentSpring = s
		c.Layout.RelatedSpring = s
		c.Layout.Magnet = physics.MagnetParams{Constant: -5000, MinimumDistance: 30}
	},
	"euler": func(c *Config) {
		c.Integrator = "euler"
		c.Dt = 0.5
	},
}

func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
