package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/san-kum/forcegraph/internal/dynamo"
	"github.com/san-kum/forcegraph/internal/layout"
	"github.com/san-kum/forcegraph/internal/physics"
	"gopkg.in/yaml.v3"
)

const (
	DefaultIntegrator = "rk4"
	DefaultDt         = 1.0
	DefaultRetention  = 0.5
	DefaultWidth      = 160.0
	DefaultHeight     = 96.0
	DefaultMaxTicks   = 2000
)

type Config struct {
	Integrator string          `yaml:"integrator" toml:"integrator"`
	Retention  float64         `yaml:"retention" toml:"retention"`
	Dt         float64         `yaml:"dt" toml:"dt"`
	MaxTicks   int             `yaml:"max_ticks" toml:"max_ticks"`
	Data       string          `yaml:"data,omitempty" toml:"data,omitempty"`
	Viewport   ViewportConfig  `yaml:"viewport" toml:"viewport"`
	Throttle   ThrottleConfig  `yaml:"throttle" toml:"throttle"`
	Windows    physics.Windows `yaml:"windows" toml:"windows"`
	Layout     layout.Settings `yaml:"layout" toml:"layout"`
	Log        LogConfig       `yaml:"log" toml:"log"`
}

type ViewportConfig struct {
	Width  float64 `yaml:"width" toml:"width"`
	Height float64 `yaml:"height" toml:"height"`
	SkewX  float64 `yaml:"skew_x" toml:"skew_x"`
	SkewY  float64 `yaml:"skew_y" toml:"skew_y"`
}

// ThrottleConfig mirrors physics.Throttle with delays in milliseconds.
type ThrottleConfig struct {
	MinParticles int     `yaml:"min_particles" toml:"min_particles"`
	StopBelow    float64 `yaml:"stop_below" toml:"stop_below"`
	SlowBelow    float64 `yaml:"slow_below" toml:"slow_below"`
	EaseBelow    float64 `yaml:"ease_below" toml:"ease_below"`
	SlowMs       float64 `yaml:"slow_ms" toml:"slow_ms"`
	EaseMs       float64 `yaml:"ease_ms" toml:"ease_ms"`
	FastMs       float64 `yaml:"fast_ms" toml:"fast_ms"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

func DefaultConfig() *Config {
	t := physics.DefaultThrottle()
	return &Config{
		Integrator: DefaultIntegrator,
		Retention:  DefaultRetention,
		Dt:         DefaultDt,
		MaxTicks:   DefaultMaxTicks,
		Viewport: ViewportConfig{
			Width:  DefaultWidth,
			Height: DefaultHeight,
			SkewX:  1,
			SkewY:  1,
		},
		Throttle: ThrottleConfig{
			MinParticles: t.MinParticles,
			StopBelow:    t.StopBelow,
			SlowBelow:    t.SlowBelow,
			EaseBelow:    t.EaseBelow,
			SlowMs:       millis(t.Slow),
			EaseMs:       millis(t.Ease),
			FastMs:       millis(t.Fast),
		},
		Windows: physics.DefaultWindows(),
		Layout:  layout.DefaultSettings(),
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func (t ThrottleConfig) Physics() physics.Throttle {
	ms := func(v float64) time.Duration { return time.Duration(v * float64(time.Millisecond)) }
	return physics.Throttle{
		MinParticles: t.MinParticles,
		StopBelow:    t.StopBelow,
		SlowBelow:    t.SlowBelow,
		EaseBelow:    t.EaseBelow,
		Slow:         ms(t.SlowMs),
		Ease:         ms(t.EaseMs),
		Fast:         ms(t.FastMs),
	}
}

// ModelOptions returns the particle model options the configuration implies.
func (c *Config) ModelOptions() []physics.Option {
	return []physics.Option{
		physics.WithDt(c.Dt),
		physics.WithThrottle(c.Throttle.Physics()),
		physics.WithWindows(c.Windows),
		physics.WithSkew(c.Viewport.SkewX, c.Viewport.SkewY),
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads a YAML file, or TOML when the name ends in .toml, over the
// defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", dynamo.ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Dt <= 0:
		return invalid("dt must be positive, got %g", c.Dt)
	case c.Retention <= 0 || c.Retention > 1:
		return invalid("retention must be in (0, 1], got %g", c.Retention)
	case c.Viewport.Width < 0 || c.Viewport.Height < 0:
		return invalid("viewport must not be negative")
	case c.Viewport.SkewX <= 0 || c.Viewport.SkewY <= 0:
		return invalid("skew must be positive")
	case c.Layout.DescriptorMass <= 0 || c.Layout.RelationMass <= 0 || c.Layout.DragMass <= 0:
		return invalid("particle masses must be positive")
	case c.Layout.Magnet.MinimumDistance < 0:
		return invalid("magnet minimum distance must not be negative")
	case !(c.Throttle.StopBelow <= c.Throttle.SlowBelow && c.Throttle.SlowBelow <= c.Throttle.EaseBelow):
		return invalid("throttle thresholds must satisfy stop <= slow <= ease")
	case c.Throttle.SlowMs < 0 || c.Throttle.EaseMs < 0 || c.Throttle.FastMs < 0:
		return invalid("throttle delays must not be negative")
	case c.Windows.SpringAge < 0 || c.Windows.MagnetAge < 0 || c.Windows.MagnetCap < 0:
		return invalid("active windows must not be negative")
	}
	return nil
}
