package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/san-kum/forcegraph/internal/config"
	"github.com/san-kum/forcegraph/internal/datasource"
	"github.com/san-kum/forcegraph/internal/dynamo"
	"github.com/san-kum/forcegraph/internal/integrators"
	"github.com/san-kum/forcegraph/internal/layout"
	"github.com/san-kum/forcegraph/internal/logging"
	"github.com/san-kum/forcegraph/internal/metrics"
	"github.com/san-kum/forcegraph/internal/render"
	"github.com/san-kum/forcegraph/internal/sim"
	"github.com/spf13/cobra"
)

// engine is one wired layout: data source, scheduler and controller.
type engine struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend *datasource.Memory
	sched   *sim.Scheduler
	ctrl    *layout.Controller
}

// loadConfig applies the preset, then the config file, then any log flags
// given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("log-level") || cfg.Log.Level == "" {
		cfg.Log.Level = logLevel
	}
	if cmd.Flags().Changed("log-format") || cfg.Log.Format == "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return logging.New(cfg.Log.Level, cfg.Log.Format, w)
}

// loadBackend returns an in-memory data source holding the graph file, or
// just the root when path is empty.
func loadBackend(path string) (*datasource.Memory, error) {
	backend := datasource.NewMemory()
	if path == "" {
		return backend, nil
	}
	f, err := datasource.LoadFixtureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	if err := backend.Load(f); err != nil {
		return nil, fmt.Errorf("failed to load graph: %w", err)
	}
	return backend, nil
}

func newEngine(cfg *config.Config, logger *slog.Logger, backend *datasource.Memory, front, back render.Renderer, opts ...layout.Option) (*engine, error) {
	if _, err := integrators.New(cfg.Integrator, cfg.Retention); err != nil {
		return nil, err
	}
	newIntegrator := func() dynamo.Integrator {
		integ, _ := integrators.New(cfg.Integrator, cfg.Retention)
		return integ
	}

	sched := sim.New(logger)
	base := []layout.Option{
		layout.WithSettings(cfg.Layout),
		layout.WithLogger(logger),
		layout.WithIntegrator(newIntegrator),
		layout.WithModelOptions(cfg.ModelOptions()...),
	}
	ctrl := layout.New(backend, sched, front, back, append(base, opts...)...)
	sched.Subscribe(ctrl)
	for _, m := range metrics.Default() {
		sched.AddMetric(m)
	}
	ctrl.Resize(cfg.Viewport.Width, cfg.Viewport.Height)

	return &engine{cfg: cfg, logger: logger, backend: backend, sched: sched, ctrl: ctrl}, nil
}

// settle loads the root and ticks until the layout comes to rest or the
// tick budget runs out.
func (e *engine) settle(ctx context.Context) (int, bool, error) {
	e.ctrl.Start(ctx)
	n, err := e.sched.Drain(ctx, e.cfg.MaxTicks)
	if err != nil {
		return n, false, err
	}
	return n, !e.sched.Running() && e.ctrl.Pending() == 0, nil
}

func (e *engine) metricValues() map[string]float64 {
	out := make(map[string]float64)
	for _, m := range e.sched.Metrics() {
		out[m.Name()] = m.Value()
	}
	return out
}

// fractionLog keeps the moved fraction of every tick for plotting.
type fractionLog struct{ values []float64 }

func (f *fractionLog) OnTick(s dynamo.TickStats) { f.values = append(f.values, s.Fraction) }

func openLogFile(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
