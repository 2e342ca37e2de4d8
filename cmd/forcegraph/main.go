package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/guptarohit/asciigraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/san-kum/forcegraph/internal/config"
	"github.com/san-kum/forcegraph/internal/datasource"
	"github.com/san-kum/forcegraph/internal/integrators"
	"github.com/san-kum/forcegraph/internal/layout"
	"github.com/san-kum/forcegraph/internal/metrics"
	"github.com/san-kum/forcegraph/internal/render"
	"github.com/san-kum/forcegraph/internal/storage"
	"github.com/san-kum/forcegraph/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	logFormat  string

	// run
	svgOut   string
	plot     bool
	fromRun  string
	noSave   bool
	maxTicks int
	seed     uint64

	// live
	metricsAddr string
	logFile     string
	theme       string

	// bench
	benchSizes []int
)

var (
	brand  = color.New(color.FgHiGreen, color.Bold)
	subtle = color.New(color.FgHiBlack)
	warn   = color.New(color.FgYellow)
	info   = color.New(color.FgCyan)
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "forcegraph",
		Short:         "force-directed graph layout engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".forcegraph", "layout store directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	runCmd := &cobra.Command{
		Use:   "run [graph]",
		Short: "lay out a graph headlessly until it settles",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLayout,
	}
	runCmd.Flags().StringVar(&svgOut, "svg", "", "write the settled layout as SVG")
	runCmd.Flags().BoolVar(&plot, "plot", false, "plot the moved fraction per tick")
	runCmd.Flags().StringVar(&fromRun, "from", "", "start from the positions of a saved run")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the layout")
	runCmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "tick budget (0 keeps the configured one)")
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "placement jitter seed (0 keeps the configured one)")

	liveCmd := &cobra.Command{
		Use:   "live [graph]",
		Short: "edit a graph in a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	liveCmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file")
	liveCmd.Flags().StringVar(&theme, "theme", "dusk", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored layouts",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored layout",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().StringVar(&svgOut, "svg", "", "write the layout as SVG")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		RunE:  listPresets,
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark settling synthetic graphs",
		RunE:  benchLayout,
	}
	benchCmd.Flags().IntSliceVar(&benchSizes, "sizes", []int{10, 40, 120}, "graph sizes")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, showCmd, presetsCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func runLayout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Data = args[0]
	}
	if maxTicks > 0 {
		cfg.MaxTicks = maxTicks
	}
	if seed != 0 {
		cfg.Layout.Seed = seed
	}
	logger := newLogger(cfg, os.Stderr)

	st := storage.New(dataDir)
	var opts []layout.Option
	if fromRun != "" {
		pos, err := st.LoadPositions(fromRun)
		if err != nil {
			return fmt.Errorf("failed to load run %s: %w", fromRun, err)
		}
		opts = append(opts, layout.WithPositions(pos))
	}

	backend, err := loadBackend(cfg.Data)
	if err != nil {
		return err
	}
	svg := render.NewSVG()
	eng, err := newEngine(cfg, logger, backend, svg, render.NewRecorder(), opts...)
	if err != nil {
		return err
	}
	hist := &fractionLog{}
	eng.sched.AddObserver(hist)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	ticks, settled, err := eng.settle(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	stats := eng.ctrl.Stats()
	fmt.Printf("%s %s\n\n", brand.Sprint("forcegraph"), subtle.Sprint(displayData(cfg.Data)))
	fmt.Printf("  particles  %d\n", stats.Live)
	fmt.Printf("  springs    %d\n", stats.Springs)
	fmt.Printf("  magnets    %d\n", stats.Magnets)
	fmt.Printf("  instances  %d\n", stats.Instances)
	fmt.Printf("  ticks      %d in %s\n", ticks, elapsed.Round(time.Millisecond))
	if settled {
		fmt.Printf("  state      %s\n", info.Sprint("settled"))
	} else {
		fmt.Printf("  state      %s\n", warn.Sprint("still moving"))
	}
	if stats.Failures > 0 {
		fmt.Printf("  failures   %s\n", warn.Sprint(stats.Failures))
	}
	vals := eng.metricValues()
	for _, m := range eng.sched.Metrics() {
		fmt.Printf("  %-10s %.4f\n", m.Name(), vals[m.Name()])
	}

	if plot && len(hist.values) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(hist.values,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("moved fraction per tick"),
		))
	}

	if svgOut != "" {
		if err := os.WriteFile(svgOut, []byte(svg.String()), 0644); err != nil {
			return err
		}
		fmt.Printf("\n  svg        %s\n", svgOut)
	}

	if noSave {
		return nil
	}
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Data:       cfg.Data,
		Preset:     preset,
		Seed:       cfg.Layout.Seed,
		Dt:         cfg.Dt,
		Integrator: cfg.Integrator,
		Ticks:      ticks,
		Settled:    settled,
		Metrics:    vals,
	}, eng.ctrl.Snapshot())
	if err != nil {
		return err
	}
	fmt.Printf("  saved      %s\n", runID)
	return nil
}

func displayData(path string) string {
	if path == "" {
		return "(empty graph)"
	}
	return path
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Data = args[0]
	}
	w, closeLog, err := openLogFile(logFile)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := newLogger(cfg, w)

	backend, err := loadBackend(cfg.Data)
	if err != nil {
		return err
	}

	var view *viz.Model
	opts := []layout.Option{
		layout.WithOnError(func(err error) { view.Report(err) }),
	}
	var rec *metrics.Recorder
	reg := prometheus.NewRegistry()
	if metricsAddr != "" {
		rec = metrics.NewRecorder(reg)
		opts = append(opts, layout.WithObserver(rec))
	}

	eng, err := newEngine(cfg, logger, backend, render.NewCanvas(80, 24), render.NewCanvas(80, 24), opts...)
	if err != nil {
		return err
	}
	view = viz.New(eng.ctrl, eng.sched)
	view.SetTheme(theme)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if rec != nil {
		eng.sched.AddObserver(rec)
		srv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	eng.ctrl.Start(ctx)
	p := tea.NewProgram(view, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no layouts found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATA\tTIME\tPARTICLES\tTICKS\tSETTLED\tINTEG")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%t\t%s\n",
			run.ID,
			displayData(run.Data),
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Particles,
			run.Ticks,
			run.Settled,
			run.Integrator,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	snap, err := st.LoadSnapshot(runID)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n\n", brand.Sprint(meta.ID), subtle.Sprint(meta.Timestamp.Format(time.RFC3339)))
	fmt.Printf("  data        %s\n", displayData(meta.Data))
	if meta.Preset != "" {
		fmt.Printf("  preset      %s\n", meta.Preset)
	}
	fmt.Printf("  integrator  %s (dt %g, seed %d)\n", meta.Integrator, meta.Dt, meta.Seed)
	fmt.Printf("  context     %s\n", meta.Context)
	if meta.Drilled != "" {
		fmt.Printf("  drilled     %s\n", meta.Drilled)
	}
	fmt.Printf("  particles   %d\n", len(snap.Particles))
	fmt.Printf("  edges       %d\n", len(snap.Edges))
	fmt.Printf("  instances   %d\n", len(snap.Instances))
	fmt.Printf("  ticks       %d (settled %t)\n", meta.Ticks, meta.Settled)
	for name, v := range meta.Metrics {
		fmt.Printf("  %-11s %.4f\n", name, v)
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tKIND\tNAME\tX\tY")
	for _, p := range snap.Particles {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%.2f\t%.2f\n", p.ID, p.Kind, p.Name, p.X, p.Y)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if svgOut != "" {
		svg := render.NewSVG()
		if skipped := snap.Draw(svg); skipped > 0 {
			fmt.Println(warn.Sprintf("  %d edges skipped", skipped))
		}
		if err := os.WriteFile(svgOut, []byte(svg.String()), 0644); err != nil {
			return err
		}
		fmt.Printf("\n  svg  %s\n", svgOut)
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tINTEG\tDT\tSPRING\tREST\tMAGNET\tCORE")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g\t%g\t%g\n",
			brand.Sprint(name),
			cfg.Integrator,
			cfg.Dt,
			cfg.Layout.ParentSpring.Constant,
			cfg.Layout.ParentSpring.RestLength,
			cfg.Layout.Magnet.Constant,
			cfg.Layout.Magnet.MinimumDistance,
		)
	}
	return w.Flush()
}

// syntheticGraph is a tree of n descriptors with fan-out three, plus a cross
// relation for every fifth descriptor.
func syntheticGraph(n int) *datasource.Fixture {
	f := &datasource.Fixture{}
	for i := 1; i <= n; i++ {
		d := datasource.FixtureDescriptor{ID: fmt.Sprintf("n%d", i), Name: fmt.Sprintf("node %d", i)}
		if i > 1 {
			d.Parent = fmt.Sprintf("n%d", (i-2)/3+1)
		}
		if i > 5 && i%5 == 0 {
			d.Also = []string{fmt.Sprintf("n%d", i-3)}
		}
		f.Descriptors = append(f.Descriptors, d)
	}
	return f
}

func benchLayout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stderr)
	if !cmd.Flags().Changed("log-level") {
		cfg.Log.Level = "error"
		logger = newLogger(cfg, os.Stderr)
	}

	fmt.Printf("benchmarking %s\n\n", subtle.Sprint(strings.Join(integrators.Names(), ", ")))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEG\tNODES\tPARTICLES\tTICKS\tSETTLED\tTIME\tTICKS/SEC")

	for _, name := range integrators.Names() {
		for _, n := range benchSizes {
			run := *cfg
			run.Integrator = name

			backend := datasource.NewMemory()
			if err := backend.Load(syntheticGraph(n)); err != nil {
				return err
			}
			eng, err := newEngine(&run, logger, backend, render.NewRecorder(), render.NewRecorder())
			if err != nil {
				return err
			}

			start := time.Now()
			ticks, settled, err := eng.settle(context.Background())
			if err != nil {
				return err
			}
			elapsed := time.Since(start)
			rate := float64(ticks) / elapsed.Seconds()

			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%t\t%s\t%.0f\n",
				name, n, eng.ctrl.Stats().Live, ticks, settled, elapsed.Round(time.Microsecond), rate)
		}
	}
	return w.Flush()
}
