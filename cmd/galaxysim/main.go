package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/Elib27/galaxy-simulation/internal/config"
	"github.com/Elib27/galaxy-simulation/internal/export"
	"github.com/Elib27/galaxy-simulation/internal/force"
	"github.com/Elib27/galaxy-simulation/internal/galaxy"
	"github.com/Elib27/galaxy-simulation/internal/metrics"
	"github.com/Elib27/galaxy-simulation/internal/octree"
	"github.com/Elib27/galaxy-simulation/internal/sim"
	"github.com/Elib27/galaxy-simulation/internal/storage"
	"github.com/Elib27/galaxy-simulation/internal/stream"
	"github.com/Elib27/galaxy-simulation/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool

	stars        int
	initialSpeed float64
	timeStep     float64
	theta        float64
	softening    float64
	seed         int64
	workers      int
	steps        int
	dt           float64
	sampleEvery  int

	series    string
	output    string
	addr      string
	fps       int
	paused    bool
	overwrite bool
	thetas    []float64
	logFile   string
	svgFile   string

	snapshotSteps int
	snapshotOut   string
	pitch         float64
	imageSize     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "galaxysim",
		Short:         "Barnes-Hut galaxy simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "dir", ".galaxysim", "run data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation and record telemetry",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "base step size")
	runCmd.Flags().IntVar(&sampleEvery, "sample-every", config.DefaultSampleEvery, "record telemetry every n steps")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run telemetry (latest run by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&series, "series", "kinetic_energy", "telemetry column to plot, or \"all\"")
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the series as an SVG chart")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and telemetry as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run the simulation in the terminal viewer",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	liveCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "base step size")
	liveCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "stream positions to websocket renderers",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addSimFlags(serveCmd)
	serveCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "base step size")
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVar(&fps, "fps", 30, "steps per second")
	serveCmd.Flags().BoolVar(&paused, "paused", false, "wait for a client to resume")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "compare Barnes-Hut against direct summation",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}
	addSimFlags(benchCmd)
	benchCmd.Flags().Float64SliceVar(&thetas, "thetas", []float64{0.3, 0.5, 1, 2}, "opening angles to compare")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "step the simulation and write the galaxy as SVG",
		Args:  cobra.NoArgs,
		RunE:  runSnapshot,
	}
	addSimFlags(snapshotCmd)
	snapshotCmd.Flags().IntVar(&snapshotSteps, "steps", 0, "steps to run before the snapshot")
	snapshotCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "base step size")
	snapshotCmd.Flags().StringVarP(&snapshotOut, "output", "o", "galaxy.svg", "output file")
	snapshotCmd.Flags().Float64Var(&pitch, "pitch", 0, "camera pitch in radians (0 looks down the y axis)")
	snapshotCmd.Flags().IntVar(&imageSize, "size", 800, "image size in pixels")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	addSimFlags(initCmd)
	initCmd.Flags().BoolVarP(&overwrite, "force", "f", false, "overwrite an existing file")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, liveCmd, serveCmd, benchCmd, snapshotCmd, presetsCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.IntVar(&stars, "stars", config.DefaultStars, "number of stars")
	f.Float64Var(&initialSpeed, "speed", config.DefaultInitialSpeed, "initial orbital speed")
	f.Float64Var(&timeStep, "time-step", config.DefaultTimeStep, "time step multiplier")
	f.Float64Var(&theta, "theta", config.DefaultTheta, "opening angle")
	f.Float64Var(&softening, "softening", config.DefaultSoftening, "softening added to d^2")
	f.Int64Var(&seed, "seed", 0, "random seed (0 draws from time)")
	f.IntVar(&workers, "workers", 0, "force workers (0 = GOMAXPROCS)")
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// resolveConfig layers preset, config file and explicitly set flags, in
// that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
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

	flags := cmd.Flags()
	if flags.Changed("stars") {
		cfg.Stars = stars
		cfg.Bodies = nil
	}
	if flags.Changed("speed") {
		cfg.InitialSpeed = initialSpeed
	}
	if flags.Changed("time-step") {
		cfg.TimeStep = timeStep
	}
	if flags.Changed("theta") {
		cfg.Theta = theta
	}
	if flags.Changed("softening") {
		cfg.Softening = softening
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("steps") {
		cfg.Run.Steps = steps
	}
	if flags.Changed("dt") {
		cfg.Run.Dt = dt
	}
	if flags.Changed("sample-every") {
		cfg.Run.SampleEvery = sampleEvery
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr)

	collector := metrics.NewCollector(cfg.Run.SampleEvery, metrics.Default()...)
	ctrl, err := cfg.NewController(sim.WithLogger(logger), sim.WithObserver(collector))
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	run, err := st.Open()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d stars for %d steps...\n", ctrl.Len(), cfg.Run.Steps)
	start := time.Now()
	ctrl.Resume()

	last := ctrl.Snapshot()
	var runErr error
	flush := func() error {
		return run.Append(collector.Drain()...)
	}

	for i := 0; i < cfg.Run.Steps; i++ {
		if ctx.Err() != nil {
			logger.Warn("run interrupted", "step", last.Step)
			break
		}
		f, _, err := ctrl.Step(ctx, cfg.Run.Dt)
		if err != nil {
			if errors.Is(err, sim.ErrContextCanceled) {
				logger.Warn("run interrupted", "step", last.Step)
				break
			}
			runErr = err
			break
		}
		last = f
		if (i+1)%(cfg.Run.SampleEvery*10) == 0 {
			if runErr = flush(); runErr != nil {
				break
			}
		}
	}
	if runErr == nil {
		runErr = flush()
	}
	elapsed := time.Since(start)

	meta := storage.NewMetadata(ctrl.Params(), ctrl.Seed(), cfg.Run.Dt)
	meta.Preset = preset
	meta.Steps = last.Step
	meta.SimTime = last.Time
	meta.Elapsed = elapsed.Seconds()
	meta.Metrics = collector.Values()
	if err := run.Close(meta); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", run.ID)
	fmt.Printf("steps: %d (t=%.1f)\n", last.Step, last.Time)
	fmt.Printf("seed: %d\n", ctrl.Seed())
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(meta.Metrics))
	for name := range meta.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, meta.Metrics[name])
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
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tPRESET\tSTARS\tSPEED\tTHETA\tSTEPS\tSIM TIME\tELAPSED")

	for _, run := range runs {
		name := run.Preset
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.1f\t%.2f\t%d\t%.1f\t%.2fs\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			name,
			run.Stars,
			run.InitialSpeed,
			run.Theta,
			run.Steps,
			run.SimTime,
			run.Elapsed,
		)
	}

	return w.Flush()
}

func runID(st *storage.Store, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	meta, err := st.Latest()
	if err != nil {
		return "", err
	}
	return meta.ID, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	id, err := runID(st, args)
	if err != nil {
		return err
	}

	meta, err := st.Load(id)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(id)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("stars: %d  theta: %.2f  softening: %.1f\n", meta.Stars, meta.Theta, meta.Softening)
	fmt.Printf("samples: %d\n\n", len(samples))

	names := []string{series}
	if series == "all" {
		names = metrics.SeriesNames()
	}
	for _, name := range names {
		data := metrics.Series(samples, name)
		if data == nil {
			return fmt.Errorf("unknown series %q (available: %v)", name, metrics.SeriesNames())
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if svgFile != "" {
		if series == "all" {
			return fmt.Errorf("--svg needs a single series")
		}
		f, err := os.Create(svgFile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := export.Series(f, metrics.Series(samples, series), 800, 300, "#00ccff"); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	id, err := runID(st, args)
	if err != nil {
		return err
	}
	if output == "" {
		return st.Export(os.Stdout, id)
	}
	if err := st.ExportFile(output, id); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", id, output)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(io.Discard)
	if logFile != "" {
		f, err := tea.LogToFile(logFile, "galaxysim")
		if err != nil {
			return err
		}
		defer f.Close()
		logger = newLogger(f)
	}

	ctrl, err := cfg.NewController(sim.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(viz.NewModel(ctx, ctrl, cfg.Run.Dt), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if fps <= 0 {
		return fmt.Errorf("fps must be positive, got %d", fps)
	}
	logger := newLogger(os.Stderr)

	ctrl, err := cfg.NewController(sim.WithLogger(logger))
	if err != nil {
		return err
	}
	if !paused {
		ctrl.Resume()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := stream.NewServer(ctrl, logger)
	fmt.Printf("streaming %d stars on ws://%s/ws\n", ctrl.Len(), addr)
	return srv.ListenAndServe(ctx, addr, time.Second/time.Duration(fps), cfg.Run.Dt)
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	p := cfg.Params()

	s := p.Seed
	if s == 0 {
		s = time.Now().UnixNano()
	}
	system, err := cfg.System()
	if err != nil {
		return err
	}
	if system == nil {
		system = galaxy.Generate(rand.New(rand.NewSource(s)), p.Galaxy, p.Stars, p.InitialSpeed)
	}
	pos := system.Positions()

	buildStart := time.Now()
	tree := octree.Build(octree.Centered(p.BoundSize), p.MinCellSize, pos)
	build := time.Since(buildStart)

	exact := make([]mgl64.Vec3, len(pos))
	directStart := time.Now()
	force.Direct(pos, p.Softening, exact)
	direct := time.Since(directStart)

	fmt.Printf("stars: %d  softening: %.1f  seed: %d\n", len(pos), p.Softening, s)
	fmt.Printf("tree: %d nodes, depth %d, build %v\n", tree.Stats().Nodes, tree.Stats().MaxDepth, build.Round(time.Microsecond))
	fmt.Printf("direct summation: %v\n\n", direct.Round(time.Microsecond))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "THETA\tREL ERROR\tTIME\tSPEEDUP\tINTERACTIONS")

	ctx := context.Background()
	acc := make([]mgl64.Vec3, len(pos))
	for _, th := range thetas {
		if th < 0 {
			return fmt.Errorf("%w: theta %g", sim.ErrParameterBounds, th)
		}
		e := force.NewEvaluator(th, p.Softening, p.Workers)
		start := time.Now()
		if err := e.Evaluate(ctx, tree, pos, acc); err != nil {
			return err
		}
		elapsed := time.Since(start)

		fmt.Fprintf(w, "%.2f\t%.2e\t%v\t%.1fx\t%d\n",
			th,
			force.RelativeError(acc, exact),
			elapsed.Round(time.Microsecond),
			direct.Seconds()/elapsed.Seconds(),
			e.Interactions(),
		)
	}
	return w.Flush()
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if snapshotSteps < 0 {
		return fmt.Errorf("%w: steps %d", sim.ErrParameterBounds, snapshotSteps)
	}

	ctrl, err := cfg.NewController(sim.WithLogger(newLogger(os.Stderr)))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctrl.Resume()
	for i := 0; i < snapshotSteps; i++ {
		if _, _, err := ctrl.Step(ctx, cfg.Run.Dt); err != nil {
			return err
		}
	}
	frame := ctrl.Snapshot()

	f, err := os.Create(snapshotOut)
	if err != nil {
		return err
	}
	defer f.Close()

	cam := viz.NewCamera(cfg.Galaxy.Diameter * 1.2)
	cam.Pitch = pitch
	visible, err := export.Stars(f, cam, frame.Positions, imageSize, "#ffffff")
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s: step %d, %d of %d stars visible\n", snapshotOut, frame.Step, visible, len(frame.Positions))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTARS\tSPEED\tTIME STEP\tTHETA\tSTEPS")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		p := cfg.Params()
		fmt.Fprintf(w, "%s\t%d\t%.1f\t%.1f\t%.2f\t%d\n", name, p.Stars, p.InitialSpeed, p.TimeStep, p.Theta, cfg.Run.Steps)
	}
	return w.Flush()
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := "galaxy.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
