package main

import (
	"context"
	"fmt"
	"maps"
	"math"
	"os"
	"os/signal"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/thetastep/internal/config"
	"github.com/san-kum/thetastep/internal/dynamo"
	"github.com/san-kum/thetastep/internal/experiment"
	"github.com/san-kum/thetastep/internal/integrators"
	"github.com/san-kum/thetastep/internal/linalg"
	"github.com/san-kum/thetastep/internal/newton"
	"github.com/san-kum/thetastep/internal/sim"
	"github.com/san-kum/thetastep/internal/storage"
	"github.com/san-kum/thetastep/internal/viz"
)

var (
	dataDir string
	verbose bool
	logger  = zap.NewNop()

	preset     string
	configFile string
	dt         float64
	duration   float64
	scheme     string
	alphaFlag  float64
	staggered  bool
	ordering   string
	maxIter    int
	sTol       float64
	xTol       float64
	initState  []float64
	params     map[string]string

	// Plot
	plotWidth  int
	plotHeight int
	// Live view
	stepsPerTick int
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "thetastep",
		Short: "theta-method integration lab",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".thetastep", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every newton solve")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run simulation",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trajectory as csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [model] [scheme...]",
		Short: "compare schemes on one model",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareSchemes,
	}
	addRunFlags(compareCmd)

	solveCmd := &cobra.Command{
		Use:   "solve [problem]",
		Short: "solve a root problem with newton's method",
		Args:  cobra.ExactArgs(1),
		RunE:  solveProblem,
	}
	solveCmd.Flags().Float64SliceVar(&initState, "x0", nil, "initial guess")
	solveCmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxIter, "iteration budget")
	solveCmd.Flags().Float64Var(&sTol, "f-tol", config.DefaultTol, "residual tolerance")
	solveCmd.Flags().Float64Var(&xTol, "x-tol", config.DefaultTol, "step tolerance")
	solveCmd.Flags().StringVar(&ordering, "ordering", linalg.ColMajor.String(), "jacobian storage order (row, col)")

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "step a model interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerTick, "steps-per-tick", 5, "steps per frame")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd,
		presetsCmd, compareCmd, solveCmd, liveCmd)
	return rootCmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	model := args[0]

	cfg, err := resolveConfig(cmd, model)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	sys, err := registry.GetModel(model)
	if err != nil {
		return err
	}

	expCfg, err := experimentConfig(cfg, registry, sys)
	if err != nil {
		return err
	}

	exp := experiment.New(expCfg)
	if err := exp.Setup(sys, registry.GetInput(model), registry.DefaultMetrics(model, sys), logger); err != nil {
		return err
	}

	start := time.Now()
	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(storage.RunSpec{
		Model:          model,
		Scheme:         schemeLabel(cfg),
		Alpha:          expCfg.Alpha,
		Dt:             expCfg.Dt,
		Duration:       expCfg.Duration,
		Ordering:       expCfg.Ordering.String(),
		StaggeredInput: expCfg.StaggeredInput,
	}, result)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("steps: %d (alpha=%g, %.1fms)\n", result.StepsTaken, expCfg.Alpha, float64(elapsed.Microseconds())/1000)
	if expCfg.Alpha != 0 {
		fmt.Printf("newton: %d iterations, max %d per step\n", result.NewtonIterations, result.MaxNewtonIterations)
		for _, o := range sortedOutcomes(result.Outcomes) {
			fmt.Printf("  %s: %d\n", o, result.Outcomes[o])
		}
	}
	fmt.Printf("final: %s\n", formatState(result.Final()))
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(result.Metrics) {
		fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
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
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tDURATION\tDT\tSCHEME\tALPHA\tNEWTON")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%g\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Scheme,
			run.Alpha,
			run.NewtonIterations,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s (%s)\n", meta.Model, meta.Scheme)
	fmt.Printf("samples: %d\n\n", len(states))

	series := make([][]float64, len(states[0]))
	for i := range series {
		series[i] = make([]float64, len(states))
		for k, s := range states {
			if i < len(s) {
				series[i][k] = s[i]
			}
		}
	}

	graph := asciigraph.PlotMany(series,
		asciigraph.Height(plotHeight),
		asciigraph.Width(plotWidth),
		asciigraph.SeriesColors(seriesColors(len(series))...),
		asciigraph.Caption(fmt.Sprintf("%s state vs time", meta.Model)),
	)
	fmt.Println(graph)

	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
}

func exportCSV(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportCSV(os.Stdout, args[0])
}

func listPresets(cmd *cobra.Command, args []string) error {
	modelNames := config.ListModels()
	if len(args) == 1 {
		modelNames = []string{args[0]}
	}

	for _, model := range modelNames {
		names := config.ListPresets(model)
		if len(names) == 0 {
			return fmt.Errorf("no presets for model: %s", model)
		}
		fmt.Printf("%s:\n", model)
		for _, name := range names {
			p := config.GetPreset(model, name)
			fmt.Printf("  %-10s %s dt=%g time=%g\n", name, schemeLabel(p), p.Dt, p.Duration)
		}
	}
	return nil
}

func compareSchemes(cmd *cobra.Command, args []string) error {
	model := args[0]
	schemes := args[1:]

	registry := experiment.NewRegistry()
	if len(schemes) == 0 {
		schemes = registry.ListSchemes()
	}

	cfg, err := resolveConfig(cmd, model)
	if err != nil {
		return err
	}

	sys, err := registry.GetModel(model)
	if err != nil {
		return err
	}
	expCfg, err := experimentConfig(cfg, registry, sys)
	if err != nil {
		return err
	}
	exp := experiment.New(expCfg)
	if err := exp.Setup(sys, registry.GetInput(model), nil, logger); err != nil {
		return err
	}

	variants := make([]sim.Variant, 0, len(schemes))
	for _, name := range schemes {
		alpha, err := registry.GetScheme(name)
		if err != nil {
			return err
		}
		simCfg := expCfg.SimConfig()
		simCfg.Alpha = alpha
		variants = append(variants, sim.Variant{Name: name, Config: simCfg})
	}

	fmt.Printf("comparing schemes for %s (dt=%.4f, duration=%.1fs)\n\n", model, expCfg.Dt, expCfg.Duration)

	start := time.Now()
	results, err := sim.NewSweep(exp.GetSimulator()).Run(cmd.Context(), expCfg.InitState, variants)
	elapsed := time.Since(start)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCHEME\tALPHA\tFINAL\tMAX_DIFF\tNEWTON\tMAX_ITER")
	for i, r := range results {
		fmt.Fprintf(w, "%s\t%g\t%s\t%.3e\t%d\t%d\n",
			variants[i].Name,
			variants[i].Config.Alpha,
			formatState(r.Final()),
			maxTrajectoryDiff(results[0], r),
			r.NewtonIterations,
			r.MaxNewtonIterations,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nmax diff is against %s; sweep took %.1fms\n\n", variants[0].Name, float64(elapsed.Microseconds())/1000)

	series := make([][]float64, len(results))
	for i, r := range results {
		series[i] = make([]float64, len(r.States))
		for k, s := range r.States {
			series[i][k] = s[0]
		}
	}
	fmt.Println(asciigraph.PlotMany(series,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.SeriesColors(seriesColors(len(series))...),
		asciigraph.SeriesLegends(schemes...),
		asciigraph.Caption("x0 vs time"),
	))

	return nil
}

func solveProblem(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()
	problem, err := registry.GetProblem(args[0])
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, registry.ListProblems())
	}

	order, err := linalg.ParseOrdering(ordering)
	if err != nil {
		return err
	}

	x := problem.DefaultGuess()
	if cmd.Flags().Changed("x0") {
		x = dynamo.State(initState).Clone()
	}

	n := problem.Size()
	res, err := newton.Solve(newton.Config{
		Ordering: order,
		FSize:    n,
		XSize:    n,
		FTol:     sTol,
		XTol:     xTol,
		MaxIter:  maxIter,
		F:        problem,
		DF:       problem,
		Logger:   logger,
	}, 0, x, nil, nil, nil)
	if err != nil {
		return err
	}

	fmt.Printf("outcome: %s\n", res.Outcome)
	fmt.Printf("iterations: %d\n", res.Iterations)
	fmt.Printf("x: %s\n", formatState(x))
	fmt.Printf("|F(x)|: %.3e\n", res.ResidualNorm)
	if res.Outcome != newton.ResidualToleranceMet && res.Outcome != newton.StepToleranceMet {
		return fmt.Errorf("no root found: %s", res.Outcome)
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	model := args[0]

	cfg, err := resolveConfig(cmd, model)
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	sys, err := registry.GetModel(model)
	if err != nil {
		return err
	}
	expCfg, err := experimentConfig(cfg, registry, sys)
	if err != nil {
		return err
	}
	if len(expCfg.Params) > 0 {
		exp := experiment.New(expCfg)
		if err := exp.Setup(sys, nil, nil, nil); err != nil {
			return err
		}
	}

	stepCfg := integrators.Config{
		Ts:       expCfg.Dt,
		Alpha:    expCfg.Alpha,
		Ordering: expCfg.Ordering,
		STol:     expCfg.STol,
		XTol:     expCfg.XTol,
		MaxIter:  expCfg.MaxIter,
	}
	if expCfg.StaggeredInput {
		stepCfg.UOffset = 1
	}

	m := viz.NewModel(sys, registry.GetInput(model), stepCfg, expCfg.InitState, model, stepsPerTick)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func formatState(x dynamo.State) string {
	parts := make([]string, len(x))
	for i, v := range x {
		parts[i] = fmt.Sprintf("%.6g", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// maxTrajectoryDiff is the largest componentwise gap over the common prefix
// of two trajectories.
func maxTrajectoryDiff(a, b *sim.Result) float64 {
	n := min(len(a.States), len(b.States))
	d := 0.0
	for k := 0; k < n; k++ {
		d = math.Max(d, a.States[k].MaxAbsDiff(b.States[k]))
	}
	return d
}

func seriesColors(n int) []asciigraph.AnsiColor {
	palette := []asciigraph.AnsiColor{asciigraph.Blue, asciigraph.Red, asciigraph.Green, asciigraph.Yellow, asciigraph.Magenta, asciigraph.Cyan}
	colors := make([]asciigraph.AnsiColor, n)
	for i := range colors {
		colors[i] = palette[i%len(palette)]
	}
	return colors
}

func sortedOutcomes(m map[newton.Outcome]int) []newton.Outcome {
	return slices.Sorted(maps.Keys(m))
}

func sortedKeys(m map[string]float64) []string {
	return slices.Sorted(maps.Keys(m))
}
