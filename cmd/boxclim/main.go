package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/san-kum/boxclim/internal/components"
	"github.com/san-kum/boxclim/internal/config"
	"github.com/san-kum/boxclim/internal/core"
	"github.com/san-kum/boxclim/internal/experiment"
	"github.com/san-kum/boxclim/internal/export"
	"github.com/san-kum/boxclim/internal/logging"
	"github.com/san-kum/boxclim/internal/metrics"
	"github.com/san-kum/boxclim/internal/optim"
	"github.com/san-kum/boxclim/internal/storage"
	"github.com/san-kum/boxclim/internal/store"
	"github.com/san-kum/boxclim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	runName    string
	startDate  float64
	endDate    float64
	doSpinup   bool
	maxSpinup  int
	logLevel   string
	logDir     string
	sqlitePath string
	showVars   []string
	theme      string
	outFile    string
	msgDate    float64
	paramArgs  []string
	objective  string
	target     float64
)

var defaultVars = []string{"atmos_co2", "ffi_emissions", "ocean_c", "ocean_uptake", "ph_hl", "ph_ll"}

func main() {
	env, err := config.LoadEnv(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:           "boxclim",
		Short:         "four-box ocean carbon cycle model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", env.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", env.LogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", env.LogDir, "write one log file per component into this directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run an experiment and save its outputs",
		Args:  cobra.NoArgs,
		RunE:  runExperiment,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "also record the run into this sqlite database")
	runCmd.Flags().StringSliceVar(&showVars, "vars", defaultVars, "outputs to summarize")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run an experiment with a live terminal view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().StringSliceVar(&showVars, "vars", defaultVars, "outputs to chart")
	liveCmd.Flags().StringVar(&theme, "theme", "ocean", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	sendCmd := &cobra.Command{
		Use:   "send [GET|DUMP] [variable]",
		Short: "run an experiment, then send a message to the core",
		Args:  cobra.ExactArgs(2),
		RunE:  sendMessage,
	}
	addRunFlags(sendCmd)
	sendCmd.Flags().Float64Var(&msgDate, "at", 0, "date to query (0 for the current value)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "list runs from this sqlite database instead")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id] [variable...]",
		Short: "plot run outputs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "read the run from this sqlite database")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run outputs to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id] [variable...]",
		Short: "export run outputs to JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id] [variable]",
		Short: "export one output as an SVG chart",
		Args:  cobra.ExactArgs(2),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default <variable>.svg)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				c := config.GetPreset(p)
				fmt.Printf("  %-14s %g-%g spinup=%v\n", p, c.Run.StartDate, c.Run.EndDate, c.Run.DoSpinup)
			}
			return nil
		},
	}

	varsCmd := &cobra.Command{
		Use:   "vars",
		Short: "list carbon-cycle outputs and parameters",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("outputs:")
			for _, v := range components.CarbonOutputs() {
				fmt.Printf("  %s\n", v)
			}
			fmt.Println("\nparameters:")
			for _, v := range components.CarbonParameters() {
				fmt.Printf("  %s\n", v)
			}
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a run configuration to edit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return config.Save(args[0], cfg)
		},
	}
	addRunFlags(initCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid search carbon-cycle parameters",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVarP(&paramArgs, "param", "p", nil, "grid axis, component.variable[:unit]=v1,v2,...")
	sweepCmd.Flags().StringVar(&objective, "objective", "mass_drift", "metric to minimize, or a series name with --target")
	sweepCmd.Flags().Float64Var(&target, "target", math.NaN(), "minimize |last value of --objective series - target|")

	rootCmd.AddCommand(runCmd, liveCmd, sendCmd, sweepCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, presetsCmd, varsCmd, initCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVar(&runName, "name", "", "run name")
	cmd.Flags().Float64Var(&startDate, "start", config.DefaultStartDate, "start year")
	cmd.Flags().Float64Var(&endDate, "end", config.DefaultEndDate, "end year")
	cmd.Flags().BoolVar(&doSpinup, "spinup", true, "spin up to steady state before the start year")
	cmd.Flags().IntVar(&maxSpinup, "max-spinup", config.DefaultMaxSpinup, "spin-up step limit")
}

// loadConfig resolves the preset or config file, then applies any flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		cfg.Run.Name = runName
	}
	if flags.Changed("start") {
		cfg.Run.StartDate = startDate
	}
	if flags.Changed("end") {
		cfg.Run.EndDate = endDate
	}
	if flags.Changed("spinup") {
		cfg.Run.DoSpinup = doSpinup
	}
	if flags.Changed("max-spinup") {
		cfg.Run.MaxSpinup = maxSpinup
	}
	if cfg.Run.Name == "" {
		cfg.Run.Name = "default"
		if preset != "" {
			cfg.Run.Name = preset
		}
	}
	if logDir != "" {
		cfg.Run.LogDir = logDir
	}
	if logLevel != "" {
		cfg.Run.LogLevel = logLevel
	}
	return cfg, cfg.Validate()
}

// newExperiment builds an experiment whose components log through a
// logging.Manager. The core is also shut down at exit.
func newExperiment(cmd *cobra.Command, observers ...core.Observer) (*experiment.Experiment, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	level, err := logging.ParseLevel(cfg.Run.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logs := logging.NewManager(cfg.Run.LogDir, level, os.Stderr)
	exp := experiment.New(cfg, logs.Console(), logs)
	for _, o := range observers {
		exp.AddObserver(o)
	}
	if err := exp.Setup(); err != nil {
		return nil, nil, err
	}
	atexit.Register(func() { exp.Close() })
	return exp, cfg, nil
}

func runExperiment(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var observers []core.Observer
	var rec *store.Recorder
	if sqlitePath != "" {
		db, err := store.Open(sqlitePath)
		if err != nil {
			return err
		}
		rec, err = store.NewRecorder(ctx, db, cfg.Run.Name, nil)
		if err != nil {
			db.Close()
			return err
		}
		// flushes whatever the run recorded, even when it fails or is interrupted
		defer func() {
			if err := rec.Close(); err != nil {
				fmt.Fprintln(os.Stderr, "sqlite:", err)
			}
		}()
		observers = append(observers, rec)
	}

	exp, cfg, err := newExperiment(cmd, observers...)
	if err != nil {
		return err
	}
	defer exp.Close()

	fmt.Printf("running %s %g-%g...\n", cfg.Run.Name, cfg.Run.StartDate, cfg.Run.EndDate)
	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if rec != nil {
		if err := rec.Flush(); err != nil {
			return err
		}
	}
	runID, err := st.Save(cfg.Run.Name, cfg.Run.StartDate, cfg.Run.EndDate, cfg.Run.DoSpinup, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	if rec != nil {
		fmt.Printf("sqlite run id: %s\n", rec.RunID())
	}
	fmt.Println(viz.Summary(cfg.Run.Name, result, showVars))
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	viz.SetTheme(theme)
	exp, cfg, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	defer exp.Close()

	c := exp.Core()
	if err := c.PrepareToRun(); err != nil {
		return err
	}
	return viz.RunLive(viz.CoreSimulation{Core: c}, cfg.Run.Name, showVars)
}

func sendMessage(cmd *cobra.Command, args []string) error {
	kind, err := core.ParseKind(args[0])
	if err != nil {
		return err
	}
	if kind == core.KindSet {
		return fmt.Errorf("SET is only accepted in a config file's settings")
	}

	exp, _, err := newExperiment(cmd)
	if err != nil {
		return err
	}
	defer exp.Close()
	if _, err := exp.Run(cmd.Context()); err != nil {
		return err
	}

	msg := core.Now()
	if msgDate != 0 {
		msg = core.At(msgDate)
	}
	v, err := exp.Core().SendMessage(kind, args[1], msg)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s = %s\n", kind, args[1], v)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	if len(paramArgs) == 0 {
		return fmt.Errorf("at least one --param is required")
	}
	var params []optim.Param
	for _, arg := range paramArgs {
		p, err := optim.ParseParam(arg)
		if err != nil {
			return err
		}
		params = append(params, p)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Run.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.NewManager("", max(level, slog.LevelWarn), os.Stderr).Console()

	obj := optim.MetricObjective(objective)
	if !math.IsNaN(target) {
		obj = optim.FinalValueObjective(objective, target)
	}
	best, all, err := optim.NewGridSearch(cfg, params, logger).Search(cmd.Context(), obj)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, p := range params {
		fmt.Fprintf(w, "%s.%s\t", p.Component, p.Variable)
	}
	fmt.Fprintln(w, strings.ToUpper(objective))
	for _, pt := range all {
		for _, p := range params {
			fmt.Fprintf(w, "%g\t", pt.Params[p.Component+"."+p.Variable])
		}
		if pt.Err != nil {
			fmt.Fprintf(w, "error: %v\n", pt.Err)
		} else {
			fmt.Fprintf(w, "%.6g\n", pt.Value)
		}
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}
	fmt.Printf("\nbest: %v (%.6g)\n", best.Params, best.Value)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	if sqlitePath != "" {
		db, err := store.Open(sqlitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		runs, err := db.ListRuns(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ID\tNAME\tTIME\tYEARS")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.ID, r.Name, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Years)
		}
		return w.Flush()
	}

	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	fmt.Fprintln(w, "ID\tNAME\tTIME\tPERIOD\tSPINUP\tDRIFT")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%g-%g\t%v\t%.2g\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.StartDate,
			run.EndDate,
			run.Spinup,
			run.Metrics["mass_drift"],
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID, vars := args[0], args[1:]
	if len(vars) == 0 {
		vars = defaultVars
	}

	series := make(map[string][]float64, len(vars))
	if sqlitePath != "" {
		db, err := store.Open(sqlitePath)
		if err != nil {
			return err
		}
		defer db.Close()
		for _, v := range vars {
			_, values, err := db.LoadSeries(cmd.Context(), runID, v)
			if err != nil {
				return err
			}
			series[v] = values
		}
	} else {
		result, err := storage.New(dataDir).LoadOutputs(runID)
		if err != nil {
			return err
		}
		for _, v := range vars {
			values, err := result.Get(v)
			if err != nil {
				return err
			}
			series[v] = values
		}
	}

	fmt.Printf("run: %s\n\n", runID)
	for _, v := range vars {
		data := series[v]
		if len(data) < 2 {
			fmt.Printf("%s: not enough data\n\n", v)
			continue
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(v),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func loadRun(runID string) (*storage.RunMetadata, *metrics.Result, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	result, err := st.LoadOutputs(runID)
	if err != nil {
		return nil, nil, err
	}
	result.Metrics = meta.Metrics
	return meta, result, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.WriteCSV(os.Stdout, result)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if outFile == "" {
		return export.WriteJSON(os.Stdout, meta.Name, meta.StartDate, meta.EndDate, result, args[1:]...)
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.WriteJSON(f, meta.Name, meta.StartDate, meta.EndDate, result, args[1:]...); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outFile)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	meta, result, err := loadRun(args[0])
	if err != nil {
		return err
	}
	values, err := result.Get(args[1])
	if err != nil {
		return err
	}
	title := fmt.Sprintf("%s: %s (%s)", meta.Name, args[1], result.Units[args[1]])
	svg, err := export.SeriesToSVG(result.Years, values, 800, 400, title, string(viz.CurrentTheme.Primary))
	if err != nil {
		return err
	}
	path := outFile
	if path == "" {
		path = filepath.Clean(args[1] + ".svg")
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
