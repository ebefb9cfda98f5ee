// Command closedform renders a synthetic photometric capture, corrupts part of
// it, recovers per-point normals and albedo with the robust closed-form solver
// and writes the results to SQLite, plots and a PLY point cloud.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/banshee-data/closedform/internal/config"
	"github.com/banshee-data/closedform/internal/db"
	"github.com/banshee-data/closedform/internal/diagnostics"
	"github.com/banshee-data/closedform/internal/fsutil"
	"github.com/banshee-data/closedform/internal/location"
	"github.com/banshee-data/closedform/internal/logger"
	"github.com/banshee-data/closedform/internal/monitoring"
	"github.com/banshee-data/closedform/internal/photometric"
	"github.com/banshee-data/closedform/internal/scene"
	"github.com/banshee-data/closedform/internal/synthetic"
	"github.com/banshee-data/closedform/internal/timeutil"
	"github.com/banshee-data/closedform/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "closedform: %v\n", err)
		os.Exit(1)
	}
}

// options are the command-line flags. Flags that are set override the
// matching config file fields.
type options struct {
	configPath  string
	showVersion bool
	locations   string
	dbPath      string
	plotDir     string
	plyPath     string
	logLevel    string
	logFile     string
	workers     int
	seed        int64
}

func parseFlags(args []string, out io.Writer) (*options, map[string]bool, error) {
	fs := flag.NewFlagSet("closedform", flag.ContinueOnError)
	fs.SetOutput(out)

	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Path to a JSON or YAML settings file")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	fs.StringVar(&o.locations, "locations", "", `Location parametrization: "depth map" or "plane"`)
	fs.StringVar(&o.dbPath, "db", "", "SQLite database for scene snapshots and solve results")
	fs.StringVar(&o.plotDir, "plots", "", "Directory for PNG plots and the HTML report")
	fs.StringVar(&o.plyPath, "ply", "", "Output path for the solved point cloud (PLY)")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.StringVar(&o.logFile, "log-file", "", "Rotating log file")
	fs.IntVar(&o.workers, "workers", 0, "Solver workers (0 = GOMAXPROCS)")
	fs.Int64Var(&o.seed, "seed", 0, "RANSAC and corruption seed")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, set, nil
}

// loadSettings reads the config file, if any, and applies flag overrides.
func loadSettings(o *options, set map[string]bool) (*config.Settings, error) {
	s := config.EmptySettings()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, err
		}
		s = loaded
	}
	if set["locations"] {
		s.Locations = &o.locations
	}
	if set["db"] {
		s.DatabasePath = &o.dbPath
	}
	if set["plots"] {
		s.PlotDir = &o.plotDir
	}
	if set["ply"] {
		s.PLYPath = &o.plyPath
	}
	if set["log-level"] {
		s.LogLevel = &o.logLevel
	}
	if set["log-file"] {
		s.LogFile = &o.logFile
	}
	if set["workers"] {
		s.Workers = &o.workers
	}
	if set["seed"] {
		s.Seed = &o.seed
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, set, err := parseFlags(args, stdout)
	if err != nil {
		return err
	}
	if o.showVersion {
		fmt.Fprintln(stdout, version.String("closedform"))
		return nil
	}

	settings, err := loadSettings(o, set)
	if err != nil {
		return err
	}

	var fileCfg logger.FileConfig
	if path := settings.GetLogFile(); path != "" {
		fileCfg = logger.DefaultFileConfig(path)
	}
	log, err := logger.New(settings.GetLogLevel(), stdout, fileCfg)
	if err != nil {
		return err
	}
	defer log.Sync()
	previous := monitoring.Logf
	monitoring.SetLogger(logger.Printf(log))
	defer monitoring.SetLogger(previous)

	log.Info("starting closed-form initialization",
		zap.String("version", version.Version),
		zap.String("locations", settings.GetLocations()),
		zap.String("sharing", settings.GetSubsetSharing()))

	return solve(ctx, settings, log)
}

func solve(ctx context.Context, settings *config.Settings, log *zap.Logger) error {
	synth, err := synthetic.Build(synthetic.OptionsFromSettings(settings))
	if err != nil {
		return fmt.Errorf("build synthetic scene: %w", err)
	}
	corrupted := synth.Renderer.Corrupt(settings.GetCorruptFraction(), settings.GetCorruptValue(), settings.GetSeed())
	log.Info("synthetic scene ready",
		zap.Int("points", len(synth.Points)),
		zap.Int("views", synth.Views),
		zap.Int("corrupted", corrupted))

	locs, err := location.New(settings.GetLocations())
	if err != nil {
		return err
	}
	if err := locs.Initialize(synth.Depth, synth.Mask, synth.Calibration); err != nil {
		return fmt.Errorf("initialize %s: %w", locs.Kind(), err)
	}
	state, err := scene.New(locs)
	if err != nil {
		return err
	}

	cfg := photometric.ConfigFromSettings(settings)
	src := scene.Sources{Batches: synth.Batches, Lights: synth.Lights, Extractor: synth.Renderer}

	sw := timeutil.StartStopwatch(timeutil.RealClock{})
	res, err := state.InitializeFromClosedForm(ctx, src, cfg)
	if err != nil {
		return err
	}
	elapsed := sw.Elapsed()

	deviation := make([]float64, len(state.Normals))
	for i, n := range state.Normals {
		deviation[i] = n.Angle(synth.Normal).Degrees()
	}
	summary, err := diagnostics.Summarize(res, deviation)
	if err != nil {
		return err
	}
	log.Info("solve finished", zap.Duration("elapsed", elapsed), zap.Stringer("summary", summary))

	if path := settings.GetDatabasePath(); path != "" {
		if err := persist(path, locs, res, elapsed, log); err != nil {
			return err
		}
	}

	fsys := fsutil.OSFileSystem{}
	if dir := settings.GetPlotDir(); dir != "" {
		prefix := fmt.Sprintf("%s_seed%s", locs.Kind(), strconv.FormatInt(settings.GetSeed(), 10))
		if _, err := diagnostics.WritePlots(fsys, dir, prefix, res, deviation); err != nil {
			return fmt.Errorf("write plots: %w", err)
		}
		report := filepath.Join(dir, "report.html")
		if err := diagnostics.WriteReport(fsys, report, "Closed-form initialization", res, deviation); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if path := settings.GetPLYPath(); path != "" {
		if err := state.ExportPLY(fsys, path); err != nil {
			return fmt.Errorf("export point cloud: %w", err)
		}
	}
	return nil
}

func persist(path string, locs location.Parametrization, res *photometric.Result, elapsed time.Duration, log *zap.Logger) error {
	store, err := db.OpenDB(path)
	if err != nil {
		return err
	}
	defer store.Close()

	sceneRec, err := store.SaveParametrization(locs, "synthetic tilted plane")
	if err != nil {
		return err
	}
	solveRec := db.NewSolveRecord(sceneRec.SceneID, res, elapsed)
	if err := store.InsertSolve(solveRec); err != nil {
		return err
	}
	log.Info("stored solve",
		zap.String("scene_id", sceneRec.SceneID),
		zap.String("solve_id", solveRec.SolveID))
	return nil
}
