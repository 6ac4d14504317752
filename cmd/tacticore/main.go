// Command tacticore analyzes football tracking detections: it cleans and
// smooths tracks, infers match events, computes pitch control and
// physical metrics, aggregates tactical windows, and persists everything
// to SQLite for reporting.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pitchwise-data/tacticore/internal/config"
	"github.com/pitchwise-data/tacticore/internal/ingest"
	"github.com/pitchwise-data/tacticore/internal/pipeline"
	"github.com/pitchwise-data/tacticore/internal/pitchcontrol"
	"github.com/pitchwise-data/tacticore/internal/report"
	"github.com/pitchwise-data/tacticore/internal/store"
)

const defaultMigrationsDir = "internal/store/migrations"

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	log.SetPrefix("tacticore ")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "analyze":
		runAnalyze(os.Args[2:])
	case "report":
		runReport(os.Args[2:])
	case "runs":
		runRuns(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: tacticore <command> [flags]

Commands:
  analyze   Run the analysis pipeline over a detection file
  report    Render report artifacts for a stored run
  runs      List stored analysis runs
  migrate   Manage the database schema (up, down, status)

Run 'tacticore <command> -h' for command flags.
`)
}

func runAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	input := fs.String("input", "", "Detection file (.csv or .jsonl)")
	dbPath := fs.String("db", "tacticore.db", "Path to the SQLite database file")
	cfgPath := fs.String("config", "", "Tuning config JSON (default: built-in defaults)")
	migrationsDir := fs.String("migrations", defaultMigrationsDir, "Migrations directory")
	reportDir := fs.String("report", "", "Also render report artifacts into this directory")
	timeout := fs.Duration("timeout", 0, "Abort the run after this duration (0 = no limit)")
	keepPartial := fs.Bool("keep-partial", true, "Persist partial results when the run is cut short")
	fs.Parse(args)

	if *input == "" {
		log.Fatal("analyze: -input is required")
	}

	cfg := config.EmptyTuningConfig()
	if *cfgPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*cfgPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	}

	detections, stats, err := ingest.LoadFile(*input)
	if err != nil {
		log.Fatalf("Failed to load detections: %v", err)
	}
	log.Printf("Loaded %d detections from %s (%d skipped)", len(detections), *input, stats.Skipped)

	p, err := pipeline.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	started := time.Now()
	res, err := p.Run(ctx, detections)
	if err != nil {
		if res == nil || !res.Partial || !*keepPartial {
			log.Fatalf("Analysis failed: %v", err)
		}
		log.Printf("Analysis cut short, keeping partial result: %v", err)
	}
	res.Source = *input

	db, err := store.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	if err := db.SaveResult(res, cfg); err != nil {
		log.Fatalf("Failed to save run: %v", err)
	}
	log.Printf("Run %s saved in %s (%d events, %d players, %d windows)",
		res.RunID, time.Since(started).Round(time.Millisecond),
		len(res.Events), len(res.Physical), len(res.Tactical))

	if *reportDir != "" {
		written, err := report.Generate(*reportDir, res.RunID, res.Physical, res.Tactical, res.Grids)
		if err != nil {
			log.Fatalf("Failed to render report: %v", err)
		}
		for _, path := range written {
			log.Printf("Wrote %s", path)
		}
	}
}

func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	dbPath := fs.String("db", "tacticore.db", "Path to the SQLite database file")
	runID := fs.String("run", "", "Run id (default: most recent run)")
	outDir := fs.String("out", "report", "Output directory")
	fs.Parse(args)

	db, err := store.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	id := *runID
	if id == "" {
		runs, err := db.ListRuns(1)
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) == 0 {
			log.Fatal("No stored runs to report on")
		}
		id = runs[0].RunID
	}

	stats, err := db.PhysicalForRun(id)
	if err != nil {
		log.Fatalf("Failed to load physical stats: %v", err)
	}
	windows, err := db.TacticalForRun(id)
	if err != nil {
		log.Fatalf("Failed to load tactical windows: %v", err)
	}
	stored, err := db.GridsForRun(id)
	if err != nil {
		log.Fatalf("Failed to load control grids: %v", err)
	}
	grids := make([]pitchcontrol.Grid, len(stored))
	for i, g := range stored {
		grids[i] = pitchcontrol.Grid{
			FrameID:    g.FrameID,
			Width:      g.Width,
			Height:     g.Height,
			Home:       g.Home,
			Degenerate: g.Degenerate,
			Computed:   true,
		}
	}

	written, err := report.Generate(*outDir, id, stats, windows, grids)
	if err != nil {
		log.Fatalf("Failed to render report: %v", err)
	}
	if len(written) == 0 {
		log.Printf("Run %s has no reportable output", id)
		return
	}
	for _, path := range written {
		log.Printf("Wrote %s", path)
	}
}

func runRuns(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	dbPath := fs.String("db", "tacticore.db", "Path to the SQLite database file")
	limit := fs.Int("limit", 20, "Maximum runs to list")
	fs.Parse(args)

	db, err := store.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(*limit)
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs stored")
		return
	}
	for _, r := range runs {
		status := "complete"
		if r.Partial {
			status = "partial"
		}
		fmt.Printf("%s  %s  %-8s  %6d frames  %s\n",
			r.RunID, r.CreatedAt.Format(time.RFC3339), status, r.Frames, r.Source)
		for _, w := range r.Warnings {
			fmt.Printf("    warning: %s\n", w)
		}
	}
}

func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", "tacticore.db", "Path to the SQLite database file")
	migrationsDir := fs.String("migrations", defaultMigrationsDir, "Migrations directory")
	fs.Parse(args)

	if fs.NArg() < 1 {
		log.Fatal("Usage: tacticore migrate [flags] <up|down|status>")
	}

	db, err := store.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	switch action := fs.Arg(0); action {
	case "up":
		if err := db.MigrateUp(*migrationsDir); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Println("Migrations applied")
	case "down":
		if err := db.MigrateDown(*migrationsDir); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		fmt.Println("Rolled back one migration")
	case "status":
		version, dirty, err := db.MigrateVersion(*migrationsDir)
		if err != nil {
			log.Fatalf("Failed to read migration status: %v", err)
		}
		fmt.Printf("Schema version %d (dirty=%v)\n", version, dirty)
	default:
		log.Fatalf("Unknown migrate action: %s", action)
	}
}
