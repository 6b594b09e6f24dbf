package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"

	kitlog "github.com/go-kit/log"
	"github.com/hoburg/turbofan"
	"github.com/hoburg/turbofan/store"
)

const defaultScenario = "~~unset~~"

var (
	scenario     string
	numCPUs      int
	skipFailures bool
	csvOut       string
	sqliteOut    string
	ultraDebug   bool
)

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "sweep scenario TOML file")
	flag.IntVar(&numCPUs, "cpus", 0, "number of concurrent solves (overrides the scenario, 0 keeps it)")
	flag.BoolVar(&skipFailures, "skip-failures", false, "record failed points and carry on")
	flag.StringVar(&csvOut, "csv", "", "CSV output file (overrides the scenario)")
	flag.StringVar(&sqliteOut, "sqlite", "", "SQLite database to record the sweep in (overrides the scenario)")
	flag.BoolVar(&ultraDebug, "debug", false, "debug everything (really verbose)")
}

func main() {
	flag.Parse()
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}
	if scenario == defaultScenario {
		log.Fatal("no scenario provided")
	}
	if err := run(); err != nil {
		log.Printf("[critical] %s", err)
		pprof.StopCPUProfile()
		os.Exit(1)
	}
}

func run() error {
	sc, err := turbofan.LoadScenario(scenario)
	if err != nil {
		return err
	}
	if numCPUs > 0 {
		sc.Workers = numCPUs
	}
	if skipFailures {
		sc.SkipFailures = true
	}
	if csvOut != "" {
		sc.CSV = csvOut
	}
	if sqliteOut != "" {
		sc.SQLite = sqliteOut
	}

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC, "scenario", sc.Name)
	solveLogger := kitlog.NewNopLogger()
	if ultraDebug {
		solveLogger = logger
	}
	logger.Log("level", "info", "workers", sc.Workers, "skip_failures", sc.SkipFailures, "swept", len(sc.Substitutions.Swept()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := turbofan.SweepOptions{
		Workers:      sc.Workers,
		SkipFailures: sc.SkipFailures,
		Solve:        sc.Solver,
		Guess:        sc.Guess,
		Logger:       logger,
	}
	opts.Solve.Logger = solveLogger
	res, sweepErr := turbofan.RunSweep(ctx, sc.NewMission, sc.Substitutions, opts)
	if res == nil {
		return sweepErr
	}

	// Whatever was solved is written out, even when the sweep aborted.
	if sc.CSV != "" {
		f, err := os.Create(sc.CSV)
		if err != nil {
			return err
		}
		if err := turbofan.WriteSweepCSV(f, res); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Log("level", "info", "csv", sc.CSV)
	} else if err := turbofan.WriteSweepCSV(os.Stdout, res); err != nil {
		return err
	}

	if sc.SQLite != "" {
		db, err := store.Open(sc.SQLite)
		if err != nil {
			return err
		}
		defer db.Close()
		runID, err := db.CreateRun(sc.Name, sc.Topology.String(), res.Swept)
		if err != nil {
			return err
		}
		if err := db.SavePoints(storePoints(runID, res)); err != nil {
			return err
		}
		logger.Log("level", "info", "sqlite", sc.SQLite, "run", runID)
	}

	if sweepErr != nil {
		return sweepErr
	}
	logger.Log("level", "notice", "status", "done", "points", len(res.Points), "failed", res.Failed)
	return nil
}
