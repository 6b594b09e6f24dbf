package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"

	kitlog "github.com/go-kit/log"
	"github.com/hoburg/turbofan"
	"github.com/hoburg/turbofan/gp"
)

// This command only reads the scenario and solves the mission once.

const defaultScenario = "~~unset~~"

var (
	scenario string
	jsonOut  string
	verbose  bool
)

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "mission scenario TOML file")
	flag.StringVar(&jsonOut, "json", "", "write the full solution as JSON to this file")
	flag.BoolVar(&verbose, "verbose", false, "log every signomial iteration")
}

func main() {
	flag.Parse()
	if scenario == defaultScenario {
		log.Fatal("no scenario provided")
	}
	sc, err := turbofan.LoadScenario(scenario)
	if err != nil {
		log.Fatal(err)
	}
	if len(sc.Substitutions.Swept()) > 0 {
		log.Fatalf("%s sweeps %v: use the sweep command", scenario, sc.Substitutions.Swept())
	}
	m, err := sc.NewMission()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := sc.Solver
	opts.Logger = newLogger(verbose)
	subs := sc.Substitutions.Expand()[0].Values
	if len(sc.Guess) > 0 {
		opts.Guess = m.InitialGuess(subs)
		for k, v := range sc.Guess {
			opts.Guess[k] = v
		}
	}
	sol, err := m.Solve(ctx, gp.NewBarrierSolver(), subs, opts)
	if err != nil {
		log.Fatalf("[%s] %s", sc.Name, err)
	}

	fmt.Printf("%s (%s): %s after %d iterations\n", sc.Name, m.Topology, sol.Status, sol.Iterations)
	summary := m.Summary(sol)
	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%16s = %.6g\n", name, summary[name])
	}
	for _, w := range sol.Warnings {
		fmt.Printf("[warning] %s\n", w)
	}
	if err := m.Check(sol); err != nil {
		fmt.Printf("[warning] %s\n", err)
	}

	if jsonOut != "" {
		f, err := os.Create(jsonOut)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		if err := m.WriteSolutionJSON(f, sol); err != nil {
			log.Fatal(err)
		}
		log.Printf("[info] solution written to %s", jsonOut)
	}
}

// newLogger returns a logfmt logger on stderr, which drops debug records unless verbose.
func newLogger(verbose bool) kitlog.Logger {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)
	if verbose {
		return logger
	}
	return kitlog.LoggerFunc(func(keyvals ...interface{}) error {
		for i := 0; i+1 < len(keyvals); i += 2 {
			if keyvals[i] == "level" && keyvals[i+1] == "debug" {
				return nil
			}
		}
		return logger.Log(keyvals...)
	})
}
