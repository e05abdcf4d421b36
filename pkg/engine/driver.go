/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: driver.go
Description: Entry point for embedding. Assembles the tracer, execution tree, solvers,
generator, and engine from a FuzzConfig and runs the phase machine: command-line input
replay, corpus replay (optionally with coverage output), warmup, then the fuzz loop.
*/

package engine

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-pathfinder/pkg/condition"
	"github.com/kleascm/akaylee-pathfinder/pkg/config"
	"github.com/kleascm/akaylee-pathfinder/pkg/exectree"
	"github.com/kleascm/akaylee-pathfinder/pkg/logging"
	"github.com/kleascm/akaylee-pathfinder/pkg/solver"
	"github.com/kleascm/akaylee-pathfinder/pkg/trace"
)

// Driver runs the fuzzing engine to completion for the given callback and
// configuration, using the supplied tracer (the process-wide instrumentation
// singleton). Returns the process exit code.
func Driver(callback Callback, cfg *config.FuzzConfig, tpc *trace.TracePC) int {
	log, err := logging.New(&logging.Config{Verbose: cfg.Verbose, Colors: cfg.Colorize})
	if err != nil {
		fmt.Fprintf(os.Stderr, "PathFinder Error: %v\n", err)
		return 1
	}
	if err := run(callback, cfg, tpc, log); err != nil {
		log.WithError(err).Error("PathFinder Error")
		return 1
	}
	return 0
}

func run(callback Callback, cfg *config.FuzzConfig, tpc *trace.TracePC, log *logrus.Logger) error {
	if err := cfg.AddCmdConstraints(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	synth := condition.NewDuetSynthesizer(cfg.SynthesizerBin, log)
	if err := synth.Check(); err != nil {
		return err
	}
	factory := condition.NewFactory(cfg.Sig, synth)
	factory.Budget = cfg.SynthesisBudget
	factory.AccuracyThreshold = cfg.CondAccuracyThreshold

	numericSolver, err := solver.NewNumericSolver(cfg.Sig, solver.NewZ3Solver(), solver.NumericSolverConfig{
		ArgIntMin:       cfg.ArgIntMin,
		ArgIntMax:       cfg.ArgIntMax,
		MutRate:         cfg.MutRate,
		HardConstraints: cfg.HardConstraints,
		SoftConstraints: cfg.SoftConstraints,
	})
	if err != nil {
		return fmt.Errorf("provided initial constraint is not satisfiable: %w", err)
	}
	gen := solver.NewGenerator(solver.NewEnumSolver(cfg.Sig), numericSolver)

	tree := exectree.New(tpc, cfg.Sig, factory)
	eng := New(cfg, callback, tpc, tree, gen, factory, log)

	if cfg.CmdInput != "" {
		if err := eng.RunCmdInput(); err != nil {
			return err
		}
		log.Warn("Running command-line input done")
		return nil
	}

	if err := PrepareCorpus(cfg.Corpus); err != nil {
		return err
	}

	if cfg.RunOnly && cfg.CovOutputFile != "" {
		return eng.RunCorpusAndOutputCov()
	}

	ran, err := eng.RunCorpus()
	if err != nil {
		return err
	}
	if cfg.RunOnly {
		log.WithField("seeds", ran).Warn("Running corpus done")
		fmt.Print(eng.Stats())
		return nil
	}

	eng.Warmup()
	eng.Loop()
	fmt.Print(eng.Stats())
	return nil
}
