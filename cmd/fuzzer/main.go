/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Command-line interface for the PathFinder fuzzer. Wires every engine
tunable through cobra/viper into a FuzzConfig and runs the driver against the built-in
demonstration target.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kleascm/akaylee-pathfinder/pkg/config"
	"github.com/kleascm/akaylee-pathfinder/pkg/engine"
	"github.com/kleascm/akaylee-pathfinder/pkg/trace"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "akaylee-pathfinder",
		Short: "Akaylee PathFinder - path-aware coverage-guided fuzzing engine",
		Long: `Akaylee PathFinder is a path-aware coverage-guided fuzzer for functions over
typed scalar parameters. It learns an abstract coverage tree of the target's control
flow, attaches symbolic branch conditions to its edges, and steers input generation
toward unexplored paths with an SMT solver and an external SyGuS synthesizer.`,
		Version: "1.0.0",
		RunE:    runFuzz,
	}

	flags := rootCmd.Flags()
	flags.String("corpus", "./corpus", "Corpus directory (or a single seed file with --run_only)")
	flags.Bool("run_only", false, "Replay the corpus without fuzzing")
	flags.String("run_cmd_input", "", "Run a single comma-separated input and exit")
	flags.String("constraint", "", "Hard constraints on numeric args, e.g. \"arg3>=0,arg4==10\"")
	flags.Int("max_total_time", 0, "Total fuzzing time budget in seconds (0 = unlimited)")
	flags.Int("max_total_gen", 0, "Total generation budget (0 = unlimited)")
	flags.Int("max_gen_per_iter", 10, "Maximum generated inputs per iteration")
	flags.Int("max_time_per_iter", 10000, "Maximum time per iteration in milliseconds")
	flags.Int("iter", 0, "Maximum number of iterations (0 = unlimited)")
	flags.Int("verbose", 0, "Verbosity level (0, 1, 2)")
	flags.Int64("min", -64, "Minimum numeric argument value")
	flags.Int64("max", 64, "Maximum numeric argument value")
	flags.Float64("mut_rate", 0.2, "Probability of a random relational mutation per draw")
	flags.Float64("cond_accuracy_threshold", 0.6, "Minimum accuracy of a worn-out numeric condition")
	flags.Int("synthesis_budget", 4, "Per-condition synthesis budget in seconds")
	flags.String("synthesizer", "duet", "SyGuS synthesizer binary")
	flags.String("schedule", "rand", "Scheduling strategy (rand)")
	flags.Bool("wo_nbp", false, "Disable nondeterministic-branch pruning; neglect around conflicts")
	flags.Bool("ignore_exception", false, "Treat unexpected exceptions as expected")
	flags.String("output_cov", "", "Coverage CSV output file (with --run_only)")
	flags.String("output_stat", "", "Statistics CSV output file")
	flags.Int("cov_interval_time", 0, "Coverage bucket width in seconds")
	flags.Int("cov_interval_gen", 0, "Coverage bucket width in generations")
	flags.Int("run_corpus_from_gen", -1, "Replay seeds generated at or after this count")
	flags.Int("run_corpus_to_gen", 1<<30, "Replay seeds generated before this count")
	flags.Int("run_corpus_from_time", -1, "Replay seeds written at or after this second")
	flags.Int("run_corpus_to_time", 1<<30, "Replay seeds written before this second")
	flags.Int("colorize", 1, "Colorize output (0 or 1)")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildConfig() (*config.FuzzConfig, error) {
	cfg := config.New()

	cfg.Corpus = viper.GetString("corpus")
	cfg.RunOnly = viper.GetBool("run_only")
	cfg.CmdInput = viper.GetString("run_cmd_input")
	cfg.CmdConstraint = viper.GetString("constraint")
	if s := viper.GetInt("max_total_time"); s > 0 {
		cfg.MaxTotalTime = time.Duration(s) * time.Second
	}
	if g := viper.GetInt("max_total_gen"); g > 0 {
		cfg.MaxTotalGen = g
	}
	cfg.MaxGenPerIter = viper.GetInt("max_gen_per_iter")
	cfg.MaxTimePerIter = time.Duration(viper.GetInt("max_time_per_iter")) * time.Millisecond
	if n := viper.GetInt("iter"); n > 0 {
		cfg.MaxIter = n
	}
	cfg.Verbose = viper.GetInt("verbose")
	cfg.ArgIntMin = viper.GetInt64("min")
	cfg.ArgIntMax = viper.GetInt64("max")
	cfg.MutRate = viper.GetFloat64("mut_rate")
	cfg.CondAccuracyThreshold = viper.GetFloat64("cond_accuracy_threshold")
	cfg.SynthesisBudget = time.Duration(viper.GetInt("synthesis_budget")) * time.Second
	cfg.SynthesizerBin = viper.GetString("synthesizer")
	cfg.Schedule = viper.GetString("schedule")
	cfg.WoNBP = viper.GetBool("wo_nbp")
	cfg.IgnoreException = viper.GetBool("ignore_exception")
	cfg.CovOutputFile = viper.GetString("output_cov")
	cfg.StatOutputFile = viper.GetString("output_stat")
	cfg.CovIntervalTime = viper.GetInt("cov_interval_time")
	cfg.CovIntervalGen = viper.GetInt("cov_interval_gen")
	cfg.RunCorpusFromGen = viper.GetInt("run_corpus_from_gen")
	cfg.RunCorpusToGen = viper.GetInt("run_corpus_to_gen")
	cfg.RunCorpusFromTime = viper.GetInt("run_corpus_from_time")
	cfg.RunCorpusToTime = viper.GetInt("run_corpus_to_time")
	cfg.Colorize = viper.GetInt("colorize") != 0

	return cfg, nil
}

func runFuzz(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	tpc := trace.New(trace.DefaultSignificantMax)
	target, err := newDemoTarget(tpc, cfg)
	if err != nil {
		return err
	}

	os.Exit(engine.Driver(target.run, cfg, tpc))
	return nil
}
