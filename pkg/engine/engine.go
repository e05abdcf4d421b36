/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Main fuzzing engine. Coordinates scheduling, input generation, callback
execution, duplicate and conflict handling, execution tree insertion, and branch
condition refinement. Single-threaded and cooperative: the only concurrency crossings
are the synthesizer subprocess and the SMT solver.
*/

package engine

import (
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-pathfinder/pkg/condition"
	"github.com/kleascm/akaylee-pathfinder/pkg/config"
	"github.com/kleascm/akaylee-pathfinder/pkg/exectree"
	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
	"github.com/kleascm/akaylee-pathfinder/pkg/solver"
	"github.com/kleascm/akaylee-pathfinder/pkg/trace"
)

// Callback return codes understood by the engine.
const (
	// StatusOK records a normal success.
	StatusOK = exectree.RunStatusOK
	// StatusPass skips the input without recording it.
	StatusPass = -1
	// StatusExpectedException records a path ending in an expected throw.
	StatusExpectedException = exectree.RunStatusExpectedException
	// StatusUnexpectedException aborts the run unless exceptions are ignored.
	StatusUnexpectedException = -3
)

// Callback runs the target once on the given input and returns a status
// code. The callback must trace the target region through the tracer.
type Callback func(in signature.Input) int

// Phase tracks what the engine is currently doing, for log framing.
type Phase int

const (
	PhaseRunningCorpus Phase = iota
	PhaseInitializingTree
	PhaseWarmup
	PhaseFuzzRunning
)

// Engine drives the path-aware fuzzing loop.
type Engine struct {
	cfg      *config.FuzzConfig
	sig      *signature.Signature
	callback Callback
	log      *logrus.Logger

	tpc     *trace.TracePC
	tree    *exectree.Tree
	gen     *solver.Generator
	factory *condition.Factory

	startedAt   time.Time
	coveredPC   int
	totalGenCnt int
	iter        int
	numPass     int
	numFail     int
	numConflict int
	phase       Phase

	lastWrittenSeed string

	statInterval   time.Duration
	nextStatOutput time.Duration

	timers timers
}

// New wires up an engine over pre-built components.
func New(cfg *config.FuzzConfig, callback Callback, tpc *trace.TracePC,
	tree *exectree.Tree, gen *solver.Generator, factory *condition.Factory,
	log *logrus.Logger) *Engine {
	return &Engine{
		cfg:          cfg,
		sig:          cfg.Sig,
		callback:     callback,
		log:          log,
		tpc:          tpc,
		tree:         tree,
		gen:          gen,
		factory:      factory,
		startedAt:    time.Now(),
		statInterval: 300 * time.Second,
	}
}

// GenCnt returns the number of generated inputs so far.
func (e *Engine) GenCnt() int { return e.totalGenCnt }

// NumPath returns the number of distinct paths found.
func (e *Engine) NumPath() int { return e.tree.NumLeaves() }

func (e *Engine) elapsed() time.Duration { return time.Since(e.startedAt) }

// timeUp reports whether the wall-clock or generation budget is exhausted,
// flushing the periodic statistics file on the way.
func (e *Engine) timeUp() bool {
	elapsed := e.elapsed()

	if e.cfg.StatOutputFile != "" {
		if e.nextStatOutput == 0 {
			e.nextStatOutput = e.statInterval
		}
		if elapsed >= e.nextStatOutput {
			e.outputStat(e.cfg.StatOutputFile, e.nextStatOutput)
			e.nextStatOutput += e.statInterval
		}
	}

	return elapsed > e.cfg.MaxTotalTime || e.totalGenCnt > e.cfg.MaxTotalGen
}

// schedule picks the next leaf to steer toward, uniformly at random.
func (e *Engine) schedule() *exectree.Node {
	leaves := e.tree.Leaves()
	return leaves[rand.Intn(len(leaves))]
}

// RunCallback invokes the user callback with a clean tracer state and
// returns its status and the recorded execution path. An unexpected
// exception aborts the run unless configured otherwise.
func (e *Engine) RunCallback(in signature.Input, measureCoveredBefore bool) (int, trace.ExecPath) {
	e.tpc.TraceOff()
	e.tpc.ClearPathLog()
	e.tpc.InitCoveredBitMap()
	if measureCoveredBefore {
		e.coveredPC = e.tpc.NumCovered()
	}

	status := e.callback(in)
	e.tpc.TraceOff()

	if status == StatusUnexpectedException {
		if e.cfg.IgnoreException {
			status = StatusExpectedException
		} else {
			e.log.Error("PATHFINDER ABORT: Terminated due to unexpected exception")
			panic("pathfinder: unexpected exception from user callback")
		}
	}

	return status, e.tpc.GetPathLog()
}

// checkRunResult bookkeeps the callback status and commits the last corpus
// seed when the run grew coverage.
func (e *Engine) checkRunResult(status int) {
	if status == StatusPass {
		e.deleteLastSeed()
		return
	}
	if status == StatusOK {
		e.numPass++
	} else {
		e.numFail++
	}

	coveredNew := e.tpc.NumCovered()
	if coveredNew > e.coveredPC {
		e.coveredPC = coveredNew
		e.commitLastSeed()
	} else {
		e.deleteLastSeed()
	}
}

func (e *Engine) setGenerator(enumConds []*condition.EnumCondition, numericConds []*condition.NumericCondition) error {
	return e.gen.SetCondition(enumConds, numericConds)
}

// runGenerator draws one input and provisionally persists it to the corpus.
func (e *Engine) runGenerator() (signature.Input, bool) {
	in, ok := e.gen.Gen()
	if ok {
		e.writeToOutputCorpus(in)
	}
	return in, ok
}

// refine re-synthesizes the conditions of the target nodes: success installs
// the new pair and failure leaves it in place, both deducting the elapsed
// budget and ending the target's loop; give-up promotes the pair and retries
// until the promoted condition is insolvent.
func (e *Engine) refine(targets map[*exectree.Node]bool) {
	for target := range targets {
		if target.IsRoot() {
			panic("engine: refining the root condition")
		}

		pos, neg := target.Examples()
		sibling, isPair := target.Sibling()

		for {
			if e.timeUp() {
				return
			}

			result := condition.Synthesize(target.Cond(), isPair, pos, neg)

			if result.Status == condition.Success || result.Status == condition.Fail {
				if result.Status == condition.Success {
					target.SetCond(result.Cond)
					if isPair {
						sibling.SetCond(result.Sibling)
					}
				}
				if isPair {
					target.Cond().DeductBudget(result.Elapsed / 2)
					sibling.Cond().DeductBudget(result.Elapsed / 2)
				} else {
					target.Cond().DeductBudget(result.Elapsed)
				}
				break
			}

			// GiveUp: move the pair down the promotion ladder and retry while
			// budget remains.
			target.PromoteCond()
			if target.Cond().Insolvent() {
				break
			}
		}
	}
}

// Warmup runs the callback with unconstrained random inputs to flush
// target-initialization noise out of the traces, then replays the last
// input WarmupCount times, feeding any difference into nondeterminism
// discovery and restarting the count after it.
func (e *Engine) Warmup() {
	start := time.Now()
	defer func() { e.timers.warmingUp += time.Since(start) }()

	e.phase = PhaseWarmup
	e.log.Info("Warmup running")

	cnt := e.cfg.WarmupCount
	var in signature.Input
	var status int
	var epath trace.ExecPath
	var truncated bool

	for i := 0; i < cnt; i++ {
		if err := e.setGenerator(nil, nil); err != nil {
			e.log.WithError(err).Error("Failed to reset the generator for warmup")
			return
		}
		for {
			var ok bool
			in, ok = e.runGenerator()
			if !ok {
				panic("engine: generator dried up during warmup")
			}
			status, epath = e.RunCallback(in, true)
			e.checkRunResult(status)
			truncated = e.tpc.Truncated(epath)

			if status != StatusPass {
				break
			}
		}
		e.totalGenCnt++
		if len(epath) == 0 {
			e.log.Fatal("Exited before the traced target region. " +
				"Make sure your fuzz driver traces the target call.")
		}
	}

	if e.cfg.WoNBP {
		return
	}

	// Probe the last input for nondeterminism; a difference restarts the count.
	for i := 0; i < cnt; i++ {
		_, epathSame := e.RunCallback(in, false)

		if e.tpc.EqSignificant(epath, epathSame) || e.tpc.ConsiderablyLonger(epathSame, epath) {
			continue
		}
		if e.tpc.ConsiderablyLonger(epath, epathSame) {
			if e.tree.Has(epath) {
				e.tree.PurgeAndReinsert(epath, epathSame)
			}
			continue
		}

		e.log.WithFields(logrus.Fields{
			"len_first":  len(epath),
			"len_second": len(epathSame),
		}).Info("Found different execution paths from the same input; checking nondeterministic PCs")
		e.tpc.CheckDiff(epath, epathSame)
		if !truncated {
			epath = e.tpc.Prune(epath)
		} else {
			_, epath = e.RunCallback(in, false)
			truncated = e.tpc.Truncated(epath)
		}
		i = 0
	}
}

// Step executes one fuzz iteration: schedule a leaf, configure the
// generator with its path conditions, and generate-run-classify until the
// iteration budget is spent or the tree changed.
func (e *Engine) Step() {
	if e.timeUp() {
		return
	}
	e.iter++
	e.phase = PhaseFuzzRunning

	schedStart := time.Now()
	var enumConds []*condition.EnumCondition
	var numericConds []*condition.NumericCondition
	if !e.tree.IsEmpty() {
		target := e.schedule()
		enumConds, numericConds = e.tree.PathCond(target)
	}
	e.timers.scheduling += time.Since(schedStart)

	genSetStart := time.Now()
	if err := e.setGenerator(enumConds, numericConds); err != nil {
		e.log.WithError(err).Error("Failed to configure the generator; rescheduling")
		return
	}
	e.timers.generationSetting += time.Since(genSetStart)

	genRemained := e.cfg.MaxGenPerIter
	beforeIter := time.Now()
	for genRemained > 0 && time.Since(beforeIter) < e.cfg.MaxTimePerIter {
		if e.timeUp() {
			return
		}

		var in signature.Input
		var status int
		var epath trace.ExecPath
		for {
			genStart := time.Now()
			generated, ok := e.runGenerator()
			e.timers.generation += time.Since(genStart)
			if !ok {
				return
			}
			in = generated

			runStart := time.Now()
			status, epath = e.RunCallback(in, true)
			e.timers.runningCallback += time.Since(runStart)

			checkStart := time.Now()
			e.checkRunResult(status)
			e.timers.resultCheck += time.Since(checkStart)

			if status == StatusOK || status == StatusExpectedException {
				break
			}
			if time.Since(beforeIter) >= e.cfg.MaxTimePerIter {
				return
			}
		}
		genRemained--
		e.totalGenCnt++

		if len(epath) == 0 {
			e.log.Fatal("Exited before the traced target region. " +
				"Make sure your fuzz driver traces the target call.")
		}

		if e.tree.HasInput(in) {
			if e.handleDuplicate(in, epath, status) {
				return
			}
			continue
		}

		pathStart := time.Now()
		foundNewPath := !e.tree.Has(epath)
		if foundNewPath {
			e.tree.Insert(epath, in, status)
		}
		e.timers.pathCheck += time.Since(pathStart)

		evalStart := time.Now()
		incorrect := e.tree.EvaluateConditions(in, epath)
		foundCounterExample := len(incorrect) > 0
		if !foundNewPath && foundCounterExample {
			e.tree.Insert(epath, in, status)
		}
		refinementTarget := make(map[*exectree.Node]bool)
		for node := range incorrect {
			if sib, ok := node.Sibling(); ok && refinementTarget[sib] {
				continue
			}
			if !node.Cond().Accurate() {
				refinementTarget[node] = true
			}
		}
		e.timers.conditionEvaluation += time.Since(evalStart)

		synthStart := time.Now()
		e.refine(refinementTarget)
		e.timers.synthesis += time.Since(synthStart)

		if foundNewPath || foundCounterExample {
			e.log.WithFields(logrus.Fields{
				"iter":  e.iter,
				"paths": e.NumPath(),
			}).Info("Iteration grew the execution tree")
			e.log.Debug("\n" + e.tree.Dump(e.dumpOptions()))
			return
		}
	}
}

// handleDuplicate classifies a regenerated input whose path is already
// recorded. Returns true when the iteration should end (conflict handled).
func (e *Engine) handleDuplicate(in signature.Input, epath trace.ExecPath, status int) bool {
	epathOld := e.tree.PathOf(in)

	if e.tpc.EqSignificant(epathOld, epath) || e.tpc.ConsiderablyLonger(epath, epathOld) {
		return false
	}
	if e.tpc.ConsiderablyLonger(epathOld, epath) {
		e.tree.PurgeAndReinsert(epathOld, epath)
		return false
	}

	if e.cfg.WoNBP {
		// ND pruning is off: neutralize the whole disagreement region by
		// setting every child of the LCA to Neglect.
		leafOld := e.tree.Leaf(in)
		leafNew := e.tree.Find(epath)
		if leafNew == nil {
			leafNew = e.tree.Insert(epath, in, status)
		}
		lca := leafOld.LowestCommonAncestor(leafNew)
		for _, child := range lca.Children() {
			child.SetCond(e.factory.NewNeglect())
		}
		return true
	}

	e.log.WithFields(logrus.Fields{
		"len_old": len(epathOld),
		"len_new": len(epath),
	}).Info("Found a conflicting input; checking execution path difference")
	e.numConflict++

	diffStart := time.Now()
	e.tpc.CheckDiff(epathOld, epath)
	e.timers.duplicateCheckDiff += time.Since(diffStart)

	pruneStart := time.Now()
	e.tree.Prune()
	e.timers.duplicateReconstruction += time.Since(pruneStart)

	synthStart := time.Now()
	e.refine(e.tree.InvalidConditionNodes())
	e.timers.duplicateSynthesis += time.Since(synthStart)

	e.log.WithField("iter", e.iter).Info("Execution tree reconstructed")
	e.log.Debug("\n" + e.tree.Dump(e.dumpOptions()))
	return true
}

func (e *Engine) dumpOptions() exectree.DumpOptions {
	return exectree.DumpOptions{
		PrintPrefix: e.cfg.Verbose >= 2,
		PrintInputs: true,
		Colorize:    e.cfg.Colorize,
	}
}

// Loop runs fuzz iterations until a budget is exhausted.
func (e *Engine) Loop() {
	for e.iter < e.cfg.MaxIter && !e.timeUp() {
		e.Step()
	}
	e.log.WithFields(logrus.Fields{
		"generated": e.totalGenCnt,
		"elapsed_s": int(e.elapsed().Seconds()),
		"paths":     e.NumPath(),
	}).Warn("Done")
}
