/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: stats.go
Description: Engine counters and the periodic statistics CSV: flat key,value lines per
time bucket covering coverage, tree shape, input totals, and the per-stage timers.
*/

package engine

import (
	"fmt"
	"strings"
	"time"
)

// timers accumulates wall-clock spent per engine stage.
type timers struct {
	warmingUp           time.Duration
	scheduling          time.Duration
	generationSetting   time.Duration
	generation          time.Duration
	runningCallback     time.Duration
	resultCheck         time.Duration
	pathCheck           time.Duration
	conditionEvaluation time.Duration
	synthesis           time.Duration

	duplicateCheckDiff      time.Duration
	duplicateReconstruction time.Duration
	duplicateSynthesis      time.Duration
}

func (t timers) handlingDuplicate() time.Duration {
	return t.duplicateCheckDiff + t.duplicateReconstruction + t.duplicateSynthesis
}

// Stats renders the human-readable summary printed at the end of a run.
func (e *Engine) Stats() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Number of instrumented PCs: %d\n", e.tpc.NumInstrumented())
	fmt.Fprintf(&sb, "Number of covered PCs: %d\n", e.coveredPC)
	if numND := e.tpc.NumND(); numND != 0 {
		fmt.Fprintf(&sb, "Number of nondeterministic PCs: %d\n", numND)
	}
	fmt.Fprintf(&sb, "Total elapsed time: %d ms\n", e.elapsed().Milliseconds())
	return sb.String()
}

// outputStat appends one statistics block for the given time bucket.
func (e *Engine) outputStat(filename string, bucket time.Duration) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "============== %d ==============\n", int(bucket.Seconds()))
	fmt.Fprintf(&sb, "Number of instrumented PCs,%d\n", e.tpc.NumInstrumented())
	fmt.Fprintf(&sb, "Number of covered PCs,%d\n", e.coveredPC)
	fmt.Fprintf(&sb, "Number of nondeterministic PCs,%d\n", e.tpc.NumND())
	fmt.Fprintf(&sb, "Number of generation,%d\n", e.totalGenCnt)
	fmt.Fprintf(&sb, "Number of nodes in ACT,%d\n", e.tree.NumLeaves()+e.tree.NumInternals())
	fmt.Fprintf(&sb, "    Internals,%d\n", e.tree.NumInternals())
	fmt.Fprintf(&sb, "    Leaves,%d\n", e.tree.NumLeaves())
	fmt.Fprintf(&sb, "Total prefix length of ACT,%d\n", e.tree.TotalPrefixLength())
	fmt.Fprintf(&sb, "Total argument size,%d\n", e.sig.Size()*e.tree.NumTotalInput())
	fmt.Fprintf(&sb, "    Number of arguments,%d\n", e.sig.Size())
	fmt.Fprintf(&sb, "    Total number of input in ACT,%d\n\n", e.tree.NumTotalInput())
	fmt.Fprintf(&sb, "Number of passed inputs,%d\n", e.numPass)
	fmt.Fprintf(&sb, "Number of failed inputs,%d\n\n", e.numFail)
	fmt.Fprintf(&sb, "Time for warming up(ms),%d\n", e.timers.warmingUp.Milliseconds())
	fmt.Fprintf(&sb, "Time for scheduling(ms),%d\n", e.timers.scheduling.Milliseconds())
	fmt.Fprintf(&sb, "Time for generator setting(ms),%d\n", e.timers.generationSetting.Milliseconds())
	fmt.Fprintf(&sb, "Time for generation(ms),%d\n", e.timers.generation.Milliseconds())
	fmt.Fprintf(&sb, "Time for running callback(ms),%d\n", e.timers.runningCallback.Milliseconds())
	fmt.Fprintf(&sb, "Time for result check(ms),%d\n", e.timers.resultCheck.Milliseconds())
	fmt.Fprintf(&sb, "Time for handling duplicate(ms),%d\n", e.timers.handlingDuplicate().Milliseconds())
	fmt.Fprintf(&sb, "    num conflicts,%d\n", e.numConflict)
	fmt.Fprintf(&sb, "    check diff(ms),%d\n", e.timers.duplicateCheckDiff.Milliseconds())
	fmt.Fprintf(&sb, "    reconstruction(ms),%d\n", e.timers.duplicateReconstruction.Milliseconds())
	fmt.Fprintf(&sb, "    synthesis(ms),%d\n", e.timers.duplicateSynthesis.Milliseconds())
	fmt.Fprintf(&sb, "Time for path check(ms),%d\n", e.timers.pathCheck.Milliseconds())
	fmt.Fprintf(&sb, "Time for condition evaluation(ms),%d\n", e.timers.conditionEvaluation.Milliseconds())
	fmt.Fprintf(&sb, "Time for synthesis(ms),%d\n", e.timers.synthesis.Milliseconds())
	fmt.Fprintf(&sb, "Total elapsed time(ms),%d\n", e.elapsed().Milliseconds())

	if err := appendToFile(filename, sb.String()); err != nil {
		e.log.WithError(err).Warn("Failed to append statistics")
	}
}
