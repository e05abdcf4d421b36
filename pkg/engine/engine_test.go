/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine_test.go
Description: Engine tests: an end-to-end fuzz loop over a deterministic in-process
target with fake synthesizer and SMT backends, corpus replay, and exception handling.
*/

package engine_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/akaylee-pathfinder/pkg/condition"
	"github.com/kleascm/akaylee-pathfinder/pkg/config"
	"github.com/kleascm/akaylee-pathfinder/pkg/engine"
	"github.com/kleascm/akaylee-pathfinder/pkg/exectree"
	"github.com/kleascm/akaylee-pathfinder/pkg/expr"
	"github.com/kleascm/akaylee-pathfinder/pkg/logging"
	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
	"github.com/kleascm/akaylee-pathfinder/pkg/solver"
	"github.com/kleascm/akaylee-pathfinder/pkg/trace"
)

type nullSynthesizer struct{}

func (nullSynthesizer) Run(sygus string, timeout time.Duration) (string, error) {
	return "", nil
}

// fakeSMT enumerates assignments in ascending order; see the solver tests
// for the reference implementation.
type fakeSMT struct {
	vars     []string
	min, max int64
	scopes   [][]*expr.BoolExpr
	model    map[string]int64
}

func newFakeSMT(vars []string, min, max int64) *fakeSMT {
	s := &fakeSMT{vars: vars, min: min, max: max}
	s.Reset()
	return s
}

func (s *fakeSMT) Reset() { s.scopes = [][]*expr.BoolExpr{nil} }
func (s *fakeSMT) Push()  { s.scopes = append(s.scopes, nil) }
func (s *fakeSMT) Pop()   { s.scopes = s.scopes[:len(s.scopes)-1] }

func (s *fakeSMT) Assert(c *expr.BoolExpr) error {
	s.scopes[len(s.scopes)-1] = append(s.scopes[len(s.scopes)-1], c)
	return nil
}

func (s *fakeSMT) satisfied(assignment map[string]int64) bool {
	for _, scope := range s.scopes {
		for _, c := range scope {
			ok, err := c.Eval(assignment)
			if err != nil || !ok {
				return false
			}
		}
	}
	return true
}

func (s *fakeSMT) search(idx int, assignment map[string]int64) bool {
	if idx == len(s.vars) {
		return s.satisfied(assignment)
	}
	for v := s.min; v <= s.max; v++ {
		assignment[s.vars[idx]] = v
		if s.search(idx+1, assignment) {
			return true
		}
	}
	delete(assignment, s.vars[idx])
	return false
}

func (s *fakeSMT) Check() (bool, error) {
	assignment := make(map[string]int64)
	if !s.search(0, assignment) {
		s.model = nil
		return false, nil
	}
	s.model = assignment
	return true, nil
}

func (s *fakeSMT) Model(names []string) (map[string]int64, error) {
	out := make(map[string]int64, len(names))
	for _, name := range names {
		out[name] = s.model[name]
	}
	return out, nil
}

// testHarness assembles a full engine over a two-path target: PCID base+0
// always runs, base+1 only when a > 0.
type testHarness struct {
	cfg  *config.FuzzConfig
	tpc  *trace.TracePC
	tree *exectree.Tree
	eng  *engine.Engine
	base trace.PCID
}

func newHarness(t *testing.T) *testHarness {
	cfg := config.New()
	require.NoError(t, cfg.RegisterIntArg("a"))
	cfg.Corpus = t.TempDir()
	cfg.ArgIntMin, cfg.ArgIntMax = -8, 8
	cfg.MutRate = 0
	cfg.WarmupCount = 4
	cfg.MaxGenPerIter = 50
	cfg.MaxTimePerIter = 2 * time.Second
	cfg.MaxIter = 20

	tpc := trace.New(1000)
	h := &testHarness{cfg: cfg, tpc: tpc, base: tpc.RegisterGuards(10)}

	factory := condition.NewFactory(cfg.Sig, nullSynthesizer{})
	ns, err := solver.NewNumericSolver(cfg.Sig, newFakeSMT(cfg.Sig.NumericNames(), -8, 8),
		solver.NumericSolverConfig{ArgIntMin: -8, ArgIntMax: 8, MutRate: 0})
	require.NoError(t, err)
	gen := solver.NewGenerator(solver.NewEnumSolver(cfg.Sig), ns)
	h.tree = exectree.New(tpc, cfg.Sig, factory)

	log, err := logging.New(&logging.Config{Verbose: 0})
	require.NoError(t, err)
	h.eng = engine.New(cfg, h.callback, tpc, h.tree, gen, factory, log)
	return h
}

func (h *testHarness) callback(in signature.Input) int {
	h.tpc.TraceOn()
	defer h.tpc.TraceOff()

	h.tpc.AppendPathLog(h.base)
	if in.Numeric["a"] > 0 {
		h.tpc.AppendPathLog(h.base + 1)
	}
	return engine.StatusOK
}

func TestFuzzLoopDiscoversBothPaths(t *testing.T) {
	h := newHarness(t)

	h.eng.Warmup()
	h.eng.Loop()

	assert.Equal(t, 2, h.tree.NumLeaves(), "both branches of the target must be found")
	assert.True(t, h.tree.IsSorted())

	// Coverage-growing seeds were committed without the provisional prefix.
	entries, err := os.ReadDir(h.cfg.Corpus)
	require.NoError(t, err)
	committed := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "CRASH_") {
			committed++
		}
	}
	assert.GreaterOrEqual(t, committed, 2)
}

func TestRunCorpusReplaysSeeds(t *testing.T) {
	h := newHarness(t)

	data := make([]byte, 8)
	data[0] = 3 // little-endian 3
	require.NoError(t, os.WriteFile(
		filepath.Join(h.cfg.Corpus, "time0000000001_gen0000000001"), data, 0644))
	// A ragged file is skipped with a warning.
	require.NoError(t, os.WriteFile(filepath.Join(h.cfg.Corpus, "seed0"), []byte{1, 2}, 0644))

	ran, err := h.eng.RunCorpus()
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
}

func TestRunCorpusWindowFilter(t *testing.T) {
	h := newHarness(t)
	h.cfg.RunCorpusFromGen = 5

	data := make([]byte, 8)
	require.NoError(t, os.WriteFile(
		filepath.Join(h.cfg.Corpus, "time0000000001_gen0000000001"), data, 0644))
	require.NoError(t, os.WriteFile(
		filepath.Join(h.cfg.Corpus, "time0000000002_gen0000000007"), data, 0644))

	ran, err := h.eng.RunCorpus()
	require.NoError(t, err)
	assert.Equal(t, 1, ran, "only the seed inside the generation window runs")
}

func TestUnexpectedExceptionAborts(t *testing.T) {
	cfg := config.New()
	require.NoError(t, cfg.RegisterIntArg("a"))
	cfg.Corpus = t.TempDir()

	tpc := trace.New(1000)
	base := tpc.RegisterGuards(2)
	factory := condition.NewFactory(cfg.Sig, nullSynthesizer{})
	ns, err := solver.NewNumericSolver(cfg.Sig, newFakeSMT(cfg.Sig.NumericNames(), -8, 8),
		solver.NumericSolverConfig{ArgIntMin: -8, ArgIntMax: 8})
	require.NoError(t, err)
	gen := solver.NewGenerator(solver.NewEnumSolver(cfg.Sig), ns)
	log, err := logging.New(&logging.Config{Verbose: 0})
	require.NoError(t, err)

	crashing := func(in signature.Input) int {
		tpc.TraceOn()
		tpc.AppendPathLog(base)
		tpc.TraceOff()
		return engine.StatusUnexpectedException
	}
	eng := engine.New(cfg, crashing, tpc, exectree.New(tpc, cfg.Sig, factory), gen, factory, log)

	in := signature.NewInput(map[string]int64{}, map[string]int64{"a": 0})
	assert.Panics(t, func() { eng.RunCallback(in, false) })

	cfg.IgnoreException = true
	status, epath := eng.RunCallback(in, false)
	assert.Equal(t, engine.StatusExpectedException, status)
	assert.Len(t, epath, 1)
}
