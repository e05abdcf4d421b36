/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: exectree_test.go
Description: Unit tests for the abstract coverage tree: the seven insertion cases,
lookup, inputset bounds, purge-and-reinsert, and the structural invariants after every
mutation.
*/

package exectree_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/kleascm/akaylee-pathfinder/pkg/condition"
	"github.com/kleascm/akaylee-pathfinder/pkg/exectree"
	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
	"github.com/kleascm/akaylee-pathfinder/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nullSynthesizer struct{}

func (nullSynthesizer) Run(sygus string, timeout time.Duration) (string, error) {
	return "", nil
}

// actFixture bundles a mock tracer (100 guards, significant prefix 1000)
// with a numeric-only signature, so tree structure tests stay independent of
// enum bookkeeping.
type actFixture struct {
	tpc     *trace.TracePC
	sig     *signature.Signature
	factory *condition.Factory
	tree    *exectree.Tree
	nextArg int64
}

func newFixture(t *testing.T) *actFixture {
	tpc := trace.New(1000)
	tpc.RegisterGuards(100)
	sig := signature.New()
	require.NoError(t, sig.AddInt("a"))
	factory := condition.NewFactory(sig, nullSynthesizer{})
	return &actFixture{
		tpc:     tpc,
		sig:     sig,
		factory: factory,
		tree:    exectree.New(tpc, sig, factory),
	}
}

func (f *actFixture) input() signature.Input {
	f.nextArg++
	return signature.NewInput(map[string]int64{}, map[string]int64{"a": f.nextArg})
}

func (f *actFixture) insert(t *testing.T, epath trace.ExecPath) *exectree.Node {
	leaf := f.tree.Insert(epath, f.input(), exectree.RunStatusOK)
	f.checkInvariants(t)
	return leaf
}

func (f *actFixture) checkInvariants(t *testing.T) {
	t.Helper()
	assert.True(t, f.tree.NoEmptyPrefixedNode(), "I1: empty prefix")
	assert.True(t, f.tree.NoEpsilonInternalNode(), "I2: non-root epsilon internal")
	assert.True(t, f.tree.Sorted(), "I3: children unsorted")
	assert.True(t, f.tree.NoOnlyChildInternalNode(), "I4: single-child internal")
	assert.True(t, f.tree.InputIndexConsistent(), "I5: input index mismatch")
	assert.True(t, f.tree.SiblingCondKindsConsistent(), "I6: sibling kind mismatch")
}

// correctTree builds an expected tree from plain insertions.
func correctTree(t *testing.T, paths ...trace.ExecPath) *exectree.Tree {
	f := newFixture(t)
	for _, p := range paths {
		f.insert(t, p)
	}
	return f.tree
}

func path(pcids ...trace.PCID) trace.ExecPath { return trace.ExecPath(pcids) }

func TestInit(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.tree.IsEmpty())
}

func TestInsertionCase1(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01))
	assert.Equal(t, 1, f.tree.NumLeaves())
	assert.Equal(t, path(0x01), f.tree.Root().Prefix())
}

func TestInsertionCase2(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x02))
	f.insert(t, path(0x01, 0x03))
	assert.Equal(t, 2, f.tree.NumLeaves())
}

func TestInsertionCase2Epsilon(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01))
	f.insert(t, path(0x02))
	assert.Equal(t, 2, f.tree.NumLeaves())
	assert.Equal(t, trace.ExecPath{trace.Epsilon}, f.tree.Root().Prefix())
}

func TestInsertionCase2Epsilon2(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x02))
	f.insert(t, path(0x01))

	correct := correctTree(t, path(0x01, 0x02), path(0x01, 0x00))
	assert.True(t, exectree.StructEq(f.tree, correct))
}

func TestInsertionCase3(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x02))
	f.insert(t, path(0x01, 0x03))
	f.insert(t, path(0x01))

	correct := correctTree(t, path(0x01, 0x02), path(0x01, 0x03), path(0x01, 0x00))
	assert.True(t, exectree.StructEq(f.tree, correct))
}

func TestInsertionCase4(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01))
	f.insert(t, path(0x01))
	assert.Equal(t, 1, f.tree.NumLeaves())
	assert.Equal(t, 2, f.tree.NumTotalInput())
}

func TestInsertionCase5(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x02))
	f.insert(t, path(0x01, 0x03))
	f.insert(t, path(0x01, 0x04))
	assert.Equal(t, 3, f.tree.NumLeaves())
}

func TestInsertionCase6(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x02))
	f.insert(t, path(0x01, 0x03, 0x04))
	f.insert(t, path(0x01, 0x03, 0x05))
	assert.Equal(t, 3, f.tree.NumLeaves())
}

func TestInsertionCase6Epsilon(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x02))
	f.insert(t, path(0x01, 0x03, 0x04))
	f.insert(t, path(0x01, 0x03))
	assert.Equal(t, 3, f.tree.NumLeaves())
}

func TestInsertionCase7(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01))
	f.insert(t, path(0x01, 0x02))

	correct := correctTree(t, path(0x01, 0x00), path(0x01, 0x02))
	assert.True(t, exectree.StructEq(f.tree, correct))
}

func TestFind(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01))
	inserted := f.insert(t, path(0x02))

	found := f.tree.Find(path(0x02))
	assert.Same(t, inserted, found)
	assert.Nil(t, f.tree.Find(path(0x03)))
	assert.True(t, f.tree.Has(path(0x01)))
}

func TestHasInputAndPathOf(t *testing.T) {
	f := newFixture(t)
	in := f.input()
	f.tree.Insert(path(0x01, 0x02), in, exectree.RunStatusOK)

	require.True(t, f.tree.HasInput(in))
	assert.Equal(t, path(0x01, 0x02), f.tree.PathOf(in))
	assert.False(t, f.tree.HasInput(f.input()))
}

func TestLeafInputsetCap(t *testing.T) {
	f := newFixture(t)
	var leaf *exectree.Node
	for i := 0; i < exectree.MaxInputPerPath+10; i++ {
		leaf = f.insert(t, path(0x01))
	}
	assert.LessOrEqual(t, len(leaf.InputSet()), exectree.MaxInputPerPath)
	assert.LessOrEqual(t, f.tree.NumTotalInput(), exectree.MaxInputPerPath)
	f.checkInvariants(t)
}

func TestPurgeAndReinsert(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x02, 0x03))
	f.insert(t, path(0x01, 0x02, 0x04))
	f.insert(t, path(0x01, 0x05, 0x06))

	f.tree.PurgeAndReinsert(path(0x01, 0x05, 0x06), path(0x01, 0x02, 0x07))
	f.checkInvariants(t)

	correct := correctTree(t,
		path(0x01, 0x02, 0x03), path(0x01, 0x02, 0x04), path(0x01, 0x02, 0x07))
	assert.True(t, exectree.StructEq(f.tree, correct))
}

func TestPurgeAndReinsertKeepsExceptionFlag(t *testing.T) {
	f := newFixture(t)
	f.tree.Insert(path(0x01, 0x02), f.input(), exectree.RunStatusExpectedException)
	f.insert(t, path(0x01, 0x03))

	f.tree.PurgeAndReinsert(path(0x01, 0x02), path(0x01, 0x04))
	moved := f.tree.Find(path(0x01, 0x04))
	require.NotNil(t, moved)
	assert.True(t, moved.ExceptionPath())
}

func TestNdPruningFilter(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x02))
	f.tpc.AddND(path(0x02))
	f.tree.Prune()
	f.checkInvariants(t)

	assert.True(t, exectree.StructEq(f.tree, correctTree(t, path(0x01))))
}

func TestNdPruningKeepsSiblingSplit(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x02))
	f.insert(t, path(0x01, 0x03))
	f.tpc.AddND(path(0x02))
	f.tree.Prune()
	f.checkInvariants(t)

	correct := correctTree(t, path(0x01, 0x00), path(0x01, 0x03))
	assert.True(t, exectree.StructEq(f.tree, correct))
}

func TestNdPruningRootPrefix(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x02))
	f.insert(t, path(0x01, 0x03))
	f.tpc.AddND(path(0x01))
	f.tree.Prune()
	f.checkInvariants(t)

	correct := correctTree(t, path(0x02), path(0x03))
	assert.True(t, exectree.StructEq(f.tree, correct))
}

func TestNdPruningHoistsEpsilonInternal(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x02))
	f.insert(t, path(0x01, 0x03, 0x04))
	f.insert(t, path(0x01, 0x03, 0x05))
	f.tpc.AddND(path(0x03))
	f.tree.Prune()
	f.checkInvariants(t)

	correct := correctTree(t, path(0x01, 0x02), path(0x01, 0x04), path(0x01, 0x05))
	assert.True(t, exectree.StructEq(f.tree, correct))
}

func TestNdPruningMergesCollidingLeaves(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x02, 0x05))
	f.insert(t, path(0x01, 0x03, 0x05))
	f.tpc.AddND(path(0x02, 0x03))
	f.tree.Prune()
	f.checkInvariants(t)

	assert.True(t, exectree.StructEq(f.tree, correctTree(t, path(0x01, 0x05))))
	assert.Equal(t, 2, f.tree.NumTotalInput())
}

// The E4 scenario: two nondeterministic detours collapse into one branch.
func TestNdPruningScenarioE4(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x0A, 0x02))
	f.insert(t, path(0x01, 0x0B, 0x02))
	f.insert(t, path(0x01, 0x0C))
	f.tpc.AddND(path(0x0A, 0x0B))
	f.tree.Prune()
	f.checkInvariants(t)

	correct := correctTree(t, path(0x01, 0x02), path(0x01, 0x0C))
	assert.True(t, exectree.StructEq(f.tree, correct))
}

// The E5 scenario: pruning exposes deeper structure under the merged branch.
func TestNdPruningScenarioE5(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x0A, 0x02, 0x03))
	f.insert(t, path(0x01, 0x0A, 0x02, 0x04))
	f.insert(t, path(0x01, 0x0B, 0x02))
	f.tpc.AddND(path(0x0A, 0x0B))
	f.tree.Prune()
	f.checkInvariants(t)

	correct := correctTree(t,
		path(0x01, 0x02), path(0x01, 0x02, 0x03), path(0x01, 0x02, 0x04))
	assert.True(t, exectree.StructEq(f.tree, correct))
}

// The E6 scenario: a path longer than the significant prefix is identified
// by that prefix alone, with the overflow kept in the leaf tail.
func TestLongPathIdentity(t *testing.T) {
	f := newFixture(t)

	long := make(trace.ExecPath, 0, 1001)
	for i := 0; i < 1000; i++ {
		long = append(long, 0x0A)
	}
	long = append(long, 0x0B)
	in := f.input()
	leaf := f.tree.Insert(long, in, exectree.RunStatusOK)
	f.checkInvariants(t)
	assert.Equal(t, trace.ExecPath{0x0B}, leaf.Tail())
	assert.Equal(t, long, f.tree.PathOf(in))

	short := long[:1000]
	again := f.insert(t, short)
	assert.Same(t, leaf, again)
	assert.Equal(t, 1, f.tree.NumLeaves())
	assert.True(t, f.tree.Has(long))
	assert.True(t, f.tree.Has(short))
}

func TestEvaluateConditionsFlagsInvalidSiblings(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x02))
	in := f.input()
	f.tree.Insert(path(0x01, 0x03), in, exectree.RunStatusOK)

	// Fresh sibling conditions are invalid, so both come back incorrect.
	incorrect := f.tree.EvaluateConditions(in, path(0x01, 0x03))
	assert.Len(t, incorrect, 2)
}

func TestExceptionFlagPropagation(t *testing.T) {
	f := newFixture(t)
	f.tree.Insert(path(0x01, 0x02), f.input(), exectree.RunStatusExpectedException)
	f.tree.Insert(path(0x01, 0x03), f.input(), exectree.RunStatusOK)
	assert.False(t, f.tree.Root().ExceptionPath())

	f.tree.Insert(path(0x01, 0x03), f.input(), exectree.RunStatusExpectedException)
	assert.True(t, f.tree.Root().ExceptionPath())
}

func TestLowestCommonAncestor(t *testing.T) {
	f := newFixture(t)
	a := f.insert(t, path(0x01, 0x02, 0x03))
	b := f.insert(t, path(0x01, 0x02, 0x04))
	c := f.insert(t, path(0x01, 0x05))

	lca := a.LowestCommonAncestor(b)
	assert.Equal(t, path(0x02), lca.Prefix())
	assert.Equal(t, f.tree.Root(), a.LowestCommonAncestor(c))
}

func TestManyInsertionsStayConsistent(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 60; i++ {
		p := path(trace.PCID(i%5+1), trace.PCID(i%7+10), trace.PCID(i%3+20))
		f.insert(t, p)
	}
	for i := 0; i < 30; i++ {
		f.tpc.AddND(path(trace.PCID(i%7 + 10)))
		f.tree.Prune()
		f.checkInvariants(t)
	}
}

func TestDumpShowsPrefixes(t *testing.T) {
	f := newFixture(t)
	f.insert(t, path(0x01, 0x02))
	f.insert(t, path(0x01, 0x03))
	dump := f.tree.Dump(exectree.DumpOptions{PrintPrefix: true})
	assert.Contains(t, dump, "prefix: [0x1]")
	assert.Contains(t, dump, fmt.Sprintf("prefix: [0x%X]", 2))
}
