/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: trace_test.go
Description: Unit tests for the coverage tracer: significant/tail splitting, path
equality, length heuristics, pruning, and nondeterminism discovery via the Myers diff.
*/

package trace_test

import (
	"testing"

	"github.com/kleascm/akaylee-pathfinder/pkg/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockTracer mirrors the test configuration used across the tree tests:
// 100 guards, significant prefix of 1000.
func newMockTracer() *trace.TracePC {
	tpc := trace.New(1000)
	tpc.RegisterGuards(100)
	return tpc
}

func repeat(pcid trace.PCID, n int) trace.ExecPath {
	p := make(trace.ExecPath, n)
	for i := range p {
		p[i] = pcid
	}
	return p
}

func TestSignificantAndTailSplit(t *testing.T) {
	tpc := newMockTracer()

	short := trace.ExecPath{1, 2, 3}
	assert.Equal(t, short, tpc.Significant(short))
	assert.Empty(t, tpc.TailOf(short))

	long := repeat(0x0A, 1000)
	long = append(long, 0x0B)
	sig := tpc.Significant(long)
	require.Len(t, sig, 1000)
	tail := tpc.TailOf(long)
	require.Len(t, tail, 1)
	assert.Equal(t, trace.PCID(0x0B), tail[0])

	// Length exactly S splits losslessly.
	exact := repeat(0x0A, 1000)
	assert.Equal(t, exact, tpc.Significant(exact))
	assert.Empty(t, tpc.TailOf(exact))
}

func TestEqSignificant(t *testing.T) {
	tpc := newMockTracer()

	assert.True(t, tpc.EqSignificant(trace.ExecPath{1, 2}, trace.ExecPath{1, 2}))
	assert.False(t, tpc.EqSignificant(trace.ExecPath{1, 2}, trace.ExecPath{1, 3}))
	assert.False(t, tpc.EqSignificant(trace.ExecPath{1, 2}, trace.ExecPath{1, 2, 3}))

	// Paths agreeing on the first S entries are equal regardless of tails.
	left := repeat(0x0A, 1000)
	left = append(left, 0x0B)
	right := repeat(0x0A, 1000)
	right = append(right, 0x0C, 0x0D)
	assert.True(t, tpc.EqSignificant(left, right))
}

func TestConsiderablyLonger(t *testing.T) {
	tpc := newMockTracer() // chunk = 100

	assert.False(t, tpc.ConsiderablyLonger(repeat(1, 50), repeat(1, 200)))
	assert.False(t, tpc.ConsiderablyLonger(repeat(1, 90), repeat(1, 30)))
	assert.True(t, tpc.ConsiderablyLonger(repeat(1, 300), repeat(1, 120)))
	assert.True(t, tpc.ConsiderablyLonger(repeat(1, 400), repeat(1, 150)))
	assert.False(t, tpc.ConsiderablyLonger(repeat(1, 150), repeat(1, 120)))
}

func TestAppendPathLogFiltersND(t *testing.T) {
	tpc := newMockTracer()
	tpc.AddND(trace.ExecPath{0x0A})

	tpc.TraceOn()
	tpc.AppendPathLog(0x01)
	tpc.AppendPathLog(0x0A)
	tpc.AppendPathLog(0x02)
	tpc.TraceOff()
	tpc.AppendPathLog(0x03) // tracing off, dropped

	assert.Equal(t, trace.ExecPath{0x01, 0x02}, tpc.GetPathLog())
}

func TestPrune(t *testing.T) {
	tpc := newMockTracer()
	tpc.AddND(trace.ExecPath{0x0A, 0x0B})

	pruned := tpc.Prune(trace.ExecPath{0x01, 0x0A, 0x02, 0x0B, 0x03})
	assert.Equal(t, trace.ExecPath{0x01, 0x02, 0x03}, pruned)
}

func TestCheckDiffMarksDifferingPCIDs(t *testing.T) {
	tpc := newMockTracer()

	// Same input, one trace detours through 0x0A, the other through 0x0B.
	left := trace.ExecPath{0x01, 0x0A, 0x02, 0x03}
	right := trace.ExecPath{0x01, 0x0B, 0x02, 0x03}
	tpc.CheckDiff(left, right)

	assert.Equal(t, tpc.Prune(left), tpc.Prune(right))
	assert.GreaterOrEqual(t, tpc.NumND(), 2)
}

func TestCheckDiffInsertionOnly(t *testing.T) {
	tpc := newMockTracer()

	// The right trace has an extra PCID; only that position must go.
	left := trace.ExecPath{0x01, 0x02, 0x03}
	right := trace.ExecPath{0x01, 0x02, 0x04, 0x03}
	tpc.CheckDiff(left, right)

	assert.Equal(t, tpc.Prune(left), tpc.Prune(right))
}

func TestCheckDiffConverges(t *testing.T) {
	tpc := newMockTracer()

	left := make(trace.ExecPath, 0, 400)
	right := make(trace.ExecPath, 0, 400)
	for i := 0; i < 300; i++ {
		pcid := trace.PCID(i%50 + 1)
		left = append(left, pcid)
		right = append(right, pcid)
		if i%97 == 0 {
			left = append(left, 60)
			right = append(right, 61)
		}
	}
	tpc.CheckDiff(left, right)
	assert.Equal(t, tpc.Prune(left), tpc.Prune(right))
}

func TestBitMapCounting(t *testing.T) {
	bm := trace.NewBitMap(130)
	bm.Set(0)
	bm.Set(64)
	bm.Set(129)
	bm.Set(129)
	assert.Equal(t, 3, bm.NumSetBits())
	assert.True(t, bm.IsSet(64))
	assert.False(t, bm.IsSet(63))
}

func TestCommonPrefixLen(t *testing.T) {
	assert.Equal(t, 2, trace.CommonPrefixLen(trace.ExecPath{1, 2, 3}, trace.ExecPath{1, 2, 4}))
	assert.Equal(t, 0, trace.CommonPrefixLen(trace.ExecPath{1}, trace.ExecPath{2}))
	assert.Equal(t, 1, trace.CommonPrefixLen(trace.ExecPath{1}, trace.ExecPath{1, 2}))
}
