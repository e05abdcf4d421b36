/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: bitvec_test.go
Description: Unit tests for the enum bitvector: set algebra laws, draws, the off-path
evaluation semantics, and the Distinct operation used by inclusion learning.
*/

package bitvec_test

import (
	"testing"

	"github.com/kleascm/akaylee-pathfinder/pkg/bitvec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bv(values ...int64) *bitvec.BitVec {
	out := bitvec.New("X", 0, 8)
	for _, v := range values {
		out.Set(v)
	}
	return out
}

func TestSetAlgebraLaws(t *testing.T) {
	a := bv(0, 1, 2)
	b := bv(2, 3)
	c := bv(1, 2, 3, 4)

	// (a | b) & c == (a & c) | (b & c)
	left := a.Clone()
	left.Or(b)
	left.And(c)

	ac := a.Clone()
	ac.And(c)
	bc := b.Clone()
	bc.And(c)
	right := ac.Clone()
	right.Or(bc)

	assert.True(t, left.Equal(right))

	// ~~a == a within the mask.
	neg := a.Clone()
	neg.Negate()
	neg.Negate()
	assert.True(t, neg.Equal(a))
}

func TestSubsetAndExclusive(t *testing.T) {
	a := bv(1, 2)
	b := bv(1, 2, 3)
	assert.True(t, a.In(b))
	assert.False(t, b.In(a))

	assert.True(t, bv(0, 1).Exclusive(bv(2, 3)))
	assert.False(t, bv(0, 1).Exclusive(bv(1, 2)))

	full := bv(0, 1, 2, 3)
	rest := bv(4, 5, 6, 7)
	assert.True(t, full.Complement(rest))
}

func TestDrawAndExtract(t *testing.T) {
	a := bv(3, 5)
	for i := 0; i < 20; i++ {
		v, ok := a.Draw()
		require.True(t, ok)
		assert.Contains(t, []int64{3, 5}, v)
	}

	one, ok := a.ExtractRandomBit()
	require.True(t, ok)
	assert.Equal(t, 1, one.NumSetBits())
	assert.True(t, one.In(a))

	empty := bv()
	_, ok = empty.Draw()
	assert.False(t, ok)
	_, ok = empty.ExtractRandomBit()
	assert.False(t, ok)
}

func TestEvalIsOffPathTest(t *testing.T) {
	// The condition bitvec stores the values seen on the other side of the
	// branch, so Eval holds when the argument avoids them.
	a := bv(1, 2)
	assert.False(t, a.Eval(map[string]int64{"X": 1}))
	assert.True(t, a.Eval(map[string]int64{"X": 0}))
}

func TestRangeDomain(t *testing.T) {
	r := bitvec.New("n", 10, 4)
	r.Set(12)
	assert.False(t, r.Eval(map[string]int64{"n": 12}))
	assert.True(t, r.Eval(map[string]int64{"n": 10}))

	v, ok := r.Draw()
	require.True(t, ok)
	assert.Equal(t, int64(12), v)
}

func newArray() bitvec.Array {
	return bitvec.NewArray([]*bitvec.BitVec{
		bitvec.New("X", 0, 3),
		bitvec.New("Y", 0, 3),
	})
}

func TestArraySetAndDistinct(t *testing.T) {
	pos := newArray()
	pos.Set(map[string]int64{"X": 0, "Y": 1})
	pos.Set(map[string]int64{"X": 1, "Y": 1})

	neg := newArray()
	neg.Set(map[string]int64{"X": 2, "Y": 1})

	// X separates the sides, Y does not.
	distinct := pos.Distinct(neg)
	require.False(t, distinct.Empty())
	exported := distinct.ExportNonEmpty()
	assert.Equal(t, "X", exported.Name())
	assert.False(t, exported.Eval(map[string]int64{"X": 2}))
	assert.True(t, exported.Eval(map[string]int64{"X": 0}))

	// Overlapping everywhere yields an empty distinct array.
	negOverlap := newArray()
	negOverlap.Set(map[string]int64{"X": 0, "Y": 1})
	assert.True(t, pos.Distinct(negOverlap).Empty())
}

func TestArrayNegateAndOrOne(t *testing.T) {
	arr := newArray()
	arr.OrOne(bv3("X", 0))
	arr.Negate()

	x := arr.ByName("X")
	require.NotNil(t, x)
	assert.Equal(t, 2, x.NumSetBits()) // {1,2}
	y := arr.ByName("Y")
	assert.Equal(t, 3, y.NumSetBits()) // untouched, fully allowed
}

func bv3(name string, values ...int64) *bitvec.BitVec {
	out := bitvec.New(name, 0, 3)
	for _, v := range values {
		out.Set(v)
	}
	return out
}
