/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: signature_test.go
Description: Unit tests for the input signature registry: declaration and grouping,
serialization round trips, and deserialization failure behavior.
*/

package signature_test

import (
	"testing"

	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSig(t *testing.T) *signature.Signature {
	sig := signature.New()
	require.NoError(t, sig.AddEnumEntries("X", []string{"EnumA", "EnumB", "EnumC"}))
	require.NoError(t, sig.AddEnumEntries("Y", []string{"EnumA", "EnumB", "EnumC"}))
	require.NoError(t, sig.AddEnumRange("M", 10, 4))
	require.NoError(t, sig.AddInt("a"))
	require.NoError(t, sig.AddInt("b"))
	return sig
}

func TestGrouping(t *testing.T) {
	sig := newTestSig(t)

	groups := sig.EnumGroups()
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 2) // X, Y share (0, 3)
	assert.Equal(t, "X", groups[0][0].Name)
	assert.Equal(t, "Y", groups[0][1].Name)
	assert.Len(t, groups[1], 1) // M alone on (10, 4)

	assert.Equal(t, 3, sig.NumEnum())
	assert.Equal(t, 2, sig.NumNumeric())
	assert.Equal(t, 5, sig.Size())
}

func TestDuplicateNamesRejected(t *testing.T) {
	sig := signature.New()
	require.NoError(t, sig.AddInt("a"))
	assert.Error(t, sig.AddInt("a"))
	assert.Error(t, sig.AddEnumRange("a", 0, 2))
	assert.Error(t, sig.AddEnumEntries("e", []string{"P", "P"}))
}

func TestSerializeRoundTrip(t *testing.T) {
	sig := newTestSig(t)
	in := signature.NewInput(
		map[string]int64{"X": 1, "Y": 2, "M": 11},
		map[string]int64{"a": -5, "b": 64},
	)

	data := sig.Serialize(in)
	assert.Equal(t, []int64{1, 2, 11, -5, 64}, data)

	back, err := sig.Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, in, back)
	assert.Equal(t, sig.Key(in), sig.Key(back))
}

func TestDeserializeFailures(t *testing.T) {
	sig := newTestSig(t)

	_, err := sig.Deserialize([]int64{1, 2})
	assert.ErrorIs(t, err, signature.ErrDeserialize)

	// Extra values are truncated.
	in, err := sig.Deserialize([]int64{0, 0, 10, 1, 2, 99, 98})
	require.NoError(t, err)
	assert.Equal(t, int64(2), in.Numeric["b"])
}

func TestInputString(t *testing.T) {
	sig := newTestSig(t)
	in := signature.NewInput(
		map[string]int64{"X": 0, "Y": 1, "M": 13},
		map[string]int64{"a": 7, "b": -1},
	)
	assert.Equal(t, "(EnumA,EnumB,13,7,-1)", sig.InputString(in))
}

func TestNewEnumBVs(t *testing.T) {
	sig := newTestSig(t)

	bvs := sig.NewEnumBVs(false)
	require.Equal(t, 3, bvs.Len())
	assert.True(t, bvs.Empty())

	full := sig.NewEnumBVs(true)
	assert.True(t, full.Full())
}
