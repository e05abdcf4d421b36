/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: expr_test.go
Description: Unit tests for the expression algebra: constructor canonicalization,
negation laws, evaluation with division-by-zero errors, serialization forms, and the
equality-condition view.
*/

package expr_test

import (
	"testing"

	"github.com/kleascm/akaylee-pathfinder/pkg/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAndOrCanonicalization(t *testing.T) {
	x := expr.IntVar("x").Lt(expr.IntConst(3))

	assert.True(t, expr.And(expr.True(), x).StructEq(x))
	assert.True(t, expr.And(x, expr.True()).StructEq(x))
	assert.True(t, expr.Or(expr.False(), x).StructEq(x))
	assert.True(t, expr.Or(x, expr.False()).StructEq(x))
}

func TestNegationLaws(t *testing.T) {
	a, b := expr.IntVar("a"), expr.IntVar("b")

	cases := []struct {
		in   *expr.BoolExpr
		want *expr.BoolExpr
	}{
		{a.Eq(b), a.Neq(b)},
		{a.Neq(b), a.Eq(b)},
		{a.Lt(b), a.Gte(b)},
		{a.Gt(b), a.Lte(b)},
		{a.Lte(b), a.Gt(b)},
		{a.Gte(b), a.Lt(b)},
	}
	for _, tc := range cases {
		assert.True(t, tc.in.Negate().StructEq(tc.want), "negation of %s", tc.in)
	}

	// Double negation cancels through Simplify.
	e := a.Lt(b)
	assert.True(t, expr.Simplify(expr.Not(expr.Not(e))).StructEq(e))
	assert.True(t, expr.Not(e).Negate().StructEq(e))
}

func TestEval(t *testing.T) {
	args := map[string]int64{"a": 6, "b": 2}
	a, b := expr.IntVar("a"), expr.IntVar("b")

	v, err := a.Add(b).Eval(args)
	require.NoError(t, err)
	assert.Equal(t, int64(8), v)

	v, err = a.Div(b).Eval(args)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	ok, err := a.Mod(expr.IntConst(4)).Eq(b).Eval(args)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalDivisionByZero(t *testing.T) {
	args := map[string]int64{"a": 6, "b": 0}
	a, b := expr.IntVar("a"), expr.IntVar("b")

	_, err := a.Div(b).Eval(args)
	assert.ErrorIs(t, err, expr.ErrCondEval)

	_, err = a.Mod(b).Eq(expr.IntConst(0)).Eval(args)
	assert.ErrorIs(t, err, expr.ErrCondEval)
}

func TestSMTString(t *testing.T) {
	a, b := expr.IntVar("a"), expr.IntVar("b")
	e := expr.And(a.Lte(b), expr.Not(a.Eq(expr.IntConst(3))))
	assert.Equal(t, "(and (<= a b) (not (= a 3)))", e.SMTString())

	ie := expr.IntConst(2).Mul(a).Sub(b.Div(expr.IntConst(3)))
	assert.Equal(t, "(- (* 2 a) (/ b 3))", ie.SMTString())
}

func TestAndAll(t *testing.T) {
	a := expr.IntVar("a")
	assert.True(t, expr.AndAll(nil).StructEq(expr.True()))

	e := expr.AndAll([]*expr.BoolExpr{a.Gt(expr.IntConst(0)), nil, a.Lt(expr.IntConst(5))})
	ok, err := e.Eval(map[string]int64{"a": 3})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = e.Eval(map[string]int64{"a": 7})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestToEqualityCondition(t *testing.T) {
	x, y := expr.IntVar("X"), expr.IntVar("Y")

	cond, err := expr.ToEqualityCondition(x.Eq(y))
	require.NoError(t, err)
	assert.Equal(t, expr.Equal, cond.Kind)
	assert.Equal(t, "X", cond.Left)
	assert.Equal(t, "Y", cond.Right)

	cond, err = expr.ToEqualityCondition(expr.Not(x.Eq(y)))
	require.NoError(t, err)
	assert.Equal(t, expr.Inequal, cond.Kind)

	_, err = expr.ToEqualityCondition(x.Lt(y))
	assert.Error(t, err)

	_, err = expr.ToEqualityCondition(x.Eq(expr.IntConst(1)))
	assert.Error(t, err)
}

func TestFunSynthesizedString(t *testing.T) {
	fun := &expr.FunSynthesized{
		Name:   "f",
		Params: []string{"a", "b"},
		Body:   expr.IntVar("a").Lte(expr.IntVar("b")),
	}
	assert.Equal(t, "(define-fun f ((a Int) (b Int)) Bool (<= a b))", fun.String())
}
