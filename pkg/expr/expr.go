/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: expr.go
Description: Symbolic integer/boolean expression algebra shared by branch conditions,
the numeric solver, and the SyGuS pipeline. Expressions are immutable trees; And/Or
constructors canonicalize against True/False and negation is pushed through comparators.
*/

package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrCondEval reports a division or modulo by zero while evaluating a
// learned condition. Callers treat it as a negative evaluation result.
var ErrCondEval = errors.New("expr: division or modulo by zero")

// IntOp enumerates the integer expression node kinds.
type IntOp int

const (
	IntConstOp IntOp = iota
	IntVarOp
	IntIteOp
	IntAddOp
	IntSubOp
	IntMulOp
	IntDivOp
	IntModOp
)

// IntExpr is an integer-valued expression tree node. Nodes are immutable and
// may be shared between trees.
type IntExpr struct {
	op    IntOp
	value int64
	name  string
	cond  *BoolExpr
	left  *IntExpr
	right *IntExpr
}

// IntConst builds a constant.
func IntConst(v int64) *IntExpr { return &IntExpr{op: IntConstOp, value: v} }

// IntVar builds a variable reference.
func IntVar(name string) *IntExpr { return &IntExpr{op: IntVarOp, name: name} }

// Ite builds an if-then-else expression.
func Ite(cond *BoolExpr, left, right *IntExpr) *IntExpr {
	return &IntExpr{op: IntIteOp, cond: cond, left: left, right: right}
}

func intBinary(op IntOp, left, right *IntExpr) *IntExpr {
	return &IntExpr{op: op, left: left, right: right}
}

// Add returns e + other.
func (e *IntExpr) Add(other *IntExpr) *IntExpr { return intBinary(IntAddOp, e, other) }

// Sub returns e - other.
func (e *IntExpr) Sub(other *IntExpr) *IntExpr { return intBinary(IntSubOp, e, other) }

// Mul returns e * other.
func (e *IntExpr) Mul(other *IntExpr) *IntExpr { return intBinary(IntMulOp, e, other) }

// Div returns e / other.
func (e *IntExpr) Div(other *IntExpr) *IntExpr { return intBinary(IntDivOp, e, other) }

// Mod returns e % other.
func (e *IntExpr) Mod(other *IntExpr) *IntExpr { return intBinary(IntModOp, e, other) }

// Eq returns the comparison e == other.
func (e *IntExpr) Eq(other *IntExpr) *BoolExpr { return boolCompare(EqOp, e, other) }

// Neq returns the comparison e != other.
func (e *IntExpr) Neq(other *IntExpr) *BoolExpr { return boolCompare(NeqOp, e, other) }

// Lt returns the comparison e < other.
func (e *IntExpr) Lt(other *IntExpr) *BoolExpr { return boolCompare(LtOp, e, other) }

// Gt returns the comparison e > other.
func (e *IntExpr) Gt(other *IntExpr) *BoolExpr { return boolCompare(GtOp, e, other) }

// Lte returns the comparison e <= other.
func (e *IntExpr) Lte(other *IntExpr) *BoolExpr { return boolCompare(LteOp, e, other) }

// Gte returns the comparison e >= other.
func (e *IntExpr) Gte(other *IntExpr) *BoolExpr { return boolCompare(GteOp, e, other) }

// Op returns the node kind.
func (e *IntExpr) Op() IntOp { return e.op }

// Value returns the constant value of an IntConstOp node.
func (e *IntExpr) Value() int64 { return e.value }

// Name returns the variable name of an IntVarOp node.
func (e *IntExpr) Name() string { return e.name }

// Cond returns the condition of an Ite node.
func (e *IntExpr) Cond() *BoolExpr { return e.cond }

// Left returns the left child of a binary or Ite node.
func (e *IntExpr) Left() *IntExpr { return e.left }

// Right returns the right child of a binary or Ite node.
func (e *IntExpr) Right() *IntExpr { return e.right }

// StructEq reports structural equality.
func (e *IntExpr) StructEq(other *IntExpr) bool {
	if e.op != other.op {
		return false
	}
	switch e.op {
	case IntConstOp:
		return e.value == other.value
	case IntVarOp:
		return e.name == other.name
	case IntIteOp:
		return e.cond.StructEq(other.cond) && e.left.StructEq(other.left) && e.right.StructEq(other.right)
	default:
		return e.left.StructEq(other.left) && e.right.StructEq(other.right)
	}
}

// Eval evaluates the expression over the argument map. Division or modulo by
// zero yields ErrCondEval.
func (e *IntExpr) Eval(args map[string]int64) (int64, error) {
	switch e.op {
	case IntConstOp:
		return e.value, nil
	case IntVarOp:
		return args[e.name], nil
	case IntIteOp:
		c, err := e.cond.Eval(args)
		if err != nil {
			return 0, err
		}
		if c {
			return e.left.Eval(args)
		}
		return e.right.Eval(args)
	}

	l, err := e.left.Eval(args)
	if err != nil {
		return 0, err
	}
	r, err := e.right.Eval(args)
	if err != nil {
		return 0, err
	}
	switch e.op {
	case IntAddOp:
		return l + r, nil
	case IntSubOp:
		return l - r, nil
	case IntMulOp:
		return l * r, nil
	case IntDivOp:
		if r == 0 {
			return 0, ErrCondEval
		}
		return l / r, nil
	case IntModOp:
		if r == 0 {
			return 0, ErrCondEval
		}
		return l % r, nil
	}
	panic(fmt.Sprintf("expr: unknown int op %d", e.op))
}

// SMTString renders the expression as a SyGuS/SMT-LIB s-expression.
func (e *IntExpr) SMTString() string {
	switch e.op {
	case IntConstOp:
		return strconv.FormatInt(e.value, 10)
	case IntVarOp:
		return e.name
	case IntIteOp:
		return "(ite " + e.cond.SMTString() + " " + e.left.SMTString() + " " + e.right.SMTString() + ")"
	case IntAddOp:
		return "(+ " + e.left.SMTString() + " " + e.right.SMTString() + ")"
	case IntSubOp:
		return "(- " + e.left.SMTString() + " " + e.right.SMTString() + ")"
	case IntMulOp:
		return "(* " + e.left.SMTString() + " " + e.right.SMTString() + ")"
	case IntDivOp:
		return "(/ " + e.left.SMTString() + " " + e.right.SMTString() + ")"
	case IntModOp:
		return "(% " + e.left.SMTString() + " " + e.right.SMTString() + ")"
	}
	panic(fmt.Sprintf("expr: unknown int op %d", e.op))
}

// String renders the expression in infix form for dumps.
func (e *IntExpr) String() string {
	switch e.op {
	case IntConstOp:
		return strconv.FormatInt(e.value, 10)
	case IntVarOp:
		return e.name
	case IntIteOp:
		return "(ite " + e.cond.String() + " " + e.left.String() + " " + e.right.String() + ")"
	case IntAddOp:
		return "(" + e.left.String() + " + " + e.right.String() + ")"
	case IntSubOp:
		return "(" + e.left.String() + " - " + e.right.String() + ")"
	case IntMulOp:
		return "(" + e.left.String() + " * " + e.right.String() + ")"
	case IntDivOp:
		return "(" + e.left.String() + " / " + e.right.String() + ")"
	case IntModOp:
		return "(" + e.left.String() + " % " + e.right.String() + ")"
	}
	panic(fmt.Sprintf("expr: unknown int op %d", e.op))
}

// BoolOp enumerates the boolean expression node kinds.
type BoolOp int

const (
	AndOp BoolOp = iota
	OrOp
	NotOp
	EqOp
	NeqOp
	LtOp
	GtOp
	LteOp
	GteOp
	BoolVarOp
)

// BoolExpr is a boolean-valued expression tree node. BoolVarOp nodes appear
// only inside SyGuS grammar production rules, never in evaluated conditions.
type BoolExpr struct {
	op     BoolOp
	b      *BoolExpr
	bleft  *BoolExpr
	bright *BoolExpr
	ileft  *IntExpr
	iright *IntExpr
	name   string
}

// True returns the canonical always-true expression.
func True() *BoolExpr { return IntConst(1).Eq(IntConst(1)) }

// False returns the canonical always-false expression.
func False() *BoolExpr { return IntConst(1).Neq(IntConst(1)) }

// BoolVar builds a grammar-symbol reference.
func BoolVar(name string) *BoolExpr { return &BoolExpr{op: BoolVarOp, name: name} }

func boolCompare(op BoolOp, left, right *IntExpr) *BoolExpr {
	return &BoolExpr{op: op, ileft: left, iright: right}
}

// And returns left && right, dropping True operands.
func And(left, right *BoolExpr) *BoolExpr {
	if left.StructEq(True()) {
		return right
	}
	if right.StructEq(True()) {
		return left
	}
	return &BoolExpr{op: AndOp, bleft: left, bright: right}
}

// Or returns left || right, dropping False operands.
func Or(left, right *BoolExpr) *BoolExpr {
	if left.StructEq(False()) {
		return right
	}
	if right.StructEq(False()) {
		return left
	}
	return &BoolExpr{op: OrOp, bleft: left, bright: right}
}

// Not wraps the expression in a negation node without simplification. Used
// when emitting grammar rules; prefer Negate for conditions.
func Not(e *BoolExpr) *BoolExpr { return &BoolExpr{op: NotOp, b: e} }

// Negate returns the logical negation, pushing through comparators and
// collapsing double negation.
func (e *BoolExpr) Negate() *BoolExpr {
	switch e.op {
	case NotOp:
		return e.b
	case EqOp:
		return boolCompare(NeqOp, e.ileft, e.iright)
	case NeqOp:
		return boolCompare(EqOp, e.ileft, e.iright)
	case LtOp:
		return boolCompare(GteOp, e.ileft, e.iright)
	case GtOp:
		return boolCompare(LteOp, e.ileft, e.iright)
	case LteOp:
		return boolCompare(GtOp, e.ileft, e.iright)
	case GteOp:
		return boolCompare(LtOp, e.ileft, e.iright)
	default:
		return Not(e)
	}
}

// Simplify normalizes the expression. Currently it only pushes a top-level
// negation through its operand.
func Simplify(e *BoolExpr) *BoolExpr {
	if e.op == NotOp {
		return e.b.Negate()
	}
	return e
}

// AndAll conjoins the expressions, returning True for an empty list.
func AndAll(es []*BoolExpr) *BoolExpr {
	acc := True()
	for _, e := range es {
		if e != nil {
			acc = And(acc, e)
		}
	}
	return acc
}

// Op returns the node kind.
func (e *BoolExpr) Op() BoolOp { return e.op }

// Inner returns the operand of a Not node.
func (e *BoolExpr) Inner() *BoolExpr { return e.b }

// BoolLeft returns the left operand of an And/Or node.
func (e *BoolExpr) BoolLeft() *BoolExpr { return e.bleft }

// BoolRight returns the right operand of an And/Or node.
func (e *BoolExpr) BoolRight() *BoolExpr { return e.bright }

// IntLeft returns the left operand of a comparison node.
func (e *BoolExpr) IntLeft() *IntExpr { return e.ileft }

// IntRight returns the right operand of a comparison node.
func (e *BoolExpr) IntRight() *IntExpr { return e.iright }

// StructEq reports structural equality.
func (e *BoolExpr) StructEq(other *BoolExpr) bool {
	if e.op != other.op {
		return false
	}
	switch e.op {
	case BoolVarOp:
		return e.name == other.name
	case NotOp:
		return e.b.StructEq(other.b)
	case AndOp, OrOp:
		return e.bleft.StructEq(other.bleft) && e.bright.StructEq(other.bright)
	default:
		return e.ileft.StructEq(other.ileft) && e.iright.StructEq(other.iright)
	}
}

// Eval evaluates the expression over the argument map.
func (e *BoolExpr) Eval(args map[string]int64) (bool, error) {
	switch e.op {
	case AndOp:
		l, err := e.bleft.Eval(args)
		if err != nil {
			return false, err
		}
		if !l {
			return false, nil
		}
		return e.bright.Eval(args)
	case OrOp:
		l, err := e.bleft.Eval(args)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return e.bright.Eval(args)
	case NotOp:
		v, err := e.b.Eval(args)
		if err != nil {
			return false, err
		}
		return !v, nil
	case BoolVarOp:
		panic("expr: grammar symbol evaluated as a condition")
	}

	l, err := e.ileft.Eval(args)
	if err != nil {
		return false, err
	}
	r, err := e.iright.Eval(args)
	if err != nil {
		return false, err
	}
	switch e.op {
	case EqOp:
		return l == r, nil
	case NeqOp:
		return l != r, nil
	case LtOp:
		return l < r, nil
	case GtOp:
		return l > r, nil
	case LteOp:
		return l <= r, nil
	case GteOp:
		return l >= r, nil
	}
	panic(fmt.Sprintf("expr: unknown bool op %d", e.op))
}

// SMTString renders the expression as a SyGuS/SMT-LIB s-expression.
func (e *BoolExpr) SMTString() string {
	switch e.op {
	case AndOp:
		return "(and " + e.bleft.SMTString() + " " + e.bright.SMTString() + ")"
	case OrOp:
		return "(or " + e.bleft.SMTString() + " " + e.bright.SMTString() + ")"
	case NotOp:
		return "(not " + e.b.SMTString() + ")"
	case EqOp:
		return "(= " + e.ileft.SMTString() + " " + e.iright.SMTString() + ")"
	case NeqOp:
		return "(!= " + e.ileft.SMTString() + " " + e.iright.SMTString() + ")"
	case LtOp:
		return "(< " + e.ileft.SMTString() + " " + e.iright.SMTString() + ")"
	case GtOp:
		return "(> " + e.ileft.SMTString() + " " + e.iright.SMTString() + ")"
	case LteOp:
		return "(<= " + e.ileft.SMTString() + " " + e.iright.SMTString() + ")"
	case GteOp:
		return "(>= " + e.ileft.SMTString() + " " + e.iright.SMTString() + ")"
	case BoolVarOp:
		return e.name
	}
	panic(fmt.Sprintf("expr: unknown bool op %d", e.op))
}

// String renders the expression in infix form with unicode operators.
func (e *BoolExpr) String() string {
	switch e.op {
	case AndOp:
		return "(" + e.bleft.String() + " ∧ " + e.bright.String() + ")"
	case OrOp:
		return "(" + e.bleft.String() + " ∨ " + e.bright.String() + ")"
	case NotOp:
		return "(¬ " + e.b.String() + ")"
	case EqOp:
		return "(" + e.ileft.String() + " = " + e.iright.String() + ")"
	case NeqOp:
		return "(" + e.ileft.String() + " ≠ " + e.iright.String() + ")"
	case LtOp:
		return "(" + e.ileft.String() + " < " + e.iright.String() + ")"
	case GtOp:
		return "(" + e.ileft.String() + " > " + e.iright.String() + ")"
	case LteOp:
		return "(" + e.ileft.String() + " ≤ " + e.iright.String() + ")"
	case GteOp:
		return "(" + e.ileft.String() + " ≥ " + e.iright.String() + ")"
	case BoolVarOp:
		return e.name
	}
	panic(fmt.Sprintf("expr: unknown bool op %d", e.op))
}

// FunSynthesized is a parsed synthesizer reply: a named boolean function over
// integer parameters.
type FunSynthesized struct {
	Name   string
	Params []string
	Body   *BoolExpr
}

// String renders the function in (define-fun ...) form.
func (f *FunSynthesized) String() string {
	var sb strings.Builder
	sb.WriteString("(define-fun ")
	sb.WriteString(f.Name)
	sb.WriteString(" (")
	for i, p := range f.Params {
		sb.WriteString("(" + p + " Int)")
		if i != len(f.Params)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString(") Bool ")
	sb.WriteString(f.Body.SMTString())
	sb.WriteString(")")
	return sb.String()
}

// Eval evaluates the function body over the argument map.
func (f *FunSynthesized) Eval(args map[string]int64) (bool, error) {
	return f.Body.Eval(args)
}
