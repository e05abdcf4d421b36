/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: equality.go
Description: Variable-equality view of a boolean expression, consumed by the enum
solver's equality graph.
*/

package expr

import "fmt"

// EqualityKind distinguishes equality from inequality conditions.
type EqualityKind int

const (
	Equal EqualityKind = iota
	Inequal
)

// EqualityCondition is an (in)equality between two enum parameters of the
// same group.
type EqualityCondition struct {
	Kind  EqualityKind
	Left  string
	Right string
}

// Negate flips the condition kind.
func (c EqualityCondition) Negate() EqualityCondition {
	kind := Equal
	if c.Kind == Equal {
		kind = Inequal
	}
	return EqualityCondition{Kind: kind, Left: c.Left, Right: c.Right}
}

// ToEqualityCondition converts a boolean tree of shape Eq/Neq(Var, Var), or a
// Not thereof, into an equality condition. Any other shape is an error.
func ToEqualityCondition(e *BoolExpr) (EqualityCondition, error) {
	switch e.op {
	case NotOp:
		inner, err := ToEqualityCondition(e.b)
		if err != nil {
			return EqualityCondition{}, err
		}
		return inner.Negate(), nil
	case EqOp, NeqOp:
		if e.ileft.op != IntVarOp || e.iright.op != IntVarOp {
			return EqualityCondition{}, fmt.Errorf("expr: equality condition operands must be variables, got %s", e)
		}
		kind := Equal
		if e.op == NeqOp {
			kind = Inequal
		}
		return EqualityCondition{Kind: kind, Left: e.ileft.name, Right: e.iright.name}, nil
	default:
		return EqualityCondition{}, fmt.Errorf("expr: only equality between parameters is expected, got %s", e)
	}
}
