/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: neglect.go
Description: Always-true branch condition, the bottom of the promotion ladder.
*/

package condition

import (
	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
)

// NeglectCondition accepts every input. It is never invalid and always
// accurate, so refinement leaves it alone.
type NeglectCondition struct {
	condBase
}

// Invalid always reports false.
func (c *NeglectCondition) Invalid() bool { return false }

// Accurate always reports true.
func (c *NeglectCondition) Accurate() bool { return true }

// Holds always reports true.
func (c *NeglectCondition) Holds(signature.Input) (bool, error) { return true, nil }

// EvalAndUpdate records the example; a neglect condition is correct exactly
// for on-path examples.
func (c *NeglectCondition) EvalAndUpdate(in signature.Input, groundTruth bool) bool {
	return evalAndUpdate(c, in, groundTruth)
}

// Equal reports structural equality.
func (c *NeglectCondition) Equal(other Condition) bool {
	o, ok := other.(*NeglectCondition)
	return ok && c.eq(o.base())
}

// String renders the condition for dumps.
func (c *NeglectCondition) String() string { return "NEGLECT" }

func (c *NeglectCondition) synthesizeInternal(isPair bool, pos, neg []signature.Input) Result {
	condNew := &NeglectCondition{condBase: condBase{kind: KindNeglect, budget: c.Budget()}}
	var condSibling *NeglectCondition
	if isPair {
		condSibling = &NeglectCondition{condBase: condBase{kind: KindNeglect, budget: c.Budget()}}
	}
	r := Result{Status: Success, Cond: condNew}
	if isPair {
		r.Sibling = condSibling
	}
	return r
}
