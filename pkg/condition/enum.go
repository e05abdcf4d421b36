/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: enum.go
Description: Enum branch condition. The inclusion phase learns a per-parameter off-path
value set from the example bitvecs; when the sides overlap everywhere, the condition
switches to the equality phase and asks the external synthesizer for a variable-equality
expression over the parameter's enum group.
*/

package condition

import (
	"time"

	"github.com/kleascm/akaylee-pathfinder/pkg/bitvec"
	"github.com/kleascm/akaylee-pathfinder/pkg/expr"
	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
)

// EnumCondition holds either an inclusion bitvec (off-path value set) or a
// synthesized equality expression over enum parameters.
type EnumCondition struct {
	condBase
	factory        *Factory
	inclusionPhase bool
	inclusion      *bitvec.BitVec
	equality       *expr.BoolExpr
}

// InclusionCond returns the inclusion bitvec and whether the condition is
// still in the inclusion phase.
func (c *EnumCondition) InclusionCond() (*bitvec.BitVec, bool) {
	return c.inclusion, c.inclusionPhase
}

// EqualityCond returns the synthesized equality expression, or nil.
func (c *EnumCondition) EqualityCond() *expr.BoolExpr {
	return c.equality
}

// Invalid reports a condition without a usable predicate.
func (c *EnumCondition) Invalid() bool {
	if c.inclusionPhase {
		return c.inclusion == nil || c.inclusion.Empty()
	}
	return c.equality == nil
}

// Accurate reports whether the matrix is perfect. Enum predicates are exact;
// anything less asks for refinement.
func (c *EnumCondition) Accurate() bool { return c.cmat.Perfect() }

// Holds evaluates the predicate over the input's enum arguments.
func (c *EnumCondition) Holds(in signature.Input) (bool, error) {
	if c.inclusionPhase {
		return c.inclusion.Eval(in.Enum), nil
	}
	return c.equality.Eval(in.Enum)
}

// EvalAndUpdate classifies one example and updates the confusion matrix.
func (c *EnumCondition) EvalAndUpdate(in signature.Input, groundTruth bool) bool {
	return evalAndUpdate(c, in, groundTruth)
}

// Equal reports structural equality.
func (c *EnumCondition) Equal(other Condition) bool {
	o, ok := other.(*EnumCondition)
	if !ok || !c.eq(o.base()) {
		return false
	}
	if c.inclusionPhase != o.inclusionPhase {
		return false
	}
	if c.inclusionPhase {
		if (c.inclusion == nil) != (o.inclusion == nil) {
			return false
		}
		return c.inclusion == nil || c.inclusion.Equal(o.inclusion)
	}
	if (c.equality == nil) != (o.equality == nil) {
		return false
	}
	return c.equality == nil || c.equality.StructEq(o.equality)
}

// String renders the predicate for dumps.
func (c *EnumCondition) String() string {
	if c.inclusionPhase && c.inclusion != nil && !c.inclusion.Empty() {
		return c.inclusion.String(true)
	}
	if c.equality != nil {
		return c.equality.String()
	}
	return "none"
}

func (c *EnumCondition) synthesizeInternal(isPair bool, pos, neg []signature.Input) Result {
	start := time.Now()

	condNew := c.factory.NewEnum()
	condNew.SetBudget(c.Budget())
	var condSibling *EnumCondition
	if isPair {
		condSibling = c.factory.NewEnum()
		condSibling.SetBudget(c.Budget())
	}

	if c.inclusionPhase {
		bvsPos := c.factory.Sig.NewEnumBVs(false)
		for _, in := range pos {
			bvsPos.Set(in.Enum)
		}
		bvsNeg := c.factory.Sig.NewEnumBVs(false)
		for _, in := range neg {
			bvsNeg.Set(in.Enum)
		}
		distinct := bvsPos.Distinct(bvsNeg)
		if !distinct.Empty() {
			condNew.inclusion = distinct.ExportNonEmpty()
			if isPair {
				opposite := bvsNeg.Distinct(bvsPos)
				condSibling.inclusion = opposite.ExportNonEmpty()
			}
			return successResult(condNew, condSibling, isPair, start)
		}
		condNew.inclusionPhase = false
		if isPair {
			condSibling.inclusionPhase = false
		}
	}

	sfile := genSygusFile(c.factory.Sig, KindEnum, enumConstraints(c.factory.Sig, pos, neg))
	out, err := c.factory.Runner.Run(sfile, time.Duration(c.Budget()))
	if err != nil || synthesizerGaveUp(out) {
		return Result{Status: GiveUp, Elapsed: time.Since(start).Nanoseconds()}
	}

	fun, perr := ParseFun(out)
	if perr != nil {
		return Result{Status: GiveUp, Elapsed: time.Since(start).Nanoseconds()}
	}
	body := expr.Simplify(fun.Body)

	condNew.inclusionPhase = false
	condNew.equality = body
	if isPair {
		condSibling.inclusionPhase = false
		condSibling.equality = body.Negate()
	}
	return successResult(condNew, condSibling, isPair, start)
}

func successResult(cond, sibling Condition, isPair bool, start time.Time) Result {
	r := Result{Status: Success, Cond: cond, Elapsed: time.Since(start).Nanoseconds()}
	if isPair {
		r.Sibling = sibling
	}
	return r
}
