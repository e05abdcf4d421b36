/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: numeric.go
Description: Numeric branch condition: a linear-arithmetic boolean expression over the
integer parameters, synthesized from sampled examples. Accuracy is judged against a
dynamic Matthews-correlation threshold that relaxes as the synthesis budget drains.
*/

package condition

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/kleascm/akaylee-pathfinder/pkg/expr"
	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
)

const accuracyMax = 1.0

// NumericCondition is a learned predicate over the numeric parameters.
type NumericCondition struct {
	condBase
	factory *Factory
	cond    *expr.BoolExpr
}

// Expr returns the predicate expression, or nil while invalid.
func (c *NumericCondition) Expr() *expr.BoolExpr { return c.cond }

// Invalid reports a condition without a predicate.
func (c *NumericCondition) Invalid() bool { return c.cond == nil }

// Accurate compares the Matthews correlation against the dynamic threshold:
// fresh conditions must be near-perfect, worn-out ones only need to beat the
// configured minimum.
func (c *NumericCondition) Accurate() bool {
	return c.cmat.Accuracy() >= c.dynamicThreshold()
}

func (c *NumericCondition) dynamicThreshold() float64 {
	thresholdMin := c.factory.AccuracyThreshold
	variable := accuracyMax - thresholdMin
	residual := float64(c.Budget()) / float64(c.factory.BudgetMax())
	return thresholdMin + variable*residual
}

// Holds evaluates the predicate over the input's numeric arguments.
func (c *NumericCondition) Holds(in signature.Input) (bool, error) {
	return c.cond.Eval(in.Numeric)
}

// EvalAndUpdate classifies one example and updates the confusion matrix.
func (c *NumericCondition) EvalAndUpdate(in signature.Input, groundTruth bool) bool {
	return evalAndUpdate(c, in, groundTruth)
}

// Equal reports structural equality.
func (c *NumericCondition) Equal(other Condition) bool {
	o, ok := other.(*NumericCondition)
	if !ok || !c.eq(o.base()) {
		return false
	}
	if (c.cond == nil) != (o.cond == nil) {
		return false
	}
	return c.cond == nil || c.cond.StructEq(o.cond)
}

// String renders the predicate with its accuracy and remaining budget.
func (c *NumericCondition) String() string {
	if c.cond == nil {
		return "none"
	}
	return fmt.Sprintf("%s / accuracy: %f / budget: %f",
		c.cond, c.cmat.Accuracy(), time.Duration(c.Budget()).Seconds())
}

// randomSample draws up to sampleSize examples without replacement.
func randomSample(examples []signature.Input, sampleSize int) []signature.Input {
	if len(examples) <= sampleSize {
		return examples
	}
	idx := rand.Perm(len(examples))[:sampleSize]
	out := make([]signature.Input, 0, sampleSize)
	for _, i := range idx {
		out = append(out, examples[i])
	}
	return out
}

func (c *NumericCondition) synthesizeInternal(isPair bool, pos, neg []signature.Input) Result {
	start := time.Now()

	condNew := c.factory.NewNumeric()
	condNew.SetBudget(c.Budget())
	var condSibling *NumericCondition
	if isPair {
		condSibling = c.factory.NewNumeric()
		condSibling.SetBudget(c.Budget())
	}

	sampleSize := len(pos)
	if len(neg) > sampleSize {
		sampleSize = len(neg)
	}
	if sampleSize > MaxSampleSize {
		sampleSize = MaxSampleSize
	}
	posSampled := randomSample(pos, sampleSize)
	negSampled := randomSample(neg, sampleSize)

	sfile := genSygusFile(c.factory.Sig, KindNumeric, numericConstraints(c.factory.Sig, posSampled, negSampled))
	out, err := c.factory.Runner.Run(sfile, time.Duration(c.Budget()))
	if err != nil || synthesizerGaveUp(out) {
		// Fail rather than give up: the numeric grammar may still succeed on
		// the next attempt with fresh samples.
		return Result{Status: Fail, Elapsed: time.Since(start).Nanoseconds()}
	}

	fun, perr := ParseFun(out)
	if perr != nil {
		return Result{Status: Fail, Elapsed: time.Since(start).Nanoseconds()}
	}
	body := expr.Simplify(fun.Body)

	condNew.cond = body
	if isPair {
		condSibling.cond = body.Negate()
	}
	return successResult(condNew, condSibling, isPair, start)
}
