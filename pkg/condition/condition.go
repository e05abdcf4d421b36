/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: condition.go
Description: Branch conditions attached to execution tree edges. Defines the confusion
matrix, the condition kinds with their promotion ladder, the per-condition synthesis
budget, and the shared synthesize/classify protocol.
*/

package condition

import (
	"math"
	"time"

	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
)

// Kind enumerates the condition kinds. The promotion ladder is
// Enum -> Numeric -> Neglect and never runs backwards.
type Kind int

const (
	KindEnum Kind = iota
	KindNumeric
	KindNeglect
)

// Status is the outcome of one synthesis attempt.
type Status int

const (
	// Success delivers a replacement condition (and sibling inverse).
	Success Status = iota
	// Fail means the attempt produced nothing but the kind may still work;
	// the caller deducts budget and keeps the kind for a later attempt.
	Fail
	// GiveUp means this kind is exhausted; the caller promotes.
	GiveUp
)

// Result carries the outcome of a synthesis attempt.
type Result struct {
	Status  Status
	Cond    Condition
	Sibling Condition
	Elapsed int64 // nanoseconds
}

// MaxSampleSize bounds how many examples per side are handed to the
// synthesizer for numeric conditions.
const MaxSampleSize = 50

// Matrix is a confusion matrix over condition evaluations.
type Matrix struct {
	TP, TN, FP, FN int64
}

// Symmetry returns the matrix with the positive and negative sides swapped.
func (m Matrix) Symmetry() Matrix { return Matrix{TP: m.TN, TN: m.TP, FP: m.FN, FN: m.FP} }

// Perfect reports a non-empty matrix without misclassifications.
func (m Matrix) Perfect() bool { return m.TP+m.TN > 0 && m.FP+m.FN == 0 }

// Add accumulates another matrix.
func (m *Matrix) Add(other Matrix) {
	m.TP += other.TP
	m.TN += other.TN
	m.FP += other.FP
	m.FN += other.FN
}

// Accuracy computes the Matthews correlation coefficient in [-1, 1]. Counts
// above 25000 are halved together to keep the product in int64 range.
func (m Matrix) Accuracy() float64 {
	tp, tn, fp, fn := m.TP, m.TN, m.FP, m.FN
	for max64(max64(tp, tn), max64(fp, fn)) > 25000 {
		tp /= 2
		tn /= 2
		fp /= 2
		fn /= 2
	}
	numerator := tp*tn - fp*fn
	prod := (tp + fp) * (tp + fn) * (tn + fp) * (tn + fn)
	if prod == 0 {
		return 0.0
	}
	return float64(numerator) / math.Sqrt(float64(prod))
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// Condition is one learned branch predicate with its confusion matrix and
// synthesis budget. Implementations are EnumCondition, NumericCondition and
// NeglectCondition.
type Condition interface {
	// Kind returns the condition kind.
	Kind() Kind
	// Invalid reports whether the condition lacks a predicate.
	Invalid() bool
	// Accurate reports whether the condition needs no further refinement.
	Accurate() bool
	// Holds evaluates the predicate over the input.
	Holds(in signature.Input) (bool, error)
	// EvalAndUpdate checks the predicate against the ground truth (on-path
	// or off-path), updates the confusion matrix, and reports whether the
	// condition classified the example correctly. An evaluation error counts
	// as a negative result.
	EvalAndUpdate(in signature.Input, groundTruth bool) bool
	// Budget returns the remaining synthesis budget in nanoseconds.
	Budget() int64
	// SetBudget overwrites the remaining budget.
	SetBudget(ns int64)
	// DeductBudget drains the budget, clamping to zero.
	DeductBudget(ns int64)
	// Insolvent reports an exhausted budget.
	Insolvent() bool
	// Matrix returns the current confusion matrix.
	Matrix() Matrix
	// Equal reports structural equality: kind, matrix, budget, predicate.
	Equal(other Condition) bool
	// String renders the predicate for dumps.
	String() string

	base() *condBase
	synthesizeInternal(isPair bool, pos, neg []signature.Input) Result
}

type condBase struct {
	kind   Kind
	cmat   Matrix
	budget int64
}

func (b *condBase) base() *condBase { return b }

// Matrix returns the current confusion matrix.
func (b *condBase) Matrix() Matrix { return b.cmat }

// Kind returns the condition kind.
func (b *condBase) Kind() Kind { return b.kind }

// Budget returns the remaining synthesis budget in nanoseconds.
func (b *condBase) Budget() int64 { return b.budget }

// SetBudget overwrites the remaining budget.
func (b *condBase) SetBudget(ns int64) { b.budget = ns }

// Insolvent reports an exhausted budget.
func (b *condBase) Insolvent() bool { return b.budget <= 0 }

func (b *condBase) DeductBudget(ns int64) {
	if b.budget > ns {
		b.budget -= ns
	} else {
		b.budget = 0
	}
	if time.Duration(b.budget) < time.Millisecond {
		b.budget = 0
	}
}

func (b *condBase) eq(other *condBase) bool {
	return b.kind == other.kind && b.budget == other.budget && b.cmat == other.cmat
}

func evalAndUpdate(c Condition, in signature.Input, groundTruth bool) bool {
	holds, err := c.Holds(in)
	predicted := holds && err == nil
	correct := predicted == groundTruth
	m := &c.base().cmat
	switch {
	case correct && groundTruth:
		m.TP++
	case correct && !groundTruth:
		m.TN++
	case !correct && groundTruth:
		m.FN++
	default:
		m.FP++
	}
	return correct
}

// classify rebuilds the condition's confusion matrix from scratch against
// the example sets. An evaluation error counts as a negative prediction: FN
// for a positive example, TN for a negative one.
func classify(c Condition, pos, neg []signature.Input) {
	var m Matrix
	for _, in := range pos {
		if holds, err := c.Holds(in); err == nil && holds {
			m.TP++
		} else {
			m.FN++
		}
	}
	for _, in := range neg {
		if holds, err := c.Holds(in); err == nil && holds {
			m.FP++
		} else {
			m.TN++
		}
	}
	c.base().cmat = m
}

// Synthesize runs one synthesis attempt for the condition. An insolvent
// condition gives up immediately. On success the replacement conditions are
// classified against the example sets to seed their confusion matrices.
func Synthesize(c Condition, isPair bool, pos, neg []signature.Input) Result {
	if c.Insolvent() {
		return Result{Status: GiveUp}
	}

	res := c.synthesizeInternal(isPair, pos, neg)
	if res.Status == Success {
		classify(res.Cond, pos, neg)
		if isPair {
			classify(res.Sibling, neg, pos)
		}
	}
	return res
}
