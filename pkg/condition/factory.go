/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: factory.go
Description: Condition factory carrying the signature, synthesizer backend, accuracy
threshold, and budget defaults. Replaces the process-globals of older designs with an
explicit value owned by the execution tree and the engine.
*/

package condition

import (
	"time"

	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
)

// DefaultSynthesisBudget is the per-condition synthesis time allowance.
const DefaultSynthesisBudget = 4 * time.Second

// DefaultAccuracyThreshold is the minimum Matthews correlation a worn-out
// numeric condition must reach to count as accurate.
const DefaultAccuracyThreshold = 0.6

// Factory builds conditions bound to one signature and synthesizer backend.
type Factory struct {
	Sig               *signature.Signature
	Runner            Synthesizer
	Budget            time.Duration
	AccuracyThreshold float64
}

// NewFactory creates a factory with default budget and threshold.
func NewFactory(sig *signature.Signature, runner Synthesizer) *Factory {
	return &Factory{
		Sig:               sig,
		Runner:            runner,
		Budget:            DefaultSynthesisBudget,
		AccuracyThreshold: DefaultAccuracyThreshold,
	}
}

// BudgetMax returns the full synthesis budget in nanoseconds.
func (f *Factory) BudgetMax() int64 { return int64(f.Budget) }

// DefaultKind returns the starting kind for fresh sibling conditions: Enum
// when any enum parameter is declared, Numeric otherwise.
func (f *Factory) DefaultKind() Kind {
	if f.Sig.NumEnum() > 0 {
		return KindEnum
	}
	return KindNumeric
}

// New creates a fresh condition of the given kind with a full budget. Enum
// and numeric conditions start invalid; a Neglect condition is valid.
func (f *Factory) New(kind Kind) Condition {
	switch kind {
	case KindEnum:
		return f.NewEnum()
	case KindNumeric:
		return f.NewNumeric()
	default:
		return f.NewNeglect()
	}
}

// Default creates an invalid condition of the default kind.
func (f *Factory) Default() Condition { return f.New(f.DefaultKind()) }

// NewEnum creates a fresh enum condition in the inclusion phase.
func (f *Factory) NewEnum() *EnumCondition {
	return &EnumCondition{
		condBase:       condBase{kind: KindEnum, budget: f.BudgetMax()},
		factory:        f,
		inclusionPhase: true,
	}
}

// NewNumeric creates a fresh numeric condition without a predicate.
func (f *Factory) NewNumeric() *NumericCondition {
	return &NumericCondition{
		condBase: condBase{kind: KindNumeric, budget: f.BudgetMax()},
		factory:  f,
	}
}

// NewNeglect creates an always-true condition.
func (f *Factory) NewNeglect() *NeglectCondition {
	return &NeglectCondition{condBase: condBase{kind: KindNeglect, budget: f.BudgetMax()}}
}

// Promote advances the condition along the Enum -> Numeric -> Neglect ladder.
// The replacement keeps the old condition's remaining budget.
func (f *Factory) Promote(c Condition) Condition {
	var next Condition
	switch c.Kind() {
	case KindEnum:
		next = f.NewNumeric()
	case KindNumeric:
		next = f.NewNeglect()
	default:
		return c
	}
	next.SetBudget(c.Budget())
	return next
}
