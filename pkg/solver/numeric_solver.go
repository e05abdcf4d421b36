/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: numeric_solver.go
Description: Numeric argument solver over an SMT backend. Composes the basic domain
range, user hard/soft constraints, and the scheduled path's numeric conditions; keeps a
history of negated prior assignments so repeated draws diversify; and occasionally
pushes a random relational constraint between two parameters.
*/

package solver

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/kleascm/akaylee-pathfinder/pkg/condition"
	"github.com/kleascm/akaylee-pathfinder/pkg/expr"
	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
)

// ErrUnsatInitConstraints reports that the user's hard constraints conflict
// with the basic domain range. Fatal at init.
var ErrUnsatInitConstraints = errors.New("solver: initial constraints unsatisfiable")

// Numeric-argument domain defaults.
const (
	DefaultArgIntMin = -64
	DefaultArgIntMax = 64
)

// DefaultMutRate is the probability of pushing a random relational
// constraint before a draw.
const DefaultMutRate = 0.2

// NumericSolverConfig tunes the numeric solver.
type NumericSolverConfig struct {
	ArgIntMin int64
	ArgIntMax int64
	MutRate   float64

	HardConstraints []*expr.BoolExpr
	SoftConstraints []*expr.BoolExpr
}

// NumericSolver draws numeric argument assignments.
type NumericSolver struct {
	sig  *signature.Signature
	smt  SMT
	cfg  NumericSolverConfig
	vars []string

	basicConstraint *expr.BoolExpr
	hardConstraint  *expr.BoolExpr
	softConstraint  *expr.BoolExpr
	history         *expr.BoolExpr
}

// NewNumericSolver builds the solver and verifies the basic and hard
// constraints are jointly satisfiable.
func NewNumericSolver(sig *signature.Signature, smt SMT, cfg NumericSolverConfig) (*NumericSolver, error) {
	s := &NumericSolver{
		sig:  sig,
		smt:  smt,
		cfg:  cfg,
		vars: sig.NumericNames(),
	}

	var basic []*expr.BoolExpr
	for _, name := range s.vars {
		v := expr.IntVar(name)
		basic = append(basic,
			expr.And(expr.IntConst(cfg.ArgIntMin).Lte(v), v.Lte(expr.IntConst(cfg.ArgIntMax))))
	}
	s.basicConstraint = expr.AndAll(basic)
	s.hardConstraint = expr.AndAll(cfg.HardConstraints)
	s.softConstraint = expr.AndAll(cfg.SoftConstraints)

	if len(s.vars) > 0 {
		if err := s.SetCondition(nil, true); err != nil {
			return nil, err
		}
		sat, err := s.smt.Check()
		if err != nil {
			return nil, err
		}
		if !sat {
			return nil, ErrUnsatInitConstraints
		}
	}
	return s, nil
}

// ClearHistory forgets the past assignments.
func (s *NumericSolver) ClearHistory() { s.history = nil }

func (s *NumericSolver) reset(conformSoft bool) error {
	s.smt.Reset()
	s.ClearHistory()

	if err := s.smt.Assert(s.basicConstraint); err != nil {
		return err
	}
	if err := s.smt.Assert(s.hardConstraint); err != nil {
		return err
	}
	if !s.softConstraint.StructEq(expr.True()) {
		soft := s.softConstraint
		if !conformSoft {
			soft = soft.Negate()
		}
		if err := s.smt.Assert(soft); err != nil {
			return err
		}
	}
	return nil
}

// SetCondition rebuilds the assertion set from the path's numeric
// conditions, conforming to or violating the soft block as directed.
func (s *NumericSolver) SetCondition(conds []*condition.NumericCondition, conformSoft bool) error {
	if err := s.reset(conformSoft); err != nil {
		return err
	}
	pathCond := expr.True()
	for _, cond := range conds {
		if !cond.Invalid() {
			pathCond = expr.And(pathCond, cond.Expr())
		}
	}
	return s.smt.Assert(pathCond)
}

// currentAssignment renders a model as the conjunction of its bindings.
func (s *NumericSolver) currentAssignment(model map[string]int64) *expr.BoolExpr {
	var eqs []*expr.BoolExpr
	for _, name := range s.vars {
		eqs = append(eqs, expr.IntVar(name).Eq(expr.IntConst(model[name])))
	}
	if len(eqs) == 0 {
		return nil
	}
	return expr.AndAll(eqs)
}

// drawOnce solves once under the current history, recording the negated
// assignment so the next draw differs.
func (s *NumericSolver) drawOnce() (map[string]int64, bool, error) {
	s.smt.Push()
	defer s.smt.Pop()

	if s.history != nil {
		if err := s.smt.Assert(s.history); err != nil {
			return nil, false, err
		}
	}

	sat, err := s.smt.Check()
	if err != nil || !sat {
		return nil, false, err
	}

	model, err := s.smt.Model(s.vars)
	if err != nil {
		return nil, false, err
	}
	if cur := s.currentAssignment(model); cur != nil {
		negated := cur.Negate()
		if s.history == nil {
			s.history = negated
		} else {
			s.history = expr.And(s.history, negated)
		}
	}
	return model, true, nil
}

// randConstraint builds a random relational constraint between two distinct
// numeric parameters.
func (s *NumericSolver) randConstraint() *expr.BoolExpr {
	first := rand.Intn(len(s.vars))
	second := (first + rand.Intn(len(s.vars)-1) + 1) % len(s.vars)
	l, r := expr.IntVar(s.vars[first]), expr.IntVar(s.vars[second])
	switch rand.Intn(4) {
	case 0:
		return l.Eq(r)
	case 1:
		return l.Neq(r)
	case 2:
		return l.Lt(r)
	default:
		return l.Lte(r)
	}
}

// Draw produces one numeric assignment. With probability MutRate (and at
// least two parameters) a random relational constraint is tried first; an
// UNSAT draw clears the history and retries once.
func (s *NumericSolver) Draw() (map[string]int64, bool) {
	if len(s.vars) == 0 {
		return map[string]int64{}, true
	}

	if rand.Float64() < s.cfg.MutRate && len(s.vars) > 1 {
		s.smt.Push()
		err := s.smt.Assert(s.randConstraint())
		var args map[string]int64
		var ok bool
		if err == nil {
			args, ok, err = s.drawOnce()
		}
		s.smt.Pop()
		if err == nil && ok {
			return args, true
		}
	}

	args, ok, err := s.drawOnce()
	if err != nil {
		return nil, false
	}
	if !ok {
		// Every distinct assignment has been produced; start the cycle over.
		s.ClearHistory()
		args, ok, err = s.drawOnce()
		if err != nil {
			return nil, false
		}
	}
	if !ok {
		return nil, false
	}
	return args, true
}

// IsSatisfiable checks the currently asserted constraints.
func (s *NumericSolver) IsSatisfiable() (bool, error) {
	sat, err := s.smt.Check()
	if err != nil {
		return false, fmt.Errorf("solver: satisfiability check failed: %w", err)
	}
	return sat, nil
}
