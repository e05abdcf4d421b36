/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: z3.go
Description: Z3 backend for the SMT interface. Translates the symbolic expression trees
into Z3 integer terms and extracts concrete assignments from the model.
*/

package solver

import (
	"fmt"

	"github.com/aclements/go-z3/z3"
	"github.com/kleascm/akaylee-pathfinder/pkg/expr"
)

// Z3Solver implements SMT over the Z3 integer theory.
type Z3Solver struct {
	ctx    *z3.Context
	solver *z3.Solver
	vars   map[string]z3.Int
}

// NewZ3Solver creates a fresh Z3 context and solver.
func NewZ3Solver() *Z3Solver {
	ctx := z3.NewContext(z3.NewContextConfig())
	return &Z3Solver{
		ctx:    ctx,
		solver: z3.NewSolver(ctx),
		vars:   make(map[string]z3.Int),
	}
}

func (s *Z3Solver) intVar(name string) z3.Int {
	if v, ok := s.vars[name]; ok {
		return v
	}
	v := s.ctx.IntConst(name)
	s.vars[name] = v
	return v
}

func (s *Z3Solver) intConst(v int64) z3.Int {
	return s.ctx.FromInt(v, s.ctx.IntSort()).(z3.Int)
}

func (s *Z3Solver) translateInt(e *expr.IntExpr) (z3.Int, error) {
	switch e.Op() {
	case expr.IntConstOp:
		return s.intConst(e.Value()), nil
	case expr.IntVarOp:
		return s.intVar(e.Name()), nil
	case expr.IntIteOp:
		cond, err := s.translateBool(e.Cond())
		if err != nil {
			return z3.Int{}, err
		}
		left, err := s.translateInt(e.Left())
		if err != nil {
			return z3.Int{}, err
		}
		right, err := s.translateInt(e.Right())
		if err != nil {
			return z3.Int{}, err
		}
		return cond.IfThenElse(left, right).(z3.Int), nil
	}

	left, err := s.translateInt(e.Left())
	if err != nil {
		return z3.Int{}, err
	}
	right, err := s.translateInt(e.Right())
	if err != nil {
		return z3.Int{}, err
	}
	switch e.Op() {
	case expr.IntAddOp:
		return left.Add(right), nil
	case expr.IntSubOp:
		return left.Sub(right), nil
	case expr.IntMulOp:
		return left.Mul(right), nil
	case expr.IntDivOp:
		return left.Div(right), nil
	case expr.IntModOp:
		return left.Mod(right), nil
	}
	return z3.Int{}, fmt.Errorf("solver: unknown int op %d", e.Op())
}

func (s *Z3Solver) translateBool(e *expr.BoolExpr) (z3.Bool, error) {
	switch e.Op() {
	case expr.AndOp:
		left, err := s.translateBool(e.BoolLeft())
		if err != nil {
			return z3.Bool{}, err
		}
		right, err := s.translateBool(e.BoolRight())
		if err != nil {
			return z3.Bool{}, err
		}
		return left.And(right), nil
	case expr.OrOp:
		left, err := s.translateBool(e.BoolLeft())
		if err != nil {
			return z3.Bool{}, err
		}
		right, err := s.translateBool(e.BoolRight())
		if err != nil {
			return z3.Bool{}, err
		}
		return left.Or(right), nil
	case expr.NotOp:
		inner, err := s.translateBool(e.Inner())
		if err != nil {
			return z3.Bool{}, err
		}
		return inner.Not(), nil
	case expr.BoolVarOp:
		return z3.Bool{}, fmt.Errorf("solver: grammar symbol %q in a solver constraint", e.String())
	}

	left, err := s.translateInt(e.IntLeft())
	if err != nil {
		return z3.Bool{}, err
	}
	right, err := s.translateInt(e.IntRight())
	if err != nil {
		return z3.Bool{}, err
	}
	switch e.Op() {
	case expr.EqOp:
		return left.Eq(right), nil
	case expr.NeqOp:
		return left.NE(right), nil
	case expr.LtOp:
		return left.LT(right), nil
	case expr.GtOp:
		return left.GT(right), nil
	case expr.LteOp:
		return left.LE(right), nil
	case expr.GteOp:
		return left.GE(right), nil
	}
	return z3.Bool{}, fmt.Errorf("solver: unknown bool op %d", e.Op())
}

// Reset drops every assertion.
func (s *Z3Solver) Reset() { s.solver.Reset() }

// Push opens an assertion scope.
func (s *Z3Solver) Push() { s.solver.Push() }

// Pop discards the innermost scope.
func (s *Z3Solver) Pop() { s.solver.Pop() }

// Assert translates and adds a constraint.
func (s *Z3Solver) Assert(c *expr.BoolExpr) error {
	b, err := s.translateBool(c)
	if err != nil {
		return err
	}
	s.solver.Assert(b)
	return nil
}

// Check reports satisfiability.
func (s *Z3Solver) Check() (bool, error) {
	sat, err := s.solver.Check()
	if err != nil {
		return false, fmt.Errorf("solver: z3 check failed: %w", err)
	}
	return sat, nil
}

// Model extracts concrete values for the named variables.
func (s *Z3Solver) Model(names []string) (map[string]int64, error) {
	model := s.solver.Model()
	out := make(map[string]int64, len(names))
	for _, name := range names {
		val := model.Eval(s.intVar(name), true)
		iv, _, ok := val.(z3.Int).AsInt64()
		if !ok {
			return nil, fmt.Errorf("solver: model value for %q does not fit in int64", name)
		}
		out[name] = iv
	}
	return out, nil
}
