/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: smt.go
Description: Minimal integer-theory SMT surface needed by the numeric solver. Any
integer-capable backend satisfies it; production uses the Z3 binding, tests inject a
deterministic finite-domain fake.
*/

package solver

import "github.com/kleascm/akaylee-pathfinder/pkg/expr"

// SMT is the minimal solver interface: assertion scopes over symbolic
// boolean constraints, satisfiability, and model extraction for named
// integer variables.
type SMT interface {
	// Reset drops every assertion.
	Reset()
	// Push opens an assertion scope.
	Push()
	// Pop discards the innermost scope.
	Pop()
	// Assert adds a boolean constraint.
	Assert(c *expr.BoolExpr) error
	// Check reports satisfiability of the asserted constraints.
	Check() (bool, error)
	// Model returns a satisfying assignment for the named variables. Only
	// valid after a sat Check in the same scope.
	Model(names []string) (map[string]int64, error)
}
