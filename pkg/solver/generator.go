/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: generator.go
Description: Input generator joining the enum and numeric solvers into a single draw.
*/

package solver

import (
	"math/rand"

	"github.com/kleascm/akaylee-pathfinder/pkg/condition"
	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
)

// Generator draws complete inputs satisfying the scheduled path conditions.
type Generator struct {
	enumSolver    *EnumSolver
	numericSolver *NumericSolver
}

// NewGenerator wraps the two sub-solvers.
func NewGenerator(enumSolver *EnumSolver, numericSolver *NumericSolver) *Generator {
	return &Generator{enumSolver: enumSolver, numericSolver: numericSolver}
}

// SetCondition configures both solvers from the path conditions. Each call
// flips a coin on whether draws conform to the soft constraint block.
func (g *Generator) SetCondition(enumConds []*condition.EnumCondition, numericConds []*condition.NumericCondition) error {
	conformSoft := rand.Intn(2) == 0
	if err := g.enumSolver.SetCondition(enumConds); err != nil {
		return err
	}
	return g.numericSolver.SetCondition(numericConds, conformSoft)
}

// Gen draws one input, or reports false when either solver has nothing left.
func (g *Generator) Gen() (signature.Input, bool) {
	enumArgs, ok := g.enumSolver.Draw()
	if !ok {
		return signature.Input{}, false
	}
	numericArgs, ok := g.numericSolver.Draw()
	if !ok {
		return signature.Input{}, false
	}
	return signature.NewInput(enumArgs, numericArgs), true
}
