/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: enum_solver.go
Description: Enum argument solver. Unions the inclusion conditions' off-path value sets,
negates them into allowed sets, routes equality conditions to their enum group's
equality graph, and concatenates the per-group draws into one enum assignment.
*/

package solver

import (
	"fmt"

	"github.com/kleascm/akaylee-pathfinder/pkg/bitvec"
	"github.com/kleascm/akaylee-pathfinder/pkg/condition"
	"github.com/kleascm/akaylee-pathfinder/pkg/expr"
	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
)

// EnumSolver draws enum argument assignments satisfying the scheduled
// path's enum conditions. It holds one equality graph per enum group.
type EnumSolver struct {
	sig        *signature.Signature
	groups     [][]string
	groupIdx   map[string]int
	graphs     []*EqualityGraph
	configured bool
}

// NewEnumSolver creates a solver for the signature's enum groups.
func NewEnumSolver(sig *signature.Signature) *EnumSolver {
	s := &EnumSolver{sig: sig, groupIdx: make(map[string]int)}
	for gi, group := range sig.EnumGroups() {
		var names []string
		for _, p := range group {
			names = append(names, p.Name)
			s.groupIdx[p.Name] = gi
		}
		s.groups = append(s.groups, names)
	}
	return s
}

// SetCondition rebuilds the equality graphs from the path's enum conditions.
func (s *EnumSolver) SetCondition(conds []*condition.EnumCondition) error {
	groupEqualities := make([][]expr.EqualityCondition, len(s.groups))
	excluded := s.sig.NewEnumBVs(false)

	for _, cond := range conds {
		if bv, inclusion := cond.InclusionCond(); inclusion {
			if bv != nil && !bv.Empty() {
				excluded.OrOne(bv)
			}
		} else if eq := cond.EqualityCond(); eq != nil {
			eqcond, err := expr.ToEqualityCondition(eq)
			if err != nil {
				return fmt.Errorf("solver: malformed enum equality condition: %w", err)
			}
			gi, ok := s.groupIdx[eqcond.Left]
			if !ok || gi != s.groupIdx[eqcond.Right] {
				return fmt.Errorf("solver: equality between parameters of different enum groups: %s, %s",
					eqcond.Left, eqcond.Right)
			}
			groupEqualities[gi] = append(groupEqualities[gi], eqcond)
		}
	}

	// The union holds off-path values; its complement is what we may draw.
	excluded.Negate()
	allowed := make(map[string]*bitvec.BitVec, excluded.Len())
	for i := 0; i < excluded.Len(); i++ {
		bv := excluded.At(i)
		allowed[bv.Name()] = bv.Clone()
	}

	s.graphs = s.graphs[:0]
	for gi, names := range s.groups {
		graph, err := NewEqualityGraph(names, allowed, groupEqualities[gi])
		if err != nil {
			return err
		}
		s.graphs = append(s.graphs, graph)
	}
	s.configured = true
	return nil
}

// Draw produces one enum assignment over every declared enum parameter, or
// false when some group admits none.
func (s *EnumSolver) Draw() (map[string]int64, bool) {
	if !s.configured {
		if err := s.SetCondition(nil); err != nil {
			return nil, false
		}
	}
	args := make(map[string]int64, s.sig.NumEnum())
	for _, graph := range s.graphs {
		groupArgs, ok := graph.Draw()
		if !ok {
			return nil, false
		}
		for p, v := range groupArgs {
			args[p] = v
		}
	}
	return args, true
}
