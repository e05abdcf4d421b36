/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: equality_graph.go
Description: Equality graph over the enum parameters of one group. Equality conditions
merge nodes (unioning parameter names, intersecting candidate sets); inequality
conditions add constraint edges. Drawing is a randomized backtracking assignment that
honours every remaining edge.
*/

package solver

import (
	"errors"
	"fmt"

	"github.com/kleascm/akaylee-pathfinder/pkg/bitvec"
	"github.com/kleascm/akaylee-pathfinder/pkg/expr"
)

// ErrUnsatEnumConstraints reports that the user's enum conditions admit no
// assignment at all. Fatal: progress is impossible.
var ErrUnsatEnumConstraints = errors.New("solver: enum constraints unsatisfiable")

// equalSet is one node of the equality graph: a set of parameters forced
// equal, their shared candidate values, and the inequality neighbours.
type equalSet struct {
	params     map[string]bool
	candidates *bitvec.BitVec
	inequal    map[*equalSet]bool

	assignment *bitvec.BitVec
	traversed  []*equalSet
}

func newEqualSet(param string, candidates *bitvec.BitVec) *equalSet {
	return &equalSet{
		params:     map[string]bool{param: true},
		candidates: candidates,
		inequal:    make(map[*equalSet]bool),
	}
}

// merge folds other into the set. Inequality between merged parameters, or
// an empty candidate intersection, is unsatisfiable.
func (s *equalSet) merge(other *equalSet) error {
	if s.inequal[other] || other.inequal[s] {
		return ErrUnsatEnumConstraints
	}
	for neighbour := range other.inequal {
		delete(neighbour.inequal, other)
		neighbour.inequal[s] = true
	}
	for p := range other.params {
		s.params[p] = true
	}
	s.candidates.And(other.candidates)
	if s.candidates.Empty() {
		return ErrUnsatEnumConstraints
	}
	for neighbour := range other.inequal {
		s.inequal[neighbour] = true
	}
	return nil
}

// connect adds an inequality edge. Inequality within one equal set is
// unsatisfiable.
func (s *equalSet) connect(other *equalSet) error {
	for p := range s.params {
		if other.params[p] {
			return ErrUnsatEnumConstraints
		}
	}
	s.inequal[other] = true
	other.inequal[s] = true
	return nil
}

func (s *equalSet) hasSoleCandidate() bool { return s.candidates.NumSetBits() == 1 }

// exclude removes this set's single candidate from every neighbour and
// drops the now-satisfied edges.
func (s *equalSet) exclude() {
	for neighbour := range s.inequal {
		neighbour.candidates.Exclude(s.candidates)
		delete(neighbour.inequal, s)
	}
	s.inequal = make(map[*equalSet]bool)
}

func (s *equalSet) detach(other *equalSet) {
	delete(s.inequal, other)
	delete(other.inequal, s)
}

func (s *equalSet) unsetAssignment() {
	s.assignment = nil
	for _, neighbour := range s.traversed {
		neighbour.unsetAssignment()
	}
	s.traversed = nil
}

// pick assigns a random candidate not taken by any already-assigned
// neighbour, then recursively assigns the unassigned neighbours,
// backtracking on failure.
func (s *equalSet) pick() bool {
	if s.assignment != nil {
		return true
	}

	var fixed, toBeFixed []*equalSet
	for neighbour := range s.inequal {
		if neighbour.assignment != nil {
			fixed = append(fixed, neighbour)
		} else {
			toBeFixed = append(toBeFixed, neighbour)
		}
	}

	excluded := s.candidates.Clone()
	for _, neighbour := range fixed {
		excluded.Exclude(neighbour.assignment)
	}

	tried := s.candidates.Clone()
	tried.UnsetAll()
	picked, ok := excluded.ExtractRandomBit()
	for ok {
		s.assignment = picked
		tried.Or(picked)

		success := true
		for _, neighbour := range toBeFixed {
			if !neighbour.pick() {
				success = false
				break
			}
			s.traversed = append(s.traversed, neighbour)
		}
		if success {
			return true
		}

		s.unsetAssignment()
		excluded.Exclude(tried)
		picked, ok = excluded.ExtractRandomBit()
	}
	s.unsetAssignment()
	return false
}

// draw materializes the assignment for every parameter of the set.
func (s *equalSet) draw() map[string]int64 {
	value, ok := s.assignment.Draw()
	if !ok {
		panic("solver: drawing from an unassigned equal set")
	}
	args := make(map[string]int64, len(s.params))
	for p := range s.params {
		args[p] = value
	}
	return args
}

// EqualityGraph solves the enum conditions of one parameter group.
type EqualityGraph struct {
	eqsets  []*equalSet
	byParam map[string]*equalSet
}

// NewEqualityGraph builds the graph from the per-parameter allowed sets and
// the parameter-pair equality conditions.
func NewEqualityGraph(params []string, allowed map[string]*bitvec.BitVec, conds []expr.EqualityCondition) (*EqualityGraph, error) {
	g := &EqualityGraph{byParam: make(map[string]*equalSet)}
	for _, param := range params {
		bv, ok := allowed[param]
		if !ok {
			return nil, fmt.Errorf("solver: missing candidate set for parameter %q", param)
		}
		eqset := newEqualSet(param, bv)
		g.byParam[param] = eqset
		g.eqsets = append(g.eqsets, eqset)
	}

	var equals, inequals []expr.EqualityCondition
	for _, cond := range conds {
		if cond.Kind == expr.Equal {
			equals = append(equals, cond)
		} else {
			inequals = append(inequals, cond)
		}
	}
	for _, cond := range equals {
		if err := g.merge(cond.Left, cond.Right); err != nil {
			return nil, err
		}
	}
	for _, cond := range inequals {
		if err := g.connect(cond.Left, cond.Right); err != nil {
			return nil, err
		}
	}
	g.simplify()
	return g, nil
}

func (g *EqualityGraph) merge(left, right string) error {
	if left == right {
		return nil
	}
	setL, setR := g.byParam[left], g.byParam[right]
	if setL == setR {
		return nil
	}
	if err := setL.merge(setR); err != nil {
		return err
	}
	for i, eqset := range g.eqsets {
		if eqset == setR {
			g.eqsets = append(g.eqsets[:i], g.eqsets[i+1:]...)
			break
		}
	}
	for p := range setR.params {
		g.byParam[p] = setL
	}
	return nil
}

func (g *EqualityGraph) connect(left, right string) error {
	if left == right {
		return ErrUnsatEnumConstraints
	}
	return g.byParam[left].connect(g.byParam[right])
}

// simplify removes edges that can no longer bite: sole-candidate sets push
// their value out of every neighbour, and disjoint-candidate edges drop.
func (g *EqualityGraph) simplify() {
	for _, eqset := range g.eqsets {
		if eqset.hasSoleCandidate() {
			eqset.exclude()
		}
	}
	for _, eqset := range g.eqsets {
		var toDetach []*equalSet
		for neighbour := range eqset.inequal {
			if eqset.candidates.Exclusive(neighbour.candidates) {
				toDetach = append(toDetach, neighbour)
			}
		}
		for _, neighbour := range toDetach {
			eqset.detach(neighbour)
		}
	}
}

// Draw produces a random assignment satisfying every condition, or false
// when the graph admits none.
func (g *EqualityGraph) Draw() (map[string]int64, bool) {
	for _, eqset := range g.eqsets {
		eqset.unsetAssignment()
	}
	for _, eqset := range g.eqsets {
		if !eqset.pick() {
			return nil, false
		}
	}
	args := make(map[string]int64)
	for _, eqset := range g.eqsets {
		for p, v := range eqset.draw() {
			args[p] = v
		}
	}
	return args, true
}
