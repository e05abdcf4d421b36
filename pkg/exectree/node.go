/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: node.go
Description: Nodes of the abstract coverage tree. A node is a tagged leaf/internal
variant holding the edge prefix, the branch condition chosen against its siblings, the
per-enum-parameter value union of its subtree, and (for leaves) the bounded inputset and
the path tail beyond the significant prefix.
*/

package exectree

import (
	"math/rand"

	"github.com/kleascm/akaylee-pathfinder/pkg/bitvec"
	"github.com/kleascm/akaylee-pathfinder/pkg/condition"
	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
	"github.com/kleascm/akaylee-pathfinder/pkg/trace"
)

// MaxInputPerPath caps the number of inputs a leaf retains.
const MaxInputPerPath = 100

// Callback status codes the tree interprets when absorbing an input.
const (
	// RunStatusOK marks a normal return.
	RunStatusOK = 0
	// RunStatusExpectedException marks a path ending in an expected throw.
	RunStatusExpectedException = -2
)

// epsilonPrefix returns the one-element Epsilon prefix.
func epsilonPrefix() trace.ExecPath { return trace.ExecPath{trace.Epsilon} }

func isEpsilon(p trace.ExecPath) bool { return len(p) == 1 && p[0] == trace.Epsilon }

// Node is one edge of the radix tree. Exactly one of the leaf and internal
// field sets is live, selected by the leaf flag.
type Node struct {
	tree   *Tree
	parent *Node
	prefix trace.ExecPath
	cond   condition.Condition

	enumBVs       bitvec.Array
	depth         int
	exceptionPath bool

	leaf     bool
	inputset map[string]signature.Input
	tail     trace.ExecPath

	children []*Node
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.parent == nil }

// IsLeaf reports whether the node is a leaf.
func (n *Node) IsLeaf() bool { return n.leaf }

// IsInternal reports whether the node is an internal node.
func (n *Node) IsInternal() bool { return !n.leaf }

// Prefix returns the edge prefix.
func (n *Node) Prefix() trace.ExecPath { return n.prefix }

// Cond returns the node's branch condition.
func (n *Node) Cond() condition.Condition { return n.cond }

// SetCond overwrites the node's branch condition.
func (n *Node) SetCond(c condition.Condition) { n.cond = c }

// Depth returns the node depth; the root is at 0.
func (n *Node) Depth() int { return n.depth }

// ExceptionPath reports whether every path through this node ends in an
// expected exception.
func (n *Node) ExceptionPath() bool { return n.exceptionPath }

// Tail returns a leaf's path tail beyond the significant prefix.
func (n *Node) Tail() trace.ExecPath { return n.tail }

// PathLog reconstructs the cumulative path from the root to this node. With
// squeeze, Epsilon prefixes are dropped so the result is a real ExecPath.
func (n *Node) PathLog(squeeze bool) trace.ExecPath {
	prefix := n.prefix
	if squeeze && isEpsilon(prefix) {
		prefix = nil
	}
	if n.IsRoot() {
		return prefix.Clone()
	}
	return trace.Concat(n.parent.PathLog(squeeze), prefix)
}

// Sibling returns the other child of a two-child parent, if any.
func (n *Node) Sibling() (*Node, bool) {
	if n.IsRoot() || len(n.parent.children) != 2 {
		return nil, false
	}
	for _, sib := range n.parent.children {
		if sib != n {
			return sib, true
		}
	}
	panic("exectree: node missing from its parent's children")
}

// Siblings returns the node's siblings, optionally including itself.
func (n *Node) Siblings(includeSelf bool) []*Node {
	if n.IsRoot() {
		if includeSelf {
			return []*Node{n}
		}
		return nil
	}
	var out []*Node
	for _, sib := range n.parent.children {
		if !includeSelf && sib == n {
			continue
		}
		out = append(out, sib)
	}
	return out
}

// gatherInputs collects every input reachable through this subtree.
func (n *Node) gatherInputs() []signature.Input {
	if n.leaf {
		out := make([]signature.Input, 0, len(n.inputset))
		for _, in := range n.inputset {
			out = append(out, in)
		}
		return out
	}
	var out []signature.Input
	for _, child := range n.children {
		out = append(out, child.gatherInputs()...)
	}
	return out
}

// Examples returns this subtree's inputs as positive examples and the
// sibling subtrees' inputs as negative examples.
func (n *Node) Examples() (pos, neg []signature.Input) {
	pos = n.gatherInputs()
	for _, sib := range n.Siblings(false) {
		neg = append(neg, sib.gatherInputs()...)
	}
	return pos, neg
}

// EvaluateCondition checks the node's and its siblings' conditions against
// one input that executed through this node, returning the nodes whose
// condition misclassified the example (or is invalid).
func (n *Node) EvaluateCondition(in signature.Input) []*Node {
	if n.IsRoot() {
		return nil
	}
	var incorrect []*Node
	for _, target := range n.Siblings(true) {
		if target.cond.Invalid() {
			incorrect = append(incorrect, target)
			continue
		}
		if !target.cond.EvalAndUpdate(in, target == n) {
			incorrect = append(incorrect, target)
		}
	}
	return incorrect
}

// PromoteCond advances the node's condition along the promotion ladder,
// carrying its two-child sibling along so the pair stays in one kind.
func (n *Node) PromoteCond() {
	kind := n.cond.Kind()
	n.cond = n.tree.factory.Promote(n.cond)
	if sib, ok := n.Sibling(); ok {
		if sib.cond.Kind() != kind {
			panic("exectree: sibling conditions diverged in kind")
		}
		sib.cond = n.tree.factory.Promote(sib.cond)
	}
}

// LowestCommonAncestor returns the deepest node on both root paths.
func (n *Node) LowestCommonAncestor(other *Node) *Node {
	a, b := n, other
	for a.depth > b.depth {
		a = a.parent
	}
	for a.depth < b.depth {
		b = b.parent
	}
	for a != b {
		a = a.parent
		b = b.parent
	}
	return a
}

// Children returns an internal node's children.
func (n *Node) Children() []*Node { return n.children }

// InputSet returns a leaf's retained inputs keyed by canonical input key.
func (n *Node) InputSet() map[string]signature.Input { return n.inputset }

func (n *Node) isFull() bool { return len(n.inputset) >= MaxInputPerPath }

func (n *Node) evictRandom() signature.Input {
	keys := make([]string, 0, len(n.inputset))
	for k := range n.inputset {
		keys = append(keys, k)
	}
	k := keys[rand.Intn(len(keys))]
	evicted := n.inputset[k]
	delete(n.inputset, k)
	return evicted
}

// insertInputset merges inputs into the leaf, evicting a random input when
// full, and refreshes the tail and exception flag from the run status.
func (n *Node) insertInputset(tail trace.ExecPath, inputs map[string]signature.Input, runStatus int) {
	if n.isFull() {
		evicted := n.evictRandom()
		delete(n.tree.allInput, n.tree.sig.Key(evicted))
	}
	for key, in := range inputs {
		n.inputset[key] = in
		n.tree.allInput[key] = n
	}
	n.updateEnumBVs()

	if runStatus == RunStatusOK {
		n.exceptionPath = false
	} else if runStatus == RunStatusExpectedException {
		n.exceptionPath = true
	}
	if !n.IsRoot() {
		n.parent.markException()
	}
	n.tail = tail
}

// mergeInputset absorbs another leaf's inputs, dropping the overflow beyond
// the per-leaf cap.
func (n *Node) mergeInputset(inputs map[string]signature.Input) {
	if len(n.inputset)+len(inputs) <= MaxInputPerPath {
		for key, in := range inputs {
			n.inputset[key] = in
			n.tree.allInput[key] = n
		}
	} else {
		numLeft := MaxInputPerPath - len(n.inputset)
		for key, in := range inputs {
			if numLeft == 0 {
				delete(n.tree.allInput, key)
				continue
			}
			n.inputset[key] = in
			n.tree.allInput[key] = n
			numLeft--
		}
	}
	n.updateEnumBVs()
}

// addChild links the node under this internal, keeping children ordered by
// their first prefix PCID.
func (n *Node) addChild(child *Node) {
	child.parent = n
	pos := len(n.children)
	for i, existing := range n.children {
		if existing.prefix[0] > child.prefix[0] {
			pos = i
			break
		}
	}
	n.children = append(n.children, nil)
	copy(n.children[pos+1:], n.children[pos:])
	n.children[pos] = child

	n.updateEnumBVs()
}

func (n *Node) lookupChild(pcid trace.PCID) *Node {
	for _, child := range n.children {
		if child.prefix[0] == pcid {
			return child
		}
	}
	return nil
}

// markException recomputes the exception flag as the AND of the children's
// and propagates any change upward.
func (n *Node) markException() {
	allException := true
	for _, child := range n.children {
		if !child.exceptionPath {
			allException = false
			break
		}
	}
	inconsistent := n.exceptionPath != allException
	if inconsistent || n.cond == nil || n.cond.Invalid() {
		n.exceptionPath = allException
		if !n.IsRoot() {
			n.parent.markException()
		}
	}
}

// childrenCondKind returns the shared kind of the children's conditions, or
// false if they diverge.
func (n *Node) childrenCondKind() (condition.Kind, bool) {
	kind := n.children[0].cond.Kind()
	for _, child := range n.children[1:] {
		if child.cond.Kind() != kind {
			return kind, false
		}
	}
	return kind, true
}

// initializeChildrenCond resets every child's condition to a fresh one of
// the given kind.
func (n *Node) initializeChildrenCond(kind condition.Kind) {
	for _, child := range n.children {
		child.cond = n.tree.factory.New(kind)
	}
}

// updateEnumBVs recomputes the subtree's per-enum-parameter value union and
// propagates changes upward. Only meaningful when enum parameters exist.
func (n *Node) updateEnumBVs() {
	if n.tree.factory.DefaultKind() != condition.KindEnum {
		return
	}
	bvsNew := n.tree.sig.NewEnumBVs(false)
	if n.leaf {
		for _, in := range n.inputset {
			bvsNew.Set(in.Enum)
		}
	} else {
		for _, child := range n.children {
			bvsNew.Or(child.enumBVs)
		}
	}
	if !bvsNew.Equal(n.enumBVs) {
		n.enumBVs = bvsNew
		if !n.IsRoot() {
			n.parent.updateEnumBVs()
		}
	}
}

// updateDepth recomputes the depth of this node and, for internals, of any
// child whose depth is stale.
func (n *Node) updateDepth() {
	if n.IsRoot() {
		n.depth = 0
	} else {
		n.depth = n.parent.depth + 1
	}
	if n.depth > n.tree.height {
		n.tree.height = n.depth
	}
	for _, child := range n.children {
		if child.depth != n.depth+1 {
			child.updateDepth()
		}
	}
}

// find descends toward the given path. It returns the terminal node and the
// unconsumed remainder: an empty remainder means the path ends exactly at
// the returned node, a nil node means the path escapes the tree entirely.
func (n *Node) find(epath trace.ExecPath) (*Node, trace.ExecPath) {
	if len(epath) == 0 {
		panic("exectree: find on an empty path")
	}

	if n.IsInternal() && n.IsRoot() && isEpsilon(n.prefix) {
		if child := n.lookupChild(epath[0]); child != nil {
			return child.find(epath)
		}
		return nil, epath
	}

	if n.prefix.Equal(epath) {
		if n.IsInternal() {
			if eps := n.lookupChild(trace.Epsilon); eps != nil {
				return eps, nil
			}
		}
		return n, nil
	}

	commonLen := trace.CommonPrefixLen(n.prefix, epath)
	if commonLen != len(n.prefix) {
		if n.IsRoot() {
			return nil, epath
		}
		return n.parent, epath
	}
	rem := epath[commonLen:]

	if n.IsLeaf() {
		return n, rem
	}
	if child := n.lookupChild(rem[0]); child != nil {
		return child.find(rem)
	}
	return n, rem
}

// StructEq reports structural equality of two subtrees: same shape and the
// same prefixes, ignoring conditions and inputs.
func (n *Node) StructEq(other *Node) bool {
	if n.leaf != other.leaf {
		return false
	}
	if !n.prefix.Equal(other.prefix) {
		return false
	}
	if n.leaf {
		return true
	}
	if len(n.children) != len(other.children) {
		return false
	}
	for i, child := range n.children {
		if !child.StructEq(other.children[i]) {
			return false
		}
	}
	return true
}
