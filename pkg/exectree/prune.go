/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: prune.go
Description: Tree reconstruction after new nondeterministic PCIDs are discovered.
Prefixes are rewritten without ND PCIDs, hollowed-out epsilon internals are hoisted,
colliding siblings are merged at their common prefix, and single-child internals are
collapsed. All tree invariants hold on return.
*/

package exectree

import (
	"github.com/kleascm/akaylee-pathfinder/pkg/trace"
)

// filterNDPCID rewrites the node's prefix without ND PCIDs. Leaves refill
// lost significant positions from their tail. Nodes whose prefix or tail
// changed are collected into filtered.
func (n *Node) filterNDPCID(prefixLenSoFar int, filtered map[*Node]bool) {
	tpc := n.tree.tpc

	if n.leaf {
		prefixBefore, prefixAfter := 0, 0
		if !isEpsilon(n.prefix) {
			prefixBefore = len(n.prefix)
			n.prefix = tpc.Prune(n.prefix)
			prefixAfter = len(n.prefix)
		}

		tailBefore := len(n.tail)
		n.tail = tpc.Prune(n.tail)
		tailAfter := len(n.tail)

		tailMoved := false
		if prefixLenSoFar+prefixAfter < tpc.SignificantMax() && tailAfter > 0 {
			tailMoved = true
			lenToMove := tpc.SignificantMax() - (prefixLenSoFar + prefixAfter)
			if lenToMove > tailAfter {
				lenToMove = tailAfter
			}
			if isEpsilon(n.prefix) {
				n.prefix = n.tail[:lenToMove].Clone()
			} else {
				n.prefix = trace.Concat(n.prefix, n.tail[:lenToMove])
			}
			n.tail = n.tail[lenToMove:]
		} else if len(n.prefix) == 0 {
			n.prefix = epsilonPrefix()
		}

		if prefixBefore != prefixAfter || tailBefore != tailAfter || tailMoved {
			filtered[n] = true
		}
		return
	}

	prefixLen := 0
	if isEpsilon(n.prefix) {
		if !n.IsRoot() {
			panic("exectree: non-root epsilon internal before pruning")
		}
	} else {
		sizeBefore := len(n.prefix)
		n.prefix = tpc.Prune(n.prefix)
		if len(n.prefix) != sizeBefore {
			filtered[n] = true
			if len(n.prefix) == 0 {
				n.prefix = epsilonPrefix()
			}
		}
		if !isEpsilon(n.prefix) {
			prefixLen = len(n.prefix)
		}
	}

	for _, child := range n.children {
		child.filterNDPCID(prefixLenSoFar+prefixLen, filtered)
	}
}

// rmInternalEpsilonNode hoists the children of a non-root internal whose
// prefix collapsed to epsilon into the grandparent.
func (t *Tree) rmInternalEpsilonNode(internal *Node) {
	if internal.IsRoot() || !isEpsilon(internal.prefix) {
		return
	}
	parent := internal.parent
	t.pullNode(internal)
	children := t.pullChildren(internal)
	t.addNodes(children, parent)
}

// sortChildren re-adds the internal's children one by one, merging any pair
// colliding on their first prefix PCID. Returns the merged nodes.
func (t *Tree) sortChildren(internal *Node) map[*Node]bool {
	if childrenSorted(internal) {
		return nil
	}

	merged := make(map[*Node]bool)
	nodes := t.pullChildren(internal)
	for _, node := range nodes {
		conflict := internal.lookupChild(node.prefix[0])
		if conflict == nil {
			t.addNode(node, internal, nil)
			continue
		}
		conflicting := t.pullNode(conflict)
		mergedNode := t.merge(conflicting, node)
		merged[mergedNode] = true
		t.addNode(mergedNode, internal, nil)
	}
	return merged
}

// merge combines two siblings sharing a first prefix PCID into one node at
// their longest common prefix. Leaf pairs merge inputsets, a leaf joining an
// internal becomes its epsilon child, and internal pairs pool children.
func (t *Tree) merge(left, right *Node) *Node {
	commonLen := trace.CommonPrefixLen(left.prefix, right.prefix)
	if commonLen == 0 {
		panic("exectree: merging nodes without a common prefix")
	}
	common := left.prefix[:commonLen]

	if left.prefix.Equal(right.prefix) {
		if left.IsLeaf() && right.IsLeaf() {
			leaf := t.createLeaf(common)
			leaf.mergeInputset(left.inputset)
			leaf.mergeInputset(right.inputset)
			leaf.tail = left.tail
			leaf.exceptionPath = left.exceptionPath
			return leaf
		}

		if isEpsilon(common) {
			panic("exectree: merging epsilon-prefixed non-leaf pair")
		}

		if left.IsLeaf() && right.IsInternal() {
			left.prefix = epsilonPrefix()
			t.addNode(left, right, nil)
			return right
		}
		if left.IsInternal() && right.IsLeaf() {
			right.prefix = epsilonPrefix()
			t.addNode(right, left, nil)
			return left
		}

		internal := t.createInternal(common)
		t.addNodes(t.pullChildren(left), internal)
		t.addNodes(t.pullChildren(right), internal)
		return internal
	}

	if len(left.prefix) == commonLen {
		internal := t.createInternal(common)
		if left.IsLeaf() {
			left.prefix = epsilonPrefix()
			t.addNode(left, internal, nil)
		} else {
			t.addNodes(t.pullChildren(left), internal)
		}
		right.prefix = right.prefix[commonLen:]
		t.addNode(right, internal, nil)
		return internal
	}

	if len(right.prefix) == commonLen {
		internal := t.createInternal(common)
		left.prefix = left.prefix[commonLen:]
		t.addNode(left, internal, nil)
		if right.IsLeaf() {
			right.prefix = epsilonPrefix()
			t.addNode(right, internal, nil)
		} else {
			t.addNodes(t.pullChildren(right), internal)
		}
		return internal
	}

	internal := t.createInternal(common)
	left.prefix = left.prefix[commonLen:]
	t.addNode(left, internal, nil)
	right.prefix = right.prefix[commonLen:]
	t.addNode(right, internal, nil)
	return internal
}

// rmInternalWithOnlyChild collapses an internal left with a single child,
// concatenating the prefixes.
func (t *Tree) rmInternalWithOnlyChild(internal *Node) {
	if len(internal.children) >= 2 {
		return
	}
	parent := internal.parent
	pulled := t.pullNode(internal)
	if len(pulled.children) != 1 {
		panic("exectree: collapsing an internal without exactly one child")
	}
	onlyChild := t.pullNode(pulled.children[0])

	switch {
	case isEpsilon(pulled.prefix):
		// A collapsing epsilon root: the child keeps its own prefix.
		if parent != nil {
			panic("exectree: non-root epsilon internal while collapsing")
		}
	case isEpsilon(onlyChild.prefix):
		onlyChild.prefix = pulled.prefix
	default:
		onlyChild.prefix = trace.Concat(pulled.prefix, onlyChild.prefix)
	}

	t.addNode(onlyChild, parent, nil)
}

// Prune rewrites the tree after the tracer learned new nondeterministic
// PCIDs: every prefix is filtered, epsilon internals are hoisted, unsorted
// or colliding children are merged, and single-child internals collapse.
func (t *Tree) Prune() {
	if t.IsEmpty() {
		return
	}

	filtered := make(map[*Node]bool)
	t.root.filterNDPCID(0, filtered)

	mayNeedSort := make(map[*Node]bool)
	for node := range filtered {
		if !node.IsRoot() {
			mayNeedSort[node.parent] = true
		}
	}

	for node := range filtered {
		if node.IsInternal() && !node.IsRoot() {
			t.rmInternalEpsilonNode(node)
		}
	}

	mayHaveOnlyChild := make(map[*Node]bool)
	for len(mayNeedSort) > 0 {
		var target *Node
		for n := range mayNeedSort {
			target = n
			break
		}
		delete(mayNeedSort, target)
		if !t.has(target) {
			continue
		}

		merged := t.sortChildren(target)
		if len(merged) > 0 {
			mayHaveOnlyChild[target] = true
			for node := range merged {
				if t.has(node) && node.IsInternal() {
					mayNeedSort[node] = true
				}
			}
		}
	}

	for internal := range mayHaveOnlyChild {
		if t.has(internal) {
			t.rmInternalWithOnlyChild(internal)
		}
	}
}
