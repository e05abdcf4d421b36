/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tree.go
Description: The abstract coverage tree: a radix tree over significant execution-path
prefixes. Owns node creation, the seven insertion cases, lookup by path and by input,
condition evaluation along a path, and atomic purge-and-reinsert of migrated leaves.
*/

package exectree

import (
	"github.com/kleascm/akaylee-pathfinder/pkg/condition"
	"github.com/kleascm/akaylee-pathfinder/pkg/signature"
	"github.com/kleascm/akaylee-pathfinder/pkg/trace"
)

// Tree is the abstract coverage tree. It is mutated only on the engine
// goroutine; there is no locking.
type Tree struct {
	tpc     *trace.TracePC
	sig     *signature.Signature
	factory *condition.Factory

	root      *Node
	internals map[*Node]bool
	leaves    map[*Node]bool
	height    int

	// allInput maps every owned input to its unique leaf. Used for conflict
	// detection.
	allInput map[string]*Node
}

// New creates an empty tree.
func New(tpc *trace.TracePC, sig *signature.Signature, factory *condition.Factory) *Tree {
	return &Tree{
		tpc:       tpc,
		sig:       sig,
		factory:   factory,
		internals: make(map[*Node]bool),
		leaves:    make(map[*Node]bool),
		allInput:  make(map[string]*Node),
	}
}

// IsEmpty reports whether the tree has no nodes.
func (t *Tree) IsEmpty() bool { return t.root == nil }

// Root returns the root node.
func (t *Tree) Root() *Node { return t.root }

// Leaves returns the leaf set.
func (t *Tree) Leaves() []*Node {
	out := make([]*Node, 0, len(t.leaves))
	for leaf := range t.leaves {
		out = append(out, leaf)
	}
	return out
}

// Internals returns the internal-node set.
func (t *Tree) Internals() []*Node {
	out := make([]*Node, 0, len(t.internals))
	for n := range t.internals {
		out = append(out, n)
	}
	return out
}

// NumLeaves returns the number of leaves.
func (t *Tree) NumLeaves() int { return len(t.leaves) }

// NumInternals returns the number of internal nodes.
func (t *Tree) NumInternals() int { return len(t.internals) }

// NumTotalInput returns the number of inputs owned by the tree.
func (t *Tree) NumTotalInput() int { return len(t.allInput) }

// TotalPrefixLength sums the non-epsilon prefix lengths of every node.
func (t *Tree) TotalPrefixLength() int {
	total := 0
	for _, n := range t.allNodes() {
		if !isEpsilon(n.prefix) {
			total += len(n.prefix)
		}
	}
	return total
}

func (t *Tree) createLeaf(prefix trace.ExecPath) *Node {
	return &Node{
		tree:     t,
		prefix:   prefix.Clone(),
		enumBVs:  t.sig.NewEnumBVs(false),
		leaf:     true,
		inputset: make(map[string]signature.Input),
	}
}

func (t *Tree) createInternal(prefix trace.ExecPath) *Node {
	return &Node{
		tree:    t,
		prefix:  prefix.Clone(),
		enumBVs: t.sig.NewEnumBVs(false),
	}
}

// addNode registers the node and links it under the parent (nil = root).
// A nil cond gets the default condition kind; the root is always Neglect.
func (t *Tree) addNode(node *Node, parent *Node, cond condition.Condition) *Node {
	if len(node.prefix) == 0 {
		panic("exectree: adding a node with an empty prefix")
	}

	if node.IsInternal() {
		t.internals[node] = true
	} else {
		t.leaves[node] = true
		for key := range node.inputset {
			t.allInput[key] = node
		}
	}

	if parent == nil {
		node.cond = t.factory.NewNeglect()
		if t.root != nil {
			panic("exectree: replacing a live root")
		}
		t.root = node
		node.parent = nil
	} else {
		if cond != nil {
			node.cond = cond
		} else {
			node.cond = t.factory.Default()
		}
		parent.addChild(node)
		parent.markException()
	}
	node.updateDepth()
	return node
}

func (t *Tree) addNodes(nodes []*Node, parent *Node) {
	for _, node := range nodes {
		t.addNode(node, parent, nil)
	}
}

// pullNode detaches the node (and its inputs) from the tree, returning it.
func (t *Tree) pullNode(node *Node) *Node {
	if node.IsInternal() {
		delete(t.internals, node)
	} else {
		delete(t.leaves, node)
		for key := range node.inputset {
			delete(t.allInput, key)
		}
	}

	if node.IsRoot() {
		t.root = nil
		return node
	}

	parent := node.parent
	for i, child := range parent.children {
		if child == node {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			node.parent = nil
			return node
		}
	}
	panic("exectree: pulled node missing from its parent")
}

func (t *Tree) pullChildren(node *Node) []*Node {
	children := make([]*Node, len(node.children))
	copy(children, node.children)
	pulled := make([]*Node, 0, len(children))
	for _, child := range children {
		pulled = append(pulled, t.pullNode(child))
	}
	return pulled
}

// Insert records one execution of input along epath.
func (t *Tree) Insert(epath trace.ExecPath, in signature.Input, runStatus int) *Node {
	return t.InsertSet(epath, map[string]signature.Input{t.sig.Key(in): in}, runStatus)
}

// InsertSet records an execution shared by a set of inputs. Exactly one of
// the seven insertion cases applies; every tree invariant holds on return.
func (t *Tree) InsertSet(epath trace.ExecPath, inputs map[string]signature.Input, runStatus int) *Node {
	significant := t.tpc.Significant(epath)
	tail := t.tpc.TailOf(epath)

	if t.IsEmpty() {
		// Case 1: first insertion seeds a root leaf.
		root := t.createLeaf(significant)
		t.addNode(root, nil, nil)
		root.insertInputset(tail, inputs, runStatus)
		return root
	}

	nearest, rem := t.root.find(significant)

	if nearest == nil {
		// Case 2: the path does not go through the current root.
		if isEpsilon(t.root.prefix) {
			// The root is already a virtual branch; hang a new leaf off it.
			leaf := t.createLeaf(rem)
			root := t.root
			t.addNode(leaf, root, nil)
			leaf.insertInputset(tail, inputs, runStatus)
			root.initializeChildrenCond(t.factory.DefaultKind())
			return leaf
		}

		commonLen := trace.CommonPrefixLen(t.root.prefix, rem)
		common := epsilonPrefix()
		if commonLen > 0 {
			common = t.root.prefix[:commonLen]
		}

		newRoot := t.createInternal(common)
		oldRoot := t.pullNode(t.root)
		oldRoot.prefix = oldRoot.prefix[commonLen:]
		t.addNode(newRoot, nil, nil)
		t.addNode(oldRoot, newRoot, nil)

		leafPrefix := epsilonPrefix()
		if len(rem) > commonLen {
			leafPrefix = rem[commonLen:]
		}
		leaf := t.createLeaf(leafPrefix)
		t.addNode(leaf, newRoot, nil)
		leaf.insertInputset(tail, inputs, runStatus)
		newRoot.initializeChildrenCond(t.factory.DefaultKind())
		return leaf
	}

	if len(rem) == 0 {
		if nearest.IsInternal() {
			// Case 3: the path stops at an internal node; add an epsilon leaf.
			leaf := t.createLeaf(epsilonPrefix())
			t.addNode(leaf, nearest, nil)
			leaf.insertInputset(tail, inputs, runStatus)
			return leaf
		}
		// Case 4: the path ends at an existing leaf; merge the input.
		nearest.insertInputset(tail, inputs, runStatus)
		return nearest
	}

	if nearest.IsInternal() {
		matched := nearest.lookupChild(rem[0])
		if matched == nil {
			// Case 5: a fresh branch off an existing internal node.
			leaf := t.createLeaf(rem)
			t.addNode(leaf, nearest, nil)
			leaf.insertInputset(tail, inputs, runStatus)
			return leaf
		}

		// Case 6: the path diverges partway into a child's prefix; split it.
		pulled := t.pullNode(matched)
		commonLen := trace.CommonPrefixLen(pulled.prefix, rem)
		common := pulled.prefix[:commonLen]

		internal := t.createInternal(common)
		internalCond := pulled.cond
		pulled.prefix = pulled.prefix[commonLen:]
		t.addNode(internal, nearest, internalCond)
		t.addNode(pulled, internal, nil)

		leafPrefix := epsilonPrefix()
		if len(rem) > commonLen {
			leafPrefix = rem[commonLen:]
		}
		leaf := t.createLeaf(leafPrefix)
		t.addNode(leaf, internal, nil)
		leaf.insertInputset(tail, inputs, runStatus)
		return leaf
	}

	// Case 7: the path diverges inside a leaf; demote it to an epsilon child
	// of a fresh internal node and add the new leaf as its sibling.
	internalParent := nearest.parent
	pulled := t.pullNode(nearest)
	internal := t.createInternal(pulled.prefix)
	internalCond := pulled.cond
	pulled.prefix = epsilonPrefix()

	leaf := t.createLeaf(rem)

	if internalParent == nil {
		t.addNode(internal, nil, nil)
	} else {
		t.addNode(internal, internalParent, internalCond)
	}
	t.addNode(pulled, internal, nil)
	t.addNode(leaf, internal, nil)
	leaf.insertInputset(tail, inputs, runStatus)
	return leaf
}

// Find returns the terminal node whose cumulative prefix equals the
// significant part of epath, or nil.
func (t *Tree) Find(epath trace.ExecPath) *Node {
	if t.IsEmpty() {
		return nil
	}
	nearest, rem := t.root.find(t.tpc.Significant(epath))
	if len(rem) > 0 {
		return nil
	}
	return nearest
}

// Has reports whether the tree contains a node for the path.
func (t *Tree) Has(epath trace.ExecPath) bool { return t.Find(epath) != nil }

// HasInput reports whether the tree owns the input.
func (t *Tree) HasInput(in signature.Input) bool {
	_, ok := t.allInput[t.sig.Key(in)]
	return ok
}

// Leaf returns the leaf owning the input.
func (t *Tree) Leaf(in signature.Input) *Node { return t.allInput[t.sig.Key(in)] }

// PathOf reconstructs the full recorded path of an owned input, including
// the leaf's tail.
func (t *Tree) PathOf(in signature.Input) trace.ExecPath {
	leaf := t.allInput[t.sig.Key(in)]
	if leaf == nil {
		panic("exectree: path requested for an unknown input")
	}
	return trace.Concat(leaf.PathLog(true), leaf.tail)
}

// NodesAlong gathers the nodes on the path from the root, including the
// terminal epsilon leaf when the path stops at an internal node.
func (t *Tree) NodesAlong(epath trace.ExecPath) []*Node {
	if len(epath) == 0 {
		panic("exectree: empty path")
	}
	if t.IsEmpty() {
		panic("exectree: path walk on an empty tree")
	}

	var nodes []*Node
	current := t.root
	for {
		nodes = append(nodes, current)

		commonLen := trace.CommonPrefixLen(current.prefix, epath)
		epath = epath[commonLen:]

		if current.IsLeaf() {
			if len(epath) != 0 {
				panic("exectree: path extends past a leaf")
			}
			return nodes
		}

		if len(epath) == 0 {
			eps := current.lookupChild(trace.Epsilon)
			if eps == nil {
				panic("exectree: path stops at an internal without an epsilon child")
			}
			return append(nodes, eps)
		}

		next := current.lookupChild(epath[0])
		if next == nil {
			panic("exectree: path leaves the tree")
		}
		current = next
	}
}

// PathCond collects the enum and numeric conditions attached along a node's
// root path.
func (t *Tree) PathCond(n *Node) ([]*condition.EnumCondition, []*condition.NumericCondition) {
	nodes := t.NodesAlong(n.PathLog(false))
	var enums []*condition.EnumCondition
	var numerics []*condition.NumericCondition
	for _, node := range nodes {
		switch c := node.cond.(type) {
		case *condition.EnumCondition:
			enums = append(enums, c)
		case *condition.NumericCondition:
			numerics = append(numerics, c)
		}
	}
	return enums, numerics
}

// EvaluateConditions walks the path and returns the nodes whose conditions
// are inconsistent with the input.
func (t *Tree) EvaluateConditions(in signature.Input, epath trace.ExecPath) map[*Node]bool {
	nodes := t.NodesAlong(t.tpc.Significant(epath))
	incorrect := make(map[*Node]bool)
	for _, node := range nodes {
		for _, bad := range node.EvaluateCondition(in) {
			incorrect[bad] = true
		}
	}
	return incorrect
}

// InvalidConditionNodes returns one node per sibling pair whose condition
// lacks a predicate.
func (t *Tree) InvalidConditionNodes() map[*Node]bool {
	invalid := make(map[*Node]bool)
	for _, node := range t.allNodes() {
		if sib, ok := node.Sibling(); ok && invalid[sib] {
			continue
		}
		if node.cond.Invalid() {
			invalid[node] = true
		}
	}
	return invalid
}

func (t *Tree) allNodes() []*Node {
	out := make([]*Node, 0, len(t.internals)+len(t.leaves))
	for n := range t.internals {
		out = append(out, n)
	}
	for n := range t.leaves {
		out = append(out, n)
	}
	return out
}

func (t *Tree) has(node *Node) bool {
	return t.internals[node] || t.leaves[node]
}

// purgeLeaf removes the leaf at epath, collapsing a parent left with a
// single child.
func (t *Tree) purgeLeaf(epath trace.ExecPath) *Node {
	leaf := t.Find(epath)
	if leaf == nil || !leaf.IsLeaf() {
		panic("exectree: purging a missing leaf")
	}
	parent := leaf.parent
	pulled := t.pullNode(leaf)
	if parent != nil {
		t.rmInternalWithOnlyChild(parent)
	}
	return pulled
}

// PurgeAndReinsert atomically moves the leaf at epathOld to epathNew,
// preserving its inputset and exception flag. Used when an input turns out
// to produce a considerably longer path than previously recorded.
func (t *Tree) PurgeAndReinsert(epathOld, epathNew trace.ExecPath) {
	old := t.purgeLeaf(epathOld)
	status := RunStatusOK
	if old.exceptionPath {
		status = RunStatusExpectedException
	}
	t.InsertSet(epathNew, old.inputset, status)
}
