// Package tree implements the MCTS search tree (spec component C1): node
// allocation, edge statistics, and state memoization. It owns no
// evaluation or selection policy beyond PUCT scoring in Node.FindMove;
// rollout orchestration lives in the mcts package.
package tree

import (
	"sync"
	"sync/atomic"

	"github.com/distmcts/core/game"
)

// SearchTree owns a flat arena of Nodes addressed by NodeID (spec section
// 9, "Cyclic graphs": an arena + integer handles rather than owning
// pointers, so recursive_free can walk the structure without ownership
// ambiguity).
type SearchTree struct {
	mu       sync.RWMutex
	nodes    map[NodeID]*Node
	freelist []NodeID
	nextID   int32

	rootID NodeID
}

// New returns an empty SearchTree.
func New() *SearchTree {
	return &SearchTree{
		nodes:  make(map[NodeID]*Node),
		rootID: InvalidNodeID,
	}
}

// AddNode allocates a fresh node (or reuses one from the freelist) with
// unsignedParentQ recorded as invariant 1 requires: the new node's
// UnsignedParentQ must equal the parent's UnsignedMeanQ at allocation time.
func (t *SearchTree) AddNode(unsignedParentQ float32) NodeID {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l := len(t.freelist); l > 0 {
		id := t.freelist[l-1]
		t.freelist = t.freelist[:l-1]
		t.nodes[id] = newNode(id, unsignedParentQ)
		return id
	}

	id := NodeID(atomic.AddInt32(&t.nextID, 1) - 1)
	t.nodes[id] = newNode(id, unsignedParentQ)
	return id
}

// Node looks up a node by id. It returns nil if the id is unknown (already
// freed, or never allocated).
func (t *SearchTree) Node(id NodeID) *Node {
	if id == InvalidNodeID {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes[id]
}

// FreeNode releases a single node back to the freelist. It is a no-op for
// InvalidNodeID.
func (t *SearchTree) FreeNode(id NodeID) {
	if id == InvalidNodeID {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.nodes[id]; !ok {
		return
	}
	delete(t.nodes, id)
	t.freelist = append(t.freelist, id)
}

// RecursiveFree frees id and the entire subtree reachable from it. It is a
// no-op for InvalidNodeID (spec section 4.1).
func (t *SearchTree) RecursiveFree(id NodeID) {
	if id == InvalidNodeID {
		return
	}
	n := t.Node(id)
	if n == nil {
		return
	}
	for _, a := range n.Edges() {
		if child := n.Edge(a).ChildNodeID(); child != InvalidNodeID {
			t.RecursiveFree(child)
		}
	}
	t.FreeNode(id)
}

// GetRoot returns the current root node, or nil if the tree is empty.
func (t *SearchTree) GetRoot() *Node {
	t.mu.RLock()
	root := t.rootID
	t.mu.RUnlock()
	return t.Node(root)
}

// RootID returns the current root's id.
func (t *SearchTree) RootID() NodeID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rootID
}

// Advance replaces the root with the child reached by action, freeing
// every sibling subtree. If the edge has never been descended into, a
// fresh root is allocated in its place (testable property 3: no node
// outside the kept subtree remains allocated afterwards).
func (t *SearchTree) Advance(action game.Action) NodeID {
	oldRoot := t.GetRoot()
	if oldRoot == nil {
		newRoot := t.AddNode(0)
		t.mu.Lock()
		t.rootID = newRoot
		t.mu.Unlock()
		return newRoot
	}

	edge := oldRoot.Edge(action)
	var newRootID NodeID
	if edge == nil || edge.ChildNodeID() == InvalidNodeID {
		newRootID = t.AddNode(oldRoot.UnsignedMeanQ())
	} else {
		newRootID = edge.ChildNodeID()
	}

	for _, a := range oldRoot.Edges() {
		if a == action {
			continue
		}
		if child := oldRoot.Edge(a).ChildNodeID(); child != InvalidNodeID {
			t.RecursiveFree(child)
		}
	}
	t.FreeNode(oldRoot.ID())

	t.mu.Lock()
	t.rootID = newRootID
	t.mu.Unlock()
	return newRootID
}

// Reset clears every node in the tree and installs state at a fresh root.
func (t *SearchTree) Reset(state game.State) NodeID {
	t.mu.Lock()
	t.nodes = make(map[NodeID]*Node)
	t.freelist = nil
	t.nextID = 0
	t.mu.Unlock()

	root := t.AddNode(0)
	t.Node(root).SetStateIfUnset(func() (game.State, bool) { return state, state != nil })
	t.mu.Lock()
	t.rootID = root
	t.mu.Unlock()
	return root
}

// ResetTree is an alias for Reset, matching the name spec section 4.1
// calls out alongside Reset (reset(state) / reset_tree(state) have the
// same effect in this implementation).
func (t *SearchTree) ResetTree(state game.State) NodeID {
	return t.Reset(state)
}

// TreeAdvance applies moves to the root in order. If every intermediate
// edge was already instantiated, the matching subtree is reused; otherwise
// it falls back to Reset(state), per spec section 8's documented
// round-trip law.
func (t *SearchTree) TreeAdvance(moves []game.Action, state game.State) NodeID {
	root := t.GetRoot()
	if root == nil {
		return t.Reset(state)
	}
	cur := root
	for _, mv := range moves {
		edge := cur.Edge(mv)
		if edge == nil || edge.ChildNodeID() == InvalidNodeID {
			return t.Reset(state)
		}
		next := t.Node(edge.ChildNodeID())
		if next == nil {
			return t.Reset(state)
		}
		cur = next
	}

	// Reuse the matched subtree: perform the same root replacement
	// Advance would do for each move, in order.
	for _, mv := range moves {
		t.Advance(mv)
	}
	newRoot := t.GetRoot()
	newRoot.SetStateIfUnset(func() (game.State, bool) { return state, state != nil })
	return newRoot.ID()
}

// Descend returns the child of parent reached by action, lazily allocating
// one if this is the first descent through that edge. Concurrent callers
// racing to allocate the same child never see two different ids: the loser
// of the race frees its unused allocation and returns the winner's node
// (mirrors EdgeInfo.setChildNodeID's first-caller-wins contract).
func (t *SearchTree) Descend(parent *Node, action game.Action) *Node {
	edge := parent.Edge(action)
	if edge == nil {
		return nil
	}
	if id := edge.ChildNodeID(); id != InvalidNodeID {
		return t.Node(id)
	}
	candidate := t.AddNode(parent.UnsignedMeanQ())
	won := edge.setChildNodeID(candidate)
	if won != candidate {
		t.FreeNode(candidate)
	}
	return t.Node(won)
}

// Size returns the number of live nodes, for diagnostics/tests.
func (t *SearchTree) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}
