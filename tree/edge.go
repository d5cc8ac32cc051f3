package tree

import "sync"

// NodeID is an arena handle: a decoupled integer reference to a Node,
// rather than a pointer, so recursive_free can walk the structure without
// owning the memory it names (see SearchTree in tree.go).
type NodeID int32

// InvalidNodeID is the sentinel used before a child has ever been
// descended into.
const InvalidNodeID NodeID = -1

// EdgeInfo is the per-action statistics attached to one outgoing edge of a
// Node. Every field is guarded by mu; callers never touch the fields
// directly.
type EdgeInfo struct {
	mu sync.Mutex

	priorProbability float32
	childNodeID      NodeID
	rewardSum        float32
	numVisits        uint32
	virtualLoss      float32
}

func newEdge(prior float32) *EdgeInfo {
	return &EdgeInfo{priorProbability: prior, childNodeID: InvalidNodeID}
}

// Prior returns P(s,a).
func (e *EdgeInfo) Prior() float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.priorProbability
}

// ChildNodeID returns the child allocated for this edge, or InvalidNodeID
// if it has never been descended into.
func (e *EdgeInfo) ChildNodeID() NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.childNodeID
}

// setChildNodeID installs the child allocated on first descent. Only the
// first caller's id wins; later callers observe the winner's id.
func (e *EdgeInfo) setChildNodeID(id NodeID) NodeID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.childNodeID == InvalidNodeID {
		e.childNodeID = id
	}
	return e.childNodeID
}

// NumVisits returns N(s,a).
func (e *EdgeInfo) NumVisits() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.numVisits
}

// RewardSum returns the accumulated backed-up reward for this edge.
func (e *EdgeInfo) RewardSum() float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rewardSum
}

// VirtualLoss returns the in-flight virtual loss currently applied.
func (e *EdgeInfo) VirtualLoss() float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.virtualLoss
}

// Q returns reward_sum / num_visits, or 0 if never visited.
func (e *EdgeInfo) Q() float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.numVisits == 0 {
		return 0
	}
	return e.rewardSum / float32(e.numVisits)
}

// AddVirtualLoss applies a transient loss to the edge's effective reward,
// spreading concurrent rollouts across the tree (spec section 4.1).
func (e *EdgeInfo) AddVirtualLoss(vl float32) {
	e.mu.Lock()
	e.virtualLoss += vl
	e.mu.Unlock()
}

// UpdateStats records a completed rollout's backup: adds reward to the
// running sum, increments the visit count, and reverses vl of virtual
// loss previously applied by AddVirtualLoss.
func (e *EdgeInfo) UpdateStats(reward float32, vl float32) {
	e.mu.Lock()
	e.rewardSum += reward
	e.numVisits++
	e.virtualLoss -= vl
	e.mu.Unlock()
}

// snapshot copies out the edge's fields for lock-free read-only use (e.g.
// scoring edges in Node.FindMove).
type edgeSnapshot struct {
	Prior       float32
	ChildNodeID NodeID
	RewardSum   float32
	NumVisits   uint32
	VirtualLoss float32
}

func (e *EdgeInfo) snapshot() edgeSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return edgeSnapshot{
		Prior:       e.priorProbability,
		ChildNodeID: e.childNodeID,
		RewardSum:   e.rewardSum,
		NumVisits:   e.numVisits,
		VirtualLoss: e.virtualLoss,
	}
}
