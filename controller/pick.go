package controller

import (
	"sync"
	"time"
)

// SlotStatus is the result of Pick.Reg (spec section 4.5).
type SlotStatus int

const (
	SlotNew SlotStatus = iota
	SlotWaiting
	SlotSettled
	SlotAtCapacity
)

// slot is one reserved request within a Pick.
type slot struct {
	clientID   string
	assignedAt time.Time
	done       bool
}

// Pick distributes numRequest evaluation games across numEvalMachines,
// each machine reserving one slot at a time, and releases slots whose
// client has gone stuck so no single dead worker can stall evaluation
// (spec section 4.5's fairness primitive, scenario S5).
type Pick struct {
	mu sync.Mutex

	numRequest int
	maxDelay   time.Duration

	slots   []*slot // len <= numEvalMachines, one in-flight slot per machine
	nAssigned int
	nDone     int
}

// NewPick builds a Pick for numRequest total games, with at most
// numEvalMachines concurrently in flight, and maxDelay before an assigned
// slot is considered stuck.
func NewPick(numRequest, numEvalMachines int, maxDelay time.Duration) *Pick {
	return &Pick{
		numRequest: numRequest,
		maxDelay:   maxDelay,
		slots:      make([]*slot, 0, numEvalMachines),
	}
}

// Reg registers clientID for a slot at time now. See SlotStatus for the
// four outcomes spec section 4.5 names.
func (p *Pick) Reg(clientID string, now time.Time) SlotStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.slots {
		if s.clientID == clientID && !s.done {
			return SlotWaiting
		}
	}

	// Reclaim any stuck slot before considering capacity (spec's open
	// question on ordering: this implementation checks stuck-then-register,
	// so a freshly registering client can inherit a stuck slot in the same
	// call that would otherwise report AT_CAPACITY).
	for i, s := range p.slots {
		if !s.done && now.Sub(s.assignedAt) > p.maxDelay {
			p.slots[i] = &slot{clientID: clientID, assignedAt: now}
			return SlotNew
		}
	}

	if p.nAssigned >= p.numRequest {
		return SlotSettled
	}
	if len(p.slots) >= cap(p.slots) {
		return SlotAtCapacity
	}

	p.slots = append(p.slots, &slot{clientID: clientID, assignedAt: now})
	p.nAssigned++
	return SlotNew
}

// Complete marks clientID's slot as finished, freeing it for reuse.
func (p *Pick) Complete(clientID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.slots {
		if s.clientID == clientID && !s.done {
			s.done = true
			p.nDone++
			p.slots = append(p.slots[:i], p.slots[i+1:]...)
			return
		}
	}
}

// Sealed reports whether this Pick has accumulated enough completions to
// stop issuing new slots (spec section 4.5: n_done >= half_eval_num_games).
func (p *Pick) Sealed(target int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nDone >= target
}

// Done returns the number of completed games so far.
func (p *Pick) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nDone
}
