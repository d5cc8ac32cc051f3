// Package controller implements the server side of the distributed
// training controller (spec component C5): client liveness and fairness,
// self-play scheduling, model promotion, and the evaluation gate between a
// candidate model and the reigning baseline.
package controller

import (
	"sync"
	"time"

	"golang.org/x/exp/maps"
)

// ClientType distinguishes workers that only ever self-play from workers
// that alternate between evaluation matches and self-play (spec section
// 3).
type ClientType int

const (
	SelfplayOnly ClientType = iota
	EvalThenSelfplay
)

// ThreadState is the compact per-thread liveness ping a client attaches to
// every poll (spec section 3).
type ThreadState struct {
	ThreadID int
	Seq      uint64
	MoveIdx  int
	BlackVer int64
	WhiteVer int64
}

// ClientInfo tracks one worker process (spec section 3).
type ClientInfo struct {
	ID         string
	Type       ClientType
	Seq        uint64
	Active     bool
	LastUpdate time.Time
	Threads    map[int]ThreadState
	MaxDelay   time.Duration
}

// Dead reports whether now - LastUpdate exceeds MaxDelay.
func (c ClientInfo) Dead(now time.Time) bool {
	return now.Sub(c.LastUpdate) > c.MaxDelay
}

// Registry is the set of known clients, guarded by one mutex per spec
// section 5 ("one background thread processes... the network ingress
// thread" — here realized as one mutex rather than a dedicated goroutine,
// since Go callers can just call Registry methods directly from whichever
// goroutine handles the inbound message).
type Registry struct {
	mu      sync.Mutex
	clients map[string]*ClientInfo
}

// NewRegistry returns an empty client registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*ClientInfo)}
}

// Touch records a heartbeat/poll from id, creating the client if it is new
// or reviving it if it had gone DEAD (spec section 3: "revival is
// permitted").
func (r *Registry) Touch(id string, typ ClientType, maxDelay time.Duration, now time.Time) *ClientInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		c = &ClientInfo{ID: id, Type: typ, MaxDelay: maxDelay, Threads: make(map[int]ThreadState)}
		r.clients[id] = c
	}
	c.Active = true
	c.LastUpdate = now
	c.Seq++
	return c
}

// UpdateThread records one thread's liveness ping.
func (r *Registry) UpdateThread(id string, ts ThreadState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return
	}
	c.Threads[ts.ThreadID] = ts
}

// Sweep marks every client whose last update predates now-maxDelay as
// inactive, returning the ids that transitioned to DEAD this call.
func (r *Registry) Sweep(now time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var died []string
	for id, c := range r.clients {
		if c.Active && c.Dead(now) {
			c.Active = false
			died = append(died, id)
		}
	}
	return died
}

// IDs returns every known client id, active or not, in no particular
// order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Keys(r.clients)
}

// Get returns a copy of the client's current info, or ok=false if unknown.
func (r *Registry) Get(id string) (ClientInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return ClientInfo{}, false
	}
	return *c, true
}
