// Package dispatcher implements the worker-side client dispatcher (spec
// component C6): it holds the current work Request, detects when a new
// Request from the server requires restarting game engines, and routes the
// restart protocol to each game thread.
package dispatcher

import (
	"sync"

	"github.com/distmcts/core/record"
)

// ThreadAction is a game thread's response to a broadcast Request change
// (spec section 4.6).
type ThreadAction int

const (
	OnlyWait ThreadAction = iota
	UpdateRequestOnly
	UpdateModel
	UpdateModelAsync
)

// GameThread is the capability dispatcher needs from each managed game
// goroutine: decide how it reacts to a new request, then confirm once it
// has applied that reaction.
type GameThread interface {
	// Decide inspects newReq against whatever the thread is currently
	// running and returns the action it intends to take.
	Decide(newReq record.Request) ThreadAction

	// Apply performs the restart (or no-op) implied by action and newReq,
	// then returns once the thread is ready to resume.
	Apply(action ThreadAction, newReq record.Request)
}

// GameStartNotifier is notified whenever any thread required a model swap,
// carrying the new ModelPair upward (spec section 4.6).
type GameStartNotifier interface {
	GameStart(pair record.ModelPair)
}

// Dispatcher holds the current_request and broadcasts changes to its
// managed game threads (spec section 4.6).
type Dispatcher struct {
	mu      sync.Mutex
	current record.Request
	hasReq  bool

	threads  []GameThread
	notifier GameStartNotifier
}

// New builds a Dispatcher with no current request and no managed threads.
func New(notifier GameStartNotifier) *Dispatcher {
	return &Dispatcher{notifier: notifier}
}

// Register adds a game thread to the dispatcher's broadcast set.
func (d *Dispatcher) Register(t GameThread) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threads = append(d.threads, t)
}

// Poll applies a new Request received from the server. If it is identical
// (by record.Request.SameIdentity) to the current one, this is a no-op;
// otherwise every managed thread is asked to Decide and then Apply, and a
// GameStart notification fires if any thread required a model swap (spec
// section 4.6).
func (d *Dispatcher) Poll(newReq record.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hasReq && d.current.SameIdentity(newReq) {
		return
	}

	sawModelUpdate := false
	for _, t := range d.threads {
		action := t.Decide(newReq)
		if action == UpdateModel || action == UpdateModelAsync {
			sawModelUpdate = true
		}
		t.Apply(action, newReq)
	}

	d.current = newReq
	d.hasReq = true

	if sawModelUpdate && d.notifier != nil {
		d.notifier.GameStart(newReq.Vers)
	}
}

// Current returns the dispatcher's current request, and whether one has
// ever been set.
func (d *Dispatcher) Current() (record.Request, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current, d.hasReq
}
