package batch

import (
	"sync"
	"time"

	"github.com/distmcts/core/game"
	"github.com/distmcts/core/mcts"
	"github.com/distmcts/core/rpstats"
)

// Evaluator is the external collaborator spec section 6 calls the
// "Evaluator contract": given an input slab, fill in the output slab or
// return an error (treated as every row FAILED).
type Evaluator interface {
	Evaluate(in, out *Slab) error
}

// request is one game thread's pending send_wait call.
type request struct {
	state   game.State
	actions []game.Action
	reply   chan *Reply
}

// Batcher is the collector side of spec section 4.3: many producer
// goroutines (games) rendezvous with a single evaluator through fixed-size
// slabs, releasing the whole group together.
type Batcher struct {
	extractor *Extractor
	evaluator Evaluator

	minBatch, maxBatch int
	timeout            time.Duration
	label              string
	policyWidth        int
	policyHeight       int

	reqCh  chan *request
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewBatcher starts the collector goroutine and returns a ready Batcher.
// policyWidth/policyHeight describe the evaluator's policy-head coordinate
// space, used to flatten an Action's Coord into an index into Reply.Pi.
func NewBatcher(extractor *Extractor, evaluator Evaluator, minBatch, maxBatch int, timeout time.Duration, label string, policyWidth, policyHeight int) *Batcher {
	b := &Batcher{
		extractor:    extractor,
		evaluator:    evaluator,
		minBatch:     maxInt(minBatch, 1),
		maxBatch:     maxInt(maxBatch, 1),
		timeout:      timeout,
		label:        label,
		policyWidth:  policyWidth,
		policyHeight: policyHeight,
		reqCh:        make(chan *request, maxBatch*4),
		stopCh:       make(chan struct{}),
	}
	b.wg.Add(1)
	go b.collectorLoop()
	return b
}

// Extractor returns the Batcher's schema registry, so a reference
// evaluator package can register its input/output fields once at process
// start (spec section 4.3's wiring note).
func (b *Batcher) Extractor() *Extractor { return b.extractor }

// Stop halts the collector goroutine. A batch the collector is already
// gathering is still evaluated before it exits; requests still waiting in
// the queue are not, and their callers get a FAILED reply once their wait
// times out.
func (b *Batcher) Stop() {
	close(b.stopCh)
	b.wg.Wait()
}

func (b *Batcher) collectorLoop() {
	defer b.wg.Done()
	for {
		var first *request
		select {
		case first = <-b.reqCh:
		case <-b.stopCh:
			return
		}

		batch := []*request{first}
		timer := time.NewTimer(b.timeout)
	gather:
		for len(batch) < b.maxBatch {
			select {
			case r := <-b.reqCh:
				batch = append(batch, r)
			case <-timer.C:
				break gather
			case <-b.stopCh:
				timer.Stop()
				b.processBatch(batch)
				return
			}
		}
		timer.Stop()
		b.processBatch(batch)
	}
}

func (b *Batcher) processBatch(batch []*request) {
	states := make([]game.State, len(batch))
	for i, r := range batch {
		states[i] = r.state
	}
	in := b.extractor.buildInput(states, b.label, int(b.timeout/time.Microsecond))
	out := newSlab(b.extractor.outputFields(), len(batch), b.label, int(b.timeout/time.Microsecond))

	replies := make([]*Reply, len(batch))
	for i := range replies {
		replies[i] = &Reply{Status: StatusSuccess}
	}

	if err := b.evaluator.Evaluate(in, out); err != nil {
		for _, r := range replies {
			r.Status = StatusFailed
		}
		rpstats.Bump(rpstats.EvaluatorFailure)
	} else {
		b.extractor.scatterOutput(out, replies)
	}

	for i, r := range batch {
		r.reply <- replies[i]
	}
}

// sendWait implements spec section 4.3's send_wait: claim a slot, suspend
// until the collector releases the batch containing it, or time out.
func (b *Batcher) sendWait(state game.State, actions []game.Action) *Reply {
	req := &request{state: state, actions: actions, reply: make(chan *Reply, 1)}
	select {
	case b.reqCh <- req:
	case <-time.After(b.timeout):
		rpstats.Bump(rpstats.EvaluatorTimeout)
		return &Reply{Status: StatusFailed}
	}
	select {
	case r := <-req.reply:
		return r
	case <-time.After(b.timeout * 4):
		rpstats.Bump(rpstats.EvaluatorTimeout)
		return &Reply{Status: StatusFailed}
	}
}

// Submit implements mcts.BatchClient: evaluate a whole rollout batch of
// leaves concurrently, each leaf independently rendezvousing with the
// collector.
func (b *Batcher) Submit(states []game.State, actions [][]game.Action) []mcts.EvalReply {
	out := make([]mcts.EvalReply, len(states))
	var wg sync.WaitGroup
	for i := range states {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := b.sendWait(states[i], actions[i])
			out[i] = toEvalReply(r, states[i], actions[i], b.policyWidth, b.policyHeight)
		}(i)
	}
	wg.Wait()
	return out
}

// SendBatchesWait splits items into sub-batches of at most chunkSize,
// submitting each as its own batch and invoking cb with that sub-batch's
// replies as they arrive (spec section 4.3's interleaved-expansion use
// case).
func (b *Batcher) SendBatchesWait(states []game.State, actions [][]game.Action, chunkSize int, cb func(offset int, replies []mcts.EvalReply)) {
	if chunkSize <= 0 {
		chunkSize = len(states)
	}
	for off := 0; off < len(states); off += chunkSize {
		end := off + chunkSize
		if end > len(states) {
			end = len(states)
		}
		replies := b.Submit(states[off:end], actions[off:end])
		cb(off, replies)
	}
}

// toEvalReply converts the batcher's Reply into the value/priors convention
// mcts expects: q_flip is true whenever the state to move is not black,
// since values travel the slab in the black-relative convention spec
// section 3 defines for Evaluate.
func toEvalReply(r *Reply, state game.State, actions []game.Action, width, height int) mcts.EvalReply {
	return mcts.EvalReply{
		Priors: r.Priors(actions, width, height),
		Value:  r.V,
		QFlip:  state.NextPlayer() != game.PlayerBlack,
		Ver:    r.Ver,
		Failed: r.Status != StatusSuccess,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
