package mcts

import "github.com/distmcts/core/game"

// EvalReply is one leaf's evaluation, as handed back by a BatchClient.
type EvalReply struct {
	Priors map[game.Action]float32
	Value  float32
	QFlip  bool
	Ver    int64
	Failed bool
}

// BatchClient is the narrow surface mcts needs from the batching pipeline
// (spec component C3). It is satisfied by *batch.Batcher, but mcts depends
// only on this interface so the two packages can be developed and tested
// independently (SPEC_FULL section 4's wiring note).
type BatchClient interface {
	// Submit evaluates one batch of leaf states, returning replies in the
	// same order as states. A reply's Failed flag corresponds to the
	// Batcher's FAILED slab status (spec section 4.3).
	Submit(states []game.State, actions [][]game.Action) []EvalReply
}
