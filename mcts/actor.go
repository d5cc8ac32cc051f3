package mcts

import "github.com/distmcts/core/game"

// Actor is the capability set spec section 9 calls for in place of the
// original AI/Actor/Game inheritance chain: evaluate a single state,
// evaluate a batch, score a reward from a leaf, and apply a move. mcts only
// needs the Reward half directly; Evaluate/EvaluateBatch are realized by
// BatchClient instead, and Forward lives on game.State itself.
type Actor interface {
	// Reward turns a leaf's terminal-or-estimated value into the signed
	// backup reward for the node the rollout is currently unwinding
	// through.
	Reward(leaf game.State, leafValue float32) float32
}

// DefaultActor implements the reward convention spec section 4.2 assumes:
// terminal leaves contribute their true outcome (Evaluate, from black's
// point of view); non-terminal leaves contribute the evaluator's value
// estimate as-is. Both are already in the global (black-relative) sign
// convention; FindMove's q_flip handles per-node perspective.
type DefaultActor struct{}

// Reward implements Actor.
func (DefaultActor) Reward(leaf game.State, leafValue float32) float32 {
	if leaf != nil && leaf.Terminated() {
		return leaf.Evaluate()
	}
	return leafValue
}
