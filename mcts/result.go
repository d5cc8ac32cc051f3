package mcts

import "github.com/distmcts/core/game"

// EdgeResult is one root edge's public statistics, as exposed in
// MCTSResult.Edges.
type EdgeResult struct {
	Action    game.Action
	Prior     float32
	NumVisits uint32
	RewardSum float32
}

// MCTSResult is the return value of Engine.Run (spec section 4.2).
type MCTSResult struct {
	BestAction  game.Action
	HasAction   bool
	RootValue   float32
	Edges       []EdgeResult
	MCTSPolicy  map[game.Action]float32
	TotalVisits uint32
}
