package mcts

import (
	"github.com/distmcts/core/game"
	"github.com/distmcts/core/tree"
)

// pickAction ranks root edges into a final best action per the configured
// PickMethod (spec section 4.2). Ties within most_visited/strongest_prior
// break by the edges slice's order, which mirrors the tree's first-seen
// edge order.
func pickAction(method PickMethod, edges []EdgeResult, rng tree.Rand) (game.Action, bool) {
	if len(edges) == 0 {
		return game.Action{}, false
	}

	switch method {
	case PickStrongestPrior:
		best := edges[0]
		for _, e := range edges[1:] {
			if e.Prior > best.Prior {
				best = e
			}
		}
		return best.Action, true

	case PickUniformRandom:
		idx := int(rng.Float64() * float64(len(edges)))
		if idx >= len(edges) {
			idx = len(edges) - 1
		}
		return edges[idx].Action, true

	default: // PickMostVisited
		best := edges[0]
		for _, e := range edges[1:] {
			if e.NumVisits > best.NumVisits {
				best = e
			}
		}
		return best.Action, true
	}
}
