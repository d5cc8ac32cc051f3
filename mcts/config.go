// Package mcts implements the parallel MCTS engine (spec component C2): a
// batched, virtual-loss-based tree search that amortizes neural-network
// evaluation across concurrent rollout goroutines. It drives a
// tree.SearchTree (C1) and talks to the batching pipeline (C3) through the
// BatchClient interface, never importing package batch directly.
package mcts

import "github.com/distmcts/core/tree"

// PickMethod selects how Engine.Run ranks the root's edges into a final
// action and an mcts_policy distribution.
type PickMethod int

const (
	PickMostVisited PickMethod = iota
	PickStrongestPrior
	PickUniformRandom
)

// Config holds the CtrlOptions/TSOptions of spec section 4.2.
type Config struct {
	NumThreads           int
	NumRolloutsPerThread int
	NumRolloutsPerBatch  int
	VirtualLoss          float32
	CPuct                float32
	RootEpsilon          float32
	RootAlpha            float32
	PersistentTree       bool
	PickMethod           PickMethod
	UnexploredQZero      bool
	RootUnexploredQZero  bool
}

// DefaultConfig mirrors the defaults documented in spec section 6's option
// table for the fields that table gives numeric defaults for.
func DefaultConfig() Config {
	return Config{
		NumThreads:           4,
		NumRolloutsPerThread: 800,
		NumRolloutsPerBatch:  8,
		VirtualLoss:          1,
		CPuct:                1.5,
		RootEpsilon:          0.25,
		RootAlpha:            0.03,
		PersistentTree:       true,
		PickMethod:           PickMostVisited,
		UnexploredQZero:      false,
		RootUnexploredQZero:  false,
	}
}

func (c Config) selectOptions() tree.SelectOptions {
	return tree.SelectOptions{
		CPuct:               c.CPuct,
		UnexploredQZero:     c.UnexploredQZero,
		RootUnexploredQZero: c.RootUnexploredQZero,
	}
}
