package tree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distmcts/core/game"
)

// fakeState is a tiny, deterministic game.State stand-in for tree/mcts
// tests: three actions, terminates after depth moves.
type fakeState struct {
	depth    int
	maxDepth int
}

func newFakeState(maxDepth int) *fakeState { return &fakeState{maxDepth: maxDepth} }

func (s *fakeState) NextPlayer() game.Player {
	if s.depth%2 == 0 {
		return game.PlayerBlack
	}
	return game.PlayerWhite
}

func (s *fakeState) Terminated() bool { return s.depth >= s.maxDepth }

func (s *fakeState) Forward(a game.Action) bool {
	if s.Terminated() {
		return false
	}
	s.depth++
	return true
}

func (s *fakeState) LegalActions() []game.Action {
	if s.Terminated() {
		return nil
	}
	return []game.Action{{Index: 0, Coord: [3]int{0, 0, 0}}, {Index: 1, Coord: [3]int{0, 0, 1}}, {Index: 2, Coord: [3]int{0, 0, 2}}}
}

func (s *fakeState) FeatureTensor() []float32 { return []float32{float32(s.depth)} }

func (s *fakeState) Hash() uint64 { return uint64(s.depth) }

func (s *fakeState) Evaluate() float32 { return 0 }

func (s *fakeState) MovesSince(cursor int) []game.Action { return nil }

func (s *fakeState) MoveNumber() int { return s.depth }

func (s *fakeState) Clone() game.State {
	c := *s
	return &c
}

var actA = game.Action{Index: 0, Coord: [3]int{0, 0, 0}}
var actB = game.Action{Index: 1, Coord: [3]int{0, 0, 1}}

func TestAddNodeReusesFreelist(t *testing.T) {
	tr := New()
	id1 := tr.AddNode(0)
	tr.FreeNode(id1)
	id2 := tr.AddNode(0.5)
	assert.Equal(t, id1, id2, "freed ids should be reused before minting a new one")
	assert.Equal(t, float32(0.5), tr.Node(id2).UnsignedParentQ())
}

func TestAdvanceFreesSiblings(t *testing.T) {
	tr := New()
	root := tr.Node(tr.Reset(newFakeState(4)))
	root.SetEvaluation(root.State().LegalActions(), EvalResponse{
		Priors: map[game.Action]float32{actA: 0.5, actB: 0.5},
		Value:  0,
	})
	childA := tr.Descend(root, actA)
	childB := tr.Descend(root, actB)
	require.NotNil(t, childA)
	require.NotNil(t, childB)

	sizeBefore := tr.Size()
	assert.Equal(t, 3, sizeBefore) // root + 2 children

	newRoot := tr.Advance(actA)
	assert.Equal(t, childA.ID(), newRoot, "advancing into a descended edge keeps that subtree")
	assert.Equal(t, 1, tr.Size(), "the sibling subtree and the old root must be freed")
	assert.Nil(t, tr.Node(childB.ID()), "freed node ids must no longer resolve")
}

func TestAdvanceIntoUndescendedEdgeAllocatesFreshRoot(t *testing.T) {
	tr := New()
	root := tr.Node(tr.Reset(newFakeState(4)))
	root.SetEvaluation(root.State().LegalActions(), EvalResponse{
		Priors: map[game.Action]float32{actA: 1, actB: 0},
		Value:  0,
	})
	// Never call Descend: the edge has no child yet.
	newRootID := tr.Advance(actA)
	assert.NotEqual(t, root.ID(), newRootID)
	assert.Equal(t, 1, tr.Size())
}

func TestSetStateIfUnsetIsOnce(t *testing.T) {
	tr := New()
	n := tr.Node(tr.AddNode(0))
	calls := 0
	factory := func() (game.State, bool) {
		calls++
		return newFakeState(1), true
	}
	st1 := n.SetStateIfUnset(factory)
	st2 := n.SetStateIfUnset(factory)
	assert.Equal(t, StateSet, st1)
	assert.Equal(t, StateSet, st2)
	assert.Equal(t, 1, calls, "the factory must run at most once")
}

func TestSetStateIfUnsetInvalidFactorySticks(t *testing.T) {
	tr := New()
	n := tr.Node(tr.AddNode(0))
	st := n.SetStateIfUnset(func() (game.State, bool) { return nil, false })
	assert.Equal(t, StateInvalid, st)
	st2 := n.SetStateIfUnset(func() (game.State, bool) { return newFakeState(1), true })
	assert.Equal(t, StateInvalid, st2, "once INVALID a node never becomes SET")
}

func TestDescendConcurrentRaceSharesWinner(t *testing.T) {
	tr := New()
	root := tr.Node(tr.Reset(newFakeState(4)))
	root.SetEvaluation(root.State().LegalActions(), EvalResponse{
		Priors: map[game.Action]float32{actA: 1, actB: 0},
		Value:  0,
	})

	results := make(chan NodeID, 8)
	for i := 0; i < 8; i++ {
		go func() {
			results <- tr.Descend(root, actA).ID()
		}()
	}
	first := <-results
	for i := 1; i < 8; i++ {
		assert.Equal(t, first, <-results, "every racing caller must observe the same child id")
	}
}

func TestFindMovePrefersHigherPrior(t *testing.T) {
	tr := New()
	root := tr.Node(tr.Reset(newFakeState(4)))
	root.SetEvaluation(root.State().LegalActions(), EvalResponse{
		Priors: map[game.Action]float32{actA: 0.9, actB: 0.05, {Index: 2, Coord: [3]int{0, 0, 2}}: 0.05},
		Value:  0,
	})
	best, ok := root.FindMove(SelectOptions{CPuct: 1.5}, 0)
	require.True(t, ok)
	assert.Equal(t, actA, best, "with no visits yet the highest-prior edge should win")
}

func TestEnhanceExplorationPreservesSimplex(t *testing.T) {
	tr := New()
	root := tr.Node(tr.Reset(newFakeState(4)))
	root.SetEvaluation(root.State().LegalActions(), EvalResponse{
		Priors: map[game.Action]float32{actA: 0.5, actB: 0.5, {Index: 2, Coord: [3]int{0, 0, 2}}: 0},
		Value:  0,
	})
	rng := rand.New(rand.NewSource(1))
	root.EnhanceExploration(0.25, 0.3, rng)
	var sum float32
	for _, a := range root.Edges() {
		p := root.Edge(a).Prior()
		assert.GreaterOrEqual(t, p, float32(0))
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-4, "mixing noise into priors must preserve the simplex")
}

func TestRecursiveFreeWholeSubtree(t *testing.T) {
	tr := New()
	root := tr.Node(tr.Reset(newFakeState(4)))
	root.SetEvaluation(root.State().LegalActions(), EvalResponse{
		Priors: map[game.Action]float32{actA: 1, actB: 0},
		Value:  0,
	})
	childA := tr.Descend(root, actA)
	childA.SetEvaluation(nil, EvalResponse{Priors: map[game.Action]float32{}, Value: 0})

	tr.RecursiveFree(root.ID())
	assert.Equal(t, 0, tr.Size())
}
