package mcts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distmcts/core/game"
	"github.com/distmcts/core/tree"
)

// fakeState is a tiny deterministic game.State: two actions, terminates
// after maxDepth plies, evaluates to a fixed outcome.
type fakeState struct {
	depth    int
	maxDepth int
	outcome  float32
}

func newFakeState(maxDepth int, outcome float32) *fakeState {
	return &fakeState{maxDepth: maxDepth, outcome: outcome}
}

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
	return []game.Action{{Index: 0}, {Index: 1}}
}

func (s *fakeState) FeatureTensor() []float32 { return []float32{float32(s.depth)} }

func (s *fakeState) Hash() uint64 { return uint64(s.depth) }

func (s *fakeState) Evaluate() float32 { return s.outcome }

func (s *fakeState) MovesSince(cursor int) []game.Action { return nil }

func (s *fakeState) MoveNumber() int { return s.depth }

func (s *fakeState) Clone() game.State {
	c := *s
	return &c
}

// fakeClient hands back a uniform prior over whatever actions it's asked
// about, and a fixed value/version.
type fakeClient struct {
	value   float32
	version int64
}

func (c *fakeClient) Submit(states []game.State, actions [][]game.Action) []EvalReply {
	out := make([]EvalReply, len(states))
	for i, acts := range actions {
		priors := make(map[game.Action]float32, len(acts))
		for _, a := range acts {
			priors[a] = 1.0 / float32(len(acts))
		}
		out[i] = EvalReply{Priors: priors, Value: c.value, Ver: c.version}
	}
	return out
}

func TestEngineRunProducesAction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumThreads = 2
	cfg.NumRolloutsPerThread = 16
	cfg.NumRolloutsPerBatch = 4

	e := NewEngine(cfg, tree.New(), &fakeClient{value: 0.1, version: 3}, DefaultActor{}, 42)
	result, err := e.Run(newFakeState(10, 1))
	require.NoError(t, err)
	assert.True(t, result.HasAction)
	assert.Equal(t, uint32(cfg.NumThreads*cfg.NumRolloutsPerThread), result.TotalVisits)
	assert.Contains(t, e.UsedModelVersions(), int64(3))
}

func TestEngineRunOnTerminalStateHasNoAction(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg, tree.New(), &fakeClient{value: 0, version: 1}, DefaultActor{}, 1)
	result, err := e.Run(newFakeState(0, 0.5))
	require.NoError(t, err)
	assert.False(t, result.HasAction)
	assert.Equal(t, float32(0.5), result.RootValue)
}

func TestEngineRunPolicyOnlySkipsRollouts(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg, tree.New(), &fakeClient{value: 0.2, version: 1}, DefaultActor{}, 1)
	result, err := e.RunPolicyOnly(newFakeState(10, 1))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), result.TotalVisits)
	assert.Len(t, result.MCTSPolicy, 2)
}

func TestEngineRejectsNilState(t *testing.T) {
	e := NewEngine(DefaultConfig(), tree.New(), &fakeClient{}, DefaultActor{}, 1)
	_, err := e.Run(nil)
	assert.Error(t, err)
}

func TestEngineRequiredVersionMismatchIsFatal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumThreads = 1
	cfg.NumRolloutsPerThread = 4
	cfg.NumRolloutsPerBatch = 4
	e := NewEngine(cfg, tree.New(), &fakeClient{value: 0.1, version: 5}, DefaultActor{}, 1)
	e.RequiredVersion = 99

	_, err := e.Run(newFakeState(10, 1))
	assert.Error(t, err)
}

func TestEngineTreeAdvanceDiscardsWhenNotPersistent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PersistentTree = false
	cfg.NumThreads = 1
	cfg.NumRolloutsPerThread = 4
	cfg.NumRolloutsPerBatch = 4
	tr := tree.New()
	e := NewEngine(cfg, tr, &fakeClient{value: 0.1, version: 1}, DefaultActor{}, 1)

	result, err := e.Run(newFakeState(10, 1))
	require.NoError(t, err)
	require.True(t, result.HasAction)

	e.TreeAdvance(result.BestAction)
	assert.Equal(t, 1, tr.Size(), "a non-persistent tree must reset to a single empty root")
}

func TestPickActionMostVisited(t *testing.T) {
	edges := []EdgeResult{
		{Action: game.Action{Index: 0}, NumVisits: 3},
		{Action: game.Action{Index: 1}, NumVisits: 9},
	}
	best, ok := pickAction(PickMostVisited, edges, seededRand{nil})
	require.True(t, ok)
	assert.Equal(t, game.Action{Index: 1}, best)
}

func TestPickActionStrongestPrior(t *testing.T) {
	edges := []EdgeResult{
		{Action: game.Action{Index: 0}, Prior: 0.9, NumVisits: 1},
		{Action: game.Action{Index: 1}, Prior: 0.1, NumVisits: 50},
	}
	best, ok := pickAction(PickStrongestPrior, edges, seededRand{nil})
	require.True(t, ok)
	assert.Equal(t, game.Action{Index: 0}, best)
}

func TestPickActionEmptyEdges(t *testing.T) {
	_, ok := pickAction(PickMostVisited, nil, seededRand{nil})
	assert.False(t, ok)
}

func TestDefaultActorRewardsTerminalByEvaluate(t *testing.T) {
	a := DefaultActor{}
	st := newFakeState(0, -1)
	assert.Equal(t, float32(-1), a.Reward(st, 0.8))
}

func TestDefaultActorRewardsNonTerminalByLeafValue(t *testing.T) {
	a := DefaultActor{}
	st := newFakeState(10, -1)
	assert.Equal(t, float32(0.8), a.Reward(st, 0.8))
}
