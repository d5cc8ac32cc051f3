package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distmcts/core/game"
	"github.com/distmcts/core/mcts"
)

// fakeState is a minimal game.State for exercising the Extractor/Batcher
// rendezvous without depending on a real rules engine.
type fakeState struct {
	player  game.Player
	feature float32
}

func (s *fakeState) NextPlayer() game.Player                 { return s.player }
func (s *fakeState) Terminated() bool                        { return false }
func (s *fakeState) Forward(a game.Action) bool               { return true }
func (s *fakeState) LegalActions() []game.Action              { return []game.Action{{Index: 0, Coord: [3]int{0, 0, 0}}} }
func (s *fakeState) FeatureTensor() []float32                 { return []float32{s.feature} }
func (s *fakeState) Hash() uint64                             { return 0 }
func (s *fakeState) Evaluate() float32                        { return 0 }
func (s *fakeState) MovesSince(cursor int) []game.Action      { return nil }
func (s *fakeState) MoveNumber() int                          { return 0 }
func (s *fakeState) Clone() game.State                        { c := *s; return &c }

const fieldFeature = "feature"
const fieldPolicy = "pi"
const fieldValue = "V"

func newTestExtractor() *Extractor {
	e := NewExtractor()
	e.RegisterInput(FieldSpec{
		Name:  fieldFeature,
		Shape: []int{1},
		FromState: func(state game.State, row int, col *Column) {
			col.F32[row] = state.FeatureTensor()[0]
		},
	})
	e.RegisterOutput(FieldSpec{
		Name:  fieldPolicy,
		Shape: []int{1},
		ToReply: func(col *Column, row int, reply *Reply) {
			reply.Pi = []float32{col.F32[row]}
		},
	})
	e.RegisterOutput(FieldSpec{
		Name:  fieldValue,
		Shape: []int{1},
		ToReply: func(col *Column, row int, reply *Reply) {
			reply.V = col.F32[row]
		},
	})
	return e
}

// echoEvaluator copies the feature column straight into the policy column
// and reports a fixed value, so tests can assert end-to-end wiring without
// a real network.
type echoEvaluator struct{ ver int64 }

func (e echoEvaluator) Evaluate(in, out *Slab) error {
	inCol := in.Column(fieldFeature)
	outCol := out.Column(fieldPolicy)
	vCol := out.Column(fieldValue)
	for row := 0; row < in.EffectiveBatchSize; row++ {
		outCol.F32[row] = inCol.F32[row]
		vCol.F32[row] = 0.5
	}
	return nil
}

type failingEvaluator struct{}

func (failingEvaluator) Evaluate(in, out *Slab) error {
	return assert.AnError
}

func TestBatcherSubmitRoundTrips(t *testing.T) {
	extractor := newTestExtractor()
	b := NewBatcher(extractor, echoEvaluator{}, 1, 4, 20*time.Millisecond, "test", 1, 1)
	defer b.Stop()

	states := []game.State{&fakeState{feature: 7}, &fakeState{feature: 9}}
	actions := [][]game.Action{states[0].LegalActions(), states[1].LegalActions()}

	replies := b.Submit(states, actions)
	require.Len(t, replies, 2)
	assert.False(t, replies[0].Failed)
	assert.Equal(t, float32(0.5), replies[0].Value)
	assert.Equal(t, float32(7), replies[0].Priors[states[0].LegalActions()[0]])
	assert.Equal(t, float32(9), replies[1].Priors[states[1].LegalActions()[0]])
}

func TestBatcherSubmitMarksFailedOnEvaluatorError(t *testing.T) {
	extractor := newTestExtractor()
	b := NewBatcher(extractor, failingEvaluator{}, 1, 4, 20*time.Millisecond, "test", 1, 1)
	defer b.Stop()

	states := []game.State{&fakeState{feature: 1}}
	replies := b.Submit(states, [][]game.Action{states[0].LegalActions()})
	require.Len(t, replies, 1)
	assert.True(t, replies[0].Failed)
}

func TestBatcherQFlipForNonBlackMover(t *testing.T) {
	extractor := newTestExtractor()
	b := NewBatcher(extractor, echoEvaluator{}, 1, 4, 20*time.Millisecond, "test", 1, 1)
	defer b.Stop()

	white := &fakeState{player: game.PlayerWhite, feature: 3}
	replies := b.Submit([]game.State{white}, [][]game.Action{white.LegalActions()})
	require.Len(t, replies, 1)
	assert.True(t, replies[0].QFlip)
}

func TestSendBatchesWaitChunks(t *testing.T) {
	extractor := newTestExtractor()
	b := NewBatcher(extractor, echoEvaluator{}, 1, 8, 20*time.Millisecond, "test", 1, 1)
	defer b.Stop()

	states := make([]game.State, 5)
	actions := make([][]game.Action, 5)
	for i := range states {
		states[i] = &fakeState{feature: float32(i)}
		actions[i] = states[i].LegalActions()
	}

	var totalSeen int
	b.SendBatchesWait(states, actions, 2, func(offset int, replies []mcts.EvalReply) {
		totalSeen += len(replies)
	})
	assert.Equal(t, 5, totalSeen)
}
