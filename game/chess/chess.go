// Package chess adapts github.com/notnil/chess to the abstract game.State
// contract. It exists so the core's tests and cmd/ binaries have one
// concrete, playable two-player zero-sum game to drive end to end; the
// actual rules engine (legality, scoring, draws) is notnil/chess's, not the
// core's.
package chess

import (
	"encoding/binary"
	"fmt"

	"github.com/notnil/chess"

	"github.com/distmcts/core/game"
)

// Width, Height and Features fix the feature-tensor shape this adapter
// produces: a piece-value plane and a side-to-move plane over an 8x8 board.
const (
	Width    = 8
	Height   = 8
	Features = 2

	// NumPlanes buckets a from-square move delta (including promotions)
	// into a policy-head plane index, loosely in the spirit of AlphaZero's
	// 73-plane chess move encoding. It does not need to be exactly that
	// scheme: the core only requires that distinct legal actions map to a
	// stable, game-specific (x,y,z) coordinate.
	NumPlanes = 73
)

// ActionSpace is the size of the policy head output: Width*Height*NumPlanes.
const ActionSpace = Width * Height * NumPlanes

// State adapts a notnil/chess game to game.State.
type State struct {
	g *chess.Game
}

// New returns a fresh chess game at the starting position.
func New() *State {
	return &State{g: chess.NewGame(chess.UseNotation(chess.UCINotation{}))}
}

var _ game.State = (*State)(nil)

// NextPlayer implements game.State.
func (s *State) NextPlayer() game.Player {
	if s.g.Position().Turn() == chess.White {
		return game.PlayerWhite
	}
	return game.PlayerBlack
}

// Terminated implements game.State.
func (s *State) Terminated() bool {
	return s.g.Outcome() != chess.NoOutcome
}

// Evaluate implements game.State.
func (s *State) Evaluate() float32 {
	switch s.g.Outcome() {
	case chess.WhiteWon:
		return blackSign(game.PlayerWhite)
	case chess.BlackWon:
		return blackSign(game.PlayerBlack)
	default:
		return 0
	}
}

// blackSign returns the terminal value from black's point of view when
// winner won the game outright.
func blackSign(winner game.Player) float32 {
	if winner == game.PlayerBlack {
		return 1
	}
	return -1
}

// legalMoves returns the notnil/chess valid moves in a stable order.
func (s *State) legalMoves() []*chess.Move {
	return s.g.ValidMoves()
}

// LegalActions implements game.State.
func (s *State) LegalActions() []game.Action {
	moves := s.legalMoves()
	actions := make([]game.Action, len(moves))
	for i, m := range moves {
		actions[i] = game.Action{Index: i, Coord: coordForMove(m)}
	}
	return actions
}

// coordForMove derives a deterministic (x,y,z) policy-head coordinate from
// a chess move's origin square and its from->to delta (and any promotion).
func coordForMove(m *chess.Move) [3]int {
	from := int(m.S1())
	file := from % 8
	rank := from / 8
	plane := planeIndex(m)
	return [3]int{file, rank, plane}
}

func planeIndex(m *chess.Move) int {
	from, to := int(m.S1()), int(m.S2())
	dx := to%8 - from%8
	dy := to/8 - from/8
	base := (dx+7)*15 + (dy + 7)
	plane := base % (NumPlanes - 8) // leave the top 8 planes for promotions
	if promo := m.Promo(); promo != chess.NoPieceType {
		plane = (NumPlanes - 8) + int(promo)%8
	}
	if plane < 0 {
		plane += NumPlanes
	}
	return plane % NumPlanes
}

// Forward implements game.State.
func (s *State) Forward(a game.Action) bool {
	moves := s.legalMoves()
	if a.Index < 0 || a.Index >= len(moves) {
		return false
	}
	if err := s.g.Move(moves[a.Index]); err != nil {
		return false
	}
	return true
}

// FeatureTensor implements game.State.
func (s *State) FeatureTensor() []float32 {
	board := s.g.Position().Board()
	m := board.SquareMap()
	plane := make([]float32, Width*Height)
	for sq, p := range m {
		v := float32(0.001)
		if p != chess.NoPiece {
			v = float32(p.Type()) + 1
			if p.Color() == chess.Black {
				v = -v
			}
		}
		plane[int(sq)] = v
	}

	turn := make([]float32, Width*Height)
	var t float32
	if s.g.Position().Turn() == chess.White {
		t = 1
	}
	for i := range turn {
		turn[i] = t
	}

	out := make([]float32, 0, Features*Width*Height)
	out = append(out, plane...)
	out = append(out, turn...)
	return out
}

// Hash implements game.State.
func (s *State) Hash() uint64 {
	h := s.g.Position().Hash()
	return binary.LittleEndian.Uint64(h[:8])
}

// MoveNumber implements game.State.
func (s *State) MoveNumber() int {
	return len(s.g.Moves())
}

// MovesSince implements game.State.
func (s *State) MovesSince(cursor int) []game.Action {
	hist := s.g.Moves()
	if cursor < 0 || cursor > len(hist) {
		return nil
	}
	positions := s.g.Positions()
	out := make([]game.Action, 0, len(hist)-cursor)
	for i := cursor; i < len(hist); i++ {
		idx := -1
		for j, m := range positions[i].ValidMoves() {
			if m.S1() == hist[i].S1() && m.S2() == hist[i].S2() && m.Promo() == hist[i].Promo() {
				idx = j
				break
			}
		}
		out = append(out, game.Action{Index: idx, Coord: coordForMove(hist[i])})
	}
	return out
}

// Clone implements game.State.
func (s *State) Clone() game.State {
	return &State{g: s.g.Clone()}
}

// String renders the current board, useful for debugging and the Fatal
// state dump corerr.Fatal callers are expected to produce.
func (s *State) String() string {
	return fmt.Sprintf("%s\n%s to move, move %d", s.g.Position().Board().Draw(), s.NextPlayer(), s.MoveNumber())
}
