package controller

import (
	"sync"
	"time"
)

// CandidateState is the per-candidate state machine of spec section 4.5:
// INVALID -> INCOMPLETE -> {BLACK_PASS, BLACK_NOTPASS}. The two terminal
// states are sealed: no further records are accepted.
type CandidateState int

const (
	CandidateInvalid CandidateState = iota
	CandidateIncomplete
	CandidateBlackPass
	CandidateBlackNotPass
)

func (s CandidateState) Terminal() bool {
	return s == CandidateBlackPass || s == CandidateBlackNotPass
}

// candidate tracks one model under evaluation against the baseline.
type candidate struct {
	ver   int64
	state CandidateState

	noSwap *Pick
	swap   *Pick

	wins  int
	games int
}

// EvalController maintains the reigning baseline and the set of candidates
// currently being evaluated against it (spec section 4.5).
type EvalController struct {
	mu sync.Mutex

	baseline int64
	evalThres float64

	numEvalMachines int
	maxDelay        time.Duration
	halfGames       int

	candidates map[int64]*candidate
}

// NewEvalController builds a controller with baseline as the initial best
// model. evalNumGames and evalThres are the spec section 6 option-table
// keys of the same name.
func NewEvalController(baseline int64, evalNumGames int, evalThres float64, numEvalMachines int, maxDelay time.Duration) *EvalController {
	return &EvalController{
		baseline:        baseline,
		evalThres:       evalThres,
		numEvalMachines: numEvalMachines,
		maxDelay:        maxDelay,
		halfGames:       evalNumGames / 2,
		candidates:      make(map[int64]*candidate),
	}
}

// Baseline returns the current best-performing baseline model version.
func (e *EvalController) Baseline() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baseline
}

// AddCandidate begins evaluating ver against the current baseline. If
// evalNumGames is 0, the candidate is promoted immediately (spec section 8,
// boundary behavior).
func (e *EvalController) AddCandidate(ver int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.candidates[ver]; ok {
		return
	}
	c := &candidate{ver: ver, state: CandidateIncomplete}
	if e.halfGames > 0 {
		c.noSwap = NewPick(e.halfGames, e.numEvalMachines, e.maxDelay)
		c.swap = NewPick(e.halfGames, e.numEvalMachines, e.maxDelay)
	}
	e.candidates[ver] = c
	if e.halfGames <= 0 {
		e.settle(c, true)
	}
}

// RegisterGame reserves an evaluation slot for clientID against candidate
// ver, on the swap or no-swap side.
func (e *EvalController) RegisterGame(ver int64, clientID string, swap bool, now time.Time) SlotStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.candidates[ver]
	if !ok || c.state.Terminal() {
		return SlotSettled
	}
	if swap {
		return c.swap.Reg(clientID, now)
	}
	return c.noSwap.Reg(clientID, now)
}

// ReportResult records one finished evaluation game's outcome: win=true
// means the candidate (playing black) won.
func (e *EvalController) ReportResult(ver int64, clientID string, swap bool, win bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.candidates[ver]
	if !ok || c.state.Terminal() {
		return
	}
	if swap {
		c.swap.Complete(clientID)
	} else {
		c.noSwap.Complete(clientID)
	}
	c.games++
	if win {
		c.wins++
	}

	if c.noSwap.Sealed(e.halfGames) && c.swap.Sealed(e.halfGames) {
		e.settle(c, float64(c.wins)/float64(maxInt(c.games, 1)) >= e.evalThres)
	}
}

// settle transitions c to a terminal state and, on pass, promotes it to
// baseline. Caller must hold e.mu.
func (e *EvalController) settle(c *candidate, pass bool) {
	if pass {
		c.state = CandidateBlackPass
		e.baseline = c.ver
	} else {
		c.state = CandidateBlackNotPass
	}
}

// State returns ver's current candidate state, or CandidateInvalid if
// unknown.
func (e *EvalController) State(ver int64) CandidateState {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.candidates[ver]
	if !ok {
		return CandidateInvalid
	}
	return c.state
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
