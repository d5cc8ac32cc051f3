// Package record defines the serializable game-record and work-request
// types that flow between the client dispatcher (C6) and the distributed
// controller (C5), plus the replay buffer the controller accumulates them
// into (spec component C4). The exact wire schema is out of scope per
// spec.md section 1; the fields below are the semantic superset any
// encoding must carry.
package record

import "time"

// ModelPair names the two model versions playing a game. white_ver == -1
// encodes self-play; black_ver < 0 encodes a WAIT request; both >= 0
// encodes an evaluation match (spec section 3). Deliberately holds only
// the two version numbers, not spec section 3's mcts_options: nothing in
// this repo ever populates per-pair MCTS options, and keeping ModelPair
// free of map fields is what lets Identity below stay comparable with ==.
type ModelPair struct {
	BlackVer int64 `json:"black_ver"`
	WhiteVer int64 `json:"white_ver"`
}

// IsWait reports whether this pair encodes a WAIT request.
func (m ModelPair) IsWait() bool { return m.BlackVer < 0 }

// IsSelfPlay reports whether this pair encodes a self-play game.
func (m ModelPair) IsSelfPlay() bool { return m.BlackVer >= 0 && m.WhiteVer == -1 }

// IsEval reports whether this pair encodes an evaluation match.
func (m ModelPair) IsEval() bool { return m.BlackVer >= 0 && m.WhiteVer >= 0 }

// Request is what the controller hands a client on each poll (spec section
// 3/4.5/4.6). Equality for restart purposes is defined by Identity, which
// spec section 4.4 pins to ModelPair + PlayerSwap + Async.
type Request struct {
	Vers               ModelPair `json:"vers"`
	ResignThres        float32   `json:"resign_thres"`
	NeverResignProb    float32   `json:"never_resign_prob"`
	PlayerSwap         bool      `json:"player_swap"`
	Async              bool      `json:"async"`
	NumGameThreadUsed  int       `json:"num_game_thread_used"`
}

// Identity is the restart-comparison key spec section 4.4 defines: two
// requests that share it never require a client-side engine restart.
type Identity struct {
	Vers       ModelPair
	PlayerSwap bool
	Async      bool
}

// Identity returns r's restart-comparison key.
func (r Request) Identity() Identity {
	return Identity{Vers: r.Vers, PlayerSwap: r.PlayerSwap, Async: r.Async}
}

// SameIdentity reports whether r and other require no client restart.
func (r Request) SameIdentity(other Request) bool {
	return r.Identity() == other.Identity()
}

// Result is the outcome half of a Record (spec section 3).
type Result struct {
	Reward             float32          `json:"reward"` // in {-1,0,+1}
	MoveString         string           `json:"move_string"`
	UsedModelVersions  []int64          `json:"used_model_versions"`
	PredictedValues    []float32        `json:"predicted_values"`
	Policies           []map[int]float32 `json:"policies"` // sparse, action index -> prob
	NumMoves           int              `json:"num_moves"`
	NeverResign        bool             `json:"never_resign"`
}

// Record is one completed game's full report (spec section 3).
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	ThreadID  int       `json:"thread_id"`
	Seq       uint64    `json:"seq"`
	Request   Request   `json:"request"`
	Result    Result    `json:"result"`
}

// TargetsCurrent reports whether r's black side targets currentVer: the
// same test SelfplayController.Feed applies inline for its
// version-mismatch check (spec section 4.5).
func (r Record) TargetsCurrent(currentVer int64) bool {
	return r.Request.Vers.BlackVer == currentVer
}
