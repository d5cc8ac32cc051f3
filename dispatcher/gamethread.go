package dispatcher

import (
	"github.com/distmcts/core/mcts"
	"github.com/distmcts/core/record"
	"github.com/distmcts/core/tree"
)

// EngineFactory builds a fresh mcts.Engine pinned to requiredVersion (-1 in
// async mode, which accepts replies from any model).
type EngineFactory func(requiredVersion int64) *mcts.Engine

// SelfplayGameThread is the GameThread used for self-play requests: one
// engine, playing both sides, tied to black_ver (spec section 4.6).
type SelfplayGameThread struct {
	newEngine EngineFactory

	current record.Request
	engine  *mcts.Engine
}

// NewSelfplayGameThread builds a thread with no engine yet; the first
// Decide/Apply cycle installs one.
func NewSelfplayGameThread(newEngine EngineFactory) *SelfplayGameThread {
	return &SelfplayGameThread{newEngine: newEngine}
}

// Decide implements GameThread.
func (t *SelfplayGameThread) Decide(newReq record.Request) ThreadAction {
	if t.engine == nil {
		return UpdateModel
	}
	if t.current.SameIdentity(newReq) {
		return OnlyWait
	}
	if newReq.Vers.BlackVer != t.current.Vers.BlackVer {
		if newReq.Async {
			return UpdateModelAsync
		}
		return UpdateModel
	}
	return UpdateRequestOnly
}

// Apply implements GameThread.
func (t *SelfplayGameThread) Apply(action ThreadAction, newReq record.Request) {
	switch action {
	case UpdateModel, UpdateModelAsync:
		required := newReq.Vers.BlackVer
		if newReq.Async {
			required = -1
		}
		t.engine = t.newEngine(required)
	case OnlyWait, UpdateRequestOnly:
		// no engine change required
	}
	t.current = newReq
}

// Engine returns the thread's current engine, or nil before the first
// Apply.
func (t *SelfplayGameThread) Engine() *mcts.Engine { return t.engine }

// NewPersistentTreeEngine is a convenience EngineFactory building an engine
// over a fresh tree.SearchTree, matching spec section 4.6's "reinstantiate
// ... engines tied to black_ver/white_ver".
func NewPersistentTreeEngine(cfg mcts.Config, client mcts.BatchClient, actor mcts.Actor, seed int64) EngineFactory {
	return func(requiredVersion int64) *mcts.Engine {
		e := mcts.NewEngine(cfg, tree.New(), client, actor, seed)
		e.RequiredVersion = requiredVersion
		return e
	}
}
