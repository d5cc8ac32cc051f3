package mcts

import (
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/distmcts/core/corerr"
	"github.com/distmcts/core/game"
	"github.com/distmcts/core/rpstats"
	"github.com/distmcts/core/tree"
)

// pathStep is one (node, action) pair traversed during a single rollout's
// descent; backup walks these in order to update edge statistics.
type pathStep struct {
	node   *tree.Node
	action game.Action
}

// Engine drives repeated MCTS rollouts over a tree.SearchTree, batching
// leaf evaluation through a BatchClient (spec component C2).
type Engine struct {
	cfg    Config
	tr     *tree.SearchTree
	client BatchClient
	actor  Actor
	rng    tree.Rand

	// RequiredVersion pins the model version replies must carry; -1
	// (async mode, spec section 4.6) accepts any version.
	RequiredVersion int64

	stopSearch int32 // atomic bool

	mu          sync.Mutex
	usedModels  map[int64]bool
	rootStateMu sync.Mutex
}

// seededRand adapts math/rand.Rand to tree.Rand.
type seededRand struct{ r *rand.Rand }

func (s seededRand) Float64() float64 { return s.r.Float64() }

// NewEngine constructs an Engine backed by tr (a fresh, empty, or reused
// SearchTree), client (the batching pipeline), and actor (reward scoring).
// seed makes root Dirichlet noise reproducible (spec section 8's
// determinism law for num_threads=1,virtual_loss=0).
func NewEngine(cfg Config, tr *tree.SearchTree, client BatchClient, actor Actor, seed int64) *Engine {
	if actor == nil {
		actor = DefaultActor{}
	}
	return &Engine{
		cfg:             cfg,
		tr:              tr,
		client:          client,
		actor:           actor,
		rng:             seededRand{rand.New(rand.NewSource(seed))},
		RequiredVersion: -1,
		usedModels:      make(map[int64]bool),
	}
}

// Clear resets the underlying tree, discarding all nodes.
func (e *Engine) Clear() {
	e.tr.Reset(nil)
}

// Stop sets stop_search; worker loops observe it at the next batch
// boundary (spec section 5's cancellation contract).
func (e *Engine) Stop() {
	atomic.StoreInt32(&e.stopSearch, 1)
}

// TreeAdvance plays action at the tree's root, keeping the subtree below it
// when PersistentTree is set, discarding the rest otherwise.
func (e *Engine) TreeAdvance(action game.Action) {
	if !e.cfg.PersistentTree {
		e.tr.Reset(nil)
		return
	}
	e.tr.Advance(action)
}

// UsedModelVersions returns the set of model versions that contributed an
// evaluation reply during this engine's lifetime (spec section 8, S6).
func (e *Engine) UsedModelVersions() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]int64, 0, len(e.usedModels))
	for v := range e.usedModels {
		out = append(out, v)
	}
	return out
}

// ensureRoot installs state at the tree's root. If a root already exists
// and its materialized state hashes equal to state's, the existing tree
// (and its accumulated statistics) is kept; otherwise the tree is reset,
// matching spec section 4.2's "validating hash equality if a root state
// already exists" rule.
func (e *Engine) ensureRoot(state game.State) (*tree.Node, error) {
	if state == nil {
		return nil, errors.WithStack(corerr.ErrInvalidState)
	}
	root := e.tr.GetRoot()
	if root != nil && root.StateStatus() == tree.StateSet {
		existing := root.State()
		if existing != nil && existing.Hash() == state.Hash() {
			return root, nil
		}
	}
	id := e.tr.Reset(state)
	return e.tr.Node(id), nil
}

// expandLeaf evaluates a single non-terminal, unvisited node and installs
// its edges. Run and RunPolicyOnly use it to prime the root.
func (e *Engine) expandLeaf(n *tree.Node, state game.State) error {
	if !n.RequestEvaluation() {
		n.WaitEvaluation()
		return nil
	}
	actions := state.LegalActions()
	replies := e.client.Submit([]game.State{state}, [][]game.Action{actions})
	if len(replies) != 1 || replies[0].Failed {
		return errors.WithStack(corerr.ErrEvaluatorFailure)
	}
	reply := replies[0]
	if err := e.checkVersion(reply.Ver); err != nil {
		return err
	}
	n.SetEvaluation(actions, tree.EvalResponse{Priors: reply.Priors, Value: reply.Value, QFlip: reply.QFlip})
	return nil
}

func (e *Engine) checkVersion(ver int64) error {
	e.mu.Lock()
	e.usedModels[ver] = true
	e.mu.Unlock()
	if e.RequiredVersion >= 0 && ver != e.RequiredVersion {
		return corerr.NewFatal(errors.WithStack(corerr.ErrModelVersionMismatch))
	}
	return nil
}

// Run installs state at the root, optionally applies Dirichlet noise, then
// runs num_threads*num_rollouts_per_thread rollouts before assembling an
// MCTSResult (spec section 4.2).
func (e *Engine) Run(state game.State) (MCTSResult, error) {
	root, err := e.ensureRoot(state)
	if err != nil {
		return MCTSResult{}, err
	}

	if root.StateStatus() != tree.StateSet {
		return MCTSResult{}, errors.WithStack(corerr.ErrInvalidState)
	}

	rootNoiseApplied := root.Visited()
	if !root.Visited() {
		if err := e.expandLeaf(root, state); err != nil {
			return MCTSResult{}, err
		}
	}
	if !rootNoiseApplied && e.cfg.RootEpsilon > 0 && root.HasEdges() {
		root.EnhanceExploration(e.cfg.RootEpsilon, e.cfg.RootAlpha, e.rng)
	}

	if state.Terminated() || !root.HasEdges() {
		return e.terminalResult(root, state), nil
	}

	if e.cfg.NumRolloutsPerThread <= 0 {
		return e.policyResult(root), nil
	}

	var eg errgroup.Group
	for i := 0; i < maxInt(e.cfg.NumThreads, 1); i++ {
		eg.Go(func() error {
			done := 0
			for done < e.cfg.NumRolloutsPerThread && atomic.LoadInt32(&e.stopSearch) == 0 {
				n := minInt(maxInt(e.cfg.NumRolloutsPerBatch, 1), e.cfg.NumRolloutsPerThread-done)
				if err := e.runBatch(root, state, n); err != nil {
					atomic.StoreInt32(&e.stopSearch, 1)
					return err
				}
				done += n
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil && corerr.IsFatal(err) {
		return MCTSResult{}, err
	}

	return e.assembleResult(root), nil
}

// RunPolicyOnly evaluates the root once and returns its priors as the
// policy, performing no rollouts (spec section 4.2).
func (e *Engine) RunPolicyOnly(state game.State) (MCTSResult, error) {
	root, err := e.ensureRoot(state)
	if err != nil {
		return MCTSResult{}, err
	}
	if !root.Visited() {
		if err := e.expandLeaf(root, state); err != nil {
			return MCTSResult{}, err
		}
	}
	return e.policyResult(root), nil
}

// singleRollout descends from root until it reaches an unvisited or
// terminal node, adding virtual loss along the way (spec section 4.2).
func (e *Engine) singleRollout(root *tree.Node, rootState game.State) ([]pathStep, *tree.Node, game.State, bool) {
	var path []pathStep
	cur := root
	curState := rootState.Clone()
	depth := 0

	for {
		if curState.Terminated() {
			return path, cur, curState, true
		}
		if !cur.Visited() {
			return path, cur, curState, true
		}
		action, ok := cur.FindMove(e.cfg.selectOptions(), depth)
		if !ok {
			return path, cur, curState, true
		}
		edge := cur.Edge(action)
		edge.AddVirtualLoss(e.cfg.VirtualLoss)
		path = append(path, pathStep{node: cur, action: action})

		if !curState.Forward(action) {
			return path, cur, curState, false
		}
		child := e.tr.Descend(cur, action)
		if child == nil {
			return path, cur, curState, false
		}
		cur = child
		depth++
	}
}

// runBatch performs n single rollouts, deduplicates the resulting leaves,
// evaluates the unique unvisited ones as one batch, then backs up every
// successful rollout's path (spec section 4.2's batched expansion/backup).
func (e *Engine) runBatch(root *tree.Node, rootState game.State, n int) error {
	type outcome struct {
		path      []pathStep
		leaf      *tree.Node
		leafState game.State
		ok        bool
	}
	outcomes := make([]outcome, n)
	for i := 0; i < n; i++ {
		path, leaf, leafState, ok := e.singleRollout(root, rootState)
		outcomes[i] = outcome{path, leaf, leafState, ok}
	}

	type pending struct {
		node    *tree.Node
		state   game.State
		actions []game.Action
	}
	seen := make(map[tree.NodeID]bool)
	var toEvaluate []pending
	var toWait []*tree.Node
	failed := make(map[tree.NodeID]bool)

	for _, o := range outcomes {
		if !o.ok || o.leafState.Terminated() || o.leaf.Visited() {
			continue
		}
		if seen[o.leaf.ID()] {
			continue
		}
		seen[o.leaf.ID()] = true
		if o.leaf.RequestEvaluation() {
			toEvaluate = append(toEvaluate, pending{node: o.leaf, state: o.leafState, actions: o.leafState.LegalActions()})
		} else {
			toWait = append(toWait, o.leaf)
		}
	}

	if len(toEvaluate) > 0 {
		states := make([]game.State, len(toEvaluate))
		actionLists := make([][]game.Action, len(toEvaluate))
		for i, p := range toEvaluate {
			states[i] = p.state
			actionLists[i] = p.actions
		}
		replies := e.client.Submit(states, actionLists)
		for i, p := range toEvaluate {
			if i >= len(replies) || replies[i].Failed {
				rpstats.Bump(rpstats.EvaluatorTimeout)
				failed[p.node.ID()] = true
				continue
			}
			reply := replies[i]
			if err := e.checkVersion(reply.Ver); err != nil {
				return err
			}
			p.node.SetEvaluation(p.actions, tree.EvalResponse{Priors: reply.Priors, Value: reply.Value, QFlip: reply.QFlip})
		}
	}
	for _, n := range toWait {
		n.WaitEvaluation()
	}

	for _, o := range outcomes {
		if !o.ok || failed[o.leaf.ID()] {
			continue
		}
		var value float32
		if o.leaf.Visited() {
			value = o.leaf.Value()
		}
		reward := e.actor.Reward(o.leafState, value)
		for _, step := range o.path {
			edge := step.node.Edge(step.action)
			if edge == nil {
				continue
			}
			edge.UpdateStats(reward, e.cfg.VirtualLoss)
			step.node.IncrementVisitCount()
		}
	}
	return nil
}

func (e *Engine) terminalResult(root *tree.Node, state game.State) MCTSResult {
	return MCTSResult{
		HasAction:   false,
		RootValue:   state.Evaluate(),
		MCTSPolicy:  map[game.Action]float32{},
		TotalVisits: 0,
	}
}

func (e *Engine) policyResult(root *tree.Node) MCTSResult {
	actions := root.Edges()
	policy := make(map[game.Action]float32, len(actions))
	edges := make([]EdgeResult, 0, len(actions))
	for _, a := range actions {
		edge := root.Edge(a)
		policy[a] = edge.Prior()
		edges = append(edges, EdgeResult{Action: a, Prior: edge.Prior()})
	}
	return MCTSResult{
		RootValue:  root.Value(),
		Edges:      edges,
		MCTSPolicy: policy,
	}
}

func (e *Engine) assembleResult(root *tree.Node) MCTSResult {
	actions := root.Edges()
	edges := make([]EdgeResult, 0, len(actions))
	policy := make(map[game.Action]float32, len(actions))
	var total uint32
	for _, a := range actions {
		edge := root.Edge(a)
		nv := edge.NumVisits()
		edges = append(edges, EdgeResult{Action: a, Prior: edge.Prior(), NumVisits: nv, RewardSum: edge.RewardSum()})
		total += nv
	}

	best, hasAction := pickAction(e.cfg.PickMethod, edges, e.rng)
	if total > 0 && e.cfg.PickMethod != PickStrongestPrior {
		for _, ed := range edges {
			policy[ed.Action] = float32(ed.NumVisits) / float32(total)
		}
	} else {
		for _, ed := range edges {
			policy[ed.Action] = ed.Prior
		}
	}

	return MCTSResult{
		BestAction:  best,
		HasAction:   hasAction,
		RootValue:   root.Value(),
		Edges:       edges,
		MCTSPolicy:  policy,
		TotalVisits: total,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
