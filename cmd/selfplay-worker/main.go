// Command selfplay-worker runs the client-side dispatcher (spec component
// C6) plus one self-play game thread against a selfplay-server: it polls
// for work, plays games with the core's MCTS engine over a locally-run
// reference evaluator, and reports finished games back.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/distmcts/core/batch"
	"github.com/distmcts/core/config"
	dual "github.com/distmcts/core/dualnet"
	"github.com/distmcts/core/dispatcher"
	"github.com/distmcts/core/eval"
	"github.com/distmcts/core/game"
	"github.com/distmcts/core/game/chess"
	"github.com/distmcts/core/mcts"
	"github.com/distmcts/core/netproto"
	"github.com/distmcts/core/record"
)

var (
	serverFlag = flag.String("server", "ws://localhost:8080/ws", "selfplay-server websocket URL")
	confFlag   = flag.String("config", "", "path to a YAML/JSON options file (optional)")
	idFlag     = flag.String("id", "", "client identity (default: random uuid)")
)

// notifier logs model swaps; a production worker might use this to
// refresh a shared evaluator's weights.
type notifier struct{}

func (notifier) GameStart(pair record.ModelPair) {
	glog.Infof("selfplay-worker: starting games for %+v", pair)
}

func main() {
	flag.Parse()

	opts, err := config.Load(*confFlag)
	if err != nil {
		glog.Fatalf("selfplay-worker: load config: %v", err)
	}

	identity := *idFlag
	if identity == "" {
		identity = uuid.NewString()
	}

	conf := dual.DefaultConf(chess.Height, chess.Width, chess.ActionSpace)
	conf.Features = chess.Features
	conf.BatchSize = 32

	model, err := eval.New(conf, 1)
	if err != nil {
		glog.Fatalf("selfplay-worker: build model: %v", err)
	}
	defer model.Close()

	extractor := batch.NewExtractor()
	batcher := batch.NewBatcher(extractor, eval.NewEvaluator(model), 1, conf.BatchSize, 50*time.Millisecond, identity, chess.Width, chess.Height)
	eval.Register(batcher, conf)
	defer batcher.Stop()

	mctsCfg := mcts.DefaultConfig()
	if opts.NumThreads > 0 {
		mctsCfg.NumThreads = opts.NumThreads
	}
	if opts.NumRolloutsPerThread > 0 {
		mctsCfg.NumRolloutsPerThread = opts.NumRolloutsPerThread
	}
	if opts.CPuct > 0 {
		mctsCfg.CPuct = opts.CPuct
	}

	factory := dispatcher.NewPersistentTreeEngine(mctsCfg, batcher, mcts.DefaultActor{}, time.Now().UnixNano())
	thread := dispatcher.NewSelfplayGameThread(factory)
	disp := dispatcher.New(notifier{})
	disp.Register(thread)

	conn, err := netproto.Dial(*serverFlag, identity)
	if err != nil {
		glog.Fatalf("selfplay-worker: dial %s: %v", *serverFlag, err)
	}
	defer conn.Close()

	glog.Infof("selfplay-worker: connected to %s as %s", *serverFlag, identity)

	for {
		env, err := netproto.Encode(netproto.TypeHeartbeat, 0, identity, struct{}{})
		if err != nil {
			glog.Fatalf("selfplay-worker: encode heartbeat: %v", err)
		}
		if err := conn.Send(env); err != nil {
			glog.Fatalf("selfplay-worker: send heartbeat: %v", err)
		}

		reply, err := conn.Recv()
		if err != nil {
			glog.Fatalf("selfplay-worker: recv: %v", err)
		}
		if reply.Type != netproto.TypeRequest {
			continue
		}
		var payload netproto.RequestPayload
		if err := json.Unmarshal(reply.Payload, &payload); err != nil {
			glog.Errorf("selfplay-worker: malformed request payload: %v", err)
			continue
		}
		req := record.Request{
			Vers:              record.ModelPair{BlackVer: payload.BlackVer, WhiteVer: payload.WhiteVer},
			ResignThres:       payload.ResignThres,
			NeverResignProb:   payload.NeverResignProb,
			PlayerSwap:        payload.PlayerSwap,
			Async:             payload.Async,
			NumGameThreadUsed: payload.NumGameThreadUsed,
		}
		disp.Poll(req)

		if req.Vers.IsWait() {
			time.Sleep(time.Second)
			continue
		}

		rec := playOneGame(thread.Engine(), req, identity)
		raw, err := json.Marshal(rec)
		if err != nil {
			glog.Errorf("selfplay-worker: marshal record: %v", err)
			continue
		}
		recordsPayload := netproto.RecordsPayload{Records: []json.RawMessage{raw}}
		env, err = netproto.Encode(netproto.TypeRecords, 0, identity, recordsPayload)
		if err != nil {
			glog.Errorf("selfplay-worker: encode records: %v", err)
			continue
		}
		if err := conn.Send(env); err != nil {
			glog.Fatalf("selfplay-worker: send records: %v", err)
		}
	}
}

// playOneGame runs one self-play game to completion (or resignation) and
// assembles the record.Record the server expects (spec section 3).
func playOneGame(engine *mcts.Engine, req record.Request, identity string) record.Record {
	st := chess.New()
	var moveNames []string
	var predicted []float32
	var policies []map[int]float32
	resigned := false

	for !st.Terminated() {
		var gs game.State = st
		result, err := engine.Run(gs)
		if err != nil {
			glog.Errorf("selfplay-worker: search error: %v", err)
			break
		}
		if !result.HasAction {
			break
		}
		predicted = append(predicted, result.RootValue)

		sparse := make(map[int]float32, len(result.Edges))
		for _, e := range result.Edges {
			sparse[e.Action.Index] = result.MCTSPolicy[e.Action]
		}
		policies = append(policies, sparse)

		if req.ResignThres < 0 && result.RootValue < req.ResignThres {
			resigned = true
			break
		}

		if !st.Forward(result.BestAction) {
			break
		}
		engine.TreeAdvance(result.BestAction)
		moveNames = append(moveNames, fmt.Sprintf("%d", result.BestAction.Index))
	}

	reward := st.Evaluate()
	if resigned {
		reward = -st.Evaluate()
	}

	return record.Record{
		Timestamp: time.Now(),
		ThreadID:  0,
		Request:   req,
		Result: record.Result{
			Reward:            reward,
			MoveString:        strings.Join(moveNames, " "),
			UsedModelVersions: engine.UsedModelVersions(),
			PredictedValues:   predicted,
			Policies:          policies,
			NumMoves:          st.MoveNumber(),
			NeverResign:       req.NeverResignProb <= 0,
		},
	}
}
