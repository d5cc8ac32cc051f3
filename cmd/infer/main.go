// Command infer plays an interactive game of chess against the core's MCTS
// engine, backed by the reference gorgonia evaluator. It replaces the
// teacher's trained-model-loading infer binary: the NN trainer and its
// binary weight format are out of scope, so this engine always runs a
// freshly initialized (untrained) network, useful for exercising the
// search/batching pipeline end to end rather than for playing strength.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/distmcts/core/batch"
	dual "github.com/distmcts/core/dualnet"
	"github.com/distmcts/core/eval"
	"github.com/distmcts/core/game"
	"github.com/distmcts/core/game/chess"
	"github.com/distmcts/core/mcts"
	"github.com/distmcts/core/tree"
)

var (
	rolloutsFlag = flag.Int("rollouts", 200, "MCTS rollouts per move")
	threadsFlag  = flag.Int("threads", 2, "MCTS worker goroutines per move")
	seedFlag     = flag.Int64("seed", time.Now().UnixNano(), "RNG seed")
)

func main() {
	flag.Parse()

	conf := dual.DefaultConf(chess.Height, chess.Width, chess.ActionSpace)
	conf.Features = chess.Features
	conf.BatchSize = 32

	model, err := eval.New(conf, 1)
	if err != nil {
		log.Fatalf("infer: build model: %v", err)
	}
	defer model.Close()

	extractor := batch.NewExtractor()
	batcher := batch.NewBatcher(extractor, eval.NewEvaluator(model), 1, conf.BatchSize, 50*time.Millisecond, "infer", chess.Width, chess.Height)
	eval.Register(batcher, conf)
	defer batcher.Stop()

	cfg := mcts.DefaultConfig()
	cfg.NumRolloutsPerThread = *rolloutsFlag
	cfg.NumThreads = *threadsFlag

	engine := mcts.NewEngine(cfg, tree.New(), batcher, mcts.DefaultActor{}, *seedFlag)

	st := chess.New()
	reader := bufio.NewScanner(os.Stdin)

	for !st.Terminated() {
		var gs game.State = st
		if st.NextPlayer() == game.PlayerWhite {
			result, err := engine.Run(gs)
			if err != nil {
				log.Fatalf("infer: search: %v", err)
			}
			if !result.HasAction {
				fmt.Println("engine has no move, resigning")
				break
			}
			if !st.Forward(result.BestAction) {
				log.Fatalf("infer: engine chose illegal action %+v", result.BestAction)
			}
			engine.TreeAdvance(result.BestAction)
			fmt.Printf("engine plays action index %d (visits=%d)\n%s\n", result.BestAction.Index, result.TotalVisits, st)
			continue
		}

		fmt.Println(st)
		actions := st.LegalActions()
		for i, a := range actions {
			fmt.Printf("  [%d] coord=%v\n", i, a.Coord)
		}
		fmt.Print("your move index: ")
		if !reader.Scan() {
			break
		}
		idx, err := strconv.Atoi(reader.Text())
		if err != nil || idx < 0 || idx >= len(actions) {
			fmt.Println("invalid move index")
			continue
		}
		if !st.Forward(actions[idx]) {
			fmt.Println("illegal move, try again")
			continue
		}
		engine.TreeAdvance(actions[idx])
	}

	fmt.Printf("game over: %s\n", st)
}
