// Command gen-moves plays random games to enumerate the set of policy-head
// coordinates a game adapter actually produces, writing one "x,y,z" line
// per distinct coordinate. It is the chess-agnostic descendant of the
// teacher's move-table generator: rather than dumping game-specific move
// notation, it walks the abstract game.State/LegalActions contract, so the
// same binary works for any adapter wired in below.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/distmcts/core/game"
	"github.com/distmcts/core/game/chess"
)

var (
	numGames = flag.Int("num_game", 200, "number of random games to play")
	outPath  = flag.String("path", "chess_moves.txt", "path to write discovered move coordinates to")
	seed     = flag.Int64("seed", 1, "random seed")
)

func main() {
	flag.Parse()

	f, err := os.OpenFile(*outPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("gen-moves: open %s: %v", *outPath, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	rng := rand.New(rand.NewSource(*seed))
	seen := make(map[[3]int]struct{})

	for i := 0; i < *numGames; i++ {
		st := game.State(chess.New())
		for !st.Terminated() {
			actions := st.LegalActions()
			if len(actions) == 0 {
				break
			}
			for _, a := range actions {
				if _, ok := seen[a.Coord]; !ok {
					seen[a.Coord] = struct{}{}
					fmt.Fprintf(w, "%d,%d,%d\n", a.Coord[0], a.Coord[1], a.Coord[2])
				}
			}
			pick := actions[rng.Intn(len(actions))]
			if !st.Forward(pick) {
				break
			}
		}
	}

	log.Printf("gen-moves: wrote %d distinct coordinates to %s", len(seen), *outPath)
}
