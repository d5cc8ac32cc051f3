package batch

import "github.com/distmcts/core/game"

// Status is the per-slot reply status of spec section 4.3/6.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusUnknown
)

// Reply is one sample's evaluation result, as scattered out of the output
// slab by the Extractor's registered output fields. Ver is set only when a
// registered output field writes it; eval.Register registers pi and V
// only, so replies from the reference evaluator carry Ver 0.
type Reply struct {
	Status Status
	Pi     []float32 // policy logits/probabilities, one per policy-head coordinate
	V      float32
	Ver    int64
}

// Priors maps pi's dense output back onto actions, looking up each
// action's flattened coordinate. width and height describe the policy
// head's coordinate space: Coord[0] ranges over width, Coord[1] over
// height, and Coord[2] selects a width*height plane, so the index into Pi
// is Coord[2]*width*height + Coord[1]*width + Coord[0]. Actions whose index
// falls outside Pi are left out of the map.
func (r *Reply) Priors(actions []game.Action, width, height int) map[game.Action]float32 {
	out := make(map[game.Action]float32, len(actions))
	for _, a := range actions {
		idx := a.Coord[2]*width*height + a.Coord[1]*width + a.Coord[0]
		if idx < 0 || idx >= len(r.Pi) {
			continue
		}
		out[a] = r.Pi[idx]
	}
	return out
}
