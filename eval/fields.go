package eval

import (
	"github.com/distmcts/core/batch"
	"github.com/distmcts/core/game"

	dual "github.com/distmcts/core/dualnet"
)

const (
	fieldFeatures = "features"
	fieldPolicy   = "pi"
	fieldValue    = "V"
)

// Register installs the reference evaluator's input/output FieldSpecs on
// b's Extractor, per spec section 4.3's wiring note ("eval.Register(b
// *batch.Batcher)"). Call once at process start, before the Batcher
// receives any requests.
func Register(b *batch.Batcher, conf dual.Config) {
	e := b.Extractor()

	e.RegisterInput(batch.FieldSpec{
		Name:  fieldFeatures,
		Type:  batch.Float32,
		Shape: []int{conf.Features, conf.Height, conf.Width},
		FromState: func(state game.State, row int, col *batch.Column) {
			ft := state.FeatureTensor()
			rowLen := col.RowLen()
			copy(col.F32[row*rowLen:(row+1)*rowLen], ft)
		},
	})

	e.RegisterOutput(batch.FieldSpec{
		Name:  fieldPolicy,
		Type:  batch.Float32,
		Shape: []int{conf.ActionSpace},
		ToReply: func(col *batch.Column, row int, reply *batch.Reply) {
			rowLen := col.RowLen()
			reply.Pi = append([]float32(nil), col.F32[row*rowLen:(row+1)*rowLen]...)
		},
	})

	e.RegisterOutput(batch.FieldSpec{
		Name:  fieldValue,
		Type:  batch.Float32,
		Shape: []int{1},
		ToReply: func(col *batch.Column, row int, reply *batch.Reply) {
			reply.V = col.F32[row]
		},
	})
}
