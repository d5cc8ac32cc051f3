package eval

import (
	"fmt"

	"github.com/distmcts/core/batch"
)

// Evaluator adapts a Model to the batch.Evaluator contract: pull the
// "features" input column, run the graph once for the whole slab, scatter
// policy/value back into the output columns.
type Evaluator struct {
	model *Model
}

// NewEvaluator wraps model.
func NewEvaluator(model *Model) *Evaluator {
	return &Evaluator{model: model}
}

// Evaluate implements batch.Evaluator.
func (e *Evaluator) Evaluate(in, out *batch.Slab) error {
	featureCol := in.Column(fieldFeatures)
	if featureCol == nil {
		return fmt.Errorf("eval: input slab missing %q column", fieldFeatures)
	}

	batchSize := in.EffectiveBatchSize
	if batchSize > e.model.conf.BatchSize {
		return fmt.Errorf("eval: slab batch %d exceeds model batch %d", batchSize, e.model.conf.BatchSize)
	}
	padded := clampBatch(featureCol.F32, batchSize, e.model.conf.BatchSize, e.model.conf.Features*e.model.conf.Height*e.model.conf.Width)

	policy, value, err := e.model.forward(padded, e.model.conf.BatchSize)
	if err != nil {
		return err
	}

	piCol := out.Column(fieldPolicy)
	vCol := out.Column(fieldValue)
	actionSpace := e.model.conf.ActionSpace

	for row := 0; row < batchSize; row++ {
		if piCol != nil {
			copy(piCol.F32[row*actionSpace:(row+1)*actionSpace], policy[row*actionSpace:(row+1)*actionSpace])
		}
		if vCol != nil {
			vCol.F32[row] = value[row]
		}
	}
	return nil
}
