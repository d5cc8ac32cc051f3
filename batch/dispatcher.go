package batch

// Dispatcher is the Collector's inverse (spec section 4.3): used when this
// process is the evaluator and the feature slabs arrive from a remote game
// process instead of being built locally by an Extractor. It applies the
// same Evaluator used by Batcher, but skips the local build/scatter step
// since the caller already holds typed slabs serialized off the wire.
type Dispatcher struct {
	evaluator Evaluator
}

// NewDispatcher wraps evaluator for remote-slab serving.
func NewDispatcher(evaluator Evaluator) *Dispatcher {
	return &Dispatcher{evaluator: evaluator}
}

// Handle evaluates one already-built input slab and returns the filled
// output slab, sized per outputFields.
func (d *Dispatcher) Handle(in *Slab, outputFields []FieldSpec) (*Slab, error) {
	out := newSlab(outputFields, in.EffectiveBatchSize, in.Label, in.TimeoutUs)
	if err := d.evaluator.Evaluate(in, out); err != nil {
		return nil, err
	}
	return out, nil
}
