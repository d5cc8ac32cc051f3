package batch

import "github.com/distmcts/core/game"

// FieldSpec is one entry in an Extractor's schema registry (spec section
// 4.3): a named, typed, shaped slab field plus the from-entity/to-entity
// functions that move bytes between a game-specific type and the slab.
//
// Only one of FromState/ToReply is normally set on a given FieldSpec: input
// fields populate a row from a game.State (FromState), output fields read a
// row back into a Reply (ToReply).
type FieldSpec struct {
	Name  string
	Type  DType
	Shape []int

	// FromState writes row's worth of data from state into col.
	FromState func(state game.State, row int, col *Column)

	// ToReply reads row's worth of data from col into reply.
	ToReply func(col *Column, row int, reply *Reply)
}

// Extractor is the static, once-at-startup schema registry of spec section
// 4.3: it decouples the slab's tensor layout from game-specific types by
// naming fields rather than hardcoding offsets.
type Extractor struct {
	input  []FieldSpec
	output []FieldSpec
}

// NewExtractor returns an empty Extractor. Fields are added with
// RegisterInput/RegisterOutput before the owning Batcher starts.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// RegisterInput adds a field populated from game.State when building the
// evaluator's input slab.
func (e *Extractor) RegisterInput(spec FieldSpec) {
	e.input = append(e.input, spec)
}

// RegisterOutput adds a field read back into a Reply from the evaluator's
// output slab.
func (e *Extractor) RegisterOutput(spec FieldSpec) {
	e.output = append(e.output, spec)
}

func (e *Extractor) buildInput(states []game.State, label string, timeoutUs int) *Slab {
	slab := newSlab(e.input, len(states), label, timeoutUs)
	for _, spec := range e.input {
		col := slab.Column(spec.Name)
		for row, st := range states {
			spec.FromState(st, row, col)
		}
	}
	return slab
}

func (e *Extractor) scatterOutput(out *Slab, replies []*Reply) {
	for _, spec := range e.output {
		col := out.Column(spec.Name)
		if col == nil {
			continue
		}
		for row, r := range replies {
			spec.ToReply(col, row, r)
		}
	}
}

// outputFields exposes the registered output schema so the Batcher can size
// the reply slab before calling the Evaluator.
func (e *Extractor) outputFields() []FieldSpec { return e.output }
