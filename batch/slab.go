// Package batch implements the game<->evaluator rendezvous pipeline (spec
// component C3): a Batcher aggregates per-game feature tensors into
// fixed-size slabs, dispatches them to an external Evaluator, and scatters
// replies back to the waiting callers. The core is a single Go process, so
// "shared memory" slabs are in-process structs rather than an mmap, but the
// slab shape and the Extractor indirection are preserved exactly as spec
// section 3 describes.
package batch

// DType names the scalar type a Slab column holds.
type DType int

const (
	Float32 DType = iota
	Int32
	Int64
)

// Column is one named field of a Slab: a flat buffer of Batch*elemsPerRow
// scalars, typed by DType. Only one of the three slices is populated,
// selected by Type.
type Column struct {
	Name  string
	Type  DType
	Shape []int // per-row shape, e.g. [C,H,W] for a feature tensor

	F32 []float32
	I32 []int32
	I64 []int64
}

func newColumn(spec FieldSpec, batch int) *Column {
	rowLen := 1
	for _, d := range spec.Shape {
		rowLen *= d
	}
	c := &Column{Name: spec.Name, Type: spec.Type, Shape: spec.Shape}
	switch spec.Type {
	case Int32:
		c.I32 = make([]int32, batch*rowLen)
	case Int64:
		c.I64 = make([]int64, batch*rowLen)
	default:
		c.F32 = make([]float32, batch*rowLen)
	}
	return c
}

// RowLen returns the number of scalars per row for this column.
func (c *Column) RowLen() int {
	n := 1
	for _, d := range c.Shape {
		n *= d
	}
	if n == 0 {
		return 1
	}
	return n
}

// Slab is the SharedMemSlab of spec section 3: a header plus a set of named,
// typed columns, each holding one row per sample in the batch.
type Slab struct {
	EffectiveBatchSize int
	TimeoutUs          int
	Label              string

	columns map[string]*Column
	order   []string
}

func newSlab(fields []FieldSpec, batch int, label string, timeoutUs int) *Slab {
	s := &Slab{
		EffectiveBatchSize: batch,
		TimeoutUs:          timeoutUs,
		Label:              label,
		columns:            make(map[string]*Column, len(fields)),
	}
	for _, f := range fields {
		s.columns[f.Name] = newColumn(f, batch)
		s.order = append(s.order, f.Name)
	}
	return s
}

// Column returns the named column, or nil if it was never registered.
func (s *Slab) Column(name string) *Column {
	return s.columns[name]
}

// Fields returns the registered field names in registration order.
func (s *Slab) Fields() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
