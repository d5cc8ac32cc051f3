// Package eval implements a reference Evaluator (spec section 6's external
// evaluator contract) backed by gorgonia.org/gorgonia and
// gorgonia.org/tensor. It stands in for the out-of-scope "neural-network
// trainer and binary weight format": a small fixed-topology network so the
// batching pipeline (C3) is exercisable end to end, not a competitive
// playing engine.
package eval

import (
	"fmt"

	"github.com/chewxy/math32"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	dual "github.com/distmcts/core/dualnet"
)

// Model is a small two-layer network: a shared trunk over the flattened
// feature tensor, a policy head producing ActionSpace logits, and a value
// head producing a single tanh-bounded scalar.
type Model struct {
	conf dual.Config
	ver  int64

	g *gorgonia.ExprGraph

	input *gorgonia.Node // [batch, Features*Height*Width]

	w1, b1 *gorgonia.Node // trunk
	wp, bp *gorgonia.Node // policy head
	wv, bv *gorgonia.Node // value head

	policy *gorgonia.Node
	value  *gorgonia.Node

	vm gorgonia.VM
}

// New builds a Model sized by conf, with weights initialized from a
// Gaussian fan-in scheme (gorgonia.GlorotN), and tags it with modelVersion,
// which Version reports. Evaluator does not write the version into the
// output slab and Register declares no version field, so replies produced
// through this package carry batch.Reply.Ver 0.
func New(conf dual.Config, modelVersion int64) (*Model, error) {
	if !conf.IsValid() {
		return nil, fmt.Errorf("eval: invalid dualnet config: %+v", conf)
	}

	g := gorgonia.NewGraph()
	inDim := conf.Features * conf.Height * conf.Width

	input := gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithName("input"), gorgonia.WithShape(conf.BatchSize, inDim))

	w1 := gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithName("w1"), gorgonia.WithShape(inDim, conf.FC), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	b1 := gorgonia.NewVector(g, tensor.Float32, gorgonia.WithName("b1"), gorgonia.WithShape(conf.FC), gorgonia.WithInit(gorgonia.Zeroes()))

	wp := gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithName("wp"), gorgonia.WithShape(conf.FC, conf.ActionSpace), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	bp := gorgonia.NewVector(g, tensor.Float32, gorgonia.WithName("bp"), gorgonia.WithShape(conf.ActionSpace), gorgonia.WithInit(gorgonia.Zeroes()))

	wv := gorgonia.NewMatrix(g, tensor.Float32, gorgonia.WithName("wv"), gorgonia.WithShape(conf.FC, 1), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	bv := gorgonia.NewVector(g, tensor.Float32, gorgonia.WithName("bv"), gorgonia.WithShape(1), gorgonia.WithInit(gorgonia.Zeroes()))

	trunk, err := gorgonia.Mul(input, w1)
	if err != nil {
		return nil, err
	}
	trunk, err = gorgonia.BroadcastAdd(trunk, b1, nil, []byte{0})
	if err != nil {
		return nil, err
	}
	trunk, err = gorgonia.Rectify(trunk)
	if err != nil {
		return nil, err
	}

	policyLogits, err := gorgonia.Mul(trunk, wp)
	if err != nil {
		return nil, err
	}
	policyLogits, err = gorgonia.BroadcastAdd(policyLogits, bp, nil, []byte{0})
	if err != nil {
		return nil, err
	}
	policy, err := gorgonia.SoftMax(policyLogits)
	if err != nil {
		return nil, err
	}

	valueLogit, err := gorgonia.Mul(trunk, wv)
	if err != nil {
		return nil, err
	}
	valueLogit, err = gorgonia.BroadcastAdd(valueLogit, bv, nil, []byte{0})
	if err != nil {
		return nil, err
	}
	value, err := gorgonia.Tanh(valueLogit)
	if err != nil {
		return nil, err
	}

	m := &Model{
		conf: conf, ver: modelVersion,
		g: g, input: input,
		w1: w1, b1: b1, wp: wp, bp: bp, wv: wv, bv: bv,
		policy: policy, value: value,
	}
	m.vm = gorgonia.NewTapeMachine(g)
	return m, nil
}

// Close releases the VM's resources.
func (m *Model) Close() error {
	return m.vm.Close()
}

// Version returns the model version this instance stamps into replies.
func (m *Model) Version() int64 { return m.ver }

// forward runs one batch of features ([]float32, len == batch*inDim)
// through the graph, returning policy (batch x ActionSpace, row-major) and
// value (batch).
func (m *Model) forward(features []float32, batch int) (policy []float32, value []float32, err error) {
	inDim := m.conf.Features * m.conf.Height * m.conf.Width
	want := batch * inDim
	if len(features) != want {
		return nil, nil, fmt.Errorf("eval: expected %d feature values, got %d", want, len(features))
	}

	t := tensor.New(tensor.WithBacking(features), tensor.WithShape(batch, inDim))
	if err := gorgonia.Let(m.input, t); err != nil {
		return nil, nil, err
	}

	m.vm.Reset()
	if err := m.vm.RunAll(); err != nil {
		return nil, nil, err
	}

	policyVal := m.policy.Value().Data().([]float32)
	valueVal := m.value.Value().Data().([]float32)

	policy = make([]float32, len(policyVal))
	copy(policy, policyVal)
	value = make([]float32, len(valueVal))
	copy(value, valueVal)
	return policy, value, nil
}

// clampBatch pads or truncates a feature batch to exactly m.conf.BatchSize
// rows, since the graph is compiled for a fixed batch dimension; padded
// rows' outputs are discarded by callers.
func clampBatch(features []float32, actualBatch, padTo, inDim int) []float32 {
	if actualBatch == padTo {
		return features
	}
	out := make([]float32, padTo*inDim)
	copy(out, features)
	return out
}

// l2 sanity-checks a value-head output's magnitude; exercised by
// TestModelValueHeadBounded to confirm forward's tanh output honors spec
// section 3's [-1,1] convention for Evaluate-shaped values.
func l2(v float32) float32 {
	return math32.Abs(v)
}
