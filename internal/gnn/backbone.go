package gnn

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/turtacn/molgnn/pkg/errors"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// ConvVariant selects the message-passing layer type.
type ConvVariant string

const (
	ConvGIN ConvVariant = "gin"
	ConvGAT ConvVariant = "gat"
)

// JKMode selects how per-layer node representations are combined.
type JKMode string

const (
	JKLast JKMode = "last"
	JKSum  JKMode = "sum"
)

// Pooling selects the graph-level readout.
type Pooling string

const (
	PoolMean      Pooling = "mean"
	PoolAttention Pooling = "attention"
)

// Edge embedding tables reserve one extra bond-kind row for the self loops
// the convolution layers add internally.
const (
	selfLoopBondIndex = NumBondTypes
	numEdgeKindRows   = NumBondTypes + 1
)

const leakySlope = 0.2

// BackboneConfig describes a graph network's architecture.
type BackboneConfig struct {
	NumLayers int
	EmbDim    int
	Dropout   float64
	Conv      ConvVariant
	JK        JKMode
	Pooling   Pooling
	// Seed drives parameter initialization and dropout masks.
	Seed int64
}

// Validate checks architectural constraints.
func (c BackboneConfig) Validate() error {
	if c.NumLayers < 1 {
		return errors.Newf(errors.ErrCodeInvalidInput,
			"layer count must be at least 1, got %d", c.NumLayers)
	}
	if c.EmbDim < 1 {
		return errors.Newf(errors.ErrCodeInvalidInput,
			"embedding width must be at least 1, got %d", c.EmbDim)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return errors.Newf(errors.ErrCodeInvalidInput,
			"dropout ratio must be in [0, 1), got %g", c.Dropout)
	}
	switch c.Conv {
	case ConvGIN, ConvGAT:
	default:
		return errors.Newf(errors.ErrCodeInvalidInput,
			"unknown convolution variant %q", c.Conv)
	}
	switch c.JK {
	case JKLast, JKSum:
	default:
		return errors.Newf(errors.ErrCodeInvalidInput,
			"unknown layer aggregation %q", c.JK)
	}
	switch c.Pooling {
	case PoolMean, PoolAttention:
	default:
		return errors.Newf(errors.ErrCodeInvalidInput,
			"unknown graph pooling %q", c.Pooling)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Parameters
// ---------------------------------------------------------------------------

// ParamGroup identifies which optimizer group a parameter belongs to.
type ParamGroup string

const (
	GroupGNN  ParamGroup = "gnn"
	GroupPool ParamGroup = "pool"
	GroupHead ParamGroup = "head"
)

// Parameter is one named, trainable weight matrix.
type Parameter struct {
	Name  string
	Group ParamGroup
	Val   matrix
	Grad  matrix
}

// ZeroGrad clears the accumulated gradient.
func (p *Parameter) ZeroGrad() {
	for i := range p.Grad {
		for c := range p.Grad[i] {
			p.Grad[i][c] = 0
		}
	}
}

// ---------------------------------------------------------------------------
// Backbone
// ---------------------------------------------------------------------------

// Backbone is the model interface the training and inference loops drive.
// SetTraining toggles dropout; Forward scores a packed batch and, in
// training mode, returns a tape whose gradients flow into Parameters when
// backpropagated.
type Backbone interface {
	Forward(batch *GraphBatch) (*ForwardResult, error)
	Parameters() []*Parameter
	SetTraining(train bool)
	Training() bool
	Config() BackboneConfig
}

// ForwardResult carries one forward pass: raw per-graph scores and the tape
// needed to backpropagate a loss gradient seeded on Scores.
type ForwardResult struct {
	// Scores holds one raw (pre-sigmoid) score per graph, in batch order.
	Scores []float64

	tape   *Tape
	output *node
}

// Backprop seeds dL/dscore for each graph and runs the backward pass,
// accumulating into parameter gradients.
func (r *ForwardResult) Backprop(scoreGrads []float64) error {
	if len(scoreGrads) != len(r.Scores) {
		return errors.Newf(errors.ErrCodeShapeMismatch,
			"got %d score gradients for %d scores", len(scoreGrads), len(r.Scores))
	}
	if r.tape == nil {
		return errors.New(errors.ErrCodeInternal,
			"forward pass did not record a tape; model is in inference mode")
	}
	for i, g := range scoreGrads {
		r.output.grad[i][0] = g
	}
	r.tape.backward()
	return nil
}

// ginLayer holds one GIN convolution's parameters.
type ginLayer struct {
	edgeEmb1, edgeEmb2 *Parameter
	w1, b1, w2, b2     *Parameter
}

// gatLayer holds one single-head GAT convolution's parameters.
type gatLayer struct {
	edgeEmb1, edgeEmb2 *Parameter
	weight, bias       *Parameter
	attSrc, attDst     *Parameter
}

// GraphNet is the concrete message-passing backbone. All compute is
// host-based float64; parameters live in dense matrices indexed by the
// feature vocabularies.
type GraphNet struct {
	cfg      BackboneConfig
	training bool
	rng      *rand.Rand

	atomEmb1 *Parameter // atomic number table
	atomEmb2 *Parameter // chirality table
	gin      []*ginLayer
	gat      []*gatLayer

	poolGateW *Parameter // attention pooling gate, nil for mean pooling
	poolGateB *Parameter

	headW *Parameter
	headB *Parameter

	params []*Parameter
}

// NewGraphNet constructs a backbone with freshly initialized parameters.
func NewGraphNet(cfg BackboneConfig) (*GraphNet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &GraphNet{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
	d := cfg.EmbDim

	g.atomEmb1 = g.newParam("atom_emb1", GroupGNN, NumAtomTypes, d)
	g.atomEmb2 = g.newParam("atom_emb2", GroupGNN, NumChiralityTags, d)

	for l := 0; l < cfg.NumLayers; l++ {
		switch cfg.Conv {
		case ConvGIN:
			g.gin = append(g.gin, &ginLayer{
				edgeEmb1: g.newParam(fmt.Sprintf("conv.%d.edge_emb1", l), GroupGNN, numEdgeKindRows, d),
				edgeEmb2: g.newParam(fmt.Sprintf("conv.%d.edge_emb2", l), GroupGNN, NumBondDirs, d),
				w1:       g.newParam(fmt.Sprintf("conv.%d.mlp.0.weight", l), GroupGNN, d, 2*d),
				b1:       g.newParam(fmt.Sprintf("conv.%d.mlp.0.bias", l), GroupGNN, 1, 2*d),
				w2:       g.newParam(fmt.Sprintf("conv.%d.mlp.2.weight", l), GroupGNN, 2*d, d),
				b2:       g.newParam(fmt.Sprintf("conv.%d.mlp.2.bias", l), GroupGNN, 1, d),
			})
		case ConvGAT:
			g.gat = append(g.gat, &gatLayer{
				edgeEmb1: g.newParam(fmt.Sprintf("conv.%d.edge_emb1", l), GroupGNN, numEdgeKindRows, d),
				edgeEmb2: g.newParam(fmt.Sprintf("conv.%d.edge_emb2", l), GroupGNN, NumBondDirs, d),
				weight:   g.newParam(fmt.Sprintf("conv.%d.weight", l), GroupGNN, d, d),
				bias:     g.newParam(fmt.Sprintf("conv.%d.bias", l), GroupGNN, 1, d),
				attSrc:   g.newParam(fmt.Sprintf("conv.%d.att_src", l), GroupGNN, d, 1),
				attDst:   g.newParam(fmt.Sprintf("conv.%d.att_dst", l), GroupGNN, d, 1),
			})
		}
	}

	if cfg.Pooling == PoolAttention {
		g.poolGateW = g.newParam("pool.gate.weight", GroupPool, d, 1)
		g.poolGateB = g.newParam("pool.gate.bias", GroupPool, 1, 1)
	}

	g.headW = g.newParam("head.weight", GroupHead, d, 1)
	g.headB = g.newParam("head.bias", GroupHead, 1, 1)

	return g, nil
}

// newParam allocates a parameter with Xavier-uniform initialization.
func (g *GraphNet) newParam(name string, group ParamGroup, rows, cols int) *Parameter {
	p := &Parameter{
		Name:  name,
		Group: group,
		Val:   newMatrix(rows, cols),
		Grad:  newMatrix(rows, cols),
	}
	bound := math.Sqrt(6.0 / float64(rows+cols))
	for i := range p.Val {
		for c := range p.Val[i] {
			p.Val[i][c] = (2*g.rng.Float64() - 1) * bound
		}
	}
	g.params = append(g.params, p)
	return p
}

// Parameters returns every trainable parameter in registration order.
func (g *GraphNet) Parameters() []*Parameter { return g.params }

// ParametersByGroup returns the parameters of one optimizer group, sorted by
// name for deterministic iteration.
func (g *GraphNet) ParametersByGroup(group ParamGroup) []*Parameter {
	var out []*Parameter
	for _, p := range g.params {
		if p.Group == group {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SetTraining toggles training mode. Dropout is active only while training.
func (g *GraphNet) SetTraining(train bool) { g.training = train }

// Training reports the current mode.
func (g *GraphNet) Training() bool { return g.training }

// Config returns the architecture description.
func (g *GraphNet) Config() BackboneConfig { return g.cfg }

// ---------------------------------------------------------------------------
// Forward pass
// ---------------------------------------------------------------------------

// Forward scores a packed batch, producing one raw score per graph.
func (g *GraphNet) Forward(batch *GraphBatch) (*ForwardResult, error) {
	n := batch.NumNodes()
	if n == 0 {
		return nil, errors.New(errors.ErrCodeShapeMismatch, "batch has no nodes")
	}
	if len(batch.Batch) != n {
		return nil, errors.Newf(errors.ErrCodeShapeMismatch,
			"batch vector length %d does not match %d nodes", len(batch.Batch), n)
	}
	if len(batch.EdgeIndex) != len(batch.EdgeFeatures) {
		return nil, errors.Newf(errors.ErrCodeShapeMismatch,
			"%d edges but %d edge feature rows", len(batch.EdgeIndex), len(batch.EdgeFeatures))
	}
	for _, e := range batch.EdgeIndex {
		if e[0] < 0 || e[0] >= n || e[1] < 0 || e[1] >= n {
			return nil, errors.Newf(errors.ErrCodeShapeMismatch,
				"edge (%d, %d) out of range for %d nodes", e[0], e[1], n)
		}
	}

	t := newTape()

	// Self loops participate in every convolution with a dedicated bond
	// kind and a neutral direction.
	srcs := make([]int, 0, len(batch.EdgeIndex)+n)
	dsts := make([]int, 0, len(batch.EdgeIndex)+n)
	kindIdx := make([]int, 0, len(batch.EdgeIndex)+n)
	dirIdx := make([]int, 0, len(batch.EdgeIndex)+n)
	for i, e := range batch.EdgeIndex {
		srcs = append(srcs, e[0])
		dsts = append(dsts, e[1])
		kindIdx = append(kindIdx, batch.EdgeFeatures[i][0])
		dirIdx = append(dirIdx, batch.EdgeFeatures[i][1])
	}
	for i := 0; i < n; i++ {
		srcs = append(srcs, i)
		dsts = append(dsts, i)
		kindIdx = append(kindIdx, selfLoopBondIndex)
		dirIdx = append(dirIdx, 0)
	}

	atomIdx1 := make([]int, n)
	atomIdx2 := make([]int, n)
	for i, f := range batch.AtomFeatures {
		atomIdx1[i] = f[0]
		atomIdx2[i] = f[1]
	}

	h := t.add(
		t.gather(t.leaf(g.atomEmb1.Val, g.atomEmb1.Grad), atomIdx1),
		t.gather(t.leaf(g.atomEmb2.Val, g.atomEmb2.Grad), atomIdx2),
	)

	var layers []*node
	for l := 0; l < g.cfg.NumLayers; l++ {
		var conv *node
		switch g.cfg.Conv {
		case ConvGIN:
			conv = g.forwardGIN(t, g.gin[l], h, srcs, dsts, kindIdx, dirIdx, n)
		case ConvGAT:
			conv = g.forwardGAT(t, g.gat[l], h, srcs, dsts, kindIdx, dirIdx, n)
		}
		last := l == g.cfg.NumLayers-1
		if !last {
			conv = t.relu(conv)
		}
		if g.training {
			conv = t.dropout(conv, g.cfg.Dropout, g.rng)
		}
		h = conv
		layers = append(layers, h)
	}

	nodeRep := layers[len(layers)-1]
	if g.cfg.JK == JKSum {
		nodeRep = layers[0]
		for _, l := range layers[1:] {
			nodeRep = t.add(nodeRep, l)
		}
	}

	var pooled *node
	switch g.cfg.Pooling {
	case PoolMean:
		pooled = t.segmentMean(nodeRep, batch.Batch, batch.NumGraphs)
	case PoolAttention:
		gate := t.linear(nodeRep,
			t.leaf(g.poolGateW.Val, g.poolGateW.Grad),
			t.leaf(g.poolGateB.Val, g.poolGateB.Grad))
		alpha := t.segmentSoftmax(gate, batch.Batch, batch.NumGraphs)
		pooled = t.scatterSum(t.scaleRows(nodeRep, alpha), batch.Batch, batch.NumGraphs)
	}

	out := t.linear(pooled,
		t.leaf(g.headW.Val, g.headW.Grad),
		t.leaf(g.headB.Val, g.headB.Grad))

	scores := make([]float64, batch.NumGraphs)
	for i := range scores {
		scores[i] = out.val[i][0]
	}
	res := &ForwardResult{Scores: scores}
	if g.training {
		res.tape = t
		res.output = out
	}
	return res, nil
}

// forwardGIN runs one GIN convolution: messages are source features plus
// edge embeddings, summed into targets (self loops included), then passed
// through a two-layer MLP.
func (g *GraphNet) forwardGIN(t *Tape, l *ginLayer, h *node, srcs, dsts, kindIdx, dirIdx []int, n int) *node {
	edge := t.add(
		t.gather(t.leaf(l.edgeEmb1.Val, l.edgeEmb1.Grad), kindIdx),
		t.gather(t.leaf(l.edgeEmb2.Val, l.edgeEmb2.Grad), dirIdx),
	)
	msg := t.add(t.gather(h, srcs), edge)
	agg := t.scatterSum(msg, dsts, n)
	hidden := t.relu(t.linear(agg,
		t.leaf(l.w1.Val, l.w1.Grad),
		t.leaf(l.b1.Val, l.b1.Grad)))
	return t.linear(hidden,
		t.leaf(l.w2.Val, l.w2.Grad),
		t.leaf(l.b2.Val, l.b2.Grad))
}

// forwardGAT runs one single-head attention convolution. Attention logits
// are split into source and target halves, which is equivalent to the
// concatenated form.
func (g *GraphNet) forwardGAT(t *Tape, l *gatLayer, h *node, srcs, dsts, kindIdx, dirIdx []int, n int) *node {
	proj := t.matmul(h, t.leaf(l.weight.Val, l.weight.Grad))
	edge := t.add(
		t.gather(t.leaf(l.edgeEmb1.Val, l.edgeEmb1.Grad), kindIdx),
		t.gather(t.leaf(l.edgeEmb2.Val, l.edgeEmb2.Grad), dirIdx),
	)
	msg := t.add(t.gather(proj, srcs), edge)

	logits := t.leakyRelu(t.add(
		t.matmul(msg, t.leaf(l.attSrc.Val, l.attSrc.Grad)),
		t.matmul(t.gather(proj, dsts), t.leaf(l.attDst.Val, l.attDst.Grad)),
	), leakySlope)
	alpha := t.segmentSoftmax(logits, dsts, n)

	agg := t.scatterSum(t.scaleRows(msg, alpha), dsts, n)
	return t.addBias(agg, t.leaf(l.bias.Val, l.bias.Grad))
}
