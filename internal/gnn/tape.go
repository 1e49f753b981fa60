package gnn

import (
	"math"
	"math/rand"
)

// Reverse-mode automatic differentiation over dense row-major matrices.
// A Tape records operations in execution order; since every op only reads
// nodes created before it, running the recorded backward closures in reverse
// order is a valid topological traversal.

// matrix is a dense row-major float64 matrix.
type matrix [][]float64

func newMatrix(rows, cols int) matrix {
	m := make(matrix, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

func (m matrix) rows() int { return len(m) }

func (m matrix) cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// node is one value in the computation graph.
type node struct {
	val  matrix
	grad matrix
	back func()
}

// Tape records a single forward pass.
type Tape struct {
	nodes []*node
}

func newTape() *Tape { return &Tape{} }

func (t *Tape) record(n *node) *node {
	t.nodes = append(t.nodes, n)
	return n
}

// leaf wraps externally owned value and gradient storage, letting parameter
// gradients accumulate across the pass.
func (t *Tape) leaf(val, grad matrix) *node {
	return t.record(&node{val: val, grad: grad})
}

// constant wraps a value that needs no gradient.
func (t *Tape) constant(val matrix) *node {
	return t.record(&node{val: val, grad: newMatrix(val.rows(), val.cols())})
}

// backward runs all recorded backward closures in reverse order. The caller
// seeds the output node's grad before calling.
func (t *Tape) backward() {
	for i := len(t.nodes) - 1; i >= 0; i-- {
		if t.nodes[i].back != nil {
			t.nodes[i].back()
		}
	}
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// gather selects rows of table by index: out[i] = table[idx[i]].
func (t *Tape) gather(table *node, idx []int) *node {
	out := &node{val: newMatrix(len(idx), table.val.cols()), grad: newMatrix(len(idx), table.val.cols())}
	for i, j := range idx {
		copy(out.val[i], table.val[j])
	}
	out.back = func() {
		for i, j := range idx {
			for c, g := range out.grad[i] {
				table.grad[j][c] += g
			}
		}
	}
	return t.record(out)
}

// matmul computes out = x * w for x [n,k] and w [k,m].
func (t *Tape) matmul(x, w *node) *node {
	n, k, m := x.val.rows(), x.val.cols(), w.val.cols()
	out := &node{val: newMatrix(n, m), grad: newMatrix(n, m)}
	for i := 0; i < n; i++ {
		xi := x.val[i]
		oi := out.val[i]
		for j := 0; j < k; j++ {
			a := xi[j]
			if a == 0 {
				continue
			}
			wj := w.val[j]
			for c := 0; c < m; c++ {
				oi[c] += a * wj[c]
			}
		}
	}
	out.back = func() {
		for i := 0; i < n; i++ {
			gi := out.grad[i]
			xi := x.val[i]
			for j := 0; j < k; j++ {
				wj := w.val[j]
				var acc float64
				for c := 0; c < m; c++ {
					acc += gi[c] * wj[c]
					w.grad[j][c] += xi[j] * gi[c]
				}
				x.grad[i][j] += acc
			}
		}
	}
	return t.record(out)
}

// addBias adds a [1,m] bias row to every row of x.
func (t *Tape) addBias(x, b *node) *node {
	n, m := x.val.rows(), x.val.cols()
	out := &node{val: newMatrix(n, m), grad: newMatrix(n, m)}
	for i := 0; i < n; i++ {
		for c := 0; c < m; c++ {
			out.val[i][c] = x.val[i][c] + b.val[0][c]
		}
	}
	out.back = func() {
		for i := 0; i < n; i++ {
			for c := 0; c < m; c++ {
				g := out.grad[i][c]
				x.grad[i][c] += g
				b.grad[0][c] += g
			}
		}
	}
	return t.record(out)
}

// linear is matmul followed by a bias add. b may be nil.
func (t *Tape) linear(x, w, b *node) *node {
	out := t.matmul(x, w)
	if b != nil {
		out = t.addBias(out, b)
	}
	return out
}

// add computes elementwise out = a + b for same-shape operands.
func (t *Tape) add(a, b *node) *node {
	n, m := a.val.rows(), a.val.cols()
	out := &node{val: newMatrix(n, m), grad: newMatrix(n, m)}
	for i := 0; i < n; i++ {
		for c := 0; c < m; c++ {
			out.val[i][c] = a.val[i][c] + b.val[i][c]
		}
	}
	out.back = func() {
		for i := 0; i < n; i++ {
			for c := 0; c < m; c++ {
				g := out.grad[i][c]
				a.grad[i][c] += g
				b.grad[i][c] += g
			}
		}
	}
	return t.record(out)
}

// relu computes elementwise max(0, x).
func (t *Tape) relu(x *node) *node {
	n, m := x.val.rows(), x.val.cols()
	out := &node{val: newMatrix(n, m), grad: newMatrix(n, m)}
	for i := 0; i < n; i++ {
		for c := 0; c < m; c++ {
			if v := x.val[i][c]; v > 0 {
				out.val[i][c] = v
			}
		}
	}
	out.back = func() {
		for i := 0; i < n; i++ {
			for c := 0; c < m; c++ {
				if x.val[i][c] > 0 {
					x.grad[i][c] += out.grad[i][c]
				}
			}
		}
	}
	return t.record(out)
}

// leakyRelu computes elementwise x for x>0, slope*x otherwise.
func (t *Tape) leakyRelu(x *node, slope float64) *node {
	n, m := x.val.rows(), x.val.cols()
	out := &node{val: newMatrix(n, m), grad: newMatrix(n, m)}
	for i := 0; i < n; i++ {
		for c := 0; c < m; c++ {
			v := x.val[i][c]
			if v > 0 {
				out.val[i][c] = v
			} else {
				out.val[i][c] = slope * v
			}
		}
	}
	out.back = func() {
		for i := 0; i < n; i++ {
			for c := 0; c < m; c++ {
				d := 1.0
				if x.val[i][c] <= 0 {
					d = slope
				}
				x.grad[i][c] += d * out.grad[i][c]
			}
		}
	}
	return t.record(out)
}

// dropout applies inverted dropout with keep-probability 1-p. The mask is
// drawn from rng so training runs are reproducible from the seed.
func (t *Tape) dropout(x *node, p float64, rng *rand.Rand) *node {
	if p <= 0 {
		return x
	}
	n, m := x.val.rows(), x.val.cols()
	scale := 1.0 / (1.0 - p)
	mask := newMatrix(n, m)
	out := &node{val: newMatrix(n, m), grad: newMatrix(n, m)}
	for i := 0; i < n; i++ {
		for c := 0; c < m; c++ {
			if rng.Float64() >= p {
				mask[i][c] = scale
				out.val[i][c] = x.val[i][c] * scale
			}
		}
	}
	out.back = func() {
		for i := 0; i < n; i++ {
			for c := 0; c < m; c++ {
				x.grad[i][c] += mask[i][c] * out.grad[i][c]
			}
		}
	}
	return t.record(out)
}

// scatterSum sums rows of x into numSegments output rows: out[seg[i]] += x[i].
func (t *Tape) scatterSum(x *node, seg []int, numSegments int) *node {
	m := x.val.cols()
	out := &node{val: newMatrix(numSegments, m), grad: newMatrix(numSegments, m)}
	for i, s := range seg {
		for c := 0; c < m; c++ {
			out.val[s][c] += x.val[i][c]
		}
	}
	out.back = func() {
		for i, s := range seg {
			for c := 0; c < m; c++ {
				x.grad[i][c] += out.grad[s][c]
			}
		}
	}
	return t.record(out)
}

// segmentMean averages rows of x within each segment. Empty segments stay
// zero.
func (t *Tape) segmentMean(x *node, seg []int, numSegments int) *node {
	m := x.val.cols()
	counts := make([]float64, numSegments)
	for _, s := range seg {
		counts[s]++
	}
	out := &node{val: newMatrix(numSegments, m), grad: newMatrix(numSegments, m)}
	for i, s := range seg {
		for c := 0; c < m; c++ {
			out.val[s][c] += x.val[i][c] / counts[s]
		}
	}
	out.back = func() {
		for i, s := range seg {
			for c := 0; c < m; c++ {
				x.grad[i][c] += out.grad[s][c] / counts[s]
			}
		}
	}
	return t.record(out)
}

// segmentSoftmax normalizes scores [n,1] within each segment using the
// numerically stable max-subtracted form.
func (t *Tape) segmentSoftmax(scores *node, seg []int, numSegments int) *node {
	n := scores.val.rows()
	maxes := make([]float64, numSegments)
	for i := range maxes {
		maxes[i] = math.Inf(-1)
	}
	for i, s := range seg {
		if v := scores.val[i][0]; v > maxes[s] {
			maxes[s] = v
		}
	}
	sums := make([]float64, numSegments)
	out := &node{val: newMatrix(n, 1), grad: newMatrix(n, 1)}
	for i, s := range seg {
		out.val[i][0] = math.Exp(scores.val[i][0] - maxes[s])
		sums[s] += out.val[i][0]
	}
	for i, s := range seg {
		out.val[i][0] /= sums[s]
	}
	out.back = func() {
		// d/ds_k = a_k * (g_k - sum_j a_j g_j) within the segment.
		dot := make([]float64, numSegments)
		for i, s := range seg {
			dot[s] += out.val[i][0] * out.grad[i][0]
		}
		for i, s := range seg {
			scores.grad[i][0] += out.val[i][0] * (out.grad[i][0] - dot[s])
		}
	}
	return t.record(out)
}

// scaleRows multiplies each row of x [n,m] by the scalar weight w [n,1].
func (t *Tape) scaleRows(x, w *node) *node {
	n, m := x.val.rows(), x.val.cols()
	out := &node{val: newMatrix(n, m), grad: newMatrix(n, m)}
	for i := 0; i < n; i++ {
		for c := 0; c < m; c++ {
			out.val[i][c] = x.val[i][c] * w.val[i][0]
		}
	}
	out.back = func() {
		for i := 0; i < n; i++ {
			var acc float64
			for c := 0; c < m; c++ {
				g := out.grad[i][c]
				x.grad[i][c] += g * w.val[i][0]
				acc += g * x.val[i][c]
			}
			w.grad[i][0] += acc
		}
	}
	return t.record(out)
}
