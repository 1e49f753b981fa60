package gnn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdamRejectsBadConfig(t *testing.T) {
	_, err := NewAdam(nil, 0)
	require.Error(t, err)

	p := &Parameter{Name: "w", Val: newMatrix(1, 1), Grad: newMatrix(1, 1)}
	_, err = NewAdam([]OptimizerGroup{{Params: []*Parameter{p}, LR: 0}}, 0)
	require.Error(t, err)
}

func TestAdamDescendsQuadratic(t *testing.T) {
	// Minimize f(w) = (w - 3)^2 by hand-feeding gradients.
	p := &Parameter{Name: "w", Val: newMatrix(1, 1), Grad: newMatrix(1, 1)}
	opt, err := NewAdam([]OptimizerGroup{{Params: []*Parameter{p}, LR: 0.1}}, 0)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		opt.ZeroGrad()
		p.Grad[0][0] = 2 * (p.Val[0][0] - 3)
		opt.Step()
	}
	assert.InDelta(t, 3.0, p.Val[0][0], 0.05)
}

func TestAdamPerGroupLearningRates(t *testing.T) {
	fast := &Parameter{Name: "fast", Val: newMatrix(1, 1), Grad: newMatrix(1, 1)}
	slow := &Parameter{Name: "slow", Val: newMatrix(1, 1), Grad: newMatrix(1, 1)}
	opt, err := NewAdam([]OptimizerGroup{
		{Params: []*Parameter{fast}, LR: 0.1},
		{Params: []*Parameter{slow}, LR: 0.001},
	}, 0)
	require.NoError(t, err)

	fast.Grad[0][0] = 1
	slow.Grad[0][0] = 1
	opt.Step()

	assert.Less(t, fast.Val[0][0], slow.Val[0][0],
		"higher learning rate must move further against the gradient")
}

func TestAdamWeightDecayPullsTowardZero(t *testing.T) {
	p := &Parameter{Name: "w", Val: newMatrix(1, 1), Grad: newMatrix(1, 1)}
	p.Val[0][0] = 5
	opt, err := NewAdam([]OptimizerGroup{{Params: []*Parameter{p}, LR: 0.05}}, 0.1)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		opt.ZeroGrad()
		opt.Step()
	}
	assert.Less(t, p.Val[0][0], 5.0)
}

func TestZeroGradClearsAllGroups(t *testing.T) {
	a := &Parameter{Name: "a", Val: newMatrix(2, 2), Grad: newMatrix(2, 2)}
	b := &Parameter{Name: "b", Val: newMatrix(1, 3), Grad: newMatrix(1, 3)}
	a.Grad[1][1] = 7
	b.Grad[0][2] = -2
	opt, err := NewAdam([]OptimizerGroup{
		{Params: []*Parameter{a}, LR: 0.1},
		{Params: []*Parameter{b}, LR: 0.1},
	}, 0)
	require.NoError(t, err)

	opt.ZeroGrad()
	assert.Zero(t, a.Grad[1][1])
	assert.Zero(t, b.Grad[0][2])
}
