package gnn

import (
	"math"

	"github.com/turtacn/molgnn/pkg/errors"
)

// ---------------------------------------------------------------------------
// Adam optimizer with parameter groups
// ---------------------------------------------------------------------------

const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

// OptimizerGroup binds a set of parameters to a learning rate.
type OptimizerGroup struct {
	Params []*Parameter
	LR     float64
}

// Adam implements the Adam update rule with decoupled per-group learning
// rates and a shared weight decay applied as L2 regularization on the
// gradient.
type Adam struct {
	groups      []OptimizerGroup
	weightDecay float64
	step        int
	m, v        map[*Parameter]matrix
}

// NewAdam builds an optimizer over the given groups.
func NewAdam(groups []OptimizerGroup, weightDecay float64) (*Adam, error) {
	if len(groups) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "optimizer needs at least one parameter group")
	}
	for _, gr := range groups {
		if gr.LR <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidInput,
				"learning rate must be positive, got %g", gr.LR)
		}
	}
	a := &Adam{
		groups:      groups,
		weightDecay: weightDecay,
		m:           make(map[*Parameter]matrix),
		v:           make(map[*Parameter]matrix),
	}
	for _, gr := range groups {
		for _, p := range gr.Params {
			a.m[p] = newMatrix(len(p.Val), p.Val.cols())
			a.v[p] = newMatrix(len(p.Val), p.Val.cols())
		}
	}
	return a, nil
}

// ZeroGrad clears gradients across all groups.
func (a *Adam) ZeroGrad() {
	for _, gr := range a.groups {
		for _, p := range gr.Params {
			p.ZeroGrad()
		}
	}
}

// Step applies one update using the accumulated gradients.
func (a *Adam) Step() {
	a.step++
	c1 := 1 - math.Pow(adamBeta1, float64(a.step))
	c2 := 1 - math.Pow(adamBeta2, float64(a.step))
	for _, gr := range a.groups {
		for _, p := range gr.Params {
			m, v := a.m[p], a.v[p]
			for i := range p.Val {
				for c := range p.Val[i] {
					g := p.Grad[i][c] + a.weightDecay*p.Val[i][c]
					m[i][c] = adamBeta1*m[i][c] + (1-adamBeta1)*g
					v[i][c] = adamBeta2*v[i][c] + (1-adamBeta2)*g*g
					mHat := m[i][c] / c1
					vHat := v[i][c] / c2
					p.Val[i][c] -= gr.LR * mHat / (math.Sqrt(vHat) + adamEps)
				}
			}
		}
	}
}

// BuildOptimizerGroups assembles the standard three-group layout: the
// message-passing stack at the base learning rate, and the pooling gate and
// prediction head at lr scaled by lrScale. The pool group exists only when
// the backbone uses attention pooling.
func BuildOptimizerGroups(net *GraphNet, lr, lrScale float64) []OptimizerGroup {
	groups := []OptimizerGroup{
		{Params: net.ParametersByGroup(GroupGNN), LR: lr},
	}
	if pool := net.ParametersByGroup(GroupPool); len(pool) > 0 {
		groups = append(groups, OptimizerGroup{Params: pool, LR: lr * lrScale})
	}
	groups = append(groups, OptimizerGroup{Params: net.ParametersByGroup(GroupHead), LR: lr * lrScale})
	return groups
}
