// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.18
//

package gofloat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// Noise-free problem: sources on a square, truth offsets all zero, exact
// travel times. The unique feasible minimum of the penalty is the truth.
func cleanProblem(t *testing.T, truth PosXY) (*Objective, *Constraints, Layout) {
	xs := []float64{-5e3, 5e3, 5e3, -5e3}
	ys := []float64{-5e3, -5e3, 5e3, 5e3}
	n := len(xs)
	lay := NewLayout(n)

	te := make([]float64, n)
	tr := make([]float64, n)
	for i := 0; i < n; i++ {
		s := PosXY{X: xs[i], Y: ys[i]}
		tr[i] = s.Dist(truth) / Cw
	}

	w, err := NewWeights(1e-2, []float64{5, 5, 5, 5}, []float64{2, 2, 2, 2})
	assert.NoError(t, err)
	obj, err := NewObjective(lay, w)
	assert.NoError(t, err)
	con, err := NewConstraints(lay, xs, ys, Cw, te, tr)
	assert.NoError(t, err)
	return obj, con, lay
}

func TestSqpConvergesFromFar(t *testing.T) {
	assert := assert.New(t)
	truth := PosXY{X: 1200, Y: -800}
	obj, con, lay := cleanProblem(t, truth)

	// Start well away from the truth
	theta0 := make([]float64, lay.Dim())
	theta0[IxX] = -3e3
	theta0[IxY] = 3e3

	sol, err := SolveSqp(context.Background(), obj, con, theta0, NewSqpOpt())
	assert.NoError(err)
	assert.Equal(Converged, sol.Status)

	p := lay.Decode(sol.Theta)
	assert.InDelta(truth.X, p.X, 1.0)
	assert.InDelta(truth.Y, p.Y, 1.0)
	assert.InDelta(0, p.Dt, 1e-2)
	assert.Less(sol.MaxRes, 1e-6)
	assert.Less(sol.Iter, 1000)
}

func TestSqpMeritMonotonic(t *testing.T) {
	assert := assert.New(t)
	obj, con, lay := cleanProblem(t, PosXY{X: 2500, Y: 1500})

	theta0 := make([]float64, lay.Dim())
	theta0[IxX] = -4e3
	theta0[IxY] = -4e3

	sol, err := SolveSqp(context.Background(), obj, con, theta0, NewSqpOpt())
	assert.NoError(err)
	assert.NotEmpty(sol.Merit)

	// An accepted step never increases the merit function beyond the
	// backtracking tolerance
	for k, s := range sol.Merit {
		assert.LessOrEqual(s.After, s.Before+1e-9, "step %d", k)
		assert.Greater(s.Alpha, 0.0, "step %d", k)
		assert.LessOrEqual(s.Alpha, 1.0, "step %d", k)
	}
}

func TestSqpExceeded(t *testing.T) {
	assert := assert.New(t)
	obj, con, lay := cleanProblem(t, PosXY{X: 1200, Y: -800})

	theta0 := make([]float64, lay.Dim())
	theta0[IxX] = -3e3
	theta0[IxY] = 3e3

	opt := NewSqpOpt()
	opt.MaxIter = 2
	sol, err := SolveSqp(context.Background(), obj, con, theta0, opt)
	assert.NoError(err)
	assert.Equal(Exceeded, sol.Status)
	assert.Equal(2, sol.Iter)

	// Best-effort theta is still returned
	assert.Len(sol.Theta, lay.Dim())
}

func TestSqpCanceled(t *testing.T) {
	assert := assert.New(t)
	obj, con, lay := cleanProblem(t, PosXY{X: 1200, Y: -800})
	theta0 := make([]float64, lay.Dim())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := SolveSqp(ctx, obj, con, theta0, nil)
	assert.NoError(err)
	assert.Equal(Canceled, sol.Status)
}

func TestSqpBadInitDim(t *testing.T) {
	assert := assert.New(t)
	obj, con, _ := cleanProblem(t, PosXY{X: 1200, Y: -800})

	_, err := SolveSqp(context.Background(), obj, con, make([]float64, 5), nil)
	assert.Error(err)
}

func TestSolveQPEquality(t *testing.T) {
	assert := assert.New(t)

	// minimize 1/2 p^T p + g^T p subject to p_0 + p_1 = 1
	B := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	g := []float64{1, 0}
	A := mat.NewDense(1, 2, []float64{1, 1})
	r := []float64{-1} // A p + r = 0  ->  p_0 + p_1 = 1

	p, lambda, err := SolveQP(B, g, A, r)
	assert.NoError(err)
	// KKT: p = -g - A^T lambda, A p = 1  ->  lambda = -1, p = (0, 1)
	assert.InDelta(0.0, p[0], 1e-12)
	assert.InDelta(1.0, p[1], 1e-12)
	assert.InDelta(-1.0, lambda[0], 1e-12)
}

func TestSolveQPSingular(t *testing.T) {
	assert := assert.New(t)

	// Rank-deficient constraint Jacobian: duplicated rows
	B := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	g := []float64{1, 1}
	A := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	r := []float64{-1, -2}

	_, _, err := SolveQP(B, g, A, r)
	assert.Error(err)
}

func TestSolveQPDimMismatch(t *testing.T) {
	assert := assert.New(t)
	B := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	A := mat.NewDense(1, 2, []float64{1, 1})

	_, _, err := SolveQP(B, []float64{1}, A, []float64{0})
	assert.Error(err)
	_, _, err = SolveQP(B, []float64{1, 2}, A, []float64{0, 0})
	assert.Error(err)
}
