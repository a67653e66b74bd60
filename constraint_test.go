// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.18
//

package gofloat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Build the constraint evaluator of a generated scenario together with the
// parameter vector assembled from the generating truth.
func truthProblem(t *testing.T, opt *ScnOpt) (*Constraints, []float64) {
	scn := GenScenario(opt)
	n := len(scn.Srcs)
	lay := NewLayout(n)

	xs := make([]float64, n)
	ys := make([]float64, n)
	te := make([]float64, n)
	tr := make([]float64, n)
	for i, s := range scn.Srcs {
		xs[i] = s.Pos.X
		ys[i] = s.Pos.Y
		te[i] = scn.Pings[i].Te
		tr[i] = scn.Pings[i].Tr
	}
	con, err := NewConstraints(lay, xs, ys, scn.Cb, te, tr)
	assert.NoError(t, err)

	theta := lay.Encode(Params{
		X:  scn.Truth.Pos.X,
		Y:  scn.Truth.Pos.Y,
		Dt: scn.Truth.Dt,
		Dx: scn.Truth.Dx,
		Dy: scn.Truth.Dy,
		Dc: scn.Truth.Dc,
	})
	return con, theta
}

func TestResidualZeroAtTruth(t *testing.T) {
	assert := assert.New(t)
	con, theta := truthProblem(t, NewScnOpt())

	// The generating truth satisfies every range equation exactly
	for i := 0; i < con.Num(); i++ {
		assert.InDelta(0, con.Residual(i, theta), 1e-4, "source %d", i)
	}
}

func TestResidualOffTruth(t *testing.T) {
	assert := assert.New(t)
	con, theta := truthProblem(t, NewScnOpt())

	// A perturbed position violates the range equations
	theta[IxX] += 100
	viol := 0.0
	for i := 0; i < con.Num(); i++ {
		if v := con.Residual(i, theta); v > viol || -v > viol {
			viol = v
		}
	}
	assert.Greater(viol, 1e3)
}

func TestJacobianFiniteDiff(t *testing.T) {
	assert := assert.New(t)
	rng := rand.New(rand.NewSource(23))
	con, theta := truthProblem(t, NewScnOpt())

	// Evaluate away from the feasible point too
	for i := range theta {
		theta[i] += rng.NormFloat64() * 10
	}

	dim := len(theta)
	row := make([]float64, dim)
	const h = 1e-4
	for i := 0; i < con.Num(); i++ {
		con.Jacobian(i, theta, row)
		for j := 0; j < dim; j++ {
			tp := append([]float64(nil), theta...)
			tm := append([]float64(nil), theta...)
			tp[j] += h
			tm[j] -= h
			fd := (con.Residual(i, tp) - con.Residual(i, tm)) / (2 * h)
			if row[j] == 0 {
				assert.InDelta(0, fd, 1e-3, "constraint %d entry %d", i, j)
			} else {
				assert.InEpsilon(fd, row[j], 1e-5, "constraint %d entry %d", i, j)
			}
		}
	}
}

func TestJacobianStructuralZeros(t *testing.T) {
	assert := assert.New(t)
	con, theta := truthProblem(t, NewScnOpt())
	lay := con.lay

	row := make([]float64, lay.Dim())
	for i := 0; i < con.Num(); i++ {
		con.Jacobian(i, theta, row)
		for j := 0; j < lay.N; j++ {
			if j == i {
				continue
			}
			// Nuisance entries of other sources are exactly zero
			assert.Zero(row[lay.IxDx(j)], "constraint %d dx_%d", i, j)
			assert.Zero(row[lay.IxDy(j)], "constraint %d dy_%d", i, j)
			assert.Zero(row[lay.IxDc(j)], "constraint %d dc_%d", i, j)
		}
	}
}

func TestNewConstraintsValidation(t *testing.T) {
	assert := assert.New(t)
	lay := NewLayout(2)

	_, err := NewConstraints(lay, []float64{1}, []float64{1, 2}, Cw, []float64{0, 0}, []float64{1, 1})
	assert.Error(err)
	_, err = NewConstraints(lay, []float64{1, 2}, []float64{1, 2}, Cw, []float64{0}, []float64{1, 1})
	assert.Error(err)
	_, err = NewConstraints(lay, []float64{1, 2}, []float64{1, 2}, 0, []float64{0, 0}, []float64{1, 1})
	assert.Error(err)
}
