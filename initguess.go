// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.16
//

package gofloat

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// initPosGuess builds the default initial receiver position by linearized
// multilateration: the circle equation of each detected source is differenced
// against the last one, which removes the quadratic terms and leaves a linear
// system in (x, y) solved by unweighted least squares.
//
//	2(xs_m - xs_i) x + 2(ys_m - ys_i) y =
//	  rng_i^2 - rng_m^2 - |s_i|^2 + |s_m|^2
//
// rng_i is the raw range cb*(tr_i - te_i). Clock offset and nuisance terms
// are ignored here, the guess only has to land in the basin of the solve.
// Falls back to the source centroid when the system is singular (e.g. all
// sources collinear).
func initPosGuess(xs, ys, rng []float64) PosXY {

	n := len(xs)
	if n < 3 {
		return centroid(xs, ys)
	}

	// Reference source: the last detected one
	xm, ym, rm := xs[n-1], ys[n-1], rng[n-1]
	nm := SQ(xm) + SQ(ym)

	G := mat.NewDense(n-1, 2, nil)
	dr := mat.NewVecDense(n-1, nil)
	for i := 0; i < n-1; i++ {
		G.Set(i, 0, 2*(xm-xs[i]))
		G.Set(i, 1, 2*(ym-ys[i]))
		dr.SetVec(i, SQ(rng[i])-SQ(rm)-SQ(xs[i])-SQ(ys[i])+nm)
	}

	W := eyeDiag(n - 1)
	dx, err := SolveLS(G, dr, W)
	if err != nil {
		PrintD(2, "\tinit guess LS failed, fall back to centroid: %s\n", err.Error())
		return centroid(xs, ys)
	}
	p := PosXY{X: dx.AtVec(0), Y: dx.AtVec(1)}
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return centroid(xs, ys)
	}
	return p
}

func centroid(xs, ys []float64) PosXY {
	var p PosXY
	for i := range xs {
		p.X += xs[i]
		p.Y += ys[i]
	}
	p.X /= float64(len(xs))
	p.Y /= float64(len(ys))
	return p
}

func eyeDiag(n int) *mat.DiagDense {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return mat.NewDiagDense(n, w)
}
