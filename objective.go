// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

// Implements the weighted quadratic penalty on the nuisance parameters
// and its analytic gradient.

package gofloat

import (
	"fmt"
)

// Weights of the penalty terms, derived once from the rms priors and
// constant during a solve
type Weights struct {
	Wdt float64   // 1/e_dt^2 [1/s^2]
	Wdx []float64 // 1/e_dx_i^2 per detected source [1/m^2]
	Wc  []float64 // 1/e_c_i^2 per detected source [s^2/m^2]
}

// NewWeights derives the penalty weights from the rms priors.
// eDx and eC carry one entry per detected source.
func NewWeights(eDt float64, eDx, eC []float64) (Weights, error) {
	if eDt <= 0 {
		return Weights{}, fmt.Errorf("invalid clock offset prior: e_dt=%g", eDt)
	}
	if len(eDx) != len(eC) {
		return Weights{}, fmt.Errorf("invalid prior size. e_dx(%d), e_c(%d)", len(eDx), len(eC))
	}
	w := Weights{
		Wdt: 1 / SQ(eDt),
		Wdx: make([]float64, len(eDx)),
		Wc:  make([]float64, len(eC)),
	}
	for i := range eDx {
		if eDx[i] <= 0 || eC[i] <= 0 {
			return Weights{}, fmt.Errorf("invalid prior for source %d: e_dx=%g, e_c=%g", i, eDx[i], eC[i])
		}
		w.Wdx[i] = 1 / SQ(eDx[i])
		w.Wc[i] = 1 / SQ(eC[i])
	}
	return w, nil
}

// Objective evaluates the penalty
//
//	J = dt^2 Wdt + mean_i[(dx_i^2 + dy_i^2) Wdx_i] + mean_i[dc_i^2 Wc_i]
//
// over the detected sources. The clock term is not normalized by the source
// count while the nuisance blocks are means. The asymmetry comes from the
// reference formulation and is kept as a modeling choice.
type Objective struct {
	lay Layout
	w   Weights
}

// NewObjective builds the evaluator. The weights must cover the same
// detected-source set as the constraints of the solve.
func NewObjective(lay Layout, w Weights) (*Objective, error) {
	if len(w.Wdx) != lay.N || len(w.Wc) != lay.N {
		return nil, fmt.Errorf("invalid weight size. Wdx(%d), Wc(%d), N(%d)", len(w.Wdx), len(w.Wc), lay.N)
	}
	return &Objective{lay: lay, w: w}, nil
}

// Cost evaluates J at theta
func (o *Objective) Cost(theta []float64) float64 {
	l, n := o.lay, float64(o.lay.N)
	j := SQ(theta[IxDt]) * o.w.Wdt
	for i := 0; i < l.N; i++ {
		j += (SQ(theta[l.IxDx(i)]) + SQ(theta[l.IxDy(i)])) * o.w.Wdx[i] / n
		j += SQ(theta[l.IxDc(i)]) * o.w.Wc[i] / n
	}
	return j
}

// Grad writes the analytic gradient of J at theta into dst.
// The x and y entries are exactly zero.
func (o *Objective) Grad(theta, dst []float64) {
	l, n := o.lay, float64(o.lay.N)
	for i := range dst {
		dst[i] = 0
	}
	dst[IxDt] = 2 * theta[IxDt] * o.w.Wdt
	for i := 0; i < l.N; i++ {
		dst[l.IxDx(i)] = 2 * theta[l.IxDx(i)] * o.w.Wdx[i] / n
		dst[l.IxDy(i)] = 2 * theta[l.IxDy(i)] * o.w.Wdx[i] / n
		dst[l.IxDc(i)] = 2 * theta[l.IxDc(i)] * o.w.Wc[i] / n
	}
}
