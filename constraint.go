// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

// Implements the per-source range-equation constraints and their Jacobian.

package gofloat

import (
	"fmt"
)

// Constraints evaluates the hard range equation of each detected source i
//
//	r_i = (x - xs_i - dx_i)^2 + (y - ys_i - dy_i)^2
//	    - (cb + dc_i)^2 (tr_i + dt - te_i)^2
//
// i.e. squared distance to the uncertain transducer position minus squared
// corrected travel time scaled by the uncertain celerity. The evaluator is
// indexed by source, never a per-source closure, so no loop variable can be
// captured late.
type Constraints struct {
	lay Layout
	xs  []float64 // detected source x positions [m]
	ys  []float64 // detected source y positions [m]
	cb  float64   // background celerity [m/s]
	tt  []float64 // raw travel time tr_i - te_i per detected source [s]
}

// NewConstraints builds the evaluator for the detected sources.
// All slices carry one entry per detected source, aligned with the layout.
func NewConstraints(lay Layout, xs, ys []float64, cb float64, te, tr []float64) (*Constraints, error) {
	if len(xs) != lay.N || len(ys) != lay.N {
		return nil, fmt.Errorf("invalid source position size. xs(%d), ys(%d), N(%d)", len(xs), len(ys), lay.N)
	}
	if len(te) != lay.N || len(tr) != lay.N {
		return nil, fmt.Errorf("invalid timing size. te(%d), tr(%d), N(%d)", len(te), len(tr), lay.N)
	}
	if cb <= 0 {
		return nil, fmt.Errorf("invalid background celerity: cb=%g", cb)
	}
	c := &Constraints{
		lay: lay,
		xs:  append([]float64(nil), xs...),
		ys:  append([]float64(nil), ys...),
		cb:  cb,
		tt:  make([]float64, lay.N),
	}
	for i := range te {
		c.tt[i] = tr[i] - te[i]
	}
	return c, nil
}

// Num returns the number of constraints (= detected sources)
func (c *Constraints) Num() int {
	return c.lay.N
}

// Residual evaluates r_i at theta
func (c *Constraints) Residual(i int, theta []float64) float64 {
	l := c.lay
	ex := theta[IxX] - c.xs[i] - theta[l.IxDx(i)]
	ey := theta[IxY] - c.ys[i] - theta[l.IxDy(i)]
	cc := c.cb + theta[l.IxDc(i)]
	tc := c.tt[i] + theta[IxDt]
	return SQ(ex) + SQ(ey) - SQ(cc)*SQ(tc)
}

// Jacobian writes the gradient of r_i at theta into row (length Dim()).
// Only x, y, dt and the i-th entry of each nuisance block are nonzero;
// the remaining zeros are structural.
func (c *Constraints) Jacobian(i int, theta, row []float64) {
	l := c.lay
	for k := range row {
		row[k] = 0
	}
	ex := theta[IxX] - c.xs[i] - theta[l.IxDx(i)]
	ey := theta[IxY] - c.ys[i] - theta[l.IxDy(i)]
	cc := c.cb + theta[l.IxDc(i)]
	tc := c.tt[i] + theta[IxDt]
	row[IxX] = 2 * ex
	row[IxY] = 2 * ey
	row[IxDt] = -2 * SQ(cc) * tc
	row[l.IxDx(i)] = -2 * ex
	row[l.IxDy(i)] = -2 * ey
	row[l.IxDc(i)] = -2 * cc * SQ(tc)
}
