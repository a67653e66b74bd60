// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.14
//

package gofloat

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Solve the equality constrained quadratic subproblem
//   - minimize (1/2) p^T B p + g^T p  subject to  A p + r = 0
//
// through its KKT system
//
//	| B  A^T | | p      |   | -g |
//	| A  0   | | lambda | = | -r |
//
// Return the step p and the multipliers lambda of the linearized constraints.
// A singular system yields an explicit error, never NaN in the solution.
func SolveQP(B mat.Symmetric, g []float64, A mat.Matrix, r []float64) (p, lambda []float64, err error) {

	n := B.SymmetricDim()
	m1, n1 := A.Dims()
	if n1 != n || len(g) != n {
		return nil, nil, fmt.Errorf("invalid matrix size. B(%d x %d), A(%d x %d), g(%d x 1)", n, n, m1, n1, len(g))
	}
	if len(r) != m1 {
		return nil, nil, fmt.Errorf("invalid matrix size. A(%d x %d), r(%d x 1)", m1, n1, len(r))
	}

	// KKT matrix
	nk := n + m1
	K := mat.NewDense(nk, nk, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			K.Set(i, j, B.At(i, j))
		}
	}
	for i := 0; i < m1; i++ {
		for j := 0; j < n; j++ {
			a := A.At(i, j)
			K.Set(n+i, j, a)
			K.Set(j, n+i, a)
		}
	}

	// Right hand side (-g, -r)
	b := mat.NewVecDense(nk, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, -g[i])
	}
	for i := 0; i < m1; i++ {
		b.SetVec(n+i, -r[i])
	}

	// Solve for (p, lambda)
	var x mat.VecDense
	err = x.SolveVec(K, b)
	if err != nil {
		return nil, nil, fmt.Errorf("singular KKT system: %w", err)
	}

	p = make([]float64, n)
	lambda = make([]float64, m1)
	for i := 0; i < n; i++ {
		p[i] = x.AtVec(i)
	}
	for i := 0; i < m1; i++ {
		lambda[i] = x.AtVec(n + i)
	}
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, fmt.Errorf("non-finite QP solution")
		}
	}
	return p, lambda, nil
}

// Solve the observation equation using weighted least squares
// - dx = (G^t W G)^-1 G^t W dr
func SolveLS(G mat.Matrix, dr mat.Vector, W mat.Matrix) (dx mat.Vector, err error) {

	n1, m1 := G.Dims()
	n2, m2 := W.Dims()
	if n1 != n2 {
		return nil, fmt.Errorf("invalid matrix size. G^T(%d x %d), W(%d x %d)", m1, n1, n2, m2)
	}
	l1 := dr.Len()
	if l1 != m2 {
		return nil, fmt.Errorf("invalid matrix size. W(%d x %d), dr(%d x 1)", n2, m2, l1)
	}

	// A（G^t W G)
	var WG mat.Dense
	WG.Mul(W, G)
	var A mat.Dense
	A.Mul(G.T(), &WG)

	// b（G^t W dr）
	var GtW mat.Dense
	GtW.Mul(G.T(), W)
	var b mat.VecDense
	b.MulVec(&GtW, dr)

	// Solve for x (x = A^-1 b)
	var x mat.VecDense
	err = x.SolveVec(&A, &b)
	if err != nil {
		return nil, err
	}
	dx = &x

	return
}
