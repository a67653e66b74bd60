// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.18
//

// Implements an equality constrained sequential quadratic programming solver:
// minimize J(theta) subject to r_i(theta) = 0 for every detected source.
//
// Each iteration linearizes the constraints, solves the KKT system of the
// quadratic subproblem for a step and multiplier estimates, line searches an
// L1 exact penalty merit function and maintains a damped BFGS approximation
// of the Lagrangian curvature. The loop is an explicit state machine so the
// iteration count, merit trace and failure reason are observable.

package gofloat

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Calculation constants for the SQP iteration
const (
	ARMIJO_ETA     = 0.1   // Sufficient decrease factor for the merit line search
	ALPHA_SHRINK   = 0.5   // Backtracking factor
	MIN_CURVE      = 1e-14 // Smallest curvature s^T y accepted by the BFGS update
	DAMP_FRACTION  = 0.2   // Powell damping threshold on s^T y relative to s^T B s
	MAX_BACK_COUNT = 30    // Maximum backtracking steps in one line search
)

// Termination status of a solve
type SqpStatus int

const (
	Converged  SqpStatus = iota // Tolerances met (success)
	Exceeded                    // Iteration cap reached (failure, best-effort theta returned)
	Infeasible                  // Singular constraint linearization or no admissible step at an infeasible point (failure)
	Canceled                    // Caller canceled via context (failure)
)

func (s SqpStatus) String() string {
	switch s {
	case Converged:
		return "Converged"
	case Exceeded:
		return "Exceeded"
	case Infeasible:
		return "Infeasible"
	case Canceled:
		return "Canceled"
	default:
		return "UNKNOWN!"
	}
}

// SqpOpt contains the convergence tolerances and iteration caps
type SqpOpt struct {
	EpsGrad float64 // Stationarity tolerance, relative to the objective gradient scale
	EpsFeas float64 // Tolerance on the maximum constraint residual
	MaxIter int     // Iteration cap
}

// NewSqpOpt creates a new SqpOpt with default values
func NewSqpOpt() *SqpOpt {
	return &SqpOpt{
		EpsGrad: 1e-8,
		EpsFeas: 1e-6,
		MaxIter: 1000,
	}
}

// MeritStep records one accepted step of the merit line search
type MeritStep struct {
	Before float64 // Merit value at the iterate before the step
	After  float64 // Merit value at the accepted point (same penalties)
	Alpha  float64 // Accepted step length
}

// SqpSol contains the results of one solve
type SqpSol struct {
	Theta  []float64   // Final parameter vector (best effort on failure)
	Lambda []float64   // Final Lagrange multiplier estimates
	Status SqpStatus   // Termination status
	Iter   int         // Number of iterations performed
	Cost   float64     // Objective value at Theta
	MaxRes float64     // Maximum absolute constraint residual at Theta
	Merit  []MeritStep // Merit trace across accepted steps
}

// SolveSqp runs the constrained minimization from theta0.
// The context is checked once per iteration; cancellation terminates with
// the Canceled status. An error is returned only for invalid inputs,
// numerical outcomes are reported through the solution status.
func SolveSqp(ctx context.Context, obj *Objective, con *Constraints, theta0 []float64, opt *SqpOpt) (*SqpSol, error) {

	if opt == nil {
		opt = NewSqpOpt()
	}

	// --- Init ---
	n := obj.lay.Dim()
	m := con.Num()
	if len(theta0) != n {
		return nil, fmt.Errorf("invalid initial guess size: theta0(%d), dim(%d)", len(theta0), n)
	}
	if con.lay.N != obj.lay.N {
		return nil, fmt.Errorf("objective and constraints disagree on source count: %d != %d", obj.lay.N, con.lay.N)
	}

	theta := append([]float64(nil), theta0...)

	// Curvature approximation, initialized to identity
	B := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		B.SetSym(i, i, 1)
	}

	// Per-constraint merit penalties
	mu := make([]float64, m)

	// Work areas
	g := make([]float64, n)       // objective gradient
	r := make([]float64, m)       // constraint residuals
	A := mat.NewDense(m, n, nil)  // constraint Jacobian
	row := make([]float64, n)     // one Jacobian row
	gL := make([]float64, n)      // Lagrangian gradient
	gLNew := make([]float64, n)   // Lagrangian gradient after the step
	trial := make([]float64, n)   // line search trial point
	lambda := make([]float64, m)  // multiplier estimates
	sol := &SqpSol{Status: Exceeded}

	// Hessian reset guard: a second non-descent direction right after a
	// reset at an infeasible point means no admissible step exists
	fresh := true

	evalAt := func(th []float64) (maxRes float64) {
		obj.Grad(th, g)
		for i := 0; i < m; i++ {
			r[i] = con.Residual(i, th)
			con.Jacobian(i, th, row)
			A.SetRow(i, row)
			maxRes = math.Max(maxRes, math.Abs(r[i]))
		}
		return
	}

	merit := func(th []float64) float64 {
		phi := obj.Cost(th)
		for i := 0; i < m; i++ {
			phi += mu[i] * math.Abs(con.Residual(i, th))
		}
		return phi
	}

	resetB := func() {
		for i := 0; i < n; i++ {
			for j := 0; j <= i; j++ {
				if i == j {
					B.SetSym(i, i, 1)
				} else {
					B.SetSym(i, j, 0)
				}
			}
		}
	}

	finish := func(status SqpStatus) *SqpSol {
		sol.Status = status
		sol.Theta = theta
		sol.Lambda = lambda
		sol.Cost = obj.Cost(theta)
		sol.MaxRes = 0
		for i := 0; i < m; i++ {
			sol.MaxRes = math.Max(sol.MaxRes, math.Abs(con.Residual(i, theta)))
		}
		return sol
	}

	// --- Iterate ---
	for k := 0; k < opt.MaxIter; k++ {

		select {
		case <-ctx.Done():
			return finish(Canceled), nil
		default:
		}

		sol.Iter = k + 1
		maxRes := evalAt(theta)

		// Solve the quadratic subproblem for the step and multipliers
		p, lam, err := SolveQP(B, g, A, r)
		if err != nil {
			PrintD(2, "\tSQP %d: QP solve failed, err=%s\n", k+1, err.Error())
			return finish(Infeasible), nil
		}
		copy(lambda, lam)

		// Projected gradient: stationarity of the Lagrangian
		// grad L = grad J + A^T lambda
		copy(gL, g)
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				gL[j] += lambda[i] * A.At(i, j)
			}
		}
		gNorm := floats.Norm(gL, math.Inf(1))

		PrintD(2, "\tSQP %d: J=%.6e, max|r|=%.3e, |gradL|=%.3e, |p|=%.3e\n",
			k+1, obj.Cost(theta), maxRes, gNorm, floats.Norm(p, 2))
		if DBG_ >= 4 {
			PrintA("A=\n")
			PrintMat(A)
		}

		// Check convergence before stepping. Stationarity is measured
		// relative to the objective gradient scale: with 1e4-scale weights
		// an absolute cutoff sits below double precision.
		gScale := math.Max(1, floats.Norm(g, math.Inf(1)))
		if gNorm <= opt.EpsGrad*gScale && maxRes <= opt.EpsFeas {
			return finish(Converged), nil
		}

		// Raise the merit penalties above the current multipliers
		for i := 0; i < m; i++ {
			al := math.Abs(lambda[i])
			mu[i] = math.Max(al, (mu[i]+al)/2)
		}

		// Directional derivative of the merit function along p
		d := floats.Dot(g, p)
		for i := 0; i < m; i++ {
			d -= mu[i] * math.Abs(r[i])
		}
		if d >= 0 {
			// No merit descent left. At a feasible iterate this is a
			// rounding-level stationary point; otherwise retry once from
			// identity curvature
			if maxRes <= opt.EpsFeas {
				return finish(Converged), nil
			}
			if fresh {
				return finish(Infeasible), nil
			}
			resetB()
			fresh = true
			continue
		}

		// Backtracking line search on the merit function
		phi0 := merit(theta)
		alpha := 1.0
		accepted := false
		for back := 0; back < MAX_BACK_COUNT; back++ {
			floats.AddScaledTo(trial, theta, alpha, p)
			phi := merit(trial)
			if phi <= phi0+ARMIJO_ETA*alpha*d {
				sol.Merit = append(sol.Merit, MeritStep{Before: phi0, After: phi, Alpha: alpha})
				accepted = true
				break
			}
			alpha *= ALPHA_SHRINK
		}
		if !accepted {
			if maxRes <= opt.EpsFeas {
				return finish(Converged), nil
			}
			if fresh {
				return finish(Infeasible), nil
			}
			resetB()
			fresh = true
			continue
		}

		// Curvature update: grad L at the new point with the same
		// multipliers (gL already holds the old value)
		obj.Grad(trial, gLNew)
		for i := 0; i < m; i++ {
			con.Jacobian(i, trial, row)
			for j := 0; j < n; j++ {
				gLNew[j] += lambda[i] * row[j]
			}
		}

		s := make([]float64, n)
		y := make([]float64, n)
		floats.SubTo(s, trial, theta)
		floats.SubTo(y, gLNew, gL)
		copy(theta, trial)
		fresh = false

		// Damped BFGS update (skip when it would break positive definiteness)
		Bs := make([]float64, n)
		sv := mat.NewVecDense(n, s)
		bv := mat.NewVecDense(n, Bs)
		bv.MulVec(B, sv)
		sBs := floats.Dot(s, Bs)
		sy := floats.Dot(s, y)
		if sBs <= MIN_CURVE {
			continue
		}
		if sy < DAMP_FRACTION*sBs {
			t := (1 - DAMP_FRACTION) * sBs / (sBs - sy)
			for j := 0; j < n; j++ {
				y[j] = t*y[j] + (1-t)*Bs[j]
			}
			sy = floats.Dot(s, y)
		}
		if sy <= MIN_CURVE {
			continue
		}
		B.SymRankOne(B, 1/sy, mat.NewVecDense(n, y))
		B.SymRankOne(B, -1/sBs, bv)
	}

	// --- Exceeded ---
	return finish(Exceeded), nil
}
