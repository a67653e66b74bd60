// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.18
//

// Implements the estimation driver: one static position solve per call.

package gofloat

import (
	"context"
	"fmt"

	"golang.org/x/exp/slices"
)

// Source describes one fixed surface acoustic source
type Source struct {
	Pos PosXY   // True horizontal position [m]
	EDx float64 // Rms transducer offset uncertainty [m]
	EC  float64 // Rms celerity anomaly uncertainty [m/s]
	Det bool    // Detection flag: only detected sources enter the solve
}

// Ping is the one-way travel time measurement of one source
type Ping struct {
	Te float64 // Emission time [s]
	Tr float64 // Raw measured reception time, contains the clock offset [s]
}

// PosOpt contains options and parameters for the position calculation
type PosOpt struct {
	Cb      float64 // Background celerity [m/s]
	EDt     float64 // Rms prior of the receiver clock offset [s]
	ExSrcs  []int   // Source indices to exclude from calculation
	InitPos *PosXY  // Initial position guess. If nil, linearized multilateration
	Sqp     *SqpOpt // Solver tolerances and iteration cap
}

// NewPosOpt creates a new PosOpt with default values
func NewPosOpt() *PosOpt {
	return &PosOpt{
		Cb:      Cw,    // Nominal seawater sound speed
		EDt:     1e-2,  // 10 ms clock prior
		ExSrcs:  nil,   // No excluded sources
		InitPos: nil,   // Multilateration initial guess
		Sqp:     NewSqpOpt(),
	}
}

// PosSol contains the results of one position calculation
type PosSol struct {
	Pos    PosXY       // Estimated receiver position
	Dt     float64     // Estimated receiver clock offset [s]
	Srcs   []int       // Indices (into the input list) of the sources used
	Dx     []float64   // Estimated transducer x offsets, aligned with Srcs [m]
	Dy     []float64   // Estimated transducer y offsets, aligned with Srcs [m]
	Dc     []float64   // Estimated celerity anomalies, aligned with Srcs [m/s]
	Status SqpStatus   // Termination status (inspect before trusting Pos)
	Iter   int         // Solver iterations
	Cost   float64     // Final objective value
	MaxRes float64     // Maximum absolute range-equation residual [m^2]
	Merit  []MeritStep // Merit trace across accepted solver steps
}

// CalcPos estimates the receiver position from one-way travel times.
//
// srcs and pings are parallel slices over all sources; ping entries of
// non-detected sources are ignored. Input inconsistencies (fewer than three
// detected sources, mismatched slice sizes, non-positive priors) fail fast
// with an error before any iteration. Numerical outcomes (Exceeded,
// Infeasible) are reported through PosSol.Status with a best-effort estimate.
func CalcPos(ctx context.Context, srcs []Source, pings []Ping, opt *PosOpt) (*PosSol, error) {

	if opt == nil {
		opt = NewPosOpt()
	}
	if len(pings) != len(srcs) {
		return nil, fmt.Errorf("invalid input size. srcs(%d), pings(%d)", len(srcs), len(pings))
	}

	// Select detected sources
	det := selectDetected(srcs, opt.ExSrcs)
	if len(det) < 3 {
		return nil, fmt.Errorf("not enough detected sources: %d < 3", len(det))
	}
	PrintD(2, "\tsrc: %d / %d\n", len(det), len(srcs))

	// Problem assembly over the detected set
	lay := NewLayout(len(det))
	xs := make([]float64, len(det))
	ys := make([]float64, len(det))
	te := make([]float64, len(det))
	tr := make([]float64, len(det))
	eDx := make([]float64, len(det))
	eC := make([]float64, len(det))
	for k, i := range det {
		xs[k] = srcs[i].Pos.X
		ys[k] = srcs[i].Pos.Y
		te[k] = pings[i].Te
		tr[k] = pings[i].Tr
		eDx[k] = srcs[i].EDx
		eC[k] = srcs[i].EC
	}

	w, err := NewWeights(opt.EDt, eDx, eC)
	if err != nil {
		return nil, fmt.Errorf("NewWeights() failed, err=%v", err)
	}
	obj, err := NewObjective(lay, w)
	if err != nil {
		return nil, fmt.Errorf("NewObjective() failed, err=%v", err)
	}
	con, err := NewConstraints(lay, xs, ys, opt.Cb, te, tr)
	if err != nil {
		return nil, fmt.Errorf("NewConstraints() failed, err=%v", err)
	}

	// Initial guess: nuisance parameters start at zero
	pos0 := buildInitGuess(xs, ys, te, tr, opt)
	theta0 := lay.Encode(Params{
		X:  pos0.X,
		Y:  pos0.Y,
		Dx: make([]float64, lay.N),
		Dy: make([]float64, lay.N),
		Dc: make([]float64, lay.N),
	})
	PrintD(2, "\tpos(init): %s\n", pos0.String())

	sol, err := SolveSqp(ctx, obj, con, theta0, opt.Sqp)
	if err != nil {
		return nil, fmt.Errorf("SolveSqp() failed, err=%v", err)
	}

	// Decode the solution vector
	prm := lay.Decode(sol.Theta)
	rslt := &PosSol{
		Pos:    PosXY{X: prm.X, Y: prm.Y},
		Dt:     prm.Dt,
		Srcs:   det,
		Dx:     prm.Dx,
		Dy:     prm.Dy,
		Dc:     prm.Dc,
		Status: sol.Status,
		Iter:   sol.Iter,
		Cost:   sol.Cost,
		MaxRes: sol.MaxRes,
		Merit:  sol.Merit,
	}
	PrintD(2, "\tpos(final): %s, dt=%.6e, status=%s, iter=%d\n", rslt.Pos.String(), rslt.Dt, rslt.Status, rslt.Iter)

	return rslt, nil
}

// selectDetected returns the indices of the sources entering the solve
func selectDetected(srcs []Source, exSrcs []int) []int {
	det := []int{}
	for i, s := range srcs {
		if !s.Det {
			continue
		}
		if exSrcs != nil && slices.Contains(exSrcs, i) {
			PrintD(3, "\tsrc %d: excluded\n", i)
			continue
		}
		det = append(det, i)
	}
	return det
}

// buildInitGuess returns the initial position: the caller override when
// given, otherwise linearized multilateration over the raw ranges
func buildInitGuess(xs, ys, te, tr []float64, opt *PosOpt) PosXY {
	if opt.InitPos != nil {
		return *opt.InitPos
	}
	rng := make([]float64, len(xs))
	for i := range rng {
		rng[i] = opt.Cb * (tr[i] - te[i])
	}
	return initPosGuess(xs, ys, rng)
}
