// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.18
//

// Implements the synthetic scenario generator. It is the data supplier for
// CalcPos: the core never depends on how the truth values were produced,
// only on the resulting known inputs.

package gofloat

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ScnOpt contains parameters for synthetic scenario generation
type ScnOpt struct {
	NumSrc int     // Number of sources placed on a ring
	Radius float64 // Ring radius around the nominal float position [m]
	Center PosXY   // Nominal float position
	Drift  float64 // Rms of the true float position offset from nominal [m]
	Cb     float64 // Background celerity [m/s]
	EDt    float64 // Rms clock offset [s]
	EDx    float64 // Rms transducer offset per axis [m]
	EC     float64 // Rms celerity anomaly [m/s]
	Te     float64 // Common emission time [s]
	Seed   uint64  // Seed of the truth draws
}

// NewScnOpt creates a new ScnOpt with default values.
// The geometry is kilometer scaled, matching a typical mooring layout.
func NewScnOpt() *ScnOpt {
	return &ScnOpt{
		NumSrc: 4,
		Radius: 5e3, // 5 km ring
		Center: PosXY{X: 0, Y: 0},
		Drift:  2e3, // True position up to a few km off nominal
		Cb:     Cw,
		EDt:    1e-2, // 10 ms clock error
		EDx:    5.0,  // 5 m transducer offset
		EC:     2.0,  // 2 m/s celerity anomaly
		Te:     0,
		Seed:   1,
	}
}

// Truth holds the generating values of a scenario, for evaluation only
type Truth struct {
	Pos PosXY     // True float position
	Dt  float64   // True clock offset [s]
	Dx  []float64 // True transducer x offsets, one per source [m]
	Dy  []float64 // True transducer y offsets, one per source [m]
	Dc  []float64 // True celerity anomalies, one per source [m/s]
}

// Scenario bundles the known inputs of one solve and the truth behind them
type Scenario struct {
	Srcs  []Source // Source records (nominal positions, priors, detection)
	Pings []Ping   // Travel time measurements, aligned with Srcs
	Cb    float64  // Background celerity [m/s]
	EDt   float64  // Clock offset prior [s]
	Truth Truth    // Generating truth (not an input of the solve)
}

// GenScenario draws a random truth and synthesizes exact travel times.
//
// Sources sit on a ring around the nominal float position; the true float
// position, clock offset, transducer offsets and celerity anomalies are
// drawn from zero-mean Gaussians with the configured rms values. The raw
// reception time absorbs the clock offset:
//
//	tr_i = te_i + dist_i/(cb + dc_i) - dt
//
// so that tr_i + dt - te_i is the true travel time.
func GenScenario(opt *ScnOpt) *Scenario {
	if opt == nil {
		opt = NewScnOpt()
	}

	src := rand.NewSource(opt.Seed)
	drift := distuv.Normal{Mu: 0, Sigma: opt.Drift, Src: src}
	clk := distuv.Normal{Mu: 0, Sigma: opt.EDt, Src: src}
	trd := distuv.Normal{Mu: 0, Sigma: opt.EDx, Src: src}
	cel := distuv.Normal{Mu: 0, Sigma: opt.EC, Src: src}

	t := Truth{
		Pos: PosXY{X: opt.Center.X + drift.Rand(), Y: opt.Center.Y + drift.Rand()},
		Dt:  clk.Rand(),
		Dx:  make([]float64, opt.NumSrc),
		Dy:  make([]float64, opt.NumSrc),
		Dc:  make([]float64, opt.NumSrc),
	}

	scn := &Scenario{
		Srcs:  make([]Source, opt.NumSrc),
		Pings: make([]Ping, opt.NumSrc),
		Cb:    opt.Cb,
		EDt:   opt.EDt,
	}

	for i := 0; i < opt.NumSrc; i++ {
		ang := ToRad(360 * float64(i) / float64(opt.NumSrc))
		nom := PosXY{
			X: opt.Center.X + opt.Radius*math.Cos(ang),
			Y: opt.Center.Y + opt.Radius*math.Sin(ang),
		}
		t.Dx[i] = trd.Rand()
		t.Dy[i] = trd.Rand()
		t.Dc[i] = cel.Rand()

		scn.Srcs[i] = Source{
			Pos: nom,
			EDx: opt.EDx,
			EC:  opt.EC,
			Det: true,
		}

		// True transducer position and exact one-way travel time
		xdc := PosXY{X: nom.X + t.Dx[i], Y: nom.Y + t.Dy[i]}
		dist := xdc.Dist(t.Pos)
		scn.Pings[i] = Ping{
			Te: opt.Te,
			Tr: opt.Te + dist/(opt.Cb+t.Dc[i]) - t.Dt,
		}
	}
	scn.Truth = t

	return scn
}
