// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.18
//

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	m "github.com/mkhts/gofloat"
)

func main() {

	// Parse command line arguments
	args, err := parseArgs()
	if err != nil {
		flag.Usage()
		os.Exit(1)
	}

	// Run the main application
	if err := runApplication(args); err != nil {
		m.PrintE(err)
		os.Exit(1)
	}
}

// Main application processing
func runApplication(args cmdOpt) error {

	// Generate a synthetic scenario
	scn := m.GenScenario(args.scn)

	if m.DBG_ >= 1 {
		m.PrintA("--- scenario (seed=%d) ---\n", args.scn.Seed)
		for i, s := range scn.Srcs {
			m.PrintA("src %d: pos=(%s), e_dx=%.1f, e_c=%.1f, te=%.3f, tr=%.6f\n",
				i, s.Pos.String(), s.EDx, s.EC, scn.Pings[i].Te, scn.Pings[i].Tr)
		}
		m.PrintA("truth: pos=(%s), dt=%.6e\n", scn.Truth.Pos.String(), scn.Truth.Dt)
	}

	// Run one estimation
	opt := setPosOpt(&args, scn)
	sol, err := m.CalcPos(context.Background(), scn.Srcs, scn.Pings, opt)
	if err != nil {
		return fmt.Errorf("CalcPos() failed: %w", err)
	}

	// Output results
	printSol(scn, sol)

	return nil
}

// Output the estimation result
func printSol(scn *m.Scenario, sol *m.PosSol) {
	fmt.Printf("status    : %s (%d iterations, cost=%.6e, max|r|=%.3e)\n", sol.Status, sol.Iter, sol.Cost, sol.MaxRes)
	fmt.Printf("pos  true : %14.3f %14.3f\n", scn.Truth.Pos.X, scn.Truth.Pos.Y)
	fmt.Printf("pos  est  : %14.3f %14.3f (err %.3f m, brg %.1f deg)\n",
		sol.Pos.X, sol.Pos.Y, sol.Pos.Dist(scn.Truth.Pos), m.ToDeg(scn.Truth.Pos.Bearing(sol.Pos)))
	fmt.Printf("dt   true : %14.6e s\n", scn.Truth.Dt)
	fmt.Printf("dt   est  : %14.6e s\n", sol.Dt)
	for k, i := range sol.Srcs {
		fmt.Printf("src %d     : dx=%8.3f (%8.3f), dy=%8.3f (%8.3f), dc=%8.3f (%8.3f)\n",
			i, sol.Dx[k], scn.Truth.Dx[i], sol.Dy[k], scn.Truth.Dy[i], sol.Dc[k], scn.Truth.Dc[i])
	}
}

// Structure to hold command line argument information
type cmdOpt struct {
	scn     *m.ScnOpt
	exSrcs  m.SrcVar
	initPos m.PosXY
	hasInit bool
	maxIter int
	epsGrad float64
	epsFeas float64
}

// Parse command line arguments
func parseArgs() (a cmdOpt, err error) {
	flag.Usage = func() {
		m.PrintA(`
[Usage]
	%s [Options]

Generates a synthetic acoustic geolocation scenario and estimates the
float position from the one-way travel times.

[Options]
`, filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	sOpt := m.NewScnOpt()
	qOpt := m.NewSqpOpt()
	flag.IntVar(&sOpt.NumSrc, "n", sOpt.NumSrc, "Number of sources placed on the ring.")
	flag.Float64Var(&sOpt.Radius, "r", sOpt.Radius, "Ring radius around the nominal float position [m].")
	flag.Float64Var(&sOpt.Drift, "dr", sOpt.Drift, "Rms offset of the true float position from nominal [m].")
	flag.Float64Var(&sOpt.Cb, "c", sOpt.Cb, "Background celerity [m/s].")
	flag.Float64Var(&sOpt.EDt, "edt", sOpt.EDt, "Rms clock offset [s].")
	flag.Float64Var(&sOpt.EDx, "edx", sOpt.EDx, "Rms transducer offset per axis [m].")
	flag.Float64Var(&sOpt.EC, "ec", sOpt.EC, "Rms celerity anomaly [m/s].")
	flag.Uint64Var(&sOpt.Seed, "s", sOpt.Seed, "Seed of the truth draws.")
	flag.Var(&a.exSrcs, "ex", "List of source indices to exclude. Comma-separated without spaces like 0,2.")
	var initPos string
	flag.StringVar(&initPos, "i", "", "Initial position guess override. Enclose in quotes like -i \"1000 -2000\".")
	flag.IntVar(&a.maxIter, "mi", qOpt.MaxIter, "Solver iteration cap.")
	flag.Float64Var(&a.epsGrad, "eg", qOpt.EpsGrad, "Convergence tolerance on the projected gradient norm, relative to the gradient scale.")
	flag.Float64Var(&a.epsFeas, "ef", qOpt.EpsFeas, "Convergence tolerance on the maximum constraint residual.")
	var dbg int
	flag.IntVar(&dbg, "x", 0, "Debug information display. 0(OFF), 1(display), 2(detailed), 3(more detailed), 4(most detailed)")
	flag.Parse()
	if flag.NArg() != 0 {
		return a, fmt.Errorf("unexpected arguments: %v", flag.Args())
	}
	a.scn = sOpt
	if len(initPos) > 0 {
		if err = a.initPos.Set(initPos); err != nil {
			return a, err
		}
		a.hasInit = true
	}
	m.DBG_ = dbg
	return
}

func setPosOpt(args *cmdOpt, scn *m.Scenario) *m.PosOpt {
	opt := m.NewPosOpt()
	opt.Cb = scn.Cb
	opt.EDt = scn.EDt
	opt.ExSrcs = args.exSrcs
	if args.hasInit {
		opt.InitPos = m.NewPosXY(args.initPos.X, args.initPos.Y)
	}
	opt.Sqp.MaxIter = args.maxIter
	opt.Sqp.EpsGrad = args.epsGrad
	opt.Sqp.EpsFeas = args.epsFeas
	return opt
}
