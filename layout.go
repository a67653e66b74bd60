// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

// Implements the mapping between the flat parameter vector of the solver
// and the semantic estimation quantities.

package gofloat

// Fixed indices of the leading scalar parameters
const (
	IxX  = 0 // receiver x position [m]
	IxY  = 1 // receiver y position [m]
	IxDt = 2 // receiver clock offset [s]
)

// Layout defines the index assignment of the parameter vector
//
//	[x, y, dt, dx_0..dx_N-1, dy_0..dy_N-1, dc_0..dc_N-1]
//
// for N detected sources. The mapping is fixed for the lifetime of one solve.
type Layout struct {
	N int // number of detected sources
}

func NewLayout(n int) Layout {
	return Layout{N: n}
}

// Dim returns the parameter vector dimension (3 + 3N)
func (l Layout) Dim() int {
	return 3 + 3*l.N
}

// IxDx returns the index of the transducer x offset of detected source i [m]
func (l Layout) IxDx(i int) int {
	return 3 + i
}

// IxDy returns the index of the transducer y offset of detected source i [m]
func (l Layout) IxDy(i int) int {
	return 3 + l.N + i
}

// IxDc returns the index of the celerity anomaly of detected source i [m/s]
func (l Layout) IxDc(i int) int {
	return 3 + 2*l.N + i
}

// Params holds the decoded estimation quantities
type Params struct {
	X  float64   // receiver x position [m]
	Y  float64   // receiver y position [m]
	Dt float64   // receiver clock offset [s]
	Dx []float64 // transducer x offsets, one per detected source [m]
	Dy []float64 // transducer y offsets, one per detected source [m]
	Dc []float64 // celerity anomalies, one per detected source [m/s]
}

// Encode packs p into a fresh flat vector of length Dim()
func (l Layout) Encode(p Params) []float64 {
	v := make([]float64, l.Dim())
	v[IxX] = p.X
	v[IxY] = p.Y
	v[IxDt] = p.Dt
	for i := 0; i < l.N; i++ {
		v[l.IxDx(i)] = p.Dx[i]
		v[l.IxDy(i)] = p.Dy[i]
		v[l.IxDc(i)] = p.Dc[i]
	}
	return v
}

// Decode unpacks a flat vector of length Dim() into its semantic quantities
func (l Layout) Decode(v []float64) Params {
	p := Params{
		X:  v[IxX],
		Y:  v[IxY],
		Dt: v[IxDt],
		Dx: make([]float64, l.N),
		Dy: make([]float64, l.N),
		Dc: make([]float64, l.N),
	}
	for i := 0; i < l.N; i++ {
		p.Dx[i] = v[l.IxDx(i)]
		p.Dy[i] = v[l.IxDy(i)]
		p.Dc[i] = v[l.IxDc(i)]
	}
	return p
}
