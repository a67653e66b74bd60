// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.12
//

package gofloat

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

//-------------------------------------------------------------------
// PosXY
//-------------------------------------------------------------------

// PosXY is a horizontal position in a local Cartesian frame [m].
// Depth is carried by the surrounding scenario and not used in the solve.
type PosXY struct {
	X float64
	Y float64
}

func NewPosXY(x, y float64) *PosXY {
	return &PosXY{
		X: x,
		Y: y,
	}
}

// Horizontal distance to q
func (p *PosXY) Dist(q PosXY) float64 {
	return math.Sqrt(SQ(p.X-q.X) + SQ(p.Y-q.Y))
}

// Bearing of q seen from p, measured from +X toward +Y
func (p *PosXY) Bearing(q PosXY) float64 {
	return math.Atan2(q.Y-p.Y, q.X-p.X)
}

// Read from string ("x y" in meters, for command arguments)
func (p *PosXY) Set(s string) error {
	var err error
	f := strings.Fields(s)
	if len(f) < 2 {
		return fmt.Errorf("invalid position string: %q", s)
	}
	p.X, err = strconv.ParseFloat(f[0], 64)
	if err != nil {
		return err
	}
	p.Y, err = strconv.ParseFloat(f[1], 64)
	if err != nil {
		return err
	}
	return nil
}

// Convert to string
func (p *PosXY) String() string {
	return fmt.Sprintf("%.3f %.3f", p.X, p.Y)
}
