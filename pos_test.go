// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.19
//

package gofloat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPosXYDistBearing(t *testing.T) {
	assert := assert.New(t)

	p := NewPosXY(0, 0)
	assert.InDelta(5, p.Dist(PosXY{X: 3, Y: 4}), 1e-12)

	// Bearing measured from +X toward +Y
	assert.InDelta(90.0, ToDeg(p.Bearing(PosXY{X: 0, Y: 10})), 1e-9)
	assert.InDelta(45.0, ToDeg(p.Bearing(PosXY{X: 2, Y: 2})), 1e-9)
	assert.InDelta(180.0, ToDeg(p.Bearing(PosXY{X: -7, Y: 0})), 1e-9)
}

func TestAngleConv(t *testing.T) {
	assert := assert.New(t)
	assert.InDelta(PI/2, ToRad(90), 1e-12)
	assert.InDelta(180.0, ToDeg(PI), 1e-12)
	assert.InDelta(123.4, ToDeg(ToRad(123.4)), 1e-9)
}

func TestPosXYSet(t *testing.T) {
	assert := assert.New(t)

	var p PosXY
	assert.NoError(p.Set("1200.5 -300"))
	assert.InDelta(1200.5, p.X, 1e-12)
	assert.InDelta(-300.0, p.Y, 1e-12)
	assert.Equal("1200.500 -300.000", p.String())

	assert.Error(p.Set("12"))
	assert.Error(p.Set("a b"))
}
