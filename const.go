// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.12
//

package gofloat

const (
	PI = 3.1415926535897932 // Pi
	Cw = 1500.0             // Nominal sound speed in seawater [m/s]
)
