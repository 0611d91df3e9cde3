package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// GradientNoise2D samples smooth gradient noise over the ground plane.
// Each lattice corner of the cell around p contributes the dot product of a
// hashed unit gradient with the offset to p, weighted by a quintic falloff in
// both axes. The value is zero on lattice points and continuous everywhere.
func GradientNoise2D(p mgl32.Vec2) float32 {
	cell := mgl32.Vec2{floor32(p[0]), floor32(p[1])}

	var sum float32
	for dy := float32(0); dy <= 1; dy++ {
		for dx := float32(0); dx <= 1; dx++ {
			corner := cell.Add(mgl32.Vec2{dx, dy})
			d := p.Sub(corner)
			sum += latticeGradient(corner).Dot(d) * falloff(d[0]) * falloff(d[1])
		}
	}
	return sum
}

// latticeGradient hashes a lattice corner into a unit gradient.
func latticeGradient(c mgl32.Vec2) mgl32.Vec2 {
	x := float64(c[0]*127.1 + c[1]*311.7)
	y := float64(c[0]*269.5 + c[1]*183.3)
	g := mgl32.Vec2{
		fract(math.Sin(x)*43758.5453)*2 - 1,
		fract(math.Sin(y)*43758.5453)*2 - 1,
	}
	l := g.Len()
	if l == 0 {
		return mgl32.Vec2{1, 0}
	}
	return g.Mul(1 / l)
}

// falloff is 1 - 6t^5 + 15t^4 - 10t^3 over |t|.
func falloff(t float32) float32 {
	if t < 0 {
		t = -t
	}
	return 1 - t*t*t*(t*(t*6-15)+10)
}

func fract(v float64) float32 {
	return float32(v - math.Floor(v))
}

func floor32(v float32) float32 {
	return float32(math.Floor(float64(v)))
}
