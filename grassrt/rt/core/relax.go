package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Relax projects the blade back onto a plausible shape after its tip moved:
// clamp the tip above the ground plane, place v1 from the tip's horizontal
// reach, then rescale both segments so the curve length tracks the height.
func Relax(b *Blade) {
	v0 := b.Base()
	v2 := b.Tip()
	up := b.UpDir()
	h := b.Height()

	d := v2.Sub(v0)
	if below := d.Dot(up); below < 0 {
		v2 = v2.Sub(up.Mul(below))
		d = v2.Sub(v0)
	}

	lProj := d.Sub(up.Mul(d.Dot(up))).Len()
	ratio := lProj / h
	v1 := v0.Add(up.Mul(h * max(1-ratio, 0.05*max(ratio, 1))))

	r := h / CurveLength(v0, v1, v2)
	v1r := v0.Add(v1.Sub(v0).Mul(r))
	v2r := v1r.Add(v2.Sub(v1).Mul(r))

	b.SetMid(v1r)
	b.SetTip(v2r)
}

// CurveLength approximates the arc length of the quadratic curve as the mean
// of the chord and the control polygon length.
func CurveLength(v0, v1, v2 mgl32.Vec3) float32 {
	l0 := v2.Sub(v0).Len()
	l1 := v1.Sub(v0).Len() + v2.Sub(v1).Len()
	return (l0 + l1) / 2
}

// Length reports CurveLength for the blade's current control points.
func (b Blade) Length() float32 {
	return CurveLength(b.Base(), b.Mid(), b.Tip())
}

// Step runs the force model and relaxation for one blade in place.
func Step(b *Blade, dt, totalTime float32, p ForceParams) {
	b.SetTip(b.Tip().Add(ExternalForces(*b, dt, totalTime, p)))
	Relax(b)
}
