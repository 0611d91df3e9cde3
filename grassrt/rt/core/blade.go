package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Blade matches the WGSL Blade struct in grass_compute.wgsl.
// struct Blade { v0: vec4<f32>; v1: vec4<f32>; v2: vec4<f32>; up: vec4<f32>; }
//
// The w channels carry the per-blade scalars:
//
//	v0.w orientation angle (radians about up)
//	v1.w height
//	v2.w width
//	up.w stiffness
type Blade struct {
	V0 mgl32.Vec4
	V1 mgl32.Vec4
	V2 mgl32.Vec4
	Up mgl32.Vec4
}

// BladeStride is the size in bytes of one Blade in GPU buffers.
const BladeStride = 64

// NewBlade builds a blade in its resting shape: both the middle and the tip
// control point sit at base + height*up, which is the fixed point of Relax.
func NewBlade(base, up mgl32.Vec3, angle, height, width, stiffness float32) Blade {
	up = up.Normalize()
	rest := base.Add(up.Mul(height))
	return Blade{
		V0: base.Vec4(angle),
		V1: rest.Vec4(height),
		V2: rest.Vec4(width),
		Up: up.Vec4(stiffness),
	}
}

func (b Blade) Base() mgl32.Vec3   { return b.V0.Vec3() }
func (b Blade) Mid() mgl32.Vec3    { return b.V1.Vec3() }
func (b Blade) Tip() mgl32.Vec3    { return b.V2.Vec3() }
func (b Blade) UpDir() mgl32.Vec3  { return b.Up.Vec3() }
func (b Blade) Angle() float32     { return b.V0[3] }
func (b Blade) Height() float32    { return b.V1[3] }
func (b Blade) Width() float32     { return b.V2[3] }
func (b Blade) Stiffness() float32 { return b.Up[3] }

// SetMid moves the middle control point and keeps the height channel.
func (b *Blade) SetMid(p mgl32.Vec3) {
	b.V1 = p.Vec4(b.V1[3])
}

// SetTip moves the tip control point and keeps the width channel.
func (b *Blade) SetTip(p mgl32.Vec3) {
	b.V2 = p.Vec4(b.V2[3])
}

// Bitangent is the in-plane width axis of the blade face.
func (b Blade) Bitangent() mgl32.Vec3 {
	a := float64(b.Angle())
	return mgl32.Vec3{float32(math.Cos(a)), 0, float32(math.Sin(a))}.Normalize()
}

// Front is the face normal the blade leans towards under front gravity.
func (b Blade) Front() mgl32.Vec3 {
	return b.Bitangent().Cross(b.UpDir()).Normalize()
}

// RestTip is the undeformed tip position v0 + height*up.
func (b Blade) RestTip() mgl32.Vec3 {
	return b.Base().Add(b.UpDir().Mul(b.Height()))
}

// MidSample is the weighted curve midpoint used by the frustum test.
func (b Blade) MidSample() mgl32.Vec3 {
	return b.Base().Mul(0.25).Add(b.Mid().Mul(0.5)).Add(b.Tip().Mul(0.25))
}
