package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ForceParams holds the environmental constants shared by every blade.
type ForceParams struct {
	Mass              float32
	GravityDir        mgl32.Vec3
	GravityAccel      float32
	FrontGravityRatio float32

	WindScrollSpeed mgl32.Vec2 // ground-plane units per second
	WindStrength    mgl32.Vec2 // (x, z)
	WindNoiseScale  float32
	WindAmplitude   float32
}

func DefaultForceParams() ForceParams {
	return ForceParams{
		Mass:              0.01,
		GravityDir:        mgl32.Vec3{0, 1, 0},
		GravityAccel:      -1.0,
		FrontGravityRatio: 0.25,
		WindScrollSpeed:   mgl32.Vec2{1.0, 0.5},
		WindStrength:      mgl32.Vec2{15, 0},
		WindNoiseScale:    0.5,
		WindAmplitude:     0.5,
	}
}

// Recovery pulls the tip back towards its resting position with half the
// blade stiffness as the spring constant.
func Recovery(b Blade) mgl32.Vec3 {
	return b.RestTip().Sub(b.Tip()).Mul(b.Stiffness() * 0.5)
}

// Gravity is the environmental term plus a front lean proportional to it.
func Gravity(b Blade, p ForceParams) mgl32.Vec3 {
	env := p.GravityDir.Mul(p.Mass * p.GravityAccel)
	front := b.Front().Mul(p.FrontGravityRatio * env.Len())
	return env.Add(front)
}

// Wind samples the scrolled noise field at the blade base and attenuates it
// by how aligned the blade already is with the wind and how upright it stands.
func Wind(b Blade, totalTime float32, p ForceParams) mgl32.Vec3 {
	base := b.Base()
	sample := mgl32.Vec2{base.X(), base.Z()}.
		Add(p.WindScrollSpeed.Mul(totalTime)).
		Mul(p.WindNoiseScale)
	w := p.WindStrength.Mul(GradientNoise2D(sample) * p.WindAmplitude)
	wind := mgl32.Vec3{w.X(), 0, w.Y()}

	windLen := wind.Len()
	d := b.Tip().Sub(base)
	dLen := d.Len()
	if windLen == 0 || dLen == 0 {
		return mgl32.Vec3{}
	}

	align := wind.Mul(1 / windLen).Dot(d.Mul(1 / dLen))
	if align < 0 {
		align = -align
	}
	fd := 1 - align
	fr := d.Dot(b.UpDir()) / b.Height()
	return wind.Mul(fd * fr)
}

// ExternalForces sums recovery, gravity and wind and scales by dt. The result
// is a displacement added straight to v2; no velocity is kept between steps.
func ExternalForces(b Blade, dt, totalTime float32, p ForceParams) mgl32.Vec3 {
	f := Recovery(b).Add(Gravity(b, p)).Add(Wind(b, totalTime, p))
	return f.Mul(dt)
}
