package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CullReason records which predicate removed a blade.
type CullReason uint8

const (
	NotCulled CullReason = iota
	CulledOrientation
	CulledDistance
	CulledFrustum
)

func (r CullReason) String() string {
	switch r {
	case NotCulled:
		return "visible"
	case CulledOrientation:
		return "orientation"
	case CulledDistance:
		return "distance"
	case CulledFrustum:
		return "frustum"
	}
	return "unknown"
}

// CullConfig toggles the individual predicates.
// With CullAllPostPhysics set, orientation and distance are evaluated after
// physics together with the frustum test, so every blade is simulated.
type CullConfig struct {
	Orientation        bool
	Frustum            bool
	Distance           bool
	CullAllPostPhysics bool

	OrientationThreshold float32
	MaxDistance          float32
	FrustumTolerance     float32
}

func DefaultCullConfig() CullConfig {
	return CullConfig{
		Orientation:          true,
		Frustum:              true,
		Distance:             true,
		OrientationThreshold: 0.97,
		MaxDistance:          50,
		FrustumTolerance:     0.5,
	}
}

// OrientationCulled is true when the camera looks along the blade's width
// axis, i.e. the blade is seen edge-on.
func OrientationCulled(b Blade, v Viewer, threshold float32) bool {
	d := v.Forward.Dot(b.Bitangent())
	if d < 0 {
		d = -d
	}
	return d > threshold
}

// DistanceCulled measures the camera-to-base distance in the blade's ground plane.
func DistanceCulled(b Blade, v Viewer, maxDistance float32) bool {
	up := b.UpDir()
	d := b.Base().Sub(v.Position)
	return d.Sub(up.Mul(d.Dot(up))).Len() > maxDistance
}

// FrustumCulled keeps the blade if any of base, tip or weighted midpoint
// is inside the frustum.
func FrustumCulled(b Blade, v Viewer, tolerance float32) bool {
	return !inFrustum(b.Base(), v, tolerance) &&
		!inFrustum(b.Tip(), v, tolerance) &&
		!inFrustum(b.MidSample(), v, tolerance)
}

func inFrustum(p mgl32.Vec3, v Viewer, tolerance float32) bool {
	wp := p.Vec4(1)
	clip := v.ViewProj.Mul4x1(wp)
	h := clip.W() + tolerance
	depth := -v.View.Mul4x1(wp).Z()
	return clip.X() >= -h && clip.X() <= h &&
		clip.Y() >= -h && clip.Y() <= h &&
		depth >= v.Near && depth <= v.Far
}

// PrePhysics runs on the unmodified input blade.
func (c CullConfig) PrePhysics(b Blade, v Viewer) CullReason {
	if c.CullAllPostPhysics {
		return NotCulled
	}
	return c.viewCull(b, v)
}

// PostPhysics runs on the relaxed blade.
func (c CullConfig) PostPhysics(b Blade, v Viewer) CullReason {
	if c.CullAllPostPhysics {
		if r := c.viewCull(b, v); r != NotCulled {
			return r
		}
	}
	if c.Frustum && FrustumCulled(b, v, c.FrustumTolerance) {
		return CulledFrustum
	}
	return NotCulled
}

func (c CullConfig) viewCull(b Blade, v Viewer) CullReason {
	if c.Orientation && OrientationCulled(b, v, c.OrientationThreshold) {
		return CulledOrientation
	}
	if c.Distance && DistanceCulled(b, v, c.MaxDistance) {
		return CulledDistance
	}
	return NotCulled
}
