package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Frame is the read-only per-step input: camera matrices plus timing.
// Near and Far are the view-space depth range used by the frustum test and
// must match the projection.
type Frame struct {
	View      mgl32.Mat4
	Proj      mgl32.Mat4
	InvView   mgl32.Mat4
	Near      float32
	Far       float32
	DeltaTime float32
	TotalTime float32
}

// NewFrame fills InvView from view.
func NewFrame(view, proj mgl32.Mat4, near, far, dt, total float32) Frame {
	return Frame{
		View:      view,
		Proj:      proj,
		InvView:   view.Inv(),
		Near:      near,
		Far:       far,
		DeltaTime: dt,
		TotalTime: total,
	}
}

// Viewer holds the camera quantities every lane needs, derived once per step.
type Viewer struct {
	View     mgl32.Mat4
	ViewProj mgl32.Mat4
	Position mgl32.Vec3
	Forward  mgl32.Vec3
	Near     float32
	Far      float32
}

func (f Frame) Viewer() Viewer {
	return Viewer{
		View:     f.View,
		ViewProj: f.Proj.Mul4(f.View),
		Position: f.InvView.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3(),
		// camera looks down -Z in view space
		Forward: f.InvView.Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3().Normalize(),
		Near:    f.Near,
		Far:     f.Far,
	}
}
