package meadow

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/meadow/grassrt/rt/core"
)

// Camera is the viewer the grass is culled against. View and Proj are
// refreshed by the camera system every frame.
type Camera struct {
	Eye        mgl32.Vec3
	Target     mgl32.Vec3
	Up         mgl32.Vec3
	FovDeg     float32
	Aspect     float32
	Near       float32
	Far        float32
	OrbitSpeed float32 // radians per second around Target's vertical axis

	View mgl32.Mat4
	Proj mgl32.Mat4
}

// Frame packs the camera matrices with the step timing.
func (c *Camera) Frame(dt, total float32) core.Frame {
	return core.NewFrame(c.View, c.Proj, c.Near, c.Far, dt, total)
}

func (c *Camera) update(dt float32) {
	if c.OrbitSpeed != 0 && dt > 0 {
		rot := mgl32.HomogRotate3DY(c.OrbitSpeed * dt)
		offset := rot.Mul4x1(c.Eye.Sub(c.Target).Vec4(0)).Vec3()
		c.Eye = c.Target.Add(offset)
	}
	c.View = mgl32.LookAtV(c.Eye, c.Target, c.Up)
	c.Proj = mgl32.Perspective(mgl32.DegToRad(c.FovDeg), c.Aspect, c.Near, c.Far)
}

// Yaw is the horizontal heading of the eye around the target in radians.
func (c *Camera) Yaw() float32 {
	d := c.Eye.Sub(c.Target)
	return float32(math.Atan2(float64(d.X()), float64(d.Z())))
}

type CameraModule struct {
	Camera Camera
}

func (mod CameraModule) Install(app *App, cmd *Commands) {
	cam := mod.Camera
	if cam.Up.Len() == 0 {
		cam.Up = mgl32.Vec3{0, 1, 0}
	}
	cam.update(0)
	cmd.AddResources(&cam)

	app.UseSystem(
		System(cameraSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
}

func cameraSystem(cam *Camera, t *Time) {
	cam.update(t.DtSeconds())
}
