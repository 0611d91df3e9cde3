// Package meadow hosts the grass simulation: an App that runs modules'
// systems stage by stage over shared resources, and the modules that drive
// the blade kernel, the camera and the run's outputs.
package meadow

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/meadow/config"
)

// NewSimulationApp wires the standard module set for cfg. Extra modules are
// installed after the standard ones.
func NewSimulationApp(cfg *config.Config, extra ...Module) *App {
	cam := cfg.Camera
	step := time.Duration(cfg.Run.FixedStep * float64(time.Second))

	b := NewAppBuilder().
		UseStates(Simulating, Finished).
		UseModule(
			LoggingModule{Prefix: "meadow", Debug: cfg.Run.Debug, JSON: cfg.Run.JSONLogs},
			TimeModule{FixedStep: step},
			CameraModule{Camera: Camera{
				Eye:        mgl32.Vec3(cam.Eye),
				Target:     mgl32.Vec3(cam.Target),
				FovDeg:     cam.FovDeg,
				Aspect:     cam.Aspect,
				Near:       cam.Near,
				Far:        cam.Far,
				OrbitSpeed: cam.OrbitSpeed,
			}},
			GrassModuleFromConfig(cfg),
			TelemetryModule{Dir: cfg.Telemetry.Dir, Every: cfg.Telemetry.Every, Config: cfg},
			FrameBudgetModule{Frames: uint64(cfg.Run.Frames), Final: Finished},
		)
	if cfg.Preview.Path != "" {
		b.UseModule(PreviewModule{
			Path:   cfg.Preview.Path,
			Size:   cfg.Preview.Size,
			Extent: cfg.Preview.Extent,
			Center: mgl32.Vec2(cfg.Field.Center),
		})
	}
	return b.UseModule(extra...).Build()
}
