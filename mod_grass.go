package meadow

import (
	"fmt"
	"time"

	"github.com/gekko3d/meadow/config"
	"github.com/gekko3d/meadow/grassrt/rt/core"
	"github.com/gekko3d/meadow/grassrt/rt/field"
	"github.com/gekko3d/meadow/grassrt/rt/gpu"
	"github.com/gekko3d/meadow/grassrt/rt/kernel"
)

// Grass owns the blade population, the visible set the kernel compacts into
// and the kernel itself.
type Grass struct {
	Blades  []core.Blade
	Visible *core.VisibleSet

	// Backend is the kernel that actually runs, after any fallback.
	Backend   string
	LastStats core.StepStats
	LastStep  time.Duration
	Steps     uint64

	mod GrassModule
	sim kernel.Simulator
}

// Simulator returns the running kernel, nil before setup or after teardown.
func (g *Grass) Simulator() kernel.Simulator { return g.sim }

// Close releases the kernel. Safe to call more than once.
func (g *Grass) Close() {
	if g.sim != nil {
		g.sim.Close()
		g.sim = nil
	}
}

// GrassModule simulates a blade field every frame while the app is in
// Simulating. It needs the Time and Camera resources and a stateful app.
// When Blades is nil the population is generated from Field and Seed.
type GrassModule struct {
	Field  field.Params
	Seed   int64
	Blades []core.Blade

	Forces core.ForceParams
	Cull   core.CullConfig
	Kernel config.KernelConfig
}

// GrassModuleFromConfig maps the loaded configuration onto the module.
func GrassModuleFromConfig(cfg *config.Config) GrassModule {
	return GrassModule{
		Field:  cfg.FieldParams(),
		Seed:   cfg.Field.Seed,
		Forces: cfg.ForceParams(),
		Cull:   cfg.CullConfig(),
		Kernel: cfg.Kernel,
	}
}

func (mod GrassModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Grass{mod: mod})

	app.UseSystem(
		System(grassSetupSystem).
			InStage(Prelude).
			InState(OnEnter(Simulating)),
	)
	app.UseSystem(
		System(grassStepSystem).
			InStage(Update).
			InState(OnExecute(Simulating)),
	)
	app.UseSystem(
		System(grassTeardownSystem).
			InStage(Finale).
			InState(OnEnter(Finished)),
	)
}

func grassSetupSystem(grass *Grass, cmd *Commands) error {
	log := cmd.Logger()
	mod := grass.mod

	blades := mod.Blades
	if blades == nil {
		var err error
		blades, err = field.Generate(mod.Field, mod.Seed)
		if err != nil {
			return fmt.Errorf("generating field: %w", err)
		}
	}
	if err := core.ValidatePopulation(blades); err != nil {
		return err
	}

	sim, backend, err := newSimulator(mod, cmd.app)
	if err != nil {
		return err
	}

	grass.Blades = blades
	grass.Visible = core.NewVisibleSet(len(blades))
	grass.sim = sim
	grass.Backend = backend
	log.Infof("grass ready: %d blades on %s backend", len(blades), backend)
	return nil
}

// newSimulator builds the configured kernel. A GPU that cannot be opened
// falls back to the CPU kernel.
func newSimulator(mod GrassModule, app *App) (kernel.Simulator, string, error) {
	slogger := app.slogger()

	switch mod.Kernel.Backend {
	case config.BackendGPU:
		k, err := gpu.New(mod.Forces, mod.Cull, gpu.WithLogger(slogger))
		if err == nil {
			return k, config.BackendGPU, nil
		}
		app.Logger().Warnf("gpu backend unavailable, falling back to cpu: %v", err)
	case config.BackendCPU, "":
	default:
		return nil, "", fmt.Errorf("unknown kernel backend %q", mod.Kernel.Backend)
	}

	cpu := kernel.NewCPU(mod.Forces, mod.Cull,
		kernel.WithWorkgroupSize(mod.Kernel.WorkgroupSize),
		kernel.WithWorkers(mod.Kernel.Workers),
		kernel.WithDebugAssertions(mod.Kernel.DebugAssertions),
		kernel.WithLogger(slogger),
	)
	return cpu, config.BackendCPU, nil
}

func grassStepSystem(grass *Grass, cam *Camera, t *Time) error {
	if grass.sim == nil {
		return kernel.ErrClosed
	}

	start := time.Now()
	stats, err := grass.sim.Simulate(grass.Blades, cam.Frame(t.DtSeconds(), t.TotalSeconds()), grass.Visible)
	if err != nil {
		return fmt.Errorf("step %d: %w", grass.Steps, err)
	}
	grass.LastStep = time.Since(start)
	grass.LastStats = stats
	grass.Steps++
	return nil
}

func grassTeardownSystem(grass *Grass, cmd *Commands) {
	cmd.Logger().Debugf("grass teardown after %d steps", grass.Steps)
	grass.Close()
}
