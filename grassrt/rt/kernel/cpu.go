package kernel

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/gekko3d/meadow/grassrt/rt/core"
)

// poolQueueSize bounds the pool's task queue; one task per worker is
// submitted per step, so workers are capped to it.
const poolQueueSize = 256

// CPU runs the kernel on a pool of reusable goroutines.
type CPU struct {
	forces core.ForceParams
	cull   core.CullConfig

	workgroupSize int
	workers       int
	debug         bool
	log           *slog.Logger

	pool     worker.DynamicWorkerPool
	taskID   atomic.Int64
	closed   atomic.Bool
	dispatch sync.Mutex
}

type CPUOption func(*CPU)

// WithWorkgroupSize sets how many consecutive lanes one workgroup covers.
func WithWorkgroupSize(n int) CPUOption {
	return func(c *CPU) {
		if n <= 0 {
			return
		}
		c.workgroupSize = n
	}
}

// WithWorkers sets the number of pool goroutines.
func WithWorkers(n int) CPUOption {
	return func(c *CPU) {
		if n <= 0 {
			return
		}
		c.workers = min(n, poolQueueSize)
	}
}

// WithLogger routes driver diagnostics to l. A nil logger discards them.
func WithLogger(l *slog.Logger) CPUOption {
	return func(c *CPU) {
		if l == nil {
			l = NopLogger()
		}
		c.log = l
	}
}

// WithDebugAssertions enables the per-lane non-finite check.
func WithDebugAssertions(on bool) CPUOption {
	return func(c *CPU) {
		c.debug = on
	}
}

func NewCPU(forces core.ForceParams, cull core.CullConfig, opts ...CPUOption) *CPU {
	c := &CPU{
		forces:        forces,
		cull:          cull,
		workgroupSize: DefaultWorkgroupSize,
		workers:       max(runtime.NumCPU()-1, 1),
		log:           NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pool = worker.NewDynamicWorkerPool(c.workers, poolQueueSize, 1*time.Second)
	c.log.Debug("cpu kernel ready", "workers", c.workers, "workgroup_size", c.workgroupSize, "debug", c.debug)
	return c
}

func (c *CPU) WorkgroupSize() int { return c.workgroupSize }
func (c *CPU) Workers() int       { return c.workers }

// SetCulling swaps the cull configuration used by subsequent steps.
func (c *CPU) SetCulling(cull core.CullConfig) {
	c.dispatch.Lock()
	c.cull = cull
	c.dispatch.Unlock()
}

// SetForces swaps the force constants used by subsequent steps.
func (c *CPU) SetForces(forces core.ForceParams) {
	c.dispatch.Lock()
	c.forces = forces
	c.dispatch.Unlock()
}

// Close stops accepting steps and stops the pool's workers. It waits for a
// step in flight to finish. Only the first call has an effect.
func (c *CPU) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.dispatch.Lock()
	defer c.dispatch.Unlock()
	c.pool.Stop()
}

// stepTally folds per-task counts; lanes never touch it directly.
type stepTally struct {
	orientation atomic.Uint32
	distance    atomic.Uint32
	frustum     atomic.Uint32
	visible     atomic.Uint32
	nonFinite   atomic.Uint32
}

func (t *stepTally) add(s core.StepStats) {
	t.orientation.Add(s.CulledOrientation)
	t.distance.Add(s.CulledDistance)
	t.frustum.Add(s.CulledFrustum)
	t.visible.Add(s.Visible)
	t.nonFinite.Add(s.NonFinite)
}

func (t *stepTally) stats(total int) core.StepStats {
	return core.StepStats{
		Total:             uint32(total),
		CulledOrientation: t.orientation.Load(),
		CulledDistance:    t.distance.Load(),
		CulledFrustum:     t.frustum.Load(),
		Visible:           t.visible.Load(),
		NonFinite:         t.nonFinite.Load(),
	}
}

// Simulate runs one step over blades.
func (c *CPU) Simulate(blades []core.Blade, frame core.Frame, out *core.VisibleSet) (core.StepStats, error) {
	if c.closed.Load() {
		return core.StepStats{}, ErrClosed
	}
	if out == nil {
		return core.StepStats{}, ErrNilVisibleSet
	}
	c.dispatch.Lock()
	defer c.dispatch.Unlock()
	if c.closed.Load() {
		return core.StepStats{}, ErrClosed
	}

	// Phase 1: reset and sync.
	n := len(blades)
	out.Ensure(n)
	out.Reset()
	if n == 0 {
		return core.StepStats{}, nil
	}
	view := frame.Viewer()
	groups := Workgroups(n, c.workgroupSize)

	// Phase 2: simulate. Each task walks a strided set of workgroups.
	tasks := min(c.workers, groups)
	var tally stepTally
	var wg sync.WaitGroup
	for t := 0; t < tasks; t++ {
		wg.Add(1)
		first := t
		c.pool.SubmitTask(worker.Task{
			ID: int(c.taskID.Add(1)),
			Do: func() (any, error) {
				defer wg.Done()
				var local core.StepStats
				for g := first; g < groups; g += tasks {
					c.runWorkgroup(g, blades, frame, view, out, &local)
				}
				tally.add(local)
				return nil, nil
			},
		})
	}
	wg.Wait()

	stats := tally.stats(n)
	if stats.NonFinite > 0 {
		c.log.Warn("non-finite blades after relaxation", "count", stats.NonFinite, "total", n)
	}
	c.log.Debug("grass step",
		"blades", n,
		"workgroups", groups,
		"visible", stats.Visible,
		"culled_orientation", stats.CulledOrientation,
		"culled_distance", stats.CulledDistance,
		"culled_frustum", stats.CulledFrustum,
	)
	return stats, nil
}

// runWorkgroup executes every lane of workgroup g. Lanes past the end of the
// population exit before loading.
func (c *CPU) runWorkgroup(g int, blades []core.Blade, frame core.Frame, view core.Viewer, out *core.VisibleSet, stats *core.StepStats) {
	base := g * c.workgroupSize
	for local := 0; local < c.workgroupSize; local++ {
		id := base + local
		if id >= len(blades) {
			return
		}
		reason, finite := c.lane(&blades[id], frame, view, out)
		stats.Record(reason)
		if !finite {
			stats.NonFinite++
		}
	}
}

// lane is the per-blade program: load, pre-cull, force and relax, write back,
// post-cull, compact.
func (c *CPU) lane(slot *core.Blade, frame core.Frame, view core.Viewer, out *core.VisibleSet) (core.CullReason, bool) {
	b := *slot

	if r := c.cull.PrePhysics(b, view); r != core.NotCulled {
		return r, true
	}

	core.Step(&b, frame.DeltaTime, frame.TotalTime, c.forces)
	*slot = b

	finite := !c.debug || b.Finite()

	if r := c.cull.PostPhysics(b, view); r != core.NotCulled {
		return r, finite
	}
	out.Append(b)
	return core.NotCulled, finite
}
