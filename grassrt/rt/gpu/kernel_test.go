package gpu

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/meadow/grassrt/rt/core"
	"github.com/gekko3d/meadow/grassrt/rt/kernel"
)

func newTestKernel(t *testing.T, forces core.ForceParams, cull core.CullConfig) *Kernel {
	t.Helper()
	k, err := New(forces, cull)
	if err != nil {
		t.Skipf("Skipping: no GPU available: %v", err)
	}
	t.Cleanup(k.Close)
	return k
}

func testFrame(dt, total float32) core.Frame {
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1.0, 1.0, 100.0)
	view := mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	return core.NewFrame(view, proj, 1, 100, dt, total)
}

// population mixes visible, edge-on, distant and off-screen blades, all well
// away from the cull thresholds.
func population(n int) []core.Blade {
	blades := make([]core.Blade, n)
	for i := range blades {
		x := float32(i%20)*0.5 - 5
		z := -10 - float32(i/20)*0.2
		angle := float32(0.3)
		switch i % 4 {
		case 1:
			angle = -math.Pi / 2
		case 2:
			z = -80
		case 3:
			x = 40
		}
		blades[i] = core.NewBlade(mgl32.Vec3{x, 0, z}, mgl32.Vec3{0, 1, 0}, angle, 1, 0.1, 2)
	}
	return blades
}

func TestKernel_MatchesCPU(t *testing.T) {
	// The hashed noise depends on sin() of large arguments, which GPUs
	// evaluate with less precision, so wind is left out of the comparison.
	forces := core.DefaultForceParams()
	forces.WindStrength = mgl32.Vec2{}
	cull := core.DefaultCullConfig()
	k := newTestKernel(t, forces, cull)
	cpu := kernel.NewCPU(forces, cull)
	defer cpu.Close()

	gpuBlades := population(1001)
	cpuBlades := population(1001)
	gpuOut := core.NewVisibleSet(0)
	cpuOut := core.NewVisibleSet(0)
	frame := testFrame(1.0/60.0, 1.5)

	gpuStats, err := k.Simulate(gpuBlades, frame, gpuOut)
	require.NoError(t, err)
	cpuStats, err := cpu.Simulate(cpuBlades, frame, cpuOut)
	require.NoError(t, err)

	assert.Equal(t, cpuStats, gpuStats)
	assert.Equal(t, cpuOut.Count(), gpuOut.Count())
	assert.Equal(t, core.DrawIndirectArgs{VertexCount: cpuOut.Count(), InstanceCount: 1}, gpuOut.Args())

	for i := range gpuBlades {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, cpuBlades[i].Tip()[j], gpuBlades[i].Tip()[j], 1e-3, "blade %d", i)
			assert.InDelta(t, cpuBlades[i].Mid()[j], gpuBlades[i].Mid()[j], 1e-3, "blade %d", i)
		}
	}
}

func TestKernel_ResetsBetweenSteps(t *testing.T) {
	k := newTestKernel(t, core.DefaultForceParams(), core.DefaultCullConfig())

	blades := population(300)
	out := core.NewVisibleSet(len(blades))
	var counts []uint32
	for step := 0; step < 3; step++ {
		_, err := k.Simulate(blades, testFrame(1.0/60.0, float32(step)/60), out)
		require.NoError(t, err)
		counts = append(counts, out.Count())
	}
	assert.Equal(t, counts[0], counts[1])
	assert.Equal(t, counts[0], counts[2])
}

func TestKernel_ScenarioA(t *testing.T) {
	k := newTestKernel(t, core.DefaultForceParams(), core.DefaultCullConfig())

	proj := mgl32.Perspective(mgl32.DegToRad(90), 1.0, 1.0, 100.0)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0.5, 5}, mgl32.Vec3{0, 0.5, 0}, mgl32.Vec3{0, 1, 0})
	frame := core.NewFrame(view, proj, 1, 100, 0, 0)

	rest := core.NewBlade(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 0, 1, 0.1, 1)
	blades := []core.Blade{rest}
	out := core.NewVisibleSet(1)

	_, err := k.Simulate(blades, frame, out)
	require.NoError(t, err)
	require.Equal(t, uint32(1), out.Count())
	for j := 0; j < 3; j++ {
		assert.InDelta(t, rest.Tip()[j], blades[0].Tip()[j], 1e-6)
		assert.InDelta(t, rest.Mid()[j], blades[0].Mid()[j], 1e-6)
	}
}

func TestKernel_ClosedAndNil(t *testing.T) {
	k := newTestKernel(t, core.DefaultForceParams(), core.DefaultCullConfig())

	_, err := k.Simulate(population(4), testFrame(0, 0), nil)
	assert.ErrorIs(t, err, kernel.ErrNilVisibleSet)

	k.Close()
	_, err = k.Simulate(population(4), testFrame(0, 0), core.NewVisibleSet(4))
	assert.ErrorIs(t, err, kernel.ErrClosed)
}
