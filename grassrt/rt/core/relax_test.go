package core

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelax_RestingShapeIsFixedPoint(t *testing.T) {
	b := NewBlade(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, 0, 1, 0.1, 1)
	before := b

	Relax(&b)

	assert.Equal(t, before, b)
}

func TestRelax_HalfHeightMidSnapsToRest(t *testing.T) {
	b := NewBlade(mgl32.Vec3{2, 0, 1}, mgl32.Vec3{0, 1, 0}, 0.3, 2, 0.1, 1)
	b.SetMid(mgl32.Vec3{2, 1, 1})

	Relax(&b)

	assertVec3(t, mgl32.Vec3{2, 2, 1}, b.Tip(), 1e-6)
	assertVec3(t, mgl32.Vec3{2, 2, 1}, b.Mid(), 1e-6)
}

func TestRelax_ClampsTipAboveGround(t *testing.T) {
	b := NewBlade(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 0, 1, 0.1, 1)
	b.SetTip(mgl32.Vec3{0.5, -1, 0})

	Relax(&b)

	assert.GreaterOrEqual(t, b.Tip().Y(), float32(-1e-5))
	assert.InDelta(t, 0.5858, b.Tip().X(), 1e-3)
	assert.InDelta(t, 0.5858, b.Mid().Y(), 1e-3)
	assert.InDelta(t, 1, b.Length(), 1e-5)
}

func TestRelax_PreservesLength(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ups := []mgl32.Vec3{
		{0, 1, 0},
		mgl32.Vec3{0.2, 1, 0.1}.Normalize(),
		mgl32.Vec3{-0.3, 1, 0.4}.Normalize(),
	}

	for i := 0; i < 1000; i++ {
		up := ups[i%len(ups)]
		h := 0.2 + rng.Float32()*3
		base := mgl32.Vec3{rng.Float32()*20 - 10, rng.Float32() - 0.5, rng.Float32()*20 - 10}
		b := NewBlade(base, up, rng.Float32()*6.28, h, 0.1, 1)

		offset := mgl32.Vec3{rng.Float32()*4 - 2, rng.Float32()*4 - 2, rng.Float32()*4 - 2}.Mul(h)
		b.SetTip(b.Tip().Add(offset))

		Relax(&b)

		require.True(t, b.Finite(), "blade %d went non-finite", i)
		assert.InDelta(t, h, b.Length(), float64(h)*1e-4, "blade %d length drifted", i)
		assert.GreaterOrEqual(t, b.Tip().Sub(base).Dot(up), -1e-4*h, "blade %d tip under ground", i)
		assert.Equal(t, h, b.Height(), "height channel must be untouched")
		assert.Equal(t, float32(0.1), b.Width(), "width channel must be untouched")
	}
}

func TestRelax_FlattenedBladeKeepsMinimumLift(t *testing.T) {
	b := NewBlade(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 0, 1, 0.1, 1)
	b.SetTip(mgl32.Vec3{5, 0, 0})

	Relax(&b)

	// v1 never collapses onto the ground plane
	assert.Greater(t, b.Mid().Y(), float32(0))
	assert.InDelta(t, 1, b.Length(), 1e-5)
}

func TestStep_ZeroTimeKeepsRest(t *testing.T) {
	b := NewBlade(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, 0, 1, 0.1, 1)
	before := b

	Step(&b, 0, 0, DefaultForceParams())

	assert.Equal(t, before, b)
}

func TestStep_StiffBladeStaysUpright(t *testing.T) {
	p := DefaultForceParams()
	p.WindStrength = mgl32.Vec2{}
	b := NewBlade(mgl32.Vec3{1, 0, 1}, mgl32.Vec3{0, 1, 0}, 0, 1, 0.1, 10)

	for i := 0; i < 200; i++ {
		Step(&b, 1.0/60.0, float32(i)/60.0, p)
	}

	// front gravity leans the tip slightly, recovery holds it close to rest
	assert.InDelta(t, 1, b.Length(), 1e-4)
	assert.Greater(t, b.Tip().Y(), float32(0.9))
}
