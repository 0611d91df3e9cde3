package core

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBlade_RestingShape(t *testing.T) {
	b := NewBlade(mgl32.Vec3{1, 0, 2}, mgl32.Vec3{0, 2, 0}, 0.7, 1.5, 0.2, 3)

	assertVec3(t, mgl32.Vec3{0, 1, 0}, b.UpDir(), 1e-6)
	assertVec3(t, mgl32.Vec3{1, 1.5, 2}, b.Mid(), 1e-6)
	assertVec3(t, mgl32.Vec3{1, 1.5, 2}, b.Tip(), 1e-6)
	assert.Equal(t, float32(0.7), b.Angle())
	assert.Equal(t, float32(1.5), b.Height())
	assert.Equal(t, float32(0.2), b.Width())
	assert.Equal(t, float32(3), b.Stiffness())
	assert.InDelta(t, 1.5, b.Length(), 1e-6)
}

func TestBlade_SettersKeepScalars(t *testing.T) {
	b := NewBlade(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 0, 1, 0.3, 1)
	b.SetMid(mgl32.Vec3{1, 2, 3})
	b.SetTip(mgl32.Vec3{4, 5, 6})

	assert.Equal(t, float32(1), b.Height())
	assert.Equal(t, float32(0.3), b.Width())
	assert.Equal(t, mgl32.Vec3{4, 5, 6}, b.Tip())
}

func TestBlade_Frame(t *testing.T) {
	b := NewBlade(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, math.Pi/2, 1, 0.1, 1)
	assertVec3(t, mgl32.Vec3{0, 0, 1}, b.Bitangent(), 1e-6)
	assertVec3(t, mgl32.Vec3{-1, 0, 0}, b.Front(), 1e-6)
	assert.InDelta(t, 0, b.Front().Dot(b.UpDir()), 1e-6)
}

func TestBlade_MidSample(t *testing.T) {
	b := NewBlade(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 0, 1, 0.1, 1)
	b.SetMid(mgl32.Vec3{0, 4, 0})
	b.SetTip(mgl32.Vec3{8, 0, 0})
	assertVec3(t, mgl32.Vec3{2, 2, 0}, b.MidSample(), 1e-6)
}

func TestBlade_Validate(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name    string
		blade   Blade
		wantErr bool
	}{
		{"valid", NewBlade(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 0, 1, 0.1, 1), false},
		{"zero height", Blade{V1: mgl32.Vec4{0, 0, 0, 0}, Up: mgl32.Vec4{0, 1, 0, 1}}, true},
		{"negative height", Blade{V1: mgl32.Vec4{0, 0, 0, -1}, Up: mgl32.Vec4{0, 1, 0, 1}}, true},
		{"nan height", Blade{V1: mgl32.Vec4{0, 0, 0, nan}, Up: mgl32.Vec4{0, 1, 0, 1}}, true},
		{"non-unit up", Blade{V1: mgl32.Vec4{0, 0, 0, 1}, Up: mgl32.Vec4{0, 2, 0, 1}}, true},
	}

	for _, tc := range tests {
		err := tc.blade.Validate()
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrInvalidBlade, tc.name)
		} else {
			assert.NoError(t, err, tc.name)
		}
	}
}

func TestValidatePopulation(t *testing.T) {
	blades := []Blade{
		NewBlade(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 0, 1, 0.1, 1),
		NewBlade(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 0, 1, 0.1, 1),
	}
	require.NoError(t, ValidatePopulation(blades))

	blades[1].V1[3] = 0
	err := ValidatePopulation(blades)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidBlade))
	assert.Contains(t, err.Error(), "blade 1")
}

func TestBlade_Finite(t *testing.T) {
	b := NewBlade(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 0, 1, 0.1, 1)
	assert.True(t, b.Finite())
	b.V2[1] = float32(math.Inf(1))
	assert.False(t, b.Finite())
}

func TestStepStats_Record(t *testing.T) {
	var s StepStats
	for _, r := range []CullReason{NotCulled, NotCulled, CulledFrustum, CulledDistance, CulledOrientation} {
		s.Record(r)
	}
	assert.Equal(t, uint32(2), s.Visible)
	assert.Equal(t, uint32(3), s.Culled())
}
