// Package field builds blade populations for a square patch of ground.
package field

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ojrac/opensimplex-go"

	"github.com/gekko3d/meadow/grassrt/rt/core"
)

var ErrInvalidParams = errors.New("field: invalid params")

// Params describes a patch. Blades sit on a jittered grid; height and width
// follow two low-frequency simplex fields so neighbours look alike.
type Params struct {
	Center  mgl32.Vec2 // patch center on the ground plane (x, z)
	Size    float32    // side length
	Spacing float32    // grid cell size
	Jitter  float32    // 0..1, fraction of a cell a blade may move
	Ground  float32    // y of the ground plane

	MinHeight, MaxHeight       float32
	MinWidth, MaxWidth         float32
	MinStiffness, MaxStiffness float32

	NoiseScale float32 // simplex frequency in 1/units
}

func DefaultParams() Params {
	return Params{
		Size:         20,
		Spacing:      0.25,
		Jitter:       0.8,
		MinHeight:    0.6,
		MaxHeight:    1.4,
		MinWidth:     0.05,
		MaxWidth:     0.12,
		MinStiffness: 1,
		MaxStiffness: 4,
		NoiseScale:   0.15,
	}
}

func (p Params) Validate() error {
	switch {
	case p.Size <= 0:
		return fmt.Errorf("%w: size %v must be positive", ErrInvalidParams, p.Size)
	case p.Spacing <= 0:
		return fmt.Errorf("%w: spacing %v must be positive", ErrInvalidParams, p.Spacing)
	case p.Jitter < 0 || p.Jitter > 1:
		return fmt.Errorf("%w: jitter %v must be within [0, 1]", ErrInvalidParams, p.Jitter)
	case p.MinHeight <= 0 || p.MaxHeight < p.MinHeight:
		return fmt.Errorf("%w: height range [%v, %v]", ErrInvalidParams, p.MinHeight, p.MaxHeight)
	case p.MinWidth <= 0 || p.MaxWidth < p.MinWidth:
		return fmt.Errorf("%w: width range [%v, %v]", ErrInvalidParams, p.MinWidth, p.MaxWidth)
	case p.MinStiffness < 0 || p.MaxStiffness < p.MinStiffness:
		return fmt.Errorf("%w: stiffness range [%v, %v]", ErrInvalidParams, p.MinStiffness, p.MaxStiffness)
	}
	return nil
}

// PerSide is the number of grid cells along one side of the patch.
func (p Params) PerSide() int {
	return max(int(p.Size/p.Spacing), 1)
}

// Count is the number of blades Generate returns for p.
func (p Params) Count() int {
	n := p.PerSide()
	return n * n
}

// Generate builds the population. The same params and seed always yield the
// same blades. Every blade starts in its resting shape.
func Generate(p Params, seed int64) ([]core.Blade, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(seed))
	heightNoise := opensimplex.NewNormalized(seed)
	widthNoise := opensimplex.NewNormalized(seed + 1)

	n := p.PerSide()
	origin := p.Center.Sub(mgl32.Vec2{p.Size / 2, p.Size / 2})
	up := mgl32.Vec3{0, 1, 0}

	blades := make([]core.Blade, 0, n*n)
	for iz := 0; iz < n; iz++ {
		for ix := 0; ix < n; ix++ {
			jx := (rng.Float32() - 0.5) * p.Jitter
			jz := (rng.Float32() - 0.5) * p.Jitter
			x := origin.X() + (float32(ix)+0.5+jx)*p.Spacing
			z := origin.Y() + (float32(iz)+0.5+jz)*p.Spacing

			hn := float32(heightNoise.Eval2(float64(x*p.NoiseScale), float64(z*p.NoiseScale)))
			wn := float32(widthNoise.Eval2(float64(x*p.NoiseScale), float64(z*p.NoiseScale)))

			blades = append(blades, core.NewBlade(
				mgl32.Vec3{x, p.Ground, z},
				up,
				rng.Float32()*2*math.Pi,
				lerp(p.MinHeight, p.MaxHeight, hn),
				lerp(p.MinWidth, p.MaxWidth, wn),
				lerp(p.MinStiffness, p.MaxStiffness, rng.Float32()),
			))
		}
	}
	return blades, nil
}

func lerp(a, b, t float32) float32 {
	t = min(max(t, 0), 1)
	return a + (b-a)*t
}
