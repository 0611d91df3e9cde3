package core

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidBlade = errors.New("invalid blade")

// Validate checks the preconditions the kernel relies on. Zero or negative
// height would divide by zero during relaxation.
func (b Blade) Validate() error {
	h := float64(b.Height())
	if math.IsNaN(h) || math.IsInf(h, 0) || h <= 0 {
		return fmt.Errorf("%w: height %v must be positive and finite", ErrInvalidBlade, h)
	}
	l := float64(b.UpDir().Len())
	if math.Abs(l-1) > 1e-3 {
		return fmt.Errorf("%w: up vector length %v is not unit", ErrInvalidBlade, l)
	}
	return nil
}

// ValidatePopulation runs Validate over every blade and reports the first failure.
func ValidatePopulation(blades []Blade) error {
	for i, b := range blades {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("blade %d: %w", i, err)
		}
	}
	return nil
}

// Finite reports whether all control points hold finite values.
func (b Blade) Finite() bool {
	for _, v := range [3][4]float32{b.V0, b.V1, b.V2} {
		for _, f := range v[:3] {
			if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
				return false
			}
		}
	}
	return true
}
