// Package kernel drives the grass blade step on the CPU.
//
// One step is dispatched in two phases. The first resets the visible set and
// derives the per-frame camera quantities; it completes before any lane of the
// second phase is submitted, so every lane observes the cleared counter. The
// second phase runs the lanes in workgroups on a worker pool and waits for the
// whole batch.
package kernel

import (
	"errors"

	"github.com/gekko3d/meadow/grassrt/rt/core"
)

// DefaultWorkgroupSize matches @workgroup_size in grass_compute.wgsl.
const DefaultWorkgroupSize = 32

var (
	ErrClosed        = errors.New("kernel: simulator closed")
	ErrNilVisibleSet = errors.New("kernel: nil visible set")
)

// Simulator advances a blade population by one step and compacts the blades
// that survive culling into out. Blades are updated in place.
type Simulator interface {
	Simulate(blades []core.Blade, frame core.Frame, out *core.VisibleSet) (core.StepStats, error)
	Close()
}

// Workgroups returns how many workgroups of size group cover n lanes.
func Workgroups(n, group int) int {
	if n <= 0 || group <= 0 {
		return 0
	}
	return (n + group - 1) / group
}
