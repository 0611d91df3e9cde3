package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/meadow/grassrt/rt/core"
)

// ParamsSize is the byte size of the WGSL Params uniform.
const ParamsSize = 288

// StatsSize is the byte size of the WGSL Stats struct.
const StatsSize = 16

// Cull flag bits, mirrored in grass_compute.wgsl.
const (
	CullOrientation    uint32 = 1 << 0
	CullFrustum        uint32 = 1 << 1
	CullDistance       uint32 = 1 << 2
	CullAllPostPhysics uint32 = 1 << 3
)

func cullFlags(c core.CullConfig) uint32 {
	var f uint32
	if c.Orientation {
		f |= CullOrientation
	}
	if c.Frustum {
		f |= CullFrustum
	}
	if c.Distance {
		f |= CullDistance
	}
	if c.CullAllPostPhysics {
		f |= CullAllPostPhysics
	}
	return f
}

// encodeParams packs the per-step uniform.
//
//	0   view       mat4
//	64  proj       mat4
//	128 inv_view   mat4
//	192 gravity    vec4 (dir, accel)
//	208 wind_scroll, 216 wind_strength
//	224 scalars, 268 cull_flags, 272 blade_count
func encodeParams(frame core.Frame, forces core.ForceParams, cull core.CullConfig, count uint32) []byte {
	buf := make([]byte, ParamsSize)
	putMat4(buf[0:], frame.View)
	putMat4(buf[64:], frame.Proj)
	putMat4(buf[128:], frame.InvView)

	putF32(buf[192:], forces.GravityDir.X())
	putF32(buf[196:], forces.GravityDir.Y())
	putF32(buf[200:], forces.GravityDir.Z())
	putF32(buf[204:], forces.GravityAccel)

	putF32(buf[208:], forces.WindScrollSpeed.X())
	putF32(buf[212:], forces.WindScrollSpeed.Y())
	putF32(buf[216:], forces.WindStrength.X())
	putF32(buf[220:], forces.WindStrength.Y())

	for i, v := range []float32{
		frame.Near,
		frame.Far,
		frame.DeltaTime,
		frame.TotalTime,
		forces.Mass,
		forces.FrontGravityRatio,
		forces.WindNoiseScale,
		forces.WindAmplitude,
		cull.OrientationThreshold,
		cull.MaxDistance,
		cull.FrustumTolerance,
	} {
		putF32(buf[224+i*4:], v)
	}
	binary.LittleEndian.PutUint32(buf[268:], cullFlags(cull))
	binary.LittleEndian.PutUint32(buf[272:], count)
	return buf
}

// decodeStats reads the Stats struct.
func decodeStats(buf []byte, total int) core.StepStats {
	return core.StepStats{
		Total:             uint32(total),
		CulledOrientation: binary.LittleEndian.Uint32(buf[0:4]),
		CulledDistance:    binary.LittleEndian.Uint32(buf[4:8]),
		CulledFrustum:     binary.LittleEndian.Uint32(buf[8:12]),
		Visible:           binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// mgl32 matrices are column major, as WGSL expects.
func putMat4(buf []byte, m mgl32.Mat4) {
	for i, v := range m {
		putF32(buf[i*4:], v)
	}
}

func putF32(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
}
