package core

import (
	"encoding/binary"
	"math"
)

// EncodeBlades packs blades into the std430 layout of array<Blade>.
func EncodeBlades(blades []Blade) []byte {
	buf := make([]byte, len(blades)*BladeStride)
	for i := range blades {
		off := i * BladeStride
		for j, v := range [4][4]float32{blades[i].V0, blades[i].V1, blades[i].V2, blades[i].Up} {
			for k, f := range v {
				binary.LittleEndian.PutUint32(buf[off+j*16+k*4:], math.Float32bits(f))
			}
		}
	}
	return buf
}

// DecodeBlades unpacks len(dst) blades from buf.
func DecodeBlades(buf []byte, dst []Blade) {
	for i := range dst {
		off := i * BladeStride
		var vs [4][4]float32
		for j := range vs {
			for k := range vs[j] {
				vs[j][k] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off+j*16+k*4:]))
			}
		}
		dst[i].V0 = vs[0]
		dst[i].V1 = vs[1]
		dst[i].V2 = vs[2]
		dst[i].Up = vs[3]
	}
}
