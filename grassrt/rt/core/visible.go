package core

import (
	"encoding/binary"
	"sync/atomic"
)

// DrawIndirectArgs matches the WGSL NumBlades struct consumed by a
// non-indexed indirect draw.
type DrawIndirectArgs struct {
	VertexCount   uint32 // offset 0: visible blades (written by the kernel)
	InstanceCount uint32 // offset 4: always 1
	FirstVertex   uint32 // offset 8
	FirstInstance uint32 // offset 12
}

// DrawIndirectArgsSize is the byte size of DrawIndirectArgs.
const DrawIndirectArgsSize = 16

// Marshal serializes the args for GPU upload.
func (a DrawIndirectArgs) Marshal() []byte {
	buf := make([]byte, DrawIndirectArgsSize)
	binary.LittleEndian.PutUint32(buf[0:4], a.VertexCount)
	binary.LittleEndian.PutUint32(buf[4:8], a.InstanceCount)
	binary.LittleEndian.PutUint32(buf[8:12], a.FirstVertex)
	binary.LittleEndian.PutUint32(buf[12:16], a.FirstInstance)
	return buf
}

func UnmarshalDrawIndirectArgs(buf []byte) DrawIndirectArgs {
	return DrawIndirectArgs{
		VertexCount:   binary.LittleEndian.Uint32(buf[0:4]),
		InstanceCount: binary.LittleEndian.Uint32(buf[4:8]),
		FirstVertex:   binary.LittleEndian.Uint32(buf[8:12]),
		FirstInstance: binary.LittleEndian.Uint32(buf[12:16]),
	}
}

// VisibleSet is the compacted output of one step. Blades[:Count()] holds the
// surviving blades in unspecified order.
type VisibleSet struct {
	Blades []Blade
	count  atomic.Uint32
}

func NewVisibleSet(capacity int) *VisibleSet {
	return &VisibleSet{Blades: make([]Blade, capacity)}
}

// Ensure grows the backing buffer so it can hold n blades.
func (s *VisibleSet) Ensure(n int) {
	if len(s.Blades) < n {
		s.Blades = make([]Blade, n)
	}
}

// Reset logically clears the set. It must happen-before any Append of the
// same step.
func (s *VisibleSet) Reset() {
	s.count.Store(0)
}

// Append reserves the next slot with a fetch-add and writes b there.
// Safe for concurrent use; slots are unique and dense.
func (s *VisibleSet) Append(b Blade) uint32 {
	slot := s.count.Add(1) - 1
	s.Blades[slot] = b
	return slot
}

func (s *VisibleSet) Count() uint32 {
	return s.count.Load()
}

// SetCount overwrites the count, used when the set is filled by readback.
func (s *VisibleSet) SetCount(n uint32) {
	s.count.Store(n)
}

func (s *VisibleSet) Visible() []Blade {
	return s.Blades[:s.Count()]
}

func (s *VisibleSet) Args() DrawIndirectArgs {
	return DrawIndirectArgs{VertexCount: s.Count(), InstanceCount: 1}
}
