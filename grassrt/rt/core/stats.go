package core

// StepStats counts where every lane of one step exited.
type StepStats struct {
	Total             uint32
	CulledOrientation uint32
	CulledDistance    uint32
	CulledFrustum     uint32
	Visible           uint32
	NonFinite         uint32 // only counted with debug assertions on
}

func (s StepStats) Culled() uint32 {
	return s.CulledOrientation + s.CulledDistance + s.CulledFrustum
}

// Record adds one lane exit.
func (s *StepStats) Record(r CullReason) {
	switch r {
	case NotCulled:
		s.Visible++
	case CulledOrientation:
		s.CulledOrientation++
	case CulledDistance:
		s.CulledDistance++
	case CulledFrustum:
		s.CulledFrustum++
	}
}
