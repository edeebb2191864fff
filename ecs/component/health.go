package component

// Health tracks integer hit points. Current never drops below zero.
type Health struct {
	Current int
	Max     int
}

// Apply subtracts dmg and reports whether the hit brought health to zero.
func (h *Health) Apply(dmg int) bool {
	if h == nil || dmg <= 0 {
		return false
	}
	h.Current -= dmg
	if h.Current < 0 {
		h.Current = 0
	}
	return h.Current == 0
}

func (h Health) Ratio() float64 {
	if h.Max <= 0 {
		return 0
	}
	return float64(h.Current) / float64(h.Max)
}
