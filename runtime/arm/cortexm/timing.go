package cortexm

// Timebase converts durations to ticks of the scheduler timer, which counts
// processor cycles.
type Timebase struct {
	Frequency uint32
}

// FromMicros returns the ticks in us microseconds, saturating at the largest
// uint32.
func (t Timebase) FromMicros(us uint32) uint32 {
	return saturate(uint64(us) * uint64(t.Frequency) / 1_000_000)
}

// ToMicros returns the microseconds spanned by ticks. A zero Frequency yields
// zero.
func (t Timebase) ToMicros(ticks uint32) uint32 {
	if t.Frequency == 0 {
		return 0
	}
	return saturate(uint64(ticks) * 1_000_000 / uint64(t.Frequency))
}

func saturate(v uint64) uint32 {
	if v > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(v)
}
