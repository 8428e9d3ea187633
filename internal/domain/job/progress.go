package job

import "math"

// Phase is one of the two sequential sub-operations of a job.
type Phase int

const (
	PhaseFetch Phase = iota
	PhaseEncode
)

// Compose maps a phase's own 0-100 progress onto the job's overall scale.
// Fetch occupies the first half, encode the second. The input is clamped
// before scaling, so the result is always a valid job progress for any
// collaborator-reported value. Local-only jobs skip the compositor and use
// the encoder's raw percentage directly; the 50/50 split only makes sense
// when both phases actually run.
func Compose(phase Phase, sub float64) int {
	if sub < 0 {
		sub = 0
	}
	if sub > 100 {
		sub = 100
	}
	half := int(math.Round(sub * 0.5))
	if phase == PhaseFetch {
		return clampInt(half, 0, 50)
	}
	return clampInt(50+half, 50, 100)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
