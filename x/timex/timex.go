package timex

import (
	"time"

	"mdp-go/x/mathx"
)

// PeriodFromHz returns the period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) time.Duration {
	if freqHz == 0 {
		freqHz = 1
	}
	return time.Duration(uint64(time.Second) / uint64(freqHz))
}

// FrameBound is n nominal refresh periods at refreshHz, rounded up to the
// next whole millisecond.
func FrameBound(refreshHz uint32, n int) time.Duration {
	if n <= 0 {
		n = 1
	}
	if refreshHz == 0 {
		refreshHz = 1
	}
	return time.Duration(mathx.CeilDiv(uint64(n)*1000, uint64(refreshHz))) * time.Millisecond
}
