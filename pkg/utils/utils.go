package utils

import (
	"math"

	"github.com/dustin/go-humanize"
)

// Mod returns the non-negative residue of a modulo b. Panics when b == 0, like the % operator.
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		if b < 0 {
			m -= b
		} else {
			m += b
		}
	}
	return m
}

// AddSaturating returns a+b clamped to math.MaxUint64 and whether the clamp happened.
func AddSaturating(a, b uint64) (sum uint64, overflow bool) {
	if a > math.MaxUint64-b {
		return math.MaxUint64, true
	}
	return a + b, false
}

// FmtMem formats a number of bytes into a human-readable IEC string.
func FmtMem(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}
