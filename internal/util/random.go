package util

import (
	"math/rand/v2"
	"time"
)

const hexChars = "0123456789abcdef"

// GenerateRandomHex returns a random lowercase hex string of the given length.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}
	b := make([]byte, length)
	for i := range b {
		b[i] = hexChars[rand.IntN(len(hexChars))]
	}
	return string(b)
}

// GenerateTraceID returns a short identifier suitable for correlating log
// lines across one request or conversation turn.
func GenerateTraceID() string {
	return "t_" + GenerateRandomHex(16)
}

// JitterDuration returns base plus a uniformly random addition in [0, spread).
// A non-positive spread returns base unchanged.
func JitterDuration(base, spread time.Duration) time.Duration {
	if spread <= 0 {
		return base
	}
	return base + time.Duration(rand.Int64N(int64(spread)))
}
