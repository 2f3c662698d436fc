package messaging

import (
	"time"
	"unicode/utf8"

	"github.com/VigiaLabs/LeadPipe/internal/util"
)

// Typing delay tuning. The delay grows with reply length so long answers
// read as typed rather than instant, but stays bounded to a few seconds.
const (
	delayBase    = 600 * time.Millisecond
	delayPerRune = 20 * time.Millisecond
	delayCap     = 3 * time.Second
	delayJitter  = 400 * time.Millisecond
)

// DelayFunc computes how long to wait before sending a reply.
type DelayFunc func(reply string) time.Duration

// HumanizedDelay returns a length-derived, jittered pause for the given reply.
func HumanizedDelay(reply string) time.Duration {
	d := delayBase + time.Duration(utf8.RuneCountInString(reply))*delayPerRune
	if d > delayCap {
		d = delayCap
	}
	return util.JitterDuration(d, delayJitter)
}

// NoDelay sends replies immediately. Used in tests and when the delay is
// disabled by configuration.
func NoDelay(reply string) time.Duration {
	return 0
}
