package orion

import (
	"time"
)

type FrameTimes struct {
	FrameCount      uint64
	AverageDuration time.Duration
	MaxDuration     time.Duration

	// Duration of the most recent frame
	Last time.Duration
}

// Record adds the duration of a rendered frame.
func (t *FrameTimes) Record(d time.Duration) {
	const window = 64

	t.Last = d
	t.MaxDuration = max(t.MaxDuration, d)

	if t.FrameCount < window/2 {
		t.AverageDuration = d
	} else {
		t.AverageDuration = ((window-1)*t.AverageDuration + d) / window
	}

	t.FrameCount += 1
}

func (t *FrameTimes) FPS() float64 {
	if t.AverageDuration == 0 {
		return 0
	}

	return 1.0 / t.AverageDuration.Seconds()
}
