package timing

import "time"

const (
	// CPUFrequency is the DMG master clock in T-cycles per second.
	CPUFrequency = 4194304
	// CyclesPerFrame is the number of T-cycles in one full LCD frame
	// (154 lines of 456 cycles each).
	CyclesPerFrame = 70224
)

// FramesPerSecond is the nominal LCD refresh rate (~59.7 Hz).
const FramesPerSecond = float64(CPUFrequency) / float64(CyclesPerFrame)

// FrameDuration returns the wall-clock duration of a single frame.
func FrameDuration() time.Duration {
	seconds := float64(time.Second) / FramesPerSecond
	return time.Duration(seconds)
}
