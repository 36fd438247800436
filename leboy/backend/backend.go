package backend

import (
	"github.com/mrhelmut/LeBoy/leboy"
	"github.com/mrhelmut/LeBoy/leboy/video"
)

// Config carries host options shared by all backends.
type Config struct {
	Title     string
	Frames    int    // headless: number of frames to run (0 = unlimited)
	DumpPath  string // headless: where to write the final frame, if set
	Audio     bool   // whether to open an audio device
	PixelSize int    // window backends: scale factor
}

// Backend represents a complete emulator platform (rendering + input).
// Backends are responsible for rendering frames to their specific
// output and for feeding host input back into the joypad.
type Backend interface {
	Init(config Config) error

	// RenderFrame presents the current frame buffer.
	RenderFrame(fb *video.FrameBuffer) error

	// PollInput forwards pending host input to the emulator.
	// It returns false when the host asked to quit.
	PollInput(emu *leboy.DMG) bool

	Close()
}
