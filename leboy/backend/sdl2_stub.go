//go:build !sdl2

package backend

import (
	"fmt"

	"github.com/mrhelmut/LeBoy/leboy"
	"github.com/mrhelmut/LeBoy/leboy/video"
)

// SDL2Backend stub for when SDL2 is not available
type SDL2Backend struct{}

func NewSDL2Backend() *SDL2Backend {
	return &SDL2Backend{}
}

func (s *SDL2Backend) Init(config Config) error {
	return fmt.Errorf("SDL2 backend not available - compile with -tags sdl2 and install SDL2 development libraries")
}

func (s *SDL2Backend) RenderFrame(fb *video.FrameBuffer) error {
	return fmt.Errorf("SDL2 backend not available")
}

func (s *SDL2Backend) PollInput(emu *leboy.DMG) bool {
	return false
}

func (s *SDL2Backend) Close() {}
