//go:build sdl2

package backend

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/mrhelmut/LeBoy/leboy"
	"github.com/mrhelmut/LeBoy/leboy/memory"
	"github.com/mrhelmut/LeBoy/leboy/video"
	"github.com/veandco/go-sdl2/sdl"
)

// SDL2Backend renders into an SDL window. Built only with -tags sdl2.
type SDL2Backend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	scale    int
}

func NewSDL2Backend() *SDL2Backend {
	return &SDL2Backend{}
}

func (s *SDL2Backend) Init(config Config) error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("initializing SDL: %w", err)
	}

	s.scale = config.PixelSize
	if s.scale <= 0 {
		s.scale = 3
	}

	var err error
	s.window, err = sdl.CreateWindow(config.Title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(video.FramebufferWidth*s.scale),
		int32(video.FramebufferHeight*s.scale),
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return fmt.Errorf("creating window: %w", err)
	}

	s.renderer, err = sdl.CreateRenderer(s.window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	slog.Info("SDL2 backend initialized", "scale", s.scale)
	return nil
}

func (s *SDL2Backend) RenderFrame(fb *video.FrameBuffer) error {
	pixels := fb.ToSlice()

	surface, err := sdl.CreateRGBSurfaceFrom(
		unsafe.Pointer(&pixels[0]),
		int32(video.FramebufferWidth),
		int32(video.FramebufferHeight),
		32,
		4*video.FramebufferWidth,
		0xFF000000, // R
		0x00FF0000, // G
		0x0000FF00, // B
		0x000000FF) // A
	if err != nil {
		return fmt.Errorf("creating surface: %w", err)
	}
	defer surface.Free()

	tex, err := s.renderer.CreateTextureFromSurface(surface)
	if err != nil {
		return fmt.Errorf("creating texture: %w", err)
	}
	defer tex.Destroy()

	s.renderer.Clear()
	s.renderer.Copy(tex, nil, nil)
	s.renderer.Present()
	return nil
}

func (s *SDL2Backend) PollInput(emu *leboy.DMG) bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch ev := event.(type) {
		case *sdl.QuitEvent:
			return false
		case *sdl.KeyboardEvent:
			key, ok := mapScancode(ev.Keysym.Scancode)
			if !ok {
				continue
			}
			emu.SetButton(key, ev.Type == sdl.KEYDOWN)
		}
	}
	return true
}

func (s *SDL2Backend) Close() {
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()
}

func mapScancode(code sdl.Scancode) (memory.JoypadKey, bool) {
	switch code {
	case sdl.SCANCODE_RIGHT:
		return memory.JoypadRight, true
	case sdl.SCANCODE_LEFT:
		return memory.JoypadLeft, true
	case sdl.SCANCODE_UP:
		return memory.JoypadUp, true
	case sdl.SCANCODE_DOWN:
		return memory.JoypadDown, true
	case sdl.SCANCODE_Z:
		return memory.JoypadA, true
	case sdl.SCANCODE_X:
		return memory.JoypadB, true
	case sdl.SCANCODE_BACKSPACE:
		return memory.JoypadSelect, true
	case sdl.SCANCODE_RETURN:
		return memory.JoypadStart, true
	}
	return 0, false
}
