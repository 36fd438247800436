package headless

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mrhelmut/LeBoy/leboy"
	"github.com/mrhelmut/LeBoy/leboy/backend"
	"github.com/mrhelmut/LeBoy/leboy/video"
)

// Backend runs the emulator without any output device, for automated
// testing and batch processing. It counts frames and can dump the last
// frame as a shade map.
type Backend struct {
	config     backend.Config
	frameCount int
	lastFrame  *video.FrameBuffer
}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Init(config backend.Config) error {
	b.config = config
	slog.Info("Headless backend initialized", "frames", config.Frames)
	return nil
}

func (b *Backend) RenderFrame(fb *video.FrameBuffer) error {
	b.frameCount++
	b.lastFrame = fb

	if b.config.Frames > 0 && b.frameCount >= b.config.Frames {
		if b.config.DumpPath != "" {
			if err := b.dumpFrame(fb); err != nil {
				return err
			}
		}
	}
	return nil
}

// PollInput never reports host input; it stops the loop once the
// requested frame count is reached.
func (b *Backend) PollInput(emu *leboy.DMG) bool {
	return b.config.Frames == 0 || b.frameCount < b.config.Frames
}

func (b *Backend) Close() {
	slog.Info("Headless run finished", "frames", b.frameCount)
}

// dumpFrame writes the frame as one ASCII row per scanline, using the
// shade index (0-3) of each pixel.
func (b *Backend) dumpFrame(fb *video.FrameBuffer) error {
	shades := fb.ToGrayscale()

	out := make([]byte, 0, (video.FramebufferWidth+1)*video.FramebufferHeight)
	for y := 0; y < video.FramebufferHeight; y++ {
		for x := 0; x < video.FramebufferWidth; x++ {
			out = append(out, '0'+shades[y*video.FramebufferWidth+x])
		}
		out = append(out, '\n')
	}

	if err := os.WriteFile(b.config.DumpPath, out, 0644); err != nil {
		return fmt.Errorf("dumping frame: %w", err)
	}
	slog.Info("Frame dumped", "path", b.config.DumpPath)
	return nil
}
