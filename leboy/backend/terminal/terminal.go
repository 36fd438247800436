package terminal

import (
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/mrhelmut/LeBoy/leboy"
	"github.com/mrhelmut/LeBoy/leboy/backend"
	"github.com/mrhelmut/LeBoy/leboy/memory"
	"github.com/mrhelmut/LeBoy/leboy/video"
)

const (
	// terminal characters are taller than wide, so pixels are doubled
	// horizontally to keep an approximate aspect ratio
	scaleX = 2
)

// Characters to represent different shades, from lightest to darkest.
var shadeChars = [4]rune{' ', '░', '▒', '█'}

// Backend renders frames as characters via tcell and maps keyboard
// events onto the joypad.
type Backend struct {
	screen tcell.Screen
	events chan tcell.Event
	quit   chan struct{}

	// keys seen pressed during the previous poll, for release events
	held map[memory.JoypadKey]bool
}

func New() *Backend {
	return &Backend{
		held: make(map[memory.JoypadKey]bool),
	}
}

func (t *Backend) Init(config backend.Config) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}

	screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorBlack).
		Foreground(tcell.ColorWhite))
	screen.Clear()

	t.screen = screen
	t.events = make(chan tcell.Event, 32)
	t.quit = make(chan struct{})
	go func() {
		for {
			select {
			case <-t.quit:
				return
			default:
				t.events <- t.screen.PollEvent()
			}
		}
	}()

	slog.Info("Terminal backend initialized", "title", config.Title)
	return nil
}

func (t *Backend) RenderFrame(fb *video.FrameBuffer) error {
	shades := fb.ToGrayscale()

	for y := 0; y < video.FramebufferHeight; y++ {
		for x := 0; x < video.FramebufferWidth; x++ {
			ch := shadeChars[shades[y*video.FramebufferWidth+x]&0x03]
			for i := 0; i < scaleX; i++ {
				t.screen.SetContent(x*scaleX+i, y, ch, nil, tcell.StyleDefault)
			}
		}
	}

	t.screen.Show()
	return nil
}

func (t *Backend) PollInput(emu *leboy.DMG) bool {
	// terminals report key presses, not holds: press everything seen
	// this poll, release what disappeared
	seen := make(map[memory.JoypadKey]bool)

	for {
		select {
		case ev := <-t.events:
			key, ok := ev.(*tcell.EventKey)
			if !ok {
				continue
			}
			if key.Key() == tcell.KeyCtrlC || key.Key() == tcell.KeyEscape {
				return false
			}
			if mapped, ok := mapKey(key); ok {
				seen[mapped] = true
			}
		default:
			for k := range seen {
				if !t.held[k] {
					emu.HandleKeyPress(k)
				}
			}
			for k := range t.held {
				if !seen[k] {
					emu.HandleKeyRelease(k)
				}
			}
			t.held = seen
			return true
		}
	}
}

func (t *Backend) Close() {
	close(t.quit)
	t.screen.Fini()
	slog.Info("Finishing terminal")
}

func mapKey(ev *tcell.EventKey) (memory.JoypadKey, bool) {
	switch ev.Key() {
	case tcell.KeyRight:
		return memory.JoypadRight, true
	case tcell.KeyLeft:
		return memory.JoypadLeft, true
	case tcell.KeyUp:
		return memory.JoypadUp, true
	case tcell.KeyDown:
		return memory.JoypadDown, true
	case tcell.KeyEnter:
		return memory.JoypadStart, true
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return memory.JoypadSelect, true
	}

	switch ev.Rune() {
	case 'z', 'Z':
		return memory.JoypadA, true
	case 'x', 'X':
		return memory.JoypadB, true
	}

	return 0, false
}
