package leboy

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mrhelmut/LeBoy/leboy/addr"
	"github.com/mrhelmut/LeBoy/leboy/audio"
	"github.com/mrhelmut/LeBoy/leboy/cpu"
	"github.com/mrhelmut/LeBoy/leboy/memory"
	"github.com/mrhelmut/LeBoy/leboy/timing"
	"github.com/mrhelmut/LeBoy/leboy/video"
)

// DMG represents the root struct and entry point for running the
// emulation: one Step executes a single CPU instruction and propagates
// the elapsed cycles to the GPU, APU and timer block, in that order.
type DMG struct {
	cpu *cpu.CPU
	gpu *video.GPU
	mem *memory.MMU

	instructionCount uint64
	frameCount       uint64
	frameCycles      int
}

// New creates a new emulator instance with no cartridge loaded.
func New() *DMG {
	d := &DMG{}
	d.init(memory.NewWithCartridge(memory.NewCartridge()))
	return d
}

// NewWithFile creates a new emulator instance and loads the file specified into it.
func NewWithFile(path string) (*DMG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded ROM data", "size", len(data))

	d := &DMG{}
	if err := d.Load(data); err != nil {
		return nil, err
	}

	return d, nil
}

// Load parses the cartridge header, configures the controller and
// resets the machine to the documented post-boot state. On failure no
// emulator state is touched.
func (d *DMG) Load(rom []byte) error {
	cart, err := memory.NewCartridgeWithData(rom)
	if err != nil {
		return fmt.Errorf("loading cartridge: %w", err)
	}

	d.init(memory.NewWithCartridge(cart))
	return nil
}

func (d *DMG) init(mem *memory.MMU) {
	d.mem = mem
	d.cpu = cpu.New(mem)
	d.gpu = video.NewGpu(mem)
	d.instructionCount = 0
	d.frameCount = 0
	d.frameCycles = 0

	d.initPostBootRegisters()
}

// initPostBootRegisters writes the memory-mapped registers with the
// values the boot ROM leaves behind.
func (d *DMG) initPostBootRegisters() {
	m := d.mem

	m.Write(addr.P1, 0x30)
	m.SetTimerSeed(0xAB)
	m.Write(addr.TIMA, 0x00)
	m.Write(addr.TMA, 0x00)
	m.Write(addr.TAC, 0x00)
	m.Write(addr.IF, 0xE1)

	// audio registers; NR52 first so the APU is powered for the rest
	m.Write(addr.NR52, 0xF1)
	m.Write(addr.NR10, 0x80)
	m.Write(addr.NR11, 0xBF)
	m.Write(addr.NR12, 0xF3)
	m.Write(addr.NR14, 0xBF)
	m.Write(addr.NR21, 0x3F)
	m.Write(addr.NR22, 0x00)
	m.Write(addr.NR24, 0xBF)
	m.Write(addr.NR30, 0x7F)
	m.Write(addr.NR31, 0xFF)
	m.Write(addr.NR32, 0x9F)
	m.Write(addr.NR34, 0xBF)
	m.Write(addr.NR41, 0xFF)
	m.Write(addr.NR42, 0x00)
	m.Write(addr.NR44, 0xBF)
	m.Write(addr.NR50, 0x77)
	m.Write(addr.NR51, 0xF3)

	m.Write(addr.LCDC, 0x91)
	m.Write(addr.SCY, 0x00)
	m.Write(addr.SCX, 0x00)
	m.Write(addr.LYC, 0x00)
	m.Write(addr.BGP, 0xFC)
	m.Write(addr.OBP0, 0xFF)
	m.Write(addr.OBP1, 0xFF)
	m.Write(addr.WY, 0x00)
	m.Write(addr.WX, 0x00)
	m.Write(addr.IE, 0x00)
}

// Step executes one instruction and advances every peripheral by the
// elapsed cycle count. Returns the cycles consumed.
func (d *DMG) Step() int {
	cycles := d.cpu.Tick()

	d.gpu.Tick(cycles)
	d.mem.APU.Tick(cycles)
	d.mem.Tick(cycles)

	d.instructionCount++
	d.frameCycles += cycles

	return cycles
}

// RunUntilFrame steps the machine for one full frame worth of cycles.
func (d *DMG) RunUntilFrame() {
	for {
		d.Step()

		if d.frameCycles >= timing.CyclesPerFrame {
			d.frameCycles -= timing.CyclesPerFrame
			d.frameCount++
			if d.frameCount%60 == 0 {
				slog.Debug("Frame completed", "frame", d.frameCount, "pc", fmt.Sprintf("0x%04X", d.cpu.GetPC()))
			}
			return
		}
	}
}

// GetCurrentFrame returns the live frame buffer.
func (d *DMG) GetCurrentFrame() *video.FrameBuffer {
	return d.gpu.GetFrameBuffer()
}

// SetButton records the pressed state of a joypad key.
func (d *DMG) SetButton(key memory.JoypadKey, pressed bool) {
	d.mem.Joypad.Set(key, pressed)
}

// HandleKeyPress records a key press.
func (d *DMG) HandleKeyPress(key memory.JoypadKey) {
	d.mem.Joypad.Press(key)
}

// HandleKeyRelease records a key release.
func (d *DMG) HandleKeyRelease(key memory.JoypadKey) {
	d.mem.Joypad.Release(key)
}

// Channels returns the four per-channel audio sample rings.
func (d *DMG) Channels() [4]*audio.SampleRing {
	return [4]*audio.SampleRing{
		d.mem.APU.Ring(0),
		d.mem.APU.Ring(1),
		d.mem.APU.Ring(2),
		d.mem.APU.Ring(3),
	}
}

// GetCPU exposes the CPU, mainly for tests and debugging.
func (d *DMG) GetCPU() *cpu.CPU {
	return d.cpu
}

// GetMMU exposes the memory unit, mainly for tests and debugging.
func (d *DMG) GetMMU() *memory.MMU {
	return d.mem
}

// GetInstructionCount returns the number of executed instructions.
func (d *DMG) GetInstructionCount() uint64 {
	return d.instructionCount
}

// GetFrameCount returns the number of completed frames.
func (d *DMG) GetFrameCount() uint64 {
	return d.frameCount
}
