package leboy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrhelmut/LeBoy/leboy/addr"
	"github.com/mrhelmut/LeBoy/leboy/memory"
	"github.com/mrhelmut/LeBoy/leboy/video"
)

// buildROM returns a 32KB ROM-only image with the given program at the
// entry point 0x0100.
func buildROM(program ...uint8) []uint8 {
	rom := make([]uint8, 0x8000)
	copy(rom[0x134:], "TEST")
	rom[0x147] = 0x00 // ROM only
	rom[0x148] = 0x00 // 2 banks
	rom[0x149] = 0x00 // no RAM
	copy(rom[0x100:], program)
	return rom
}

func TestDMG_loadPostBootState(t *testing.T) {
	d := New()
	err := d.Load(buildROM(0x00))
	assert.NoError(t, err)

	assert.Equal(t, uint16(0x0100), d.GetCPU().GetPC())
	assert.Equal(t, uint16(0xFFFE), d.GetCPU().GetSP())

	m := d.GetMMU()
	assert.Equal(t, uint8(0x3F), m.Read(addr.P1))
	assert.Equal(t, uint8(0x91), m.Read(addr.LCDC))
	assert.Equal(t, uint8(0xFC), m.Read(addr.BGP))
	assert.Equal(t, uint8(0x00), m.Read(addr.TIMA))
	assert.Equal(t, uint8(0x00), m.Read(addr.IE))
	assert.Equal(t, uint8(0xAB), m.Read(addr.DIV))
}

func TestDMG_loadFailureLeavesStateAlone(t *testing.T) {
	d := New()
	assert.NoError(t, d.Load(buildROM(0x00)))
	d.Step()
	pc := d.GetCPU().GetPC()

	err := d.Load([]uint8{0x01, 0x02})
	assert.Error(t, err)
	assert.Equal(t, pc, d.GetCPU().GetPC(), "a failed load changes nothing")
}

func TestDMG_nopAndJump(t *testing.T) {
	d := New()
	// NOP; JP 0x0150
	assert.NoError(t, d.Load(buildROM(0x00, 0xC3, 0x50, 0x01)))

	cycles := d.Step()
	assert.Equal(t, 4, cycles)

	cycles = d.Step()
	assert.Equal(t, 16, cycles)
	assert.Equal(t, uint16(0x0150), d.GetCPU().GetPC())

	d.Step()
	assert.Equal(t, uint64(3), d.GetInstructionCount())
}

func TestDMG_stepDrivesPeripherals(t *testing.T) {
	d := New()
	assert.NoError(t, d.Load(buildROM(0x00)))

	div := d.GetMMU().Read(addr.DIV)
	for i := 0; i < 300; i++ {
		d.Step()
	}
	assert.NotEqual(t, div, d.GetMMU().Read(addr.DIV), "the timer advanced with the CPU")
}

func TestDMG_vblankRaisedDuringFrame(t *testing.T) {
	d := New()
	// spin: JR -2
	assert.NoError(t, d.Load(buildROM(0x18, 0xFE)))

	m := d.GetMMU()
	m.Write(addr.IF, 0x00)

	for m.Read(addr.LY) != 144 {
		d.Step()
	}

	assert.Equal(t, uint8(0x01), m.Read(addr.IF)&0x01, "VBLANK requested at line 144")
}

func TestDMG_frameBufferContract(t *testing.T) {
	d := New()
	assert.NoError(t, d.Load(buildROM(0x18, 0xFE)))

	d.RunUntilFrame()

	data := d.GetCurrentFrame().ToBGRA()
	assert.Equal(t, video.FramebufferWidth*video.FramebufferHeight*4, len(data))
	for i := 3; i < len(data); i += 4 {
		if data[i] != 0xFF {
			t.Fatalf("alpha at offset %d is not opaque", i)
		}
	}
}

func TestDMG_joypadInterrupt(t *testing.T) {
	d := New()
	assert.NoError(t, d.Load(buildROM(0x00)))

	m := d.GetMMU()
	m.Write(addr.IF, 0x00)
	m.Write(addr.P1, 0x10) // select the button group

	d.SetButton(memory.JoypadA, true)

	assert.Equal(t, uint8(0x10), m.Read(addr.IF)&0x10, "pressing A raises the joypad interrupt")
	assert.Equal(t, uint8(0x1E), m.Read(addr.P1))
}

func TestDMG_audioChannelsExposed(t *testing.T) {
	d := New()
	assert.NoError(t, d.Load(buildROM(0x18, 0xFE)))

	m := d.GetMMU()
	m.Write(addr.NR52, 0x80)
	m.Write(addr.NR51, 0xFF)
	m.Write(addr.NR50, 0x77)
	m.Write(addr.NR22, 0xF0)
	m.Write(addr.NR24, 0x87)

	d.RunUntilFrame()

	channels := d.Channels()
	for i, ring := range channels {
		assert.Greater(t, ring.Len(), 0, "channel %d produced samples", i)
	}
}

func TestDMG_timerInterruptEndToEnd(t *testing.T) {
	d := New()
	assert.NoError(t, d.Load(buildROM(0x18, 0xFE)))

	m := d.GetMMU()
	m.Write(addr.IF, 0x00)
	m.Write(addr.TMA, 0xFE)
	m.Write(addr.TAC, 0x05) // enabled, every 16 cycles

	total := 0
	for total < 16*3 {
		total += d.Step()
	}
	assert.Equal(t, uint8(3), m.Read(addr.TIMA))
	assert.Equal(t, uint8(0), m.Read(addr.IF)&0x04)

	for total < 16*256 {
		total += d.Step()
	}
	assert.Equal(t, uint8(0x04), m.Read(addr.IF)&0x04, "overflow raised the timer interrupt")
	assert.Equal(t, uint8(0xFE), m.Read(addr.TIMA), "TIMA reloaded from TMA")
}
