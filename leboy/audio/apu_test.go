package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrhelmut/LeBoy/leboy/addr"
)

// newPoweredAPU returns an APU with power on, all channels panned both
// sides and master volume at maximum.
func newPoweredAPU() *APU {
	apu := New()
	apu.WriteRegister(addr.NR52, 0x80)
	apu.WriteRegister(addr.NR51, 0xFF)
	apu.WriteRegister(addr.NR50, 0x77)
	return apu
}

// tick advances the APU in small slices, the way the orchestrator does.
func tick(apu *APU, cycles int) {
	for cycles > 0 {
		step := 8
		if cycles < step {
			step = cycles
		}
		apu.Tick(step)
		cycles -= step
	}
}

func TestAPU_disabledProducesNothing(t *testing.T) {
	apu := New()

	apu.Tick(100000)
	assert.Equal(t, 0, apu.Ring(0).Len())
	assert.Equal(t, uint8(0x70), apu.ReadRegister(addr.NR52))
}

func TestAPU_registerWritesIgnoredWhileOff(t *testing.T) {
	apu := New()

	apu.WriteRegister(addr.NR50, 0x77)
	assert.Equal(t, uint8(0x00), apu.ReadRegister(addr.NR50))

	// wave RAM is writable regardless of power
	apu.WriteRegister(addr.WaveRAMStart, 0xAB)
	assert.Equal(t, uint8(0xAB), apu.ReadRegister(addr.WaveRAMStart))
}

func TestAPU_powerOffClearsRegisters(t *testing.T) {
	apu := newPoweredAPU()
	apu.WriteRegister(addr.NR11, 0xBF)

	apu.WriteRegister(addr.NR52, 0x00)

	assert.Equal(t, uint8(0x70), apu.ReadRegister(addr.NR52))
	assert.Equal(t, uint8(0x00)|0b0011_1111, apu.ReadRegister(addr.NR11))
	assert.Equal(t, uint8(0x00), apu.ReadRegister(addr.NR50))
}

func TestAPU_readMasks(t *testing.T) {
	apu := newPoweredAPU()

	testCases := []struct {
		register uint16
		written  uint8
		want     uint8
	}{
		{register: addr.NR10, written: 0x00, want: 0b1000_0000},
		{register: addr.NR11, written: 0x80, want: 0x80 | 0b0011_1111},
		{register: addr.NR13, written: 0x12, want: 0xFF},
		{register: addr.NR30, written: 0x00, want: 0b0111_1111},
		{register: addr.NR32, written: 0x20, want: 0x20 | 0b1001_1111},
		{register: addr.NR41, written: 0x3F, want: 0xFF},
	}
	for _, tC := range testCases {
		apu.WriteRegister(tC.register, tC.written)
		assert.Equal(t, tC.want, apu.ReadRegister(tC.register), "register 0x%04X", tC.register)
	}
}

func TestAPU_squareChannelSamples(t *testing.T) {
	apu := newPoweredAPU()

	// channel 2: 50% duty, full volume, no envelope, freq raw 0x700
	apu.WriteRegister(addr.NR21, 0xBF)
	apu.WriteRegister(addr.NR22, 0xF0)
	apu.WriteRegister(addr.NR23, 0x00)
	apu.WriteRegister(addr.NR24, 0x87)

	_, ch2, _, _ := apu.GetChannelStatus()
	assert.True(t, ch2, "trigger armed the channel")

	// one tenth of a second of CPU time
	tick(apu, 4194304/10)

	ring := apu.Ring(1)
	assert.InDelta(t, SampleRate/10, ring.Len(), 2, "one tenth of a second of samples")

	samples := ring.Pop(ring.Len())
	var positive, negative bool
	for _, s := range samples {
		if s > 0 {
			positive = true
		}
		if s < 0 {
			negative = true
		}
		if s != 0 {
			assert.InDelta(t, 8191, abs(int(s)), 2, "envelope-scaled amplitude")
		}
	}
	assert.True(t, positive, "high duty steps produce positive samples")
	assert.True(t, negative, "low duty steps mirror below zero")
}

func TestAPU_silentChannelEmitsZeroSamples(t *testing.T) {
	apu := newPoweredAPU()

	tick(apu, 4194304/10)

	ring := apu.Ring(3)
	assert.InDelta(t, SampleRate/10, ring.Len(), 2, "rings stay in sync even when silent")
	for _, s := range ring.Pop(4) {
		assert.Equal(t, int16(0), s)
	}
}

func TestAPU_lengthCounterDisablesChannel(t *testing.T) {
	apu := newPoweredAPU()

	apu.WriteRegister(addr.NR21, 0x3F) // length timer 63 -> one tick left
	apu.WriteRegister(addr.NR22, 0xF0)
	apu.WriteRegister(addr.NR24, 0xC7) // trigger + length enable

	_, ch2, _, _ := apu.GetChannelStatus()
	assert.True(t, ch2)

	tick(apu, cyclesPerStep)

	_, ch2, _, _ = apu.GetChannelStatus()
	assert.False(t, ch2, "length ran out")
}

func TestAPU_triggerReloadsExpiredLength(t *testing.T) {
	apu := newPoweredAPU()

	apu.WriteRegister(addr.NR21, 0x3F)
	apu.WriteRegister(addr.NR22, 0xF0)
	apu.WriteRegister(addr.NR24, 0xC7)
	tick(apu, cyclesPerStep)

	// retrigger: the length counter reloads to 64
	apu.WriteRegister(addr.NR24, 0xC7)
	assert.Equal(t, uint16(64), apu.ch[1].length)

	_, ch2, _, _ := apu.GetChannelStatus()
	assert.True(t, ch2)
}

func TestAPU_envelopeSteps(t *testing.T) {
	apu := newPoweredAPU()

	// volume 15, direction down, pace 3
	apu.WriteRegister(addr.NR21, 0x80)
	apu.WriteRegister(addr.NR22, 0xF3)
	apu.WriteRegister(addr.NR24, 0x87)

	assert.Equal(t, uint8(15), apu.ch[1].volume)

	// three envelope ticks (64 Hz) pass in 3 * 65536 cycles
	tick(apu, 3*8*cyclesPerStep)
	assert.Equal(t, uint8(14), apu.ch[1].volume, "one step down per pace interval")

	tick(apu, 3*8*cyclesPerStep)
	assert.Equal(t, uint8(13), apu.ch[1].volume)
}

func TestAPU_envelopeSaturates(t *testing.T) {
	apu := newPoweredAPU()

	// volume 1, direction down, pace 1
	apu.WriteRegister(addr.NR22, 0x11)
	apu.WriteRegister(addr.NR24, 0x87)

	tick(apu, 40*8*cyclesPerStep)
	assert.Equal(t, uint8(0), apu.ch[1].volume, "envelope saturates at zero")
}

func TestAPU_sweepRaisesFrequency(t *testing.T) {
	apu := newPoweredAPU()

	// pace 1, direction up, shift 1; freq raw 0x400
	apu.WriteRegister(addr.NR10, 0x11)
	apu.WriteRegister(addr.NR12, 0xF0)
	apu.WriteRegister(addr.NR13, 0x00)
	apu.WriteRegister(addr.NR14, 0x84)

	assert.Equal(t, uint16(0x400), apu.ch[0].period)

	// the first sweep tick lands on sequencer step 2
	tick(apu, 3*cyclesPerStep)

	assert.Equal(t, uint16(0x600), apu.ch[0].period, "f + (f >> 1)")
	assert.Equal(t, uint8(0x00), apu.NR13)
	assert.Equal(t, uint8(0x06), apu.NR14&0x07, "frequency registers follow the sweep")
}

func TestAPU_sweepOverflowDisablesChannel(t *testing.T) {
	apu := newPoweredAPU()

	apu.WriteRegister(addr.NR10, 0x11)
	apu.WriteRegister(addr.NR12, 0xF0)
	apu.WriteRegister(addr.NR13, 0xFF)
	apu.WriteRegister(addr.NR14, 0x87) // raw freq 0x7FF

	tick(apu, 3*cyclesPerStep)

	ch1, _, _, _ := apu.GetChannelStatus()
	assert.False(t, ch1, "the swept frequency left the 11-bit range")
}

func TestAPU_waveChannelPlaysWaveRAM(t *testing.T) {
	apu := newPoweredAPU()

	for i := uint16(0); i < 16; i++ {
		apu.WriteRegister(addr.WaveRAMStart+i, 0xFF)
	}
	apu.WriteRegister(addr.NR30, 0x80) // DAC on
	apu.WriteRegister(addr.NR32, 0x20) // full output level
	apu.WriteRegister(addr.NR33, 0x00)
	apu.WriteRegister(addr.NR34, 0x87)

	tick(apu, 4194304/20)

	ring := apu.Ring(2)
	assert.Greater(t, ring.Len(), 0)
	samples := ring.Pop(ring.Len())
	var nonzero bool
	for _, s := range samples {
		if s != 0 {
			nonzero = true
			break
		}
	}
	assert.True(t, nonzero, "wave RAM content reaches the output")
}

func TestAPU_waveOutputLevels(t *testing.T) {
	apu := newPoweredAPU()
	ch := &apu.ch[2]
	ch.enabled = true
	ch.dacEnabled = true
	apu.waveRAM[0] = 0xF0 // first nibble 15 -> level 7 after centering

	ch.volume = 1
	assert.Equal(t, 7, apu.channelLevel(2, ch))
	ch.volume = 2
	assert.Equal(t, 3, apu.channelLevel(2, ch), "half level")
	ch.volume = 3
	assert.Equal(t, 1, apu.channelLevel(2, ch), "quarter level")
	ch.volume = 0
	assert.Equal(t, 0, apu.channelLevel(2, ch), "muted")
}

func TestAPU_noiseLFSR(t *testing.T) {
	ch := Channel{lfsr: 0x7FFF}

	ch.clockLFSR()
	assert.Equal(t, uint16(0x3FFF), ch.lfsr, "xor of the two low bits lands on bit 14")

	ch = Channel{lfsr: 0x0001}
	ch.clockLFSR()
	assert.Equal(t, uint16(0x4000), ch.lfsr)

	// 7-bit mode mirrors the feedback into bit 6
	ch = Channel{lfsr: 0x0001, use7bitLFSR: true}
	ch.clockLFSR()
	assert.Equal(t, uint16(0x4040), ch.lfsr)
}

func TestAPU_noiseChannelProducesBothPolarities(t *testing.T) {
	apu := newPoweredAPU()

	apu.WriteRegister(addr.NR42, 0xF0)
	apu.WriteRegister(addr.NR43, 0x00) // fastest clock
	apu.WriteRegister(addr.NR44, 0x80)

	tick(apu, 4194304/10)

	samples := apu.Ring(3).Pop(apu.Ring(3).Len())
	var positive, negative bool
	for _, s := range samples {
		if s > 0 {
			positive = true
		}
		if s < 0 {
			negative = true
		}
	}
	assert.True(t, positive)
	assert.True(t, negative)
}

func TestAPU_dacOffDisablesChannel(t *testing.T) {
	apu := newPoweredAPU()

	apu.WriteRegister(addr.NR22, 0xF0)
	apu.WriteRegister(addr.NR24, 0x87)
	_, ch2, _, _ := apu.GetChannelStatus()
	assert.True(t, ch2)

	apu.WriteRegister(addr.NR22, 0x00)
	_, ch2, _, _ = apu.GetChannelStatus()
	assert.False(t, ch2, "clearing the DAC bits cuts the channel")
}

func TestAPU_nr52ChannelStatusBits(t *testing.T) {
	apu := newPoweredAPU()

	apu.WriteRegister(addr.NR22, 0xF0)
	apu.WriteRegister(addr.NR24, 0x87)

	status := apu.ReadRegister(addr.NR52)
	assert.Equal(t, uint8(0x80), status&0x80)
	assert.Equal(t, uint8(0x02), status&0x0F, "channel 2 active bit")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
