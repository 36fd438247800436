package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrhelmut/LeBoy/leboy/addr"
	"github.com/mrhelmut/LeBoy/leboy/memory"
)

func TestCPU_eiTakesEffectAfterNextInstruction(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	// EI; NOP; NOP
	loadProgram(cpu, mmu, 0xFB, 0x00, 0x00)

	cpu.Tick() // EI
	assert.False(t, cpu.ime, "IME is still off right after EI")

	cpu.Tick() // NOP, the delay instruction
	assert.True(t, cpu.ime, "IME turns on after the following instruction")
}

func TestCPU_eiThenDiLeavesInterruptsOff(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	// EI; DI; NOP
	loadProgram(cpu, mmu, 0xFB, 0xF3, 0x00)

	cpu.Tick()
	cpu.Tick()
	assert.False(t, cpu.ime)
	assert.False(t, cpu.imePending)

	cpu.Tick()
	assert.False(t, cpu.ime, "DI cancels the pending enable")
}

func TestCPU_serviceInterrupt(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	loadProgram(cpu, mmu, 0x00) // NOP
	cpu.sp = 0xFFFE
	cpu.ime = true
	mmu.Write(addr.IE, 0x01)
	mmu.RequestInterrupt(addr.VBlankInterrupt)

	cycles := cpu.Tick()

	assert.Equal(t, 4+20, cycles, "instruction plus the fixed service cost")
	assert.Equal(t, uint16(0x0040), cpu.pc, "redirected to the VBLANK vector")
	assert.False(t, cpu.ime, "servicing clears IME")
	assert.Equal(t, uint8(0xE0), mmu.Read(addr.IF), "the serviced IF bit is cleared")
	assert.Equal(t, uint16(0xC001), cpu.popStack(), "the interrupted PC was pushed")
}

func TestCPU_interruptPriority(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	loadProgram(cpu, mmu, 0x00)
	cpu.sp = 0xFFFE
	cpu.ime = true
	mmu.Write(addr.IE, 0x1F)
	mmu.RequestInterrupt(addr.TimerInterrupt)
	mmu.RequestInterrupt(addr.JoypadInterrupt)

	cpu.Tick()

	assert.Equal(t, uint16(0x0050), cpu.pc, "the lowest set bit wins")
	assert.Equal(t, uint8(0x10)|0xE0, mmu.Read(addr.IF), "only the serviced bit is cleared")
}

func TestCPU_interruptIgnoredWithoutIME(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	loadProgram(cpu, mmu, 0x00, 0x00)
	cpu.ime = false
	mmu.Write(addr.IE, 0x01)
	mmu.RequestInterrupt(addr.VBlankInterrupt)

	cycles := cpu.Tick()

	assert.Equal(t, 4, cycles)
	assert.Equal(t, uint16(0xC001), cpu.pc, "no redirection while IME is off")
	assert.Equal(t, uint8(0x01)|0xE0, mmu.Read(addr.IF), "the request stays pending")
}

func TestCPU_haltBillsFourCyclesAndWakes(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	loadProgram(cpu, mmu, 0x76, 0x00) // HALT; NOP
	cpu.Tick()
	assert.True(t, cpu.halted)

	// nothing pending: the CPU idles at 4 cycles per step
	assert.Equal(t, 4, cpu.Tick())
	assert.Equal(t, 4, cpu.Tick())
	assert.Equal(t, uint16(0xC001), cpu.pc)

	// an enabled pending interrupt ends halt even with IME off,
	// without being serviced
	mmu.Write(addr.IE, 0x04)
	mmu.RequestInterrupt(addr.TimerInterrupt)
	cpu.Tick()
	assert.False(t, cpu.halted)

	cycles := cpu.Tick() // executes the NOP after HALT
	assert.Equal(t, 4, cycles)
	assert.Equal(t, uint16(0xC002), cpu.pc)
	assert.Equal(t, uint8(0x04)|0xE0, mmu.Read(addr.IF), "request not serviced with IME off")
}

func TestCPU_haltServicedWithIME(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	loadProgram(cpu, mmu, 0x76) // HALT
	cpu.sp = 0xFFFE
	cpu.ime = true
	cpu.Tick()
	assert.True(t, cpu.halted)

	mmu.Write(addr.IE, 0x01)
	mmu.RequestInterrupt(addr.VBlankInterrupt)

	cycles := cpu.Tick()
	assert.Equal(t, 4+20, cycles)
	assert.False(t, cpu.halted)
	assert.Equal(t, uint16(0x0040), cpu.pc)
}

func TestCPU_retiEnablesInterrupts(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	// RETI; NOP
	loadProgram(cpu, mmu, 0xD9, 0x00)
	cpu.sp = 0xFFFC
	mmu.Write(0xFFFC, 0x01)
	mmu.Write(0xFFFD, 0xC0)

	cycles := cpu.Tick()
	assert.Equal(t, 16, cycles)
	assert.Equal(t, uint16(0xC001), cpu.pc)
	assert.False(t, cpu.ime, "RETI enables via the pending path")

	cpu.Tick()
	assert.True(t, cpu.ime)
}
