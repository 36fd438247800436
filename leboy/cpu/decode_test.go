package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrhelmut/LeBoy/leboy/memory"
)

// loadProgram places opcodes in work RAM and points PC at them.
func loadProgram(cpu *CPU, mmu *memory.MMU, program ...uint8) {
	const base = 0xC000
	for i, b := range program {
		mmu.Write(base+uint16(i), b)
	}
	cpu.pc = base
}

func TestCPU_nopAndJump(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	// NOP; JP 0xC150
	loadProgram(cpu, mmu, 0x00, 0xC3, 0x50, 0xC1)

	cycles := cpu.Tick()
	assert.Equal(t, 4, cycles)
	assert.Equal(t, uint16(0xC001), cpu.pc)

	cycles = cpu.Tick()
	assert.Equal(t, 16, cycles)
	assert.Equal(t, uint16(0xC150), cpu.pc)
}

func TestCPU_loadImmediates(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	// LD BC,0x1234; LD A,0x42; LD (BC),A
	loadProgram(cpu, mmu, 0x01, 0x34, 0x12, 0x3E, 0x42, 0x02)
	cpu.setBC(0)

	assert.Equal(t, 12, cpu.Tick())
	assert.Equal(t, uint16(0x1234), cpu.getBC())

	assert.Equal(t, 8, cpu.Tick())
	assert.Equal(t, uint8(0x42), cpu.a)

	// redirect BC into RAM before the store executes
	cpu.setBC(0xD000)
	assert.Equal(t, 8, cpu.Tick())
	assert.Equal(t, uint8(0x42), mmu.Read(0xD000))
}

func TestCPU_cbDispatch(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	// CB 37 = SWAP A
	loadProgram(cpu, mmu, 0xCB, 0x37)
	cpu.a = 0xAB

	cycles := cpu.Tick()
	assert.Equal(t, 8, cycles)
	assert.Equal(t, uint8(0xBA), cpu.a)
	assert.Equal(t, uint16(0xCB37), cpu.currentOpcode)
}

func TestCPU_cbMemoryOperand(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	// CB C6 = SET 0, (HL)
	loadProgram(cpu, mmu, 0xCB, 0xC6)
	cpu.setHL(0xD100)
	mmu.Write(0xD100, 0x00)

	cycles := cpu.Tick()
	assert.Equal(t, 16, cycles)
	assert.Equal(t, uint8(0x01), mmu.Read(0xD100))
}

func TestCPU_illegalOpcodesAreNops(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	for _, opcode := range []uint8{0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD} {
		loadProgram(cpu, mmu, opcode)
		before := cpu.pc

		cycles := cpu.Tick()
		assert.Equal(t, 4, cycles, "opcode 0x%02X", opcode)
		assert.Equal(t, before+1, cpu.pc, "opcode 0x%02X is one byte", opcode)
	}
}

func TestCPU_stopIsTwoByteNop(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	loadProgram(cpu, mmu, 0x10, 0x00, 0x04) // STOP; INC B
	cpu.b = 0

	cycles := cpu.Tick()
	assert.Equal(t, 4, cycles)
	assert.Equal(t, uint16(0xC002), cpu.pc, "STOP consumes its padding byte")

	cpu.Tick()
	assert.Equal(t, uint8(1), cpu.b)
}

func TestCPU_pushPopRoundTrip(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	// PUSH BC; POP DE
	loadProgram(cpu, mmu, 0xC5, 0xD1)
	cpu.sp = 0xFFFE
	cpu.setBC(0xBEEF)
	cpu.setDE(0)

	assert.Equal(t, 16, cpu.Tick())
	assert.Equal(t, 12, cpu.Tick())
	assert.Equal(t, uint16(0xBEEF), cpu.getDE())
	assert.Equal(t, uint16(0xFFFE), cpu.sp)
}

func TestCPU_popAFMasksLowNibble(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	// PUSH BC; POP AF
	loadProgram(cpu, mmu, 0xC5, 0xF1)
	cpu.sp = 0xFFFE
	cpu.setBC(0x12FF)

	cpu.Tick()
	cpu.Tick()
	assert.Equal(t, uint8(0x12), cpu.a)
	assert.Equal(t, uint8(0xF0), cpu.f, "low nibble of F is hard-wired to zero")
}

func TestCPU_highPageLoads(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	// LDH (0x80),A ; LDH A,(0x80)
	loadProgram(cpu, mmu, 0xE0, 0x80, 0x3E, 0x00, 0xF0, 0x80)
	cpu.a = 0x5A

	assert.Equal(t, 12, cpu.Tick())
	assert.Equal(t, uint8(0x5A), mmu.Read(0xFF80))

	cpu.Tick() // LD A,0
	assert.Equal(t, 12, cpu.Tick())
	assert.Equal(t, uint8(0x5A), cpu.a)
}

func TestCPU_conditionalCycleCounts(t *testing.T) {
	mmu := memory.New()
	cpu := New(mmu)

	// JR NZ with Z set: not taken
	loadProgram(cpu, mmu, 0x20, 0x10)
	cpu.setFlag(zeroFlag)
	assert.Equal(t, 8, cpu.Tick())
	assert.Equal(t, uint16(0xC002), cpu.pc)

	// JR NZ with Z clear: taken
	loadProgram(cpu, mmu, 0x20, 0x10)
	cpu.resetFlag(zeroFlag)
	assert.Equal(t, 12, cpu.Tick())
	assert.Equal(t, uint16(0xC012), cpu.pc)

	// RET Z taken costs 20
	loadProgram(cpu, mmu, 0xC8)
	cpu.sp = 0xFFFC
	mmu.Write(0xFFFC, 0x00)
	mmu.Write(0xFFFD, 0xC1)
	cpu.setFlag(zeroFlag)
	assert.Equal(t, 20, cpu.Tick())
	assert.Equal(t, uint16(0xC100), cpu.pc)
}
