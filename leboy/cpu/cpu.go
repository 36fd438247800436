package cpu

import (
	"github.com/mrhelmut/LeBoy/leboy/addr"
	"github.com/mrhelmut/LeBoy/leboy/bit"
	"github.com/mrhelmut/LeBoy/leboy/memory"
)

// Flag is one of the 4 possible flags used in the flag register (low part of AF)
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// interruptServiceCycles is the fixed cost of redirecting into a vector.
const interruptServiceCycles = 20

// CPU holds the LR35902 register file and execution state.
type CPU struct {
	memory *memory.MMU

	a, f uint8
	b, c uint8
	d, e uint8
	h, l uint8
	sp   uint16
	pc   uint16

	currentOpcode uint16

	// interrupt master enable; imePending models the one instruction
	// delay of EI
	ime        bool
	imePending bool
	halted     bool
}

// New returns a CPU hooked up to the given memory unit, with registers
// at their documented post-boot values.
func New(mmu *memory.MMU) *CPU {
	cpu := &CPU{memory: mmu}
	cpu.Reset()
	return cpu
}

// Reset puts the register file into the documented post-boot state.
func (c *CPU) Reset() {
	c.setAF(0x01B0)
	c.setBC(0x0013)
	c.setDE(0x00D8)
	c.setHL(0x014D)
	c.sp = 0xFFFE
	c.pc = 0x0100
	c.ime = false
	c.imePending = false
	c.halted = false
}

// Tick executes one instruction (or bills the halt cost), advances the
// EI delay, and services a pending interrupt if the master enable is
// set. Returns the elapsed T-cycles.
func (c *CPU) Tick() int {
	enableAfter := c.imePending

	var cycles int
	if c.halted {
		cycles = 4
	} else {
		cycles = c.executeNext()
	}

	// EI takes effect on the boundary after the following instruction
	if enableAfter && c.imePending {
		c.ime = true
		c.imePending = false
	}

	pending := c.memory.Read(addr.IF) & c.memory.Read(addr.IE) & 0x1F

	// halt ends on any enabled pending interrupt, with or without IME
	if pending != 0 {
		c.halted = false
	}

	if c.ime && pending != 0 {
		cycles += c.serviceInterrupt(pending)
	}

	return cycles
}

func (c *CPU) executeNext() int {
	opcode := c.readImmediate()
	c.currentOpcode = uint16(opcode)
	return opcodeMap[opcode](c)
}

// serviceInterrupt redirects execution into the vector of the
// lowest-numbered pending interrupt.
func (c *CPU) serviceInterrupt(pending uint8) int {
	var index uint8
	for index = 0; index < 5; index++ {
		if bit.IsSet(index, pending) {
			break
		}
	}

	c.ime = false
	c.halted = false
	iflag := c.memory.Read(addr.IF)
	c.memory.Write(addr.IF, bit.Reset(index, iflag))

	c.pushStack(c.pc)
	c.pc = addr.Interrupt(1 << index).Vector()

	return interruptServiceCycles
}

// GetPC returns the program counter.
func (c *CPU) GetPC() uint16 {
	return c.pc
}

// GetSP returns the stack pointer.
func (c *CPU) GetSP() uint16 {
	return c.sp
}

// IsHalted reports whether the CPU is waiting for an interrupt.
func (c *CPU) IsHalted() bool {
	return c.halted
}

// InterruptsEnabled reports the state of the master enable.
func (c *CPU) InterruptsEnabled() bool {
	return c.ime
}

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= uint8(flag)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

// flagToBit returns 1 if the flag is set, 0 otherwise.
func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

func (c *CPU) getAF() uint16 { return bit.Combine(c.a, c.f) }
func (c *CPU) getBC() uint16 { return bit.Combine(c.b, c.c) }
func (c *CPU) getDE() uint16 { return bit.Combine(c.d, c.e) }
func (c *CPU) getHL() uint16 { return bit.Combine(c.h, c.l) }

// setAF masks the low nibble of F to zero: those bits are hard-wired.
func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	c.f = bit.Low(value) & 0xF0
}

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

// readImmediate reads the byte at PC and advances past it.
func (c *CPU) readImmediate() uint8 {
	value := c.memory.Read(c.pc)
	c.pc++
	return value
}

// readImmediateWord reads a little-endian 16 bit value at PC.
func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return bit.Combine(high, low)
}

// readImmediateSigned reads the byte at PC as a signed offset.
func (c *CPU) readImmediateSigned() int8 {
	return int8(c.readImmediate())
}
