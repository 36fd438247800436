package cpu

import "github.com/mrhelmut/LeBoy/leboy/bit"

// The stack grows downward; the high byte lands at SP-1 and the low
// byte at SP-2.
func (c *CPU) pushStack(r uint16) {
	c.sp--
	c.memory.Write(c.sp, bit.High(r))
	c.sp--
	c.memory.Write(c.sp, bit.Low(r))
}

func (c *CPU) popStack() uint16 {
	low := c.memory.Read(c.sp)
	c.sp++
	high := c.memory.Read(c.sp)
	c.sp++

	return bit.Combine(high, low)
}

func (c *CPU) inc(r *uint8) {
	*r++
	value := *r

	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(halfCarryFlag, (value&0xF) == 0)
	c.resetFlag(subFlag)
}

func (c *CPU) dec(r *uint8) {
	*r--
	value := *r

	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(halfCarryFlag, (value&0xF) == 0xF)
	c.setFlag(subFlag)
}

// rlc rotates left, bit 7 into carry and bit 0.
func (c *CPU) rlc(r *uint8) {
	value := *r
	value = (value << 1) | (value >> 7)
	*r = value

	c.setFlagToCondition(carryFlag, *r&0x01 != 0)
	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

// rl rotates left through the carry flag.
func (c *CPU) rl(r *uint8) {
	value := *r
	carry := c.flagToBit(carryFlag)

	c.setFlagToCondition(carryFlag, value > 0x7F)
	value = (value << 1) | carry
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

// rrc rotates right, bit 0 into carry and bit 7.
func (c *CPU) rrc(r *uint8) {
	value := *r

	c.setFlagToCondition(carryFlag, value&0x01 != 0)
	value = (value >> 1) | ((value & 1) << 7)
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

// rr rotates right through the carry flag.
func (c *CPU) rr(r *uint8) {
	value := *r
	carry := c.flagToBit(carryFlag) << 7

	c.setFlagToCondition(carryFlag, value&0x01 != 0)
	value = (value >> 1) | carry
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

// sla shifts left into carry, bit 0 becomes 0.
func (c *CPU) sla(r *uint8) {
	value := *r

	c.setFlagToCondition(carryFlag, value > 0x7F)
	value <<= 1
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

// sra shifts right into carry, bit 7 keeps its value.
func (c *CPU) sra(r *uint8) {
	value := *r

	c.setFlagToCondition(carryFlag, value&0x01 != 0)
	value = (value >> 1) | (value & 0x80)
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

// srl shifts right into carry, bit 7 becomes 0.
func (c *CPU) srl(r *uint8) {
	value := *r

	c.setFlagToCondition(carryFlag, value&0x01 != 0)
	value >>= 1
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

// swap exchanges the two nibbles.
func (c *CPU) swap(r *uint8) {
	value := (*r << 4) | (*r >> 4)
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

// bitCheck tests a single bit: Z is set when the bit is clear.
func (c *CPU) bitCheck(index uint8, value uint8) {
	c.setFlagToCondition(zeroFlag, !bit.IsSet(index, value))
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

// addToA sets the result of adding an 8 bit value to A, while setting all relevant flags.
func (c *CPU) addToA(value uint8) {
	a := c.a
	result := a + value

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0xF)+(value&0xF) > 0xF)
	c.setFlagToCondition(carryFlag, uint16(a)+uint16(value) > 0xFF)

	c.a = result
}

// adc adds the value and the carry flag to A.
func (c *CPU) adc(value uint8) {
	a := c.a
	carry := c.flagToBit(carryFlag)
	result := a + value + carry

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0xF)+(value&0xF)+carry > 0xF)
	c.setFlagToCondition(carryFlag, uint16(a)+uint16(value)+uint16(carry) > 0xFF)

	c.a = result
}

// addToHL sets the result of adding a 16 bit value to HL, while setting relevant flags.
func (c *CPU) addToHL(value uint16) {
	hl := c.getHL()
	result := hl + value

	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (hl&0xFFF)+(value&0xFFF) > 0xFFF)
	c.setFlagToCondition(carryFlag, uint32(hl)+uint32(value) > 0xFFFF)

	c.setHL(result)
}

// sub will subtract the value from register A and set all relevant flags.
func (c *CPU) sub(value uint8) {
	a := c.a
	c.a = a - value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0xF) < (value&0xF))
	c.setFlagToCondition(carryFlag, a < value)
}

// sbc will subtract the value and carry (1 if set, 0 otherwise) from the register A.
func (c *CPU) sbc(value uint8) {
	a := c.a
	carry := int(c.flagToBit(carryFlag))

	result := int(a) - int(value) - carry
	c.a = uint8(result)

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, int(a&0xF)-int(value&0xF)-carry < 0)
	c.setFlagToCondition(carryFlag, result < 0)
}

// cp compares the value against A without storing the result.
func (c *CPU) cp(value uint8) {
	a := c.a

	c.setFlagToCondition(zeroFlag, a == value)
	c.setFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (a&0xF) < (value&0xF))
	c.setFlagToCondition(carryFlag, a < value)
}

func (c *CPU) and(value uint8) {
	c.a &= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) or(value uint8) {
	c.a |= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) xor(value uint8) {
	c.a ^= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

// addSignedToSP computes SP plus a signed offset, setting H and C from
// the low byte addition and forcing Z and N to zero.
func (c *CPU) addSignedToSP(offset int8) uint16 {
	sp := c.sp
	value := uint16(offset)
	result := sp + uint16(int16(offset))

	c.resetFlag(zeroFlag)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (sp&0xF)+(value&0xF) > 0xF)
	c.setFlagToCondition(carryFlag, (sp&0xFF)+(value&0xFF) > 0xFF)

	return result
}

// daa adjusts A after a BCD addition or subtraction so the result is a
// valid packed BCD value again.
func (c *CPU) daa() {
	a := uint16(c.a)

	if !c.isSetFlag(subFlag) {
		if c.isSetFlag(halfCarryFlag) || a&0xF > 0x09 {
			a += 0x06
		}
		if c.isSetFlag(carryFlag) || a > 0x99 {
			a += 0x60
			c.setFlag(carryFlag)
		}
	} else {
		if c.isSetFlag(halfCarryFlag) {
			a -= 0x06
		}
		if c.isSetFlag(carryFlag) {
			a -= 0x60
		}
	}

	c.a = uint8(a)
	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(halfCarryFlag)
}

// jr adds a signed immediate offset to PC when the condition holds.
// Returns the cycle count for the taken/not-taken path.
func (c *CPU) jr(condition bool) int {
	offset := c.readImmediateSigned()
	if !condition {
		return 8
	}
	c.pc = uint16(int32(c.pc) + int32(offset))
	return 12
}

// jp jumps to an immediate address when the condition holds.
func (c *CPU) jp(condition bool) int {
	target := c.readImmediateWord()
	if !condition {
		return 12
	}
	c.pc = target
	return 16
}

// call pushes the return address and jumps when the condition holds.
func (c *CPU) call(condition bool) int {
	target := c.readImmediateWord()
	if !condition {
		return 12
	}
	c.pushStack(c.pc)
	c.pc = target
	return 24
}

// ret returns to the pushed address when the condition holds.
// Unconditional returns are dispatched directly by the opcode handlers.
func (c *CPU) ret(condition bool) int {
	if !condition {
		return 8
	}
	c.pc = c.popStack()
	return 20
}

// rst pushes PC and jumps to one of the fixed restart vectors.
func (c *CPU) rst(vector uint16) {
	c.pushStack(c.pc)
	c.pc = vector
}
