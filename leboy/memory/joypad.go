package memory

import "github.com/mrhelmut/LeBoy/leboy/bit"

// JoypadKey represents a key on the Gameboy joypad
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// Joypad tracks the physical button state and the P1 select bits.
//
// P1 is a multiplexer: bits 4-5 select which button group drives the low
// nibble, and the nibble itself is active-low (0 = pressed). A
// high-to-low transition on a selected line raises the joypad interrupt.
type Joypad struct {
	buttons uint8 // A, B, Select, Start on bits 0-3, active-low
	dpad    uint8 // Right, Left, Up, Down on bits 0-3, active-low
	p1      uint8 // last written select bits (4-5)

	// JoypadInterruptHandler is invoked on a high-to-low line transition.
	JoypadInterruptHandler func()
}

// NewJoypad creates a new Joypad instance with all keys released.
func NewJoypad() *Joypad {
	return &Joypad{
		buttons: 0x0F,
		dpad:    0x0F,
		p1:      0x30,
	}
}

// Read returns the P1 register: select bits plus the multiplexed nibble.
func (j *Joypad) Read() uint8 {
	result := j.p1 & 0b00110000

	// A button group is selected when the corresponding bit is 0
	selectDpad := !bit.IsSet(4, j.p1)
	selectButtons := !bit.IsSet(5, j.p1)

	switch {
	case selectButtons && !selectDpad:
		result |= j.buttons & 0x0F
	case selectDpad && !selectButtons:
		result |= j.dpad & 0x0F
	case selectButtons && selectDpad:
		result |= j.buttons & j.dpad & 0x0F
	default:
		result |= 0x0F
	}

	return result
}

// Write updates the select bits; the low nibble is read-only.
func (j *Joypad) Write(value uint8) {
	j.p1 = value & 0b00110000
}

// Set records a key press or release. Pressing a key on a currently
// selected group raises the joypad interrupt.
func (j *Joypad) Set(key JoypadKey, pressed bool) {
	before := j.Read() & 0x0F

	index := uint8(key) & 0x03
	isDpad := key <= JoypadDown
	switch {
	case isDpad && pressed:
		j.dpad = bit.Reset(index, j.dpad)
	case isDpad && !pressed:
		j.dpad = bit.Set(index, j.dpad)
	case pressed:
		j.buttons = bit.Reset(index, j.buttons)
	default:
		j.buttons = bit.Set(index, j.buttons)
	}

	after := j.Read() & 0x0F
	if before&^after != 0 && j.JoypadInterruptHandler != nil {
		j.JoypadInterruptHandler()
	}
}

// Press updates the joypad state when a key is pressed.
func (j *Joypad) Press(key JoypadKey) {
	j.Set(key, true)
}

// Release updates the joypad state when a key is released.
func (j *Joypad) Release(key JoypadKey) {
	j.Set(key, false)
}
