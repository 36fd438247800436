package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoypad_defaultState(t *testing.T) {
	j := NewJoypad()
	assert.Equal(t, uint8(0x3F), j.Read(), "nothing selected, nothing pressed")
}

func TestJoypad_buttonGroupSelection(t *testing.T) {
	j := NewJoypad()

	j.Press(JoypadA)
	j.Press(JoypadDown)

	j.Write(0x10) // bit 5 low -> buttons
	assert.Equal(t, uint8(0x1E), j.Read(), "A is bit 0, active-low")

	j.Write(0x20) // bit 4 low -> directions
	assert.Equal(t, uint8(0x27), j.Read(), "Down is bit 3, active-low")

	j.Write(0x00) // both groups: the nibbles AND together
	assert.Equal(t, uint8(0x06), j.Read())

	j.Write(0x30) // neither group
	assert.Equal(t, uint8(0x3F), j.Read())
}

func TestJoypad_writeOnlyTouchesSelectBits(t *testing.T) {
	j := NewJoypad()

	j.Write(0xFF)
	assert.Equal(t, uint8(0x3F), j.Read(), "the low nibble is driven by button state")
}

func TestJoypad_interruptOnPress(t *testing.T) {
	j := NewJoypad()
	interrupts := 0
	j.JoypadInterruptHandler = func() { interrupts++ }

	j.Write(0x10) // select buttons
	j.Press(JoypadA)
	assert.Equal(t, 1, interrupts, "high-to-low transition raises the interrupt")

	j.Press(JoypadA)
	assert.Equal(t, 1, interrupts, "holding does not re-trigger")

	j.Release(JoypadA)
	assert.Equal(t, 1, interrupts, "releases never trigger")
}

func TestJoypad_noInterruptForUnselectedGroup(t *testing.T) {
	j := NewJoypad()
	interrupts := 0
	j.JoypadInterruptHandler = func() { interrupts++ }

	j.Write(0x20) // select directions only
	j.Press(JoypadA)
	assert.Equal(t, 0, interrupts, "button group is not selected")

	j.Press(JoypadLeft)
	assert.Equal(t, 1, interrupts)
}
