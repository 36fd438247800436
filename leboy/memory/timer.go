package memory

import (
	"github.com/mrhelmut/LeBoy/leboy/addr"
)

// timaPeriods maps TAC bits 1-0 to the TIMA tick period in T-cycles.
var timaPeriods = [4]int{1024, 16, 64, 256}

// divPeriod is the DIV tick period in T-cycles (16384 Hz).
const divPeriod = 256

// Timer implements the DIV/TIMA/TMA/TAC block. Both counters are
// post-scaled from CPU cycles: DIV advances every 256 cycles, TIMA at
// the TAC-selected rate while TAC bit 2 is set. A TIMA overflow reloads
// it from TMA and requests the timer interrupt.
type Timer struct {
	div  byte
	tima byte
	tma  byte
	tac  byte

	divAcc  int
	timaAcc int

	// TimerInterruptHandler is invoked on TIMA overflow.
	TimerInterruptHandler func()
}

// Seed sets the divider to its post-boot value.
func (t *Timer) Seed(div byte) {
	t.div = div
	t.divAcc = 0
}

// Tick advances the timer by the specified number of CPU cycles.
func (t *Timer) Tick(cycles int) {
	t.divAcc += cycles
	for t.divAcc >= divPeriod {
		t.divAcc -= divPeriod
		t.div++
	}

	if t.tac&0x04 == 0 {
		return
	}

	period := timaPeriods[t.tac&0x03]
	t.timaAcc += cycles
	for t.timaAcc >= period {
		t.timaAcc -= period
		t.tima++
		if t.tima == 0 {
			t.tima = t.tma
			if t.TimerInterruptHandler != nil {
				t.TimerInterruptHandler()
			}
		}
	}
}

func (t *Timer) Read(address uint16) byte {
	switch address {
	case addr.DIV:
		return t.div
	case addr.TIMA:
		return t.tima
	case addr.TMA:
		return t.tma
	case addr.TAC:
		return t.tac
	default:
		return 0xFF
	}
}

func (t *Timer) Write(address uint16, value byte) {
	switch address {
	case addr.DIV:
		// Writing any value to DIV resets the divider
		t.div = 0
		t.divAcc = 0
	case addr.TIMA:
		t.tima = value
	case addr.TMA:
		t.tma = value
	case addr.TAC:
		t.tac = value
	}
}
