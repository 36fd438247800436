package memory

import (
	"fmt"
	"log/slog"

	"github.com/mrhelmut/LeBoy/leboy/addr"
	"github.com/mrhelmut/LeBoy/leboy/audio"
	"github.com/mrhelmut/LeBoy/leboy/bit"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

// MMU allows access to all memory mapped I/O and data/registers.
// It is the single owner of the 16-bit address space: the CPU, GPU and
// host all read and write bytes through it.
type MMU struct {
	cart      *Cartridge
	mbc       MBC
	memory    []byte
	APU       *audio.APU
	Joypad    *Joypad
	regionMap [256]memRegion

	timer Timer
}

// New creates a new memory unit with no cartridge loaded.
// Equivalent to turning on a Gameboy without a cartridge in.
func New() *MMU {
	mmu := &MMU{
		memory: make([]byte, 0x10000),
		cart:   NewCartridge(),
		APU:    audio.New(),
		Joypad: NewJoypad(),
	}
	mmu.mbc = NewNoMBC(mmu.cart.data)
	mmu.timer.TimerInterruptHandler = func() { mmu.RequestInterrupt(addr.TimerInterrupt) }
	mmu.Joypad.JoypadInterruptHandler = func() { mmu.RequestInterrupt(addr.JoypadInterrupt) }
	initRegionMap(mmu)
	return mmu
}

// NewWithCartridge creates a new memory unit with the provided cartridge
// loaded. Equivalent to turning on a Gameboy with a cartridge in.
func NewWithCartridge(cart *Cartridge) *MMU {
	mmu := New()
	mmu.cart = cart

	switch cart.mbcType {
	case NoMBCType:
		mmu.mbc = NewNoMBC(cart.data)
	case MBC1Type:
		mmu.mbc = NewMBC1(cart.data, cart.hasBattery, cart.ramBankCount)
	case MBC2Type:
		mmu.mbc = NewMBC2(cart.data)
	case MBC3Type:
		mmu.mbc = NewMBC3(cart.data, cart.hasRTC, cart.ramBankCount)
	case MBC5Type:
		mmu.mbc = NewMBC5(cart.data, cart.hasRumble, cart.ramBankCount)
	default:
		panic(fmt.Sprintf("unsupported MBC type: %d", cart.mbcType))
	}

	slog.Debug("Cartridge mapped",
		"title", cart.title,
		"controller", cart.mbcType.String(),
		"romBanks", cart.romBankCount,
		"ramBanks", cart.ramBankCount)

	return mmu
}

func initRegionMap(m *MMU) {
	// ROM: 0x0000-0x7FFF
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	// VRAM: 0x8000-0x9FFF
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	// External RAM: 0xA000-0xBFFF
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	// Work RAM: 0xC000-0xDFFF
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	// Echo RAM: 0xE000-0xFDFF
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	// OAM + unusable: 0xFE00-0xFEFF
	m.regionMap[0xFE] = regionOAM
	// IO + HRAM + IE: 0xFF00-0xFFFF
	m.regionMap[0xFF] = regionIO
}

// Cartridge returns the currently mapped cartridge.
func (m *MMU) Cartridge() *Cartridge {
	return m.cart
}

// ExternalRAM exposes the controller's battery-backed RAM, if any.
func (m *MMU) ExternalRAM() []uint8 {
	if dump, ok := m.mbc.(RAMDump); ok {
		return dump.RAM()
	}
	return nil
}

// Tick advances any i/o that needs it.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
}

// SetTimerSeed initializes the DIV register to its post-boot value.
func (m *MMU) SetTimerSeed(div byte) {
	m.timer.Seed(div)
}

// RequestInterrupt sets the interrupt flag (IF register) of the chosen interrupt to 1.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.memory[addr.IF] |= uint8(interrupt) | 0xE0
}

func (m *MMU) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, m.Read(address))
}

func (m *MMU) SetBit(index uint8, address uint16, set bool) {
	value := m.Read(address)
	if set {
		value = bit.Set(index, value)
	} else {
		value = bit.Reset(index, value)
	}
	m.Write(address, value)
}

func (m *MMU) Read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		return m.mbc.Read(address)
	case regionVRAM, regionWRAM:
		return m.memory[address]
	case regionEcho:
		return m.memory[address-0x2000]
	case regionOAM:
		if address <= addr.OAMEnd {
			return m.memory[address]
		}
		// Unusable area 0xFEA0-0xFEFF
		return 0x00
	default: // regionIO
		if address == addr.P1 {
			return m.Joypad.Read()
		}
		if address >= addr.DIV && address <= addr.TAC {
			return m.timer.Read(address)
		}
		if address >= addr.AudioStart && address <= addr.WaveRAMEnd {
			return m.APU.ReadRegister(address)
		}
		// The upper 3 bits of IF are unused and always read as 1.
		if address == addr.IF {
			return m.memory[address] | 0xE0
		}
		return m.memory[address]
	}
}

func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		// writes into ROM regions are controller commands
		m.mbc.Write(address, value)
	case regionVRAM:
		m.memory[address] = value
	case regionWRAM:
		m.memory[address] = value
		// writes to 0xC000-0xDDFF are mirrored into the echo window
		if address <= 0xDDFF {
			m.memory[address+0x2000] = value
		}
	case regionEcho:
		m.memory[address-0x2000] = value
		m.memory[address] = value
	case regionOAM:
		if address <= addr.OAMEnd {
			m.memory[address] = value
		}
		// Unusable area 0xFEA0-0xFEFF ignores writes
	default: // regionIO
		switch {
		case address == addr.P1:
			m.Joypad.Write(value)
		case address >= addr.DIV && address <= addr.TAC:
			m.timer.Write(address, value)
		case address >= addr.AudioStart && address <= addr.WaveRAMEnd:
			m.APU.WriteRegister(address, value)
		case address == addr.IF:
			m.memory[address] = value | 0xE0
		case address == addr.DMA:
			// OAM DMA: copy 160 bytes from value<<8 into OAM, synchronously
			sourceAddr := uint16(value) << 8
			for i := uint16(0); i < 160; i++ {
				m.memory[addr.OAMStart+i] = m.Read(sourceAddr + i)
			}
			m.memory[address] = value
		default:
			m.memory[address] = value
		}
	}
}
