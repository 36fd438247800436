package memory

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const titleLength = 16

const (
	entryPointAddress     = 0x100
	titleAddress          = 0x134
	cartridgeTypeAddress  = 0x147
	romSizeAddress        = 0x148
	ramSizeAddress        = 0x149
	versionNumberAddress  = 0x14C
	headerChecksumAddress = 0x14D

	headerEnd = 0x150
)

// MBCType identifies the memory bank controller on a cartridge.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC2Type
	MBC3Type
	MBC5Type
	MBCUnknownType
)

func (t MBCType) String() string {
	switch t {
	case NoMBCType:
		return "ROM"
	case MBC1Type:
		return "MBC1"
	case MBC2Type:
		return "MBC2"
	case MBC3Type:
		return "MBC3"
	case MBC5Type:
		return "MBC5"
	}
	return "unknown"
}

// ErrMalformedHeader is returned when the ROM image is too small to hold
// a cartridge header or declares sizes the header encoding doesn't allow.
var ErrMalformedHeader = errors.New("malformed cartridge header")

// ramBankCounts maps the header RAM size index to 8KB bank counts.
var ramBankCounts = [6]uint8{0, 1, 1, 4, 16, 8}

// Cartridge holds a ROM image and the configuration decoded from its header.
type Cartridge struct {
	data         []byte
	title        string
	version      uint8
	cartType     uint8
	mbcType      MBCType
	romBankCount uint16
	ramBankCount uint8
	hasBattery   bool
	hasRTC       bool
	hasRumble    bool
}

// NewCartridge creates an empty cartridge, useful only for debugging purposes.
func NewCartridge() *Cartridge {
	return &Cartridge{
		data:         make([]byte, 0x8000),
		mbcType:      NoMBCType,
		romBankCount: 2,
	}
}

// NewCartridgeWithData decodes the header of a ROM image and returns the
// configured cartridge. It fails on truncated images, on size indexes the
// header encoding doesn't allow, and on controllers this core doesn't
// support (pocket camera, HuC and friends).
func NewCartridgeWithData(data []byte) (*Cartridge, error) {
	if len(data) < headerEnd {
		return nil, fmt.Errorf("%w: image is %d bytes", ErrMalformedHeader, len(data))
	}

	cart := &Cartridge{
		data:     make([]byte, len(data)),
		title:    cleanTitle(data[titleAddress : titleAddress+titleLength]),
		version:  data[versionNumberAddress],
		cartType: data[cartridgeTypeAddress],
	}
	copy(cart.data, data)

	switch cart.cartType {
	case 0x00:
		cart.mbcType = NoMBCType
	case 0x01:
		cart.mbcType = MBC1Type
	case 0x02:
		cart.mbcType = MBC1Type
	case 0x03:
		cart.mbcType = MBC1Type
		cart.hasBattery = true
	case 0x05:
		cart.mbcType = MBC2Type
	case 0x06:
		cart.mbcType = MBC2Type
		cart.hasBattery = true
	case 0x0F, 0x10:
		cart.mbcType = MBC3Type
		cart.hasBattery = true
		cart.hasRTC = true
	case 0x11, 0x12:
		cart.mbcType = MBC3Type
	case 0x13:
		cart.mbcType = MBC3Type
		cart.hasBattery = true
	case 0x19, 0x1A:
		cart.mbcType = MBC5Type
	case 0x1B:
		cart.mbcType = MBC5Type
		cart.hasBattery = true
	case 0x1C, 0x1D:
		cart.mbcType = MBC5Type
		cart.hasRumble = true
	case 0x1E:
		cart.mbcType = MBC5Type
		cart.hasBattery = true
		cart.hasRumble = true
	default:
		return nil, fmt.Errorf("unsupported cartridge kind 0x%02X", cart.cartType)
	}

	romSize := data[romSizeAddress]
	if romSize > 0x08 {
		return nil, fmt.Errorf("%w: ROM size index 0x%02X", ErrMalformedHeader, romSize)
	}
	cart.romBankCount = 2 << romSize

	ramSize := data[ramSizeAddress]
	if int(ramSize) >= len(ramBankCounts) {
		return nil, fmt.Errorf("%w: RAM size index 0x%02X", ErrMalformedHeader, ramSize)
	}
	cart.ramBankCount = ramBankCounts[ramSize]

	return cart, nil
}

// Title returns the game title decoded from the header.
func (c *Cartridge) Title() string { return c.title }

// Type returns the controller kind decoded from the header.
func (c *Cartridge) Type() MBCType { return c.mbcType }

// HasBattery reports whether the cartridge declared battery-backed RAM.
func (c *Cartridge) HasBattery() bool { return c.hasBattery }

// ROMBanks returns the number of 16KB ROM banks.
func (c *Cartridge) ROMBanks() uint16 { return c.romBankCount }

// RAMBanks returns the number of 8KB external RAM banks.
func (c *Cartridge) RAMBanks() uint8 { return c.ramBankCount }

// cleanTitle processes a raw ROM title: NULL bytes become spaces,
// non-printable characters are dropped, and the result is trimmed.
func cleanTitle(titleBytes []byte) string {
	runes := make([]rune, 0, len(titleBytes))
	for _, b := range titleBytes {
		r := rune(b)
		if r == 0 {
			r = ' '
		} else if !unicode.IsPrint(r) {
			continue
		}
		runes = append(runes, r)
	}

	return strings.TrimSpace(string(runes))
}
