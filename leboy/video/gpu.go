package video

import (
	"sort"

	"github.com/mrhelmut/LeBoy/leboy/addr"
	"github.com/mrhelmut/LeBoy/leboy/bit"
	"github.com/mrhelmut/LeBoy/leboy/memory"
)

// GpuMode represents the PPU's current rendering stage.
// These values match the STAT register bits 1-0.
type GpuMode int

const (
	// hblankMode (Mode 0): Horizontal blank period, CPU can access VRAM/OAM
	hblankMode GpuMode = 0
	// vblankMode (Mode 1): Vertical blank period, CPU can access VRAM/OAM
	vblankMode GpuMode = 1
	// oamReadMode (Mode 2): PPU is reading OAM
	oamReadMode GpuMode = 2
	// vramReadMode (Mode 3): PPU is reading VRAM, pixels go out
	vramReadMode GpuMode = 3
)

const (
	oamScanlineCycles  = 80
	vramScanlineCycles = 172
	hblankCycles       = 204
	scanlineCycles     = oamScanlineCycles + vramScanlineCycles + hblankCycles

	visibleLines = 144
	vblankLines  = 10
)

// GPU drives the LCD mode state machine and rasterizes one scanline at a
// time, at the mode 3 -> 0 transition.
type GPU struct {
	memory      *memory.MMU
	framebuffer *FrameBuffer

	mode       GpuMode // current PPU mode (matches STAT bits 1-0)
	line       int     // current scanline (LY register, 0-153)
	cycles     int     // cycle counter within the current mode
	windowLine int     // internal window line counter (0-143)

	bgLine [FramebufferWidth]byte // background/window color indices of the line being drawn
}

func NewGpu(mmu *memory.MMU) *GPU {
	gpu := &GPU{
		framebuffer: NewFrameBuffer(),
		memory:      mmu,
		mode:        oamReadMode,
	}
	gpu.setMode(oamReadMode)

	return gpu
}

func (g *GPU) GetFrameBuffer() *FrameBuffer {
	return g.framebuffer
}

// Line returns the current scanline index (LY).
func (g *GPU) Line() int {
	return g.line
}

// Tick simulates gpu behaviour for a certain amount of clock cycles.
func (g *GPU) Tick(cycles int) {
	if !g.lcdEnabled() {
		// While the LCD is off, LY stays 0 and the machine holds a
		// fresh OAM scan for the next enable.
		g.cycles = 0
		g.windowLine = 0
		if g.line != 0 {
			g.setLY(0)
		}
		if g.mode != oamReadMode {
			g.setMode(oamReadMode)
		}
		return
	}

	g.cycles += cycles

	switch g.mode {
	case oamReadMode:
		if g.cycles >= oamScanlineCycles {
			g.cycles -= oamScanlineCycles
			g.setMode(vramReadMode)
		}
	case vramReadMode:
		if g.cycles >= vramScanlineCycles {
			g.cycles -= vramScanlineCycles
			// the whole line is rasterized on the way into H-Blank
			g.drawScanline()
			g.setMode(hblankMode)
			if g.memory.ReadBit(statHblankIrq, addr.STAT) {
				g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
			}
		}
	case hblankMode:
		if g.cycles >= hblankCycles {
			g.cycles -= hblankCycles
			g.setLY(g.line + 1)

			if g.line == visibleLines {
				g.setMode(vblankMode)
				g.windowLine = 0
				g.memory.RequestInterrupt(addr.VBlankInterrupt)
				if g.memory.ReadBit(statVblankIrq, addr.STAT) {
					g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
				}
			} else {
				g.setMode(oamReadMode)
				if g.memory.ReadBit(statOamIrq, addr.STAT) {
					g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
				}
			}
		}
	case vblankMode:
		if g.cycles >= scanlineCycles {
			g.cycles -= scanlineCycles
			if g.line+1 > visibleLines+vblankLines-1 {
				// wrap to the top of a new frame
				g.setLY(0)
				g.setMode(oamReadMode)
				if g.memory.ReadBit(statOamIrq, addr.STAT) {
					g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
				}
			} else {
				g.setLY(g.line + 1)
			}
		}
	}
}

func (g *GPU) drawScanline() {
	if g.line >= FramebufferHeight {
		return
	}

	g.drawBackground()
	g.drawWindow()
	g.drawSprites()
}

func (g *GPU) drawBackground() {
	lineWidth := g.line * FramebufferWidth
	palette := g.memory.Read(addr.BGP)

	if g.readLCDCVariable(bgDisplay) == 0 {
		// when the background is disabled the line shows color 0
		color := uint32(ByteToColor(palette & 0x03))
		for i := 0; i < FramebufferWidth; i++ {
			g.framebuffer.buffer[lineWidth+i] = color
			g.bgLine[i] = 0
		}
		return
	}

	useSignedTileSet := g.readLCDCVariable(bgWindowTileDataSelect) == 0
	useTileMapZero := g.readLCDCVariable(bgTileMapDisplaySelect) == 0

	tilesAddr := addr.TileData0 // unsigned mode
	if useSignedTileSet {
		tilesAddr = addr.TileData2 // signed mode
	}

	tileMapAddr := addr.TileMap1
	if useTileMapZero {
		tileMapAddr = addr.TileMap0
	}

	scrollX := int(g.memory.Read(addr.SCX))
	scrollY := int(g.memory.Read(addr.SCY))
	lineScrolled := (g.line + scrollY) & 0xFF // Y coordinate wraps at 256
	lineScrolled32 := (lineScrolled / 8) * 32
	tilePixelY2 := (lineScrolled % 8) * 2

	for screenPixelX := 0; screenPixelX < FramebufferWidth; screenPixelX++ {
		mapPixelX := (screenPixelX + scrollX) & 0xFF
		mapTileAddr := tileMapAddr + uint16(lineScrolled32+mapPixelX/8)
		tileValue := g.memory.Read(mapTileAddr)

		tileAddr := tileDataAddress(tilesAddr, tileValue, useSignedTileSet, tilePixelY2)
		low := g.memory.Read(tileAddr)
		high := g.memory.Read(tileAddr + 1)

		pixel := tilePixel(low, high, uint8(7-mapPixelX%8))
		shade := (palette >> (pixel * 2)) & 0x03

		g.framebuffer.buffer[lineWidth+screenPixelX] = uint32(ByteToColor(shade))
		g.bgLine[screenPixelX] = pixel
	}
}

func (g *GPU) drawWindow() {
	if g.readLCDCVariable(windowDisplayEnable) == 0 || g.windowLine > 143 {
		return
	}

	wy := int(g.memory.Read(addr.WY))
	if wy > g.line {
		return
	}

	wx := int(g.memory.Read(addr.WX)) - 7
	if wx > 159 {
		return
	}

	useSignedTileSet := g.readLCDCVariable(bgWindowTileDataSelect) == 0
	useTileMapZero := g.readLCDCVariable(windowTileMapSelect) == 0

	tilesAddr := addr.TileData0
	if useSignedTileSet {
		tilesAddr = addr.TileData2
	}

	tileMapAddr := addr.TileMap1
	if useTileMapZero {
		tileMapAddr = addr.TileMap0
	}

	// the window keeps its own line counter, so mid-frame WY changes
	// don't skip rows
	y32 := (g.windowLine / 8) * 32
	pixelY2 := (g.windowLine & 7) * 2
	lineWidth := g.line * FramebufferWidth
	palette := g.memory.Read(addr.BGP)

	for screenPixelX := 0; screenPixelX < FramebufferWidth; screenPixelX++ {
		if screenPixelX < wx {
			continue
		}

		windowPixelX := screenPixelX - wx
		mapTileAddr := tileMapAddr + uint16(y32+windowPixelX/8)
		tileValue := g.memory.Read(mapTileAddr)

		tileAddr := tileDataAddress(tilesAddr, tileValue, useSignedTileSet, pixelY2)
		low := g.memory.Read(tileAddr)
		high := g.memory.Read(tileAddr + 1)

		pixel := tilePixel(low, high, uint8(7-windowPixelX%8))
		shade := (palette >> (pixel * 2)) & 0x03

		g.framebuffer.buffer[lineWidth+screenPixelX] = uint32(ByteToColor(shade))
		g.bgLine[screenPixelX] = pixel
	}

	g.windowLine++
}

// spriteRef carries the OAM index and X coordinate used for priority.
type spriteRef struct {
	index int
	x     int
}

func (g *GPU) drawSprites() {
	if g.readLCDCVariable(spriteDisplayEnable) == 0 {
		return
	}

	spriteHeight := 8
	if g.readLCDCVariable(spriteSize) == 1 {
		spriteHeight = 16
	}

	// OAM selection: scan sprites in OAM order, comparing LY to each
	// sprite's Y range. At most ten sprites are kept per line; X plays
	// no part in selection.
	var selected []spriteRef
	for sprite := 0; sprite < 40 && len(selected) < 10; sprite++ {
		oamAddr := addr.OAMStart + uint16(sprite*4)
		spriteY := int(g.memory.Read(oamAddr)) - 16 // stored with +16 offset
		if spriteY > g.line || spriteY+spriteHeight <= g.line {
			continue
		}
		spriteX := int(g.memory.Read(oamAddr+1)) - 8 // stored with +8 offset
		selected = append(selected, spriteRef{index: sprite, x: spriteX})
	}

	// Draw order: lower X wins, ties broken by lower OAM index. The
	// winners are drawn last so their pixels land on top.
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].x != selected[j].x {
			return selected[i].x > selected[j].x
		}
		return selected[i].index > selected[j].index
	})

	lineWidth := g.line * FramebufferWidth

	for _, ref := range selected {
		oamAddr := addr.OAMStart + uint16(ref.index*4)
		spriteY := int(g.memory.Read(oamAddr)) - 16
		spriteX := ref.x
		spriteTile := g.memory.Read(oamAddr + 2)
		spriteFlags := g.memory.Read(oamAddr + 3)

		objPaletteAddr := addr.OBP0
		if bit.IsSet(4, spriteFlags) {
			objPaletteAddr = addr.OBP1
		}
		palette := g.memory.Read(objPaletteAddr)

		flipX := bit.IsSet(5, spriteFlags)
		flipY := bit.IsSet(6, spriteFlags)
		behindBG := bit.IsSet(7, spriteFlags)

		pixelY := g.line - spriteY
		if flipY {
			pixelY = spriteHeight - 1 - pixelY
		}

		// tall sprites ignore the tile index low bit
		tile := int(spriteTile)
		if spriteHeight == 16 {
			tile &= 0xFE
		}

		// sprites always use unsigned addressing from 0x8000
		tileAddr := addr.TileData0 + uint16(tile*16+pixelY*2)
		low := g.memory.Read(tileAddr)
		high := g.memory.Read(tileAddr + 1)

		for pixelX := 0; pixelX < 8; pixelX++ {
			bufferX := spriteX + pixelX
			if bufferX < 0 || bufferX >= FramebufferWidth {
				continue
			}

			pixelIdx := uint8(7 - pixelX)
			if flipX {
				pixelIdx = uint8(pixelX)
			}

			pixel := tilePixel(low, high, pixelIdx)
			// color 0 is transparent for sprites
			if pixel == 0 {
				continue
			}

			// a behind-background sprite only shows over BG color 0
			if behindBG && g.bgLine[bufferX] != 0 {
				continue
			}

			shade := (palette >> (pixel * 2)) & 0x03
			g.framebuffer.buffer[lineWidth+bufferX] = uint32(ByteToColor(shade))
		}
	}
}

// tileDataAddress resolves a tile index to the address of one tile row.
func tileDataAddress(base uint16, tileValue uint8, signed bool, rowOffset int) uint16 {
	if signed {
		// signed addressing: base 0x9000, tile numbers -128 to 127
		return uint16(int(base) + int(int8(tileValue))*16 + rowOffset)
	}
	return base + uint16(tileValue)*16 + uint16(rowOffset)
}

// tilePixel combines the two tile data planes into a 2-bit color index.
// The pixel is bit (7 - xInTile) of the high plane concatenated with the
// same bit of the low plane.
func tilePixel(low, high uint8, index uint8) byte {
	pixel := byte(0)
	if bit.IsSet(index, low) {
		pixel |= 1
	}
	if bit.IsSet(index, high) {
		pixel |= 2
	}
	return pixel
}

// LCD Stat (Status) Register bit values
// Bit 7 - unused
// Bit 6 - Interrupt based on LYC to LY comparison (based on bit 2)
// Bit 5 - Interrupt when Mode 10 (oamReadMode)
// Bit 4 - Interrupt when Mode 01 (vblankMode)
// Bit 3 - Interrupt when Mode 00 (hblankMode)
// Bit 2 - condition for triggering LYC/LY (0=LYC != LY, 1=LYC == LY)
// Bit 1,0 - represents the current GPU mode
const (
	statLycIrq       uint8 = 6
	statOamIrq       uint8 = 5
	statVblankIrq    uint8 = 4
	statHblankIrq    uint8 = 3
	statLycCondition uint8 = 2
)

// LCDC (LCD Control) Register bit values
// Bit 7 - LCD Display Enable (0=Off, 1=On)
// Bit 6 - Window Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 5 - Window Display Enable (0=Off, 1=On)
// Bit 4 - BG & Window Tile Data Select (0=8800-97FF, 1=8000-8FFF)
// Bit 3 - BG Tile Map Display Select (0=9800-9BFF, 1=9C00-9FFF)
// Bit 2 - OBJ (Sprite) Size (0=8x8, 1=8x16)
// Bit 1 - OBJ (Sprite) Display Enable (0=Off, 1=On)
// Bit 0 - BG Display (0=Off, 1=On)
type lcdcFlag uint8

const (
	lcdDisplayEnable       lcdcFlag = 7
	windowTileMapSelect    lcdcFlag = 6
	windowDisplayEnable    lcdcFlag = 5
	bgWindowTileDataSelect lcdcFlag = 4
	bgTileMapDisplaySelect lcdcFlag = 3
	spriteSize             lcdcFlag = 2
	spriteDisplayEnable    lcdcFlag = 1
	bgDisplay              lcdcFlag = 0
)

func (g *GPU) readLCDCVariable(flag lcdcFlag) byte {
	if bit.IsSet(uint8(flag), g.memory.Read(addr.LCDC)) {
		return 1
	}

	return 0
}

func (g *GPU) lcdEnabled() bool {
	return g.readLCDCVariable(lcdDisplayEnable) == 1
}

func (g *GPU) compareLYToLYC() {
	ly := g.memory.Read(addr.LY)
	lyc := g.memory.Read(addr.LYC)
	stat := g.memory.Read(addr.STAT)

	if ly == lyc {
		stat = bit.Set(statLycCondition, stat)
		if bit.IsSet(statLycIrq, stat) {
			g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	} else {
		stat = bit.Reset(statLycCondition, stat)
	}

	g.memory.Write(addr.STAT, stat)
}

// setMode sets the two bits (1,0) in the STAT register
// according to the selected GPU mode.
func (g *GPU) setMode(mode GpuMode) {
	g.mode = mode
	stat := g.memory.Read(addr.STAT)
	stat = stat&0xFC | byte(g.mode)
	g.memory.Write(addr.STAT, stat)
}

// setLY updates the current scanline (LY register).
// This also triggers interrupts if necessary (LY/LYC comparison)
func (g *GPU) setLY(line int) {
	g.line = line
	g.memory.Write(addr.LY, byte(g.line))
	g.compareLYToLYC()
}
