package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrhelmut/LeBoy/leboy/addr"
	"github.com/mrhelmut/LeBoy/leboy/memory"
)

func newTestGPU() (*GPU, *memory.MMU) {
	mmu := memory.New()
	mmu.Write(addr.LCDC, 0x91)
	mmu.Write(addr.BGP, 0xE4)
	gpu := NewGpu(mmu)
	return gpu, mmu
}

func runLine(gpu *GPU) {
	gpu.Tick(oamScanlineCycles)
	gpu.Tick(vramScanlineCycles)
	gpu.Tick(hblankCycles)
}

func TestGPU_modeProgression(t *testing.T) {
	gpu, mmu := newTestGPU()

	assert.Equal(t, uint8(2), mmu.Read(addr.STAT)&0x03, "starts in OAM scan")

	gpu.Tick(oamScanlineCycles)
	assert.Equal(t, uint8(3), mmu.Read(addr.STAT)&0x03, "draw after 80 cycles")

	gpu.Tick(vramScanlineCycles)
	assert.Equal(t, uint8(0), mmu.Read(addr.STAT)&0x03, "H-Blank after 172 more")

	gpu.Tick(hblankCycles)
	assert.Equal(t, uint8(2), mmu.Read(addr.STAT)&0x03, "next line starts scanning")
	assert.Equal(t, uint8(1), mmu.Read(addr.LY))
}

func TestGPU_vblankAfterLastVisibleLine(t *testing.T) {
	gpu, mmu := newTestGPU()

	for line := 0; line < 144; line++ {
		runLine(gpu)
	}

	assert.Equal(t, uint8(144), mmu.Read(addr.LY))
	assert.Equal(t, uint8(1), mmu.Read(addr.STAT)&0x03, "mode 1 during V-Blank")
	assert.Equal(t, uint8(0x01), mmu.Read(addr.IF)&0x01, "VBLANK interrupt raised")
}

func TestGPU_frameWrapsAfterVblank(t *testing.T) {
	gpu, mmu := newTestGPU()

	for line := 0; line < 144; line++ {
		runLine(gpu)
	}
	for line := 0; line < 10; line++ {
		gpu.Tick(scanlineCycles)
	}

	assert.Equal(t, uint8(0), mmu.Read(addr.LY), "back to the top of the frame")
	assert.Equal(t, uint8(2), mmu.Read(addr.STAT)&0x03)
}

func TestGPU_emptyVRAMRendersShadeZero(t *testing.T) {
	gpu, _ := newTestGPU()

	for line := 0; line < 144; line++ {
		runLine(gpu)
	}

	// BGP=0xE4 maps color index 0 to shade 0
	fb := gpu.GetFrameBuffer()
	for i, pixel := range fb.ToSlice() {
		if GBColor(pixel) != WhiteColor {
			t.Fatalf("pixel %d is %08X, want white", i, pixel)
		}
	}
}

func TestGPU_lcdDisabled(t *testing.T) {
	gpu, mmu := newTestGPU()

	// advance into the frame, then switch the LCD off
	for line := 0; line < 20; line++ {
		runLine(gpu)
	}
	mmu.Write(addr.LCDC, 0x11)
	gpu.Tick(456)

	assert.Equal(t, uint8(0), mmu.Read(addr.LY), "LY is forced to 0")
	assert.Equal(t, uint8(2), mmu.Read(addr.STAT)&0x03, "mode is held at OAM scan")

	// re-enable: a fresh OAM scan starts
	mmu.Write(addr.LCDC, 0x91)
	gpu.Tick(oamScanlineCycles)
	assert.Equal(t, uint8(3), mmu.Read(addr.STAT)&0x03)
}

func TestGPU_lycInterruptOncePerFrame(t *testing.T) {
	gpu, mmu := newTestGPU()
	mmu.Write(addr.STAT, 0x40) // LYC interrupt enable only
	mmu.Write(addr.LYC, 10)

	raised := 0
	total := scanlineCycles * 154 * 2 // two frames
	for i := 0; i < total/4; i++ {
		gpu.Tick(4)
		if mmu.Read(addr.IF)&0x02 != 0 {
			raised++
			mmu.Write(addr.IF, mmu.Read(addr.IF)&^uint8(0x02))
		}
	}

	assert.Equal(t, 2, raised, "exactly once per appearance of LY=10")
}

func TestGPU_lycCoincidenceBit(t *testing.T) {
	gpu, mmu := newTestGPU()
	mmu.Write(addr.LYC, 1)

	runLine(gpu) // now LY=1
	assert.Equal(t, uint8(0x04), mmu.Read(addr.STAT)&0x04, "coincidence bit set")

	runLine(gpu) // LY=2
	assert.Equal(t, uint8(0x00), mmu.Read(addr.STAT)&0x04)
}

// writeTileRow stores one row of 2-bit pixels for a tile.
func writeTileRow(mmu *memory.MMU, tile int, row int, low, high uint8) {
	base := addr.TileData0 + uint16(tile*16+row*2)
	mmu.Write(base, low)
	mmu.Write(base+1, high)
}

func TestGPU_backgroundTileRendering(t *testing.T) {
	gpu, mmu := newTestGPU()

	// tile 1: all pixels color index 1
	for row := 0; row < 8; row++ {
		writeTileRow(mmu, 1, row, 0xFF, 0x00)
	}
	mmu.Write(addr.TileMap0, 0x01) // top-left tile

	runLine(gpu)

	fb := gpu.GetFrameBuffer()
	// BGP=0xE4: index 1 -> shade 1
	assert.Equal(t, uint32(LightGreyColor), fb.GetPixel(0, 0))
	assert.Equal(t, uint32(LightGreyColor), fb.GetPixel(7, 0))
	assert.Equal(t, uint32(WhiteColor), fb.GetPixel(8, 0), "the next tile is empty")
}

func TestGPU_backgroundScrolling(t *testing.T) {
	gpu, mmu := newTestGPU()

	for row := 0; row < 8; row++ {
		writeTileRow(mmu, 1, row, 0xFF, 0x00)
	}
	mmu.Write(addr.TileMap0, 0x01)
	mmu.Write(addr.SCX, 4)

	runLine(gpu)

	fb := gpu.GetFrameBuffer()
	assert.Equal(t, uint32(LightGreyColor), fb.GetPixel(0, 0))
	assert.Equal(t, uint32(WhiteColor), fb.GetPixel(4, 0), "scrolled past the tile after 4 pixels")
}

func TestGPU_signedTileAddressing(t *testing.T) {
	gpu, mmu := newTestGPU()

	// bit 4 clear selects the signed tile set at 0x9000
	mmu.Write(addr.LCDC, 0x81)

	// tile -1 lives at 0x9000 - 16 = 0x8FF0
	for row := 0; row < 8; row++ {
		base := uint16(0x8FF0 + row*2)
		mmu.Write(base, 0xFF)
		mmu.Write(base+1, 0x00)
	}
	mmu.Write(addr.TileMap0, 0xFF) // tile index -1

	runLine(gpu)

	fb := gpu.GetFrameBuffer()
	assert.Equal(t, uint32(LightGreyColor), fb.GetPixel(0, 0))
}

func TestGPU_windowRendering(t *testing.T) {
	gpu, mmu := newTestGPU()

	// enable window (bit 5) with its map at 0x9C00 (bit 6)
	mmu.Write(addr.LCDC, 0xF1)
	mmu.Write(addr.WX, 7)
	mmu.Write(addr.WY, 0)

	for row := 0; row < 8; row++ {
		writeTileRow(mmu, 1, row, 0xFF, 0x00)
	}
	mmu.Write(addr.TileMap1, 0x01)

	runLine(gpu)

	fb := gpu.GetFrameBuffer()
	assert.Equal(t, uint32(LightGreyColor), fb.GetPixel(0, 0), "window covers the background")
}

func TestGPU_windowBelowWYDoesNotDraw(t *testing.T) {
	gpu, mmu := newTestGPU()

	mmu.Write(addr.LCDC, 0xF1)
	mmu.Write(addr.WX, 7)
	mmu.Write(addr.WY, 100)

	for row := 0; row < 8; row++ {
		writeTileRow(mmu, 1, row, 0xFF, 0x00)
	}
	mmu.Write(addr.TileMap1, 0x01)

	runLine(gpu)

	fb := gpu.GetFrameBuffer()
	assert.Equal(t, uint32(WhiteColor), fb.GetPixel(0, 0))
}

// writeSprite fills one OAM slot.
func writeSprite(mmu *memory.MMU, slot int, y, x, tile, flags uint8) {
	base := addr.OAMStart + uint16(slot*4)
	mmu.Write(base, y)
	mmu.Write(base+1, x)
	mmu.Write(base+2, tile)
	mmu.Write(base+3, flags)
}

func TestGPU_spriteRendering(t *testing.T) {
	gpu, mmu := newTestGPU()

	mmu.Write(addr.LCDC, 0x93) // sprites on
	mmu.Write(addr.OBP0, 0xE4)

	// tile 2: all pixels color index 3
	for row := 0; row < 8; row++ {
		writeTileRow(mmu, 2, row, 0xFF, 0xFF)
	}
	// OAM coordinates carry +16/+8 offsets
	writeSprite(mmu, 0, 16, 8, 2, 0x00)

	runLine(gpu)

	fb := gpu.GetFrameBuffer()
	assert.Equal(t, uint32(BlackColor), fb.GetPixel(0, 0))
	assert.Equal(t, uint32(BlackColor), fb.GetPixel(7, 0))
	assert.Equal(t, uint32(WhiteColor), fb.GetPixel(8, 0))
}

func TestGPU_spriteTransparency(t *testing.T) {
	gpu, mmu := newTestGPU()

	mmu.Write(addr.LCDC, 0x93)
	mmu.Write(addr.OBP0, 0xE4)

	// tile 2: color index 0 everywhere (transparent)
	for row := 0; row < 8; row++ {
		writeTileRow(mmu, 2, row, 0x00, 0x00)
	}
	writeSprite(mmu, 0, 16, 8, 2, 0x00)

	runLine(gpu)

	fb := gpu.GetFrameBuffer()
	assert.Equal(t, uint32(WhiteColor), fb.GetPixel(0, 0), "color 0 sprite pixels are transparent")
}

func TestGPU_spritePriorityByX(t *testing.T) {
	gpu, mmu := newTestGPU()

	mmu.Write(addr.LCDC, 0x93)
	mmu.Write(addr.OBP0, 0xE4) // index 3 -> black
	mmu.Write(addr.OBP1, 0x80) // index 3 -> dark grey

	for row := 0; row < 8; row++ {
		writeTileRow(mmu, 2, row, 0xFF, 0xFF)
	}

	// slot 0 sits at X=4 with OBP0, slot 1 at X=0 with OBP1;
	// the lower X coordinate wins the overlap
	writeSprite(mmu, 0, 16, 12, 2, 0x00)
	writeSprite(mmu, 1, 16, 8, 2, 0x10)

	runLine(gpu)

	fb := gpu.GetFrameBuffer()
	assert.Equal(t, uint32(DarkGreyColor), fb.GetPixel(4, 0), "lower X wins the overlap")
	assert.Equal(t, uint32(BlackColor), fb.GetPixel(8, 0), "past the winner, the other sprite shows")
}

func TestGPU_spriteTieBreakByOAMIndex(t *testing.T) {
	gpu, mmu := newTestGPU()

	mmu.Write(addr.LCDC, 0x93)
	mmu.Write(addr.OBP0, 0xE4)
	mmu.Write(addr.OBP1, 0x80)

	for row := 0; row < 8; row++ {
		writeTileRow(mmu, 2, row, 0xFF, 0xFF)
	}

	// same X: the lower OAM slot wins
	writeSprite(mmu, 0, 16, 8, 2, 0x00)
	writeSprite(mmu, 1, 16, 8, 2, 0x10)

	runLine(gpu)

	fb := gpu.GetFrameBuffer()
	assert.Equal(t, uint32(BlackColor), fb.GetPixel(0, 0))
}

func TestGPU_spriteBehindBackground(t *testing.T) {
	gpu, mmu := newTestGPU()

	mmu.Write(addr.LCDC, 0x93)
	mmu.Write(addr.OBP0, 0xE4)

	// background tile 1 with color index 1 on the left tile only
	for row := 0; row < 8; row++ {
		writeTileRow(mmu, 1, row, 0xFF, 0x00)
		writeTileRow(mmu, 2, row, 0xFF, 0xFF)
	}
	mmu.Write(addr.TileMap0, 0x01)

	// sprite with the background-priority flag spans both tiles
	writeSprite(mmu, 0, 16, 12, 2, 0x80)

	runLine(gpu)

	fb := gpu.GetFrameBuffer()
	assert.Equal(t, uint32(LightGreyColor), fb.GetPixel(4, 0), "hidden where BG color is non-zero")
	assert.Equal(t, uint32(BlackColor), fb.GetPixel(8, 0), "visible over BG color 0")
}

func TestGPU_spriteYFlip(t *testing.T) {
	gpu, mmu := newTestGPU()

	mmu.Write(addr.LCDC, 0x93)
	mmu.Write(addr.OBP0, 0xE4)

	// tile 2: only row 0 is opaque
	writeTileRow(mmu, 2, 0, 0xFF, 0xFF)
	writeSprite(mmu, 0, 16, 8, 2, 0x40) // Y-flip

	runLine(gpu)
	fb := gpu.GetFrameBuffer()
	assert.Equal(t, uint32(WhiteColor), fb.GetPixel(0, 0), "flipped row 0 moved to the bottom")

	for line := 1; line < 8; line++ {
		runLine(gpu)
	}
	assert.Equal(t, uint32(BlackColor), fb.GetPixel(0, 7))
}

func TestGPU_tenSpritesPerLine(t *testing.T) {
	gpu, mmu := newTestGPU()

	mmu.Write(addr.LCDC, 0x93)
	mmu.Write(addr.OBP0, 0xE4)

	for row := 0; row < 8; row++ {
		writeTileRow(mmu, 2, row, 0xFF, 0xFF)
	}

	// twelve sprites on the same line, left to right in OAM order
	for slot := 0; slot < 12; slot++ {
		writeSprite(mmu, slot, 16, uint8(8+slot*8), 2, 0x00)
	}

	runLine(gpu)

	fb := gpu.GetFrameBuffer()
	assert.Equal(t, uint32(BlackColor), fb.GetPixel(9*8, 0), "the tenth sprite draws")
	assert.Equal(t, uint32(WhiteColor), fb.GetPixel(10*8, 0), "the eleventh does not")
}
