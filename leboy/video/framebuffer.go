package video

// GBColor is a 32-bit RGBA pixel (R in the high byte).
type GBColor uint32

const (
	FramebufferWidth  = 160
	FramebufferHeight = 144
	FramebufferSize   = FramebufferWidth * FramebufferHeight
)

const (
	WhiteColor     GBColor = 0xFFFFFFFF
	LightGreyColor GBColor = 0xAAAAAAFF
	DarkGreyColor  GBColor = 0x555555FF
	BlackColor     GBColor = 0x000000FF
)

// ByteToColor maps a 2-bit palette shade to a pixel: the luminance is
// (3 - shade) * 85, so shade 0 is white and shade 3 is black.
func ByteToColor(shade byte) GBColor {
	switch shade {
	case 0:
		return WhiteColor
	case 1:
		return LightGreyColor
	case 2:
		return DarkGreyColor
	case 3:
		return BlackColor
	}

	return 0
}

// FrameBuffer is the 160x144 output picture.
type FrameBuffer struct {
	width  uint
	height uint
	buffer []uint32
}

func NewFrameBuffer() *FrameBuffer {
	colorSlice := make([]uint32, FramebufferSize)
	for i := range colorSlice {
		colorSlice[i] = uint32(WhiteColor)
	}

	return &FrameBuffer{
		width:  FramebufferWidth,
		height: FramebufferHeight,
		buffer: colorSlice,
	}
}

func (fb *FrameBuffer) GetPixel(x, y uint) uint32 {
	return fb.buffer[y*fb.width+x]
}

func (fb *FrameBuffer) SetPixel(x, y uint, color GBColor) {
	fb.buffer[y*fb.width+x] = uint32(color)
}

func (fb *FrameBuffer) ToSlice() []uint32 {
	return fb.buffer
}

// Clear resets the framebuffer to a white screen (LCD off).
func (fb *FrameBuffer) Clear() {
	for i := range fb.buffer {
		fb.buffer[i] = uint32(WhiteColor)
	}
}

// ToBGRA returns the frame as 160*144*4 bytes, BGRA, top-left origin,
// alpha fixed to 0xFF.
func (fb *FrameBuffer) ToBGRA() []byte {
	data := make([]byte, len(fb.buffer)*4)
	for i, pixel := range fb.buffer {
		data[i*4] = byte(pixel >> 8)    // B
		data[i*4+1] = byte(pixel >> 16) // G
		data[i*4+2] = byte(pixel >> 24) // R
		data[i*4+3] = 0xFF              // A
	}
	return data
}

// ToGrayscale converts the framebuffer to shade values (0-3) for
// simpler comparison in tests.
func (fb *FrameBuffer) ToGrayscale() []byte {
	data := make([]byte, len(fb.buffer))
	for i, pixel := range fb.buffer {
		switch GBColor(pixel) {
		case WhiteColor:
			data[i] = 0
		case LightGreyColor:
			data[i] = 1
		case DarkGreyColor:
			data[i] = 2
		case BlackColor:
			data[i] = 3
		default:
			data[i] = 0
		}
	}
	return data
}
