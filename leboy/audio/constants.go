package audio

// Timing constants
const (
	// SampleRate is the host-facing output rate in Hz.
	SampleRate = 44100

	// cyclesPerStep is the number of CPU cycles per frame sequencer tick.
	// The frame sequencer runs at 512 Hz: 4194304 Hz / 512 Hz = 8192 t-cycles
	cyclesPerStep = 8192

	// cyclesPerSample is the number of CPU cycles between two output
	// samples (CPU clock / sample rate).
	cyclesPerSample = 4194304.0 / float64(SampleRate)
)

// Channel constants
const (
	// waveRAMSize is the size of wave pattern RAM in bytes (16 bytes = 32 nibbles)
	waveRAMSize = 16

	// channelScale keeps four simultaneous channels from clipping the mix.
	channelScale = 0.25

	// sampleScale maps a 4-bit channel level onto the int16 range.
	sampleScale = 32767.0 / 15.0
)
