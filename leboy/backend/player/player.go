package player

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/mrhelmut/LeBoy/leboy"
	"github.com/mrhelmut/LeBoy/leboy/audio"
)

// Player feeds the four APU channel rings to the host audio device.
//
// oto pulls samples from its own goroutine while the emulator thread
// produces them, so the rings are never touched from two threads: the
// emulator thread calls Pump to move samples into an internal buffer,
// and Read consumes that buffer under a lock.
type Player struct {
	ctx    *oto.Context
	player *oto.Player

	mu  sync.Mutex
	pcm []int16
}

// New opens the audio device at the APU sample rate.
func New() (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   audio.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	<-ready

	p := &Player{ctx: ctx}
	p.player = ctx.NewPlayer(p)
	p.player.Play()

	slog.Info("Audio device opened", "sampleRate", audio.SampleRate)
	return p, nil
}

// Pump drains the channel rings and mixes them into the playback
// buffer. Call from the emulator thread, once per frame.
func (p *Player) Pump(emu *leboy.DMG) {
	channels := emu.Channels()

	frames := channels[0].Len()
	for _, ch := range channels[1:] {
		if n := ch.Len(); n < frames {
			frames = n
		}
	}
	if frames == 0 {
		return
	}

	mixed := make([]int16, frames*2)
	for _, ch := range channels {
		samples := ch.Pop(frames)
		for i, s := range samples {
			v := int32(mixed[i]) + int32(s)
			if v > 32767 {
				v = 32767
			} else if v < -32768 {
				v = -32768
			}
			mixed[i] = int16(v)
		}
	}

	p.mu.Lock()
	p.pcm = append(p.pcm, mixed...)
	p.mu.Unlock()
}

// Read implements io.Reader for oto: little-endian int16 stereo.
func (p *Player) Read(out []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	samples := len(out) / 2
	if samples > len(p.pcm) {
		samples = len(p.pcm)
	}

	for i := 0; i < samples; i++ {
		out[i*2] = byte(p.pcm[i])
		out[i*2+1] = byte(p.pcm[i] >> 8)
	}
	p.pcm = p.pcm[samples:]

	// zero-fill on underrun so the device keeps a steady cadence
	for i := samples * 2; i < len(out); i++ {
		out[i] = 0
	}

	return len(out), nil
}

// Close stops playback.
func (p *Player) Close() {
	if p.player != nil {
		p.player.Close()
	}
}
