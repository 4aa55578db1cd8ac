package psg

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

// NullSink discards samples. It is the fallback when the host has no usable
// audio device.
type NullSink struct{}

// Write implements Sink.
func (NullSink) Write(samples []int16) {}

// ringSize is the number of samples the oto-backed sink buffers between the
// emulation thread's writes and oto's pull-based Read.
const ringSize = 8192

// OtoSink buffers generated samples in a ring and exposes them to oto/v3
// through a Read-driven Player, converting int16 PCM to the float32LE
// format oto's context expects.
type OtoSink struct {
	mu   sync.Mutex
	ring [ringSize]int16
	w, r int
	full bool

	ctx    *oto.Context
	player *oto.Player
}

// NewOtoSink opens an oto context at the given sample rate (22050 for the
// PSG) and returns a Sink ready to Write into. If the host audio device
// cannot be opened, the caller should fall back to NullSink.
func NewOtoSink(sampleRate int) (*OtoSink, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   0,
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, err
	}
	<-ready

	s := &OtoSink{ctx: ctx}
	s.player = ctx.NewPlayer(s)
	s.player.Play()
	return s, nil
}

// Write implements Sink by pushing samples into the ring, dropping the
// oldest buffered sample on overrun rather than blocking the emulation
// thread.
func (s *OtoSink) Write(samples []int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sample := range samples {
		s.ring[s.w] = sample
		s.w = (s.w + 1) % ringSize
		if s.full {
			s.r = (s.r + 1) % ringSize
		}
		if s.w == s.r {
			s.full = true
		}
	}
}

// Read implements io.Reader for oto's Player, converting buffered int16
// samples to float32LE and emitting silence once the ring runs dry.
func (s *OtoSink) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	numSamples := len(p) / 4
	if numSamples == 0 {
		return 0, nil
	}
	floats := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		if s.r == s.w && !s.full {
			floats[i] = 0
			continue
		}
		floats[i] = float32(s.ring[s.r]) / 32768.0
		s.r = (s.r + 1) % ringSize
		s.full = false
	}
	copy(p, (*[1 << 30]byte)(unsafe.Pointer(&floats[0]))[:len(p)])
	return len(p), nil
}

// Close stops playback and releases the player.
func (s *OtoSink) Close() {
	if s.player != nil {
		s.player.Close()
	}
}
