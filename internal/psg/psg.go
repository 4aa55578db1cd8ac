// Package psg emulates the AY-3-8912 programmable sound generator: three
// tone channels, a noise generator, an envelope generator, a mixer, and
// the latched-address bus protocol the VIA's ports A and B carry it over.
package psg

import "vectrexcore/internal/debug"

// SampleRate is the fixed PCM output rate the PSG paces itself to, and the
// rate a Sink's audio device should be opened at.
const SampleRate = 22050

// cyclesPerSample is 1,500,000 / 22,050, the CPU-cycle interval between
// emitted PCM samples.
const cyclesPerSample = 68

// ViaBus is the subset of the VIA the PSG rides its bus protocol over:
// Port A carries data, Port B bits 3-4 carry BC1/BDIR, and SetPortAInput
// is how the PSG drives Port A when the CPU reads a register back.
type ViaBus interface {
	PortA() uint8
	PortB() uint8
	SetPortAInput(value uint8)
}

// Sink receives generated mono 16-bit PCM at 22050 Hz.
type Sink interface {
	Write(samples []int16)
}

// AY38912 is the chip's full register/generator state.
type AY38912 struct {
	registers [16]uint8

	tonePeriod  [3]uint16
	toneCounter [3]uint16
	toneOutput  [3]bool

	noisePeriod  uint8
	noiseCounter uint16
	noiseLFSR    uint32
	noiseOutput  bool

	mixer uint8

	channelVolume       [3]uint8
	channelUsesEnvelope [3]bool

	envelopePeriod    uint16
	envelopeCounter   uint16
	envelopeStep      uint8
	envelopeHolding   bool
	envelopeHold      bool
	envelopeAlternate bool
	envelopeAttack    bool
	envelopeContinue  bool

	latchedAddress uint8

	// channelActiveDuty accumulates, for each channel, the number of
	// cycles within the current sample window its mixed tone/noise output
	// was high. generateSample integrates this into a duty fraction
	// instead of snapshotting the instantaneous state at the sample
	// boundary, matching the chip's actual low-pass-filtered analog
	// output over a sample period.
	channelActiveDuty [3]uint16

	cyclesSinceSample int
	sampleBuf         [1]int16

	sink   Sink
	logger *debug.Logger
}

// New returns an AY38912 with all registers zeroed and the noise LFSR
// seeded to a non-zero value (a zero LFSR would lock up). sink may be
// NullSink{} when no audio device is available; logger may be nil.
func New(sink Sink, logger *debug.Logger) *AY38912 {
	if sink == nil {
		sink = NullSink{}
	}
	return &AY38912{
		noiseLFSR: 1,
		sink:      sink,
		logger:    logger,
	}
}

// EmulateCycle runs the bus protocol for one CPU cycle and advances every
// generator by one step.
func (p *AY38912) EmulateCycle(via ViaBus) {
	portB := via.PortB()
	bc1 := portB&0x08 != 0
	bdir := portB&0x10 != 0

	switch {
	case bdir && bc1: // latch address
		p.latchedAddress = via.PortA() & 0x0F
	case bdir && !bc1: // write register[latch]
		p.writeRegister(p.latchedAddress, via.PortA())
	case !bdir && bc1: // read register[latch]
		via.SetPortAInput(p.readRegister(p.latchedAddress))
	}

	p.stepGenerators()

	p.cyclesSinceSample++
	if p.cyclesSinceSample >= cyclesPerSample {
		p.cyclesSinceSample = 0
		p.sampleBuf[0] = p.generateSample()
		p.sink.Write(p.sampleBuf[:])
	}
}

// State is the gob-serializable snapshot of an AY38912, for savestate. The
// sink is not part of it; Restore keeps the live sink in place.
type State struct {
	Registers [16]uint8

	TonePeriod  [3]uint16
	ToneCounter [3]uint16
	ToneOutput  [3]bool

	NoisePeriod  uint8
	NoiseCounter uint16
	NoiseLFSR    uint32
	NoiseOutput  bool

	Mixer uint8

	ChannelVolume       [3]uint8
	ChannelUsesEnvelope [3]bool

	EnvelopePeriod    uint16
	EnvelopeCounter   uint16
	EnvelopeStep      uint8
	EnvelopeHolding   bool
	EnvelopeHold      bool
	EnvelopeAlternate bool
	EnvelopeAttack    bool
	EnvelopeContinue  bool

	LatchedAddress    uint8
	ChannelActiveDuty [3]uint16
	CyclesSinceSample int
}

// Snapshot captures the full generator state for savestate.
func (p *AY38912) Snapshot() State {
	return State{
		Registers: p.registers,

		TonePeriod: p.tonePeriod, ToneCounter: p.toneCounter, ToneOutput: p.toneOutput,

		NoisePeriod: p.noisePeriod, NoiseCounter: p.noiseCounter,
		NoiseLFSR: p.noiseLFSR, NoiseOutput: p.noiseOutput,

		Mixer: p.mixer,

		ChannelVolume: p.channelVolume, ChannelUsesEnvelope: p.channelUsesEnvelope,

		EnvelopePeriod: p.envelopePeriod, EnvelopeCounter: p.envelopeCounter,
		EnvelopeStep: p.envelopeStep, EnvelopeHolding: p.envelopeHolding,
		EnvelopeHold: p.envelopeHold, EnvelopeAlternate: p.envelopeAlternate,
		EnvelopeAttack: p.envelopeAttack, EnvelopeContinue: p.envelopeContinue,

		LatchedAddress:    p.latchedAddress,
		ChannelActiveDuty: p.channelActiveDuty,
		CyclesSinceSample: p.cyclesSinceSample,
	}
}

// Restore replaces the generator state from a snapshot, leaving the sink
// and logger untouched.
func (p *AY38912) Restore(s State) {
	p.registers = s.Registers
	p.tonePeriod, p.toneCounter, p.toneOutput = s.TonePeriod, s.ToneCounter, s.ToneOutput
	p.noisePeriod, p.noiseCounter = s.NoisePeriod, s.NoiseCounter
	p.noiseLFSR, p.noiseOutput = s.NoiseLFSR, s.NoiseOutput
	p.mixer = s.Mixer
	p.channelVolume, p.channelUsesEnvelope = s.ChannelVolume, s.ChannelUsesEnvelope
	p.envelopePeriod, p.envelopeCounter = s.EnvelopePeriod, s.EnvelopeCounter
	p.envelopeStep, p.envelopeHolding = s.EnvelopeStep, s.EnvelopeHolding
	p.envelopeHold, p.envelopeAlternate = s.EnvelopeHold, s.EnvelopeAlternate
	p.envelopeAttack, p.envelopeContinue = s.EnvelopeAttack, s.EnvelopeContinue
	p.latchedAddress = s.LatchedAddress
	p.channelActiveDuty = s.ChannelActiveDuty
	p.cyclesSinceSample = s.CyclesSinceSample
}

func (p *AY38912) readRegister(reg uint8) uint8 {
	return p.registers[reg&0x0F]
}

func (p *AY38912) writeRegister(reg uint8, value uint8) {
	reg &= 0x0F
	p.registers[reg] = value
	switch reg {
	case 0, 1:
		p.setTonePeriod(0)
	case 2, 3:
		p.setTonePeriod(1)
	case 4, 5:
		p.setTonePeriod(2)
	case 6:
		p.noisePeriod = clampPeriod5(value & 0x1F)
	case 7:
		p.mixer = value
	case 8:
		p.channelVolume[0] = value & 0x0F
		p.channelUsesEnvelope[0] = value&0x10 != 0
	case 9:
		p.channelVolume[1] = value & 0x0F
		p.channelUsesEnvelope[1] = value&0x10 != 0
	case 10:
		p.channelVolume[2] = value & 0x0F
		p.channelUsesEnvelope[2] = value&0x10 != 0
	case 11, 12:
		low := uint16(p.registers[11])
		high := uint16(p.registers[12])
		p.envelopePeriod = clampPeriod16(low | high<<8)
	case 13:
		p.envelopeHold = value&0x01 != 0
		p.envelopeAlternate = value&0x02 != 0
		p.envelopeAttack = value&0x04 != 0
		p.envelopeContinue = value&0x08 != 0
		if !p.envelopeContinue {
			p.envelopeHold = true
		}
		p.envelopeStep = 0
		p.envelopeHolding = false
	}
	p.logger.LogPSGf(debug.LogLevelTrace, "reg[%d] = %02X", reg, value)
}

func (p *AY38912) setTonePeriod(channel int) {
	low := uint16(p.registers[channel*2])
	high := uint16(p.registers[channel*2+1]) & 0x0F
	p.tonePeriod[channel] = clampPeriod12(low | high<<8)
}

func clampPeriod12(v uint16) uint16 {
	if v == 0 {
		return 1
	}
	return v
}

func clampPeriod5(v uint8) uint8 {
	if v == 0 {
		return 1
	}
	return v
}

func clampPeriod16(v uint16) uint16 {
	if v == 0 {
		return 1
	}
	return v
}

func (p *AY38912) stepGenerators() {
	for ch := 0; ch < 3; ch++ {
		if p.toneCounter[ch] == 0 {
			p.toneCounter[ch] = p.tonePeriod[ch]
			p.toneOutput[ch] = !p.toneOutput[ch]
		} else {
			p.toneCounter[ch]--
		}
	}

	if p.noiseCounter == 0 {
		p.noiseCounter = uint16(p.noisePeriod)
		// 17-bit LFSR, taps at bits 0 and 3, matching the AY-3-8912
		// datasheet's polynomial.
		feedback := (p.noiseLFSR & 1) ^ ((p.noiseLFSR >> 3) & 1)
		p.noiseLFSR = (p.noiseLFSR >> 1) | (feedback << 16)
		p.noiseOutput = p.noiseLFSR&1 != 0
	} else {
		p.noiseCounter--
	}

	if p.envelopeCounter == 0 {
		p.envelopeCounter = p.envelopePeriod
		p.advanceEnvelope()
	} else {
		p.envelopeCounter--
	}

	for ch := 0; ch < 3; ch++ {
		if p.channelActive(ch) {
			p.channelActiveDuty[ch]++
		}
	}
}

// channelActive reports whether channel ch's mixed tone/noise output is
// high on the current cycle, per the mixer's active-high inhibit bits.
func (p *AY38912) channelActive(ch int) bool {
	toneInhibited := p.mixer&(1<<uint(ch)) != 0
	noiseInhibited := p.mixer&(1<<uint(ch+3)) != 0
	return (toneInhibited || p.toneOutput[ch]) && (noiseInhibited || p.noiseOutput)
}

func (p *AY38912) advanceEnvelope() {
	if p.envelopeHolding {
		return
	}
	p.envelopeStep++
	if p.envelopeStep < 32 {
		return
	}
	if !p.envelopeContinue || p.envelopeHold {
		p.envelopeHolding = true
		if p.envelopeContinue && p.envelopeAlternate {
			p.envelopeAttack = !p.envelopeAttack
		}
		p.envelopeStep = 31
	} else {
		p.envelopeStep = 0
		if p.envelopeAlternate {
			p.envelopeAttack = !p.envelopeAttack
		}
	}
}

// envelopeVolume maps the 32-step envelope counter onto the same 0..15
// range as a channel's own volume register, each level held for two steps.
func (p *AY38912) envelopeVolume() uint8 {
	level := p.envelopeStep >> 1
	if p.envelopeAttack {
		return level
	}
	return 15 - level
}

// volumeTable approximates the AY-3-8912's non-linear 16-step DAC.
var volumeTable = [16]int32{
	0, 513, 828, 1239, 1923, 3238, 4784, 6056,
	8200, 11167, 14938, 18453, 22866, 27272, 31311, 32767,
}

// dutyScale is the fixed-point unit a channel's accumulated active-cycle
// count is normalized into before mixing: 2^13, chosen so that a channel
// held active for the entire sample window (duty fraction 1.0) multiplies
// its full-scale volumeTable entry and, after the final right-shift by 13,
// reproduces that entry exactly rather than losing precision to rounding.
const dutyScale = 1 << 13

// generateSample integrates each channel's mixed tone/noise output over the
// cycles since the last sample rather than sampling its instantaneous state,
// so a channel that toggled several times within the window contributes its
// actual duty fraction instead of whatever phase it happened to be in at the
// sample boundary. For each channel: cnt = dutyScale * (active cycles this
// window) / cyclesPerSample, in [0, dutyScale]. The mixed sample is the sum
// of volumeTable[volume] * cnt across the three channels, shifted right 13
// to undo the dutyScale fixed point, then clamped to fit a 16-bit signed
// PCM sample.
func (p *AY38912) generateSample() int16 {
	var sum int64
	for ch := 0; ch < 3; ch++ {
		volume := p.channelVolume[ch]
		if p.channelUsesEnvelope[ch] {
			volume = p.envelopeVolume()
		}
		cnt := int64(p.channelActiveDuty[ch]) * dutyScale / cyclesPerSample
		sum += int64(volumeTable[volume&0x0F]) * cnt
	}
	sum >>= 13

	if sum > 32767 {
		sum = 32767
	} else if sum < 0 {
		sum = 0
	}

	p.channelActiveDuty = [3]uint16{}
	return int16(sum)
}
