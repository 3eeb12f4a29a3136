// Package clock implements the Player's presentation-time source: either
// monotonic CPU time or a sample-count-derived audio clock.
package clock

import "time"

// Kind selects how Time advances.
type Kind int

const (
	KindCPU Kind = iota
	KindAudio
)

const nanosPerSecond = int64(time.Second)

// Clock tracks presentation time in nanoseconds. It is not safe for
// concurrent use; the Player serializes access under its own mutex.
type Clock struct {
	kind         Kind
	startTimeNs  int64
	timeNs       int64
	samplerate   int
	nsamples     int64
	sampleTimeNs int64 // kept for parity with the documented field; see
	// calculateAudioTime for the precision note.
	nowFunc func() int64 // injectable for tests; defaults to monotonic wall time
}

// New returns a Clock in CPU mode, not yet started.
func New() *Clock {
	return &Clock{nowFunc: monotonicNs}
}

func monotonicNs() int64 {
	return time.Now().UnixNano()
}

// Init resets the clock to its zero state in CPU mode. Stop is
// implemented as Init, discarding accumulated time — this mirrors the
// original (spec §9) and is correct only because every Stop is followed
// by a Start before the clock is read again.
func (c *Clock) Init() {
	c.kind = KindCPU
	c.startTimeNs = 0
	c.timeNs = 0
	c.samplerate = 0
	c.nsamples = 0
	c.sampleTimeNs = 0
}

// Start samples the current monotonic time as the CPU-mode epoch. No-op
// semantically in Audio mode beyond resetting nsamples, since Audio time
// is sample-count derived rather than wall-clock derived.
func (c *Clock) Start() {
	c.startTimeNs = c.nowFunc()
	c.timeNs = 0
	c.nsamples = 0
}

// Stop discards accumulated time. Callers must Start again before the
// next Update/Time read.
func (c *Clock) Stop() {
	c.Init()
}

// SetSamplerate switches the clock to Audio mode and computes
// sampleTimeNs once, as the spec requires.
func (c *Clock) SetSamplerate(sr int) {
	c.kind = KindAudio
	c.samplerate = sr
	if sr > 0 {
		c.sampleTimeNs = nanosPerSecond / int64(sr)
	}
}

// Kind reports the active clock mode.
func (c *Clock) Kind() Kind { return c.kind }

// AddSamples advances the Audio-mode sample counter. No-op in CPU mode.
func (c *Clock) AddSamples(n int64) {
	if c.kind == KindAudio {
		c.nsamples += n
	}
}

// Update recomputes Time: in CPU mode from monotonic now minus the
// start epoch, in Audio mode from the accumulated sample count.
func (c *Clock) Update() {
	switch c.kind {
	case KindAudio:
		c.timeNs = c.calculateAudioTime(c.nsamples)
	default:
		c.timeNs = c.nowFunc() - c.startTimeNs
	}
}

// Time returns the last value computed by Update, in nanoseconds.
func (c *Clock) Time() int64 {
	return c.timeNs
}

// calculateAudioTime converts a sample count to nanoseconds. The spec
// flags the naive form (nsamples * sampleTimeNs, where sampleTimeNs is
// itself floor(1e9/samplerate)) as lossy: truncating once per sample
// compounds drift over long streams. Computing the multiply against the
// full nanosecond rate before dividing avoids accumulating that
// truncation — int64 headroom is enough for samplerates and durations in
// the range this engine targets (48kHz * several hours still fits well
// under 1<<63 after the *1e9 multiply).
func (c *Clock) calculateAudioTime(nsamples int64) int64 {
	if c.samplerate <= 0 {
		return 0
	}
	return nsamples * nanosPerSecond / int64(c.samplerate)
}

// CalculateAudioTime is the exported form used by the Player's audio
// callback to timestamp interleaved PCM as it's written to the
// ringbuffer.
func (c *Clock) CalculateAudioTime(nsamples int64) int64 {
	return c.calculateAudioTime(nsamples)
}
