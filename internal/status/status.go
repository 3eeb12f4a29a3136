// Package status defines the playback status snapshot the CLI host polls
// for periodic logging, adapted from the teacher's pkg/types.PlaybackStatus
// to this engine's PTS-based progress model instead of a sample counter.
package status

import (
	"sync/atomic"
	"time"
)

// Snapshot holds unified playback information for the CLI's status log.
type Snapshot struct {
	FileName   string        // Name of the currently open file
	SampleRate int           // Audio sample rate in Hz, 0 if no audio stream
	Channels   int           // Audio channel count, 0 if no audio stream
	PlayedPTS  int64         // Most recently rendered/played PTS, nanoseconds
	GoalPTS    int64         // Scheduler's current lookahead target, nanoseconds
	Elapsed    time.Duration // Wall-clock time since Play

	BufferBytes    int    // Ringbuffer bytes currently queued
	BufferCapacity int    // Ringbuffer total capacity in bytes
	Underruns      uint64 // Audio-pull underflows observed so far
	DecodeErrors   uint64 // Decoder errors observed so far
	MaxBufferUsage uint64 // High-water mark of ringbuffer occupancy, bytes
}

// Monitor is implemented by anything that can report a Snapshot, mirroring
// the teacher's PlaybackMonitor interface so the status logger doesn't need
// to know about *player.Player directly.
type Monitor interface {
	PlaybackStatus() Snapshot
}

// Metrics holds the atomic counters accumulated off the audio-pull and
// decoder worker threads, mirroring the teacher's pkg/audioplayer.Player
// metrics block (consumerOps/outputUnderruns/decodeErrors/maxBufferUsage in
// _examples/drgolem-musictools/pkg/audioplayer/player.go).
type Metrics struct {
	underruns      atomic.Uint64
	decodeErrors   atomic.Uint64
	maxBufferUsage atomic.Uint64
}

// RecordUnderrun counts one audio-pull underflow.
func (m *Metrics) RecordUnderrun() { m.underruns.Add(1) }

// RecordDecodeError counts one decode-side error.
func (m *Metrics) RecordDecodeError() { m.decodeErrors.Add(1) }

// RecordBufferUsage updates the ringbuffer occupancy high-water mark via a
// compare-and-swap loop, exactly as the teacher's updateMaxBufferUsage does.
func (m *Metrics) RecordBufferUsage(current uint64) {
	for {
		old := m.maxBufferUsage.Load()
		if current <= old {
			return
		}
		if m.maxBufferUsage.CompareAndSwap(old, current) {
			return
		}
	}
}

// Underruns returns the accumulated underflow count.
func (m *Metrics) Underruns() uint64 { return m.underruns.Load() }

// DecodeErrors returns the accumulated decode-error count.
func (m *Metrics) DecodeErrors() uint64 { return m.decodeErrors.Load() }

// MaxBufferUsage returns the ringbuffer occupancy high-water mark in bytes.
func (m *Metrics) MaxBufferUsage() uint64 { return m.maxBufferUsage.Load() }
