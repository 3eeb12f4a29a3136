// Package decoder implements the thin Decoder adapter the Player consumes:
// a pull-based Decode(goalPTS) capability over an Ogg container's Vorbis
// audio stream and (pluggable) Theora video stream.
//
// Container demuxing and codec decode are explicitly out of scope for the
// scheduling engine itself (spec §1) — this package is the one real,
// narrow exception: it gives the engine something genuine to drive end to
// end. The audio side is a real codec path (github.com/jfreymuth/oggvorbis);
// no pure-Go Theora decoder exists anywhere in reach, so the video side is
// expressed as the VideoSource interface with a null and a synthetic
// implementation, and a real binding can be dropped in behind it later
// without the Scheduler or Player noticing.
package decoder

import "io"

// Event is a lifecycle notification forwarded to the Player's on_event
// callback (spec §6).
type Event int

const (
	EventAudioInfo Event = iota
	EventDecodeReady
)

// VideoFrame is the raw decoded form handed to the Player's on_theora
// callback: planar 8-bit YUV 4:2:0 at pts, non-interleaved.
type VideoFrame struct {
	PTS           int64
	Width, Height int
	Y, U, V       []byte
	YStride       int
	UVStride      int
}

// AudioCallback receives non-interleaved PCM for one decode step: samples
// is indexed [channel][frame].
type AudioCallback func(samples [][]float32, nframes int)

// VideoCallback receives one decoded video frame.
type VideoCallback func(frame VideoFrame)

// EventCallback receives lifecycle events. samplerate/channels are only
// meaningful for EventAudioInfo.
type EventCallback func(ev Event, samplerate, channels int)

// Decoder is the capability interface the Scheduler drives from its
// worker goroutine (spec §4.5/§4.7).
type Decoder interface {
	Open(path string) error
	Close() error
	// Decode pulls packets until every live stream's decoded PTS exceeds
	// goalPTS, or the container reaches EOS/error. It must invoke the
	// registered callbacks as it goes and report progress through an
	// UpdateDecodePTSFunc the implementation holds (not a per-call
	// argument, since the Scheduler itself owns no per-stream
	// bookkeeping — spec §4.5).
	Decode(goalPTS int64) error
}

// UpdateDecodePTSFunc is how a Decoder reports decode progress back to
// the Scheduler; it must be safe to call from the worker goroutine the
// Decoder is driven from.
type UpdateDecodePTSFunc func(pts int64)

// AudioSource pulls decoded audio frames in fixed-size blocks. It mirrors
// VideoSource's shape so OggDecoder can treat "no audio stream" the same
// way it treats "no video stream" — useful both for video-only real files
// and for driving the engine end to end in tests without a real .ogg
// asset on disk.
type AudioSource interface {
	Open(path string) error
	Close() error
	Present() bool
	SampleRate() int
	Channels() int
	// ReadFrames decodes the next block and invokes cb with the
	// de-interleaved result, returning the frame count read and io.EOF
	// once the stream is exhausted.
	ReadFrames(cb AudioCallback) (int, error)
}

// NullAudioSource implements AudioSource for video-only playback.
type NullAudioSource struct{}

func (NullAudioSource) Open(string) error                     { return nil }
func (NullAudioSource) Close() error                           { return nil }
func (NullAudioSource) Present() bool                          { return false }
func (NullAudioSource) SampleRate() int                        { return 0 }
func (NullAudioSource) Channels() int                          { return 0 }
func (NullAudioSource) ReadFrames(AudioCallback) (int, error) { return 0, io.EOF }
