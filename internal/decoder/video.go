package decoder

import "io"

// VideoSource pulls decoded video frames one at a time. ReadFrame returns
// io.EOF once the stream is exhausted. A VideoSource with no video (or a
// NullVideoSource) reports io.EOF immediately and Present() false, which
// the OggDecoder treats as "stream ended, not live" from Open onward.
type VideoSource interface {
	Open(path string) error
	Close() error
	// Present reports whether this source actually has a video stream
	// for the opened file.
	Present() bool
	// ReadFrame decodes the next frame, or returns io.EOF.
	ReadFrame() (VideoFrame, error)
}

// NullVideoSource implements VideoSource for audio-only playback: Present
// is always false and ReadFrame always returns io.EOF.
type NullVideoSource struct{}

func (NullVideoSource) Open(string) error            { return nil }
func (NullVideoSource) Close() error                 { return nil }
func (NullVideoSource) Present() bool                 { return false }
func (NullVideoSource) ReadFrame() (VideoFrame, error) { return VideoFrame{}, io.EOF }

// SyntheticVideoSource generates a fixed number of solid-gray YUV420P
// frames at a fixed frame interval, for exercising the Packet Queue and
// Player's video path without a real Theora binding. It is used by this
// module's own end-to-end tests (spec §8 scenario 1).
type SyntheticVideoSource struct {
	Width, Height  int
	FrameIntervalN int64 // nanoseconds between frames
	FrameCount     int

	emitted int
}

func (s *SyntheticVideoSource) Open(string) error { s.emitted = 0; return nil }
func (s *SyntheticVideoSource) Close() error       { return nil }
func (s *SyntheticVideoSource) Present() bool      { return s.FrameCount > 0 }

func (s *SyntheticVideoSource) ReadFrame() (VideoFrame, error) {
	if s.emitted >= s.FrameCount {
		return VideoFrame{}, io.EOF
	}
	pts := int64(s.emitted) * s.FrameIntervalN
	s.emitted++

	ySize := s.Width * s.Height
	cw, ch := s.Width/2, s.Height/2
	y := make([]byte, ySize)
	u := make([]byte, cw*ch)
	v := make([]byte, cw*ch)
	for i := range y {
		y[i] = 128
	}
	for i := range u {
		u[i] = 128
		v[i] = 128
	}

	return VideoFrame{
		PTS:      pts,
		Width:    s.Width,
		Height:   s.Height,
		Y:        y,
		U:        u,
		V:        v,
		YStride:  s.Width,
		UVStride: cw,
	}, nil
}

// SyntheticAudioSource generates silent PCM blocks at a fixed sample rate
// and channel count, for exercising the Player's audio path (ringbuffer,
// Clock switch to Audio mode, interleaving) in tests without a real .ogg
// asset on disk.
type SyntheticAudioSource struct {
	SR, Ch, FramesPerBlock, BlockCount int

	emitted int
}

func (s *SyntheticAudioSource) Open(string) error { s.emitted = 0; return nil }
func (s *SyntheticAudioSource) Close() error       { return nil }
func (s *SyntheticAudioSource) Present() bool      { return s.BlockCount > 0 }
func (s *SyntheticAudioSource) SampleRate() int    { return s.SR }
func (s *SyntheticAudioSource) Channels() int      { return s.Ch }

func (s *SyntheticAudioSource) ReadFrames(cb AudioCallback) (int, error) {
	if s.emitted >= s.BlockCount {
		return 0, io.EOF
	}
	s.emitted++

	planar := make([][]float32, s.Ch)
	for ch := range planar {
		planar[ch] = make([]float32, s.FramesPerBlock)
	}
	cb(planar, s.FramesPerBlock)
	return s.FramesPerBlock, nil
}
