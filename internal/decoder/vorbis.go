package decoder

import (
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

// VorbisAudioSource demuxes and decodes the Vorbis audio stream of a real
// .ogg file via github.com/jfreymuth/oggvorbis. Output is interleaved
// float32 PCM at the stream's native sample rate and channel count,
// de-interleaved into per-channel slices before being handed to the
// AudioCallback, matching the non-interleaved shape spec §4.6 describes
// for on_audio.
type VorbisAudioSource struct {
	file   *os.File
	reader *oggvorbis.Reader

	interleaved []float32 // reusable decode buffer
	planar      [][]float32
}

// NewVorbisAudioSource returns an unopened audio source.
func NewVorbisAudioSource() *VorbisAudioSource {
	return &VorbisAudioSource{}
}

func (a *VorbisAudioSource) Open(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	r, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return err
	}
	a.file = f
	a.reader = r
	a.planar = make([][]float32, r.Channels())
	return nil
}

func (a *VorbisAudioSource) Close() error {
	if a.file == nil {
		return nil
	}
	err := a.file.Close()
	a.file = nil
	a.reader = nil
	return err
}

// Present reports whether the source has been successfully opened.
func (a *VorbisAudioSource) Present() bool { return a.reader != nil }

// SampleRate returns the opened stream's sample rate.
func (a *VorbisAudioSource) SampleRate() int {
	if a.reader == nil {
		return 0
	}
	return a.reader.SampleRate()
}

// Channels returns the opened stream's channel count.
func (a *VorbisAudioSource) Channels() int {
	if a.reader == nil {
		return 0
	}
	return a.reader.Channels()
}

const framesPerRead = 1024

// ReadFrames decodes up to framesPerRead frames and invokes cb with the
// de-interleaved planar result. It returns io.EOF once the stream is
// exhausted.
func (a *VorbisAudioSource) ReadFrames(cb AudioCallback) (int, error) {
	channels := a.reader.Channels()
	need := framesPerRead * channels
	if cap(a.interleaved) < need {
		a.interleaved = make([]float32, need)
	}
	buf := a.interleaved[:need]

	n, err := a.reader.Read(buf)
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	nframes := n / channels
	for ch := 0; ch < channels; ch++ {
		if cap(a.planar[ch]) < nframes {
			a.planar[ch] = make([]float32, nframes)
		}
		plane := a.planar[ch][:nframes]
		for i := 0; i < nframes; i++ {
			plane[i] = buf[i*channels+ch]
		}
		a.planar[ch] = plane
	}

	cb(a.planar, nframes)
	return nframes, err
}
