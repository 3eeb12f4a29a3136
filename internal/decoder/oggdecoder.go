package decoder

import (
	"errors"
	"io"
	"log/slog"
)

// streamState tracks one live stream's decode progress within a single
// OggDecoder, matching the original's "every non-ended, known stream"
// condition in spec §4.5's Decode task description.
type streamState struct {
	present bool
	ended   bool
	decoded int64
}

// OggDecoder composes a VorbisAudioSource and a VideoSource into the
// single Decoder the Scheduler drives, mirroring the original's
// rxp_player_on_decode loop (spec §9, grounded on original_source's
// rxp_player.c): call each live stream in turn until every one of them
// has decoded past goalPTS, or all have ended.
type OggDecoder struct {
	Audio AudioSource
	Video VideoSource

	OnVideoFrame    VideoCallback
	OnAudio         AudioCallback
	OnEvent         EventCallback
	UpdateDecodePTS UpdateDecodePTSFunc
	// OnError reports a non-EOF decode error on either stream, for the
	// Player's metrics counters. Optional.
	OnError func(err error)

	audioState    streamState
	videoState    streamState
	audioInfoSent bool
}

// NewOggDecoder wires a real VorbisAudioSource, the one genuine codec path
// this engine ships, and the given video source into one Decoder. Passing
// nil for video selects NullVideoSource (audio-only playback). Use
// NewOggDecoderWithSources to choose the audio source as well.
func NewOggDecoder(video VideoSource) *OggDecoder {
	if video == nil {
		video = NullVideoSource{}
	}
	return &OggDecoder{
		Audio: NewVorbisAudioSource(),
		Video: video,
	}
}

// NewOggDecoderWithSources wires explicit audio and video sources,
// primarily for tests that want fully synthetic streams.
func NewOggDecoderWithSources(audio AudioSource, video VideoSource) *OggDecoder {
	if audio == nil {
		audio = NullAudioSource{}
	}
	if video == nil {
		video = NullVideoSource{}
	}
	return &OggDecoder{Audio: audio, Video: video}
}

func (d *OggDecoder) Open(path string) error {
	if err := d.Audio.Open(path); err != nil {
		slog.Warn("audio source open failed, continuing video-only", "error", err)
		d.audioState = streamState{present: false, ended: true}
	} else {
		d.audioState = streamState{present: d.Audio.Present(), ended: !d.Audio.Present()}
	}

	if err := d.Video.Open(path); err != nil {
		slog.Warn("video source open failed, continuing audio-only", "error", err)
		d.videoState = streamState{present: false, ended: true}
	} else {
		d.videoState = streamState{present: d.Video.Present(), ended: !d.Video.Present()}
	}

	if d.audioState.present && d.OnEvent != nil {
		d.OnEvent(EventAudioInfo, d.Audio.SampleRate(), d.Audio.Channels())
	}
	d.audioInfoSent = true
	return nil
}

func (d *OggDecoder) Close() error {
	audioErr := d.Audio.Close()
	videoErr := d.Video.Close()
	if audioErr != nil {
		return audioErr
	}
	return videoErr
}

// Decode pulls from whichever live streams haven't yet reached goalPTS,
// alternating between audio and video each pass, until every live stream
// is past goalPTS or has ended. It reports EventDecodeReady once every
// stream has ended.
func (d *OggDecoder) Decode(goalPTS int64) error {
	for {
		progressed := false

		if d.audioState.present && !d.audioState.ended && d.audioState.decoded <= goalPTS {
			n, err := d.Audio.ReadFrames(func(samples [][]float32, nframes int) {
				if d.OnAudio != nil {
					d.OnAudio(samples, nframes)
				}
			})
			if n > 0 {
				progressed = true
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					d.audioState.ended = true
				} else {
					slog.Error("audio decode error", "error", err)
					if d.OnError != nil {
						d.OnError(err)
					}
				}
			}
		}

		if d.videoState.present && !d.videoState.ended && d.videoState.decoded <= goalPTS {
			frame, err := d.Video.ReadFrame()
			if err == nil {
				d.videoState.decoded = frame.PTS
				if d.UpdateDecodePTS != nil {
					d.UpdateDecodePTS(frame.PTS)
				}
				if d.OnVideoFrame != nil {
					d.OnVideoFrame(frame)
				}
				progressed = true
			} else if errors.Is(err, io.EOF) {
				d.videoState.ended = true
			} else {
				slog.Error("video decode error", "error", err)
				if d.OnError != nil {
					d.OnError(err)
				}
			}
		}

		audioDone := !d.audioState.present || d.audioState.ended || d.audioState.decoded > goalPTS
		videoDone := !d.videoState.present || d.videoState.ended || d.videoState.decoded > goalPTS
		if audioDone && videoDone {
			break
		}
		if !progressed {
			break
		}
	}

	if (!d.audioState.present || d.audioState.ended) && (!d.videoState.present || d.videoState.ended) {
		if d.OnEvent != nil {
			d.OnEvent(EventDecodeReady, 0, 0)
		}
	}
	return nil
}

// MarkAudioDecoded records the audio stream's decoded PTS for the
// stream-done bookkeeping in Decode above. The audio path computes its
// own PTS from the Clock (spec §4.6, since PTS derives from
// total_audio_frames rather than anything the decoder itself tracks), so
// the Player's on_audio handler calls this after each audio callback
// instead of OggDecoder computing it.
func (d *OggDecoder) MarkAudioDecoded(pts int64) {
	d.audioState.decoded = pts
}
