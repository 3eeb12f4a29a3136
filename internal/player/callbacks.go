package player

import (
	"log/slog"

	"github.com/drgolem/oggplay/internal/decoder"
	"github.com/drgolem/oggplay/pkg/packetqueue"
)

// schedOpenFile is the Scheduler's open_file callback (worker goroutine).
func (p *Player) schedOpenFile(path string) error {
	return p.dec.Open(path)
}

// schedCloseFile is the Scheduler's close_file callback (worker goroutine).
func (p *Player) schedCloseFile() error {
	p.mu.Lock()
	p.fileOpen = false
	p.mu.Unlock()
	return p.dec.Close()
}

// schedPlay is the Scheduler's play callback: pre-buffering is complete,
// emit PlayerPlay so the host may start its audio stream (spec §4.6).
func (p *Player) schedPlay() {
	p.emit(EventPlayerPlay)
}

// schedStop is the Scheduler's stop callback: reset state to None, stop
// the Clock, emit PlayerReset, and clear mustStop (spec §4.6).
func (p *Player) schedStop() {
	p.mu.Lock()
	p.state = StateNone
	p.lastUsedPTS = 0
	p.clock.Stop()
	p.mu.Unlock()

	p.mustStop.Store(false)
	p.emit(EventPlayerReset)
}

// schedDecode is the Scheduler's decode callback: loop the Decoder until
// every live stream exceeds goalPTS or the decoder signals EOS/error
// (spec §4.5/§4.6).
func (p *Player) schedDecode(goalPTS int64) error {
	return p.dec.Decode(goalPTS)
}

// onVideoFrame is the Decoder's video-frame callback (worker goroutine):
// acquire or allocate a free packet, ensure its buffer can hold the new
// frame's planes (reallocating on grow rather than leaving the original's
// "todo" unresolved — spec §4.2/§9), copy planes contiguously, and append.
func (p *Player) onVideoFrame(frame decoder.VideoFrame) {
	p.packets.Lock()
	pkt := p.packets.FindFree()
	if pkt == nil {
		pkt = &packetqueue.Packet{Free: true}
	}

	ySize := frame.YStride * frame.Height
	cw, ch := frame.Width/2, frame.Height/2
	uvSize := frame.UVStride * ch

	planes := [3]packetqueue.Plane{
		{Width: frame.Width, Height: frame.Height, Stride: frame.YStride, Offset: 0},
		{Width: cw, Height: ch, Stride: frame.UVStride, Offset: ySize},
		{Width: cw, Height: ch, Stride: frame.UVStride, Offset: ySize + uvSize},
	}
	p.packets.EnsureCapacity(pkt, planes)

	copy(pkt.Data[planes[0].Offset:], frame.Y)
	copy(pkt.Data[planes[1].Offset:], frame.U)
	copy(pkt.Data[planes[2].Offset:], frame.V)
	pkt.Kind = packetqueue.KindYUV420P
	pkt.PTS = frame.PTS

	p.packets.Add(pkt)
	p.packets.Unlock()
}

// onAudio is the Decoder's audio callback (worker goroutine): interleave
// the non-interleaved planar PCM into a scratch buffer, advance
// totalAudioFrames, timestamp via the Clock, and write to the ringbuffer
// (spec §4.6). All under the Player mutex — the render path must never
// acquire the ringbuffer's internal lock because it has none; this mutex
// is the ringbuffer's only serialization (spec §9).
func (p *Player) onAudio(samples [][]float32, nframes int) {
	if nframes == 0 || len(samples) == 0 {
		return
	}
	channels := len(samples)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ring == nil {
		return
	}

	need := nframes * channels
	if cap(p.audioScratch) < need {
		p.audioScratch = make([]float32, need)
	}
	scratch := p.audioScratch[:need]
	for i := 0; i < nframes; i++ {
		for ch := 0; ch < channels; ch++ {
			scratch[i*channels+ch] = samples[ch][i]
		}
	}

	p.totalAudioFrames += int64(nframes)
	pts := p.clock.CalculateAudioTime(p.totalAudioFrames)

	raw := make([]byte, need*4)
	for i, v := range scratch {
		b := float32ToBytes(v)
		copy(raw[i*4:i*4+4], b[:])
	}
	if err := p.ring.Write(raw); err != nil {
		slog.Error("player: ringbuffer write failed, dropping audio", "error", err)
		p.metrics.RecordDecodeError()
		return
	}

	p.dec.MarkAudioDecoded(pts)
	p.scheduler.UpdateDecodePTS(pts)
}

// onDecoderEvent is the Decoder's event callback (worker goroutine); see
// the state-transition table in spec §4.6.
func (p *Player) onDecoderEvent(ev decoder.Event, samplerate, channels int) {
	switch ev {
	case decoder.EventAudioInfo:
		p.mu.Lock()
		p.samplerate = samplerate
		p.nchannels = channels
		p.clock.SetSamplerate(samplerate)
		p.ring = newAudioRingBuffer()
		p.mu.Unlock()
		p.emit(EventAudioInfo)

	case decoder.EventDecodeReady:
		p.mu.Lock()
		p.state |= StateDecodeReady
		p.mu.Unlock()
		p.scheduler.CloseFile()
		p.emit(EventDecodeReady)
	}
}

// onDecodeError is the Decoder's error callback (worker goroutine): record
// the occurrence for the status/metrics snapshot. The error itself is
// already logged by the decoder.
func (p *Player) onDecodeError(error) {
	p.metrics.RecordDecodeError()
}

func (p *Player) emit(ev Event) {
	if p.EventListener != nil {
		p.EventListener(ev)
	}
}
