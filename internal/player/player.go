// Package player implements the state machine and glue that binds Decoder
// callbacks to the Packet Queue, Ringbuffer, Clock, and Scheduler (spec
// §4.6) — the component that accounts for most of this engine.
package player

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drgolem/oggplay/internal/clock"
	"github.com/drgolem/oggplay/internal/decoder"
	"github.com/drgolem/oggplay/internal/scheduler"
	"github.com/drgolem/oggplay/internal/status"
	"github.com/drgolem/oggplay/pkg/packetqueue"
	"github.com/drgolem/oggplay/pkg/ringbuffer"
)

// State is a bitset over {Playing, Paused, DecodeReady, ShuttingDown}.
// The shift form is required, not the 0x000N form, because Playing and
// DecodeReady must be representable simultaneously (spec §9).
type State uint32

const (
	StateNone State = 0
	StatePlaying State = 1 << iota
	StatePaused
	StateDecodeReady
	StateShuttingDown
)

func (s State) has(f State) bool { return s&f != 0 }

// Event mirrors the integer kinds spec §6 says are surfaced to the host.
type Event int

const (
	EventDecodeReady Event = iota
	EventAudioInfo
	EventPlayerReset
	EventPlayerPlay
)

const ringbufferCapacity = 5 * 1024 * 1024 // 5 MiB, spec §6

var (
	ErrAlreadyOpen = errors.New("player: already open")
	ErrNotPlaying  = errors.New("player: not playing")
	ErrNotOpen     = errors.New("player: no file open")
)

// Player is the top-level engine object. The render thread calls
// Open/Play/Pause/Stop/Update; the host's audio thread calls
// FillAudioBuffer; the scheduler worker goroutine calls back into the
// on*/sched* methods in callbacks.go. All three run concurrently (spec §5).
type Player struct {
	mu sync.Mutex

	state            State
	lastUsedPTS      int64
	totalAudioFrames int64
	samplerate       int
	nchannels        int
	fileOpen         bool
	fileName         string
	playStart        time.Time

	clock     *clock.Clock
	scheduler *scheduler.Scheduler
	packets   *packetqueue.Queue
	ring      *ringbuffer.RingBuffer

	dec *decoder.OggDecoder

	// mustStop is set from the audio-pull thread (FillAudioBuffer) and
	// drained by Update on the render thread. It must never block or
	// allocate when set, since FillAudioBuffer runs on the audio
	// callback thread (spec §4.6/§5).
	mustStop atomic.Bool

	// RenderCallback receives selected video packets; called with no
	// lock held (spec §5).
	RenderCallback func(pkt *packetqueue.Packet)
	// EventListener receives lifecycle events; called with no lock held.
	EventListener func(ev Event)

	audioScratch []float32 // reusable interleave buffer (decoder worker thread)
	fillScratch  []byte    // reusable PCM-bytes buffer (audio-pull thread)

	metrics status.Metrics
}

// New constructs a Player driving a real Ogg file: Vorbis audio plus the
// given VideoSource (pass nil for audio-only playback; a real Theora
// binding can be dropped in behind VideoSource without touching Player).
func New(video decoder.VideoSource) *Player {
	return newWithDecoder(decoder.NewOggDecoder(video))
}

// NewWithSources constructs a Player over fully explicit audio and video
// sources, for driving the engine end to end against synthetic streams
// without a real .ogg asset on disk.
func NewWithSources(audio decoder.AudioSource, video decoder.VideoSource) *Player {
	return newWithDecoder(decoder.NewOggDecoderWithSources(audio, video))
}

func newWithDecoder(dec *decoder.OggDecoder) *Player {
	p := &Player{
		clock:   clock.New(),
		packets: packetqueue.New(),
		dec:     dec,
	}
	p.dec.OnVideoFrame = p.onVideoFrame
	p.dec.OnAudio = p.onAudio
	p.dec.OnEvent = p.onDecoderEvent
	p.dec.OnError = p.onDecodeError
	p.dec.UpdateDecodePTS = func(pts int64) { p.scheduler.UpdateDecodePTS(pts) }

	p.scheduler = scheduler.New(scheduler.Callbacks{
		OpenFile:  p.schedOpenFile,
		CloseFile: p.schedCloseFile,
		Play:      p.schedPlay,
		Stop:      p.schedStop,
		Decode:    p.schedDecode,
	})
	p.scheduler.Start()
	return p
}

// Open schedules opening path. It is a no-op (logged, returns
// ErrAlreadyOpen) if a file is already open — Open while open is a
// protocol error, not a crash (spec §7).
func (p *Player) Open(path string) error {
	p.mu.Lock()
	if p.fileOpen || p.state != StateNone {
		p.mu.Unlock()
		slog.Warn("player: Open called while a file is open or playback is active", "state", p.state)
		return ErrAlreadyOpen
	}
	p.fileOpen = true
	p.fileName = filepath.Base(path)
	p.mu.Unlock()

	// The worker goroutine exits when Stop joins it (spec §4.5); Open
	// after a prior Stop/Reset must respawn it before scheduling work.
	// Start is idempotent if the worker is already running.
	p.scheduler.Start()
	p.scheduler.OpenFile(path)
	return nil
}

// Play transitions None->Playing (starting the Clock and scheduling a
// Play task; a DecodeReady flag the decoder set during pre-buffering is
// kept) or Paused->Playing (resuming in place). Play while already
// playing is logged and ignored, and returns nil.
func (p *Player) Play() error {
	p.mu.Lock()
	switch {
	case !p.state.has(StatePlaying) && !p.state.has(StatePaused):
		p.state |= StatePlaying
		p.lastUsedPTS = -1 // nothing rendered yet, so a frame at PTS 0 is still due
		p.clock.Start()
		p.playStart = time.Now()
		p.mu.Unlock()
		p.scheduler.Play()
		return nil
	case p.state.has(StatePaused):
		p.state = (p.state &^ StatePaused) | StatePlaying
		p.mu.Unlock()
		return nil
	default:
		p.mu.Unlock()
		slog.Warn("player: Play called while already playing")
		return nil
	}
}

// Pause transitions Playing->Paused. A protocol error (logged, ignored)
// otherwise.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.has(StatePlaying) {
		slog.Warn("player: Pause called while not playing")
		return ErrNotPlaying
	}
	p.state = (p.state &^ StatePlaying) | StatePaused
	return nil
}

// Stop schedules CloseFile (if a file is open) then Stop, and blocks until
// the scheduler worker has joined. Safe to call from Playing or Paused;
// a protocol error (logged, ignored) from None.
func (p *Player) Stop() error {
	p.mu.Lock()
	if p.state == StateNone {
		p.mu.Unlock()
		slog.Warn("player: Stop called while not playing")
		return ErrNotPlaying
	}
	fileOpen := p.fileOpen
	p.mu.Unlock()

	if fileOpen {
		p.scheduler.CloseFile()
	}
	p.scheduler.Stop()
	return nil
}

// Update is the render thread's per-frame entry point (spec §4.6).
func (p *Player) Update() {
	if p.mustStop.Load() {
		p.mustStop.Store(false)
		_ = p.Stop()
		return
	}

	p.mu.Lock()
	if !p.state.has(StatePlaying) {
		p.mu.Unlock()
		return
	}
	p.clock.Update()
	now := p.clock.Time()
	lastUsed := p.lastUsedPTS
	decodeReady := p.state.has(StateDecodeReady)
	decodedPTS := p.scheduler.DecodedPTS()
	p.mu.Unlock()

	p.packets.Lock()
	selected, newLast := p.packets.Select(lastUsed, now, decodeReady)
	p.packets.Unlock()

	p.mu.Lock()
	p.lastUsedPTS = newLast
	p.mu.Unlock()

	if selected != nil {
		if p.RenderCallback != nil {
			p.RenderCallback(selected)
		}
		p.scheduler.UpdatePlayedPTS(selected.PTS)

		if decodeReady && selected.PTS >= decodedPTS {
			p.mustStop.Store(true)
			return
		}
	}

	p.scheduler.Update()
}

// FillAudioBuffer is the OS audio callback's entry point (spec §4.6). It
// holds the Player mutex for the whole call and tears nothing down —
// underflow only arms mustStop for the render thread's next Update to act
// on. Its byte scratch buffer is allocated on first use and regrown when a
// larger request arrives.
func (p *Player) FillAudioBuffer(dst []float32, nsamples int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.state.has(StatePlaying) || p.ring == nil {
		for i := range dst {
			dst[i] = 0
		}
		return 0
	}

	needed := nsamples * p.nchannels * 4
	p.clock.AddSamples(int64(nsamples))
	p.metrics.RecordBufferUsage(uint64(p.ring.Len()))

	if cap(p.fillScratch) < needed {
		p.fillScratch = make([]byte, needed)
	}
	raw := p.fillScratch[:needed]
	n, err := p.ring.Read(raw)
	if err != nil || n < needed {
		for i := range dst {
			dst[i] = 0
		}
		p.metrics.RecordUnderrun()
		p.mustStop.Store(true)
		return -1
	}

	for i := 0; i < len(dst) && i*4+4 <= len(raw); i++ {
		dst[i] = bytesToFloat32(raw[i*4 : i*4+4])
	}
	return 0
}

// PlaybackStatus implements status.Monitor for the CLI host's periodic
// status log (spec §6, grounded on the teacher's audioplayer.Player
// GetPlaybackStatus).
func (p *Player) PlaybackStatus() status.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	var elapsed time.Duration
	if !p.playStart.IsZero() {
		elapsed = time.Since(p.playStart)
	}
	var bufBytes, bufCap int
	if p.ring != nil {
		bufBytes = p.ring.Len()
		bufCap = p.ring.Capacity()
	}

	return status.Snapshot{
		FileName:       p.fileName,
		SampleRate:     p.samplerate,
		Channels:       p.nchannels,
		PlayedPTS:      p.scheduler.PlayedPTS(),
		GoalPTS:        p.scheduler.GoalPTS(),
		Elapsed:        elapsed,
		BufferBytes:    bufBytes,
		BufferCapacity: bufCap,
		Underruns:      p.metrics.Underruns(),
		DecodeErrors:   p.metrics.DecodeErrors(),
		MaxBufferUsage: p.metrics.MaxBufferUsage(),
	}
}
