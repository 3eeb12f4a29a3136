package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drgolem/oggplay/internal/player"
	"github.com/drgolem/oggplay/internal/status"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/spf13/cobra"
)

var (
	playDeviceIdx int
	playFrames    int
	playVerbose   bool
)

// playCmd represents the play command
var playCmd = &cobra.Command{
	Use:   "play <ogg_file>",
	Short: "Open and play an Ogg/Vorbis file",
	Long: `play drives the decode scheduler and render loop for a single Ogg
file: Vorbis audio is pulled through PortAudio, and Update() runs on a
ticker to select and dispatch due video packets (spec §4.6).

Examples:
  # Play a file on the default output device
  oggplay play music.ogg

  # Select an output device and a larger PortAudio buffer
  oggplay play -d 0 -f 1024 music.ogg`,
	Args: cobra.ExactArgs(1),
	Run:  runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().IntVarP(&playDeviceIdx, "device", "d", 1, "Audio output device index")
	playCmd.Flags().IntVarP(&playFrames, "frames", "f", 512, "PortAudio frames per buffer")
	playCmd.Flags().BoolVarP(&playVerbose, "verbose", "v", false, "Verbose output (debug logging)")
}

func runPlay(cmd *cobra.Command, args []string) {
	fileName := args[0]

	logLevel := slog.LevelInfo
	if playVerbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if _, err := os.Stat(fileName); os.IsNotExist(err) {
		slog.Error("file not found", "path", fileName)
		os.Exit(1)
	}

	slog.Info("initializing PortAudio")
	if err := portaudio.Initialize(); err != nil {
		slog.Error("failed to initialize PortAudio", "error", err)
		slog.Error("hint: make sure PortAudio is installed on your system")
		os.Exit(1)
	}
	defer portaudio.Terminate()
	slog.Info("PortAudio initialized", "version", portaudio.GetVersion())

	p := player.New(nil) // no real Theora binding in the example corpus; audio-only host

	audioInfo := make(chan struct{}, 1)
	reset := make(chan struct{}, 1)
	p.EventListener = func(ev player.Event) {
		switch ev {
		case player.EventAudioInfo:
			select {
			case audioInfo <- struct{}{}:
			default:
			}
		case player.EventPlayerPlay:
			slog.Info("pre-buffer complete, playback starting")
		case player.EventDecodeReady:
			slog.Info("decode reached end of stream")
		case player.EventPlayerReset:
			slog.Info("playback stopped")
			select {
			case reset <- struct{}{}:
			default:
			}
		}
	}

	slog.Info("opening file", "path", fileName)
	if err := p.Open(fileName); err != nil {
		slog.Error("failed to open file", "error", err)
		os.Exit(1)
	}

	select {
	case <-audioInfo:
	case <-time.After(5 * time.Second):
		slog.Error("timed out waiting for audio stream info")
		os.Exit(1)
	}

	snapshot := p.PlaybackStatus()
	slog.Info("audio stream ready", "sample_rate", snapshot.SampleRate, "channels", snapshot.Channels)

	stream, err := openOutputStream(p, snapshot.SampleRate, snapshot.Channels, playDeviceIdx, playFrames)
	if err != nil {
		slog.Error("failed to open audio stream", "error", err)
		os.Exit(1)
	}
	if err := stream.StartStream(); err != nil {
		slog.Error("failed to start audio stream", "error", err)
		os.Exit(1)
	}

	if err := p.Play(); err != nil {
		slog.Error("failed to start playback", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	statusDone := make(chan struct{})
	go logStatus(p, statusDone)

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ticker.C:
			p.Update()
		case <-reset:
			break loop
		case sig := <-sigChan:
			slog.Info("signal received, stopping playback", "signal", sig)
			_ = p.Stop()
			break loop
		}
	}

	close(statusDone)
	if err := stream.StopStream(); err != nil {
		slog.Warn("failed to stop audio stream", "error", err)
	}
	if err := stream.CloseCallback(); err != nil {
		slog.Warn("failed to close audio stream", "error", err)
	}
	slog.Info("exiting")
}

// openOutputStream opens a PortAudio callback stream that pulls audio
// straight from the Player's ringbuffer via FillAudioBuffer, converting the
// Player's float32 frames to 16-bit PCM for output (spec §6, grounded on
// the teacher's pkg/audioplayer/examples/play_callback callback pattern).
func openOutputStream(p *player.Player, sampleRate, channels, deviceIdx, framesPerBuffer int) (*portaudio.PaStream, error) {
	stream := &portaudio.PaStream{
		OutputParameters: &portaudio.PaStreamParameters{
			DeviceIndex:  deviceIdx,
			ChannelCount: channels,
			SampleFormat: portaudio.SampleFmtInt16,
		},
		SampleRate: float64(sampleRate),
	}

	scratch := make([]float32, framesPerBuffer*channels)

	callback := func(input, output []byte, frameCount uint, _ *portaudio.StreamCallbackTimeInfo, _ portaudio.StreamCallbackFlags) portaudio.StreamCallbackResult {
		nsamples := int(frameCount)
		need := nsamples * channels
		if cap(scratch) < need {
			scratch = make([]float32, need)
		}
		buf := scratch[:need]

		if rc := p.FillAudioBuffer(buf, nsamples); rc < 0 {
			clear(output[:need*2])
			return portaudio.Continue
		}

		for i, v := range buf {
			s := int16(clampFloat(v) * 32767)
			output[i*2] = byte(s)
			output[i*2+1] = byte(s >> 8)
		}
		return portaudio.Continue
	}

	if err := stream.OpenCallback(framesPerBuffer, callback); err != nil {
		return nil, fmt.Errorf("failed to open stream with callback: %w", err)
	}
	return stream, nil
}

func clampFloat(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// logStatus periodically logs playback progress (spec §6, grounded on the
// teacher's cmd.monitorBufferStatus).
func logStatus(mon status.Monitor, done chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s := mon.PlaybackStatus()
			slog.Info("playback status",
				"file", s.FileName,
				"played_pts_ms", s.PlayedPTS/int64(time.Millisecond),
				"goal_pts_ms", s.GoalPTS/int64(time.Millisecond),
				"elapsed", s.Elapsed.Round(time.Second),
				"buffer_bytes", s.BufferBytes,
				"buffer_capacity", s.BufferCapacity,
				"buffer_high_water", s.MaxBufferUsage,
				"underruns", s.Underruns,
				"decode_errors", s.DecodeErrors)
		case <-done:
			return
		}
	}
}
