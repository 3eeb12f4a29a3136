// Package scheduler implements the worker goroutine, goal-PTS control
// loop, and task dispatch/teardown barrier described in spec §4.5.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/drgolem/oggplay/pkg/taskqueue"
)

// stateFlag is a bitset, not an enum, because Decoding must be
// representable simultaneously with Started (spec §9's note about the
// two bitset flavors in the original sources — the shift variant is the
// one that supports that).
type stateFlag uint32

const (
	stateNone     stateFlag = 0
	stateStarted  stateFlag = 1 << iota
	stateDecoding
)

const (
	preBufferHorizon = 3 * time.Second
	lookaheadHorizon = 5 * time.Second
)

// Callbacks are invoked from the worker goroutine; implementations must
// treat them as arriving from a foreign thread (spec §4.5).
type Callbacks struct {
	OpenFile  func(path string) error
	CloseFile func() error
	Play      func()
	Stop      func()
	Decode    func(goalPTS int64) error
}

// Scheduler owns the task queue and worker goroutine that drives a
// Decoder via the supplied Callbacks.
type Scheduler struct {
	mu    sync.Mutex
	state stateFlag

	goalPTS    int64
	decodedPTS int64
	playedPTS  int64

	queue *taskqueue.Queue
	cb    Callbacks
	wg    sync.WaitGroup
}

// New constructs a Scheduler bound to cb. The worker goroutine is not
// started until Start is called.
func New(cb Callbacks) *Scheduler {
	return &Scheduler{
		queue: taskqueue.New(),
		cb:    cb,
	}
}

// Start spawns the worker goroutine if it is not already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.state&stateStarted != 0 {
		s.mu.Unlock()
		return
	}
	s.state |= stateStarted
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()
}

// OpenFile enqueues an OpenFile task followed by an initial Decode task,
// seeding goalPTS to the 3s pre-buffer horizon so the first Decode has
// somewhere to aim (spec §4.5).
func (s *Scheduler) OpenFile(path string) {
	s.mu.Lock()
	s.goalPTS = int64(preBufferHorizon)
	s.state |= stateDecoding
	s.mu.Unlock()

	s.queue.Add(taskqueue.Task{Kind: taskqueue.KindOpenFile, Path: path})
	s.queue.Add(taskqueue.Task{Kind: taskqueue.KindDecode})
}

// CloseFile enqueues a CloseFile task.
func (s *Scheduler) CloseFile() {
	s.queue.Add(taskqueue.Task{Kind: taskqueue.KindCloseFile})
}

// Play enqueues a Play task.
func (s *Scheduler) Play() {
	s.queue.Add(taskqueue.Task{Kind: taskqueue.KindPlay})
}

// Stop enqueues a Stop task and blocks until the worker goroutine has
// joined — the Go analogue of uv_thread_join (spec §4.5/§5).
func (s *Scheduler) Stop() {
	s.queue.Add(taskqueue.Task{Kind: taskqueue.KindStop})
	s.wg.Wait()
}

// Update recomputes goalPTS per spec §4.5's running lookahead and enqueues
// a new Decode task iff Decoding is clear and decodedPTS has not yet
// reached goalPTS. This check is the sole mechanism enforcing the
// at-most-one-Decode-in-flight invariant.
func (s *Scheduler) Update() {
	s.mu.Lock()
	target := s.playedPTS + int64(lookaheadHorizon)
	if target > s.goalPTS {
		s.goalPTS = target
	}
	needsDecode := s.state&stateDecoding == 0 && s.decodedPTS < s.goalPTS
	if needsDecode {
		s.state |= stateDecoding
	}
	s.mu.Unlock()

	if needsDecode {
		s.queue.Add(taskqueue.Task{Kind: taskqueue.KindDecode})
	}
}

// UpdateDecodePTS advances decodedPTS monotonically; called by the
// Decoder (via the Player) as it makes progress (spec §4.5).
func (s *Scheduler) UpdateDecodePTS(pts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pts > s.decodedPTS {
		s.decodedPTS = pts
	}
}

// UpdatePlayedPTS advances playedPTS monotonically; called by the Player
// once a frame has actually been presented (spec §4.6's Update contract).
func (s *Scheduler) UpdatePlayedPTS(pts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pts > s.playedPTS {
		s.playedPTS = pts
	}
}

// DecodedPTS returns the highest decoded PTS observed so far.
func (s *Scheduler) DecodedPTS() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decodedPTS
}

// GoalPTS returns the current decode horizon.
func (s *Scheduler) GoalPTS() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goalPTS
}

// PlayedPTS returns the highest presented PTS observed so far.
func (s *Scheduler) PlayedPTS() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playedPTS
}

// Clear resets Scheduler state back to zero values. It refuses (no-op) if
// the state bitset is non-zero, to prevent teardown races — callers must
// have already driven the worker through Stop first (spec §4.5).
func (s *Scheduler) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateNone {
		return false
	}
	s.goalPTS = 0
	s.decodedPTS = 0
	s.playedPTS = 0
	return true
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	for {
		s.queue.Wait()
		batch := s.queue.Steal()
		if batch == nil {
			continue
		}

		stopIdx := -1
		for i, t := range batch {
			if t.Kind == taskqueue.KindStop {
				stopIdx = i
				break
			}
		}

		if stopIdx >= 0 {
			// Two-pass drain: only CloseFile tasks in this batch, then
			// Stop itself, are honored. Everything else — including any
			// Decode/OpenFile/Play in the same batch — is discarded.
			// This is load-bearing for teardown correctness (spec §9)
			// and must not be "simplified" into a single linear pass.
			for _, t := range batch {
				if t.Kind == taskqueue.KindCloseFile {
					s.handleCloseFile()
				}
			}
			s.handleStop()
			return
		}

		for _, t := range batch {
			s.handle(t)
		}

		s.mu.Lock()
		s.state &^= stateDecoding
		s.mu.Unlock()
	}
}

func (s *Scheduler) handle(t taskqueue.Task) {
	switch t.Kind {
	case taskqueue.KindOpenFile:
		s.handleOpenFile(t.Path)
	case taskqueue.KindCloseFile:
		s.handleCloseFile()
	case taskqueue.KindPlay:
		s.handlePlay()
	case taskqueue.KindDecode:
		s.handleDecode()
	}
}

func (s *Scheduler) handleOpenFile(path string) {
	if s.cb.OpenFile == nil {
		return
	}
	if err := s.cb.OpenFile(path); err != nil {
		slog.Error("scheduler: open_file failed", "path", path, "error", err)
	}
}

func (s *Scheduler) handleCloseFile() {
	if s.cb.CloseFile == nil {
		return
	}
	if err := s.cb.CloseFile(); err != nil {
		slog.Error("scheduler: close_file failed", "error", err)
	}
}

func (s *Scheduler) handlePlay() {
	if s.cb.Play != nil {
		s.cb.Play()
	}
}

func (s *Scheduler) handleDecode() {
	goal := s.GoalPTS()
	if s.cb.Decode == nil {
		return
	}
	if err := s.cb.Decode(goal); err != nil {
		slog.Error("scheduler: decode failed", "error", err)
	}
}

func (s *Scheduler) handleStop() {
	s.mu.Lock()
	s.state = stateNone
	s.mu.Unlock()
	if s.cb.Stop != nil {
		s.cb.Stop()
	}
}
