package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/drgolem/oggplay/pkg/taskqueue"
)

func newTestScheduler(t *testing.T) (*Scheduler, *sync.Mutex, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var calls []string

	record := func(name string) {
		mu.Lock()
		calls = append(calls, name)
		mu.Unlock()
	}

	s := New(Callbacks{
		OpenFile:  func(string) error { record("open"); return nil },
		CloseFile: func() error { record("close"); return nil },
		Play:      func() { record("play") },
		Stop:      func() { record("stop") },
		Decode:    func(int64) error { record("decode"); return nil },
	})
	return s, &mu, &calls
}

func TestOpenFileThenStopJoinsWorker(t *testing.T) {
	s, mu, calls := newTestScheduler(t)
	s.Start()
	s.OpenFile("a.ogg")

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(*calls)
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for open_file/decode to run")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(*calls) == 0 || (*calls)[len(*calls)-1] != "stop" {
		t.Fatalf("calls = %v, want last entry to be stop", *calls)
	}
}

func TestMonotonicPTS(t *testing.T) {
	s, _, _ := newTestScheduler(t)

	s.UpdateDecodePTS(100)
	s.UpdateDecodePTS(50) // must not regress
	if got := s.DecodedPTS(); got != 100 {
		t.Fatalf("DecodedPTS() = %d, want 100 (monotone)", got)
	}

	s.UpdatePlayedPTS(10)
	s.UpdatePlayedPTS(5)
	if got := s.PlayedPTS(); got != 10 {
		t.Fatalf("PlayedPTS() = %d, want 10 (monotone)", got)
	}
}

func TestGoalPTSNeverDecreases(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	s.OpenFile("a.ogg") // seeds goalPTS to 3s
	first := s.GoalPTS()

	s.UpdatePlayedPTS(int64(2 * time.Second))
	s.Update()
	second := s.GoalPTS()
	if second < first {
		t.Fatalf("goalPTS decreased: %d -> %d", first, second)
	}

	s.UpdatePlayedPTS(int64(10 * time.Second))
	s.Update()
	third := s.GoalPTS()
	if third < second {
		t.Fatalf("goalPTS decreased: %d -> %d", second, third)
	}
	if want := int64(10*time.Second) + int64(lookaheadHorizon); third != want {
		t.Fatalf("GoalPTS() = %d, want %d", third, want)
	}
}

// TestStopPreemptionDiscardsTrailingTasks drives the real run()/handle()
// Stop-preemption drain directly: every task below is queued before Start
// so the worker's very first Steal pulls them as a single batch, exactly
// the scenario run()'s two-pass drain exists for (spec §4.5/§9). Only the
// CloseFile that precedes the Stop, plus Stop itself, must actually run —
// the OpenFile before it and the Decode/Play after it must not.
func TestStopPreemptionDiscardsTrailingTasks(t *testing.T) {
	s, mu, calls := newTestScheduler(t)

	s.queue.Add(taskqueue.Task{Kind: taskqueue.KindOpenFile, Path: "a.ogg"})
	s.queue.Add(taskqueue.Task{Kind: taskqueue.KindCloseFile})
	s.queue.Add(taskqueue.Task{Kind: taskqueue.KindStop})
	s.queue.Add(taskqueue.Task{Kind: taskqueue.KindDecode})
	s.queue.Add(taskqueue.Task{Kind: taskqueue.KindPlay})

	s.Start()
	s.wg.Wait() // worker returns immediately after handleStop on this batch

	mu.Lock()
	defer mu.Unlock()
	want := []string{"close", "stop"}
	if len(*calls) != len(want) {
		t.Fatalf("calls = %v, want %v", *calls, want)
	}
	for i := range want {
		if (*calls)[i] != want[i] {
			t.Fatalf("calls = %v, want %v", *calls, want)
		}
	}
}

// TestAtMostOneDecodeInFlight exercises the invariant from spec §8: the
// Decoding flag, driven purely by Update's check-then-enqueue, must never
// let two Decode tasks be in flight or queued at once. We simulate a slow
// Decode callback and hammer Update from many goroutines concurrently.
func TestAtMostOneDecodeInFlight(t *testing.T) {
	var inFlight atomic.Int32
	var maxSeen atomic.Int32

	s := New(Callbacks{
		Decode: func(int64) error {
			n := inFlight.Add(1)
			for {
				cur := maxSeen.Load()
				if n <= cur || maxSeen.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		},
	})
	s.Start()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.UpdatePlayedPTS(int64(i) * int64(time.Second))
			s.Update()
		}()
	}
	wg.Wait()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if got := maxSeen.Load(); got > 1 {
		t.Fatalf("observed %d Decode callbacks in flight simultaneously, want <= 1", got)
	}
}
