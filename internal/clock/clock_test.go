package clock

import "testing"

func TestCPUModeAdvancesFromMonotonic(t *testing.T) {
	c := New()
	var now int64 = 1_000_000_000
	c.nowFunc = func() int64 { return now }

	c.Start()
	now += 500_000_000
	c.Update()

	if got := c.Time(); got != 500_000_000 {
		t.Fatalf("Time() = %d, want 500000000", got)
	}
}

func TestAudioModeExactSampleTime(t *testing.T) {
	c := New()
	c.SetSamplerate(48000)

	c.AddSamples(1024)
	c.Update()

	want := int64(1024) * nanosPerSecond / 48000
	if got := c.Time(); got != want {
		t.Fatalf("Time() = %d, want %d", got, want)
	}
}

// TestAudioModeNoCompoundingDrift checks that repeated small AddSamples
// calls produce the same Time() as one AddSamples call of the summed
// count would — i.e. the per-call truncation in calculateAudioTime does
// not compound the way multiplying by a pre-truncated sampleTimeNs would.
func TestAudioModeNoCompoundingDrift(t *testing.T) {
	c := New()
	c.SetSamplerate(44100)

	var total int64
	for i := 0; i < 1000; i++ {
		c.AddSamples(441) // deliberately not an even divisor of 1e9
		total += 441
	}
	c.Update()

	want := total * nanosPerSecond / 44100
	if got := c.Time(); got != want {
		t.Fatalf("Time() = %d, want %d (drift introduced)", got, want)
	}
}

func TestStopDiscardsAccumulatedTime(t *testing.T) {
	c := New()
	var now int64 = 0
	c.nowFunc = func() int64 { return now }

	c.Start()
	now += 2_000_000_000
	c.Update()
	if c.Time() == 0 {
		t.Fatal("expected non-zero time before Stop")
	}

	c.Stop()
	if c.Kind() != KindCPU {
		t.Fatalf("Kind() after Stop = %v, want KindCPU", c.Kind())
	}
	if c.Time() != 0 {
		t.Fatalf("Time() after Stop = %d, want 0", c.Time())
	}
}

func TestSetSamplerateSwitchesKind(t *testing.T) {
	c := New()
	if c.Kind() != KindCPU {
		t.Fatalf("initial Kind() = %v, want KindCPU", c.Kind())
	}
	c.SetSamplerate(48000)
	if c.Kind() != KindAudio {
		t.Fatalf("Kind() after SetSamplerate = %v, want KindAudio", c.Kind())
	}
}
