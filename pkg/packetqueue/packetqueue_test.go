package packetqueue

import "testing"

func addPacket(q *Queue, pts int64) *Packet {
	q.Lock()
	p := q.FindFree()
	if p == nil {
		p = &Packet{}
	}
	p.PTS = pts
	q.Add(p)
	q.Unlock()
	return p
}

func TestFindFreeReusesSlot(t *testing.T) {
	q := New()
	p1 := addPacket(q, 0)

	q.Lock()
	p1.Free = true
	q.Unlock()

	p2 := addPacket(q, 100)
	if p1 != p2 {
		t.Fatalf("expected free slot to be reused, got a new packet")
	}
}

func TestSelectMonotoneNonDecreasing(t *testing.T) {
	q := New()
	pts := []int64{0, 33_333_333, 66_666_666, 100_000_000}
	for _, p := range pts {
		addPacket(q, p)
	}

	var lastUsed int64 = -1
	var selectedPTS []int64
	now := int64(0)
	for i := 0; i < 6; i++ {
		q.Lock()
		sel, newLast := q.Select(lastUsed, now, false)
		q.Unlock()
		lastUsed = newLast
		if sel != nil {
			selectedPTS = append(selectedPTS, sel.PTS)
		}
		now += 33_333_333
	}

	for i := 1; i < len(selectedPTS); i++ {
		if selectedPTS[i] < selectedPTS[i-1] {
			t.Fatalf("selected PTS not monotone: %v", selectedPTS)
		}
	}
	for _, p := range selectedPTS {
		if p > now {
			t.Fatalf("selected PTS %d exceeds now %d", p, now)
		}
	}
}

func TestSelectNeverExceedsNow(t *testing.T) {
	q := New()
	addPacket(q, 500)

	q.Lock()
	sel, _ := q.Select(-1, 100, false)
	q.Unlock()
	if sel != nil {
		t.Fatalf("selected a packet whose PTS %d exceeds now 100", sel.PTS)
	}
}

func TestSelectScansPastStalePacketsAfterRenderStall(t *testing.T) {
	q := New()
	// A render-thread stall lets the decoder get well ahead: by the time
	// Select runs again, packets exist both well before and well after the
	// jumped-to now (500ms), with a gap at 533ms bracketing it.
	pts := []int64{0, 33_000_000, 67_000_000, 100_000_000, 533_000_000, 567_000_000}
	for _, p := range pts {
		addPacket(q, p)
	}

	// now jumps straight to 500ms. Select must keep scanning forward past
	// the 33ms/67ms packets whose bracket test fails instead of stopping
	// at the first one, to reach the 100ms packet — whose window
	// [100ms,533ms) is the one that actually brackets now.
	q.Lock()
	sel, last := q.Select(0, 500_000_000, false)
	q.Unlock()

	if sel == nil || sel.PTS != 100_000_000 {
		t.Fatalf("expected the 100ms packet (bracketing 500ms) to be selected, got %v", sel)
	}
	if last != 100_000_000 {
		t.Fatalf("lastUsedPTS = %d, want 100000000", last)
	}
}

func TestSelectDecodeReadyDrainsTrailingFrame(t *testing.T) {
	q := New()
	addPacket(q, 1000)

	q.Lock()
	sel, last := q.Select(-1, 2000, true)
	q.Unlock()

	if sel == nil || sel.PTS != 1000 {
		t.Fatalf("expected trailing frame to drain under DecodeReady, got %v", sel)
	}
	if last != 1000 {
		t.Fatalf("lastUsedPTS = %d, want 1000", last)
	}
}

func TestEnsureCapacityGrowsAndSetsOffsets(t *testing.T) {
	q := New()
	p := &Packet{Free: true}
	q.Lock()
	q.Add(p)
	q.Unlock()

	planes := [3]Plane{
		{Width: 4, Height: 4, Stride: 4, Offset: 0},
		{Width: 2, Height: 2, Stride: 2, Offset: 16},
		{Width: 2, Height: 2, Stride: 2, Offset: 20},
	}
	q.EnsureCapacity(p, planes)

	if got := len(p.Data); got != 24 {
		t.Fatalf("len(Data) = %d, want 24", got)
	}
	if p.Size != 24 {
		t.Fatalf("Size = %d, want 24", p.Size)
	}
	if p.Planes[1].Offset != p.Planes[0].Offset+p.Planes[0].Stride*p.Planes[0].Height {
		t.Fatalf("plane 1 offset invariant broken: %+v", p.Planes)
	}
}
