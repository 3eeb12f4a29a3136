// Package packetqueue implements the Player's decoded-video frame buffer:
// a mutex-guarded FIFO of YUV 4:2:0 packets with free-list reuse.
//
// The original design (see spec §9) is an intrusive doubly-linked list of
// packets with a cached tail pointer. Go has no pointer surgery to avoid
// but it also has no use for one: a slab of packet slots indexed by
// position gives the same append/free-list-reuse behavior without
// hand-rolled links, so that's what this implements.
package packetqueue

import "sync"

// Packet kinds supported.
const (
	KindYUV420P = iota
)

// Plane describes one image plane of a decoded video frame.
type Plane struct {
	Width  int
	Height int
	Stride int
	Offset int // byte offset into Packet.Data where this plane begins
}

// Packet is one decoded video frame. Planes[0] is Y, Planes[1] is U,
// Planes[2] is V; Data is the single backing buffer all three planes
// point into by offset, satisfying
// Planes[1].Offset == Planes[0].Offset + Planes[0].Stride*Planes[0].Height
// (and analogously for Planes[2]).
type Packet struct {
	PTS    int64
	Kind   int
	Planes [3]Plane
	Data   []byte
	Size   int
	Free   bool
}

// requiredSize returns the number of bytes this packet's plane layout
// needs, i.e. Planes[2].Offset plus the V plane's own byte span.
func (p *Packet) requiredSize() int {
	last := p.Planes[2]
	return last.Offset + last.Stride*last.Height
}

// Queue is a FIFO of packets in non-decreasing PTS order, protected by a
// single mutex. Free packets are kept in the same slab and reused in
// place rather than deallocated, exactly as the spec's free-flag policy
// describes — this just replaces the linked-list free scan with a slice
// scan over the same slab.
type Queue struct {
	mu      sync.Mutex
	packets []*Packet // head..tail, insertion (== non-decreasing PTS) order
}

// New creates an empty packet queue.
func New() *Queue {
	return &Queue{}
}

// Lock and Unlock expose the queue's mutex for the Player's Update scans,
// which must hold the lock across the whole selection scan but release it
// before invoking the render callback (spec §4.2).
func (q *Queue) Lock()   { q.mu.Lock() }
func (q *Queue) Unlock() { q.mu.Unlock() }

// FindFree returns the first packet with Free set, or nil. Caller must
// hold the lock.
func (q *Queue) FindFree() *Packet {
	for _, p := range q.packets {
		if p.Free {
			return p
		}
	}
	return nil
}

// Add appends a packet, marking it non-free and placing it at the tail.
// If pkt is already present in the slab (it was obtained via FindFree and
// is being reused) it is moved from its old slot to the tail, so slab order
// stays insertion order; otherwise it is appended as a new slab entry.
// Caller must hold the lock.
func (q *Queue) Add(pkt *Packet) {
	pkt.Free = false
	for i, p := range q.packets {
		if p == pkt {
			q.packets = append(q.packets[:i], q.packets[i+1:]...)
			break
		}
	}
	q.packets = append(q.packets, pkt)
}

// EnsureCapacity stores planes (with the offsets the caller computed) as
// pkt.Planes, grows pkt.Data if that layout needs more bytes than the
// packet currently has allocated, and sets Size to the layout's byte count.
// It does not recompute plane offsets. This is the explicit reallocation the
// original source left as a "todo" (spec §4.2/§9) — growth is handled
// rather than silently dropped.
func (q *Queue) EnsureCapacity(pkt *Packet, planes [3]Plane) {
	pkt.Planes = planes
	need := pkt.requiredSize()
	if cap(pkt.Data) < need {
		pkt.Data = make([]byte, need)
	} else {
		pkt.Data = pkt.Data[:need]
	}
	pkt.Size = need
}

// Select implements the spec §4.2 rendered-frame selection policy.
// lastUsedPTS is the caller's last_used_pts; now is the current clock
// time; decodeReady indicates the Player's DecodeReady flag. It returns
// the selected packet (or nil if none is due yet) and the updated
// lastUsedPTS. Caller must hold the lock for the duration of the scan and
// must release it before invoking any render callback with the result.
func (q *Queue) Select(lastUsedPTS int64, now int64, decodeReady bool) (*Packet, int64) {
	for i, p := range q.packets {
		if p.Free {
			continue
		}
		if p.PTS <= lastUsedPTS {
			p.Free = true
			continue
		}

		hasNext := i+1 < len(q.packets) && !q.packets[i+1].Free
		switch {
		case hasNext && p.PTS <= now && now < q.packets[i+1].PTS:
			return p, p.PTS
		case decodeReady && p.PTS <= now:
			return p, p.PTS
		default:
			// This packet isn't due yet, but a render-thread stall can
			// let now jump past several packets at once; keep scanning
			// forward rather than stopping here (matches the original's
			// rxp_player_update loop, which keeps walking tail->next
			// until it finds the bracketing packet or exhausts the list).
			continue
		}
	}
	return nil, lastUsedPTS
}

// Len reports the number of live (non-free) packets. Caller must hold the
// lock.
func (q *Queue) Len() int {
	n := 0
	for _, p := range q.packets {
		if !p.Free {
			n++
		}
	}
	return n
}
