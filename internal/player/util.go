package player

import (
	"math"

	"github.com/drgolem/oggplay/pkg/ringbuffer"
)

// newAudioRingBuffer allocates the 5 MiB ringbuffer the Player switches on
// once an audio stream is known (spec §6).
func newAudioRingBuffer() *ringbuffer.RingBuffer {
	return ringbuffer.New(ringbufferCapacity)
}

func bytesToFloat32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}

func float32ToBytes(v float32) [4]byte {
	bits := math.Float32bits(v)
	return [4]byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
}
