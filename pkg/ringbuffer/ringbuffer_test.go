package ringbuffer

import (
	"bytes"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	rb := New(16)

	if err := rb.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := rb.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}

	dst := make([]byte, 5)
	n, err := rb.Read(dst)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 5 || !bytes.Equal(dst, []byte("hello")) {
		t.Fatalf("Read = %d %q, want 5 %q", n, dst, "hello")
	}
	if got := rb.Len(); got != 0 {
		t.Fatalf("Len() after drain = %d, want 0", got)
	}
}

func TestWriteTooLarge(t *testing.T) {
	rb := New(4)
	if err := rb.Write([]byte("toolong")); err != ErrTooLarge {
		t.Fatalf("Write() = %v, want ErrTooLarge", err)
	}
}

func TestReadUnderflow(t *testing.T) {
	rb := New(8)
	dst := make([]byte, 4)
	if _, err := rb.Read(dst); err != ErrUnderflow {
		t.Fatalf("Read() = %v, want ErrUnderflow", err)
	}
}

func TestWrapAround(t *testing.T) {
	rb := New(8)

	if err := rb.Write([]byte("abcdef")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	dst := make([]byte, 4)
	if _, err := rb.Read(dst); err != nil {
		t.Fatalf("Read: %v", err)
	}
	// head is now at 6, tail at 4, 2 bytes ("ef") remain. Writing 5 more
	// bytes must wrap the head around capacity.
	if err := rb.Write([]byte("ghijk")); err != nil {
		t.Fatalf("Write (wrap): %v", err)
	}
	if got := rb.Len(); got != 7 {
		t.Fatalf("Len() = %d, want 7", got)
	}

	out := make([]byte, 7)
	n, err := rb.Read(out)
	if err != nil {
		t.Fatalf("Read (wrap): %v", err)
	}
	if n != 7 || !bytes.Equal(out, []byte("efghijk")) {
		t.Fatalf("Read (wrap) = %d %q, want 7 %q", n, out, "efghijk")
	}
}

func TestReadPartialClampsToAvailable(t *testing.T) {
	rb := New(16)
	if err := rb.Write([]byte("ab")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	dst := make([]byte, 10)
	n, err := rb.Read(dst)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 2 || !bytes.Equal(dst[:2], []byte("ab")) {
		t.Fatalf("Read = %d %q, want 2 %q", n, dst[:2], "ab")
	}
}

func TestReset(t *testing.T) {
	rb := New(8)
	if err := rb.Write([]byte("abcd")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rb.Reset()
	if got := rb.Len(); got != 0 {
		t.Fatalf("Len() after Reset = %d, want 0", got)
	}
	dst := make([]byte, 1)
	if _, err := rb.Read(dst); err != ErrUnderflow {
		t.Fatalf("Read() after Reset = %v, want ErrUnderflow", err)
	}
}

// TestMonotonicAccounting writes and reads arbitrary chunk sizes and checks
// that nbytes always equals writes minus reads, and that output equals the
// concatenation of everything written, as required by the invariant in
// spec §8.
func TestMonotonicAccounting(t *testing.T) {
	rb := New(32)
	var written, read []byte

	chunks := [][]byte{
		[]byte("0123456789"),
		[]byte("abcde"),
		[]byte("XYZ"),
	}
	for _, c := range chunks {
		if err := rb.Write(c); err != nil {
			t.Fatalf("Write(%q): %v", c, err)
		}
		written = append(written, c...)

		if len(written)-len(read) != rb.Len() {
			t.Fatalf("Len() = %d, want %d", rb.Len(), len(written)-len(read))
		}

		out := make([]byte, 4)
		n, err := rb.Read(out)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		read = append(read, out[:n]...)
	}

	remaining := make([]byte, rb.Len())
	n, err := rb.Read(remaining)
	if err != nil && rb.Len() != 0 {
		t.Fatalf("Read: %v", err)
	}
	read = append(read, remaining[:n]...)

	if !bytes.Equal(read, written) {
		t.Fatalf("read %q != written %q", read, written)
	}
}
