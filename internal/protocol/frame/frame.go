package frame

import (
	"errors"

	"github.com/danmuck/inkrelay/internal/protocol"
)

// DefaultCapacity matches the longest frame the peripheral accepts.
const DefaultCapacity = 1000

var ErrInvalidCapacity = errors.New("frame: capacity must be positive")

// Status reports what one extraction attempt found.
type Status int

const (
	// StatusIncomplete means no `#`...`*` span is available yet.
	StatusIncomplete Status = iota
	// StatusDegenerate means markers were found with nothing between them; both were erased.
	StatusDegenerate
	// StatusFrame means a frame was extracted and its markers erased.
	StatusFrame
)

func (s Status) String() string {
	switch s {
	case StatusIncomplete:
		return "incomplete"
	case StatusDegenerate:
		return "degenerate"
	case StatusFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// Window is the fixed capacity ingestion history. Once full, every Push evicts the
// oldest byte. A Window is owned by a single session and is not safe for concurrent use.
type Window struct {
	buf  []byte
	head int // index of the oldest byte
	size int
}

// NewWindow allocates a window holding the most recent capacity bytes.
func NewWindow(capacity int) (*Window, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Window{buf: make([]byte, capacity)}, nil
}

// Cap returns the fixed capacity.
func (w *Window) Cap() int {
	return len(w.buf)
}

// Len returns the number of bytes received so far, bounded by Cap.
func (w *Window) Len() int {
	return w.size
}

// Push appends b, evicting the oldest byte when the window is full.
func (w *Window) Push(b byte) {
	if w.size < len(w.buf) {
		w.buf[(w.head+w.size)%len(w.buf)] = b
		w.size++
		return
	}
	w.buf[w.head] = b
	w.head = (w.head + 1) % len(w.buf)
}

// Write pushes every byte of p. It never fails.
func (w *Window) Write(p []byte) (int, error) {
	for _, b := range p {
		w.Push(b)
	}
	return len(p), nil
}

// At returns the byte at logical position i, 0 being the oldest.
func (w *Window) At(i int) byte {
	return w.buf[w.index(i)]
}

// Snapshot copies the window contents oldest first.
func (w *Window) Snapshot() []byte {
	out := make([]byte, w.size)
	for i := range out {
		out[i] = w.At(i)
	}
	return out
}

// Reset clears the window.
func (w *Window) Reset() {
	for i := range w.buf {
		w.buf[i] = 0
	}
	w.head = 0
	w.size = 0
}

// Extract looks for the first start marker and the first end marker in the window.
//
// Markers are located independently by first occurrence. A frame exists only when the
// end marker follows the start marker; a stray end marker ahead of the start keeps the
// window pending until it is evicted. When two start markers precede one end marker the
// first start wins and the bytes in between become payload. On success (or a degenerate
// `#*`) both markers are zeroed so the same frame can never be matched again.
func (w *Window) Extract() (protocol.Frame, Status) {
	start, end := -1, -1
	for i := 0; i < w.size && (start < 0 || end < 0); i++ {
		switch w.At(i) {
		case protocol.StartMarker:
			if start < 0 {
				start = i
			}
		case protocol.EndMarker:
			if end < 0 {
				end = i
			}
		}
	}
	if start < 0 || end < 0 || end < start {
		return protocol.Frame{}, StatusIncomplete
	}

	payloadLen := end - start - 1
	w.buf[w.index(start)] = 0
	w.buf[w.index(end)] = 0
	if payloadLen <= 0 {
		return protocol.Frame{}, StatusDegenerate
	}

	f := protocol.Frame{Opcode: protocol.Opcode(w.At(start + 1))}
	if payloadLen > 1 {
		f.Args = make([]byte, payloadLen-1)
		for i := range f.Args {
			f.Args[i] = w.At(start + 2 + i)
		}
	}
	return f, StatusFrame
}

func (w *Window) index(i int) int {
	return (w.head + i) % len(w.buf)
}
