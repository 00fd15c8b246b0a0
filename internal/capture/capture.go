// Package capture records consumed frames to a CBOR stream for later inspection with
// `inkctl dump`. A capture starts with a Header followed by one Record per frame.
package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/danmuck/inkrelay/internal/protocol"
	"github.com/danmuck/inkrelay/internal/relay"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	Magic   = "inkrelay-capture"
	Version = 1
)

var (
	ErrBadMagic   = errors.New("capture: not a capture stream")
	ErrBadVersion = errors.New("capture: unsupported version")
)

type Header struct {
	Magic     string    `cbor:"1,keyasint"`
	Version   int       `cbor:"2,keyasint"`
	SessionID string    `cbor:"3,keyasint"`
	Session   string    `cbor:"4,keyasint,omitempty"`
	Started   time.Time `cbor:"5,keyasint"`
}

type Record struct {
	Seq      uint64    `cbor:"1,keyasint"`
	Time     time.Time `cbor:"2,keyasint"`
	Opcode   byte      `cbor:"3,keyasint"`
	Args     []byte    `cbor:"4,keyasint,omitempty"`
	Outcome  string    `cbor:"5,keyasint"`
	Response []byte    `cbor:"6,keyasint,omitempty"`
	Error    string    `cbor:"7,keyasint,omitempty"`
}

// Wire rebuilds the frame as it appeared on the link, markers included. Degenerate
// records rebuild as `#*`.
func (r Record) Wire() []byte {
	out := []byte{protocol.StartMarker}
	if r.Opcode != 0 {
		out = append(out, r.Opcode)
		out = append(out, r.Args...)
	}
	return append(out, protocol.EndMarker)
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Writer is a relay.Tracer that appends records to a capture stream.
type Writer struct {
	mu     sync.Mutex
	enc    *cbor.Encoder
	buf    *bufio.Writer
	closer io.Closer
	id     uuid.UUID
	seq    uint64
	err    error
}

var _ relay.Tracer = (*Writer)(nil)

// NewWriter writes the header to w. If w is an io.Closer, Close closes it.
func NewWriter(w io.Writer, session string) (*Writer, error) {
	buf := bufio.NewWriter(w)
	cw := &Writer{
		enc: encMode.NewEncoder(buf),
		buf: buf,
		id:  uuid.New(),
	}
	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}
	h := Header{Magic: Magic, Version: Version, SessionID: cw.id.String(), Session: session, Started: time.Now().UTC()}
	if err := cw.enc.Encode(h); err != nil {
		return nil, fmt.Errorf("capture: write header: %w", err)
	}
	return cw, nil
}

// Create opens path for writing, truncating any previous capture.
func Create(path, session string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("capture: create %s: %w", path, err)
	}
	w, err := NewWriter(f, session)
	if err != nil {
		f.Close()
		return nil, err
	}
	log.Info().Str("path", path).Str("capture_id", w.id.String()).Msg("capture.Create")
	return w, nil
}

func (w *Writer) ID() uuid.UUID { return w.id }

// Trace appends one record. After the first write error the writer stops recording
// and Close reports the error.
func (w *Writer) Trace(ev relay.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	w.seq++
	rec := Record{
		Seq:      w.seq,
		Time:     ev.Time.UTC(),
		Opcode:   byte(ev.Opcode),
		Args:     ev.Args,
		Outcome:  ev.Outcome.String(),
		Response: ev.Response,
	}
	if ev.Outcome == relay.OutcomeDegenerate {
		rec.Opcode = 0
		rec.Args = nil
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}
	if err := w.enc.Encode(rec); err != nil {
		w.err = fmt.Errorf("capture: write record %d: %w", w.seq, err)
		log.Error().Err(w.err).Msg("capture.Trace disabled")
	}
}

// Flush pushes buffered records to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	return w.buf.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.err
	if ferr := w.buf.Flush(); err == nil {
		err = ferr
	}
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reader walks a capture stream.
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

func NewReader(r io.Reader) (*Reader, error) {
	dec := cbor.NewDecoder(bufio.NewReader(r))
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	if h.Magic != Magic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, h.Magic)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}
	return &Reader{dec: dec, header: h}, nil
}

func (r *Reader) Header() Header { return r.header }

// Next returns the next record, or io.EOF at the end of the stream.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("capture: read record: %w", err)
	}
	return rec, nil
}

// ReadAll returns every remaining record.
func (r *Reader) ReadAll() ([]Record, error) {
	var out []Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
