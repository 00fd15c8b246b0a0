package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/danmuck/inkrelay/internal/observability"
	"github.com/danmuck/inkrelay/internal/protocol"
	"github.com/danmuck/inkrelay/internal/protocol/frame"
	"github.com/danmuck/inkrelay/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

var ErrNilSource = errors.New("relay: nil byte source")

// ByteSource yields at most one byte per call without blocking.
type ByteSource interface {
	TryReadByte() (byte, bool)
}

// Outcome is what one Step did.
type Outcome int

const (
	// OutcomeIdle: no byte was available and no frame was pending.
	OutcomeIdle Outcome = iota
	// OutcomePending: a byte was ingested but no complete frame exists yet.
	OutcomePending
	// OutcomeDegenerate: an empty `#*` frame was consumed.
	OutcomeDegenerate
	// OutcomeDropped: the frame's arguments did not match its opcode.
	OutcomeDropped
	// OutcomeIgnored: the opcode is not recognised.
	OutcomeIgnored
	// OutcomeDispatched: the command ran and produced no response.
	OutcomeDispatched
	// OutcomeResponded: the command ran and a response was written.
	OutcomeResponded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomePending:
		return "pending"
	case OutcomeDegenerate:
		return "degenerate"
	case OutcomeDropped:
		return "dropped"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeDispatched:
		return "dispatched"
	case OutcomeResponded:
		return "responded"
	default:
		return "unknown"
	}
}

// Event describes one consumed frame. Args and Response are only valid during the
// Tracer call.
type Event struct {
	Session  string
	Time     time.Time
	Opcode   protocol.Opcode
	Args     []byte
	Outcome  Outcome
	Response []byte
	Err      error
}

// Tracer observes consumed frames, e.g. for capture files.
type Tracer interface {
	Trace(ev Event)
}

// Config tunes one Session.
type Config struct {
	Name           string
	WindowCapacity int
	PollInterval   time.Duration
	Limits         schema.Limits
}

func DefaultConfig() Config {
	return Config{
		Name:           "relay",
		WindowCapacity: frame.DefaultCapacity,
		PollInterval:   time.Millisecond,
		Limits:         schema.DefaultLimits(),
	}
}

// Stats are cumulative session counters.
type Stats struct {
	Bytes      uint64 `json:"bytes"`
	Frames     uint64 `json:"frames"`
	Degenerate uint64 `json:"degenerate"`
	Dropped    uint64 `json:"dropped"`
	Ignored    uint64 `json:"ignored"`
	Dispatched uint64 `json:"dispatched"`
	Responses  uint64 `json:"responses"`
	WriteFails uint64 `json:"write_failures"`
}

type counters struct {
	bytes, frames, degenerate, dropped, ignored, dispatched, responses, writeFails atomic.Uint64
}

// Session is the single-threaded ingest, extract, decode, dispatch, respond loop.
type Session struct {
	cfg        Config
	window     *frame.Window
	decoder    *schema.Decoder
	dispatcher *Dispatcher
	src        ByteSource
	out        io.Writer
	tracer     Tracer
	now        func() time.Time

	stats counters
	buf   []byte
}

type Option func(*Session)

// WithTracer attaches a frame observer.
func WithTracer(t Tracer) Option {
	return func(s *Session) { s.tracer = t }
}

func NewSession(cfg Config, src ByteSource, out io.Writer, d *Dispatcher, opts ...Option) (*Session, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.WindowCapacity <= 0 {
		cfg.WindowCapacity = def.WindowCapacity
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	window, err := frame.NewWindow(cfg.WindowCapacity)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = io.Discard
	}
	s := &Session{
		cfg:        cfg,
		window:     window,
		decoder:    schema.NewDecoder(cfg.Limits),
		dispatcher: d,
		src:        src,
		out:        out,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Boot clears the surface and pushes the blank frame to the panel.
func (s *Session) Boot() {
	s.dispatcher.surface.Clear()
	s.dispatcher.surface.Refresh()
	log.Info().Str("session", s.cfg.Name).Int("window", s.window.Cap()).Msg("relay.Session boot")
}

// Step runs one loop iteration: ingest at most one byte, then extract and handle at
// most one frame. The returned error is only set when writing a response failed.
func (s *Session) Step() (Outcome, error) {
	b, got := s.src.TryReadByte()
	if got {
		s.window.Push(b)
		s.stats.bytes.Add(1)
		observability.RecordBytesIngested(s.cfg.Name, 1)
	}

	f, status := s.window.Extract()
	switch status {
	case frame.StatusIncomplete:
		if got {
			return OutcomePending, nil
		}
		return OutcomeIdle, nil
	case frame.StatusDegenerate:
		s.stats.degenerate.Add(1)
		s.finish(protocol.Frame{}, OutcomeDegenerate, nil, nil)
		return OutcomeDegenerate, nil
	}

	s.stats.frames.Add(1)
	cmd, err := s.decoder.Decode(f.Opcode, f.Args)
	if err != nil {
		if errors.Is(err, schema.ErrUnknownOpcode) {
			s.stats.ignored.Add(1)
			s.finish(f, OutcomeIgnored, nil, err)
			return OutcomeIgnored, nil
		}
		s.stats.dropped.Add(1)
		s.finish(f, OutcomeDropped, nil, err)
		return OutcomeDropped, nil
	}

	resp, ok := s.dispatcher.Dispatch(cmd)
	if !ok {
		s.stats.dispatched.Add(1)
		s.finish(f, OutcomeDispatched, nil, nil)
		return OutcomeDispatched, nil
	}

	s.buf = protocol.AppendResponse(s.buf[:0], resp)
	_, werr := s.out.Write(s.buf)
	observability.RecordResponse(s.cfg.Name, protocol.OpcodeName(resp.Opcode), werr == nil)
	if werr != nil {
		s.stats.writeFails.Add(1)
		werr = fmt.Errorf("relay: write response: %w", werr)
	} else {
		s.stats.responses.Add(1)
	}
	s.finish(f, OutcomeResponded, s.buf, werr)
	return OutcomeResponded, werr
}

func (s *Session) finish(f protocol.Frame, outcome Outcome, response []byte, err error) {
	name := "empty"
	if outcome != OutcomeDegenerate {
		name = protocol.OpcodeName(f.Opcode)
	}
	observability.RecordFrame(s.cfg.Name, name, outcome.String())
	log.Debug().
		Str("session", s.cfg.Name).
		Str("opcode", name).
		Str("outcome", outcome.String()).
		AnErr("err", err).
		Msg("relay.Session frame")
	if s.tracer == nil {
		return
	}
	s.tracer.Trace(Event{
		Session:  s.cfg.Name,
		Time:     s.now(),
		Opcode:   f.Opcode,
		Args:     f.Args,
		Outcome:  outcome,
		Response: response,
		Err:      err,
	})
}

// Run steps until ctx is done. An idle step sleeps for the poll interval; busy steps
// run back to back. Write failures are logged and the loop continues.
func (s *Session) Run(ctx context.Context) error {
	log.Info().Str("session", s.cfg.Name).Dur("poll", s.cfg.PollInterval).Msg("relay.Session run")
	timer := time.NewTimer(s.cfg.PollInterval)
	defer timer.Stop()
	for {
		if err := ctx.Err(); err != nil {
			log.Info().Str("session", s.cfg.Name).Msg("relay.Session stopped")
			return nil
		}
		outcome, err := s.Step()
		if err != nil {
			log.Warn().Err(err).Str("session", s.cfg.Name).Msg("relay.Session response lost")
		}
		if outcome != OutcomeIdle {
			continue
		}
		timer.Reset(s.cfg.PollInterval)
		select {
		case <-ctx.Done():
			log.Info().Str("session", s.cfg.Name).Msg("relay.Session stopped")
			return nil
		case <-timer.C:
		}
	}
}

// Stats returns a snapshot of the session counters. Safe to call from any goroutine.
func (s *Session) Stats() Stats {
	return Stats{
		Bytes:      s.stats.bytes.Load(),
		Frames:     s.stats.frames.Load(),
		Degenerate: s.stats.degenerate.Load(),
		Dropped:    s.stats.dropped.Load(),
		Ignored:    s.stats.ignored.Load(),
		Dispatched: s.stats.dispatched.Load(),
		Responses:  s.stats.responses.Load(),
		WriteFails: s.stats.writeFails.Load(),
	}
}

func (s *Session) Name() string { return s.cfg.Name }
