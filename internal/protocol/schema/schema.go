package schema

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/danmuck/inkrelay/internal/protocol"
	"github.com/danmuck/inkrelay/internal/protocol/hexstr"
	"github.com/rs/zerolog/log"
)

var (
	ErrDecodeMismatch = errors.New("schema: arguments do not match opcode shape")
	ErrUnknownOpcode  = errors.New("schema: unknown opcode")
)

// Kind is the argument layout an opcode expects.
type Kind int

const (
	// KindNone ignores whatever follows the opcode.
	KindNone Kind = iota
	// KindInts is a comma separated list of signed decimal integers.
	KindInts
	// KindFlag is exactly one character.
	KindFlag
	// KindText is one quoted hex string.
	KindText
	// KindIntsText is integers followed by one quoted hex string.
	KindIntsText
)

// Payload selects which decode buffer a text argument lands in.
type Payload int

const (
	PayloadNone Payload = iota
	PayloadText
	PayloadName
)

// Shape is the static argument contract of one opcode.
type Shape struct {
	Kind Kind
	Ints int
	// OptionalInts accepts an empty argument list as well as exactly Ints integers.
	OptionalInts bool
	Payload      Payload
}

func ints(n int) Shape { return Shape{Kind: KindInts, Ints: n} }

var (
	flag = Shape{Kind: KindFlag}
	text = Shape{Kind: KindText, Payload: PayloadText}
	// image opcodes: x, y, "file name"
	image = Shape{Kind: KindIntsText, Ints: 2, Payload: PayloadName}
)

var shapes = map[protocol.Opcode]Shape{
	protocol.OpPing:          {Kind: KindNone},
	protocol.OpPixel:         ints(3),
	protocol.OpLine:          ints(5),
	protocol.OpFastVLine:     ints(4),
	protocol.OpFastHLine:     ints(4),
	protocol.OpRect:          ints(5),
	protocol.OpCircle:        ints(4),
	protocol.OpTriangle:      ints(7),
	protocol.OpRoundRect:     ints(6),
	protocol.OpFillRect:      ints(5),
	protocol.OpFillCircle:    ints(4),
	protocol.OpFillTriangle:  ints(7),
	protocol.OpFillRoundRect: ints(6),
	protocol.OpPrint:         text,
	protocol.OpTextSize:      ints(1),
	protocol.OpCursor:        ints(2),
	protocol.OpTextWrap:      flag,
	protocol.OpRotation:      ints(1),
	protocol.OpImage:         image,
	protocol.OpSelectMode:    ints(1),
	protocol.OpModeQuery:     flag,
	protocol.OpClear:         flag,
	protocol.OpRefresh:       flag,
	protocol.OpPartial:       {Kind: KindInts, Ints: 3, OptionalInts: true},
	protocol.OpTemperature:   flag,
	protocol.OpTouchpad:      ints(1),
	protocol.OpBattery:       flag,
	protocol.OpPower:         ints(1),
	protocol.OpPanelState:    flag,
	protocol.OpImageAlias:    image,
	protocol.OpThickLine:     ints(6),
	protocol.OpEllipse:       ints(5),
	protocol.OpFillEllipse:   ints(5),
}

// Lookup returns the argument shape of op.
func Lookup(op protocol.Opcode) (Shape, bool) {
	s, ok := shapes[op]
	return s, ok
}

// Opcodes returns every opcode with a registered shape.
func Opcodes() []protocol.Opcode {
	out := make([]protocol.Opcode, 0, len(shapes))
	for op := range shapes {
		out = append(out, op)
	}
	return out
}

// Command is a fully decoded frame. It is only built when every argument parsed.
type Command struct {
	Opcode protocol.Opcode
	Ints   []int
	Flag   byte
	// Text aliases the decoder's scratch buffer and is valid until the next Decode.
	Text []byte
}

// DecodeError explains why a frame's arguments were rejected.
type DecodeError struct {
	Opcode protocol.Opcode
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema: opcode=%q: %s: %v", byte(e.Opcode), e.Reason, e.Err)
	}
	return fmt.Sprintf("schema: opcode=%q: %s", byte(e.Opcode), e.Reason)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDecodeMismatch, e.Err}
	}
	return []error{ErrDecodeMismatch}
}

// Limits bounds the decoded size of text payloads.
type Limits struct {
	TextCapacity int
	NameCapacity int
}

// DefaultLimits mirrors the firmware scratch sizes: 2000 hex characters of text and
// 149 characters of file name.
func DefaultLimits() Limits {
	return Limits{
		TextCapacity: 1000,
		NameCapacity: 74,
	}
}

// Decoder owns the bounded scratch buffers text arguments decode into.
type Decoder struct {
	text *hexstr.Scratch
	name *hexstr.Scratch
}

func NewDecoder(limits Limits) *Decoder {
	def := DefaultLimits()
	if limits.TextCapacity <= 0 {
		limits.TextCapacity = def.TextCapacity
	}
	if limits.NameCapacity <= 0 {
		limits.NameCapacity = def.NameCapacity
	}
	return &Decoder{
		text: hexstr.NewScratch(limits.TextCapacity),
		name: hexstr.NewScratch(limits.NameCapacity),
	}
}

// Decode parses raw against the shape registered for op.
// Arguments may be wrapped in one pair of parentheses.
func (d *Decoder) Decode(op protocol.Opcode, raw []byte) (Command, error) {
	shape, ok := shapes[op]
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownOpcode, byte(op))
	}
	args := unwrap(raw)
	cmd := Command{Opcode: op}

	switch shape.Kind {
	case KindNone:
		return cmd, nil

	case KindFlag:
		if len(args) != 1 {
			return Command{}, mismatch(op, fmt.Sprintf("want one flag character, got %d bytes", len(args)), nil)
		}
		cmd.Flag = args[0]
		return cmd, nil

	case KindInts:
		if shape.OptionalInts && len(args) == 0 {
			return cmd, nil
		}
		vals, err := parseInts(args, shape.Ints)
		if err != nil {
			return Command{}, mismatch(op, "integer arguments", err)
		}
		cmd.Ints = vals
		return cmd, nil

	case KindText:
		out, err := d.decodeQuoted(args, shape.Payload)
		if err != nil {
			return Command{}, mismatch(op, "text argument", err)
		}
		cmd.Text = out
		return cmd, nil

	case KindIntsText:
		quote := bytes.IndexByte(args, protocol.Quote)
		if quote < 1 || args[quote-1] != ',' {
			return Command{}, mismatch(op, "want integers then a quoted string", nil)
		}
		vals, err := parseInts(args[:quote-1], shape.Ints)
		if err != nil {
			return Command{}, mismatch(op, "integer arguments", err)
		}
		out, err := d.decodeQuoted(args[quote:], shape.Payload)
		if err != nil {
			return Command{}, mismatch(op, "text argument", err)
		}
		cmd.Ints = vals
		cmd.Text = out
		return cmd, nil
	}

	log.Error().Str("opcode", op.String()).Int("kind", int(shape.Kind)).Msg("schema.Decode unhandled shape kind")
	return Command{}, mismatch(op, "unhandled shape", nil)
}

func (d *Decoder) decodeQuoted(args []byte, payload Payload) ([]byte, error) {
	if len(args) < 2 || args[0] != protocol.Quote {
		return nil, errors.New("missing opening quote")
	}
	closing := bytes.IndexByte(args[1:], protocol.Quote)
	if closing < 0 {
		return nil, errors.New("missing closing quote")
	}
	if 1+closing+1 != len(args) {
		return nil, errors.New("trailing bytes after quoted string")
	}
	scratch := d.text
	if payload == PayloadName {
		scratch = d.name
	}
	return scratch.Decode(args[1 : 1+closing])
}

func parseInts(args []byte, want int) ([]int, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("want %d integers, got none", want)
	}
	tokens := bytes.Split(args, []byte{','})
	if len(tokens) != want {
		return nil, fmt.Errorf("want %d integers, got %d", want, len(tokens))
	}
	out := make([]int, want)
	for i, tok := range tokens {
		n, err := strconv.ParseInt(string(tok), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = int(n)
	}
	return out, nil
}

// unwrap strips one balanced pair of parentheses. A lone opening or closing
// parenthesis stays in place and fails the shape check.
func unwrap(raw []byte) []byte {
	if len(raw) >= 2 && raw[0] == protocol.OpenArgs && raw[len(raw)-1] == protocol.CloseArgs {
		return raw[1 : len(raw)-1]
	}
	return raw
}

func mismatch(op protocol.Opcode, reason string, err error) error {
	log.Debug().Str("opcode", op.String()).Str("reason", reason).AnErr("cause", err).Msg("schema.Decode mismatch")
	return &DecodeError{Opcode: op, Reason: reason, Err: err}
}
