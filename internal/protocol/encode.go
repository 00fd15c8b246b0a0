package protocol

import (
	"io"
	"strconv"

	"github.com/danmuck/inkrelay/internal/protocol/hexstr"
)

// Response is one reply frame produced by a query opcode.
type Response struct {
	Opcode Opcode
	Value  Value
}

// EncodeResponse writes r to w followed by the line terminator.
// Raw values are written bare; everything else as `#<op>(<value>)*`.
func EncodeResponse(w io.Writer, r Response) error {
	_, err := w.Write(AppendResponse(nil, r))
	return err
}

// AppendResponse appends the encoded response, including the line terminator, to dst.
func AppendResponse(dst []byte, r Response) []byte {
	if r.Value.Kind == KindRaw {
		dst = append(dst, r.Value.Raw...)
		return append(dst, LineTerminator...)
	}
	dst = append(dst, StartMarker, byte(r.Opcode), OpenArgs)
	dst = append(dst, r.Value.Format()...)
	dst = append(dst, CloseArgs, EndMarker)
	return append(dst, LineTerminator...)
}

// Request is a host-side command ready to be framed.
type Request struct {
	Opcode Opcode
	Ints   []int
	// Flag is a single character argument; zero means none.
	Flag byte
	// Text is hex encoded on the wire when HasText is set.
	Text    []byte
	HasText bool
}

// EncodeRequest writes the framed request to w.
func EncodeRequest(w io.Writer, r Request) error {
	buf, err := AppendRequest(nil, r)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// AppendRequest appends `#<op>(<args>)*` to dst. Requests without arguments are sent as `#<op>*`.
func AppendRequest(dst []byte, r Request) ([]byte, error) {
	if !isPrintableOpcode(r.Opcode) {
		return dst, ErrInvalidOpcode
	}
	if r.Flag == StartMarker || r.Flag == EndMarker || r.Flag == Quote {
		return dst, ErrReservedArgument
	}
	dst = append(dst, StartMarker, byte(r.Opcode))
	if len(r.Ints) == 0 && r.Flag == 0 && !r.HasText {
		return append(dst, EndMarker), nil
	}
	dst = append(dst, OpenArgs)
	for i, n := range r.Ints {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = strconv.AppendInt(dst, int64(n), 10)
	}
	if r.Flag != 0 {
		if len(r.Ints) > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, r.Flag)
	}
	if r.HasText {
		if len(r.Ints) > 0 || r.Flag != 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, Quote)
		dst = append(dst, hexstr.Encode(r.Text)...)
		dst = append(dst, Quote)
	}
	dst = append(dst, CloseArgs, EndMarker)
	return dst, nil
}

func isPrintableOpcode(op Opcode) bool {
	return op > ' ' && op < 0x7f && op != Opcode(StartMarker) && op != Opcode(EndMarker)
}
