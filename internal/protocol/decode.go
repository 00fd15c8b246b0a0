package protocol

import (
	"bytes"
)

// ParseResponse parses one reply line read from the peripheral.
// A bare `OK` line is the ping reply.
func ParseResponse(line []byte) (Response, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Response{}, ErrEmptyPayload
	}
	if line[0] != StartMarker {
		if bytes.IndexByte(line, EndMarker) >= 0 {
			return Response{}, ErrMissingStart
		}
		return Response{Opcode: OpPing, Value: RawValue(string(line))}, nil
	}
	end := bytes.IndexByte(line, EndMarker)
	if end < 0 {
		return Response{}, ErrMissingEnd
	}
	payload := line[1:end]
	if len(payload) == 0 {
		return Response{}, ErrEmptyPayload
	}
	op := Opcode(payload[0])
	body := payload[1:]
	if len(body) < 2 || body[0] != OpenArgs || body[len(body)-1] != CloseArgs {
		return Response{}, ErrMissingValue
	}
	return Response{Opcode: op, Value: parseValue(string(body[1 : len(body)-1]))}, nil
}
