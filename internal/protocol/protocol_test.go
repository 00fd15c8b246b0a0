package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeResponseFormats(t *testing.T) {
	cases := []struct {
		resp Response
		want string
	}{
		{Response{Opcode: OpBattery, Value: FloatValue(3.7)}, "#P(3.7)*\r\n"},
		{Response{Opcode: OpBattery, Value: FloatValue(4)}, "#P(4)*\r\n"},
		{Response{Opcode: OpImage, Value: IntValue(-1)}, "#H(-1)*\r\n"},
		{Response{Opcode: OpTemperature, Value: IntValue(23)}, "#N(23)*\r\n"},
		{Response{Opcode: OpPing, Value: RawValue("OK")}, "OK\r\n"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		if err := EncodeResponse(&buf, tc.resp); err != nil {
			t.Fatalf("encode: %v", err)
		}
		if buf.String() != tc.want {
			t.Fatalf("encode %+v: got %q want %q", tc.resp, buf.String(), tc.want)
		}
	}
}

func TestParseResponseRoundTrip(t *testing.T) {
	in := []Response{
		{Opcode: OpModeQuery, Value: IntValue(1)},
		{Opcode: OpBattery, Value: FloatValue(3.91234)},
		{Opcode: OpPing, Value: RawValue("OK")},
	}
	for _, want := range in {
		line := AppendResponse(nil, want)
		got, err := ParseResponse(line)
		if err != nil {
			t.Fatalf("parse %q: %v", line, err)
		}
		if got != want {
			t.Fatalf("round-trip mismatch: got=%+v want=%+v", got, want)
		}
	}
}

func TestParseResponseMalformed(t *testing.T) {
	cases := map[string]error{
		"":        ErrEmptyPayload,
		"#P(3.7)": ErrMissingEnd,
		"#P3.7*":  ErrMissingValue,
		"#*":      ErrEmptyPayload,
		"P(1)*":   ErrMissingStart,
	}
	for line, want := range cases {
		if _, err := ParseResponse([]byte(line)); !errors.Is(err, want) {
			t.Fatalf("ParseResponse(%q): expected %v, got %v", line, want, err)
		}
	}
}

func TestAppendRequest(t *testing.T) {
	cases := []struct {
		req  Request
		want string
	}{
		{Request{Opcode: OpPixel, Ints: []int{5, 5, 1}}, "#0(5,5,1)*"},
		{Request{Opcode: OpBattery, Flag: QueryFlag}, "#P(?)*"},
		{Request{Opcode: OpPrint, Text: []byte("Hi"), HasText: true}, `#C("4869")*`},
		{Request{Opcode: OpImage, Ints: []int{0, -4}, Text: []byte("a.bmp"), HasText: true}, `#H(0,-4,"612E626D70")*`},
		{Request{Opcode: OpPartial}, "#M*"},
	}
	for _, tc := range cases {
		got, err := AppendRequest(nil, tc.req)
		if err != nil {
			t.Fatalf("append %+v: %v", tc.req, err)
		}
		if string(got) != tc.want {
			t.Fatalf("got %q want %q", got, tc.want)
		}
	}
}

func TestAppendRequestRejectsMarkers(t *testing.T) {
	if _, err := AppendRequest(nil, Request{Opcode: Opcode(StartMarker)}); !errors.Is(err, ErrInvalidOpcode) {
		t.Fatalf("expected ErrInvalidOpcode, got %v", err)
	}
	if _, err := AppendRequest(nil, Request{Opcode: OpTextWrap, Flag: EndMarker}); !errors.Is(err, ErrReservedArgument) {
		t.Fatalf("expected ErrReservedArgument, got %v", err)
	}
}

func TestValueAccessors(t *testing.T) {
	if v, err := IntValue(3).AsFloat(); err != nil || v != 3 {
		t.Fatalf("int widen: %v %v", v, err)
	}
	if _, err := RawValue("OK").AsInt(); !errors.Is(err, ErrValueKind) {
		t.Fatalf("expected ErrValueKind, got %v", err)
	}
	if OpcodeName(OpBattery) != "battery" || OpcodeName('Z') != "unknown" {
		t.Fatalf("unexpected opcode names")
	}
}
