package hexstr

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestDecodeMixedCase(t *testing.T) {
	dst := make([]byte, 16)
	n, err := Decode(dst, []byte("48656c6C6f"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(dst[:n]) != "Hello" {
		t.Fatalf("unexpected decode: %q", dst[:n])
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 64; i++ {
		src := make([]byte, rng.Intn(200))
		rng.Read(src)
		enc := Encode(src)
		if !bytes.Equal(enc, bytes.ToUpper(enc)) {
			t.Fatalf("encode must be upper case: %q", enc)
		}
		dst := make([]byte, len(src))
		n, err := Decode(dst, enc)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !bytes.Equal(dst[:n], src) {
			t.Fatalf("round-trip mismatch at iteration %d", i)
		}
	}
}

func TestDecodeOddLength(t *testing.T) {
	dst := []byte{0xAA, 0xAA, 0xAA}
	if _, err := Decode(dst, []byte("414")); !errors.Is(err, ErrOddLength) {
		t.Fatalf("expected ErrOddLength, got %v", err)
	}
	if !bytes.Equal(dst, []byte{0xAA, 0xAA, 0xAA}) {
		t.Fatalf("malformed input must not write: %x", dst)
	}
}

func TestDecodeInvalidByte(t *testing.T) {
	dst := []byte{0xAA, 0xAA}
	_, err := Decode(dst, []byte("4G"))
	var invalid InvalidByteError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidByteError, got %v", err)
	}
	if invalid.Offset != 1 || invalid.Byte != 'G' {
		t.Fatalf("unexpected error detail: %+v", invalid)
	}
	if !bytes.Equal(dst, []byte{0xAA, 0xAA}) {
		t.Fatalf("malformed input must not write: %x", dst)
	}
}

func TestDecodeClampsToCapacity(t *testing.T) {
	backing := bytes.Repeat([]byte{0xEE}, 8)
	dst := backing[:4]
	long := bytes.Repeat([]byte("41"), 1000)
	n, err := Decode(dst, long)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected clamp to 4 bytes, got %d", n)
	}
	if !bytes.Equal(backing[4:], []byte{0xEE, 0xEE, 0xEE, 0xEE}) {
		t.Fatalf("wrote past capacity: %x", backing)
	}
}

func TestMalformedLongInputNeverOverruns(t *testing.T) {
	inputs := [][]byte{
		bytes.Repeat([]byte("G"), 5000),
		append(bytes.Repeat([]byte("41"), 10), 'G'),
		bytes.Repeat([]byte("4"), 4001),
	}
	for _, in := range inputs {
		backing := bytes.Repeat([]byte{0xEE}, 12)
		dst := backing[:6]
		_, _ = Decode(dst, in)
		if !bytes.Equal(backing[6:], bytes.Repeat([]byte{0xEE}, 6)) {
			t.Fatalf("wrote past capacity for input len=%d", len(in))
		}
	}
}

func TestScratchTerminates(t *testing.T) {
	s := NewScratch(4)
	if s.Cap() != 4 || s.MaxInput() != 8 {
		t.Fatalf("unexpected capacity: cap=%d max=%d", s.Cap(), s.MaxInput())
	}
	out, err := s.Decode([]byte("6869"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(out) != "hi" {
		t.Fatalf("unexpected decode: %q", out)
	}
	term := s.Terminated()
	if len(term) != 3 || term[2] != 0 {
		t.Fatalf("expected NUL terminator at n: %v", term)
	}
	if _, err := s.Decode([]byte("6")); err == nil {
		t.Fatalf("expected error")
	}
	if len(s.Bytes()) != 0 {
		t.Fatalf("failed decode must reset contents")
	}
}
