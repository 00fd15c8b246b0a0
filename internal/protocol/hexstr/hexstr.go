package hexstr

import (
	"errors"
	"fmt"
)

var ErrOddLength = errors.New("hexstr: odd length input")

// InvalidByteError reports a byte outside [0-9A-Fa-f] at Offset.
type InvalidByteError struct {
	Offset int
	Byte   byte
}

func (e InvalidByteError) Error() string {
	return fmt.Sprintf("hexstr: invalid byte %q at offset %d", e.Byte, e.Offset)
}

const upperDigits = "0123456789ABCDEF"

// Decode writes the bytes encoded by src into dst and returns how many were written.
//
// src is untrusted: it is clamped to 2*len(dst) characters before validation, so the
// destination capacity bounds every write. The clamped input is validated in full
// before anything is written; malformed input leaves dst untouched.
func Decode(dst, src []byte) (int, error) {
	if limit := 2 * len(dst); len(src) > limit {
		src = src[:limit]
	}
	if len(src)%2 != 0 {
		return 0, ErrOddLength
	}
	for i, c := range src {
		if nibble(upper(c)) < 0 {
			return 0, InvalidByteError{Offset: i, Byte: c}
		}
	}
	n := len(src) / 2
	for i := 0; i < n; i++ {
		hi := nibble(upper(src[2*i]))
		lo := nibble(upper(src[2*i+1]))
		dst[i] = byte(hi<<4) | byte(lo&0x0F)
	}
	return n, nil
}

// Encode returns src as upper-case hex pairs.
func Encode(src []byte) []byte {
	out := make([]byte, 2*len(src))
	for i, b := range src {
		out[2*i] = upperDigits[b>>4]
		out[2*i+1] = upperDigits[b&0x0F]
	}
	return out
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

func nibble(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return -1
	}
}
