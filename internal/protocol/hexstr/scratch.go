package hexstr

// Scratch is a fixed capacity decode buffer that keeps one extra byte for a NUL terminator.
type Scratch struct {
	buf []byte
	n   int
}

// NewScratch allocates a scratch buffer holding up to capacity decoded bytes.
func NewScratch(capacity int) *Scratch {
	if capacity < 0 {
		capacity = 0
	}
	return &Scratch{buf: make([]byte, capacity+1)}
}

// Cap is the number of decoded bytes the scratch can hold.
func (s *Scratch) Cap() int {
	return len(s.buf) - 1
}

// MaxInput is the longest hex input that is not clamped.
func (s *Scratch) MaxInput() int {
	return 2 * s.Cap()
}

// Decode replaces the scratch contents with the decoding of src.
// On error the previous contents are discarded.
func (s *Scratch) Decode(src []byte) ([]byte, error) {
	n, err := Decode(s.buf[:s.Cap()], src)
	if err != nil {
		s.n = 0
		s.buf[0] = 0
		return nil, err
	}
	s.n = n
	s.buf[n] = 0
	return s.buf[:n], nil
}

// Bytes returns the last decoded value.
func (s *Scratch) Bytes() []byte {
	return s.buf[:s.n]
}

// Terminated returns the last decoded value including its NUL terminator.
func (s *Scratch) Terminated() []byte {
	return s.buf[:s.n+1]
}
