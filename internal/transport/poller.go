package transport

import (
	"errors"
	"io"
	"sync"
)

const DefaultPollBuffer = 4096

// Poller turns a blocking reader into a non-blocking byte source. A goroutine reads
// into a bounded channel; when the channel is full the reader blocks, so bytes are
// never dropped by the poller itself. Close releases a reader blocked on a full channel.
type Poller struct {
	ch   chan byte
	done chan struct{}
	stop chan struct{}
	once sync.Once

	mu  sync.Mutex
	err error
}

func NewPoller(r io.Reader, buffer int) *Poller {
	if buffer <= 0 {
		buffer = DefaultPollBuffer
	}
	p := &Poller{
		ch:   make(chan byte, buffer),
		done: make(chan struct{}),
		stop: make(chan struct{}),
	}
	go p.pump(r)
	return p
}

func (p *Poller) pump(r io.Reader) {
	defer close(p.done)
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			select {
			case p.ch <- b:
			case <-p.stop:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.mu.Lock()
				p.err = err
				p.mu.Unlock()
			}
			return
		}
	}
}

// Close stops delivering bytes. A pump blocked on a full channel exits at once; one
// blocked in Read exits when the reader returns, so callers close the link as well.
func (p *Poller) Close() {
	p.once.Do(func() { close(p.stop) })
}

// TryReadByte returns the next buffered byte without blocking.
func (p *Poller) TryReadByte() (byte, bool) {
	select {
	case b := <-p.ch:
		return b, true
	default:
		return 0, false
	}
}

// Done is closed once the underlying reader returned an error or EOF. Bytes read
// before that remain available through TryReadByte.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Drained reports whether the reader stopped and every byte was consumed.
func (p *Poller) Drained() bool {
	select {
	case <-p.done:
		return len(p.ch) == 0
	default:
		return false
	}
}

// Err is the read error that stopped the poller, nil for EOF or while running.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
