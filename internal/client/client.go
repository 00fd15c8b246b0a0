// Package client is the host side of the peripheral protocol: it frames requests,
// writes them to a link, and matches responses to queries.
package client

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/danmuck/inkrelay/internal/protocol"
	"github.com/danmuck/inkrelay/internal/transport"
	"github.com/rs/zerolog/log"
)

const (
	DefaultQueryTimeout = 2 * time.Second
	DefaultRetries      = 2

	responseBuffer = 32
)

var (
	ErrTimeout = errors.New("client: no response")
	ErrClosed  = errors.New("client: link closed")
)

type Options struct {
	// QueryTimeout bounds the wait for one response.
	QueryTimeout time.Duration
	// Retries is how many times a query is re-sent after a timeout.
	Retries int
}

func DefaultOptions() Options {
	return Options{QueryTimeout: DefaultQueryTimeout, Retries: DefaultRetries}
}

// Client drives one peripheral. Requests are serialised; it is safe for concurrent use.
type Client struct {
	rw   io.ReadWriter
	opts Options
	wait transport.BackoffConfig

	mu        sync.Mutex
	responses chan protocol.Response
	done      chan struct{}

	errMu   sync.Mutex
	readErr error
}

func New(rw io.ReadWriter, opts Options) *Client {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	c := &Client{
		rw:   rw,
		opts: opts,
		wait: transport.BackoffConfig{
			InitialDelay: opts.QueryTimeout,
			Multiplier:   2,
			MaxDelay:     4 * opts.QueryTimeout,
		},
		responses: make(chan protocol.Response, responseBuffer),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	defer close(c.done)
	sc := bufio.NewScanner(c.rw)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		resp, err := protocol.ParseResponse(line)
		if err != nil {
			log.Debug().Err(err).Bytes("line", line).Msg("client.readLoop unparsed line")
			continue
		}
		select {
		case c.responses <- resp:
		default:
			log.Warn().Str("opcode", resp.Opcode.String()).Msg("client.readLoop response buffer full, dropping")
		}
	}
	c.errMu.Lock()
	c.readErr = sc.Err()
	c.errMu.Unlock()
}

// Err is the error that stopped the response reader, if any.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.readErr
}

// Close closes the link if it is closable and waits for the reader to stop.
func (c *Client) Close() error {
	var err error
	if cl, ok := c.rw.(io.Closer); ok {
		err = cl.Close()
	}
	<-c.done
	return err
}

// Send writes a request that expects no response.
func (c *Client) Send(req protocol.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(req)
}

func (c *Client) write(req protocol.Request) error {
	if err := protocol.EncodeRequest(c.rw, req); err != nil {
		return fmt.Errorf("client: send %s: %w", protocol.OpcodeName(req.Opcode), err)
	}
	return nil
}

// Query sends req and waits for a response tagged want. The request is re-sent up to
// Retries times when no response arrives; the first wait is QueryTimeout and each
// re-send doubles it, capped at four times QueryTimeout.
func (c *Client) Query(ctx context.Context, req protocol.Request, want protocol.Opcode) (protocol.Value, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drain()

	timer := time.NewTimer(c.opts.QueryTimeout)
	defer timer.Stop()
	for attempt := 0; attempt <= c.opts.Retries; attempt++ {
		if attempt > 0 {
			log.Debug().Str("opcode", protocol.OpcodeName(req.Opcode)).Int("attempt", attempt).Msg("client.Query resend")
		}
		if err := c.write(req); err != nil {
			return protocol.Value{}, err
		}
		timer.Reset(c.wait.Delay(attempt+1, nil))
		if v, ok, err := c.await(ctx, timer, want); ok || err != nil {
			return v, err
		}
	}
	return protocol.Value{}, fmt.Errorf("%w: %s after %d attempts", ErrTimeout, protocol.OpcodeName(req.Opcode), c.opts.Retries+1)
}

func (c *Client) await(ctx context.Context, timer *time.Timer, want protocol.Opcode) (protocol.Value, bool, error) {
	for {
		select {
		case resp := <-c.responses:
			if resp.Opcode == want {
				return resp.Value, true, nil
			}
			log.Debug().Str("want", want.String()).Str("got", resp.Opcode.String()).Msg("client.Query unrelated response")
		case <-timer.C:
			return protocol.Value{}, false, nil
		case <-c.done:
			// The reader queues every response before closing done.
			for {
				select {
				case resp := <-c.responses:
					if resp.Opcode == want {
						return resp.Value, true, nil
					}
				default:
					return protocol.Value{}, false, ErrClosed
				}
			}
		case <-ctx.Done():
			return protocol.Value{}, false, ctx.Err()
		}
	}
}

// drain discards responses that arrived outside a query.
func (c *Client) drain() {
	for {
		select {
		case <-c.responses:
		default:
			return
		}
	}
}
