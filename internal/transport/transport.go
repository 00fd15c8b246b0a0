// Package transport opens the byte links a relay or host client talks over: a serial
// port, a TCP socket, or the process's stdio.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const (
	KindSerial = "serial"
	KindTCP    = "tcp"
	KindStdio  = "stdio"

	DefaultBaud = 115200
)

var (
	ErrUnknownKind = errors.New("transport: unknown kind")
	ErrNoPort      = errors.New("transport: serial port not configured")
	ErrNoAddress   = errors.New("transport: tcp address not configured")
)

// Config selects and parameterises a link.
type Config struct {
	Kind string
	// Port is the serial device path.
	Port string
	Baud int
	// Address is the TCP listen address on the relay side and the dial address on the
	// host side.
	Address string
	Backoff BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		Kind:    KindSerial,
		Baud:    DefaultBaud,
		Backoff: DefaultBackoff(),
	}
}

func (c Config) Validate() error {
	switch strings.TrimSpace(c.Kind) {
	case KindSerial:
		if strings.TrimSpace(c.Port) == "" {
			return ErrNoPort
		}
		if c.Baud <= 0 {
			return fmt.Errorf("transport: invalid baud rate %d", c.Baud)
		}
	case KindTCP:
		if strings.TrimSpace(c.Address) == "" {
			return ErrNoAddress
		}
	case KindStdio:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
	return nil
}

// OpenSerial opens port in 8N1 mode.
func OpenSerial(port string, baud int) (io.ReadWriteCloser, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: open serial %s: %w", port, err)
	}
	return p, nil
}

// Ports lists serial devices visible to the host.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Dial opens the host side of a link. Serial opens and TCP connects are retried with
// backoff until ctx is done.
func Dial(ctx context.Context, cfg Config) (io.ReadWriteCloser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Kind == KindStdio {
		return Stdio(), nil
	}
	var (
		link io.ReadWriteCloser
		d    net.Dialer
	)
	err := Retry(ctx, cfg.Backoff, cfg.Kind, func() error {
		var err error
		switch cfg.Kind {
		case KindSerial:
			link, err = OpenSerial(cfg.Port, cfg.Baud)
		case KindTCP:
			link, err = d.DialContext(ctx, "tcp", cfg.Address)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", cfg.Kind, err)
	}
	return link, nil
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return nil }

// Stdio is a link over the process's stdin and stdout. Closing it is a no-op.
func Stdio() io.ReadWriteCloser {
	return stdio{}
}

// Serve accepts TCP links one at a time and hands each to handle. A second client is
// only accepted after the first handler returns, since a relay drives one panel.
func Serve(ctx context.Context, ln net.Listener, handle func(ctx context.Context, conn net.Conn)) error {
	defer ln.Close()
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		remote := conn.RemoteAddr().String()
		log.Info().Str("remote", remote).Msg("transport.Serve link connected")
		connCtx, cancel := context.WithCancel(ctx)
		closeOnCancel := context.AfterFunc(connCtx, func() { _ = conn.Close() })
		handle(connCtx, conn)
		closeOnCancel()
		cancel()
		_ = conn.Close()
		log.Info().Str("remote", remote).Msg("transport.Serve link closed")
	}
}
