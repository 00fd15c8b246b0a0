package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/danmuck/inkrelay/internal/admin"
	"github.com/danmuck/inkrelay/internal/auth"
	"github.com/danmuck/inkrelay/internal/blobstore"
	"github.com/danmuck/inkrelay/internal/capture"
	"github.com/danmuck/inkrelay/internal/config"
	"github.com/danmuck/inkrelay/internal/relay"
	"github.com/danmuck/inkrelay/internal/surface"
	"github.com/danmuck/inkrelay/internal/surface/raster"
	"github.com/danmuck/inkrelay/internal/surface/recorder"
	"github.com/danmuck/inkrelay/internal/transport"
	"github.com/rs/zerolog/log"
)

// device is everything a session drives. snapshots is nil for the recorder.
type device struct {
	surface   surface.Surface
	target    surface.Blitter
	snapshots admin.Snapshotter
}

func openDevice(cfg config.Config) (device, error) {
	switch cfg.Surface.Kind {
	case config.SurfaceRecorder:
		rec := recorder.New(cfg.Readings())
		return device{surface: rec, target: rec}, nil
	default:
		canvas, err := raster.New(cfg.RasterConfig())
		if err != nil {
			return device{}, err
		}
		return device{surface: canvas, target: canvas, snapshots: canvas}, nil
	}
}

type relayd struct {
	cfg    config.Config
	dev    device
	store  surface.BlobStore
	opts   []relay.Option
	admin  *admin.Server
	linkID atomic.Int64
}

func run(ctx context.Context, cfg config.Config) error {
	dev, err := openDevice(cfg)
	if err != nil {
		return fmt.Errorf("open surface: %w", err)
	}
	r := &relayd{cfg: cfg, dev: dev}

	if cfg.Store.Root != "" {
		store, err := blobstore.Open(cfg.BlobstoreConfig(), dev.target)
		if err != nil {
			return fmt.Errorf("open image store: %w", err)
		}
		defer store.Close()
		if err := blobstore.Check(cfg.Store.Root); err != nil {
			log.Warn().Err(err).Str("root", cfg.Store.Root).Msg("relayd image store unavailable")
		}
		r.store = store
	}

	if cfg.Capture.Path != "" {
		w, err := capture.Create(cfg.Capture.Path, "relayd")
		if err != nil {
			return err
		}
		defer func() {
			if err := w.Close(); err != nil {
				log.Warn().Err(err).Msg("relayd capture close failed")
			}
		}()
		log.Info().Str("path", cfg.Capture.Path).Str("id", w.ID().String()).Msg("relayd capture started")
		r.opts = append(r.opts, relay.WithTracer(w))
	}

	adminErr := make(chan error, 1)
	if cfg.Admin.Listen != "" {
		r.admin = admin.New("relayd", cfg.Admin.Listen, cfg.Admin.CorsOrigins)
		if dev.snapshots != nil {
			r.admin.SetSnapshotter(dev.snapshots)
		}
		if cfg.Admin.Token != "" {
			r.admin.SetAuth(auth.StaticToken{Token: cfg.Admin.Token})
		}
		go func() { adminErr <- r.admin.Serve(ctx) }()
	} else {
		close(adminErr)
	}

	switch cfg.Transport.Kind {
	case transport.KindTCP:
		err = r.serveTCP(ctx)
	case transport.KindStdio:
		err = r.session(ctx, "stdio", transport.Stdio())
	default:
		err = r.serveSerial(ctx)
	}
	if aerr := <-adminErr; aerr != nil {
		err = errors.Join(err, fmt.Errorf("admin server: %w", aerr))
	}
	return err
}

func (r *relayd) serveTCP(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.cfg.Transport.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", r.cfg.Transport.Address, err)
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("relayd listening")
	return transport.Serve(ctx, ln, func(ctx context.Context, conn net.Conn) {
		name := "tcp-" + strconv.FormatInt(r.linkID.Add(1), 10)
		if err := r.session(ctx, name, conn); err != nil {
			log.Warn().Err(err).Str("session", name).Msg("relayd session failed")
		}
	})
}

// serveSerial reopens the port whenever the link drops.
func (r *relayd) serveSerial(ctx context.Context) error {
	for {
		port, err := transport.Dial(ctx, r.cfg.Transport)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		log.Info().Str("port", r.cfg.Transport.Port).Int("baud", r.cfg.Transport.Baud).Msg("relayd serial open")
		err = r.session(ctx, "serial", port)
		_ = port.Close()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		log.Warn().Str("port", r.cfg.Transport.Port).Msg("relayd serial link lost, reopening")
	}
}

// session runs one relay session over rw until ctx is done or the link is exhausted.
func (r *relayd) session(ctx context.Context, name string, rw io.ReadWriter) error {
	poller := transport.NewPoller(rw, 0)
	defer poller.Close()
	sess, err := relay.NewSession(r.cfg.SessionConfig(name), poller, rw, relay.NewDispatcher(r.dev.surface, r.store), r.opts...)
	if err != nil {
		return err
	}
	if r.admin != nil {
		r.admin.Track(sess)
		defer r.admin.Untrack(sess)
	}
	sess.Boot()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go stopWhenDrained(runCtx, cancel, poller, r.cfg.Engine.PollInterval)
	if err := sess.Run(runCtx); err != nil {
		return err
	}
	if perr := poller.Err(); perr != nil && ctx.Err() == nil {
		log.Warn().Err(perr).Str("session", name).Msg("relayd link read failed")
	}
	st := sess.Stats()
	log.Info().Str("session", name).Uint64("frames", st.Frames).Uint64("responses", st.Responses).Msg("relayd session ended")
	return nil
}

// stopWhenDrained cancels the session once the link reader stopped and every byte it
// delivered was consumed.
func stopWhenDrained(ctx context.Context, cancel context.CancelFunc, p *transport.Poller, every time.Duration) {
	select {
	case <-ctx.Done():
		return
	case <-p.Done():
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for !p.Drained() {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
	cancel()
}
