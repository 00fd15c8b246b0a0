// Package blobstore serves named images from a directory and draws them onto a
// surface. It stands in for the SD card of the panel firmware.
package blobstore

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/danmuck/inkrelay/internal/observability"
	"github.com/danmuck/inkrelay/internal/surface"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
)

const (
	// Drawn and Failed are the DrawImage results reported to the host.
	Drawn  = 1
	Failed = 0

	DefaultCacheTTL = 5 * time.Minute
)

var (
	ErrNoRoot      = errors.New("blobstore: root directory not configured")
	ErrNoTarget    = errors.New("blobstore: nil blit target")
	ErrUnsafeName  = errors.New("blobstore: name escapes root")
	ErrRootMissing = errors.New("blobstore: root is not a directory")
)

type Config struct {
	Root     string
	CacheTTL time.Duration
}

// Store is a directory-backed surface.BlobStore. Decoded images are kept in a TTL
// cache keyed by file name.
type Store struct {
	root   string
	target surface.Blitter
	cache  *ttlcache.Cache[string, image.Image]
}

var _ surface.BlobStore = (*Store)(nil)

func Open(cfg Config, target surface.Blitter) (*Store, error) {
	if cfg.Root == "" {
		return nil, ErrNoRoot
	}
	if target == nil {
		return nil, ErrNoTarget
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := ttlcache.New[string, image.Image](
		ttlcache.WithTTL[string, image.Image](ttl),
		ttlcache.WithDisableTouchOnHit[string, image.Image](),
	)
	go c.Start()
	return &Store{root: cfg.Root, target: target, cache: c}, nil
}

// Close stops the cache expiration loop.
func (s *Store) Close() {
	s.cache.Stop()
}

// Init reports whether the root directory is reachable.
func (s *Store) Init() bool {
	info, err := os.Stat(s.root)
	if err != nil || !info.IsDir() {
		log.Warn().Str("root", s.root).AnErr("err", err).Msg("blobstore.Init root unavailable")
		return false
	}
	return true
}

// DrawImage loads name and blits it at x, y. It returns Drawn or Failed.
func (s *Store) DrawImage(name string, x, y int) int {
	img, err := s.Load(name)
	if err != nil {
		log.Warn().Err(err).Str("file", name).Msg("blobstore.DrawImage failed")
		observability.RecordImageDraw(Failed)
		return Failed
	}
	s.target.Blit(img, x, y)
	log.Debug().Str("file", name).Int("x", x).Int("y", y).Msg("blobstore.DrawImage")
	observability.RecordImageDraw(Drawn)
	return Drawn
}

// Load returns the decoded image for name, from cache when possible.
func (s *Store) Load(name string) (image.Image, error) {
	if item := s.cache.Get(name); item != nil {
		return item.Value(), nil
	}
	path, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open %q: %w", name, err)
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("blobstore: decode %q: %w", name, err)
	}
	log.Debug().Str("file", name).Str("format", format).Msg("blobstore.Load decoded")
	s.cache.Set(name, img, ttlcache.DefaultTTL)
	return img, nil
}

// Forget drops a cached image, e.g. after the file was replaced.
func (s *Store) Forget(name string) {
	s.cache.Delete(name)
}

// Cached is the number of decoded images held in memory.
func (s *Store) Cached() int {
	return s.cache.Len()
}

func (s *Store) resolve(name string) (string, error) {
	// Names arrive as firmware-style absolute paths ("/img.bmp").
	rel := filepath.FromSlash(name)
	for len(rel) > 0 && os.IsPathSeparator(rel[0]) {
		rel = rel[1:]
	}
	if rel == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeName, name)
	}
	return filepath.Join(s.root, rel), nil
}

// Check verifies root is a directory. relayd calls it at startup to warn early; a
// missing root is not fatal since image opcodes then answer -1.
func Check(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRootMissing, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrRootMissing, root)
	}
	return nil
}
