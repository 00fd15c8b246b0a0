package blobstore

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/inkrelay/internal/surface"
	"github.com/danmuck/inkrelay/internal/surface/recorder"
	"github.com/danmuck/inkrelay/internal/testutil/testlog"
	"golang.org/x/image/bmp"
)

func writeImage(t *testing.T, path string, encode func(*os.File, image.Image) error) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	img.SetGray(0, 0, color.Gray{Y: 0})
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func openStore(t *testing.T, root string) (*Store, *recorder.Surface) {
	t.Helper()
	rec := recorder.New(surface.Readings{})
	s, err := Open(Config{Root: root}, rec)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(s.Close)
	return s, rec
}

func TestDrawImageDecodesFormats(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "a.bmp"), func(f *os.File, img image.Image) error { return bmp.Encode(f, img) })
	writeImage(t, filepath.Join(root, "b.png"), func(f *os.File, img image.Image) error { return png.Encode(f, img) })

	s, rec := openStore(t, root)
	if !s.Init() {
		t.Fatalf("expected init to succeed")
	}
	if r := s.DrawImage("/a.bmp", 10, 20); r != Drawn {
		t.Fatalf("bmp draw result %d", r)
	}
	if r := s.DrawImage("b.png", 0, 0); r != Drawn {
		t.Fatalf("png draw result %d", r)
	}
	if got := rec.Summary(); got != "Blit(10,20,3,2)\nBlit(0,0,3,2)\n" {
		t.Fatalf("unexpected blits:\n%s", got)
	}
	if s.Cached() != 2 {
		t.Fatalf("expected both images cached, got %d", s.Cached())
	}
}

func TestDrawImageFailures(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "junk.bmp"), []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	s, rec := openStore(t, root)
	for _, name := range []string{"missing.bmp", "junk.bmp", "../escape.png", "/", ""} {
		if r := s.DrawImage(name, 0, 0); r != Failed {
			t.Fatalf("%q: expected Failed, got %d", name, r)
		}
	}
	if len(rec.Calls()) != 0 {
		t.Fatalf("failed draws must not blit:\n%s", rec.Summary())
	}
	if _, err := s.Load("../escape.png"); !errors.Is(err, ErrUnsafeName) {
		t.Fatalf("expected ErrUnsafeName, got %v", err)
	}
}

func TestInitMissingRoot(t *testing.T) {
	testlog.Start(t)
	s, _ := openStore(t, filepath.Join(t.TempDir(), "nope"))
	if s.Init() {
		t.Fatalf("expected init to fail for missing root")
	}
	if err := Check(filepath.Join(t.TempDir(), "nope")); !errors.Is(err, ErrRootMissing) {
		t.Fatalf("expected ErrRootMissing, got %v", err)
	}
}

func TestOpenValidation(t *testing.T) {
	testlog.Start(t)
	if _, err := Open(Config{}, recorder.New(surface.Readings{})); !errors.Is(err, ErrNoRoot) {
		t.Fatalf("expected ErrNoRoot, got %v", err)
	}
	if _, err := Open(Config{Root: "x"}, nil); !errors.Is(err, ErrNoTarget) {
		t.Fatalf("expected ErrNoTarget, got %v", err)
	}
}

func TestForgetDropsCachedImage(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "c.png"), func(f *os.File, img image.Image) error { return png.Encode(f, img) })
	s, _ := openStore(t, root)
	if _, err := s.Load("c.png"); err != nil {
		t.Fatalf("load: %v", err)
	}
	s.Forget("c.png")
	if s.Cached() != 0 {
		t.Fatalf("expected empty cache")
	}
}
