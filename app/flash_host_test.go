//go:build !tinygo

package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dayplan/hal"
	"dayplan/internal/config"
	"dayplan/planner/kv/flashkv"
)

func TestFlashGeometryMismatchFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.flash")
	big, err := hal.CreateFlashFile(path, 3*65536, 65536)
	if err != nil {
		t.Fatalf("CreateFlashFile: %v", err)
	}
	fs, err := flashkv.Open(big, flashkv.Options{})
	if err != nil {
		t.Fatalf("flashkv.Open: %v", err)
	}
	if err := fs.Put(context.Background(), "counter", []byte("5")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_ = big.Close()

	small, err := hal.OpenFlashFile(path, hal.DefaultFlashEraseBytes)
	if err != nil {
		t.Fatalf("OpenFlashFile: %v", err)
	}
	defer small.Close()

	h := newFakeHAL(wed)
	h.flash = small
	if _, err := New(h, Options{Config: config.Default()}); !errors.Is(err, flashkv.ErrGeometry) {
		t.Fatalf("New err=%v, want ErrGeometry", err)
	}
}

func TestFlashBackendPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.flash")
	ff, err := hal.CreateFlashFile(path, 64*1024, hal.DefaultFlashEraseBytes)
	if err != nil {
		t.Fatalf("CreateFlashFile: %v", err)
	}
	defer ff.Close()

	h := newFakeHAL(wed)
	h.flash = ff
	a := newTestApp(t, h, Options{Config: config.Default()})
	if _, ok := a.kv.(*flashkv.Store); !ok {
		t.Fatalf("kv=%T, want *flashkv.Store", a.kv)
	}
}
