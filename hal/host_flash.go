//go:build !tinygo

package hal

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

const (
	hostFlashDefaultPath = "planner.flash"

	// DefaultFlashSizeBytes and DefaultFlashEraseBytes match the PicoCalc chip.
	DefaultFlashSizeBytes  = 1024 * 1024
	DefaultFlashEraseBytes = 4096
)

// FlashFile emulates a NOR flash chip in a regular file.
type FlashFile struct {
	mu        sync.Mutex
	f         *os.File
	size      uint32
	eraseSize uint32
	scratch   []byte
}

var _ Flash = (*FlashFile)(nil)

func checkEraseSize(eraseSize uint32) error {
	if eraseSize == 0 || eraseSize%256 != 0 {
		return fmt.Errorf("flash: invalid erase size %d", eraseSize)
	}
	return nil
}

// CreateFlashFile truncates path to a fresh, fully erased image.
func CreateFlashFile(path string, size, eraseSize uint32) (*FlashFile, error) {
	if err := checkEraseSize(eraseSize); err != nil {
		return nil, err
	}
	if size == 0 || size%eraseSize != 0 {
		return nil, fmt.Errorf("flash: size %d not multiple of erase size %d", size, eraseSize)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open flash file %q: %w", path, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("truncate flash file %q to %d: %w", path, size, err)
	}
	ff := newFlashFile(f, size, eraseSize)
	if err := ff.Erase(0, size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("erase flash file %q: %w", path, err)
	}
	return ff, nil
}

// OpenFlashFile opens an existing image. Its size is taken from the file,
// rounded down to whole erase blocks.
func OpenFlashFile(path string, eraseSize uint32) (*FlashFile, error) {
	if err := checkEraseSize(eraseSize); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open flash file %q: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat flash file %q: %w", path, err)
	}
	size := st.Size() - st.Size()%int64(eraseSize)
	if size <= 0 || size > int64(^uint32(0)) {
		_ = f.Close()
		return nil, fmt.Errorf("flash file %q: unusable size %d", path, st.Size())
	}
	return newFlashFile(f, uint32(size), eraseSize), nil
}

// openHostFlash opens path, creating an erased image when it is missing or empty.
func openHostFlash(path string, size, eraseSize uint32) (*FlashFile, error) {
	if size == 0 {
		size = DefaultFlashSizeBytes
	}
	if eraseSize == 0 {
		eraseSize = DefaultFlashEraseBytes
	}
	st, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) || (err == nil && st.Size() == 0):
		size -= size % eraseSize
		if size == 0 {
			return nil, fmt.Errorf("flash %q: size smaller than one erase block", path)
		}
		return CreateFlashFile(path, size, eraseSize)
	case err != nil:
		return nil, fmt.Errorf("stat flash file %q: %w", path, err)
	}
	return OpenFlashFile(path, eraseSize)
}

func newFlashFile(f *os.File, size, eraseSize uint32) *FlashFile {
	ff := &FlashFile{f: f, size: size, eraseSize: eraseSize, scratch: make([]byte, eraseSize)}
	for i := range ff.scratch {
		ff.scratch[i] = 0xFF
	}
	return ff
}

func (f *FlashFile) SizeBytes() uint32       { return f.size }
func (f *FlashFile) EraseBlockBytes() uint32 { return f.eraseSize }

func (f *FlashFile) ReadAt(p []byte, off uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= f.size {
		return 0, fmt.Errorf("flash read at %d: %w", off, os.ErrInvalid)
	}
	if maxN := int(f.size - off); len(p) > maxN {
		p = p[:maxN]
	}
	return f.f.ReadAt(p, int64(off))
}

func (f *FlashFile) WriteAt(p []byte, off uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= f.size {
		return 0, fmt.Errorf("flash write at %d: %w", off, os.ErrInvalid)
	}
	if maxN := int(f.size - off); len(p) > maxN {
		p = p[:maxN]
	}
	prev := make([]byte, len(p))
	if _, err := f.f.ReadAt(prev, int64(off)); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("flash read before write at %d: %w", off, err)
	}
	for i := range p {
		if prev[i]&p[i] != p[i] {
			return 0, ErrFlashWriteRequiresErase
		}
	}
	return f.f.WriteAt(p, int64(off))
}

func (f *FlashFile) Erase(off, size uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if size == 0 {
		return nil
	}
	if off%f.eraseSize != 0 || size%f.eraseSize != 0 || off >= f.size || off+size > f.size {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, os.ErrInvalid)
	}
	for ; size > 0; off, size = off+f.eraseSize, size-f.eraseSize {
		if _, err := f.f.WriteAt(f.scratch, int64(off)); err != nil {
			return fmt.Errorf("flash erase block at %d: %w", off, err)
		}
	}
	return nil
}

// Close releases the backing file.
func (f *FlashFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.Close()
}
