//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const (
	hostScreenWidth  = 320
	hostScreenHeight = 320
)

// HostOptions configures the desktop HAL.
type HostOptions struct {
	// FlashPath is the backing file of the emulated flash chip. Empty disables flash.
	FlashPath string
	// FlashSize is the emulated flash size in bytes (rounded down to erase blocks).
	FlashSize uint32
	// FlashEraseSize is the erase block size. Zero uses DefaultFlashEraseBytes.
	FlashEraseSize uint32
	// LogOutput receives log lines. Defaults to stdout.
	LogOutput io.Writer
}

type hostHAL struct {
	logger *hostLogger
	fb     *hostFramebuffer
	kbd    *hostKeyboard
	t      *hostTime
	flash  Flash
	clock  hostClock
}

// New returns a host HAL implementation with default options.
func New() HAL {
	return NewHost(HostOptions{FlashPath: hostFlashDefaultPath})
}

// NewHost returns a host HAL implementation.
func NewHost(opts HostOptions) HAL {
	return newHostHAL(opts)
}

func newHostHAL(opts HostOptions) *hostHAL {
	out := opts.LogOutput
	if out == nil {
		out = os.Stdout
	}
	logger := &hostLogger{w: out}

	var flash Flash = stubFlash{}
	if opts.FlashPath != "" {
		hf, err := openHostFlash(opts.FlashPath, opts.FlashSize, opts.FlashEraseSize)
		if err != nil {
			logger.WriteLineString(fmt.Sprintf("hal: flash unavailable: %v", err))
		} else {
			flash = hf
		}
	}

	return &hostHAL{
		logger: logger,
		fb:     newHostFramebuffer(hostScreenWidth, hostScreenHeight),
		kbd:    newHostKeyboard(),
		t:      newHostTime(),
		flash:  flash,
	}
}

// close releases the emulated flash file, if any.
func (h *hostHAL) close() {
	if c, ok := h.flash.(io.Closer); ok {
		if err := c.Close(); err != nil {
			h.logger.WriteLineString(fmt.Sprintf("hal: flash close: %v", err))
		}
	}
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Input() Input     { return hostInput{kbd: h.kbd} }
func (h *hostHAL) Flash() Flash     { return h.flash }
func (h *hostHAL) Time() Time       { return h.t }
func (h *hostHAL) Clock() Clock     { return h.clock }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostInput struct {
	kbd *hostKeyboard
}

func (in hostInput) Keyboard() Keyboard { return in.kbd }

type hostClock struct{}

func (hostClock) Now() (time.Time, bool) { return time.Now(), true }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}
