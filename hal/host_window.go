//go:build !tinygo && cgo

package hal

import (
	"errors"

	"dayplan/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
)

// RunWindow starts a desktop window that displays the framebuffer and forwards keyboard input.
// It blocks until the window closes or the step function quits.
func RunWindow(opts HostOptions, newApp func(HAL) (func() error, error)) error {
	h := newHostHAL(opts)
	defer h.close()

	step, err := newApp(h)
	if err != nil {
		return err
	}

	g := &hostGame{h: h, step: step}
	ebiten.SetWindowTitle("Day Planner (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*2, h.fb.height*2)
	ebiten.SetTPS(60)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

type hostGame struct {
	h       *hostHAL
	rgba    []byte
	scratch []byte
	fbImg   *ebiten.Image
	step    func() error
}

func (g *hostGame) Update() error {
	g.h.kbd.poll()
	g.h.t.advance()
	if g.step == nil {
		return nil
	}
	if err := g.step(); err != nil {
		if errors.Is(err, ErrQuit) {
			return ebiten.Termination
		}
		return err
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.fbImg == nil {
		g.rgba = make([]byte, fb.width*fb.height*4)
		g.scratch = make([]byte, len(fb.buf))
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	fb.snapshotRGB565(g.scratch)
	for i, j := 0, 0; i+1 < len(g.scratch) && j+3 < len(g.rgba); i, j = i+2, j+4 {
		r, gg, b := RGB888(uint16(g.scratch[i]) | uint16(g.scratch[i+1])<<8)
		g.rgba[j+0] = r
		g.rgba[j+1] = gg
		g.rgba[j+2] = b
		g.rgba[j+3] = 0xFF
	}

	g.fbImg.WritePixels(g.rgba)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
