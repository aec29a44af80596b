//go:build tinygo && baremetal && picocalc

package hal

import (
	"errors"
	"machine"
	"time"
)

// ILI9488 commands used by the PicoCalc panel.
const (
	ili9488SLPOUT  = 0x11
	ili9488INVON   = 0x21
	ili9488DISPON  = 0x29
	ili9488CASET   = 0x2A
	ili9488RASET   = 0x2B
	ili9488RAMWR   = 0x2C
	ili9488MADCTL  = 0x36
	ili9488COLMOD  = 0x3A
	ili9488FRMCTR1 = 0xB1
	ili9488DISCTRL = 0xB6
	ili9488PWCTRL1 = 0xC0
	ili9488PWCTRL2 = 0xC1
	ili9488VMCTRL  = 0xC5

	madctlMX  = 0x40
	madctlBGR = 0x08
	madctlMH  = 0x04
)

type lcdInitStep struct {
	cmd   byte
	data  []byte
	delay time.Duration
}

var ili9488InitSequence = []lcdInitStep{
	{cmd: ili9488PWCTRL1, data: []byte{0x17, 0x15}},
	{cmd: ili9488PWCTRL2, data: []byte{0x41}},
	{cmd: ili9488VMCTRL, data: []byte{0x00, 0x12, 0x80, 0x40}},
	{cmd: ili9488COLMOD, data: []byte{0x55}}, // 16bpp
	{cmd: ili9488FRMCTR1, data: []byte{0xA0, 0x11}},
	{cmd: ili9488DISCTRL, data: []byte{0x02, 0x22, 0x27}}, // 320 lines
	{cmd: ili9488INVON},                                   // panel is wired inverted
	{cmd: ili9488MADCTL, data: []byte{madctlMX | madctlMH | madctlBGR}},
	{cmd: ili9488SLPOUT, delay: 120 * time.Millisecond},
	{cmd: ili9488DISPON},
}

type ili9488 struct {
	spi machine.SPI
	cs  machine.Pin
	dc  machine.Pin
	rst machine.Pin

	txBuf []byte
}

func initILI9488() (*ili9488, error) {
	if machine.SPI1 == nil {
		return nil, errors.New("lcd: SPI1 unavailable")
	}
	machine.SPI1.Configure(machine.SPIConfig{
		SCK:       machine.GP10,
		SDO:       machine.GP11,
		SDI:       machine.GP12,
		Frequency: 40_000_000,
	})

	lcd := &ili9488{
		spi:   *machine.SPI1,
		cs:    machine.GP13,
		dc:    machine.GP14,
		rst:   machine.GP15,
		txBuf: make([]byte, 4096),
	}
	for _, p := range []machine.Pin{lcd.cs, lcd.dc, lcd.rst} {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.High()
	}

	lcd.rst.Low()
	time.Sleep(64 * time.Millisecond)
	lcd.rst.High()
	time.Sleep(140 * time.Millisecond)

	for _, step := range ili9488InitSequence {
		lcd.cmd(step.cmd, step.data...)
		if step.delay > 0 {
			time.Sleep(step.delay)
		}
	}
	return lcd, nil
}

func (d *ili9488) cmd(cmd byte, data ...byte) {
	d.cs.Low()
	d.dc.Low()
	d.spi.Tx([]byte{cmd}, nil)
	d.dc.High()
	if len(data) > 0 {
		d.spi.Tx(data, nil)
	}
	d.cs.High()
}

func (d *ili9488) setWindow(x0, y0, x1, y1 uint16) {
	d.cmd(ili9488CASET, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1))
	d.cmd(ili9488RASET, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1))
	d.cmd(ili9488RAMWR)
}

// blitRows pushes rows [y0, y1) of a little-endian RGB565 buffer. The panel
// takes big-endian pixels, so bytes are swapped through txBuf.
func (d *ili9488) blitRows(buf []byte, w, stride, y0, y1 int) error {
	if w <= 0 || y0 < 0 || y1 <= y0 || stride < w*2 || len(buf) < y1*stride {
		return errors.New("lcd: invalid blit")
	}
	chunk := d.txBuf[:len(d.txBuf)&^1]
	if len(chunk) < 2 {
		return errors.New("lcd: tx buffer too small")
	}

	d.setWindow(0, uint16(y0), uint16(w-1), uint16(y1-1))
	d.cs.Low()
	d.dc.High()
	n := 0
	for y := y0; y < y1; y++ {
		row := buf[y*stride : y*stride+w*2]
		for i := 0; i < len(row); i += 2 {
			chunk[n] = row[i+1]
			chunk[n+1] = row[i]
			n += 2
			if n == len(chunk) {
				d.spi.Tx(chunk, nil)
				n = 0
			}
		}
	}
	if n > 0 {
		d.spi.Tx(chunk[:n], nil)
	}
	d.cs.High()
	return nil
}
