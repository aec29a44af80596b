//go:build tinygo && baremetal

package hal

import (
	"machine"
	"time"
)

type tinyGoDisplay struct {
	fb Framebuffer
}

func (d tinyGoDisplay) Framebuffer() Framebuffer { return d.fb }

type tinyGoInput struct {
	kbd Keyboard
}

func (in tinyGoInput) Keyboard() Keyboard { return in.kbd }

const tinyGoTickPeriod = 10 * time.Millisecond

// newTinyGoTime publishes milliseconds since boot from a background ticker.
func newTinyGoTime() *tickStream {
	t := newTickStream()
	start := time.Now()
	go func() {
		ticker := time.NewTicker(tinyGoTickPeriod)
		defer ticker.Stop()
		for now := range ticker.C {
			t.publish(uint64(now.Sub(start) / time.Millisecond))
		}
	}()
	return t
}

// noRTC reports that the wall clock is unknown; the planner falls back to its configured date.
type noRTC struct{}

func (noRTC) Now() (time.Time, bool) { return time.Time{}, false }

type uartLogger struct {
	uart *machine.UART
}

func newUARTLogger() *uartLogger {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})
	return &uartLogger{uart: uart}
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	l.uart.Write(b)
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}
