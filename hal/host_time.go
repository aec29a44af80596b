//go:build !tinygo

package hal

import "time"

// hostTime reports wall-clock milliseconds since the HAL was created.
// It advances only when the run loop calls advance.
type hostTime struct {
	*tickStream
	start time.Time
	now   func() time.Time
}

func newHostTime() *hostTime { return newHostTimeFunc(time.Now) }

func newHostTimeFunc(now func() time.Time) *hostTime {
	return &hostTime{tickStream: newTickStream(), start: now(), now: now}
}

func (t *hostTime) advance() {
	t.publish(uint64(t.now().Sub(t.start) / time.Millisecond))
}
