package hal

// tickStream publishes a millisecond counter. The channel holds only the
// latest value: a reader that falls behind sees time jump, never lag.
type tickStream struct {
	ch   chan uint64
	last uint64
}

func newTickStream() *tickStream { return &tickStream{ch: make(chan uint64, 1)} }

func (t *tickStream) Ticks() <-chan uint64 { return t.ch }

// publish offers ms to the reader. Values that do not advance are dropped.
func (t *tickStream) publish(ms uint64) {
	if ms <= t.last {
		return
	}
	t.last = ms
	select {
	case <-t.ch:
	default:
	}
	select {
	case t.ch <- ms:
	default:
	}
}
