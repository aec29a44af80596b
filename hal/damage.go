package hal

import "hash/crc32"

// rowBand is a run of framebuffer rows [y0, y1).
type rowBand struct{ y0, y1 int }

// rowDamage keeps one checksum per framebuffer row so Present can push only
// the rows that changed since the previous frame.
type rowDamage struct {
	sums  []uint32
	valid bool
}

// bands returns the changed row runs and records the new checksums.
func (d *rowDamage) bands(buf []byte, stride, h int) []rowBand {
	if stride <= 0 {
		return nil
	}
	if max := len(buf) / stride; h > max {
		h = max
	}
	if len(d.sums) != h {
		d.sums = make([]uint32, h)
		d.valid = false
	}

	var out []rowBand
	start := -1
	for y := 0; y < h; y++ {
		sum := crc32.ChecksumIEEE(buf[y*stride : (y+1)*stride])
		changed := !d.valid || sum != d.sums[y]
		d.sums[y] = sum
		switch {
		case changed && start < 0:
			start = y
		case !changed && start >= 0:
			out = append(out, rowBand{start, y})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, rowBand{start, h})
	}
	d.valid = true
	return out
}

// invalidate makes the next call report the whole buffer.
func (d *rowDamage) invalidate() { d.valid = false }
