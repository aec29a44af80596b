package hal

import "testing"

func TestRGB565RoundTrip(t *testing.T) {
	cases := []struct {
		r, g, b uint8
		want    uint16
	}{
		{0, 0, 0, 0x0000},
		{0xFF, 0xFF, 0xFF, 0xFFFF},
		{0xFF, 0, 0, 0xF800},
		{0, 0xFF, 0, 0x07E0},
		{0, 0, 0xFF, 0x001F},
	}
	for _, tc := range cases {
		got := RGB565(tc.r, tc.g, tc.b)
		if got != tc.want {
			t.Fatalf("RGB565(%#x,%#x,%#x)=%#04x, want %#04x", tc.r, tc.g, tc.b, got, tc.want)
		}
		r, g, b := RGB888(got)
		if r != tc.r || g != tc.g || b != tc.b {
			t.Fatalf("RGB888(%#04x)=(%#x,%#x,%#x), want (%#x,%#x,%#x)", got, r, g, b, tc.r, tc.g, tc.b)
		}
	}
}

func TestFillRGB565(t *testing.T) {
	buf := make([]byte, 7)
	fillRGB565(buf, 0xF800)
	want := []byte{0x00, 0xF8, 0x00, 0xF8, 0x00, 0xF8, 0x00}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("buf=%x, want %x", buf, want)
		}
	}
}
