package hal

import "testing"

func TestDecodePicoCalcKey(t *testing.T) {
	cases := []struct {
		name        string
		state, code byte
		want        KeyEvent
		ok          bool
	}{
		{"letter", picoCalcStatePressed, 'a', KeyEvent{Press: true, Rune: 'a'}, true},
		{"shifted", picoCalcStatePressed, 'Y', KeyEvent{Press: true, Rune: 'Y'}, true},
		{"enter", picoCalcStatePressed, '\r', KeyEvent{Code: KeyEnter, Press: true}, true},
		{"escape", picoCalcStatePressed, 0xB1, KeyEvent{Code: KeyEscape, Press: true}, true},
		{"arrow release", picoCalcStateReleased, 0xB6, KeyEvent{Code: KeyDown}, true},
		{"letter release", picoCalcStateReleased, 'a', KeyEvent{}, false},
		{"held", picoCalcStateHeld, 'a', KeyEvent{}, false},
		{"ctrl", picoCalcStatePressed, picoCalcKeyCtrl, KeyEvent{}, false},
		{"idle", 0, 0, KeyEvent{}, false},
	}
	for _, tc := range cases {
		got, ok := decodePicoCalcKey(tc.state, tc.code)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%s: decode(%#x,%#x)=(%+v,%v), want (%+v,%v)", tc.name, tc.state, tc.code, got, ok, tc.want, tc.ok)
		}
	}
}
