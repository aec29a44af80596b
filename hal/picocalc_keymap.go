package hal

// PicoCalc keyboard controller protocol: each FIFO read yields a state byte
// and a key byte.
const (
	picoCalcStatePressed  byte = 0x01
	picoCalcStateHeld     byte = 0x02
	picoCalcStateReleased byte = 0x03

	picoCalcKeyAlt  byte = 0xA1
	picoCalcKeyCtrl byte = 0xA5
)

var picoCalcKeymap = map[byte]KeyCode{
	0x08: KeyBackspace,
	0xB1: KeyEscape,
	0xD4: KeyDelete,
	0xD2: KeyHome,
	0xD5: KeyEnd,
	0xB4: KeyLeft,
	0xB7: KeyRight,
	0xB5: KeyUp,
	0xB6: KeyDown,
	0x81: KeyF1,
	0x82: KeyF2,
	0x83: KeyF3,
	0xD1: KeyTab, // Ins
	'\r': KeyEnter,
	'\n': KeyEnter,
}

// decodePicoCalcKey turns one controller report into a key event. Held
// reports and bare modifiers produce nothing.
func decodePicoCalcKey(state, code byte) (KeyEvent, bool) {
	if code == 0 || code == picoCalcKeyAlt || code == picoCalcKeyCtrl {
		return KeyEvent{}, false
	}
	var press bool
	switch state {
	case picoCalcStatePressed:
		press = true
	case picoCalcStateReleased:
	default:
		return KeyEvent{}, false
	}

	if kc, ok := picoCalcKeymap[code]; ok {
		return KeyEvent{Code: kc, Press: press}, true
	}
	if !press {
		// Text keys act on press only.
		return KeyEvent{}, false
	}
	return KeyEvent{Press: true, Rune: rune(code)}, true
}
