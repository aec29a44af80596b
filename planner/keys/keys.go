// Package keys turns raw keyboard input into the planner's logical keys.
package keys

import (
	"strings"
	"unicode/utf8"

	"dayplan/hal"
)

type Kind uint8

const (
	None Kind = iota
	Rune
	Up
	Down
	Left
	Right
	Enter
	Back
	Backspace
	Home
)

func (k Kind) String() string {
	switch k {
	case Rune:
		return "rune"
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	case Enter:
		return "enter"
	case Back:
		return "back"
	case Backspace:
		return "backspace"
	case Home:
		return "home"
	default:
		return "none"
	}
}

type Key struct {
	Kind Kind
	Rune rune
}

func Of(k Kind) Key   { return Key{Kind: k} }
func Char(r rune) Key { return Key{Kind: Rune, Rune: r} }

// Is reports whether k is the rune r; lower-case letters also match their upper case.
func (k Key) Is(r rune) bool {
	if k.Kind != Rune {
		return false
	}
	return k.Rune == r || (r >= 'a' && r <= 'z' && k.Rune == r-'a'+'A')
}

// FromEvent maps a HAL event. Releases and unmapped codes report ok=false.
func FromEvent(ev hal.KeyEvent) (Key, bool) {
	if !ev.Press {
		return Key{}, false
	}
	switch ev.Code {
	case hal.KeyUp:
		return Of(Up), true
	case hal.KeyDown:
		return Of(Down), true
	case hal.KeyLeft:
		return Of(Left), true
	case hal.KeyRight:
		return Of(Right), true
	case hal.KeyEnter:
		return Of(Enter), true
	case hal.KeyEscape:
		return Of(Back), true
	case hal.KeyBackspace, hal.KeyDelete:
		return Of(Backspace), true
	case hal.KeyHome:
		return Of(Home), true
	case hal.KeyUnknown:
		switch ev.Rune {
		case 0:
			return Key{}, false
		case '\r', '\n':
			return Of(Enter), true
		case 0x08, 0x7f:
			return Of(Backspace), true
		case 0x1b:
			return Of(Back), true
		}
		if ev.Rune < 0x20 {
			return Key{}, false
		}
		return Char(ev.Rune), true
	default:
		return Key{}, false
	}
}

// Next decodes one key from a VT100 byte stream. ok=false with consumed=0
// means more bytes are needed; ok=true with Kind None means bytes were skipped.
func Next(b []byte) (consumed int, k Key, ok bool) {
	if len(b) == 0 {
		return 0, Key{}, false
	}
	if b[0] == 0x1b {
		return parseEscape(b)
	}
	switch b[0] {
	case '\r', '\n':
		return 1, Of(Enter), true
	case 0x7f, 0x08:
		return 1, Of(Backspace), true
	}
	if b[0] < 0x20 {
		return 1, Key{}, true
	}
	if !utf8.FullRune(b) {
		return 0, Key{}, false
	}
	r, sz := utf8.DecodeRune(b)
	if r == utf8.RuneError && sz == 1 {
		return 1, Key{}, true
	}
	return sz, Char(r), true
}

func parseEscape(b []byte) (int, Key, bool) {
	if len(b) < 2 || b[1] != '[' {
		return 1, Of(Back), true
	}
	if len(b) < 3 {
		return 0, Key{}, false
	}
	switch b[2] {
	case 'A':
		return 3, Of(Up), true
	case 'B':
		return 3, Of(Down), true
	case 'C':
		return 3, Of(Right), true
	case 'D':
		return 3, Of(Left), true
	case 'H':
		return 3, Of(Home), true
	case '1', '3':
		if len(b) < 4 {
			return 0, Key{}, false
		}
		if b[3] != '~' {
			return 1, Of(Back), true
		}
		if b[2] == '1' {
			return 4, Of(Home), true
		}
		return 4, Of(Backspace), true
	default:
		return 1, Of(Back), true
	}
}

// Decode returns every complete key in b and the number of bytes used.
func Decode(b []byte) ([]Key, int) {
	var out []Key
	used := 0
	for used < len(b) {
		n, k, ok := Next(b[used:])
		if !ok {
			break
		}
		used += n
		if k.Kind != None {
			out = append(out, k)
		}
	}
	return out, used
}

var scriptNames = map[string]Kind{
	"up":    Up,
	"down":  Down,
	"left":  Left,
	"right": Right,
	"enter": Enter,
	"esc":   Back,
	"back":  Back,
	"bs":    Backspace,
	"home":  Home,
}

// ParseScript decodes a key script: raw VT100 text where <up>, <down>,
// <left>, <right>, <enter>, <esc>, <bs> and <home> name special keys.
// A literal '<' is written as "<<".
func ParseScript(s string) []Key {
	var out []Key
	for len(s) > 0 {
		i := strings.IndexByte(s, '<')
		if i < 0 {
			ks, _ := Decode([]byte(s))
			return append(out, ks...)
		}
		ks, _ := Decode([]byte(s[:i]))
		out = append(out, ks...)
		s = s[i:]
		if strings.HasPrefix(s, "<<") {
			out = append(out, Char('<'))
			s = s[2:]
			continue
		}
		end := strings.IndexByte(s, '>')
		if end > 0 {
			if k, ok := scriptNames[strings.ToLower(s[1:end])]; ok {
				out = append(out, Of(k))
				s = s[end+1:]
				continue
			}
		}
		out = append(out, Char('<'))
		s = s[1:]
	}
	return out
}
