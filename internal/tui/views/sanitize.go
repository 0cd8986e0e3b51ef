package views

import "strings"

// sanitize drops codepoints tcell renders badly: skin tone modifiers, the
// zero width joiner and variation selectors. Newlines become spaces.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 0x1F3FB && r <= 0x1F3FF,
			r == 0x200D,
			r >= 0xFE00 && r <= 0xFE0F,
			r >= 0xE0100 && r <= 0xE01EF:
			return -1
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		}
		return r
	}, s)
}
