package titlematch

import (
	"strings"
	"unicode"
)

// Normalize converts a title to its canonical comparison form: lowercase,
// punctuation replaced by spaces, standalone articles removed, whitespace
// collapsed. Total and idempotent; empty input yields "".
func Normalize(title string) string {
	s := strings.ToLower(title)

	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		// everything else acts as a word separator
		if !prevSpace {
			b.WriteRune(' ')
			prevSpace = true
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		switch w {
		case "the", "a", "an":
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
