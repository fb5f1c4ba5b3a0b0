package titlematch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercase", "Attack On Titan", "attack on titan"},
		{"punctuation", "attack on titan!", "attack on titan"},
		{"article the", "The Promised Neverland", "promised neverland"},
		{"article a", "A Silent Voice", "silent voice"},
		{"article an", "An Angel Flew Down", "angel flew down"},
		{"article mid-word kept", "Another Theory", "another theory"},
		{"collapse spaces", "  Steins;Gate   0 ", "steins gate 0"},
		{"symbols only", "!!!", ""},
		{"mixed", "Re:ZERO -Starting Life in Another World-", "re zero starting life in another world"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"The Quick Brown Fox!",
		"a an the",
		"Fullmetal Alchemist: Brotherhood",
		"  JoJo's   Bizarre Adventure  ",
		"86 -EIGHTY SIX-",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "normalize must be idempotent for %q", in)
	}
}
