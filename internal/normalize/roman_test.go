package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRomanNumerals(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"henry viii, part ii.", "henry VIII, part II."},
		{"Rocky Iv", "Rocky IV"},
		{"ivy league", "ivy league"},
		{"chapter xiii", "chapter xiii"},
		{"i,  robot", "I, robot"},
		{"", ""},
	}
	for _, tt := range tests {
		got := NormalizeRomanNumerals(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, got, NormalizeRomanNumerals(got), "idempotent for %q", tt.in)
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"the lord of the rings", "The Lord of the Rings"},
		{"der herr der ringe", "Der Herr der Ringe"},
		{"dune: the machine crusade", "Dune: The Machine Crusade"},
		{"rocky iii: the return", "Rocky III: The Return"},
		{"a tale Of two cities", "A Tale Of Two Cities"},
		{"war and peace", "War and Peace"},
		{"über den wolken", "Über den Wolken"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TitleCase(tt.in), tt.in)
	}
}
