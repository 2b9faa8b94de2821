package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain words", "Birthday Party Set", "birthday-party-set"},
		{"diacritics", "Doğum Günü Şöleni", "dogum-gunu-soleni"},
		{"dotless i", "Kırmızı Balon", "kirmizi-balon"},
		{"punctuation runs", "  Pink & Gold -- Deluxe!! ", "pink-gold-deluxe"},
		{"digits kept", "Set #3 (2024)", "set-3-2024"},
		{"nothing usable", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Make(tt.input))
		})
	}
}
