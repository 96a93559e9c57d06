package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"abc", "abd", 1},
		{"203.0.113.10", "203.0.113.11", 1},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, LevenshteinDistance(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestParseUserAgent(t *testing.T) {
	t.Run("parses a desktop browser", func(t *testing.T) {
		info := ParseUserAgent(
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"en-US",
		)
		assert.NotNil(t, info)
	})

	t.Run("unknown agent yields nil", func(t *testing.T) {
		assert.Nil(t, ParseUserAgent("definitely-not-a-browser", ""))
	})
}
