package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"style-relay/errors"
)

const replacementChar = '*'

// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := NewModerator(dictionary, replacementChar)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "badger badger badger",
			expected: "****** ****** ******",
		},
		{
			name: "Leet speak and internal punctuation",
			// b 4 d g 3 r with separating dots spans 11 original runes
			input:    "Look at b.4.d.g.3.r !",
			expected: "Look at *********** !",
		},
		{
			name:     "Uppercase and extreme noise",
			input:    "S-N-A-K-E is a B.A.D.G.E.R",
			expected: "********* is a ***********",
		},
		{
			name:     "Accents and special characters (UTF-8)",
			input:    "Un été avec un badger",
			expected: "Un été avec un ******",
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "I love badger!",
			expected: "I love ******!",
		},
		{
			name:     "Nothing to censor",
			input:    "A perfectly polite sentence",
			expected: "A perfectly polite sentence",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.expected, mod.Censor(tt.input), "test=%s", tt.name)
		})
	}
}

func TestModerator_EmptyDictionaryRejected(t *testing.T) {
	req := require.New(t)

	_, err := NewModerator(nil, replacementChar)
	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestLoadDefaultWords(t *testing.T) {
	req := require.New(t)

	words, err := LoadDefaultWords()
	req.NoError(err)
	req.NotEmpty(words)

	seen := make(map[string]struct{})
	for _, word := range words {
		req.NotEmpty(word)
		req.False(strings.HasPrefix(word, "#"), "comment leaked into word list: %s", word)
		_, dup := seen[word]
		req.False(dup, "duplicate word: %s", word)
		seen[word] = struct{}{}
	}

	// And the embedded lists build a working moderator
	mod, err := NewModerator(words, replacementChar)
	req.NoError(err)
	req.NotNil(mod)
}
