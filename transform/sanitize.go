package transform

import (
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
)

// sanitize cleans a provider answer: surrounding whitespace goes, one pair
// of stray quotes goes (providers love wrapping answers in them), and empty
// or over-long results are rejected so the caller falls back to the
// original text.
func sanitize(raw string, maxRunes int) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimPrefix(s, `'`)
	s = strings.TrimSuffix(s, `"`)
	s = strings.TrimSuffix(s, `'`)

	if s == "" || utf8.RuneCountInString(s) > maxRunes {
		return "", false
	}
	return s, true
}

// sameScript guards against the provider answering in a different writing
// system than the input (the prompt demands the language be preserved).
// Language-level comparison would misfire on stylized text like "hewwo",
// so only the detected script is compared, and only when both sides are
// detected at all.
func sameScript(original, transformed string) bool {
	origScript := whatlanggo.DetectScript(original)
	newScript := whatlanggo.DetectScript(transformed)
	if origScript == nil || newScript == nil {
		return true
	}
	return origScript == newScript
}
