package moderation

import (
	"bufio"
	"embed"
	"io/fs"
	"strings"

	"style-relay/errors"
)

//go:embed censored/*
var censoredFolder embed.FS

// LoadDefaultWords reads the embedded censored word lists, one word per
// line, '#' starting a comment.
func LoadDefaultWords() ([]string, error) {
	var words []string
	seen := make(map[string]struct{})

	err := fs.WalkDir(censoredFolder, "censored", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		f, err := censoredFolder.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			word := strings.TrimSpace(scanner.Text())
			if word == "" || strings.HasPrefix(word, "#") {
				continue
			}
			if _, dup := seen[word]; dup {
				continue
			}
			seen[word] = struct{}{}
			words = append(words, word)
		}
		return scanner.Err()
	})
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, errors.ErrEmptyWords
	}
	return words, nil
}
