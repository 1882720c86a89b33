// Package tokenizer splits an input sentence into the lower-cased tokens the
// parser oracle expects.
package tokenizer

import (
	"fmt"
	"regexp"
	"strings"
)

const tokenPattern = `\.\.\.|\.|\?!|\?|!|,|;|\(|\)|\$|"|&|\d+|[-\w]+|'[-\w]*`

var (
	tokenRegex    = regexp.MustCompile(tokenPattern)
	sentenceRegex = regexp.MustCompile(`^(?:(?:` + tokenPattern + `)|\s+)+$`)
)

// Error reports input that contains characters outside every token class.
type Error struct {
	Input string
}

func (e *Error) Error() string {
	return fmt.Sprintf("could not tokenize sentence: %q", e.Input)
}

// Tokenize returns the tokens of sentence in order.
func Tokenize(sentence string) ([]string, error) {
	if !sentenceRegex.MatchString(sentence) {
		return nil, &Error{Input: sentence}
	}
	return tokenRegex.FindAllString(strings.ToLower(sentence), -1), nil
}

// Contains reports whether any token is in words.
func Contains(tokens []string, words map[string]bool) bool {
	for _, t := range tokens {
		if words[t] {
			return true
		}
	}
	return false
}
