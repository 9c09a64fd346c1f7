// Package lexer splits assembly source into lines of typed tokens.
package lexer

import (
	"fmt"
	"strings"
)

// CommentMarker starts a comment when it begins a word.
const CommentMarker = ";"

// Error is a lexical error at a source position.
type Error struct {
	File string
	Line int
	Text string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: unknown token %s", e.File, e.Line, e.Text)
}

// Tokenize splits src into lines of tokens. Comments and blank lines are
// dropped, so every returned Line is non-empty.
func Tokenize(src, file string) ([]Line, error) {
	var lines []Line

	for i, raw := range strings.Split(src, "\n") {
		lineNo := i + 1
		var line Line

		for _, word := range strings.Fields(raw) {
			if strings.HasPrefix(word, CommentMarker) {
				break
			}
			kind, ok := classify(word)
			if !ok {
				return nil, &Error{File: file, Line: lineNo, Text: word}
			}
			line = append(line, Token{Kind: kind, Text: word, Line: lineNo, File: file})
		}

		if len(line) > 0 {
			lines = append(lines, line)
		}
	}

	return lines, nil
}

// classify applies the fixed order symbol, identifier, number.
func classify(word string) (Kind, bool) {
	switch {
	case word == "." || word == ":":
		return Symbol, true
	case isIdentifier(word):
		return Identifier, true
	case isNumber(word):
		return Number, true
	}
	return 0, false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'a' || s[i] > 'z' {
			return false
		}
	}
	return true
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
