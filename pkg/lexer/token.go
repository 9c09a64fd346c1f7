package lexer

import "fmt"

// Kind identifies the category of a lexed token.
type Kind int

const (
	Symbol     Kind = iota // "." or ":"
	Identifier             // run of lowercase letters
	Number                 // run of decimal digits
)

var kindNames = [...]string{
	Symbol:     "SYMBOL",
	Identifier: "IDENTIFIER",
	Number:     "NUMBER",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is one whitespace-separated word of a source line.
type Token struct {
	Kind Kind
	Text string
	Line int // 1-based
	File string
}

func (t Token) String() string {
	return fmt.Sprintf("%s:%d %s %q", t.File, t.Line, t.Kind, t.Text)
}

// Is reports whether t has the given kind and text.
func (t Token) Is(kind Kind, text string) bool {
	return t.Kind == kind && t.Text == text
}

// Line is the non-empty token sequence of one source line.
type Line []Token
