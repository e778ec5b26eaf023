// Package normalize turns raw source text into normalized code: comments
// removed, line breaks flattened, tokens joined by single spaces and every
// literal replaced by a category placeholder.
package normalize

import (
	"regexp"
	"strings"

	"github.com/aretw0/catset/pkg/core"
	"github.com/aretw0/catset/pkg/lexer"
	"github.com/aretw0/catset/pkg/lexer/java"
)

// Placeholders substituted for literal tokens.
const (
	PlaceholderString = "STR_"
	PlaceholderNumber = "NUM_"
	PlaceholderBool   = "BOOL_"
)

var (
	lineComment  = regexp.MustCompile(`//.*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// StripComments removes line comments, then block comments.
// The order matters: line comments are removed while line breaks still
// bound them. Both passes are textual, so a "//" inside a string literal
// also starts a comment.
func StripComments(src string) string {
	src = lineComment.ReplaceAllString(src, "")
	return blockComment.ReplaceAllString(src, "")
}

// Flatten replaces line breaks with spaces and trims the result.
func Flatten(src string) string {
	src = strings.ReplaceAll(src, "\r\n", " ")
	src = strings.ReplaceAll(src, "\n", " ")
	src = strings.ReplaceAll(src, "\r", " ")
	return strings.TrimSpace(src)
}

// Placeholder returns the surface form emitted for a token.
func Placeholder(tok lexer.Token) string {
	switch tok.Kind {
	case lexer.KindString, lexer.KindCharacter:
		return PlaceholderString
	case lexer.KindInteger, lexer.KindFloatingPoint:
		return PlaceholderNumber
	case lexer.KindBoolean:
		return PlaceholderBool
	default:
		return tok.Text
	}
}

// Normalizer normalizes source with a given lexer.
type Normalizer struct {
	lexer lexer.Lexer
}

// New returns a Normalizer using lx. A nil lexer selects the Java lexer.
func New(lx lexer.Lexer) *Normalizer {
	if lx == nil {
		lx = java.New()
	}
	return &Normalizer{lexer: lx}
}

var _ core.Normalizer = (*Normalizer)(nil)

// Normalize implements core.Normalizer. Lexer failures are returned as
// *core.TokenizationError and no partial output is produced.
func (n *Normalizer) Normalize(src string) (string, error) {
	text := Flatten(StripComments(src))
	if text == "" {
		return "", nil
	}

	tokens, err := n.lexer.Tokenize(text)
	if err != nil {
		return "", &core.TokenizationError{Err: err}
	}

	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = Placeholder(tok)
	}
	return strings.Join(out, " "), nil
}

var std = New(nil)

// Normalize normalizes src with the Java lexer.
func Normalize(src string) (string, error) {
	return std.Normalize(src)
}

// Tokens splits normalized code into its tokens.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}
