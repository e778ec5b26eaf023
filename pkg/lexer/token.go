// Package lexer defines the token model shared by the source lexers.
package lexer

import "fmt"

// Kind is the lexical class of a token.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindKeyword
	KindBasicType
	KindModifier
	KindIdentifier
	KindNull
	KindOperator
	KindSeparator
	KindAnnotation

	// Literal kinds.
	KindString
	KindCharacter
	KindInteger
	KindFloatingPoint
	KindBoolean
)

var kindNames = [...]string{
	KindInvalid:       "Invalid",
	KindKeyword:       "Keyword",
	KindBasicType:     "BasicType",
	KindModifier:      "Modifier",
	KindIdentifier:    "Identifier",
	KindNull:          "Null",
	KindOperator:      "Operator",
	KindSeparator:     "Separator",
	KindAnnotation:    "Annotation",
	KindString:        "String",
	KindCharacter:     "Character",
	KindInteger:       "Integer",
	KindFloatingPoint: "FloatingPoint",
	KindBoolean:       "Boolean",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsLiteral reports whether tokens of this kind carry a literal value.
func (k Kind) IsLiteral() bool {
	return k >= KindString && k <= KindBoolean
}

// Position is a 1-based location in the lexed text.
type Position struct {
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a lexical unit with its surface text.
type Token struct {
	Kind Kind
	Text string
	Pos  Position
}

// Lexer turns source text into tokens.
// Implementations must fail with *Error on malformed input and return no tokens.
type Lexer interface {
	Tokenize(src string) ([]Token, error)
}

// Func adapts a plain function to the Lexer interface.
type Func func(src string) ([]Token, error)

func (f Func) Tokenize(src string) ([]Token, error) { return f(src) }

// Error is a lexer diagnostic.
type Error struct {
	Pos Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}
