// Package treesitter lexes Java through the tree-sitter Java grammar.
//
// Unlike the hand-written lexer it checks the snippet's syntax as well: any
// ERROR or MISSING node in the parse tree is reported as a lexer error.
package treesitter

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/aretw0/catset/pkg/lexer"
	javalex "github.com/aretw0/catset/pkg/lexer/java"
)

// literal node types collapse to a single token.
var literalKinds = map[string]lexer.Kind{
	"string_literal":                 lexer.KindString,
	"text_block":                     lexer.KindString,
	"character_literal":              lexer.KindCharacter,
	"decimal_integer_literal":        lexer.KindInteger,
	"hex_integer_literal":            lexer.KindInteger,
	"octal_integer_literal":          lexer.KindInteger,
	"binary_integer_literal":         lexer.KindInteger,
	"decimal_floating_point_literal": lexer.KindFloatingPoint,
	"hex_floating_point_literal":     lexer.KindFloatingPoint,
	"true":                           lexer.KindBoolean,
	"false":                          lexer.KindBoolean,
	"null_literal":                   lexer.KindNull,
}

var commentTypes = map[string]bool{
	"comment":       true,
	"line_comment":  true,
	"block_comment": true,
}

// Lexer parses with tree-sitter. A Lexer is safe for concurrent use; each
// call creates its own parser.
type Lexer struct {
	ctx context.Context
}

// New returns a tree-sitter backed Java lexer.
func New() *Lexer {
	return &Lexer{ctx: context.Background()}
}

var _ lexer.Lexer = (*Lexer)(nil)

// Tokenize parses src and returns its leaves in document order.
func (l *Lexer) Tokenize(src string) ([]lexer.Token, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(java.GetLanguage())

	source := []byte(src)
	tree, err := parser.ParseCtx(l.ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, firstError(root)
	}

	var tokens []lexer.Token
	walk(root, source, &tokens)
	return tokens, nil
}

func walk(n *sitter.Node, source []byte, out *[]lexer.Token) {
	typ := n.Type()
	if commentTypes[typ] {
		return
	}
	if kind, ok := literalKinds[typ]; ok {
		*out = append(*out, token(n, source, kind))
		return
	}

	count := int(n.ChildCount())
	if count == 0 {
		if n.StartByte() == n.EndByte() {
			return
		}
		text := n.Content(source)
		kind := javalex.Classify(text)
		if kind == lexer.KindInvalid && n.IsNamed() {
			kind = lexer.KindIdentifier
		}
		*out = append(*out, lexer.Token{Kind: kind, Text: text, Pos: position(n)})
		return
	}

	for i := 0; i < count; i++ {
		walk(n.Child(i), source, out)
	}
}

func token(n *sitter.Node, source []byte, kind lexer.Kind) lexer.Token {
	return lexer.Token{Kind: kind, Text: n.Content(source), Pos: position(n)}
}

func position(n *sitter.Node) lexer.Position {
	p := n.StartPoint()
	return lexer.Position{
		Offset: int(n.StartByte()),
		Line:   int(p.Row) + 1,
		Column: int(p.Column) + 1,
	}
}

// firstError locates the first ERROR or MISSING node in document order.
func firstError(n *sitter.Node) error {
	if n.IsMissing() {
		return &lexer.Error{Pos: position(n), Msg: fmt.Sprintf("missing %q", n.Type())}
	}
	if n.Type() == "ERROR" {
		return &lexer.Error{Pos: position(n), Msg: "syntax error"}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.HasError() || child.IsMissing() {
			return firstError(child)
		}
	}
	return &lexer.Error{Pos: position(n), Msg: "syntax error"}
}
