package tagger

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/catset/pkg/core"
	"github.com/aretw0/catset/pkg/lexer"
	"github.com/aretw0/catset/pkg/lexer/java"
	"github.com/aretw0/catset/pkg/normalize"
)

// Tags produced by Lexical.
const (
	TagString     = "STRING_LIT"
	TagNumber     = "NUMBER_LIT"
	TagBool       = "BOOL_LIT"
	TagKeyword    = "KEYWORD"
	TagBasicType  = "BASIC_TYPE"
	TagModifier   = "MODIFIER"
	TagIdentifier = "IDENTIFIER"
	TagNull       = "NULL"
	TagOperator   = "OPERATOR"
	TagSeparator  = "SEPARATOR"
	TagAnnotation = "ANNOTATION"
)

var kindTags = map[lexer.Kind]string{
	lexer.KindKeyword:    TagKeyword,
	lexer.KindBasicType:  TagBasicType,
	lexer.KindModifier:   TagModifier,
	lexer.KindIdentifier: TagIdentifier,
	lexer.KindNull:       TagNull,
	lexer.KindOperator:   TagOperator,
	lexer.KindSeparator:  TagSeparator,
	lexer.KindAnnotation: TagAnnotation,
}

// Lexical tags each token with its lexical class.
type Lexical struct{}

// NewLexical returns the built-in tagger.
func NewLexical() *Lexical { return &Lexical{} }

var _ core.Tagger = (*Lexical)(nil)

func (l *Lexical) GenerateTags(ctx context.Context, normalized string) ([]string, error) {
	tokens := strings.Fields(normalized)
	tags := make([]string, len(tokens))
	for i, tok := range tokens {
		tag, err := lexicalTag(tok)
		if err != nil {
			return nil, fmt.Errorf("token %d: %w", i+1, err)
		}
		tags[i] = tag
	}
	return tags, nil
}

func lexicalTag(tok string) (string, error) {
	switch tok {
	case normalize.PlaceholderString:
		return TagString, nil
	case normalize.PlaceholderNumber:
		return TagNumber, nil
	case normalize.PlaceholderBool:
		return TagBool, nil
	}
	if tag, ok := kindTags[java.Classify(tok)]; ok {
		return tag, nil
	}
	return "", fmt.Errorf("cannot tag %q", tok)
}

func (l *Lexical) ComponentType() string { return "lexical" }
