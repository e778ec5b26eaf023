package treesitter_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/catset/pkg/lexer"
	"github.com/aretw0/catset/pkg/lexer/treesitter"
)

func TestTokenize_CollapsesLiterals(t *testing.T) {
	tokens, err := treesitter.New().Tokenize(`if (a == 3) { return "hi"; }`)
	require.NoError(t, err)

	var got []string
	for _, tok := range tokens {
		got = append(got, tok.Text)
	}
	assert.Equal(t, []string{"if", "(", "a", "==", "3", ")", "{", "return", `"hi"`, ";", "}"}, got)
	assert.Equal(t, lexer.KindInteger, tokens[4].Kind)
	assert.Equal(t, lexer.KindString, tokens[8].Kind)
	assert.Equal(t, lexer.KindKeyword, tokens[0].Kind)
}

func TestTokenize_Declaration(t *testing.T) {
	tokens, err := treesitter.New().Tokenize("int x = 42;")
	require.NoError(t, err)
	require.Len(t, tokens, 5)
	assert.Equal(t, lexer.KindBasicType, tokens[0].Kind)
	assert.Equal(t, lexer.KindIdentifier, tokens[1].Kind)
	assert.Equal(t, lexer.KindInteger, tokens[3].Kind)
}

func TestTokenize_SyntaxErrors(t *testing.T) {
	for _, src := range []string{`String s = "abc;`, `foo(1;`} {
		tokens, err := treesitter.New().Tokenize(src)
		require.Error(t, err, src)
		assert.Nil(t, tokens)

		var lexErr *lexer.Error
		assert.True(t, errors.As(err, &lexErr), src)
	}
}
