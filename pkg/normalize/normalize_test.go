package normalize_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/catset/pkg/core"
	"github.com/aretw0/catset/pkg/lexer"
	"github.com/aretw0/catset/pkg/lexer/treesitter"
	"github.com/aretw0/catset/pkg/normalize"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"line comment", "int x = 42; // set x", "int x = NUM_ ;"},
		{"statement", `if (a == 3) { return "hi"; }`, "if ( a == NUM_ ) { return STR_ ; }"},
		{"block comment across lines", "int /* a\nb */ y = 0x1F;", "int y = NUM_ ;"},
		{"multi line", "boolean ok = true;\nchar c = 'c';\r\ndouble d = 2.5e3;", "boolean ok = BOOL_ ; char c = STR_ ; double d = NUM_ ;"},
		{"null stays", "Object o = null;", "Object o = null ;"},
		{"line comment does not swallow next line", "a(); // first\nb();", "a ( ) ; b ( ) ;"},
		{"only comments", "// nothing\n/* here */", ""},
		{"empty", "", ""},
		{"whitespace", " \n\t ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalize.Normalize(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalize_HidesLiteralValues(t *testing.T) {
	src := `String secret = "hunter2"; long n = 8675309L; char k = 'q'; float f = 1.25f;`
	got, err := normalize.Normalize(src)
	require.NoError(t, err)

	for _, leaked := range []string{"hunter2", "8675309", "'q'", "1.25"} {
		assert.NotContains(t, got, leaked)
	}
	assert.Equal(t, "String secret = STR_ ; long n = NUM_ ; char k = STR_ ; float f = NUM_ ;", got)
}

func TestNormalize_SlashesInStringsAreComments(t *testing.T) {
	got, err := normalize.Normalize(`String u = "http://x";`)
	require.Error(t, err, "the line comment pass cuts the string literal open")
	assert.Empty(t, got)
}

func TestNormalize_TokenizationError(t *testing.T) {
	got, err := normalize.Normalize("int #x = 1;")
	require.Error(t, err)
	assert.Empty(t, got)

	var tokErr *core.TokenizationError
	require.True(t, errors.As(err, &tokErr))

	var lexErr *lexer.Error
	require.True(t, errors.As(err, &lexErr))
	assert.Equal(t, 1, lexErr.Pos.Line)
	assert.Contains(t, err.Error(), "unexpected character")
}

func TestStripComments_Idempotent(t *testing.T) {
	inputs := []string{
		"int x = 1; // one\n/* two */ y = 2;",
		"/* a */ /* b // c */ d // e /* f */",
		"/* unclosed",
		"a //* b */ c",
		"x = 1 / 2 * 3; /**/",
	}
	for _, in := range inputs {
		once := normalize.StripComments(in)
		assert.Equal(t, once, normalize.StripComments(once), in)
	}
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, "a b  c", normalize.Flatten("  a\nb\r\n\nc \n"))
}

func TestNormalizer_Backends(t *testing.T) {
	src := "for (int i = 0; i < 10; i++) { sum += i * 1.5; } // loop"
	want := "for ( int i = NUM_ ; i < NUM_ ; i ++ ) { sum += i * NUM_ ; }"

	for name, lx := range map[string]lexer.Lexer{
		"java":       nil,
		"treesitter": treesitter.New(),
	} {
		t.Run(name, func(t *testing.T) {
			got, err := normalize.New(lx).Normalize(src)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Len(t, normalize.Tokens(got), len(strings.Fields(want)))
		})
	}
}
