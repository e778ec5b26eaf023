package java

import (
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/catset/pkg/lexer"
)

var words = map[string]lexer.Kind{
	"abstract":     lexer.KindModifier,
	"assert":       lexer.KindKeyword,
	"boolean":      lexer.KindBasicType,
	"break":        lexer.KindKeyword,
	"byte":         lexer.KindBasicType,
	"case":         lexer.KindKeyword,
	"catch":        lexer.KindKeyword,
	"char":         lexer.KindBasicType,
	"class":        lexer.KindKeyword,
	"const":        lexer.KindKeyword,
	"continue":     lexer.KindKeyword,
	"default":      lexer.KindModifier,
	"do":           lexer.KindKeyword,
	"double":       lexer.KindBasicType,
	"else":         lexer.KindKeyword,
	"enum":         lexer.KindKeyword,
	"extends":      lexer.KindKeyword,
	"final":        lexer.KindModifier,
	"finally":      lexer.KindKeyword,
	"float":        lexer.KindBasicType,
	"for":          lexer.KindKeyword,
	"goto":         lexer.KindKeyword,
	"if":           lexer.KindKeyword,
	"implements":   lexer.KindKeyword,
	"import":       lexer.KindKeyword,
	"instanceof":   lexer.KindKeyword,
	"int":          lexer.KindBasicType,
	"interface":    lexer.KindKeyword,
	"long":         lexer.KindBasicType,
	"native":       lexer.KindModifier,
	"new":          lexer.KindKeyword,
	"package":      lexer.KindKeyword,
	"private":      lexer.KindModifier,
	"protected":    lexer.KindModifier,
	"public":       lexer.KindModifier,
	"return":       lexer.KindKeyword,
	"short":        lexer.KindBasicType,
	"static":       lexer.KindModifier,
	"strictfp":     lexer.KindModifier,
	"super":        lexer.KindKeyword,
	"switch":       lexer.KindKeyword,
	"synchronized": lexer.KindModifier,
	"this":         lexer.KindKeyword,
	"throw":        lexer.KindKeyword,
	"throws":       lexer.KindKeyword,
	"transient":    lexer.KindModifier,
	"try":          lexer.KindKeyword,
	"void":         lexer.KindKeyword,
	"volatile":     lexer.KindModifier,
	"while":        lexer.KindKeyword,
	"true":         lexer.KindBoolean,
	"false":        lexer.KindBoolean,
	"null":         lexer.KindNull,
}

// Longest first so that the scanner can take the maximal munch.
var symbols = []struct {
	text string
	kind lexer.Kind
}{
	{">>>=", lexer.KindOperator},
	{">>>", lexer.KindOperator},
	{"<<=", lexer.KindOperator},
	{">>=", lexer.KindOperator},
	{"...", lexer.KindSeparator},
	{"==", lexer.KindOperator},
	{"!=", lexer.KindOperator},
	{"<=", lexer.KindOperator},
	{">=", lexer.KindOperator},
	{"&&", lexer.KindOperator},
	{"||", lexer.KindOperator},
	{"++", lexer.KindOperator},
	{"--", lexer.KindOperator},
	{"+=", lexer.KindOperator},
	{"-=", lexer.KindOperator},
	{"*=", lexer.KindOperator},
	{"/=", lexer.KindOperator},
	{"&=", lexer.KindOperator},
	{"|=", lexer.KindOperator},
	{"^=", lexer.KindOperator},
	{"%=", lexer.KindOperator},
	{"<<", lexer.KindOperator},
	{">>", lexer.KindOperator},
	{"->", lexer.KindOperator},
	{"::", lexer.KindOperator},
	{"=", lexer.KindOperator},
	{">", lexer.KindOperator},
	{"<", lexer.KindOperator},
	{"!", lexer.KindOperator},
	{"~", lexer.KindOperator},
	{"?", lexer.KindOperator},
	{":", lexer.KindOperator},
	{"+", lexer.KindOperator},
	{"-", lexer.KindOperator},
	{"*", lexer.KindOperator},
	{"/", lexer.KindOperator},
	{"&", lexer.KindOperator},
	{"|", lexer.KindOperator},
	{"^", lexer.KindOperator},
	{"%", lexer.KindOperator},
	{"(", lexer.KindSeparator},
	{")", lexer.KindSeparator},
	{"{", lexer.KindSeparator},
	{"}", lexer.KindSeparator},
	{"[", lexer.KindSeparator},
	{"]", lexer.KindSeparator},
	{";", lexer.KindSeparator},
	{",", lexer.KindSeparator},
	{".", lexer.KindSeparator},
	{"@", lexer.KindAnnotation},
}

var symbolKinds = func() map[string]lexer.Kind {
	m := make(map[string]lexer.Kind, len(symbols))
	for _, s := range symbols {
		m[s.text] = s.kind
	}
	return m
}()

// Classify returns the kind of a complete non-literal token text.
// Words that are neither reserved nor valid identifiers, and unknown
// symbols, are KindInvalid.
func Classify(text string) lexer.Kind {
	if k, ok := words[text]; ok {
		return k
	}
	if k, ok := symbolKinds[text]; ok {
		return k
	}
	if isIdentifier(text) {
		return lexer.KindIdentifier
	}
	return lexer.KindInvalid
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !isIdentStart(r) {
			return false
		}
		if !isIdentPart(r) {
			return false
		}
	}
	return utf8.ValidString(s)
}
