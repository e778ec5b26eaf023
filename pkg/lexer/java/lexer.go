// Package java is a lexer for Java source text.
//
// It recognizes the same token classes as javalang's tokenizer, which the
// corpus was originally produced with, so that normalized code stays comparable
// across the legacy and current pipelines.
package java

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/catset/pkg/lexer"
)

// Lexer tokenizes Java source. The zero value is ready to use.
type Lexer struct{}

// New returns a Java lexer.
func New() *Lexer {
	return &Lexer{}
}

var _ lexer.Lexer = (*Lexer)(nil)

// Tokenize splits src into tokens. Comments and whitespace are dropped.
func (l *Lexer) Tokenize(src string) ([]lexer.Token, error) {
	s := &scanner{src: src, line: 1, col: 1}

	var tokens []lexer.Token
	for {
		if err := s.skipSpaceAndComments(); err != nil {
			return nil, err
		}
		if s.eof() {
			return tokens, nil
		}
		tok, err := s.scan()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

type scanner struct {
	src  string
	off  int
	line int
	col  int
}

func (s *scanner) eof() bool { return s.off >= len(s.src) }

func (s *scanner) peek(n int) byte {
	if s.off+n < len(s.src) {
		return s.src[s.off+n]
	}
	return 0
}

func (s *scanner) rest() string { return s.src[s.off:] }

func (s *scanner) pos() lexer.Position {
	return lexer.Position{Offset: s.off, Line: s.line, Column: s.col}
}

// advance moves n bytes forward keeping line and column in runes.
func (s *scanner) advance(n int) {
	for i := 0; i < n && s.off < len(s.src); i++ {
		b := s.src[s.off]
		s.off++
		switch {
		case b == '\n':
			s.line++
			s.col = 1
		case b&0xC0 != 0x80:
			s.col++
		}
	}
}

func (s *scanner) errorf(at lexer.Position, format string, args ...any) error {
	return &lexer.Error{Pos: at, Msg: fmt.Sprintf(format, args...)}
}

func (s *scanner) skipSpaceAndComments() error {
	for !s.eof() {
		switch c := s.peek(0); {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			s.advance(1)
		case c == '/' && s.peek(1) == '/':
			end := strings.IndexByte(s.rest(), '\n')
			if end < 0 {
				end = len(s.rest())
			}
			s.advance(end)
		case c == '/' && s.peek(1) == '*':
			start := s.pos()
			end := strings.Index(s.rest()[2:], "*/")
			if end < 0 {
				return s.errorf(start, "unterminated block comment")
			}
			s.advance(end + 4)
		default:
			return nil
		}
	}
	return nil
}

func (s *scanner) scan() (lexer.Token, error) {
	start := s.pos()
	c := s.peek(0)

	var kind lexer.Kind
	var err error
	switch {
	case c == '"':
		kind, err = s.scanString(start)
	case c == '\'':
		kind, err = s.scanChar(start)
	case isDigit(c) || (c == '.' && isDigit(s.peek(1))):
		kind, err = s.scanNumber(start)
	default:
		r, _ := utf8.DecodeRuneInString(s.rest())
		if isIdentStart(r) {
			kind = s.scanWord()
			break
		}
		kind, err = s.scanSymbol(start, r)
	}
	if err != nil {
		return lexer.Token{}, err
	}

	return lexer.Token{Kind: kind, Text: s.src[start.Offset:s.off], Pos: start}, nil
}

func (s *scanner) scanWord() lexer.Kind {
	n := 0
	for _, r := range s.rest() {
		if !isIdentPart(r) {
			break
		}
		n += utf8.RuneLen(r)
	}
	word := s.rest()[:n]
	s.advance(n)
	if k, ok := words[word]; ok {
		return k
	}
	return lexer.KindIdentifier
}

func (s *scanner) scanSymbol(start lexer.Position, r rune) (lexer.Kind, error) {
	rest := s.rest()
	for _, sym := range symbols {
		if strings.HasPrefix(rest, sym.text) {
			s.advance(len(sym.text))
			return sym.kind, nil
		}
	}
	return lexer.KindInvalid, s.errorf(start, "unexpected character %q", r)
}

func (s *scanner) scanString(start lexer.Position) (lexer.Kind, error) {
	if strings.HasPrefix(s.rest(), `"""`) {
		s.advance(3)
		for !s.eof() {
			if s.peek(0) == '\\' {
				s.advance(2)
				continue
			}
			if strings.HasPrefix(s.rest(), `"""`) {
				s.advance(3)
				return lexer.KindString, nil
			}
			s.advance(1)
		}
		return lexer.KindInvalid, s.errorf(start, "unterminated text block")
	}

	s.advance(1)
	for !s.eof() {
		switch s.peek(0) {
		case '\\':
			s.advance(2)
		case '"':
			s.advance(1)
			return lexer.KindString, nil
		case '\n':
			return lexer.KindInvalid, s.errorf(start, "unterminated string literal")
		default:
			s.advance(1)
		}
	}
	return lexer.KindInvalid, s.errorf(start, "unterminated string literal")
}

func (s *scanner) scanChar(start lexer.Position) (lexer.Kind, error) {
	s.advance(1)
	if s.peek(0) == '\'' {
		return lexer.KindInvalid, s.errorf(start, "empty character literal")
	}
	for !s.eof() {
		switch s.peek(0) {
		case '\\':
			s.advance(2)
		case '\'':
			s.advance(1)
			return lexer.KindCharacter, nil
		case '\n':
			return lexer.KindInvalid, s.errorf(start, "unterminated character literal")
		default:
			s.advance(1)
		}
	}
	return lexer.KindInvalid, s.errorf(start, "unterminated character literal")
}

func (s *scanner) scanNumber(start lexer.Position) (lexer.Kind, error) {
	kind := lexer.KindInteger

	switch {
	case s.peek(0) == '0' && (s.peek(1) == 'x' || s.peek(1) == 'X'):
		s.advance(2)
		digits := s.take(isHexDigit)
		if s.peek(0) == '.' {
			s.advance(1)
			digits += s.take(isHexDigit)
			kind = lexer.KindFloatingPoint
		}
		if digits == 0 {
			return lexer.KindInvalid, s.errorf(start, "malformed hexadecimal literal")
		}
		if s.peek(0) == 'p' || s.peek(0) == 'P' {
			if err := s.exponent(start); err != nil {
				return lexer.KindInvalid, err
			}
			kind = lexer.KindFloatingPoint
		} else if kind == lexer.KindFloatingPoint {
			return lexer.KindInvalid, s.errorf(start, "hexadecimal floating literal requires an exponent")
		}
	case s.peek(0) == '0' && (s.peek(1) == 'b' || s.peek(1) == 'B'):
		s.advance(2)
		if s.take(isBinaryDigit) == 0 {
			return lexer.KindInvalid, s.errorf(start, "malformed binary literal")
		}
	default:
		s.take(isDecimalDigit)
		if s.peek(0) == '.' && s.fractionFollows() {
			s.advance(1)
			s.take(isDecimalDigit)
			kind = lexer.KindFloatingPoint
		}
		if s.peek(0) == 'e' || s.peek(0) == 'E' {
			if err := s.exponent(start); err != nil {
				return lexer.KindInvalid, err
			}
			kind = lexer.KindFloatingPoint
		}
	}

	switch s.peek(0) {
	case 'l', 'L':
		if kind == lexer.KindFloatingPoint {
			return lexer.KindInvalid, s.errorf(start, "malformed floating-point literal")
		}
		s.advance(1)
	case 'f', 'F', 'd', 'D':
		s.advance(1)
		kind = lexer.KindFloatingPoint
	}

	if r, _ := utf8.DecodeRuneInString(s.rest()); !s.eof() && isIdentPart(r) {
		return lexer.KindInvalid, s.errorf(start, "malformed number literal")
	}
	return kind, nil
}

// fractionFollows decides whether a '.' after integer digits starts a fraction.
// "1.5", "1." and "1.e3" do; "1..2" and member access on an identifier do not.
func (s *scanner) fractionFollows() bool {
	next := s.peek(1)
	switch next {
	case '.':
		return false
	case 'e', 'E', 'f', 'F', 'd', 'D':
		return true
	}
	r, _ := utf8.DecodeRuneInString(s.rest()[1:])
	return !isIdentStart(r)
}

func (s *scanner) exponent(start lexer.Position) error {
	s.advance(1)
	if s.peek(0) == '+' || s.peek(0) == '-' {
		s.advance(1)
	}
	if s.take(isDecimalDigit) == 0 {
		return s.errorf(start, "malformed exponent")
	}
	return nil
}

// take consumes bytes matching pred (and digit separators) and returns the
// number of digits consumed.
func (s *scanner) take(pred func(byte) bool) int {
	digits := 0
	for !s.eof() {
		c := s.peek(0)
		if c == '_' {
			s.advance(1)
			continue
		}
		if !pred(c) {
			break
		}
		digits++
		s.advance(1)
	}
	return digits
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isDecimalDigit(c byte) bool { return isDigit(c) }

func isBinaryDigit(c byte) bool { return c == '0' || c == '1' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
