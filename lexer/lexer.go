// Package lexer implements a scanner for C-family source text. It produces
// the token stream consumed by the preprocessor engine and is also used to
// re-tokenize source text returned by macro callables.
package lexer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/preflang/macroexpand/reporter"
	"github.com/preflang/macroexpand/token"
)

type runeReader struct {
	data []byte
	pos  int
	err  error
	mark int
}

func (rr *runeReader) readRune() (r rune, size int, err error) {
	if rr.err != nil {
		return 0, 0, rr.err
	}
	if rr.pos == len(rr.data) {
		rr.err = io.EOF
		return 0, 0, rr.err
	}
	r, sz := utf8.DecodeRune(rr.data[rr.pos:])
	if r == utf8.RuneError && sz == 1 {
		rr.err = fmt.Errorf("invalid UTF-8 at offset %d: %x", rr.pos, rr.data[rr.pos])
		return 0, 0, rr.err
	}
	rr.pos = rr.pos + sz
	return r, sz, nil
}

func (rr *runeReader) offset() int {
	return rr.pos
}

func (rr *runeReader) unreadRune(sz int) {
	newPos := rr.pos - sz
	if newPos < rr.mark {
		panic("unread past mark")
	}
	rr.pos = newPos
}

func (rr *runeReader) setMark() {
	rr.mark = rr.pos
}

func (rr *runeReader) getMark() string {
	return string(rr.data[rr.mark:rr.pos])
}

// Lexer scans C-family source text into tokens.
type Lexer struct {
	input   *runeReader
	info    *token.FileInfo
	handler *reporter.Handler
}

var utf8Bom = []byte{0xEF, 0xBB, 0xBF}

// New creates a Lexer scanning the contents of in. Scanning errors are
// routed through handler; filename is used for token positions.
func New(in io.Reader, filename string, handler *reporter.Handler) (*Lexer, error) {
	br := bufio.NewReader(in)

	// if file has UTF8 byte order marker preface, consume it
	marker, err := br.Peek(3)
	if err == nil && bytes.Equal(marker, utf8Bom) {
		_, _ = br.Discard(3)
	}

	contents, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	return &Lexer{
		input:   &runeReader{data: contents},
		info:    token.NewFileInfo(filename, contents),
		handler: handler,
	}, nil
}

// Lex scans all of data into a token slice, ending with an EOF token. It is
// a convenience wrapper around New and Next for callers that do not need
// streaming. A nil handler aborts on the first scanning error.
func Lex(filename string, data []byte, handler *reporter.Handler) ([]token.Token, error) {
	if handler == nil {
		handler = reporter.NewHandler(nil)
	}
	l, err := New(bytes.NewReader(data), filename, handler)
	if err != nil {
		return nil, err
	}
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

// Info returns the position information accumulated while scanning.
func (l *Lexer) Info() *token.FileInfo {
	return l.info
}

// Multi-byte punctuation, longest match first. Single-byte punctuation is
// anything else in punctChars.
var (
	puncts3 = map[string]bool{
		"<<=": true, ">>=": true, "...": true,
	}
	puncts2 = map[string]bool{
		"->": true, "++": true, "--": true, "<<": true, ">>": true,
		"<=": true, ">=": true, "==": true, "!=": true, "&&": true,
		"||": true, "+=": true, "-=": true, "*=": true, "/=": true,
		"%=": true, "&=": true, "^=": true, "|=": true, "##": true,
	}
	punctChars = "!#%&()*+,-./:;<=>?[]^{|}~\\"
)

// Next returns the next token in the input. The final token has kind
// [token.EOF]; calling Next again after that returns EOF again.
//
// Malformed input is reported through the lexer's handler. If the handler
// swallows the error, the offending text is returned as a token of kind
// [token.Unrecognized] and scanning continues; otherwise Next returns the
// handler's error.
func (l *Lexer) Next() (token.Token, error) {
	l.input.setMark()

	c, _, err := l.input.readRune()
	if err == io.EOF {
		return token.Token{Kind: token.EOF, Pos: l.pos()}, nil
	} else if err != nil {
		if rerr := l.handler.HandleError(reporter.Error(l.pos(), err)); rerr != nil {
			return token.Token{}, rerr
		}
		// skip the offending byte and emit it as garbage
		l.input.err = nil
		l.input.pos++
		return l.newToken(token.Unrecognized), nil
	}

	if strings.ContainsRune("\n\r\t\f\v ", c) {
		l.maybeNewLine(c)
		l.readWhitespace()
		return l.newToken(token.Space), nil
	}

	if c == '/' {
		cn, szn, err := l.input.readRune()
		if err == nil && cn == '/' {
			l.skipToEndOfLineComment()
			return l.newToken(token.Comment), nil
		}
		if err == nil && cn == '*' {
			if !l.skipToEndOfBlockComment() {
				if rerr := l.handler.HandleErrorf(l.pos(), "block comment never terminates, unexpected EOF"); rerr != nil {
					return token.Token{}, rerr
				}
				return l.newToken(token.Unrecognized), nil
			}
			return l.newToken(token.Comment), nil
		}
		if err == nil {
			l.input.unreadRune(szn)
		}
		return l.readPunct(c)
	}

	if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		l.readIdentifier()
		return l.newToken(token.Ident), nil
	}

	if c >= '0' && c <= '9' {
		l.readNumber()
		return l.newToken(token.Number), nil
	}

	if c == '.' {
		// a preprocessing number may start with a dot
		cn, szn, err := l.input.readRune()
		if err == nil && cn >= '0' && cn <= '9' {
			l.readNumber()
			return l.newToken(token.Number), nil
		}
		if err == nil {
			l.input.unreadRune(szn)
		}
		return l.readPunct(c)
	}

	if c == '"' || c == '\'' {
		kind := token.String
		if c == '\'' {
			kind = token.Char
		}
		if err := l.readStringLiteral(c); err != nil {
			if rerr := l.handler.HandleError(reporter.Error(l.pos(), err)); rerr != nil {
				return token.Token{}, rerr
			}
			return l.newToken(token.Unrecognized), nil
		}
		return l.newToken(kind), nil
	}

	if strings.ContainsRune(punctChars, c) {
		return l.readPunct(c)
	}

	if rerr := l.handler.HandleErrorf(l.pos(), "invalid character %q", c); rerr != nil {
		return token.Token{}, rerr
	}
	return l.newToken(token.Unrecognized), nil
}

// pos returns the position of the current mark.
func (l *Lexer) pos() token.SourcePos {
	return l.info.Pos(l.input.mark)
}

func (l *Lexer) newToken(kind token.Kind) token.Token {
	return token.Token{
		Kind: kind,
		Text: l.input.getMark(),
		Pos:  l.pos(),
	}
}

func (l *Lexer) maybeNewLine(r rune) {
	if r == '\n' {
		l.info.AddLine(l.input.offset())
	}
}

func (l *Lexer) readWhitespace() {
	for {
		c, sz, err := l.input.readRune()
		if err != nil {
			return
		}
		if !strings.ContainsRune("\n\r\t\f\v ", c) {
			l.input.unreadRune(sz)
			return
		}
		l.maybeNewLine(c)
	}
}

func (l *Lexer) readIdentifier() {
	for {
		c, sz, err := l.input.readRune()
		if err != nil {
			return
		}
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			l.input.unreadRune(sz)
			return
		}
	}
}

// readNumber consumes a preprocessing number: an optional leading dot was
// already consumed along with the first digit. Exponent signs are only
// accepted directly after e, E, p, or P.
func (l *Lexer) readNumber() {
	prev, _ := utf8.DecodeLastRuneInString(l.input.getMark())
	for {
		c, sz, err := l.input.readRune()
		if err != nil {
			return
		}
		if c == '+' || c == '-' {
			if prev != 'e' && prev != 'E' && prev != 'p' && prev != 'P' {
				l.input.unreadRune(sz)
				return
			}
		} else if c != '.' && c != '_' && (c < '0' || c > '9') && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			l.input.unreadRune(sz)
			return
		}
		prev = c
	}
}

// readStringLiteral consumes the remainder of a string or character literal
// whose opening quote has already been consumed. The literal's text is kept
// raw, escapes included.
func (l *Lexer) readStringLiteral(quote rune) error {
	for {
		c, _, err := l.input.readRune()
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("unexpected EOF in %s", literalName(quote))
			}
			return err
		}
		switch c {
		case quote:
			return nil
		case '\n':
			return fmt.Errorf("encountered end-of-line before end of %s", literalName(quote))
		case '\\':
			// consume whatever follows; escape validity is not the
			// scanner's concern
			cn, _, err := l.input.readRune()
			if err != nil {
				return fmt.Errorf("unexpected EOF in %s", literalName(quote))
			}
			l.maybeNewLine(cn)
		}
	}
}

func literalName(quote rune) string {
	if quote == '\'' {
		return "character literal"
	}
	return "string literal"
}

func (l *Lexer) readPunct(c rune) (token.Token, error) {
	// greedily extend to the longest operator
	rest := l.input.data[l.input.pos:]
	if len(rest) >= 2 && puncts3[string(c)+string(rest[:2])] {
		l.input.pos += 2
	} else if len(rest) >= 1 && puncts2[string(c)+string(rest[:1])] {
		l.input.pos++
	}
	return l.newToken(token.Punct), nil
}

func (l *Lexer) skipToEndOfLineComment() {
	for {
		c, sz, err := l.input.readRune()
		if err != nil {
			return
		}
		if c == '\n' {
			l.input.unreadRune(sz)
			return
		}
	}
}

func (l *Lexer) skipToEndOfBlockComment() bool {
	for {
		c, _, err := l.input.readRune()
		if err != nil {
			return false
		}
		l.maybeNewLine(c)
		if c == '*' {
			c, sz, err := l.input.readRune()
			if err != nil {
				return false
			}
			if c == '/' {
				return true
			}
			l.input.unreadRune(sz)
		}
	}
}
