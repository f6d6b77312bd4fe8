package jsonfmt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"

	"github.com/anirudhraja/protoserial/serialization"
)

// EOF is returned by Peek and Read at the end of input.
const EOF rune = -1

// source is a cursor's backing store with one character of lookahead.
type source interface {
	peek() (rune, error)
	read() (rune, error)
}

// byteSource decodes a byte slice as UTF-8; ASCII input is the common case.
type byteSource struct {
	buf []byte
	pos int
}

func (s *byteSource) peek() (rune, error) {
	if s.pos >= len(s.buf) {
		return EOF, nil
	}
	if c := s.buf[s.pos]; c < utf8.RuneSelf {
		return rune(c), nil
	}
	r, _ := utf8.DecodeRune(s.buf[s.pos:])
	return r, nil
}

func (s *byteSource) read() (rune, error) {
	if s.pos >= len(s.buf) {
		return EOF, nil
	}
	if c := s.buf[s.pos]; c < utf8.RuneSelf {
		s.pos++
		return rune(c), nil
	}
	r, n := utf8.DecodeRune(s.buf[s.pos:])
	s.pos += n
	return r, nil
}

type runeSource struct {
	buf []rune
	pos int
}

func (s *runeSource) peek() (rune, error) {
	if s.pos >= len(s.buf) {
		return EOF, nil
	}
	return s.buf[s.pos], nil
}

func (s *runeSource) read() (rune, error) {
	if s.pos >= len(s.buf) {
		return EOF, nil
	}
	r := s.buf[s.pos]
	s.pos++
	return r, nil
}

// runeReaderSource pulls from an io.RuneReader, holding one rune of lookahead.
type runeReaderSource struct {
	r      io.RuneReader
	next   rune
	peeked bool
}

func (s *runeReaderSource) peek() (rune, error) {
	if !s.peeked {
		r, _, err := s.r.ReadRune()
		switch {
		case err == io.EOF:
			r = EOF
		case err != nil:
			return EOF, errors.Wrap(err, "reading json input")
		}
		s.next, s.peeked = r, true
	}
	return s.next, nil
}

func (s *runeReaderSource) read() (rune, error) {
	r, err := s.peek()
	if err != nil {
		return EOF, err
	}
	if r != EOF {
		s.peeked = false
	}
	return r, nil
}

// Cursor is a single-lookahead JSON lexer. It tracks the line and column of the last
// consumed character for error messages.
type Cursor struct {
	src      source
	line     int
	column   int
	maxDepth int
}

func newCursor(src source) *Cursor {
	return &Cursor{src: src, line: 1, maxDepth: serialization.DefaultOptions().MaxDepth}
}

// NewCursorBytes reads JSON from a byte slice.
func NewCursorBytes(data []byte) *Cursor { return newCursor(&byteSource{buf: data}) }

// NewCursorRunes reads JSON from a character buffer.
func NewCursorRunes(data []rune) *Cursor { return newCursor(&runeSource{buf: data}) }

// NewCursorString reads JSON from a string.
func NewCursorString(data string) *Cursor { return NewCursorBytes([]byte(data)) }

// NewCursorStream reads JSON from a byte stream, buffering it.
func NewCursorStream(r io.Reader) *Cursor {
	return newCursor(&runeReaderSource{r: bufio.NewReader(r)})
}

// NewCursorReader pulls JSON one character at a time from r.
func NewCursorReader(r io.RuneReader) *Cursor {
	return newCursor(&runeReaderSource{r: r})
}

// SetMaxDepth bounds the nesting ReadVariant accepts.
func (c *Cursor) SetMaxDepth(n int) {
	if n > 0 {
		c.maxDepth = n
	}
}

func (c *Cursor) Line() int   { return c.line }
func (c *Cursor) Column() int { return c.column }

// Peek returns the next character without consuming it, or EOF.
func (c *Cursor) Peek() (rune, error) { return c.src.peek() }

// Read consumes the next character, or returns EOF.
func (c *Cursor) Read() (rune, error) {
	r, err := c.src.read()
	if err != nil || r == EOF {
		return r, err
	}
	if r == '\n' {
		c.line++
		c.column = 0
	} else {
		c.column++
	}
	return r, nil
}

// Errorf builds a syntax error at the current position.
func (c *Cursor) Errorf(format string, args ...interface{}) error {
	return &serialization.SyntaxError{Line: c.line, Column: c.column, Msg: fmt.Sprintf(format, args...)}
}

// Assert fails with a positioned syntax error unless cond holds.
func (c *Cursor) Assert(cond bool, format string, args ...interface{}) error {
	if cond {
		return nil
	}
	return c.Errorf(format, args...)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

// SkipWhitespace consumes spaces, tabs and line breaks.
func (c *Cursor) SkipWhitespace() error {
	for {
		r, err := c.Peek()
		if err != nil {
			return err
		}
		if !isSpace(r) {
			return nil
		}
		if _, err := c.Read(); err != nil {
			return err
		}
	}
}

// Next skips whitespace and returns the next significant character without
// consuming it.
func (c *Cursor) Next() (rune, error) {
	if err := c.SkipWhitespace(); err != nil {
		return EOF, err
	}
	return c.Peek()
}

func describe(r rune) string {
	if r == EOF {
		return "end of input"
	}
	return fmt.Sprintf("'%c'", r)
}

// Consume skips whitespace and consumes ch, failing on anything else.
func (c *Cursor) Consume(ch rune) error {
	r, err := c.Next()
	if err != nil {
		return err
	}
	if r != ch {
		return c.Errorf("expected '%c' but found %s", ch, describe(r))
	}
	_, err = c.Read()
	return err
}

// TryConsume skips whitespace and consumes ch if it is next.
func (c *Cursor) TryConsume(ch rune) (bool, error) {
	r, err := c.Next()
	if err != nil || r != ch {
		return false, err
	}
	_, err = c.Read()
	return true, err
}

// ReadString consumes a quoted string and returns its decoded contents.
func (c *Cursor) ReadString() (string, error) {
	if err := c.Consume('"'); err != nil {
		return "", err
	}
	var sb strings.Builder
	var high rune // pending high surrogate from a \u escape
	flush := func() {
		if high != 0 {
			sb.WriteRune(utf8.RuneError)
			high = 0
		}
	}
	for {
		r, err := c.Read()
		if err != nil {
			return "", err
		}
		switch {
		case r == EOF:
			return "", c.Errorf("unexpected end of input in string")
		case r == '"':
			flush()
			return sb.String(), nil
		case r < 0x20:
			return "", c.Errorf("unescaped control character %#x in string", r)
		case r == '\\':
			e, err := c.readEscape()
			if err != nil {
				return "", err
			}
			if high != 0 {
				if d := utf16.DecodeRune(high, e); d != utf8.RuneError {
					sb.WriteRune(d)
					high = 0
					continue
				}
				flush()
			}
			if e >= 0xD800 && e < 0xDC00 {
				high = e
				continue
			}
			sb.WriteRune(e)
		default:
			flush()
			sb.WriteRune(r)
		}
	}
}

// readEscape decodes the character after a backslash. Unrecognized escapes stand
// for the escaped character itself.
func (c *Cursor) readEscape() (rune, error) {
	r, err := c.Read()
	if err != nil {
		return 0, err
	}
	switch r {
	case EOF:
		return 0, c.Errorf("unexpected end of input in string")
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'u':
		return c.readHex4()
	}
	return r, nil
}

func (c *Cursor) readHex4() (rune, error) {
	var v rune
	for i := 0; i < 4; i++ {
		r, err := c.Read()
		if err != nil {
			return 0, err
		}
		var d rune
		switch {
		case r >= '0' && r <= '9':
			d = r - '0'
		case r >= 'a' && r <= 'f':
			d = r - 'a' + 10
		case r >= 'A' && r <= 'F':
			d = r - 'A' + 10
		default:
			return 0, c.Errorf("invalid hex digit %s in \\u escape", describe(r))
		}
		v = v<<4 | d
	}
	return v, nil
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func (c *Cursor) readDigits(sb *strings.Builder) error {
	n := 0
	for {
		r, err := c.Peek()
		if err != nil {
			return err
		}
		if !isDigit(r) {
			break
		}
		_, _ = c.Read()
		sb.WriteRune(r)
		n++
	}
	if n == 0 {
		r, _ := c.Peek()
		return c.Errorf("expected digit but found %s", describe(r))
	}
	return nil
}

// ReadNumber consumes a number and returns its lexeme unchanged.
func (c *Cursor) ReadNumber() (string, error) {
	if err := c.SkipWhitespace(); err != nil {
		return "", err
	}
	var sb strings.Builder
	if r, err := c.Peek(); err != nil {
		return "", err
	} else if r == '-' {
		_, _ = c.Read()
		sb.WriteRune(r)
	}
	if err := c.readDigits(&sb); err != nil {
		return "", err
	}
	if r, err := c.Peek(); err != nil {
		return "", err
	} else if r == '.' {
		_, _ = c.Read()
		sb.WriteRune(r)
		if err := c.readDigits(&sb); err != nil {
			return "", err
		}
	}
	r, err := c.Peek()
	if err != nil {
		return "", err
	}
	if r != 'e' && r != 'E' {
		return sb.String(), nil
	}
	_, _ = c.Read()
	sb.WriteRune(r)
	if r, err = c.Peek(); err != nil {
		return "", err
	} else if r == '+' || r == '-' {
		_, _ = c.Read()
		sb.WriteRune(r)
	}
	if err := c.readDigits(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (c *Cursor) readKeyword(word string) error {
	for _, want := range word {
		r, err := c.Read()
		if err != nil {
			return err
		}
		if r != want {
			return c.Errorf("unexpected %s while reading %q", describe(r), word)
		}
	}
	return nil
}

// Kind classifies the JSON value read by ReadVariant.
type Kind int

const (
	Null Kind = iota
	True
	False
	String
	Number
	Object
	Array
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case True:
		return "true"
	case False:
		return "false"
	case String:
		return "string"
	case Number:
		return "number"
	case Object:
		return "object"
	case Array:
		return "array"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ReadVariant reads any JSON value. Strings come back as string, numbers as
// jsoniter.Number, arrays as []interface{}; objects are skipped and return nil.
func (c *Cursor) ReadVariant() (Kind, interface{}, error) {
	return c.readVariant(0)
}

func (c *Cursor) readVariant(depth int) (Kind, interface{}, error) {
	r, err := c.Next()
	if err != nil {
		return Null, nil, err
	}
	switch {
	case r == 'n':
		return Null, nil, c.readKeyword("null")
	case r == 't':
		return True, true, c.readKeyword("true")
	case r == 'f':
		return False, false, c.readKeyword("false")
	case r == '"':
		s, err := c.ReadString()
		return String, s, err
	case r == '-' || isDigit(r):
		n, err := c.ReadNumber()
		return Number, jsoniter.Number(n), err
	case r == '{' || r == '[':
		if depth >= c.maxDepth {
			return Null, nil, errors.Wrapf(serialization.ErrRecursionLimitExceeded,
				"json nesting exceeds %d at (%d,%d)", c.maxDepth, c.line, c.column)
		}
		if r == '{' {
			return Object, nil, c.skipObject(depth)
		}
		items, err := c.readArray(depth)
		return Array, items, err
	}
	return Null, nil, c.Errorf("unexpected %s, expected a value", describe(r))
}

func (c *Cursor) skipObject(depth int) error {
	if err := c.Consume('{'); err != nil {
		return err
	}
	if ok, err := c.TryConsume('}'); err != nil || ok {
		return err
	}
	for {
		if _, err := c.ReadString(); err != nil {
			return err
		}
		if err := c.Consume(':'); err != nil {
			return err
		}
		if _, _, err := c.readVariant(depth + 1); err != nil {
			return err
		}
		more, err := c.TryConsume(',')
		if err != nil {
			return err
		}
		if !more {
			return c.Consume('}')
		}
	}
}

func (c *Cursor) readArray(depth int) ([]interface{}, error) {
	if err := c.Consume('['); err != nil {
		return nil, err
	}
	items := []interface{}{}
	if ok, err := c.TryConsume(']'); err != nil || ok {
		return items, err
	}
	for {
		_, v, err := c.readVariant(depth + 1)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		more, err := c.TryConsume(',')
		if err != nil {
			return nil, err
		}
		if !more {
			return items, c.Consume(']')
		}
	}
}
