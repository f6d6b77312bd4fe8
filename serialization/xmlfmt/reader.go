package xmlfmt

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/anirudhraja/protoserial/schema"
	"github.com/anirudhraja/protoserial/serialization"
)

// ReaderOptions controls XML input.
type ReaderOptions struct {
	// ReadNestedArrays expects repeated fields as one element with <item> children,
	// the layout WriterOptions.OutputNestedArrays produces. Otherwise repeated values
	// are adjacent elements of the same name.
	ReadNestedArrays bool
}

// reader is the XML ReaderBackend. Like the writer, one instance serves every
// depth; open counts the elements entered as messages.
type reader struct {
	serialization.TextReader
	dec     *xml.Decoder
	peeked  xml.Token
	pending bool
	current xml.StartElement
	open    int
}

// nestedReader adds bracketed array reading for ReadNestedArrays.
type nestedReader struct {
	*reader
}

var (
	_ serialization.TextSource  = (*reader)(nil)
	_ serialization.ArrayReader = nestedReader{}
)

// NewReader returns a Reader over an XML document held in memory.
func NewReader(data []byte, ropts ReaderOptions, opts serialization.Options) *serialization.Reader {
	return NewStreamReader(bytes.NewReader(data), ropts, opts)
}

// NewStreamReader returns a Reader pulling XML from in.
func NewStreamReader(in io.Reader, ropts ReaderOptions, opts serialization.Options) *serialization.Reader {
	b := &reader{dec: xml.NewDecoder(in)}
	b.Source = b
	if ropts.ReadNestedArrays {
		return serialization.NewReader(nestedReader{b}, opts)
	}
	return serialization.NewReader(b, opts)
}

func (r *reader) syntaxError(format string, args ...interface{}) error {
	line, col := r.dec.InputPos()
	return &serialization.SyntaxError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

// wrapDecode turns decoder failures into positioned syntax errors.
func (r *reader) wrapDecode(err error) error {
	if err == io.EOF {
		return r.syntaxError("unexpected end of document")
	}
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return r.syntaxError("%s", se.Msg)
	}
	return err
}

func (r *reader) token() (xml.Token, error) {
	if r.peeked != nil {
		t := r.peeked
		r.peeked = nil
		return t, nil
	}
	t, err := r.dec.Token()
	if err != nil {
		return nil, r.wrapDecode(err)
	}
	return t, nil
}

// next returns the next element boundary, skipping whitespace, comments and
// processing instructions.
func (r *reader) next() (xml.Token, error) {
	for {
		t, err := r.token()
		if err != nil {
			return nil, err
		}
		switch v := t.(type) {
		case xml.StartElement, xml.EndElement:
			return t, nil
		case xml.CharData:
			if len(bytes.TrimSpace(v)) > 0 {
				return nil, r.syntaxError("unexpected text %q between elements", strings.TrimSpace(string(v)))
			}
		}
	}
}

func (r *reader) peek() (xml.Token, error) {
	t, err := r.next()
	if err != nil {
		return nil, err
	}
	r.peeked = xml.CopyToken(t)
	return r.peeked, nil
}

// ReadMessageStart enters the root element, whatever its name.
func (r *reader) ReadMessageStart() error {
	t, err := r.next()
	if err != nil {
		return err
	}
	if _, ok := t.(xml.StartElement); !ok {
		return r.syntaxError("expected a root element")
	}
	r.open++
	return nil
}

func (r *reader) ReadMessageEnd() error {
	return r.close()
}

func (r *reader) close() error {
	if r.open == 0 {
		return errors.Wrap(serialization.ErrUnbalancedMessage, "no open xml element")
	}
	t, err := r.next()
	if err != nil {
		return err
	}
	if start, ok := t.(xml.StartElement); ok {
		return r.syntaxError("unexpected element <%s>", start.Name.Local)
	}
	r.open--
	return nil
}

// PeekNext enters the next child element and reports its name. The element's end
// stays unread until the value is read or skipped.
func (r *reader) PeekNext() (serialization.FieldID, bool, error) {
	if r.pending {
		return serialization.FieldID{Name: r.current.Name.Local}, true, nil
	}
	t, err := r.peek()
	if err != nil {
		return serialization.FieldID{}, false, err
	}
	start, ok := t.(xml.StartElement)
	if !ok {
		return serialization.FieldID{}, false, nil
	}
	r.peeked = nil
	r.current = start
	r.pending = true
	return serialization.FieldID{Name: start.Name.Local}, true, nil
}

func (r *reader) Skip() error {
	r.pending = false
	return r.wrapDecode(r.dec.Skip())
}

// ReadAsText collects the text of the current element and consumes its end. An
// empty element reads as null for every kind but string and bytes.
func (r *reader) ReadAsText(kind schema.FieldKind) (string, bool, error) {
	r.pending = false
	var sb strings.Builder
	for {
		t, err := r.token()
		if err != nil {
			return "", false, err
		}
		switch v := t.(type) {
		case xml.CharData:
			sb.Write(v)
		case xml.StartElement:
			return "", false, serialization.CoercionErrorf("expected text for %s, found element <%s>", r.current.Name.Local, v.Name.Local)
		case xml.EndElement:
			s := sb.String()
			if s == "" && kind != schema.KindString && kind != schema.KindBytes {
				return "", false, nil
			}
			return s, true, nil
		}
	}
}

func (r *reader) BeginMessage() (serialization.ReaderBackend, bool, error) {
	r.pending = false
	r.open++
	return r, true, nil
}

func (r *reader) EndMessage(serialization.ReaderBackend) error {
	return r.close()
}

func (n nestedReader) BeginMessage() (serialization.ReaderBackend, bool, error) {
	_, ok, err := n.reader.BeginMessage()
	return n, ok, err
}

// ReadArrayItems walks the <item> children of the current element.
func (n nestedReader) ReadArrayItems(_ serialization.FieldID, _ schema.FieldKind, item func() error) error {
	r := n.reader
	r.pending = false
	for {
		t, err := r.next()
		if err != nil {
			return err
		}
		start, ok := t.(xml.StartElement)
		if !ok {
			return nil
		}
		if start.Name.Local != itemElement {
			return r.syntaxError("expected <%s>, found <%s>", itemElement, start.Name.Local)
		}
		r.current = start
		if err := item(); err != nil {
			return err
		}
	}
}
