// Package xmlfmt reads and writes messages as XML, one element per field.
//
// Scalars become text elements. Nested messages become elements holding their own
// fields. Repeated fields repeat the field element, or, with nested arrays enabled,
// become a single element with one <item> child per value.
package xmlfmt

import (
	"encoding/xml"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/anirudhraja/protoserial/schema"
	"github.com/anirudhraja/protoserial/serialization"
)

// DefaultRootElement names the outermost element when WriterOptions leaves it empty.
const DefaultRootElement = "root"

// itemElement names the children of a nested array.
const itemElement = "item"

// ErrInvalidOptions reports a WriterOptions combination NewWriter refuses.
var ErrInvalidOptions = errors.New("invalid xml writer options")

// WriterOptions controls XML output.
type WriterOptions struct {
	// RootElement names the outermost element. Empty means DefaultRootElement.
	RootElement string
	// OutputEnumValues adds a value="N" attribute with the number to enum elements.
	OutputEnumValues bool
	// OutputNestedArrays writes a repeated field as one element with <item> children.
	OutputNestedArrays bool
	// OutputJSONTypes adds type="object|array|number|boolean" attributes so the
	// document maps losslessly onto JSON. It requires OutputNestedArrays.
	OutputJSONTypes bool
	// Indent is the number of spaces per nesting level; zero writes one line.
	Indent int
}

// JSONTypesOptions returns options producing the JSON-compatible layout.
func JSONTypesOptions() WriterOptions {
	return WriterOptions{OutputNestedArrays: true, OutputJSONTypes: true}
}

func (o WriterOptions) validate() error {
	if o.OutputJSONTypes && !o.OutputNestedArrays {
		return errors.Wrap(ErrInvalidOptions, "json types require nested arrays")
	}
	if o.Indent < 0 {
		return errors.Wrapf(ErrInvalidOptions, "negative indent %d", o.Indent)
	}
	return nil
}

type scope struct {
	name  string
	array bool
}

// writer is the XML WriterBackend. Every nested message shares the encoder, so one
// instance serves all depths.
type writer struct {
	serialization.TextWriter
	enc    *xml.Encoder
	opts   WriterOptions
	scopes []scope
	open   int // message elements opened by WriteMessageStart
}

var (
	_ serialization.ArrayWriter = (*writer)(nil)
	_ serialization.TextSink    = (*writer)(nil)
)

// NewWriter returns a Writer emitting XML to out. It fails when wopts asks for JSON
// types without nested arrays.
func NewWriter(out io.Writer, wopts WriterOptions, opts serialization.Options) (*serialization.Writer, error) {
	if err := wopts.validate(); err != nil {
		return nil, err
	}
	if wopts.RootElement == "" {
		wopts.RootElement = DefaultRootElement
	}
	enc := xml.NewEncoder(out)
	if wopts.Indent > 0 {
		enc.Indent("", strings.Repeat(" ", wopts.Indent))
	}
	b := &writer{enc: enc, opts: wopts}
	b.Sink = b
	return serialization.NewWriter(b, opts), nil
}

func (w *writer) inArray() bool {
	return len(w.scopes) > 0 && w.scopes[len(w.scopes)-1].array
}

// elementName picks the element for field id: the field name, or item inside a
// nested array.
func (w *writer) elementName(id serialization.FieldID) (string, error) {
	if w.opts.OutputNestedArrays && w.inArray() {
		return itemElement, nil
	}
	if id.Name == "" {
		return "", errors.Newf("xml field %d has no name", id.Number)
	}
	return id.Name, nil
}

func (w *writer) start(name string, attrs ...xml.Attr) error {
	if len(w.scopes) == 0 && w.open == 0 {
		return errors.Wrap(serialization.ErrNoOpenMessage, "xml element written outside the root")
	}
	return w.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *writer) end(name string) error {
	return w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *writer) typeAttr(t string) []xml.Attr {
	if !w.opts.OutputJSONTypes {
		return nil
	}
	return []xml.Attr{{Name: xml.Name{Local: "type"}, Value: t}}
}

// WriteMessageStart opens the root element. Each call opens one more element and
// must be paired with WriteMessageEnd.
func (w *writer) WriteMessageStart() error {
	if err := w.enc.EncodeToken(xml.StartElement{
		Name: xml.Name{Local: w.opts.RootElement},
		Attr: w.typeAttr("object"),
	}); err != nil {
		return err
	}
	w.open++
	return nil
}

func (w *writer) WriteMessageEnd() error {
	if w.open == 0 {
		return errors.Wrap(serialization.ErrNoOpenMessage, "no open xml element")
	}
	if len(w.scopes) > 0 {
		return errors.Wrapf(serialization.ErrUnbalancedMessage, "element %s still open", w.scopes[len(w.scopes)-1].name)
	}
	w.open--
	if err := w.end(w.opts.RootElement); err != nil {
		return err
	}
	if w.open == 0 {
		return w.enc.Flush()
	}
	return nil
}

// WriteAsText writes one scalar element.
func (w *writer) WriteAsText(id serialization.FieldID, text string, v serialization.FieldValue) error {
	name, err := w.elementName(id)
	if err != nil {
		return err
	}
	var attrs []xml.Attr
	switch k := v.Kind(); {
	case k == schema.KindBool:
		attrs = w.typeAttr("boolean")
	case k == schema.KindFloat || k == schema.KindDouble:
		if f := v.Float(); !math.IsNaN(f) && !math.IsInf(f, 0) {
			attrs = w.typeAttr("number")
		}
	case k == schema.KindEnum:
		e := v.Enum()
		if e.Name == "" {
			attrs = w.typeAttr("number")
		}
		if w.opts.OutputEnumValues && e.HasNumber {
			attrs = append(attrs, xml.Attr{Name: xml.Name{Local: "value"}, Value: strconv.FormatInt(int64(e.Number), 10)})
		}
	case k != schema.KindString && k != schema.KindBytes:
		attrs = w.typeAttr("number")
	}
	if err := w.start(name, attrs...); err != nil {
		return err
	}
	if text != "" {
		if err := w.enc.EncodeToken(xml.CharData(text)); err != nil {
			return err
		}
	}
	return w.end(name)
}

func (w *writer) BeginMessage(id serialization.FieldID) (serialization.WriterBackend, error) {
	name, err := w.elementName(id)
	if err != nil {
		return nil, err
	}
	if err := w.start(name, w.typeAttr("object")...); err != nil {
		return nil, err
	}
	w.scopes = append(w.scopes, scope{name: name})
	return w, nil
}

func (w *writer) EndMessage(serialization.FieldID, serialization.WriterBackend) error {
	return w.closeScope(false)
}

func (w *writer) closeScope(array bool) error {
	if len(w.scopes) == 0 || w.scopes[len(w.scopes)-1].array != array {
		return errors.Wrap(serialization.ErrUnbalancedMessage, "xml scope mismatch")
	}
	s := w.scopes[len(w.scopes)-1]
	w.scopes = w.scopes[:len(w.scopes)-1]
	return w.end(s.name)
}

// BeginArray opens the wrapping element in nested-array mode. Otherwise repeated
// values are written as adjacent elements and the call does nothing.
func (w *writer) BeginArray(id serialization.FieldID, _ schema.FieldKind, _ bool, _ int) error {
	if !w.opts.OutputNestedArrays {
		return nil
	}
	name, err := w.elementName(id)
	if err != nil {
		return err
	}
	if err := w.start(name, w.typeAttr("array")...); err != nil {
		return err
	}
	w.scopes = append(w.scopes, scope{name: name, array: true})
	return nil
}

func (w *writer) EndArray(serialization.FieldID, schema.FieldKind, bool) error {
	if !w.opts.OutputNestedArrays {
		return nil
	}
	return w.closeScope(true)
}
