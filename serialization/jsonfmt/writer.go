package jsonfmt

import (
	"io"
	"math"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"

	"github.com/anirudhraja/protoserial/schema"
	"github.com/anirudhraja/protoserial/serialization"
)

// WriterOptions controls JSON output.
type WriterOptions struct {
	// Indent is the number of spaces per nesting level; zero writes compact JSON.
	Indent int
	// EmitEmptyArrays writes [] for empty repeated fields instead of omitting them.
	EmitEmptyArrays bool
	// EnumsAsNumbers writes enums by number even when the name is known.
	EnumsAsNumbers bool
}

type scope struct {
	array bool
	count int
}

// writer is the JSON WriterBackend. It streams through a jsoniter.Stream and flushes
// when the root message closes.
type writer struct {
	serialization.TextWriter
	stream *jsoniter.Stream
	opts   WriterOptions
	scopes []scope
}

// NewWriter returns a Writer emitting JSON to out.
func NewWriter(out io.Writer, wopts WriterOptions, opts serialization.Options) *serialization.Writer {
	cfg := jsoniter.Config{IndentionStep: wopts.Indent}.Froze()
	b := &writer{stream: jsoniter.NewStream(cfg, out, 512), opts: wopts}
	b.Sink = b
	return serialization.NewWriter(b, opts)
}

func (w *writer) WritesEmptyArrays() bool { return w.opts.EmitEmptyArrays }

func (w *writer) top() *scope {
	return &w.scopes[len(w.scopes)-1]
}

// member writes the separator and, inside objects, the field name.
func (w *writer) member(id serialization.FieldID) error {
	if len(w.scopes) == 0 {
		return errors.Wrap(serialization.ErrNoOpenMessage, "json field written outside an object")
	}
	s := w.top()
	if !s.array && id.Name == "" {
		return errors.Newf("json field %d has no name", id.Number)
	}
	if s.count > 0 {
		w.stream.WriteMore()
	}
	s.count++
	if !s.array {
		w.stream.WriteObjectField(id.Name)
	}
	return nil
}

func (w *writer) openObject() {
	w.stream.WriteObjectStart()
	w.scopes = append(w.scopes, scope{})
}

func (w *writer) closeScope(array bool) error {
	if len(w.scopes) == 0 || w.top().array != array {
		return errors.Wrap(serialization.ErrUnbalancedMessage, "json scope mismatch")
	}
	w.scopes = w.scopes[:len(w.scopes)-1]
	if array {
		w.stream.WriteArrayEnd()
	} else {
		w.stream.WriteObjectEnd()
	}
	return w.stream.Error
}

func (w *writer) WriteMessageStart() error {
	w.openObject()
	return nil
}

func (w *writer) WriteMessageEnd() error {
	if err := w.closeScope(false); err != nil {
		return err
	}
	if len(w.scopes) == 0 {
		return w.stream.Flush()
	}
	return nil
}

func (w *writer) WriteAsText(id serialization.FieldID, text string, v serialization.FieldValue) error {
	if err := w.member(id); err != nil {
		return err
	}
	switch v.Kind() {
	case schema.KindString, schema.KindBytes:
		w.stream.WriteString(text)
	case schema.KindFloat, schema.KindDouble:
		if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			w.stream.WriteString(text)
		} else {
			w.stream.WriteRaw(text)
		}
	case schema.KindEnum:
		if e := v.Enum(); e.Name != "" && !(w.opts.EnumsAsNumbers && e.HasNumber) {
			w.stream.WriteString(e.Name)
		} else {
			w.stream.WriteInt32(e.Number)
		}
	default:
		w.stream.WriteRaw(text)
	}
	return w.stream.Error
}

func (w *writer) BeginMessage(id serialization.FieldID) (serialization.WriterBackend, error) {
	if err := w.member(id); err != nil {
		return nil, err
	}
	w.openObject()
	return w, nil
}

func (w *writer) EndMessage(serialization.FieldID, serialization.WriterBackend) error {
	return w.closeScope(false)
}

func (w *writer) BeginArray(id serialization.FieldID, _ schema.FieldKind, _ bool, _ int) error {
	if err := w.member(id); err != nil {
		return err
	}
	w.stream.WriteArrayStart()
	w.scopes = append(w.scopes, scope{array: true})
	return nil
}

func (w *writer) EndArray(serialization.FieldID, schema.FieldKind, bool) error {
	return w.closeScope(true)
}
