package dictfmt

import (
	"github.com/anirudhraja/protoserial/schema"
	"github.com/anirudhraja/protoserial/serialization"
)

// Writer is a serialization.Writer that collects its output in a Dictionary.
type Writer struct {
	*serialization.Writer
	backend *writer
}

// NewWriter returns a Writer that fills a fresh Dictionary.
func NewWriter(opts serialization.Options) *Writer {
	b := newWriter()
	return &Writer{Writer: serialization.NewWriter(b, opts), backend: b}
}

// Dictionary returns the collected output.
func (w *Writer) Dictionary() *Dictionary { return w.backend.dict }

// writer fills one dictionary; nested messages get their own writer whose
// dictionary is stored in the parent on EndMessage.
type writer struct {
	dict  *Dictionary
	array []interface{}
	open  bool // an array is being collected
}

var _ serialization.ArrayWriter = (*writer)(nil)

func newWriter() *writer {
	return &writer{dict: NewDictionary()}
}

func key(id serialization.FieldID) string {
	return id.String()
}

func (w *writer) put(id serialization.FieldID, v interface{}) {
	if w.open {
		w.array = append(w.array, v)
		return
	}
	w.dict.Set(key(id), v)
}

func (w *writer) WriteMessageStart() error { return nil }

func (w *writer) WriteMessageEnd() error { return nil }

// WriteScalar stores the value's plain Go form; bytes stay raw.
func (w *writer) WriteScalar(id serialization.FieldID, v serialization.FieldValue) error {
	w.put(id, v.Interface())
	return nil
}

// WriteEnum stores the enum number.
func (w *writer) WriteEnum(id serialization.FieldID, e serialization.EnumValue) error {
	if !e.HasNumber {
		return serialization.CoercionErrorf("enum %s for %s has no number", e.Name, id)
	}
	w.put(id, e.Number)
	return nil
}

func (w *writer) BeginMessage(serialization.FieldID) (serialization.WriterBackend, error) {
	return newWriter(), nil
}

func (w *writer) EndMessage(id serialization.FieldID, child serialization.WriterBackend) error {
	w.put(id, child.(*writer).dict)
	return nil
}

func (w *writer) BeginArray(_ serialization.FieldID, _ schema.FieldKind, _ bool, count int) error {
	w.open = true
	w.array = make([]interface{}, 0, count)
	return nil
}

func (w *writer) EndArray(id serialization.FieldID, _ schema.FieldKind, _ bool) error {
	items := w.array
	w.open, w.array = false, nil
	w.dict.Set(key(id), items)
	return nil
}
