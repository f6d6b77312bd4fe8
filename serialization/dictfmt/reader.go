package dictfmt

import (
	"reflect"

	"github.com/anirudhraja/protoserial/schema"
	"github.com/anirudhraja/protoserial/serialization"
)

// reader walks one dictionary. Each nested dictionary gets its own reader.
type reader struct {
	dict    *Dictionary
	keys    []string
	pos     int
	pending bool
	current serialization.FieldID
	value   interface{}
}

var _ serialization.ArrayReader = (*reader)(nil)

// NewReader returns a Reader over d.
func NewReader(d *Dictionary, opts serialization.Options) *serialization.Reader {
	return serialization.NewReader(newReader(d), opts)
}

// NewMapReader returns a Reader over a plain map, visiting keys in sorted order.
func NewMapReader(m map[string]interface{}, opts serialization.Options) *serialization.Reader {
	return NewReader(FromMap(m), opts)
}

func newReader(d *Dictionary) *reader {
	return &reader{dict: d, keys: d.Keys()}
}

func (r *reader) ReadMessageStart() error { return nil }

func (r *reader) ReadMessageEnd() error { return nil }

// PeekNext is idempotent until the reported field is read or skipped.
func (r *reader) PeekNext() (serialization.FieldID, bool, error) {
	if r.pending {
		return r.current, true, nil
	}
	if r.pos >= len(r.keys) {
		return serialization.FieldID{}, false, nil
	}
	key := r.keys[r.pos]
	r.pos++
	r.current = serialization.FieldID{Name: key}
	r.value, _ = r.dict.Get(key)
	r.pending = true
	return r.current, true, nil
}

func (r *reader) Skip() error {
	r.pending = false
	return nil
}

// take consumes the current value. ok=false means the value was nil.
func (r *reader) take() (interface{}, bool) {
	r.pending = false
	return r.value, r.value != nil
}

func (r *reader) read(kind schema.FieldKind) (serialization.FieldValue, bool, error) {
	v, ok := r.take()
	if !ok {
		return serialization.FieldValue{}, false, nil
	}
	fv, err := serialization.ValueOf(kind, v)
	if err != nil {
		return serialization.FieldValue{}, false, err
	}
	return fv, true, nil
}

func (r *reader) ReadBool() (bool, bool, error) {
	v, ok, err := r.read(schema.KindBool)
	return v.Bool(), ok, err
}

func (r *reader) ReadInt32(kind schema.FieldKind) (int32, bool, error) {
	v, ok, err := r.read(kind)
	return int32(v.Int()), ok, err
}

func (r *reader) ReadInt64(kind schema.FieldKind) (int64, bool, error) {
	v, ok, err := r.read(kind)
	return v.Int(), ok, err
}

func (r *reader) ReadUint32(kind schema.FieldKind) (uint32, bool, error) {
	v, ok, err := r.read(kind)
	return uint32(v.Uint()), ok, err
}

func (r *reader) ReadUint64(kind schema.FieldKind) (uint64, bool, error) {
	v, ok, err := r.read(kind)
	return v.Uint(), ok, err
}

func (r *reader) ReadFloat() (float32, bool, error) {
	v, ok, err := r.read(schema.KindFloat)
	return float32(v.Float()), ok, err
}

func (r *reader) ReadDouble() (float64, bool, error) {
	v, ok, err := r.read(schema.KindDouble)
	return v.Float(), ok, err
}

func (r *reader) ReadString() (string, bool, error) {
	v, ok, err := r.read(schema.KindString)
	return v.String(), ok, err
}

// ReadBytes expects raw bytes. Strings are taken as their UTF-8 bytes.
func (r *reader) ReadBytes() ([]byte, bool, error) {
	v, ok := r.take()
	if !ok {
		return nil, false, nil
	}
	switch t := v.(type) {
	case []byte:
		return t, true, nil
	case string:
		return []byte(t), true, nil
	}
	return nil, false, serialization.CoercionErrorf("expected bytes for %s, got %T", r.current, v)
}

func (r *reader) ReadEnum() (serialization.EnumValue, bool, error) {
	v, ok, err := r.read(schema.KindEnum)
	return v.Enum(), ok, err
}

func (r *reader) BeginMessage() (serialization.ReaderBackend, bool, error) {
	v, ok := r.take()
	if !ok {
		return nil, false, nil
	}
	switch t := v.(type) {
	case *Dictionary:
		return newReader(t), true, nil
	case map[string]interface{}:
		return newReader(FromMap(t)), true, nil
	}
	return nil, false, serialization.CoercionErrorf("expected a dictionary for %s, got %T", r.current, v)
}

func (r *reader) EndMessage(serialization.ReaderBackend) error { return nil }

// ReadArrayItems presents each slice element as the current value in turn. A nil
// value reads as an empty array; a non-slice value reads as one element.
func (r *reader) ReadArrayItems(id serialization.FieldID, kind schema.FieldKind, item func() error) error {
	v, ok := r.take()
	if !ok {
		return nil
	}
	rv := reflect.ValueOf(v)
	if (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || (kind == schema.KindBytes && rv.Type().Elem().Kind() == reflect.Uint8) {
		r.value = v
		return item()
	}
	for i := 0; i < rv.Len(); i++ {
		r.value = rv.Index(i).Interface()
		if err := item(); err != nil {
			return err
		}
	}
	r.pending = false
	return nil
}
