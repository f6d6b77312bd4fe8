package wirefmt

import (
	"github.com/cockroachdb/errors"

	"github.com/anirudhraja/protoserial/schema"
	"github.com/anirudhraja/protoserial/serialization"
	"github.com/anirudhraja/protoserial/wire"
)

// Writer is a serialization.Writer that encodes into an in-memory buffer.
type Writer struct {
	*serialization.Writer
	backend *writer
}

// NewWriter returns a Writer encoding into a fresh buffer.
func NewWriter(opts serialization.Options) *Writer {
	b := &writer{enc: wire.NewEncoder()}
	return &Writer{Writer: serialization.NewWriter(b, opts), backend: b}
}

// Bytes returns the encoded message.
func (w *Writer) Bytes() []byte { return w.backend.enc.Bytes() }

// writer encodes one message body. Nested messages are encoded into a child
// buffer and spliced into the parent behind a length prefix; groups write straight
// into the parent between start and end markers.
type writer struct {
	enc    *wire.Encoder
	packed *wire.Encoder // set while a packed array is open
}

var (
	_ serialization.ArrayWriter        = (*writer)(nil)
	_ serialization.GroupWriter        = (*writer)(nil)
	_ serialization.UnknownFieldWriter = (*writer)(nil)
)

func (w *writer) WriteMessageStart() error { return nil }

func (w *writer) WriteMessageEnd() error { return nil }

func fieldNumber(id serialization.FieldID) (wire.FieldNumber, error) {
	if id.Number <= 0 {
		return 0, errors.Wrapf(wire.ErrFieldNumber, "field %q has no number", id.Name)
	}
	return wire.FieldNumber(id.Number), nil
}

// target returns the encoder for the next value, writing the tag unless the value
// belongs to a packed run.
func (w *writer) target(id serialization.FieldID, kind schema.FieldKind) (*wire.Encoder, error) {
	if w.packed != nil {
		return w.packed, nil
	}
	num, err := fieldNumber(id)
	if err != nil {
		return nil, err
	}
	w.enc.EncodeTag(num, wire.WireTypeFor(kind))
	return w.enc, nil
}

func (w *writer) WriteScalar(id serialization.FieldID, v serialization.FieldValue) error {
	e, err := w.target(id, v.Kind())
	if err != nil {
		return err
	}
	switch v.Kind() {
	case schema.KindBool:
		e.EncodeBool(v.Bool())
	case schema.KindInt32:
		e.EncodeInt32(int32(v.Int()))
	case schema.KindSint32:
		e.EncodeSint32(int32(v.Int()))
	case schema.KindSfixed32:
		e.EncodeFixed32(uint32(int32(v.Int())))
	case schema.KindInt64:
		e.EncodeInt64(v.Int())
	case schema.KindSint64:
		e.EncodeSint64(v.Int())
	case schema.KindSfixed64:
		e.EncodeFixed64(uint64(v.Int()))
	case schema.KindUint32:
		e.EncodeUint32(uint32(v.Uint()))
	case schema.KindFixed32:
		e.EncodeFixed32(uint32(v.Uint()))
	case schema.KindUint64:
		e.EncodeVarint(v.Uint())
	case schema.KindFixed64:
		e.EncodeFixed64(v.Uint())
	case schema.KindFloat:
		e.EncodeFloat32(float32(v.Float()))
	case schema.KindDouble:
		e.EncodeFloat64(v.Float())
	case schema.KindString:
		e.EncodeString(v.String())
	case schema.KindBytes:
		e.EncodeBytes(v.Bytes())
	default:
		return errors.AssertionFailedf("WriteScalar called with %s", v.Kind())
	}
	return nil
}

// WriteEnum writes the enum number. A value known only by name cannot be encoded.
func (w *writer) WriteEnum(id serialization.FieldID, e serialization.EnumValue) error {
	if !e.HasNumber {
		return serialization.CoercionErrorf("enum %s for field %s has no number", e.Name, id)
	}
	enc, err := w.target(id, schema.KindEnum)
	if err != nil {
		return err
	}
	enc.EncodeInt32(e.Number)
	return nil
}

func (w *writer) BeginMessage(id serialization.FieldID) (serialization.WriterBackend, error) {
	if _, err := fieldNumber(id); err != nil {
		return nil, err
	}
	return &writer{enc: wire.NewEncoder()}, nil
}

func (w *writer) EndMessage(id serialization.FieldID, child serialization.WriterBackend) error {
	num, err := fieldNumber(id)
	if err != nil {
		return err
	}
	w.enc.EncodeTag(num, wire.WireBytes)
	w.enc.EncodeBytes(child.(*writer).enc.Bytes())
	return nil
}

func (w *writer) BeginGroup(id serialization.FieldID) (serialization.WriterBackend, error) {
	num, err := fieldNumber(id)
	if err != nil {
		return nil, err
	}
	w.enc.EncodeTag(num, wire.WireStartGroup)
	return &writer{enc: w.enc}, nil
}

func (w *writer) EndGroup(id serialization.FieldID, _ serialization.WriterBackend) error {
	num, err := fieldNumber(id)
	if err != nil {
		return err
	}
	w.enc.EncodeTag(num, wire.WireEndGroup)
	return nil
}

// BeginArray starts collecting a packed run. Unpacked arrays need no framing.
func (w *writer) BeginArray(_ serialization.FieldID, _ schema.FieldKind, packed bool, _ int) error {
	if packed {
		w.packed = wire.NewEncoder()
	}
	return nil
}

func (w *writer) EndArray(id serialization.FieldID, _ schema.FieldKind, packed bool) error {
	if !packed {
		return nil
	}
	run := w.packed
	w.packed = nil
	num, err := fieldNumber(id)
	if err != nil {
		return err
	}
	w.enc.EncodeTag(num, wire.WireBytes)
	w.enc.EncodeBytes(run.Bytes())
	return nil
}

// WriteUnknownField replays a captured field verbatim.
func (w *writer) WriteUnknownField(f wire.UnknownField) error {
	w.enc.EncodeRaw(f.Raw)
	return nil
}
