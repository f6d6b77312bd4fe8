package serialization

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/anirudhraja/protoserial/schema"
	"github.com/anirudhraja/protoserial/wire"
)

// Writer encodes one message graph into a WriterBackend. Like Reader, each nested
// message is written by a child Writer one level deeper.
type Writer struct {
	backend WriterBackend
	opts    Options
	depth   int
	open    int
}

// NewWriter binds a Writer to backend.
func NewWriter(backend WriterBackend, opts Options) *Writer {
	return &Writer{backend: backend, opts: opts.normalized()}
}

func (w *Writer) child(b WriterBackend) *Writer {
	return &Writer{backend: b, opts: w.opts, depth: w.depth + 1}
}

// Backend returns the backend the Writer is bound to.
func (w *Writer) Backend() WriterBackend { return w.backend }

// Depth returns the nesting depth of the message being written; the root is 0.
func (w *Writer) Depth() int { return w.depth }

// Logger returns the Writer's logger.
func (w *Writer) Logger() *zap.Logger { return w.opts.Logger }

func (w *Writer) WriteMessageStart() error {
	if err := w.backend.WriteMessageStart(); err != nil {
		return err
	}
	w.open++
	return nil
}

func (w *Writer) WriteMessageEnd() error {
	if w.open == 0 {
		return errors.Wrap(ErrNoOpenMessage, "WriteMessageEnd without WriteMessageStart")
	}
	w.open--
	return w.backend.WriteMessageEnd()
}

// WriteRoot writes m as a complete top-level message.
func (w *Writer) WriteRoot(m Message) error {
	if err := w.WriteMessageStart(); err != nil {
		return err
	}
	if err := m.WriteTo(w); err != nil {
		return err
	}
	return w.WriteMessageEnd()
}

// WriteField converts v to kind and writes it. Message and group kinds expect v to
// carry a built Message.
func (w *Writer) WriteField(kind schema.FieldKind, number int32, name string, v FieldValue) error {
	id := FieldID{Number: number, Name: name}
	return wrapWithField(w.writeField(kind, id, v), id.String())
}

func (w *Writer) writeField(kind schema.FieldKind, id FieldID, v FieldValue) error {
	_, err := visitKind[struct{}](kind, &writeVisitor{w: w, id: id, v: v})
	return err
}

func (w *Writer) WriteBool(number int32, name string, v bool) error {
	return w.WriteField(schema.KindBool, number, name, BoolValue(v))
}

func (w *Writer) WriteInt32(number int32, name string, v int32) error {
	return w.WriteField(schema.KindInt32, number, name, Int32Value(v))
}

func (w *Writer) WriteSint32(number int32, name string, v int32) error {
	return w.WriteField(schema.KindSint32, number, name, Int32Value(v))
}

func (w *Writer) WriteSfixed32(number int32, name string, v int32) error {
	return w.WriteField(schema.KindSfixed32, number, name, Int32Value(v))
}

func (w *Writer) WriteInt64(number int32, name string, v int64) error {
	return w.WriteField(schema.KindInt64, number, name, Int64Value(v))
}

func (w *Writer) WriteSint64(number int32, name string, v int64) error {
	return w.WriteField(schema.KindSint64, number, name, Int64Value(v))
}

func (w *Writer) WriteSfixed64(number int32, name string, v int64) error {
	return w.WriteField(schema.KindSfixed64, number, name, Int64Value(v))
}

func (w *Writer) WriteUint32(number int32, name string, v uint32) error {
	return w.WriteField(schema.KindUint32, number, name, Uint32Value(v))
}

func (w *Writer) WriteFixed32(number int32, name string, v uint32) error {
	return w.WriteField(schema.KindFixed32, number, name, Uint32Value(v))
}

func (w *Writer) WriteUint64(number int32, name string, v uint64) error {
	return w.WriteField(schema.KindUint64, number, name, Uint64Value(v))
}

func (w *Writer) WriteFixed64(number int32, name string, v uint64) error {
	return w.WriteField(schema.KindFixed64, number, name, Uint64Value(v))
}

func (w *Writer) WriteFloat(number int32, name string, v float32) error {
	return w.WriteField(schema.KindFloat, number, name, FloatValue(v))
}

func (w *Writer) WriteDouble(number int32, name string, v float64) error {
	return w.WriteField(schema.KindDouble, number, name, DoubleValue(v))
}

func (w *Writer) WriteString(number int32, name string, v string) error {
	return w.WriteField(schema.KindString, number, name, StringValue(v))
}

func (w *Writer) WriteBytes(number int32, name string, v []byte) error {
	return w.WriteField(schema.KindBytes, number, name, BytesValue(v))
}

func (w *Writer) WriteEnum(number int32, name string, v EnumValue) error {
	return w.WriteField(schema.KindEnum, number, name, EnumFieldValue(v))
}

func (w *Writer) WriteMessage(number int32, name string, m Message) error {
	return w.WriteField(schema.KindMessage, number, name, MessageValue(m))
}

func (w *Writer) WriteGroup(number int32, name string, m Message) error {
	return w.WriteField(schema.KindGroup, number, name, GroupValue(m))
}

// WriteArray writes every element of a repeated field. Empty arrays are omitted
// unless the backend asks for them.
func (w *Writer) WriteArray(kind schema.FieldKind, number int32, name string, values []FieldValue) error {
	id := FieldID{Number: number, Name: name}
	return wrapWithField(w.writeArray(kind, id, values, false), id.String())
}

// WritePackedArray writes a repeated scalar field in packed form where the backend
// has one. Other backends write it like WriteArray.
func (w *Writer) WritePackedArray(kind schema.FieldKind, number int32, name string, values []FieldValue) error {
	id := FieldID{Number: number, Name: name}
	if !kind.Packable() {
		return errors.AssertionFailedf("%s field %s cannot be packed", kind, id)
	}
	return wrapWithField(w.writeArray(kind, id, values, true), id.String())
}

// WriteEnumArray writes a repeated enum field.
func (w *Writer) WriteEnumArray(number int32, name string, values []EnumValue, packed bool) error {
	fvs := make([]FieldValue, len(values))
	for i, e := range values {
		fvs[i] = EnumFieldValue(e)
	}
	if packed {
		return w.WritePackedArray(schema.KindEnum, number, name, fvs)
	}
	return w.WriteArray(schema.KindEnum, number, name, fvs)
}

// WriteMessageArray writes a repeated message field.
func (w *Writer) WriteMessageArray(number int32, name string, values []Message) error {
	return w.writeMessages(schema.KindMessage, number, name, values)
}

// WriteGroupArray writes a repeated group field.
func (w *Writer) WriteGroupArray(number int32, name string, values []Message) error {
	return w.writeMessages(schema.KindGroup, number, name, values)
}

func (w *Writer) writeMessages(kind schema.FieldKind, number int32, name string, values []Message) error {
	fvs := make([]FieldValue, len(values))
	for i, m := range values {
		fvs[i] = FieldValue{kind: kind, message: m}
	}
	return w.WriteArray(kind, number, name, fvs)
}

func (w *Writer) writeArray(kind schema.FieldKind, id FieldID, values []FieldValue, packed bool) error {
	if len(values) == 0 {
		ew, ok := w.backend.(EmptyArrayWriter)
		if !ok || !ew.WritesEmptyArrays() {
			return nil
		}
	}
	aw, bracketed := w.backend.(ArrayWriter)
	if bracketed {
		if err := aw.BeginArray(id, kind, packed, len(values)); err != nil {
			return err
		}
	}
	for _, v := range values {
		if err := w.writeField(kind, id, v); err != nil {
			return err
		}
	}
	if bracketed {
		return aw.EndArray(id, kind, packed)
	}
	return nil
}

// WriteUnknownField replays a captured field. Backends that cannot represent raw
// wire bytes drop it.
func (w *Writer) WriteUnknownField(f wire.UnknownField) error {
	uw, ok := w.backend.(UnknownFieldWriter)
	if !ok {
		w.opts.Logger.Debug("dropping unknown field",
			zap.Int32("number", int32(f.Number)),
			zap.Stringer("wire_type", f.WireType))
		return nil
	}
	return uw.WriteUnknownField(f)
}

func (w *Writer) descend() error {
	if w.depth >= w.opts.MaxDepth {
		return errors.Wrapf(ErrRecursionLimitExceeded, "message nesting exceeds %d", w.opts.MaxDepth)
	}
	return nil
}

func (w *Writer) writeMessage(id FieldID, m Message) error {
	if err := w.descend(); err != nil {
		return err
	}
	backend, err := w.backend.BeginMessage(id)
	if err != nil {
		return err
	}
	if err := m.WriteTo(w.child(backend)); err != nil {
		return err
	}
	return w.backend.EndMessage(id, backend)
}

func (w *Writer) writeGroup(id FieldID, m Message) error {
	gw, ok := w.backend.(GroupWriter)
	if !ok {
		return w.writeMessage(id, m)
	}
	if err := w.descend(); err != nil {
		return err
	}
	backend, err := gw.BeginGroup(id)
	if err != nil {
		return err
	}
	if err := m.WriteTo(w.child(backend)); err != nil {
		return err
	}
	return gw.EndGroup(id, backend)
}

type writeVisitor struct {
	w  *Writer
	id FieldID
	v  FieldValue
}

func (v *writeVisitor) scalar(kind schema.FieldKind) (struct{}, error) {
	fv, err := Coerce(kind, v.v)
	if err != nil {
		return struct{}{}, err
	}
	return struct{}{}, v.w.backend.WriteScalar(v.id, fv)
}

func (v *writeVisitor) visitBool() (struct{}, error) { return v.scalar(schema.KindBool) }

func (v *writeVisitor) visitInt32(kind schema.FieldKind) (struct{}, error) { return v.scalar(kind) }

func (v *writeVisitor) visitInt64(kind schema.FieldKind) (struct{}, error) { return v.scalar(kind) }

func (v *writeVisitor) visitUint32(kind schema.FieldKind) (struct{}, error) { return v.scalar(kind) }

func (v *writeVisitor) visitUint64(kind schema.FieldKind) (struct{}, error) { return v.scalar(kind) }

func (v *writeVisitor) visitFloat() (struct{}, error) { return v.scalar(schema.KindFloat) }

func (v *writeVisitor) visitDouble() (struct{}, error) { return v.scalar(schema.KindDouble) }

func (v *writeVisitor) visitString() (struct{}, error) { return v.scalar(schema.KindString) }

func (v *writeVisitor) visitBytes() (struct{}, error) { return v.scalar(schema.KindBytes) }

func (v *writeVisitor) visitEnum() (struct{}, error) {
	e, err := v.v.AsEnum()
	if err != nil {
		return struct{}{}, err
	}
	return struct{}{}, v.w.backend.WriteEnum(v.id, e)
}

func (v *writeVisitor) visitMessage() (struct{}, error) {
	m := v.v.message
	if m == nil {
		return struct{}{}, errors.AssertionFailedf("message field %s written without a message", v.id)
	}
	return struct{}{}, v.w.writeMessage(v.id, m)
}

func (v *writeVisitor) visitGroup() (struct{}, error) {
	m := v.v.message
	if m == nil {
		return struct{}{}, errors.AssertionFailedf("group field %s written without a message", v.id)
	}
	return struct{}{}, v.w.writeGroup(v.id, m)
}
