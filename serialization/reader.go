package serialization

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/anirudhraja/protoserial/schema"
	"github.com/anirudhraja/protoserial/wire"
)

// Reader decodes one message graph from a ReaderBackend. Each nested message is read
// by a child Reader one level deeper; the depth travels with the instance instead of
// being shared through the backend.
type Reader struct {
	backend ReaderBackend
	opts    Options
	ext     ExtensionRegistry
	depth   int
	open    int
	current FieldID
}

// NewReader binds a Reader to backend.
func NewReader(backend ReaderBackend, opts Options) *Reader {
	return &Reader{backend: backend, opts: opts.normalized(), ext: EmptyRegistry}
}

func (r *Reader) child(b ReaderBackend) *Reader {
	return &Reader{backend: b, opts: r.opts, ext: r.ext, depth: r.depth + 1}
}

// Backend returns the backend the Reader is bound to.
func (r *Reader) Backend() ReaderBackend { return r.backend }

// Depth returns the nesting depth of the message being read; the root is 0.
func (r *Reader) Depth() int { return r.depth }

// Logger returns the Reader's logger.
func (r *Reader) Logger() *zap.Logger { return r.opts.Logger }

// Current returns the field most recently reported by PeekNext.
func (r *Reader) Current() FieldID { return r.current }

func (r *Reader) ReadMessageStart() error {
	if err := r.backend.ReadMessageStart(); err != nil {
		return err
	}
	r.open++
	return nil
}

func (r *Reader) ReadMessageEnd() error {
	if r.open == 0 {
		return errors.Wrap(ErrUnbalancedMessage, "ReadMessageEnd without ReadMessageStart")
	}
	r.open--
	return r.backend.ReadMessageEnd()
}

// Merge reads one complete top-level message into b.
func (r *Reader) Merge(b Builder, ext ExtensionRegistry) error {
	if ext == nil {
		ext = EmptyRegistry
	}
	r.ext = ext
	if err := r.ReadMessageStart(); err != nil {
		return err
	}
	if err := b.MergeFrom(r, ext); err != nil {
		return err
	}
	return r.ReadMessageEnd()
}

// PeekNext reports the next field of the current message without consuming it.
func (r *Reader) PeekNext() (FieldID, bool, error) {
	id, ok, err := r.backend.PeekNext()
	if err != nil {
		return FieldID{}, false, err
	}
	if ok {
		r.current = id
	}
	return id, ok, nil
}

// Skip discards the value of the current field.
func (r *Reader) Skip() error {
	r.opts.Logger.Debug("skipping field",
		zap.Stringer("field", r.current),
		zap.Int("depth", r.depth))
	return r.fail(r.backend.Skip())
}

// ReadUnknownField captures the current field verbatim. It reports false when the
// backend cannot capture fields; the caller should Skip instead.
func (r *Reader) ReadUnknownField() (wire.UnknownField, bool, error) {
	ur, ok := r.backend.(UnknownFieldReader)
	if !ok {
		return wire.UnknownField{}, false, nil
	}
	f, err := ur.ReadUnknownField()
	if err != nil {
		return wire.UnknownField{}, false, r.fail(err)
	}
	return f, true, nil
}

func (r *Reader) fail(err error) error {
	if err == nil {
		return nil
	}
	return wrapWithField(err, r.current.String())
}

// ReadField reads the current field as kind into dst. Message and group kinds merge
// into the builder carried by dst (see BuilderValue). It returns false when the input
// held an explicit null, leaving dst unchanged.
func (r *Reader) ReadField(kind schema.FieldKind, dst *FieldValue) (bool, error) {
	ok, err := visitKind[bool](kind, &readVisitor{r: r, dst: dst})
	if err != nil {
		return false, r.fail(err)
	}
	return ok, nil
}

func (r *Reader) readKind(kind schema.FieldKind) (FieldValue, bool, error) {
	var v FieldValue
	ok, err := r.ReadField(kind, &v)
	return v, ok, err
}

func (r *Reader) ReadBool() (bool, bool, error) {
	v, ok, err := r.readKind(schema.KindBool)
	return v.Bool(), ok, err
}

func (r *Reader) ReadInt32() (int32, bool, error)    { return r.readInt32(schema.KindInt32) }
func (r *Reader) ReadSint32() (int32, bool, error)   { return r.readInt32(schema.KindSint32) }
func (r *Reader) ReadSfixed32() (int32, bool, error) { return r.readInt32(schema.KindSfixed32) }
func (r *Reader) ReadInt64() (int64, bool, error)    { return r.readInt64(schema.KindInt64) }
func (r *Reader) ReadSint64() (int64, bool, error)   { return r.readInt64(schema.KindSint64) }
func (r *Reader) ReadSfixed64() (int64, bool, error) { return r.readInt64(schema.KindSfixed64) }
func (r *Reader) ReadUint32() (uint32, bool, error)  { return r.readUint32(schema.KindUint32) }
func (r *Reader) ReadFixed32() (uint32, bool, error) { return r.readUint32(schema.KindFixed32) }
func (r *Reader) ReadUint64() (uint64, bool, error)  { return r.readUint64(schema.KindUint64) }
func (r *Reader) ReadFixed64() (uint64, bool, error) { return r.readUint64(schema.KindFixed64) }

func (r *Reader) readInt32(kind schema.FieldKind) (int32, bool, error) {
	v, ok, err := r.readKind(kind)
	return int32(v.Int()), ok, err
}

func (r *Reader) readInt64(kind schema.FieldKind) (int64, bool, error) {
	v, ok, err := r.readKind(kind)
	return v.Int(), ok, err
}

func (r *Reader) readUint32(kind schema.FieldKind) (uint32, bool, error) {
	v, ok, err := r.readKind(kind)
	return uint32(v.Uint()), ok, err
}

func (r *Reader) readUint64(kind schema.FieldKind) (uint64, bool, error) {
	v, ok, err := r.readKind(kind)
	return v.Uint(), ok, err
}

func (r *Reader) ReadFloat() (float32, bool, error) {
	v, ok, err := r.readKind(schema.KindFloat)
	return float32(v.Float()), ok, err
}

func (r *Reader) ReadDouble() (float64, bool, error) {
	v, ok, err := r.readKind(schema.KindDouble)
	return v.Float(), ok, err
}

func (r *Reader) ReadString() (string, bool, error) {
	v, ok, err := r.readKind(schema.KindString)
	return v.str, ok, err
}

func (r *Reader) ReadBytes() ([]byte, bool, error) {
	v, ok, err := r.readKind(schema.KindBytes)
	return v.raw, ok, err
}

// ReadEnum returns the enum exactly as the input carried it.
func (r *Reader) ReadEnum() (EnumValue, bool, error) {
	v, ok, err := r.readKind(schema.KindEnum)
	return v.enum, ok, err
}

// ReadEnumValue reads an enum and resolves it against m. An undeclared value is
// returned with known=false so the caller can keep it as an unknown field.
func (r *Reader) ReadEnumValue(m schema.EnumMap) (v EnumValue, known bool, ok bool, err error) {
	raw, ok, err := r.ReadEnum()
	if err != nil || !ok {
		return EnumValue{}, false, ok, err
	}
	v, known = raw.Resolve(m)
	return v, known, true, nil
}

// ReadMessage merges the current field's nested message into b.
func (r *Reader) ReadMessage(b Builder, ext ExtensionRegistry) (bool, error) {
	ok, err := r.readMessage(b, ext)
	return ok, r.fail(err)
}

// ReadGroup merges the current group field into b.
func (r *Reader) ReadGroup(id FieldID, b Builder, ext ExtensionRegistry) (bool, error) {
	ok, err := r.readGroup(id, b, ext)
	return ok, r.fail(err)
}

func (r *Reader) descend() error {
	if r.depth >= r.opts.MaxDepth {
		return errors.Wrapf(ErrRecursionLimitExceeded, "message nesting exceeds %d", r.opts.MaxDepth)
	}
	return nil
}

func (r *Reader) readMessage(b Builder, ext ExtensionRegistry) (bool, error) {
	if err := r.descend(); err != nil {
		return false, err
	}
	if ext == nil {
		ext = r.ext
	}
	backend, ok, err := r.backend.BeginMessage()
	if err != nil || !ok {
		return false, err
	}
	nested := r.child(backend)
	nested.ext = ext
	if err := b.MergeFrom(nested, ext); err != nil {
		return false, err
	}
	return true, r.backend.EndMessage(backend)
}

func (r *Reader) readGroup(id FieldID, b Builder, ext ExtensionRegistry) (bool, error) {
	gr, ok := r.backend.(GroupReader)
	if !ok {
		return r.readMessage(b, ext)
	}
	if err := r.descend(); err != nil {
		return false, err
	}
	if ext == nil {
		ext = r.ext
	}
	backend, ok, err := gr.BeginGroup(id)
	if err != nil || !ok {
		return false, err
	}
	nested := r.child(backend)
	nested.ext = ext
	if err := b.MergeFrom(nested, ext); err != nil {
		return false, err
	}
	return true, gr.EndGroup(id, backend)
}

// forEachArrayItem calls item for every element of the repeated field id. The caller
// has already peeked the first element.
func (r *Reader) forEachArrayItem(id FieldID, kind schema.FieldKind, item func() error) error {
	if ar, ok := r.backend.(ArrayReader); ok {
		return ar.ReadArrayItems(id, kind, item)
	}
	for {
		if err := item(); err != nil {
			return err
		}
		next, ok, err := r.backend.PeekNext()
		if err != nil {
			return err
		}
		if !ok || !next.Matches(id) {
			return nil
		}
		r.current = next
	}
}

// ReadArray reads every element of the scalar repeated field id. Null elements are
// dropped.
func (r *Reader) ReadArray(id FieldID, kind schema.FieldKind) ([]FieldValue, error) {
	switch kind {
	case schema.KindMessage, schema.KindGroup:
		return nil, errors.AssertionFailedf("ReadArray called for %s field %s", kind, id)
	}
	var out []FieldValue
	err := r.forEachArrayItem(id, kind, func() error {
		v, ok, err := r.readKind(kind)
		if err != nil {
			return err
		}
		if ok {
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// ReadEnumArray reads the repeated enum field id, splitting values that resolve
// against m from those that do not.
func (r *Reader) ReadEnumArray(id FieldID, m schema.EnumMap) (known, unknown []EnumValue, err error) {
	err = r.forEachArrayItem(id, schema.KindEnum, func() error {
		v, isKnown, ok, err := r.ReadEnumValue(m)
		if err != nil || !ok {
			return err
		}
		if isKnown {
			known = append(known, v)
		} else {
			unknown = append(unknown, v)
		}
		return nil
	})
	return known, unknown, err
}

// ReadMessageArray reads the repeated message field id, building each element with a
// fresh builder from newBuilder.
func (r *Reader) ReadMessageArray(id FieldID, newBuilder BuilderFactory, ext ExtensionRegistry) ([]Message, error) {
	return r.readMessages(id, schema.KindMessage, newBuilder, ext)
}

// ReadGroupArray reads the repeated group field id.
func (r *Reader) ReadGroupArray(id FieldID, newBuilder BuilderFactory, ext ExtensionRegistry) ([]Message, error) {
	return r.readMessages(id, schema.KindGroup, newBuilder, ext)
}

func (r *Reader) readMessages(id FieldID, kind schema.FieldKind, newBuilder BuilderFactory, ext ExtensionRegistry) ([]Message, error) {
	var out []Message
	err := r.forEachArrayItem(id, kind, func() error {
		b, err := newBuilder()
		if err != nil {
			return err
		}
		var ok bool
		if kind == schema.KindGroup {
			ok, err = r.readGroup(id, b, ext)
		} else {
			ok, err = r.readMessage(b, ext)
		}
		if err != nil || !ok {
			return err
		}
		m, err := b.Build()
		if err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	if err != nil {
		return nil, r.fail(err)
	}
	return out, nil
}

type readVisitor struct {
	r   *Reader
	dst *FieldValue
}

func (v *readVisitor) visitBool() (bool, error) {
	b, ok, err := v.r.backend.ReadBool()
	if err != nil || !ok {
		return false, err
	}
	*v.dst = BoolValue(b)
	return true, nil
}

func (v *readVisitor) visitInt32(kind schema.FieldKind) (bool, error) {
	i, ok, err := v.r.backend.ReadInt32(kind)
	if err != nil || !ok {
		return false, err
	}
	*v.dst = FieldValue{kind: kind, bits: uint64(int64(i))}
	return true, nil
}

func (v *readVisitor) visitInt64(kind schema.FieldKind) (bool, error) {
	i, ok, err := v.r.backend.ReadInt64(kind)
	if err != nil || !ok {
		return false, err
	}
	*v.dst = FieldValue{kind: kind, bits: uint64(i)}
	return true, nil
}

func (v *readVisitor) visitUint32(kind schema.FieldKind) (bool, error) {
	u, ok, err := v.r.backend.ReadUint32(kind)
	if err != nil || !ok {
		return false, err
	}
	*v.dst = FieldValue{kind: kind, bits: uint64(u)}
	return true, nil
}

func (v *readVisitor) visitUint64(kind schema.FieldKind) (bool, error) {
	u, ok, err := v.r.backend.ReadUint64(kind)
	if err != nil || !ok {
		return false, err
	}
	*v.dst = FieldValue{kind: kind, bits: u}
	return true, nil
}

func (v *readVisitor) visitFloat() (bool, error) {
	f, ok, err := v.r.backend.ReadFloat()
	if err != nil || !ok {
		return false, err
	}
	*v.dst = FloatValue(f)
	return true, nil
}

func (v *readVisitor) visitDouble() (bool, error) {
	f, ok, err := v.r.backend.ReadDouble()
	if err != nil || !ok {
		return false, err
	}
	*v.dst = DoubleValue(f)
	return true, nil
}

func (v *readVisitor) visitString() (bool, error) {
	s, ok, err := v.r.backend.ReadString()
	if err != nil || !ok {
		return false, err
	}
	*v.dst = StringValue(s)
	return true, nil
}

func (v *readVisitor) visitBytes() (bool, error) {
	b, ok, err := v.r.backend.ReadBytes()
	if err != nil || !ok {
		return false, err
	}
	*v.dst = BytesValue(b)
	return true, nil
}

func (v *readVisitor) visitEnum() (bool, error) {
	e, ok, err := v.r.backend.ReadEnum()
	if err != nil || !ok {
		return false, err
	}
	*v.dst = EnumFieldValue(e)
	return true, nil
}

func (v *readVisitor) visitMessage() (bool, error) {
	b := v.dst.builder
	if b == nil {
		return false, errors.AssertionFailedf("ReadField(message) needs a builder value")
	}
	return v.r.readMessage(b, nil)
}

func (v *readVisitor) visitGroup() (bool, error) {
	b := v.dst.builder
	if b == nil {
		return false, errors.AssertionFailedf("ReadField(group) needs a builder value")
	}
	return v.r.readGroup(v.r.current, b, nil)
}
