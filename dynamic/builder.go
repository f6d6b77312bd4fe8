package dynamic

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anirudhraja/protoserial/schema"
	"github.com/anirudhraja/protoserial/serialization"
)

// Builder accumulates field values for a Message. It implements
// serialization.Builder, so any backend can merge into it.
type Builder struct {
	msg *Message
	ext serialization.ExtensionRegistry
}

var _ serialization.Builder = (*Builder)(nil)

// NewBuilder returns an empty builder for desc. Message and enum field types are
// looked up through resolver.
func NewBuilder(desc *schema.Message, resolver Resolver) *Builder {
	return &Builder{msg: newMessage(desc, resolver), ext: serialization.EmptyRegistry}
}

// Factory returns a BuilderFactory producing empty builders for desc.
func Factory(desc *schema.Message, resolver Resolver) serialization.BuilderFactory {
	return func() (serialization.Builder, error) {
		return NewBuilder(desc, resolver), nil
	}
}

// Descriptor returns the schema of the message being built.
func (b *Builder) Descriptor() *schema.Message { return b.msg.desc }

// Build returns the message. Proto2 required fields must have been set. The builder
// must not be modified afterwards.
func (b *Builder) Build() (serialization.Message, error) {
	if missing := b.missingRequired(); len(missing) > 0 {
		return nil, errors.Wrapf(ErrMissingRequired, "%s: %v", b.msg.desc.Name, missing)
	}
	return b.msg, nil
}

// BuildPartial returns the message without checking required fields.
func (b *Builder) BuildPartial() *Message { return b.msg }

func (b *Builder) missingRequired() []string {
	return lo.FilterMap(b.msg.desc.Fields, func(f *schema.Field, _ int) (string, bool) {
		_, set := b.msg.fields[f.Number]
		return f.Name, f.Label == schema.LabelRequired && !set
	})
}

// lookup resolves id against the declared fields, then against the extensions of the
// message type.
func (b *Builder) lookup(id serialization.FieldID) *schema.Field {
	desc := b.msg.desc
	if id.Name != "" {
		if f := desc.FieldByName(id.Name); f != nil {
			return f
		}
		if f, ok := b.ext.FindExtensionByName(desc.Name, id.Name); ok {
			return f
		}
		return nil
	}
	if f := desc.FieldByNumber(id.Number); f != nil {
		return f
	}
	if f, ok := b.ext.FindExtensionByNumber(desc.Name, id.Number); ok {
		return f
	}
	return nil
}

func (b *Builder) fieldNamed(name string) (*schema.Field, error) {
	if f := b.lookup(serialization.FieldID{Name: name}); f != nil {
		return f, nil
	}
	return nil, errors.Newf("%s has no field %q", b.msg.desc.Name, name)
}

// NewChildBuilder returns an empty builder for the message type of field.
func (b *Builder) NewChildBuilder(field serialization.FieldID) (serialization.Builder, error) {
	f := b.lookup(field)
	if f == nil {
		return nil, errors.Newf("%s has no field %s", b.msg.desc.Name, field)
	}
	return b.childFor(f)
}

func (b *Builder) childFor(f *schema.Field) (*Builder, error) {
	if f.Kind != schema.KindMessage && f.Kind != schema.KindGroup {
		return nil, errors.Newf("field %s is %s, not a message", f.Name, f.Kind)
	}
	desc, err := b.msg.resolver.GetMessage(f.TypeName)
	if err != nil {
		return nil, errors.Wrapf(err, "field %s", f.Name)
	}
	child := NewBuilder(desc, b.msg.resolver)
	child.ext = b.ext
	return child, nil
}

func (b *Builder) enumFor(f *schema.Field) (*schema.Enum, error) {
	e, err := b.msg.resolver.GetEnum(f.TypeName)
	return e, errors.Wrapf(err, "field %s", f.Name)
}

func (b *Builder) data(f *schema.Field) *fieldData {
	d, ok := b.msg.fields[f.Number]
	if !ok {
		d = &fieldData{field: f}
		b.msg.fields[f.Number] = d
		b.clearOneof(f)
	}
	return d
}

// clearOneof drops the other members of f's oneof group.
func (b *Builder) clearOneof(f *schema.Field) {
	if f.OneofIndex < 0 || f.Extendee != "" {
		return
	}
	for n, d := range b.msg.fields {
		if n != f.Number && d.field.OneofIndex == f.OneofIndex && d.field.Extendee == "" {
			delete(b.msg.fields, n)
		}
	}
}

func (b *Builder) setValue(f *schema.Field, v serialization.FieldValue) {
	b.data(f).single = v
}

func (b *Builder) appendValues(f *schema.Field, vs ...serialization.FieldValue) {
	if len(vs) == 0 {
		return
	}
	d := b.data(f)
	d.list = append(d.list, vs...)
}

// convert turns a plain Go value into a value of f's kind. Enums must resolve by
// name; unknown numbers are kept.
func (b *Builder) convert(f *schema.Field, x interface{}) (serialization.FieldValue, error) {
	switch f.Kind {
	case schema.KindMessage, schema.KindGroup:
		m, ok := x.(*Message)
		if !ok {
			return serialization.FieldValue{}, serialization.CoercionErrorf("field %s expects *dynamic.Message, got %T", f.Name, x)
		}
		if f.Kind == schema.KindGroup {
			return serialization.GroupValue(m), nil
		}
		return serialization.MessageValue(m), nil
	case schema.KindEnum:
		v, err := serialization.ValueOf(schema.KindEnum, x)
		if err != nil {
			return v, err
		}
		enum, err := b.enumFor(f)
		if err != nil {
			return serialization.FieldValue{}, err
		}
		resolved, known := v.Enum().Resolve(enum)
		if !known && !resolved.HasNumber {
			return serialization.FieldValue{}, errors.Wrapf(serialization.ErrUnknownEnum, "%s has no value %q", enum.Name, resolved.Name)
		}
		return serialization.EnumFieldValue(resolved), nil
	}
	return serialization.ValueOf(f.Kind, x)
}

// Set assigns a singular field. Message fields take a *Message.
func (b *Builder) Set(name string, x interface{}) error {
	f, err := b.fieldNamed(name)
	if err != nil {
		return err
	}
	if f.IsRepeated() {
		return errors.Newf("field %s is repeated; use Add", name)
	}
	v, err := b.convert(f, x)
	if err != nil {
		return errors.Wrapf(err, "field %s", name)
	}
	b.setValue(f, v)
	return nil
}

// Add appends to a repeated field.
func (b *Builder) Add(name string, xs ...interface{}) error {
	f, err := b.fieldNamed(name)
	if err != nil {
		return err
	}
	if !f.IsRepeated() {
		return errors.Newf("field %s is not repeated; use Set", name)
	}
	for _, x := range xs {
		v, err := b.convert(f, x)
		if err != nil {
			return errors.Wrapf(err, "field %s", name)
		}
		b.appendValues(f, v)
	}
	return nil
}

// Put adds one entry to a map field.
func (b *Builder) Put(name string, key, value interface{}) error {
	f, err := b.fieldNamed(name)
	if err != nil {
		return err
	}
	entry, err := b.childFor(f)
	if err != nil {
		return err
	}
	if !entry.msg.desc.MapEntry {
		return errors.Newf("field %s is not a map", name)
	}
	if err := entry.Set("key", key); err != nil {
		return err
	}
	if err := entry.Set("value", value); err != nil {
		return err
	}
	b.appendValues(f, serialization.MessageValue(entry.msg))
	return nil
}

// Clear removes a field.
func (b *Builder) Clear(name string) {
	if f, err := b.fieldNamed(name); err == nil {
		delete(b.msg.fields, f.Number)
	}
}

// MergeFrom reads fields until the current message ends. Undeclared fields are kept
// verbatim when the backend can capture them and skipped otherwise.
func (b *Builder) MergeFrom(r *serialization.Reader, ext serialization.ExtensionRegistry) error {
	if ext != nil {
		b.ext = ext
	}
	for {
		id, ok, err := r.PeekNext()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		f := b.lookup(id)
		if f == nil {
			if err := b.readUnknown(r); err != nil {
				return err
			}
			continue
		}
		if err := b.readField(r, id, f); err != nil {
			return err
		}
	}
}

func (b *Builder) readUnknown(r *serialization.Reader) error {
	uf, captured, err := r.ReadUnknownField()
	if err != nil {
		return err
	}
	if captured {
		b.msg.unknown = append(b.msg.unknown, uf)
		return nil
	}
	return r.Skip()
}

func (b *Builder) readField(r *serialization.Reader, id serialization.FieldID, f *schema.Field) error {
	if f.IsRepeated() {
		return b.readRepeated(r, id, f)
	}
	switch f.Kind {
	case schema.KindMessage, schema.KindGroup:
		// A repeated occurrence of a singular message merges into the earlier value.
		var child *Builder
		if prev, ok := b.msg.fields[f.Number]; ok {
			if m, ok := prev.single.Message().(*Message); ok {
				child = m.ToBuilder()
				child.ext = b.ext
			}
		}
		if child == nil {
			var err error
			if child, err = b.childFor(f); err != nil {
				return err
			}
		}
		var ok bool
		var err error
		if f.Kind == schema.KindGroup {
			ok, err = r.ReadGroup(id, child, b.ext)
		} else {
			ok, err = r.ReadMessage(child, b.ext)
		}
		if err != nil || !ok {
			return err
		}
		if f.Kind == schema.KindGroup {
			b.setValue(f, serialization.GroupValue(child.msg))
		} else {
			b.setValue(f, serialization.MessageValue(child.msg))
		}
		return nil
	case schema.KindEnum:
		enum, err := b.enumFor(f)
		if err != nil {
			return err
		}
		v, known, ok, err := r.ReadEnumValue(enum)
		if err != nil || !ok {
			return err
		}
		b.keepEnum(r, f, v, known, func(v serialization.EnumValue) {
			b.setValue(f, serialization.EnumFieldValue(v))
		})
		return nil
	}
	var v serialization.FieldValue
	ok, err := r.ReadField(f.Kind, &v)
	if err != nil || !ok {
		return err
	}
	b.setValue(f, v)
	return nil
}

// keepEnum stores v when it resolved or carries a number. A name that matches
// nothing cannot be stored in the field and is recorded separately.
func (b *Builder) keepEnum(r *serialization.Reader, f *schema.Field, v serialization.EnumValue, known bool, store func(serialization.EnumValue)) {
	if known || v.HasNumber {
		store(v)
		return
	}
	r.Logger().Debug("unknown enum value",
		zap.String("field", f.Name),
		zap.String("enum", f.TypeName),
		zap.String("value", v.Name))
	b.msg.unknownEnums = append(b.msg.unknownEnums, v)
}

func (b *Builder) readRepeated(r *serialization.Reader, id serialization.FieldID, f *schema.Field) error {
	switch f.Kind {
	case schema.KindMessage, schema.KindGroup:
		factory := func() (serialization.Builder, error) { return b.childFor(f) }
		var msgs []serialization.Message
		var err error
		if f.Kind == schema.KindGroup {
			msgs, err = r.ReadGroupArray(id, factory, b.ext)
		} else {
			msgs, err = r.ReadMessageArray(id, factory, b.ext)
		}
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if f.Kind == schema.KindGroup {
				b.appendValues(f, serialization.GroupValue(m))
			} else {
				b.appendValues(f, serialization.MessageValue(m))
			}
		}
		return nil
	case schema.KindEnum:
		enum, err := b.enumFor(f)
		if err != nil {
			return err
		}
		vs, err := r.ReadArray(id, schema.KindEnum)
		if err != nil {
			return err
		}
		for _, v := range vs {
			resolved, known := v.Enum().Resolve(enum)
			b.keepEnum(r, f, resolved, known, func(v serialization.EnumValue) {
				b.appendValues(f, serialization.EnumFieldValue(v))
			})
		}
		return nil
	}
	vs, err := r.ReadArray(id, f.Kind)
	if err != nil {
		return err
	}
	b.appendValues(f, vs...)
	return nil
}
