// Package dynamic implements messages whose layout comes from a schema loaded at
// runtime instead of generated code.
package dynamic

import (
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/anirudhraja/protoserial/schema"
	"github.com/anirudhraja/protoserial/serialization"
	"github.com/anirudhraja/protoserial/wire"
)

// ErrMissingRequired is returned by Build when a required field was never set.
var ErrMissingRequired = errors.New("required field not set")

// Resolver finds message and enum definitions by fully qualified name.
// *registry.Registry satisfies it.
type Resolver interface {
	GetMessage(name string) (*schema.Message, error)
	GetEnum(name string) (*schema.Enum, error)
}

type fieldData struct {
	field  *schema.Field
	single serialization.FieldValue
	list   []serialization.FieldValue
}

// Message is an immutable schema-driven message.
type Message struct {
	desc         *schema.Message
	resolver     Resolver
	fields       map[int32]*fieldData
	unknown      []wire.UnknownField
	unknownEnums []serialization.EnumValue
}

var _ serialization.Message = (*Message)(nil)

func newMessage(desc *schema.Message, resolver Resolver) *Message {
	return &Message{desc: desc, resolver: resolver, fields: make(map[int32]*fieldData)}
}

// Descriptor returns the schema the message was built from.
func (m *Message) Descriptor() *schema.Message { return m.desc }

func (m *Message) find(name string) *fieldData {
	if f := m.desc.FieldByName(name); f != nil {
		return m.fields[f.Number]
	}
	for _, d := range m.fields {
		if d.field.Name == name || d.field.JsonName == name {
			return d
		}
	}
	return nil
}

// Has reports whether the named field is set.
func (m *Message) Has(name string) bool {
	return m.find(name) != nil
}

// Get returns a singular field's value.
func (m *Message) Get(name string) (serialization.FieldValue, bool) {
	d := m.find(name)
	if d == nil || d.field.IsRepeated() {
		return serialization.FieldValue{}, false
	}
	return d.single, true
}

// GetList returns a repeated field's values.
func (m *Message) GetList(name string) []serialization.FieldValue {
	if d := m.find(name); d != nil {
		return d.list
	}
	return nil
}

// GetMessage returns a singular message field, or nil.
func (m *Message) GetMessage(name string) *Message {
	v, ok := m.Get(name)
	if !ok {
		return nil
	}
	msg, _ := v.Message().(*Message)
	return msg
}

// GetMessages returns the elements of a repeated message field.
func (m *Message) GetMessages(name string) []*Message {
	return lo.FilterMap(m.GetList(name), func(v serialization.FieldValue, _ int) (*Message, bool) {
		msg, ok := v.Message().(*Message)
		return msg, ok
	})
}

// GetMap returns the entries of a map field keyed by the key's Go value.
func (m *Message) GetMap(name string) map[interface{}]serialization.FieldValue {
	entries := m.GetMessages(name)
	if len(entries) == 0 {
		return nil
	}
	out := make(map[interface{}]serialization.FieldValue, len(entries))
	for _, e := range entries {
		k, _ := e.Get("key")
		v, _ := e.Get("value")
		out[k.Interface()] = v
	}
	return out
}

// Unknown returns fields captured verbatim because the schema did not declare them.
func (m *Message) Unknown() []wire.UnknownField { return m.unknown }

// UnknownEnums returns enum values that matched neither a declared number nor a
// declared name and could not be stored.
func (m *Message) UnknownEnums() []serialization.EnumValue { return m.unknownEnums }

// ToBuilder returns a builder seeded with a copy of m.
func (m *Message) ToBuilder() *Builder {
	b := NewBuilder(m.desc, m.resolver)
	for n, d := range m.fields {
		cp := *d
		cp.list = append([]serialization.FieldValue(nil), d.list...)
		b.msg.fields[n] = &cp
	}
	b.msg.unknown = append(b.msg.unknown, m.unknown...)
	b.msg.unknownEnums = append(b.msg.unknownEnums, m.unknownEnums...)
	return b
}

func (m *Message) sortedFields() []*fieldData {
	out := lo.Values(m.fields)
	sort.Slice(out, func(i, j int) bool { return out[i].field.Number < out[j].field.Number })
	return out
}

// WriteTo streams every set field in field-number order, then the unknown fields.
func (m *Message) WriteTo(w *serialization.Writer) error {
	for _, d := range m.sortedFields() {
		f := d.field
		if !f.IsRepeated() {
			if err := w.WriteField(f.Kind, f.Number, f.Name, d.single); err != nil {
				return err
			}
			continue
		}
		var err error
		switch {
		case f.Kind == schema.KindMessage || f.Kind == schema.KindGroup:
			msgs := lo.Map(d.list, func(v serialization.FieldValue, _ int) serialization.Message {
				return v.Message()
			})
			if f.Kind == schema.KindGroup {
				err = w.WriteGroupArray(f.Number, f.Name, msgs)
			} else {
				err = w.WriteMessageArray(f.Number, f.Name, msgs)
			}
		case f.Packed && f.Kind.Packable():
			err = w.WritePackedArray(f.Kind, f.Number, f.Name, d.list)
		default:
			err = w.WriteArray(f.Kind, f.Number, f.Name, d.list)
		}
		if err != nil {
			return err
		}
	}
	for _, uf := range m.unknown {
		if err := w.WriteUnknownField(uf); err != nil {
			return err
		}
	}
	return nil
}
