package serialization

import (
	"fmt"
	"math"
	"strconv"

	"github.com/anirudhraja/protoserial/schema"
)

// EnumValue is an enum as it travels through a backend. Text formats may carry only a
// name, the binary format only a number; Resolve fills in the other half.
type EnumValue struct {
	Number    int32
	Name      string
	HasNumber bool
}

// EnumByNumber returns an enum value known only by number.
func EnumByNumber(n int32) EnumValue {
	return EnumValue{Number: n, HasNumber: true}
}

// EnumByName returns an enum value known only by symbolic name.
func EnumByName(name string) EnumValue {
	return EnumValue{Name: name}
}

// Resolve completes e against m. It reports false when neither the number nor the
// name is declared; e is returned unchanged in that case.
func (e EnumValue) Resolve(m schema.EnumMap) (EnumValue, bool) {
	if m == nil {
		return e, e.HasNumber
	}
	if e.HasNumber {
		if v, ok := m.FindByNumber(e.Number); ok {
			return EnumValue{Number: v.Number, Name: v.Name, HasNumber: true}, true
		}
		return e, false
	}
	if v, ok := m.FindByName(e.Name); ok {
		return EnumValue{Number: v.Number, Name: v.Name, HasNumber: true}, true
	}
	return e, false
}

func (e EnumValue) String() string {
	if e.Name != "" {
		return e.Name
	}
	return strconv.FormatInt(int64(e.Number), 10)
}

// FieldValue is a tagged union holding one value of a field. Exactly one variant is
// active, selected by Kind.
type FieldValue struct {
	kind    schema.FieldKind
	bits    uint64
	str     string
	raw     []byte
	enum    EnumValue
	message Message
	builder Builder
}

func BoolValue(v bool) FieldValue {
	var b uint64
	if v {
		b = 1
	}
	return FieldValue{kind: schema.KindBool, bits: b}
}

func Int32Value(v int32) FieldValue {
	return FieldValue{kind: schema.KindInt32, bits: uint64(int64(v))}
}

func Int64Value(v int64) FieldValue {
	return FieldValue{kind: schema.KindInt64, bits: uint64(v)}
}

func Uint32Value(v uint32) FieldValue {
	return FieldValue{kind: schema.KindUint32, bits: uint64(v)}
}

func Uint64Value(v uint64) FieldValue {
	return FieldValue{kind: schema.KindUint64, bits: v}
}

func FloatValue(v float32) FieldValue {
	return FieldValue{kind: schema.KindFloat, bits: math.Float64bits(float64(v))}
}

func DoubleValue(v float64) FieldValue {
	return FieldValue{kind: schema.KindDouble, bits: math.Float64bits(v)}
}

func StringValue(v string) FieldValue {
	return FieldValue{kind: schema.KindString, str: v}
}

func BytesValue(v []byte) FieldValue {
	return FieldValue{kind: schema.KindBytes, raw: v}
}

func EnumFieldValue(v EnumValue) FieldValue {
	return FieldValue{kind: schema.KindEnum, enum: v}
}

// MessageValue wraps a built message for writing.
func MessageValue(m Message) FieldValue {
	return FieldValue{kind: schema.KindMessage, message: m}
}

// GroupValue wraps a built group message for writing.
func GroupValue(m Message) FieldValue {
	return FieldValue{kind: schema.KindGroup, message: m}
}

// BuilderValue wraps a builder that ReadField merges a nested message into.
func BuilderValue(kind schema.FieldKind, b Builder) FieldValue {
	return FieldValue{kind: kind, builder: b}
}

// Kind returns the active variant's kind.
func (v FieldValue) Kind() schema.FieldKind { return v.kind }

// IsValid reports whether v holds any variant.
func (v FieldValue) IsValid() bool { return v.kind.Valid() }

func (v FieldValue) Bool() bool { return v.bits != 0 }

// Int returns the signed integer variant. Unsigned variants are reinterpreted.
func (v FieldValue) Int() int64 { return int64(v.bits) }

// Uint returns the unsigned integer variant. Signed variants are reinterpreted.
func (v FieldValue) Uint() uint64 {
	if !v.kind.Is64Bit() && !v.kind.IsUnsigned() {
		return uint64(uint32(v.bits))
	}
	return v.bits
}

// Float returns the floating point variant widened to float64.
func (v FieldValue) Float() float64 { return math.Float64frombits(v.bits) }

func (v FieldValue) Bytes() []byte { return v.raw }

func (v FieldValue) Enum() EnumValue { return v.enum }

func (v FieldValue) Message() Message { return v.message }

func (v FieldValue) Builder() Builder { return v.builder }

// String returns the string variant, or a debug rendering of any other variant.
func (v FieldValue) String() string {
	switch v.kind {
	case schema.KindString:
		return v.str
	case schema.KindBytes:
		return fmt.Sprintf("%x", v.raw)
	case schema.KindEnum:
		return v.enum.String()
	case schema.KindMessage, schema.KindGroup:
		return fmt.Sprintf("<%s>", v.kind)
	case schema.KindInvalid:
		return "<invalid>"
	}
	return FormatText(v)
}

// Interface returns the active variant as a plain Go value.
func (v FieldValue) Interface() interface{} {
	switch v.kind {
	case schema.KindBool:
		return v.Bool()
	case schema.KindInt32, schema.KindSint32, schema.KindSfixed32:
		return int32(v.Int())
	case schema.KindInt64, schema.KindSint64, schema.KindSfixed64:
		return v.Int()
	case schema.KindUint32, schema.KindFixed32:
		return uint32(v.Uint())
	case schema.KindUint64, schema.KindFixed64:
		return v.Uint()
	case schema.KindFloat:
		return float32(v.Float())
	case schema.KindDouble:
		return v.Float()
	case schema.KindString:
		return v.str
	case schema.KindBytes:
		return v.raw
	case schema.KindEnum:
		return v.enum
	case schema.KindMessage, schema.KindGroup:
		if v.message != nil {
			return v.message
		}
		return v.builder
	}
	return nil
}
