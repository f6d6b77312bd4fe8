package serialization

import (
	"encoding/json"
	"math"

	"github.com/anirudhraja/protoserial/schema"
)

// Conversions between FieldValue variants are checked: a value that does not fit the
// target kind is an ErrCoercion, never silently truncated. The single exception is a
// 32-bit signed value stored into a 32-bit unsigned kind, which keeps its two's
// complement bit pattern.

func (v FieldValue) isSigned() bool {
	switch v.kind {
	case schema.KindBool, schema.KindInt32, schema.KindInt64, schema.KindSint32,
		schema.KindSint64, schema.KindSfixed32, schema.KindSfixed64:
		return true
	}
	return false
}

func (v FieldValue) isSigned32() bool {
	return v.kind == schema.KindInt32 || v.kind == schema.KindSint32 || v.kind == schema.KindSfixed32
}

// AsBool converts v to a bool. Integers 0 and 1 are accepted.
func (v FieldValue) AsBool() (bool, error) {
	switch {
	case v.kind == schema.KindBool:
		return v.Bool(), nil
	case v.isSigned() || v.kind.IsUnsigned():
		switch v.bits {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	}
	return false, CoercionErrorf("cannot convert %s %s to bool", v.kind, v)
}

// AsInt64 converts v to an int64.
func (v FieldValue) AsInt64() (int64, error) {
	switch {
	case v.isSigned():
		return v.Int(), nil
	case v.kind.IsUnsigned():
		if v.Uint() > math.MaxInt64 {
			return 0, CoercionErrorf("value %d overflows int64", v.Uint())
		}
		return int64(v.Uint()), nil
	case v.kind.IsFloatingPoint():
		f := v.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, CoercionErrorf("non-integer numeric %v for integer field", f)
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, CoercionErrorf("value %v overflows int64", f)
		}
		return int64(f), nil
	case v.kind == schema.KindEnum && v.enum.HasNumber:
		return int64(v.enum.Number), nil
	}
	return 0, CoercionErrorf("expected integer-like, got %s", v.kind)
}

// AsUint64 converts v to a uint64. Negative values are rejected.
func (v FieldValue) AsUint64() (uint64, error) {
	switch {
	case v.kind.IsUnsigned():
		return v.Uint(), nil
	case v.isSigned():
		if v.Int() < 0 {
			return 0, CoercionErrorf("negative value %d for unsigned field", v.Int())
		}
		return uint64(v.Int()), nil
	case v.kind.IsFloatingPoint():
		f := v.Float()
		if f < 0 || f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, CoercionErrorf("non-integer numeric %v for unsigned field", f)
		}
		if f >= math.MaxUint64 {
			return 0, CoercionErrorf("value %v overflows uint64", f)
		}
		return uint64(f), nil
	}
	return 0, CoercionErrorf("expected unsigned-integer-like, got %s", v.kind)
}

// AsInt32 converts v to an int32.
func (v FieldValue) AsInt32() (int32, error) {
	i, err := v.AsInt64()
	if err != nil {
		return 0, err
	}
	if i < math.MinInt32 || i > math.MaxInt32 {
		return 0, CoercionErrorf("value %d overflows int32", i)
	}
	return int32(i), nil
}

// AsUint32 converts v to a uint32. A 32-bit signed source keeps its bit pattern.
func (v FieldValue) AsUint32() (uint32, error) {
	if v.isSigned32() {
		return uint32(int32(v.Int())), nil
	}
	u, err := v.AsUint64()
	if err != nil {
		return 0, err
	}
	if u > math.MaxUint32 {
		return 0, CoercionErrorf("value %d overflows uint32", u)
	}
	return uint32(u), nil
}

// AsFloat64 converts any numeric variant to a float64.
func (v FieldValue) AsFloat64() (float64, error) {
	switch {
	case v.kind.IsFloatingPoint():
		return v.Float(), nil
	case v.kind.IsUnsigned():
		return float64(v.Uint()), nil
	case v.isSigned():
		return float64(v.Int()), nil
	}
	return 0, CoercionErrorf("expected numeric, got %s", v.kind)
}

// AsFloat32 converts any numeric variant to a float32. Finite values outside the
// float32 range are rejected.
func (v FieldValue) AsFloat32() (float32, error) {
	f, err := v.AsFloat64()
	if err != nil {
		return 0, err
	}
	if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
		return 0, CoercionErrorf("value %v overflows float", f)
	}
	return float32(f), nil
}

// AsString returns the string variant; bytes are accepted verbatim.
func (v FieldValue) AsString() (string, error) {
	switch v.kind {
	case schema.KindString:
		return v.str, nil
	case schema.KindBytes:
		return string(v.raw), nil
	}
	return "", CoercionErrorf("expected string, got %s", v.kind)
}

// AsBytes returns the bytes variant; strings are accepted as their UTF-8 bytes.
func (v FieldValue) AsBytes() ([]byte, error) {
	switch v.kind {
	case schema.KindBytes:
		return v.raw, nil
	case schema.KindString:
		return []byte(v.str), nil
	}
	return nil, CoercionErrorf("expected bytes, got %s", v.kind)
}

// AsEnum returns the enum variant; integers are taken as enum numbers and strings as
// enum names.
func (v FieldValue) AsEnum() (EnumValue, error) {
	switch {
	case v.kind == schema.KindEnum:
		return v.enum, nil
	case v.kind == schema.KindString:
		return EnumByName(v.str), nil
	}
	n, err := v.AsInt32()
	if err != nil {
		return EnumValue{}, err
	}
	return EnumByNumber(n), nil
}

// Coerce converts v to the storage of kind and tags the result with kind.
func Coerce(kind schema.FieldKind, v FieldValue) (FieldValue, error) {
	if v.kind == kind {
		return v, nil
	}
	out := FieldValue{kind: kind}
	switch kind {
	case schema.KindBool:
		b, err := v.AsBool()
		if err != nil {
			return FieldValue{}, err
		}
		return BoolValue(b), nil
	case schema.KindInt32, schema.KindSint32, schema.KindSfixed32:
		i, err := v.AsInt32()
		if err != nil {
			return FieldValue{}, err
		}
		out.bits = uint64(int64(i))
	case schema.KindInt64, schema.KindSint64, schema.KindSfixed64:
		i, err := v.AsInt64()
		if err != nil {
			return FieldValue{}, err
		}
		out.bits = uint64(i)
	case schema.KindUint32, schema.KindFixed32:
		u, err := v.AsUint32()
		if err != nil {
			return FieldValue{}, err
		}
		out.bits = uint64(u)
	case schema.KindUint64, schema.KindFixed64:
		u, err := v.AsUint64()
		if err != nil {
			return FieldValue{}, err
		}
		out.bits = u
	case schema.KindFloat:
		f, err := v.AsFloat32()
		if err != nil {
			return FieldValue{}, err
		}
		out.bits = math.Float64bits(float64(f))
	case schema.KindDouble:
		f, err := v.AsFloat64()
		if err != nil {
			return FieldValue{}, err
		}
		out.bits = math.Float64bits(f)
	case schema.KindString:
		s, err := v.AsString()
		if err != nil {
			return FieldValue{}, err
		}
		out.str = s
	case schema.KindBytes:
		b, err := v.AsBytes()
		if err != nil {
			return FieldValue{}, err
		}
		out.raw = b
	case schema.KindEnum:
		e, err := v.AsEnum()
		if err != nil {
			return FieldValue{}, err
		}
		out.enum = e
	case schema.KindMessage, schema.KindGroup:
		if v.kind != schema.KindMessage && v.kind != schema.KindGroup {
			return FieldValue{}, CoercionErrorf("expected message, got %s", v.kind)
		}
		out.message, out.builder = v.message, v.builder
	default:
		return FieldValue{}, invalidKind(kind)
	}
	return out, nil
}

// ValueOf converts a plain Go value into a FieldValue of kind. Integer strings and
// json.Number are accepted for numeric kinds, as long as they are integral where the
// kind requires it.
func ValueOf(kind schema.FieldKind, x interface{}) (FieldValue, error) {
	var v FieldValue
	switch t := x.(type) {
	case FieldValue:
		v = t
	case bool:
		v = BoolValue(t)
	case int:
		v = Int64Value(int64(t))
	case int8:
		v = Int32Value(int32(t))
	case int16:
		v = Int32Value(int32(t))
	case int32:
		v = Int32Value(t)
	case int64:
		v = Int64Value(t)
	case uint:
		v = Uint64Value(uint64(t))
	case uint8:
		v = Uint32Value(uint32(t))
	case uint16:
		v = Uint32Value(uint32(t))
	case uint32:
		v = Uint32Value(t)
	case uint64:
		v = Uint64Value(t)
	case float32:
		v = FloatValue(t)
	case float64:
		v = DoubleValue(t)
	case []byte:
		v = BytesValue(t)
	case EnumValue:
		v = EnumFieldValue(t)
	case Message:
		v = MessageValue(t)
	case json.Number:
		return ParseText(kind, t.String())
	case string:
		if kind == schema.KindString || kind == schema.KindEnum {
			v = StringValue(t)
			break
		}
		return ParseText(kind, t)
	case nil:
		return FieldValue{}, CoercionErrorf("nil value for %s field", kind)
	default:
		return FieldValue{}, CoercionErrorf("expected %s-like value, got %T", kind, x)
	}
	return Coerce(kind, v)
}
