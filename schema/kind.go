package schema

import "fmt"

// FieldKind identifies a field's primitive wire representation. The set is closed:
// every codec switches over these values instead of inspecting Go types at runtime.
type FieldKind int32

const (
	KindInvalid FieldKind = iota
	KindBool
	KindInt32
	KindInt64
	KindUint32
	KindUint64
	KindSint32
	KindSint64
	KindFixed32
	KindFixed64
	KindSfixed32
	KindSfixed64
	KindFloat
	KindDouble
	KindString
	KindBytes
	KindEnum
	KindMessage
	KindGroup

	kindCount
)

// WireCategory is the framing a field kind uses on the binary wire.
type WireCategory int32

const (
	CategoryVarint WireCategory = iota
	CategoryFixed32
	CategoryFixed64
	CategoryLengthDelimited
	CategoryGroup
)

var kindNames = [kindCount]string{
	KindInvalid:  "invalid",
	KindBool:     "bool",
	KindInt32:    "int32",
	KindInt64:    "int64",
	KindUint32:   "uint32",
	KindUint64:   "uint64",
	KindSint32:   "sint32",
	KindSint64:   "sint64",
	KindFixed32:  "fixed32",
	KindFixed64:  "fixed64",
	KindSfixed32: "sfixed32",
	KindSfixed64: "sfixed64",
	KindFloat:    "float",
	KindDouble:   "double",
	KindString:   "string",
	KindBytes:    "bytes",
	KindEnum:     "enum",
	KindMessage:  "message",
	KindGroup:    "group",
}

var kindsByName = func() map[string]FieldKind {
	m := make(map[string]FieldKind, len(kindNames))
	for k, name := range kindNames {
		if FieldKind(k) != KindInvalid {
			m[name] = FieldKind(k)
		}
	}
	return m
}()

func (k FieldKind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("FieldKind(%d)", int32(k))
}

// Valid reports whether k is one of the declared kinds.
func (k FieldKind) Valid() bool {
	return k > KindInvalid && k < kindCount
}

// Category returns the wire category of k. Invalid kinds report CategoryVarint.
func (k FieldKind) Category() WireCategory {
	switch k {
	case KindFixed32, KindSfixed32, KindFloat:
		return CategoryFixed32
	case KindFixed64, KindSfixed64, KindDouble:
		return CategoryFixed64
	case KindString, KindBytes, KindMessage:
		return CategoryLengthDelimited
	case KindGroup:
		return CategoryGroup
	default:
		return CategoryVarint
	}
}

// Packable reports whether repeated values of k may use packed encoding.
func (k FieldKind) Packable() bool {
	switch k {
	case KindString, KindBytes, KindMessage, KindGroup, KindInvalid:
		return false
	}
	return k.Valid()
}

// IsFloatingPoint reports whether k is float or double.
func (k FieldKind) IsFloatingPoint() bool {
	return k == KindFloat || k == KindDouble
}

// Is64Bit reports whether k decodes into a 64-bit integer.
func (k FieldKind) Is64Bit() bool {
	switch k {
	case KindInt64, KindUint64, KindSint64, KindFixed64, KindSfixed64:
		return true
	}
	return false
}

// IsUnsigned reports whether k decodes into an unsigned integer.
func (k FieldKind) IsUnsigned() bool {
	switch k {
	case KindUint32, KindUint64, KindFixed32, KindFixed64:
		return true
	}
	return false
}

// ParseFieldKind maps a .proto scalar type name ("int32", "sfixed64", ...) to its kind.
func ParseFieldKind(name string) (FieldKind, bool) {
	k, ok := kindsByName[name]
	if !ok || k == KindEnum || k == KindMessage || k == KindGroup {
		return KindInvalid, false
	}
	return k, true
}
