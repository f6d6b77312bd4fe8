package serialization

import (
	"strconv"

	"github.com/anirudhraja/protoserial/schema"
	"github.com/anirudhraja/protoserial/wire"
)

// FieldID names a field by number, by name, or both. Text backends address fields by
// name and the binary backend by number.
type FieldID struct {
	Number int32
	Name   string
}

// Matches reports whether id and other address the same field. Names win when both
// sides carry one.
func (id FieldID) Matches(other FieldID) bool {
	if id.Name != "" && other.Name != "" {
		return id.Name == other.Name
	}
	return id.Number != 0 && id.Number == other.Number
}

func (id FieldID) String() string {
	if id.Name != "" {
		return id.Name
	}
	return strconv.FormatInt(int64(id.Number), 10)
}

// ReaderBackend is the format-specific half of a Reader. Typed reads return ok=false
// when the value is present but null; the Reader treats that as "field not set".
type ReaderBackend interface {
	ReadMessageStart() error
	ReadMessageEnd() error

	// PeekNext reports the identity of the next field without consuming it, or
	// false when the current message has no more fields.
	PeekNext() (FieldID, bool, error)
	// Skip discards the current field value.
	Skip() error

	ReadBool() (bool, bool, error)
	ReadInt32(kind schema.FieldKind) (int32, bool, error)
	ReadInt64(kind schema.FieldKind) (int64, bool, error)
	ReadUint32(kind schema.FieldKind) (uint32, bool, error)
	ReadUint64(kind schema.FieldKind) (uint64, bool, error)
	ReadFloat() (float32, bool, error)
	ReadDouble() (float64, bool, error)
	ReadString() (string, bool, error)
	ReadBytes() ([]byte, bool, error)
	// ReadEnum returns the enum as found in the input, by number or by name.
	ReadEnum() (EnumValue, bool, error)

	// BeginMessage enters the current field's nested message and returns the
	// backend reading its fields. ok=false means the value was null.
	BeginMessage() (child ReaderBackend, ok bool, err error)
	EndMessage(child ReaderBackend) error
}

// GroupReader is implemented by backends that frame groups differently from
// length-delimited messages.
type GroupReader interface {
	BeginGroup(id FieldID) (ReaderBackend, bool, error)
	EndGroup(id FieldID, child ReaderBackend) error
}

// ArrayReader is implemented by backends with their own list syntax. Backends without
// it deliver repeated values as adjacent fields of the same name.
type ArrayReader interface {
	// ReadArrayItems calls item once per element of the repeated field id, with the
	// backend positioned on that element.
	ReadArrayItems(id FieldID, kind schema.FieldKind, item func() error) error
}

// UnknownFieldReader is implemented by backends that can capture a field verbatim.
type UnknownFieldReader interface {
	ReadUnknownField() (wire.UnknownField, error)
}

// WriterBackend is the format-specific half of a Writer. Values reach WriteScalar
// already converted to the field's declared kind.
type WriterBackend interface {
	WriteMessageStart() error
	WriteMessageEnd() error

	WriteScalar(id FieldID, v FieldValue) error
	WriteEnum(id FieldID, v EnumValue) error

	// BeginMessage opens a nested message field and returns the backend that writes
	// its fields.
	BeginMessage(id FieldID) (WriterBackend, error)
	EndMessage(id FieldID, child WriterBackend) error
}

// GroupWriter is implemented by backends with distinct group framing.
type GroupWriter interface {
	BeginGroup(id FieldID) (WriterBackend, error)
	EndGroup(id FieldID, child WriterBackend) error
}

// ArrayWriter is implemented by backends that bracket repeated values.
type ArrayWriter interface {
	BeginArray(id FieldID, kind schema.FieldKind, packed bool, count int) error
	EndArray(id FieldID, kind schema.FieldKind, packed bool) error
}

// EmptyArrayWriter is implemented by backends that emit repeated fields with no
// elements. All others omit them.
type EmptyArrayWriter interface {
	WritesEmptyArrays() bool
}

// UnknownFieldWriter is implemented by backends that can replay a captured field.
type UnknownFieldWriter interface {
	WriteUnknownField(f wire.UnknownField) error
}
