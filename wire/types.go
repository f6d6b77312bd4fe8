package wire

import (
	"github.com/anirudhraja/protoserial/schema"
	"google.golang.org/protobuf/encoding/protowire"
)

// ===== PROTOBUF WIRE FORMAT TYPES =====

// WireType represents protobuf wire format types
type WireType int32

const (
	WireVarint     WireType = WireType(protowire.VarintType)     // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	WireFixed64    WireType = WireType(protowire.Fixed64Type)    // fixed64, sfixed64, double
	WireBytes      WireType = WireType(protowire.BytesType)      // string, bytes, embedded messages, packed repeated fields
	WireStartGroup WireType = WireType(protowire.StartGroupType) // group start marker
	WireEndGroup   WireType = WireType(protowire.EndGroupType)   // group end marker
	WireFixed32    WireType = WireType(protowire.Fixed32Type)    // fixed32, sfixed32, float
)

func (wt WireType) String() string {
	switch wt {
	case WireVarint:
		return "varint"
	case WireFixed64:
		return "fixed64"
	case WireBytes:
		return "bytes"
	case WireStartGroup:
		return "start_group"
	case WireEndGroup:
		return "end_group"
	case WireFixed32:
		return "fixed32"
	default:
		return "invalid"
	}
}

// FieldNumber represents a protobuf field number
type FieldNumber int32

// Tag represents a protobuf field tag (field number + wire type)
type Tag uint64

// MakeTag creates a tag from field number and wire type
func MakeTag(fieldNumber FieldNumber, wireType WireType) Tag {
	return Tag(protowire.EncodeTag(protowire.Number(fieldNumber), protowire.Type(wireType)))
}

// ParseTag parses a tag into field number and wire type
func ParseTag(tag Tag) (FieldNumber, WireType) {
	n, t := protowire.DecodeTag(uint64(tag))
	return FieldNumber(n), WireType(t)
}

// WireTypeFor returns the wire type a singular value of kind is framed with.
func WireTypeFor(kind schema.FieldKind) WireType {
	switch kind.Category() {
	case schema.CategoryFixed32:
		return WireFixed32
	case schema.CategoryFixed64:
		return WireFixed64
	case schema.CategoryLengthDelimited:
		return WireBytes
	case schema.CategoryGroup:
		return WireStartGroup
	default:
		return WireVarint
	}
}

// UnknownField is a field the decoder had no schema for, kept as its raw wire bytes
// (tag included) so it can be written back unchanged.
type UnknownField struct {
	Number   FieldNumber
	WireType WireType
	Raw      []byte
}
