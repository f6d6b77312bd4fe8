package schema

// ProtoRepo represents a collection of .proto files and their definitions.
type ProtoRepo struct {
	ProtoFiles map[string]*ProtoFile `json:"proto_files"`
}

// ProtoFile represents a single .proto file
type ProtoFile struct {
	Name       string     `json:"name"`       // file.proto
	Package    string     `json:"package"`    // package name
	Syntax     string     `json:"syntax"`     // proto2 or proto3
	Imports    []string   `json:"imports"`    // imported files
	Messages   []*Message `json:"messages"`   // message definitions
	Enums      []*Enum    `json:"enums"`      // enum definitions
	Extensions []*Field   `json:"extensions"` // top-level extend blocks
}

// Message represents a protobuf message definition
type Message struct {
	Name        string     `json:"name"`         // fully qualified: "test.User"
	Fields      []*Field   `json:"fields"`       // message fields, oneof members included
	NestedTypes []*Message `json:"nested_types"` // nested messages
	NestedEnums []*Enum    `json:"nested_enums"` // nested enums
	Extensions  []*Field   `json:"extensions"`   // extension fields declared inside this message
	OneofGroups []*Oneof   `json:"oneof_groups"` // oneof groups
	MapEntry    bool       `json:"map_entry"`    // is this a synthesized map entry?
}

// Field represents a message field
type Field struct {
	Name         string     `json:"name"`                // "user_name"
	Number       int32      `json:"number"`              // 1
	Label        FieldLabel `json:"label"`               // optional, required, repeated
	Kind         FieldKind  `json:"kind"`                // wire representation
	TypeName     string     `json:"type_name,omitempty"` // message, group or enum type: "test.User"
	Packed       bool       `json:"packed"`              // repeated scalars written packed
	DefaultValue string     `json:"default_value"`       // default value (proto2)
	JsonName     string     `json:"json_name"`           // JSON field name
	OneofIndex   int32      `json:"oneof_index"`         // oneof group index (-1 if not in oneof)
	Extendee     string     `json:"extendee,omitempty"`  // containing type for extensions
}

// Oneof represents a oneof group
type Oneof struct {
	Name   string   `json:"name"`   // "user_info"
	Fields []*Field `json:"fields"` // fields in this oneof
}

// FieldLabel represents field labels
type FieldLabel string

const (
	LabelOptional FieldLabel = "optional"
	LabelRequired FieldLabel = "required"
	LabelRepeated FieldLabel = "repeated"
)

// IsRepeated reports whether the field holds a list of values.
func (f *Field) IsRepeated() bool {
	return f.Label == LabelRepeated
}

// FieldByNumber returns the field declared with the given number.
func (m *Message) FieldByNumber(number int32) *Field {
	for _, f := range m.Fields {
		if f.Number == number {
			return f
		}
	}
	return nil
}

// FieldByName resolves a field by its proto name or its JSON name.
func (m *Message) FieldByName(name string) *Field {
	for _, f := range m.Fields {
		if f.Name == name {
			return f
		}
	}
	for _, f := range m.Fields {
		if f.JsonName == name {
			return f
		}
	}
	return nil
}

// Enum represents an enum definition
type Enum struct {
	Name       string       `json:"name"`        // "test.Status"
	Values     []*EnumValue `json:"values"`      // enum values
	AllowAlias bool         `json:"allow_alias"` // allow_alias option
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string `json:"name"`   // "ACTIVE"
	Number int32  `json:"number"` // 1
}

// EnumMap resolves enum values by number or by symbolic name.
type EnumMap interface {
	FindByNumber(number int32) (*EnumValue, bool)
	FindByName(name string) (*EnumValue, bool)
}

var _ EnumMap = (*Enum)(nil)

// FindByNumber returns the first value declared with number. Aliases resolve to
// the first declaration.
func (e *Enum) FindByNumber(number int32) (*EnumValue, bool) {
	for _, v := range e.Values {
		if v.Number == number {
			return v, true
		}
	}
	return nil, false
}

// FindByName returns the value declared with name.
func (e *Enum) FindByName(name string) (*EnumValue, bool) {
	for _, v := range e.Values {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}
