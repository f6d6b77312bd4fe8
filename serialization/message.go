package serialization

import "github.com/anirudhraja/protoserial/schema"

// Message is a built, immutable message that can stream itself into any Writer.
type Message interface {
	WriteTo(w *Writer) error
}

// Builder accumulates fields read from any Reader.
type Builder interface {
	// MergeFrom consumes fields from r until the current message ends. Fields the
	// builder does not declare are resolved through ext, then skipped.
	MergeFrom(r *Reader, ext ExtensionRegistry) error
	// NewChildBuilder returns a fresh builder for the nested message type of field.
	NewChildBuilder(field FieldID) (Builder, error)
	Build() (Message, error)
}

// BuilderFactory creates the builder for one element of a repeated message field.
type BuilderFactory func() (Builder, error)

// ExtensionRegistry resolves extension fields of a message type.
type ExtensionRegistry interface {
	FindExtensionByNumber(extendee string, number int32) (*schema.Field, bool)
	FindExtensionByName(extendee string, name string) (*schema.Field, bool)
}

type emptyRegistry struct{}

func (emptyRegistry) FindExtensionByNumber(string, int32) (*schema.Field, bool) { return nil, false }
func (emptyRegistry) FindExtensionByName(string, string) (*schema.Field, bool)  { return nil, false }

// EmptyRegistry resolves no extensions.
var EmptyRegistry ExtensionRegistry = emptyRegistry{}
