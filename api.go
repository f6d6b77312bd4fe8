// Package protoserial converts schema-described messages between the protobuf
// binary format, JSON, XML and in-memory dictionaries without generated code.
package protoserial

import (
	"bytes"
	"mime"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/anirudhraja/protoserial/dynamic"
	"github.com/anirudhraja/protoserial/registry"
	"github.com/anirudhraja/protoserial/serialization"
	"github.com/anirudhraja/protoserial/serialization/dictfmt"
	"github.com/anirudhraja/protoserial/serialization/jsonfmt"
	"github.com/anirudhraja/protoserial/serialization/wirefmt"
	"github.com/anirudhraja/protoserial/serialization/xmlfmt"
)

// ErrUnsupportedContentType is returned for a content type no backend handles.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// Format identifies a wire representation.
type Format int

const (
	FormatBinary Format = iota
	FormatJSON
	FormatXML
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	}
	return "unknown"
}

var contentTypes = map[string]Format{
	"application/json":                FormatJSON,
	"text/json":                       FormatJSON,
	"application/xml":                 FormatXML,
	"text/xml":                        FormatXML,
	"application/x-protobuf":          FormatBinary,
	"application/vnd.google.protobuf": FormatBinary,
}

// FormatForContentType maps a MIME content type to a Format. Parameters such as
// charset are ignored and matching is case-insensitive.
func FormatForContentType(contentType string) (Format, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	f, ok := contentTypes[mediaType]
	if !ok {
		return 0, errors.Wrapf(ErrUnsupportedContentType, "%q", contentType)
	}
	return f, nil
}

// FormatOptions tunes the text backends.
type FormatOptions struct {
	JSON    jsonfmt.WriterOptions
	XML     xmlfmt.WriterOptions
	XMLRead xmlfmt.ReaderOptions
}

// Option configures a Protoserial.
type Option func(*Protoserial)

// WithOptions sets the engine options (depth limit, logger).
func WithOptions(opts serialization.Options) Option {
	return func(p *Protoserial) { p.opts = opts }
}

// WithFormatOptions sets the text backend options.
func WithFormatOptions(fopts FormatOptions) Option {
	return func(p *Protoserial) { p.formats = fopts }
}

// WithProtoDirectories adds directories searched for imported .proto files.
func WithProtoDirectories(dirs ...string) Option {
	return func(p *Protoserial) {
		p.registry.ProtoDirectories = append(p.registry.ProtoDirectories, dirs...)
	}
}

// Protoserial provides schema-aware conversions without generated code.
type Protoserial struct {
	registry *registry.Registry
	opts     serialization.Options
	formats  FormatOptions
}

// New creates a Protoserial with an empty registry.
func New(options ...Option) *Protoserial {
	p := &Protoserial{registry: registry.NewRegistry()}
	for _, o := range options {
		o(p)
	}
	p.opts = p.opts.Normalized()
	p.registry.SetLogger(p.opts.Logger)
	return p
}

// LoadSchema loads a .proto file, or every .proto file under a directory.
func (p *Protoserial) LoadSchema(path string) error {
	return p.registry.LoadSchema(path)
}

// LoadSchemaFromString loads .proto source held in memory under the given name.
func (p *Protoserial) LoadSchemaFromString(name, content string) error {
	return p.registry.LoadSchemaFromString(name, content)
}

// NewBuilder returns an empty builder for messageType.
func (p *Protoserial) NewBuilder(messageType string) (*dynamic.Builder, error) {
	desc, err := p.registry.GetMessage(messageType)
	if err != nil {
		return nil, errors.Wrapf(err, "message type not found: %s", messageType)
	}
	return dynamic.NewBuilder(desc, p.registry), nil
}

// NewReader returns a Reader decoding data in the given content type.
func (p *Protoserial) NewReader(contentType string, data []byte) (*serialization.Reader, error) {
	f, err := FormatForContentType(contentType)
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatJSON:
		return jsonfmt.NewReader(data, p.opts), nil
	case FormatXML:
		return xmlfmt.NewReader(data, p.formats.XMLRead, p.opts), nil
	}
	return wirefmt.NewReader(data, p.opts), nil
}

// Unmarshal decodes data of the given content type as messageType.
func (p *Protoserial) Unmarshal(data []byte, contentType, messageType string) (*dynamic.Message, error) {
	r, err := p.NewReader(contentType, data)
	if err != nil {
		return nil, err
	}
	return p.read(r, messageType)
}

func (p *Protoserial) read(r *serialization.Reader, messageType string) (*dynamic.Message, error) {
	b, err := p.NewBuilder(messageType)
	if err != nil {
		return nil, err
	}
	if err := r.Merge(b, p.registry); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", messageType)
	}
	m, err := b.Build()
	if err != nil {
		return nil, err
	}
	return m.(*dynamic.Message), nil
}

// Marshal encodes m in the given content type.
func (p *Protoserial) Marshal(m serialization.Message, contentType string) ([]byte, error) {
	f, err := FormatForContentType(contentType)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	switch f {
	case FormatJSON:
		err = jsonfmt.NewWriter(&buf, p.formats.JSON, p.opts).WriteRoot(m)
	case FormatXML:
		var w *serialization.Writer
		if w, err = xmlfmt.NewWriter(&buf, p.formats.XML, p.opts); err == nil {
			err = w.WriteRoot(m)
		}
	default:
		w := wirefmt.NewWriter(p.opts)
		if err = w.WriteRoot(m); err == nil {
			buf.Write(w.Bytes())
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s", f)
	}
	return buf.Bytes(), nil
}

// Convert decodes data from one content type and re-encodes it in another.
func (p *Protoserial) Convert(data []byte, from, to, messageType string) ([]byte, error) {
	m, err := p.Unmarshal(data, from, messageType)
	if err != nil {
		return nil, err
	}
	return p.Marshal(m, to)
}

// ToDictionary writes m into an ordered dictionary.
func (p *Protoserial) ToDictionary(m serialization.Message) (*dictfmt.Dictionary, error) {
	w := dictfmt.NewWriter(p.opts)
	if err := w.WriteRoot(m); err != nil {
		return nil, err
	}
	return w.Dictionary(), nil
}

// FromDictionary reads a dictionary as messageType.
func (p *Protoserial) FromDictionary(d *dictfmt.Dictionary, messageType string) (*dynamic.Message, error) {
	return p.read(dictfmt.NewReader(d, p.opts), messageType)
}

// Parse decodes protobuf bytes into a plain map keyed by field name.
func (p *Protoserial) Parse(data []byte, messageType string) (map[string]interface{}, error) {
	m, err := p.read(wirefmt.NewReader(data, p.opts), messageType)
	if err != nil {
		return nil, err
	}
	d, err := p.ToDictionary(m)
	if err != nil {
		return nil, err
	}
	return d.ToMap(), nil
}

// MarshalMap encodes a plain map keyed by field name to protobuf bytes.
func (p *Protoserial) MarshalMap(data map[string]interface{}, messageType string) ([]byte, error) {
	m, err := p.read(dictfmt.NewMapReader(data, p.opts), messageType)
	if err != nil {
		return nil, err
	}
	return p.Marshal(m, "application/x-protobuf")
}

// UnmarshalToStruct decodes data of the given content type and copies the fields
// onto the struct v points to, matching `dict` tags.
func (p *Protoserial) UnmarshalToStruct(data []byte, contentType, messageType string, v interface{}) error {
	m, err := p.Unmarshal(data, contentType, messageType)
	if err != nil {
		return err
	}
	d, err := p.ToDictionary(m)
	if err != nil {
		return err
	}
	return dictfmt.DecodeStruct(d, v)
}

// ===== REGISTRY ACCESS =====

func (p *Protoserial) GetRegistry() *registry.Registry { return p.registry }
func (p *Protoserial) ListMessages() []string          { return p.registry.ListMessages() }
func (p *Protoserial) ListEnums() []string             { return p.registry.ListEnums() }
