package registry

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	protoparser "github.com/yoheimuta/go-protoparser/v4"
	"go.uber.org/zap"

	"github.com/anirudhraja/protoserial/schema"
)

// Registry allows us to store the schema of the protobuf messages. We look this up
// when we need to read or write a message.
type Registry struct {
	// ProtoDirectories are searched, in order, for imported files.
	ProtoDirectories []string

	repo       *schema.ProtoRepo
	messages   map[string]*schema.Message // fully qualified name -> message
	enums      map[string]*schema.Enum    // fully qualified name -> enum
	extensions map[string][]*schema.Field // extendee full name -> extension fields
	logger     *zap.Logger
}

// NewRegistry returns an empty registry that resolves imports from dirs.
func NewRegistry(dirs ...string) *Registry {
	return &Registry{
		ProtoDirectories: dirs,
		repo:             &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile)},
		messages:         make(map[string]*schema.Message),
		enums:            make(map[string]*schema.Enum),
		extensions:       make(map[string][]*schema.Field),
		logger:           zap.NewNop(),
	}
}

// SetLogger routes load diagnostics to l.
func (r *Registry) SetLogger(l *zap.Logger) {
	if l != nil {
		r.logger = l
	}
}

// LoadSchema loads a .proto file, following its imports, or every .proto file under
// a directory.
func (r *Registry) LoadSchema(protoPath string) error {
	info, err := os.Stat(protoPath)
	if err != nil {
		return errors.Wrap(err, "path does not exist")
	}

	var files []string
	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return errors.Newf("file %s is not a .proto file", protoPath)
		}
		if len(r.ProtoDirectories) == 0 {
			r.ProtoDirectories = []string{filepath.Dir(protoPath)}
		}
		files, err = r.getAllProtoInfo(protoPath)
		if err != nil {
			return errors.Wrap(err, "failed to load proto file")
		}
	} else {
		if len(r.ProtoDirectories) == 0 {
			r.ProtoDirectories = []string{protoPath}
		}
		err = filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".proto") {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return errors.Wrap(err, "failed to walk directory")
		}
	}

	for _, path := range files {
		if _, done := r.repo.ProtoFiles[path]; done {
			continue
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", path)
		}
		if err := r.parse(path, content); err != nil {
			return err
		}
	}
	return r.buildSymbolTable()
}

// LoadSchemaFromString parses a single .proto document held in memory. Imports are
// not followed.
func (r *Registry) LoadSchemaFromString(name, content string) error {
	if err := r.parse(name, []byte(content)); err != nil {
		return err
	}
	return r.buildSymbolTable()
}

// Register adds hand-built definitions and resolves their type references.
func (r *Registry) Register(file *schema.ProtoFile) error {
	r.repo.ProtoFiles[file.Name] = file
	return r.buildSymbolTable()
}

func (r *Registry) parse(name string, content []byte) error {
	parsed, err := protoparser.Parse(bytes.NewReader(content), protoparser.WithFilename(name))
	if err != nil {
		return errors.Wrapf(err, "failed to parse %s", name)
	}
	file, err := buildFile(filepath.Base(name), parsed)
	if err != nil {
		return errors.Wrapf(err, "failed to build %s", name)
	}
	r.repo.ProtoFiles[name] = file
	r.logger.Debug("loaded proto file",
		zap.String("file", name),
		zap.String("package", file.Package),
		zap.Int("messages", len(file.Messages)))
	return nil
}

// buildSymbolTable registers every name, then resolves field type references
// against the complete table.
func (r *Registry) buildSymbolTable() error {
	for _, file := range r.repo.ProtoFiles {
		for _, msg := range file.Messages {
			r.registerMessage(msg)
		}
		for _, e := range file.Enums {
			r.enums[e.Name] = e
		}
	}

	names := make(map[string]struct{}, len(r.messages)+len(r.enums))
	for name := range r.messages {
		names[name] = struct{}{}
	}
	for name := range r.enums {
		names[name] = struct{}{}
	}

	r.extensions = make(map[string][]*schema.Field)
	for _, file := range r.repo.ProtoFiles {
		if err := r.resolveExtensions(file.Package, file.Extensions, names); err != nil {
			return err
		}
	}
	for _, msg := range r.messages {
		for _, f := range msg.Fields {
			if err := r.resolveField(msg.Name, f, names); err != nil {
				return errors.Wrapf(err, "message %s field %s", msg.Name, f.Name)
			}
		}
		if err := r.resolveExtensions(msg.Name, msg.Extensions, names); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) registerMessage(msg *schema.Message) {
	r.messages[msg.Name] = msg
	for _, nested := range msg.NestedTypes {
		r.registerMessage(nested)
	}
	for _, e := range msg.NestedEnums {
		r.enums[e.Name] = e
	}
}

func (r *Registry) resolveField(scope string, f *schema.Field, names map[string]struct{}) error {
	if f.TypeName == "" {
		if !f.Kind.Valid() {
			return errors.Newf("field has neither a kind nor a type name")
		}
		return nil
	}
	full, err := getReferencedType(f.TypeName, scope, names)
	if err != nil {
		return err
	}
	f.TypeName = full
	switch {
	case f.Kind == schema.KindGroup:
	case r.messages[full] != nil:
		f.Kind = schema.KindMessage
		f.Packed = false
	case r.enums[full] != nil:
		f.Kind = schema.KindEnum
	}
	if f.JsonName == "" {
		f.JsonName = schema.JSONName(f.Name)
	}
	return nil
}

func (r *Registry) resolveExtensions(scope string, exts []*schema.Field, names map[string]struct{}) error {
	for _, f := range exts {
		extendee, err := getReferencedType(f.Extendee, scope, names)
		if err != nil {
			return errors.Wrapf(err, "extension %s", f.Name)
		}
		f.Extendee = extendee
		if err := r.resolveField(scope, f, names); err != nil {
			return errors.Wrapf(err, "extension %s", f.Name)
		}
		r.extensions[extendee] = append(r.extensions[extendee], f)
	}
	return nil
}

// GetMessage retrieves a message definition by name
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	name = strings.TrimPrefix(name, ".")
	if msg, exists := r.messages[name]; exists {
		return msg, nil
	}

	// Try without package prefix
	for _, fullName := range r.ListMessages() {
		if strings.HasSuffix(fullName, "."+name) {
			return r.messages[fullName], nil
		}
	}

	return nil, errors.Newf("message not found: %s", name)
}

// GetEnum retrieves an enum definition by name
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	name = strings.TrimPrefix(name, ".")
	if enum, exists := r.enums[name]; exists {
		return enum, nil
	}

	for _, fullName := range r.ListEnums() {
		if strings.HasSuffix(fullName, "."+name) {
			return r.enums[fullName], nil
		}
	}

	return nil, errors.Newf("enum not found: %s", name)
}

// ListMessages returns all registered message names, sorted.
func (r *Registry) ListMessages() []string {
	names := lo.Keys(r.messages)
	sort.Strings(names)
	return names
}

// ListEnums returns all registered enum names, sorted.
func (r *Registry) ListEnums() []string {
	names := lo.Keys(r.enums)
	sort.Strings(names)
	return names
}

// Files returns the loaded files keyed by path.
func (r *Registry) Files() map[string]*schema.ProtoFile {
	return r.repo.ProtoFiles
}

// FindExtensionByNumber resolves an extension of extendee by field number.
func (r *Registry) FindExtensionByNumber(extendee string, number int32) (*schema.Field, bool) {
	return lo.Find(r.extensions[extendee], func(f *schema.Field) bool {
		return f.Number == number
	})
}

// FindExtensionByName resolves an extension of extendee by its scoped name. The
// bracketed JSON form "[pkg.ext]" is accepted too.
func (r *Registry) FindExtensionByName(extendee string, name string) (*schema.Field, bool) {
	name = strings.TrimSuffix(strings.TrimPrefix(name, "["), "]")
	return lo.Find(r.extensions[extendee], func(f *schema.Field) bool {
		return f.Name == name || strings.HasSuffix(f.Name, "."+name)
	})
}
