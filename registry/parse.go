package registry

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/protoserial/schema"
)

// fileBuilder converts one parsed .proto AST into schema definitions. Type references
// are left as written; the registry resolves them once every file is loaded.
type fileBuilder struct {
	file   *schema.ProtoFile
	proto3 bool
}

func buildFile(name string, proto *protoparserparser.Proto) (*schema.ProtoFile, error) {
	b := &fileBuilder{
		file: &schema.ProtoFile{
			Name:   name,
			Syntax: "proto2",
		},
	}
	if proto.Syntax != nil && strings.Contains(proto.Syntax.ProtobufVersion, "proto3") {
		b.file.Syntax = "proto3"
		b.proto3 = true
	}
	for _, body := range proto.ProtoBody {
		if p, ok := body.(*protoparserparser.Package); ok {
			b.file.Package = p.Name
		}
	}
	for _, body := range proto.ProtoBody {
		switch v := body.(type) {
		case *protoparserparser.Import:
			b.file.Imports = append(b.file.Imports, strings.Trim(v.Location, `"`))
		case *protoparserparser.Message:
			msg, err := b.message(b.file.Package, v.MessageName, v.MessageBody)
			if err != nil {
				return nil, err
			}
			b.file.Messages = append(b.file.Messages, msg)
		case *protoparserparser.Enum:
			b.file.Enums = append(b.file.Enums, b.enum(qualify(b.file.Package, v.EnumName), v.EnumBody))
		case *protoparserparser.Extend:
			exts, err := b.extend(b.file.Package, v)
			if err != nil {
				return nil, err
			}
			b.file.Extensions = append(b.file.Extensions, exts...)
		}
	}
	return b.file, nil
}

func qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

func parseNumber(s string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid field number %q", s)
	}
	return int32(n), nil
}

func (b *fileBuilder) message(scope, name string, body []protoparserparser.Visitee) (*schema.Message, error) {
	msg := &schema.Message{Name: qualify(scope, name)}
	for _, item := range body {
		switch v := item.(type) {
		case *protoparserparser.Field:
			label := schema.LabelOptional
			switch {
			case v.IsRepeated:
				label = schema.LabelRepeated
			case v.IsRequired:
				label = schema.LabelRequired
			}
			f, err := b.field(v.FieldName, v.FieldNumber, v.Type, label, v.FieldOptions)
			if err != nil {
				return nil, errors.Wrapf(err, "message %s", msg.Name)
			}
			msg.Fields = append(msg.Fields, f)
		case *protoparserparser.MapField:
			f, entry, err := b.mapField(msg.Name, v)
			if err != nil {
				return nil, errors.Wrapf(err, "message %s", msg.Name)
			}
			msg.Fields = append(msg.Fields, f)
			msg.NestedTypes = append(msg.NestedTypes, entry)
		case *protoparserparser.Oneof:
			group := &schema.Oneof{Name: v.OneofName}
			index := int32(len(msg.OneofGroups))
			for _, of := range v.OneofFields {
				f, err := b.field(of.FieldName, of.FieldNumber, of.Type, schema.LabelOptional, of.FieldOptions)
				if err != nil {
					return nil, errors.Wrapf(err, "message %s", msg.Name)
				}
				f.OneofIndex = index
				msg.Fields = append(msg.Fields, f)
				group.Fields = append(group.Fields, f)
			}
			msg.OneofGroups = append(msg.OneofGroups, group)
		case *protoparserparser.GroupField:
			nested, err := b.message(msg.Name, v.GroupName, v.MessageBody)
			if err != nil {
				return nil, err
			}
			number, err := parseNumber(v.FieldNumber)
			if err != nil {
				return nil, errors.Wrapf(err, "message %s", msg.Name)
			}
			label := schema.LabelOptional
			switch {
			case v.IsRepeated:
				label = schema.LabelRepeated
			case v.IsRequired:
				label = schema.LabelRequired
			}
			fieldName := strings.ToLower(v.GroupName)
			msg.Fields = append(msg.Fields, &schema.Field{
				Name:       fieldName,
				Number:     number,
				Label:      label,
				Kind:       schema.KindGroup,
				TypeName:   nested.Name,
				JsonName:   schema.JSONName(fieldName),
				OneofIndex: -1,
			})
			msg.NestedTypes = append(msg.NestedTypes, nested)
		case *protoparserparser.Message:
			nested, err := b.message(msg.Name, v.MessageName, v.MessageBody)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)
		case *protoparserparser.Enum:
			msg.NestedEnums = append(msg.NestedEnums, b.enum(qualify(msg.Name, v.EnumName), v.EnumBody))
		case *protoparserparser.Extend:
			exts, err := b.extend(msg.Name, v)
			if err != nil {
				return nil, err
			}
			msg.Extensions = append(msg.Extensions, exts...)
		}
	}
	return msg, nil
}

func (b *fileBuilder) field(name, number, typ string, label schema.FieldLabel, opts []*protoparserparser.FieldOption) (*schema.Field, error) {
	n, err := parseNumber(number)
	if err != nil {
		return nil, errors.Wrapf(err, "field %s", name)
	}
	f := &schema.Field{
		Name:       name,
		Number:     n,
		Label:      label,
		JsonName:   schema.JSONName(name),
		OneofIndex: -1,
	}
	if kind, ok := schema.ParseFieldKind(typ); ok {
		f.Kind = kind
	} else {
		// Message or enum; decided during resolution.
		f.TypeName = typ
	}
	// Enum references are packable too; resolution clears this for messages.
	f.Packed = b.proto3 && label == schema.LabelRepeated && (f.Kind.Packable() || f.TypeName != "")
	for _, opt := range opts {
		value := strings.Trim(opt.Constant, `"`)
		switch opt.OptionName {
		case "packed":
			f.Packed = value == "true"
		case "default":
			f.DefaultValue = value
		case "json_name":
			f.JsonName = value
		}
	}
	return f, nil
}

func (b *fileBuilder) mapField(parent string, v *protoparserparser.MapField) (*schema.Field, *schema.Message, error) {
	key, err := b.field("key", "1", v.KeyType, schema.LabelOptional, nil)
	if err != nil {
		return nil, nil, err
	}
	value, err := b.field("value", "2", v.Type, schema.LabelOptional, nil)
	if err != nil {
		return nil, nil, err
	}
	entry := &schema.Message{
		Name:     schema.MapEntryName(parent, v.MapName),
		Fields:   []*schema.Field{key, value},
		MapEntry: true,
	}
	f, err := b.field(v.MapName, v.FieldNumber, entry.Name, schema.LabelRepeated, v.FieldOptions)
	if err != nil {
		return nil, nil, err
	}
	f.Kind = schema.KindMessage
	f.TypeName = "." + entry.Name
	f.Packed = false
	return f, entry, nil
}

func (b *fileBuilder) enum(fullName string, body []protoparserparser.Visitee) *schema.Enum {
	e := &schema.Enum{Name: fullName}
	for _, item := range body {
		switch v := item.(type) {
		case *protoparserparser.EnumField:
			n, err := strconv.ParseInt(strings.TrimSpace(v.Number), 0, 32)
			if err != nil {
				continue
			}
			e.Values = append(e.Values, &schema.EnumValue{Name: v.Ident, Number: int32(n)})
		case *protoparserparser.Option:
			if v.OptionName == "allow_alias" && v.Constant == "true" {
				e.AllowAlias = true
			}
		}
	}
	return e
}

func (b *fileBuilder) extend(scope string, v *protoparserparser.Extend) ([]*schema.Field, error) {
	var out []*schema.Field
	for _, item := range v.ExtendBody {
		fd, ok := item.(*protoparserparser.Field)
		if !ok {
			continue
		}
		label := schema.LabelOptional
		if fd.IsRepeated {
			label = schema.LabelRepeated
		}
		f, err := b.field(fd.FieldName, fd.FieldNumber, fd.Type, label, fd.FieldOptions)
		if err != nil {
			return nil, errors.Wrapf(err, "extend %s", v.MessageType)
		}
		// Extensions are addressed by their scoped name in text formats.
		f.Name = qualify(scope, fd.FieldName)
		f.JsonName = "[" + f.Name + "]"
		f.Extendee = v.MessageType
		out = append(out, f)
	}
	return out, nil
}
