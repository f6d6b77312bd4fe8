package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/protoserial/schema"
)

const userProto = `syntax = "proto3";
package test.users;

enum Status {
  UNKNOWN = 0;
  ACTIVE = 1;
  SUSPENDED = 2;
}

message Address {
  string street = 1;
  string city = 2;
}

message User {
  message Preferences {
    bool newsletter = 1;
    Theme theme = 2;
    enum Theme {
      LIGHT = 0;
      DARK = 1;
    }
  }
  string user_name = 1;
  int32 id = 2;
  Status status = 3;
  repeated Address addresses = 4;
  repeated int64 scores = 5;
  map<string, int32> counters = 6;
  Preferences prefs = 7;
  oneof contact {
    string email = 8;
    string phone = 9;
  }
  string display = 10 [json_name = "shownAs"];
}
`

func loadUsers(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.LoadSchemaFromString("users.proto", userProto))
	return r
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry("protos")
	require.NotNil(t, r)
	assert.Equal(t, []string{"protos"}, r.ProtoDirectories)
	assert.Empty(t, r.ListMessages())
	assert.Empty(t, r.ListEnums())
}

func TestLoadSchema_NonExistentPath(t *testing.T) {
	err := NewRegistry().LoadSchema("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path does not exist")
}

func TestLoadSchema_NonProtoFile(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "test.txt")
	require.NoError(t, os.WriteFile(tmp, []byte("hello"), 0o644))

	err := NewRegistry().LoadSchema(tmp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a .proto file")
}

func TestLoadSchema_FollowsImports(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "common.proto"), []byte(`syntax = "proto3";
package test.common;

message Money {
  string currency = 1;
  int64 units = 2;
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "order.proto"), []byte(`syntax = "proto3";
package test.orders;

import "common.proto";
import "google/protobuf/timestamp.proto";

message Order {
  string id = 1;
  test.common.Money total = 2;
}
`), 0o644))

	r := NewRegistry(dir)
	require.NoError(t, r.LoadSchema(filepath.Join(dir, "order.proto")))

	assert.Equal(t, []string{"test.common.Money", "test.orders.Order"}, r.ListMessages())
	order, err := r.GetMessage("test.orders.Order")
	require.NoError(t, err)
	total := order.FieldByName("total")
	require.NotNil(t, total)
	assert.Equal(t, schema.KindMessage, total.Kind)
	assert.Equal(t, "test.common.Money", total.TypeName)
}

func TestLoadSchema_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.proto"), []byte(`syntax = "proto3";
package dir;
message A { B b = 1; }
`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.proto"), []byte(`syntax = "proto3";
package dir;
message B { string name = 1; }
`), 0o644))

	r := NewRegistry()
	require.NoError(t, r.LoadSchema(dir))
	assert.Equal(t, []string{"dir.A", "dir.B"}, r.ListMessages())
	assert.Len(t, r.Files(), 2)
}

func TestLoadSchemaFromString_ParseError(t *testing.T) {
	err := NewRegistry().LoadSchemaFromString("bad.proto", "message {")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.proto")
}

func TestLoadSchemaFromString_UnresolvedType(t *testing.T) {
	err := NewRegistry().LoadSchemaFromString("bad.proto", `syntax = "proto3";
message A { Missing m = 1; }
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to resolve type name: Missing")
}

func TestGetMessage(t *testing.T) {
	r := loadUsers(t)

	user, err := r.GetMessage("test.users.User")
	require.NoError(t, err)
	assert.Equal(t, "test.users.User", user.Name)

	byShortName, err := r.GetMessage("User")
	require.NoError(t, err)
	assert.Same(t, user, byShortName)

	withDot, err := r.GetMessage(".test.users.User")
	require.NoError(t, err)
	assert.Same(t, user, withDot)

	_, err = r.GetMessage("NonExistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message not found")
}

func TestGetEnum(t *testing.T) {
	r := loadUsers(t)

	status, err := r.GetEnum("test.users.Status")
	require.NoError(t, err)
	v, ok := status.FindByName("SUSPENDED")
	require.True(t, ok)
	assert.Equal(t, int32(2), v.Number)

	theme, err := r.GetEnum("test.users.User.Preferences.Theme")
	require.NoError(t, err)
	assert.Len(t, theme.Values, 2)

	_, err = r.GetEnum("Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enum not found")
}

func TestListMessagesAndEnums(t *testing.T) {
	r := loadUsers(t)
	assert.Equal(t, []string{
		"test.users.Address",
		"test.users.User",
		"test.users.User.CountersEntry",
		"test.users.User.Preferences",
	}, r.ListMessages())
	assert.Equal(t, []string{"test.users.Status", "test.users.User.Preferences.Theme"}, r.ListEnums())
}

func TestResolveFields(t *testing.T) {
	r := loadUsers(t)
	user, err := r.GetMessage("test.users.User")
	require.NoError(t, err)

	tests := []struct {
		name     string
		kind     schema.FieldKind
		typeName string
		label    schema.FieldLabel
		packed   bool
		jsonName string
	}{
		{"user_name", schema.KindString, "", schema.LabelOptional, false, "userName"},
		{"id", schema.KindInt32, "", schema.LabelOptional, false, "id"},
		{"status", schema.KindEnum, "test.users.Status", schema.LabelOptional, false, "status"},
		{"addresses", schema.KindMessage, "test.users.Address", schema.LabelRepeated, false, "addresses"},
		{"scores", schema.KindInt64, "", schema.LabelRepeated, true, "scores"},
		{"counters", schema.KindMessage, "test.users.User.CountersEntry", schema.LabelRepeated, false, "counters"},
		{"prefs", schema.KindMessage, "test.users.User.Preferences", schema.LabelOptional, false, "prefs"},
		{"display", schema.KindString, "", schema.LabelOptional, false, "shownAs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := user.FieldByName(tt.name)
			require.NotNil(t, f)
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.typeName, f.TypeName)
			assert.Equal(t, tt.label, f.Label)
			assert.Equal(t, tt.packed, f.Packed)
			assert.Equal(t, tt.jsonName, f.JsonName)
		})
	}

	// Nested types resolve against the innermost scope first.
	prefs, err := r.GetMessage("test.users.User.Preferences")
	require.NoError(t, err)
	assert.Equal(t, "test.users.User.Preferences.Theme", prefs.FieldByName("theme").TypeName)
}

func TestMapEntry(t *testing.T) {
	r := loadUsers(t)
	entry, err := r.GetMessage("test.users.User.CountersEntry")
	require.NoError(t, err)
	assert.True(t, entry.MapEntry)
	require.Len(t, entry.Fields, 2)
	assert.Equal(t, "key", entry.Fields[0].Name)
	assert.Equal(t, schema.KindString, entry.Fields[0].Kind)
	assert.Equal(t, "value", entry.Fields[1].Name)
	assert.Equal(t, schema.KindInt32, entry.Fields[1].Kind)
}

func TestOneof(t *testing.T) {
	r := loadUsers(t)
	user, err := r.GetMessage("test.users.User")
	require.NoError(t, err)
	require.Len(t, user.OneofGroups, 1)
	assert.Equal(t, "contact", user.OneofGroups[0].Name)
	assert.Equal(t, int32(0), user.FieldByName("email").OneofIndex)
	assert.Equal(t, int32(0), user.FieldByName("phone").OneofIndex)
	assert.Equal(t, int32(-1), user.FieldByName("id").OneofIndex)
}

func TestProto2GroupsDefaultsAndExtensions(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.LoadSchemaFromString("legacy.proto", `syntax = "proto2";
package legacy;

message Search {
  required string query = 1;
  optional int32 page = 2 [default = 1];
  repeated int32 ids = 3;
  repeated int32 packed_ids = 4 [packed = true];
  repeated group Result = 5 {
    required string url = 6;
  }
  extensions 100 to 199;
}

extend Search {
  optional string trace_id = 100;
}
`))

	search, err := r.GetMessage("legacy.Search")
	require.NoError(t, err)

	assert.Equal(t, schema.LabelRequired, search.FieldByName("query").Label)
	assert.Equal(t, "1", search.FieldByName("page").DefaultValue)
	assert.False(t, search.FieldByName("ids").Packed, "proto2 repeated scalars are unpacked by default")
	assert.True(t, search.FieldByName("packed_ids").Packed)

	group := search.FieldByNumber(5)
	require.NotNil(t, group)
	assert.Equal(t, "result", group.Name)
	assert.Equal(t, schema.KindGroup, group.Kind)
	assert.Equal(t, "legacy.Search.Result", group.TypeName)

	ext, ok := r.FindExtensionByNumber("legacy.Search", 100)
	require.True(t, ok)
	assert.Equal(t, "legacy.trace_id", ext.Name)
	assert.Equal(t, "legacy.Search", ext.Extendee)
	assert.Equal(t, schema.KindString, ext.Kind)

	byName, ok := r.FindExtensionByName("legacy.Search", "[legacy.trace_id]")
	require.True(t, ok)
	assert.Same(t, ext, byName)

	_, ok = r.FindExtensionByNumber("legacy.Search", 101)
	assert.False(t, ok)
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&schema.ProtoFile{
		Name:    "handmade.proto",
		Package: "hand",
		Enums: []*schema.Enum{{
			Name:   "hand.Color",
			Values: []*schema.EnumValue{{Name: "RED", Number: 0}, {Name: "BLUE", Number: 1}},
		}},
		Messages: []*schema.Message{{
			Name: "hand.Paint",
			Fields: []*schema.Field{
				{Name: "color", Number: 1, Label: schema.LabelOptional, TypeName: "Color", OneofIndex: -1},
				{Name: "liters", Number: 2, Label: schema.LabelOptional, Kind: schema.KindDouble, OneofIndex: -1},
			},
		}},
	}))

	paint, err := r.GetMessage("hand.Paint")
	require.NoError(t, err)
	color := paint.FieldByName("color")
	assert.Equal(t, schema.KindEnum, color.Kind)
	assert.Equal(t, "hand.Color", color.TypeName)
	assert.Equal(t, "color", color.JsonName)
}

func TestGetReferencedType(t *testing.T) {
	names := map[string]struct{}{
		"a.b.C":   {},
		"a.C":     {},
		"x.Y":     {},
		"a.b.C.D": {},
	}
	tests := []struct {
		typeName, scope, want string
	}{
		{"C", "a.b", "a.b.C"},
		{"C", "a", "a.C"},
		{"C.D", "a.b.E", "a.b.C.D"},
		{".a.C", "a.b", "a.C"},
		{"x.Y", "a.b", "x.Y"},
	}
	for _, tt := range tests {
		got, err := getReferencedType(tt.typeName, tt.scope, names)
		require.NoError(t, err, tt.typeName)
		assert.Equal(t, tt.want, got, tt.typeName)
	}

	_, err := getReferencedType(".a.Z", "a", names)
	assert.Error(t, err)
	_, err = getReferencedType("Z", "a.b", names)
	assert.Error(t, err)
}
