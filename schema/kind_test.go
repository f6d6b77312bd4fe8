package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldKind_Category(t *testing.T) {
	tests := []struct {
		kind     FieldKind
		category WireCategory
		packable bool
	}{
		{KindBool, CategoryVarint, true},
		{KindInt32, CategoryVarint, true},
		{KindSint64, CategoryVarint, true},
		{KindEnum, CategoryVarint, true},
		{KindFixed32, CategoryFixed32, true},
		{KindSfixed32, CategoryFixed32, true},
		{KindFloat, CategoryFixed32, true},
		{KindFixed64, CategoryFixed64, true},
		{KindDouble, CategoryFixed64, true},
		{KindString, CategoryLengthDelimited, false},
		{KindBytes, CategoryLengthDelimited, false},
		{KindMessage, CategoryLengthDelimited, false},
		{KindGroup, CategoryGroup, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.category, tt.kind.Category())
			assert.Equal(t, tt.packable, tt.kind.Packable())
			assert.True(t, tt.kind.Valid())
		})
	}
}

func TestFieldKind_Invalid(t *testing.T) {
	assert.False(t, KindInvalid.Valid())
	assert.False(t, FieldKind(99).Valid())
	assert.Equal(t, "FieldKind(99)", FieldKind(99).String())
	assert.False(t, FieldKind(99).Packable())
}

func TestParseFieldKind(t *testing.T) {
	k, ok := ParseFieldKind("sfixed64")
	require.True(t, ok)
	assert.Equal(t, KindSfixed64, k)

	for _, name := range []string{"enum", "message", "group", "invalid", "Foo"} {
		_, ok := ParseFieldKind(name)
		assert.False(t, ok, name)
	}
}

func TestJSONName(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"name":         "name",
		"Name":         "name",
		"user_name":    "userName",
		"a_b_c":        "aBC",
		"field_1_name": "field1Name",
	}
	for in, want := range tests {
		assert.Equal(t, want, JSONName(in), in)
	}
}

func TestMapEntryName(t *testing.T) {
	assert.Equal(t, "test.Outer.LabelsByIdEntry", MapEntryName("test.Outer", "labels_by_id"))
	assert.Equal(t, "TagsEntry", MapEntryName("", "tags"))
}

func TestEnum_Lookup(t *testing.T) {
	e := &Enum{
		Name:       "test.Status",
		AllowAlias: true,
		Values: []*EnumValue{
			{Name: "UNKNOWN", Number: 0},
			{Name: "ACTIVE", Number: 1},
			{Name: "ENABLED", Number: 1},
		},
	}

	v, ok := e.FindByNumber(1)
	require.True(t, ok)
	assert.Equal(t, "ACTIVE", v.Name)

	v, ok = e.FindByName("ENABLED")
	require.True(t, ok)
	assert.Equal(t, int32(1), v.Number)

	_, ok = e.FindByNumber(7)
	assert.False(t, ok)
	_, ok = e.FindByName("MISSING")
	assert.False(t, ok)
}

func TestMessage_FieldLookup(t *testing.T) {
	m := &Message{
		Name: "test.User",
		Fields: []*Field{
			{Name: "user_name", JsonName: "userName", Number: 1, Kind: KindString},
			{Name: "id", JsonName: "id", Number: 2, Kind: KindInt32},
		},
	}

	assert.Equal(t, int32(1), m.FieldByName("userName").Number)
	assert.Equal(t, int32(1), m.FieldByName("user_name").Number)
	assert.Equal(t, "id", m.FieldByNumber(2).Name)
	assert.Nil(t, m.FieldByNumber(3))
	assert.Nil(t, m.FieldByName("missing"))
}
