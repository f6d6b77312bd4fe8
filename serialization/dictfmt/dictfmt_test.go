package dictfmt_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/protoserial/dynamic"
	"github.com/anirudhraja/protoserial/registry"
	"github.com/anirudhraja/protoserial/serialization"
	"github.com/anirudhraja/protoserial/serialization/dictfmt"
)

const testProto = `syntax = "proto3";
package dt;

enum Mode {
  OFF = 0;
  ON = 1;
}

message Nested {
  int32 a = 1;
}

message Sample {
  int32 field = 1;
  Nested nested = 2;
  repeated Nested list = 3;
  repeated string names = 4;
  bytes blob = 5;
  Mode mode = 6;
  double ratio = 7;
  uint64 big = 8;
  repeated Mode modes = 9;
}
`

func load(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.NewRegistry()
	require.NoError(t, r.LoadSchemaFromString("dt.proto", testProto))
	return r
}

func builder(t *testing.T, r *registry.Registry, name string) *dynamic.Builder {
	t.Helper()
	desc, err := r.GetMessage(name)
	require.NoError(t, err)
	return dynamic.NewBuilder(desc, r)
}

func writeDict(t *testing.T, m serialization.Message) *dictfmt.Dictionary {
	t.Helper()
	w := dictfmt.NewWriter(serialization.Options{})
	require.NoError(t, w.WriteRoot(m))
	return w.Dictionary()
}

func readDict(t *testing.T, r *registry.Registry, rd *serialization.Reader) (*dynamic.Message, error) {
	t.Helper()
	b := builder(t, r, "dt.Sample")
	if err := rd.Merge(b, r); err != nil {
		return nil, err
	}
	return b.BuildPartial(), nil
}

func TestDictionaryOrder(t *testing.T) {
	d := dictfmt.NewDictionary()
	d.Set("b", 1)
	d.Set("a", 2)
	d.Set("b", 3)
	assert.Equal(t, []string{"b", "a"}, d.Keys())
	v, ok := d.Get("b")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	d.Delete("b")
	d.Delete("missing")
	assert.Equal(t, []string{"a"}, d.Keys())
	assert.Equal(t, 1, d.Len())
}

func TestFromMapSortsKeys(t *testing.T) {
	d := dictfmt.FromMap(map[string]interface{}{
		"z": 1,
		"a": map[string]interface{}{"y": 2, "x": 3},
		"m": []interface{}{map[string]interface{}{"k": 4}},
	})
	assert.Equal(t, []string{"a", "m", "z"}, d.Keys())
	nested, _ := d.Get("a")
	assert.Equal(t, []string{"x", "y"}, nested.(*dictfmt.Dictionary).Keys())
	list, _ := d.Get("m")
	assert.IsType(t, &dictfmt.Dictionary{}, list.([]interface{})[0])
}

func TestDictionaryMarshalJSON(t *testing.T) {
	d := dictfmt.NewDictionary()
	d.Set("z", int32(1))
	inner := dictfmt.NewDictionary()
	inner.Set("b", []byte("hi"))
	d.Set("a", []interface{}{inner, "s", true})
	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":[{"b":"aGk="},"s",true]}`, string(out))
}

func TestWriteScenario(t *testing.T) {
	r := load(t)
	nested := builder(t, r, "dt.Nested")
	require.NoError(t, nested.Set("a", 7))
	b := builder(t, r, "dt.Sample")
	require.NoError(t, b.Set("field", 42))
	require.NoError(t, b.Set("nested", nested.BuildPartial()))

	d := writeDict(t, b.BuildPartial())
	assert.Equal(t, map[string]interface{}{
		"field":  int32(42),
		"nested": map[string]interface{}{"a": int32(7)},
	}, d.ToMap())

	m, err := readDict(t, r, dictfmt.NewReader(d, serialization.Options{}))
	require.NoError(t, err)
	field, _ := m.Get("field")
	assert.Equal(t, int32(42), field.Interface())
	a, _ := m.GetMessage("nested").Get("a")
	assert.Equal(t, int32(7), a.Interface())
}

func TestWriteRepeatedBytesAndEnums(t *testing.T) {
	r := load(t)
	b := builder(t, r, "dt.Sample")
	for _, a := range []int{1, 2} {
		n := builder(t, r, "dt.Nested")
		require.NoError(t, n.Set("a", a))
		require.NoError(t, b.Add("list", n.BuildPartial()))
	}
	require.NoError(t, b.Add("names", "x", "y"))
	require.NoError(t, b.Set("blob", []byte{0, 1, 2}))
	require.NoError(t, b.Set("mode", "ON"))
	require.NoError(t, b.Add("modes", "ON", 0))

	d := writeDict(t, b.BuildPartial())
	assert.Equal(t, []string{"list", "names", "blob", "mode", "modes"}, d.Keys())
	assert.Equal(t, map[string]interface{}{
		"list": []interface{}{
			map[string]interface{}{"a": int32(1)},
			map[string]interface{}{"a": int32(2)},
		},
		"names": []interface{}{"x", "y"},
		"blob":  []byte{0, 1, 2},
		"mode":  int32(1),
		"modes": []interface{}{int32(1), int32(0)},
	}, d.ToMap())
}

func TestReadPlainMap(t *testing.T) {
	r := load(t)
	m, err := readDict(t, r, dictfmt.NewMapReader(map[string]interface{}{
		"field":   float64(12),
		"nested":  map[string]interface{}{"a": "5"},
		"list":    []map[string]interface{}{{"a": 1}, {"a": 2}},
		"names":   []string{"p", "q"},
		"blob":    []byte("raw"),
		"mode":    "ON",
		"modes":   []interface{}{1, "OFF"},
		"ratio":   0.25,
		"big":     uint64(1) << 63,
		"unknown": map[string]interface{}{"skip": true},
	}, serialization.Options{}))
	require.NoError(t, err)

	field, _ := m.Get("field")
	assert.Equal(t, int32(12), field.Interface())
	a, _ := m.GetMessage("nested").Get("a")
	assert.Equal(t, int32(5), a.Interface())
	assert.Len(t, m.GetMessages("list"), 2)
	assert.Len(t, m.GetList("names"), 2)
	blob, _ := m.Get("blob")
	assert.Equal(t, []byte("raw"), blob.Bytes())
	mode, _ := m.Get("mode")
	assert.Equal(t, int32(1), mode.Enum().Number)
	modes := m.GetList("modes")
	require.Len(t, modes, 2)
	assert.Equal(t, "ON", modes[0].Enum().Name)
	assert.Equal(t, "OFF", modes[1].Enum().Name)
	ratio, _ := m.Get("ratio")
	assert.Equal(t, 0.25, ratio.Float())
	big, _ := m.Get("big")
	assert.Equal(t, uint64(1)<<63, big.Uint())
}

func TestReadSingleValueForRepeatedField(t *testing.T) {
	r := load(t)
	m, err := readDict(t, r, dictfmt.NewMapReader(map[string]interface{}{"names": "solo"}, serialization.Options{}))
	require.NoError(t, err)
	names := m.GetList("names")
	require.Len(t, names, 1)
	assert.Equal(t, "solo", names[0].String())
}

func TestReadNilValues(t *testing.T) {
	r := load(t)
	m, err := readDict(t, r, dictfmt.NewMapReader(map[string]interface{}{
		"field":  nil,
		"nested": nil,
		"list":   nil,
	}, serialization.Options{}))
	require.NoError(t, err)
	assert.False(t, m.Has("field"))
	assert.False(t, m.Has("nested"))
	assert.False(t, m.Has("list"))
}

func TestReadCoercionErrors(t *testing.T) {
	r := load(t)
	tests := []map[string]interface{}{
		{"field": 1.5},
		{"field": "abc"},
		{"nested": 3},
		{"blob": 3},
		{"big": -1},
		{"field": struct{}{}},
	}
	for _, in := range tests {
		_, err := readDict(t, r, dictfmt.NewMapReader(in, serialization.Options{}))
		require.Error(t, err, "%v", in)
		assert.True(t, errors.Is(err, serialization.ErrCoercion), "%v: %v", in, err)
	}
}

func TestRecursionLimit(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.LoadSchemaFromString("tree.proto", `syntax = "proto3";
message Tree { Tree sub = 1; }
`))
	build := func(depth int) *dictfmt.Dictionary {
		root := dictfmt.NewDictionary()
		cur := root
		for i := 0; i < depth; i++ {
			next := dictfmt.NewDictionary()
			cur.Set("sub", next)
			cur = next
		}
		return root
	}
	desc, err := r.GetMessage("Tree")
	require.NoError(t, err)

	err = dictfmt.NewReader(build(serialization.DefaultMaxDepth), serialization.Options{}).Merge(dynamic.NewBuilder(desc, r), nil)
	require.NoError(t, err)
	err = dictfmt.NewReader(build(serialization.DefaultMaxDepth+1), serialization.Options{}).Merge(dynamic.NewBuilder(desc, r), nil)
	assert.True(t, errors.Is(err, serialization.ErrRecursionLimitExceeded))
}

func TestDecodeStruct(t *testing.T) {
	type nested struct {
		A int `dict:"a"`
	}
	type sample struct {
		Field  int64    `dict:"field"`
		Nested nested   `dict:"nested"`
		Names  []string `dict:"names"`
		Mode   int      `dict:"mode"`
	}
	r := load(t)
	n := builder(t, r, "dt.Nested")
	require.NoError(t, n.Set("a", 3))
	b := builder(t, r, "dt.Sample")
	require.NoError(t, b.Set("field", 9))
	require.NoError(t, b.Set("nested", n.BuildPartial()))
	require.NoError(t, b.Add("names", "a", "b"))
	require.NoError(t, b.Set("mode", "ON"))

	var out sample
	require.NoError(t, dictfmt.DecodeStruct(writeDict(t, b.BuildPartial()), &out))
	assert.Equal(t, sample{Field: 9, Nested: nested{A: 3}, Names: []string{"a", "b"}, Mode: 1}, out)
}

func TestEnumWithoutNumberFails(t *testing.T) {
	w := dictfmt.NewWriter(serialization.Options{})
	require.NoError(t, w.WriteMessageStart())
	err := w.WriteEnum(1, "e", serialization.EnumByName("ON"))
	assert.True(t, errors.Is(err, serialization.ErrCoercion))
}

func peekTwice(t *testing.T, rd *serialization.Reader, want string) {
	t.Helper()
	for i := 0; i < 2; i++ {
		id, ok, err := rd.PeekNext()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, id.Name)
	}
}

func TestPeekNextIsIdempotent(t *testing.T) {
	ordered := dictfmt.NewDictionary()
	ordered.Set("a", int32(1))
	ordered.Set("b", dictfmt.NewDictionary())
	ordered.Set("c", "3")

	tests := []struct {
		name string
		rd   *serialization.Reader
	}{
		{"dictionary", dictfmt.NewReader(ordered, serialization.Options{})},
		{"plain map", dictfmt.NewMapReader(map[string]interface{}{
			"c": 3.0, "a": 1, "b": []interface{}{"x", nil},
		}, serialization.Options{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rd := tt.rd
			require.NoError(t, rd.ReadMessageStart())

			peekTwice(t, rd, "a")
			v, ok, err := rd.ReadInt32()
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, int32(1), v)

			peekTwice(t, rd, "b")
			require.NoError(t, rd.Skip())

			peekTwice(t, rd, "c")
			v, ok, err = rd.ReadInt32()
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, int32(3), v)

			for i := 0; i < 2; i++ {
				_, ok, err = rd.PeekNext()
				require.NoError(t, err)
				assert.False(t, ok)
			}
			require.NoError(t, rd.ReadMessageEnd())
		})
	}
}
