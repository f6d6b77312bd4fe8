package wirefmt_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/anirudhraja/protoserial/dynamic"
	"github.com/anirudhraja/protoserial/registry"
	"github.com/anirudhraja/protoserial/serialization"
	"github.com/anirudhraja/protoserial/serialization/dictfmt"
	"github.com/anirudhraja/protoserial/serialization/jsonfmt"
	"github.com/anirudhraja/protoserial/serialization/wirefmt"
	"github.com/anirudhraja/protoserial/wire"
)

const allProto = `syntax = "proto2";
package wt;

enum Kind {
  A = 0;
  B = 1;
}

message Test1 {
  optional int32 a = 1;
}

message Test3 {
  optional Test1 c = 3;
}

message All {
  optional int32 i32 = 1;
  optional sint32 s32 = 2;
  optional sfixed32 sf32 = 3;
  optional int64 i64 = 4;
  optional sint64 s64 = 5;
  optional sfixed64 sf64 = 6;
  optional uint32 u32 = 7;
  optional fixed32 f32 = 8;
  optional uint64 u64 = 9;
  optional fixed64 f64 = 10;
  optional float fl = 11;
  optional double db = 12;
  optional bool b = 13;
  optional string s = 14;
  optional bytes raw = 15;
  optional Kind kind = 16;
  repeated int32 loose = 17;
  repeated int32 tight = 18 [packed = true];
  repeated Kind kinds = 19 [packed = true];
  repeated group Result = 20 {
    optional string url = 21;
  }
  optional Test1 child = 22;
  repeated Test1 children = 23;
  extensions 100 to 110;
}

extend All {
  optional string note = 100;
}

message Node {
  optional Node child = 1;
}
`

func load(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.NewRegistry()
	require.NoError(t, r.LoadSchemaFromString("all.proto", allProto))
	return r
}

func builder(t *testing.T, r *registry.Registry, name string) *dynamic.Builder {
	t.Helper()
	desc, err := r.GetMessage(name)
	require.NoError(t, err)
	return dynamic.NewBuilder(desc, r)
}

func encode(t *testing.T, m serialization.Message) []byte {
	t.Helper()
	w := wirefmt.NewWriter(serialization.Options{})
	require.NoError(t, w.WriteRoot(m))
	return w.Bytes()
}

func decode(r *registry.Registry, name string, data []byte, opts serialization.Options) (*dynamic.Message, error) {
	desc, err := r.GetMessage(name)
	if err != nil {
		return nil, err
	}
	b := dynamic.NewBuilder(desc, r)
	if err := wirefmt.NewReader(data, opts).Merge(b, r); err != nil {
		return nil, err
	}
	return b.BuildPartial(), nil
}

func asMap(t *testing.T, m serialization.Message) map[string]interface{} {
	t.Helper()
	w := dictfmt.NewWriter(serialization.Options{})
	require.NoError(t, w.WriteRoot(m))
	return w.Dictionary().ToMap()
}

func varintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func TestEncodeKnownBytes(t *testing.T) {
	r := load(t)
	inner := builder(t, r, "wt.Test1")
	require.NoError(t, inner.Set("a", 150))
	assert.Equal(t, []byte{0x08, 0x96, 0x01}, encode(t, inner.BuildPartial()))

	outer := builder(t, r, "wt.Test3")
	require.NoError(t, outer.Set("c", inner.BuildPartial()))
	assert.Equal(t, []byte{0x1a, 0x03, 0x08, 0x96, 0x01}, encode(t, outer.BuildPartial()))
}

func TestEncodeRepeated(t *testing.T) {
	r := load(t)
	b := builder(t, r, "wt.All")
	require.NoError(t, b.Add("loose", 1, 2))
	require.NoError(t, b.Add("tight", 3, 270, 86942))
	assert.Equal(t, []byte{
		0x88, 0x01, 0x01, 0x88, 0x01, 0x02,
		0x92, 0x01, 0x06, 0x03, 0x8e, 0x02, 0x9e, 0xa7, 0x05,
	}, encode(t, b.BuildPartial()))
}

func TestEncodeGroup(t *testing.T) {
	r := load(t)
	res := builder(t, r, "wt.All.Result")
	require.NoError(t, res.Set("url", "u"))
	b := builder(t, r, "wt.All")
	require.NoError(t, b.Add("result", res.BuildPartial()))

	var want []byte
	want = protowire.AppendTag(want, 20, protowire.StartGroupType)
	want = protowire.AppendTag(want, 21, protowire.BytesType)
	want = protowire.AppendString(want, "u")
	want = protowire.AppendTag(want, 20, protowire.EndGroupType)
	assert.Equal(t, want, encode(t, b.BuildPartial()))
}

func TestRoundTripAllKinds(t *testing.T) {
	r := load(t)
	b := builder(t, r, "wt.All")
	require.NoError(t, b.Set("i32", int32(math.MinInt32)))
	require.NoError(t, b.Set("s32", -1))
	require.NoError(t, b.Set("sf32", int32(math.MaxInt32)))
	require.NoError(t, b.Set("i64", int64(math.MinInt64)))
	require.NoError(t, b.Set("s64", int64(math.MaxInt64)))
	require.NoError(t, b.Set("sf64", -2))
	require.NoError(t, b.Set("u32", uint32(math.MaxUint32)))
	require.NoError(t, b.Set("f32", 1))
	require.NoError(t, b.Set("u64", uint64(math.MaxUint64)))
	require.NoError(t, b.Set("f64", uint64(math.MaxUint64)))
	require.NoError(t, b.Set("fl", float32(1.5)))
	require.NoError(t, b.Set("db", math.Inf(-1)))
	require.NoError(t, b.Set("b", true))
	require.NoError(t, b.Set("s", ""))
	require.NoError(t, b.Set("raw", []byte{}))
	require.NoError(t, b.Set("kind", "B"))
	require.NoError(t, b.Add("loose", -1, 0))
	require.NoError(t, b.Add("tight", 7))
	require.NoError(t, b.Add("kinds", "B", "A"))
	for _, url := range []string{"x", "y"} {
		res := builder(t, r, "wt.All.Result")
		require.NoError(t, res.Set("url", url))
		require.NoError(t, b.Add("result", res.BuildPartial()))
	}
	child := builder(t, r, "wt.Test1")
	require.NoError(t, child.Set("a", 9))
	require.NoError(t, b.Set("child", child.BuildPartial()))
	require.NoError(t, b.Add("children", child.BuildPartial(), builder(t, r, "wt.Test1").BuildPartial()))
	want := b.BuildPartial()

	got, err := decode(r, "wt.All", encode(t, want), serialization.Options{})
	require.NoError(t, err)
	assert.Equal(t, asMap(t, want), asMap(t, got))
	assert.Empty(t, got.Unknown())
}

func TestReadPackedAndUnpackedMix(t *testing.T) {
	r := load(t)
	var data []byte
	data = varintField(data, 18, 1)
	data = varintField(data, 17, 5)
	data = protowire.AppendTag(data, 18, protowire.BytesType)
	data = protowire.AppendBytes(data, []byte{0x02, 0x03})
	data = protowire.AppendTag(data, 17, protowire.BytesType)
	data = protowire.AppendBytes(data, []byte{0x06})

	m, err := decode(r, "wt.All", data, serialization.Options{})
	require.NoError(t, err)
	ints := func(vs []serialization.FieldValue) []int64 {
		out := make([]int64, len(vs))
		for i, v := range vs {
			out[i] = v.Int()
		}
		return out
	}
	assert.Equal(t, []int64{1, 2, 3}, ints(m.GetList("tight")))
	assert.Equal(t, []int64{5, 6}, ints(m.GetList("loose")))
}

func TestSingularLastValueWins(t *testing.T) {
	r := load(t)
	var data []byte
	data = varintField(data, 1, 1)
	data = varintField(data, 1, 2)
	m, err := decode(r, "wt.All", data, serialization.Options{})
	require.NoError(t, err)
	v, _ := m.Get("i32")
	assert.Equal(t, int64(2), v.Int())
}

func unknownFields() []byte {
	var data []byte
	data = varintField(data, 1, 7)
	data = protowire.AppendTag(data, 98, protowire.StartGroupType)
	data = varintField(data, 1, 1)
	data = protowire.AppendTag(data, 98, protowire.EndGroupType)
	data = protowire.AppendTag(data, 99, protowire.BytesType)
	data = protowire.AppendString(data, "zz")
	data = protowire.AppendTag(data, 120, protowire.Fixed32Type)
	data = protowire.AppendFixed32(data, 0xdeadbeef)
	return data
}

func TestUnknownFieldsPassThrough(t *testing.T) {
	r := load(t)
	data := unknownFields()
	m, err := decode(r, "wt.All", data, serialization.Options{})
	require.NoError(t, err)

	unknown := m.Unknown()
	require.Len(t, unknown, 3)
	assert.Equal(t, wire.FieldNumber(98), unknown[0].Number)
	assert.Equal(t, wire.WireStartGroup, unknown[0].WireType)
	assert.Equal(t, wire.WireBytes, unknown[1].WireType)
	assert.Equal(t, wire.WireFixed32, unknown[2].WireType)

	assert.Equal(t, data, encode(t, m))
}

func TestUnknownFieldsDroppedByTextWriters(t *testing.T) {
	r := load(t)
	m, err := decode(r, "wt.All", unknownFields(), serialization.Options{})
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	var buf bytes.Buffer
	w := jsonfmt.NewWriter(&buf, jsonfmt.WriterOptions{}, serialization.Options{Logger: zap.New(core)})
	require.NoError(t, w.WriteRoot(m))
	assert.Equal(t, `{"i32":7}`, buf.String())
	assert.Equal(t, 3, logs.FilterMessage("dropping unknown field").Len())
}

func TestExtensionByNumber(t *testing.T) {
	r := load(t)
	var data []byte
	data = protowire.AppendTag(data, 100, protowire.BytesType)
	data = protowire.AppendString(data, "hi")
	m, err := decode(r, "wt.All", data, serialization.Options{})
	require.NoError(t, err)
	note, ok := m.Get("wt.note")
	require.True(t, ok)
	assert.Equal(t, "hi", note.String())
	assert.Empty(t, m.Unknown())
	assert.Equal(t, data, encode(t, m))
}

func TestUnknownEnumNumberKept(t *testing.T) {
	r := load(t)
	data := varintField(nil, 16, 7)
	m, err := decode(r, "wt.All", data, serialization.Options{})
	require.NoError(t, err)
	kind, ok := m.Get("kind")
	require.True(t, ok)
	assert.Equal(t, int32(7), kind.Enum().Number)
	assert.Empty(t, kind.Enum().Name)
	assert.Equal(t, data, encode(t, m))
}

func TestReadErrors(t *testing.T) {
	r := load(t)
	var mismatch []byte
	mismatch = protowire.AppendTag(mismatch, 1, protowire.BytesType)
	mismatch = protowire.AppendString(mismatch, "x")

	var badGroup []byte
	badGroup = protowire.AppendTag(badGroup, 20, protowire.StartGroupType)
	badGroup = protowire.AppendTag(badGroup, 21, protowire.EndGroupType)

	var openGroup []byte
	openGroup = protowire.AppendTag(openGroup, 20, protowire.StartGroupType)
	openGroup = protowire.AppendTag(openGroup, 21, protowire.BytesType)
	openGroup = protowire.AppendString(openGroup, "u")

	var shortChild []byte
	shortChild = protowire.AppendTag(shortChild, 22, protowire.BytesType)
	shortChild = append(shortChild, 0x05, 0x08)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"wire type mismatch", mismatch, wire.ErrInvalidWireType},
		{"truncated varint", []byte{0x08}, wire.ErrUnexpectedEOF},
		{"truncated message", shortChild, wire.ErrUnexpectedEOF},
		{"mismatched end group", badGroup, wire.ErrGroupMismatch},
		{"unterminated group", openGroup, wire.ErrUnexpectedEOF},
		{"stray end group", protowire.AppendTag(nil, 5, protowire.EndGroupType), wire.ErrGroupMismatch},
		{"field number zero", []byte{0x00, 0x01}, wire.ErrFieldNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(r, "wt.All", tt.data, serialization.Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "%v", err)
		})
	}
}

func TestRecursionLimit(t *testing.T) {
	r := load(t)
	nest := func(depth int) []byte {
		var data []byte
		for i := 0; i < depth; i++ {
			inner := data
			data = protowire.AppendTag(nil, 1, protowire.BytesType)
			data = protowire.AppendBytes(data, inner)
		}
		return data
	}
	_, err := decode(r, "wt.Node", nest(serialization.DefaultMaxDepth), serialization.Options{})
	require.NoError(t, err)
	_, err = decode(r, "wt.Node", nest(serialization.DefaultMaxDepth+1), serialization.Options{})
	assert.True(t, errors.Is(err, serialization.ErrRecursionLimitExceeded))
}

func TestWriteErrors(t *testing.T) {
	w := wirefmt.NewWriter(serialization.Options{})
	require.NoError(t, w.WriteMessageStart())
	err := w.WriteEnum(16, "kind", serialization.EnumByName("B"))
	assert.True(t, errors.Is(err, serialization.ErrCoercion))

	err = w.WriteInt32(0, "nameless", 1)
	assert.True(t, errors.Is(err, wire.ErrFieldNumber))
}

func TestJSONToBinaryAndBack(t *testing.T) {
	r := load(t)
	in := `{"i32":-3,"s":"hé","kind":"B","tight":[1,2],"result":[{"url":"a"}],"child":{"a":4},"[wt.note]":"n"}`
	desc, err := r.GetMessage("wt.All")
	require.NoError(t, err)
	b := dynamic.NewBuilder(desc, r)
	require.NoError(t, jsonfmt.NewReader([]byte(in), serialization.Options{}).Merge(b, r))

	m, err := decode(r, "wt.All", encode(t, b.BuildPartial()), serialization.Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, jsonfmt.NewWriter(&buf, jsonfmt.WriterOptions{}, serialization.Options{}).WriteRoot(m))
	assert.JSONEq(t, `{"i32":-3,"s":"hé","kind":"B","tight":[1,2],"result":[{"url":"a"}],"child":{"a":4},"wt.note":"n"}`, buf.String())
}

func peekTwice(t *testing.T, rd *serialization.Reader, want int32) {
	t.Helper()
	for i := 0; i < 2; i++ {
		id, ok, err := rd.PeekNext()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, id.Number)
	}
}

func TestPeekNextIsIdempotent(t *testing.T) {
	withBytes := varintField(nil, 1, 1)
	withBytes = protowire.AppendTag(withBytes, 2, protowire.BytesType)
	withBytes = protowire.AppendString(withBytes, "x")
	withBytes = varintField(withBytes, 3, 3)

	withGroup := varintField(nil, 1, 1)
	withGroup = protowire.AppendTag(withGroup, 2, protowire.StartGroupType)
	withGroup = varintField(withGroup, 5, 9)
	withGroup = protowire.AppendTag(withGroup, 2, protowire.EndGroupType)
	withGroup = varintField(withGroup, 3, 3)

	withFixed := varintField(nil, 1, 1)
	withFixed = protowire.AppendTag(withFixed, 2, protowire.Fixed64Type)
	withFixed = protowire.AppendFixed64(withFixed, 42)
	withFixed = varintField(withFixed, 3, 3)

	tests := []struct {
		name string
		data []byte
	}{
		{"bytes skipped", withBytes},
		{"group skipped", withGroup},
		{"fixed64 skipped", withFixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rd := wirefmt.NewReader(tt.data, serialization.Options{})
			require.NoError(t, rd.ReadMessageStart())

			peekTwice(t, rd, 1)
			v, ok, err := rd.ReadInt32()
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, int32(1), v)

			peekTwice(t, rd, 2)
			require.NoError(t, rd.Skip())

			peekTwice(t, rd, 3)
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
