package jsonfmt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudhraja/protoserial/serialization"
)

func TestCursorAdaptersAgree(t *testing.T) {
	const doc = ` [1, "héllo", true, null, {"a": [2]}, -3.5e2] `
	cursors := map[string]*Cursor{
		"bytes":  NewCursorBytes([]byte(doc)),
		"runes":  NewCursorRunes([]rune(doc)),
		"string": NewCursorString(doc),
		"stream": NewCursorStream(strings.NewReader(doc)),
		"reader": NewCursorReader(strings.NewReader(doc)),
	}
	want := []interface{}{jsoniter.Number("1"), "héllo", true, nil, nil, jsoniter.Number("-3.5e2")}
	for name, c := range cursors {
		t.Run(name, func(t *testing.T) {
			kind, v, err := c.ReadVariant()
			require.NoError(t, err)
			assert.Equal(t, Array, kind)
			assert.Equal(t, want, v)
			next, err := c.Next()
			require.NoError(t, err)
			assert.Equal(t, EOF, next)
		})
	}
}

func TestCursorPositions(t *testing.T) {
	c := NewCursorString("{\n  \"a\": tru }")
	require.NoError(t, c.Consume('{'))
	name, err := c.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "a", name)
	assert.Equal(t, 2, c.Line())
	assert.Equal(t, 5, c.Column())
	require.NoError(t, c.Consume(':'))

	_, _, err = c.ReadVariant()
	require.Error(t, err)
	var syntaxErr *serialization.SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
	assert.Equal(t, 2, syntaxErr.Line)
	assert.Equal(t, 11, syntaxErr.Column)
	assert.Equal(t, `(2,11) error: unexpected ' ' while reading "true"`, err.Error())
}

func TestCursorConsume(t *testing.T) {
	c := NewCursorString("  ,x")
	ok, err := c.TryConsume(';')
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = c.TryConsume(',')
	require.NoError(t, err)
	assert.True(t, ok)

	err = c.Consume('y')
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 'y' but found 'x'")

	c = NewCursorString("")
	err = c.Consume('{')
	require.Error(t, err)
	assert.Contains(t, err.Error(), "end of input")

	assert.NoError(t, c.Assert(true, "unused"))
	assert.EqualError(t, c.Assert(false, "bad %d", 7), "(1,0) error: bad 7")
}

func TestCursorReadString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `"abc"`, "abc"},
		{"empty", `""`, ""},
		{"simple escapes", `"a\"b\\c\/d\b\f\n\r\t"`, "a\"b\\c/d\b\f\n\r\t"},
		{"unicode escape", `"\u0041\u00e9"`, "Aé"},
		{"surrogate pair", `"\ud83d\ude00"`, "😀"},
		{"lone high surrogate", `"\ud83dx"`, string(utf8.RuneError) + "x"},
		{"high surrogate then escape", `"\ud83d\n"`, string(utf8.RuneError) + "\n"},
		{"unknown escape passes through", `"\q"`, "q"},
		{"raw utf8", `"日本"`, "日本"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewCursorString(tt.in).ReadString()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCursorReadStringErrors(t *testing.T) {
	for _, in := range []string{`"abc`, "\"a\x01\"", `"\u12g4"`, `"\`, `abc`} {
		_, err := NewCursorString(in).ReadString()
		require.Error(t, err, in)
		var syntaxErr *serialization.SyntaxError
		assert.True(t, errors.As(err, &syntaxErr), in)
	}
}

func TestCursorReadNumber(t *testing.T) {
	for _, in := range []string{"0", "-12", "3.25", "-12.5e+3", "1E9", "6e-2"} {
		got, err := NewCursorString(in + ",").ReadNumber()
		require.NoError(t, err, in)
		assert.Equal(t, in, got)
	}
	for _, in := range []string{"-", "1.", "1e", "1e+", ".5"} {
		_, err := NewCursorString(in).ReadNumber()
		assert.Error(t, err, in)
	}
}

func TestCursorReadVariant(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		val  interface{}
	}{
		{"null", Null, nil},
		{"true", True, true},
		{"false", False, false},
		{`"s"`, String, "s"},
		{"42", Number, jsoniter.Number("42")},
		{`{"a":{"b":[1,{}]},"c":null}`, Object, nil},
		{"[]", Array, []interface{}{}},
	}
	for _, tt := range tests {
		kind, v, err := NewCursorString(tt.in).ReadVariant()
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.kind, kind, tt.in)
		assert.Equal(t, tt.val, v, tt.in)
	}

	for _, in := range []string{"nul", "@", `{"a" 1}`, "[1 2]", `{1:2}`} {
		_, _, err := NewCursorString(in).ReadVariant()
		assert.Error(t, err, in)
	}
}

func TestCursorReadVariantDepth(t *testing.T) {
	nested := func(n int) string {
		return strings.Repeat("[", n) + "1" + strings.Repeat("]", n)
	}
	c := NewCursorString(nested(3))
	c.SetMaxDepth(3)
	_, _, err := c.ReadVariant()
	require.NoError(t, err)

	c = NewCursorString(nested(4))
	c.SetMaxDepth(3)
	_, _, err = c.ReadVariant()
	require.Error(t, err)
	assert.True(t, errors.Is(err, serialization.ErrRecursionLimitExceeded))

	_, _, err = NewCursorString(nested(serialization.DefaultMaxDepth)).ReadVariant()
	assert.NoError(t, err)
	_, _, err = NewCursorString(nested(serialization.DefaultMaxDepth + 1)).ReadVariant()
	assert.True(t, errors.Is(err, serialization.ErrRecursionLimitExceeded))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "object", Object.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}
