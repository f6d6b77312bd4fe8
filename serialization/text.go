package serialization

import (
	"encoding/base64"
	"math"
	"strconv"
	"strings"

	"github.com/anirudhraja/protoserial/schema"
)

// TextSource is the single primitive a text backend implements for reading: every
// scalar arrives as a string lexeme. ok=false means an explicit null.
type TextSource interface {
	ReadAsText(kind schema.FieldKind) (string, bool, error)
}

// TextReader supplies the typed read half of a ReaderBackend on top of a TextSource.
// Text backends embed it and implement the structural methods themselves.
type TextReader struct {
	Source TextSource
}

func (t TextReader) read(kind schema.FieldKind) (FieldValue, bool, error) {
	s, ok, err := t.Source.ReadAsText(kind)
	if err != nil || !ok {
		return FieldValue{}, false, err
	}
	v, err := ParseText(kind, s)
	if err != nil {
		return FieldValue{}, false, err
	}
	return v, true, nil
}

func (t TextReader) ReadBool() (bool, bool, error) {
	v, ok, err := t.read(schema.KindBool)
	return v.Bool(), ok, err
}

func (t TextReader) ReadInt32(kind schema.FieldKind) (int32, bool, error) {
	v, ok, err := t.read(kind)
	return int32(v.Int()), ok, err
}

func (t TextReader) ReadInt64(kind schema.FieldKind) (int64, bool, error) {
	v, ok, err := t.read(kind)
	return v.Int(), ok, err
}

func (t TextReader) ReadUint32(kind schema.FieldKind) (uint32, bool, error) {
	v, ok, err := t.read(kind)
	return uint32(v.Uint()), ok, err
}

func (t TextReader) ReadUint64(kind schema.FieldKind) (uint64, bool, error) {
	v, ok, err := t.read(kind)
	return v.Uint(), ok, err
}

func (t TextReader) ReadFloat() (float32, bool, error) {
	v, ok, err := t.read(schema.KindFloat)
	return float32(v.Float()), ok, err
}

func (t TextReader) ReadDouble() (float64, bool, error) {
	v, ok, err := t.read(schema.KindDouble)
	return v.Float(), ok, err
}

func (t TextReader) ReadString() (string, bool, error) {
	return t.Source.ReadAsText(schema.KindString)
}

func (t TextReader) ReadBytes() ([]byte, bool, error) {
	v, ok, err := t.read(schema.KindBytes)
	return v.raw, ok, err
}

// ReadEnum accepts either a decimal number or a symbolic name.
func (t TextReader) ReadEnum() (EnumValue, bool, error) {
	v, ok, err := t.read(schema.KindEnum)
	return v.enum, ok, err
}

// TextSink is the single primitive a text backend implements for writing. v is the
// typed value behind text, for backends that annotate or quote by type.
type TextSink interface {
	WriteAsText(id FieldID, text string, v FieldValue) error
}

// TextWriter supplies WriteScalar and WriteEnum on top of a TextSink.
type TextWriter struct {
	Sink TextSink
}

func (t TextWriter) WriteScalar(id FieldID, v FieldValue) error {
	return t.Sink.WriteAsText(id, FormatText(v), v)
}

// WriteEnum writes the symbolic name when known, the number otherwise.
func (t TextWriter) WriteEnum(id FieldID, e EnumValue) error {
	return t.Sink.WriteAsText(id, e.String(), EnumFieldValue(e))
}

// ParseText converts a text lexeme to a value of kind.
func ParseText(kind schema.FieldKind, s string) (FieldValue, error) {
	if kind != schema.KindString {
		s = strings.TrimSpace(s)
	}
	switch kind {
	case schema.KindBool:
		switch s {
		case "true", "1":
			return BoolValue(true), nil
		case "false", "0":
			return BoolValue(false), nil
		}
		return FieldValue{}, CoercionErrorf("invalid bool %q", s)
	case schema.KindInt32, schema.KindSint32, schema.KindSfixed32:
		i, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return FieldValue{}, CoercionErrorf("invalid %s %q", kind, s)
		}
		return FieldValue{kind: kind, bits: uint64(i)}, nil
	case schema.KindInt64, schema.KindSint64, schema.KindSfixed64:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return FieldValue{}, CoercionErrorf("invalid %s %q", kind, s)
		}
		return FieldValue{kind: kind, bits: uint64(i)}, nil
	case schema.KindUint32, schema.KindFixed32:
		u, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return FieldValue{}, CoercionErrorf("invalid %s %q", kind, s)
		}
		return FieldValue{kind: kind, bits: u}, nil
	case schema.KindUint64, schema.KindFixed64:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return FieldValue{}, CoercionErrorf("invalid %s %q", kind, s)
		}
		return FieldValue{kind: kind, bits: u}, nil
	case schema.KindFloat:
		f, err := parseFloat(s, 32)
		if err != nil {
			return FieldValue{}, err
		}
		return FloatValue(float32(f)), nil
	case schema.KindDouble:
		f, err := parseFloat(s, 64)
		if err != nil {
			return FieldValue{}, err
		}
		return DoubleValue(f), nil
	case schema.KindString:
		return StringValue(s), nil
	case schema.KindBytes:
		b, err := decodeBase64(s)
		if err != nil {
			return FieldValue{}, CoercionErrorf("invalid base64 bytes: %v", err)
		}
		return BytesValue(b), nil
	case schema.KindEnum:
		if n, err := strconv.ParseInt(s, 10, 32); err == nil {
			return EnumFieldValue(EnumByNumber(int32(n))), nil
		}
		if s == "" {
			return FieldValue{}, CoercionErrorf("empty enum value")
		}
		return EnumFieldValue(EnumByName(s)), nil
	case schema.KindMessage, schema.KindGroup:
		return FieldValue{}, CoercionErrorf("%s fields have no text form", kind)
	}
	return FieldValue{}, invalidKind(kind)
}

func parseFloat(s string, bitSize int) (float64, error) {
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity", "INF":
		return math.Inf(1), nil
	case "-Infinity", "-INF":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, bitSize)
	if err != nil {
		return 0, CoercionErrorf("invalid floating point %q", s)
	}
	return f, nil
}

func decodeBase64(s string) ([]byte, error) {
	if strings.ContainsAny(s, "-_") {
		return base64.URLEncoding.DecodeString(padBase64(s))
	}
	return base64.StdEncoding.DecodeString(padBase64(s))
}

func padBase64(s string) string {
	if n := len(s) % 4; n != 0 {
		return s + strings.Repeat("=", 4-n)
	}
	return s
}

// FormatText renders a scalar value as its text lexeme. Non-finite floats use NaN,
// Infinity and -Infinity.
func FormatText(v FieldValue) string {
	switch v.kind {
	case schema.KindBool:
		return strconv.FormatBool(v.Bool())
	case schema.KindInt32, schema.KindInt64, schema.KindSint32, schema.KindSint64,
		schema.KindSfixed32, schema.KindSfixed64:
		return strconv.FormatInt(v.Int(), 10)
	case schema.KindUint32, schema.KindUint64, schema.KindFixed32, schema.KindFixed64:
		return strconv.FormatUint(v.Uint(), 10)
	case schema.KindFloat, schema.KindDouble:
		f := v.Float()
		switch {
		case math.IsNaN(f):
			return "NaN"
		case math.IsInf(f, 1):
			return "Infinity"
		case math.IsInf(f, -1):
			return "-Infinity"
		}
		if v.kind == schema.KindFloat {
			return strconv.FormatFloat(f, 'g', -1, 32)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case schema.KindString:
		return v.str
	case schema.KindBytes:
		return base64.StdEncoding.EncodeToString(v.raw)
	case schema.KindEnum:
		return v.enum.String()
	}
	return ""
}
