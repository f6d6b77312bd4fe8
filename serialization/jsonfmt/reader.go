package jsonfmt

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"

	"github.com/anirudhraja/protoserial/schema"
	"github.com/anirudhraja/protoserial/serialization"
)

type readerState int

const (
	stateStart readerState = iota
	stateBeginObject
	stateBeginValue
	stateEndValue
	stateBeginArray
)

// reader is the JSON ReaderBackend. Nested messages share the cursor and the
// delimiter stack, so the same instance serves every depth.
type reader struct {
	serialization.TextReader
	cur     *Cursor
	state   readerState
	stops   []rune
	current serialization.FieldID // valid while state is stateBeginValue
}

// NewReader returns a Reader over a JSON byte slice.
func NewReader(data []byte, opts serialization.Options) *serialization.Reader {
	return newReader(NewCursorBytes(data), opts)
}

// NewStreamReader returns a Reader pulling JSON from r.
func NewStreamReader(r io.Reader, opts serialization.Options) *serialization.Reader {
	return newReader(NewCursorStream(r), opts)
}

// NewCursorReaderFrom returns a Reader over an existing cursor.
func NewCursorReaderFrom(c *Cursor, opts serialization.Options) *serialization.Reader {
	return newReader(c, opts)
}

func newReader(c *Cursor, opts serialization.Options) *serialization.Reader {
	opts = opts.Normalized()
	c.SetMaxDepth(opts.MaxDepth)
	b := &reader{cur: c}
	b.Source = b
	return serialization.NewReader(b, opts)
}

func (r *reader) openObject() error {
	if err := r.cur.Consume('{'); err != nil {
		return err
	}
	r.stops = append(r.stops, '}')
	r.state = stateBeginObject
	return nil
}

func (r *reader) close() error {
	if len(r.stops) == 0 {
		return errors.Wrap(serialization.ErrUnbalancedMessage, "no open json object")
	}
	stop := r.stops[len(r.stops)-1]
	r.stops = r.stops[:len(r.stops)-1]
	if err := r.cur.Consume(stop); err != nil {
		return err
	}
	r.state = stateEndValue
	return nil
}

func (r *reader) ReadMessageStart() error { return r.openObject() }

func (r *reader) ReadMessageEnd() error { return r.close() }

// PeekNext reads the next member name. Until the value is read or skipped, further
// calls return the same field.
func (r *reader) PeekNext() (serialization.FieldID, bool, error) {
	if r.state == stateBeginValue {
		return r.current, true, nil
	}
	if r.state == stateEndValue {
		more, err := r.cur.TryConsume(',')
		if err != nil || !more {
			return serialization.FieldID{}, false, err
		}
	}
	next, err := r.cur.Next()
	if err != nil {
		return serialization.FieldID{}, false, err
	}
	if len(r.stops) > 0 && next == r.stops[len(r.stops)-1] {
		return serialization.FieldID{}, false, nil
	}
	if err := r.cur.Assert(next == '"', "expected a field name or the end of object, found %s", describe(next)); err != nil {
		return serialization.FieldID{}, false, err
	}
	name, err := r.cur.ReadString()
	if err != nil {
		return serialization.FieldID{}, false, err
	}
	if err := r.cur.Consume(':'); err != nil {
		return serialization.FieldID{}, false, err
	}
	r.state = stateBeginValue
	r.current = serialization.FieldID{Name: name}
	return r.current, true, nil
}

func (r *reader) Skip() error {
	_, _, err := r.cur.ReadVariant()
	r.state = stateEndValue
	return err
}

// ReadAsText reads one scalar lexeme. Booleans read as "1"/"0" so any kind can
// parse them, and exponent-form numbers bound for integer kinds are rounded to a
// plain integer first.
func (r *reader) ReadAsText(kind schema.FieldKind) (string, bool, error) {
	jsKind, v, err := r.cur.ReadVariant()
	if err != nil {
		return "", false, err
	}
	r.state = stateEndValue
	switch jsKind {
	case Null:
		return "", false, nil
	case True:
		return "1", true, nil
	case False:
		return "0", true, nil
	case Object, Array:
		return "", false, errors.Mark(
			r.cur.Errorf("encountered %s while expecting %s", jsKind, kind),
			serialization.ErrCoercion)
	case Number:
		s := string(v.(jsoniter.Number))
		if kind.IsFloatingPoint() || kind == schema.KindString {
			return s, true, nil
		}
		s, err := normalizeInteger(s, kind)
		if err != nil {
			return "", false, errors.Mark(r.cur.Errorf("%v", err), serialization.ErrCoercion)
		}
		return s, true, nil
	}
	return v.(string), true, nil
}

// normalizeInteger rewrites an exponent-form lexeme as a decimal integer, rounding
// half to even. Fractional lexemes pass when they are integral. Exponents beyond
// float64 precision lose low digits.
func normalizeInteger(s string, kind schema.FieldKind) (string, error) {
	hasExp := strings.ContainsAny(s, "eE")
	if !hasExp && !strings.Contains(s, ".") {
		return s, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", errors.Newf("invalid number %q", s)
	}
	if hasExp {
		f = math.RoundToEven(f)
	} else if f != math.Trunc(f) {
		return "", errors.Newf("non-integer numeric %s for %s field", s, kind)
	}
	switch {
	case f >= math.MinInt64 && f < math.MaxInt64:
		return strconv.FormatInt(int64(f), 10), nil
	case f >= 0 && f < math.MaxUint64 && kind.IsUnsigned():
		return strconv.FormatUint(uint64(f), 10), nil
	}
	return "", errors.Newf("number %s overflows %s", s, kind)
}

func (r *reader) BeginMessage() (serialization.ReaderBackend, bool, error) {
	if ok, err := r.tryNull(); err != nil || ok {
		return nil, false, err
	}
	if err := r.openObject(); err != nil {
		return nil, false, err
	}
	return r, true, nil
}

func (r *reader) EndMessage(serialization.ReaderBackend) error { return r.close() }

func (r *reader) tryNull() (bool, error) {
	next, err := r.cur.Next()
	if err != nil || next != 'n' {
		return false, err
	}
	if _, _, err := r.cur.ReadVariant(); err != nil {
		return false, err
	}
	r.state = stateEndValue
	return true, nil
}

// ReadArrayItems walks a bracketed list. A null list reads as empty.
func (r *reader) ReadArrayItems(_ serialization.FieldID, _ schema.FieldKind, item func() error) error {
	if ok, err := r.tryNull(); err != nil || ok {
		return err
	}
	if err := r.cur.Consume('['); err != nil {
		return err
	}
	r.stops = append(r.stops, ']')
	r.state = stateBeginArray
	for {
		next, err := r.cur.Next()
		if err != nil {
			return err
		}
		if next == ']' {
			break
		}
		if err := item(); err != nil {
			return err
		}
		more, err := r.cur.TryConsume(',')
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return r.close()
}
