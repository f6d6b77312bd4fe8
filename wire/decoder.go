package wire

import (
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Decoder handles low-level protobuf wire format decoding over an in-memory buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a new wire format decoder
func NewDecoder(data []byte) *Decoder {
	return &Decoder{
		buf: data,
		pos: 0,
	}
}

// EOF reports whether the whole buffer has been consumed.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// Pos returns the current read offset.
func (d *Decoder) Pos() int {
	return d.pos
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// PeekTag decodes the next tag without consuming it.
func (d *Decoder) PeekTag() (FieldNumber, WireType, error) {
	num, typ, n := protowire.ConsumeTag(d.buf[d.pos:])
	if n < 0 {
		return 0, 0, consumeError(n, "tag")
	}
	return FieldNumber(num), WireType(typ), nil
}

// DecodeTag decodes and consumes the next tag.
func (d *Decoder) DecodeTag() (FieldNumber, WireType, error) {
	num, typ, n := protowire.ConsumeTag(d.buf[d.pos:])
	if n < 0 {
		return 0, 0, consumeError(n, "tag")
	}
	d.pos += n
	return FieldNumber(num), WireType(typ), nil
}

// Sub consumes a length prefix and returns a decoder over exactly that many bytes.
func (d *Decoder) Sub() (*Decoder, error) {
	data, err := d.DecodeRawBytes()
	if err != nil {
		return nil, err
	}
	return NewDecoder(data), nil
}

// SkipField skips the value of a field whose tag was already consumed and returns
// the raw value bytes.
func (d *Decoder) SkipField(num FieldNumber, wt WireType) ([]byte, error) {
	if wt == WireEndGroup {
		return nil, errors.Wrapf(ErrGroupMismatch, "unexpected end group for field %d", num)
	}
	n := protowire.ConsumeFieldValue(protowire.Number(num), protowire.Type(wt), d.buf[d.pos:])
	if n < 0 {
		return nil, consumeError(n, wt.String()+" field")
	}
	raw := d.buf[d.pos : d.pos+n]
	d.pos += n
	return raw, nil
}

// DecodeUnknown consumes a complete field (tag and value) and returns its raw bytes.
func (d *Decoder) DecodeUnknown() (UnknownField, error) {
	start := d.pos
	num, wt, err := d.DecodeTag()
	if err != nil {
		return UnknownField{}, err
	}
	if _, err := d.SkipField(num, wt); err != nil {
		d.pos = start
		return UnknownField{}, err
	}
	raw := make([]byte, d.pos-start)
	copy(raw, d.buf[start:d.pos])
	return UnknownField{Number: num, WireType: wt, Raw: raw}, nil
}
