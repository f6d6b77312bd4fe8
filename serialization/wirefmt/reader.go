// Package wirefmt reads and writes messages in the protobuf binary wire format.
//
// Fields are addressed by number only. Repeated scalars are accepted packed or
// unpacked, groups are framed by start/end markers, and fields the caller does not
// know are captured raw so they can be written back unchanged.
package wirefmt

import (
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/anirudhraja/protoserial/schema"
	"github.com/anirudhraja/protoserial/serialization"
	"github.com/anirudhraja/protoserial/wire"
)

// reader reads one message body. A length-delimited message gets a reader over
// its own sub-buffer; a group shares its parent's decoder and stops at the
// matching end-group tag.
type reader struct {
	dec     *wire.Decoder
	group   wire.FieldNumber // non-zero inside a group
	num     wire.FieldNumber
	wt      wire.WireType
	pending bool
	packed  *wire.Decoder // set while iterating a packed run
}

var (
	_ serialization.ArrayReader        = (*reader)(nil)
	_ serialization.GroupReader        = (*reader)(nil)
	_ serialization.UnknownFieldReader = (*reader)(nil)
)

// NewReader returns a Reader over one encoded message.
func NewReader(data []byte, opts serialization.Options) *serialization.Reader {
	return serialization.NewReader(&reader{dec: wire.NewDecoder(data)}, opts)
}

func (r *reader) ReadMessageStart() error { return nil }

// ReadMessageEnd checks the buffer was consumed.
func (r *reader) ReadMessageEnd() error {
	if !r.dec.EOF() {
		return errors.Wrapf(serialization.ErrUnbalancedMessage, "%d trailing bytes", r.dec.Remaining())
	}
	return nil
}

// PeekNext consumes the next tag and reports its field number. Inside a group the
// matching end-group tag ends the message and is left for EndGroup.
func (r *reader) PeekNext() (serialization.FieldID, bool, error) {
	if r.pending {
		return serialization.FieldID{Number: int32(r.num)}, true, nil
	}
	if r.dec.EOF() {
		if r.group != 0 {
			return serialization.FieldID{}, false, errors.Wrapf(wire.ErrUnexpectedEOF, "group %d not terminated", r.group)
		}
		return serialization.FieldID{}, false, nil
	}
	num, wt, err := r.dec.PeekTag()
	if err != nil {
		return serialization.FieldID{}, false, err
	}
	if wt == wire.WireEndGroup {
		if r.group == 0 || num != r.group {
			return serialization.FieldID{}, false, errors.Wrapf(wire.ErrGroupMismatch, "end group %d", num)
		}
		return serialization.FieldID{}, false, nil
	}
	if _, _, err := r.dec.DecodeTag(); err != nil {
		return serialization.FieldID{}, false, err
	}
	r.num, r.wt, r.pending = num, wt, true
	return serialization.FieldID{Number: int32(num)}, true, nil
}

func (r *reader) Skip() error {
	r.pending = false
	_, err := r.dec.SkipField(r.num, r.wt)
	return err
}

// ReadUnknownField captures the current field, tag included.
func (r *reader) ReadUnknownField() (wire.UnknownField, error) {
	r.pending = false
	value, err := r.dec.SkipField(r.num, r.wt)
	if err != nil {
		return wire.UnknownField{}, err
	}
	raw := protowire.AppendTag(nil, protowire.Number(r.num), protowire.Type(r.wt))
	raw = append(raw, value...)
	return wire.UnknownField{Number: r.num, WireType: r.wt, Raw: raw}, nil
}

// source returns the decoder the next value comes from, checking the wire type
// unless a packed run is being read.
func (r *reader) source(kind schema.FieldKind) (*wire.Decoder, error) {
	if r.packed != nil {
		return r.packed, nil
	}
	r.pending = false
	if want := wire.WireTypeFor(kind); r.wt != want {
		return nil, errors.Wrapf(wire.ErrInvalidWireType, "field %d: %s value for %s", r.num, r.wt, kind)
	}
	return r.dec, nil
}

func (r *reader) ReadBool() (bool, bool, error) {
	d, err := r.source(schema.KindBool)
	if err != nil {
		return false, false, err
	}
	v, err := d.DecodeBool()
	return v, err == nil, err
}

func (r *reader) ReadInt32(kind schema.FieldKind) (int32, bool, error) {
	d, err := r.source(kind)
	if err != nil {
		return 0, false, err
	}
	var v int32
	switch kind {
	case schema.KindSint32:
		v, err = d.DecodeSint32()
	case schema.KindSfixed32:
		var u uint32
		u, err = d.DecodeFixed32()
		v = int32(u)
	default:
		v, err = d.DecodeInt32()
	}
	return v, err == nil, err
}

func (r *reader) ReadInt64(kind schema.FieldKind) (int64, bool, error) {
	d, err := r.source(kind)
	if err != nil {
		return 0, false, err
	}
	var v int64
	switch kind {
	case schema.KindSint64:
		v, err = d.DecodeSint64()
	case schema.KindSfixed64:
		var u uint64
		u, err = d.DecodeFixed64()
		v = int64(u)
	default:
		v, err = d.DecodeInt64()
	}
	return v, err == nil, err
}

func (r *reader) ReadUint32(kind schema.FieldKind) (uint32, bool, error) {
	d, err := r.source(kind)
	if err != nil {
		return 0, false, err
	}
	var v uint32
	if kind == schema.KindFixed32 {
		v, err = d.DecodeFixed32()
	} else {
		v, err = d.DecodeUint32()
	}
	return v, err == nil, err
}

func (r *reader) ReadUint64(kind schema.FieldKind) (uint64, bool, error) {
	d, err := r.source(kind)
	if err != nil {
		return 0, false, err
	}
	var v uint64
	if kind == schema.KindFixed64 {
		v, err = d.DecodeFixed64()
	} else {
		v, err = d.DecodeVarint()
	}
	return v, err == nil, err
}

func (r *reader) ReadFloat() (float32, bool, error) {
	d, err := r.source(schema.KindFloat)
	if err != nil {
		return 0, false, err
	}
	v, err := d.DecodeFloat32()
	return v, err == nil, err
}

func (r *reader) ReadDouble() (float64, bool, error) {
	d, err := r.source(schema.KindDouble)
	if err != nil {
		return 0, false, err
	}
	v, err := d.DecodeFloat64()
	return v, err == nil, err
}

func (r *reader) ReadString() (string, bool, error) {
	d, err := r.source(schema.KindString)
	if err != nil {
		return "", false, err
	}
	v, err := d.DecodeString()
	return v, err == nil, err
}

func (r *reader) ReadBytes() ([]byte, bool, error) {
	d, err := r.source(schema.KindBytes)
	if err != nil {
		return nil, false, err
	}
	v, err := d.DecodeBytes()
	return v, err == nil, err
}

// ReadEnum returns the enum number; names never appear on the wire.
func (r *reader) ReadEnum() (serialization.EnumValue, bool, error) {
	d, err := r.source(schema.KindEnum)
	if err != nil {
		return serialization.EnumValue{}, false, err
	}
	v, err := d.DecodeInt32()
	if err != nil {
		return serialization.EnumValue{}, false, err
	}
	return serialization.EnumByNumber(v), true, nil
}

func (r *reader) BeginMessage() (serialization.ReaderBackend, bool, error) {
	r.pending = false
	if r.wt != wire.WireBytes {
		return nil, false, errors.Wrapf(wire.ErrInvalidWireType, "field %d: %s value for message", r.num, r.wt)
	}
	sub, err := r.dec.Sub()
	if err != nil {
		return nil, false, err
	}
	return &reader{dec: sub}, true, nil
}

func (r *reader) EndMessage(child serialization.ReaderBackend) error {
	return child.ReadMessageEnd()
}

func (r *reader) BeginGroup(serialization.FieldID) (serialization.ReaderBackend, bool, error) {
	r.pending = false
	if r.wt != wire.WireStartGroup {
		return nil, false, errors.Wrapf(wire.ErrInvalidWireType, "field %d: %s value for group", r.num, r.wt)
	}
	return &reader{dec: r.dec, group: r.num}, true, nil
}

// EndGroup consumes the end-group tag that stopped the child.
func (r *reader) EndGroup(serialization.FieldID, serialization.ReaderBackend) error {
	num, wt, err := r.dec.DecodeTag()
	if err != nil {
		return err
	}
	if wt != wire.WireEndGroup || num != r.num {
		return errors.Wrapf(wire.ErrGroupMismatch, "group %d closed by field %d (%s)", r.num, num, wt)
	}
	return nil
}

// ReadArrayItems reads every adjacent occurrence of field id. Each occurrence is a
// single value or, for packable kinds, a length-delimited packed run.
func (r *reader) ReadArrayItems(id serialization.FieldID, kind schema.FieldKind, item func() error) error {
	for {
		if r.wt == wire.WireBytes && kind.Packable() {
			if err := r.readPacked(item); err != nil {
				return err
			}
		} else if err := item(); err != nil {
			return err
		}
		next, ok, err := r.PeekNext()
		if err != nil || !ok || next.Number != id.Number {
			return err
		}
	}
}

func (r *reader) readPacked(item func() error) error {
	r.pending = false
	sub, err := r.dec.Sub()
	if err != nil {
		return err
	}
	r.packed = sub
	defer func() { r.packed = nil }()
	for !sub.EOF() {
		if err := item(); err != nil {
			return err
		}
	}
	return nil
}
