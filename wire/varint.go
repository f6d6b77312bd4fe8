package wire

import "google.golang.org/protobuf/encoding/protowire"

// DECODER METHODS

// DecodeVarint decodes a varint from the current position
func (d *Decoder) DecodeVarint() (uint64, error) {
	v, n := protowire.ConsumeVarint(d.buf[d.pos:])
	if n < 0 {
		return 0, consumeError(n, "varint")
	}
	d.pos += n
	return v, nil
}

// DecodeInt32 decodes a varint as int32. Negative values arrive sign-extended to
// ten bytes; the upper bits are discarded.
func (d *Decoder) DecodeInt32() (int32, error) {
	v, err := d.DecodeVarint()
	return int32(v), err
}

// DecodeInt64 decodes a varint as int64
func (d *Decoder) DecodeInt64() (int64, error) {
	v, err := d.DecodeVarint()
	return int64(v), err
}

// DecodeUint32 decodes a varint as uint32
func (d *Decoder) DecodeUint32() (uint32, error) {
	v, err := d.DecodeVarint()
	return uint32(v), err
}

// DecodeSint32 decodes a zigzag-encoded signed varint as int32
func (d *Decoder) DecodeSint32() (int32, error) {
	v, err := d.DecodeVarint()
	return DecodeZigZag32(v), err
}

// DecodeSint64 decodes a zigzag-encoded signed varint as int64
func (d *Decoder) DecodeSint64() (int64, error) {
	v, err := d.DecodeVarint()
	return DecodeZigZag64(v), err
}

// DecodeBool decodes a varint as bool
func (d *Decoder) DecodeBool() (bool, error) {
	v, err := d.DecodeVarint()
	return protowire.DecodeBool(v), err
}

// ENCODER METHODS

// EncodeVarint encodes a uint64 as varint
func (e *Encoder) EncodeVarint(v uint64) {
	e.buf = protowire.AppendVarint(e.buf, v)
}

// EncodeInt32 encodes an int32 as varint; negative values are sign-extended.
func (e *Encoder) EncodeInt32(v int32) {
	e.EncodeVarint(uint64(int64(v)))
}

// EncodeInt64 encodes an int64 as varint
func (e *Encoder) EncodeInt64(v int64) {
	e.EncodeVarint(uint64(v))
}

// EncodeUint32 encodes a uint32 as varint
func (e *Encoder) EncodeUint32(v uint32) {
	e.EncodeVarint(uint64(v))
}

// EncodeSint32 encodes a signed int32 with zigzag encoding
func (e *Encoder) EncodeSint32(v int32) {
	e.EncodeVarint(EncodeZigZag32(v))
}

// EncodeSint64 encodes a signed int64 with zigzag encoding
func (e *Encoder) EncodeSint64(v int64) {
	e.EncodeVarint(EncodeZigZag64(v))
}

// EncodeBool encodes a bool as varint
func (e *Encoder) EncodeBool(v bool) {
	e.EncodeVarint(protowire.EncodeBool(v))
}

// UTILITY FUNCTIONS

// DecodeZigZag32 decodes a zigzag-encoded 32-bit integer
func DecodeZigZag32(encoded uint64) int32 {
	return int32((uint32(encoded) >> 1) ^ uint32(-int32(encoded&1)))
}

// DecodeZigZag64 decodes a zigzag-encoded 64-bit integer
func DecodeZigZag64(encoded uint64) int64 {
	return protowire.DecodeZigZag(encoded)
}

// EncodeZigZag32 encodes a signed 32-bit integer using zigzag encoding
func EncodeZigZag32(v int32) uint64 {
	return uint64((uint32(v) << 1) ^ uint32(v>>31))
}

// EncodeZigZag64 encodes a signed 64-bit integer using zigzag encoding
func EncodeZigZag64(v int64) uint64 {
	return protowire.EncodeZigZag(v)
}

// VarintSize returns the number of bytes needed to encode the given varint
func VarintSize(v uint64) int {
	return protowire.SizeVarint(v)
}
