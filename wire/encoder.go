package wire

import "google.golang.org/protobuf/encoding/protowire"

// Encoder handles low-level protobuf wire format encoding
type Encoder struct {
	buf []byte
}

// NewEncoder creates a new wire format encoder
func NewEncoder() *Encoder {
	return &Encoder{
		buf: make([]byte, 0),
	}
}

// Bytes returns the encoded bytes
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of encoded bytes.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Reset clears the encoder buffer
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// EncodeTag appends a field tag.
func (e *Encoder) EncodeTag(num FieldNumber, wt WireType) {
	e.buf = protowire.AppendTag(e.buf, protowire.Number(num), protowire.Type(wt))
}

// EncodeRaw appends already-encoded bytes unchanged.
func (e *Encoder) EncodeRaw(raw []byte) {
	e.buf = append(e.buf, raw...)
}
