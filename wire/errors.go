package wire

import (
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Wire decoding errors
var (
	ErrVarintOverflow  = errors.New("varint overflow")
	ErrUnexpectedEOF   = errors.New("unexpected EOF")
	ErrInvalidWireType = errors.New("invalid wire type")
	ErrFieldNumber     = errors.New("invalid field number")
	ErrGroupMismatch   = errors.New("mismatched end group marker")
)

// consumeError converts the negative length protowire reports into one of the
// package sentinels.
func consumeError(n int, what string) error {
	err := protowire.ParseError(n)
	switch {
	case n == -1: // truncated
		return errors.Wrapf(ErrUnexpectedEOF, "reading %s", what)
	case n == -3: // overflow
		return errors.Wrapf(ErrVarintOverflow, "reading %s", what)
	case n == -2: // field number
		return errors.Wrapf(ErrFieldNumber, "reading %s", what)
	case n == -4: // reserved wire type
		return errors.Wrapf(ErrInvalidWireType, "reading %s", what)
	case n == -5: // end group
		return errors.Wrapf(ErrGroupMismatch, "reading %s", what)
	default:
		return errors.Wrapf(err, "reading %s", what)
	}
}
