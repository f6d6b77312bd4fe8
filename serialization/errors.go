package serialization

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/anirudhraja/protoserial/schema"
)

var (
	// ErrRecursionLimitExceeded aborts a read or write that nests messages deeper
	// than Options.MaxDepth.
	ErrRecursionLimitExceeded = errors.New("recursion limit exceeded")
	// ErrUnbalancedMessage reports a message end without a matching start, or a
	// closing delimiter that does not match the open scope.
	ErrUnbalancedMessage = errors.New("unbalanced message start/end")
	// ErrNoOpenMessage reports WriteMessageEnd with no open message.
	ErrNoOpenMessage = errors.New("no open message")
	// ErrCoercion marks a value that is present but cannot be converted to the
	// requested field kind.
	ErrCoercion = errors.New("value cannot be converted")
	// ErrUnknownEnum marks an enum value that matched neither a number nor a name.
	ErrUnknownEnum = errors.New("unknown enum value")
	// ErrInvalidFieldKind marks an assertion failure: a FieldKind outside the declared set
	// reached dispatch.
	ErrInvalidFieldKind = errors.New("invalid field kind")
)

// SyntaxError is a malformed-input error positioned in the source text.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("(%d,%d) error: %s", e.Line, e.Column, e.Msg)
}

// FieldError represents an encoding/decoding error with a field path.
type FieldError struct {
	FieldPath []string // e.g., ["order", "items", "price"]
	Err       error    // underlying error
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	if len(e.FieldPath) == 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("error at field path %s: %v", strings.Join(e.FieldPath, "."), e.Err)
}

// Unwrap returns the underlying error.
func (e *FieldError) Unwrap() error {
	return e.Err
}

// wrapWithField prefixes err's field path with fieldName.
func wrapWithField(err error, fieldName string) error {
	if err == nil || fieldName == "" {
		return err
	}

	var fe *FieldError
	if errors.As(err, &fe) && fe == err {
		return &FieldError{
			FieldPath: append([]string{fieldName}, fe.FieldPath...),
			Err:       fe.Err,
		}
	}

	return &FieldError{
		FieldPath: []string{fieldName},
		Err:       err,
	}
}

// CoercionErrorf builds an error marked with ErrCoercion.
func CoercionErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCoercion)
}

// invalidKind reports a FieldKind outside the declared set.
func invalidKind(kind schema.FieldKind) error {
	return errors.Mark(errors.AssertionFailedf("invalid field kind %s", kind), ErrInvalidFieldKind)
}
