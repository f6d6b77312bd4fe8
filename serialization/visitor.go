package serialization

import "github.com/anirudhraja/protoserial/schema"

// kindVisitor receives one call per storage class. Kinds that share a Go
// representation share a method and get the precise kind as an argument.
type kindVisitor[T any] interface {
	visitBool() (T, error)
	visitInt32(kind schema.FieldKind) (T, error)
	visitInt64(kind schema.FieldKind) (T, error)
	visitUint32(kind schema.FieldKind) (T, error)
	visitUint64(kind schema.FieldKind) (T, error)
	visitFloat() (T, error)
	visitDouble() (T, error)
	visitString() (T, error)
	visitBytes() (T, error)
	visitEnum() (T, error)
	visitMessage() (T, error)
	visitGroup() (T, error)
}

// visitKind is the single FieldKind dispatch used by both the Reader and the Writer.
func visitKind[T any](kind schema.FieldKind, v kindVisitor[T]) (T, error) {
	switch kind {
	case schema.KindBool:
		return v.visitBool()
	case schema.KindInt32, schema.KindSint32, schema.KindSfixed32:
		return v.visitInt32(kind)
	case schema.KindInt64, schema.KindSint64, schema.KindSfixed64:
		return v.visitInt64(kind)
	case schema.KindUint32, schema.KindFixed32:
		return v.visitUint32(kind)
	case schema.KindUint64, schema.KindFixed64:
		return v.visitUint64(kind)
	case schema.KindFloat:
		return v.visitFloat()
	case schema.KindDouble:
		return v.visitDouble()
	case schema.KindString:
		return v.visitString()
	case schema.KindBytes:
		return v.visitBytes()
	case schema.KindEnum:
		return v.visitEnum()
	case schema.KindMessage:
		return v.visitMessage()
	case schema.KindGroup:
		return v.visitGroup()
	}
	var zero T
	return zero, invalidKind(kind)
}
