package serialization

import (
	"os"
	"strconv"

	"go.uber.org/zap"
)

// DefaultMaxDepth is the default ceiling on nested message and group descent.
const DefaultMaxDepth = 64

// Options controls a Reader or Writer instance.
type Options struct {
	// MaxDepth is the deepest message nesting accepted below the root message.
	// Zero means the package default.
	MaxDepth int

	// Logger receives debug records for skipped and dropped fields. Nil means a
	// no-op logger.
	Logger *zap.Logger
}

var defaults = Options{
	MaxDepth: DefaultMaxDepth,
}

func init() {
	// Optional env override for harnesses feeding deeply nested fixtures.
	if v := os.Getenv("PROTOSERIAL_RECURSION_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			defaults.MaxDepth = n
		}
	}
}

// DefaultOptions returns the package defaults.
func DefaultOptions() Options {
	return defaults
}

// normalized fills zero fields from the package defaults.
func (o Options) normalized() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = defaults.MaxDepth
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Normalized returns o with zero fields replaced by defaults. Backends call it so
// they share the engine's limits.
func (o Options) Normalized() Options {
	return o.normalized()
}
