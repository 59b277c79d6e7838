package bvh

import (
	"fmt"
	"strings"
)

// SplitMethod selects how interior nodes partition their primitives.
type SplitMethod uint8

const (
	SplitSAH SplitMethod = iota
	SplitMiddle
	SplitEqualCounts
)

func (m SplitMethod) String() string {
	switch m {
	case SplitSAH:
		return "sah"
	case SplitMiddle:
		return "middle"
	case SplitEqualCounts:
		return "equal_counts"
	}
	return fmt.Sprintf("SplitMethod(%d)", uint8(m))
}

// ParseSplitMethod accepts the names produced by SplitMethod.String.
func ParseSplitMethod(s string) (SplitMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sah":
		return SplitSAH, nil
	case "middle":
		return SplitMiddle, nil
	case "equal_counts", "equalcounts":
		return SplitEqualCounts, nil
	}
	return 0, fmt.Errorf("unknown split method %q", s)
}

const (
	// Leaf sizes are stored in 16 bits but are kept far smaller in practice.
	MaxNodePrimitivesLimit = 255

	DefaultMaxNodePrimitives = 4

	// DefaultMaxDepth matches the fixed traversal stack the engine was tuned for.
	DefaultMaxDepth = 64

	sahBuckets = 12
)

// Logger receives build diagnostics.
type Logger interface {
	Debugf(format string, args ...any)
}

type Options struct {
	SplitMethod       SplitMethod
	MaxNodePrimitives int

	// Builds producing a deeper tree fail with ErrDepthExceeded.
	MaxDepth int

	Logger Logger
}

func DefaultOptions() Options {
	return Options{
		SplitMethod:       SplitSAH,
		MaxNodePrimitives: DefaultMaxNodePrimitives,
		MaxDepth:          DefaultMaxDepth,
	}
}

func (o Options) normalized() Options {
	if o.MaxNodePrimitives < 1 {
		o.MaxNodePrimitives = 1
	}
	if o.MaxNodePrimitives > MaxNodePrimitivesLimit {
		o.MaxNodePrimitives = MaxNodePrimitivesLimit
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}
