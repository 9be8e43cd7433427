package drs

import "errors"

// Codec errors.
var (
	ErrSignatureMismatch   = errors.New("signature mismatch")
	ErrUnsupportedVersion  = errors.New("unsupported version")
	ErrTruncatedData       = errors.New("truncated data")
	ErrUnknownDiscriminant = errors.New("unknown discriminant")
	ErrIndexOutOfRange     = errors.New("index out of range")
	ErrDegenerateGeometry  = errors.New("degenerate geometry")
	ErrNodeTableOverlap    = errors.New("node table ranges overlap")
	ErrUnknownArchetype    = errors.New("unknown archetype")
	ErrTrailingData        = errors.New("trailing data after block payload")
)
