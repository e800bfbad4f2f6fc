package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrOffsetOverlap      = errors.New("layer blocks overlap")
	ErrOutOfBounds        = errors.New("layer block extends beyond data section")
	ErrNegativeOffset     = errors.New("negative offset or size")
	ErrTooManyLayers      = errors.New("too many layers in file")
	ErrInvalidLayerName   = errors.New("invalid layer name")
	ErrBlockSize          = errors.New("layer block size does not match its shape")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrLayerIndex         = errors.New("layer index out of range")
	ErrScaling            = errors.New("invalid input scaling")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type    string // Type of error (e.g., "offset_overlap", "out_of_bounds")
	Layer   string // Primary layer block involved
	Layer2  string // Secondary layer block (for overlap errors)
	Details string // Additional details
	Err     error  // Matching sentinel error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Layer2 != "" {
		return fmt.Sprintf("%s: layers %q and %q: %s", e.Type, e.Layer, e.Layer2, e.Details)
	}
	if e.Layer != "" {
		return fmt.Sprintf("%s: layer %q: %s", e.Type, e.Layer, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Unwrap returns the sentinel error for errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
