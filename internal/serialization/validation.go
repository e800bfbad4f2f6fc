package serialization

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize   = 16 * 1024 * 1024 // 16MB - maximum header size
	MaxLayerCount   = 10_000           // Maximum number of layers in a file
	MaxLayerNameLen = 256              // Maximum layer name length
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict performs all validation checks (default).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks names and shapes but not block placement.
	ValidationNormal
	// ValidationNone skips validation. Use only with trusted input.
	ValidationNone
)

// ValidateLayerBlocks checks for overlapping blocks and out-of-bounds access.
func ValidateLayerBlocks(layers []LayerMeta, dataSize int64) error {
	if len(layers) > MaxLayerCount {
		return &ValidationError{
			Type:    "too_many_layers",
			Details: fmt.Sprintf("got %d, max %d", len(layers), MaxLayerCount),
			Err:     ErrTooManyLayers,
		}
	}

	sorted := make([]LayerMeta, len(layers))
	copy(sorted, layers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	for i, l := range sorted {
		if l.Offset < 0 || l.Size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Layer:   l.Name,
				Details: fmt.Sprintf("offset=%d, size=%d (negative values not allowed)", l.Offset, l.Size),
				Err:     ErrNegativeOffset,
			}
		}

		if l.Offset+l.Size > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Layer:   l.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", l.Offset, l.Size, dataSize),
				Err:     ErrOutOfBounds,
			}
		}

		if i < len(sorted)-1 {
			next := sorted[i+1]
			if l.Offset+l.Size > next.Offset {
				return &ValidationError{
					Type:    "offset_overlap",
					Layer:   l.Name,
					Layer2:  next.Name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						l.Offset, l.Offset+l.Size, next.Offset, next.Offset+next.Size),
					Err: ErrOffsetOverlap,
				}
			}
		}
	}

	return nil
}

// ValidateLayerName rejects empty, oversized and non-printable names.
func ValidateLayerName(name string) error {
	if name == "" || len(name) > MaxLayerNameLen {
		return &ValidationError{
			Type:    "invalid_name",
			Layer:   name,
			Details: fmt.Sprintf("length %d not in [1, %d]", len(name), MaxLayerNameLen),
			Err:     ErrInvalidLayerName,
		}
	}
	if strings.ContainsFunc(name, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return &ValidationError{
			Type:    "invalid_name",
			Layer:   name,
			Details: "contains control character",
			Err:     ErrInvalidLayerName,
		}
	}
	return nil
}

// ValidateLayerShapes checks that each block size matches its neuron count
// and that every layer consumes the output of the previous one.
func ValidateLayerShapes(inputs int, layers []LayerMeta) error {
	prev := inputs
	for _, l := range layers {
		if l.Neurons <= 0 || l.Inputs != prev {
			return &ValidationError{
				Type:    "block_size",
				Layer:   l.Name,
				Details: fmt.Sprintf("%d neurons with %d inputs after a layer of %d", l.Neurons, l.Inputs, prev),
				Err:     ErrBlockSize,
			}
		}
		if want := int64(l.Values()) * ValueSize; l.Size != want {
			return &ValidationError{
				Type:    "block_size",
				Layer:   l.Name,
				Details: fmt.Sprintf("size %d, want %d", l.Size, want),
				Err:     ErrBlockSize,
			}
		}
		prev = l.Neurons
	}
	return nil
}

// ValidatePreprocess checks that every scaling covers the network inputs
// with finite offsets and non-zero finite scales.
func ValidatePreprocess(inputs int, steps []Scaling) error {
	for i, s := range steps {
		if len(s.Offset) != inputs || len(s.Scale) != inputs {
			return &ValidationError{
				Type:    "scaling_shape",
				Details: fmt.Sprintf("step %d (%s) has %d offsets and %d scales, want %d", i, s.Type, len(s.Offset), len(s.Scale), inputs),
				Err:     ErrScaling,
			}
		}
		for j := range inputs {
			if math.IsNaN(s.Offset[j]) || math.IsInf(s.Offset[j], 0) ||
				s.Scale[j] == 0 || math.IsNaN(s.Scale[j]) || math.IsInf(s.Scale[j], 0) {
				return &ValidationError{
					Type:    "scaling_value",
					Details: fmt.Sprintf("step %d (%s) column %d: offset %g, scale %g", i, s.Type, j, s.Offset[j], s.Scale[j]),
					Err:     ErrScaling,
				}
			}
		}
	}
	return nil
}

// ValidateHeader performs header validation at the given level.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}

	if len(h.Layers) > MaxLayerCount {
		return &ValidationError{
			Type:    "too_many_layers",
			Details: fmt.Sprintf("got %d, max %d", len(h.Layers), MaxLayerCount),
			Err:     ErrTooManyLayers,
		}
	}

	for _, l := range h.Layers {
		if err := ValidateLayerName(l.Name); err != nil {
			return err
		}
	}

	if err := ValidateLayerShapes(h.Inputs, h.Layers); err != nil {
		return err
	}

	if err := ValidatePreprocess(h.Inputs, h.Preprocess); err != nil {
		return err
	}

	if level == ValidationStrict {
		if err := ValidateLayerBlocks(h.Layers, dataSize); err != nil {
			return err
		}
	}

	return nil
}
