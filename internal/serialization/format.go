package serialization

import (
	"time"
)

// Format constants.
const (
	MagicBytes      = "BRNW"
	FormatVersion   = 1
	HeaderAlignment = 64 // Layer blocks start on a 64-byte boundary
	ValueSize       = 8  // Bytes per float64 value
	fixedHeaderSize = 4 + 4 + 4 + 8
)

// Flags for the weight file.
const (
	FlagHasChecksum uint32 = 1 << 0 // bit 0: header carries a data checksum
	FlagHasMetadata uint32 = 1 << 1 // bit 1: custom metadata included
)

// Header is the JSON header of a weight file.
type Header struct {
	FormatVersion int               `json:"format_version"`       // Version of the weight file format
	BrainVersion  string            `json:"brain_version"`        // Version of Brain that wrote the file
	RunID         string            `json:"run_id,omitempty"`     // Training run that produced the weights
	CreatedAt     time.Time         `json:"created_at"`           // When the file was written
	Inputs        int               `json:"inputs"`               // Length of the network input signal
	Layers        []LayerMeta       `json:"layers"`               // One entry per layer, input side first
	Preprocess    []Scaling         `json:"preprocess,omitempty"` // Input normalization, applied in order
	Checksum      string            `json:"checksum,omitempty"`   // Hex SHA-256 of the data section
	Metadata      map[string]string `json:"metadata"`             // Custom metadata
}

// Scaling is an input normalization step: x' = (x - Offset) / Scale.
type Scaling struct {
	Type   string    `json:"type"`
	Offset []float64 `json:"offset"`
	Scale  []float64 `json:"scale"`
}

// LayerMeta describes a layer block.
type LayerMeta struct {
	Name    string `json:"name"`    // Block name (e.g., "layer.0")
	Neurons int    `json:"neurons"` // Number of neurons in the layer
	Inputs  int    `json:"inputs"`  // Number of inputs of every neuron
	Offset  int64  `json:"offset"`  // Offset in the data section
	Size    int64  `json:"size"`    // Size in bytes
}

// Values returns the number of float64 values the block holds.
func (m LayerMeta) Values() int {
	return m.Neurons * (m.Inputs + 1)
}

// dataOffset returns the file offset of the data section.
func dataOffset(headerSize int64) int64 {
	pos := fixedHeaderSize + headerSize
	return pos + padding(pos)
}

func padding(pos int64) int64 {
	return (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
}
