package serialization

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

const brainVersion = "0.1.0" // Current Brain version

// Writer writes networks in the binary weight format.
type Writer struct {
	w      io.Writer
	file   *os.File
	closed bool
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Create creates the weight file at path.
func Create(path string) (*Writer, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &Writer{w: file, file: file}, nil
}

// WriteNetwork writes the header and one parameter block per layer.
//
// header.Layers must carry the name, neuron count and input count of every
// layer; offsets, sizes and the checksum are filled in here. blocks[i] holds
// the neuron-major values of layer i.
//
//nolint:gocyclo,cyclop // Sequential binary layout is easier to follow in one function
func (w *Writer) WriteNetwork(header Header, blocks [][]float64) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	if len(header.Layers) != len(blocks) {
		return fmt.Errorf("%w: %d layers for %d blocks", ErrBlockSize, len(header.Layers), len(blocks))
	}

	// Lay out the blocks back to back.
	layers := make([]LayerMeta, len(header.Layers))
	var offset int64
	for i, l := range header.Layers {
		if len(blocks[i]) != l.Values() {
			return fmt.Errorf("%w: layer %q has %d values, want %d", ErrBlockSize, l.Name, len(blocks[i]), l.Values())
		}
		l.Offset = offset
		l.Size = int64(len(blocks[i])) * ValueSize
		layers[i] = l
		offset += l.Size
	}
	header.Layers = layers

	data := make([]byte, 0, offset)
	for _, block := range blocks {
		for _, v := range block {
			data = binary.LittleEndian.AppendUint64(data, math.Float64bits(v))
		}
	}

	sum := ComputeChecksum(data)
	header.Checksum = hex.EncodeToString(sum[:])
	header.FormatVersion = FormatVersion
	if header.BrainVersion == "" {
		header.BrainVersion = brainVersion
	}
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	if err := ValidateHeader(&header, int64(len(data)), ValidationStrict); err != nil {
		return fmt.Errorf("invalid header: %w", err)
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	if _, err := io.WriteString(w.w, MagicBytes); err != nil {
		return fmt.Errorf("failed to write magic bytes: %w", err)
	}

	if err := binary.Write(w.w, binary.LittleEndian, uint32(FormatVersion)); err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}

	flags := FlagHasChecksum
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if err := binary.Write(w.w, binary.LittleEndian, flags); err != nil {
		return fmt.Errorf("failed to write flags: %w", err)
	}

	headerSize := uint64(len(headerJSON))
	if err := binary.Write(w.w, binary.LittleEndian, headerSize); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}

	if _, err := w.w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	//nolint:gosec // G115: header size is bounded by MaxHeaderSize
	pad := padding(fixedHeaderSize + int64(headerSize))
	if pad > 0 {
		if _, err := w.w.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := w.w.Write(data); err != nil {
		return fmt.Errorf("failed to write layer data: %w", err)
	}

	return nil
}

// Close closes the underlying file when the Writer was made by Create.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.file == nil {
		return nil
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}
