package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// Reader reads networks from the binary weight format.
type Reader struct {
	src        io.ReaderAt
	file       *os.File
	header     Header
	flags      uint32
	version    uint32
	dataOffset int64 // Offset where layer data starts
	dataSize   int64 // Size of the data section
	opts       ReaderOptions
	closed     bool
}

// ReaderOptions configures the behavior of Reader.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// Open opens the weight file at path with strict validation.
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, ReaderOptions{
		ValidationLevel: ValidationStrict,
	})
}

// OpenWithOptions opens the weight file at path with custom options.
func OpenWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	r, err := NewReader(file, info.Size(), opts)
	if err != nil {
		_ = file.Close() // Best effort close on error
		return nil, err
	}
	r.file = file
	return r, nil
}

// NewReader reads a weight file of the given size from src.
func NewReader(src io.ReaderAt, size int64, opts ReaderOptions) (*Reader, error) {
	r := &Reader{src: src, opts: opts}

	if err := r.parseHeader(); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	r.dataSize = size - r.dataOffset
	if r.dataSize < 0 {
		return nil, fmt.Errorf("%w: file ends before the data section", ErrOutOfBounds)
	}

	if err := ValidateHeader(&r.header, r.dataSize, opts.ValidationLevel); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if r.flags&FlagHasChecksum != 0 && !opts.SkipChecksumValidation {
		sum, err := ComputeChecksumReader(io.NewSectionReader(src, r.dataOffset, r.dataSize))
		if err != nil {
			return nil, fmt.Errorf("failed to checksum data: %w", err)
		}
		if err := ValidateChecksum(sum, r.header.Checksum); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// parseHeader reads the fixed header and the JSON header.
func (r *Reader) parseHeader() error {
	fixed := make([]byte, fixedHeaderSize)
	if _, err := r.src.ReadAt(fixed, 0); err != nil {
		return fmt.Errorf("failed to read fixed header: %w", err)
	}

	if string(fixed[:4]) != MagicBytes {
		return ErrInvalidMagic
	}

	r.version = binary.LittleEndian.Uint32(fixed[4:8])
	if r.version != FormatVersion {
		return fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, r.version, FormatVersion)
	}

	r.flags = binary.LittleEndian.Uint32(fixed[8:12])

	headerSize := binary.LittleEndian.Uint64(fixed[12:20])
	if headerSize > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	headerBytes := make([]byte, headerSize)
	if _, err := r.src.ReadAt(headerBytes, fixedHeaderSize); err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	if err := json.Unmarshal(headerBytes, &r.header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}

	//nolint:gosec // G115: header size is bounded by MaxHeaderSize
	r.dataOffset = dataOffset(int64(headerSize))
	return nil
}

// Header returns the parsed header.
func (r *Reader) Header() Header {
	return r.header
}

// Flags returns the header flags.
func (r *Reader) Flags() uint32 {
	return r.flags
}

// ReadLayer reads the parameter block of layer i.
func (r *Reader) ReadLayer(i int) ([]float64, error) {
	if r.closed {
		return nil, fmt.Errorf("reader is closed")
	}
	if i < 0 || i >= len(r.header.Layers) {
		return nil, fmt.Errorf("%w: %d of %d", ErrLayerIndex, i, len(r.header.Layers))
	}

	meta := r.header.Layers[i]
	raw := make([]byte, meta.Size)
	if _, err := r.src.ReadAt(raw, r.dataOffset+meta.Offset); err != nil {
		return nil, fmt.Errorf("failed to read layer %q: %w", meta.Name, err)
	}

	values := make([]float64, meta.Size/ValueSize)
	for j := range values {
		values[j] = math.Float64frombits(binary.LittleEndian.Uint64(raw[j*ValueSize:]))
	}
	return values, nil
}

// Close closes the underlying file when the Reader was made by Open.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.file == nil {
		return nil
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}
