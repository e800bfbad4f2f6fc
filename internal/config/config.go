// Package config loads the descriptors that drive a training run: the
// network shape, the training settings and the dataset description.
//
// Each descriptor can be written in XML (the historical layout) or YAML; the
// format is chosen from the file extension.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Errors returned by the loaders and validators.
var (
	ErrUnsupportedFormat = errors.New("unsupported descriptor format")
	ErrInvalidSettings   = errors.New("invalid settings")
	ErrInvalidNetwork    = errors.New("invalid network descriptor")
	ErrInvalidData       = errors.New("invalid data descriptor")
)

// decodeFile decodes path into v using the codec matching its extension.
func decodeFile(path string, v any) error {
	//nolint:gosec // G304: descriptor paths come from the command line
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open descriptor: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xml":
		if err := xml.NewDecoder(f).Decode(v); err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(f).Decode(v); err != nil {
			return fmt.Errorf("failed to decode %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return nil
}

// encodeFile writes v to path using the codec matching its extension.
func encodeFile(path string, v any) error {
	var (
		out []byte
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xml":
		out, err = xml.MarshalIndent(v, "", "  ")
		out = append([]byte(xml.Header), out...)
	case ".yaml", ".yml":
		out, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
