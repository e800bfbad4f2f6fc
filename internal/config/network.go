package config

import (
	"fmt"

	"github.com/brain-ml/brain/internal/activation"
)

// LayerSpec describes one fully connected layer.
type LayerSpec struct {
	Neurons    int             `xml:"neurons,attr" yaml:"neurons"`
	Activation activation.Type `xml:"activation-function,attr,omitempty" yaml:"activation-function,omitempty"` // Invalid inherits Settings.Activation
}

// NetworkDescriptor describes the shape of a network:
//
//	<network inputs="2">
//	  <layers>
//	    <layer neurons="3"/>
//	    <layer neurons="1"/>
//	  </layers>
//	</network>
type NetworkDescriptor struct {
	XMLName struct{}    `xml:"network" yaml:"-"`
	Inputs  int         `xml:"inputs,attr" yaml:"inputs"`
	Layers  []LayerSpec `xml:"layers>layer" yaml:"layers"`
}

// Validate checks that the described network can be built.
func (d NetworkDescriptor) Validate() error {
	if d.Inputs <= 0 {
		return fmt.Errorf("%w: inputs must be positive, got %d", ErrInvalidNetwork, d.Inputs)
	}
	if len(d.Layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrInvalidNetwork)
	}
	for i, l := range d.Layers {
		if l.Neurons <= 0 {
			return fmt.Errorf("%w: layer %d has %d neurons", ErrInvalidNetwork, i, l.Neurons)
		}
	}
	return nil
}

// Outputs returns the size of the last layer.
func (d NetworkDescriptor) Outputs() int {
	if len(d.Layers) == 0 {
		return 0
	}
	return d.Layers[len(d.Layers)-1].Neurons
}

// LoadNetwork reads and validates a network descriptor.
func LoadNetwork(path string) (NetworkDescriptor, error) {
	var d NetworkDescriptor
	if err := decodeFile(path, &d); err != nil {
		return NetworkDescriptor{}, err
	}
	if err := d.Validate(); err != nil {
		return NetworkDescriptor{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// SaveNetwork writes d to path in the format matching its extension.
func SaveNetwork(path string, d NetworkDescriptor) error {
	return encodeFile(path, d)
}
