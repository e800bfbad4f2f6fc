package nn

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/brain-ml/brain/internal/activation"
	"github.com/brain-ml/brain/internal/data"
	"github.com/brain-ml/brain/internal/serialization"
)

// xmlNetwork is the XML weight layout:
//
//	<network>
//	  <preprocess type="GaussianNormalization">
//	    <column offset="2.5" scale="1.2"/>
//	    <column offset="0" scale="1"/>
//	  </preprocess>
//	  <layer activation="TanH">
//	    <neuron bias="0.1">
//	      <weight>0.5</weight>
//	      <weight>-0.2</weight>
//	    </neuron>
//	  </layer>
//	</network>
//
// The preprocess elements and the activation attribute are optional.
type xmlNetwork struct {
	XMLName    xml.Name     `xml:"network"`
	Preprocess []xmlScaling `xml:"preprocess"`
	Layers     []xmlLayer   `xml:"layer"`
}

type xmlScaling struct {
	Type    string      `xml:"type,attr"`
	Columns []xmlColumn `xml:"column"`
}

type xmlColumn struct {
	Offset float64 `xml:"offset,attr"`
	Scale  float64 `xml:"scale,attr"`
}

type xmlLayer struct {
	Activation string      `xml:"activation,attr,omitempty"`
	Neurons    []xmlNeuron `xml:"neuron"`
}

type xmlNeuron struct {
	Bias    float64   `xml:"bias,attr"`
	Weights []float64 `xml:"weight"`
}

// SerializeXML writes the input normalization and the activation, weights
// and biases of every layer to w.
func (n *Network) SerializeXML(w io.Writer) error {
	n.mu.Lock()
	doc := xmlNetwork{Layers: make([]xmlLayer, len(n.layers))}
	for _, step := range n.normalization {
		x := xmlScaling{Type: step.Type.String(), Columns: make([]xmlColumn, len(step.Offset))}
		for j := range step.Offset {
			x.Columns[j] = xmlColumn{Offset: step.Offset[j], Scale: step.Scale[j]}
		}
		doc.Preprocess = append(doc.Preprocess, x)
	}
	for i, l := range n.layers {
		doc.Layers[i].Activation = l.neurons[0].Activation().String()
		doc.Layers[i].Neurons = make([]xmlNeuron, len(l.neurons))
		for j, neuron := range l.neurons {
			doc.Layers[i].Neurons[j] = xmlNeuron{
				Bias:    neuron.Bias(),
				Weights: neuron.Weights(),
			}
		}
	}
	n.mu.Unlock()

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode weights: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("failed to write weights: %w", err)
	}
	return nil
}

// DeserializeXML reads weights and biases written by SerializeXML. The
// document must describe exactly the same layers, neurons and weights as
// the network. Layer activations and the input normalization found in the
// document replace the current ones. Learning state is reset.
func (n *Network) DeserializeXML(r io.Reader) error {
	var doc xmlNetwork
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode weights: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if len(doc.Layers) != len(n.layers) {
		return fmt.Errorf("%w: %d layers, want %d", ErrShapeMismatch, len(doc.Layers), len(n.layers))
	}
	activations := make([]string, len(doc.Layers))
	for i, l := range n.layers {
		neurons := doc.Layers[i].Neurons
		if len(neurons) != len(l.neurons) {
			return fmt.Errorf("%w: layer %d has %d neurons, want %d", ErrShapeMismatch, i, len(neurons), len(l.neurons))
		}
		for j, neuron := range neurons {
			if len(neuron.Weights) != l.NumInputs() {
				return fmt.Errorf("%w: neuron %d of layer %d has %d weights, want %d",
					ErrShapeMismatch, j, i, len(neuron.Weights), l.NumInputs())
			}
		}
		activations[i] = doc.Layers[i].Activation
	}

	steps := make([]serialization.Scaling, len(doc.Preprocess))
	for i, x := range doc.Preprocess {
		steps[i] = serialization.Scaling{
			Type:   x.Type,
			Offset: make([]float64, len(x.Columns)),
			Scale:  make([]float64, len(x.Columns)),
		}
		for j, c := range x.Columns {
			steps[i].Offset[j], steps[i].Scale[j] = c.Offset, c.Scale
		}
	}

	return n.apply(activations, steps, func(i int, l *Layer) {
		for j, neuron := range doc.Layers[i].Neurons {
			l.neurons[j].set(append(neuron.Weights, neuron.Bias))
		}
	})
}

// apply checks and parses the stored activations and scalings, then sets
// the parameters of every layer with set. Nothing changes on error. An
// empty activation keeps the layer's current one.
func (n *Network) apply(activations []string, steps []serialization.Scaling, set func(int, *Layer)) error {
	kinds := make([]activation.Type, len(activations))
	for i, name := range activations {
		if name == "" {
			continue
		}
		t, err := activation.Parse(name)
		if err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
		kinds[i] = t
	}

	if err := serialization.ValidatePreprocess(len(n.input), steps); err != nil {
		return fmt.Errorf("invalid input normalization: %w", err)
	}
	norm := make(data.Normalization, len(steps))
	for i, step := range steps {
		t, err := data.ParsePreprocessing(step.Type)
		if err != nil {
			return fmt.Errorf("input normalization %d: %w", i, err)
		}
		norm[i] = data.Scaling{Type: t, Offset: step.Offset, Scale: step.Scale}
	}

	for i, l := range n.layers {
		if kinds[i] != activation.Invalid {
			n.specs[i].Activation = kinds[i]
			for _, neuron := range l.neurons {
				neuron.setActivation(kinds[i])
			}
		}
		set(i, l)
	}
	if len(norm) == 0 {
		norm = nil
	}
	n.normalization = norm
	return nil
}

// Save writes the weights to path: XML for a .xml extension, the binary
// weight file otherwise.
func (n *Network) Save(path string) error {
	if isXML(path) {
		//nolint:gosec // G304: File path comes from user input, which is expected for model saving
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		if err := n.SerializeXML(f); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}

	w, err := serialization.Create(path)
	if err != nil {
		return err
	}
	header, blocks := n.snapshot()
	if err := w.WriteNetwork(header, blocks); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return w.Close()
}

// Load reads weights written by Save. Layer activations and the input
// normalization stored with the weights replace the configured ones and
// survive later calls to Configure.
func (n *Network) Load(path string) error {
	if isXML(path) {
		//nolint:gosec // G304: File path comes from user input, which is expected for model loading
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		return n.DeserializeXML(f)
	}

	r, err := serialization.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()
	return n.restore(r)
}

func isXML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}

// snapshot returns the weight file header and the parameter blocks.
func (n *Network) snapshot() (serialization.Header, [][]float64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	header := serialization.Header{
		Inputs: len(n.input),
		Layers: make([]serialization.LayerMeta, len(n.layers)),
		Metadata: map[string]string{
			"cost":     n.settings.Cost.String(),
			"learning": n.settings.Learning.String(),
		},
	}
	if n.lastRunID != uuid.Nil {
		header.RunID = n.lastRunID.String()
	}
	for _, step := range n.normalization {
		header.Preprocess = append(header.Preprocess, serialization.Scaling{
			Type:   step.Type.String(),
			Offset: step.Offset,
			Scale:  step.Scale,
		})
	}

	blocks := make([][]float64, len(n.layers))
	for i, l := range n.layers {
		header.Layers[i] = serialization.LayerMeta{
			Name:    fmt.Sprintf("layer.%d", i),
			Neurons: l.NumNeurons(),
			Inputs:  l.NumInputs(),
		}
		header.Metadata[activationKey(header.Layers[i].Name)] = l.neurons[0].Activation().String()
		blocks[i] = l.values()
	}
	return header, blocks
}

func activationKey(layer string) string {
	return layer + ".activation"
}

// restore copies the parameter blocks, layer activations and input
// normalization of r into the network.
func (n *Network) restore(r *serialization.Reader) error {
	header := r.Header()

	n.mu.Lock()
	defer n.mu.Unlock()

	if header.Inputs != len(n.input) || len(header.Layers) != len(n.layers) {
		return fmt.Errorf("%w: file holds %d inputs and %d layers, want %d and %d",
			ErrShapeMismatch, header.Inputs, len(header.Layers), len(n.input), len(n.layers))
	}
	activations := make([]string, len(header.Layers))
	for i, meta := range header.Layers {
		if meta.Neurons != n.layers[i].NumNeurons() || meta.Inputs != n.layers[i].NumInputs() {
			return fmt.Errorf("%w: layer %d holds %dx%d, want %dx%d", ErrShapeMismatch,
				i, meta.Neurons, meta.Inputs, n.layers[i].NumNeurons(), n.layers[i].NumInputs())
		}
		activations[i] = header.Metadata[activationKey(meta.Name)]
	}

	blocks := make([][]float64, len(header.Layers))
	for i := range header.Layers {
		values, err := r.ReadLayer(i)
		if err != nil {
			return err
		}
		blocks[i] = values
	}

	err := n.apply(activations, header.Preprocess, func(i int, l *Layer) {
		stride := l.NumInputs() + 1
		for j, neuron := range l.neurons {
			neuron.set(blocks[i][j*stride : (j+1)*stride])
		}
	})
	if err != nil {
		return err
	}

	if id, err := uuid.Parse(header.RunID); err == nil {
		n.lastRunID = id
	}
	return nil
}
