// Package nn implements a fully connected feed-forward neural network.
//
// A Network is a stack of layers, each made of neurons fully connected to
// the output of the previous layer:
//   - Neuron: weighted sum of the layer input plus a bias, then an activation
//   - Layer: neurons sharing one input vector, with an optional dropout mask
//   - Network: feed-forward, backpropagation, training loop and persistence
//
// Example:
//
//	net, err := nn.New(2, []nn.LayerSpec{{Neurons: 3}, {Neurons: 1}})
//	if err != nil {
//	    return err
//	}
//	if err := net.Configure(settings); err != nil {
//	    return err
//	}
//	report, err := net.Train(ctx, samples)
//	output, err := net.Predict([]float64{1, 0})
package nn

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brain-ml/brain/internal/activation"
	"github.com/brain-ml/brain/internal/config"
	"github.com/brain-ml/brain/internal/cost"
	"github.com/brain-ml/brain/internal/data"
	"github.com/brain-ml/brain/internal/metrics"
	"github.com/brain-ml/brain/internal/optim"
	"github.com/brain-ml/brain/internal/parallel"
)

// Errors returned by network operations.
var (
	ErrInvalidShape  = errors.New("invalid network shape")
	ErrInputSize     = errors.New("input size does not match the network")
	ErrOutputSize    = errors.New("output size does not match the network")
	ErrNoSamples     = errors.New("no training samples")
	ErrShapeMismatch = errors.New("stored weights do not match the network shape")
)

// LayerSpec describes one layer of a network.
type LayerSpec = config.LayerSpec

// Option configures a Network at construction.
type Option func(*options)

type options struct {
	rng      *rand.Rand
	parallel parallel.Config
	observer *metrics.Observer
}

// WithSeed seeds the random source used for weight initialization,
// dropout and mini-batch sampling.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithRand sets the random source.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithParallel sets how layers spread neurons across goroutines.
func WithParallel(cfg parallel.Config) Option {
	return func(o *options) {
		o.parallel = cfg
	}
}

// WithObserver reports training and prediction activity to o.
func WithObserver(o *metrics.Observer) Option {
	return func(opts *options) {
		opts.observer = o
	}
}

// Network is a multi-layer perceptron.
//
// A Network is safe for concurrent use: operations that run the
// feed-forward pass are serialized.
type Network struct {
	mu sync.Mutex

	input  []float64
	layers []*Layer
	specs  []LayerSpec

	settings  config.Settings
	costFn    cost.Func
	costDeriv cost.Func
	rng       *rand.Rand
	parallel  parallel.Config
	observer  *metrics.Observer
	lastRunID uuid.UUID

	// Input scalings of the data the network was last trained on.
	normalization data.Normalization
}

// New creates a network with the given number of inputs and layers. The
// last layer is the output layer. Weights are random and the network uses
// the default settings until Configure is called.
func New(inputs int, layers []LayerSpec, opts ...Option) (*Network, error) {
	if inputs <= 0 {
		return nil, fmt.Errorf("%w: %d inputs", ErrInvalidShape, inputs)
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrInvalidShape)
	}
	for i, l := range layers {
		if l.Neurons <= 0 {
			return nil, fmt.Errorf("%w: layer %d has %d neurons", ErrInvalidShape, i, l.Neurons)
		}
	}

	o := options{parallel: parallel.DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	n := &Network{
		input:    make([]float64, inputs),
		specs:    append([]LayerSpec(nil), layers...),
		rng:      o.rng,
		parallel: o.parallel,
		observer: o.observer,
	}

	input, prevErrors := n.input, []float64(nil)
	for i, spec := range layers {
		l := newLayer(spec.Neurons, input, prevErrors, i < len(layers)-1, n.rng)
		n.layers = append(n.layers, l)
		input, prevErrors = l.output, l.errors
	}

	if err := n.configure(config.Defaults()); err != nil {
		return nil, err
	}

	log.Debug().
		Int("inputs", inputs).
		Int("layers", len(layers)).
		Int("outputs", n.outputs()).
		Msg("network created")

	return n, nil
}

// NewFromDescriptor creates a network from a network descriptor.
func NewFromDescriptor(d config.NetworkDescriptor, opts ...Option) (*Network, error) {
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShape, err)
	}
	return New(d.Inputs, d.Layers, opts...)
}

// Configure applies settings: cost function, training parameters, the
// activation of every layer without its own and the learning rule of every
// neuron. Learning state is reset.
func (n *Network) Configure(s config.Settings) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.configure(s)
}

func (n *Network) configure(s config.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	n.settings = s
	n.costFn = s.Cost.Func()
	n.costDeriv = s.Cost.Derivative()
	if s.Seed != 0 {
		n.rng = rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15))
	}

	optimizer := optim.New(s.Learning, s.BackProp, s.Resilient)
	for i, l := range n.layers {
		act := n.specs[i].Activation
		if act == activation.Invalid {
			act = s.Activation
		}
		for _, neuron := range l.neurons {
			neuron.setActivation(act)
			neuron.setOptimizer(optimizer)
		}
	}
	return nil
}

// Settings returns the settings in use.
func (n *Network) Settings() config.Settings {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.settings
}

// NumInputs returns the length of the input signal.
func (n *Network) NumInputs() int {
	return len(n.input)
}

// NumLayers returns the number of layers, output layer included.
func (n *Network) NumLayers() int {
	return len(n.layers)
}

// NumOutputs returns the length of the output signal.
func (n *Network) NumOutputs() int {
	return n.outputs()
}

func (n *Network) outputs() int {
	return n.layers[len(n.layers)-1].NumNeurons()
}

// Layer returns layer i; layer 0 reads the network input.
func (n *Network) Layer(i int) *Layer {
	return n.layers[i]
}

// Output returns a copy of the output of the latest feed-forward pass.
func (n *Network) Output() []float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.layers[len(n.layers)-1].Output()
}

// Predict runs the feed-forward pass without dropout and returns a copy of
// the output signal. The input is used as is: it must already be scaled
// like the training samples. See PredictRaw.
//
// Example:
//
//	out, err := net.Predict([]float64{1, 0})
func (n *Network) Predict(input []float64) ([]float64, error) {
	if len(input) != len(n.input) {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrInputSize, len(input), len(n.input))
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.predict(input), nil
}

// PredictRaw applies the input normalization of the training data to
// input, then runs Predict. Without a recorded normalization it is the same
// as Predict.
func (n *Network) PredictRaw(input []float64) ([]float64, error) {
	if len(input) != len(n.input) {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrInputSize, len(input), len(n.input))
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.predict(n.normalization.Apply(input)), nil
}

func (n *Network) predict(input []float64) []float64 {
	n.forward(input, false)
	n.observer.Prediction()
	return n.layers[len(n.layers)-1].Output()
}

// Normalization returns the input scalings recorded by Train or Load.
func (n *Network) Normalization() data.Normalization {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append(data.Normalization(nil), n.normalization...)
}

// TotalError returns the mean over samples of Σ_j C(output_j, target_j).
// An empty dataset has no error.
func (n *Network) TotalError(samples data.Dataset) (float64, error) {
	if err := n.checkDataset(samples); err != nil {
		return 0, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.totalError(samples), nil
}

func (n *Network) checkDataset(samples data.Dataset) error {
	for i := range samples.Len() {
		in, out := samples.Sample(i)
		if len(in) != len(n.input) {
			return fmt.Errorf("%w: sample %d has %d inputs, want %d", ErrInputSize, i, len(in), len(n.input))
		}
		if len(out) != n.outputs() {
			return fmt.Errorf("%w: sample %d has %d outputs, want %d", ErrOutputSize, i, len(out), n.outputs())
		}
	}
	return nil
}

func (n *Network) totalError(samples data.Dataset) float64 {
	if samples.Len() == 0 {
		return 0
	}

	output := n.layers[len(n.layers)-1].output
	var total float64
	for i := range samples.Len() {
		in, target := samples.Sample(i)
		n.forward(in, false)
		for j, o := range output {
			total += n.costFn(o, target[j])
		}
	}
	return total / float64(samples.Len())
}

// forward copies input into the network and activates every layer.
func (n *Network) forward(input []float64, training bool) {
	copy(n.input, input)
	dropout := training && n.settings.Dropout
	for _, l := range n.layers {
		l.activate(dropout, n.settings.DropoutRatio, n.rng, n.parallel)
	}
}

// backpropagate accumulates the gradients for the latest forward pass.
func (n *Network) backpropagate(desired []float64) {
	last := len(n.layers) - 1
	n.layers[last].backpropagateOutput(desired, n.costDeriv, n.parallel)
	for i := last - 1; i >= 0; i-- {
		n.layers[i].backpropagate(n.parallel)
	}
}

func (n *Network) update(batch int) {
	for _, l := range n.layers {
		l.update(batch, n.parallel)
	}
}
