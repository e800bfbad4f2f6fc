package nn

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/brain-ml/brain/internal/cost"
	"github.com/brain-ml/brain/internal/parallel"
)

// Layer is a set of neurons fully connected to the same input vector.
//
// The layer owns its output vector, which the next layer reads as input,
// and an error vector the next layer writes into while backpropagating.
type Layer struct {
	neurons    []*Neuron
	input      []float64 // Output of the previous layer, or the network input
	output     []float64
	errors     []float64 // Error of every neuron, filled by the next layer
	prevErrors []float64 // Error vector of the previous layer, nil for the first layer
	active     []bool    // Dropout mask of the latest activation
	hidden     bool
}

func newLayer(neurons int, input, prevErrors []float64, hidden bool, rng *rand.Rand) *Layer {
	l := &Layer{
		neurons:    make([]*Neuron, neurons),
		input:      input,
		output:     make([]float64, neurons),
		errors:     make([]float64, neurons),
		prevErrors: prevErrors,
		active:     make([]bool, neurons),
		hidden:     hidden,
	}
	for i := range l.neurons {
		l.neurons[i] = newNeuron(len(input), rng)
	}
	return l
}

// activate resets the error vector and computes the output of every neuron.
// When dropout is on, each hidden neuron stays active with probability
// 1-ratio.
func (l *Layer) activate(dropout bool, ratio float64, rng *rand.Rand, cfg parallel.Config) {
	clear(l.errors)

	for i := range l.active {
		l.active[i] = !dropout || !l.hidden || rng.Float64() >= ratio
	}

	parallel.For(len(l.neurons), cfg, func(i int) {
		l.output[i] = l.neurons[i].activate(l.input, l.active[i])
	})
}

// backpropagateOutput backpropagates loss_i = C'(out_i, desired_i).
func (l *Layer) backpropagateOutput(desired []float64, derivative cost.Func, cfg parallel.Config) {
	for i, out := range l.output {
		l.errors[i] = derivative(out, desired[i])
	}
	l.backpropagate(cfg)
}

// backpropagate backpropagates the error vector of every active neuron
// and accumulates the errors of the previous layer.
func (l *Layer) backpropagate(cfg parallel.Config) {
	parallel.For(len(l.neurons), cfg, func(i int) {
		if l.active[i] {
			l.neurons[i].backpropagate(l.input, l.errors[i])
		}
	})

	if l.prevErrors == nil {
		return
	}
	for i, n := range l.neurons {
		if l.active[i] {
			floats.AddScaled(l.prevErrors, n.gradient, n.param.Weights())
		}
	}
}

func (l *Layer) update(batch int, cfg parallel.Config) {
	parallel.For(len(l.neurons), cfg, func(i int) {
		l.neurons[i].update(batch)
	})
}

// NumNeurons returns the number of neurons.
func (l *Layer) NumNeurons() int {
	return len(l.neurons)
}

// NumInputs returns the number of inputs of every neuron.
func (l *Layer) NumInputs() int {
	return len(l.input)
}

// Neuron returns neuron i.
func (l *Layer) Neuron(i int) *Neuron {
	return l.neurons[i]
}

// Output returns a copy of the latest output vector.
func (l *Layer) Output() []float64 {
	out := make([]float64, len(l.output))
	copy(out, l.output)
	return out
}

// values returns the parameters of every neuron, neuron-major.
func (l *Layer) values() []float64 {
	values := make([]float64, 0, len(l.neurons)*(len(l.input)+1))
	for _, n := range l.neurons {
		values = append(values, n.param.Values...)
	}
	return values
}
