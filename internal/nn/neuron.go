package nn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/brain-ml/brain/internal/activation"
	"github.com/brain-ml/brain/internal/optim"
)

// Neuron is a weighted sum of the inputs of its layer followed by an
// activation function.
//
// A new neuron with n inputs draws its weights and bias uniformly from
// [-1/√n, 1/√n], activates with Sigmoid and learns with BackPropagation.
type Neuron struct {
	param      *optim.Param
	kind       activation.Type
	fn         activation.Func
	derivative activation.Func
	optimizer  optim.Optimizer
	sum        float64 // Weighted sum of the latest activation
	gradient   float64 // loss·A'(sum) of the latest backpropagation
}

func newNeuron(inputs int, rng *rand.Rand) *Neuron {
	n := &Neuron{
		param: optim.NewParam(inputs, 1.0/math.Sqrt(float64(inputs)), rng),
	}
	n.setActivation(activation.Sigmoid)
	n.setOptimizer(optim.NewBackProp(optim.DefaultBackProp()))
	return n
}

func (n *Neuron) setActivation(t activation.Type) {
	n.kind = t
	n.fn = t.Func()
	n.derivative = t.Derivative()
}

func (n *Neuron) setOptimizer(o optim.Optimizer) {
	n.optimizer = o
	o.Init(n.param)
}

// activate computes the output of the neuron for in. Inactive neurons
// output 0.
func (n *Neuron) activate(in []float64, active bool) float64 {
	if !active {
		n.sum = 0
		return 0
	}
	n.sum = floats.Dot(in, n.param.Weights()) + n.param.Bias()
	return n.fn(n.sum)
}

// backpropagate accumulates the gradients of loss for input in.
func (n *Neuron) backpropagate(in []float64, loss float64) {
	n.gradient = loss * n.derivative(n.sum)
	grads := n.param.Grads
	floats.AddScaled(grads[:len(in)], n.gradient, in)
	grads[len(in)] += n.gradient
}

// update applies the gradients accumulated over batch samples.
func (n *Neuron) update(batch int) {
	n.optimizer.Step(n.param, batch)
}

// NumInputs returns the number of inputs.
func (n *Neuron) NumInputs() int {
	return n.param.NumInputs()
}

// Bias returns the bias.
func (n *Neuron) Bias() float64 {
	return n.param.Bias()
}

// Weight returns the weight of input i.
func (n *Neuron) Weight(i int) float64 {
	return n.param.Values[i]
}

// Weights returns a copy of the input weights.
func (n *Neuron) Weights() []float64 {
	w := make([]float64, n.param.NumInputs())
	copy(w, n.param.Weights())
	return w
}

// Activation returns the activation function type.
func (n *Neuron) Activation() activation.Type {
	return n.kind
}

// Learning returns the learning type of the neuron optimizer.
func (n *Neuron) Learning() optim.Type {
	return n.optimizer.Type()
}

// set overwrites weights and bias from values (weights then bias) and
// resets the learning state.
func (n *Neuron) set(values []float64) {
	copy(n.param.Values, values)
	n.param.ZeroGrad()
	n.optimizer.Init(n.param)
}
