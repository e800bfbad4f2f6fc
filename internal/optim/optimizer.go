// Package optim implements the learning rules that turn accumulated
// gradients into weight updates.
//
// This package provides:
//   - Optimizer interface: Base interface for all learning rules
//   - BackProp: Mini-batch gradient descent with momentum
//   - Resilient: Resilient propagation (Rprop)
//
// Each neuron owns one Param holding its weights, its bias and the
// per-weight optimizer state. Gradients are accumulated into Param.Grads
// during back-propagation, then a single Step applies and clears them:
//
//	opt := optim.New(optim.Resilient, optim.DefaultBackProp(), optim.DefaultResilient())
//	param := optim.NewParam(3, 0.5, rng)
//	opt.Init(param)
//
//	for range iterations {
//	    // ... accumulate into param.Grads for every sample of the batch
//	    opt.Step(param, batchSize)
//	}
package optim

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrUnknown is returned when a learning type name cannot be resolved.
var ErrUnknown = errors.New("unknown learning type")

// Type selects the weight update algorithm.
type Type int

// Learning types. Invalid is the zero value.
const (
	Invalid Type = iota
	BackPropagation
	Resilient
)

var names = map[Type]string{
	BackPropagation: "BackPropagation",
	Resilient:       "Resilient",
}

// Parse resolves a learning type by name.
func Parse(name string) (Type, error) {
	for t, n := range names {
		if n == name {
			return t, nil
		}
	}
	return Invalid, fmt.Errorf("%w: %q", ErrUnknown, name)
}

// Valid reports whether t names a real learning rule.
func (t Type) Valid() bool {
	_, ok := names[t]
	return ok
}

func (t Type) String() string {
	if n, ok := names[t]; ok {
		return n
	}
	return "Invalid"
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Optimizer is the base interface for all learning rules.
//
// All optimizers must implement:
//   - Init: Prepare the per-weight state of a freshly assigned Param
//   - Step: Apply the accumulated gradients and clear them
//   - Type: Report which learning rule this is
type Optimizer interface {
	// Init resets the optimizer state stored in p (deltas and signs).
	Init(p *Param)

	// Step updates p.Values from p.Grads accumulated over batch samples,
	// then zeroes p.Grads.
	Step(p *Param, batch int)

	// Type returns the learning type implemented by the optimizer.
	Type() Type
}

// New creates the optimizer for t. Invalid types fall back to BackPropagation.
func New(t Type, bp BackPropConfig, rp ResilientConfig) Optimizer {
	if t == Resilient {
		return NewResilient(rp)
	}
	return NewBackProp(bp)
}

// Param is the trainable state of one neuron.
//
// Values holds the input weights followed by the bias, so len(Values) is the
// number of inputs plus one. Grads, Deltas and Signs are parallel to Values.
type Param struct {
	Values []float64 // Weights then bias
	Grads  []float64 // Gradients accumulated since the last Step
	Deltas []float64 // Previous update (BackProp) or current step size (Resilient)
	Signs  []int8    // Sign of the previous gradient (Resilient)
}

// NewParam creates the state of a neuron with n inputs. Weights and bias are
// drawn uniformly from [-limit, limit].
func NewParam(n int, limit float64, rng *rand.Rand) *Param {
	p := &Param{
		Values: make([]float64, n+1),
		Grads:  make([]float64, n+1),
		Deltas: make([]float64, n+1),
		Signs:  make([]int8, n+1),
	}
	for i := range p.Values {
		p.Values[i] = (rng.Float64()*2.0 - 1.0) * limit
	}
	return p
}

// NumInputs returns the number of input weights (bias excluded).
func (p *Param) NumInputs() int {
	return len(p.Values) - 1
}

// Weights returns the input weights as a view into Values.
func (p *Param) Weights() []float64 {
	return p.Values[:len(p.Values)-1]
}

// Bias returns the bias value.
func (p *Param) Bias() float64 {
	return p.Values[len(p.Values)-1]
}

// SetBias overwrites the bias value.
func (p *Param) SetBias(v float64) {
	p.Values[len(p.Values)-1] = v
}

// ZeroGrad clears the accumulated gradients.
func (p *Param) ZeroGrad() {
	clear(p.Grads)
}
