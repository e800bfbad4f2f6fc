// Package activation implements the neuron activation functions and their derivatives.
//
// Every activation is identified by a Type so that settings files can select
// it by name:
//
//	t, err := activation.Parse("TanH")
//	if err != nil {
//	    return err
//	}
//	f, df := t.Func(), t.Derivative()
//	y := f(0.5)   // tanh(0.5)
//	dy := df(0.5) // 1 - tanh²(0.5)
package activation

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknown is returned when an activation name cannot be resolved.
var ErrUnknown = errors.New("unknown activation function")

// Func is a scalar activation function (or its derivative) evaluated on the
// weighted sum of a neuron.
type Func func(x float64) float64

// Type selects a neuron activation function.
type Type int

// Activation types. Invalid is the zero value and marks an unset or
// unparsable activation.
const (
	Invalid Type = iota
	Identity
	Sigmoid
	TanH
	ArcTan
	SoftPlus
	Sinusoid
	ReLU
)

var names = map[Type]string{
	Identity: "Identity",
	Sigmoid:  "Sigmoid",
	TanH:     "TanH",
	ArcTan:   "ArcTan",
	SoftPlus: "SoftPlus",
	Sinusoid: "Sinusoid",
	ReLU:     "ReLU",
}

// aliases accepted by Parse in addition to the canonical names.
var aliases = map[string]Type{
	"Sinus": Sinusoid,
	"ReLu":  ReLU,
}

// Parse resolves an activation by name.
func Parse(name string) (Type, error) {
	for t, n := range names {
		if n == name {
			return t, nil
		}
	}
	if t, ok := aliases[name]; ok {
		return t, nil
	}
	return Invalid, fmt.Errorf("%w: %q", ErrUnknown, name)
}

// Valid reports whether t names a real activation function.
func (t Type) Valid() bool {
	_, ok := names[t]
	return ok
}

// String returns the canonical name of t.
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

// Func returns the activation function. Invalid types fall back to Sigmoid.
func (t Type) Func() Func {
	switch t {
	case Identity:
		return identity
	case TanH:
		return math.Tanh
	case ArcTan:
		return math.Atan
	case SoftPlus:
		return softplus
	case Sinusoid:
		return math.Sin
	case ReLU:
		return relu
	default:
		return sigmoid
	}
}

// Derivative returns the derivative of the activation with respect to the
// weighted sum. Invalid types fall back to Sigmoid.
func (t Type) Derivative() Func {
	switch t {
	case Identity:
		return identityDerivative
	case TanH:
		return tanhDerivative
	case ArcTan:
		return atanDerivative
	case SoftPlus:
		return softplusDerivative
	case Sinusoid:
		return math.Cos
	case ReLU:
		return reluDerivative
	default:
		return sigmoidDerivative
	}
}

func identity(x float64) float64 { return x }

func identityDerivative(float64) float64 { return 1 }

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func sigmoidDerivative(x float64) float64 {
	s := sigmoid(x)
	return s * (1.0 - s)
}

func tanhDerivative(x float64) float64 {
	v := math.Tanh(x)
	return 1.0 - v*v
}

func atanDerivative(x float64) float64 {
	return 1.0 / (1.0 + x*x)
}

// softplus computes ln(1 + e^x) without overflowing for large x.
func softplus(x float64) float64 {
	if x > 30 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

// softplusDerivative is the logistic function.
func softplusDerivative(x float64) float64 {
	return sigmoid(x)
}

func relu(x float64) float64 {
	return math.Max(0, x)
}

func reluDerivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}
