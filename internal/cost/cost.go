// Package cost implements the network cost functions used to measure and
// back-propagate the output error.
package cost

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknown is returned when a cost function name cannot be resolved.
var ErrUnknown = errors.New("unknown cost function")

// epsilon bounds the outputs fed to the logarithms of the cross-entropy.
const epsilon = 1e-12

// Func evaluates a cost (or its derivative) for one output value against the
// desired value.
type Func func(output, desired float64) float64

// Type selects the network cost function.
type Type int

// Cost function types. Invalid is the zero value.
const (
	Invalid Type = iota
	Quadratic
	CrossEntropy
)

var names = map[Type]string{
	Quadratic:    "Quadratic",
	CrossEntropy: "CrossEntropy",
}

// Parse resolves a cost function by name.
func Parse(name string) (Type, error) {
	for t, n := range names {
		if n == name {
			return t, nil
		}
	}
	return Invalid, fmt.Errorf("%w: %q", ErrUnknown, name)
}

// Valid reports whether t names a real cost function.
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

// Func returns the cost function. Invalid types fall back to Quadratic.
func (t Type) Func() Func {
	if t == CrossEntropy {
		return crossEntropy
	}
	return quadratic
}

// Derivative returns the derivative of the cost with respect to the output.
// Invalid types fall back to Quadratic.
func (t Type) Derivative() Func {
	if t == CrossEntropy {
		return crossEntropyDerivative
	}
	return quadraticDerivative
}

func quadratic(output, desired float64) float64 {
	d := output - desired
	return 0.5 * d * d
}

func quadraticDerivative(output, desired float64) float64 {
	return output - desired
}

func clamp(output float64) float64 {
	return math.Min(math.Max(output, epsilon), 1-epsilon)
}

func crossEntropy(output, desired float64) float64 {
	o := clamp(output)
	return -(desired*math.Log(o) + (1-desired)*math.Log(1-o))
}

func crossEntropyDerivative(output, desired float64) float64 {
	o := clamp(output)
	return (o - desired) / (o * (1 - o))
}
