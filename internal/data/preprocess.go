package data

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Preprocessing is an input normalization applied after loading.
type Preprocessing int

// Normalizations.
const (
	// GaussianNormalization centres every input on the training mean and
	// scales it by the training standard deviation.
	GaussianNormalization Preprocessing = iota
	// MinMaxNormalization centres every input on the middle of its training
	// range and scales it by the range width.
	MinMaxNormalization
)

var preprocessingNames = map[Preprocessing]string{
	GaussianNormalization: "GaussianNormalization",
	MinMaxNormalization:   "MinMaxNormalization",
}

// ParsePreprocessing resolves a normalization by name.
func ParsePreprocessing(name string) (Preprocessing, error) {
	for p, n := range preprocessingNames {
		if n == name {
			return p, nil
		}
	}
	return GaussianNormalization, fmt.Errorf("%w: preprocessing %q", ErrUnknown, name)
}

func (p Preprocessing) String() string {
	if n, ok := preprocessingNames[p]; ok {
		return n
	}
	return "Invalid"
}

// MarshalText implements encoding.TextMarshaler.
func (p Preprocessing) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Preprocessing) UnmarshalText(text []byte) error {
	parsed, err := ParsePreprocessing(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func (d *Data) apply(p Preprocessing) error {
	if d.training.Len() == 0 {
		return nil
	}
	switch p {
	case GaussianNormalization:
		d.gaussian()
	case MinMaxNormalization:
		d.minMax()
	default:
		return fmt.Errorf("%w: preprocessing %d", ErrUnknown, int(p))
	}
	return nil
}

// column copies input j of every training sample.
func (d *Data) column(j int) []float64 {
	col := make([]float64, d.training.Len())
	for i, in := range d.training.Inputs {
		col[i] = in[j]
	}
	return col
}

// Scaling is one input normalization step: x' = (x - Offset) / Scale,
// column by column. Constant columns have a Scale of 1.
type Scaling struct {
	Type   Preprocessing
	Offset []float64
	Scale  []float64
}

func (s Scaling) apply(in []float64) {
	for j := range in {
		in[j] = (in[j] - s.Offset[j]) / s.Scale[j]
	}
}

// Normalization is the ordered list of scalings a dataset went through.
// Signals given to a network trained on the dataset need the same steps.
type Normalization []Scaling

// Apply returns a normalized copy of input, which must hold one value per
// column of every scaling.
func (n Normalization) Apply(input []float64) []float64 {
	out := append([]float64(nil), input...)
	for _, s := range n {
		s.apply(out)
	}
	return out
}

// Columns returns the number of input columns, or 0 when n is empty.
func (n Normalization) Columns() int {
	if len(n) == 0 {
		return 0
	}
	return len(n[0].Offset)
}

// scale applies s to the inputs of both sets and records it.
func (d *Data) scale(s Scaling) {
	for _, set := range []Dataset{d.training, d.evaluating} {
		for _, in := range set.Inputs {
			s.apply(in)
		}
	}
	d.normalization = append(d.normalization, s)
}

// gaussian computes the mean and population variance of each input over the
// training set, then applies (x - mean) / sqrt(variance) to both sets.
// Constant inputs are only centred.
func (d *Data) gaussian() {
	d.means = make([]float64, d.inputLength)
	d.sigmas = make([]float64, d.inputLength)
	s := Scaling{
		Type:   GaussianNormalization,
		Offset: make([]float64, d.inputLength),
		Scale:  make([]float64, d.inputLength),
	}
	for j := range d.inputLength {
		d.means[j], d.sigmas[j] = stat.PopMeanVariance(d.column(j), nil)
		s.Offset[j], s.Scale[j] = d.means[j], 1
		if d.sigmas[j] > 0 {
			s.Scale[j] = math.Sqrt(d.sigmas[j])
		}
	}
	d.scale(s)
}

// minMax applies x - (max + min) / 2, divided by (max - min) when the range
// is not empty.
func (d *Data) minMax() {
	s := Scaling{
		Type:   MinMaxNormalization,
		Offset: make([]float64, d.inputLength),
		Scale:  make([]float64, d.inputLength),
	}
	for j := range d.inputLength {
		col := d.column(j)
		low, high := floats.Min(col), floats.Max(col)
		s.Offset[j], s.Scale[j] = (high+low)/2.0, 1
		if low < high {
			s.Scale[j] = high - low
		}
	}
	d.scale(s)
}
