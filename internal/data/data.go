// Package data loads training datasets from delimited text files.
//
// A row holds an input signal and either an output signal or a class label.
// Labels are turned into one-hot output signals, rows are split at random
// between a training and an evaluating set, and the inputs can be
// normalized with statistics taken from the training set.
package data

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Errors returned while loading a dataset.
var (
	ErrInvalidOptions = errors.New("invalid data options")
	ErrMalformedRow   = errors.New("malformed row")
	ErrTooManyLabels  = errors.New("more labels than output length")
	ErrUnknown        = errors.New("unknown data option")
)

// DefaultTrainingRatio is the share of rows assigned to the training set.
const DefaultTrainingRatio = 0.80

// Format tells where the input signal sits in a row.
type Format int

// Row formats.
const (
	InputFirst Format = iota
	OutputFirst
)

var formatNames = map[Format]string{
	InputFirst:  "InputFirst",
	OutputFirst: "OutputFirst",
}

// ParseFormat resolves a row format by name.
func ParseFormat(name string) (Format, error) {
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return InputFirst, fmt.Errorf("%w: format %q", ErrUnknown, name)
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return "Invalid"
}

// MarshalText implements encoding.TextMarshaler.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Dataset is a list of input signals and their expected output signals.
type Dataset struct {
	Inputs  [][]float64
	Outputs [][]float64
}

// Len returns the number of samples.
func (d Dataset) Len() int {
	return len(d.Inputs)
}

// Sample returns the input and output signals at index i.
func (d Dataset) Sample(i int) (input, output []float64) {
	return d.Inputs[i], d.Outputs[i]
}

func (d *Dataset) append(input, output []float64) {
	d.Inputs = append(d.Inputs, input)
	d.Outputs = append(d.Outputs, output)
}

// Options describes the layout of a delimited data file.
type Options struct {
	InputLength   int             // Number of values in an input signal
	OutputLength  int             // Number of values in an output signal (number of classes when labelled)
	Format        Format          // Position of the input signal in a row
	Tokenizer     string          // Set of separator characters, "," when empty
	Labelled      bool            // Rows end (InputFirst) or start (OutputFirst) with a class label
	TrainingRatio float64         // Probability for a row to join the training set, DefaultTrainingRatio when zero
	Preprocess    []Preprocessing // Input normalizations, applied in order
}

func (o Options) validate() error {
	switch {
	case o.InputLength <= 0:
		return fmt.Errorf("%w: input length must be positive, got %d", ErrInvalidOptions, o.InputLength)
	case o.OutputLength <= 0:
		return fmt.Errorf("%w: output length must be positive, got %d", ErrInvalidOptions, o.OutputLength)
	case o.TrainingRatio < 0 || o.TrainingRatio > 1:
		return fmt.Errorf("%w: training ratio must be in [0, 1], got %g", ErrInvalidOptions, o.TrainingRatio)
	}
	return nil
}

// Data is a dataset split into training and evaluating samples.
type Data struct {
	training     Dataset
	evaluating   Dataset
	inputLength  int
	outputLength int
	labels       []string
	means        []float64
	sigmas       []float64

	normalization Normalization
}

// Load parses delimited rows from r. The rng decides the training /
// evaluating split of every row.
func Load(r io.Reader, opts Options, rng *rand.Rand) (*Data, error) {
	if opts.Tokenizer == "" {
		opts.Tokenizer = ","
	}
	if opts.TrainingRatio == 0 {
		opts.TrainingRatio = DefaultTrainingRatio
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	d := &Data{
		inputLength:  opts.InputLength,
		outputLength: opts.OutputLength,
	}
	p := parser{opts: opts, data: d}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		input, output, err := p.parse(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if rng.Float64() < opts.TrainingRatio {
			d.training.append(input, output)
		} else {
			d.evaluating.append(input, output)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	for _, pre := range opts.Preprocess {
		if err := d.apply(pre); err != nil {
			return nil, err
		}
	}

	log.Debug().
		Int("training", d.training.Len()).
		Int("evaluating", d.evaluating.Len()).
		Int("labels", len(d.labels)).
		Msg("dataset loaded")

	return d, nil
}

// LoadFile parses the delimited data file at path.
func LoadFile(path string, opts Options, rng *rand.Rand) (*Data, error) {
	//nolint:gosec // G304: repository path comes from the data descriptor
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	d, err := Load(f, opts, rng)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// New builds a Data from already parsed datasets.
func New(training, evaluating Dataset, inputLength, outputLength int) (*Data, error) {
	for _, set := range []Dataset{training, evaluating} {
		if len(set.Inputs) != len(set.Outputs) {
			return nil, fmt.Errorf("%w: %d inputs for %d outputs", ErrInvalidOptions, len(set.Inputs), len(set.Outputs))
		}
		for i := range set.Inputs {
			if len(set.Inputs[i]) != inputLength || len(set.Outputs[i]) != outputLength {
				return nil, fmt.Errorf("%w: sample %d has shape %d->%d, want %d->%d", ErrInvalidOptions,
					i, len(set.Inputs[i]), len(set.Outputs[i]), inputLength, outputLength)
			}
		}
	}
	return &Data{
		training:     training,
		evaluating:   evaluating,
		inputLength:  inputLength,
		outputLength: outputLength,
	}, nil
}

// Training returns the training samples.
func (d *Data) Training() Dataset { return d.training }

// Evaluating returns the samples held out to measure the network error.
func (d *Data) Evaluating() Dataset { return d.evaluating }

// InputLength returns the length of input signals.
func (d *Data) InputLength() int { return d.inputLength }

// OutputLength returns the length of output signals.
func (d *Data) OutputLength() int { return d.outputLength }

// Labels returns the class names in one-hot index order. It is empty for
// unlabelled data.
func (d *Data) Labels() []string { return d.labels }

// Means returns the per-input means of the Gaussian normalization, or nil.
func (d *Data) Means() []float64 { return d.means }

// Sigmas returns the per-input variances of the Gaussian normalization, or nil.
func (d *Data) Sigmas() []float64 { return d.sigmas }

// Normalization returns the scalings applied to the inputs, in order.
func (d *Data) Normalization() Normalization { return d.normalization }

// parser turns rows into signals and tracks label indices.
type parser struct {
	opts Options
	data *Data
}

func (p *parser) parse(text string) (input, output []float64, err error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(p.opts.Tokenizer, r)
	})

	in, out := p.opts.InputLength, p.opts.OutputLength
	want := in + out
	if p.opts.Labelled {
		want = in + 1
	}
	if len(fields) != want {
		return nil, nil, fmt.Errorf("%w: got %d fields, want %d", ErrMalformedRow, len(fields), want)
	}

	var inputFields, outputFields []string
	switch p.opts.Format {
	case OutputFirst:
		outputFields, inputFields = fields[:want-in], fields[want-in:want]
	default:
		inputFields, outputFields = fields[:in], fields[in:want]
	}

	input, err = parseSignal(inputFields)
	if err != nil {
		return nil, nil, err
	}

	if p.opts.Labelled {
		output, err = p.oneHot(strings.TrimSpace(outputFields[0]))
	} else {
		output, err = parseSignal(outputFields)
	}
	if err != nil {
		return nil, nil, err
	}
	return input, output, nil
}

// oneHot encodes label, registering it on first sight.
func (p *parser) oneHot(label string) ([]float64, error) {
	index := -1
	for i, l := range p.data.labels {
		if l == label {
			index = i
			break
		}
	}
	if index < 0 {
		if len(p.data.labels) == p.opts.OutputLength {
			return nil, fmt.Errorf("%w: %q would be label %d of %d", ErrTooManyLabels,
				label, len(p.data.labels)+1, p.opts.OutputLength)
		}
		p.data.labels = append(p.data.labels, label)
		index = len(p.data.labels) - 1
	}

	signal := make([]float64, p.opts.OutputLength)
	signal[index] = 1
	return signal, nil
}

func parseSignal(fields []string) ([]float64, error) {
	signal := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d: %w", ErrMalformedRow, i, err)
		}
		signal[i] = v
	}
	return signal, nil
}
