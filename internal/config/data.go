package config

import (
	"fmt"
	"math/rand/v2"
	"path/filepath"

	"github.com/brain-ml/brain/internal/data"
)

// Preprocess names one input normalization.
type Preprocess struct {
	Type data.Preprocessing `xml:"type,attr" yaml:"type"`
}

// DataDescriptor describes a delimited dataset file:
//
//	<data repository="iris.csv" input-length="4" output-length="3"
//	      format="InputFirst" parser="csv" tokenizer="," labels="true">
//	  <preprocess type="GaussianNormalization"/>
//	</data>
type DataDescriptor struct {
	XMLName       struct{}     `xml:"data" yaml:"-"`
	Repository    string       `xml:"repository,attr" yaml:"repository"`
	InputLength   int          `xml:"input-length,attr" yaml:"input-length"`
	OutputLength  int          `xml:"output-length,attr" yaml:"output-length"`
	Format        data.Format  `xml:"format,attr" yaml:"format"`
	Parser        string       `xml:"parser,attr" yaml:"parser"`
	Tokenizer     string       `xml:"tokenizer,attr" yaml:"tokenizer"`
	Labelled      bool         `xml:"labels,attr" yaml:"labels"`
	TrainingRatio float64      `xml:"training-ratio,attr,omitempty" yaml:"training-ratio,omitempty"`
	Preprocess    []Preprocess `xml:"preprocess" yaml:"preprocess,omitempty"`
}

// DefaultData returns the descriptor fields used when a file omits them.
func DefaultData() DataDescriptor {
	return DataDescriptor{
		InputLength:   1,
		OutputLength:  1,
		Format:        data.InputFirst,
		Parser:        "csv",
		Tokenizer:     ",",
		TrainingRatio: data.DefaultTrainingRatio,
	}
}

// Validate checks that the descriptor can be loaded.
func (d DataDescriptor) Validate() error {
	switch {
	case d.Repository == "":
		return fmt.Errorf("%w: no repository", ErrInvalidData)
	case d.Parser != "csv":
		return fmt.Errorf("%w: unsupported parser %q", ErrInvalidData, d.Parser)
	case d.InputLength <= 0:
		return fmt.Errorf("%w: input length must be positive, got %d", ErrInvalidData, d.InputLength)
	case d.OutputLength <= 0:
		return fmt.Errorf("%w: output length must be positive, got %d", ErrInvalidData, d.OutputLength)
	case d.Tokenizer == "":
		return fmt.Errorf("%w: empty tokenizer", ErrInvalidData)
	case d.TrainingRatio < 0 || d.TrainingRatio > 1:
		return fmt.Errorf("%w: training ratio must be in [0, 1], got %g", ErrInvalidData, d.TrainingRatio)
	}
	return nil
}

// Options converts the descriptor into data loading options.
func (d DataDescriptor) Options() data.Options {
	opts := data.Options{
		InputLength:   d.InputLength,
		OutputLength:  d.OutputLength,
		Format:        d.Format,
		Tokenizer:     d.Tokenizer,
		Labelled:      d.Labelled,
		TrainingRatio: d.TrainingRatio,
	}
	for _, p := range d.Preprocess {
		opts.Preprocess = append(opts.Preprocess, p.Type)
	}
	return opts
}

// Load reads the dataset the descriptor points to.
func (d DataDescriptor) Load(rng *rand.Rand) (*data.Data, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return data.LoadFile(d.Repository, d.Options(), rng)
}

// LoadData reads and validates a data descriptor. A relative repository is
// resolved against the directory holding the descriptor.
func LoadData(path string) (DataDescriptor, error) {
	d := DefaultData()
	if err := decodeFile(path, &d); err != nil {
		return DataDescriptor{}, err
	}
	if err := d.Validate(); err != nil {
		return DataDescriptor{}, fmt.Errorf("%s: %w", path, err)
	}
	if !filepath.IsAbs(d.Repository) {
		d.Repository = filepath.Join(filepath.Dir(path), d.Repository)
	}
	return d, nil
}

// SaveData writes d to path in the format matching its extension.
func SaveData(path string, d DataDescriptor) error {
	return encodeFile(path, d)
}
