// Copyright 2025 Brain ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package data loads delimited datasets for training.
//
//	samples, err := data.LoadFile("iris.csv", data.Options{
//	    InputLength:  4,
//	    OutputLength: 3,
//	    Labelled:     true,
//	    Preprocess:   []data.Preprocessing{data.GaussianNormalization},
//	}, rand.New(rand.NewPCG(1, 2)))
package data

import (
	"io"
	"math/rand/v2"

	"github.com/brain-ml/brain/internal/data"
)

// Data is a dataset split into training and evaluating samples.
type Data = data.Data

// Dataset is a list of input signals and expected output signals.
type Dataset = data.Dataset

// Options describes the layout of a data file.
type Options = data.Options

// Format tells where the input signal sits in a row.
type Format = data.Format

// Row formats.
const (
	InputFirst  = data.InputFirst
	OutputFirst = data.OutputFirst
)

// Preprocessing is an input normalization.
type Preprocessing = data.Preprocessing

// Normalizations.
const (
	GaussianNormalization = data.GaussianNormalization
	MinMaxNormalization   = data.MinMaxNormalization
)

// Scaling is one input normalization step.
type Scaling = data.Scaling

// Normalization is the ordered list of scalings applied to a dataset.
// Networks record it while training and apply it in PredictRaw.
type Normalization = data.Normalization

// Load parses delimited rows from r.
func Load(r io.Reader, opts Options, rng *rand.Rand) (*Data, error) {
	return data.Load(r, opts, rng)
}

// LoadFile parses the delimited file at path.
func LoadFile(path string, opts Options, rng *rand.Rand) (*Data, error) {
	return data.LoadFile(path, opts, rng)
}
