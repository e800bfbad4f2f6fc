// Copyright 2025 Brain ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/brain-ml/brain/internal/activation"
	"github.com/brain-ml/brain/internal/config"
	"github.com/brain-ml/brain/internal/cost"
	"github.com/brain-ml/brain/internal/metrics"
	"github.com/brain-ml/brain/internal/nn"
	"github.com/brain-ml/brain/internal/parallel"
)

// Network is a multi-layer perceptron.
type Network = nn.Network

// Layer is a set of neurons fully connected to the same input vector.
type Layer = nn.Layer

// Neuron is a weighted sum of its inputs followed by an activation.
type Neuron = nn.Neuron

// LayerSpec describes the size and optional activation of one layer.
type LayerSpec = nn.LayerSpec

// Option configures a Network at construction.
type Option = nn.Option

// New creates a network with random weights.
//
// Example:
//
//	// 2 inputs, a hidden layer of 3 TanH neurons and 1 output
//	net, err := nn.New(2, []nn.LayerSpec{
//	    {Neurons: 3, Activation: nn.TanH},
//	    {Neurons: 1},
//	}, nn.WithSeed(42))
func New(inputs int, layers []LayerSpec, opts ...Option) (*Network, error) {
	return nn.New(inputs, layers, opts...)
}

// NewFromDescriptor creates a network from a network descriptor.
//
// Example:
//
//	d, err := config.LoadNetwork("network.xml")
//	net, err := nn.NewFromDescriptor(d)
func NewFromDescriptor(d config.NetworkDescriptor, opts ...Option) (*Network, error) {
	return nn.NewFromDescriptor(d, opts...)
}

// WithSeed seeds weight initialization, dropout and mini-batch sampling.
func WithSeed(seed uint64) Option {
	return nn.WithSeed(seed)
}

// WithParallel sets how wide layers are spread across goroutines.
func WithParallel(cfg parallel.Config) Option {
	return nn.WithParallel(cfg)
}

// WithObserver reports training and prediction activity.
func WithObserver(o *metrics.Observer) Option {
	return nn.WithObserver(o)
}

// Training

// Report summarizes a training run.
type Report = nn.Report

// TrainOption configures a training run.
type TrainOption = nn.TrainOption

// WithProgress calls fn after every training iteration.
func WithProgress(fn func(iteration int, err float64)) TrainOption {
	return nn.WithProgress(fn)
}

// Results

// Result is the success flag of an operation.
type Result = nn.Result

// Result values.
const (
	Failed  = nn.Failed
	Success = nn.Success
)

// ResultOf converts an error into a Result.
func ResultOf(err error) Result {
	return nn.ResultOf(err)
}

// Errors returned by network operations.
var (
	ErrInvalidShape  = nn.ErrInvalidShape
	ErrInputSize     = nn.ErrInputSize
	ErrOutputSize    = nn.ErrOutputSize
	ErrNoSamples     = nn.ErrNoSamples
	ErrShapeMismatch = nn.ErrShapeMismatch
)

// Activations

// Activation is an activation function type.
type Activation = activation.Type

// Activation functions.
const (
	InvalidActivation = activation.Invalid
	Identity          = activation.Identity
	Sigmoid           = activation.Sigmoid
	TanH              = activation.TanH
	ArcTan            = activation.ArcTan
	SoftPlus          = activation.SoftPlus
	Sinusoid          = activation.Sinusoid
	ReLU              = activation.ReLU
)

// Costs

// Cost is a cost function type.
type Cost = cost.Type

// Cost functions.
const (
	InvalidCost  = cost.Invalid
	Quadratic    = cost.Quadratic
	CrossEntropy = cost.CrossEntropy
)
