// Copyright 2025 Brain ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the learning rules used to train networks.
//
// # Overview
//
// This package contains:
//   - BackProp: mini-batch gradient descent with momentum
//   - Resilient: Rprop, sign-based steps adapted per weight
//   - Optimizer interface for custom learning rules
//
// Networks pick their learning rule from config.Settings.Learning; the
// types here are mainly useful to fill in the BackProp and Resilient
// fields of the settings.
//
//	s := config.Defaults()
//	s.Learning = optim.Resilient
//	s.Resilient = optim.ResilientConfig{EtaPositive: 1.2, EtaNegative: 0.5}
package optim

import (
	"github.com/brain-ml/brain/internal/optim"
)

// Optimizer interface defines the common interface for all learning rules.
type Optimizer = optim.Optimizer

// Param is the trainable state of one neuron.
type Param = optim.Param

// Type is a learning rule type.
type Type = optim.Type

// Learning types.
const (
	Invalid         = optim.Invalid
	BackPropagation = optim.BackPropagation
	Resilient       = optim.Resilient
)

// BackPropConfig contains configuration for back-propagation.
type BackPropConfig = optim.BackPropConfig

// ResilientConfig contains configuration for Rprop.
type ResilientConfig = optim.ResilientConfig

// DefaultBackProp returns learning rate 1.12 without momentum.
func DefaultBackProp() BackPropConfig {
	return optim.DefaultBackProp()
}

// DefaultResilient returns the default Rprop factors and step bounds.
func DefaultResilient() ResilientConfig {
	return optim.DefaultResilient()
}

// New creates the optimizer for t.
//
// Example:
//
//	o := optim.New(optim.Resilient, optim.DefaultBackProp(), optim.DefaultResilient())
func New(t Type, bp BackPropConfig, rp ResilientConfig) Optimizer {
	return optim.New(t, bp, rp)
}
