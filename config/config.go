// Copyright 2025 Brain ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package config loads network, settings and data descriptors.
//
// Descriptors are XML or YAML files; the format follows the extension.
//
//	<settings cost-function="Quadratic" activation-function="Sigmoid">
//	  <training iterations="1000" error="0.001">
//	    <backprop learning-rate="1.12" momentum="0.0"/>
//	  </training>
//	</settings>
package config

import (
	"github.com/brain-ml/brain/internal/config"
)

// Settings configures how a network computes and learns.
type Settings = config.Settings

// NetworkDescriptor describes the shape of a network.
type NetworkDescriptor = config.NetworkDescriptor

// DataDescriptor describes a delimited dataset file.
type DataDescriptor = config.DataDescriptor

// Errors returned by the loaders.
var (
	ErrUnsupportedFormat = config.ErrUnsupportedFormat
	ErrInvalidSettings   = config.ErrInvalidSettings
	ErrInvalidNetwork    = config.ErrInvalidNetwork
	ErrInvalidData       = config.ErrInvalidData
)

// Defaults returns the default settings.
func Defaults() Settings {
	return config.Defaults()
}

// LoadSettings reads a settings descriptor.
func LoadSettings(path string) (Settings, error) {
	return config.LoadSettings(path)
}

// LoadNetwork reads a network descriptor.
func LoadNetwork(path string) (NetworkDescriptor, error) {
	return config.LoadNetwork(path)
}

// LoadData reads a data descriptor.
//
// Example:
//
//	d, err := config.LoadData("iris.xml")
//	samples, err := d.Load(rand.New(rand.NewPCG(1, 2)))
func LoadData(path string) (DataDescriptor, error) {
	return config.LoadData(path)
}
