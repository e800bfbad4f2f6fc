// Copyright 2025 Brain ML. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides fully connected feed-forward neural networks.
//
// # Overview
//
// This package contains:
//   - Network: a stack of fully connected layers (multi-layer perceptron)
//   - Layer and Neuron: read-only views of the network internals
//   - Activations: Identity, Sigmoid, TanH, ArcTan, SoftPlus, Sinusoid, ReLU
//   - Cost functions: Quadratic, CrossEntropy
//   - Persistence: XML and binary weight files
//
// # Basic Usage
//
//	import (
//	    "github.com/brain-ml/brain/config"
//	    "github.com/brain-ml/brain/data"
//	    "github.com/brain-ml/brain/nn"
//	)
//
//	func main() {
//	    net, err := nn.New(2, []nn.LayerSpec{{Neurons: 3}, {Neurons: 1}})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    settings, err := config.LoadSettings("settings.xml")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := net.Configure(settings); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    descriptor, err := config.LoadData("data.xml")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    samples, err := descriptor.Load(rng)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    report, err := net.Train(ctx, samples)
//	    output, err := net.Predict([]float64{1, 0})
//	}
//
// # Training
//
// Train runs mini-batch iterations until the error on the evaluating set
// reaches the target error or the iteration budget is spent:
//
//	report, err := net.Train(ctx, samples, nn.WithProgress(func(i int, e float64) {
//	    fmt.Printf("iteration %d: %.6f\n", i, e)
//	}))
//
// Learning rules are chosen through config.Settings.Learning: BackPropagation
// (learning rate and momentum) or Resilient (Rprop).
//
// # Persistence
//
// Save and Load pick the format from the file extension:
//
//	net.Save("weights.xml")   // <network><layer><neuron bias=".."><weight>..</weight>...
//	net.Save("weights.brain") // binary weight file with a JSON header
//
// Loading requires a network of identical shape. Both formats also carry
// the activation of every layer and the input normalization of the training
// data, so a loaded network predicts on raw signals with PredictRaw:
//
//	output, err := net.PredictRaw([]float64{12.5, 310})
package nn
