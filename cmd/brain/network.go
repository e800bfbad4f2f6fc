package main

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/brain-ml/brain/internal/config"
	"github.com/brain-ml/brain/internal/nn"
)

// loadNetwork builds the network of networkPath, configures it from
// settingsPath (defaults when empty) and loads weightsPath when set.
func loadNetwork(networkPath, settingsPath, weightsPath string, seed uint64, opts ...nn.Option) (*nn.Network, config.Settings, error) {
	settings := config.Defaults()
	if settingsPath != "" {
		var err error
		if settings, err = config.LoadSettings(settingsPath); err != nil {
			return nil, config.Settings{}, err
		}
	}
	if seed != 0 {
		settings.Seed = seed
	}

	descriptor, err := config.LoadNetwork(networkPath)
	if err != nil {
		return nil, config.Settings{}, err
	}

	if settings.Seed != 0 {
		opts = append(opts, nn.WithSeed(settings.Seed))
	}
	net, err := nn.NewFromDescriptor(descriptor, opts...)
	if err != nil {
		return nil, config.Settings{}, err
	}
	if err := net.Configure(settings); err != nil {
		return nil, config.Settings{}, err
	}

	if weightsPath != "" {
		if err := net.Load(weightsPath); err != nil {
			return nil, config.Settings{}, fmt.Errorf("failed to load weights: %w", err)
		}
	}
	return net, settings, nil
}

// newRand returns a source seeded with seed, or a random one for 0.
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, 0))
}

// parseSignal parses a comma or space separated list of numbers.
func parseSignal(text string) ([]float64, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty input signal")
	}
	signal := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("input value %d: %w", i, err)
		}
		signal[i] = v
	}
	return signal, nil
}

func formatSignal(signal []float64) string {
	parts := make([]string, len(signal))
	for i, v := range signal {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
