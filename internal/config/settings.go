package config

import (
	"fmt"

	"github.com/brain-ml/brain/internal/activation"
	"github.com/brain-ml/brain/internal/cost"
	"github.com/brain-ml/brain/internal/optim"
)

// Settings configures how a network computes and learns.
type Settings struct {
	Activation   activation.Type       // Activation of every neuron without a layer override
	Cost         cost.Type             // Network cost function
	Learning     optim.Type            // Weight update algorithm
	Iterations   int                   // Maximum number of training iterations
	TargetError  float64               // Training stops once the error is at or below this value
	MiniBatch    int                   // Samples accumulated before each weight update
	Dropout      bool                  // Randomly silence hidden neurons while training
	DropoutRatio float64               // Probability of dropping a hidden neuron
	BackProp     optim.BackPropConfig  // Back-propagation parameters
	Resilient    optim.ResilientConfig // Rprop parameters
	Seed         uint64                // Random seed, 0 picks one at random
}

// Defaults returns the settings used when a descriptor omits a field.
func Defaults() Settings {
	return Settings{
		Activation:   activation.Sigmoid,
		Cost:         cost.Quadratic,
		Learning:     optim.BackPropagation,
		Iterations:   1000,
		TargetError:  0.001,
		MiniBatch:    32,
		Dropout:      false,
		DropoutRatio: 0.5,
		BackProp:     optim.DefaultBackProp(),
		Resilient:    optim.DefaultResilient(),
	}
}

// Validate checks that every field holds a usable value.
func (s Settings) Validate() error {
	switch {
	case !s.Activation.Valid():
		return fmt.Errorf("%w: activation function %s", ErrInvalidSettings, s.Activation)
	case !s.Cost.Valid():
		return fmt.Errorf("%w: cost function %s", ErrInvalidSettings, s.Cost)
	case !s.Learning.Valid():
		return fmt.Errorf("%w: learning type %s", ErrInvalidSettings, s.Learning)
	case s.Iterations <= 0:
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidSettings, s.Iterations)
	case s.TargetError < 0:
		return fmt.Errorf("%w: target error must not be negative, got %g", ErrInvalidSettings, s.TargetError)
	case s.MiniBatch <= 0:
		return fmt.Errorf("%w: mini-batch must be positive, got %d", ErrInvalidSettings, s.MiniBatch)
	case s.DropoutRatio < 0 || s.DropoutRatio >= 1:
		return fmt.Errorf("%w: dropout ratio must be in [0, 1), got %g", ErrInvalidSettings, s.DropoutRatio)
	case s.BackProp.LearningRate <= 0:
		return fmt.Errorf("%w: learning rate must be positive, got %g", ErrInvalidSettings, s.BackProp.LearningRate)
	case s.Resilient.DeltaMin > s.Resilient.DeltaMax:
		return fmt.Errorf("%w: resilient delta min %g exceeds max %g",
			ErrInvalidSettings, s.Resilient.DeltaMin, s.Resilient.DeltaMax)
	}
	return nil
}

// rawSettings mirrors the settings document in both XML and YAML:
//
//	<settings cost-function="CrossEntropy" activation-function="Sigmoid">
//	  <training iterations="1000" error="0.001">
//	    <backprop learning-rate="1.12" momentum="0.0"/>
//	  </training>
//	</settings>
type rawSettings struct {
	XMLName      struct{}        `xml:"settings" yaml:"-"`
	Cost         cost.Type       `xml:"cost-function,attr" yaml:"cost-function"`
	Activation   activation.Type `xml:"activation-function,attr" yaml:"activation-function"`
	Dropout      bool            `xml:"dropout,attr" yaml:"dropout"`
	DropoutRatio float64         `xml:"dropout-ratio,attr" yaml:"dropout-ratio"`
	MiniBatch    int             `xml:"minibatch,attr" yaml:"minibatch"`
	Seed         uint64          `xml:"seed,attr" yaml:"seed"`
	Training     rawTraining     `xml:"training" yaml:"training"`
}

type rawTraining struct {
	Iterations int          `xml:"iterations,attr" yaml:"iterations"`
	Error      float64      `xml:"error,attr" yaml:"error"`
	BackProp   *rawBackProp `xml:"backprop" yaml:"backprop,omitempty"`
	Rprop      *rawRprop    `xml:"rprop" yaml:"rprop,omitempty"`
}

type rawBackProp struct {
	LearningRate float64 `xml:"learning-rate,attr" yaml:"learning-rate"`
	Momentum     float64 `xml:"momentum,attr" yaml:"momentum"`
}

type rawRprop struct {
	Eta struct {
		Positive float64 `xml:"positive,attr" yaml:"positive"`
		Negative float64 `xml:"negative,attr" yaml:"negative"`
	} `xml:"resilient-eta" yaml:"resilient-eta"`
	Delta struct {
		Max     float64 `xml:"max,attr" yaml:"max"`
		Min     float64 `xml:"min,attr" yaml:"min"`
		Initial float64 `xml:"initial,attr,omitempty" yaml:"initial,omitempty"`
	} `xml:"resilient-delta" yaml:"resilient-delta"`
}

func newRawSettings(s Settings) rawSettings {
	raw := rawSettings{
		Cost:         s.Cost,
		Activation:   s.Activation,
		Dropout:      s.Dropout,
		DropoutRatio: s.DropoutRatio,
		MiniBatch:    s.MiniBatch,
		Seed:         s.Seed,
		Training: rawTraining{
			Iterations: s.Iterations,
			Error:      s.TargetError,
		},
	}
	if s.Learning == optim.Resilient {
		rp := &rawRprop{}
		rp.Eta.Positive = s.Resilient.EtaPositive
		rp.Eta.Negative = s.Resilient.EtaNegative
		rp.Delta.Max = s.Resilient.DeltaMax
		rp.Delta.Min = s.Resilient.DeltaMin
		rp.Delta.Initial = s.Resilient.InitialDelta
		raw.Training.Rprop = rp
	} else {
		raw.Training.BackProp = &rawBackProp{
			LearningRate: s.BackProp.LearningRate,
			Momentum:     s.BackProp.Momentum,
		}
	}
	return raw
}

func (raw rawSettings) settings() Settings {
	s := Defaults()
	s.Cost = raw.Cost
	s.Activation = raw.Activation
	s.Dropout = raw.Dropout
	s.DropoutRatio = raw.DropoutRatio
	s.MiniBatch = raw.MiniBatch
	s.Seed = raw.Seed
	s.Iterations = raw.Training.Iterations
	s.TargetError = raw.Training.Error

	// A backprop block wins over an rprop block.
	switch {
	case raw.Training.BackProp != nil:
		s.Learning = optim.BackPropagation
		s.BackProp = optim.BackPropConfig{
			LearningRate: raw.Training.BackProp.LearningRate,
			Momentum:     raw.Training.BackProp.Momentum,
		}
		if s.BackProp.LearningRate == 0 {
			s.BackProp.LearningRate = optim.DefaultBackProp().LearningRate
		}
	case raw.Training.Rprop != nil:
		rp := raw.Training.Rprop
		s.Learning = optim.Resilient
		s.Resilient = optim.NewResilient(optim.ResilientConfig{
			EtaPositive:  rp.Eta.Positive,
			EtaNegative:  rp.Eta.Negative,
			DeltaMin:     rp.Delta.Min,
			DeltaMax:     rp.Delta.Max,
			InitialDelta: rp.Delta.Initial,
		}).Config()
	}
	return s
}

// LoadSettings reads a settings descriptor. Omitted fields keep their
// Defaults value. The result is validated.
func LoadSettings(path string) (Settings, error) {
	raw := newRawSettings(Defaults())
	raw.Training.BackProp = nil

	if err := decodeFile(path, &raw); err != nil {
		return Settings{}, err
	}

	s := raw.settings()
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// SaveSettings writes s to path in the format matching its extension.
func SaveSettings(path string, s Settings) error {
	return encodeFile(path, newRawSettings(s))
}
