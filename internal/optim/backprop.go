package optim

// BackPropConfig holds configuration for the back-propagation learning rule.
type BackPropConfig struct {
	LearningRate float64 // Learning rate (default: 1.12)
	Momentum     float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// DefaultBackProp returns the default back-propagation configuration.
func DefaultBackProp() BackPropConfig {
	return BackPropConfig{
		LearningRate: 1.12,
		Momentum:     0.0,
	}
}

// BackProp implements mini-batch gradient descent with momentum.
//
// Update rule, with grad summed over the batch:
//
//	delta = (lr / batch) * grad + momentum * previous_delta
//	value = value - delta
//
// Momentum keeps part of the previous update, which accelerates descent
// along consistent directions and dampens oscillations.
type BackProp struct {
	lr       float64
	momentum float64
}

// NewBackProp creates a back-propagation optimizer. A zero learning rate is
// replaced by the default.
func NewBackProp(config BackPropConfig) *BackProp {
	if config.LearningRate == 0 {
		config.LearningRate = DefaultBackProp().LearningRate
	}
	return &BackProp{
		lr:       config.LearningRate,
		momentum: config.Momentum,
	}
}

// Init clears the momentum buffer.
func (b *BackProp) Init(p *Param) {
	clear(p.Deltas)
	clear(p.Signs)
}

// Step applies the averaged gradient.
func (b *BackProp) Step(p *Param, batch int) {
	if batch < 1 {
		batch = 1
	}
	rate := b.lr / float64(batch)

	for i, g := range p.Grads {
		delta := rate*g + b.momentum*p.Deltas[i]
		p.Values[i] -= delta
		p.Deltas[i] = delta
	}
	p.ZeroGrad()
}

// Type returns BackPropagation.
func (b *BackProp) Type() Type {
	return BackPropagation
}

// LearningRate returns the configured learning rate.
func (b *BackProp) LearningRate() float64 {
	return b.lr
}
