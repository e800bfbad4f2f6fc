package optim

// ResilientConfig holds configuration for the Rprop learning rule.
type ResilientConfig struct {
	EtaPositive  float64 // Step growth when the gradient keeps its sign (default: 1.2)
	EtaNegative  float64 // Step shrink when the gradient changes sign (default: 0.95)
	DeltaMin     float64 // Lower bound of the step (default: 1e-6)
	DeltaMax     float64 // Upper bound of the step (default: 50)
	InitialDelta float64 // Step used before any gradient is seen (default: 0.1)
}

// DefaultResilient returns the default Rprop configuration.
func DefaultResilient() ResilientConfig {
	return ResilientConfig{
		EtaPositive:  1.2,
		EtaNegative:  0.95,
		DeltaMin:     0.000001,
		DeltaMax:     50.0,
		InitialDelta: 0.1,
	}
}

// ResilientOptimizer implements resilient propagation.
//
// Rprop only looks at the sign of each gradient. Every weight keeps its own
// step size, which grows while the gradient sign is stable and shrinks when
// it flips:
//
//	same sign:     step = min(step * eta+, max); w -= step * sign
//	sign flipped:  step = max(step * eta-, min); no move, sign forgotten
//	otherwise:     w -= step * sign
//
// Since the magnitude of the gradient is ignored, the batch size has no
// effect on the update.
type ResilientOptimizer struct {
	config ResilientConfig
}

// NewResilient creates an Rprop optimizer. Zero fields are replaced by the
// defaults.
func NewResilient(config ResilientConfig) *ResilientOptimizer {
	def := DefaultResilient()
	if config.EtaPositive == 0 {
		config.EtaPositive = def.EtaPositive
	}
	if config.EtaNegative == 0 {
		config.EtaNegative = def.EtaNegative
	}
	if config.DeltaMin == 0 {
		config.DeltaMin = def.DeltaMin
	}
	if config.DeltaMax == 0 {
		config.DeltaMax = def.DeltaMax
	}
	if config.InitialDelta == 0 {
		config.InitialDelta = def.InitialDelta
	}
	return &ResilientOptimizer{config: config}
}

// Init sets every step to the initial delta and forgets the gradient signs.
func (r *ResilientOptimizer) Init(p *Param) {
	for i := range p.Deltas {
		p.Deltas[i] = r.config.InitialDelta
	}
	clear(p.Signs)
}

// Step applies one Rprop update per weight.
func (r *ResilientOptimizer) Step(p *Param, _ int) {
	for i, g := range p.Grads {
		sgn := sign(g)

		switch p.Signs[i] * sgn {
		case 1:
			p.Deltas[i] = min(p.Deltas[i]*r.config.EtaPositive, r.config.DeltaMax)
			p.Values[i] -= p.Deltas[i] * float64(sgn)
		case -1:
			p.Deltas[i] = max(p.Deltas[i]*r.config.EtaNegative, r.config.DeltaMin)
			sgn = 0
		default:
			p.Values[i] -= p.Deltas[i] * float64(sgn)
		}

		p.Signs[i] = sgn
	}
	p.ZeroGrad()
}

// Type returns Resilient.
func (r *ResilientOptimizer) Type() Type {
	return Resilient
}

// Config returns the effective configuration.
func (r *ResilientOptimizer) Config() ResilientConfig {
	return r.config
}

func sign(v float64) int8 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
