package ml

import (
	"math"
)

const (
	OptPlain OptimizerType = "plain"
	OptAdam  OptimizerType = "adam"
)

// Default settings generally recommended for Adam
var DefaultAdamConfig = AdamConfig{
	Beta1:   0.9,
	Beta2:   0.999,
	Epsilon: 1e-8,
	Persist: true,
}

type OptimizerType string

type AdamConfig struct {
	Beta1   float64
	Beta2   float64
	Epsilon float64

	// Persist keeps the moments and the time step across update rounds.
	// When false every round starts from fresh moments at t = 0.
	Persist bool
}

// Optimizer updates a bank of filters from per-filter gradients. A gradient filter
// carries the weight gradient in its channels and the bias gradient in its Bias.
//
// One update round is Prepare, then Step for every filter (possibly concurrently,
// each index at most once), then Advance.
type Optimizer interface {
	// Prepare sizes the per-filter state for bank before any Step runs.
	Prepare(bank []*Filter)
	// Step updates filter i in place. It must not touch state belonging to other indices.
	Step(i int, filter, grad *Filter, learningRate float64)
	// Advance closes the round.
	Advance()
}

// FilterState holds the Adam moments of one filter, shaped like its channels.
type FilterState struct {
	m, v []*Matrix
}

type AdamOptimizer struct {
	cfg         AdamConfig
	filterState []FilterState
	timeStep    int // 't' in the Adam paper, tracks completed rounds
}

// PlainOptimizer is gradient descent: filter -= grad * lr.
type PlainOptimizer struct{}

func NewOptimizer(kind OptimizerType, cfg AdamConfig) Optimizer {
	switch kind {
	case OptAdam:
		return NewAdamOptimizer(cfg)
	default:
		return PlainOptimizer{}
	}
}

// NewAdamOptimizer fills zero hyperparameters from DefaultAdamConfig.
func NewAdamOptimizer(cfg AdamConfig) *AdamOptimizer {
	if cfg.Beta1 == 0 {
		cfg.Beta1 = DefaultAdamConfig.Beta1
	}
	if cfg.Beta2 == 0 {
		cfg.Beta2 = DefaultAdamConfig.Beta2
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = DefaultAdamConfig.Epsilon
	}
	return &AdamOptimizer{cfg: cfg}
}

// ------ PLAIN OPTIMIZER METHODS ------ //
func (PlainOptimizer) Prepare([]*Filter) {}

func (PlainOptimizer) Step(_ int, filter, grad *Filter, learningRate float64) {
	for c, ch := range filter.Channels {
		ch.AddScaledInPlace(-learningRate, grad.Channels[c])
	}
	filter.Bias -= grad.Bias * learningRate
}

func (PlainOptimizer) Advance() {}

// ------ ADAM OPTIMIZER METHODS ------ //
func (opt *AdamOptimizer) Config() AdamConfig { return opt.cfg }

func (opt *AdamOptimizer) TimeStep() int { return opt.timeStep }

// Moments returns the first and second moment matrices of filter i.
func (opt *AdamOptimizer) Moments(i int) (m, v []*Matrix) {
	return opt.filterState[i].m, opt.filterState[i].v
}

func (opt *AdamOptimizer) Prepare(bank []*Filter) {
	if !opt.cfg.Persist {
		opt.filterState = nil
		opt.timeStep = 0
	}

	if len(opt.filterState) != len(bank) {
		states := make([]FilterState, len(bank))
		copy(states, opt.filterState)
		opt.filterState = states
	}

	for i, filter := range bank {
		if !opt.filterState[i].fits(filter) {
			opt.filterState[i] = newFilterState(filter)
		}
	}
}

// Step applies the Adam rule to the channels of filter i and plain descent to its bias.
// The time step is only read here; Advance moves it once all filters are done.
func (opt *AdamOptimizer) Step(i int, filter, grad *Filter, learningRate float64) {
	t := float64(opt.timeStep + 1)

	// correction1 = 1 - beta1^t
	// correction2 = 1 - beta2^t
	correction1 := 1.0 - math.Pow(opt.cfg.Beta1, t)
	correction2 := 1.0 - math.Pow(opt.cfg.Beta2, t)

	beta1 := opt.cfg.Beta1
	beta2 := opt.cfg.Beta2
	eps := opt.cfg.Epsilon

	apply := func(params, grads, m, v []float64) {
		for k := range params {
			g := grads[k]

			// m_t = beta1 * m_{t-1} + (1 - beta1) * g
			m[k] = beta1*m[k] + (1.0-beta1)*g
			// v_t = beta2 * v_{t-1} + (1 - beta2) * g^2
			v[k] = beta2*v[k] + (1.0-beta2)*(g*g)

			mHat := m[k] / correction1
			vHat := v[k] / correction2

			// theta = theta - lr * mHat / (sqrt(vHat) + eps)
			params[k] -= learningRate * mHat / (math.Sqrt(vHat) + eps)
		}
	}

	state := opt.filterState[i]
	for c, ch := range filter.Channels {
		apply(ch.data, grad.Channels[c].data, state.m[c].data, state.v[c].data)
	}
	filter.Bias -= grad.Bias * learningRate
}

func (opt *AdamOptimizer) Advance() {
	if opt.cfg.Persist {
		opt.timeStep++
	}
}

func newFilterState(filter *Filter) FilterState {
	state := FilterState{
		m: make([]*Matrix, filter.Depth()),
		v: make([]*Matrix, filter.Depth()),
	}
	for c, ch := range filter.Channels {
		state.m[c] = NewMatrix(ch.rows, ch.cols)
		state.v[c] = NewMatrix(ch.rows, ch.cols)
	}
	return state
}

func (s FilterState) fits(filter *Filter) bool {
	if len(s.m) != filter.Depth() {
		return false
	}
	for c, ch := range filter.Channels {
		if !s.m[c].SameShape(ch) {
			return false
		}
	}
	return true
}
