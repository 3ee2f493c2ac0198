package ml

import (
	"fmt"
	"strings"
)

const filterBias = 0.001

type LayerOption func(*layerConfig)

type layerConfig struct {
	init      Initializer
	optimizer Optimizer
	workers   int
}

// WithInitializer sets the weight initializer (default He).
func WithInitializer(init Initializer) LayerOption {
	return func(lc *layerConfig) {
		lc.init = init
	}
}

// WithOptimizer sets the update rule (default plain gradient descent).
func WithOptimizer(opt Optimizer) LayerOption {
	return func(lc *layerConfig) {
		lc.optimizer = opt
	}
}

// WithWorkers bounds the goroutines used for per-filter updates (default DefaultWorkers()).
func WithWorkers(n int) LayerOption {
	return func(lc *layerConfig) {
		lc.workers = n
	}
}

// filterBank is the learnable state shared by the convolution-family layers.
type filterBank struct {
	filters   []*Filter
	stride    int
	optimizer Optimizer
	workers   int
}

func newFilterBank(count, rows, cols, depth, stride int, opts []LayerOption) filterBank {
	if stride < 1 {
		stride = 1
	}
	cfg := layerConfig{
		init:      HeInitialization{},
		optimizer: PlainOptimizer{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers <= 0 {
		cfg.workers = DefaultWorkers()
	}

	filters := make([]*Filter, count)
	for i := range filters {
		filter := NewZeroFilter(depth, rows, cols)
		filter.Bias = filterBias
		for c, ch := range filter.Channels {
			filter.Channels[c] = cfg.init.Initialize(ch)
		}
		filters[i] = filter
	}

	return filterBank{
		filters:   filters,
		stride:    stride,
		optimizer: cfg.optimizer,
		workers:   cfg.workers,
	}
}

func (b *filterBank) Filters() []*Filter { return b.filters }

func (b *filterBank) Stride() int { return b.stride }

func (b *filterBank) Optimizer() Optimizer { return b.optimizer }

// update runs one optimizer round. Gradients are computed and applied per filter in
// parallel; every filter and its optimizer slot is touched by exactly one goroutine.
func (b *filterBank) update(learningRate float64, gradient func(f int) *Filter) {
	b.optimizer.Prepare(b.filters)
	ForEach(len(b.filters), b.workers, func(f int) {
		b.optimizer.Step(f, b.filters[f], gradient(f), learningRate)
	})
	b.optimizer.Advance()
}

// transposedBank regroups the bank by input channel: filter c of the result holds
// channel c of every original filter, optionally rotated, with no bias.
func (b *filterBank) transposedBank(flip bool) []*Filter {
	depth := b.filters[0].Depth()
	source := make([]*Filter, len(b.filters))
	for f, filter := range b.filters {
		if flip {
			source[f] = filter.Flip().WithoutBias()
		} else {
			source[f] = filter.WithoutBias()
		}
	}

	out := make([]*Filter, depth)
	for c := range depth {
		channels := make([]*Matrix, len(source))
		for f, filter := range source {
			channels[f] = filter.Channels[c]
		}
		out[c] = NewFilter(0, channels...)
	}
	return out
}

func (b *filterBank) WeightData() string {
	var sb strings.Builder
	for _, filter := range b.filters {
		sb.WriteString(filter.Values())
	}
	return sb.String()
}

func (b *filterBank) LoadWeights(data string) (string, error) {
	r := newTokenReader(data, fmt.Sprintf("filter bank of %d", len(b.filters)))
	loaded := make([]*Filter, len(b.filters))
	for i, filter := range b.filters {
		next := NewZeroFilter(filter.Depth(), filter.Rows(), filter.Cols())
		for _, ch := range next.Channels {
			if err := r.fill(ch); err != nil {
				return data, err
			}
		}
		bias, err := r.next()
		if err != nil {
			return data, err
		}
		next.Bias = bias
		loaded[i] = next
	}

	b.filters = loaded
	return r.rest(), nil
}

// reconcileError matches the channel count of an incoming error to the bank size
// and checks its spatial extent.
func (b *filterBank) reconcileError(op string, err *Tensor, rows, cols int) *Tensor {
	if err.Depth() != len(b.filters) {
		err = err.ReconcileChannels(len(b.filters))
	}
	if err.Rows() != rows || err.Cols() != cols {
		shapePanic(op, err.String(), dims(rows, cols))
	}
	return err
}
