package ml

import (
	"fmt"
)

// Filter is one learnable kernel: a channel matrix per input depth slice plus a bias.
type Filter struct {
	Channels []*Matrix
	Bias     float64
}

// NewFilter panics unless all channels share one shape.
func NewFilter(bias float64, channels ...*Matrix) *Filter {
	for i := 1; i < len(channels); i++ {
		channels[0].mustMatch("NewFilter", channels[i])
	}
	return &Filter{Channels: channels, Bias: bias}
}

// NewZeroFilter allocates depth zero-filled rows x cols channels.
func NewZeroFilter(depth, rows, cols int) *Filter {
	f := &Filter{Channels: make([]*Matrix, depth)}
	for i := range f.Channels {
		f.Channels[i] = NewMatrix(rows, cols)
	}
	return f
}

func (f *Filter) Depth() int { return len(f.Channels) }

func (f *Filter) Rows() int { return f.Channels[0].rows }

func (f *Filter) Cols() int { return f.Channels[0].cols }

func (f *Filter) String() string {
	return fmt.Sprintf("Filter(%dx[%d, %d], bias=%g)", f.Depth(), f.Rows(), f.Cols(), f.Bias)
}

func (f *Filter) Clone() *Filter {
	out := &Filter{Channels: make([]*Matrix, len(f.Channels)), Bias: f.Bias}
	for i, ch := range f.Channels {
		out.Channels[i] = ch.Clone()
	}
	return out
}

// Flip rotates every channel by 180 degrees and keeps the bias.
func (f *Filter) Flip() *Filter {
	out := &Filter{Channels: make([]*Matrix, len(f.Channels)), Bias: f.Bias}
	for i, ch := range f.Channels {
		out.Channels[i] = ch.Flip()
	}
	return out
}

// WithoutBias copies the channels and drops the bias.
func (f *Filter) WithoutBias() *Filter {
	out := f.Clone()
	out.Bias = 0
	return out
}

func (f *Filter) AsTensor() *Tensor {
	return &Tensor{Channels: f.Channels}
}

// Values renders the channels then the bias, whitespace-terminated.
func (f *Filter) Values() string {
	s := ""
	for _, ch := range f.Channels {
		s += ch.Values()
	}
	return s + formatFloat(f.Bias) + " "
}

// CloneBank deep-copies a filter bank.
func CloneBank(bank []*Filter) []*Filter {
	out := make([]*Filter, len(bank))
	for i, f := range bank {
		out[i] = f.Clone()
	}
	return out
}
