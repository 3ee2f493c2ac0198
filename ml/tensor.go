package ml

import (
	"fmt"
)

// Tensor is one sample travelling through the network: an ordered list of channel matrices.
type Tensor struct {
	Channels []*Matrix
}

func NewTensor(channels ...*Matrix) *Tensor {
	return &Tensor{Channels: channels}
}

// NewZeroTensor allocates depth zero-filled rows x cols channels.
func NewZeroTensor(depth, rows, cols int) *Tensor {
	t := &Tensor{Channels: make([]*Matrix, depth)}
	for i := range t.Channels {
		t.Channels[i] = NewMatrix(rows, cols)
	}
	return t
}

func (t *Tensor) Depth() int { return len(t.Channels) }

func (t *Tensor) Channel(i int) *Matrix { return t.Channels[i] }

// Rows and Cols report the spatial size of the first channel.
func (t *Tensor) Rows() int {
	if len(t.Channels) == 0 {
		return 0
	}
	return t.Channels[0].rows
}

func (t *Tensor) Cols() int {
	if len(t.Channels) == 0 {
		return 0
	}
	return t.Channels[0].cols
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%dx[%d, %d])", t.Depth(), t.Rows(), t.Cols())
}

func (t *Tensor) mustMatch(op string, b *Tensor) {
	if len(t.Channels) != len(b.Channels) {
		shapePanic(op, t.String(), b.String())
	}
}

// Flatten concatenates the channels row-major.
func (t *Tensor) Flatten() Vector {
	size := 0
	for _, ch := range t.Channels {
		size += len(ch.data)
	}
	out := make(Vector, 0, size)
	for _, ch := range t.Channels {
		out = append(out, ch.data...)
	}
	return out
}

func (t *Tensor) Clone() *Tensor {
	out := &Tensor{Channels: make([]*Matrix, len(t.Channels))}
	for i, ch := range t.Channels {
		out.Channels[i] = ch.Clone()
	}
	return out
}

// Sum adds up every element of every channel.
func (t *Tensor) Sum() float64 {
	total := 0.0
	for _, ch := range t.Channels {
		total += ch.Sum()
	}
	return total
}

func (t *Tensor) Add(b *Tensor) *Tensor {
	t.mustMatch("Tensor.Add", b)
	out := &Tensor{Channels: make([]*Matrix, len(t.Channels))}
	for i, ch := range t.Channels {
		out.Channels[i] = ch.Add(b.Channels[i])
	}
	return out
}

func (t *Tensor) Sub(b *Tensor) *Tensor {
	t.mustMatch("Tensor.Sub", b)
	out := &Tensor{Channels: make([]*Matrix, len(t.Channels))}
	for i, ch := range t.Channels {
		out.Channels[i] = ch.Sub(b.Channels[i])
	}
	return out
}

func (t *Tensor) Scale(s float64) *Tensor {
	out := &Tensor{Channels: make([]*Matrix, len(t.Channels))}
	for i, ch := range t.Channels {
		out.Channels[i] = ch.Scale(s)
	}
	return out
}

// Flip rotates every channel by 180 degrees.
func (t *Tensor) Flip() *Tensor {
	out := &Tensor{Channels: make([]*Matrix, len(t.Channels))}
	for i, ch := range t.Channels {
		out.Channels[i] = ch.Flip()
	}
	return out
}

// AsFilter reinterprets the channels as a bias-free filter. Channels are shared, not copied.
func (t *Tensor) AsFilter() *Filter {
	return &Filter{Channels: t.Channels}
}

// ------- CHANNEL RECONCILIATION ------ //
// IncreaseChannels returns a copy with n extra zero channels shaped like the first one.
func (t *Tensor) IncreaseChannels(n int) *Tensor {
	out := t.Clone()
	for range n {
		out.Channels = append(out.Channels, NewMatrix(t.Rows(), t.Cols()))
	}
	return out
}

// CropChannels returns a copy holding only the first n channels.
func (t *Tensor) CropChannels(n int) *Tensor {
	if n > len(t.Channels) {
		shapePanic("Tensor.CropChannels", t.String(), fmt.Sprintf("%d channels", n))
	}
	out := &Tensor{Channels: make([]*Matrix, n)}
	for i := range n {
		out.Channels[i] = t.Channels[i].Clone()
	}
	return out
}

// ReconcileChannels zero-pads or truncates the tensor to exactly n channels.
func (t *Tensor) ReconcileChannels(n int) *Tensor {
	switch {
	case len(t.Channels) < n:
		return t.IncreaseChannels(n - len(t.Channels))
	case len(t.Channels) > n:
		return t.CropChannels(n)
	default:
		return t.Clone()
	}
}

// GetSameChannels matches the channel count of reference.
func (t *Tensor) GetSameChannels(reference *Tensor) *Tensor {
	return t.ReconcileChannels(reference.Depth())
}
