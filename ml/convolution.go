package ml

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ConvolutionSize is the valid-correlation output extent along one axis.
func ConvolutionSize(input, filter, stride int) int {
	return (input-filter)/stride + 1
}

// TransposedConvolutionSize is the output extent of the adjoint operator along one axis.
func TransposedConvolutionSize(input, filter, stride int) int {
	return (input-1)*stride + filter
}

func checkStride(stride int) {
	if stride < 1 {
		panic(fmt.Sprintf("convolution stride must be positive, got %d", stride))
	}
}

// Correlate slides kernel across input with the given stride and returns the valid correlation.
func Correlate(input, kernel *Matrix, stride int) *Matrix {
	checkStride(stride)
	if kernel.rows > input.rows || kernel.cols > input.cols {
		shapePanic("Correlate", dims(input.rows, input.cols), dims(kernel.rows, kernel.cols))
	}
	out := NewMatrix(
		ConvolutionSize(input.rows, kernel.rows, stride),
		ConvolutionSize(input.cols, kernel.cols, stride),
	)
	correlateInto(out, input, kernel, stride)
	return out
}

// correlateInto accumulates the correlation of input and kernel into out.
func correlateInto(out, input, kernel *Matrix, stride int) {
	kRows, kCols := kernel.rows, kernel.cols
	for oh := 0; oh < out.rows; oh++ {
		outOffset := oh * out.cols
		for ow := 0; ow < out.cols; ow++ {
			sum := 0.0
			for kh := 0; kh < kRows; kh++ {
				inOffset := (oh*stride+kh)*input.cols + ow*stride
				kOffset := kh * kCols
				sum += floats.Dot(input.data[inOffset:inOffset+kCols], kernel.data[kOffset:kOffset+kCols])
			}
			out.data[outOffset+ow] += sum
		}
	}
}

// GetConvolution correlates input with every filter of the bank, summing across channels
// and adding each filter's bias. The result has one channel per filter.
func GetConvolution(input *Tensor, filters []*Filter, stride int) *Tensor {
	checkStride(stride)
	out := &Tensor{Channels: make([]*Matrix, len(filters))}

	for f, filter := range filters {
		if filter.Depth() != input.Depth() {
			shapePanic("GetConvolution", input.String(), filter.String())
		}
		if filter.Rows() > input.Rows() || filter.Cols() > input.Cols() {
			shapePanic("GetConvolution", input.String(), filter.String())
		}

		channel := NewMatrix(
			ConvolutionSize(input.Rows(), filter.Rows(), stride),
			ConvolutionSize(input.Cols(), filter.Cols(), stride),
		)
		for c, kernel := range filter.Channels {
			correlateInto(channel, input.Channels[c], kernel, stride)
		}
		if filter.Bias != 0 {
			channel = channel.AddScalar(filter.Bias)
		}
		out.Channels[f] = channel
	}

	return out
}

// GetTransposedConvolution scatters every input position, weighted by the filter,
// into a stride-expanded output. Filter f holds one channel per input channel and
// produces output channel f.
func GetTransposedConvolution(input *Tensor, filters []*Filter, stride int) *Tensor {
	checkStride(stride)
	out := &Tensor{Channels: make([]*Matrix, len(filters))}

	for f, filter := range filters {
		if filter.Depth() != input.Depth() {
			shapePanic("GetTransposedConvolution", input.String(), filter.String())
		}

		kRows, kCols := filter.Rows(), filter.Cols()
		channel := NewMatrix(
			TransposedConvolutionSize(input.Rows(), kRows, stride),
			TransposedConvolutionSize(input.Cols(), kCols, stride),
		)

		for c, kernel := range filter.Channels {
			in := input.Channels[c]
			for ih := 0; ih < in.rows; ih++ {
				for iw := 0; iw < in.cols; iw++ {
					v := in.data[ih*in.cols+iw]
					if v == 0 {
						continue
					}
					for kh := 0; kh < kRows; kh++ {
						outOffset := (ih*stride+kh)*channel.cols + iw*stride
						kOffset := kh * kCols
						floats.AddScaled(channel.data[outOffset:outOffset+kCols], v, kernel.data[kOffset:kOffset+kCols])
					}
				}
			}
		}
		if filter.Bias != 0 {
			channel = channel.AddScalar(filter.Bias)
		}
		out.Channels[f] = channel
	}

	return out
}

// ------- PADDING ------- //
// SamePadding pads a tensor so that a valid correlation with a Rows x Cols filter
// reproduces a chosen spatial extent.
type SamePadding struct {
	Rows, Cols int
}

func NewSamePadding(filter *Filter) SamePadding {
	return SamePadding{Rows: filter.Rows(), Cols: filter.Cols()}
}

// axis returns the leading and trailing padding for one axis. The leading edge
// gets at most filterSize-1 and the trailing edge takes the remainder.
func (p SamePadding) axis(size, kernel, target, stride int) (int, int) {
	total := (target-1)*stride + kernel - size
	if total < 0 {
		shapePanic("SamePadding", fmt.Sprintf("size %d", size), fmt.Sprintf("target %d", target))
	}
	lead := min(kernel-1, total/2)
	return lead, total - lead
}

// GetPadding pads every channel of t for a correlation at stride that yields targetRows x targetCols.
func (p SamePadding) GetPadding(t *Tensor, targetRows, targetCols, stride int) *Tensor {
	checkStride(stride)
	top, bottom := p.axis(t.Rows(), p.Rows, targetRows, stride)
	left, right := p.axis(t.Cols(), p.Cols, targetCols, stride)

	out := &Tensor{Channels: make([]*Matrix, len(t.Channels))}
	for i, ch := range t.Channels {
		out.Channels[i] = ch.Pad(top, bottom, left, right)
	}
	return out
}

// GetSamePadding keeps the spatial size of t unchanged under a stride-1 correlation.
func (p SamePadding) GetSamePadding(t *Tensor) *Tensor {
	return p.GetPadding(t, t.Rows(), t.Cols(), 1)
}

// GetFullPadding pads t so a stride-1 correlation grows it by filterSize-1 on each axis.
func (p SamePadding) GetFullPadding(t *Tensor) *Tensor {
	return p.GetPadding(t, t.Rows()+p.Rows-1, t.Cols()+p.Cols-1, 1)
}

// dilateTensor spreads every channel stride positions apart.
func dilateTensor(t *Tensor, stride int) *Tensor {
	out := &Tensor{Channels: make([]*Matrix, len(t.Channels))}
	for i, ch := range t.Channels {
		out.Channels[i] = ch.Dilate(stride)
	}
	return out
}
