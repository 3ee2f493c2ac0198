package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onesTensor(depth, rows, cols int) *Tensor {
	t := NewZeroTensor(depth, rows, cols)
	for _, ch := range t.Channels {
		ch.ApplyFunc(func(float64) float64 { return 1 })
	}
	return t
}

func onesFilter(depth, rows, cols int, bias float64) *Filter {
	f := onesTensor(depth, rows, cols).AsFilter()
	f.Bias = bias
	return f
}

func TestConvolutionOutputSize(t *testing.T) {
	cases := []struct {
		input, filter, stride, want int
	}{
		{6, 3, 1, 4},
		{6, 3, 2, 2},
		{7, 3, 2, 3},
		{28, 5, 1, 24},
		{5, 5, 3, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ConvolutionSize(tc.input, tc.filter, tc.stride), "%+v", tc)

		out := GetConvolution(NewZeroTensor(1, tc.input, tc.input), []*Filter{NewZeroFilter(1, tc.filter, tc.filter)}, tc.stride)
		assert.Equal(t, tc.want, out.Rows())
		assert.Equal(t, tc.want, out.Cols())
	}
}

func TestGetConvolutionSumsChannelsAndBias(t *testing.T) {
	out := GetConvolution(onesTensor(1, 3, 3), []*Filter{onesFilter(1, 2, 2, 0)}, 1)
	require.Equal(t, 1, out.Depth())
	assert.Equal(t, []float64{4, 4, 4, 4}, out.Channels[0].Data())

	out = GetConvolution(onesTensor(3, 4, 4), []*Filter{onesFilter(3, 3, 3, 0.5), onesFilter(3, 3, 3, -1)}, 1)
	require.Equal(t, 2, out.Depth())
	assert.Equal(t, []float64{27.5, 27.5, 27.5, 27.5}, out.Channels[0].Data())
	assert.Equal(t, []float64{26, 26, 26, 26}, out.Channels[1].Data())
}

func TestGetConvolutionStride(t *testing.T) {
	in := NewTensor(NewMatrixFromRows([][]float64{
		{1, 2, 3, 4, 5},
		{6, 7, 8, 9, 10},
		{11, 12, 13, 14, 15},
		{16, 17, 18, 19, 20},
		{21, 22, 23, 24, 25},
	}))
	kernel := NewFilter(0, NewMatrixFromRows([][]float64{{1, 0}, {0, 1}}))

	out := GetConvolution(in, []*Filter{kernel}, 2)
	assert.Equal(t, []float64{8, 12, 28, 32}, out.Channels[0].Data())
}

func TestGetConvolutionShapeChecks(t *testing.T) {
	requireShapePanic(t, func() {
		GetConvolution(NewZeroTensor(2, 4, 4), []*Filter{NewZeroFilter(1, 3, 3)}, 1)
	})
	requireShapePanic(t, func() {
		GetConvolution(NewZeroTensor(1, 2, 2), []*Filter{NewZeroFilter(1, 3, 3)}, 1)
	})
	assert.Panics(t, func() {
		GetConvolution(NewZeroTensor(1, 4, 4), []*Filter{NewZeroFilter(1, 3, 3)}, 0)
	})
}

func TestGetTransposedConvolution(t *testing.T) {
	in := NewTensor(NewMatrixFromRows([][]float64{{1, 2}, {3, 4}}))

	out := GetTransposedConvolution(in, []*Filter{onesFilter(1, 2, 2, 0)}, 1)
	assert.Equal(t, []float64{1, 3, 2, 4, 10, 6, 3, 7, 4}, out.Channels[0].Data())

	out = GetTransposedConvolution(in, []*Filter{onesFilter(1, 2, 2, 1)}, 2)
	require.Equal(t, 4, out.Rows())
	assert.Equal(t, []float64{
		2, 2, 3, 3,
		2, 2, 3, 3,
		4, 4, 5, 5,
		4, 4, 5, 5,
	}, out.Channels[0].Data())

	assert.Equal(t, 9, TransposedConvolutionSize(4, 3, 2))
}

func TestTransposedConvolutionIsAdjoint(t *testing.T) {
	// <conv(x), y> == <x, convT(y)> for bias-free filters
	x := randomTensor(2, 7, 7)
	filter := randomFilter(2, 3, 3)
	filter.Bias = 0

	y := randomTensor(1, ConvolutionSize(7, 3, 2), ConvolutionSize(7, 3, 2))
	lhs := dot(GetConvolution(x, []*Filter{filter}, 2), y)

	regrouped := make([]*Filter, 2)
	for c := range regrouped {
		regrouped[c] = NewFilter(0, filter.Channels[c])
	}
	back := GetTransposedConvolution(y, regrouped, 2)
	require.Equal(t, 7, back.Rows())
	assert.InDelta(t, lhs, dot(x, back), 1e-9)
}

func TestSamePadding(t *testing.T) {
	p := SamePadding{Rows: 3, Cols: 3}

	same := p.GetSamePadding(NewZeroTensor(2, 4, 4))
	assert.Equal(t, 2, same.Depth())
	assert.Equal(t, 6, same.Rows())
	assert.Equal(t, 6, same.Cols())

	full := p.GetFullPadding(onesTensor(1, 2, 2))
	require.Equal(t, 6, full.Rows())
	assert.Equal(t, 1.0, full.Channels[0].At(2, 2))
	assert.Equal(t, 0.0, full.Channels[0].At(1, 1))

	// An even filter puts the odd remainder on the trailing edge.
	even := SamePadding{Rows: 2, Cols: 2}.GetSamePadding(onesTensor(1, 4, 4))
	require.Equal(t, 5, even.Rows())
	assert.Equal(t, 1.0, even.Channels[0].At(0, 0))
	assert.Equal(t, 0.0, even.Channels[0].At(4, 4))

	// Valid correlation of the padded tensor reproduces the requested extent.
	kernel := NewZeroFilter(1, 3, 3)
	padded := p.GetPadding(NewZeroTensor(1, 3, 3), 9, 9, 2)
	out := GetConvolution(padded, []*Filter{kernel}, 2)
	assert.Equal(t, 9, out.Rows())
	assert.Equal(t, 9, out.Cols())

	requireShapePanic(t, func() { p.GetPadding(NewZeroTensor(1, 9, 9), 2, 2, 1) })
}

// Element-by-element definitions of both operators, used as a reference for the
// row-slice kernels.
func directConvolution(in *Tensor, f *Filter, stride int) *Matrix {
	out := NewMatrix(ConvolutionSize(in.Rows(), f.Rows(), stride), ConvolutionSize(in.Cols(), f.Cols(), stride))
	for r := 0; r < out.Rows(); r++ {
		for c := 0; c < out.Cols(); c++ {
			sum := f.Bias
			for ch := range f.Channels {
				for i := 0; i < f.Rows(); i++ {
					for j := 0; j < f.Cols(); j++ {
						sum += in.Channels[ch].At(r*stride+i, c*stride+j) * f.Channels[ch].At(i, j)
					}
				}
			}
			out.Set(r, c, sum)
		}
	}
	return out
}

func directTransposedConvolution(in *Tensor, f *Filter, stride int) *Matrix {
	out := NewMatrix(TransposedConvolutionSize(in.Rows(), f.Rows(), stride), TransposedConvolutionSize(in.Cols(), f.Cols(), stride))
	for ch := range f.Channels {
		for r := 0; r < in.Rows(); r++ {
			for c := 0; c < in.Cols(); c++ {
				for i := 0; i < f.Rows(); i++ {
					for j := 0; j < f.Cols(); j++ {
						y, x := r*stride+i, c*stride+j
						out.Set(y, x, out.At(y, x)+in.Channels[ch].At(r, c)*f.Channels[ch].At(i, j))
					}
				}
			}
		}
	}
	return out.AddScalar(f.Bias)
}

func TestConvolutionKernelsMatchDirectSums(t *testing.T) {
	for _, stride := range []int{1, 2, 3} {
		in := randomTensor(3, 9, 8)
		bank := []*Filter{randomFilter(3, 3, 2), randomFilter(3, 3, 2)}

		out := GetConvolution(in, bank, stride)
		for f, filter := range bank {
			assert.InDeltaSlice(t, directConvolution(in, filter, stride).Data(), out.Channels[f].Data(), 1e-12,
				"conv stride %d filter %d", stride, f)
		}

		small := randomTensor(3, 4, 3)
		tout := GetTransposedConvolution(small, bank, stride)
		for f, filter := range bank {
			assert.InDeltaSlice(t, directTransposedConvolution(small, filter, stride).Data(), tout.Channels[f].Data(), 1e-12,
				"transposed stride %d filter %d", stride, f)
		}
	}
}
