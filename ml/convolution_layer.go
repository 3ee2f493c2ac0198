package ml

// Convolution correlates its input with a bank of filters.
type Convolution struct {
	filterBank
	input *Tensor
}

// NewConvolution creates count filters of depth channels, each rows x cols.
func NewConvolution(count, rows, cols, depth, stride int, opts ...LayerOption) *Convolution {
	return &Convolution{filterBank: newFilterBank(count, rows, cols, depth, stride, opts)}
}

func (c *Convolution) Forward(in *Tensor) *Tensor {
	c.input = in
	return GetConvolution(in, c.filters, c.stride)
}

// Backward takes the error of the layer output. The propagated error is derived
// from the filters as they were before this call's update.
func (c *Convolution) Backward(err *Tensor, learningRate float64, update bool) *Tensor {
	if c.input == nil {
		panic("Convolution.Backward called before Forward")
	}
	in := c.input
	kRows, kCols := c.filters[0].Rows(), c.filters[0].Cols()
	err = c.reconcileError("Convolution.Backward", err,
		ConvolutionSize(in.Rows(), kRows, c.stride),
		ConvolutionSize(in.Cols(), kCols, c.stride),
	)

	// Strided positions become a stride-1 problem once the error is dilated.
	dilated := dilateTensor(err, c.stride)
	padded := NewSamePadding(c.filters[0]).GetPadding(dilated, in.Rows(), in.Cols(), 1)
	previous := GetConvolution(padded, c.transposedBank(true), 1)

	if update {
		c.update(learningRate, func(f int) *Filter {
			grad := &Filter{
				Channels: make([]*Matrix, in.Depth()),
				Bias:     err.Channels[f].Sum(),
			}
			for ch, x := range in.Channels {
				grad.Channels[ch] = Correlate(x, dilated.Channels[f], 1).Crop(kRows, kCols)
			}
			return grad
		})
	}

	return previous
}

func (c *Convolution) Values() *Tensor { return c.input }
