package ml

// TransposedConvolution upsamples its input by scattering it through a bank of filters.
// Filter f holds one channel per input channel and produces output channel f.
type TransposedConvolution struct {
	filterBank
	input *Tensor
}

func NewTransposedConvolution(count, rows, cols, depth, stride int, opts ...LayerOption) *TransposedConvolution {
	return &TransposedConvolution{filterBank: newFilterBank(count, rows, cols, depth, stride, opts)}
}

func (t *TransposedConvolution) Forward(in *Tensor) *Tensor {
	t.input = in
	return GetTransposedConvolution(in, t.filters, t.stride)
}

// Backward propagates with a plain strided correlation against the regrouped,
// unrotated filters, which is the adjoint of the forward scatter.
func (t *TransposedConvolution) Backward(err *Tensor, learningRate float64, update bool) *Tensor {
	if t.input == nil {
		panic("TransposedConvolution.Backward called before Forward")
	}
	in := t.input
	err = t.reconcileError("TransposedConvolution.Backward", err,
		TransposedConvolutionSize(in.Rows(), t.filters[0].Rows(), t.stride),
		TransposedConvolutionSize(in.Cols(), t.filters[0].Cols(), t.stride),
	)

	previous := GetConvolution(err, t.transposedBank(false), t.stride)

	if update {
		dilated := dilateTensor(in, t.stride)
		t.update(learningRate, func(f int) *Filter {
			grad := &Filter{
				Channels: make([]*Matrix, in.Depth()),
				Bias:     err.Channels[f].Sum(),
			}
			for ch, x := range dilated.Channels {
				grad.Channels[ch] = Correlate(err.Channels[f], x, 1)
			}
			return grad
		})
	}

	return previous
}

func (t *TransposedConvolution) Values() *Tensor { return t.input }
