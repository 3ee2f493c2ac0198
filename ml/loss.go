package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// LossFunction scores a prediction and produces the error tensor fed to Backward.
// It is independent of the classification rule used by Network.BackPropagation.
type LossFunction interface {
	ErrorTensor(expected, predicted *Tensor) *Tensor
	Loss(expected, predicted *Tensor) float64
}

// MAE is the mean absolute error. Its error tensor is predicted - expected.
type MAE struct{}

// MAPE is the mean absolute error relative to the prediction. Zero predictions
// yield Inf or NaN.
type MAPE struct{}

// MSE is the mean squared error.
type MSE struct{}

func (MAE) ErrorTensor(expected, predicted *Tensor) *Tensor {
	return predicted.Sub(expected)
}

func (MAE) Loss(expected, predicted *Tensor) float64 {
	e, p := lossOperands("MAE.Loss", expected, predicted)
	return floats.Distance(p, e, 1) / float64(len(p))
}

func (MAPE) ErrorTensor(expected, predicted *Tensor) *Tensor {
	return predicted.Sub(expected).divide(predicted)
}

func (MAPE) Loss(expected, predicted *Tensor) float64 {
	e, p := lossOperands("MAPE.Loss", expected, predicted)
	var sum float64
	for i := range p {
		sum += math.Abs((e[i] - p[i]) / p[i])
	}
	return sum / float64(len(p))
}

func (MSE) ErrorTensor(expected, predicted *Tensor) *Tensor {
	return predicted.Sub(expected).Scale(2)
}

func (MSE) Loss(expected, predicted *Tensor) float64 {
	e, p := lossOperands("MSE.Loss", expected, predicted)
	d := floats.Distance(p, e, 2)
	return d * d / float64(len(p))
}

func lossOperands(op string, expected, predicted *Tensor) (Vector, Vector) {
	expected.mustMatch(op, predicted)
	e, p := expected.Flatten(), predicted.Flatten()
	if len(p) == 0 {
		shapePanic(op, expected.String(), predicted.String())
	}
	return e, p
}

func (t *Tensor) divide(b *Tensor) *Tensor {
	t.mustMatch("Tensor.divide", b)
	out := &Tensor{Channels: make([]*Matrix, len(t.Channels))}
	for i, ch := range t.Channels {
		out.Channels[i] = ch.Div(b.Channels[i])
	}
	return out
}
