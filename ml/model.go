package ml

import (
	"fmt"
	"strings"
)

// Model chains arbitrary layers and trains them against a LossFunction.
type Model struct {
	layers []Layer
	output *Tensor
}

func NewModel(layers ...Layer) *Model {
	return &Model{layers: layers}
}

func (m *Model) Layers() []Layer { return m.layers }

// Output returns the tensor produced by the last Forward call.
func (m *Model) Output() *Tensor { return m.output }

func (m *Model) Forward(input *Tensor) *Tensor {
	data := input
	for _, l := range m.layers {
		data = l.Forward(data)
	}
	m.output = data
	return data
}

// Predict returns the index of the largest value of the flattened output.
func (m *Model) Predict(input *Tensor) int {
	return m.Forward(input).Flatten().MaxIndex()
}

// BackPropagate pushes loss.ErrorTensor(expected, output) back through every layer
// and returns the error of the model input. With update false no parameter changes,
// which lets another model train on the returned error.
func (m *Model) BackPropagate(expected *Tensor, loss LossFunction, learningRate float64, update bool) *Tensor {
	if m.output == nil {
		panic("Model.BackPropagate called before Forward")
	}
	err := loss.ErrorTensor(expected, m.output)
	return m.Propagate(err, learningRate, update)
}

// Propagate pushes an output error back through every layer.
func (m *Model) Propagate(err *Tensor, learningRate float64, update bool) *Tensor {
	for i := len(m.layers) - 1; i >= 0; i-- {
		err = m.layers[i].Backward(err, learningRate, update)
	}
	return err
}

func (m *Model) WeightData() string {
	var sb strings.Builder
	for _, l := range m.layers {
		sb.WriteString(l.WeightData())
	}
	return sb.String()
}

// LoadWeights reads every layer in order and leaves the model untouched on failure.
func (m *Model) LoadWeights(data string) (string, error) {
	snapshot := m.WeightData()
	rest := data
	for i, l := range m.layers {
		var err error
		if rest, err = l.LoadWeights(rest); err != nil {
			rollback := snapshot
			for _, prev := range m.layers[:i] {
				rollback, _ = prev.LoadWeights(rollback)
			}
			return data, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return rest, nil
}

// Reshape flattens a convolution output into a single-row tensor for dense layers
// and restores the cached shape on the way back.
type Reshape struct {
	input *Tensor
}

func NewReshape() *Reshape { return &Reshape{} }

func (r *Reshape) Forward(in *Tensor) *Tensor {
	r.input = in
	flat := in.Flatten()
	return flat.AsTensor(1, len(flat), 1)
}

func (r *Reshape) Backward(err *Tensor, _ float64, _ bool) *Tensor {
	if r.input == nil {
		panic("Reshape.Backward called before Forward")
	}
	return err.Flatten().AsTensor(r.input.Rows(), r.input.Cols(), r.input.Depth())
}

func (r *Reshape) Values() *Tensor { return r.input }

func (r *Reshape) WeightData() string { return "" }

func (r *Reshape) LoadWeights(data string) (string, error) { return data, nil }
