package ml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelForwardAndPredict(t *testing.T) {
	model := NewModel(
		NewConvolution(2, 3, 3, 1, 1),
		NewReshape(),
		NewPerceptron(18, 4),
	)

	out := model.Forward(randomTensor(1, 5, 5))
	assert.Equal(t, 4, len(out.Flatten()))
	assert.Same(t, out, model.Output())

	class := model.Predict(randomTensor(1, 5, 5))
	assert.Equal(t, model.Output().Flatten().MaxIndex(), class)
}

func TestModelBackPropagateReturnsInputError(t *testing.T) {
	model := NewModel(
		NewTransposedConvolution(1, 2, 2, 1, 2),
		NewConvolution(3, 3, 3, 1, 1),
	)
	in := randomTensor(1, 3, 3)
	out := model.Forward(in)
	require.Equal(t, 3, out.Depth())
	require.Equal(t, 4, out.Rows())

	before := model.WeightData()
	prev := model.BackPropagate(randomTensor(3, 4, 4), MSE{}, 0.01, false)
	assert.Equal(t, in.Depth(), prev.Depth())
	assert.Equal(t, in.Rows(), prev.Rows())
	assert.Equal(t, before, model.WeightData(), "no update requested")

	model.Forward(in)
	model.BackPropagate(randomTensor(3, 4, 4), MAE{}, 0.01, true)
	assert.NotEqual(t, before, model.WeightData())
}

func TestModelLearnsRegression(t *testing.T) {
	model := NewModel(NewReshape(), NewPerceptron(4, 2))
	in := Vector{0.5, -0.5, 1, 0}.AsTensor(2, 2, 1)
	target := Vector{1, -1}.AsTensor(1, 2, 1)

	loss := MSE{}
	first := loss.Loss(target, model.Forward(in))
	for range 100 {
		model.Forward(in)
		model.BackPropagate(target, loss, 0.05, true)
	}
	assert.Less(t, loss.Loss(target, model.Forward(in)), first/10)
}

func TestModelLoadWeightsRollsBack(t *testing.T) {
	model := NewModel(NewConvolution(1, 2, 2, 1, 1), NewReshape(), NewPerceptron(4, 2))
	before := model.WeightData()

	tokens := strings.Fields(before)
	for i := range tokens {
		tokens[i] = "0.5"
	}
	short := strings.Join(tokens[:len(tokens)-2], " ")

	_, err := model.LoadWeights(short)
	require.ErrorIs(t, err, ErrSerializationUnderflow)
	assert.Equal(t, before, model.WeightData())

	rest, err := model.LoadWeights(strings.Join(tokens, " "))
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.NotEqual(t, before, model.WeightData())
}

func TestReshapeRestoresShape(t *testing.T) {
	r := NewReshape()
	in := randomTensor(3, 2, 4)
	flat := r.Forward(in)
	assert.Equal(t, 1, flat.Depth())
	assert.Equal(t, 24, flat.Cols())

	back := r.Backward(flat, 0, true)
	assert.Equal(t, in.Flatten(), back.Flatten())
	assert.Equal(t, 3, back.Depth())
	assert.Equal(t, 2, back.Rows())
}
