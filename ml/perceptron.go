package ml

import (
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

const perceptronBias = 0.001

// Perceptron is a fully connected layer computing weights·input + bias.
// A terminal perceptron holds identity weights and never learns; it buffers
// the network output and passes the output error through unchanged.
type Perceptron struct {
	weights  *Matrix // [out, in]
	bias     Vector  // [out]
	input    Vector
	terminal bool
}

// NewPerceptron creates a size -> nextSize layer. Only WithInitializer applies;
// the weights always learn by plain descent.
func NewPerceptron(size, nextSize int, opts ...LayerOption) *Perceptron {
	cfg := layerConfig{init: HeInitialization{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	bias := make(Vector, nextSize)
	for i := range bias {
		bias[i] = perceptronBias
	}
	return &Perceptron{
		weights: cfg.init.Initialize(NewMatrix(nextSize, size)),
		bias:    bias,
		input:   make(Vector, size),
	}
}

// NewTerminalPerceptron creates the identity output layer.
func NewTerminalPerceptron(size int) *Perceptron {
	weights := NewMatrix(size, size)
	for i := 0; i < size; i++ {
		weights.Set(i, i, 1)
	}
	return &Perceptron{
		weights:  weights,
		bias:     make(Vector, size),
		input:    make(Vector, size),
		terminal: true,
	}
}

func (p *Perceptron) InSize() int { return p.weights.cols }

func (p *Perceptron) OutSize() int { return p.weights.rows }

func (p *Perceptron) Terminal() bool { return p.terminal }

func (p *Perceptron) Weights() *Matrix { return p.weights }

func (p *Perceptron) Bias() Vector { return p.bias }

// Feed computes weights·x + bias and caches x.
func (p *Perceptron) Feed(x Vector) Vector {
	if len(x) != p.weights.cols {
		shapePanic("Perceptron.Feed", dims(p.weights.rows, p.weights.cols), dims(len(x), 1))
	}
	p.input = append(p.input[:0], x...)
	return p.weights.MulVec(x).Add(p.bias)
}

func (p *Perceptron) Forward(in *Tensor) *Tensor {
	out := p.Feed(in.Flatten())
	return out.AsTensor(1, len(out), 1)
}

// Propagate consumes the error of the output neurons, updates the parameters
// when allowed and returns transpose(weights)·err computed before the update.
func (p *Perceptron) Propagate(err Vector, learningRate float64, update bool) Vector {
	if p.terminal {
		out := make(Vector, len(err))
		copy(out, err)
		return out
	}
	if len(err) != p.weights.rows {
		shapePanic("Perceptron.Propagate", dims(p.weights.rows, p.weights.cols), dims(len(err), 1))
	}

	previous := p.weights.Transpose().MulVec(err)
	if !update {
		return previous
	}

	cols := p.weights.cols
	for j, e := range err {
		// weight[j,k] -= input[k] * err[j] * lr
		floats.AddScaled(p.weights.data[j*cols:(j+1)*cols], -e*learningRate, p.input)
		p.bias[j] -= e * learningRate
	}
	return previous
}

func (p *Perceptron) Backward(err *Tensor, learningRate float64, update bool) *Tensor {
	out := p.Propagate(err.Flatten(), learningRate, update)
	return out.AsTensor(1, len(out), 1)
}

func (p *Perceptron) Values() *Tensor {
	return p.input.AsTensor(1, len(p.input), 1)
}

// WeightData writes the weights row-major followed by the biases.
func (p *Perceptron) WeightData() string {
	var sb strings.Builder
	sb.WriteString(p.weights.Values())
	for _, b := range p.bias {
		sb.WriteString(formatFloat(b))
		sb.WriteByte(' ')
	}
	return sb.String()
}

func (p *Perceptron) LoadWeights(data string) (string, error) {
	r := newTokenReader(data, "perceptron "+strconv.Itoa(p.InSize())+"x"+strconv.Itoa(p.OutSize()))
	weights := NewMatrix(p.weights.rows, p.weights.cols)
	if err := r.fill(weights); err != nil {
		return data, err
	}
	bias := make(Vector, len(p.bias))
	for i := range bias {
		v, err := r.next()
		if err != nil {
			return data, err
		}
		bias[i] = v
	}

	p.weights, p.bias = weights, bias
	return r.rest(), nil
}
