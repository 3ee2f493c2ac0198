package ml

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	ActLinear ActivationType = iota
	ActRelu
	ActLeakyRelu
	ActSigmoid
)

var activationMap = map[string]ActivationType{
	"linear":     ActLinear,
	"relu":       ActRelu,
	"leaky_relu": ActLeakyRelu,
	"sigmoid":    ActSigmoid,
}

const leakySlope = 0.01

// -------- TYPE DEFINITIONS -------- //
type ActivationType int

// Layer is one stage of a network. Forward caches what Backward needs; Backward
// consumes the error of this layer's output and returns the error of its input.
type Layer interface {
	Forward(in *Tensor) *Tensor
	Backward(err *Tensor, learningRate float64, update bool) *Tensor
	// Values returns the input cached by the last Forward call.
	Values() *Tensor
	// WeightData serializes the parameters as whitespace-terminated decimal tokens.
	WeightData() string
	// LoadWeights consumes this layer's prefix of data and returns the rest.
	LoadWeights(data string) (string, error)
}

// Initializer produces starting weights for a freshly allocated matrix.
type Initializer interface {
	Initialize(m *Matrix) *Matrix
}

// InitializerFunc adapts a plain function to Initializer.
type InitializerFunc func(m *Matrix) *Matrix

func (f InitializerFunc) Initialize(m *Matrix) *Matrix { return f(m) }

// HeInitialization draws N(0, 2/rows).
type HeInitialization struct{}

func (HeInitialization) Initialize(m *Matrix) *Matrix {
	m.Randomize()
	return m
}

// XavierInitialization draws uniformly from ±sqrt(6/(rows+cols)).
type XavierInitialization struct{}

func (XavierInitialization) Initialize(m *Matrix) *Matrix {
	m.RandomizeXavier()
	return m
}

// ConstantInitialization fills every weight with Value.
type ConstantInitialization struct {
	Value float64
}

func (c ConstantInitialization) Initialize(m *Matrix) *Matrix {
	m.ApplyFunc(func(float64) float64 { return c.Value })
	return m
}

// ------- ACTIVATIONS ------- //
// ParseActivation maps a name such as "relu" to its ActivationType.
func ParseActivation(name string) (ActivationType, error) {
	act, exists := activationMap[strings.ToLower(name)]
	if !exists {
		return ActLinear, fmt.Errorf("unknown activation: %q", name)
	}
	return act, nil
}

func (a ActivationType) String() string {
	for name, act := range activationMap {
		if act == a {
			return name
		}
	}
	return "ActivationType(" + strconv.Itoa(int(a)) + ")"
}

func (a ActivationType) Activate(x float64) float64 {
	switch a {
	case ActRelu:
		return Relu(x)
	case ActLeakyRelu:
		if x > 0 {
			return x
		}
		return leakySlope * x
	case ActSigmoid:
		return 1.0 / (1.0 + math.Exp(-x))
	default:
		return x
	}
}

// Derivative is expressed on the activated value y = Activate(x).
func (a ActivationType) Derivative(y float64) float64 {
	switch a {
	case ActRelu:
		return ReluDerivative(y)
	case ActLeakyRelu:
		if y > 0 {
			return 1
		}
		return leakySlope
	case ActSigmoid:
		return y * (1.0 - y)
	default:
		return 1
	}
}

func (a ActivationType) apply(v Vector) Vector {
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = a.Activate(x)
	}
	return out
}

func Relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func ReluDerivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

// ------- WEIGHT STREAMS ------- //
// tokenReader walks a whitespace-delimited weight stream.
type tokenReader struct {
	tokens []string
	pos    int
	layer  string
}

func newTokenReader(data, layer string) *tokenReader {
	return &tokenReader{tokens: strings.Fields(data), layer: layer}
}

func (r *tokenReader) next() (float64, error) {
	if r.pos >= len(r.tokens) {
		return 0, fmt.Errorf("%s: need token %d, stream has %d: %w", r.layer, r.pos+1, len(r.tokens), ErrSerializationUnderflow)
	}
	v, err := strconv.ParseFloat(r.tokens[r.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("%s: token %d: %w", r.layer, r.pos+1, err)
	}
	r.pos++
	return v, nil
}

func (r *tokenReader) fill(m *Matrix) error {
	for i := range m.data {
		v, err := r.next()
		if err != nil {
			return err
		}
		m.data[i] = v
	}
	return nil
}

func (r *tokenReader) rest() string {
	return strings.Join(r.tokens[r.pos:], " ")
}
