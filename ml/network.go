package ml

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ConvolutionConfig describes one convolution layer of a Network.
type ConvolutionConfig struct {
	FilterCount   int
	FilterRows    int
	FilterColumns int
	FilterDepth   int
	Stride        int // 0 means 1
}

type NetworkConfig struct {
	Convolutions []ConvolutionConfig
	// Neurons lists the dense layer sizes; Neurons[0] must equal the flattened
	// size of the last convolution output (or of the raw input).
	Neurons    []int
	Activation ActivationType

	// Optimizer drives the convolution filters. The zero value is plain descent.
	Optimizer OptimizerType
	Adam      AdamConfig
	Workers   int
}

// Network is a classifier made of a convolution stack followed by dense layers.
// The last dense layer is a terminal identity layer buffering the output activations.
type Network struct {
	cfg        NetworkConfig
	convs      []*Convolution
	dense      []*Perceptron
	convOutput *Tensor
	outputErr  Vector
}

func NewNetwork(cfg NetworkConfig) (*Network, error) {
	if len(cfg.Neurons) == 0 {
		return nil, errors.New("network needs at least one dense layer size")
	}
	for i, n := range cfg.Neurons {
		if n <= 0 {
			return nil, fmt.Errorf("dense layer %d: invalid size %d", i, n)
		}
	}

	nw := &Network{cfg: cfg}
	for i, cc := range cfg.Convolutions {
		if cc.FilterCount <= 0 || cc.FilterRows <= 0 || cc.FilterColumns <= 0 || cc.FilterDepth <= 0 {
			return nil, fmt.Errorf("convolution layer %d: invalid filter shape %+v", i, cc)
		}
		nw.convs = append(nw.convs, NewConvolution(
			cc.FilterCount, cc.FilterRows, cc.FilterColumns, cc.FilterDepth, cc.Stride,
			WithOptimizer(NewOptimizer(cfg.Optimizer, cfg.Adam)),
			WithWorkers(cfg.Workers),
		))
	}

	last := len(cfg.Neurons) - 1
	for i := 0; i < last; i++ {
		nw.dense = append(nw.dense, NewPerceptron(cfg.Neurons[i], cfg.Neurons[i+1]))
	}
	nw.dense = append(nw.dense, NewTerminalPerceptron(cfg.Neurons[last]))
	return nw, nil
}

func (nw *Network) Config() NetworkConfig { return nw.cfg }

// Layers lists the layers in forward order, convolutions first.
func (nw *Network) Layers() []Layer {
	layers := make([]Layer, 0, len(nw.convs)+len(nw.dense))
	for _, c := range nw.convs {
		layers = append(layers, c)
	}
	for _, p := range nw.dense {
		layers = append(layers, p)
	}
	return layers
}

// ForwardFeed runs one sample through the network and returns the index of the
// strongest output activation.
func (nw *Network) ForwardFeed(input *Tensor) int {
	data := input
	for _, c := range nw.convs {
		data = c.Forward(data)
	}
	nw.convOutput = data

	x := data.Flatten()
	last := len(nw.dense) - 1
	for _, p := range nw.dense[:last] {
		x = nw.cfg.Activation.apply(p.Feed(x))
	}
	nw.dense[last].Feed(x)
	return x.MaxIndex()
}

// OutputSize is the number of classes the network scores.
func (nw *Network) OutputSize() int { return nw.cfg.Neurons[len(nw.cfg.Neurons)-1] }

// Output returns a copy of the activations produced by the last ForwardFeed.
func (nw *Network) Output() Vector {
	out := nw.dense[len(nw.dense)-1].input
	return append(Vector(nil), out...)
}

// OutputError returns the output error computed by the last BackPropagation.
func (nw *Network) OutputError() Vector { return nw.outputErr }

// BackPropagation trains on the sample of the last ForwardFeed. For output j with
// activation a and d = Derivative(a), the output error is (1-a)*d when j is the
// expected class and -a*d otherwise. It points towards the target, so the layers,
// which descend along their error, receive its negation.
func (nw *Network) BackPropagation(expected int, learningRate float64) {
	if nw.convOutput == nil {
		panic("Network.BackPropagation called before ForwardFeed")
	}
	out := nw.dense[len(nw.dense)-1].input
	if expected < 0 || expected >= len(out) {
		panic(fmt.Sprintf("expected class %d out of range [0, %d)", expected, len(out)))
	}

	act := nw.cfg.Activation
	nw.outputErr = make(Vector, len(out))
	grad := make(Vector, len(out))
	for j, a := range out {
		d := act.Derivative(a)
		if j == expected {
			nw.outputErr[j] = (1 - a) * d
		} else {
			nw.outputErr[j] = -a * d
		}
		grad[j] = -nw.outputErr[j]
	}

	last := len(nw.dense) - 1
	grad = nw.dense[last].Propagate(grad, learningRate, false)
	for i := last - 1; i >= 0; i-- {
		grad = nw.dense[i].Propagate(grad, learningRate, true)
		if i > 0 {
			for k, a := range nw.dense[i].input {
				grad[k] *= act.Derivative(a)
			}
		}
	}

	if len(nw.convs) == 0 {
		return
	}

	// Feed already pins len(grad) to the flattened conv output, so this reshape keeps
	// the depth; channel reconciliation proper happens inside Convolution.Backward.
	shape := nw.convOutput
	plane := shape.Rows() * shape.Cols()
	channels := (len(grad) + plane - 1) / plane
	err := grad.AsTensor(shape.Rows(), shape.Cols(), channels).GetSameChannels(shape)
	for i := len(nw.convs) - 1; i >= 0; i-- {
		err = nw.convs[i].Backward(err, learningRate, true)
	}
}

// WeightData concatenates the weight streams of every layer in forward order.
func (nw *Network) WeightData() string {
	var sb strings.Builder
	for _, l := range nw.Layers() {
		sb.WriteString(l.WeightData())
	}
	return sb.String()
}

// LoadWeights reads every layer in forward order. Layer boundaries are positional,
// so a stream written for another architecture of the same total size loads silently.
// On failure the network keeps its previous weights.
func (nw *Network) LoadWeights(data string) (string, error) {
	snapshot := nw.WeightData()
	rest := data
	for i, l := range nw.Layers() {
		var err error
		if rest, err = l.LoadWeights(rest); err != nil {
			nw.restore(snapshot)
			return data, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return rest, nil
}

func (nw *Network) restore(snapshot string) {
	rest := snapshot
	for _, l := range nw.Layers() {
		rest, _ = l.LoadWeights(rest)
	}
}

// SaveToFile writes the weight stream as text.
func (nw *Network) SaveToFile(filename string) error {
	fmt.Println("Saving model to", filename)
	return os.WriteFile(filename, []byte(nw.WeightData()), 0o644)
}

func (nw *Network) LoadFromFile(filename string) error {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	rest, err := nw.LoadWeights(string(raw))
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", filename, err)
	}
	if extra := len(strings.Fields(rest)); extra > 0 {
		fmt.Printf("Warning: %d unread values left in %s\n", extra, filename)
	}
	fmt.Println("Weights loaded successfully.")
	return nil
}
