package ml

import (
	"testing"
)

// --- Global Variables to prevent compiler optimizations ---
var resultMat *Matrix
var resultTensor *Tensor
var resultClass int

// --- 1. Benchmarks: Matrix Multiplication ---

// naiveMatMul is the standard O(N^3) triple loop, kept as a baseline for gonum.
func naiveMatMul(a, b, out *Matrix) {
	out.Reset()
	for i := 0; i < a.rows; i++ {
		for k := 0; k < a.cols; k++ {
			scalar := a.data[i*a.cols+k]
			for j := 0; j < b.cols; j++ {
				out.data[i*out.cols+j] += scalar * b.data[k*b.cols+j]
			}
		}
	}
}

func TestNaiveMatMulMatchesGonum(t *testing.T) {
	a := NewMatrix(7, 5)
	b := NewMatrix(5, 3)
	a.Randomize()
	b.Randomize()

	want := NewMatrix(7, 3)
	naiveMatMul(a, b, want)
	got := a.Product(b)
	for i := range want.data {
		if d := want.data[i] - got.data[i]; d > 1e-12 || d < -1e-12 {
			t.Fatalf("element %d: naive %v, gonum %v", i, want.data[i], got.data[i])
		}
	}
}

func benchmarkMatMul(b *testing.B, size int, method string) {
	m1 := NewMatrix(size, size)
	m2 := NewMatrix(size, size)
	out := NewMatrix(size, size)

	m1.Randomize()
	m2.Randomize()

	b.ResetTimer()

	if method == "Native" {
		for n := 0; n < b.N; n++ {
			naiveMatMul(m1, m2, out)
		}
	} else {
		for n := 0; n < b.N; n++ {
			// Pass the underlying gonum object (.dense)
			MatMul(m1.dense, m2.dense, out)
		}
	}
	resultMat = out
}

func BenchmarkMatMul_Native_64(b *testing.B)  { benchmarkMatMul(b, 64, "Native") }
func BenchmarkMatMul_Gonum_64(b *testing.B)   { benchmarkMatMul(b, 64, "Gonum") }
func BenchmarkMatMul_Native_256(b *testing.B) { benchmarkMatMul(b, 256, "Native") }
func BenchmarkMatMul_Gonum_256(b *testing.B)  { benchmarkMatMul(b, 256, "Gonum") }

// --- 2. Benchmarks: Activation Function Overhead ---

func BenchmarkActivation_FuncPtr(b *testing.B) {
	// 1 Million elements
	m := NewMatrix(1000, 1000)
	m.Randomize()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		m.ApplyFunc(Relu)
	}
}

func BenchmarkActivation_Switch(b *testing.B) {
	v := make(Vector, 1000*1000)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		ActSigmoid.apply(v)
	}
}

// --- 3. Benchmarks: Convolution Engine ---

func benchmarkConvolution(b *testing.B, size, filters int) {
	in := randomTensor(3, size, size)
	bank := make([]*Filter, filters)
	for i := range bank {
		bank[i] = randomFilter(3, 3, 3)
	}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		resultTensor = GetConvolution(in, bank, 1)
	}
}

func BenchmarkConvolution_28_8(b *testing.B)  { benchmarkConvolution(b, 28, 8) }
func BenchmarkConvolution_64_16(b *testing.B) { benchmarkConvolution(b, 64, 16) }

func benchmarkTransposedConvolution(b *testing.B, size, filters int) {
	in := randomTensor(3, size, size)
	bank := make([]*Filter, filters)
	for i := range bank {
		bank[i] = randomFilter(3, 3, 3)
	}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		resultTensor = GetTransposedConvolution(in, bank, 2)
	}
}

func BenchmarkTransposedConvolution_14_8(b *testing.B) { benchmarkTransposedConvolution(b, 14, 8) }
func BenchmarkTransposedConvolution_32_8(b *testing.B) { benchmarkTransposedConvolution(b, 32, 8) }

// --- 4. Benchmarks: Layer Backward (per-filter parallelism) ---

func benchmarkConvBackward(b *testing.B, workers int, opt OptimizerType) {
	layer := NewConvolution(16, 3, 3, 3, 1,
		WithWorkers(workers),
		WithOptimizer(NewOptimizer(opt, DefaultAdamConfig)),
	)
	in := randomTensor(3, 28, 28)
	errT := randomTensor(16, 26, 26)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		layer.Forward(in)
		resultTensor = layer.Backward(errT, 1e-4, true)
	}
}

func BenchmarkConvBackward_Plain_1(b *testing.B) { benchmarkConvBackward(b, 1, OptPlain) }
func BenchmarkConvBackward_Plain_N(b *testing.B) { benchmarkConvBackward(b, 0, OptPlain) }
func BenchmarkConvBackward_Adam_1(b *testing.B)  { benchmarkConvBackward(b, 1, OptAdam) }
func BenchmarkConvBackward_Adam_N(b *testing.B)  { benchmarkConvBackward(b, 0, OptAdam) }

// --- 5. Benchmarks: Full Step ---

func BenchmarkTrainStep(b *testing.B) {
	nw, err := NewNetwork(NetworkConfig{
		Convolutions: []ConvolutionConfig{
			{FilterCount: 8, FilterRows: 5, FilterColumns: 5, FilterDepth: 1},
		},
		Neurons:    []int{24 * 24 * 8, 64, 10},
		Activation: ActSigmoid,
	})
	if err != nil {
		b.Fatal(err)
	}
	in := randomTensor(1, 28, 28)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		resultClass = nw.ForwardFeed(in)
		nw.BackPropagation(n%10, 0.01)
	}
}
