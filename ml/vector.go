package ml

import (
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// Vector is a flat sequence of activations or errors.
type Vector []float64

func (v Vector) Add(b Vector) Vector {
	if len(v) != len(b) {
		shapePanic("Vector.Add", dims(len(v), 1), dims(len(b), 1))
	}
	out := make(Vector, len(v))
	floats.AddTo(out, v, b)
	return out
}

// MaxIndex returns the index of the largest element, the first one on ties.
func (v Vector) MaxIndex() int {
	return floats.MaxIdx(v)
}

// AsMatrix reshapes the vector row-major into rows x cols.
func (v Vector) AsMatrix(rows, cols int) *Matrix {
	if len(v) != rows*cols {
		shapePanic("Vector.AsMatrix", dims(rows, cols), strconv.Itoa(len(v))+" values")
	}
	data := make([]float64, len(v))
	copy(data, v)
	return NewMatrixFromSlice(rows, cols, data)
}

// AsTensor lays the vector out channel by channel; a short vector leaves the tail zero.
func (v Vector) AsTensor(rows, cols, channels int) *Tensor {
	size := rows * cols
	if len(v) > size*channels {
		shapePanic("Vector.AsTensor", strconv.Itoa(channels)+"x"+dims(rows, cols), strconv.Itoa(len(v))+" values")
	}
	t := &Tensor{Channels: make([]*Matrix, channels)}
	for ch := range channels {
		m := NewMatrix(rows, cols)
		start := ch * size
		if start < len(v) {
			copy(m.data, v[start:min(start+size, len(v))])
		}
		t.Channels[ch] = m
	}
	return t
}
