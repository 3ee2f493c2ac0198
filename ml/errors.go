package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is wrapped by the *ShapeError every shape-checked operation panics with.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrSerializationUnderflow is returned when a weight stream ends before a layer is fully loaded.
	ErrSerializationUnderflow = errors.New("weight stream underflow")
)

// ShapeError describes the operands of a failed shape check.
type ShapeError struct {
	Op    string
	Left  string
	Right string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %v: %s vs %s", e.Op, ErrShapeMismatch, e.Left, e.Right)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }

func shapePanic(op string, left, right string) {
	panic(&ShapeError{Op: op, Left: left, Right: right})
}

func dims(rows, cols int) string {
	return fmt.Sprintf("[%d, %d]", rows, cols)
}
