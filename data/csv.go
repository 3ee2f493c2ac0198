package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/b0tShaman/convnet/ml"
)

// LoadLabeledCSV reads MNIST-style rows (label, pixel0, pixel1, ...) into single-channel
// rows x cols tensors with pixels scaled from 0-255 to [0, 1]. A header row is skipped.
// maxSamples <= 0 loads every row.
func LoadLabeledCSV(path string, rows, cols, maxSamples int) ([]*ml.Tensor, []int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return ReadLabeledCSV(file, rows, cols, maxSamples)
}

func ReadLabeledCSV(r io.Reader, rows, cols, maxSamples int) ([]*ml.Tensor, []int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = rows*cols + 1

	var (
		inputs []*ml.Tensor
		labels []int
	)
	for line := 1; maxSamples <= 0 || len(inputs) < maxSamples; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		label, err := strconv.Atoi(record[0])
		if err != nil {
			if line == 1 {
				continue // header
			}
			return nil, nil, fmt.Errorf("invalid label at row %d: %w", line, err)
		}

		pixels := make(ml.Vector, rows*cols)
		for j := range pixels {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid pixel at row %d, column %d: %w", line, j+1, err)
			}
			// Normalize: 0-255 -> 0.0-1.0
			pixels[j] = v / 255.0
		}
		inputs = append(inputs, pixels.AsTensor(rows, cols, 1))
		labels = append(labels, label)
	}

	if len(inputs) == 0 {
		return nil, nil, errors.New("CSV holds no samples")
	}
	return inputs, labels, nil
}
