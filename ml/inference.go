package ml

import "fmt"

// Predict runs one forward pass and returns the winning class with its activation.
func (nw *Network) Predict(input *Tensor) (int, float64) {
	class := nw.ForwardFeed(input)
	return class, nw.Output()[class]
}

// InferenceImg classifies the image at imagePath. load turns a file into a tensor
// of the given size, e.g. data.LoadImage followed by a channel reduction.
func InferenceImg(nw *Network, imagePath string, width, height int, load func(string, int, int) (*Tensor, error)) (int, error) {
	fmt.Printf("Running Inference on: %s\n", imagePath)

	input, err := load(imagePath, width, height)
	if err != nil {
		return 0, fmt.Errorf("loading image: %w", err)
	}

	prediction, confidence := nw.Predict(input)
	fmt.Printf("Predicted Class: %d\n", prediction)
	fmt.Printf("Confidence: %.2f%%\n", confidence*100)
	return prediction, nil
}
