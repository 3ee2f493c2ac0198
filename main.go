package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/b0tShaman/convnet/data"
	. "github.com/b0tShaman/convnet/ml"
)

const imageSize = 28

// -------- MAIN -------- //
func main() {
	trainPath := flag.String("train", "assets/mnist_train.csv", "labeled CSV (label, pixels...)")
	modelFile := flag.String("model", "assets/model.txt", "weight file")
	samples := flag.Int("samples", 2000, "max training samples, 0 for all")
	epochs := flag.Int("epochs", 5, "training epochs")
	lr := flag.Float64("lr", 0.01, "learning rate")
	adam := flag.Bool("adam", false, "use Adam for the convolution filters")
	activation := flag.String("activation", "sigmoid", "hidden activation: linear, relu, leaky_relu or sigmoid")
	imagePath := flag.String("image", "", "image to classify after training")
	flag.Parse()

	act, err := ParseActivation(*activation)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	// 1. Load Data
	fmt.Println("Loading dataset...")
	inputs, labels, err := data.LoadLabeledCSV(*trainPath, imageSize, imageSize, *samples)
	if err != nil {
		fmt.Println("Error loading data:", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded dataset: %d samples of %dx%d\n", len(inputs), imageSize, imageSize)

	// 2. Initialize Network
	// 28x28 -> conv 8@5x5 -> 24x24x8 -> conv 8@3x3 stride 2 -> 11x11x8 = 968 -> 64 -> 10
	cfg := NetworkConfig{
		Convolutions: []ConvolutionConfig{
			{FilterCount: 8, FilterRows: 5, FilterColumns: 5, FilterDepth: 1},
			{FilterCount: 8, FilterRows: 3, FilterColumns: 3, FilterDepth: 8, Stride: 2},
		},
		Neurons:    []int{968, 64, 10},
		Activation: act,
	}
	if *adam {
		cfg.Optimizer = OptAdam
		cfg.Adam = DefaultAdamConfig
	}
	nw, err := NewNetwork(cfg)
	if err != nil {
		fmt.Println("Error building network:", err)
		os.Exit(1)
	}

	// Auto-Load weights if they exist
	if _, err := os.Stat(*modelFile); err == nil {
		fmt.Println("Found existing model. Loading weights...")
		if err := nw.LoadFromFile(*modelFile); err != nil {
			fmt.Printf("Model mismatch (%v). Starting training from scratch.\n", err)
		}
	}

	// 3. Configure & Train
	config := TrainingConfig{
		Epochs:       *epochs,
		LearningRate: *lr,
		ModelPath:    *modelFile,
		VerboseEvery: 1,
	}
	if _, err := Train(nw, inputs, labels, config); err != nil {
		fmt.Println("Training failed:", err)
		os.Exit(1)
	}

	// 4. Inference
	if *imagePath != "" {
		load := func(path string, w, h int) (*Tensor, error) {
			t, err := data.LoadImage(path, w, h)
			if err != nil {
				return nil, err
			}
			return data.Grayscale(t), nil
		}
		if _, err := InferenceImg(nw, *imagePath, imageSize, imageSize, load); err != nil {
			fmt.Println(err)
		}
	}
}
