package ml

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"
)

type TrainingConfig struct {
	Epochs       int
	LearningRate float64
	ModelPath    string
	VerboseEvery int // How often to log progress (in epochs)
}

// TrainingStats summarizes the last completed epoch.
type TrainingStats struct {
	Epochs   int
	Loss     float64
	Accuracy float64
	Duration time.Duration
}

// Train fits nw one sample at a time, visiting the samples in a fresh random order every epoch.
func Train(nw *Network, inputs []*Tensor, labels []int, cfg TrainingConfig) (TrainingStats, error) {
	if err := validateConfig(cfg, len(inputs), len(labels)); err != nil {
		return TrainingStats{}, err
	}
	if err := validateLabels(labels, nw.OutputSize()); err != nil {
		return TrainingStats{}, err
	}
	if cfg.VerboseEvery <= 0 {
		cfg.VerboseEvery = 1
	}
	fmt.Printf("TrainingConfig: %+v\n", cfg)

	stop := func() {}
	if cfg.ModelPath != "" {
		stop = setupSignalHandler(nw, cfg.ModelPath)
	}
	defer stop()

	indices := NewIndexList(len(inputs))
	stats := TrainingStats{}
	start := time.Now()
	fmt.Println("Starting Training...")

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		ShuffleIndices(indices)

		var totalLoss float64
		correct := 0
		for _, idx := range indices {
			label := labels[idx]
			if nw.ForwardFeed(inputs[idx]) == label {
				correct++
			}
			totalLoss += ClassificationLoss(nw.Output(), label)
			nw.BackPropagation(label, cfg.LearningRate)
		}

		stats = TrainingStats{
			Epochs:   epoch,
			Loss:     totalLoss / float64(len(indices)),
			Accuracy: float64(correct) / float64(len(indices)),
			Duration: time.Since(start),
		}
		if epoch%cfg.VerboseEvery == 0 || epoch == 1 {
			fmt.Printf("Epoch %d | Loss: %.4f | Acc: %.2f%% | Time: %v\n",
				epoch, stats.Loss, stats.Accuracy*100, stats.Duration)
		}
	}

	if cfg.ModelPath != "" {
		if err := nw.SaveToFile(cfg.ModelPath); err != nil {
			return stats, err
		}
	}
	fmt.Printf("Training Complete. Total Time: %v\n\n", time.Since(start))
	return stats, nil
}

// ClassificationLoss is -log(a) of the expected output, with a clipped to [1e-15, 1].
func ClassificationLoss(output Vector, expected int) float64 {
	const epsilon = 1e-15
	return -math.Log(math.Min(math.Max(output[expected], epsilon), 1))
}

func validateConfig(cfg TrainingConfig, samples, labels int) error {
	switch {
	case samples == 0:
		return fmt.Errorf("no training samples")
	case samples != labels:
		return fmt.Errorf("got %d samples but %d labels", samples, labels)
	case cfg.Epochs <= 0:
		return fmt.Errorf("epochs must be positive, got %d", cfg.Epochs)
	}
	return nil
}

func validateLabels(labels []int, classes int) error {
	for i, label := range labels {
		if label < 0 || label >= classes {
			return fmt.Errorf("label %d of sample %d outside [0, %d)", label, i, classes)
		}
	}
	return nil
}

// setupSignalHandler captures SIGINT/SIGTERM to save the model safely.
// The returned function stops listening.
func setupSignalHandler(nw *Network, modelPath string) func() {
	sigChan := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Println("\nInterrupt! Saving model...")
			if err := nw.SaveToFile(modelPath); err != nil {
				fmt.Println("Save failed:", err)
			}
			os.Exit(0)
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// ------ DATA HANDLING HELPERS ------
func NewIndexList(size int) []int {
	indices := make([]int, size)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

func ShuffleIndices(indices []int) {
	rand.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
}
