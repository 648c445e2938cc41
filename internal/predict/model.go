// Package predict wraps the pre-trained heart-disease classifier. The
// model is trained offline; this package only loads the frozen weights
// and serves inferences from them.
package predict

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Model holds the frozen parameters of a trained binary classifier
// together with the ordered feature list it was trained on. It is
// immutable after loading and safe for concurrent use.
type Model struct {
	Features      []string  `json:"features"`
	Coefficients  []float64 `json:"coefficients"`
	Intercept     float64   `json:"intercept"`
	// Calibrated marks models whose score is a probability estimate.
	// Uncalibrated models yield a label only.
	Calibrated    bool    `json:"calibrated"`
	TrainAccuracy float64 `json:"train_accuracy"`
	TestAccuracy  float64 `json:"test_accuracy"`
	// Example is a known-good input row, surfaced as form placeholder text.
	Example []float64 `json:"example,omitempty"`
}

// LoadModel reads and validates a model file produced by the training
// pipeline.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file %s: %w", path, err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model file %s: %w", path, err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid model file %s: %w", path, err)
	}
	return &m, nil
}

func (m *Model) validate() error {
	if len(m.Features) == 0 {
		return fmt.Errorf("no features declared")
	}
	if len(m.Coefficients) != len(m.Features) {
		return fmt.Errorf("got %d coefficients for %d features", len(m.Coefficients), len(m.Features))
	}
	for i, w := range m.Coefficients {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("coefficient for %s is not finite", m.Features[i])
		}
	}
	if math.IsNaN(m.Intercept) || math.IsInf(m.Intercept, 0) {
		return fmt.Errorf("intercept is not finite")
	}
	if len(m.Example) > 0 && len(m.Example) != len(m.Features) {
		return fmt.Errorf("example row has %d values for %d features", len(m.Example), len(m.Features))
	}
	return nil
}

// Info is the caller-facing model metadata.
type Info struct {
	Features      []string  `json:"features"`
	TrainAccuracy float64   `json:"train_accuracy"`
	TestAccuracy  float64   `json:"test_accuracy"`
	Example       []float64 `json:"example,omitempty"`
}

func (m *Model) Info() Info {
	return Info{
		Features:      m.Features,
		TrainAccuracy: m.TrainAccuracy,
		TestAccuracy:  m.TestAccuracy,
		Example:       m.Example,
	}
}
