package predict

import (
	"math"

	"github.com/heartcare/heartcare/pkg/apperr"
)

// Result is a single binary prediction. Probability is nil when the
// underlying model cannot estimate one; callers must treat it as optional.
type Result struct {
	Label       int      `json:"label"`
	Probability *float64 `json:"probability,omitempty"`
}

// Predictor serves inferences from one frozen model. It holds no mutable
// state and is safe for unlimited concurrent use.
type Predictor struct {
	model *Model
}

func New(model *Model) *Predictor {
	return &Predictor{model: model}
}

// Features returns the ordered feature names the model was trained on.
func (p *Predictor) Features() []string {
	return p.model.Features
}

// ModelInfo returns caller-facing metadata about the loaded model.
func (p *Predictor) ModelInfo() Info {
	return p.model.Info()
}

// Predict scores one feature vector. The vector must contain exactly one
// finite value per model feature, in training order; anything else fails
// before inference is attempted.
func (p *Predictor) Predict(values []float64) (Result, error) {
	n := len(p.model.Features)
	if len(values) != n {
		return Result{}, apperr.Validationf("feature vector must contain exactly %d values, got %d", n, len(values))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Result{}, apperr.Validation("feature value is not finite", p.model.Features[i])
		}
	}

	score := p.model.Intercept
	for i, v := range values {
		score += p.model.Coefficients[i] * v
	}

	if !p.model.Calibrated {
		label := 0
		if score >= 0 {
			label = 1
		}
		return Result{Label: label}, nil
	}

	prob := 1.0 / (1.0 + math.Exp(-score))
	label := 0
	if prob >= 0.5 {
		label = 1
	}
	return Result{Label: label, Probability: &prob}, nil
}
