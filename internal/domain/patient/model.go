// Package patient manages clinical patient records and their risk
// classification. Records are owned by the user who created them;
// non-admin users only ever see their own.
package patient

import (
	"time"

	"github.com/google/uuid"
)

// ClinicalFeatures is the ordered list of clinical measurements stored
// per patient. The order matches the classifier's training schema.
var ClinicalFeatures = []string{
	"cp", "trestbps", "chol", "fbs", "restecg",
	"thalach", "exang", "oldpeak", "slope", "ca", "thal",
}

// Patient is one clinical record with its stored risk classification.
type Patient struct {
	ID        uuid.UUID `json:"id"`
	PatientID string    `json:"patient_id"`

	FullName      string `json:"full_name"`
	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	ContactNumber string `json:"contact_number,omitempty"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`

	Cp       float64 `json:"cp"`
	Trestbps float64 `json:"trestbps"`
	Chol     float64 `json:"chol"`
	Fbs      float64 `json:"fbs"`
	Restecg  float64 `json:"restecg"`
	Thalach  float64 `json:"thalach"`
	Exang    float64 `json:"exang"`
	Oldpeak  float64 `json:"oldpeak"`
	Slope    float64 `json:"slope"`
	Ca       float64 `json:"ca"`
	Thal     float64 `json:"thal"`

	Prediction      int      `json:"prediction"`
	Probability     *float64 `json:"probability,omitempty"`
	PredictionNotes string   `json:"prediction_notes,omitempty"`

	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Vector returns the clinical measurements in ClinicalFeatures order.
func (p *Patient) Vector() []float64 {
	return []float64{
		p.Cp, p.Trestbps, p.Chol, p.Fbs, p.Restecg,
		p.Thalach, p.Exang, p.Oldpeak, p.Slope, p.Ca, p.Thal,
	}
}

// SetVector stores a clinical vector given in ClinicalFeatures order.
// The caller guarantees the length.
func (p *Patient) SetVector(values []float64) {
	p.Cp, p.Trestbps, p.Chol, p.Fbs, p.Restecg = values[0], values[1], values[2], values[3], values[4]
	p.Thalach, p.Exang, p.Oldpeak, p.Slope, p.Ca, p.Thal = values[5], values[6], values[7], values[8], values[9], values[10]
}

// Snapshot is the audit-log view of a patient record. It carries every
// stored field so an audit entry reproduces the row it describes.
func (p *Patient) Snapshot() map[string]any {
	return map[string]any{
		"patient_id":     p.PatientID,
		"full_name":      p.FullName,
		"age":            p.Age,
		"gender":         p.Gender,
		"contact_number": p.ContactNumber,
		"email":          p.Email,
		"address":        p.Address,
		"cp":             p.Cp,
		"trestbps":       p.Trestbps,
		"chol":           p.Chol,
		"fbs":            p.Fbs,
		"restecg":        p.Restecg,
		"thalach":        p.Thalach,
		"exang":          p.Exang,
		"oldpeak":        p.Oldpeak,
		"slope":          p.Slope,
		"ca":             p.Ca,
		"thal":             p.Thal,
		"prediction":       p.Prediction,
		"probability":      p.Probability,
		"prediction_notes": p.PredictionNotes,
	}
}

// Stats summarizes the risk split of a patient set.
type Stats struct {
	Total    int `json:"total"`
	HighRisk int `json:"high_risk"`
	LowRisk  int `json:"low_risk"`
}

// DailyCount is one day's registration count for the dashboard chart.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
