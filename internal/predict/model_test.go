package predict

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	content := `{
		"features": ["a", "b"],
		"coefficients": [0.5, -0.25],
		"intercept": 0.1,
		"calibrated": true,
		"train_accuracy": 0.9,
		"test_accuracy": 0.85,
		"example": [1, 2]
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	if len(m.Features) != 2 || m.Intercept != 0.1 || !m.Calibrated {
		t.Errorf("model = %+v", m)
	}
}

func TestLoadModelErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadModel(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("LoadModel() = nil error for a missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModel(bad); err == nil {
		t.Error("LoadModel() = nil error for malformed JSON")
	}

	mismatched := filepath.Join(dir, "mismatched.json")
	content := `{"features": ["a", "b"], "coefficients": [1], "intercept": 0}`
	if err := os.WriteFile(mismatched, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModel(mismatched); err == nil {
		t.Error("LoadModel() = nil error for a coefficient count mismatch")
	}
}
