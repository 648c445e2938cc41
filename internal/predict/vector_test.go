package predict

import (
	"errors"
	"reflect"
	"testing"

	"github.com/heartcare/heartcare/pkg/apperr"
)

var vectorFeatures = []string{"a", "b", "c"}

func TestBuildVectorPerField(t *testing.T) {
	values, err := BuildVector(vectorFeatures, map[string]string{
		"a": "1", "b": " 2.5 ", "c": "-3",
	}, "")
	if err != nil {
		t.Fatalf("BuildVector() error = %v", err)
	}
	if want := []float64{1, 2.5, -3}; !reflect.DeepEqual(values, want) {
		t.Errorf("values = %v, want %v", values, want)
	}
}

func TestBuildVectorRawFallback(t *testing.T) {
	values, err := BuildVector(vectorFeatures, nil, "1, 2.5, -3")
	if err != nil {
		t.Fatalf("BuildVector() error = %v", err)
	}
	if want := []float64{1, 2.5, -3}; !reflect.DeepEqual(values, want) {
		t.Errorf("values = %v, want %v", values, want)
	}
}

func TestBuildVectorPartialFieldsUseRaw(t *testing.T) {
	// An incomplete field map must not be patched from the raw row; the
	// raw row replaces it wholesale.
	values, err := BuildVector(vectorFeatures, map[string]string{"a": "9"}, "1,2,3")
	if err != nil {
		t.Fatalf("BuildVector() error = %v", err)
	}
	if want := []float64{1, 2, 3}; !reflect.DeepEqual(values, want) {
		t.Errorf("values = %v, want %v", values, want)
	}
}

func TestBuildVectorRawWrongCount(t *testing.T) {
	_, err := BuildVector(vectorFeatures, nil, "1,2")
	if !apperr.IsValidation(err) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestBuildVectorNonNumericFieldsListed(t *testing.T) {
	_, err := BuildVector(vectorFeatures, map[string]string{
		"a": "x", "b": "2", "c": "y",
	}, "")
	if !apperr.IsValidation(err) {
		t.Fatalf("error = %v, want validation error", err)
	}
	var e *apperr.Error
	if !errors.As(err, &e) {
		t.Fatalf("error %v does not carry fields", err)
	}
	if want := []string{"a", "c"}; !reflect.DeepEqual(e.Fields, want) {
		t.Errorf("fields = %v, want %v", e.Fields, want)
	}
}

func TestBuildVectorEmptyInputListsMissing(t *testing.T) {
	_, err := BuildVector(vectorFeatures, map[string]string{"b": "2"}, "")
	if !apperr.IsValidation(err) {
		t.Fatalf("error = %v, want validation error", err)
	}
	var e *apperr.Error
	if !errors.As(err, &e) {
		t.Fatalf("error %v does not carry fields", err)
	}
	if want := []string{"a", "c"}; !reflect.DeepEqual(e.Fields, want) {
		t.Errorf("fields = %v, want %v", e.Fields, want)
	}
}

func TestBuildVectorRejectsNonFiniteTokens(t *testing.T) {
	if _, err := BuildVector(vectorFeatures, nil, "1,NaN,3"); !apperr.IsValidation(err) {
		t.Errorf("error = %v, want validation error for NaN token", err)
	}
	if _, err := BuildVector(vectorFeatures, map[string]string{
		"a": "1", "b": "Inf", "c": "3",
	}, ""); !apperr.IsValidation(err) {
		t.Errorf("error = %v, want validation error for Inf field", err)
	}
}
