package predict

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/heartcare/heartcare/pkg/apperr"
)

// BuildVector assembles a feature vector for the given ordered feature
// list from either per-field values or a raw comma-separated row.
//
// The per-field path is taken only when every field is present and
// non-blank; otherwise, a non-empty raw string is parsed as the whole
// vector. The two paths never mix: a partially filled field map is not
// patched from the raw string.
func BuildVector(features []string, fields map[string]string, raw string) ([]float64, error) {
	n := len(features)

	complete := true
	for _, name := range features {
		if strings.TrimSpace(fields[name]) == "" {
			complete = false
			break
		}
	}

	if complete && len(fields) > 0 {
		values := make([]float64, 0, n)
		var bad []string
		for _, name := range features {
			v, err := parseFeature(fields[name])
			if err != nil {
				bad = append(bad, name)
				continue
			}
			values = append(values, v)
		}
		if len(bad) > 0 {
			sort.Strings(bad)
			return nil, apperr.Validation("fields must be numeric", bad...)
		}
		return values, nil
	}

	if raw = strings.TrimSpace(raw); raw != "" {
		tokens := strings.Split(raw, ",")
		if len(tokens) != n {
			return nil, apperr.Validationf("expected %d comma-separated values, got %d", n, len(tokens))
		}
		values := make([]float64, 0, n)
		for i, tok := range tokens {
			v, err := parseFeature(tok)
			if err != nil {
				return nil, apperr.Validation("value must be numeric", features[i])
			}
			values = append(values, v)
		}
		return values, nil
	}

	var missing []string
	for _, name := range features {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	return nil, apperr.Validation(
		fmt.Sprintf("provide every field or a single row of %d comma-separated values", n),
		missing...)
}

func parseFeature(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrRange
	}
	return v, nil
}
