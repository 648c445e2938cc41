package predict

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() *Handler {
	return NewHandler(New(&Model{
		Features:     []string{"a", "b", "c"},
		Coefficients: []float64{1, -1, 0.5},
		Intercept:    -0.5,
		Calibrated:   true,
		TestAccuracy: 0.85,
	}))
}

func doPredict(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := newTestHandler().Predict(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestPredictEndpoint(t *testing.T) {
	rec := doPredict(t, `{"fields":{"a":"2","b":"0","c":"1"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Prediction  int       `json:"prediction"`
		Probability *float64  `json:"probability"`
		Values      []float64 `json:"values"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Prediction != 1 || resp.Probability == nil {
		t.Errorf("response = %+v, want positive prediction with probability", resp)
	}
	if len(resp.Values) != 3 {
		t.Errorf("values = %v, want the echoed vector", resp.Values)
	}
}

func TestPredictEndpointRawRow(t *testing.T) {
	rec := doPredict(t, `{"raw":"2,0,1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestPredictEndpointValidation(t *testing.T) {
	rec := doPredict(t, `{"fields":{"a":"x","b":"0","c":"1"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp struct {
		Fields []string `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Fields) != 1 || resp.Fields[0] != "a" {
		t.Errorf("fields = %v, want [a]", resp.Fields)
	}
}

func TestModelInfoEndpoint(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/predict/model", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := newTestHandler().ModelInfo(c); err != nil {
		t.Fatalf("ModelInfo() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var info Info
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(info.Features) != 3 || info.TestAccuracy != 0.85 {
		t.Errorf("info = %+v", info)
	}
}
