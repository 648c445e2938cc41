package predict

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/heartcare/heartcare/internal/platform/web"
)

// Handler exposes the public prediction endpoints. No authentication is
// required; the endpoints touch no stored data.
type Handler struct {
	predictor *Predictor
}

func NewHandler(predictor *Predictor) *Handler {
	return &Handler{predictor: predictor}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/predict", h.Predict)
	g.GET("/predict/model", h.ModelInfo)
}

type predictRequest struct {
	// Fields carries one value per feature name.
	Fields map[string]string `json:"fields"`
	// Raw is the whole vector as one comma-separated string, used when
	// Fields is incomplete.
	Raw string `json:"raw"`
}

type predictResponse struct {
	Prediction  int       `json:"prediction"`
	Probability *float64  `json:"probability,omitempty"`
	Features    []string  `json:"features"`
	Values      []float64 `json:"values"`
}

// Predict scores one visitor-supplied feature vector.
func (h *Handler) Predict(c echo.Context) error {
	var req predictRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	values, err := BuildVector(h.predictor.Features(), req.Fields, req.Raw)
	if err != nil {
		return web.Error(c, err)
	}

	result, err := h.predictor.Predict(values)
	if err != nil {
		return web.Error(c, err)
	}

	return c.JSON(http.StatusOK, predictResponse{
		Prediction:  result.Label,
		Probability: result.Probability,
		Features:    h.predictor.Features(),
		Values:      values,
	})
}

// ModelInfo reports the loaded model's feature schema and accuracies.
func (h *Handler) ModelInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, h.predictor.ModelInfo())
}
