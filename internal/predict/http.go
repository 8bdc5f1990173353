package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// HTTPService talks to the external prediction service.
type HTTPService struct {
	BaseURL string
	Client  *http.Client
}

type wireResponse struct {
	PredictedDuration []float64 `json:"predicted_duration"`
	Predictions       []float64 `json:"predictions"`
	Probabilities     []float64 `json:"probabilities"`
	ModelVersion      string    `json:"model_version"`
	Fallback          bool      `json:"fallback"`
	UsedML            *bool     `json:"used_ml"`
}

func (h HTTPService) PredictDuration(ctx context.Context, f Features) (DurationResult, error) {
	r, err := h.post(ctx, "/predict/duration/", f)
	if err != nil {
		return DurationResult{}, err
	}
	vals := r.PredictedDuration
	if len(vals) == 0 {
		vals = r.Predictions
	}
	if len(vals) == 0 {
		return DurationResult{}, errors.New("prediction service returned no duration")
	}
	return DurationResult{
		PredictedMinutes: vals[0],
		ModelVersion:     r.ModelVersion,
		Fallback:         r.Fallback,
		UsedML:           r.usedML(),
	}, nil
}

func (h HTTPService) PredictNoShow(ctx context.Context, f Features) (NoShowResult, error) {
	r, err := h.post(ctx, "/predict/no_show/", f)
	if err != nil {
		return NoShowResult{}, err
	}
	if len(r.Predictions) == 0 {
		return NoShowResult{}, errors.New("prediction service returned no prediction")
	}
	out := NoShowResult{
		Predicted:    int(r.Predictions[0]),
		ModelVersion: r.ModelVersion,
		Fallback:     r.Fallback,
		UsedML:       r.usedML(),
	}
	if len(r.Probabilities) > 0 {
		out.Probability = r.Probabilities[0]
	}
	return out, nil
}

func (r wireResponse) usedML() bool {
	if r.UsedML != nil {
		return *r.UsedML
	}
	return !r.Fallback
}

func (h HTTPService) post(ctx context.Context, path string, f Features) (wireResponse, error) {
	client := h.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	b, _ := json.Marshal(f)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+path, bytes.NewBuffer(b))
	if err != nil {
		return wireResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return wireResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wireResponse{}, errors.New("prediction service error")
	}

	var r wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return wireResponse{}, err
	}
	return r, nil
}
