package predict

import (
	"context"
	"encoding/json"

	"github.com/fieldops/backend/internal/utils"
)

// MockService produces deterministic predictions without a model server.
// Used when ML_URL is unset, and in tests.
type MockService struct {
	ModelVersion string
}

func (m MockService) PredictDuration(_ context.Context, f Features) (DurationResult, error) {
	h := utils.HashStringToUint64(fingerprint(f))

	base := 60.0
	if f.EstimatedDurationMinutes != nil && *f.EstimatedDurationMinutes > 0 {
		base = float64(*f.EstimatedDurationMinutes)
	}
	jitter := []float64{0.8, 0.9, 1.0, 1.1, 1.25}
	minutes := base * jitter[h%uint64(len(jitter))]
	if f.IsPeakHour == 1 {
		minutes *= 1.15
	}

	return DurationResult{
		PredictedMinutes: minutes,
		ModelVersion:     m.ModelVersion,
		UsedML:           true,
	}, nil
}

func (m MockService) PredictNoShow(_ context.Context, f Features) (NoShowResult, error) {
	h := utils.HashStringToUint64(fingerprint(f))

	probs := []float64{0.05, 0.12, 0.25, 0.4, 0.62}
	p := probs[(h/7)%uint64(len(probs))]
	predicted := 0
	if p >= 0.5 {
		predicted = 1
	}

	return NoShowResult{
		Predicted:    predicted,
		Probability:  p,
		ModelVersion: m.ModelVersion,
		UsedML:       true,
	}, nil
}

func fingerprint(f Features) string {
	b, _ := json.Marshal(f)
	return string(b)
}
