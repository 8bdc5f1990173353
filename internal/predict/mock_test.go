package predict

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockDurationIsDeterministic(t *testing.T) {
	m := MockService{ModelVersion: "mock-1"}
	f := Features{EstimatedDurationMinutes: iptr(80)}

	r1, err := m.PredictDuration(context.Background(), f)
	require.NoError(t, err)
	r2, err := m.PredictDuration(context.Background(), f)
	require.NoError(t, err)

	require.Equal(t, r1, r2)
	require.Equal(t, "mock-1", r1.ModelVersion)
	require.True(t, r1.UsedML)
	require.InDelta(t, 80, r1.PredictedMinutes, 80*0.25)
}

func TestMockDurationBoundedForAnyPayload(t *testing.T) {
	m := MockService{ModelVersion: "mock-1"}

	// Sweep enough distinct payloads that the fingerprint hashes cover both
	// halves of the uint64 range; every result must stay inside the jitter
	// envelope regardless of where the hash lands.
	for i := 0; i < 256; i++ {
		id := fmt.Sprintf("job-%d", i)
		r, err := m.PredictDuration(context.Background(), Features{
			AssignedTechnicianID:     &id,
			EstimatedDurationMinutes: iptr(100),
		})
		require.NoError(t, err)
		require.GreaterOrEqual(t, r.PredictedMinutes, 100*0.8)
		require.LessOrEqual(t, r.PredictedMinutes, 100*1.25)
	}
}

func TestMockNoShowProbabilityInRange(t *testing.T) {
	m := MockService{ModelVersion: "mock-1"}

	for _, key := range []string{"a", "b", "c", "d"} {
		r, err := m.PredictNoShow(context.Background(), Features{AssignedTechnicianID: &key})
		require.NoError(t, err)
		require.GreaterOrEqual(t, r.Probability, 0.0)
		require.LessOrEqual(t, r.Probability, 1.0)
		require.Contains(t, []int{0, 1}, r.Predicted)
	}
}
