package predict

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type countingBackend struct {
	durationCalls int
	noShowCalls   int
	err           error
}

func (b *countingBackend) PredictDuration(context.Context, Features) (DurationResult, error) {
	b.durationCalls++
	if b.err != nil {
		return DurationResult{}, b.err
	}
	return DurationResult{PredictedMinutes: 42, ModelVersion: "v1", UsedML: true}, nil
}

func (b *countingBackend) PredictNoShow(context.Context, Features) (NoShowResult, error) {
	b.noShowCalls++
	if b.err != nil {
		return NoShowResult{}, b.err
	}
	return NoShowResult{Predicted: 1, Probability: 0.9, ModelVersion: "v1", UsedML: true}, nil
}

func newClient(backend Service, pct float64, disableFallback bool) *Client {
	return NewClient(backend, Options{
		RolloutPct:      pct,
		CacheTTL:        time.Minute,
		DisableFallback: disableFallback,
		Logger:          zerolog.Nop(),
	})
}

func iptr(v int) *int { return &v }

func TestDurationCachesBackendResult(t *testing.T) {
	backend := &countingBackend{}
	c := newClient(backend, 100, false)

	r1, err := c.Duration(context.Background(), "job:1", Features{})
	require.NoError(t, err)
	require.Equal(t, 42.0, r1.PredictedMinutes)
	require.True(t, r1.UsedML)

	r2, err := c.Duration(context.Background(), "job:1", Features{})
	require.NoError(t, err)
	require.Equal(t, r1, r2)
	require.Equal(t, 1, backend.durationCalls)
}

func TestRolloutIsDeterministicPerKey(t *testing.T) {
	c := newClient(&countingBackend{}, 50, false)

	first := c.useML("job:abc")
	for i := 0; i < 10; i++ {
		require.Equal(t, first, c.useML("job:abc"))
	}

	// At 50% a spread of keys must land on both sides of the gate.
	in, out := 0, 0
	for i := 0; i < 200; i++ {
		if c.useML("job:" + string(rune('a'+i%26)) + string(rune('0'+i%10))) {
			in++
		} else {
			out++
		}
	}
	require.Positive(t, in)
	require.Positive(t, out)
}

func TestRolloutBounds(t *testing.T) {
	always := newClient(&countingBackend{}, 100, false)
	never := newClient(&countingBackend{}, 0, false)
	for _, key := range []string{"a", "b", "c"} {
		require.True(t, always.useML(key))
		require.False(t, never.useML(key))
	}
}

func TestStickyKeyShiftsRollout(t *testing.T) {
	a := NewClient(&countingBackend{}, Options{RolloutPct: 50, StickyKey: "alpha", Logger: zerolog.Nop()})
	b := NewClient(&countingBackend{}, Options{RolloutPct: 50, StickyKey: "beta", Logger: zerolog.Nop()})

	diff := 0
	for i := 0; i < 64; i++ {
		key := "job:" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		if a.useML(key) != b.useML(key) {
			diff++
		}
	}
	require.Positive(t, diff, "different sticky keys must change at least one decision")
}

func TestRolloutExcludedReturnsFallback(t *testing.T) {
	backend := &countingBackend{}
	c := newClient(backend, 0, false)

	r, err := c.Duration(context.Background(), "job:1", Features{EstimatedDurationMinutes: iptr(90)})
	require.NoError(t, err)
	require.True(t, r.Fallback)
	require.False(t, r.UsedML)
	require.Equal(t, 90.0, r.PredictedMinutes)
	require.Zero(t, backend.durationCalls)

	ns, err := c.NoShow(context.Background(), "job:1", Features{})
	require.NoError(t, err)
	require.True(t, ns.Fallback)
	require.Equal(t, 0.25, ns.Probability)
	require.Equal(t, 0, ns.Predicted)
}

func TestBackendFailureFallsBack(t *testing.T) {
	backend := &countingBackend{err: errors.New("service down")}
	c := newClient(backend, 100, false)

	r, err := c.Duration(context.Background(), "job:2", Features{})
	require.NoError(t, err)
	require.True(t, r.Fallback)
	require.Equal(t, 60.0, r.PredictedMinutes, "no estimate defaults to 60 minutes")
}

func TestDisableFallbackPropagatesError(t *testing.T) {
	backend := &countingBackend{err: errors.New("service down")}
	c := newClient(backend, 100, true)

	_, err := c.Duration(context.Background(), "job:3", Features{})
	require.Error(t, err)

	_, err = c.NoShow(context.Background(), "job:3", Features{})
	require.Error(t, err)
}

func TestEmptyKeyUsesPayloadFingerprint(t *testing.T) {
	backend := &countingBackend{}
	c := newClient(backend, 100, false)

	f := Features{EstimatedDurationMinutes: iptr(30)}
	_, err := c.Duration(context.Background(), "", f)
	require.NoError(t, err)
	_, err = c.Duration(context.Background(), "", f)
	require.NoError(t, err)
	require.Equal(t, 1, backend.durationCalls, "identical payloads share a cache entry")
}
