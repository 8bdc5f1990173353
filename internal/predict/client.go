package predict

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

const (
	fallbackDurationMinutes = 60.0
	fallbackNoShowProb      = 0.25
)

// Client wraps a prediction backend with a deterministic percentage rollout,
// a TTL response cache and rule-based fallbacks. Identical inputs always get
// the same rollout decision, so a job never flips between model and fallback
// across requests.
type Client struct {
	Backend         Service
	RolloutPct      float64
	StickyKey       string
	DisableFallback bool
	Logger          zerolog.Logger

	cache *gocache.Cache
}

type Options struct {
	RolloutPct      float64
	StickyKey       string
	CacheTTL        time.Duration
	DisableFallback bool
	Logger          zerolog.Logger
}

func NewClient(backend Service, opts Options) *Client {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{
		Backend:         backend,
		RolloutPct:      opts.RolloutPct,
		StickyKey:       opts.StickyKey,
		DisableFallback: opts.DisableFallback,
		Logger:          opts.Logger,
		cache:           gocache.New(ttl, 2*ttl),
	}
}

// Duration predicts service duration for the given features. key identifies
// the subject for rollout and caching; empty key falls back to a payload
// fingerprint.
func (c *Client) Duration(ctx context.Context, key string, f Features) (DurationResult, error) {
	key = c.resolveKey(key, f)
	cacheKey := "duration:" + key
	if v, ok := c.cache.Get(cacheKey); ok {
		return v.(DurationResult), nil
	}

	if !c.useML(key) {
		out := durationFallback(f)
		c.cache.SetDefault(cacheKey, out)
		return out, nil
	}

	out, err := c.Backend.PredictDuration(ctx, f)
	if err != nil {
		if c.DisableFallback {
			return DurationResult{}, err
		}
		c.Logger.Warn().Err(err).Str("key", key).Msg("duration prediction failed, using fallback")
		out = durationFallback(f)
	}
	c.cache.SetDefault(cacheKey, out)
	return out, nil
}

// NoShow predicts the no-show outcome for the given features. Same rollout
// and caching contract as Duration.
func (c *Client) NoShow(ctx context.Context, key string, f Features) (NoShowResult, error) {
	key = c.resolveKey(key, f)
	cacheKey := "no_show:" + key
	if v, ok := c.cache.Get(cacheKey); ok {
		return v.(NoShowResult), nil
	}

	if !c.useML(key) {
		out := noShowFallback()
		c.cache.SetDefault(cacheKey, out)
		return out, nil
	}

	out, err := c.Backend.PredictNoShow(ctx, f)
	if err != nil {
		if c.DisableFallback {
			return NoShowResult{}, err
		}
		c.Logger.Warn().Err(err).Str("key", key).Msg("no-show prediction failed, using fallback")
		out = noShowFallback()
	}
	c.cache.SetDefault(cacheKey, out)
	return out, nil
}

func (c *Client) resolveKey(key string, f Features) string {
	if key != "" {
		return key
	}
	sum := sha256.Sum256([]byte(fingerprint(f)))
	return hex.EncodeToString(sum[:])
}

// useML hashes the sticky key and subject key and admits the subject when
// the first 32 bits of the digest, mod 100, land under the rollout
// percentage.
func (c *Client) useML(key string) bool {
	if c.RolloutPct <= 0 {
		return false
	}
	if c.RolloutPct >= 100 {
		return true
	}
	sum := sha256.Sum256([]byte(c.StickyKey + "|" + key))
	val64, err := strconv.ParseUint(hex.EncodeToString(sum[:])[:8], 16, 64)
	if err != nil {
		return true
	}
	return val64%100 < uint64(c.RolloutPct)
}

func durationFallback(f Features) DurationResult {
	minutes := fallbackDurationMinutes
	if f.EstimatedDurationMinutes != nil && *f.EstimatedDurationMinutes > 0 {
		minutes = float64(*f.EstimatedDurationMinutes)
	}
	return DurationResult{PredictedMinutes: minutes, Fallback: true, UsedML: false}
}

func noShowFallback() NoShowResult {
	return NoShowResult{Predicted: 0, Probability: fallbackNoShowProb, Fallback: true, UsedML: false}
}
