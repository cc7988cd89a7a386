package optimizer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"replaybench/internal/domain"
)

// TrialCache memoizes a replay run's metrics by a hash of (symbol, strategy,
// fromMs, toMs, params), mirroring libs/experiment.RunParams.ParamHash()'s
// dedup idea. A nil *TrialCache, or any Redis error, degrades to "run it
// again" rather than failing the sweep — the same tolerant-of-unavailable
// shape as riskgate.NewsWindowGate.
type TrialCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTrialCache dials Redis eagerly so a misconfigured address surfaces at
// startup instead of silently disabling the cache mid-sweep.
func NewTrialCache(addr string, ttl time.Duration) (*TrialCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &TrialCache{client: client, ttl: ttl}, nil
}

func (c *TrialCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

type trialKey struct {
	Symbol   string              `json:"symbol"`
	Strategy string              `json:"strategy"`
	FromMs   int64               `json:"from_ms"`
	ToMs     int64               `json:"to_ms"`
	Params   domain.ParameterSet `json:"params"`
}

func (k trialKey) hash() string {
	b, _ := json.Marshal(k)
	h := sha256.Sum256(b)
	return "trial:" + hex.EncodeToString(h[:])[:16]
}

func (c *TrialCache) get(ctx context.Context, key trialKey) (domain.Stats, bool) {
	if c == nil || c.client == nil {
		return domain.Stats{}, false
	}
	data, err := c.client.Get(ctx, key.hash()).Bytes()
	if err != nil {
		return domain.Stats{}, false
	}
	var m domain.Stats
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.Stats{}, false
	}
	return m, true
}

func (c *TrialCache) set(ctx context.Context, key trialKey, m domain.Stats) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key.hash(), data, c.ttl).Err()
}

// withCache wraps a ReplayRunner with a cache-aside lookup keyed on the
// trial's full identity, so a re-run of an identical grid/window never pays
// for a second replay.
func withCache(run ReplayRunner, cache *TrialCache, symbol, strategy string) ReplayRunner {
	if cache == nil {
		return run
	}
	return func(ctx context.Context, params domain.ParameterSet, fromMs, toMs int64) (domain.Stats, error) {
		key := trialKey{Symbol: symbol, Strategy: strategy, FromMs: fromMs, ToMs: toMs, Params: params}
		if m, ok := cache.get(ctx, key); ok {
			return m, nil
		}
		m, err := run(ctx, params, fromMs, toMs)
		if err != nil {
			return m, err
		}
		cache.set(ctx, key, m)
		return m, nil
	}
}
