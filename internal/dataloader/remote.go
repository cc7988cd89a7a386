package dataloader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"replaybench/internal/domain"
	"replaybench/internal/obslog"
	"replaybench/internal/resilience"
)

// RemoteSource fetches candles from an HTTP history service, following the
// donor's libs/marketdata.Client fallback/caching shape but simplified to a
// single endpoint (spec.md names one remote history service, not a
// multi-provider fan-out) guarded by internal/resilience's circuit breaker
// instead of the donor's per-provider retry loop.
type RemoteSource struct {
	BaseURL string
	Client  *http.Client
	Breaker *resilience.RemoteHistoryBreaker
}

// NewRemoteSource builds a RemoteSource with the spec's documented 60s
// request timeout and a breaker named after the service base URL.
func NewRemoteSource(baseURL string) *RemoteSource {
	return &RemoteSource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 60 * time.Second},
		Breaker: resilience.NewRemoteHistoryBreaker(baseURL),
	}
}

type remoteCandleRow struct {
	TS     int64   `json:"ts"`
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
}

type remoteCandlesResponse struct {
	Candles []remoteCandleRow `json:"candles"`
}

type remoteRangeResponse struct {
	FromMs int64 `json:"from_ms"`
	ToMs   int64 `json:"to_ms"`
}

func (s *RemoteSource) Load(ctx context.Context, symbol string, from, to time.Time, timeframe domain.Timeframe) ([]domain.Candle, error) {
	result, err := s.Breaker.Execute(ctx, func() (any, error) {
		return s.fetch(ctx, symbol, from, to, timeframe)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDataUnavailable, symbol, err)
	}

	rows := result.([]domain.Candle)
	out := normalize(ctx, symbol, rows)
	if len(out) == 0 {
		return nil, s.diagnoseEmpty(ctx, symbol, timeframe)
	}
	return out, nil
}

func (s *RemoteSource) fetch(ctx context.Context, symbol string, from, to time.Time, timeframe domain.Timeframe) ([]domain.Candle, error) {
	q := url.Values{
		"symbol":    {symbol},
		"timeframe": {string(timeframe)},
	}
	if !from.IsZero() {
		q.Set("from_ms", strconv.FormatInt(from.UnixMilli(), 10))
	}
	if !to.IsZero() {
		q.Set("to_ms", strconv.FormatInt(to.UnixMilli(), 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/candles?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("not_found: %s", symbol)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("unavailable: upstream status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("other: upstream status %d", resp.StatusCode)
	}

	var body remoteCandlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("other: decode response: %w", err)
	}

	out := make([]domain.Candle, 0, len(body.Candles))
	for _, row := range body.Candles {
		out = append(out, domain.Candle{
			Symbol: symbol, TimestampMs: row.TS,
			Open: row.Open, High: row.High, Low: row.Low, Close: row.Close, Volume: row.Volume,
			Timeframe: timeframe,
		})
	}
	return out, nil
}

// diagnoseEmpty probes the service's /range endpoint to report what data the
// service actually holds for symbol, turning a silent empty result into an
// actionable diagnostic (spec.md §4.7).
func (s *RemoteSource) diagnoseEmpty(ctx context.Context, symbol string, timeframe domain.Timeframe) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/range?symbol="+url.QueryEscape(symbol), nil)
	if err != nil {
		return fmt.Errorf("%w: empty response for %s, range probe failed: %v", domain.ErrDataUnavailable, symbol, err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: empty response for %s, range probe failed: %v", domain.ErrDataUnavailable, symbol, err)
	}
	defer resp.Body.Close()

	var rng remoteRangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&rng); err != nil || resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: empty response for %s, no available range reported", domain.ErrDataUnavailable, symbol)
	}

	obslog.Event(ctx, "warn", "remote_source_empty_range", map[string]any{
		"symbol": symbol, "timeframe": timeframe,
		"available_from_ms": rng.FromMs, "available_to_ms": rng.ToMs,
	})
	return fmt.Errorf("%w: %s has data only in [%d,%d]", domain.ErrDataUnavailable, symbol, rng.FromMs, rng.ToMs)
}
