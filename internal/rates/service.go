// Package rates resolves currency exchange rates for cross-currency
// checkouts: redis cache first, then the configured upstream, then a static
// fallback table when the upstream is unreachable.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const rateCachePrefix = "rates:"

var ErrRateUnavailable = errors.New("exchange rate unavailable")

// Rates carry six fractional digits, matching the decimal(10,6) column the
// backing store uses for them.
const ratePrecision = 6

var fallbackRates = map[string]decimal.Decimal{
	"MXN:USD": decimal.RequireFromString("0.055000"),
	"USD:MXN": decimal.RequireFromString("18.200000"),
	"MXN:EUR": decimal.RequireFromString("0.050000"),
	"EUR:MXN": decimal.RequireFromString("20.000000"),
	"USD:EUR": decimal.RequireFromString("0.920000"),
	"EUR:USD": decimal.RequireFromString("1.087000"),
}

type Result struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Rate   decimal.Decimal `json:"rate"`
	Source string          `json:"source"` // cache, upstream or fallback
}

type upstreamResponse struct {
	Rate string `json:"rate"`
}

type Service struct {
	client      *http.Client
	redis       *redis.Client
	upstreamURL string
	cacheTTL    time.Duration
}

func NewService(redisClient *redis.Client, upstreamURL string, cacheTTL time.Duration) *Service {
	return &Service{
		client:      &http.Client{Timeout: 5 * time.Second},
		redis:       redisClient,
		upstreamURL: upstreamURL,
		cacheTTL:    cacheTTL,
	}
}

func (s *Service) GetRate(ctx context.Context, from, to string) (Result, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || to == "" {
		return Result{}, fmt.Errorf("%w: from and to are required", ErrRateUnavailable)
	}
	if from == to {
		return Result{From: from, To: to, Rate: decimal.New(1, 0), Source: "identity"}, nil
	}

	pair := from + ":" + to
	cacheKey := rateCachePrefix + pair

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			if rate, err := decimal.NewFromString(cached); err == nil {
				return Result{From: from, To: to, Rate: rate, Source: "cache"}, nil
			}
		}
	}

	if rate, err := s.fetchUpstream(ctx, from, to); err == nil {
		if s.redis != nil {
			_ = s.redis.Set(ctx, cacheKey, rate.String(), s.cacheTTL).Err()
		}
		return Result{From: from, To: to, Rate: rate, Source: "upstream"}, nil
	}

	if rate, ok := fallbackRates[pair]; ok {
		return Result{From: from, To: to, Rate: rate, Source: "fallback"}, nil
	}

	return Result{}, fmt.Errorf("%w: %s", ErrRateUnavailable, pair)
}

func (s *Service) fetchUpstream(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if s.upstreamURL == "" {
		return decimal.Zero, errors.New("no upstream configured")
	}

	reqURL := fmt.Sprintf("%s?from=%s&to=%s", s.upstreamURL, url.QueryEscape(from), url.QueryEscape(to))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("upstream returned %d", resp.StatusCode)
	}

	var body upstreamResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, err
	}

	rate, err := decimal.NewFromString(body.Rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid upstream rate %q: %w", body.Rate, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive upstream rate %s", rate)
	}

	return rate.Round(ratePrecision), nil
}
