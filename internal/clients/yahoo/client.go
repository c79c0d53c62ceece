// Package yahoo fetches quotes and daily bars from the Yahoo Finance chart
// API. Quotes cache for 15 minutes and daily bars for 24 hours by default;
// network calls go through the shared rate limiter under "yahoo_finance".
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/halalscreen/internal/cache"
	"github.com/aristath/halalscreen/internal/domain"
	"github.com/aristath/halalscreen/internal/ratelimit"
	"github.com/aristath/halalscreen/internal/retry"
)

const (
	defaultBaseURL  = "https://query1.finance.yahoo.com"
	limiterResource = "yahoo_finance"
	requestsPerHour = 2000
	requestTimeout  = 30 * time.Second

	defaultQuoteTTL = 15 * time.Minute
	defaultBarsTTL  = 24 * time.Hour

	// Yahoo blocks requests without a browser-ish user agent
	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
)

// Config carries the Yahoo client settings.
type Config struct {
	BaseURL         string        // optional endpoint override, used by tests
	RequestsPerHour int           // limiter budget, default 2000
	QuoteTTL        time.Duration // quote cache lifetime, default 15 minutes
	BarsTTL         time.Duration // daily-bars cache lifetime, default 24 hours
}

// Client implements domain.MarketDataProvider against Yahoo Finance.
type Client struct {
	baseURL  string
	quoteTTL time.Duration
	barsTTL  time.Duration
	store    *cache.Store
	limiter  *ratelimit.Limiter
	policy   retry.Policy
	http     *http.Client
	log      zerolog.Logger
}

// New builds a Yahoo client and configures its limiter resource.
func New(cfg Config, store *cache.Store, limiter *ratelimit.Limiter, policy retry.Policy, log zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	budget := cfg.RequestsPerHour
	if budget <= 0 {
		budget = requestsPerHour
	}
	limiter.Configure(limiterResource, budget)

	quoteTTL := cfg.QuoteTTL
	if quoteTTL <= 0 {
		quoteTTL = defaultQuoteTTL
	}
	barsTTL := cfg.BarsTTL
	if barsTTL <= 0 {
		barsTTL = defaultBarsTTL
	}

	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		quoteTTL: quoteTTL,
		barsTTL:  barsTTL,
		store:    store,
		limiter:  limiter,
		policy:   policy,
		http:     &http.Client{Timeout: requestTimeout},
		log:      log.With().Str("client", "yahoo").Logger(),
	}
}

// Name identifies the provider.
func (c *Client) Name() string { return "yahoo_finance" }

// GetQuote returns the current market price for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("yahoo: symbol cannot be empty")
	}

	cacheKey := fmt.Sprintf("price:yahoo:%s:current", symbol)
	var cached domain.Quote
	if c.store != nil && c.store.GetObject(cacheKey, &cached) {
		return &cached, nil
	}

	var chart *chartResult
	err := c.policy.Do(ctx, c.log, "yahoo quote "+symbol, func() error {
		if err := c.limiter.Acquire(ctx, limiterResource); err != nil {
			return err
		}
		var fetchErr error
		chart, fetchErr = c.fetchChart(ctx, symbol, "1d")
		return fetchErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetching quote for %s: %w", symbol, err)
	}

	price := chart.Meta.RegularMarketPrice
	if price <= 0 {
		return nil, fmt.Errorf("yahoo returned no price for %s", symbol)
	}

	quote := domain.Quote{
		Symbol:    symbol,
		Price:     price,
		Currency:  chart.Meta.Currency,
		Exchange:  chart.Meta.ExchangeName,
		Timestamp: time.Now(),
	}
	if c.store != nil {
		c.store.SetObject(cacheKey, quote, c.quoteTTL)
	}
	return &quote, nil
}

// GetDailyBars returns up to days daily OHLCV candles, oldest first.
func (c *Client) GetDailyBars(ctx context.Context, symbol string, days int) ([]domain.Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("yahoo: symbol cannot be empty")
	}
	if days <= 0 {
		days = 30
	}

	cacheKey := fmt.Sprintf("price:yahoo:%s:daily", symbol)
	var cached []domain.Bar
	if c.store != nil && c.store.GetObject(cacheKey, &cached) && len(cached) >= days {
		return cached[len(cached)-days:], nil
	}

	var chart *chartResult
	err := c.policy.Do(ctx, c.log, "yahoo bars "+symbol, func() error {
		if err := c.limiter.Acquire(ctx, limiterResource); err != nil {
			return err
		}
		var fetchErr error
		chart, fetchErr = c.fetchChart(ctx, symbol, rangeForDays(days))
		return fetchErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetching daily bars for %s: %w", symbol, err)
	}

	bars := chart.bars()
	if c.store != nil {
		c.store.SetObject(cacheKey, bars, c.barsTTL)
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}

	c.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Fetched daily bars")
	return bars, nil
}

// rangeForDays picks the smallest Yahoo range covering the requested days.
func rangeForDays(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	default:
		return "5y"
	}
}

type chartResult struct {
	Meta struct {
		Currency           string  `json:"currency"`
		Symbol             string  `json:"symbol"`
		ExchangeName       string  `json:"fullExchangeName"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []float64 `json:"open"`
			High   []float64 `json:"high"`
			Low    []float64 `json:"low"`
			Close  []float64 `json:"close"`
			Volume []int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// bars converts the parallel chart arrays into candles, skipping the null
// rows Yahoo pads sessions with.
func (r *chartResult) bars() []domain.Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	quote := r.Indicators.Quote[0]

	var bars []domain.Bar
	for i := range r.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			continue
		}
		if quote.Open[i] == 0 && quote.High[i] == 0 && quote.Low[i] == 0 && quote.Close[i] == 0 {
			continue
		}

		var volume int64
		if i < len(quote.Volume) {
			volume = quote.Volume[i]
		}
		bars = append(bars, domain.Bar{
			Date:   time.Unix(r.Timestamp[i], 0).UTC(),
			Open:   quote.Open[i],
			High:   quote.High[i],
			Low:    quote.Low[i],
			Close:  quote.Close[i],
			Volume: volume,
		})
	}
	return bars
}

func (c *Client) fetchChart(ctx context.Context, symbol, chartRange string) (*chartResult, error) {
	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("range", chartRange)
	reqURL := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo API error: %s (%s)", parsed.Chart.Error.Description, parsed.Chart.Error.Code)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart data returned for %s", symbol)
	}
	return &parsed.Chart.Result[0], nil
}
