// Package zoya is a compliance provider backed by the Zoya Finance GraphQL
// API. Results are cached for 30 days (compliance verdicts rarely change)
// and every network call goes through the shared rate limiter under the
// "zoya" resource.
package zoya

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/halalscreen/internal/cache"
	"github.com/aristath/halalscreen/internal/domain"
	"github.com/aristath/halalscreen/internal/ratelimit"
	"github.com/aristath/halalscreen/internal/retry"
)

const (
	sandboxURL = "https://sandbox-api.zoya.finance/graphql"
	liveURL    = "https://api.zoya.finance/graphql"

	// 10 requests per second
	defaultRequestsPerHour = 36000

	limiterResource = "zoya"
	requestTimeout  = 30 * time.Second
	batchWorkers    = 4
)

var errMissingAPIKey = errors.New("zoya: API key is required")

// Config carries the Zoya connection settings.
type Config struct {
	APIKey          string        // "sandbox-..." or "live-..."
	APIURL          string        // optional endpoint override
	CacheTTL        time.Duration // verdict cache lifetime, default 30 days
	RequestsPerHour int           // rate limit budget, default 36000
}

// Client implements domain.ComplianceProvider against the Zoya API.
type Client struct {
	apiKey      string
	apiURL      string
	environment string
	cacheTTL    time.Duration

	store   *cache.Store
	limiter *ratelimit.Limiter
	policy  retry.Policy
	http    *http.Client
	log     zerolog.Logger
}

// New builds a Zoya client. The environment is inferred from the API key
// prefix; unrecognized prefixes fall back to sandbox. The limiter resource
// is configured here so callers only wire the shared limiter.
func New(cfg Config, store *cache.Store, limiter *ratelimit.Limiter, policy retry.Policy, log zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errMissingAPIKey
	}

	environment := "sandbox"
	switch {
	case strings.HasPrefix(cfg.APIKey, "sandbox-"):
	case strings.HasPrefix(cfg.APIKey, "live-"):
		environment = "live"
	default:
		log.Warn().Msg("Could not infer Zoya environment from API key prefix, defaulting to sandbox")
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = sandboxURL
		if environment == "live" {
			apiURL = liveURL
		}
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * 24 * time.Hour
	}

	requestsPerHour := cfg.RequestsPerHour
	if requestsPerHour <= 0 {
		requestsPerHour = defaultRequestsPerHour
	}
	limiter.Configure(limiterResource, requestsPerHour)

	c := &Client{
		apiKey:      cfg.APIKey,
		apiURL:      apiURL,
		environment: environment,
		cacheTTL:    cacheTTL,
		store:       store,
		limiter:     limiter,
		policy:      policy,
		http:        &http.Client{Timeout: requestTimeout},
		log:         log.With().Str("provider", "zoya").Str("environment", environment).Logger(),
	}

	c.log.Info().Str("api_url", apiURL).Msg("Initialized Zoya compliance client")
	return c, nil
}

// Name identifies the provider including its environment, e.g. "zoya_sandbox".
func (c *Client) Name() string {
	return "zoya_" + c.environment
}

// Check returns the Zoya verdict for a base symbol. Cache first, then the
// API with retries; exhausted retries degrade to an unknown status rather
// than an error so one flaky symbol never aborts a screening run.
func (c *Client) Check(ctx context.Context, symbol string) (domain.ComplianceStatus, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return domain.ComplianceStatus{}, errors.New("zoya: symbol cannot be empty")
	}

	cacheKey := c.cacheKey(symbol)
	var cached domain.ComplianceStatus
	if c.store != nil && c.store.GetObject(cacheKey, &cached) {
		c.log.Debug().Str("symbol", symbol).Msg("Compliance cache hit")
		return cached, nil
	}

	var status domain.ComplianceStatus
	err := c.policy.Do(ctx, c.log, "zoya check "+symbol, func() error {
		if err := c.limiter.Acquire(ctx, limiterResource); err != nil {
			return err
		}
		var fetchErr error
		status, fetchErr = c.fetchReport(ctx, symbol)
		return fetchErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return domain.ComplianceStatus{}, ctx.Err()
		}
		c.log.Error().Err(err).Str("symbol", symbol).Msg("Compliance check failed after retries")
		return domain.UnknownStatus(symbol, c.Name(), "network error after retries: "+err.Error()), nil
	}

	if c.store != nil {
		c.store.SetObject(cacheKey, status, c.cacheTTL)
	}
	return status, nil
}

// CheckBatch fans single checks out over a small worker pool. Failures for
// one symbol degrade that entry to unknown and never abort the batch.
func (c *Client) CheckBatch(ctx context.Context, symbols []string) (map[string]domain.ComplianceStatus, error) {
	results := make(map[string]domain.ComplianceStatus, len(symbols))
	if len(symbols) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchWorkers)

	for _, symbol := range symbols {
		symbol := strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		g.Go(func() error {
			status, err := c.Check(gctx, symbol)
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				status = domain.UnknownStatus(symbol, c.Name(), "check failed: "+err.Error())
			}
			mu.Lock()
			results[symbol] = status
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.log.Info().Int("symbols", len(symbols)).Msg("Batch compliance check completed")
	return results, nil
}

func (c *Client) cacheKey(symbol string) string {
	return fmt.Sprintf("compliance:zoya:%s:%s", c.environment, symbol)
}

const reportQuery = `query BasicReport($symbol: String!) {
  basicCompliance {
    report(symbol: $symbol) {
      symbol
      name
      exchange
      status
      reportDate
      purificationRatio
    }
  }
}`

type graphqlRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables"`
}

type graphqlResponse struct {
	Data struct {
		BasicCompliance struct {
			Report *complianceReport `json:"report"`
		} `json:"basicCompliance"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type complianceReport struct {
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	Exchange          string   `json:"exchange"`
	Status            string   `json:"status"`
	ReportDate        string   `json:"reportDate"`
	PurificationRatio *float64 `json:"purificationRatio"`
}

// fetchReport executes one GraphQL round trip. Transport failures, non-200
// responses, and GraphQL errors are returned as errors (retryable); a
// well-formed response yields a status, with absent reports mapping to
// unknown.
func (c *Client) fetchReport(ctx context.Context, symbol string) (domain.ComplianceStatus, error) {
	payload, err := json.Marshal(graphqlRequest{
		Query:     reportQuery,
		Variables: map[string]string{"symbol": symbol},
	})
	if err != nil {
		return domain.ComplianceStatus{}, fmt.Errorf("encoding query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return domain.ComplianceStatus{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ComplianceStatus{}, fmt.Errorf("zoya request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.ComplianceStatus{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.ComplianceStatus{}, fmt.Errorf("zoya API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var gql graphqlResponse
	if err := json.Unmarshal(body, &gql); err != nil {
		return domain.ComplianceStatus{}, fmt.Errorf("decoding response: %w", err)
	}
	if len(gql.Errors) > 0 {
		// Returned as an error so the verdict is retried and, on
		// exhaustion, degraded without being cached for 30 days
		return domain.ComplianceStatus{}, fmt.Errorf("graphql error: %s", gql.Errors[0].Message)
	}

	report := gql.Data.BasicCompliance.Report
	if report == nil {
		c.log.Debug().Str("symbol", symbol).Msg("Symbol not found in Zoya")
		return domain.UnknownStatus(symbol, c.Name(), "not found in Zoya database"), nil
	}

	verdict := parseStatus(report.Status)

	var reasons []string
	if verdict == domain.VerdictNonCompliant {
		reasons = append(reasons, "Non-compliant per Zoya screening")
	}

	// Score is 100 minus the purification percentage; a missing or zero
	// ratio means the provider gave no usable figure.
	var score *float64
	if report.PurificationRatio != nil && *report.PurificationRatio != 0 {
		s := 100.0 - *report.PurificationRatio*100.0
		score = &s
	}

	return domain.ComplianceStatus{
		Ticker:    symbol,
		Verdict:   verdict,
		Score:     score,
		Reasons:   reasons,
		Source:    c.Name(),
		CheckedAt: time.Now(),
	}, nil
}

// parseStatus maps Zoya's status strings to a verdict. The API returns
// uppercase underscore-separated values ("NOT_COMPLIANT"); "questionable"
// and anything unrecognized map to unknown.
func parseStatus(raw string) domain.Verdict {
	normalized := strings.ToLower(strings.ReplaceAll(raw, "_", "-"))
	switch normalized {
	case "compliant", "pass", "halal":
		return domain.VerdictCompliant
	case "not-compliant", "non-compliant", "fail", "haram":
		return domain.VerdictNonCompliant
	default:
		return domain.VerdictUnknown
	}
}
