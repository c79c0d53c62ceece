package zoya

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/halalscreen/internal/cache"
	"github.com/aristath/halalscreen/internal/domain"
	"github.com/aristath/halalscreen/internal/ratelimit"
	"github.com/aristath/halalscreen/internal/retry"
)

type reportFixture struct {
	Symbol            string   `json:"symbol"`
	Status            string   `json:"status"`
	PurificationRatio *float64 `json:"purificationRatio"`
}

// newFixtureServer serves canned reports keyed by symbol; absent symbols get
// a null report, mirroring Zoya's not-found behavior.
func newFixtureServer(t *testing.T, reports map[string]reportFixture, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		assert.Equal(t, "sandbox-test-key", r.Header.Get("Authorization"))

		var req struct {
			Variables map[string]string `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var report any
		if fixture, ok := reports[req.Variables["symbol"]]; ok {
			report = fixture
		}
		resp := map[string]any{
			"data": map[string]any{
				"basicCompliance": map[string]any{"report": report},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func ratio(v float64) *float64 { return &v }

func newTestClient(t *testing.T, apiURL string) *Client {
	t.Helper()

	store, err := cache.New(cache.Config{Dir: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	policy := retry.Policy{MaxAttempts: 2, BackoffFactor: 2.0, BaseDelay: time.Millisecond}
	client, err := New(Config{APIKey: "sandbox-test-key", APIURL: apiURL}, store, ratelimit.New(zerolog.Nop()), policy, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, nil, ratelimit.New(zerolog.Nop()), retry.DefaultPolicy(), zerolog.Nop())
	assert.Error(t, err)
}

func TestEnvironmentInference(t *testing.T) {
	limiter := ratelimit.New(zerolog.Nop())

	sandbox, err := New(Config{APIKey: "sandbox-abc"}, nil, limiter, retry.DefaultPolicy(), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "zoya_sandbox", sandbox.Name())
	assert.Equal(t, sandboxURL, sandbox.apiURL)

	live, err := New(Config{APIKey: "live-abc"}, nil, limiter, retry.DefaultPolicy(), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "zoya_live", live.Name())
	assert.Equal(t, liveURL, live.apiURL)

	unprefixed, err := New(Config{APIKey: "abc"}, nil, limiter, retry.DefaultPolicy(), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "zoya_sandbox", unprefixed.Name(), "unrecognized prefix defaults to sandbox")
}

func TestNewConfiguresLimiterBudget(t *testing.T) {
	limiter := ratelimit.New(zerolog.Nop())
	_, err := New(Config{APIKey: "sandbox-abc", RequestsPerHour: 1234}, nil, limiter, retry.DefaultPolicy(), zerolog.Nop())
	require.NoError(t, err)

	tokens, err := limiter.AvailableTokens(limiterResource)
	require.NoError(t, err)
	assert.Equal(t, 1234, tokens, "configured budget reaches the limiter")

	defaulted := ratelimit.New(zerolog.Nop())
	_, err = New(Config{APIKey: "sandbox-abc"}, nil, defaulted, retry.DefaultPolicy(), zerolog.Nop())
	require.NoError(t, err)

	tokens, err = defaulted.AvailableTokens(limiterResource)
	require.NoError(t, err)
	assert.Equal(t, defaultRequestsPerHour, tokens)
}

func TestCheckCompliantWithScore(t *testing.T) {
	server := newFixtureServer(t, map[string]reportFixture{
		"AAPL": {Symbol: "AAPL", Status: "COMPLIANT", PurificationRatio: ratio(0.05)},
	}, nil)
	defer server.Close()

	client := newTestClient(t, server.URL)

	status, err := client.Check(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", status.Ticker)
	assert.Equal(t, domain.VerdictCompliant, status.Verdict)
	require.NotNil(t, status.Score)
	assert.InDelta(t, 95.0, *status.Score, 0.001)
	assert.Equal(t, "zoya_sandbox", status.Source)
}

func TestCheckNonCompliant(t *testing.T) {
	server := newFixtureServer(t, map[string]reportFixture{
		"JPM": {Symbol: "JPM", Status: "NOT_COMPLIANT"},
	}, nil)
	defer server.Close()

	client := newTestClient(t, server.URL)

	status, err := client.Check(context.Background(), "JPM")
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictNonCompliant, status.Verdict)
	assert.Contains(t, status.Reasons, "Non-compliant per Zoya screening")
	assert.Nil(t, status.Score, "zero purification ratio yields no score")
}

func TestCheckQuestionableIsUnknown(t *testing.T) {
	server := newFixtureServer(t, map[string]reportFixture{
		"GREY": {Symbol: "GREY", Status: "QUESTIONABLE"},
	}, nil)
	defer server.Close()

	client := newTestClient(t, server.URL)

	status, err := client.Check(context.Background(), "GREY")
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictUnknown, status.Verdict)
}

func TestCheckNotFoundIsUnknown(t *testing.T) {
	server := newFixtureServer(t, nil, nil)
	defer server.Close()

	client := newTestClient(t, server.URL)

	status, err := client.Check(context.Background(), "OBSCURE")
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictUnknown, status.Verdict)
	assert.Contains(t, status.Reasons, "not found in Zoya database")
}

func TestCheckUsesCacheOnSecondCall(t *testing.T) {
	var hits atomic.Int64
	server := newFixtureServer(t, map[string]reportFixture{
		"AAPL": {Symbol: "AAPL", Status: "COMPLIANT", PurificationRatio: ratio(0.02)},
	}, &hits)
	defer server.Close()

	client := newTestClient(t, server.URL)

	first, err := client.Check(context.Background(), "AAPL")
	require.NoError(t, err)
	second, err := client.Check(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, int64(1), hits.Load(), "second check served from cache")
	assert.Equal(t, first.Verdict, second.Verdict)
}

func TestCheckDegradesToUnknownAfterRetries(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	status, err := client.Check(context.Background(), "AAPL")
	require.NoError(t, err, "exhausted retries degrade to unknown, not an error")
	assert.Equal(t, domain.VerdictUnknown, status.Verdict)
	assert.Equal(t, int64(2), hits.Load(), "each retry attempt reaches the API")

	// Degraded statuses are not cached; the next check tries the API again
	_, err = client.Check(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(4), hits.Load())
}

func TestCheckEmptySymbol(t *testing.T) {
	client := newTestClient(t, "http://unused.invalid")

	_, err := client.Check(context.Background(), "   ")
	assert.Error(t, err)
}

func TestCheckBatch(t *testing.T) {
	server := newFixtureServer(t, map[string]reportFixture{
		"AAPL": {Symbol: "AAPL", Status: "COMPLIANT", PurificationRatio: ratio(0.1)},
		"JPM":  {Symbol: "JPM", Status: "NOT_COMPLIANT"},
	}, nil)
	defer server.Close()

	client := newTestClient(t, server.URL)

	results, err := client.CheckBatch(context.Background(), []string{"AAPL", "JPM", "OBSCURE"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, domain.VerdictCompliant, results["AAPL"].Verdict)
	assert.Equal(t, domain.VerdictNonCompliant, results["JPM"].Verdict)
	assert.Equal(t, domain.VerdictUnknown, results["OBSCURE"].Verdict)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.Verdict
	}{
		{"COMPLIANT", domain.VerdictCompliant},
		{"compliant", domain.VerdictCompliant},
		{"pass", domain.VerdictCompliant},
		{"halal", domain.VerdictCompliant},
		{"NOT_COMPLIANT", domain.VerdictNonCompliant},
		{"non-compliant", domain.VerdictNonCompliant},
		{"fail", domain.VerdictNonCompliant},
		{"haram", domain.VerdictNonCompliant},
		{"QUESTIONABLE", domain.VerdictUnknown},
		{"", domain.VerdictUnknown},
		{"gibberish", domain.VerdictUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseStatus(tt.raw), "status %q", tt.raw)
	}
}
