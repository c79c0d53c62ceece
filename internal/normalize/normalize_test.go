package normalize

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/halalscreen/internal/domain"
)

func newService() *Service {
	return New(zerolog.Nop())
}

func TestNormalizeExchangeSuffixes(t *testing.T) {
	s := newService()

	tests := []struct {
		name         string
		ticker       string
		wantBase     string
		wantExchange string
		wantRegion   domain.MarketRegion
	}{
		{name: "Xetra", ticker: "BMW.DE", wantBase: "BMW", wantExchange: "XETR", wantRegion: domain.RegionEU},
		{name: "Frankfurt", ticker: "BMW.F", wantBase: "BMW", wantExchange: "XFRA", wantRegion: domain.RegionEU},
		{name: "London", ticker: "HSBA.L", wantBase: "HSBA", wantExchange: "XLON", wantRegion: domain.RegionUK},
		{name: "Paris", ticker: "AIR.PA", wantBase: "AIR", wantExchange: "XPAR", wantRegion: domain.RegionEU},
		{name: "Hong Kong", ticker: "0700.HK", wantBase: "0700", wantExchange: "XHKG", wantRegion: domain.RegionAsia},
		{name: "Tokyo", ticker: "7203.T", wantBase: "7203", wantExchange: "XTKS", wantRegion: domain.RegionAsia},
		{name: "Toronto", ticker: "SHOP.TO", wantBase: "SHOP", wantExchange: "XTSE", wantRegion: domain.RegionOther},
		{name: "lowercase input", ticker: "bmw.de", wantBase: "BMW", wantExchange: "XETR", wantRegion: domain.RegionEU},
		{name: "surrounding whitespace", ticker: "  BMW.DE  ", wantBase: "BMW", wantExchange: "XETR", wantRegion: domain.RegionEU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Normalize(tt.ticker, "", "yfinance")
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, got.BaseSymbol)
			assert.Equal(t, tt.wantExchange, got.ExchangeCode)
			assert.Equal(t, tt.wantRegion, got.Region)
			assert.Equal(t, domain.ConfidenceHigh, got.Confidence)
			assert.NotEmpty(t, got.Notes)
		})
	}
}

func TestNormalizePreservedSuffixes(t *testing.T) {
	s := newService()

	tests := []struct {
		name   string
		ticker string
	}{
		{name: "share class A", ticker: "BRK.A"},
		{name: "share class B", ticker: "BRK.B"},
		{name: "preferred dash", ticker: "BAC-A"},
		{name: "warrant", ticker: "SPCE.WS"},
		{name: "unit", ticker: "IPOF.UN"},
		{name: "right", ticker: "ABCD.RT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Normalize(tt.ticker, "", "yfinance")
			require.NoError(t, err)
			assert.Equal(t, tt.ticker, got.BaseSymbol, "preserved suffix must stay part of the symbol")
			assert.Equal(t, domain.ConfidenceHigh, got.Confidence)
			assert.Contains(t, got.Notes[0], "Preserved special suffix")
		})
	}
}

// ".A" is both a share-class marker and a plausible exchange-style suffix;
// the preserve set must win the tie.
func TestPreserveSetWinsOverSuffixMatching(t *testing.T) {
	s := newService()

	got, err := s.Normalize("BRK.A", "", "yfinance")
	require.NoError(t, err)
	assert.Equal(t, "BRK.A", got.BaseSymbol)
	assert.Empty(t, got.ExchangeCode)
}

func TestNormalizeBareUSTicker(t *testing.T) {
	s := newService()

	got, err := s.Normalize("AAPL", "", "yfinance")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.BaseSymbol)
	assert.Equal(t, domain.RegionUS, got.Region)
	assert.Equal(t, domain.ConfidenceHigh, got.Confidence)
	assert.Contains(t, got.Notes[0], "assuming US market")
}

func TestNormalizeIsIdempotentOnBareTickers(t *testing.T) {
	s := newService()

	first, err := s.Normalize("MSFT", "", "yfinance")
	require.NoError(t, err)
	second, err := s.Normalize(first.BaseSymbol, "", "yfinance")
	require.NoError(t, err)
	assert.Equal(t, first.BaseSymbol, second.BaseSymbol)
}

func TestNormalizeWithExchangeHint(t *testing.T) {
	s := newService()

	tests := []struct {
		name           string
		hint           string
		wantExchange   string
		wantConfidence domain.Confidence
	}{
		{name: "exact Bloomberg code", hint: "XETR", wantExchange: "XETR", wantConfidence: domain.ConfidenceHigh},
		{name: "US alias NASDAQ", hint: "NASDAQ", wantExchange: "XNGS", wantConfidence: domain.ConfidenceHigh},
		{name: "US alias NYQ", hint: "NYQ", wantExchange: "XNYS", wantConfidence: domain.ConfidenceHigh},
		{name: "exchange name substring", hint: "XETRA", wantExchange: "XETR", wantConfidence: domain.ConfidenceHigh},
		{name: "unknown code kept verbatim", hint: "ZZZZ", wantExchange: "ZZZZ", wantConfidence: domain.ConfidenceMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Normalize("SAP", tt.hint, "universe")
			require.NoError(t, err)
			assert.Equal(t, tt.wantExchange, got.ExchangeCode)
			assert.Equal(t, tt.wantConfidence, got.Confidence)
		})
	}
}

func TestNormalizeEmptyTicker(t *testing.T) {
	s := newService()

	_, err := s.Normalize("", "", "yfinance")
	assert.ErrorIs(t, err, ErrEmptyTicker)

	_, err = s.Normalize("   ", "", "yfinance")
	assert.ErrorIs(t, err, ErrEmptyTicker)
}

func TestNormalizeAuditFields(t *testing.T) {
	s := newService()

	got, err := s.Normalize("BMW.DE", "", "universe")
	require.NoError(t, err)
	assert.Equal(t, "BMW.DE", got.OriginalTicker)
	assert.Equal(t, "universe", got.SourceProvider)
	assert.False(t, got.Timestamp.IsZero())
}

func TestBaseSymbol(t *testing.T) {
	s := newService()

	assert.Equal(t, "BMW", s.BaseSymbol("BMW.DE"))
	assert.Equal(t, "BRK.A", s.BaseSymbol("BRK.A"))
	assert.Equal(t, "AAPL", s.BaseSymbol("AAPL"))
}

func TestExchangeFromSuffix(t *testing.T) {
	s := newService()

	assert.Equal(t, "XETR", s.ExchangeFromSuffix("BMW.DE"))
	assert.Equal(t, "", s.ExchangeFromSuffix("AAPL"))
}

func TestExchangeInfo(t *testing.T) {
	s := newService()

	bySuffix := s.ExchangeInfo(".DE")
	require.NotNil(t, bySuffix)
	assert.Equal(t, "XETR", bySuffix.BloombergCode)

	byCode := s.ExchangeInfo("XLON")
	require.NotNil(t, byCode)
	assert.Equal(t, ".L", byCode.Suffix)

	assert.Nil(t, s.ExchangeInfo(".ZZ"))
}

func TestSupportedExchangesIsACopy(t *testing.T) {
	s := newService()

	mappings := s.SupportedExchanges()
	require.NotEmpty(t, mappings)
	mappings[0].BloombergCode = "MUTATED"

	fresh := s.SupportedExchanges()
	assert.NotEqual(t, "MUTATED", fresh[0].BloombergCode)
}
