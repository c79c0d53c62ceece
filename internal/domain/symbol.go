package domain

import (
	"fmt"
	"strings"
	"time"
)

// Confidence rates how certain a symbol normalization is.
type Confidence string

const (
	// ConfidenceHigh - known mapping, widely used exchange
	ConfidenceHigh Confidence = "HIGH"
	// ConfidenceMedium - reasonable inference, less common exchange
	ConfidenceMedium Confidence = "MEDIUM"
	// ConfidenceLow - uncertain mapping, may require manual review
	ConfidenceLow Confidence = "LOW"
)

// MarketRegion classifies the market a listing trades in.
type MarketRegion string

const (
	RegionUS    MarketRegion = "US"
	RegionEU    MarketRegion = "EU"
	RegionUK    MarketRegion = "UK"
	RegionAsia  MarketRegion = "ASIA"
	RegionOther MarketRegion = "OTHER"
)

// NormalizedSymbol is the audit record of a single symbol normalization.
// It is produced fresh on every call and never mutated afterwards, so the
// audit trail attached to a compliance status stays trustworthy.
type NormalizedSymbol struct {
	BaseSymbol     string       `json:"base_symbol" msgpack:"base_symbol"`
	OriginalTicker string       `json:"original_ticker" msgpack:"original_ticker"`
	ExchangeCode   string       `json:"exchange_code,omitempty" msgpack:"exchange_code"` // Bloomberg-style MIC, empty when unknown
	Region         MarketRegion `json:"region" msgpack:"region"`
	Confidence     Confidence   `json:"confidence" msgpack:"confidence"`
	Notes          []string     `json:"notes" msgpack:"notes"`
	Timestamp      time.Time    `json:"timestamp" msgpack:"timestamp"`
	SourceProvider string       `json:"source_provider" msgpack:"source_provider"`
}

// IsHighConfidence reports whether the normalization is high confidence.
func (n NormalizedSymbol) IsHighConfidence() bool {
	return n.Confidence == ConfidenceHigh
}

// IsLowConfidence reports whether the normalization may need manual review.
func (n NormalizedSymbol) IsLowConfidence() bool {
	return n.Confidence == ConfidenceLow
}

// Summary returns a one-line human-readable description of the transformation.
func (n NormalizedSymbol) Summary() string {
	notes := "No transformation"
	if len(n.Notes) > 0 {
		notes = strings.Join(n.Notes, "; ")
	}
	exchange := ""
	if n.ExchangeCode != "" {
		exchange = fmt.Sprintf(" [%s]", n.ExchangeCode)
	}
	return fmt.Sprintf("%s → %s%s (%s: %s)", n.OriginalTicker, n.BaseSymbol, exchange, n.Confidence, notes)
}

// ExchangeMapping links a ticker suffix to exchange metadata.
type ExchangeMapping struct {
	Suffix        string       `json:"suffix"`         // yfinance-style suffix (e.g. ".DE", ".L")
	BloombergCode string       `json:"bloomberg_code"` // Bloomberg-style MIC (e.g. "XETR", "XLON")
	ExchangeName  string       `json:"exchange_name"`  // human-readable name
	Region        MarketRegion `json:"region"`         // geographic region
	CountryCode   string       `json:"country_code"`   // ISO country code (e.g. "DE", "GB")
}

func (m ExchangeMapping) String() string {
	return fmt.Sprintf("%s → %s (%s)", m.Suffix, m.BloombergCode, m.ExchangeName)
}
