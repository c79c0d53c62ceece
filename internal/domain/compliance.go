package domain

import (
	"fmt"
	"strings"
	"time"
)

// Verdict is the tri-state halal compliance result. A stock is only ever
// verified compliant, verified non-compliant, or unknown - the verdict is
// never inferred outside the provider/cache boundary.
type Verdict string

const (
	VerdictCompliant    Verdict = "compliant"
	VerdictNonCompliant Verdict = "non_compliant"
	VerdictUnknown      Verdict = "unknown"
)

// Known reports whether the verdict carries actual compliance data.
func (v Verdict) Known() bool {
	return v == VerdictCompliant || v == VerdictNonCompliant
}

// ComplianceStatus is the screening result for a single stock.
type ComplianceStatus struct {
	Ticker         string            `json:"ticker" msgpack:"ticker"`
	Verdict        Verdict           `json:"verdict" msgpack:"verdict"`
	Score          *float64          `json:"score,omitempty" msgpack:"score"` // provider score, 0-100
	Reasons        []string          `json:"reasons,omitempty" msgpack:"reasons"`
	Source         string            `json:"source" msgpack:"source"`
	CheckedAt      time.Time         `json:"checked_at" msgpack:"checked_at"`
	NormalizedFrom *NormalizedSymbol `json:"normalized_from,omitempty" msgpack:"normalized_from"` // audit trail, attached by the orchestrator
}

// UnknownStatus builds a degraded status for tickers the system could not verify.
func UnknownStatus(ticker, source string, reasons ...string) ComplianceStatus {
	return ComplianceStatus{
		Ticker:    strings.ToUpper(strings.TrimSpace(ticker)),
		Verdict:   VerdictUnknown,
		Reasons:   reasons,
		Source:    source,
		CheckedAt: time.Now(),
	}
}

// Summary returns a human-readable one-liner for display and logs.
func (s ComplianceStatus) Summary() string {
	switch s.Verdict {
	case VerdictCompliant:
		if s.Score != nil {
			return fmt.Sprintf("compliant (score %.1f/100)", *s.Score)
		}
		return "compliant"
	case VerdictNonCompliant:
		if len(s.Reasons) > 0 {
			return "non-compliant: " + strings.Join(s.Reasons, ", ")
		}
		return "non-compliant"
	default:
		if len(s.Reasons) > 0 {
			return "unknown: " + strings.Join(s.Reasons, ", ")
		}
		return "unknown: no data available"
	}
}

// ComplianceSummary aggregates verdict counts over a batch of stocks.
type ComplianceSummary struct {
	Total        int      `json:"total"`
	Compliant    int      `json:"compliant"`
	NonCompliant int      `json:"non_compliant"`
	Unknown      int      `json:"unknown"`
	MeanScore    *float64 `json:"mean_score,omitempty"`   // over stocks that carry a provider score
	MedianScore  *float64 `json:"median_score,omitempty"` // over stocks that carry a provider score
}
