// Package compliance orchestrates halal screening: it normalizes incoming
// stocks, routes the canonical base symbols to a compliance provider, and
// stitches the provider's verdicts back onto the original tickers with a
// normalization audit trail attached.
package compliance

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/halalscreen/internal/domain"
	"github.com/aristath/halalscreen/internal/normalize"
)

// Service is the compliance orchestrator.
type Service struct {
	normalizer *normalize.Service
	provider   domain.ComplianceProvider
	log        zerolog.Logger
}

// New builds an orchestrator around a normalizer and a provider.
func New(normalizer *normalize.Service, provider domain.ComplianceProvider, log zerolog.Logger) *Service {
	return &Service{
		normalizer: normalizer,
		provider:   provider,
		log:        log.With().Str("service", "compliance").Logger(),
	}
}

// CheckStockCompliance screens a single stock. The stock's exchange, when
// present, feeds the normalizer's hint resolution so suffix-less listings
// (e.g. SAP quoted on FRA) resolve to the right exchange. The returned
// status carries the original ticker and the normalization record, while
// the provider is queried with the canonical base symbol.
func (s *Service) CheckStockCompliance(ctx context.Context, stock domain.Stock) (domain.ComplianceStatus, error) {
	normalized, err := s.normalizer.Normalize(stock.Ticker(), stock.Exchange(), s.provider.Name())
	if err != nil {
		return domain.ComplianceStatus{}, fmt.Errorf("normalizing %q: %w", stock.Ticker(), err)
	}

	if normalized.IsLowConfidence() {
		s.log.Warn().
			Str("ticker", normalized.OriginalTicker).
			Str("base_symbol", normalized.BaseSymbol).
			Msg("Low-confidence normalization, verdict may be for the wrong listing")
	}

	status, err := s.provider.Check(ctx, normalized.BaseSymbol)
	if err != nil {
		return domain.ComplianceStatus{}, fmt.Errorf("checking %s: %w", normalized.BaseSymbol, err)
	}

	status.Ticker = normalized.OriginalTicker
	status.NormalizedFrom = &normalized
	return status, nil
}

// CheckBatchCompliance screens a batch of stocks in one provider round trip.
// Stocks mapping to the same base symbol (e.g. BMW.DE and BMW.F) are
// deduplicated before the provider call and each receives its own copy of
// the shared verdict. Any unparseable ticker fails the whole batch.
func (s *Service) CheckBatchCompliance(ctx context.Context, stocks []domain.Stock) (map[string]domain.ComplianceStatus, error) {
	if len(stocks) == 0 {
		return map[string]domain.ComplianceStatus{}, nil
	}

	normalized := make([]domain.NormalizedSymbol, 0, len(stocks))
	for _, stock := range stocks {
		n, err := s.normalizer.Normalize(stock.Ticker(), stock.Exchange(), s.provider.Name())
		if err != nil {
			return nil, fmt.Errorf("normalizing %q: %w", stock.Ticker(), err)
		}
		normalized = append(normalized, n)
	}

	// Unique base symbols in first-seen order
	seen := make(map[string]struct{}, len(normalized))
	symbols := make([]string, 0, len(normalized))
	for _, n := range normalized {
		if _, ok := seen[n.BaseSymbol]; ok {
			continue
		}
		seen[n.BaseSymbol] = struct{}{}
		symbols = append(symbols, n.BaseSymbol)
	}

	s.log.Debug().
		Int("stocks", len(stocks)).
		Int("unique_symbols", len(symbols)).
		Msg("Checking batch compliance")

	results, err := s.provider.CheckBatch(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("batch check of %d symbols: %w", len(symbols), err)
	}

	out := make(map[string]domain.ComplianceStatus, len(normalized))
	for i := range normalized {
		n := normalized[i]

		status, ok := results[n.BaseSymbol]
		if !ok {
			status = domain.UnknownStatus(n.BaseSymbol, s.provider.Name(), "no result from provider")
		}

		status.Ticker = n.OriginalTicker
		status.NormalizedFrom = &n
		out[n.OriginalTicker] = status
	}
	return out, nil
}

// FilterCompliant returns the tickers allowed through the screen, in input
// order and with the caller's spelling. Conservative mode admits only
// verified-compliant stocks; permissive mode excludes only
// verified-non-compliant ones, letting unknowns through.
func (s *Service) FilterCompliant(ctx context.Context, stocks []domain.Stock, conservative bool) ([]string, error) {
	statuses, err := s.CheckBatchCompliance(ctx, stocks)
	if err != nil {
		return nil, err
	}

	kept := make([]string, 0, len(stocks))
	for _, stock := range stocks {
		// Statuses are keyed by the normalized original ticker
		status := statuses[strings.ToUpper(strings.TrimSpace(stock.Ticker()))]

		if conservative {
			if status.Verdict == domain.VerdictCompliant {
				kept = append(kept, stock.Ticker())
			}
		} else if status.Verdict != domain.VerdictNonCompliant {
			kept = append(kept, stock.Ticker())
		}
	}

	s.log.Info().
		Int("input", len(stocks)).
		Int("kept", len(kept)).
		Bool("conservative", conservative).
		Msg("Filtered stocks by compliance")

	return kept, nil
}

// Summarize screens a batch and aggregates verdict counts plus score
// statistics over the stocks that carry a provider score.
func (s *Service) Summarize(ctx context.Context, stocks []domain.Stock) (domain.ComplianceSummary, error) {
	statuses, err := s.CheckBatchCompliance(ctx, stocks)
	if err != nil {
		return domain.ComplianceSummary{}, err
	}

	summary := domain.ComplianceSummary{Total: len(statuses)}
	var scores []float64
	for _, status := range statuses {
		switch status.Verdict {
		case domain.VerdictCompliant:
			summary.Compliant++
		case domain.VerdictNonCompliant:
			summary.NonCompliant++
		default:
			summary.Unknown++
		}
		if status.Score != nil {
			scores = append(scores, *status.Score)
		}
	}

	if len(scores) > 0 {
		sort.Float64s(scores)
		mean := stat.Mean(scores, nil)
		median := stat.Quantile(0.5, stat.Empirical, scores, nil)
		summary.MeanScore = &mean
		summary.MedianScore = &median
	}

	return summary, nil
}
