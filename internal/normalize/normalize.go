// Package normalize maps provider-specific ticker symbols to a canonical
// base symbol with exchange metadata, confidence scoring, and an audit
// trail. Compliance providers index by bare symbol ("BMW") while market
// data providers use suffixed listings ("BMW.DE"); this package is the
// bridge between the two symbol spaces.
//
// Normalization is pure: it consults static tables only, performs no
// network or cache access, and produces a fresh NormalizedSymbol on every
// call.
package normalize

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/halalscreen/internal/domain"
)

// ErrEmptyTicker is returned when the ticker is empty or whitespace-only.
var ErrEmptyTicker = errors.New("ticker cannot be empty")

// Service normalizes ticker symbols between provider formats.
type Service struct {
	suffixMap      map[string]domain.ExchangeMapping // suffix -> mapping
	bloombergMap   map[string]domain.ExchangeMapping // Bloomberg code -> mapping
	sortedSuffixes []string                          // longest first, so ".SS" wins over ".S"
	log            zerolog.Logger
}

// New builds a normalizer with the static exchange tables pre-indexed.
func New(log zerolog.Logger) *Service {
	s := &Service{
		suffixMap:    make(map[string]domain.ExchangeMapping, len(exchangeMappings)),
		bloombergMap: make(map[string]domain.ExchangeMapping, len(exchangeMappings)),
		log:          log.With().Str("service", "normalize").Logger(),
	}

	for _, m := range exchangeMappings {
		s.suffixMap[m.Suffix] = m
		s.bloombergMap[m.BloombergCode] = m
		s.sortedSuffixes = append(s.sortedSuffixes, m.Suffix)
	}

	// Longest suffix first so ".SS" is never pre-empted by ".S"
	sort.Slice(s.sortedSuffixes, func(i, j int) bool {
		return len(s.sortedSuffixes[i]) > len(s.sortedSuffixes[j])
	})

	s.log.Info().
		Int("exchange_mappings", len(s.suffixMap)).
		Msg("Initialized symbol normalizer")

	return s
}

// Normalize maps a provider-specific ticker to a canonical base symbol.
//
// Priority order:
//  1. uppercase and trim
//  2. preserve-set suffixes (share classes, preferreds, warrants, rights,
//     units) are kept as part of the symbol
//  3. longest known exchange suffix is stripped
//  4. the exchange hint is resolved (exact Bloomberg code, US alias,
//     exchange-name substring)
//  5. no suffix and no hint: assume US market
//
// Every branch appends a human-readable note to the audit trail. The only
// error condition is an empty or whitespace-only ticker.
func (s *Service) Normalize(ticker, exchangeHint, sourceProvider string) (domain.NormalizedSymbol, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return domain.NormalizedSymbol{}, ErrEmptyTicker
	}

	var notes []string

	if suffix := s.preservedSuffix(ticker); suffix != "" {
		notes = append(notes, "Preserved special suffix: "+suffix)

		exchangeCode := ""
		region := domain.RegionUS
		if exchangeHint != "" {
			exchangeCode = s.resolveExchangeHint(exchangeHint)
			region = domain.RegionOther
		}

		return domain.NormalizedSymbol{
			BaseSymbol:     ticker,
			OriginalTicker: ticker,
			ExchangeCode:   exchangeCode,
			Region:         region,
			Confidence:     domain.ConfidenceHigh,
			Notes:          notes,
			Timestamp:      time.Now(),
			SourceProvider: sourceProvider,
		}, nil
	}

	if suffix := s.exchangeSuffix(ticker); suffix != "" {
		mapping := s.suffixMap[suffix]
		notes = append(notes, "Removed "+suffix+" suffix → "+mapping.ExchangeName)

		return domain.NormalizedSymbol{
			BaseSymbol:     strings.TrimSuffix(ticker, suffix),
			OriginalTicker: ticker,
			ExchangeCode:   mapping.BloombergCode,
			Region:         mapping.Region,
			Confidence:     domain.ConfidenceHigh,
			Notes:          notes,
			Timestamp:      time.Now(),
			SourceProvider: sourceProvider,
		}, nil
	}

	// No suffix: likely a US stock or an unknown format
	exchangeCode := ""
	region := domain.RegionUS
	confidence := domain.ConfidenceHigh

	if exchangeHint != "" {
		region = domain.RegionOther
		if resolved := s.resolveExchangeHint(exchangeHint); resolved != "" {
			notes = append(notes, "Mapped exchange code: "+exchangeHint+" → "+resolved)
			exchangeCode = resolved
		} else {
			notes = append(notes, "Unknown exchange code: "+exchangeHint)
			exchangeCode = strings.ToUpper(strings.TrimSpace(exchangeHint))
			confidence = domain.ConfidenceMedium
		}
	} else {
		notes = append(notes, "No suffix or exchange - assuming US market")
	}

	return domain.NormalizedSymbol{
		BaseSymbol:     ticker,
		OriginalTicker: ticker,
		ExchangeCode:   exchangeCode,
		Region:         region,
		Confidence:     confidence,
		Notes:          notes,
		Timestamp:      time.Now(),
		SourceProvider: sourceProvider,
	}, nil
}

// BaseSymbol strips a known exchange suffix, keeping preserved suffixes.
func (s *Service) BaseSymbol(ticker string) string {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if s.preservedSuffix(ticker) != "" {
		return ticker
	}
	if suffix := s.exchangeSuffix(ticker); suffix != "" {
		return strings.TrimSuffix(ticker, suffix)
	}
	return ticker
}

// ExchangeFromSuffix returns the Bloomberg-style code for a suffixed
// ticker, or empty when no known suffix is present.
func (s *Service) ExchangeFromSuffix(ticker string) string {
	if suffix := s.exchangeSuffix(strings.ToUpper(ticker)); suffix != "" {
		return s.suffixMap[suffix].BloombergCode
	}
	return ""
}

// SupportedExchanges returns a copy of the exchange mapping table.
func (s *Service) SupportedExchanges() []domain.ExchangeMapping {
	out := make([]domain.ExchangeMapping, len(exchangeMappings))
	copy(out, exchangeMappings)
	return out
}

// ExchangeInfo looks up an exchange mapping by ticker suffix or by
// Bloomberg code. Returns nil when neither matches.
func (s *Service) ExchangeInfo(suffixOrCode string) *domain.ExchangeMapping {
	suffixOrCode = strings.ToUpper(suffixOrCode)

	if m, ok := s.suffixMap[suffixOrCode]; ok {
		return &m
	}
	if m, ok := s.bloombergMap[suffixOrCode]; ok {
		return &m
	}
	return nil
}

// exchangeSuffix returns the longest known exchange suffix on the ticker.
func (s *Service) exchangeSuffix(ticker string) string {
	for _, suffix := range s.sortedSuffixes {
		if strings.HasSuffix(ticker, suffix) {
			return suffix
		}
	}
	return ""
}

// preservedSuffix returns the special suffix the ticker ends with, if any.
func (s *Service) preservedSuffix(ticker string) string {
	for suffix := range preserveSuffixes {
		if strings.HasSuffix(ticker, suffix) {
			return suffix
		}
	}
	return ""
}

// resolveExchangeHint maps a provider exchange code to a Bloomberg-style
// code: exact Bloomberg match first, then the US alias table, then a
// substring match against known exchange names. Empty when unknown.
func (s *Service) resolveExchangeHint(hint string) string {
	hint = strings.ToUpper(strings.TrimSpace(hint))

	if _, ok := s.bloombergMap[hint]; ok {
		return hint
	}
	if code, ok := usExchangeCodes[hint]; ok {
		return code
	}
	for code, mapping := range s.bloombergMap {
		if strings.Contains(strings.ToUpper(mapping.ExchangeName), hint) {
			return code
		}
	}
	return ""
}
