// Package staticlist is a compliance provider backed by a local CSV file.
// It needs no API key or network access, which makes it the default for
// development, offline use, and tests.
package staticlist

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/halalscreen/internal/domain"
)

// Stats summarizes the loaded compliance dataset.
type Stats struct {
	Total        int `json:"total"`
	Compliant    int `json:"compliant"`
	NonCompliant int `json:"non_compliant"`
}

// Provider serves verdicts from an in-memory table loaded at startup.
//
// CSV format (header required):
//
//	ticker,is_compliant,reasons,source,last_updated
//	AAPL,true,,manual,2026-01-03
//	JPM,false,Conventional bank,manual,2026-01-03
//
// Reasons are semicolon-separated. Tickers absent from the file return an
// unknown verdict; the data reports what it knows truthfully and nothing
// more.
type Provider struct {
	statuses map[string]domain.ComplianceStatus
	log      zerolog.Logger
}

var requiredColumns = []string{"ticker", "is_compliant", "reasons", "source"}

// New loads the CSV at path. A missing file is not an error: the provider
// starts with an empty dataset and every ticker resolves to unknown.
func New(path string, log zerolog.Logger) (*Provider, error) {
	p := &Provider{
		statuses: make(map[string]domain.ComplianceStatus),
		log:      log.With().Str("provider", "static").Logger(),
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			p.log.Warn().Str("path", path).Msg("Compliance data file not found, all tickers will resolve to unknown")
			return p, nil
		}
		return nil, fmt.Errorf("opening compliance data: %w", err)
	}
	defer f.Close()

	if err := p.load(f); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	p.log.Info().Int("stocks", len(p.statuses)).Str("path", path).Msg("Loaded static compliance data")
	return p, nil
}

func (p *Provider) load(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return fmt.Errorf("missing required column %q", required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.log.Warn().Err(err).Int("line", line).Msg("Skipping malformed CSV row")
			continue
		}

		ticker := strings.ToUpper(field(record, "ticker"))
		if ticker == "" {
			continue
		}

		verdict := domain.VerdictNonCompliant
		if strings.EqualFold(field(record, "is_compliant"), "true") {
			verdict = domain.VerdictCompliant
		}

		var reasons []string
		for _, reason := range strings.Split(field(record, "reasons"), ";") {
			if reason = strings.TrimSpace(reason); reason != "" {
				reasons = append(reasons, reason)
			}
		}

		source := field(record, "source")
		if source == "" {
			source = "static"
		}

		checkedAt := time.Now()
		if raw := field(record, "last_updated"); raw != "" {
			if parsed, perr := time.Parse("2006-01-02", raw); perr == nil {
				checkedAt = parsed
			} else {
				p.log.Warn().Str("ticker", ticker).Str("value", raw).Int("line", line).Msg("Invalid last_updated date")
			}
		}

		p.statuses[ticker] = domain.ComplianceStatus{
			Ticker:    ticker,
			Verdict:   verdict,
			Reasons:   reasons,
			Source:    source,
			CheckedAt: checkedAt,
		}
	}

	return nil
}

// Check looks the symbol up in the in-memory table.
func (p *Provider) Check(_ context.Context, symbol string) (domain.ComplianceStatus, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return domain.ComplianceStatus{}, errors.New("staticlist: symbol cannot be empty")
	}

	if status, ok := p.statuses[symbol]; ok {
		return status, nil
	}
	return domain.UnknownStatus(symbol, p.Name(), "no compliance data available in database"), nil
}

// CheckBatch resolves each symbol against the in-memory table.
func (p *Provider) CheckBatch(ctx context.Context, symbols []string) (map[string]domain.ComplianceStatus, error) {
	results := make(map[string]domain.ComplianceStatus, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		status, err := p.Check(ctx, symbol)
		if err != nil {
			status = domain.UnknownStatus(symbol, p.Name(), "check failed: "+err.Error())
		}
		results[symbol] = status
	}
	return results, nil
}

// Name identifies the provider.
func (p *Provider) Name() string { return "static" }

// GetStats reports dataset counts for the stats endpoint and startup logs.
func (p *Provider) GetStats() Stats {
	stats := Stats{Total: len(p.statuses)}
	for _, status := range p.statuses {
		if status.Verdict == domain.VerdictCompliant {
			stats.Compliant++
		} else {
			stats.NonCompliant++
		}
	}
	return stats
}
