package domain

import "context"

// ComplianceProvider is the capability the orchestrator consumes. Gateways
// implementing it are expected to consult their cache first, then their rate
// limiter, then the network - callers never deal with either directly.
type ComplianceProvider interface {
	// Check returns the compliance status for a single base symbol. Providers
	// degrade recoverable failures (network, missing data) to an unknown
	// status; an error is returned only for unrecoverable conditions such as
	// malformed credentials or an empty symbol.
	Check(ctx context.Context, symbol string) (ComplianceStatus, error)

	// CheckBatch returns statuses keyed by base symbol. A failure for one
	// symbol degrades that entry to unknown and never aborts its siblings.
	CheckBatch(ctx context.Context, symbols []string) (map[string]ComplianceStatus, error)

	// Name identifies the provider (e.g. "zoya_sandbox", "static").
	Name() string
}

// MarketDataProvider supplies the ticker/exchange pairs and prices the
// screening pipeline consumes.
type MarketDataProvider interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
	GetDailyBars(ctx context.Context, symbol string, days int) ([]Bar, error)
	Name() string
}
