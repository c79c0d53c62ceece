package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/halalscreen/internal/domain"
	"github.com/aristath/halalscreen/internal/normalize"
	"github.com/aristath/halalscreen/internal/ratelimit"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var timeout *ratelimit.TimeoutError
	switch {
	case errors.Is(err, normalize.ErrEmptyTicker):
		return http.StatusBadRequest
	case errors.As(err, &timeout):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// stockRequest is one batch entry. The exchange is an optional hint for
// suffix-less tickers quoted away from US markets.
type stockRequest struct {
	Ticker   string `json:"ticker"`
	Exchange string `json:"exchange,omitempty"`
}

type screenRequest struct {
	Tickers      []string       `json:"tickers,omitempty"`
	Stocks       []stockRequest `json:"stocks,omitempty"`
	Conservative *bool          `json:"conservative,omitempty"`
}

// decodeStocks accepts either plain tickers or {ticker, exchange} objects
// and returns them as Stock values ready for the orchestrator.
func (s *Server) decodeStocks(w http.ResponseWriter, r *http.Request) ([]domain.Stock, *screenRequest, bool) {
	var req screenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return nil, nil, false
	}
	if len(req.Tickers) == 0 && len(req.Stocks) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("tickers list cannot be empty"))
		return nil, nil, false
	}

	stocks := make([]domain.Stock, 0, len(req.Tickers)+len(req.Stocks))
	for _, ticker := range req.Tickers {
		stocks = append(stocks, domain.Security{Symbol: ticker})
	}
	for _, stock := range req.Stocks {
		stocks = append(stocks, domain.Security{Symbol: stock.Ticker, ExchangeCode: stock.Exchange})
	}
	return stocks, &req, true
}

// handleHealth reports service and host health
// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":     "ok",
		"timestamp":  time.Now().UTC(),
		"goroutines": runtime.NumGoroutine(),
	}

	if memStat, err := mem.VirtualMemory(); err == nil {
		response["memory_used_percent"] = memStat.UsedPercent
	}
	if diskStat, err := disk.Usage(s.cacheDir); err == nil {
		response["disk_used_percent"] = diskStat.UsedPercent
	}
	if s.cache != nil {
		response["cache"] = s.cache.GetStats()
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleCheckCompliance screens a single ticker
// GET /api/compliance/{ticker}?exchange=FRA
func (s *Server) handleCheckCompliance(w http.ResponseWriter, r *http.Request) {
	stock := domain.Security{
		Symbol:       chi.URLParam(r, "ticker"),
		ExchangeCode: r.URL.Query().Get("exchange"),
	}

	status, err := s.compliance.CheckStockCompliance(r.Context(), stock)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// handleBatchCompliance screens a batch of tickers in one round trip
// POST /api/compliance/batch
func (s *Server) handleBatchCompliance(w http.ResponseWriter, r *http.Request) {
	stocks, _, ok := s.decodeStocks(w, r)
	if !ok {
		return
	}

	runID := uuid.New().String()
	s.log.Info().Str("run_id", runID).Int("tickers", len(stocks)).Msg("Batch screening run started")

	statuses, err := s.compliance.CheckBatchCompliance(r.Context(), stocks)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":   runID,
		"statuses": statuses,
	})
}

// handleFilterCompliant returns the tickers that pass the screen
// POST /api/compliance/filter
func (s *Server) handleFilterCompliant(w http.ResponseWriter, r *http.Request) {
	stocks, req, ok := s.decodeStocks(w, r)
	if !ok {
		return
	}

	// Conservative screening is the default: unknown is excluded
	conservative := true
	if req.Conservative != nil {
		conservative = *req.Conservative
	}

	runID := uuid.New().String()
	kept, err := s.compliance.FilterCompliant(r.Context(), stocks, conservative)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"run_id":       runID,
		"conservative": conservative,
		"input_count":  len(stocks),
		"compliant":    kept,
	})
}

// handleComplianceSummary aggregates verdicts over a batch
// POST /api/compliance/summary
func (s *Server) handleComplianceSummary(w http.ResponseWriter, r *http.Request) {
	stocks, _, ok := s.decodeStocks(w, r)
	if !ok {
		return
	}

	summary, err := s.compliance.Summarize(r.Context(), stocks)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

// handleNormalize resolves a ticker to its canonical form
// GET /api/normalize/{ticker}?exchange=XETR
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	hint := r.URL.Query().Get("exchange")

	normalized, err := s.normalizer.Normalize(ticker, hint, "api")
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, normalized)
}

// handleListExchanges returns the supported exchange mapping table
// GET /api/exchanges
func (s *Server) handleListExchanges(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.normalizer.SupportedExchanges())
}

// handleGetQuote returns the current price for a ticker
// GET /api/quotes/{ticker}
func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(chi.URLParam(r, "ticker"))

	quote, err := s.marketData.GetQuote(r.Context(), ticker)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, quote)
}

// handleGetDailyBars returns daily OHLCV candles for a ticker
// GET /api/quotes/{ticker}/daily?days=30
func (s *Server) handleGetDailyBars(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(chi.URLParam(r, "ticker"))

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, errors.New("days must be a positive integer"))
			return
		}
		days = parsed
	}

	bars, err := s.marketData.GetDailyBars(r.Context(), ticker, days)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"symbol": strings.ToUpper(ticker),
		"days":   days,
		"bars":   bars,
	})
}

// handleCacheStats reports cache occupancy
// GET /api/cache/stats
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cache.GetStats())
}

// handleCacheClear drops every cache entry
// POST /api/cache/clear
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.cache.Clear()
	s.log.Info().Msg("Cache cleared via API")
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleCacheInvalidate removes entries matching a glob pattern
// POST /api/cache/invalidate
func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pattern string `json:"pattern"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Pattern) == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("pattern is required"))
		return
	}

	removed := s.cache.Invalidate(req.Pattern)
	s.log.Info().Str("pattern", req.Pattern).Int64("removed", removed).Msg("Cache invalidated via API")
	s.writeJSON(w, http.StatusOK, map[string]any{
		"pattern": req.Pattern,
		"removed": removed,
	})
}
