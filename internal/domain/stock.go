// Package domain contains the core types shared across the screening system.
// It has no infrastructure dependencies.
package domain

import "time"

// Stock is the minimal structural interface the screening pipeline needs
// from any stock-like value: a ticker and the exchange it was quoted on.
type Stock interface {
	Ticker() string
	Exchange() string
}

// Security is the concrete stock representation used across the system.
type Security struct {
	Symbol       string `json:"symbol"`
	ExchangeCode string `json:"exchange,omitempty"`
	Name         string `json:"name,omitempty"`
	Currency     string `json:"currency,omitempty"`
}

// Ticker implements Stock.
func (s Security) Ticker() string { return s.Symbol }

// Exchange implements Stock.
func (s Security) Exchange() string { return s.ExchangeCode }

// Quote is a point-in-time price for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol" msgpack:"symbol"`
	Price     float64   `json:"price" msgpack:"price"`
	Currency  string    `json:"currency,omitempty" msgpack:"currency"`
	Exchange  string    `json:"exchange,omitempty" msgpack:"exchange"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
}

// Bar is a single daily OHLCV candle.
type Bar struct {
	Date   time.Time `json:"date" msgpack:"date"`
	Open   float64   `json:"open" msgpack:"open"`
	High   float64   `json:"high" msgpack:"high"`
	Low    float64   `json:"low" msgpack:"low"`
	Close  float64   `json:"close" msgpack:"close"`
	Volume int64     `json:"volume" msgpack:"volume"`
}
