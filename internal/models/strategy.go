package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// The API serves money fields as bare JSON numbers, matching the clients
	// that consume /api/backtest.
	decimal.MarshalJSONWithoutQuotes = true
}

// Leg is one option position within a strategy. Immutable once constructed.
type Leg struct {
	Type      OptionType      `json:"type"`
	Strike    decimal.Decimal `json:"strike"`
	Side      Side            `json:"side"`
	Contracts int             `json:"contracts"`
	Expiry    Date            `json:"expiry"`
}

// Strategy is a validated group of legs traded as one unit.
type Strategy struct {
	Symbol string
	Kind   StrategyKind
	Legs   []Leg
}

// MinExpiry returns the earliest expiry across the legs. Multi-expiry
// strategies are only simulated through the first leg to expire.
func (s Strategy) MinExpiry() Date {
	min := s.Legs[0].Expiry
	for _, leg := range s.Legs[1:] {
		if leg.Expiry.Before(min) {
			min = leg.Expiry
		}
	}
	return min
}

// BacktestRequest is the inbound strategy description.
type BacktestRequest struct {
	Symbol       string `json:"symbol"`
	EntryDate    Date   `json:"entryDate"`
	StrategyType string `json:"strategyType"`
	Legs         []Leg  `json:"legs"`
}

// TimeSeriesPoint is the position valuation for one trading day.
type TimeSeriesPoint struct {
	Date  Date            `json:"date"`
	Value decimal.Decimal `json:"value"`
	PL    decimal.Decimal `json:"pl"`
}

// Summary aggregates the full profit/loss series of a run.
type Summary struct {
	NetPL        decimal.Decimal `json:"netPL"`
	MaxDrawdown  decimal.Decimal `json:"maxDrawdown"`
	Win          bool            `json:"win"`
	InitialCost  decimal.Decimal `json:"initialCost"`
	ReturnOnRisk decimal.Decimal `json:"returnOnRisk"`
	TotalDays    int             `json:"totalDays"`
	WinningDays  int             `json:"winningDays"`
	LosingDays   int             `json:"losingDays"`
	WinRate      decimal.Decimal `json:"winRate"`
	MaxGain      decimal.Decimal `json:"maxGain"`
	MaxLoss      decimal.Decimal `json:"maxLoss"`
}

// BacktestResult is the outbound payload for one run.
type BacktestResult struct {
	RunID      string            `json:"runId"`
	Timeseries []TimeSeriesPoint `json:"timeseries"`
	Summary    Summary           `json:"summary"`
}
