// Package backtest walks a strategy through the trading calendar, valuing the
// position each day from end-of-day mid quotes (or intrinsic value at expiry)
// and folding the series into summary risk statistics.
package backtest

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/cashflow_backtester/internal/marketdata"
	"github.com/eddiefleurent/cashflow_backtester/internal/models"
	"github.com/eddiefleurent/cashflow_backtester/internal/pricer"
	"github.com/eddiefleurent/cashflow_backtester/internal/validator"
)

// valuationWorkers bounds the per-day valuation fan-out. Valuations are
// independent reads of the immutable snapshot; only the fold is sequential.
const valuationWorkers = 8

var hundred = decimal.NewFromInt(100)

// Engine runs backtests against a shared read-only market data snapshot.
// Safe for concurrent use; each run holds only local state.
type Engine struct {
	data   marketdata.Provider
	logger *logrus.Logger
}

// NewEngine creates a backtest engine bound to a market data provider.
func NewEngine(data marketdata.Provider, logger *logrus.Logger) *Engine {
	return &Engine{
		data:   data,
		logger: logger,
	}
}

// Run simulates the requested strategy from its entry date through the
// earliest leg expiry and returns the day-by-day series plus a summary.
// Failures wrap ErrInvalidInput or ErrDataUnavailable; no partial result is
// ever returned.
func (e *Engine) Run(req models.BacktestRequest) (*models.BacktestResult, error) {
	if len(req.Legs) == 0 {
		return nil, fmt.Errorf("%w: no legs supplied", ErrInvalidInput)
	}

	kind, err := models.ParseStrategyKind(req.StrategyType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	strat := models.Strategy{
		Symbol: req.Symbol,
		Kind:   kind,
		Legs:   req.Legs,
	}
	if err := validator.Validate(strat); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	// Multi-expiry strategies are valued only through the earliest expiry.
	end := strat.MinExpiry()
	days := e.data.TradingDaysBetween(req.EntryDate, end)
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: no trading days between entry %s and expiry %s",
			ErrInvalidInput, req.EntryDate, end)
	}

	runID := uuid.NewString()
	log := e.logger.WithFields(logrus.Fields{
		"run_id": runID,
		"symbol": strat.Symbol,
		"kind":   strat.Kind,
		"days":   len(days),
	})
	log.Info("Starting backtest run")

	values, err := e.valueDays(days, strat)
	if err != nil {
		log.WithError(err).Warn("Backtest run aborted")
		return nil, err
	}

	result := fold(days, values)
	result.RunID = runID
	log.WithField("net_pl", result.Summary.NetPL).Info("Backtest run complete")
	return result, nil
}

// valueDays computes the position value for every trading day. Day
// valuations are order-independent, so they fan out across a bounded worker
// group; results land in date order by index.
func (e *Engine) valueDays(days []models.Date, strat models.Strategy) ([]decimal.Decimal, error) {
	values := make([]decimal.Decimal, len(days))

	var g errgroup.Group
	g.SetLimit(valuationWorkers)
	for i, day := range days {
		i, day := i, day
		g.Go(func() error {
			v, err := e.positionValueOn(day, strat)
			if err != nil {
				return err
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

// positionValueOn sums the leg values for one trading day: the mid quote
// when one exists, intrinsic value on the leg's expiry day, otherwise the
// leg cannot be valued and the run fails.
func (e *Engine) positionValueOn(day models.Date, strat models.Strategy) (decimal.Decimal, error) {
	total := decimal.Zero

	for _, leg := range strat.Legs {
		if mid, ok := e.data.GetMid(day, leg.Expiry, leg.Strike, leg.Type); ok {
			total = total.Add(pricer.LegValueFromMid(mid, leg.Side, leg.Contracts))
			continue
		}

		if day == leg.Expiry {
			total = total.Add(pricer.LegValueFromIntrinsic(e.underlyingOrPrior(day), leg))
			continue
		}

		return decimal.Zero, fmt.Errorf("%w: missing mid for leg before expiry on %s (strike=%s, type=%s, expiry=%s)",
			ErrDataUnavailable, day, leg.Strike, leg.Type, leg.Expiry)
	}

	return total, nil
}

// underlyingOrPrior resolves the underlying close for an expiry-day intrinsic
// valuation: the day itself, else the nearest prior trading day, else zero.
func (e *Engine) underlyingOrPrior(day models.Date) decimal.Decimal {
	if s, ok := e.data.GetUnderlying(day); ok {
		return s
	}
	if prev, ok := e.data.PrevTradingDay(day); ok {
		if s, ok := e.data.GetUnderlying(prev); ok {
			return s
		}
	}
	return decimal.Zero
}

// fold turns the date-ordered valuations into the time series and summary.
// It must run in ascending date order: peak and drawdown depend on the
// chronology of the P/L path.
func fold(days []models.Date, values []decimal.Decimal) *models.BacktestResult {
	v0 := values[0]
	ts := make([]models.TimeSeriesPoint, 0, len(days))

	var peak, maxDrawdown, lastPL, maxGain, maxLoss decimal.Decimal
	winningDays, losingDays := 0, 0

	for i, day := range days {
		pl := values[i].Sub(v0)
		ts = append(ts, models.TimeSeriesPoint{Date: day, Value: values[i], PL: pl})

		if i == 0 || pl.GreaterThan(peak) {
			peak = pl
		}
		if dd := pl.Sub(peak); dd.LessThan(maxDrawdown) {
			maxDrawdown = dd
		}
		lastPL = pl

		if i == 0 || pl.GreaterThan(maxGain) {
			maxGain = pl
		}
		if i == 0 || pl.LessThan(maxLoss) {
			maxLoss = pl
		}

		if pl.IsPositive() {
			winningDays++
		} else if pl.IsNegative() {
			losingDays++
		}
	}

	totalDays := len(days)
	winRate := decimal.Zero
	if totalDays > 0 {
		winRate = decimal.NewFromInt(int64(winningDays)).
			Div(decimal.NewFromInt(int64(totalDays))).
			Mul(hundred)
	}
	initialCost := v0.Abs()
	returnOnRisk := decimal.Zero
	if initialCost.IsPositive() {
		returnOnRisk = lastPL.Div(initialCost).Mul(hundred)
	}

	return &models.BacktestResult{
		Timeseries: ts,
		Summary: models.Summary{
			NetPL:        lastPL,
			MaxDrawdown:  maxDrawdown,
			Win:          lastPL.IsPositive(),
			InitialCost:  initialCost,
			ReturnOnRisk: returnOnRisk,
			TotalDays:    totalDays,
			WinningDays:  winningDays,
			LosingDays:   losingDays,
			WinRate:      winRate,
			MaxGain:      maxGain,
			MaxLoss:      maxLoss,
		},
	}
}
