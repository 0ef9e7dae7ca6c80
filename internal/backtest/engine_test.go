package backtest

import (
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/cashflow_backtester/internal/marketdata"
	"github.com/eddiefleurent/cashflow_backtester/internal/models"
)

var (
	jan15  = models.NewDate(2025, time.January, 15)
	jan16  = models.NewDate(2025, time.January, 16)
	jan17  = models.NewDate(2025, time.January, 17)
	strike = decimal.RequireFromString("4800")
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine(data marketdata.Provider) *Engine {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewEngine(data, logger)
}

func longCallRequest(entry models.Date) models.BacktestRequest {
	return models.BacktestRequest{
		Symbol:       "SPX",
		EntryDate:    entry,
		StrategyType: "SingleLeg",
		Legs: []models.Leg{
			{Type: models.Call, Strike: strike, Side: models.Long, Contracts: 1, Expiry: jan17},
		},
	}
}

// Quotes on the first two days, then intrinsic settlement at expiry from the
// underlying close.
func TestRunSingleLegThroughExpiry(t *testing.T) {
	data := marketdata.NewMockProvider()
	data.AddUnderlying(jan15, dec("4780"))
	data.AddUnderlying(jan16, dec("4795"))
	data.AddUnderlying(jan17, dec("4850"))
	data.AddQuote(jan15, jan17, strike, models.Call, dec("40.00"))
	data.AddQuote(jan16, jan17, strike, models.Call, dec("42.50"))
	// No quote at expiry: the engine must fall back to intrinsic value.

	result, err := newTestEngine(data).Run(longCallRequest(jan15))
	require.NoError(t, err)
	require.Len(t, result.Timeseries, 3)
	assert.NotEmpty(t, result.RunID)

	ts := result.Timeseries
	assert.Equal(t, jan15, ts[0].Date)
	assert.True(t, ts[0].Value.Equal(dec("4000")), "day 1 value %s", ts[0].Value)
	assert.True(t, ts[0].PL.IsZero(), "entry-day P/L must be zero, got %s", ts[0].PL)
	assert.True(t, ts[1].Value.Equal(dec("4250")), "day 2 value %s", ts[1].Value)
	assert.True(t, ts[1].PL.Equal(dec("250")), "day 2 P/L %s", ts[1].PL)
	// intrinsic(4850, 4800, Call) * 100 = 5000
	assert.True(t, ts[2].Value.Equal(dec("5000")), "expiry value %s", ts[2].Value)
	assert.True(t, ts[2].PL.Equal(dec("1000")), "expiry P/L %s", ts[2].PL)

	sum := result.Summary
	assert.True(t, sum.NetPL.Equal(ts[2].PL), "netPL must equal the last P/L")
	assert.True(t, sum.Win)
	assert.True(t, sum.InitialCost.Equal(dec("4000")), "initialCost %s", sum.InitialCost)
	assert.True(t, sum.ReturnOnRisk.Equal(dec("25")), "returnOnRisk %s", sum.ReturnOnRisk)
	assert.Equal(t, 3, sum.TotalDays)
	assert.Equal(t, 2, sum.WinningDays)
	assert.Equal(t, 0, sum.LosingDays)
	assert.True(t, sum.MaxDrawdown.IsZero(), "maxDrawdown %s", sum.MaxDrawdown)
	assert.True(t, sum.MaxGain.Equal(dec("1000")), "maxGain %s", sum.MaxGain)
	assert.True(t, sum.MaxLoss.IsZero(), "maxLoss %s", sum.MaxLoss)
}

// At expiry with no underlying close on the expiry date itself, the engine
// settles from the close of the nearest prior trading day.
func TestRunExpiryFallsBackToPriorUnderlying(t *testing.T) {
	data := marketdata.NewMockProvider()
	data.AddUnderlying(jan16, dec("4850"))
	data.AddQuote(jan16, jan17, strike, models.Call, dec("42.50"))
	data.AddTradingDay(jan17) // trading day with neither quote nor close

	result, err := newTestEngine(data).Run(longCallRequest(jan16))
	require.NoError(t, err)
	require.Len(t, result.Timeseries, 2)

	assert.True(t, result.Timeseries[1].Value.Equal(dec("5000")),
		"expiry value %s", result.Timeseries[1].Value)
}

// With no underlying close anywhere, expiry settlement treats the underlying
// as zero.
func TestRunExpiryZeroUnderlyingFallback(t *testing.T) {
	data := marketdata.NewMockProvider()
	data.AddQuote(jan16, jan17, strike, models.Call, dec("42.50"))
	data.AddTradingDay(jan17)

	result, err := newTestEngine(data).Run(longCallRequest(jan16))
	require.NoError(t, err)
	require.Len(t, result.Timeseries, 2)

	// Long call with underlying 0 is worthless at expiry.
	assert.True(t, result.Timeseries[1].Value.IsZero(),
		"expiry value %s", result.Timeseries[1].Value)
}

// A pre-expiry trading day with no quote cannot be valued; the whole run
// fails rather than silently skipping the day.
func TestRunMissingQuoteBeforeExpiry(t *testing.T) {
	data := marketdata.NewMockProvider()
	data.AddUnderlying(jan15, dec("4780"))
	data.AddUnderlying(jan16, dec("4795"))
	data.AddUnderlying(jan17, dec("4850"))
	data.AddQuote(jan15, jan17, strike, models.Call, dec("40.00"))
	// jan16 has no quote and is not the expiry date.

	result, err := newTestEngine(data).Run(longCallRequest(jan15))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.Nil(t, result, "a failed run must not return partial results")
}

func TestRunEmptyLegs(t *testing.T) {
	req := longCallRequest(jan15)
	req.Legs = nil

	_, err := newTestEngine(marketdata.NewMockProvider()).Run(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRunUnknownStrategyKind(t *testing.T) {
	req := longCallRequest(jan15)
	req.StrategyType = "butterfly"

	_, err := newTestEngine(marketdata.NewMockProvider()).Run(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "unknown strategy type")
}

func TestRunLowercaseKindResolves(t *testing.T) {
	data := marketdata.NewMockProvider()
	data.AddUnderlying(jan17, dec("4850"))

	req := longCallRequest(jan17)
	req.StrategyType = "single leg"

	_, err := newTestEngine(data).Run(req)
	require.NoError(t, err)
}

func TestRunStructuralViolation(t *testing.T) {
	data := marketdata.NewMockProvider()
	data.AddUnderlying(jan15, dec("4780"))

	req := models.BacktestRequest{
		Symbol:       "SPX",
		EntryDate:    jan15,
		StrategyType: "CreditSpread",
		Legs: []models.Leg{
			// Inverted call spread: short strike above long strike.
			{Type: models.Call, Strike: dec("4900"), Side: models.Short, Contracts: 1, Expiry: jan17},
			{Type: models.Call, Strike: dec("4850"), Side: models.Long, Contracts: 1, Expiry: jan17},
		},
	}

	_, err := newTestEngine(data).Run(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "short strike")
}

// Entry after the earliest expiry leaves no trading window.
func TestRunEmptyWindow(t *testing.T) {
	data := marketdata.NewMockProvider()
	data.AddUnderlying(jan15, dec("4780"))

	req := longCallRequest(models.NewDate(2025, time.January, 20))

	_, err := newTestEngine(data).Run(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "no trading days")
}

func TestRunCreditSpreadSettlesForFullCredit(t *testing.T) {
	data := marketdata.NewMockProvider()
	data.AddUnderlying(jan16, dec("4810"))
	data.AddUnderlying(jan17, dec("4820"))
	data.AddQuote(jan16, jan17, dec("4850"), models.Call, dec("30"))
	data.AddQuote(jan16, jan17, dec("4900"), models.Call, dec("12"))
	// Both legs expire out of the money.

	req := models.BacktestRequest{
		Symbol:       "SPX",
		EntryDate:    jan16,
		StrategyType: "credit spread",
		Legs: []models.Leg{
			{Type: models.Call, Strike: dec("4850"), Side: models.Short, Contracts: 1, Expiry: jan17},
			{Type: models.Call, Strike: dec("4900"), Side: models.Long, Contracts: 1, Expiry: jan17},
		},
	}

	result, err := newTestEngine(data).Run(req)
	require.NoError(t, err)
	require.Len(t, result.Timeseries, 2)

	// Entry: -30*100 + 12*100 = -1800 (net credit position).
	assert.True(t, result.Timeseries[0].Value.Equal(dec("-1800")),
		"entry value %s", result.Timeseries[0].Value)
	assert.True(t, result.Timeseries[1].Value.IsZero(),
		"expiry value %s", result.Timeseries[1].Value)

	sum := result.Summary
	assert.True(t, sum.NetPL.Equal(dec("1800")), "netPL %s", sum.NetPL)
	assert.True(t, sum.InitialCost.Equal(dec("1800")), "initialCost %s", sum.InitialCost)
	assert.True(t, sum.ReturnOnRisk.Equal(dec("100")), "returnOnRisk %s", sum.ReturnOnRisk)
	assert.True(t, sum.Win)
}

// Multi-expiry custom strategies simulate only through the earliest expiry.
func TestRunStopsAtEarliestExpiry(t *testing.T) {
	feb21 := models.NewDate(2025, time.February, 21)

	data := marketdata.NewMockProvider()
	data.AddUnderlying(jan16, dec("4810"))
	data.AddUnderlying(jan17, dec("4850"))
	data.AddUnderlying(models.NewDate(2025, time.January, 21), dec("4860"))
	data.AddQuote(jan16, jan17, strike, models.Call, dec("42.50"))
	data.AddQuote(jan16, feb21, strike, models.Put, dec("35.00"))
	data.AddQuote(jan17, feb21, strike, models.Put, dec("30.00"))

	req := models.BacktestRequest{
		Symbol:       "SPX",
		EntryDate:    jan16,
		StrategyType: "Custom",
		Legs: []models.Leg{
			{Type: models.Call, Strike: strike, Side: models.Long, Contracts: 1, Expiry: jan17},
			{Type: models.Put, Strike: strike, Side: models.Long, Contracts: 1, Expiry: feb21},
		},
	}

	result, err := newTestEngine(data).Run(req)
	require.NoError(t, err)
	assert.Len(t, result.Timeseries, 2)
	assert.Equal(t, jan17, result.Timeseries[1].Date)
}

func TestRunDrawdownTracking(t *testing.T) {
	jan13 := models.NewDate(2025, time.January, 13)
	jan14 := models.NewDate(2025, time.January, 14)

	data := marketdata.NewMockProvider()
	for d, mid := range map[models.Date]string{
		jan13: "10", jan14: "15", jan15: "8", jan16: "12",
	} {
		data.AddUnderlying(d, dec("4800"))
		data.AddQuote(d, jan17, strike, models.Call, dec(mid))
	}

	result, err := newTestEngine(data).Run(longCallRequest(jan13))
	require.NoError(t, err)
	require.Len(t, result.Timeseries, 4)

	sum := result.Summary
	// P/L path: 0, +500, -200, +200; peak reaches +500 on day two.
	assert.True(t, sum.MaxDrawdown.Equal(dec("-700")), "maxDrawdown %s", sum.MaxDrawdown)
	assert.True(t, sum.MaxGain.Equal(dec("500")), "maxGain %s", sum.MaxGain)
	assert.True(t, sum.MaxLoss.Equal(dec("-200")), "maxLoss %s", sum.MaxLoss)
	assert.True(t, sum.NetPL.Equal(dec("200")), "netPL %s", sum.NetPL)
	assert.Equal(t, 2, sum.WinningDays)
	assert.Equal(t, 1, sum.LosingDays)
	assert.True(t, sum.WinRate.Equal(dec("50")), "winRate %s", sum.WinRate)
	assert.True(t, sum.MaxDrawdown.LessThanOrEqual(decimal.Zero))
	assert.LessOrEqual(t, sum.WinningDays+sum.LosingDays, sum.TotalDays)
}

// The same request against the same snapshot must produce identical output,
// regardless of the valuation fan-out.
func TestRunDeterminism(t *testing.T) {
	data := marketdata.NewMockProvider()
	day := models.NewDate(2025, time.January, 2)
	for i := 0; i < 30; i++ {
		data.AddUnderlying(day, dec("4800").Add(decimal.NewFromInt(int64(i))))
		data.AddQuote(day, jan17, strike, models.Call, dec("40").Add(decimal.NewFromInt(int64(i%7))))
		day = models.DateOf(day.Time().AddDate(0, 0, 1))
	}

	engine := newTestEngine(data)
	first, err := engine.Run(longCallRequest(models.NewDate(2025, time.January, 2)))
	require.NoError(t, err)
	second, err := engine.Run(longCallRequest(models.NewDate(2025, time.January, 2)))
	require.NoError(t, err)

	assert.Equal(t, first.Timeseries, second.Timeseries)
	assert.Equal(t, first.Summary, second.Summary)
}
