package marketdata

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/eddiefleurent/cashflow_backtester/internal/models"
)

// MockProvider implements Provider for testing. Populate it with AddQuote and
// AddUnderlying before handing it to the engine; it is not safe for
// concurrent mutation.
type MockProvider struct {
	mids       map[quoteKey]decimal.Decimal
	underlying map[models.Date]decimal.Decimal
	days       map[models.Date]struct{}
}

// NewMockProvider creates an empty mock market data provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		mids:       make(map[quoteKey]decimal.Decimal),
		underlying: make(map[models.Date]decimal.Decimal),
		days:       make(map[models.Date]struct{}),
	}
}

// AddQuote indexes one mid quote and marks the date as a trading day.
func (m *MockProvider) AddQuote(date, expiry models.Date, strike decimal.Decimal, typ models.OptionType, mid decimal.Decimal) {
	m.mids[quoteKey{date: date, expiry: expiry, strike: strikeKey(strike), typ: typ}] = mid
	m.days[date] = struct{}{}
}

// AddUnderlying indexes one underlying close and marks the date as a trading day.
func (m *MockProvider) AddUnderlying(date models.Date, price decimal.Decimal) {
	m.underlying[date] = price
	m.days[date] = struct{}{}
}

// AddTradingDay marks a date as a trading day without an underlying close.
func (m *MockProvider) AddTradingDay(date models.Date) {
	m.days[date] = struct{}{}
}

// GetMid implements Provider.
func (m *MockProvider) GetMid(date, expiry models.Date, strike decimal.Decimal, typ models.OptionType) (decimal.Decimal, bool) {
	mid, ok := m.mids[quoteKey{date: date, expiry: expiry, strike: strikeKey(strike), typ: typ}]
	return mid, ok
}

// GetUnderlying implements Provider.
func (m *MockProvider) GetUnderlying(date models.Date) (decimal.Decimal, bool) {
	price, ok := m.underlying[date]
	return price, ok
}

// TradingDaysBetween implements Provider.
func (m *MockProvider) TradingDaysBetween(from, to models.Date) []models.Date {
	if from.After(to) {
		return nil
	}
	var out []models.Date
	for d := range m.days {
		if !d.Before(from) && !d.After(to) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// PrevTradingDay implements Provider.
func (m *MockProvider) PrevTradingDay(before models.Date) (models.Date, bool) {
	var best models.Date
	found := false
	for d := range m.days {
		if d.Before(before) && (!found || d.After(best)) {
			best = d
			found = true
		}
	}
	return best, found
}
