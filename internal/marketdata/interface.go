// Package marketdata provides the immutable end-of-day snapshot the backtest
// engine prices against: option mid quotes, underlying closes, and the
// trading calendar derived from them.
package marketdata

import (
	"github.com/shopspring/decimal"

	"github.com/eddiefleurent/cashflow_backtester/internal/models"
)

// Provider is the read-only market data contract.
//
// Implementations must be safe for concurrent use - the snapshot is built
// once at startup and never mutated, so concurrent backtest runs can share a
// single instance without locking.
type Provider interface {
	// GetMid returns the mid price for the exact (date, expiry, strike, type)
	// key. No interpolation and no nearest-strike or nearest-date fallback.
	GetMid(date, expiry models.Date, strike decimal.Decimal, typ models.OptionType) (decimal.Decimal, bool)

	// GetUnderlying returns the underlying close for the date, if indexed.
	GetUnderlying(date models.Date) (decimal.Decimal, bool)

	// TradingDaysBetween returns every indexed date in [from, to], ascending.
	// Empty when from is after to.
	TradingDaysBetween(from, to models.Date) []models.Date

	// PrevTradingDay returns the latest indexed date strictly before the
	// given date, if one exists.
	PrevTradingDay(before models.Date) (models.Date, bool)
}

// Ensure both providers implement the contract.
var (
	_ Provider = (*Store)(nil)
	_ Provider = (*MockProvider)(nil)
)
