// Package pricer converts quoted mid prices and terminal underlying prices
// into signed dollar values for a single option leg.
package pricer

import (
	"github.com/shopspring/decimal"

	"github.com/eddiefleurent/cashflow_backtester/internal/models"
)

// sharesPerContract is the standard equity option multiplier.
var sharesPerContract = decimal.NewFromInt(100)

// Sign maps Long to +1 and Short to -1.
func Sign(side models.Side) decimal.Decimal {
	if side == models.Long {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

// Intrinsic is the expiration payoff of one contract, ignoring time value.
// Never negative.
func Intrinsic(underlying, strike decimal.Decimal, typ models.OptionType) decimal.Decimal {
	var v decimal.Decimal
	if typ == models.Call {
		v = underlying.Sub(strike)
	} else {
		v = strike.Sub(underlying)
	}
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

// LegValueFromMid values a leg at its quoted mid price.
func LegValueFromMid(mid decimal.Decimal, side models.Side, contracts int) decimal.Decimal {
	return Sign(side).Mul(mid).Mul(sharesPerContract).Mul(decimal.NewFromInt(int64(contracts)))
}

// LegValueFromIntrinsic values a leg at expiration from the underlying price.
func LegValueFromIntrinsic(underlying decimal.Decimal, leg models.Leg) decimal.Decimal {
	return Sign(leg.Side).
		Mul(Intrinsic(underlying, leg.Strike, leg.Type)).
		Mul(sharesPerContract).
		Mul(decimal.NewFromInt(int64(leg.Contracts)))
}
