// Package validator enforces the structural acceptance rules for each
// strategy kind before any valuation happens. Checks are purely structural:
// the short strike ordering encodes net-credit construction and deliberately
// does not consult the live underlying price.
package validator

import (
	"fmt"

	"github.com/eddiefleurent/cashflow_backtester/internal/models"
)

// Validate checks a strategy against the rules for its kind. It fails fast on
// the first violated rule with a user-facing reason.
func Validate(strategy models.Strategy) error {
	if err := validateLegs(strategy.Legs); err != nil {
		return err
	}

	switch strategy.Kind {
	case models.KindSingleLeg:
		return validateSingleLeg(strategy.Legs)
	case models.KindCreditSpread:
		return validateCreditSpread(strategy.Legs)
	case models.KindIronCondor:
		return validateIronCondor(strategy.Legs)
	case models.KindCustom:
		// No structural constraints for custom strategies.
		return nil
	default:
		return fmt.Errorf("unknown strategy type: %q", strategy.Kind)
	}
}

// validateLegs applies leg-level sanity checks common to every kind.
func validateLegs(legs []models.Leg) error {
	for i, leg := range legs {
		if !leg.Type.Valid() {
			return fmt.Errorf("leg %d: invalid option type %q", i+1, leg.Type)
		}
		if !leg.Side.Valid() {
			return fmt.Errorf("leg %d: invalid side %q", i+1, leg.Side)
		}
		if leg.Contracts < 1 {
			return fmt.Errorf("leg %d: contracts must be >= 1 (got %d)", i+1, leg.Contracts)
		}
		if leg.Strike.IsNegative() {
			return fmt.Errorf("leg %d: strike must be >= 0 (got %s)", i+1, leg.Strike)
		}
		if leg.Expiry.IsZero() {
			return fmt.Errorf("leg %d: expiry is required", i+1)
		}
	}
	return nil
}

func validateSingleLeg(legs []models.Leg) error {
	if len(legs) != 1 {
		return fmt.Errorf("single leg strategy must have exactly 1 leg, found %d", len(legs))
	}
	return nil
}

func validateCreditSpread(legs []models.Leg) error {
	if len(legs) != 2 {
		return fmt.Errorf("credit spread must have exactly 2 legs, found %d", len(legs))
	}

	shortLeg := findBySide(legs, models.Short)
	longLeg := findBySide(legs, models.Long)
	if shortLeg == nil {
		return fmt.Errorf("credit spread must have a short leg")
	}
	if longLeg == nil {
		return fmt.Errorf("credit spread must have a long leg")
	}

	if shortLeg.Type != longLeg.Type {
		return fmt.Errorf("credit spread legs must be the same type, found %s and %s", shortLeg.Type, longLeg.Type)
	}
	if shortLeg.Expiry != longLeg.Expiry {
		return fmt.Errorf("credit spread legs must have the same expiry date")
	}

	// The short strike sits closer to the money: call spreads are sold below
	// the long strike, put spreads above it.
	if shortLeg.Type == models.Call {
		if shortLeg.Strike.GreaterThanOrEqual(longLeg.Strike) {
			return fmt.Errorf("call credit spread: short strike (%s) must be less than long strike (%s)",
				shortLeg.Strike, longLeg.Strike)
		}
	} else {
		if shortLeg.Strike.LessThanOrEqual(longLeg.Strike) {
			return fmt.Errorf("put credit spread: short strike (%s) must be greater than long strike (%s)",
				shortLeg.Strike, longLeg.Strike)
		}
	}

	if shortLeg.Contracts != longLeg.Contracts {
		return fmt.Errorf("credit spread legs must have the same number of contracts, found %d and %d",
			shortLeg.Contracts, longLeg.Contracts)
	}
	return nil
}

func validateIronCondor(legs []models.Leg) error {
	if len(legs) != 4 {
		return fmt.Errorf("iron condor must have exactly 4 legs, found %d", len(legs))
	}

	var callLegs, putLegs []models.Leg
	for _, leg := range legs {
		if leg.Type == models.Call {
			callLegs = append(callLegs, leg)
		} else {
			putLegs = append(putLegs, leg)
		}
	}
	if len(callLegs) != 2 {
		return fmt.Errorf("iron condor must have exactly 2 call legs, found %d", len(callLegs))
	}
	if len(putLegs) != 2 {
		return fmt.Errorf("iron condor must have exactly 2 put legs, found %d", len(putLegs))
	}

	callShort := findBySide(callLegs, models.Short)
	callLong := findBySide(callLegs, models.Long)
	if callShort == nil || callLong == nil {
		return fmt.Errorf("iron condor call spread must have one short and one long leg")
	}
	if callShort.Strike.GreaterThanOrEqual(callLong.Strike) {
		return fmt.Errorf("iron condor call spread: short strike (%s) must be less than long strike (%s)",
			callShort.Strike, callLong.Strike)
	}

	putShort := findBySide(putLegs, models.Short)
	putLong := findBySide(putLegs, models.Long)
	if putShort == nil || putLong == nil {
		return fmt.Errorf("iron condor put spread must have one short and one long leg")
	}
	if putShort.Strike.LessThanOrEqual(putLong.Strike) {
		return fmt.Errorf("iron condor put spread: short strike (%s) must be greater than long strike (%s)",
			putShort.Strike, putLong.Strike)
	}

	for _, leg := range legs[1:] {
		if leg.Expiry != legs[0].Expiry {
			return fmt.Errorf("all iron condor legs must have the same expiry date")
		}
	}
	for _, leg := range legs[1:] {
		if leg.Contracts != legs[0].Contracts {
			return fmt.Errorf("all iron condor legs must have the same number of contracts")
		}
	}

	if putShort.Strike.GreaterThanOrEqual(callShort.Strike) {
		return fmt.Errorf("iron condor: put short strike (%s) must be less than call short strike (%s)",
			putShort.Strike, callShort.Strike)
	}
	return nil
}

// findBySide returns the first leg with the given side, or nil.
func findBySide(legs []models.Leg, side models.Side) *models.Leg {
	for i := range legs {
		if legs[i].Side == side {
			return &legs[i]
		}
	}
	return nil
}
