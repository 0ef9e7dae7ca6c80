// Package models defines the option strategy domain types shared across the
// backtester: option legs, strategies, and the request/response payloads.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OptionType identifies a contract as a call or a put.
type OptionType string

const (
	// Call is the right to buy the underlying at the strike.
	Call OptionType = "Call"
	// Put is the right to sell the underlying at the strike.
	Put OptionType = "Put"
)

// Valid returns true if the OptionType is one of the defined constants.
func (t OptionType) Valid() bool {
	return t == Call || t == Put
}

// UnmarshalJSON accepts "Call"/"Put" in any letter case.
func (t *OptionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("option type: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call":
		*t = Call
	case "put":
		*t = Put
	default:
		return fmt.Errorf("unknown option type: %q", s)
	}
	return nil
}

// Side is the direction of a leg. Long contributes positively to position
// value, Short negatively.
type Side string

const (
	// Long means the leg was bought.
	Long Side = "Long"
	// Short means the leg was sold.
	Short Side = "Short"
)

// Valid returns true if the Side is one of the defined constants.
func (s Side) Valid() bool {
	return s == Long || s == Short
}

// UnmarshalJSON accepts "Long"/"Short" in any letter case.
func (s *Side) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("side: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "long":
		*s = Long
	case "short":
		*s = Short
	default:
		return fmt.Errorf("unknown side: %q", raw)
	}
	return nil
}

// StrategyKind is the closed set of strategy shapes the validator knows.
type StrategyKind string

const (
	// KindSingleLeg is a lone option position.
	KindSingleLeg StrategyKind = "SingleLeg"
	// KindCreditSpread is a two-leg same-type vertical sold for a credit.
	KindCreditSpread StrategyKind = "CreditSpread"
	// KindIronCondor is a put credit spread plus a call credit spread.
	KindIronCondor StrategyKind = "IronCondor"
	// KindCustom is accepted without structural checks.
	KindCustom StrategyKind = "Custom"
)

// ParseStrategyKind resolves a user-supplied strategy kind string. Matching is
// case-insensitive and ignores spaces, so "iron condor" and "IronCondor" are
// the same kind.
func ParseStrategyKind(raw string) (StrategyKind, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "") {
	case "singleleg":
		return KindSingleLeg, nil
	case "creditspread":
		return KindCreditSpread, nil
	case "ironcondor":
		return KindIronCondor, nil
	case "custom":
		return KindCustom, nil
	default:
		return "", fmt.Errorf("unknown strategy type: %q (supported: SingleLeg, CreditSpread, IronCondor, Custom)", raw)
	}
}
