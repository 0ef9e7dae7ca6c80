package backtest

import "errors"

// ErrInvalidInput marks failures the caller can correct: missing legs, an
// unrecognized strategy kind, a violated structural rule, or an empty
// trading-day window.
var ErrInvalidInput = errors.New("invalid input")

// ErrDataUnavailable marks a structurally valid request the snapshot cannot
// price: a leg with no quote on a pre-expiry trading day. The run aborts with
// no partial series.
var ErrDataUnavailable = errors.New("data unavailable for requested window")
