package model

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Direction of a proposed or open trade.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

// OrderMode describes how the gateway should place the entry order.
type OrderMode string

const (
	OrderModeMarket  OrderMode = "MARKET"  // immediate
	OrderModeLimit   OrderMode = "LIMIT"   // resting
	OrderModeStop    OrderMode = "STOP"    // conditional trigger
	OrderModeTWAP    OrderMode = "TWAP"    // time-weighted
	OrderModeIceberg OrderMode = "ICEBERG" // sliced resting
)

// CandidateSignal is an unranked trade proposal emitted by one strategy.
// Target and stop sit on opposite sides of the entry consistent with the
// direction; leverage is already clamped to the symbol's ceiling by the
// emitting strategy.
type CandidateSignal struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol" validate:"required"`
	Direction  Direction `json:"direction" validate:"required,oneof=LONG SHORT"`
	EntryPrice float64   `json:"entry_price" validate:"gt=0"`
	Target     float64   `json:"target" validate:"gt=0"`
	Stop       float64   `json:"stop" validate:"gt=0"`
	Leverage   int       `json:"leverage" validate:"gte=1"`
	OrderMode  OrderMode `json:"order_mode" validate:"required"`

	// Strategy identity and a human-readable rationale. Numeric intensity is
	// carried explicitly rather than re-parsed out of the rationale text.
	Strategy  string  `json:"strategy" validate:"required"`
	Rationale string  `json:"rationale"`
	Intensity float64 `json:"intensity"` // strategy-specific magnitude, unitless

	// Timeframe is the display code for the expected resolution horizon
	// (e.g. "1m", "15m", "8h").
	Timeframe string    `json:"timeframe"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

var candidateValidator = validator.New()

// NewSignalID returns a fresh candidate-signal identifier.
func NewSignalID() string { return uuid.NewString() }

// Validate checks field-level constraints plus the directional price layout:
// LONG needs target > entry > stop, SHORT needs target < entry < stop.
func (c CandidateSignal) Validate() error {
	if err := candidateValidator.Struct(c); err != nil {
		return err
	}
	return c.checkPriceLayout()
}

func (c CandidateSignal) checkPriceLayout() error {
	switch c.Direction {
	case DirectionLong:
		if !(c.Target > c.EntryPrice && c.EntryPrice > c.Stop) {
			return &PriceLayoutError{Signal: c}
		}
	case DirectionShort:
		if !(c.Target < c.EntryPrice && c.EntryPrice < c.Stop) {
			return &PriceLayoutError{Signal: c}
		}
	}
	return nil
}

// Expired reports whether the candidate is no longer actionable at now.
func (c CandidateSignal) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// RewardFraction is the favorable distance to target as a fraction of entry.
func (c CandidateSignal) RewardFraction() float64 {
	if c.EntryPrice <= 0 {
		return 0
	}
	if c.Direction == DirectionLong {
		return (c.Target - c.EntryPrice) / c.EntryPrice
	}
	return (c.EntryPrice - c.Target) / c.EntryPrice
}

// RiskFraction is the adverse distance to stop as a fraction of entry.
func (c CandidateSignal) RiskFraction() float64 {
	if c.EntryPrice <= 0 {
		return 0
	}
	if c.Direction == DirectionLong {
		return (c.EntryPrice - c.Stop) / c.EntryPrice
	}
	return (c.Stop - c.EntryPrice) / c.EntryPrice
}

// PriceLayoutError reports a candidate whose target/stop do not bracket the
// entry consistently with its direction.
type PriceLayoutError struct {
	Signal CandidateSignal
}

func (e *PriceLayoutError) Error() string {
	c := e.Signal
	return "signal " + c.Symbol + " " + string(c.Direction) +
		": target/stop not on opposite sides of entry"
}

// RankedSignal is a scored, deduplicated candidate eligible to open a
// position. Score is a pure function of the candidate's fields and the
// static strategy-weight table.
type RankedSignal struct {
	CandidateSignal
	Score      float64 `json:"score"`
	Confidence int     `json:"confidence"`  // 0-100
	RiskReward float64 `json:"risk_reward"` // reward fraction / risk fraction
}
