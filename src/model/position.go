package model

import "time"

// CloseReason codes emitted when an exit condition fires.
const (
	CloseReasonTakeProfit         = "take_profit"
	CloseReasonStopLoss           = "stop_loss"
	CloseReasonOppositeSignal     = "opposite_signal"
	CloseReasonPreLiquidation     = "pre_liquidation"
	CloseReasonVolatilitySpike    = "volatility_spike"
	CloseReasonLiquidationCluster = "liquidation_cluster"
	CloseReasonTimeout            = "timeout"
)

// Position is a tracked open exposure. The lifecycle manager exclusively
// owns every Position for the lifetime of the process; nothing else mutates
// one. Lookups are by symbol key, signals and snapshots never hold a
// reference back to a position.
type Position struct {
	SignalID   string    `json:"signal_id"`
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	Leverage   int       `json:"leverage"`
	Target     float64   `json:"target"`
	Stop       float64   `json:"stop"`
	Strategy   string    `json:"strategy"`

	// TrailingStop only ever tightens: up for LONG, down for SHORT.
	// Nil until the first favorable ratchet.
	TrailingStop *float64 `json:"trailing_stop,omitempty"`

	// LiquidationPrice is recomputed each tick from leverage and direction.
	// The formula is an approximation that ignores funding accrual and
	// cross-margin effects.
	LiquidationPrice float64 `json:"liquidation_price"`

	// MaxFavorablePrice is the best price seen since open
	// (highest for LONG, lowest for SHORT).
	MaxFavorablePrice float64 `json:"max_favorable_price"`

	OpenedAt time.Time     `json:"opened_at"`
	Timeout  time.Duration `json:"timeout"` // inactivity timeout, data-driven
}

// EffectiveStop is the trailed stop when set, the original stop otherwise.
func (p Position) EffectiveStop() float64 {
	if p.TrailingStop != nil {
		return *p.TrailingStop
	}
	return p.Stop
}

// ClosedPosition is the terminal record emitted the instant an exit
// condition fires.
type ClosedPosition struct {
	SignalID    string        `json:"signal_id"`
	Symbol      string        `json:"symbol"`
	Direction   Direction     `json:"direction"`
	EntryPrice  float64       `json:"entry_price"`
	ExitPrice   float64       `json:"exit_price"`
	Leverage    int           `json:"leverage"`
	Reason      string        `json:"reason"`
	Strategy    string        `json:"strategy"`
	OpenedAt    time.Time     `json:"opened_at"`
	ClosedAt    time.Time     `json:"closed_at"`
	HoldingTime time.Duration `json:"holding_time"`

	// RealizedPct is the signed percent move from entry to exit in the
	// position's favor, before leverage.
	RealizedPct float64 `json:"realized_pct"`
}

// RealizedPercent computes the favorable percent move for a fill at exit.
func RealizedPercent(direction Direction, entry, exit float64) float64 {
	if entry <= 0 {
		return 0
	}
	if direction == DirectionLong {
		return (exit - entry) / entry * 100
	}
	return (entry - exit) / entry * 100
}
