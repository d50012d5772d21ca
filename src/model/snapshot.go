package model

import (
	"fmt"
	"time"
)

// MarketSnapshot is one tick's market-data record for one derivative symbol.
// It is produced by the connectivity layer and consumed read-only by the
// strategies, the scorer and the lifecycle manager. A snapshot is never
// mutated after creation; each tick supersedes the previous one.
//
// Optional fields (pointers) may be absent when the upstream feed did not
// supply them this tick. Absence means "strategies depending on this field
// skip the symbol", never zero.
type MarketSnapshot struct {
	Symbol          string    `json:"symbol"`
	LastPrice       float64   `json:"last_price"`
	Volume24h       float64   `json:"volume_24h"`
	PriceChange24h  float64   `json:"price_change_24h"` // percent, signed
	FundingRate     float64   `json:"funding_rate"`     // signed fraction, e.g. -0.0017
	NextFundingTime time.Time `json:"next_funding_time"`
	OpenInterest    float64   `json:"open_interest"` // notional

	// 1-minute microstructure, absent when the ws feed has no recent data.
	PriceChange1m *float64 `json:"price_change_1m,omitempty"` // percent, signed
	Volume1m      *float64 `json:"volume_1m,omitempty"`
	AvgVolume5m   *float64 `json:"avg_volume_5m,omitempty"`

	// Aggregated liquidation notional split by the side that got liquidated,
	// absent when the force-order stream saw nothing for this symbol.
	Liquidations *LiquidationAggregate `json:"liquidations,omitempty"`

	ObservedAt time.Time `json:"observed_at"`
}

// LiquidationAggregate sums recent forced-liquidation notional per side.
type LiquidationAggregate struct {
	LongVolume  float64 `json:"long_volume"`  // longs forced out (sell liquidations)
	ShortVolume float64 `json:"short_volume"` // shorts forced out (buy liquidations)
}

// Total returns the combined liquidation notional.
func (l LiquidationAggregate) Total() float64 {
	return l.LongVolume + l.ShortVolume
}

// Validate reports whether the snapshot carries the required fields.
// A failing snapshot is skipped for the tick, it is not fatal.
func (s MarketSnapshot) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("snapshot missing symbol")
	}
	if s.LastPrice <= 0 {
		return fmt.Errorf("snapshot %s: price must be positive, got %f", s.Symbol, s.LastPrice)
	}
	if s.Volume24h < 0 {
		return fmt.Errorf("snapshot %s: negative 24h volume %f", s.Symbol, s.Volume24h)
	}
	if s.Volume1m != nil && *s.Volume1m < 0 {
		return fmt.Errorf("snapshot %s: negative 1m volume %f", s.Symbol, *s.Volume1m)
	}
	if s.AvgVolume5m != nil && *s.AvgVolume5m < 0 {
		return fmt.Errorf("snapshot %s: negative 5m avg volume %f", s.Symbol, *s.AvgVolume5m)
	}
	return nil
}
