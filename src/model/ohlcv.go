package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OHLCVCandle1m stores one-minute candles backfilled from the exchange,
// kept for offline analysis and threshold research. The live engine derives
// its short-horizon fields from consecutive polls, not from this table.
type OHLCVCandle1m struct {
	ID       uint            `gorm:"primaryKey"`
	Symbol   string          `json:"symbol"   gorm:"type:varchar(50);not null;uniqueIndex:ux_ohlcv_1m_symbol_datetime,priority:1"`
	Datetime time.Time       `json:"datetime" gorm:"not null;uniqueIndex:ux_ohlcv_1m_symbol_datetime,priority:2;index:idx_ohlcv_1m_datetime"`
	Open     decimal.Decimal `json:"open"   gorm:"type:double precision;not null"`
	High     decimal.Decimal `json:"high"   gorm:"type:double precision;not null"`
	Low      decimal.Decimal `json:"low"    gorm:"type:double precision;not null"`
	Close    decimal.Decimal `json:"close"  gorm:"type:double precision;not null"`
	Volume   decimal.Decimal `json:"volume" gorm:"type:double precision;not null"`
}

func (OHLCVCandle1m) TableName() string {
	return "ohlcv_1m"
}
