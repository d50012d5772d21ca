package model

import "time"

// Signal record lifecycle status in storage.
const (
	SignalStatusActive    = "ACTIVE"
	SignalStatusCompleted = "COMPLETED"
	SignalStatusFailed    = "FAILED"
	SignalStatusExpired   = "EXPIRED"
)

// SignalRecord is the persisted form of an accepted ranked signal. The store
// assigns no semantics beyond storage; the engine writes the record when a
// signal is accepted and flips the status on close or expiry.
type SignalRecord struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	SignalID   string  `gorm:"type:varchar(64);uniqueIndex" json:"signal_id"`
	Symbol     string  `gorm:"type:varchar(50);not null;index" json:"symbol"`
	Direction  string  `gorm:"type:varchar(10);not null" json:"direction"`
	EntryPrice float64 `gorm:"not null" json:"entryPrice"`
	Target     float64 `gorm:"column:target_price;not null" json:"targetPrice"`
	StopLoss   float64 `gorm:"not null" json:"stopLoss"`
	Leverage   int     `gorm:"not null" json:"leverage"`
	OrderType  string  `gorm:"type:varchar(20)" json:"orderType"`
	Reason     string  `gorm:"type:text" json:"reason"`
	Strategy   string  `gorm:"type:varchar(64);index" json:"strategy"`
	Score      float64 `json:"score"`
	Confidence int     `json:"confidence"`

	// Epoch milliseconds plus display strings, kept side by side for
	// storage compatibility with the dashboard consumers.
	Timestamp  int64  `gorm:"not null" json:"timestamp"`
	ValidUntil int64  `gorm:"not null" json:"validUntil"`
	Timeframe  string `gorm:"type:varchar(10)" json:"timeframe"`
	CreatedAt  string `gorm:"type:varchar(32)" json:"createdAt"`
	ExpiresAt  string `gorm:"type:varchar(32)" json:"expiresAt"`

	Status string `gorm:"type:varchar(20);not null;default:ACTIVE;index" json:"status"`
}

// TableName keeps the exact table name the dashboard reads.
func (SignalRecord) TableName() string {
	return "trading_signals"
}

// DisplayTimeFormat is the layout used for createdAt/expiresAt strings.
const DisplayTimeFormat = "2006-01-02 15:04:05"

// NewSignalRecord maps an accepted ranked signal into its persisted form.
func NewSignalRecord(s RankedSignal) SignalRecord {
	return SignalRecord{
		SignalID:   s.ID,
		Symbol:     s.Symbol,
		Direction:  string(s.Direction),
		EntryPrice: s.EntryPrice,
		Target:     s.Target,
		StopLoss:   s.Stop,
		Leverage:   s.Leverage,
		OrderType:  string(s.OrderMode),
		Reason:     s.Rationale,
		Strategy:   s.Strategy,
		Score:      s.Score,
		Confidence: s.Confidence,
		Timestamp:  s.CreatedAt.UnixMilli(),
		ValidUntil: s.ExpiresAt.UnixMilli(),
		Timeframe:  s.Timeframe,
		CreatedAt:  s.CreatedAt.UTC().Format(DisplayTimeFormat),
		ExpiresAt:  s.ExpiresAt.UTC().Format(DisplayTimeFormat),
		Status:     SignalStatusActive,
	}
}

// ClosedPositionRecord is the persisted form of a ClosedPosition.
type ClosedPositionRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SignalID    string    `gorm:"type:varchar(64);index" json:"signal_id"`
	Symbol      string    `gorm:"type:varchar(50);not null;index" json:"symbol"`
	Direction   string    `gorm:"type:varchar(10);not null" json:"direction"`
	EntryPrice  float64   `gorm:"not null" json:"entry_price"`
	ExitPrice   float64   `gorm:"not null" json:"exit_price"`
	Leverage    int       `json:"leverage"`
	Reason      string    `gorm:"type:varchar(32);not null;index" json:"reason"`
	Strategy    string    `gorm:"type:varchar(64)" json:"strategy"`
	RealizedPct float64   `json:"realized_pct"`
	OpenedAt    time.Time `gorm:"not null" json:"opened_at"`
	ClosedAt    time.Time `gorm:"not null;index" json:"closed_at"`
	HoldingSecs int64     `json:"holding_secs"`
}

func (ClosedPositionRecord) TableName() string {
	return "closed_positions"
}

// NewClosedPositionRecord maps a close event into its persisted form.
func NewClosedPositionRecord(c ClosedPosition) ClosedPositionRecord {
	return ClosedPositionRecord{
		SignalID:    c.SignalID,
		Symbol:      c.Symbol,
		Direction:   string(c.Direction),
		EntryPrice:  c.EntryPrice,
		ExitPrice:   c.ExitPrice,
		Leverage:    c.Leverage,
		Reason:      c.Reason,
		Strategy:    c.Strategy,
		RealizedPct: c.RealizedPct,
		OpenedAt:    c.OpenedAt,
		ClosedAt:    c.ClosedAt,
		HoldingSecs: int64(c.HoldingTime.Seconds()),
	}
}
