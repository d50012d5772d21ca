package lifecycle

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"signalengine/src/model"
	"signalengine/src/risk"
)

// Config holds the exit-condition policy. All values are fractions or
// percents as noted; they are tunable but never inlined at call sites.
type Config struct {
	// TrailingFraction is the distance of the trailed stop below (LONG) or
	// above (SHORT) the best price, as a fraction.
	TrailingFraction float64

	// LiquidationBuffer is the guard band around the estimated liquidation
	// price, as a fraction. The position closes before the raw level.
	LiquidationBuffer float64

	// VolatilitySpikeThresholdPct closes a position when the magnitude of
	// the 1-minute change exceeds it (percent).
	VolatilitySpikeThresholdPct float64

	// LiquidationClusterNotional closes a position when aggregated
	// liquidation volume on the snapshot exceeds it.
	LiquidationClusterNotional float64

	// MaintenanceMarginRatio feeds the liquidation approximation.
	MaintenanceMarginRatio float64

	// Position inactivity timeout bounds. The per-position timeout is
	// derived from the signal's expiry horizon and clamped into this range.
	MinTimeout time.Duration
	MaxTimeout time.Duration
}

// DefaultConfig returns the standard exit policy.
func DefaultConfig() Config {
	return Config{
		TrailingFraction:            0.02,
		LiquidationBuffer:           0.01,
		VolatilitySpikeThresholdPct: 2.5,
		LiquidationClusterNotional:  2_000_000,
		MaintenanceMarginRatio:      risk.DefaultMaintenanceMarginRatio,
		MinTimeout:                  10 * time.Minute,
		MaxTimeout:                  24 * time.Hour,
	}
}

// timeoutHorizonMultiple sizes the inactivity timeout from the signal's
// expected resolution time.
const timeoutHorizonMultiple = 6

// Manager owns the open-position set and the last-accepted-signal map for
// the lifetime of the process. Nothing else mutates either. A single mutex
// enforces the single-writer discipline: one evaluation pass completes fully
// before the next begins.
type Manager struct {
	mu  sync.Mutex
	cfg Config
	log *logger.Entry
	now func() time.Time

	open       map[string]*model.Position // keyed by symbol|direction
	lastSignal map[string]model.Direction // most recent accepted direction per symbol
}

// NewManager builds a lifecycle manager with explicit construction of all
// state; there are no package-level maps.
func NewManager(log *logger.Entry, cfg Config) *Manager {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &Manager{
		cfg:        cfg,
		log:        log,
		now:        time.Now,
		open:       make(map[string]*model.Position),
		lastSignal: make(map[string]model.Direction),
	}
}

// SetClock overrides the manager clock, for tests.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

func positionKey(symbol string, direction model.Direction) string {
	return symbol + "|" + string(direction)
}

// Accept records a ranked signal as the most recent accepted signal for its
// symbol and opens a position for it unless one with the same
// symbol+direction is already open. A refused open is a logged skip, not an
// error. Returns the opened position, or nil on skip.
func (m *Manager) Accept(sig model.RankedSignal) *model.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastSignal[sig.Symbol] = sig.Direction

	key := positionKey(sig.Symbol, sig.Direction)
	if _, exists := m.open[key]; exists {
		m.log.WithFields(map[string]interface{}{
			"symbol":    sig.Symbol,
			"direction": sig.Direction,
		}).Info("position already open for symbol+direction, skipping signal")
		return nil
	}

	now := m.now()
	entry := decimal.NewFromFloat(sig.EntryPrice)
	mmr := decimal.NewFromFloat(m.cfg.MaintenanceMarginRatio)

	pos := &model.Position{
		SignalID:          sig.ID,
		Symbol:            sig.Symbol,
		Direction:         sig.Direction,
		EntryPrice:        sig.EntryPrice,
		Leverage:          sig.Leverage,
		Target:            sig.Target,
		Stop:              sig.Stop,
		Strategy:          sig.Strategy,
		LiquidationPrice:  risk.LiquidationPrice(entry, sig.Leverage, sig.Direction, mmr).InexactFloat64(),
		MaxFavorablePrice: sig.EntryPrice,
		OpenedAt:          now,
		Timeout:           m.timeoutFor(sig),
	}
	m.open[key] = pos

	m.log.WithFields(map[string]interface{}{
		"symbol":    pos.Symbol,
		"direction": pos.Direction,
		"entry":     pos.EntryPrice,
		"leverage":  pos.Leverage,
		"strategy":  pos.Strategy,
		"timeout":   pos.Timeout.String(),
	}).Info("position opened")

	copied := *pos
	return &copied
}

func (m *Manager) timeoutFor(sig model.RankedSignal) time.Duration {
	horizon := sig.ExpiresAt.Sub(sig.CreatedAt)
	timeout := horizon * timeoutHorizonMultiple
	if timeout < m.cfg.MinTimeout {
		timeout = m.cfg.MinTimeout
	}
	if timeout > m.cfg.MaxTimeout {
		timeout = m.cfg.MaxTimeout
	}
	return timeout
}

// Tick re-evaluates every open position against the newest snapshots and
// returns the close events that fired. Positions without a snapshot this
// tick are left untouched. The whole pass runs under the manager lock.
func (m *Manager) Tick(snapshots []model.MarketSnapshot) []model.ClosedPosition {
	m.mu.Lock()
	defer m.mu.Unlock()

	bySymbol := make(map[string]model.MarketSnapshot, len(snapshots))
	for _, snap := range snapshots {
		if err := snap.Validate(); err != nil {
			m.log.WithError(err).WithField("symbol", snap.Symbol).Warn("skipping malformed snapshot in lifecycle pass")
			continue
		}
		bySymbol[snap.Symbol] = snap
	}

	now := m.now()

	var closed []model.ClosedPosition
	for key, pos := range m.open {
		snap, ok := bySymbol[pos.Symbol]
		if !ok {
			continue
		}

		if reason := m.evaluate(pos, snap, now); reason != "" {
			event := m.closeEvent(pos, snap.LastPrice, reason, now)
			delete(m.open, key)
			closed = append(closed, event)

			m.log.WithFields(map[string]interface{}{
				"symbol":       event.Symbol,
				"direction":    event.Direction,
				"reason":       event.Reason,
				"entry":        event.EntryPrice,
				"exit":         event.ExitPrice,
				"realized_pct": event.RealizedPct,
				"held":         event.HoldingTime.String(),
			}).Info("position closed")
			continue
		}

		m.updateFavorable(pos, snap.LastPrice)
	}

	return closed
}

// evaluate applies the exit conditions in their fixed order and returns the
// first reason that fires, or "" to keep the position open. The trailing
// ratchet runs first and is an update, not an exit.
func (m *Manager) evaluate(pos *model.Position, snap model.MarketSnapshot, now time.Time) string {
	price := snap.LastPrice

	m.ratchetTrailingStop(pos, price)

	// 2. Target hit.
	if pos.Direction == model.DirectionLong && price >= pos.Target {
		return model.CloseReasonTakeProfit
	}
	if pos.Direction == model.DirectionShort && price <= pos.Target {
		return model.CloseReasonTakeProfit
	}

	// 3. Stop hit, trailed stop included.
	stop := pos.EffectiveStop()
	if pos.Direction == model.DirectionLong && price <= stop {
		return model.CloseReasonStopLoss
	}
	if pos.Direction == model.DirectionShort && price >= stop {
		return model.CloseReasonStopLoss
	}

	// 4. Most recent accepted signal disagrees with this position.
	if last, ok := m.lastSignal[pos.Symbol]; ok && last != pos.Direction {
		return model.CloseReasonOppositeSignal
	}

	// 5. Pre-liquidation guard on a freshly recomputed level.
	entry := decimal.NewFromFloat(pos.EntryPrice)
	mmr := decimal.NewFromFloat(m.cfg.MaintenanceMarginRatio)
	liq := risk.LiquidationPrice(entry, pos.Leverage, pos.Direction, mmr)
	pos.LiquidationPrice = liq.InexactFloat64()

	if risk.WithinLiquidationBuffer(
		decimal.NewFromFloat(price), liq, pos.Direction,
		decimal.NewFromFloat(m.cfg.LiquidationBuffer),
	) {
		return model.CloseReasonPreLiquidation
	}

	// 6. Volatility spike on the 1-minute change, when present.
	if snap.PriceChange1m != nil {
		change := *snap.PriceChange1m
		if change < 0 {
			change = -change
		}
		if change >= m.cfg.VolatilitySpikeThresholdPct {
			return model.CloseReasonVolatilitySpike
		}
	}

	// 7. Liquidation cluster, when the aggregate is present.
	if snap.Liquidations != nil && snap.Liquidations.Total() >= m.cfg.LiquidationClusterNotional {
		return model.CloseReasonLiquidationCluster
	}

	// 8. Inactivity timeout.
	if now.Sub(pos.OpenedAt) >= pos.Timeout {
		return model.CloseReasonTimeout
	}

	return ""
}

func (m *Manager) ratchetTrailingStop(pos *model.Position, price float64) {
	prev := decimal.Zero
	if pos.TrailingStop != nil {
		prev = decimal.NewFromFloat(*pos.TrailingStop)
	}

	next, moved := risk.TrailingStop(
		decimal.NewFromFloat(price),
		decimal.NewFromFloat(pos.EntryPrice),
		pos.Direction,
		decimal.NewFromFloat(m.cfg.TrailingFraction),
		prev,
	)
	if moved {
		v := next.InexactFloat64()
		pos.TrailingStop = &v
		m.log.WithFields(map[string]interface{}{
			"symbol":    pos.Symbol,
			"direction": pos.Direction,
			"stop":      v,
		}).Debug("trailing stop tightened")
	}
}

func (m *Manager) updateFavorable(pos *model.Position, price float64) {
	if pos.Direction == model.DirectionLong && price > pos.MaxFavorablePrice {
		pos.MaxFavorablePrice = price
	}
	if pos.Direction == model.DirectionShort && price < pos.MaxFavorablePrice {
		pos.MaxFavorablePrice = price
	}
}

func (m *Manager) closeEvent(pos *model.Position, exit float64, reason string, now time.Time) model.ClosedPosition {
	return model.ClosedPosition{
		SignalID:    pos.SignalID,
		Symbol:      pos.Symbol,
		Direction:   pos.Direction,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exit,
		Leverage:    pos.Leverage,
		Reason:      reason,
		Strategy:    pos.Strategy,
		OpenedAt:    pos.OpenedAt,
		ClosedAt:    now,
		HoldingTime: now.Sub(pos.OpenedAt),
		RealizedPct: model.RealizedPercent(pos.Direction, pos.EntryPrice, exit),
	}
}

// OpenPositions returns a copy of the open set, for the status API.
func (m *Manager) OpenPositions() []model.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Position, 0, len(m.open))
	for _, pos := range m.open {
		out = append(out, *pos)
	}
	return out
}

// HasOpen reports whether a position is open for symbol+direction.
func (m *Manager) HasOpen(symbol string, direction model.Direction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.open[positionKey(symbol, direction)]
	return ok
}

// OpenCount returns the number of open positions.
func (m *Manager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

// LastSignal reports the most recent accepted direction for a symbol.
func (m *Manager) LastSignal(symbol string) (model.Direction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.lastSignal[symbol]
	return d, ok
}
