package strategies

import (
	"fmt"
	"time"

	"signalengine/src/model"
	"signalengine/src/risk"
)

// LiquidationSqueeze anticipates the squeeze that follows a one-sided
// liquidation cascade. Dominant short liquidations force shorts to buy back,
// so the strategy goes LONG into them; dominant long liquidations bias SHORT.
// Requires the liquidation aggregate on the snapshot.
type LiquidationSqueeze struct {
	policy       *risk.LeveragePolicy
	baseLeverage int
	ttl          time.Duration
	now          func() time.Time
}

func NewLiquidationSqueeze(policy *risk.LeveragePolicy) *LiquidationSqueeze {
	return &LiquidationSqueeze{
		policy:       policy,
		baseLeverage: 12,
		ttl:          30 * time.Minute,
		now:          time.Now,
	}
}

func (s *LiquidationSqueeze) Name() string { return NameLiquidationSqueeze }

func (s *LiquidationSqueeze) Evaluate(snapshots []model.MarketSnapshot, cfg Config) []model.CandidateSignal {
	now := s.now()

	var out []model.CandidateSignal
	for _, snap := range snapshots {
		if snap.Volume24h < cfg.MinVolume24h {
			continue
		}
		if snap.Liquidations == nil {
			continue
		}

		liq := *snap.Liquidations
		if liq.Total() < cfg.LiqMinNotional {
			continue
		}

		var direction model.Direction
		var ratio float64
		switch {
		case liq.LongVolume <= 0 && liq.ShortVolume <= 0:
			continue
		case liq.LongVolume <= 0:
			direction, ratio = model.DirectionLong, cfg.LiqImbalanceMin
		case liq.ShortVolume <= 0:
			direction, ratio = model.DirectionShort, cfg.LiqImbalanceMin
		case liq.ShortVolume/liq.LongVolume >= cfg.LiqImbalanceMin:
			direction, ratio = model.DirectionLong, liq.ShortVolume/liq.LongVolume
		case liq.LongVolume/liq.ShortVolume >= cfg.LiqImbalanceMin:
			direction, ratio = model.DirectionShort, liq.LongVolume/liq.ShortVolume
		default:
			continue
		}

		intensity := ratio / cfg.LiqImbalanceMin
		leverage := scaledLeverage(s.policy, snap.Symbol, s.baseLeverage, intensity)

		rationale := fmt.Sprintf("liquidation imbalance %.1fx on $%.0f notional, squeeze %s",
			ratio, liq.Total(), direction)

		out = append(out, buildCandidate(
			snap.Symbol, direction, snap.LastPrice,
			cfg.LiqTargetPct, cfg.LiqStopPct,
			leverage, model.OrderModeStop,
			s.Name(), rationale, intensity,
			"30m", s.ttl, now,
		))
	}

	return out
}
