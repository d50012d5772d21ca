package strategies

import (
	"fmt"
	"math"
	"time"

	"signalengine/src/model"
	"signalengine/src/risk"
)

// MicroScalp rides short 1-minute momentum bursts on deep books only. The
// signal resolves in seconds, so the expiry is tight and entries are always
// immediate market orders.
type MicroScalp struct {
	policy       *risk.LeveragePolicy
	baseLeverage int
	ttl          time.Duration
	now          func() time.Time
}

func NewMicroScalp(policy *risk.LeveragePolicy) *MicroScalp {
	return &MicroScalp{
		policy:       policy,
		baseLeverage: 20,
		ttl:          90 * time.Second,
		now:          time.Now,
	}
}

func (s *MicroScalp) Name() string { return NameMicroScalp }

func (s *MicroScalp) Evaluate(snapshots []model.MarketSnapshot, cfg Config) []model.CandidateSignal {
	now := s.now()

	var out []model.CandidateSignal
	for _, snap := range snapshots {
		// Scalping needs more liquidity than the global floor.
		if snap.Volume24h < cfg.ScalpMinVolume24h {
			continue
		}
		if snap.PriceChange1m == nil {
			continue
		}

		change := *snap.PriceChange1m
		if math.Abs(change) < cfg.ScalpMinChangePct {
			continue
		}

		direction := model.DirectionLong
		if change < 0 {
			direction = model.DirectionShort
		}

		intensity := math.Abs(change) / cfg.ScalpMinChangePct
		leverage := scaledLeverage(s.policy, snap.Symbol, s.baseLeverage, intensity)

		rationale := fmt.Sprintf("1m momentum %.2f%% on deep book", change)

		out = append(out, buildCandidate(
			snap.Symbol, direction, snap.LastPrice,
			cfg.ScalpTargetPct, cfg.ScalpStopPct,
			leverage, model.OrderModeMarket,
			s.Name(), rationale, intensity,
			"1m", s.ttl, now,
		))
	}

	return out
}
