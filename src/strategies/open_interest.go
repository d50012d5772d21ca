package strategies

import (
	"fmt"
	"math"
	"time"

	"signalengine/src/model"
	"signalengine/src/risk"
)

// OpenInterestSurge follows an established 24h trend when open interest is
// large relative to traded volume, reading the OI buildup as conviction
// behind the move.
type OpenInterestSurge struct {
	policy       *risk.LeveragePolicy
	baseLeverage int
	ttl          time.Duration
	now          func() time.Time
}

func NewOpenInterestSurge(policy *risk.LeveragePolicy) *OpenInterestSurge {
	return &OpenInterestSurge{
		policy:       policy,
		baseLeverage: 8,
		ttl:          4 * time.Hour,
		now:          time.Now,
	}
}

func (s *OpenInterestSurge) Name() string { return NameOpenInterestSurge }

func (s *OpenInterestSurge) Evaluate(snapshots []model.MarketSnapshot, cfg Config) []model.CandidateSignal {
	now := s.now()

	var out []model.CandidateSignal
	for _, snap := range snapshots {
		if snap.Volume24h < cfg.MinVolume24h || snap.OpenInterest <= 0 {
			continue
		}

		ratio := snap.OpenInterest / snap.Volume24h
		if ratio < cfg.OIVolumeRatioMin {
			continue
		}

		trend := snap.PriceChange24h
		if math.Abs(trend) < cfg.OIMinTrendPct {
			continue
		}

		direction := model.DirectionLong
		if trend < 0 {
			direction = model.DirectionShort
		}

		intensity := ratio / cfg.OIVolumeRatioMin
		leverage := scaledLeverage(s.policy, snap.Symbol, s.baseLeverage, intensity)

		rationale := fmt.Sprintf("OI/volume ratio %.2f with %.1f%% 24h trend", ratio, trend)

		out = append(out, buildCandidate(
			snap.Symbol, direction, snap.LastPrice,
			cfg.OITargetPct, cfg.OIStopPct,
			leverage, model.OrderModeLimit,
			s.Name(), rationale, intensity,
			"4h", s.ttl, now,
		))
	}

	return out
}
