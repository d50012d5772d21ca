package strategies

import (
	"fmt"
	"math"
	"time"

	"signalengine/src/model"
	"signalengine/src/risk"
)

// VolumeSpike looks for a 1-minute volume burst against the rolling
// 5-minute baseline and follows the short-term price direction. Both
// 1m fields and the 5m baseline must be present on the snapshot; absence
// means the symbol is simply not evaluable this tick.
type VolumeSpike struct {
	policy       *risk.LeveragePolicy
	baseLeverage int
	ttl          time.Duration
	now          func() time.Time
}

func NewVolumeSpike(policy *risk.LeveragePolicy) *VolumeSpike {
	return &VolumeSpike{
		policy:       policy,
		baseLeverage: 15,
		ttl:          15 * time.Minute,
		now:          time.Now,
	}
}

func (s *VolumeSpike) Name() string { return NameVolumeSpike }

func (s *VolumeSpike) Evaluate(snapshots []model.MarketSnapshot, cfg Config) []model.CandidateSignal {
	now := s.now()

	var out []model.CandidateSignal
	for _, snap := range snapshots {
		if snap.Volume24h < cfg.MinVolume24h {
			continue
		}
		if snap.Volume1m == nil || snap.AvgVolume5m == nil || snap.PriceChange1m == nil {
			continue
		}
		if *snap.AvgVolume5m <= 0 {
			continue
		}

		ratio := *snap.Volume1m / *snap.AvgVolume5m
		if ratio < cfg.VolumeSpikeRatio {
			continue
		}

		change := *snap.PriceChange1m
		if math.Abs(change) < cfg.VolumeSpikeMinChange {
			continue
		}

		direction := model.DirectionLong
		if change < 0 {
			direction = model.DirectionShort
		}

		intensity := ratio / cfg.VolumeSpikeRatio
		leverage := scaledLeverage(s.policy, snap.Symbol, s.baseLeverage, intensity)

		rationale := fmt.Sprintf("1m volume %.1fx the 5m average with %.2f%% move", ratio, change)

		out = append(out, buildCandidate(
			snap.Symbol, direction, snap.LastPrice,
			cfg.VolumeSpikeTargetPct, cfg.VolumeSpikeStopPct,
			leverage, model.OrderModeMarket,
			s.Name(), rationale, intensity,
			"15m", s.ttl, now,
		))
	}

	return out
}
