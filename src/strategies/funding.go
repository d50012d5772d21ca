package strategies

import (
	"fmt"
	"math"
	"time"

	"signalengine/src/model"
	"signalengine/src/risk"
)

// FundingExtreme trades against crowded funding. A strongly positive funding
// rate means longs pay shorts and the crowd is long, so the strategy takes
// the SHORT side; strongly negative funding biases LONG. Signals resolve on
// the funding clock, so the expiry is hours-scale.
type FundingExtreme struct {
	policy       *risk.LeveragePolicy
	baseLeverage int
	ttl          time.Duration
	now          func() time.Time
}

func NewFundingExtreme(policy *risk.LeveragePolicy) *FundingExtreme {
	return &FundingExtreme{
		policy:       policy,
		baseLeverage: 10,
		ttl:          8 * time.Hour,
		now:          time.Now,
	}
}

func (s *FundingExtreme) Name() string { return NameFundingExtreme }

func (s *FundingExtreme) Evaluate(snapshots []model.MarketSnapshot, cfg Config) []model.CandidateSignal {
	now := s.now()

	var out []model.CandidateSignal
	for _, snap := range snapshots {
		if snap.Volume24h < cfg.MinVolume24h {
			continue
		}

		magnitude := math.Abs(snap.FundingRate)
		if magnitude < cfg.FundingMinRate {
			continue
		}

		direction := model.DirectionLong
		if snap.FundingRate > 0 {
			direction = model.DirectionShort
		}

		intensity := magnitude / cfg.FundingMinRate
		leverage := scaledLeverage(s.policy, snap.Symbol, s.baseLeverage, intensity)

		rationale := fmt.Sprintf("funding rate %.4f%%, crowd is %s",
			snap.FundingRate*100, direction.Opposite())

		out = append(out, buildCandidate(
			snap.Symbol, direction, snap.LastPrice,
			cfg.FundingTargetPct, cfg.FundingStopPct,
			leverage, model.OrderModeLimit,
			s.Name(), rationale, intensity,
			"8h", s.ttl, now,
		))
	}

	return out
}
