package strategies

import (
	"fmt"
	"math"
	"time"

	"signalengine/src/model"
	"signalengine/src/risk"
)

// ReferencePriceFunc supplies a comparison price for a symbol from another
// venue. Returns false when no reference is available.
type ReferencePriceFunc func(symbol string) (float64, bool)

// CrossDivergence is a pluggable strategy slot, not production-ready logic.
// It needs a cross-exchange reference price feed this repository does not
// ship; until one is wired in the constructor receives nil and the strategy
// evaluates to nothing. The thresholds are placeholders and have not been
// validated against real cross-venue data.
type CrossDivergence struct {
	policy       *risk.LeveragePolicy
	reference    ReferencePriceFunc
	baseLeverage int
	ttl          time.Duration
	now          func() time.Time
}

func NewCrossDivergence(policy *risk.LeveragePolicy, reference ReferencePriceFunc) *CrossDivergence {
	return &CrossDivergence{
		policy:       policy,
		reference:    reference,
		baseLeverage: 5,
		ttl:          10 * time.Minute,
		now:          time.Now,
	}
}

func (s *CrossDivergence) Name() string { return NameCrossDivergence }

func (s *CrossDivergence) Evaluate(snapshots []model.MarketSnapshot, cfg Config) []model.CandidateSignal {
	if s.reference == nil {
		return nil
	}

	now := s.now()

	var out []model.CandidateSignal
	for _, snap := range snapshots {
		if snap.Volume24h < cfg.MinVolume24h {
			continue
		}

		ref, ok := s.reference(snap.Symbol)
		if !ok || ref <= 0 {
			continue
		}

		gapPct := (snap.LastPrice - ref) / ref * 100
		if math.Abs(gapPct) < cfg.DivergenceMinGapPct {
			continue
		}

		// Local price above the reference: expect reversion down.
		direction := model.DirectionShort
		if gapPct < 0 {
			direction = model.DirectionLong
		}

		intensity := math.Abs(gapPct) / cfg.DivergenceMinGapPct
		leverage := scaledLeverage(s.policy, snap.Symbol, s.baseLeverage, intensity)

		rationale := fmt.Sprintf("%.2f%% gap to reference venue price %.4f", gapPct, ref)

		out = append(out, buildCandidate(
			snap.Symbol, direction, snap.LastPrice,
			cfg.DivergenceTargetPct, cfg.DivergenceStopPct,
			leverage, model.OrderModeLimit,
			s.Name(), rationale, intensity,
			"10m", s.ttl, now,
		))
	}

	return out
}
