package scoring

import (
	"math"
	"sort"
	"time"

	logger "github.com/sirupsen/logrus"

	"signalengine/src/model"
	"signalengine/src/strategies"
)

// Weights is the named, overridable scoring policy. Score =
// ConfidenceWeight*confidence + RiskRewardWeight*(rr*RiskRewardScale) +
// StrategyWeight*(strategyWeight*StrategyScale), rounded to 2 decimals.
type Weights struct {
	ConfidenceWeight float64
	RiskRewardWeight float64
	StrategyWeight   float64
	RiskRewardScale  float64
	StrategyScale    float64
}

// DefaultWeights returns the standard 0.4/0.3/0.3 split.
func DefaultWeights() Weights {
	return Weights{
		ConfidenceWeight: 0.4,
		RiskRewardWeight: 0.3,
		StrategyWeight:   0.3,
		RiskRewardScale:  20,
		StrategyScale:    100,
	}
}

// Confidence policy constants.
const (
	confidenceBase = 50
	confidenceCap  = 95

	// Leverage sweet spot: high enough to matter, low enough to survive
	// ordinary noise.
	sweetSpotMinLeverage = 5
	sweetSpotMaxLeverage = 20

	leverageBonus     = 15
	riskRewardBonus   = 15
	timeframeBonus    = 10
	orderModeBonus    = 10
	riskRewardFloor   = 2.0
	shortTimeframeTTL = time.Hour
)

// DefaultStrategyWeight applies to strategies missing from the weight table.
const DefaultStrategyWeight = 0.3

// DefaultStrategyWeights is the static per-strategy quality table.
func DefaultStrategyWeights() map[string]float64 {
	return map[string]float64{
		strategies.NameFundingExtreme:     0.9,
		strategies.NameLiquidationSqueeze: 0.8,
		strategies.NameVolumeSpike:        0.7,
		strategies.NameOpenInterestSurge:  0.6,
		strategies.NameMicroScalp:         0.5,
		strategies.NameCrossDivergence:    0.4,
	}
}

// Scorer ranks and deduplicates candidate signals. It holds no mutable
// state: ranking the same input with the same now is bit-identical.
type Scorer struct {
	weights         Weights
	strategyWeights map[string]float64
	log             *logger.Entry
}

// NewScorer builds a scorer with the default policy.
func NewScorer(log *logger.Entry) *Scorer {
	return NewScorerWithPolicy(log, DefaultWeights(), DefaultStrategyWeights())
}

// NewScorerWithPolicy builds a scorer with explicit weights.
func NewScorerWithPolicy(log *logger.Entry, weights Weights, strategyWeights map[string]float64) *Scorer {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &Scorer{weights: weights, strategyWeights: strategyWeights, log: log}
}

// Rank drops expired candidates, scores the survivors, keeps the best
// candidate per symbol, and returns the top maxCount by descending score.
// Ties keep input order. Empty or fully-expired input yields an empty
// slice, never an error.
func (s *Scorer) Rank(candidates []model.CandidateSignal, now time.Time, maxCount int) []model.RankedSignal {
	ranked := make([]model.RankedSignal, 0, len(candidates))
	for _, c := range candidates {
		if c.Expired(now) {
			s.log.WithFields(map[string]interface{}{
				"symbol":   c.Symbol,
				"strategy": c.Strategy,
			}).Debug("dropping expired candidate")
			continue
		}
		ranked = append(ranked, s.score(c))
	}

	ranked = dedupeBySymbol(ranked)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if maxCount > 0 && len(ranked) > maxCount {
		ranked = ranked[:maxCount]
	}

	return ranked
}

func (s *Scorer) score(c model.CandidateSignal) model.RankedSignal {
	confidence := s.confidence(c)
	rr := riskReward(c)

	weight, ok := s.strategyWeights[c.Strategy]
	if !ok {
		weight = DefaultStrategyWeight
	}

	score := s.weights.ConfidenceWeight*float64(confidence) +
		s.weights.RiskRewardWeight*(rr*s.weights.RiskRewardScale) +
		s.weights.StrategyWeight*(weight*s.weights.StrategyScale)

	return model.RankedSignal{
		CandidateSignal: c,
		Score:           math.Round(score*100) / 100,
		Confidence:      confidence,
		RiskReward:      rr,
	}
}

func (s *Scorer) confidence(c model.CandidateSignal) int {
	confidence := confidenceBase

	if c.Leverage >= sweetSpotMinLeverage && c.Leverage <= sweetSpotMaxLeverage {
		confidence += leverageBonus
	}
	if riskReward(c) >= riskRewardFloor {
		confidence += riskRewardBonus
	}
	if c.ExpiresAt.Sub(c.CreatedAt) <= shortTimeframeTTL {
		confidence += timeframeBonus
	}
	if c.OrderMode == model.OrderModeMarket {
		confidence += orderModeBonus
	}

	if confidence > confidenceCap {
		confidence = confidenceCap
	}
	return confidence
}

// riskReward is reward fraction over risk fraction, zero when the risk
// fraction is zero.
func riskReward(c model.CandidateSignal) float64 {
	riskFrac := c.RiskFraction()
	if riskFrac == 0 {
		return 0
	}
	return c.RewardFraction() / riskFrac
}

// dedupeBySymbol keeps only the highest-scoring candidate per symbol,
// preserving input order among the keepers. Same-symbol signals from
// different strategies are mutually exclusive regardless of direction:
// only one pending candidate per symbol survives ranking.
func dedupeBySymbol(ranked []model.RankedSignal) []model.RankedSignal {
	best := make(map[string]int, len(ranked)) // symbol -> index into ranked
	for i, r := range ranked {
		if j, ok := best[r.Symbol]; !ok || r.Score > ranked[j].Score {
			best[r.Symbol] = i
		}
	}

	out := make([]model.RankedSignal, 0, len(best))
	for i, r := range ranked {
		if best[r.Symbol] == i {
			out = append(out, r)
		}
	}
	return out
}
