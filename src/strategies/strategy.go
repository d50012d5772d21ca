package strategies

import (
	"time"

	logger "github.com/sirupsen/logrus"

	"signalengine/src/model"
	"signalengine/src/risk"
)

// Strategy maps one tick's snapshot set to candidate signals. Implementations
// are pure with respect to shared state: same snapshots and config in, same
// candidates out, no side effects beyond logging. "No opportunity" is an
// empty slice, never an error.
type Strategy interface {
	Name() string
	Evaluate(snapshots []model.MarketSnapshot, cfg Config) []model.CandidateSignal
}

// Strategy names. The scorer's weight table is keyed by these.
const (
	NameFundingExtreme     = "funding_extreme"
	NameVolumeSpike        = "volume_spike"
	NameLiquidationSqueeze = "liquidation_squeeze"
	NameOpenInterestSurge  = "open_interest_surge"
	NameMicroScalp         = "micro_scalp"
	NameCrossDivergence    = "cross_divergence"
)

// DefaultRegistry is the explicit, compile-time strategy list. Adding a
// strategy means appending a constructor here; nothing else changes.
func DefaultRegistry(policy *risk.LeveragePolicy) []Strategy {
	return []Strategy{
		NewFundingExtreme(policy),
		NewVolumeSpike(policy),
		NewLiquidationSqueeze(policy),
		NewOpenInterestSurge(policy),
		NewMicroScalp(policy),
		// The divergence slot ships without a reference feed and stays inert
		// until one is wired in. See divergence.go.
		NewCrossDivergence(policy, nil),
	}
}

// Evaluator runs every registered strategy over a snapshot set. A panic
// inside one strategy is recovered and logged; the remaining strategies
// still run. Snapshots failing validation are skipped for the tick.
type Evaluator struct {
	strategies []Strategy
	log        *logger.Entry
}

// NewEvaluator builds an evaluator over an explicit strategy list.
func NewEvaluator(log *logger.Entry, strategies []Strategy) *Evaluator {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &Evaluator{strategies: strategies, log: log}
}

// Evaluate returns the combined candidate list for this tick.
func (e *Evaluator) Evaluate(snapshots []model.MarketSnapshot, cfg Config) []model.CandidateSignal {
	usable := make([]model.MarketSnapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if err := snap.Validate(); err != nil {
			e.log.WithError(err).WithField("symbol", snap.Symbol).Warn("skipping malformed snapshot")
			continue
		}
		usable = append(usable, snap)
	}

	var candidates []model.CandidateSignal
	for _, strat := range e.strategies {
		for _, c := range e.runOne(strat, usable, cfg) {
			if err := c.Validate(); err != nil {
				e.log.WithError(err).WithFields(map[string]interface{}{
					"strategy": strat.Name(),
					"symbol":   c.Symbol,
				}).Warn("dropping malformed candidate")
				continue
			}
			candidates = append(candidates, c)
		}
	}

	return candidates
}

func (e *Evaluator) runOne(strat Strategy, snapshots []model.MarketSnapshot, cfg Config) (out []model.CandidateSignal) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithFields(map[string]interface{}{
				"strategy": strat.Name(),
				"panic":    r,
			}).Error("strategy panicked, other strategies continue")
			out = nil
		}
	}()

	out = strat.Evaluate(snapshots, cfg)

	if len(out) > 0 {
		e.log.WithFields(map[string]interface{}{
			"strategy":   strat.Name(),
			"candidates": len(out),
		}).Debug("strategy produced candidates")
	}

	return out
}

// buildCandidate assembles a directional candidate from percent distances.
// Target and stop land on the correct sides of entry by construction.
func buildCandidate(
	symbol string,
	direction model.Direction,
	entry float64,
	targetPct, stopPct float64,
	leverage int,
	mode model.OrderMode,
	strategyName, rationale string,
	intensity float64,
	timeframe string,
	ttl time.Duration,
	now time.Time,
) model.CandidateSignal {
	var target, stop float64
	if direction == model.DirectionLong {
		target = entry * (1 + targetPct)
		stop = entry * (1 - stopPct)
	} else {
		target = entry * (1 - targetPct)
		stop = entry * (1 + stopPct)
	}

	return model.CandidateSignal{
		ID:         model.NewSignalID(),
		Symbol:     symbol,
		Direction:  direction,
		EntryPrice: entry,
		Target:     target,
		Stop:       stop,
		Leverage:   leverage,
		OrderMode:  mode,
		Strategy:   strategyName,
		Rationale:  rationale,
		Intensity:  intensity,
		Timeframe:  timeframe,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

// scaledLeverage grows leverage with signal intensity, bounded below by base
// and above by the symbol ceiling. intensity 1.0 is "barely at threshold".
func scaledLeverage(policy *risk.LeveragePolicy, symbol string, base int, intensity float64) int {
	lev := base
	if intensity > 1 {
		lev = int(float64(base) * intensity)
	}
	return policy.ClampLeverage(symbol, lev)
}
