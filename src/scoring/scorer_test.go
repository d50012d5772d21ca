package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalengine/src/model"
	"signalengine/src/strategies"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func candidate(symbol string, direction model.Direction, strategy string) model.CandidateSignal {
	entry := 100.0
	target, stop := 102.0, 99.0
	if direction == model.DirectionShort {
		target, stop = 98.0, 101.0
	}
	return model.CandidateSignal{
		ID:         model.NewSignalID(),
		Symbol:     symbol,
		Direction:  direction,
		EntryPrice: entry,
		Target:     target,
		Stop:       stop,
		Leverage:   10,
		OrderMode:  model.OrderModeMarket,
		Strategy:   strategy,
		Timeframe:  "15m",
		CreatedAt:  testNow,
		ExpiresAt:  testNow.Add(15 * time.Minute),
	}
}

func TestRank_DropsExpiredCandidates(t *testing.T) {
	s := NewScorer(nil)

	fresh := candidate("BTCUSDT", model.DirectionLong, strategies.NameFundingExtreme)
	expired := candidate("ETHUSDT", model.DirectionLong, strategies.NameFundingExtreme)
	expired.ExpiresAt = testNow.Add(-time.Second)
	boundary := candidate("SOLUSDT", model.DirectionLong, strategies.NameFundingExtreme)
	boundary.ExpiresAt = testNow // expiry == now counts as expired

	out := s.Rank([]model.CandidateSignal{fresh, expired, boundary}, testNow, 10)
	require.Len(t, out, 1)
	assert.Equal(t, "BTCUSDT", out[0].Symbol)
}

func TestRank_EmptyInputIsEmptyOutput(t *testing.T) {
	s := NewScorer(nil)

	assert.Empty(t, s.Rank(nil, testNow, 10))
	assert.Empty(t, s.Rank([]model.CandidateSignal{}, testNow, 10))
}

func TestRank_ConfidenceBonusesAndCap(t *testing.T) {
	s := NewScorer(nil)

	// Sweet-spot leverage, rr 2:1, short timeframe, market order: every
	// bonus applies, so the cap at 95 binds (50+15+15+10+10 = 100).
	c := candidate("BTCUSDT", model.DirectionLong, strategies.NameFundingExtreme)
	c.Target = 102 // reward 2%
	c.Stop = 99    // risk 1%

	out := s.Rank([]model.CandidateSignal{c}, testNow, 1)
	require.Len(t, out, 1)
	assert.Equal(t, 95, out[0].Confidence)
	assert.InDelta(t, 2.0, out[0].RiskReward, 1e-9)
}

func TestRank_ScoreFormula(t *testing.T) {
	s := NewScorer(nil)

	c := candidate("BTCUSDT", model.DirectionLong, strategies.NameFundingExtreme)
	out := s.Rank([]model.CandidateSignal{c}, testNow, 1)
	require.Len(t, out, 1)

	// confidence 95, rr 2.0, funding weight 0.9:
	// 0.4*95 + 0.3*(2*20) + 0.3*(0.9*100) = 38 + 12 + 27 = 77
	assert.Equal(t, 77.0, out[0].Score)
}

func TestRank_UnknownStrategyGetsDefaultWeight(t *testing.T) {
	s := NewScorer(nil)

	known := candidate("BTCUSDT", model.DirectionLong, strategies.NameFundingExtreme)
	unknown := candidate("ETHUSDT", model.DirectionLong, "mystery_strategy")

	out := s.Rank([]model.CandidateSignal{known, unknown}, testNow, 10)
	require.Len(t, out, 2)
	assert.Equal(t, "BTCUSDT", out[0].Symbol)
	assert.Greater(t, out[0].Score, out[1].Score)
}

func TestRank_DeduplicatesBySymbolKeepingHigherScore(t *testing.T) {
	s := NewScorer(nil)

	long := candidate("BTCUSDT", model.DirectionLong, strategies.NameMicroScalp)
	short := candidate("BTCUSDT", model.DirectionShort, strategies.NameFundingExtreme)

	out := s.Rank([]model.CandidateSignal{long, short}, testNow, 10)
	require.Len(t, out, 1)
	assert.Equal(t, model.DirectionShort, out[0].Direction)
	assert.Equal(t, strategies.NameFundingExtreme, out[0].Strategy)
}

func TestRank_TruncatesToMaxCount(t *testing.T) {
	s := NewScorer(nil)

	in := []model.CandidateSignal{
		candidate("BTCUSDT", model.DirectionLong, strategies.NameFundingExtreme),
		candidate("ETHUSDT", model.DirectionLong, strategies.NameVolumeSpike),
		candidate("SOLUSDT", model.DirectionLong, strategies.NameMicroScalp),
	}

	out := s.Rank(in, testNow, 2)
	require.Len(t, out, 2)
	assert.GreaterOrEqual(t, out[0].Score, out[1].Score)
}

func TestRank_DeterministicAndIdempotent(t *testing.T) {
	s := NewScorer(nil)

	in := []model.CandidateSignal{
		candidate("BTCUSDT", model.DirectionLong, strategies.NameFundingExtreme),
		candidate("ETHUSDT", model.DirectionShort, strategies.NameVolumeSpike),
		candidate("SOLUSDT", model.DirectionLong, strategies.NameOpenInterestSurge),
		candidate("ADAUSDT", model.DirectionShort, "mystery_strategy"),
	}

	first := s.Rank(in, testNow, 10)
	second := s.Rank(in, testNow, 10)
	require.Equal(t, first, second)
}

func TestRank_StableOrderOnTies(t *testing.T) {
	s := NewScorer(nil)

	// Identical candidates on different symbols produce identical scores;
	// input order must be preserved.
	a := candidate("AAAUSDT", model.DirectionLong, strategies.NameFundingExtreme)
	b := candidate("BBBUSDT", model.DirectionLong, strategies.NameFundingExtreme)

	out := s.Rank([]model.CandidateSignal{a, b}, testNow, 10)
	require.Len(t, out, 2)
	assert.Equal(t, "AAAUSDT", out[0].Symbol)
	assert.Equal(t, "BBBUSDT", out[1].Symbol)
}

func TestRank_ZeroRiskFractionMeansZeroRiskReward(t *testing.T) {
	s := NewScorer(nil)

	c := candidate("BTCUSDT", model.DirectionLong, strategies.NameFundingExtreme)
	c.Stop = c.EntryPrice // degenerate: no risk distance

	out := s.Rank([]model.CandidateSignal{c}, testNow, 1)
	require.Len(t, out, 1)
	assert.Zero(t, out[0].RiskReward)
}
