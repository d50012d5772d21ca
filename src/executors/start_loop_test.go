package executors

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	logger "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalengine/src/lifecycle"
	"signalengine/src/model"
	"signalengine/src/scoring"
	"signalengine/src/strategies"
)

var tickStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type stubStrategy struct {
	name       string
	candidates []model.CandidateSignal
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Evaluate([]model.MarketSnapshot, strategies.Config) []model.CandidateSignal {
	return s.candidates
}

type fakeGateway struct {
	placed []model.RankedSignal
	err    error
}

func (g *fakeGateway) PlaceEntry(_ context.Context, sig model.RankedSignal) error {
	if g.err != nil {
		return g.err
	}
	g.placed = append(g.placed, sig)
	return nil
}

type fakeSignalStore struct {
	mu       sync.Mutex
	saved    []model.SignalRecord
	statuses map[string]string
	expired  int
}

func (s *fakeSignalStore) Save(_ context.Context, record *model.SignalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, *record)
	return nil
}

func (s *fakeSignalStore) UpdateStatus(_ context.Context, signalID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses == nil {
		s.statuses = make(map[string]string)
	}
	s.statuses[signalID] = status
	return nil
}

func (s *fakeSignalStore) ExpireStale(context.Context, time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired++
	return 0, nil
}

type fakePositionStore struct {
	mu     sync.Mutex
	closed []model.ClosedPositionRecord
}

func (s *fakePositionStore) SaveClosed(_ context.Context, record *model.ClosedPositionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = append(s.closed, *record)
	return nil
}

type fakeNotifier struct {
	signals []model.RankedSignal
	closes  []model.ClosedPosition
}

func (n *fakeNotifier) SignalAccepted(_ context.Context, sig model.RankedSignal) {
	n.signals = append(n.signals, sig)
}

func (n *fakeNotifier) PositionClosed(_ context.Context, closed model.ClosedPosition) {
	n.closes = append(n.closes, closed)
}

type fakeSource struct {
	snapshots []model.MarketSnapshot
	err       error
}

func (s *fakeSource) Fetch(context.Context) ([]model.MarketSnapshot, error) {
	return s.snapshots, s.err
}

func longCandidate(symbol string) model.CandidateSignal {
	return model.CandidateSignal{
		ID:         model.NewSignalID(),
		Symbol:     symbol,
		Direction:  model.DirectionLong,
		EntryPrice: 100,
		Target:     102,
		Stop:       99,
		Leverage:   10,
		OrderMode:  model.OrderModeMarket,
		Strategy:   "stub",
		Rationale:  "stub candidate",
		Timeframe:  "1h",
		CreatedAt:  tickStart,
		ExpiresAt:  tickStart.Add(time.Hour),
	}
}

func snapshot(symbol string, price float64) model.MarketSnapshot {
	return model.MarketSnapshot{
		Symbol:     symbol,
		LastPrice:  price,
		Volume24h:  10_000_000,
		ObservedAt: tickStart,
	}
}

func newTestEngine(t *testing.T, strat strategies.Strategy) (*Engine, *fakeGateway, *fakeSignalStore, *fakePositionStore, *fakeNotifier, func(time.Time)) {
	t.Helper()

	log := logger.NewEntry(logger.StandardLogger())

	clock := tickStart
	now := func() time.Time { return clock }
	setClock := func(at time.Time) { clock = at }

	manager := lifecycle.NewManager(log, lifecycle.DefaultConfig())
	manager.SetClock(now)

	gw := &fakeGateway{}
	signals := &fakeSignalStore{}
	positions := &fakePositionStore{}
	notifier := &fakeNotifier{}

	engine := &Engine{
		cfg:       Config{TickInterval: 30 * time.Second, MaxSignalsPerTick: 5, PushBuffer: 1},
		stratCfg:  strategies.Config{},
		log:       log,
		now:       now,
		source:    &fakeSource{},
		evaluator: strategies.NewEvaluator(log, []strategies.Strategy{strat}),
		scorer:    scoring.NewScorer(log),
		manager:   manager,
		gateway:   gw,
		signals:   signals,
		positions: positions,
		notifier:  notifier,
		pushed:    make(chan []model.MarketSnapshot, 1),
	}

	return engine, gw, signals, positions, notifier, setClock
}

func TestRunTickOpensAndPersistsSignal(t *testing.T) {
	candidate := longCandidate("BTCUSDT")
	strat := &stubStrategy{name: "stub", candidates: []model.CandidateSignal{candidate}}
	engine, gw, signals, _, notifier, _ := newTestEngine(t, strat)

	engine.runTick(context.Background(), []model.MarketSnapshot{snapshot("BTCUSDT", 100)})

	require.Len(t, gw.placed, 1)
	assert.Equal(t, candidate.ID, gw.placed[0].ID)

	require.Len(t, signals.saved, 1)
	assert.Equal(t, candidate.ID, signals.saved[0].SignalID)
	assert.Equal(t, model.SignalStatusActive, signals.saved[0].Status)

	require.Len(t, notifier.signals, 1)
	assert.Equal(t, 1, engine.manager.OpenCount())
	assert.Equal(t, 1, signals.expired, "every tick sweeps stale records")
}

func TestRunTickGatewayErrorDropsSignal(t *testing.T) {
	strat := &stubStrategy{name: "stub", candidates: []model.CandidateSignal{longCandidate("BTCUSDT")}}
	engine, gw, signals, _, notifier, _ := newTestEngine(t, strat)
	gw.err = errors.New("exchange rejected")

	engine.runTick(context.Background(), []model.MarketSnapshot{snapshot("BTCUSDT", 100)})

	assert.Empty(t, signals.saved)
	assert.Empty(t, notifier.signals)
	assert.Zero(t, engine.manager.OpenCount())
}

func TestRunTickDuplicateAcceptIsNotRepersisted(t *testing.T) {
	candidate := longCandidate("BTCUSDT")
	strat := &stubStrategy{name: "stub", candidates: []model.CandidateSignal{candidate}}
	engine, gw, signals, _, _, _ := newTestEngine(t, strat)

	snaps := []model.MarketSnapshot{snapshot("BTCUSDT", 100)}
	engine.runTick(context.Background(), snaps)
	engine.runTick(context.Background(), snaps)

	assert.Len(t, signals.saved, 1, "same symbol+direction stays a single open position")
	assert.Len(t, gw.placed, 1, "re-emitted signal must not reach the gateway")
	assert.Equal(t, 1, engine.manager.OpenCount())
}

func TestRepeatedTicksPlaceSingleEntry(t *testing.T) {
	candidate := longCandidate("BTCUSDT")
	strat := &stubStrategy{name: "stub", candidates: []model.CandidateSignal{candidate}}
	engine, gw, _, _, _, _ := newTestEngine(t, strat)

	snaps := []model.MarketSnapshot{snapshot("BTCUSDT", 100)}
	for i := 0; i < 5; i++ {
		engine.runTick(context.Background(), snaps)
	}

	assert.Len(t, gw.placed, 1, "one open position means exactly one entry order")
	assert.Equal(t, 1, engine.manager.OpenCount())
}

func TestEntryPlacedAgainAfterClose(t *testing.T) {
	candidate := longCandidate("BTCUSDT")
	strat := &stubStrategy{name: "stub", candidates: []model.CandidateSignal{candidate}}
	engine, gw, _, _, _, setClock := newTestEngine(t, strat)

	engine.runTick(context.Background(), []model.MarketSnapshot{snapshot("BTCUSDT", 100)})
	require.Len(t, gw.placed, 1)

	// Target hit closes the position; the strategy emits a fresh candidate
	// afterwards, which must place a new entry.
	fresh := longCandidate("BTCUSDT")
	strat.candidates = []model.CandidateSignal{fresh}
	setClock(tickStart.Add(time.Minute))
	engine.runTick(context.Background(), []model.MarketSnapshot{snapshot("BTCUSDT", 102.5)})

	setClock(tickStart.Add(2 * time.Minute))
	engine.runTick(context.Background(), []model.MarketSnapshot{snapshot("BTCUSDT", 100)})

	assert.Len(t, gw.placed, 2, "a closed slot accepts a new entry")
}

func TestNewEngineRejectsLiveTrading(t *testing.T) {
	t.Setenv("PAPER_TRADING", "false")

	_, err := NewEngine(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "live order routing")
}

func TestTargetHitClosesAndCompletesSignal(t *testing.T) {
	candidate := longCandidate("BTCUSDT")
	strat := &stubStrategy{name: "stub", candidates: []model.CandidateSignal{candidate}}
	engine, _, signals, positions, notifier, setClock := newTestEngine(t, strat)

	engine.runTick(context.Background(), []model.MarketSnapshot{snapshot("BTCUSDT", 100)})
	require.Equal(t, 1, engine.manager.OpenCount())

	// Next pass: price through target, no new candidates.
	strat.candidates = nil
	setClock(tickStart.Add(time.Minute))
	engine.runTick(context.Background(), []model.MarketSnapshot{snapshot("BTCUSDT", 102.5)})

	assert.Zero(t, engine.manager.OpenCount())

	require.Len(t, positions.closed, 1)
	assert.Equal(t, model.CloseReasonTakeProfit, positions.closed[0].Reason)
	assert.Equal(t, candidate.ID, positions.closed[0].SignalID)

	assert.Equal(t, model.SignalStatusCompleted, signals.statuses[candidate.ID])
	require.Len(t, notifier.closes, 1)
}

func TestStatusForClose(t *testing.T) {
	cases := []struct {
		reason      string
		realizedPct float64
		want        string
	}{
		{model.CloseReasonTakeProfit, 2.0, model.SignalStatusCompleted},
		{model.CloseReasonStopLoss, -1.0, model.SignalStatusFailed},
		{model.CloseReasonPreLiquidation, -5.0, model.SignalStatusFailed},
		{model.CloseReasonTimeout, 0.4, model.SignalStatusCompleted},
		{model.CloseReasonTimeout, -0.4, model.SignalStatusFailed},
		{model.CloseReasonVolatilitySpike, 1.1, model.SignalStatusCompleted},
		{model.CloseReasonOppositeSignal, -0.2, model.SignalStatusFailed},
	}

	for _, tc := range cases {
		got := statusForClose(model.ClosedPosition{Reason: tc.reason, RealizedPct: tc.realizedPct})
		assert.Equal(t, tc.want, got, "reason %s pct %.1f", tc.reason, tc.realizedPct)
	}
}

func TestStartLoopStopsOnContextAndProcessesPush(t *testing.T) {
	candidate := longCandidate("BTCUSDT")
	strat := &stubStrategy{name: "stub", candidates: []model.CandidateSignal{candidate}}
	engine, _, signals, _, _, _ := newTestEngine(t, strat)
	engine.cfg.TickInterval = time.Hour // only the push should trigger work

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- engine.StartLoop(ctx) }()

	engine.Push([]model.MarketSnapshot{snapshot("BTCUSDT", 100)})

	require.Eventually(t, func() bool {
		signals.mu.Lock()
		defer signals.mu.Unlock()
		return len(signals.saved) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on context cancellation")
	}
}

func TestPushDropsWhenBufferFull(t *testing.T) {
	strat := &stubStrategy{name: "stub"}
	engine, _, _, _, _, _ := newTestEngine(t, strat)

	// Buffer of one: second push must not block.
	engine.Push([]model.MarketSnapshot{snapshot("BTCUSDT", 100)})
	doneCh := make(chan struct{})
	go func() {
		engine.Push([]model.MarketSnapshot{snapshot("BTCUSDT", 101)})
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("push blocked on a full buffer")
	}
}
