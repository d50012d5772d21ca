package executors

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"

	"signalengine/src/connectors"
	"signalengine/src/gateway"
	"signalengine/src/lifecycle"
	"signalengine/src/metrics"
	"signalengine/src/model"
	"signalengine/src/notify"
	"signalengine/src/repository"
	"signalengine/src/risk"
	"signalengine/src/scoring"
	"signalengine/src/strategies"
)

// signalStore is the slice of SignalRepository the engine needs.
type signalStore interface {
	Save(ctx context.Context, record *model.SignalRecord) error
	UpdateStatus(ctx context.Context, signalID, status string) error
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// positionStore is the slice of PositionRepository the engine needs.
type positionStore interface {
	SaveClosed(ctx context.Context, record *model.ClosedPositionRecord) error
}

// eventNotifier pushes human-facing signal and close events.
type eventNotifier interface {
	SignalAccepted(ctx context.Context, sig model.RankedSignal)
	PositionClosed(ctx context.Context, closed model.ClosedPosition)
}

// Engine drives the evaluation pipeline. One tick is one full pass:
// fetch snapshots, run every strategy, rank, place and record the accepted
// signals, then re-evaluate open positions. The lifecycle manager is the
// single writer of position state; the engine never mutates positions
// directly.
type Engine struct {
	cfg      Config
	stratCfg strategies.Config
	log      *logger.Entry
	now      func() time.Time

	source    connectors.SnapshotSource
	evaluator *strategies.Evaluator
	scorer    *scoring.Scorer
	manager   *lifecycle.Manager
	gateway   gateway.ExecutionGateway
	signals   signalStore
	positions positionStore
	notifier  eventNotifier

	// pushed receives snapshot batches from async sources (stream ticks).
	// They go through the same single pass as polled snapshots.
	pushed chan []model.MarketSnapshot
}

// NewEngine wires the standard pipeline: live Binance futures source, the
// full strategy registry, database-backed stores and the webhook notifier.
func NewEngine(ctx context.Context) (*Engine, error) {
	cfg := GetConfig()

	// The paper gateway is the only order routing this service carries.
	if !cfg.PaperTrading {
		return nil, errors.New("live order routing is not implemented, set PAPER_TRADING=true")
	}

	policy, err := risk.NewLeveragePolicyFromFile(cfg.LeverageConfigPath)
	if err != nil {
		return nil, err
	}

	weights, err := scoring.StrategyWeightsFromFile(cfg.WeightsConfigPath)
	if err != nil {
		return nil, err
	}

	connCfg := connectors.GetConfig()
	tracker := connectors.NewLiquidationTracker(connCfg.LiquidationWindow)
	go tracker.Run(ctx, connCfg)

	log := logger.WithField("component", "engine")

	return &Engine{
		cfg:       cfg,
		stratCfg:  strategies.GetConfig(),
		log:       log,
		now:       time.Now,
		source:    connectors.NewBinanceFuturesSource(connCfg, tracker),
		evaluator: strategies.NewEvaluator(log, strategies.DefaultRegistry(policy)),
		scorer:    scoring.NewScorerWithPolicy(log, scoring.DefaultWeights(), weights),
		manager:   lifecycle.NewManager(log, lifecycle.DefaultConfig()),
		gateway:   gateway.NewPaperGateway(log),
		signals:   repository.NewSignalRepository(),
		positions: repository.NewPositionRepository(),
		notifier:  notify.NewNotifier(notify.GetConfig()),
		pushed:    make(chan []model.MarketSnapshot, cfg.PushBuffer),
	}, nil
}

// Manager exposes the lifecycle manager for the status API.
func (e *Engine) Manager() *lifecycle.Manager { return e.manager }

// Push hands a snapshot batch from an async source to the loop. Dropping is
// fine when the loop is behind; the next poll covers the same symbols.
func (e *Engine) Push(snapshots []model.MarketSnapshot) {
	select {
	case e.pushed <- snapshots:
	default:
		e.log.Warn("snapshot push dropped, loop is behind")
	}
}

// StartLoop runs the engine until the context ends. Shutdown logs a final
// status snapshot; open positions are left as they are, never force-closed.
func (e *Engine) StartLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	e.log.WithField("interval", e.cfg.TickInterval.String()).Info("engine loop started")

	for {
		select {
		case <-ctx.Done():
			e.flushStatus()
			return nil

		case <-ticker.C:
			snapshots, err := e.source.Fetch(ctx)
			if err != nil {
				e.log.WithError(err).Error("snapshot fetch failed, skipping tick")
				continue
			}
			e.runTick(ctx, snapshots)

		case snapshots := <-e.pushed:
			e.runTick(ctx, snapshots)
		}
	}
}

// runTick is one full evaluation pass. Signal generation runs before the
// lifecycle pass so an accepted opposite signal can close a position on the
// same tick.
func (e *Engine) runTick(ctx context.Context, snapshots []model.MarketSnapshot) {
	started := e.now()
	defer func() {
		metrics.TickDuration.Observe(time.Since(started).Seconds())
		metrics.TicksTotal.Inc()
	}()

	candidates := e.evaluator.Evaluate(snapshots, e.stratCfg)
	for _, c := range candidates {
		metrics.SignalsGenerated.WithLabelValues(c.Strategy).Inc()
	}

	ranked := e.scorer.Rank(candidates, e.now(), e.cfg.MaxSignalsPerTick)
	for _, sig := range ranked {
		e.acceptSignal(ctx, sig)
	}

	for _, closed := range e.manager.Tick(snapshots) {
		e.recordClose(ctx, closed)
	}

	if _, err := e.signals.ExpireStale(ctx, e.now()); err != nil {
		e.log.WithError(err).Error("stale signal sweep failed")
	}

	metrics.OpenPositions.Set(float64(e.manager.OpenCount()))
}

func (e *Engine) acceptSignal(ctx context.Context, sig model.RankedSignal) {
	// An already-open symbol+direction never reaches the gateway: placing
	// the entry first would leak a live order that Accept then refuses.
	if e.manager.HasOpen(sig.Symbol, sig.Direction) {
		e.log.WithFields(map[string]interface{}{
			"symbol":    sig.Symbol,
			"direction": sig.Direction,
		}).Debug("position already open, entry not placed")
		return
	}

	if err := e.gateway.PlaceEntry(ctx, sig); err != nil {
		e.log.WithError(err).WithFields(map[string]interface{}{
			"symbol":    sig.Symbol,
			"direction": sig.Direction,
		}).Error("entry placement failed, signal dropped")
		return
	}

	pos := e.manager.Accept(sig)
	if pos == nil {
		return
	}

	metrics.SignalsAccepted.WithLabelValues(sig.Strategy).Inc()
	metrics.PositionsOpened.WithLabelValues(pos.Symbol, string(pos.Direction)).Inc()

	record := model.NewSignalRecord(sig)
	if err := e.signals.Save(ctx, &record); err != nil {
		e.log.WithError(err).WithField("signal_id", sig.ID).Error("failed to persist accepted signal")
	}

	e.notifier.SignalAccepted(ctx, sig)
}

func (e *Engine) recordClose(ctx context.Context, closed model.ClosedPosition) {
	metrics.PositionsClosed.WithLabelValues(closed.Reason).Inc()

	record := model.NewClosedPositionRecord(closed)
	if err := e.positions.SaveClosed(ctx, &record); err != nil {
		e.log.WithError(err).WithField("symbol", closed.Symbol).Error("failed to persist close event")
	}

	if closed.SignalID != "" {
		if err := e.signals.UpdateStatus(ctx, closed.SignalID, statusForClose(closed)); err != nil {
			e.log.WithError(err).WithField("signal_id", closed.SignalID).Error("failed to update signal status")
		}
	}

	e.notifier.PositionClosed(ctx, closed)
}

// statusForClose maps an exit to the stored signal status. Target hits are
// COMPLETED and stop-side exits FAILED; the remaining reasons settle on the
// sign of the realized move.
func statusForClose(closed model.ClosedPosition) string {
	switch closed.Reason {
	case model.CloseReasonTakeProfit:
		return model.SignalStatusCompleted
	case model.CloseReasonStopLoss, model.CloseReasonPreLiquidation:
		return model.SignalStatusFailed
	}
	if closed.RealizedPct >= 0 {
		return model.SignalStatusCompleted
	}
	return model.SignalStatusFailed
}

func (e *Engine) flushStatus() {
	open := e.manager.OpenPositions()

	symbols := make([]string, 0, len(open))
	for _, p := range open {
		symbols = append(symbols, p.Symbol+"/"+string(p.Direction))
	}

	e.log.WithFields(map[string]interface{}{
		"open_positions": len(open),
		"positions":      symbols,
	}).Info("engine loop stopped, open positions left untouched")
}
