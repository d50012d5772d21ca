package connectors

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"signalengine/src/model"
)

// forceOrderEvent mirrors the futures force-order stream payload. Side SELL
// means a long position was liquidated, BUY means a short was.
type forceOrderEvent struct {
	EventType string `json:"e"`
	Order     struct {
		Symbol   string `json:"s"`
		Side     string `json:"S"`
		Quantity string `json:"q"`
		AvgPrice string `json:"ap"`
	} `json:"o"`
}

// LiquidationTracker aggregates forced-liquidation notional per symbol and
// side over a sliding window, feeding the snapshot's liquidation field.
type LiquidationTracker struct {
	mu     sync.Mutex
	window time.Duration
	events map[string][]liqEvent
	now    func() time.Time
}

type liqEvent struct {
	at       time.Time
	longSide bool // true when a long was forced out
	notional float64
}

// NewLiquidationTracker builds a tracker with the given sliding window.
func NewLiquidationTracker(window time.Duration) *LiquidationTracker {
	return &LiquidationTracker{
		window: window,
		events: make(map[string][]liqEvent),
		now:    time.Now,
	}
}

// Add records one liquidation fill.
func (t *LiquidationTracker) Add(symbol string, longSide bool, notional float64, at time.Time) {
	if notional <= 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.events[symbol] = append(t.events[symbol], liqEvent{at: at, longSide: longSide, notional: notional})
}

// Aggregate returns the windowed per-side totals for a symbol. ok is false
// when nothing was seen inside the window, so the snapshot field stays
// absent rather than zero.
func (t *LiquidationTracker) Aggregate(symbol string) (model.LiquidationAggregate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.window)

	events := t.events[symbol]
	kept := events[:0]
	var agg model.LiquidationAggregate
	for _, e := range events {
		if e.at.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
		if e.longSide {
			agg.LongVolume += e.notional
		} else {
			agg.ShortVolume += e.notional
		}
	}

	if len(kept) == 0 {
		delete(t.events, symbol)
		return model.LiquidationAggregate{}, false
	}
	t.events[symbol] = kept

	return agg, true
}

// Run consumes the force-order stream until the context ends, reconnecting
// with a fixed wait after any failure. Stream problems only cost liquidation
// data; they never propagate into the evaluation pipeline.
func (t *LiquidationTracker) Run(ctx context.Context, cfg Config) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := t.consume(ctx, cfg.LiquidationStreamURL); err != nil {
			logger.WithError(err).Warn("liquidation stream disconnected, will reconnect")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.ReconnectWait):
		}
	}
}

func (t *LiquidationTracker) consume(ctx context.Context, url string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.WithField("url", url).Info("liquidation stream connected")

	// The watcher must exit with this connection, not with the context:
	// leaving it on ctx.Done alone leaks one goroutine per reconnect.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event forceOrderEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			logger.WithError(err).Debug("unparsable force-order frame")
			continue
		}
		if event.EventType != "forceOrder" {
			continue
		}

		qty, err1 := strconv.ParseFloat(event.Order.Quantity, 64)
		price, err2 := strconv.ParseFloat(event.Order.AvgPrice, 64)
		if err1 != nil || err2 != nil {
			continue
		}

		t.Add(event.Order.Symbol, event.Order.Side == "SELL", qty*price, time.Now())
	}
}
