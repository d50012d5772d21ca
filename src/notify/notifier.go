package notify

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"signalengine/src/model"
)

// Notifier pushes human-readable signal and close events to a webhook.
// Delivery is fire-and-forget: a failure is logged and never propagates
// into position-lifecycle decisions.
type Notifier struct {
	client *resty.Client
	url    string
}

// NewNotifier builds a notifier from config. An empty webhook URL yields a
// notifier that drops everything silently.
func NewNotifier(cfg Config) *Notifier {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryAttempts).
		SetRetryWaitTime(cfg.RetryWait)

	return &Notifier{client: client, url: cfg.WebhookURL}
}

type pushMessage struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// SignalAccepted announces a newly accepted ranked signal.
func (n *Notifier) SignalAccepted(ctx context.Context, sig model.RankedSignal) {
	text := fmt.Sprintf("%s %s @ %.6g | target %.6g stop %.6g | lev %dx | score %.2f conf %d%% | %s",
		sig.Direction, sig.Symbol, sig.EntryPrice, sig.Target, sig.Stop,
		sig.Leverage, sig.Score, sig.Confidence, sig.Rationale)

	n.push(ctx, pushMessage{Kind: "signal", Text: text})
}

// PositionClosed announces a close event.
func (n *Notifier) PositionClosed(ctx context.Context, closed model.ClosedPosition) {
	text := fmt.Sprintf("closed %s %s @ %.6g (%s) | entry %.6g | %+.2f%% | held %s",
		closed.Direction, closed.Symbol, closed.ExitPrice, closed.Reason,
		closed.EntryPrice, closed.RealizedPct, closed.HoldingTime.Round(0))

	n.push(ctx, pushMessage{Kind: "close", Text: text})
}

func (n *Notifier) push(ctx context.Context, msg pushMessage) {
	if n.url == "" {
		return
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(msg).
		Post(n.url)

	if err != nil {
		logger.WithError(err).WithField("kind", msg.Kind).Warn("notification delivery failed")
		return
	}
	if resp.IsError() {
		logger.WithFields(map[string]interface{}{
			"kind":   msg.Kind,
			"status": resp.StatusCode(),
		}).Warn("notification endpoint returned an error")
	}
}
