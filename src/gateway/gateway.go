package gateway

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"signalengine/src/model"
)

// ExecutionGateway attempts to realize an accepted signal at the exchange.
// The engine does not retry placement: on error it simply does not open a
// position for the signal.
type ExecutionGateway interface {
	PlaceEntry(ctx context.Context, sig model.RankedSignal) error
}

// PaperGateway accepts every entry without touching an exchange. It stands
// in for real order routing, which lives outside this engine.
type PaperGateway struct {
	log *logger.Entry
}

func NewPaperGateway(log *logger.Entry) *PaperGateway {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	return &PaperGateway{log: log}
}

func (g *PaperGateway) PlaceEntry(_ context.Context, sig model.RankedSignal) error {
	g.log.WithFields(map[string]interface{}{
		"symbol":     sig.Symbol,
		"direction":  sig.Direction,
		"entry":      sig.EntryPrice,
		"leverage":   sig.Leverage,
		"order_mode": sig.OrderMode,
	}).Info("paper entry accepted")
	return nil
}
