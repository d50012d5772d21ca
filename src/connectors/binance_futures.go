package connectors

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	logger "github.com/sirupsen/logrus"

	"signalengine/src/model"
)

// SnapshotSource supplies the per-symbol market snapshots for one tick.
type SnapshotSource interface {
	Fetch(ctx context.Context) ([]model.MarketSnapshot, error)
}

// LiquidationProvider answers the recent liquidation aggregate for a symbol.
// Implemented by the force-order stream tracker.
type LiquidationProvider interface {
	Aggregate(symbol string) (model.LiquidationAggregate, bool)
}

// futuresAPI narrows the go-binance futures client to the calls the source
// needs, so tests can fake it.
type futuresAPI interface {
	PriceChangeStats(ctx context.Context) ([]*futures.PriceChangeStats, error)
	PremiumIndex(ctx context.Context) ([]*futures.PremiumIndex, error)
	OpenInterest(ctx context.Context, symbol string) (*futures.OpenInterest, error)
}

type binanceFuturesAPI struct {
	client *futures.Client
}

func (a *binanceFuturesAPI) PriceChangeStats(ctx context.Context) ([]*futures.PriceChangeStats, error) {
	return a.client.NewListPriceChangeStatsService().Do(ctx)
}

func (a *binanceFuturesAPI) PremiumIndex(ctx context.Context) ([]*futures.PremiumIndex, error) {
	return a.client.NewPremiumIndexService().Do(ctx)
}

func (a *binanceFuturesAPI) OpenInterest(ctx context.Context, symbol string) (*futures.OpenInterest, error) {
	return a.client.NewGetOpenInterestService().Symbol(symbol).Do(ctx)
}

// BinanceFuturesSource assembles MarketSnapshots from the USD-M futures
// REST API plus the liquidation stream tracker. Short-horizon fields (1m
// change/volume, rolling 5m volume) are derived from consecutive polls and
// stay absent until enough history has accumulated.
type BinanceFuturesSource struct {
	api          futuresAPI
	symbols      map[string]bool
	liquidations LiquidationProvider
	history      *tickHistory
	now          func() time.Time
}

// NewBinanceFuturesSource builds the live source. liquidations may be nil
// when no stream is running; the aggregate field simply stays absent.
func NewBinanceFuturesSource(cfg Config, liquidations LiquidationProvider) *BinanceFuturesSource {
	symbols := make(map[string]bool, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		symbols[s] = true
	}

	return &BinanceFuturesSource{
		api:          &binanceFuturesAPI{client: futures.NewClient("", "")},
		symbols:      symbols,
		liquidations: liquidations,
		history:      newTickHistory(6 * time.Minute),
		now:          time.Now,
	}
}

// Fetch polls the REST API and merges everything into snapshot values.
// A symbol with a malformed payload is skipped for the tick, never fatal.
func (s *BinanceFuturesSource) Fetch(ctx context.Context) ([]model.MarketSnapshot, error) {
	stats, err := s.api.PriceChangeStats(ctx)
	if err != nil {
		return nil, err
	}

	premiums, err := s.api.PremiumIndex(ctx)
	if err != nil {
		return nil, err
	}

	premiumBySymbol := make(map[string]*futures.PremiumIndex, len(premiums))
	for _, p := range premiums {
		premiumBySymbol[p.Symbol] = p
	}

	now := s.now()

	var snapshots []model.MarketSnapshot
	for _, st := range stats {
		if !s.symbols[st.Symbol] {
			continue
		}

		price, err := strconv.ParseFloat(st.LastPrice, 64)
		if err != nil || price <= 0 {
			logger.WithField("symbol", st.Symbol).Warn("skipping symbol with unparsable price")
			continue
		}
		quoteVolume, _ := strconv.ParseFloat(st.QuoteVolume, 64)
		changePct, _ := strconv.ParseFloat(st.PriceChangePercent, 64)

		snap := model.MarketSnapshot{
			Symbol:         st.Symbol,
			LastPrice:      price,
			Volume24h:      quoteVolume,
			PriceChange24h: changePct,
			ObservedAt:     now,
		}

		if p, ok := premiumBySymbol[st.Symbol]; ok {
			if funding, err := strconv.ParseFloat(p.LastFundingRate, 64); err == nil {
				snap.FundingRate = funding
			}
			if p.NextFundingTime > 0 {
				snap.NextFundingTime = time.UnixMilli(p.NextFundingTime)
			}
		}

		if oi, err := s.api.OpenInterest(ctx, st.Symbol); err == nil {
			if contracts, err := strconv.ParseFloat(oi.OpenInterest, 64); err == nil {
				snap.OpenInterest = contracts * price
			}
		} else {
			logger.WithError(err).WithField("symbol", st.Symbol).Debug("open interest unavailable this tick")
		}

		s.history.observe(st.Symbol, now, price, quoteVolume)
		if chg, vol, avg, ok := s.history.shortHorizon(st.Symbol, now); ok {
			snap.PriceChange1m = &chg
			snap.Volume1m = &vol
			snap.AvgVolume5m = &avg
		}

		if s.liquidations != nil {
			if agg, ok := s.liquidations.Aggregate(st.Symbol); ok {
				snap.Liquidations = &agg
			}
		}

		snapshots = append(snapshots, snap)
	}

	logger.WithField("symbols", len(snapshots)).Debug("snapshot fetch complete")

	return snapshots, nil
}

// tickHistory keeps a short per-symbol series of (price, cumulative 24h
// quote volume) observations and derives 1m/5m fields from deltas.
type tickHistory struct {
	mu        sync.Mutex
	retention time.Duration
	series    map[string][]tickPoint
}

type tickPoint struct {
	at        time.Time
	price     float64
	cumVolume float64
}

func newTickHistory(retention time.Duration) *tickHistory {
	return &tickHistory{
		retention: retention,
		series:    make(map[string][]tickPoint),
	}
}

func (h *tickHistory) observe(symbol string, at time.Time, price, cumVolume float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	points := append(h.series[symbol], tickPoint{at: at, price: price, cumVolume: cumVolume})

	cutoff := at.Add(-h.retention)
	start := 0
	for start < len(points) && points[start].at.Before(cutoff) {
		start++
	}
	h.series[symbol] = points[start:]
}

// shortHorizon returns (1m change percent, 1m volume, rolling 5m average
// volume per minute). ok is false until at least a minute of history exists.
// The 24h volume counter occasionally resets upstream; a negative delta is
// treated as no data for the interval.
func (h *tickHistory) shortHorizon(symbol string, now time.Time) (changePct, volume1m, avgVolume5m float64, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	points := h.series[symbol]
	if len(points) < 2 {
		return 0, 0, 0, false
	}

	latest := points[len(points)-1]

	ref, found := oldestSince(points, now.Add(-time.Minute))
	if !found || ref.at.Equal(latest.at) || ref.price <= 0 {
		return 0, 0, 0, false
	}

	changePct = (latest.price - ref.price) / ref.price * 100
	volume1m = latest.cumVolume - ref.cumVolume
	if volume1m < 0 {
		return 0, 0, 0, false
	}

	ref5, found := oldestSince(points, now.Add(-5*time.Minute))
	if !found || latest.at.Sub(ref5.at) <= 0 {
		return 0, 0, 0, false
	}
	delta5 := latest.cumVolume - ref5.cumVolume
	if delta5 < 0 {
		return 0, 0, 0, false
	}
	minutes := latest.at.Sub(ref5.at).Minutes()
	avgVolume5m = delta5 / minutes

	return changePct, volume1m, avgVolume5m, true
}

// oldestSince returns the earliest point at or after the cutoff.
func oldestSince(points []tickPoint, cutoff time.Time) (tickPoint, bool) {
	for _, p := range points {
		if !p.at.Before(cutoff) {
			return p, true
		}
	}
	return tickPoint{}, false
}
