package risk

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"signalengine/src/model"
)

// Symbol tier used when a symbol has no explicit leverage ceiling.
type Tier string

const (
	TierMajor        Tier = "major"
	TierAlt          Tier = "alt"
	TierMeme         Tier = "meme"
	TierUnclassified Tier = "unclassified"
)

// DefaultMaintenanceMarginRatio is the flat maintenance margin fraction used
// by the liquidation approximation. Real exchanges tier this by notional;
// the flat value is deliberately conservative.
const DefaultMaintenanceMarginRatio = 0.005

// LeveragePolicy answers per-symbol leverage ceilings and owns the shared
// liquidation/trailing math. The ceiling table is static after construction.
type LeveragePolicy struct {
	ceilings map[string]int
	tiers    map[Tier]int
	memes    map[string]bool
}

// ceilingFile mirrors the optional YAML override layout.
type ceilingFile struct {
	Ceilings map[string]int `yaml:"ceilings"`
	Tiers    map[string]int `yaml:"tiers"`
}

// NewLeveragePolicy builds the policy with the built-in table.
func NewLeveragePolicy() *LeveragePolicy {
	return &LeveragePolicy{
		ceilings: map[string]int{
			"BTCUSDT":  125,
			"ETHUSDT":  100,
			"BNBUSDT":  75,
			"SOLUSDT":  75,
			"XRPUSDT":  75,
			"ADAUSDT":  75,
			"DOGEUSDT": 50,
			"AVAXUSDT": 50,
			"LINKUSDT": 50,
			"DOTUSDT":  50,
		},
		tiers: map[Tier]int{
			TierMajor:        75,
			TierAlt:          50,
			TierMeme:         20,
			TierUnclassified: 10,
		},
		memes: map[string]bool{
			"SHIBUSDT":  true,
			"PEPEUSDT":  true,
			"FLOKIUSDT": true,
			"BONKUSDT":  true,
			"WIFUSDT":   true,
			"MEMEUSDT":  true,
		},
	}
}

// NewLeveragePolicyFromFile overlays the built-in table with a YAML override.
// A missing file is not an error, the built-ins stand.
func NewLeveragePolicyFromFile(path string) (*LeveragePolicy, error) {
	p := NewLeveragePolicy()
	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.WithField("path", path).Warn("leverage override file not found, using built-in table")
			return p, nil
		}
		return nil, fmt.Errorf("failed to read leverage override file: %w", err)
	}

	var file ceilingFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse leverage override file: %w", err)
	}

	for sym, lev := range file.Ceilings {
		if lev >= 1 {
			p.ceilings[strings.ToUpper(sym)] = lev
		}
	}
	for tier, lev := range file.Tiers {
		if lev >= 1 {
			p.tiers[Tier(tier)] = lev
		}
	}

	logger.WithFields(map[string]interface{}{
		"path":     path,
		"ceilings": len(file.Ceilings),
		"tiers":    len(file.Tiers),
	}).Info("leverage override file applied")

	return p, nil
}

// MaxLeverage returns the ceiling for a symbol, falling back by tier when
// the symbol is unlisted.
func (p *LeveragePolicy) MaxLeverage(symbol string) int {
	symbol = strings.ToUpper(symbol)
	if lev, ok := p.ceilings[symbol]; ok {
		return lev
	}
	return p.tiers[p.classify(symbol)]
}

// ClampLeverage silently clamps the requested leverage into [1, ceiling].
// Exceeding the ceiling is expected and correctable, never an error.
func (p *LeveragePolicy) ClampLeverage(symbol string, requested int) int {
	maxLev := p.MaxLeverage(symbol)
	if requested > maxLev {
		return maxLev
	}
	if requested < 1 {
		return 1
	}
	return requested
}

func (p *LeveragePolicy) classify(symbol string) Tier {
	switch {
	case strings.HasPrefix(symbol, "BTC"), strings.HasPrefix(symbol, "ETH"):
		return TierMajor
	case p.memes[symbol]:
		return TierMeme
	case strings.HasSuffix(symbol, "USDT"), strings.HasSuffix(symbol, "USDC"), strings.HasSuffix(symbol, "USD"):
		return TierAlt
	default:
		return TierUnclassified
	}
}

// LiquidationPrice approximates the forced-liquidation price for an isolated
// position:
//
//	LONG:  entry * (1 - 1/leverage + mmr)
//	SHORT: entry * (1 + 1/leverage - mmr)
//
// The approximation ignores funding accrual and cross-margin effects.
func LiquidationPrice(entry decimal.Decimal, leverage int, direction model.Direction, mmr decimal.Decimal) decimal.Decimal {
	if leverage < 1 || entry.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	inverse := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(leverage)))
	one := decimal.NewFromInt(1)

	if direction == model.DirectionLong {
		return entry.Mul(one.Sub(inverse).Add(mmr))
	}
	return entry.Mul(one.Add(inverse).Sub(mmr))
}

// TrailingStop ratchets a stop in the favorable direction only. For a LONG
// the candidate stop is currentPrice*(1-trailingFraction) and the result
// never decreases; for a SHORT it is currentPrice*(1+trailingFraction) and
// the result never increases. previousStop zero means "no trail yet".
func TrailingStop(currentPrice, entryPrice decimal.Decimal, direction model.Direction, trailingFraction, previousStop decimal.Decimal) (decimal.Decimal, bool) {
	if currentPrice.LessThanOrEqual(decimal.Zero) || trailingFraction.LessThanOrEqual(decimal.Zero) {
		return previousStop, false
	}

	one := decimal.NewFromInt(1)

	switch direction {
	case model.DirectionLong:
		// Only trail once price has cleared entry.
		if currentPrice.LessThanOrEqual(entryPrice) {
			return previousStop, false
		}
		candidate := currentPrice.Mul(one.Sub(trailingFraction))
		if previousStop.IsZero() || candidate.GreaterThan(previousStop) {
			return candidate, true
		}
		return previousStop, false

	case model.DirectionShort:
		if currentPrice.GreaterThanOrEqual(entryPrice) {
			return previousStop, false
		}
		candidate := currentPrice.Mul(one.Add(trailingFraction))
		if previousStop.IsZero() || candidate.LessThan(previousStop) {
			return candidate, true
		}
		return previousStop, false

	default:
		return previousStop, false
	}
}

// WithinLiquidationBuffer reports whether price has entered the guard band
// around the liquidation price (buffer is a fraction, e.g. 0.01 for 1%).
func WithinLiquidationBuffer(price, liquidation decimal.Decimal, direction model.Direction, buffer decimal.Decimal) bool {
	if liquidation.LessThanOrEqual(decimal.Zero) {
		return false
	}

	one := decimal.NewFromInt(1)

	if direction == model.DirectionLong {
		// Guard fires while price falls toward liquidation from above.
		return price.LessThanOrEqual(liquidation.Mul(one.Add(buffer)))
	}
	return price.GreaterThanOrEqual(liquidation.Mul(one.Sub(buffer)))
}

// PositionSize converts an account risk fraction into a quantity given the
// entry/stop distance. Zero when the stop distance is zero.
func PositionSize(balance, riskFraction, entry, stop decimal.Decimal) decimal.Decimal {
	distance := entry.Sub(stop).Abs()
	if distance.IsZero() || entry.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	riskCapital := balance.Mul(riskFraction)
	return riskCapital.Div(distance)
}
