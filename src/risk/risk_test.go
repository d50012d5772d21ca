package risk

import (
	"testing"

	"github.com/shopspring/decimal"

	"signalengine/src/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMaxLeverage_ListedSymbol(t *testing.T) {
	p := NewLeveragePolicy()
	if got := p.MaxLeverage("BTCUSDT"); got != 125 {
		t.Fatalf("expected 125, got %d", got)
	}
	if got := p.MaxLeverage("btcusdt"); got != 125 {
		t.Fatalf("lookup should be case-insensitive, got %d", got)
	}
}

func TestMaxLeverage_TierFallback(t *testing.T) {
	p := NewLeveragePolicy()

	if got := p.MaxLeverage("ETHBTC"); got != 75 {
		t.Fatalf("ETH-prefixed symbol should fall back to major tier, got %d", got)
	}
	if got := p.MaxLeverage("PEPEUSDT"); got != 20 {
		t.Fatalf("meme symbol should use meme tier, got %d", got)
	}
	if got := p.MaxLeverage("NEWCOINUSDT"); got != 50 {
		t.Fatalf("unknown USDT pair should use alt tier, got %d", got)
	}
	if got := p.MaxLeverage("SOMETHING"); got != 10 {
		t.Fatalf("unclassifiable symbol should use lowest tier, got %d", got)
	}
}

func TestClampLeverage_SilentClamp(t *testing.T) {
	p := NewLeveragePolicy()

	if got := p.ClampLeverage("DOGEUSDT", 500); got != 50 {
		t.Fatalf("expected clamp to ceiling 50, got %d", got)
	}
	if got := p.ClampLeverage("DOGEUSDT", 0); got != 1 {
		t.Fatalf("expected clamp to floor 1, got %d", got)
	}
	if got := p.ClampLeverage("DOGEUSDT", 20); got != 20 {
		t.Fatalf("in-range leverage must pass through, got %d", got)
	}
}

func TestLiquidationPrice_Long(t *testing.T) {
	// entry 100, leverage 50, mmr 0.005 => 100 * (1 - 0.02 + 0.005) = 98.5
	got := LiquidationPrice(d("100"), 50, model.DirectionLong, d("0.005"))
	if !got.Equal(d("98.5")) {
		t.Fatalf("expected 98.5, got %s", got.String())
	}
}

func TestLiquidationPrice_Short(t *testing.T) {
	// entry 100, leverage 50, mmr 0.005 => 100 * (1 + 0.02 - 0.005) = 101.5
	got := LiquidationPrice(d("100"), 50, model.DirectionShort, d("0.005"))
	if !got.Equal(d("101.5")) {
		t.Fatalf("expected 101.5, got %s", got.String())
	}
}

func TestLiquidationPrice_InvalidInput(t *testing.T) {
	if got := LiquidationPrice(d("100"), 0, model.DirectionLong, d("0.005")); !got.IsZero() {
		t.Fatalf("leverage < 1 must yield zero, got %s", got.String())
	}
	if got := LiquidationPrice(d("0"), 10, model.DirectionLong, d("0.005")); !got.IsZero() {
		t.Fatalf("non-positive entry must yield zero, got %s", got.String())
	}
}

func TestTrailingStop_LongRatchetsUpOnly(t *testing.T) {
	entry := d("100")
	frac := d("0.02")

	// Price below entry: no trail.
	stop, moved := TrailingStop(d("99"), entry, model.DirectionLong, frac, decimal.Zero)
	if moved || !stop.IsZero() {
		t.Fatalf("no trail expected below entry, got %s moved=%v", stop.String(), moved)
	}

	// Price clears entry: first trail at 105*(1-0.02)=102.9.
	stop, moved = TrailingStop(d("105"), entry, model.DirectionLong, frac, decimal.Zero)
	if !moved || !stop.Equal(d("102.9")) {
		t.Fatalf("expected first trail 102.9, got %s moved=%v", stop.String(), moved)
	}

	// Price retreats: stop must not loosen.
	next, moved := TrailingStop(d("103"), entry, model.DirectionLong, frac, stop)
	if moved || !next.Equal(stop) {
		t.Fatalf("stop must never decrease for long, got %s moved=%v", next.String(), moved)
	}

	// Price advances further: stop tightens again.
	next, moved = TrailingStop(d("110"), entry, model.DirectionLong, frac, stop)
	if !moved || !next.Equal(d("107.8")) {
		t.Fatalf("expected trail 107.8, got %s moved=%v", next.String(), moved)
	}
}

func TestTrailingStop_ShortRatchetsDownOnly(t *testing.T) {
	entry := d("100")
	frac := d("0.02")

	stop, moved := TrailingStop(d("95"), entry, model.DirectionShort, frac, decimal.Zero)
	if !moved || !stop.Equal(d("96.9")) {
		t.Fatalf("expected first trail 96.9, got %s moved=%v", stop.String(), moved)
	}

	next, moved := TrailingStop(d("97"), entry, model.DirectionShort, frac, stop)
	if moved || !next.Equal(stop) {
		t.Fatalf("stop must never increase for short, got %s moved=%v", next.String(), moved)
	}

	next, moved = TrailingStop(d("90"), entry, model.DirectionShort, frac, stop)
	if !moved || !next.Equal(d("91.8")) {
		t.Fatalf("expected trail 91.8, got %s moved=%v", next.String(), moved)
	}
}

func TestWithinLiquidationBuffer(t *testing.T) {
	liq := d("98.5")
	buffer := d("0.01")

	// 98.5 * 1.01 = 99.485
	if !WithinLiquidationBuffer(d("99.4"), liq, model.DirectionLong, buffer) {
		t.Fatalf("price inside guard band must trigger")
	}
	if WithinLiquidationBuffer(d("99.6"), liq, model.DirectionLong, buffer) {
		t.Fatalf("price outside guard band must not trigger")
	}

	liqShort := d("101.5")
	// 101.5 * 0.99 = 100.485
	if !WithinLiquidationBuffer(d("100.6"), liqShort, model.DirectionShort, buffer) {
		t.Fatalf("short guard band must trigger above threshold")
	}
	if WithinLiquidationBuffer(d("100.3"), liqShort, model.DirectionShort, buffer) {
		t.Fatalf("short guard band must not trigger below threshold")
	}
}

func TestPositionSize(t *testing.T) {
	// balance 10000, risk 1%, entry 100, stop 98 => 100 / 2 = 50 units
	got := PositionSize(d("10000"), d("0.01"), d("100"), d("98"))
	if !got.Equal(d("50")) {
		t.Fatalf("expected 50, got %s", got.String())
	}

	if got := PositionSize(d("10000"), d("0.01"), d("100"), d("100")); !got.IsZero() {
		t.Fatalf("zero stop distance must yield zero size, got %s", got.String())
	}
}
