package strategies

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config carries the tunable thresholds shared by all registered strategies.
// Every value is policy, not architecture; the defaults are starting points.
type Config struct {
	// Liquidity floor applied by every strategy before anything else.
	MinVolume24h float64 `envconfig:"STRAT_MIN_VOLUME_24H" default:"5000000"`

	// Funding-rate extreme strategy.
	FundingMinRate   float64 `envconfig:"STRAT_FUNDING_MIN_RATE" default:"0.0008"`
	FundingTargetPct float64 `envconfig:"STRAT_FUNDING_TARGET_PCT" default:"0.02"`
	FundingStopPct   float64 `envconfig:"STRAT_FUNDING_STOP_PCT" default:"0.01"`

	// Volume spike strategy.
	VolumeSpikeRatio     float64 `envconfig:"STRAT_VOLUME_SPIKE_RATIO" default:"3.0"`
	VolumeSpikeMinChange float64 `envconfig:"STRAT_VOLUME_SPIKE_MIN_CHANGE_PCT" default:"0.3"`
	VolumeSpikeTargetPct float64 `envconfig:"STRAT_VOLUME_SPIKE_TARGET_PCT" default:"0.012"`
	VolumeSpikeStopPct   float64 `envconfig:"STRAT_VOLUME_SPIKE_STOP_PCT" default:"0.006"`

	// Liquidation squeeze strategy.
	LiqMinNotional   float64 `envconfig:"STRAT_LIQ_MIN_NOTIONAL" default:"500000"`
	LiqImbalanceMin  float64 `envconfig:"STRAT_LIQ_IMBALANCE_MIN" default:"3.0"`
	LiqTargetPct     float64 `envconfig:"STRAT_LIQ_TARGET_PCT" default:"0.015"`
	LiqStopPct       float64 `envconfig:"STRAT_LIQ_STOP_PCT" default:"0.008"`

	// Open-interest surge strategy.
	OIVolumeRatioMin float64 `envconfig:"STRAT_OI_VOLUME_RATIO_MIN" default:"0.5"`
	OIMinTrendPct    float64 `envconfig:"STRAT_OI_MIN_TREND_PCT" default:"2.0"`
	OITargetPct      float64 `envconfig:"STRAT_OI_TARGET_PCT" default:"0.025"`
	OIStopPct        float64 `envconfig:"STRAT_OI_STOP_PCT" default:"0.012"`

	// Micro-scalp strategy.
	ScalpMinChangePct float64 `envconfig:"STRAT_SCALP_MIN_CHANGE_PCT" default:"0.15"`
	ScalpMinVolume24h float64 `envconfig:"STRAT_SCALP_MIN_VOLUME_24H" default:"20000000"`
	ScalpTargetPct    float64 `envconfig:"STRAT_SCALP_TARGET_PCT" default:"0.004"`
	ScalpStopPct      float64 `envconfig:"STRAT_SCALP_STOP_PCT" default:"0.002"`

	// Cross-market divergence slot. Disabled until a reference feed exists.
	DivergenceMinGapPct float64 `envconfig:"STRAT_DIVERGENCE_MIN_GAP_PCT" default:"0.5"`
	DivergenceTargetPct float64 `envconfig:"STRAT_DIVERGENCE_TARGET_PCT" default:"0.01"`
	DivergenceStopPct   float64 `envconfig:"STRAT_DIVERGENCE_STOP_PCT" default:"0.006"`
}

// GetConfig loads the strategy thresholds from the environment.
func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
