package executors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// TickInterval paces the evaluation loop. Every tick runs the full
	// snapshot -> strategies -> ranking -> lifecycle pipeline once.
	TickInterval time.Duration `envconfig:"TICK_INTERVAL" default:"30s"`

	// MaxSignalsPerTick caps how many ranked signals survive scoring.
	MaxSignalsPerTick int `envconfig:"MAX_SIGNALS_PER_TICK" default:"5"`

	// PaperTrading keeps order routing on the paper gateway. There is no
	// live gateway in this service yet, so leave it on.
	PaperTrading bool `envconfig:"PAPER_TRADING" default:"true"`

	// LeverageConfigPath optionally overlays the built-in leverage ceilings
	// from a YAML file. Empty means built-ins only.
	LeverageConfigPath string `envconfig:"LEVERAGE_CONFIG_PATH"`

	// WeightsConfigPath optionally overlays the strategy-weight table from a
	// YAML file. Empty means built-ins only.
	WeightsConfigPath string `envconfig:"WEIGHTS_CONFIG_PATH"`

	// PushBuffer sizes the async snapshot channel fed by stream sources.
	PushBuffer int `envconfig:"SNAPSHOT_PUSH_BUFFER" default:"4"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
