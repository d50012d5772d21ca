package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Symbols the engine watches. Open interest is polled per symbol, so
	// keep the list modest.
	Symbols []string `envconfig:"WATCH_SYMBOLS" default:"BTCUSDT,ETHUSDT,SOLUSDT,BNBUSDT,XRPUSDT,DOGEUSDT"`

	// LiquidationStreamURL is the combined force-order stream endpoint.
	LiquidationStreamURL string `envconfig:"LIQUIDATION_STREAM_URL" default:"wss://fstream.binance.com/ws/!forceOrder@arr"`

	// LiquidationWindow bounds how long a liquidation keeps contributing to
	// the per-symbol aggregate.
	LiquidationWindow time.Duration `envconfig:"LIQUIDATION_WINDOW" default:"5m"`

	// ReconnectWait paces websocket reconnection attempts.
	ReconnectWait time.Duration `envconfig:"WS_RECONNECT_WAIT" default:"5s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
