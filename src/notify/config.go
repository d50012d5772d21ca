package notify

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	WebhookURL    string        `envconfig:"NOTIFY_WEBHOOK_URL"`
	Timeout       time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"5s"`
	RetryAttempts int           `envconfig:"NOTIFY_RETRY_ATTEMPTS" default:"2"`
	RetryWait     time.Duration `envconfig:"NOTIFY_RETRY_WAIT" default:"500ms"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
