package security

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// AdminTokenHash is the bcrypt hash of the token granting access to the
	// admin API routes. Empty disables those routes entirely.
	AdminTokenHash string `envconfig:"ADMIN_TOKEN_HASH"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
