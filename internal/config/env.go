package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Environment holds deployment secrets and overrides read from environment variables
type Environment struct {
	ServiceAccountJSON string `env:"VOLUNTEER_SERVICE_ACCOUNT_JSON"`
	ServiceAccountFile string `env:"VOLUNTEER_SERVICE_ACCOUNT_FILE"`
	SpreadsheetID      string `env:"VOLUNTEER_SPREADSHEET_ID"`
	PostgresURL        string `env:"VOLUNTEER_POSTGRES_URL"`
	RedisAddr          string `env:"VOLUNTEER_REDIS_ADDR"`
	ServerAddr         string `env:"VOLUNTEER_SERVER_ADDR"`
}

// ParseEnvironment loads overrides from environment variables
func ParseEnvironment() (Environment, error) {
	var vars Environment
	if err := env.Parse(&vars); err != nil {
		return Environment{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return vars, nil
}

// ApplyEnvironment overrides file values with any non-empty environment values
func (c *Config) ApplyEnvironment(vars Environment) {
	if vars.ServiceAccountJSON != "" {
		c.ServiceAccountJSON = vars.ServiceAccountJSON
	}
	if vars.ServiceAccountFile != "" {
		c.ServiceAccountFile = vars.ServiceAccountFile
	}
	if vars.SpreadsheetID != "" {
		c.SpreadsheetID = vars.SpreadsheetID
	}
	if vars.PostgresURL != "" {
		c.PostgresURL = vars.PostgresURL
	}
	if vars.RedisAddr != "" {
		c.RedisAddr = vars.RedisAddr
	}
	if vars.ServerAddr != "" {
		c.ServerAddr = vars.ServerAddr
	}
}
