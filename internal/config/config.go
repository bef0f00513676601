package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	DBSource string
	Port     string
	Env      string
}

// Load reads configuration from the environment: DB_SOURCE (required),
// SERVER_PORT, ENVIRONMENT.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("server_port", "8080")
	v.SetDefault("environment", "development")
	v.AutomaticEnv()

	dbSource := v.GetString("db_source")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	return &Config{
		DBSource: dbSource,
		Port:     v.GetString("server_port"),
		Env:      v.GetString("environment"),
	}, nil
}
