// Package config loads process configuration from the environment
// using viper, the way Notifuse/notifuse configures its services.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds every environment-tunable knob of the service.
type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    string

	// TxMaxWait bounds how long a reconciliation attempt may wait for a
	// transaction to begin before failing with KindTimeout.
	TxMaxWait time.Duration
	// TxTimeout bounds the total runtime of one reconciliation attempt.
	TxTimeout time.Duration
	// ShutdownGrace bounds how long the server waits for in-flight
	// requests to finish during a graceful shutdown.
	ShutdownGrace time.Duration
}

// Load reads configuration from the environment, applying the same
// defaults the teacher's main.go hard-coded.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "file:./identity.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TX_MAX_WAIT", 5*time.Second)
	v.SetDefault("TX_TIMEOUT", 10*time.Second)
	v.SetDefault("SHUTDOWN_GRACE", 15*time.Second)

	return &Config{
		Port:          v.GetString("PORT"),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		TxMaxWait:     v.GetDuration("TX_MAX_WAIT"),
		TxTimeout:     v.GetDuration("TX_TIMEOUT"),
		ShutdownGrace: v.GetDuration("SHUTDOWN_GRACE"),
	}
}
