// Package config provides configuration structures and validation for the
// application. It handles environment-based configuration for the HTTP
// server, logging, the in-process event bus, and the ledger's startup
// capital.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration. Each field represents
// a subsystem's configuration and is validated during application startup.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	EventBus    EventBusConfig
	Ledger      LedgerConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level   string
	Enabled bool // When false, all log output is discarded
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// EventBusConfig contains in-process event bus configuration
type EventBusConfig struct {
	QueueSize       int           // Capacity of the internal dispatch queue
	HandlerPoolSize int           // Maximum concurrent handler invocations
	ShutdownGrace   time.Duration // Grace period for in-flight handlers during Stop
	RecordingCap    int           // Maximum number of recorded event summaries
}

// LedgerConfig contains ledger configuration
type LedgerConfig struct {
	Currency       string // ISO 4217 code for the simulation's base currency
	InitialCapital int64  // Startup equity injection in minor units; 0 disables
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate EventBus config
	if c.EventBus.QueueSize <= 0 {
		validationErrors = append(validationErrors, "BUS_QUEUE_SIZE must be greater than 0")
	}
	if c.EventBus.HandlerPoolSize <= 0 {
		validationErrors = append(validationErrors, "BUS_HANDLER_POOL_SIZE must be greater than 0")
	}
	if c.EventBus.ShutdownGrace <= 0 {
		validationErrors = append(validationErrors, "BUS_SHUTDOWN_GRACE must be greater than 0")
	}
	if c.EventBus.RecordingCap <= 0 {
		validationErrors = append(validationErrors, "BUS_RECORDING_CAP must be greater than 0")
	}

	// Validate Ledger config
	if len(c.Ledger.Currency) != 3 {
		validationErrors = append(validationErrors, "LEDGER_CURRENCY must be a 3-letter code")
	}
	if c.Ledger.InitialCapital < 0 {
		validationErrors = append(validationErrors, "LEDGER_INITIAL_CAPITAL must not be negative")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
